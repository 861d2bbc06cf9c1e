// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/accountstore"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/notifier"
)

// Store provides ledger access needed by account service layer.
type Store interface {
	Get(ctx context.Context, id int32) (domain.Account, error)
	Create(ctx context.Context, a domain.Account) (domain.Account, error)
	WithLock(ctx context.Context, ids []int32, fn accountstore.Mutation) error
}

// Service facilitates account service layer logic.
type Service struct {
	store    Store
	notifier notifier.Notifier
}

// New returns account service struct to manage account bussines logic.
// A nil notifier disables creation notifications.
func New(s Store, n notifier.Notifier) *Service {
	return &Service{
		store:    s,
		notifier: n,
	}
}

func validCreateRequest(arg domain.CreateAccountParams) error {
	switch {
	case arg.Owner == "":
		return domain.ErrEmptyOwner
	case arg.Email == "":
		return domain.ErrEmptyEmail
	case strings.ContainsAny(arg.Owner+arg.Email, "\r\n"):
		return domain.ErrInvalidText
	case arg.InitialDeposit <= 0:
		return domain.ErrInvalidAmount
	case !domain.ValidPIN(arg.PIN) || arg.PIN != arg.ConfirmPIN:
		return domain.ErrInvalidPIN
	}

	return nil
}

// Create opens an account funded with the initial deposit and returns it.
// The notifier runs in the background and never affects the result.
func (s *Service) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	arg.Owner = strings.TrimSpace(arg.Owner)
	arg.Email = strings.TrimSpace(arg.Email)

	if err := validCreateRequest(arg); err != nil {
		l.Info().Err(err).Send()
		return domain.Account{}, err
	}

	account, err := s.store.Create(ctx, domain.Account{
		Owner:   arg.Owner,
		Balance: arg.InitialDeposit,
		PIN:     arg.PIN,
		Email:   arg.Email,
		History: []string{domain.CreatedEntry(arg.InitialDeposit)},
	})
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Account{}, err
	}

	s.notifyCreated(ctx, account)

	return account, nil
}

func (s *Service) notifyCreated(ctx context.Context, account domain.Account) {
	if s.notifier == nil {
		return
	}

	logger := zerolog.Ctx(ctx).With().Int32("account_id", account.ID).Logger()
	nctx := logger.WithContext(context.Background())

	go func() {
		defer func() {
			if panicVal := recover(); panicVal != nil {
				logger.Error().Msgf("notifier panic: %v", panicVal)
			}
		}()

		if err := s.notifier.AccountCreated(nctx, account.Email, account.Owner, account.ID); err != nil {
			logger.Warn().Err(err).Msg("account created notification failed")
		}
	}()
}

// Get returns account for the given account ID.
func (s *Service) Get(ctx context.Context, id int32) (domain.Account, error) {
	account, err := s.store.Get(ctx, id)
	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Int32("account_id", id).Send()
		return account, err
	}

	return account, nil
}

// Deposit adds amount to the account and returns the new balance.
func (s *Service) Deposit(ctx context.Context, id int32, amount int64) (int64, error) {
	l := zerolog.Ctx(ctx)

	if amount <= 0 {
		l.Info().Int64("amount", amount).Err(domain.ErrInvalidAmount).Send()
		return 0, domain.ErrInvalidAmount
	}

	var balance int64

	err := s.store.WithLock(ctx, []int32{id}, func(accounts map[int32]*domain.Account) error {
		a := accounts[id]

		if a.Balance > math.MaxInt64-amount {
			return domain.ErrInvalidAmount
		}

		a.Balance += amount
		a.History = append(a.History, domain.DepositedEntry(amount))
		balance = a.Balance

		return nil
	})
	if err != nil {
		logFailure(l, err, id)
		return 0, err
	}

	return balance, nil
}

// Withdraw takes amount from the account and returns the new balance.
func (s *Service) Withdraw(ctx context.Context, id int32, amount int64) (int64, error) {
	l := zerolog.Ctx(ctx)

	if amount <= 0 {
		l.Info().Int64("amount", amount).Err(domain.ErrInvalidAmount).Send()
		return 0, domain.ErrInvalidAmount
	}

	var balance int64

	err := s.store.WithLock(ctx, []int32{id}, func(accounts map[int32]*domain.Account) error {
		a := accounts[id]

		if a.Balance < amount {
			return domain.ErrInsufficientFunds
		}

		a.Balance -= amount
		a.History = append(a.History, domain.WithdrewEntry(amount))
		balance = a.Balance

		return nil
	})
	if err != nil {
		logFailure(l, err, id)
		return 0, err
	}

	return balance, nil
}

// History returns the account history, oldest entry first.
func (s *Service) History(ctx context.Context, id int32) ([]string, error) {
	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if account.History == nil {
		return []string{}, nil
	}

	return account.History, nil
}

func logFailure(l *zerolog.Logger, err error, id int32) {
	e := l.Info()
	if errors.Is(err, domain.ErrPersistence) {
		e = l.Error()
	}

	e.Err(err).Int32("account_id", id).Send()
}
