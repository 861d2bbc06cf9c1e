// Package transferservice manages business logic layer of transfers.
package transferservice

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/accountstore"
	"github.com/go-petr/pet-ledger/internal/domain"
)

// Store provides ledger access needed by transfer service layer.
type Store interface {
	Get(ctx context.Context, id int32) (domain.Account, error)
	WithLock(ctx context.Context, ids []int32, fn accountstore.Mutation) error
}

// Service facilitates transfer service layer logic.
type Service struct {
	store Store
}

// New return transfer service struct to manage transfer bussines logic.
func New(s Store) *Service {
	return &Service{
		store: s,
	}
}

// validRequest checks the preconditions that do not depend on the sender
// balance, in the order their errors are reported.
func (s *Service) validRequest(ctx context.Context, arg domain.TransferParams) error {
	if _, err := s.store.Get(ctx, arg.ToAccountID); err != nil {
		return err
	}

	if arg.ToAccountID == arg.FromAccountID {
		return domain.ErrSelfTransfer
	}

	if arg.Amount <= 0 {
		return domain.ErrInvalidAmount
	}

	return nil
}

// Transfer checks if transfer request is valid and then moves the amount
// between both accounts as one unit, persisted once.
func (s *Service) Transfer(ctx context.Context, arg domain.TransferParams) (domain.TransferResult, error) {
	l := zerolog.Ctx(ctx)

	if err := s.validRequest(ctx, arg); err != nil {
		l.Info().Err(err).
			Int32("from_account_id", arg.FromAccountID).
			Int32("to_account_id", arg.ToAccountID).
			Send()
		return domain.TransferResult{}, err
	}

	var result domain.TransferResult

	ids := []int32{arg.FromAccountID, arg.ToAccountID}

	err := s.store.WithLock(ctx, ids, func(accounts map[int32]*domain.Account) error {
		from, to := accounts[arg.FromAccountID], accounts[arg.ToAccountID]

		if from.Balance < arg.Amount {
			return domain.ErrInsufficientFunds
		}

		if to.Balance > math.MaxInt64-arg.Amount {
			return domain.ErrInvalidAmount
		}

		from.Balance -= arg.Amount
		to.Balance += arg.Amount

		from.History = append(from.History, domain.TransferredEntry(arg.Amount, to.ID))
		to.History = append(to.History, domain.ReceivedEntry(arg.Amount, from.ID))

		result = domain.TransferResult{
			FromAccount: from.Clone(),
			ToAccount:   to.Clone(),
			Amount:      arg.Amount,
		}

		return nil
	})
	if err != nil {
		e := l.Info()
		if errors.Is(err, domain.ErrPersistence) {
			e = l.Error()
		}
		e.Err(err).
			Int32("from_account_id", arg.FromAccountID).
			Int32("to_account_id", arg.ToAccountID).
			Send()

		return domain.TransferResult{}, err
	}

	return result, nil
}
