package accountrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
)

const tableName = "ledger_accounts"

// RepoPGS persists the whole ledger in a PostgreSQL table.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const schemaQuery = `
CREATE TABLE IF NOT EXISTS ledger_accounts (
    id      integer PRIMARY KEY,
    owner   text    NOT NULL,
    balance bigint  NOT NULL CONSTRAINT ledger_accounts_balance_check CHECK (balance >= 0),
    pin     text    NOT NULL,
    email   text    NOT NULL,
    history text[]  NOT NULL DEFAULT '{}'
)
`

// EnsureSchema creates the ledger table when it does not exist yet.
func (r *RepoPGS) EnsureSchema(ctx context.Context) error {
	l := zerolog.Ctx(ctx)

	if _, err := r.db.ExecContext(ctx, schemaQuery); err != nil {
		l.Error().Err(err).Send()
		return fmt.Errorf("%w: creating schema: %w", domain.ErrPersistence, err)
	}

	return nil
}

const loadAllQuery = `
SELECT id, owner, balance, pin, email, history FROM ledger_accounts
ORDER BY id
`

// LoadAll reads every account row. Rows violating account invariants are
// reported as skipped.
func (r *RepoPGS) LoadAll(ctx context.Context) (domain.LoadResult, error) {
	l := zerolog.Ctx(ctx)

	var res domain.LoadResult

	rows, err := r.db.QueryContext(ctx, loadAllQuery)
	if err != nil {
		l.Error().Err(err).Send()
		return res, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	for rowNo := 1; rows.Next(); rowNo++ {
		var (
			a       domain.Account
			history []string
		)

		if err := rows.Scan(
			&a.ID,
			&a.Owner,
			&a.Balance,
			&a.PIN,
			&a.Email,
			pq.Array(&history),
		); err != nil {
			res.Skipped = append(res.Skipped, &domain.CorruptRecordError{Line: rowNo, Err: err})
			continue
		}

		if len(history) > 0 {
			a.History = history
		}

		if err := validateAccount(a); err != nil {
			res.Skipped = append(res.Skipped, &domain.CorruptRecordError{Line: rowNo, Err: err})
			continue
		}

		res.Accounts = append(res.Accounts, a)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return domain.LoadResult{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	for _, skipped := range res.Skipped {
		l.Warn().Err(skipped).Str("table", tableName).Msg("skipping corrupt record")
	}

	return res, nil
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// SaveAll replaces the table contents with accounts within a single transaction.
// When the repo already runs inside a transaction the caller owns commit and rollback.
func (r *RepoPGS) SaveAll(ctx context.Context, accounts []domain.Account) error {
	l := zerolog.Ctx(ctx)

	err := r.saveAll(ctx, accounts)
	if err != nil {
		l.Error().Err(err).Send()

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "ledger_accounts_balance_check" {
			return fmt.Errorf("%w: %w", domain.ErrPersistence, domain.ErrInsufficientFunds)
		}

		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	return nil
}

func (r *RepoPGS) saveAll(ctx context.Context, accounts []domain.Account) error {
	beginner, ok := r.db.(txBeginner)
	if !ok {
		return replaceRows(ctx, r.db, accounts)
	}

	tx, err := beginner.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replaceRows(ctx, tx, accounts); err != nil {
		return err
	}

	return tx.Commit()
}

func replaceRows(ctx context.Context, db dbpkg.SQLInterface, accounts []domain.Account) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM ledger_accounts`); err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, pq.CopyIn(tableName, "id", "owner", "balance", "pin", "email", "history"))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range accounts {
		history := a.History
		if history == nil {
			history = []string{}
		}

		if _, err := stmt.ExecContext(ctx, a.ID, a.Owner, a.Balance, a.PIN, a.Email, pq.Array(history)); err != nil {
			return fmt.Errorf("copying account %d: %w", a.ID, err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}

	return stmt.Close()
}
