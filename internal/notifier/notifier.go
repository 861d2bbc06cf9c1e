// Package notifier delivers account lifecycle notifications.
package notifier

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// ErrNotConfigured indicates a notifier without the credentials it needs.
var ErrNotConfigured = errors.New("notifier not configured")

// Notifier is told about every successfully created account.
//
//go:generate mockgen -source notifier.go -destination notifier_mock.go -package notifier
type Notifier interface {
	AccountCreated(ctx context.Context, email, name string, id int32) error
}

// Log only records the event in the context logger.
type Log struct{}

// AccountCreated logs the new account.
func (Log) AccountCreated(ctx context.Context, email, name string, id int32) error {
	zerolog.Ctx(ctx).Info().
		Int32("account_id", id).
		Str("email", email).
		Str("owner", name).
		Msg("account created")

	return nil
}
