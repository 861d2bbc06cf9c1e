// Package helpers provides fixtures shared by unit and integration tests.
package helpers

import (
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

// RandomAccount returns an account with random data and its creation entry.
func RandomAccount() domain.Account {
	balance := randompkg.Amount(1_000, 10_000)

	return domain.Account{
		ID:      randompkg.AccountID(),
		Owner:   randompkg.Owner(),
		Balance: balance,
		PIN:     randompkg.PIN(),
		Email:   randompkg.Email(),
		History: []string{domain.CreatedEntry(balance)},
	}
}

// PublicView returns a as it is seen by API clients, without the PIN.
func PublicView(a domain.Account) domain.Account {
	a.PIN = ""
	return a
}
