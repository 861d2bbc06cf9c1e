// Package domain provides defenitions of all ledger entities and errors.
package domain

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrValidation is the category of all malformed or out-of-range inputs.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = fmt.Errorf("%w: amount must be a positive integer", ErrValidation)
	// ErrEmptyOwner indicates a missing owner name.
	ErrEmptyOwner = fmt.Errorf("%w: owner is required", ErrValidation)
	// ErrEmptyEmail indicates a missing contact email.
	ErrEmptyEmail = fmt.Errorf("%w: email is required", ErrValidation)
	// ErrInvalidText indicates owner or email containing line breaks.
	ErrInvalidText = fmt.Errorf("%w: owner and email must be single-line text", ErrValidation)
	// ErrInvalidPIN indicates a PIN that is not 4 digits or does not match its confirmation.
	ErrInvalidPIN = fmt.Errorf("%w: pin must be 4 digits and match its confirmation", ErrValidation)

	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInsufficientFunds indicates that the account balance does not cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Account id bounds, both inclusive.
const (
	MinAccountID int32 = 10_000_000
	MaxAccountID int32 = 99_999_999
)

// Account holds balance and history of a single ledger account.
type Account struct {
	ID      int32    `json:"id"`
	Owner   string   `json:"owner"`
	Balance int64    `json:"balance"`
	PIN     string   `json:"-"`
	Email   string   `json:"email"`
	History []string `json:"history"`
}

// Clone returns a deep copy of a, safe to hand outside the store.
func (a Account) Clone() Account {
	a.History = slices.Clone(a.History)
	return a
}

// CreateAccountParams is the input data to open an account.
type CreateAccountParams struct {
	Owner          string
	Email          string
	InitialDeposit int64
	PIN            string
	ConfirmPIN     string
}

// ValidAccountID reports whether id is an 8-digit account number.
func ValidAccountID(id int32) bool {
	return id >= MinAccountID && id <= MaxAccountID
}

// ValidPIN reports whether pin consists of exactly 4 ASCII digits.
func ValidPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}

	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}

	return true
}

// History entry texts.

// CreatedEntry is the first history entry of every account.
func CreatedEntry(amount int64) string {
	return fmt.Sprintf("Account created with %d", amount)
}

// DepositedEntry records a deposit.
func DepositedEntry(amount int64) string {
	return fmt.Sprintf("Deposited %d", amount)
}

// WithdrewEntry records a withdrawal.
func WithdrewEntry(amount int64) string {
	return fmt.Sprintf("Withdrew %d", amount)
}

// TransferredEntry records the sender side of a transfer.
func TransferredEntry(amount int64, to int32) string {
	return fmt.Sprintf("Transferred %d to %d", amount, to)
}

// ReceivedEntry records the recipient side of a transfer.
func ReceivedEntry(amount int64, from int32) string {
	return fmt.Sprintf("Received %d from %d", amount, from)
}
