package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidPIN(t *testing.T) {
	testCases := []struct {
		pin  string
		want bool
	}{
		{"1234", true},
		{"0000", true},
		{"123", false},
		{"12345", false},
		{"12a4", false},
		{"", false},
		{"١٢٣٤", false},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.want, ValidPIN(tc.pin), "ValidPIN(%q)", tc.pin)
	}
}

func TestValidAccountID(t *testing.T) {
	require.True(t, ValidAccountID(10_000_000))
	require.True(t, ValidAccountID(99_999_999))
	require.False(t, ValidAccountID(9_999_999))
	require.False(t, ValidAccountID(100_000_000))
	require.False(t, ValidAccountID(-12345678))
}

func TestValidationErrorsShareCategory(t *testing.T) {
	for _, err := range []error{ErrInvalidAmount, ErrEmptyOwner, ErrEmptyEmail, ErrInvalidText, ErrInvalidPIN} {
		require.True(t, errors.Is(err, ErrValidation), "%v", err)
	}

	require.False(t, errors.Is(ErrAccountNotFound, ErrValidation))
	require.False(t, errors.Is(ErrInsufficientFunds, ErrValidation))
}

func TestHistoryEntries(t *testing.T) {
	require.Equal(t, "Account created with 100", CreatedEntry(100))
	require.Equal(t, "Deposited 25", DepositedEntry(25))
	require.Equal(t, "Withdrew 10", WithdrewEntry(10))
	require.Equal(t, "Transferred 40 to 87654321", TransferredEntry(40, 87654321))
	require.Equal(t, "Received 40 from 12345678", ReceivedEntry(40, 12345678))
}

func TestCloneIsDeep(t *testing.T) {
	a := Account{ID: 12345678, History: []string{"x"}}
	b := a.Clone()
	b.History[0] = "y"

	require.Equal(t, "x", a.History[0])
}

func TestCorruptRecordError(t *testing.T) {
	inner := errors.New("bad balance")
	err := error(&CorruptRecordError{Line: 3, Err: inner})

	require.ErrorIs(t, err, ErrCorruptRecord)
	require.ErrorIs(t, err, inner)
	require.Contains(t, err.Error(), "3")
}
