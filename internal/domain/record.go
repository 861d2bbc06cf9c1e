package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPersistence indicates that the ledger could not be durably written.
	ErrPersistence = errors.New("persistence failure")
	// ErrCorruptRecord indicates a persisted record that cannot be decoded.
	ErrCorruptRecord = errors.New("corrupt record")
	// ErrUnencodable indicates an account field that cannot be written on a single line.
	ErrUnencodable = errors.New("field cannot be encoded")
)

// CorruptRecordError describes one persisted record skipped during load.
type CorruptRecordError struct {
	Line int // 1-based line or row number
	Err  error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Line, e.Err)
}

// Unwrap returns the decoding failure.
func (e *CorruptRecordError) Unwrap() error {
	return e.Err
}

// Is reports ErrCorruptRecord as the category of every CorruptRecordError.
func (e *CorruptRecordError) Is(target error) bool {
	return target == ErrCorruptRecord
}

// LoadResult is the outcome of reading a persisted ledger.
type LoadResult struct {
	Accounts []Account
	Skipped  []*CorruptRecordError
}
