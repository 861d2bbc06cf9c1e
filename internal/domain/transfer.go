package domain

import "errors"

// ErrSelfTransfer indicates a transfer whose sender and recipient are the same account.
var ErrSelfTransfer = errors.New("cannot transfer to the same account")

// TransferParams is the input data for the transfer operation.
type TransferParams struct {
	FromAccountID int32 `json:"from_account_id"`
	ToAccountID   int32 `json:"to_account_id"`
	Amount        int64 `json:"amount"` // must be positive
}

// TransferResult is the result of the transfer operation.
type TransferResult struct {
	FromAccount Account `json:"from_account"`
	ToAccount   Account `json:"to_account"`
	Amount      int64   `json:"amount"`
}
