// Package ledger talks to the external service that owns account balances.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Client applies a signed amount to an account's balance:
// positive credits, negative debits.
type Client interface {
	AdjustBalance(ctx context.Context, account string, amount decimal.Decimal) error
}

// Failure kinds. Errors returned by the clients in this package match them with errors.Is.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountInactive = errors.New("account is not active")
	ErrUnavailable     = errors.New("ledger unavailable")
	ErrRejected        = errors.New("ledger rejected the adjustment")
)

// Error carries the ledger's own message, which becomes the transaction's failure reason
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}
