package transaction

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FieldError describes one invalid request field
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError rejects a malformed request before anything is persisted
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid transaction request")
	for i, f := range e.Fields {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(f.Field)
		b.WriteString(" ")
		b.WriteString(f.Reason)
	}
	return b.String()
}

func (e *ValidationError) GRPCStatus() *status.Status {
	return status.New(codes.InvalidArgument, e.Error())
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// NotFoundError is returned when a lookup matches no transaction
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transaction not found: %s", e.Key)
}

func (e *NotFoundError) GRPCStatus() *status.Status {
	return status.New(codes.NotFound, e.Error())
}

// StateError rejects a status change the lifecycle doesn't allow
type StateError struct {
	TransactionID string
	From          Status
	To            Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("transaction %s: cannot move from %s to %s", e.TransactionID, e.From, e.To)
}

func (e *StateError) GRPCStatus() *status.Status {
	return status.New(codes.FailedPrecondition, e.Error())
}

// UnavailableError rejects work that arrives once the node has started to stop
type UnavailableError struct {
	Reason string
}

func (e *UnavailableError) Error() string {
	return "transactions unavailable: " + e.Reason
}

func (e *UnavailableError) GRPCStatus() *status.Status {
	return status.New(codes.Unavailable, e.Error())
}

// LedgerError means a balance adjustment didn't happen.
// Its message is the ledger's message, recorded verbatim as the failure reason.
type LedgerError struct {
	TransactionID string
	Account       string
	Err           error
}

func (e *LedgerError) Error() string {
	return e.Err.Error()
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

func (e *LedgerError) GRPCStatus() *status.Status {
	return status.New(codes.Aborted, e.Error())
}

// IsNotFound reports whether err is, or wraps, a *NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
