package transaction

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Type is the kind of money movement
type Type string

const (
	Deposit    Type = "DEPOSIT"
	Withdrawal Type = "WITHDRAWAL"
	Transfer   Type = "TRANSFER"
)

// Status is a transaction's position in its lifecycle
type Status string

const (
	Pending    Status = "PENDING"
	Processing Status = "PROCESSING"
	Completed  Status = "COMPLETED"
	Failed     Status = "FAILED"
	// Reversed is terminal but nothing transitions to it yet
	Reversed Status = "REVERSED"
)

// allowed status edges; anything missing is rejected by Transition
var transitions = map[Status][]Status{
	Pending:    {Processing},
	Processing: {Completed, Failed},
}

// CanTransition reports whether a transaction in from may move to to.
// Stores apply the same rule when a write replaces an existing row.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionGuard renders the allowed edges as a SQL condition comparing the
// stored status column with the incoming one, for an upsert's DO UPDATE ... WHERE.
func TransitionGuard(stored, incoming string) string {
	var from []string
	for s := range transitions {
		from = append(from, string(s))
	}
	sort.Strings(from)

	var edges []string
	for _, s := range from {
		for _, to := range transitions[Status(s)] {
			edges = append(edges, fmt.Sprintf("(%s = '%s' AND %s = '%s')", stored, s, incoming, to))
		}
	}
	return "(" + strings.Join(edges, " OR ") + ")"
}

// Terminal reports whether no further transition may leave s
func (s Status) Terminal() bool {
	return s == Completed || s == Failed || s == Reversed
}

// Transaction represents a money-movement request and its current state.
//
// ID is the store's key, TransactionID the identifier handed to callers.
// ToAccount is empty unless the transaction is a transfer.
type Transaction struct {
	ID            int64           `db:"id" json:"id"`
	TransactionID string          `db:"transaction_id" json:"transactionId"`
	FromAccount   string          `db:"from_account" json:"fromAccount"`
	ToAccount     string          `db:"to_account" json:"toAccount,omitempty"`
	Type          Type            `db:"type" json:"type"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Currency      string          `db:"currency" json:"currency"`
	Status        Status          `db:"status" json:"status"`
	Description   string          `db:"description" json:"description,omitempty"`
	FailureReason string          `db:"failure_reason" json:"failureReason,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	CompletedAt   *time.Time      `db:"completed_at" json:"completedAt,omitempty"`
}

// Transition moves the transaction to the given status.
// Reaching a terminal status stamps CompletedAt with now.
func (t *Transaction) Transition(to Status, now time.Time) error {
	if !CanTransition(t.Status, to) {
		return &StateError{TransactionID: t.TransactionID, From: t.Status, To: to}
	}
	t.Status = to
	if to.Terminal() {
		at := now.UTC()
		t.CompletedAt = &at
	}
	return nil
}

// Involves reports whether account is the source or destination
func (t *Transaction) Involves(account string) bool {
	return t.FromAccount == account || (t.ToAccount != "" && t.ToAccount == account)
}

// Clone returns a deep copy so stores never share state with callers
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// Event types appended to a transaction's history
const (
	EventCreated    = "CREATED"
	EventProcessing = "PROCESSING"
	EventCompleted  = "COMPLETED"
	EventFailed     = "FAILED"
)

// Event is an immutable, versioned snapshot of a transaction
type Event struct {
	ID            int64     `db:"id"`
	TransactionID string    `db:"transaction_id"`
	EventType     string    `db:"event_type"`
	Data          []byte    `db:"event_data"`
	Version       int64     `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
}
