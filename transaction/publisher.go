package transaction

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Topics the orchestrator publishes to
const (
	TopicCreated   = "transaction-created"
	TopicCompleted = "transaction-completed"
)

// Publisher announces lifecycle events to other services.
// Delivery is best effort: the orchestrator logs a publish error and moves on.
type Publisher interface {
	PublishCreated(ctx context.Context, event *CreatedEvent) error
	PublishCompleted(ctx context.Context, event *CompletedEvent) error
}

// CreatedEvent is published once a transaction is persisted as PENDING
type CreatedEvent struct {
	TransactionID string          `json:"transactionId"`
	FromAccount   string          `json:"fromAccount"`
	ToAccount     string          `json:"toAccount,omitempty"`
	Type          Type            `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Description   string          `json:"description,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// CompletedEvent is published when a transaction reaches COMPLETED
type CompletedEvent struct {
	TransactionID string          `json:"transactionId"`
	FromAccount   string          `json:"fromAccount"`
	ToAccount     string          `json:"toAccount,omitempty"`
	Type          Type            `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Status        Status          `json:"status"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Key routes every event of one transaction to the same partition
func (e *CreatedEvent) Key() string { return e.TransactionID }

func (e *CompletedEvent) Key() string { return e.TransactionID }

func NewCreatedEvent(t *Transaction, now time.Time) *CreatedEvent {
	return &CreatedEvent{
		TransactionID: t.TransactionID,
		FromAccount:   t.FromAccount,
		ToAccount:     t.ToAccount,
		Type:          t.Type,
		Amount:        t.Amount,
		Currency:      t.Currency,
		Description:   t.Description,
		Timestamp:     now.UTC(),
	}
}

func NewCompletedEvent(t *Transaction, now time.Time) *CompletedEvent {
	return &CompletedEvent{
		TransactionID: t.TransactionID,
		FromAccount:   t.FromAccount,
		ToAccount:     t.ToAccount,
		Type:          t.Type,
		Amount:        t.Amount,
		Status:        t.Status,
		Timestamp:     now.UTC(),
	}
}

// NopPublisher discards every event
type NopPublisher struct{}

func (NopPublisher) PublishCreated(context.Context, *CreatedEvent) error { return nil }

func (NopPublisher) PublishCompleted(context.Context, *CompletedEvent) error { return nil }
