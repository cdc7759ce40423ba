package sqlite

import (
	"time"

	"github.com/shopspring/decimal"

	"transactions/transaction"
)

type transactionModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	TransactionID string `gorm:"uniqueIndex;size:50;not null"`
	FromAccount   string `gorm:"index;size:20;not null"`
	ToAccount     string `gorm:"index;size:20"`
	Type          string `gorm:"size:20;not null"`
	// kept as text so the exact scale survives
	Amount        string `gorm:"not null"`
	Currency      string `gorm:"size:3;not null"`
	Status        string `gorm:"size:20;not null"`
	Description   string `gorm:"size:500"`
	FailureReason string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

func (transactionModel) TableName() string {
	return "transactions"
}

func toModel(t *transaction.Transaction) *transactionModel {
	return &transactionModel{
		ID:            t.ID,
		TransactionID: t.TransactionID,
		FromAccount:   t.FromAccount,
		ToAccount:     t.ToAccount,
		Type:          string(t.Type),
		Amount:        t.Amount.String(),
		Currency:      t.Currency,
		Status:        string(t.Status),
		Description:   t.Description,
		FailureReason: t.FailureReason,
		CreatedAt:     t.CreatedAt,
		CompletedAt:   t.CompletedAt,
	}
}

func (m *transactionModel) toTransaction() (*transaction.Transaction, error) {
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return nil, err
	}
	t := &transaction.Transaction{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		FromAccount:   m.FromAccount,
		ToAccount:     m.ToAccount,
		Type:          transaction.Type(m.Type),
		Amount:        amount,
		Currency:      m.Currency,
		Status:        transaction.Status(m.Status),
		Description:   m.Description,
		FailureReason: m.FailureReason,
		CreatedAt:     m.CreatedAt.UTC(),
	}
	if m.CompletedAt != nil {
		at := m.CompletedAt.UTC()
		t.CompletedAt = &at
	}
	return t, nil
}

type eventModel struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	TransactionID string    `gorm:"uniqueIndex:idx_event_version;size:50;not null"`
	EventType     string    `gorm:"size:50;not null"`
	EventData     string    `gorm:"not null"`
	Version       int64     `gorm:"uniqueIndex:idx_event_version;not null"`
	CreatedAt     time.Time
}

func (eventModel) TableName() string {
	return "transaction_events"
}

func (m *eventModel) toEvent() *transaction.Event {
	return &transaction.Event{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		EventType:     m.EventType,
		Data:          []byte(m.EventData),
		Version:       m.Version,
		CreatedAt:     m.CreatedAt.UTC(),
	}
}
