package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRequest asks the service to move money.
// ToAccount is only meaningful for transfers.
type TransactionRequest struct {
	FromAccount string          `json:"fromAccount"`
	ToAccount   string          `json:"toAccount,omitempty"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Transaction is the wire representation of a transaction's current state
type Transaction struct {
	Id            int64           `json:"id"`
	TransactionId string          `json:"transactionId"`
	FromAccount   string          `json:"fromAccount"`
	ToAccount     string          `json:"toAccount,omitempty"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	Description   string          `json:"description,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
}

type TransactionResponse struct {
	Transaction *Transaction `json:"transaction"`
}

type ExecuteTransactionRequest struct {
	TransactionId string `json:"transactionId"`
}

type GetTransactionRequest struct {
	Id int64 `json:"id"`
}

type GetTransactionByTransactionIdRequest struct {
	TransactionId string `json:"transactionId"`
}

// ListTransactionsRequest filters the listing; empty fields match everything
type ListTransactionsRequest struct {
	Statuses []string `json:"statuses,omitempty"`
	Types    []string `json:"types,omitempty"`
}

type ListAccountTransactionsRequest struct {
	AccountNumber string `json:"accountNumber"`
}

type ListTransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

type ListTransactionEventsRequest struct {
	TransactionId string `json:"transactionId"`
}

// TransactionEvent is one versioned snapshot from a transaction's history
type TransactionEvent struct {
	Id            int64     `json:"id"`
	TransactionId string    `json:"transactionId"`
	EventType     string    `json:"eventType"`
	EventData     string    `json:"eventData"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"createdAt"`
}

type ListTransactionEventsResponse struct {
	Events []*TransactionEvent `json:"events"`
}
