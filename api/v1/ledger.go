package api

import "github.com/shopspring/decimal"

// AdjustBalanceRequest adds a signed amount to an account's balance
type AdjustBalanceRequest struct {
	AccountNumber string          `json:"accountNumber"`
	Amount        decimal.Decimal `json:"amount"`
}

type AdjustBalanceResponse struct {
	AccountNumber string          `json:"accountNumber"`
	Balance       decimal.Decimal `json:"balance"`
}
