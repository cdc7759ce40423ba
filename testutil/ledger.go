package testutil

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	api "transactions/api/v1"
)

// Adjustment is one AdjustBalance call seen by the fake ledger
type Adjustment struct {
	Account string
	Amount  decimal.Decimal
}

// Ledger is an in-memory account ledger for tests.
// Failures are injected per account or through OnAdjust.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	failures map[string]error
	calls    []Adjustment

	// OnAdjust runs before every call; a non-nil error fails the call
	OnAdjust func(ctx context.Context, account string, amount decimal.Decimal) error
}

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[string]decimal.Decimal),
		failures: make(map[string]error),
	}
}

// Fail makes every later call for account return err; a nil err clears it
func (l *Ledger) Fail(account string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.failures, account)
		return
	}
	l.failures[account] = err
}

func (l *Ledger) AdjustBalance(ctx context.Context, account string, amount decimal.Decimal) error {
	l.mu.Lock()
	l.calls = append(l.calls, Adjustment{Account: account, Amount: amount})
	hook := l.OnAdjust
	err := l.failures[account]
	l.mu.Unlock()

	if hook != nil {
		if hookErr := hook(ctx, account, amount); hookErr != nil {
			return hookErr
		}
	}
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.balances[account] = l.balances[account].Add(amount)
	l.mu.Unlock()
	return nil
}

// Balance is the sum of every successful adjustment for account
func (l *Ledger) Balance(account string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// Calls returns every AdjustBalance call in arrival order, failed ones included
func (l *Ledger) Calls() []Adjustment {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Adjustment, len(l.calls))
	copy(out, l.calls)
	return out
}

// Server exposes the fake over the Ledger gRPC service.
// Injected errors are returned as is, so tests pass status errors to pick the code.
func (l *Ledger) Server() api.LedgerServer {
	return &ledgerServer{l}
}

type ledgerServer struct {
	ledger *Ledger
}

func (s *ledgerServer) AdjustBalance(ctx context.Context, req *api.AdjustBalanceRequest) (*api.AdjustBalanceResponse, error) {
	if err := s.ledger.AdjustBalance(ctx, req.AccountNumber, req.Amount); err != nil {
		return nil, err
	}
	return &api.AdjustBalanceResponse{
		AccountNumber: req.AccountNumber,
		Balance:       s.ledger.Balance(req.AccountNumber),
	}, nil
}
