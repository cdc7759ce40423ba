package agent

import (
	"context"
	"sync"

	"transactions/transaction"
)

// inflight counts the writes the servers hand to the orchestrator.
// Shutdown drains it before the ledger connection, publisher and stores close,
// so an execution that already reached the ledger still records its outcome.
type inflight struct {
	transaction.Service

	mu      sync.Mutex
	closed  bool
	running sync.WaitGroup
}

func newInflight(service transaction.Service) *inflight {
	return &inflight{Service: service}
}

func (f *inflight) enter() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return &transaction.UnavailableError{Reason: "shutting down"}
	}
	f.running.Add(1)
	return nil
}

func (f *inflight) Create(ctx context.Context, req *transaction.Request) (*transaction.Transaction, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	defer f.running.Done()
	return f.Service.Create(ctx, req)
}

func (f *inflight) Execute(ctx context.Context, transactionID string) (*transaction.Transaction, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	defer f.running.Done()
	return f.Service.Execute(ctx, transactionID)
}

// drain refuses new writes and waits for the running ones
func (f *inflight) drain() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	f.running.Wait()
	return nil
}
