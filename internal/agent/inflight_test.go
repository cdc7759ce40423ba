package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"transactions/transaction"
)

type blockingService struct {
	transaction.Service
	entered chan struct{}
	release chan struct{}
}

func (s *blockingService) Execute(ctx context.Context, transactionID string) (*transaction.Transaction, error) {
	close(s.entered)
	<-s.release
	return &transaction.Transaction{TransactionID: transactionID, Status: transaction.Completed}, nil
}

func TestInflightDrain(t *testing.T) {
	service := &blockingService{entered: make(chan struct{}), release: make(chan struct{})}
	f := newInflight(service)

	executed := make(chan error, 1)
	go func() {
		_, err := f.Execute(context.Background(), "t-1")
		executed <- err
	}()
	<-service.entered

	drained := make(chan struct{})
	go func() {
		_ = f.drain()
		close(drained)
	}()

	// drain holds until the running execution returns
	require.Never(t, func() bool {
		select {
		case <-drained:
			return true
		default:
			return false
		}
	}, 100*time.Millisecond, 10*time.Millisecond)

	// and nothing new gets in meanwhile
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.closed
	}, time.Second, 10*time.Millisecond)
	_, err := f.Create(context.Background(), &transaction.Request{})
	var unavailable *transaction.UnavailableError
	require.ErrorAs(t, err, &unavailable)

	close(service.release)
	require.NoError(t, <-executed)
	<-drained
}
