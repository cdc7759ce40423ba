package transaction_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"transactions/transaction"
)

func TestTransition(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	cases := map[string]struct {
		from, to transaction.Status
		ok       bool
	}{
		"pending to processing":    {transaction.Pending, transaction.Processing, true},
		"processing to completed":  {transaction.Processing, transaction.Completed, true},
		"processing to failed":     {transaction.Processing, transaction.Failed, true},
		"pending to completed":     {transaction.Pending, transaction.Completed, false},
		"completed to failed":      {transaction.Completed, transaction.Failed, false},
		"failed to processing":     {transaction.Failed, transaction.Processing, false},
		"completed to reversed":    {transaction.Completed, transaction.Reversed, false},
		"processing to processing": {transaction.Processing, transaction.Processing, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			tx := &transaction.Transaction{TransactionID: "t-1", Status: tc.from}
			err := tx.Transition(tc.to, now)
			if !tc.ok {
				var stateErr *transaction.StateError
				require.True(t, errors.As(err, &stateErr))
				require.Equal(t, tc.from, tx.Status)
				require.Nil(t, tx.CompletedAt)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.to, tx.Status)
			if tc.to.Terminal() {
				require.NotNil(t, tx.CompletedAt)
				require.True(t, now.Equal(*tx.CompletedAt))
			} else {
				require.Nil(t, tx.CompletedAt)
			}
		})
	}
}

func TestRequestNormalize(t *testing.T) {
	req := &transaction.Request{
		FromAccount: "  ACC1 ",
		Type:        "deposit",
		Amount:      amount("1.5"),
	}
	require.NoError(t, req.Validate())
	require.Equal(t, "ACC1", req.FromAccount)
	require.Equal(t, transaction.Deposit, req.Type)
	require.Equal(t, transaction.DefaultCurrency, req.Currency)

	yen := &transaction.Request{FromAccount: "ACC1", Type: transaction.Deposit, Amount: amount("100.5"), Currency: "JPY"}
	require.Error(t, yen.Validate())
	yen.Amount = amount("100")
	require.NoError(t, yen.Validate())
}

func TestTransitionGuard(t *testing.T) {
	require.Equal(t,
		"((t.status = 'PENDING' AND x.status = 'PROCESSING') OR "+
			"(t.status = 'PROCESSING' AND x.status = 'COMPLETED') OR "+
			"(t.status = 'PROCESSING' AND x.status = 'FAILED'))",
		transaction.TransitionGuard("t.status", "x.status"),
	)
	require.True(t, transaction.CanTransition(transaction.Pending, transaction.Processing))
	require.False(t, transaction.CanTransition(transaction.Pending, transaction.Pending))
}
