package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	api "transactions/api/v1"
)

var _ Client = (*GRPCClient)(nil)

type Config struct {
	// bounds every call; 10s when zero
	Timeout time.Duration
	Breaker BreakerConfig
	Logger  *zap.Logger
}

// BreakerConfig tunes the circuit breaker guarding the ledger
type BreakerConfig struct {
	// consecutive transport failures that open the breaker; 5 when zero
	ConsecutiveFailures uint32
	// how long the breaker stays open before probing; 30s when zero
	OpenTimeout time.Duration
	// probes allowed while half-open; 1 when zero
	MaxRequests uint32
}

// GRPCClient calls the ledger's AdjustBalance RPC.
//
// Only transport-level failures count against the breaker; a ledger that
// answers "account not found" is healthy.
type GRPCClient struct {
	client  api.LedgerClient
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewGRPCClient(client api.LedgerClient, config Config) *GRPCClient {
	c := &GRPCClient{
		client:  client,
		timeout: config.Timeout,
		logger:  config.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	failures := config.Breaker.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	openTimeout := config.Breaker.OpenTimeout
	if openTimeout == 0 {
		openTimeout = 30 * time.Second
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ledger",
		MaxRequests: config.Breaker.MaxRequests,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return c
}

func (c *GRPCClient) AdjustBalance(ctx context.Context, account string, amount decimal.Decimal) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rejection, err := c.breaker.Execute(func() (interface{}, error) {
		_, err := c.client.AdjustBalance(ctx, &api.AdjustBalanceRequest{
			AccountNumber: account,
			Amount:        amount,
		})
		if err == nil {
			return nil, nil
		}
		mapped := mapError(err)
		if errors.Is(mapped, ErrUnavailable) {
			return nil, mapped
		}
		return mapped, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &Error{Kind: ErrUnavailable, Message: fmt.Sprintf("ledger unavailable: %s", err)}
	}
	if err != nil {
		return err
	}
	if rejection != nil {
		return rejection.(error)
	}

	c.logger.Debug("balance adjusted",
		zap.String("account", account),
		zap.String("amount", amount.String()),
	)
	return nil
}

// State reports the breaker's state, "closed", "half-open" or "open"
func (c *GRPCClient) State() string {
	return c.breaker.State().String()
}

func mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return &Error{Kind: ErrUnavailable, Message: err.Error()}
		}
		return &Error{Kind: ErrRejected, Message: err.Error()}
	}

	switch st.Code() {
	case codes.NotFound:
		return &Error{Kind: ErrAccountNotFound, Message: st.Message()}
	case codes.FailedPrecondition:
		return &Error{Kind: ErrAccountInactive, Message: st.Message()}
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.ResourceExhausted:
		return &Error{Kind: ErrUnavailable, Message: st.Message()}
	default:
		return &Error{Kind: ErrRejected, Message: st.Message()}
	}
}
