package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/travisjeffery/go-dynaport"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	api "transactions/api/v1"
	"transactions/ledger"
	"transactions/testutil"
)

func TestGRPCClient(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, fake *testutil.Ledger, conn *grpc.ClientConn){
		"adjusts the balance":             testAdjust,
		"maps ledger errors":              testMapErrors,
		"timeout is unavailable":          testTimeout,
		"transport failures open breaker": testBreakerOpens,
		"rejections keep breaker closed":  testRejectionsDoNotTrip,
	} {
		t.Run(scenario, func(t *testing.T) {
			fake := testutil.NewLedger()
			server := grpc.NewServer()
			api.RegisterLedgerServer(server, fake.Server())

			addr := fmt.Sprintf("127.0.0.1:%d", dynaport.Get(1)[0])
			ln, err := net.Listen("tcp", addr)
			require.NoError(t, err)
			go func() {
				_ = server.Serve(ln)
			}()
			defer server.Stop()

			conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			require.NoError(t, err)
			defer conn.Close()

			fn(t, fake, conn)
		})
	}
}

func testAdjust(t *testing.T, fake *testutil.Ledger, conn *grpc.ClientConn) {
	client := ledger.NewGRPCClient(api.NewLedgerClient(conn), ledger.Config{})
	ctx := context.Background()

	require.NoError(t, client.AdjustBalance(ctx, "ACC1", decimal.RequireFromString("100.25")))
	require.NoError(t, client.AdjustBalance(ctx, "ACC1", decimal.RequireFromString("-0.25")))
	require.True(t, decimal.NewFromInt(100).Equal(fake.Balance("ACC1")))
	require.Equal(t, "closed", client.State())
}

func testMapErrors(t *testing.T, fake *testutil.Ledger, conn *grpc.ClientConn) {
	client := ledger.NewGRPCClient(api.NewLedgerClient(conn), ledger.Config{})
	cases := map[string]struct {
		err  error
		kind error
	}{
		"ACC-missing":  {status.Error(codes.NotFound, "Account not found with number: ACC-missing"), ledger.ErrAccountNotFound},
		"ACC-closed":   {status.Error(codes.FailedPrecondition, "Account is not active"), ledger.ErrAccountInactive},
		"ACC-down":     {status.Error(codes.Unavailable, "maintenance"), ledger.ErrUnavailable},
		"ACC-overdraw": {status.Error(codes.InvalidArgument, "Insufficient funds"), ledger.ErrRejected},
	}
	for account, tc := range cases {
		fake.Fail(account, tc.err)
		err := client.AdjustBalance(context.Background(), account, decimal.NewFromInt(-1))
		require.True(t, errors.Is(err, tc.kind), account)
		require.Equal(t, status.Convert(tc.err).Message(), err.Error(), account)
	}
}

func testTimeout(t *testing.T, fake *testutil.Ledger, conn *grpc.ClientConn) {
	client := ledger.NewGRPCClient(api.NewLedgerClient(conn), ledger.Config{Timeout: 50 * time.Millisecond})
	fake.OnAdjust = func(ctx context.Context, _ string, _ decimal.Decimal) error {
		<-ctx.Done()
		return ctx.Err()
	}

	err := client.AdjustBalance(context.Background(), "ACC1", decimal.NewFromInt(1))
	require.True(t, errors.Is(err, ledger.ErrUnavailable))
}

func testBreakerOpens(t *testing.T, fake *testutil.Ledger, conn *grpc.ClientConn) {
	client := ledger.NewGRPCClient(api.NewLedgerClient(conn), ledger.Config{
		Breaker: ledger.BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute},
	})
	fake.Fail("ACC1", status.Error(codes.Unavailable, "connection refused"))

	for i := 0; i < 2; i++ {
		err := client.AdjustBalance(context.Background(), "ACC1", decimal.NewFromInt(1))
		require.True(t, errors.Is(err, ledger.ErrUnavailable))
	}
	require.Equal(t, "open", client.State())

	err := client.AdjustBalance(context.Background(), "ACC1", decimal.NewFromInt(1))
	require.True(t, errors.Is(err, ledger.ErrUnavailable))
	require.Len(t, fake.Calls(), 2)
}

func testRejectionsDoNotTrip(t *testing.T, fake *testutil.Ledger, conn *grpc.ClientConn) {
	client := ledger.NewGRPCClient(api.NewLedgerClient(conn), ledger.Config{
		Breaker: ledger.BreakerConfig{ConsecutiveFailures: 1},
	})
	fake.Fail("ACC1", status.Error(codes.NotFound, "Account not found"))

	for i := 0; i < 3; i++ {
		err := client.AdjustBalance(context.Background(), "ACC1", decimal.NewFromInt(1))
		require.True(t, errors.Is(err, ledger.ErrAccountNotFound))
	}
	require.Equal(t, "closed", client.State())
	require.Len(t, fake.Calls(), 3)
}
