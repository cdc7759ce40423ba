package transaction_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/travisjeffery/go-dynaport"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	api "transactions/api/v1"
	"transactions/testutil"
	"transactions/transaction"
	"transactions/transaction/memory"
)

func TestServer(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, client api.TransactionsClient, ledger *testutil.Ledger){
		"create and read back":             testServerCreate,
		"ledger failure returns FAILED":    testServerLedgerFailure,
		"invalid request":                  testServerInvalid,
		"unknown transaction":              testServerNotFound,
		"execute completed transaction":    testServerExecuteTwice,
		"list by status and account":       testServerList,
		"events":                           testServerEvents,
	} {
		t.Run(scenario, func(t *testing.T) {
			client, ledger, teardown := setupServer(t)
			defer teardown()
			fn(t, client, ledger)
		})
	}
}

func setupServer(t *testing.T) (api.TransactionsClient, *testutil.Ledger, func()) {
	t.Helper()

	ledger := testutil.NewLedger()
	o, err := transaction.NewOrchestrator(&transaction.OrchestratorConfig{
		Transactions: memory.NewTransactionRepo(),
		Events:       memory.NewEventRepo(),
		Ledger:       ledger,
	})
	require.NoError(t, err)

	server, err := transaction.NewServer(&transaction.ServerConfig{Service: o})
	require.NoError(t, err)

	addr := fmt.Sprintf("127.0.0.1:%d", dynaport.Get(1)[0])
	ln, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	go func() {
		_ = server.Serve(ln)
	}()

	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	return api.NewTransactionsClient(conn), ledger, func() {
		_ = conn.Close()
		server.Stop()
	}
}

func testServerCreate(t *testing.T, client api.TransactionsClient, ledger *testutil.Ledger) {
	ctx := context.Background()
	resp, err := client.CreateTransaction(ctx, &api.TransactionRequest{
		FromAccount: "ACC1",
		Type:        "DEPOSIT",
		Amount:      amount("100.00"),
		Currency:    "USD",
	})
	require.NoError(t, err)
	created := resp.Transaction
	require.Equal(t, "COMPLETED", created.Status)
	require.NotNil(t, created.CompletedAt)
	require.True(t, amount("100").Equal(ledger.Balance("ACC1")))

	byID, err := client.GetTransaction(ctx, &api.GetTransactionRequest{Id: created.Id})
	require.NoError(t, err)
	require.Equal(t, created.TransactionId, byID.Transaction.TransactionId)

	byTxn, err := client.GetTransactionByTransactionId(ctx, &api.GetTransactionByTransactionIdRequest{
		TransactionId: created.TransactionId,
	})
	require.NoError(t, err)
	require.Equal(t, created.Id, byTxn.Transaction.Id)
	require.True(t, created.Amount.Equal(byTxn.Transaction.Amount))
}

func testServerLedgerFailure(t *testing.T, client api.TransactionsClient, ledger *testutil.Ledger) {
	ledger.Fail("ACC1", errors.New("Insufficient funds"))

	resp, err := client.CreateTransaction(context.Background(), &api.TransactionRequest{
		FromAccount: "ACC1",
		Type:        "WITHDRAWAL",
		Amount:      amount("10"),
	})
	require.NoError(t, err)
	require.Equal(t, "FAILED", resp.Transaction.Status)
	require.Equal(t, "Insufficient funds", resp.Transaction.FailureReason)
}

func testServerInvalid(t *testing.T, client api.TransactionsClient, _ *testutil.Ledger) {
	resp, err := client.CreateTransaction(context.Background(), &api.TransactionRequest{
		FromAccount: "ACC1",
		Type:        "TRANSFER",
		Amount:      amount("10"),
	})
	require.Nil(t, resp)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
	require.Contains(t, status.Convert(err).Message(), "toAccount")
}

func testServerNotFound(t *testing.T, client api.TransactionsClient, _ *testutil.Ledger) {
	ctx := context.Background()
	_, err := client.GetTransaction(ctx, &api.GetTransactionRequest{Id: 42})
	require.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.ExecuteTransaction(ctx, &api.ExecuteTransactionRequest{TransactionId: "missing"})
	require.Equal(t, codes.NotFound, status.Code(err))
}

func testServerExecuteTwice(t *testing.T, client api.TransactionsClient, _ *testutil.Ledger) {
	ctx := context.Background()
	resp, err := client.CreateTransaction(ctx, &api.TransactionRequest{
		FromAccount: "ACC1",
		Type:        "DEPOSIT",
		Amount:      amount("1"),
	})
	require.NoError(t, err)

	_, err = client.ExecuteTransaction(ctx, &api.ExecuteTransactionRequest{
		TransactionId: resp.Transaction.TransactionId,
	})
	require.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func testServerList(t *testing.T, client api.TransactionsClient, ledger *testutil.Ledger) {
	ctx := context.Background()
	ledger.Fail("ACC3", errors.New("Account not found"))
	for _, req := range []*api.TransactionRequest{
		{FromAccount: "ACC1", Type: "DEPOSIT", Amount: amount("5")},
		{FromAccount: "ACC1", ToAccount: "ACC2", Type: "TRANSFER", Amount: amount("2")},
		{FromAccount: "ACC3", Type: "WITHDRAWAL", Amount: amount("1")},
	} {
		_, err := client.CreateTransaction(ctx, req)
		require.NoError(t, err)
	}

	all, err := client.ListTransactions(ctx, &api.ListTransactionsRequest{})
	require.NoError(t, err)
	require.Len(t, all.Transactions, 3)

	failed, err := client.ListTransactions(ctx, &api.ListTransactionsRequest{Statuses: []string{"FAILED"}})
	require.NoError(t, err)
	require.Len(t, failed.Transactions, 1)
	require.Equal(t, "ACC3", failed.Transactions[0].FromAccount)

	acc2, err := client.ListAccountTransactions(ctx, &api.ListAccountTransactionsRequest{AccountNumber: "ACC2"})
	require.NoError(t, err)
	require.Len(t, acc2.Transactions, 1)
	require.Equal(t, "TRANSFER", acc2.Transactions[0].Type)

	_, err = client.ListAccountTransactions(ctx, &api.ListAccountTransactionsRequest{})
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func testServerEvents(t *testing.T, client api.TransactionsClient, _ *testutil.Ledger) {
	ctx := context.Background()
	resp, err := client.CreateTransaction(ctx, &api.TransactionRequest{
		FromAccount: "ACC1",
		Type:        "DEPOSIT",
		Amount:      amount("3"),
	})
	require.NoError(t, err)

	events, err := client.ListTransactionEvents(ctx, &api.ListTransactionEventsRequest{
		TransactionId: resp.Transaction.TransactionId,
	})
	require.NoError(t, err)
	require.Len(t, events.Events, 3)
	for i, e := range events.Events {
		require.Equal(t, int64(i+1), e.Version)
		require.Contains(t, e.EventData, resp.Transaction.TransactionId)
	}
	require.Equal(t, "COMPLETED", events.Events[2].EventType)
}
