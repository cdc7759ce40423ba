package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	api "transactions/api/v1"
	"transactions/internal/web"
	"transactions/testutil"
	"transactions/transaction"
	"transactions/transaction/memory"
)

type fixture struct {
	app    *fiber.App
	ledger *testutil.Ledger
}

func setupApp(t *testing.T) *fixture {
	t.Helper()
	ledger := testutil.NewLedger()
	o, err := transaction.NewOrchestrator(&transaction.OrchestratorConfig{
		Transactions: memory.NewTransactionRepo(),
		Events:       memory.NewEventRepo(),
		Ledger:       ledger,
	})
	require.NoError(t, err)

	app, err := web.NewApp(&web.Config{Service: o})
	require.NoError(t, err)
	return &fixture{app: app, ledger: ledger}
}

// do sends the request and decodes a JSON body into out when out is non-nil
func (f *fixture) do(t *testing.T, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *fixture) create(t *testing.T, req map[string]interface{}) *api.Transaction {
	t.Helper()
	var got api.Transaction
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/transactions", req, &got))
	return &got
}

func TestGateway(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, f *fixture){
		"health":                            testHealth,
		"create deposit":                    testCreateDeposit,
		"create rejects invalid requests":   testCreateInvalid,
		"create rejects malformed bodies":   testCreateMalformed,
		"ledger failure returns the record": testLedgerFailure,
		"get by id and transaction id":      testGet,
		"unknown transactions are 404":      testNotFound,
		"list and filter":                   testList,
		"list by account":                   testListByAccount,
		"events in version order":           testEvents,
		"execute twice conflicts":           testExecuteTwice,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, setupApp(t))
		})
	}
}

func testHealth(t *testing.T, f *fixture) {
	var body map[string]string
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", nil, &body))
	require.Equal(t, "UP", body["status"])
}

func testCreateDeposit(t *testing.T, f *fixture) {
	got := f.create(t, map[string]interface{}{
		"fromAccount": "acc-1",
		"type":        "DEPOSIT",
		"amount":      "25.10",
	})
	require.Equal(t, "COMPLETED", got.Status)
	require.Equal(t, "USD", got.Currency)
	require.NotEmpty(t, got.TransactionId)
	require.NotNil(t, got.CompletedAt)
	require.True(t, decimal.RequireFromString("25.10").Equal(f.ledger.Balance("acc-1")))
}

func testCreateInvalid(t *testing.T, f *fixture) {
	var body web.ErrorResponse
	status := f.do(t, http.MethodPost, "/transactions", map[string]interface{}{
		"fromAccount": "acc-1",
		"type":        "TRANSFER",
		"amount":      "-1",
	}, &body)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "400", body.Code)
	require.Equal(t, "validation_failed", body.Title)

	fields := map[string]bool{}
	for _, fe := range body.Fields {
		fields[fe.Field] = true
	}
	require.True(t, fields["amount"])
	require.True(t, fields["toAccount"])

	var all []*api.Transaction
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/transactions", nil, &all))
	require.Empty(t, all)
}

func testCreateMalformed(t *testing.T, f *fixture) {
	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func testLedgerFailure(t *testing.T, f *fixture) {
	f.ledger.Fail("acc-1", errors.New("insufficient funds"))
	got := f.create(t, map[string]interface{}{
		"fromAccount": "acc-1",
		"type":        "WITHDRAWAL",
		"amount":      "10",
	})
	require.Equal(t, "FAILED", got.Status)
	require.Equal(t, "insufficient funds", got.FailureReason)
}

func testGet(t *testing.T, f *fixture) {
	created := f.create(t, map[string]interface{}{"fromAccount": "acc-1", "type": "DEPOSIT", "amount": "5"})

	var byID api.Transaction
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/transactions/"+strconv.FormatInt(created.Id, 10), nil, &byID))
	require.Equal(t, created.TransactionId, byID.TransactionId)

	var byTxn api.Transaction
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/transactions/txn/"+created.TransactionId, nil, &byTxn))
	require.Equal(t, created.Id, byTxn.Id)

	var body web.ErrorResponse
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/transactions/abc", nil, &body))
}

func testNotFound(t *testing.T, f *fixture) {
	var body web.ErrorResponse
	require.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/transactions/42", nil, &body))
	require.Equal(t, "not_found", body.Title)

	require.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/transactions/txn/missing", nil, &body))
	require.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/transactions/missing/execute", nil, &body))
}

func testList(t *testing.T, f *fixture) {
	f.create(t, map[string]interface{}{"fromAccount": "acc-1", "type": "DEPOSIT", "amount": "5"})
	f.create(t, map[string]interface{}{"fromAccount": "acc-1", "type": "DEPOSIT", "amount": "50"})
	f.ledger.Fail("acc-2", errors.New("account inactive"))
	f.create(t, map[string]interface{}{"fromAccount": "acc-2", "type": "WITHDRAWAL", "amount": "7"})

	for query, want := range map[string]int{
		"":                             3,
		"?status=completed":            2,
		"?status=FAILED":               1,
		"?type=DEPOSIT,WITHDRAWAL":     3,
		"?type=TRANSFER":               0,
		"?minAmount=6":                 2,
		"?minAmount=6&maxAmount=10":    1,
		"?from=2000-01-01T00:00:00Z":   3,
		"?to=2000-01-01T00:00:00Z":     0,
		"?account=acc-2&status=FAILED": 1,
	} {
		var got []*api.Transaction
		require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/transactions"+query, nil, &got), query)
		require.Len(t, got, want, query)
	}

	var body web.ErrorResponse
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/transactions?minAmount=lots", nil, &body))
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/transactions?from=yesterday", nil, &body))
}

func testListByAccount(t *testing.T, f *fixture) {
	f.create(t, map[string]interface{}{"fromAccount": "acc-1", "type": "DEPOSIT", "amount": "5"})
	f.create(t, map[string]interface{}{"fromAccount": "acc-1", "toAccount": "acc-2", "type": "TRANSFER", "amount": "2"})
	f.create(t, map[string]interface{}{"fromAccount": "acc-3", "type": "DEPOSIT", "amount": "1"})

	var got []*api.Transaction
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/transactions/account/acc-2", nil, &got))
	require.Len(t, got, 1)
	require.Equal(t, "TRANSFER", got[0].Type)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/transactions/account/acc-1", nil, &got))
	require.Len(t, got, 2)
}

func testEvents(t *testing.T, f *fixture) {
	created := f.create(t, map[string]interface{}{"fromAccount": "acc-1", "type": "DEPOSIT", "amount": "5"})

	var events []*api.TransactionEvent
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/transactions/"+created.TransactionId+"/events", nil, &events))
	require.Len(t, events, 3)
	for i, want := range []string{"CREATED", "PROCESSING", "COMPLETED"} {
		require.Equal(t, want, events[i].EventType)
		require.Equal(t, int64(i+1), events[i].Version)
	}

	var snapshot api.Transaction
	require.NoError(t, json.Unmarshal([]byte(events[2].EventData), &snapshot))
	require.Equal(t, "COMPLETED", snapshot.Status)
}

func testExecuteTwice(t *testing.T, f *fixture) {
	created := f.create(t, map[string]interface{}{"fromAccount": "acc-1", "type": "DEPOSIT", "amount": "5"})

	var body web.ErrorResponse
	status := f.do(t, http.MethodPost, "/transactions/"+created.TransactionId+"/execute", nil, &body)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "invalid_state", body.Title)
	require.Len(t, f.ledger.Calls(), 1)
}

type stoppingService struct {
	transaction.Service
}

func (stoppingService) Create(context.Context, *transaction.Request) (*transaction.Transaction, error) {
	return nil, &transaction.UnavailableError{Reason: "shutting down"}
}

func TestGatewayUnavailable(t *testing.T) {
	app, err := web.NewApp(&web.Config{Service: stoppingService{}})
	require.NoError(t, err)
	f := &fixture{app: app}

	var body web.ErrorResponse
	status := f.do(t, http.MethodPost, "/transactions", map[string]interface{}{
		"fromAccount": "acc-1",
		"type":        "DEPOSIT",
		"amount":      "1",
	}, &body)
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, "unavailable", body.Title)
}
