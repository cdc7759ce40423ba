// Package storetest holds the behaviour every TransactionRepo and EventRepo must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"transactions/transaction"
	"transactions/transaction/options"
)

// Factory returns empty stores for one test along with a cleanup func
type Factory func() (transaction.TransactionRepo, transaction.EventRepo, func())

type Suite struct {
	suite.Suite
	*require.Assertions // default to require behavior

	factory      Factory
	cleanup      func()
	repo         transaction.TransactionRepo
	events       transaction.EventRepo
	transactions []*transaction.Transaction
}

func New(factory Factory) *Suite {
	return &Suite{factory: factory}
}

func (s *Suite) SetupTest() {
	s.Assertions = s.Require()
	s.repo, s.events, s.cleanup = s.factory()
	s.createTransactions(10)
}

func (s *Suite) TearDownTest() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// alternating deposits and transfers of 100, 200, ... 1000 between acc-0..acc-4
func (s *Suite) createTransactions(length int) {
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	s.transactions = nil
	for i := 1; i <= length; i++ {
		t := &transaction.Transaction{
			TransactionID: uuid.NewString(),
			FromAccount:   fmt.Sprintf("acc-%d", i%5),
			Type:          transaction.Deposit,
			Amount:        decimal.NewFromInt32(int32(i * 100)),
			Currency:      "USD",
			Status:        transaction.Pending,
			Description:   fmt.Sprintf("transaction %d", i),
			CreatedAt:     created.Add(time.Duration(i) * time.Minute),
		}
		if i%2 == 0 {
			t.Type = transaction.Transfer
			t.ToAccount = fmt.Sprintf("acc-%d", (i+1)%5)
		}
		s.NoError(s.repo.Put(ctx, t))
		s.NotZero(t.ID)
		s.transactions = append(s.transactions, t)
	}
}

func (s *Suite) equal(want, got *transaction.Transaction) {
	s.Equal(want.ID, got.ID)
	s.Equal(want.TransactionID, got.TransactionID)
	s.Equal(want.FromAccount, got.FromAccount)
	s.Equal(want.ToAccount, got.ToAccount)
	s.Equal(want.Type, got.Type)
	s.True(want.Amount.Equal(got.Amount), "amount %s != %s", want.Amount, got.Amount)
	s.Equal(want.Currency, got.Currency)
	s.Equal(want.Status, got.Status)
	s.Equal(want.Description, got.Description)
	s.Equal(want.FailureReason, got.FailureReason)
	s.WithinDuration(want.CreatedAt, got.CreatedAt, time.Millisecond)
	if want.CompletedAt == nil {
		s.Nil(got.CompletedAt)
	} else {
		s.NotNil(got.CompletedAt)
		s.WithinDuration(*want.CompletedAt, *got.CompletedAt, time.Millisecond)
	}
}

func (s *Suite) ids(ts []*transaction.Transaction) []string {
	var ids []string
	for _, t := range ts {
		ids = append(ids, t.TransactionID)
	}
	return ids
}

func (s *Suite) TestFindByID() {
	want := s.transactions[1]
	got, err := s.repo.FindByID(context.Background(), want.ID)
	s.NoError(err)
	s.equal(want, got)
}

func (s *Suite) TestFindByTransactionID() {
	want := s.transactions[3]
	got, err := s.repo.FindByTransactionID(context.Background(), want.TransactionID)
	s.NoError(err)
	s.equal(want, got)
}

func (s *Suite) TestNotFound() {
	ctx := context.Background()

	_, err := s.repo.FindByID(ctx, 1<<40)
	s.True(transaction.IsNotFound(err))

	_, err = s.repo.FindByTransactionID(ctx, uuid.NewString())
	s.True(transaction.IsNotFound(err))
}

func (s *Suite) TestPutReplacesState() {
	ctx := context.Background()
	want := s.transactions[0]

	s.NoError(want.Transition(transaction.Processing, time.Now()))
	s.NoError(s.repo.Put(ctx, want))
	s.NoError(want.Transition(transaction.Failed, time.Now().Truncate(time.Microsecond)))
	want.FailureReason = "Insufficient funds"
	id := want.ID
	s.NoError(s.repo.Put(ctx, want))
	s.Equal(id, want.ID)

	got, err := s.repo.FindByTransactionID(ctx, want.TransactionID)
	s.NoError(err)
	s.equal(want, got)

	all, err := s.repo.Find(ctx)
	s.NoError(err)
	s.Len(all, len(s.transactions))
}

func (s *Suite) TestPutRejectsStaleTransition() {
	ctx := context.Background()
	first := s.transactions[0]
	stale := first.Clone()

	s.NoError(first.Transition(transaction.Processing, time.Now()))
	s.NoError(s.repo.Put(ctx, first))

	// a second writer that read the row before the first one moved it
	s.NoError(stale.Transition(transaction.Processing, time.Now()))
	err := s.repo.Put(ctx, stale)
	var stateErr *transaction.StateError
	s.ErrorAs(err, &stateErr)
	s.Equal(transaction.Processing, stateErr.From)
	s.Equal(transaction.Processing, stateErr.To)

	// terminal rows stay terminal
	s.NoError(first.Transition(transaction.Completed, time.Now()))
	s.NoError(s.repo.Put(ctx, first))
	back := first.Clone()
	back.Status = transaction.Pending
	back.CompletedAt = nil
	s.ErrorAs(s.repo.Put(ctx, back), &stateErr)
	s.Equal(transaction.Completed, stateErr.From)

	got, err := s.repo.FindByTransactionID(ctx, first.TransactionID)
	s.NoError(err)
	s.Equal(transaction.Completed, got.Status)
	s.NotNil(got.CompletedAt)
}

func (s *Suite) TestFindAll() {
	got, err := s.repo.Find(context.Background())
	s.NoError(err)
	s.Equal(s.ids(s.transactions), s.ids(got))
}

func (s *Suite) TestFindByAccount() {
	ctx := context.Background()
	account := "acc-2"

	var want []*transaction.Transaction
	for _, t := range s.transactions {
		if t.Involves(account) {
			want = append(want, t)
		}
	}

	got, err := s.repo.FindByAccount(ctx, account)
	s.NoError(err)
	s.Equal(s.ids(want), s.ids(got))

	got, err = s.repo.FindByAccount(ctx, "nobody")
	s.NoError(err)
	s.Empty(got)
}

func (s *Suite) TestFindByIDs() {
	num := 2
	var ids []int64
	for i := 0; i < num; i++ {
		ids = append(ids, s.transactions[i].ID)
	}

	got, err := s.repo.Find(context.Background(), options.NewTransactionOptions().SetIDs(ids...))
	s.NoError(err)
	s.Equal(s.ids(s.transactions[:num]), s.ids(got))
}

func (s *Suite) TestFindByStatusAndType() {
	ctx := context.Background()
	done := s.transactions[1]
	s.NoError(done.Transition(transaction.Processing, time.Now()))
	s.NoError(done.Transition(transaction.Completed, time.Now()))
	s.NoError(s.repo.Put(ctx, done))

	got, err := s.repo.Find(ctx, options.NewTransactionOptions().SetStatuses(string(transaction.Completed)))
	s.NoError(err)
	s.Equal([]string{done.TransactionID}, s.ids(got))

	got, err = s.repo.Find(ctx,
		options.NewTransactionOptions().SetTypes(string(transaction.Transfer)),
		options.NewTransactionOptions().SetStatuses(string(transaction.Pending)),
	)
	s.NoError(err)
	for _, t := range got {
		s.Equal(transaction.Transfer, t.Type)
		s.Equal(transaction.Pending, t.Status)
	}
	s.Len(got, len(s.transactions)/2-1)
}

func (s *Suite) TestFindByAmountRange() {
	cases := map[string]struct {
		low, high *decimal.Decimal
		want      int
	}{
		"bounded":    {low: dec(200), high: dec(800), want: 7},
		"upper only": {high: dec(300), want: 3},
		"lower only": {low: dec(950), want: 1},
	}
	for name, tc := range cases {
		got, err := s.repo.Find(context.Background(),
			options.NewTransactionOptions().SetAmountRange(&options.DecimalRange{Low: tc.low, High: tc.high}),
		)
		s.NoError(err, name)
		s.Len(got, tc.want, name)
	}
}

func (s *Suite) TestFindByTimeRange() {
	low := s.transactions[2].CreatedAt
	high := s.transactions[4].CreatedAt

	got, err := s.repo.Find(context.Background(),
		options.NewTransactionOptions().SetTimeRange(&options.TimeRange{Low: &low, High: &high}),
	)
	s.NoError(err)
	s.Equal(s.ids(s.transactions[2:5]), s.ids(got))
}

func (s *Suite) TestAppendContiguousVersions() {
	ctx := context.Background()
	id := s.transactions[0].TransactionID
	other := s.transactions[1].TransactionID

	types := []string{transaction.EventCreated, transaction.EventProcessing, transaction.EventCompleted}
	for i, eventType := range types {
		e, err := s.events.Append(ctx, id, eventType, []byte(fmt.Sprintf(`{"step":%d}`, i)))
		s.NoError(err)
		s.Equal(int64(i+1), e.Version)
		s.NotZero(e.ID)
	}

	e, err := s.events.Append(ctx, other, transaction.EventCreated, []byte(`{}`))
	s.NoError(err)
	s.Equal(int64(1), e.Version)

	events, err := s.events.ListByTransaction(ctx, id)
	s.NoError(err)
	s.Len(events, len(types))
	for i, e := range events {
		s.Equal(int64(i+1), e.Version)
		s.Equal(types[i], e.EventType)
		s.Equal(id, e.TransactionID)
		s.JSONEq(fmt.Sprintf(`{"step":%d}`, i), string(e.Data))
	}
}

func (s *Suite) TestConcurrentAppends() {
	ctx := context.Background()
	id := s.transactions[0].TransactionID
	n := 20

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.events.Append(ctx, id, transaction.EventProcessing, []byte(`{}`))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	events, err := s.events.ListByTransaction(ctx, id)
	s.NoError(err)
	s.Len(events, n)
	for i, e := range events {
		s.Equal(int64(i+1), e.Version)
	}
}

func (s *Suite) TestListUnknownTransaction() {
	events, err := s.events.ListByTransaction(context.Background(), uuid.NewString())
	s.NoError(err)
	s.Empty(events)
}

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}
