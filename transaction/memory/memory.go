// Package memory keeps transactions and their events in process memory.
// Contents are lost on restart; it backs tests and single-process dev runs.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"transactions/transaction"
	"transactions/transaction/options"
)

var (
	_ transaction.TransactionRepo = (*TransactionRepo)(nil)
	_ transaction.EventRepo       = (*EventRepo)(nil)
)

type TransactionRepo struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*transaction.Transaction
	// transaction id -> internal id
	index map[string]int64
}

func NewTransactionRepo() *TransactionRepo {
	return &TransactionRepo{
		byID:  make(map[int64]*transaction.Transaction),
		index: make(map[string]int64),
	}
}

func (r *TransactionRepo) Put(_ context.Context, t *transaction.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.index[t.TransactionID]; ok {
		if stored := r.byID[id]; !transaction.CanTransition(stored.Status, t.Status) {
			return &transaction.StateError{TransactionID: t.TransactionID, From: stored.Status, To: t.Status}
		}
		t.ID = id
	} else {
		r.nextID++
		t.ID = r.nextID
		r.index[t.TransactionID] = t.ID
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	r.byID[t.ID] = t.Clone()

	return nil
}

func (r *TransactionRepo) FindByID(_ context.Context, id int64) (*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok {
		return nil, &transaction.NotFoundError{Key: strconv.FormatInt(id, 10)}
	}
	return t.Clone(), nil
}

func (r *TransactionRepo) FindByTransactionID(_ context.Context, transactionID string) (*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.index[transactionID]
	if !ok {
		return nil, &transaction.NotFoundError{Key: transactionID}
	}
	return r.byID[id].Clone(), nil
}

func (r *TransactionRepo) FindByAccount(ctx context.Context, account string) ([]*transaction.Transaction, error) {
	return r.Find(ctx, options.NewTransactionOptions().SetAccount(account))
}

// Find returns copies of the matching transactions ordered by id
func (r *TransactionRepo) Find(_ context.Context, opts ...*options.TransactionOptions) ([]*transaction.Transaction, error) {
	opt := options.Merge(opts...)

	r.mu.RLock()
	result := []*transaction.Transaction{}
	for _, t := range r.byID {
		if Matches(t, opt) {
			result = append(result, t.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Matches reports whether t satisfies every filter set in opt
func Matches(t *transaction.Transaction, opt *options.TransactionOptions) bool {
	if len(opt.IDs) > 0 && !containsInt(opt.IDs, t.ID) {
		return false
	}
	if len(opt.TransactionIDs) > 0 && !containsString(opt.TransactionIDs, t.TransactionID) {
		return false
	}
	if opt.Account != "" && !t.Involves(opt.Account) {
		return false
	}
	if len(opt.Statuses) > 0 && !containsString(opt.Statuses, string(t.Status)) {
		return false
	}
	if len(opt.Types) > 0 && !containsString(opt.Types, string(t.Type)) {
		return false
	}
	if opt.Amount != nil && !opt.Amount.Contains(t.Amount) {
		return false
	}
	if opt.CreatedAt != nil && !opt.CreatedAt.Contains(t.CreatedAt) {
		return false
	}
	return true
}

func containsInt(values []int64, v int64) bool {
	for _, each := range values {
		if each == v {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, each := range values {
		if each == v {
			return true
		}
	}
	return false
}

type EventRepo struct {
	mu     sync.Mutex
	nextID int64
	events map[string][]*transaction.Event
}

func NewEventRepo() *EventRepo {
	return &EventRepo{events: make(map[string][]*transaction.Event)}
}

// Append assigns the next version under the repo lock
func (r *EventRepo) Append(_ context.Context, transactionID, eventType string, snapshot []byte) (*transaction.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	data := make([]byte, len(snapshot))
	copy(data, snapshot)
	event := &transaction.Event{
		ID:            r.nextID,
		TransactionID: transactionID,
		EventType:     eventType,
		Data:          data,
		Version:       int64(len(r.events[transactionID])) + 1,
		CreatedAt:     time.Now().UTC(),
	}
	r.events[transactionID] = append(r.events[transactionID], event)

	out := *event
	return &out, nil
}

func (r *EventRepo) ListByTransaction(_ context.Context, transactionID string) ([]*transaction.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := make([]*transaction.Event, 0, len(r.events[transactionID]))
	for _, e := range r.events[transactionID] {
		out := *e
		events = append(events, &out)
	}
	return events, nil
}
