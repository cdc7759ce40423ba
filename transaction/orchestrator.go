package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"transactions/transaction/options"
)

// DefaultLedgerTimeout bounds each balance adjustment when the config leaves it unset
const DefaultLedgerTimeout = 10 * time.Second

// Ledger applies signed balance changes to accounts owned by another service
type Ledger interface {
	AdjustBalance(ctx context.Context, account string, amount decimal.Decimal) error
}

type OrchestratorConfig struct {
	Transactions TransactionRepo
	Events       EventRepo
	Ledger       Ledger
	// optional; events are dropped when nil
	Publisher Publisher
	Logger    *zap.Logger
	Tracer    trace.Tracer
	// per call; DefaultLedgerTimeout when zero
	LedgerTimeout time.Duration
	Clock         func() time.Time
}

// Orchestrator drives a transaction from PENDING to a terminal status,
// recording every step in both stores.
type Orchestrator struct {
	transactions  TransactionRepo
	events        EventRepo
	ledger        Ledger
	publisher     Publisher
	logger        *zap.Logger
	tracer        trace.Tracer
	ledgerTimeout time.Duration
	clock         func() time.Time

	locks *keyedMutex
}

func NewOrchestrator(config *OrchestratorConfig) (*Orchestrator, error) {
	if config.Transactions == nil || config.Events == nil {
		return nil, errors.New("orchestrator: transaction and event repos are required")
	}
	if config.Ledger == nil {
		return nil, errors.New("orchestrator: ledger is required")
	}

	o := &Orchestrator{
		transactions:  config.Transactions,
		events:        config.Events,
		ledger:        config.Ledger,
		publisher:     config.Publisher,
		logger:        config.Logger,
		tracer:        config.Tracer,
		ledgerTimeout: config.LedgerTimeout,
		clock:         config.Clock,
		locks:         newKeyedMutex(),
	}
	if o.publisher == nil {
		o.publisher = NopPublisher{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer("transactions/transaction")
	}
	if o.ledgerTimeout <= 0 {
		o.ledgerTimeout = DefaultLedgerTimeout
	}
	if o.clock == nil {
		o.clock = time.Now
	}

	return o, nil
}

// Postgres keeps microseconds, so timestamps are truncated before they are stored
func (o *Orchestrator) now() time.Time {
	return o.clock().UTC().Truncate(time.Microsecond)
}

// Create validates the request, persists a PENDING transaction and executes it.
//
// A ledger failure returns the FAILED transaction together with the *LedgerError.
func (o *Orchestrator) Create(ctx context.Context, req *Request) (*Transaction, error) {
	ctx, span := o.tracer.Start(ctx, "transaction.create")
	defer span.End()

	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	t := &Transaction{
		TransactionID: uuid.NewString(),
		FromAccount:   req.FromAccount,
		ToAccount:     req.ToAccount,
		Type:          req.Type,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Status:        Pending,
		Description:   req.Description,
		CreatedAt:     o.now(),
	}
	span.SetAttributes(attributes(t)...)

	if err := o.record(ctx, t, EventCreated); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persisting transaction")
		return nil, err
	}
	o.logger.Info("transaction created",
		zap.String("transaction_id", t.TransactionID),
		zap.String("type", string(t.Type)),
		zap.String("amount", t.Amount.String()),
		zap.String("currency", t.Currency),
	)

	if err := o.publisher.PublishCreated(ctx, NewCreatedEvent(t, o.now())); err != nil {
		o.logger.Warn("publishing created event",
			zap.String("transaction_id", t.TransactionID),
			zap.Error(err),
		)
	}

	return o.Execute(ctx, t.TransactionID)
}

// Execute applies a PENDING transaction to the ledger.
//
// It ignores cancellation of ctx so a started execution always reaches COMPLETED or FAILED.
// Transactions that are not PENDING are rejected with a *StateError and left untouched.
func (o *Orchestrator) Execute(ctx context.Context, transactionID string) (*Transaction, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := o.tracer.Start(ctx, "transaction.execute",
		trace.WithAttributes(attribute.String("transaction.id", transactionID)),
	)
	defer span.End()

	unlock := o.locks.Lock(transactionID)
	defer unlock()

	t, err := o.transactions.FindByTransactionID(ctx, transactionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attributes(t)...)

	if err = t.Transition(Processing, o.now()); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err = o.record(ctx, t, EventProcessing); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if ledgerErr := o.apply(ctx, t); ledgerErr != nil {
		return o.fail(ctx, span, t, ledgerErr)
	}

	if err = t.Transition(Completed, o.now()); err != nil {
		return nil, err
	}
	if err = o.record(ctx, t, EventCompleted); err != nil {
		span.RecordError(err)
		return nil, err
	}
	o.logger.Info("transaction completed", zap.String("transaction_id", t.TransactionID))

	if err = o.publisher.PublishCompleted(ctx, NewCompletedEvent(t, o.now())); err != nil {
		o.logger.Warn("publishing completed event",
			zap.String("transaction_id", t.TransactionID),
			zap.Error(err),
		)
	}

	return t, nil
}

func (o *Orchestrator) fail(ctx context.Context, span trace.Span, t *Transaction, ledgerErr *LedgerError) (*Transaction, error) {
	span.RecordError(ledgerErr)
	span.SetStatus(codes.Error, "ledger failure")

	if err := t.Transition(Failed, o.now()); err != nil {
		return nil, err
	}
	t.FailureReason = ledgerErr.Error()
	if err := o.record(ctx, t, EventFailed); err != nil {
		return nil, fmt.Errorf("recording failure of %s (%v): %w", t.TransactionID, ledgerErr, err)
	}
	o.logger.Warn("transaction failed",
		zap.String("transaction_id", t.TransactionID),
		zap.String("account", ledgerErr.Account),
		zap.String("reason", t.FailureReason),
	)

	return t, ledgerErr
}

// apply moves the money: a deposit credits the source account, a withdrawal debits it,
// a transfer debits the source then credits the destination.
func (o *Orchestrator) apply(ctx context.Context, t *Transaction) *LedgerError {
	switch t.Type {
	case Deposit:
		return o.adjust(ctx, t, t.FromAccount, t.Amount)
	case Withdrawal:
		return o.adjust(ctx, t, t.FromAccount, t.Amount.Neg())
	case Transfer:
		if err := o.adjust(ctx, t, t.FromAccount, t.Amount.Neg()); err != nil {
			return err
		}
		if err := o.adjust(ctx, t, t.ToAccount, t.Amount); err != nil {
			return o.compensate(ctx, t, err)
		}
		return nil
	default:
		return &LedgerError{
			TransactionID: t.TransactionID,
			Account:       t.FromAccount,
			Err:           fmt.Errorf("unsupported transaction type %s", t.Type),
		}
	}
}

// compensate credits the source back after a transfer's credit leg failed.
// The returned error keeps the credit failure as its message unless the refund fails too.
func (o *Orchestrator) compensate(ctx context.Context, t *Transaction, creditErr *LedgerError) *LedgerError {
	refundErr := o.adjust(ctx, t, t.FromAccount, t.Amount)
	if refundErr == nil {
		o.logger.Info("transfer debit compensated",
			zap.String("transaction_id", t.TransactionID),
			zap.String("account", t.FromAccount),
		)
		return creditErr
	}

	o.logger.Error("transfer compensation failed, manual reconciliation required",
		zap.String("transaction_id", t.TransactionID),
		zap.String("account", t.FromAccount),
		zap.String("amount", t.Amount.String()),
		zap.NamedError("credit_error", creditErr),
		zap.NamedError("compensation_error", refundErr),
	)
	return &LedgerError{
		TransactionID: t.TransactionID,
		Account:       t.ToAccount,
		Err:           fmt.Errorf("%s; compensation failed: %w", creditErr.Error(), refundErr.Err),
	}
}

func (o *Orchestrator) adjust(ctx context.Context, t *Transaction, account string, amount decimal.Decimal) *LedgerError {
	ctx, cancel := context.WithTimeout(ctx, o.ledgerTimeout)
	defer cancel()

	err := o.ledger.AdjustBalance(ctx, account, amount)
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("ledger call for account %s timed out after %s: %w", account, o.ledgerTimeout, err)
	}
	return &LedgerError{TransactionID: t.TransactionID, Account: account, Err: err}
}

// record persists t and then appends a snapshot event; the status write always comes first
func (o *Orchestrator) record(ctx context.Context, t *Transaction, eventType string) error {
	if err := o.transactions.Put(ctx, t); err != nil {
		return fmt.Errorf("saving transaction %s: %w", t.TransactionID, err)
	}

	snapshot, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if _, err = o.events.Append(ctx, t.TransactionID, eventType, snapshot); err != nil {
		return fmt.Errorf("appending %s event for %s: %w", eventType, t.TransactionID, err)
	}

	return nil
}

func (o *Orchestrator) Get(ctx context.Context, id int64) (*Transaction, error) {
	return o.transactions.FindByID(ctx, id)
}

func (o *Orchestrator) GetByTransactionID(ctx context.Context, transactionID string) (*Transaction, error) {
	return o.transactions.FindByTransactionID(ctx, transactionID)
}

func (o *Orchestrator) ListByAccount(ctx context.Context, account string) ([]*Transaction, error) {
	return o.transactions.FindByAccount(ctx, account)
}

func (o *Orchestrator) List(ctx context.Context, opts ...*options.TransactionOptions) ([]*Transaction, error) {
	return o.transactions.Find(ctx, opts...)
}

// Events returns the transaction's history, oldest first
func (o *Orchestrator) Events(ctx context.Context, transactionID string) ([]*Event, error) {
	return o.events.ListByTransaction(ctx, transactionID)
}

func attributes(t *Transaction) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("transaction.id", t.TransactionID),
		attribute.String("transaction.type", string(t.Type)),
		attribute.String("transaction.currency", t.Currency),
		attribute.String("transaction.status", string(t.Status)),
	}
}
