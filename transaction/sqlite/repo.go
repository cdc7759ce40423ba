package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"transactions/transaction"
	"transactions/transaction/options"
)

var (
	_ transaction.TransactionRepo = (*TransactionRepo)(nil)
	_ transaction.EventRepo       = (*EventRepo)(nil)
)

type TransactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

// the stored row keeps the table name inside an upsert, the incoming one is "excluded"
var statusGuard = transaction.TransitionGuard("transactions.status", "excluded.status")

func (r *TransactionRepo) Put(ctx context.Context, t *transaction.Transaction) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m := toModel(t)

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "failure_reason", "completed_at"}),
		Where:     clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: statusGuard}}},
	}).Create(m)
	if res.Error != nil {
		return fmt.Errorf("failed to save transaction %s: %w", t.TransactionID, res.Error)
	}
	if res.RowsAffected == 0 {
		current, err := r.FindByTransactionID(ctx, t.TransactionID)
		if err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", t.TransactionID, err)
		}
		return &transaction.StateError{TransactionID: t.TransactionID, From: current.Status, To: t.Status}
	}

	// an upsert that hit the conflict may not report the existing key
	if m.ID == 0 {
		var id int64
		err := r.db.WithContext(ctx).Model(&transactionModel{}).
			Where("transaction_id = ?", t.TransactionID).
			Select("id").Scan(&id).Error
		if err != nil {
			return err
		}
		m.ID = id
	}
	t.ID = m.ID

	return nil
}

func (r *TransactionRepo) FindByID(ctx context.Context, id int64) (*transaction.Transaction, error) {
	return r.first(ctx, strconv.FormatInt(id, 10), "id = ?", id)
}

func (r *TransactionRepo) FindByTransactionID(ctx context.Context, transactionID string) (*transaction.Transaction, error) {
	return r.first(ctx, transactionID, "transaction_id = ?", transactionID)
}

func (r *TransactionRepo) first(ctx context.Context, key string, query string, args ...interface{}) (*transaction.Transaction, error) {
	var m transactionModel
	err := r.db.WithContext(ctx).Where(query, args...).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &transaction.NotFoundError{Key: key}
	}
	if err != nil {
		return nil, err
	}
	return m.toTransaction()
}

func (r *TransactionRepo) FindByAccount(ctx context.Context, account string) ([]*transaction.Transaction, error) {
	return r.Find(ctx, options.NewTransactionOptions().SetAccount(account))
}

func (r *TransactionRepo) Find(ctx context.Context, opts ...*options.TransactionOptions) ([]*transaction.Transaction, error) {
	opt := options.Merge(opts...)

	q := r.db.WithContext(ctx).Model(&transactionModel{})
	if len(opt.IDs) > 0 {
		q = q.Where("id IN ?", opt.IDs)
	}
	if len(opt.TransactionIDs) > 0 {
		q = q.Where("transaction_id IN ?", opt.TransactionIDs)
	}
	if opt.Account != "" {
		q = q.Where("(from_account = ? OR to_account = ?)", opt.Account, opt.Account)
	}
	if len(opt.Statuses) > 0 {
		q = q.Where("status IN ?", opt.Statuses)
	}
	if len(opt.Types) > 0 {
		q = q.Where("type IN ?", opt.Types)
	}
	if opt.Amount != nil {
		if from, ok := opt.Amount.From(); ok {
			q = q.Where("CAST(amount AS NUMERIC) >= ?", from)
		}
		if to, ok := opt.Amount.To(); ok {
			q = q.Where("CAST(amount AS NUMERIC) <= ?", to)
		}
	}
	if opt.CreatedAt != nil {
		if from, ok := opt.CreatedAt.From(); ok {
			q = q.Where("created_at >= ?", from)
		}
		if to, ok := opt.CreatedAt.To(); ok {
			q = q.Where("created_at <= ?", to)
		}
	}

	var models []transactionModel
	if err := q.Order("id").Find(&models).Error; err != nil {
		return nil, err
	}

	result := make([]*transaction.Transaction, 0, len(models))
	for i := range models {
		t, err := models[i].toTransaction()
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

type EventRepo struct {
	db *gorm.DB
}

func NewEventRepo(db *gorm.DB) *EventRepo {
	return &EventRepo{db: db}
}

// Append reads the highest version and inserts the next one in a single gorm transaction;
// the unique (transaction_id, version) index rejects any duplicate.
func (r *EventRepo) Append(ctx context.Context, transactionID, eventType string, snapshot []byte) (*transaction.Event, error) {
	m := &eventModel{
		TransactionID: transactionID,
		EventType:     eventType,
		EventData:     string(snapshot),
		CreatedAt:     time.Now().UTC(),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last sql.NullInt64
		err := tx.Model(&eventModel{}).
			Where("transaction_id = ?", transactionID).
			Select("MAX(version)").
			Scan(&last).Error
		if err != nil {
			return err
		}
		m.Version = last.Int64 + 1
		return tx.Create(m).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append %s event for %s: %w", eventType, transactionID, err)
	}

	return m.toEvent(), nil
}

func (r *EventRepo) ListByTransaction(ctx context.Context, transactionID string) ([]*transaction.Event, error) {
	var models []eventModel
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("version ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	events := make([]*transaction.Event, 0, len(models))
	for i := range models {
		events = append(events, models[i].toEvent())
	}
	return events, nil
}
