package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"transactions/transaction/options"
)

// TransactionRepo is the data store for the current state of transactions.
// It keeps no history: Put replaces the stored snapshot.
type TransactionRepo interface {
	// Put creates the transaction when its ID is zero, assigning the ID,
	// and otherwise replaces the stored snapshot. It returns once the write is durable.
	// Replacing a row whose stored status cannot move to t.Status fails with a *StateError,
	// so writers sharing a store cannot both claim the same transition.
	Put(ctx context.Context, t *Transaction) error
	FindByID(ctx context.Context, id int64) (*Transaction, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*Transaction, error)
	// FindByAccount returns every transaction where account is the source or destination
	FindByAccount(ctx context.Context, account string) ([]*Transaction, error)
	Find(ctx context.Context, opts ...*options.TransactionOptions) ([]*Transaction, error)
}

var _ TransactionRepo = (*PostgresTransactionRepo)(nil)

type PostgresTransactionRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) (*PostgresTransactionRepo, error) {
	if db == nil {
		return nil, errors.New("postgres repo: nil db")
	}
	return &PostgresTransactionRepo{db: db}, nil
}

const selectTransactions = `SELECT id, transaction_id, from_account, COALESCE(to_account, '') AS to_account,
	type, amount, currency, status, COALESCE(description, '') AS description,
	COALESCE(failure_reason, '') AS failure_reason, created_at, completed_at
	FROM transactions`

// only the mutable columns are touched when the row already exists,
// and only along an allowed status edge
var putTransaction = `INSERT INTO transactions (transaction_id, from_account, to_account, type, amount,
	currency, status, description, failure_reason, created_at, completed_at)
	VALUES (:transaction_id, :from_account, NULLIF(:to_account, ''), :type, :amount,
	:currency, :status, NULLIF(:description, ''), NULLIF(:failure_reason, ''), :created_at, :completed_at)
	ON CONFLICT (transaction_id) DO UPDATE SET
	status = EXCLUDED.status,
	failure_reason = EXCLUDED.failure_reason,
	completed_at = EXCLUDED.completed_at
	WHERE ` + TransitionGuard("transactions.status", "EXCLUDED.status") + `
	RETURNING id`

func (r *PostgresTransactionRepo) Put(ctx context.Context, t *Transaction) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	query, args, err := sqlx.Named(putTransaction, t)
	if err != nil {
		return fmt.Errorf("binding transaction %s: %w", t.TransactionID, err)
	}
	query = r.db.Rebind(query)

	var id int64
	err = r.db.QueryRowxContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		// the row exists and the guard refused the update
		current, findErr := r.FindByTransactionID(ctx, t.TransactionID)
		if findErr != nil {
			return fmt.Errorf("saving transaction %s: %w", t.TransactionID, findErr)
		}
		return &StateError{TransactionID: t.TransactionID, From: current.Status, To: t.Status}
	}
	if err != nil {
		return fmt.Errorf("saving transaction %s: %w", t.TransactionID, err)
	}
	t.ID = id

	return nil
}

func (r *PostgresTransactionRepo) FindByID(ctx context.Context, id int64) (*Transaction, error) {
	var result Transaction
	err := r.db.GetContext(ctx, &result, selectTransactions+" WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Key: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *PostgresTransactionRepo) FindByTransactionID(ctx context.Context, transactionID string) (*Transaction, error) {
	var result Transaction
	err := r.db.GetContext(ctx, &result, selectTransactions+" WHERE transaction_id = $1", transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Key: transactionID}
	}
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *PostgresTransactionRepo) FindByAccount(ctx context.Context, account string) ([]*Transaction, error) {
	return r.Find(ctx, options.NewTransactionOptions().SetAccount(account))
}

// Find returns the transactions matching every set filter, ordered by id.
// Account matches either the source or the destination account.
func (r *PostgresTransactionRepo) Find(ctx context.Context, transactionOptions ...*options.TransactionOptions) ([]*Transaction, error) {
	result := []*Transaction{}
	opt := options.Merge(transactionOptions...)

	filters := make(map[string]interface{})
	if len(opt.IDs) > 0 {
		filters["id"] = opt.IDs
	}
	if len(opt.TransactionIDs) > 0 {
		filters["transaction_id"] = opt.TransactionIDs
	}
	if len(opt.Statuses) > 0 {
		filters["status"] = opt.Statuses
	}
	if len(opt.Types) > 0 {
		filters["type"] = opt.Types
	}
	if opt.Amount != nil {
		filters["amount"] = opt.Amount
	}
	if opt.CreatedAt != nil {
		filters["created_at"] = opt.CreatedAt
	}

	var where []string
	namedParams := make(map[string]interface{})

	updateQueryParams := func(stmt, key string, value interface{}) {
		where = append(where, stmt)
		namedParams[key] = value
	}

	if opt.Account != "" {
		updateQueryParams("(from_account = :account OR to_account = :account)", "account", opt.Account)
	}

	for columnName, arg := range filters {
		switch v := arg.(type) {
		case options.Range:
			var key string

			from, ok := v.From()
			if ok {
				key = columnName + "_from"
				updateQueryParams(fmt.Sprintf("%s >= :%s", columnName, key), key, from)
			}
			to, ok := v.To()
			if ok {
				key = columnName + "_to"
				updateQueryParams(fmt.Sprintf("%s <= :%s", columnName, key), key, to)
			}

		default:
			updateQueryParams(fmt.Sprintf("%s IN (:%s)", columnName, columnName), columnName, v)
		}
	}

	query := selectTransactions
	if len(where) > 0 {
		query = fmt.Sprintf("%s WHERE %s", query, strings.Join(where, " AND "))
	}
	query += " ORDER BY id"

	query, args, err := sqlx.Named(query, namedParams)
	if err != nil {
		return nil, err
	}
	query, args, err = sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)
	if err = r.db.SelectContext(ctx, &result, query, args...); err != nil {
		return nil, err
	}

	return result, nil
}
