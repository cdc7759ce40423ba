package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// EventRepo is the append-only history of every transaction.
//
// Append allocates the next version for the transaction atomically, so
// versions stay contiguous from 1 even when appends race.
type EventRepo interface {
	Append(ctx context.Context, transactionID, eventType string, snapshot []byte) (*Event, error)
	// ListByTransaction returns the transaction's events ordered by version
	ListByTransaction(ctx context.Context, transactionID string) ([]*Event, error)
}

var _ EventRepo = (*PostgresEventRepo)(nil)

type PostgresEventRepo struct {
	db *sqlx.DB
}

func NewPostgresEventRepo(db *sqlx.DB) (*PostgresEventRepo, error) {
	if db == nil {
		return nil, errors.New("postgres event repo: nil db")
	}
	return &PostgresEventRepo{db: db}, nil
}

// the counter row is locked by the upsert until commit, serializing appends per transaction
const nextEventVersion = `INSERT INTO transaction_event_versions (transaction_id, last_version)
	VALUES ($1, 1)
	ON CONFLICT (transaction_id) DO UPDATE
	SET last_version = transaction_event_versions.last_version + 1
	RETURNING last_version`

const insertEvent = `INSERT INTO transaction_events (transaction_id, event_type, event_data, version)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at`

func (r *PostgresEventRepo) Append(ctx context.Context, transactionID, eventType string, snapshot []byte) (*Event, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("appending %s event for %s: %w", eventType, transactionID, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	event := &Event{
		TransactionID: transactionID,
		EventType:     eventType,
		Data:          snapshot,
	}
	if err = tx.GetContext(ctx, &event.Version, nextEventVersion, transactionID); err != nil {
		return nil, fmt.Errorf("allocating event version for %s: %w", transactionID, err)
	}

	err = tx.QueryRowxContext(ctx, insertEvent,
		transactionID,
		eventType,
		string(snapshot),
		event.Version,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("appending %s event for %s: %w", eventType, transactionID, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing %s event for %s: %w", eventType, transactionID, err)
	}

	return event, nil
}

func (r *PostgresEventRepo) ListByTransaction(ctx context.Context, transactionID string) ([]*Event, error) {
	events := []*Event{}
	err := r.db.SelectContext(ctx, &events,
		`SELECT id, transaction_id, event_type, event_data, version, created_at
		FROM transaction_events WHERE transaction_id = $1 ORDER BY version ASC`,
		transactionID,
	)
	if err != nil {
		return nil, err
	}

	return events, nil
}
