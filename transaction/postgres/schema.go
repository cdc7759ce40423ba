package postgres

var schema = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
	id BIGSERIAL PRIMARY KEY,
	transaction_id VARCHAR(50) NOT NULL UNIQUE,
	from_account VARCHAR(20) NOT NULL,
	to_account VARCHAR(20),
	type VARCHAR(20) NOT NULL,
	amount NUMERIC NOT NULL CHECK (amount > 0),
	currency CHAR(3) NOT NULL DEFAULT 'USD',
	status VARCHAR(20) NOT NULL,
	description VARCHAR(500),
	failure_reason TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_from_account_idx ON transactions (from_account)`,
	`CREATE INDEX IF NOT EXISTS transactions_to_account_idx ON transactions (to_account)`,
	`CREATE TABLE IF NOT EXISTS transaction_events (
	id BIGSERIAL PRIMARY KEY,
	transaction_id VARCHAR(50) NOT NULL,
	event_type VARCHAR(50) NOT NULL,
	event_data TEXT NOT NULL,
	version BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (transaction_id, version)
	)`,
	`CREATE TABLE IF NOT EXISTS transaction_event_versions (
	transaction_id VARCHAR(50) PRIMARY KEY,
	last_version BIGINT NOT NULL
	)`,
}
