package postgres

import (
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/peterbourgon/ff"
)

type Config struct {
	Host         string
	Port         int
	User         string
	Password     string
	DatabaseName string
	SSLMode      string
	MaxOpenConns int
}

// DSN renders the config as a lib/pq connection string.
// Sessions are pinned to UTC so timestamps round-trip unchanged.
func (c *Config) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s timezone=UTC",
		c.Host,
		c.Port,
		c.User,
		c.DatabaseName,
		c.SSLMode,
	)
	if c.Password != "" {
		dsn += fmt.Sprintf(" password=%s", c.Password)
	}
	return dsn
}

// connect to Postgres, create the schema, and return a database handle representing a pool of connections
func Connect(config *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}

	if err = setup(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Parse the given command line arguments.
// Values may also come from environment variables, but flags get priority.
//
// Example .env file
// 	POSTGRES_HOST=localhost
// 	POSTGRES_PORT=5432
// 	POSTGRES_USER=alice
// 	POSTGRES_DB_NAME=transactions_dev
func Parse(args []string) (*Config, error) {
	postgresFlags := flag.NewFlagSet("postgres", flag.ContinueOnError)
	var (
		host     = postgresFlags.String("host", "localhost", "host to connect to")
		port     = postgresFlags.Int("port", 5432, "port to bind to")
		user     = postgresFlags.String("user", "", "user to sign in as")
		password = postgresFlags.String("password", "", "password of the user")
		dbName   = postgresFlags.String("db_name", "", "name of the database")
		sslMode  = postgresFlags.String("ssl_mode", "disable", "lib/pq sslmode")
		maxConns = postgresFlags.Int("max_open_conns", 0, "connection pool limit, 0 is unlimited")
	)

	err := ff.Parse(postgresFlags, args,
		ff.WithIgnoreUndefined(true),
		ff.WithEnvVarPrefix("POSTGRES"),
	)
	if err != nil {
		return nil, err
	}

	return &Config{
		Host:         *host,
		Port:         *port,
		User:         *user,
		Password:     *password,
		DatabaseName: *dbName,
		SSLMode:      *sslMode,
		MaxOpenConns: *maxConns,
	}, nil
}

// configures the database and creates the tables
func setup(db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating db tables: %w", err)
		}
	}

	return nil
}
