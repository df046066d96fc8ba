package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/khabaroff/accounts-selfhosted/src/logging"
)

//go:embed schema.sql
var schemaSQL string

// Options configures the connection pool
type Options struct {
	URL             string
	User            string // overrides the user in URL when set
	Password        string // overrides the password in URL when set
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Database holds the PostgreSQL connection pool and a database/sql handle over it
type Database struct {
	pool  *pgxpool.Pool
	sqlDB *sql.DB
}

// New creates a new database connection
func New(ctx context.Context, opts Options) (*Database, error) {
	config, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if opts.User != "" {
		config.ConnConfig.User = opts.User
	}
	if opts.Password != "" {
		config.ConnConfig.Password = opts.Password
	}

	// Configure connection pool
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}
	if opts.MaxConnLifetime > 0 {
		config.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	db := NewDatabaseFromPool(pool)

	// Initialize schema
	if err := db.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// NewDatabaseFromPool creates a Database instance from an existing pool
func NewDatabaseFromPool(pool *pgxpool.Pool) *Database {
	db := &Database{pool: pool}
	if pool != nil {
		db.sqlDB = stdlib.OpenDBFromPool(pool)
	}
	return db
}

// Close closes the database/sql handle and the connection pool
func (db *Database) Close() {
	if db.sqlDB != nil {
		_ = db.sqlDB.Close()
	}
	if db.pool != nil {
		db.pool.Close()
	}
}

// GetPool returns the connection pool
func (db *Database) GetPool() *pgxpool.Pool {
	return db.pool
}

// SQLDB returns a database/sql handle sharing the pool's connections.
// Repositories run their statements through it.
func (db *Database) SQLDB() *sql.DB {
	return db.sqlDB
}

// initializeSchema executes the embedded schema.sql
func (db *Database) initializeSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	logger := logging.NewLogger("database")
	logger.Info().Msg("database schema initialized")
	return nil
}

// Health checks if the database is healthy
func (db *Database) Health(ctx context.Context) error {
	if db == nil || db.pool == nil {
		return fmt.Errorf("database connection not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return db.pool.Ping(ctx)
}

// Stats returns pool statistics for the info endpoint
func (db *Database) Stats() *pgxpool.Stat {
	if db == nil || db.pool == nil {
		return nil
	}
	return db.pool.Stat()
}

// SchemaReady reports whether the account tables exist
func (db *Database) SchemaReady(ctx context.Context) (bool, error) {
	if db == nil || db.pool == nil {
		return false, fmt.Errorf("database connection not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var ready bool
	err := db.pool.QueryRow(ctx,
		`SELECT to_regclass('accounts') IS NOT NULL AND to_regclass('account_profiles') IS NOT NULL`,
	).Scan(&ready)
	return ready, err
}
