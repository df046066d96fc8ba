package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/khabaroff/accounts-selfhosted/src/models"
)

// DBTX is the subset of database/sql used by the repositories.
// Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AccountRepository defines the interface for account data access.
// Every method issues exactly one parameterized statement.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, username string) error

	// FindByUsername returns every row matching username (normally zero or one)
	FindByUsername(ctx context.Context, username string) ([]*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)

	UpdateLastLogin(ctx context.Context, username string, at time.Time) error
	UpdatePassword(ctx context.Context, username, passwordHash string) error
	UpdateFlags(ctx context.Context, username string, flags models.Flags) error
	UpdateUsername(ctx context.Context, username, newUsername string) error
}

// ProfileRepository defines the interface for profile data access
type ProfileRepository interface {
	// Get returns nil without error when the account has no profile row
	Get(ctx context.Context, username string) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
	Delete(ctx context.Context, username string) error
}
