package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/khabaroff/accounts-selfhosted/src/models"
)

const accountColumns = `username, password, created, last_login, flags`

// PostgresAccountRepository stores accounts in the accounts table
type PostgresAccountRepository struct {
	db DBTX
}

// NewPostgresAccountRepository creates a new account repository
func NewPostgresAccountRepository(db DBTX) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

func (r *PostgresAccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `) VALUES ($1, $2, $3, $4, $5)`

	var lastLogin sql.NullTime
	if account.LastLogin != nil {
		lastLogin = sql.NullTime{Time: *account.LastLogin, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		account.Username, account.PasswordHash, account.Created, lastLogin, int64(account.Flags))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepository) Delete(ctx context.Context, username string) error {
	return r.exec(ctx, `DELETE FROM accounts WHERE username = $1`, username)
}

func (r *PostgresAccountRepository) FindByUsername(ctx context.Context, username string) ([]*models.Account, error) {
	return r.query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
}

func (r *PostgresAccountRepository) List(ctx context.Context) ([]*models.Account, error) {
	return r.query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY username`)
}

func (r *PostgresAccountRepository) UpdateLastLogin(ctx context.Context, username string, at time.Time) error {
	return r.exec(ctx, `UPDATE accounts SET last_login = $1 WHERE username = $2`, at, username)
}

func (r *PostgresAccountRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	return r.exec(ctx, `UPDATE accounts SET password = $1 WHERE username = $2`, passwordHash, username)
}

func (r *PostgresAccountRepository) UpdateFlags(ctx context.Context, username string, flags models.Flags) error {
	return r.exec(ctx, `UPDATE accounts SET flags = $1 WHERE username = $2`, int64(flags), username)
}

func (r *PostgresAccountRepository) UpdateUsername(ctx context.Context, username, newUsername string) error {
	return r.exec(ctx, `UPDATE accounts SET username = $1 WHERE username = $2`, newUsername, username)
}

func (r *PostgresAccountRepository) exec(ctx context.Context, query string, args ...any) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepository) query(ctx context.Context, query string, args ...any) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	accounts := []*models.Account{}
	for rows.Next() {
		var (
			account   models.Account
			lastLogin sql.NullTime
			flags     int64
		)
		if err := rows.Scan(&account.Username, &account.PasswordHash, &account.Created, &lastLogin, &flags); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if lastLogin.Valid {
			t := lastLogin.Time
			account.LastLogin = &t
		}
		account.Flags = models.Flags(flags)
		accounts = append(accounts, &account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return accounts, nil
}
