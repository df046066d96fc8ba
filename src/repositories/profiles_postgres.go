package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/khabaroff/accounts-selfhosted/src/models"
)

// PostgresProfileRepository stores profiles in the account_profiles table
type PostgresProfileRepository struct {
	db DBTX
}

// NewPostgresProfileRepository creates a new profile repository
func NewPostgresProfileRepository(db DBTX) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: db}
}

func (r *PostgresProfileRepository) Get(ctx context.Context, username string) (*models.Profile, error) {
	query := `
		SELECT username, first_name, last_name, latitude, longitude, email, phone, attributes
		FROM account_profiles
		WHERE username = $1
	`

	var (
		p     models.Profile
		attrs []byte
	)
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&p.Username, &p.FirstName, &p.LastName, &p.Latitude, &p.Longitude, &p.Email, &p.Phone, &attrs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if len(attrs) > 0 {
		p.Attributes = attrs
	}

	return &p, nil
}

func (r *PostgresProfileRepository) Upsert(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO account_profiles (username, first_name, last_name, latitude, longitude, email, phone, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (username) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			attributes = EXCLUDED.attributes
	`

	var attrs []byte
	if len(p.Attributes) > 0 {
		attrs = p.Attributes
	}

	_, err := r.db.ExecContext(ctx, query,
		p.Username, p.FirstName, p.LastName, p.Latitude, p.Longitude, p.Email, p.Phone, attrs)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresProfileRepository) Delete(ctx context.Context, username string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM account_profiles WHERE username = $1`, username); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
