package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/khabaroff/accounts-selfhosted/src/logging"
	"github.com/khabaroff/accounts-selfhosted/src/models"
	"github.com/khabaroff/accounts-selfhosted/src/repositories"
	"github.com/rs/zerolog"
)

// ProfileService handles profile attributes keyed by username. It applies the
// same self-or-admin rules as Session to any Identity.
type ProfileService struct {
	repo   repositories.ProfileRepository
	cipher *AttributeCipher
	logger zerolog.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(repo repositories.ProfileRepository) *ProfileService {
	return NewProfileServiceWithCipher(repo, nil)
}

// NewProfileServiceWithCipher creates a profile service that seals the
// attributes blob before storage. A nil cipher stores plaintext.
func NewProfileServiceWithCipher(repo repositories.ProfileRepository, cipher *AttributeCipher) *ProfileService {
	return &ProfileService{
		repo:   repo,
		cipher: cipher,
		logger: logging.NewLogger("profiles"),
	}
}

// GetOwnProfile returns the acting identity's profile, nil when it has none
func (ps *ProfileService) GetOwnProfile(ctx context.Context, id Identity) (*models.Profile, error) {
	if id.Username() == "" {
		return nil, ErrNotAuthenticated
	}
	return ps.get(ctx, id.Username())
}

// GetProfile returns the profile for username. Other accounts require admin.
func (ps *ProfileService) GetProfile(ctx context.Context, id Identity, username string) (*models.Profile, error) {
	if username != id.Username() && !id.IsAdmin() {
		ps.deny(id, "get profile", username)
		return nil, ErrPermissionDenied
	}
	return ps.get(ctx, username)
}

// SaveOwnProfile stores the acting identity's profile
func (ps *ProfileService) SaveOwnProfile(ctx context.Context, id Identity, profile *models.Profile) error {
	if id.Username() == "" {
		return ErrNotAuthenticated
	}
	return ps.save(ctx, id.Username(), profile)
}

// SaveProfile stores another account's profile. Requires admin.
func (ps *ProfileService) SaveProfile(ctx context.Context, id Identity, username string, profile *models.Profile) error {
	if !id.IsAdmin() {
		ps.deny(id, "save profile", username)
		return ErrPermissionDenied
	}
	return ps.save(ctx, username, profile)
}

// DeleteProfile removes the profile row for username. Requires admin.
// Account rows are left untouched.
func (ps *ProfileService) DeleteProfile(ctx context.Context, id Identity, username string) error {
	if !id.IsAdmin() {
		ps.deny(id, "delete profile", username)
		return ErrPermissionDenied
	}
	if err := ps.repo.Delete(ctx, username); err != nil {
		return ps.statementError("delete profile", err)
	}
	return nil
}

func (ps *ProfileService) get(ctx context.Context, username string) (*models.Profile, error) {
	p, err := ps.repo.Get(ctx, username)
	if err != nil {
		return nil, ps.statementError("get profile", err)
	}
	if p == nil || len(p.Attributes) == 0 {
		return p, nil
	}

	attrs, err := ps.cipher.Open(p.Attributes)
	if err != nil {
		ps.logger.Error().Err(err).Str("username", username).Msg("cannot open profile attributes")
		return nil, err
	}
	p.Attributes = attrs
	return p, nil
}

func (ps *ProfileService) save(ctx context.Context, username string, profile *models.Profile) error {
	if len(profile.Attributes) > 0 && !json.Valid(profile.Attributes) {
		return ErrInvalidAttributes
	}

	p := *profile
	p.Username = username
	if len(p.Attributes) > 0 {
		attrs, err := ps.cipher.Seal(p.Attributes)
		if err != nil {
			return fmt.Errorf("failed to seal profile attributes: %w", err)
		}
		p.Attributes = attrs
	}
	if err := ps.repo.Upsert(ctx, &p); err != nil {
		return ps.statementError("save profile", err)
	}
	return nil
}

func (ps *ProfileService) deny(id Identity, op, target string) {
	ps.logger.Warn().
		Str("op", op).
		Str("actor", id.Username()).
		Str("target", target).
		Msg("permission denied")
}

func (ps *ProfileService) statementError(op string, err error) error {
	se := newStatementError(err)
	ps.logger.Error().Err(err).Str("op", op).Str("code", se.Code).Msg("statement failed")
	return se
}
