package services

import (
	"context"
	"time"

	"github.com/khabaroff/accounts-selfhosted/src/logging"
	"github.com/khabaroff/accounts-selfhosted/src/models"
	"github.com/khabaroff/accounts-selfhosted/src/repositories"
	"github.com/rs/zerolog"
)

// AccountService creates request-scoped sessions over the account store.
// It holds no per-identity state and is safe for concurrent use.
type AccountService struct {
	repo   repositories.AccountRepository
	hasher *PasswordHasher
	logger zerolog.Logger
	now    func() time.Time
}

// NewAccountService creates a new account service
func NewAccountService(repo repositories.AccountRepository, hasher *PasswordHasher) *AccountService {
	return &AccountService{
		repo:   repo,
		hasher: hasher,
		logger: logging.NewLogger("accounts"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Hasher returns the password hasher used for new hashes
func (as *AccountService) Hasher() *PasswordHasher {
	return as.hasher
}

// NewSession returns an anonymous session. Until Authenticate succeeds every
// identity field is zero and IsAdmin is false.
func (as *AccountService) NewSession() *Session {
	return &Session{svc: as}
}

// SessionFor returns a session whose identity is loaded from account
func (as *AccountService) SessionFor(account *models.Account) *Session {
	s := as.NewSession()
	if account != nil {
		s.load(account)
	}
	return s
}

// LoadSession fetches the account row for username and returns a session for it.
// A missing account yields a nil session without error.
func (as *AccountService) LoadSession(ctx context.Context, username string) (*Session, error) {
	rows, err := as.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, as.statementError("load session", err)
	}
	if len(rows) != 1 {
		return nil, nil
	}
	return as.SessionFor(rows[0]), nil
}

// Bootstrap inserts an ADMIN|ACTIVE account directly into the store when no
// account named username exists. It bypasses the permission checks and is
// meant for first-run seeding only.
func (as *AccountService) Bootstrap(ctx context.Context, username, password string) (bool, error) {
	rows, err := as.repo.FindByUsername(ctx, username)
	if err != nil {
		return false, as.statementError("bootstrap lookup", err)
	}
	if len(rows) > 0 {
		return false, nil
	}

	hash, err := as.hasher.Hash(password, "")
	if err != nil {
		return false, err
	}

	account := &models.Account{
		Username:     username,
		PasswordHash: hash,
		Created:      as.now(),
		Flags:        models.FlagAdmin | models.FlagActive,
	}
	if err := as.repo.Create(ctx, account); err != nil {
		return false, as.statementError("bootstrap create", err)
	}

	as.logger.Info().Str("username", username).Msg("bootstrap admin account created")
	return true, nil
}

func (as *AccountService) statementError(op string, err error) error {
	se := newStatementError(err)
	as.logger.Error().
		Err(err).
		Str("op", op).
		Str("code", se.Code).
		Msg("statement failed")
	return se
}
