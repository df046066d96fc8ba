package services

import (
	"context"
	"time"

	"github.com/khabaroff/accounts-selfhosted/src/models"
)

// Identity is the capability shared by everything that acts on behalf of an
// account. Authorization decisions are made from the acting identity only,
// never from the target account.
type Identity interface {
	Username() string
	IsAdmin() bool
	IsActive() bool
	IsFlagSet(flag models.Flags) bool
}

// Session is the identity of one request. It holds at most one account's
// fields and must not outlive the request it was built for.
type Session struct {
	svc *AccountService

	username     string
	passwordHash string
	created      time.Time
	lastLogin    *time.Time
	flags        models.Flags
}

var _ Identity = (*Session)(nil)

func (s *Session) load(a *models.Account) {
	s.username = a.Username
	s.passwordHash = a.PasswordHash
	s.created = a.Created
	s.lastLogin = a.LastLogin
	s.flags = a.Flags
}

// Username returns the loaded identity's username, empty when anonymous
func (s *Session) Username() string { return s.username }

// Created returns the loaded identity's creation time
func (s *Session) Created() time.Time { return s.created }

// LastLogin returns the loaded identity's last successful login
func (s *Session) LastLogin() *time.Time { return s.lastLogin }

// Flags returns the in-memory flag mask
func (s *Session) Flags() models.Flags { return s.flags }

// IsAuthenticated reports whether an identity is loaded
func (s *Session) IsAuthenticated() bool { return s.username != "" }

// Account returns a snapshot of the loaded identity
func (s *Session) Account() *models.Account {
	return &models.Account{
		Username:     s.username,
		PasswordHash: s.passwordHash,
		Created:      s.created,
		LastLogin:    s.lastLogin,
		Flags:        s.flags,
	}
}

// IsAdmin returns true if the acting identity has the admin bit
func (s *Session) IsAdmin() bool {
	return s.IsFlagSet(models.FlagAdmin)
}

// IsActive returns true if the acting identity has the active bit
func (s *Session) IsActive() bool {
	return s.IsFlagSet(models.FlagActive)
}

// IsFlagSet reports whether any of the given bits are set in memory
func (s *Session) IsFlagSet(flag models.Flags) bool {
	return s.flags.Has(flag)
}

// SetFlags adds the recognized bits of flags in memory. Use SaveFlags to persist.
func (s *Session) SetFlags(flags models.Flags) {
	s.flags = s.flags.With(flags)
}

// ClearFlags clears the given bits in memory. Use SaveFlags to persist.
func (s *Session) ClearFlags(flags models.Flags) {
	s.flags = s.flags.Without(flags)
}

// Authenticate checks username and password against the store. It succeeds
// only when exactly one row matches, the password verifies and the account
// is active. On success last_login is updated and the identity is loaded.
func (s *Session) Authenticate(ctx context.Context, username, password string) (bool, error) {
	rows, err := s.svc.repo.FindByUsername(ctx, username)
	if err != nil {
		return false, s.svc.statementError("authenticate", err)
	}

	if len(rows) != 1 {
		s.svc.hasher.VerifyDecoy(password)
		s.svc.logger.Debug().Str("username", username).Int("rows", len(rows)).Msg("authentication failed")
		return false, nil
	}

	row := rows[0]
	if !s.svc.hasher.Verify(password, row.PasswordHash) || !row.IsActive() {
		s.svc.logger.Info().Str("username", username).Msg("authentication failed")
		return false, nil
	}

	now := s.svc.now()
	if err := s.svc.repo.UpdateLastLogin(ctx, username, now); err != nil {
		return false, s.svc.statementError("update last login", err)
	}

	s.load(row)
	s.lastLogin = &now

	if s.svc.hasher.NeedsRehash(row.PasswordHash) {
		s.svc.logger.Debug().Str("username", username).Msg("stored hash uses outdated parameters")
	}
	s.svc.logger.Info().Str("username", username).Msg("authenticated")
	return true, nil
}

// Create inserts a new account with no flags set. Requires admin.
func (s *Session) Create(ctx context.Context, username, password string) error {
	if err := s.requireAdmin("create", username); err != nil {
		return err
	}

	hash, err := s.svc.hasher.Hash(password, "")
	if err != nil {
		return err
	}

	account := &models.Account{
		Username:     username,
		PasswordHash: hash,
		Created:      s.svc.now(),
	}
	if err := s.svc.repo.Create(ctx, account); err != nil {
		return s.svc.statementError("create", err)
	}
	return nil
}

// Delete removes an account. Requires admin and a target other than self.
func (s *Session) Delete(ctx context.Context, username string) error {
	if err := s.requireAdmin("delete", username); err != nil {
		return err
	}
	if username == s.username {
		s.deny("delete", username)
		return ErrPermissionDenied
	}

	if err := s.svc.repo.Delete(ctx, username); err != nil {
		return s.svc.statementError("delete", err)
	}
	return nil
}

// UsernameExists reports whether an account row exists for username
func (s *Session) UsernameExists(ctx context.Context, username string) (bool, error) {
	rows, err := s.svc.repo.FindByUsername(ctx, username)
	if err != nil {
		return false, s.svc.statementError("username exists", err)
	}
	return len(rows) > 0, nil
}

// GetSelf returns the stored row of the acting identity, nil when absent
func (s *Session) GetSelf(ctx context.Context) (*models.Account, error) {
	return s.getUser(ctx, s.username)
}

// GetUser returns the stored row for username, nil when absent.
// Looking up another account requires admin.
func (s *Session) GetUser(ctx context.Context, username string) (*models.Account, error) {
	if username != s.username {
		if err := s.requireAdmin("get user", username); err != nil {
			return nil, err
		}
	}
	return s.getUser(ctx, username)
}

func (s *Session) getUser(ctx context.Context, username string) (*models.Account, error) {
	rows, err := s.svc.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, s.svc.statementError("get user", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// GetUsers returns every account row. Requires admin.
func (s *Session) GetUsers(ctx context.Context) ([]*models.Account, error) {
	if err := s.requireAdmin("get users", ""); err != nil {
		return nil, err
	}

	accounts, err := s.svc.repo.List(ctx)
	if err != nil {
		return nil, s.svc.statementError("get users", err)
	}
	return accounts, nil
}

// UpdateOwnPassword replaces the acting identity's password
func (s *Session) UpdateOwnPassword(ctx context.Context, password string) error {
	if err := s.requireAuthenticated(); err != nil {
		return err
	}

	hash, err := s.svc.hasher.Hash(password, "")
	if err != nil {
		return err
	}
	if err := s.svc.repo.UpdatePassword(ctx, s.username, hash); err != nil {
		return s.svc.statementError("update password", err)
	}

	s.passwordHash = hash
	return nil
}

// UpdatePassword replaces another account's password. Requires admin.
func (s *Session) UpdatePassword(ctx context.Context, username, password string) error {
	if err := s.requireAdmin("update password", username); err != nil {
		return err
	}

	hash, err := s.svc.hasher.Hash(password, "")
	if err != nil {
		return err
	}
	if err := s.svc.repo.UpdatePassword(ctx, username, hash); err != nil {
		return s.svc.statementError("update password", err)
	}
	return nil
}

// SaveFlags persists the in-memory flag mask of the acting identity
func (s *Session) SaveFlags(ctx context.Context) error {
	if err := s.requireAuthenticated(); err != nil {
		return err
	}

	if err := s.svc.repo.UpdateFlags(ctx, s.username, s.flags); err != nil {
		return s.svc.statementError("update flags", err)
	}
	return nil
}

// UpdateOwnFlags persists flags as the acting identity's full mask and
// mirrors it in memory
func (s *Session) UpdateOwnFlags(ctx context.Context, flags models.Flags) error {
	if err := s.requireAuthenticated(); err != nil {
		return err
	}

	if err := s.svc.repo.UpdateFlags(ctx, s.username, flags); err != nil {
		return s.svc.statementError("update flags", err)
	}

	s.flags = flags
	return nil
}

// UpdateUserFlags persists flags as another account's full mask. Requires admin.
func (s *Session) UpdateUserFlags(ctx context.Context, username string, flags models.Flags) error {
	if err := s.requireAdmin("update flags", username); err != nil {
		return err
	}

	if err := s.svc.repo.UpdateFlags(ctx, username, flags); err != nil {
		return s.svc.statementError("update flags", err)
	}
	return nil
}

// UpdateOwnUsername renames the acting identity
func (s *Session) UpdateOwnUsername(ctx context.Context, newUsername string) error {
	if err := s.requireAuthenticated(); err != nil {
		return err
	}

	if err := s.svc.repo.UpdateUsername(ctx, s.username, newUsername); err != nil {
		return s.svc.statementError("update username", err)
	}

	s.username = newUsername
	return nil
}

// UpdateUsername renames another account. Requires admin.
func (s *Session) UpdateUsername(ctx context.Context, username, newUsername string) error {
	if err := s.requireAdmin("update username", username); err != nil {
		return err
	}

	if err := s.svc.repo.UpdateUsername(ctx, username, newUsername); err != nil {
		return s.svc.statementError("update username", err)
	}
	return nil
}

func (s *Session) requireAdmin(op, target string) error {
	if !s.IsAdmin() {
		s.deny(op, target)
		return ErrPermissionDenied
	}
	return nil
}

func (s *Session) requireAuthenticated() error {
	if !s.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return nil
}

func (s *Session) deny(op, target string) {
	s.svc.logger.Warn().
		Str("op", op).
		Str("actor", s.username).
		Str("target", target).
		Msg("permission denied")
}
