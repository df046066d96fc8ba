package mock

import (
	"context"
	"sort"
	"time"

	"github.com/khabaroff/accounts-selfhosted/src/models"
	"github.com/khabaroff/accounts-selfhosted/src/repositories"
)

// AccountRepository is a mock implementation of repositories.AccountRepository.
// Methods without a stub operate on the in-memory Accounts map.
type AccountRepository struct {
	// Function stubs that can be overridden in tests
	CreateFunc          func(ctx context.Context, account *models.Account) error
	DeleteFunc          func(ctx context.Context, username string) error
	FindByUsernameFunc  func(ctx context.Context, username string) ([]*models.Account, error)
	ListFunc            func(ctx context.Context) ([]*models.Account, error)
	UpdateLastLoginFunc func(ctx context.Context, username string, at time.Time) error
	UpdatePasswordFunc  func(ctx context.Context, username, passwordHash string) error
	UpdateFlagsFunc     func(ctx context.Context, username string, flags models.Flags) error
	UpdateUsernameFunc  func(ctx context.Context, username, newUsername string) error

	Accounts map[string]*models.Account

	// Call tracking
	Calls map[string][]interface{}
}

// NewAccountRepository creates a new mock account repository
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		Accounts: make(map[string]*models.Account),
		Calls:    make(map[string][]interface{}),
	}
}

// Put stores a copy of account without recording a call
func (m *AccountRepository) Put(account models.Account) {
	m.Accounts[account.Username] = &account
}

// CallCount returns the total number of recorded calls
func (m *AccountRepository) CallCount() int {
	n := 0
	for _, calls := range m.Calls {
		n += len(calls)
	}
	return n
}

func (m *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	m.Calls["Create"] = append(m.Calls["Create"], account)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.Put(*account)
	return nil
}

func (m *AccountRepository) Delete(ctx context.Context, username string) error {
	m.Calls["Delete"] = append(m.Calls["Delete"], username)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, username)
	}
	delete(m.Accounts, username)
	return nil
}

func (m *AccountRepository) FindByUsername(ctx context.Context, username string) ([]*models.Account, error) {
	m.Calls["FindByUsername"] = append(m.Calls["FindByUsername"], username)
	if m.FindByUsernameFunc != nil {
		return m.FindByUsernameFunc(ctx, username)
	}
	if a, ok := m.Accounts[username]; ok {
		cp := *a
		return []*models.Account{&cp}, nil
	}
	return []*models.Account{}, nil
}

func (m *AccountRepository) List(ctx context.Context) ([]*models.Account, error) {
	m.Calls["List"] = append(m.Calls["List"], nil)
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	accounts := make([]*models.Account, 0, len(m.Accounts))
	for _, a := range m.Accounts {
		cp := *a
		accounts = append(accounts, &cp)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Username < accounts[j].Username })
	return accounts, nil
}

func (m *AccountRepository) UpdateLastLogin(ctx context.Context, username string, at time.Time) error {
	m.Calls["UpdateLastLogin"] = append(m.Calls["UpdateLastLogin"], username)
	if m.UpdateLastLoginFunc != nil {
		return m.UpdateLastLoginFunc(ctx, username, at)
	}
	if a, ok := m.Accounts[username]; ok {
		a.LastLogin = &at
	}
	return nil
}

func (m *AccountRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	m.Calls["UpdatePassword"] = append(m.Calls["UpdatePassword"], username)
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, username, passwordHash)
	}
	if a, ok := m.Accounts[username]; ok {
		a.PasswordHash = passwordHash
	}
	return nil
}

func (m *AccountRepository) UpdateFlags(ctx context.Context, username string, flags models.Flags) error {
	m.Calls["UpdateFlags"] = append(m.Calls["UpdateFlags"], username)
	if m.UpdateFlagsFunc != nil {
		return m.UpdateFlagsFunc(ctx, username, flags)
	}
	if a, ok := m.Accounts[username]; ok {
		a.Flags = flags
	}
	return nil
}

func (m *AccountRepository) UpdateUsername(ctx context.Context, username, newUsername string) error {
	m.Calls["UpdateUsername"] = append(m.Calls["UpdateUsername"], username)
	if m.UpdateUsernameFunc != nil {
		return m.UpdateUsernameFunc(ctx, username, newUsername)
	}
	if a, ok := m.Accounts[username]; ok {
		delete(m.Accounts, username)
		a.Username = newUsername
		m.Accounts[newUsername] = a
	}
	return nil
}

// Ensure AccountRepository implements the interface
var _ repositories.AccountRepository = (*AccountRepository)(nil)
