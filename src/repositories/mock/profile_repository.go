package mock

import (
	"context"

	"github.com/khabaroff/accounts-selfhosted/src/models"
	"github.com/khabaroff/accounts-selfhosted/src/repositories"
)

// ProfileRepository is a mock implementation of repositories.ProfileRepository
type ProfileRepository struct {
	GetFunc    func(ctx context.Context, username string) (*models.Profile, error)
	UpsertFunc func(ctx context.Context, profile *models.Profile) error
	DeleteFunc func(ctx context.Context, username string) error

	Profiles map[string]*models.Profile

	// Call tracking
	Calls map[string][]interface{}
}

// NewProfileRepository creates a new mock profile repository
func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{
		Profiles: make(map[string]*models.Profile),
		Calls:    make(map[string][]interface{}),
	}
}

func (m *ProfileRepository) Get(ctx context.Context, username string) (*models.Profile, error) {
	m.Calls["Get"] = append(m.Calls["Get"], username)
	if m.GetFunc != nil {
		return m.GetFunc(ctx, username)
	}
	if p, ok := m.Profiles[username]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *ProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	m.Calls["Upsert"] = append(m.Calls["Upsert"], profile)
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, profile)
	}
	cp := *profile
	m.Profiles[profile.Username] = &cp
	return nil
}

func (m *ProfileRepository) Delete(ctx context.Context, username string) error {
	m.Calls["Delete"] = append(m.Calls["Delete"], username)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, username)
	}
	delete(m.Profiles, username)
	return nil
}

// Ensure ProfileRepository implements the interface
var _ repositories.ProfileRepository = (*ProfileRepository)(nil)
