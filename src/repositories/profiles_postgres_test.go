package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/khabaroff/accounts-selfhosted/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var profileRowColumns = []string{"username", "first_name", "last_name", "latitude", "longitude", "email", "phone", "attributes"}

func newProfileRepoWithMock(t *testing.T) (*PostgresProfileRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresProfileRepository(db), mock
}

func TestProfileGet_Found(t *testing.T) {
	repo, mock := newProfileRepoWithMock(t)

	rows := sqlmock.NewRows(profileRowColumns).
		AddRow("alice", "Alice", nil, 52.52, 13.40, "alice@example.com", nil, []byte(`{"theme":"dark"}`))
	mock.ExpectQuery(`(?s)SELECT\s+username,.*FROM\s+account_profiles\s+WHERE\s+username\s*=\s*\$1`).
		WithArgs("alice").
		WillReturnRows(rows)

	p, err := repo.Get(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotNil(t, p.FirstName)
	assert.Equal(t, "Alice", *p.FirstName)
	assert.Nil(t, p.LastName)
	require.NotNil(t, p.Latitude)
	assert.InDelta(t, 52.52, *p.Latitude, 1e-9)
	assert.Nil(t, p.Phone)
	assert.JSONEq(t, `{"theme":"dark"}`, string(p.Attributes))
}

func TestProfileGet_MissingIsNil(t *testing.T) {
	repo, mock := newProfileRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+account_profiles`).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows(profileRowColumns))

	p, err := repo.Get(context.Background(), "bob")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProfileGet_DBError(t *testing.T) {
	repo, mock := newProfileRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+account_profiles`).WillReturnError(errors.New("boom"))

	_, err := repo.Get(context.Background(), "bob")
	require.Error(t, err)
	assert.Regexp(t, `db error: .*boom`, err.Error())
}

func TestProfileUpsert(t *testing.T) {
	repo, mock := newProfileRepoWithMock(t)

	first := "Alice"
	lat := 1.5
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+account_profiles.*ON\s+CONFLICT\s+\(username\)\s+DO\s+UPDATE`).
		WithArgs("alice", "Alice", nil, 1.5, nil, nil, nil, []byte(`{"a":1}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), &models.Profile{
		Username:   "alice",
		FirstName:  &first,
		Latitude:   &lat,
		Attributes: json.RawMessage(`{"a":1}`),
	})
	require.NoError(t, err)
}

func TestProfileDelete(t *testing.T) {
	repo, mock := newProfileRepoWithMock(t)

	mock.ExpectExec(`DELETE\s+FROM\s+account_profiles\s+WHERE\s+username\s*=\s*\$1`).
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "alice"))
}
