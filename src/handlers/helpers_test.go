package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/accounts-selfhosted/src/database"
	"github.com/khabaroff/accounts-selfhosted/src/middleware"
	"github.com/khabaroff/accounts-selfhosted/src/models"
	"github.com/khabaroff/accounts-selfhosted/src/repositories/mock"
	"github.com/khabaroff/accounts-selfhosted/src/services"
	"github.com/khabaroff/accounts-selfhosted/src/templates"
	"github.com/stretchr/testify/require"
)

// Test helpers for handler tests

const testJWTSecret = "handler-test-secret-32-characters"

// testServer is a fully routed engine over mock repositories
type testServer struct {
	router   *gin.Engine
	accounts *services.AccountService
	repo     *mock.AccountRepository
	profiles *mock.ProfileRepository
}

// newTestServer builds the production route table over in-memory repositories
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	original := middleware.JWTSecret
	require.NoError(t, middleware.SetJWTSecret(testJWTSecret))
	t.Cleanup(func() { middleware.JWTSecret = original })

	hasher, err := services.NewPasswordHasher(services.HasherConfig{
		Scheme: services.SchemeArgon2id,
		Argon2: services.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, KeyLength: 32},
	})
	require.NoError(t, err)

	viewConfig, err := templates.LoadViewConfig()
	require.NoError(t, err)

	repo := mock.NewAccountRepository()
	profiles := mock.NewProfileRepository()
	accounts := services.NewAccountService(repo, hasher)

	router := gin.New()
	RegisterRoutes(router, accounts, Handlers{
		Health:  NewHealthHandler(database.NewDatabaseFromPool(nil), string(hasher.Scheme())),
		Auth:    NewAuthHandler(accounts, false),
		Account: NewAccountHandler(false),
		Profile: NewProfileHandler(services.NewProfileService(profiles)),
		View:    NewViewHandler(viewConfig),
	})

	return &testServer{router: router, accounts: accounts, repo: repo, profiles: profiles}
}

// seedAccount stores an account with a real password hash
func (ts *testServer) seedAccount(t *testing.T, username, password string, flags models.Flags) {
	t.Helper()
	hash, err := ts.accounts.Hasher().Hash(password, "")
	require.NoError(t, err)
	ts.repo.Put(models.Account{Username: username, PasswordHash: hash, Flags: flags})
}

// tokenFor issues a login token for the stored account without going
// through /auth/login. Unknown usernames get a token for a bare account.
func (ts *testServer) tokenFor(t *testing.T, username string) string {
	t.Helper()
	account := &models.Account{Username: username}
	if stored, ok := ts.repo.Accounts[username]; ok {
		account = stored
	}
	token, err := middleware.GenerateSessionToken(account)
	require.NoError(t, err)
	return token
}

// do performs a request; body is JSON encoded unless nil, token may be empty
func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

// createTestContext creates a test Gin context with recorder
func createTestContext(method, path string, body io.Reader) (*httptest.ResponseRecorder, *gin.Context) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, body)
	return w, c
}

// assertStatusCode checks if response status code matches expected
func assertStatusCode(t *testing.T, w *httptest.ResponseRecorder, expectedCode int) {
	t.Helper()
	if w.Code != expectedCode {
		t.Errorf("expected status %d, got %d: %s", expectedCode, w.Code, w.Body.String())
	}
}

// assertJSONError checks if response contains expected error code
func assertJSONError(t *testing.T, w *httptest.ResponseRecorder, expectedError string) {
	t.Helper()
	response := decodeJSON(t, w)
	if response["error"] != expectedError {
		t.Errorf("expected error '%s', got '%v'", expectedError, response["error"])
	}
}

// decodeJSON parses the response body as a JSON object
func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return response
}

// requestStatus is used by table tests that only check the status code
type requestStatus struct {
	method string
	path   string
	body   interface{}
	want   int
}

func (rs requestStatus) String() string {
	return rs.method + " " + rs.path
}
