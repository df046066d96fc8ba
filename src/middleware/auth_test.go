package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/khabaroff/accounts-selfhosted/src/models"
	"github.com/khabaroff/accounts-selfhosted/src/repositories/mock"
	"github.com/khabaroff/accounts-selfhosted/src/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-for-unit-tests-32ch!"

// withTestSecret installs a JWT secret for the duration of the test
func withTestSecret(t *testing.T) {
	t.Helper()
	original := JWTSecret
	require.NoError(t, SetJWTSecret(testSecret))
	t.Cleanup(func() { JWTSecret = original })
}

func newTestAccounts(t *testing.T) (*services.AccountService, *mock.AccountRepository) {
	t.Helper()
	hasher, err := services.NewPasswordHasher(services.HasherConfig{})
	require.NoError(t, err)
	repo := mock.NewAccountRepository()
	return services.NewAccountService(repo, hasher), repo
}

// sessionRouter serves GET /whoami behind SessionMiddleware
func sessionRouter(accounts *services.AccountService, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SessionMiddleware(accounts))
	router.Use(extra...)
	router.GET("/whoami", func(c *gin.Context) {
		s := GetSession(c)
		c.JSON(http.StatusOK, gin.H{"username": s.Username(), "admin": s.IsAdmin()})
	})
	return router
}

func TestSetJWTSecret(t *testing.T) {
	original := JWTSecret
	defer func() { JWTSecret = original }()

	assert.Error(t, SetJWTSecret(""))
	assert.Error(t, SetJWTSecret("short"))
	assert.NoError(t, SetJWTSecret(testSecret))
	assert.Equal(t, testSecret, JWTSecret)
}

func TestSessionToken_RoundTrip(t *testing.T) {
	withTestSecret(t)

	created := time.Date(2024, 3, 1, 12, 0, 0, 123456000, time.UTC)
	account := &models.Account{Username: "alice", PasswordHash: "$argon2id$stored", Created: created}
	token, err := GenerateSessionToken(account)
	require.NoError(t, err)

	claims, err := ValidateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, created.UnixMicro(), claims.Created)
	assert.NotContains(t, token, "stored")
	assert.True(t, claims.Matches(account))
	assert.WithinDuration(t, time.Now().Add(TokenTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestSessionToken_Rejected(t *testing.T) {
	withTestSecret(t)

	t.Run("garbage", func(t *testing.T) {
		_, err := ValidateSessionToken("invalid_token")
		assert.Error(t, err)
	})

	t.Run("other secret", func(t *testing.T) {
		token, err := GenerateSessionToken(&models.Account{Username: "alice"})
		require.NoError(t, err)
		JWTSecret = "another-secret-that-is-32-chars!!"
		defer func() { JWTSecret = testSecret }()

		_, err = ValidateSessionToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		claims := SessionClaims{
			Username: "alice",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
				Issuer:    tokenIssuer,
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))
		require.NoError(t, err)

		_, err = ValidateSessionToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := SessionClaims{
			Username:         "alice",
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))
		require.NoError(t, err)

		_, err = ValidateSessionToken(token)
		assert.Error(t, err)
	})

	t.Run("no account", func(t *testing.T) {
		_, err := GenerateSessionToken(nil)
		assert.Error(t, err)
		_, err = GenerateSessionToken(&models.Account{})
		assert.Error(t, err)
	})

	t.Run("no secret", func(t *testing.T) {
		JWTSecret = ""
		defer func() { JWTSecret = testSecret }()

		_, err := GenerateSessionToken(&models.Account{Username: "alice"})
		assert.Error(t, err)
	})
}

func TestSessionMiddleware_Anonymous(t *testing.T) {
	withTestSecret(t)
	accounts, repo := newTestAccounts(t)

	w := httptest.NewRecorder()
	sessionRouter(accounts).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"","admin":false}`, w.Body.String())
	assert.Zero(t, repo.CallCount())
}

func TestSessionMiddleware_LoadsIdentityFromCookie(t *testing.T) {
	withTestSecret(t)
	accounts, repo := newTestAccounts(t)
	repo.Put(models.Account{Username: "root", Flags: models.AllFlags})

	token, err := GenerateSessionToken(&models.Account{Username: "root"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	w := httptest.NewRecorder()
	sessionRouter(accounts).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"root","admin":true}`, w.Body.String())
}

func TestSessionMiddleware_LoadsIdentityFromBearer(t *testing.T) {
	withTestSecret(t)
	accounts, repo := newTestAccounts(t)
	repo.Put(models.Account{Username: "alice", Flags: models.FlagActive})

	token, err := GenerateSessionToken(&models.Account{Username: "alice"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	sessionRouter(accounts).ServeHTTP(w, req)

	assert.JSONEq(t, `{"username":"alice","admin":false}`, w.Body.String())
}

func TestSessionMiddleware_FlagsComeFromStoreNotToken(t *testing.T) {
	withTestSecret(t)
	accounts, repo := newTestAccounts(t)
	repo.Put(models.Account{Username: "alice", Flags: models.AllFlags})

	token, err := GenerateSessionToken(&models.Account{Username: "alice"})
	require.NoError(t, err)

	// admin bit revoked after the token was issued
	repo.Accounts["alice"].Flags = models.FlagActive

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	sessionRouter(accounts).ServeHTTP(w, req)

	assert.JSONEq(t, `{"username":"alice","admin":false}`, w.Body.String())
}

func TestSessionMiddleware_InactiveOrMissingIsAnonymous(t *testing.T) {
	withTestSecret(t)
	accounts, repo := newTestAccounts(t)
	repo.Put(models.Account{Username: "dormant", Flags: models.FlagAdmin})

	for _, username := range []string{"dormant", "ghost"} {
		t.Run(username, func(t *testing.T) {
			token, err := GenerateSessionToken(&models.Account{Username: username})
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			sessionRouter(accounts, RequireAuthenticated()).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestSessionMiddleware_InvalidTokenIsAnonymous(t *testing.T) {
	withTestSecret(t)
	accounts, repo := newTestAccounts(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer invalid_token")
	w := httptest.NewRecorder()
	sessionRouter(accounts, RequireAuthenticated()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, repo.CallCount())
}

func TestSessionMiddleware_StoreFailure(t *testing.T) {
	withTestSecret(t)
	accounts, repo := newTestAccounts(t)
	repo.FindByUsernameFunc = func(ctx context.Context, username string) ([]*models.Account, error) {
		return nil, errors.New("connection reset")
	}

	token, err := GenerateSessionToken(&models.Account{Username: "alice"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	sessionRouter(accounts).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSessionClaims_Matches(t *testing.T) {
	withTestSecret(t)
	created := time.Now().UTC()
	issued := &models.Account{Username: "alice", PasswordHash: "hash-1", Created: created}

	token, err := GenerateSessionToken(issued)
	require.NoError(t, err)
	claims, err := ValidateSessionToken(token)
	require.NoError(t, err)

	tests := []struct {
		name    string
		account *models.Account
		want    bool
	}{
		{"same account", &models.Account{Username: "alice", PasswordHash: "hash-1", Created: created, Flags: models.AllFlags}, true},
		{"same instant in another zone", &models.Account{Username: "alice", PasswordHash: "hash-1", Created: created.In(time.FixedZone("X", 3600))}, true},
		{"recreated", &models.Account{Username: "alice", PasswordHash: "hash-1", Created: created.Add(time.Second)}, false},
		{"password changed", &models.Account{Username: "alice", PasswordHash: "hash-2", Created: created}, false},
		{"other username", &models.Account{Username: "bob", PasswordHash: "hash-1", Created: created}, false},
		{"missing", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, claims.Matches(tt.account))
		})
	}
}

// bearerWhoami sends token to /whoami behind RequireAuthenticated
func bearerWhoami(accounts *services.AccountService, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	sessionRouter(accounts, RequireAuthenticated()).ServeHTTP(w, req)
	return w
}

func TestSessionMiddleware_TokenDoesNotSurviveRecreate(t *testing.T) {
	withTestSecret(t)
	accounts, repo := newTestAccounts(t)
	original := models.Account{
		Username:     "alice",
		PasswordHash: "hash-alice",
		Created:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Flags:        models.FlagActive,
	}
	repo.Put(original)

	token, err := GenerateSessionToken(&original)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, bearerWhoami(accounts, token).Code)

	delete(repo.Accounts, "alice")
	repo.Put(models.Account{
		Username:     "alice",
		PasswordHash: "hash-new-alice",
		Created:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Flags:        models.AllFlags,
	})

	w := bearerWhoami(accounts, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), `"admin":true`)
}

func TestSessionMiddleware_TokenDoesNotSurviveRenameTakeover(t *testing.T) {
	withTestSecret(t)
	accounts, repo := newTestAccounts(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bob := models.Account{Username: "bob", PasswordHash: "hash-bob", Created: created, Flags: models.FlagActive}
	repo.Put(bob)

	token, err := GenerateSessionToken(&bob)
	require.NoError(t, err)

	// bob is renamed away and an admin is renamed onto his old name
	delete(repo.Accounts, "bob")
	repo.Put(models.Account{Username: "bob", PasswordHash: "hash-root", Created: created.Add(-time.Hour), Flags: models.AllFlags})

	assert.Equal(t, http.StatusUnauthorized, bearerWhoami(accounts, token).Code)
}

func TestSessionMiddleware_PasswordChangeRevokesTokens(t *testing.T) {
	withTestSecret(t)
	accounts, repo := newTestAccounts(t)
	ctx := context.Background()

	hash, err := accounts.Hasher().Hash("old-password", "")
	require.NoError(t, err)
	repo.Put(models.Account{Username: "alice", PasswordHash: hash, Created: time.Now().UTC(), Flags: models.FlagActive})

	session := accounts.NewSession()
	ok, err := session.Authenticate(ctx, "alice", "old-password")
	require.NoError(t, err)
	require.True(t, ok)

	oldToken, err := GenerateSessionToken(session.Account())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, bearerWhoami(accounts, oldToken).Code)

	require.NoError(t, session.UpdateOwnPassword(ctx, "new-password"))
	assert.Equal(t, http.StatusUnauthorized, bearerWhoami(accounts, oldToken).Code)

	newToken, err := GenerateSessionToken(session.Account())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, bearerWhoami(accounts, newToken).Code)
}

func TestSessionCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SetSessionCookie(c, "tok", true)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
}
