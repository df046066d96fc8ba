package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/khabaroff/accounts-selfhosted/src/models"
)

// SessionCookieName is the cookie carrying the login token
const SessionCookieName = "session_token"

const tokenIssuer = "accounts-selfhosted"

// JWTSecret should be loaded from environment via config
var JWTSecret string

// TokenTTL is the lifetime of issued login tokens
var TokenTTL = 24 * time.Hour

// SetJWTSecret initializes the JWT secret from config
func SetJWTSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if len(secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}
	JWTSecret = secret
	return nil
}

// SessionClaims identifies the account instance a login token was issued to.
// Flags are not carried; the account row is re-read on every request and
// must still match Created and Credential.
type SessionClaims struct {
	Username string `json:"username"`
	// Created is the account's creation time in Unix microseconds, the
	// precision of the created column
	Created int64 `json:"created"`
	// Credential fingerprints the password hash, so a password change
	// invalidates earlier tokens
	Credential string `json:"cred"`
	jwt.RegisteredClaims
}

// credentialFingerprint is a truncated HMAC-SHA256 of the stored hash keyed
// with the token secret. The hash itself never leaves the server.
func credentialFingerprint(passwordHash string) string {
	mac := hmac.New(sha256.New, []byte(JWTSecret))
	mac.Write([]byte(passwordHash))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:16])
}

// Matches reports whether the claims were issued to account as it is now
func (sc *SessionClaims) Matches(account *models.Account) bool {
	if account == nil || account.Username != sc.Username {
		return false
	}
	if account.Created.UnixMicro() != sc.Created {
		return false
	}
	return hmac.Equal([]byte(credentialFingerprint(account.PasswordHash)), []byte(sc.Credential))
}

// GenerateSessionToken creates a login token bound to account
func GenerateSessionToken(account *models.Account) (string, error) {
	if JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not initialized")
	}
	if account == nil || account.Username == "" {
		return "", fmt.Errorf("cannot issue a token without an account")
	}

	now := time.Now()
	claims := SessionClaims{
		Username:   account.Username,
		Created:    account.Created.UnixMicro(),
		Credential: credentialFingerprint(account.PasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(JWTSecret))
}

// ValidateSessionToken verifies a login token and returns its claims
func ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	if JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret not initialized")
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(JWTSecret), nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid || claims.Username == "" {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// SetSessionCookie stores a login token in the session cookie
func SetSessionCookie(c *gin.Context, token string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, int(TokenTTL.Seconds()), "/", "", secure, true)
}

// ClearSessionCookie expires the session cookie
func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", secure, true)
}

// tokenFromRequest reads the login token from the session cookie or a Bearer header
func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return ""
}
