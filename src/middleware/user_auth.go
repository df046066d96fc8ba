package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/accounts-selfhosted/src/services"
	"github.com/rs/zerolog/log"
)

// SessionKey is the context key for the request's *services.Session
const SessionKey = "session"

// SessionMiddleware builds one Session per request. A valid login token for an
// existing, active account loads that identity when the row is still the one
// the token was issued to (same creation time and password); anything else
// yields an anonymous session. Handlers decide whether anonymity is acceptable.
func SessionMiddleware(accounts *services.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := accounts.NewSession()

		if token := tokenFromRequest(c); token != "" {
			claims, err := ValidateSessionToken(token)
			if err == nil {
				loaded, err := accounts.LoadSession(c.Request.Context(), claims.Username)
				switch {
				case err != nil:
					c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
					c.Abort()
					return
				case loaded == nil || !loaded.IsActive():
					log.Debug().
						Str("request_id", GetRequestID(c)).
						Str("username", claims.Username).
						Msg("token for missing or inactive account")
				case !claims.Matches(loaded.Account()):
					log.Info().
						Str("request_id", GetRequestID(c)).
						Str("username", claims.Username).
						Msg("token issued to a replaced account or an old password")
				default:
					session = loaded
				}
			}
		}

		c.Set(SessionKey, session)
		c.Next()
	}
}

// RequireAuthenticated rejects requests whose session is anonymous
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := GetSession(c)
		if s == nil || !s.IsAuthenticated() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetSession retrieves the request's session, nil if SessionMiddleware did not run
func GetSession(c *gin.Context) *services.Session {
	if v, exists := c.Get(SessionKey); exists {
		if s, ok := v.(*services.Session); ok {
			return s
		}
	}
	return nil
}
