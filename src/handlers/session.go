package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/accounts-selfhosted/src/middleware"
	"github.com/khabaroff/accounts-selfhosted/src/services"
)

// currentSession returns the request's session. SessionMiddleware always sets one.
func currentSession(c *gin.Context) *services.Session {
	return middleware.GetSession(c)
}

// issueSessionToken signs a token for the session's current account state
// and stores it in the session cookie
func issueSessionToken(c *gin.Context, session *services.Session, secure bool) (string, error) {
	token, err := middleware.GenerateSessionToken(session.Account())
	if err != nil {
		return "", err
	}
	middleware.SetSessionCookie(c, token, secure)
	return token, nil
}

// targetExists answers 404 when an admin addresses a missing account. The
// statements themselves succeed on zero rows. Non-admins skip the lookup and
// get the session's permission error instead, so existence is not revealed.
func targetExists(c *gin.Context, session *services.Session, username string) bool {
	if !session.IsAdmin() {
		return true
	}

	exists, err := session.UsernameExists(c.Request.Context(), username)
	if err != nil {
		respondError(c, "accounts", err)
		return false
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Account not found",
		})
		return false
	}
	return true
}
