package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/accounts-selfhosted/src/middleware"
	"github.com/khabaroff/accounts-selfhosted/src/models"
	"github.com/khabaroff/accounts-selfhosted/src/services"
)

// AuthHandler handles login, logout and identity lookups
type AuthHandler struct {
	accounts     *services.AccountService
	cookieSecure bool
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(accounts *services.AccountService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		accounts:     accounts,
		cookieSecure: cookieSecure,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response for successful login
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt int64           `json:"expires_at"`
	Account   *models.Account `json:"account"`
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	session := h.accounts.NewSession()
	ok, err := session.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, "auth", err)
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_credentials",
			"message": "Invalid username or password",
		})
		return
	}

	token, err := issueSessionToken(c, session, h.cookieSecure)
	if err != nil {
		respondError(c, "auth", err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(middleware.TokenTTL).Unix(),
		Account:   session.Account(),
	})
}

// HandleLogout handles POST /auth/logout
func (h *AuthHandler) HandleLogout(c *gin.Context) {
	middleware.ClearSessionCookie(c, h.cookieSecure)
	c.JSON(http.StatusOK, gin.H{
		"status": "logged out",
	})
}

// HandleMe handles GET /auth/me
func (h *AuthHandler) HandleMe(c *gin.Context) {
	account, err := currentSession(c).GetSelf(c.Request.Context())
	if err != nil {
		respondError(c, "auth", err)
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Account not found",
		})
		return
	}

	c.JSON(http.StatusOK, account)
}
