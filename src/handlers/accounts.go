package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/accounts-selfhosted/src/models"
	"github.com/khabaroff/accounts-selfhosted/src/services"
)

// AccountHandler handles account administration and self-service.
// Every operation runs through the request's Session, which enforces
// the admin and self rules.
type AccountHandler struct {
	cookieSecure bool
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(cookieSecure bool) *AccountHandler {
	return &AccountHandler{cookieSecure: cookieSecure}
}

// CreateAccountRequest represents the request body for account creation
type CreateAccountRequest struct {
	Username string `json:"username" binding:"required,max=255"`
	Password string `json:"password" binding:"required"`
}

// PasswordRequest represents the request body for password changes
type PasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// RenameRequest represents the request body for username changes
type RenameRequest struct {
	NewUsername string `json:"new_username" binding:"required,max=255"`
}

// FlagsRequest either replaces the whole mask (Flags) or sets and clears bits.
// Values are bounded by the INTEGER flags column.
type FlagsRequest struct {
	Flags *int `json:"flags" binding:"omitempty,min=0,max=2147483647"`
	Set   int  `json:"set" binding:"min=0,max=2147483647"`
	Clear int  `json:"clear" binding:"min=0,max=2147483647"`
}

// AccountListResponse represents a list of accounts with total count
type AccountListResponse struct {
	Accounts []*models.Account `json:"accounts"`
	Total    int               `json:"total"`
}

// HandleList handles GET /accounts
func (h *AccountHandler) HandleList(c *gin.Context) {
	accounts, err := currentSession(c).GetUsers(c.Request.Context())
	if err != nil {
		respondError(c, "accounts", err)
		return
	}

	c.JSON(http.StatusOK, AccountListResponse{
		Accounts: accounts,
		Total:    len(accounts),
	})
}

// HandleCreate handles POST /accounts. New accounts start with no flags.
func (h *AccountHandler) HandleCreate(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := currentSession(c).Create(c.Request.Context(), req.Username, req.Password); err != nil {
		respondError(c, "accounts", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":   "created",
		"username": req.Username,
	})
}

// HandleGet handles GET /accounts/:username
func (h *AccountHandler) HandleGet(c *gin.Context) {
	account, err := currentSession(c).GetUser(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, "accounts", err)
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

// HandleExists answers HEAD /accounts/:username with 200 or 404. Any
// authenticated caller may ask.
func (h *AccountHandler) HandleExists(c *gin.Context) {
	exists, err := currentSession(c).UsernameExists(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, "accounts", err)
		return
	}
	if !exists {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusOK)
}

// HandleDelete handles DELETE /accounts/:username
func (h *AccountHandler) HandleDelete(c *gin.Context) {
	session := currentSession(c)
	username := c.Param("username")
	if !targetExists(c, session, username) {
		return
	}

	if err := session.Delete(c.Request.Context(), username); err != nil {
		respondError(c, "accounts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "deleted",
	})
}

// HandleUpdatePassword handles PUT /accounts/:username/password
func (h *AccountHandler) HandleUpdatePassword(c *gin.Context) {
	var req PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	session := currentSession(c)
	username := c.Param("username")

	if username == session.Username() {
		h.changeOwnPassword(c, session, req.Password)
		return
	}
	if !targetExists(c, session, username) {
		return
	}

	if err := session.UpdatePassword(c.Request.Context(), username, req.Password); err != nil {
		respondError(c, "accounts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "password updated",
	})
}

// HandleUpdateOwnPassword handles PUT /me/password
func (h *AccountHandler) HandleUpdateOwnPassword(c *gin.Context) {
	var req PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	h.changeOwnPassword(c, currentSession(c), req.Password)
}

// changeOwnPassword updates the acting identity's password and re-issues its
// login token; tokens bound to the old password stop working
func (h *AccountHandler) changeOwnPassword(c *gin.Context, session *services.Session, password string) {
	if err := session.UpdateOwnPassword(c.Request.Context(), password); err != nil {
		respondError(c, "accounts", err)
		return
	}

	token, err := issueSessionToken(c, session, h.cookieSecure)
	if err != nil {
		respondError(c, "accounts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "password updated",
		"token":  token,
	})
}

// HandleUpdateFlags handles PUT /accounts/:username/flags. Flag changes are
// admin-only, including on one's own account.
func (h *AccountHandler) HandleUpdateFlags(c *gin.Context) {
	var req FlagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	session := currentSession(c)
	username := c.Param("username")
	ctx := c.Request.Context()

	if !session.IsAdmin() {
		respondError(c, "accounts", services.ErrPermissionDenied)
		return
	}

	var (
		flags models.Flags
		err   error
	)
	switch {
	case username == session.Username() && req.Flags != nil:
		flags = models.Flags(*req.Flags)
		err = session.UpdateOwnFlags(ctx, flags)
	case username == session.Username():
		session.SetFlags(models.Flags(req.Set))
		session.ClearFlags(models.Flags(req.Clear))
		flags = session.Flags()
		err = session.SaveFlags(ctx)
	case req.Flags != nil:
		if !targetExists(c, session, username) {
			return
		}
		flags = models.Flags(*req.Flags)
		err = session.UpdateUserFlags(ctx, username, flags)
	default:
		var target *models.Account
		target, err = session.GetUser(ctx, username)
		if err == nil && target == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Account not found",
			})
			return
		}
		if err == nil {
			flags = target.Flags.With(models.Flags(req.Set)).Without(models.Flags(req.Clear))
			err = session.UpdateUserFlags(ctx, username, flags)
		}
	}
	if err != nil {
		respondError(c, "accounts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "flags updated",
		"flags":  flags,
	})
}

// HandleRename handles PUT /accounts/:username/username
func (h *AccountHandler) HandleRename(c *gin.Context) {
	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	session := currentSession(c)
	username := c.Param("username")
	if username == session.Username() {
		h.renameSelf(c, session, req.NewUsername)
		return
	}
	if !targetExists(c, session, username) {
		return
	}

	if err := session.UpdateUsername(c.Request.Context(), username, req.NewUsername); err != nil {
		respondError(c, "accounts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "renamed",
		"username": req.NewUsername,
	})
}

// HandleUpdateOwnUsername handles PUT /me/username
func (h *AccountHandler) HandleUpdateOwnUsername(c *gin.Context) {
	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	h.renameSelf(c, currentSession(c), req.NewUsername)
}

// renameSelf renames the acting identity and re-issues its login token,
// since the old token names an account that no longer exists
func (h *AccountHandler) renameSelf(c *gin.Context, session *services.Session, newUsername string) {
	if err := session.UpdateOwnUsername(c.Request.Context(), newUsername); err != nil {
		respondError(c, "accounts", err)
		return
	}

	token, err := issueSessionToken(c, session, h.cookieSecure)
	if err != nil {
		respondError(c, "accounts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "renamed",
		"username": session.Username(),
		"token":    token,
	})
}
