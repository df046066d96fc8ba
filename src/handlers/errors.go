package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/accounts-selfhosted/src/logging"
	"github.com/khabaroff/accounts-selfhosted/src/middleware"
	"github.com/khabaroff/accounts-selfhosted/src/services"
)

// uniqueViolation is the SQLSTATE for duplicate keys
const uniqueViolation = "23505"

// respondError maps service errors to HTTP responses
func respondError(c *gin.Context, component string, err error) {
	var se *services.StatementError

	switch {
	case errors.Is(err, services.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "permission_denied",
			"message": "You are not allowed to perform this operation",
		})
	case errors.Is(err, services.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "not_authenticated",
			"message": "Authentication required",
		})
	case errors.Is(err, services.ErrEmptyPassword):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Password must not be empty",
		})
	case errors.Is(err, services.ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Password is too long for the configured hashing scheme",
		})
	case errors.Is(err, services.ErrInvalidAttributes):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Profile attributes must be valid JSON",
		})
	case errors.Is(err, services.ErrAttributesSealed):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "attributes_sealed",
			"message": "Stored profile attributes cannot be decrypted with the configured key",
		})
	case errors.As(err, &se):
		status := http.StatusInternalServerError
		if se.Code == uniqueViolation {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{
			"error":   "statement_failed",
			"code":    se.Code,
			"message": se.Message,
		})
	default:
		logger := logging.ComponentLogger(component, middleware.GetRequestID(c))
		logger.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "server_error",
			"message": "Internal server error",
		})
	}
}

// respondBadRequest reports an unparsable request body
func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"message": "Invalid request body",
		"details": err.Error(),
	})
}
