package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/accounts-selfhosted/src/templates"
)

// ViewHandler serves the demo page
type ViewHandler struct {
	config *templates.ViewConfig
}

// NewViewHandler creates a new view handler
func NewViewHandler(config *templates.ViewConfig) *ViewHandler {
	return &ViewHandler{config: config}
}

// HandleIndex handles GET /. Admins additionally see the account list.
func (h *ViewHandler) HandleIndex(c *gin.Context) {
	session := currentSession(c)
	data := h.config.NewIndexData()
	data.Username = session.Username()
	data.IsAdmin = session.IsAdmin()

	if session.IsAdmin() {
		accounts, err := session.GetUsers(c.Request.Context())
		if err != nil {
			respondError(c, "view", err)
			return
		}
		data.Accounts = accounts
	}

	html, err := templates.RenderIndexHTML(data)
	if err != nil {
		respondError(c, "view", err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
