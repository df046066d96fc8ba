package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/accounts-selfhosted/src/models"
	"github.com/khabaroff/accounts-selfhosted/src/services"
)

// ProfileHandler handles profile reads and writes
type ProfileHandler struct {
	profiles *services.ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// ProfileRequest represents the request body for saving a profile.
// The username always comes from the route or the acting identity.
type ProfileRequest struct {
	FirstName  *string         `json:"first_name" binding:"omitempty,max=255"`
	LastName   *string         `json:"last_name" binding:"omitempty,max=255"`
	Latitude   *float64        `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude  *float64        `json:"longitude" binding:"omitempty,min=-180,max=180"`
	Email      *string         `json:"email" binding:"omitempty,email"`
	Phone      *string         `json:"phone" binding:"omitempty,max=64"`
	Attributes json.RawMessage `json:"attributes"`
}

func (r *ProfileRequest) toProfile() *models.Profile {
	return &models.Profile{
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Email:      r.Email,
		Phone:      r.Phone,
		Attributes: r.Attributes,
	}
}

// HandleGetOwn handles GET /me/profile
func (h *ProfileHandler) HandleGetOwn(c *gin.Context) {
	profile, err := h.profiles.GetOwnProfile(c.Request.Context(), currentSession(c))
	h.respondProfile(c, profile, err)
}

// HandleSaveOwn handles PUT /me/profile
func (h *ProfileHandler) HandleSaveOwn(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.profiles.SaveOwnProfile(c.Request.Context(), currentSession(c), req.toProfile()); err != nil {
		respondError(c, "profiles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "saved",
	})
}

// HandleGet handles GET /accounts/:username/profile
func (h *ProfileHandler) HandleGet(c *gin.Context) {
	profile, err := h.profiles.GetProfile(c.Request.Context(), currentSession(c), c.Param("username"))
	h.respondProfile(c, profile, err)
}

// HandleSave handles PUT /accounts/:username/profile
func (h *ProfileHandler) HandleSave(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	session := currentSession(c)
	username := c.Param("username")

	var err error
	if username == session.Username() {
		err = h.profiles.SaveOwnProfile(c.Request.Context(), session, req.toProfile())
	} else {
		err = h.profiles.SaveProfile(c.Request.Context(), session, username, req.toProfile())
	}
	if err != nil {
		respondError(c, "profiles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "saved",
	})
}

// HandleDelete handles DELETE /accounts/:username/profile
func (h *ProfileHandler) HandleDelete(c *gin.Context) {
	if err := h.profiles.DeleteProfile(c.Request.Context(), currentSession(c), c.Param("username")); err != nil {
		respondError(c, "profiles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "deleted",
	})
}

func (h *ProfileHandler) respondProfile(c *gin.Context, profile *models.Profile, err error) {
	if err != nil {
		respondError(c, "profiles", err)
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Profile not found",
		})
		return
	}

	c.JSON(http.StatusOK, profile)
}
