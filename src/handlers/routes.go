package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/khabaroff/accounts-selfhosted/src/middleware"
	"github.com/khabaroff/accounts-selfhosted/src/services"
)

// Handlers groups the route handlers registered by RegisterRoutes
type Handlers struct {
	Health  *HealthHandler
	Auth    *AuthHandler
	Account *AccountHandler
	Profile *ProfileHandler
	View    *ViewHandler
}

// RegisterRoutes registers every route on router. Routes other than the health
// endpoints run behind SessionMiddleware.
func RegisterRoutes(router gin.IRouter, accounts *services.AccountService, h Handlers) {
	// Health endpoints (no session)
	router.GET("/health", h.Health.HandleHealth)
	router.GET("/ready", h.Health.HandleReady)
	router.GET("/info", h.Health.HandleInfo)

	app := router.Group("/")
	app.Use(middleware.SessionMiddleware(accounts))

	app.GET("/", h.View.HandleIndex)

	auth := app.Group("/auth")
	{
		auth.POST("/login", h.Auth.HandleLogin)
		auth.POST("/logout", h.Auth.HandleLogout)
		auth.GET("/me", middleware.RequireAuthenticated(), h.Auth.HandleMe)
	}

	me := app.Group("/me")
	me.Use(middleware.RequireAuthenticated())
	{
		me.PUT("/password", h.Account.HandleUpdateOwnPassword)
		me.PUT("/username", h.Account.HandleUpdateOwnUsername)
		me.GET("/profile", h.Profile.HandleGetOwn)
		me.PUT("/profile", h.Profile.HandleSaveOwn)
	}

	accts := app.Group("/accounts")
	accts.Use(middleware.RequireAuthenticated())
	{
		accts.GET("", h.Account.HandleList)
		accts.POST("", h.Account.HandleCreate)
		accts.GET("/:username", h.Account.HandleGet)
		accts.HEAD("/:username", h.Account.HandleExists)
		accts.DELETE("/:username", h.Account.HandleDelete)
		accts.PUT("/:username/password", h.Account.HandleUpdatePassword)
		accts.PUT("/:username/flags", h.Account.HandleUpdateFlags)
		accts.PUT("/:username/username", h.Account.HandleRename)
		accts.GET("/:username/profile", h.Profile.HandleGet)
		accts.PUT("/:username/profile", h.Profile.HandleSave)
		accts.DELETE("/:username/profile", h.Profile.HandleDelete)
	}
}
