package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/khabaroff/accounts-selfhosted/src/config"
	"github.com/khabaroff/accounts-selfhosted/src/database"
	"github.com/khabaroff/accounts-selfhosted/src/handlers"
	"github.com/khabaroff/accounts-selfhosted/src/logging"
	"github.com/khabaroff/accounts-selfhosted/src/middleware"
	"github.com/khabaroff/accounts-selfhosted/src/repositories"
	"github.com/khabaroff/accounts-selfhosted/src/services"
	"github.com/khabaroff/accounts-selfhosted/src/templates"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logging
	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	log.Info().
		Int("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Str("password_scheme", cfg.PasswordScheme).
		Msg("starting server")

	// Initialize database
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.New(ctx, database.Options{
		URL:             cfg.DatabaseURL,
		User:            cfg.DatabaseUser,
		Password:        cfg.DatabasePassword,
		MaxConns:        int32(cfg.DBMaxConns), // #nosec G115 -- validated by config
		MinConns:        int32(cfg.DBMinConns), // #nosec G115 -- validated by config
		MaxConnLifetime: cfg.DBMaxConnLifetime,
		MaxConnIdleTime: cfg.DBMaxConnIdle,
	})
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	log.Info().Msg("database connected")

	// Initialize login tokens
	if err := middleware.SetJWTSecret(cfg.JWTSecret); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize JWT secret")
	}
	middleware.TokenTTL = cfg.TokenTTL

	// Initialize password hashing
	hasher, err := services.NewPasswordHasher(services.HasherConfig{
		Scheme: services.PasswordScheme(cfg.PasswordScheme),
		Argon2: services.Argon2Params{
			Memory:      uint32(cfg.Argon2Memory),     // #nosec G115 -- validated by config
			Iterations:  uint32(cfg.Argon2Iterations), // #nosec G115 -- validated by config
			Parallelism: uint8(cfg.Argon2Parallelism), // #nosec G115 -- validated by config
			KeyLength:   services.DefaultArgon2Params.KeyLength,
		},
		BcryptCost: cfg.BcryptCost,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize password hasher")
	}

	// Initialize attribute sealing (optional, empty key disables)
	attrCipher, err := services.NewAttributeCipher(cfg.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize encryption")
	}
	if attrCipher != nil {
		log.Info().Msg("profile attribute encryption enabled (AES-256-GCM)")
	} else {
		log.Info().Msg("profile attribute encryption disabled (ENCRYPTION_KEY not set)")
	}

	// Initialize repositories and services
	accountRepo := repositories.NewPostgresAccountRepository(db.SQLDB())
	profileRepo := repositories.NewPostgresProfileRepository(db.SQLDB())
	accountService := services.NewAccountService(accountRepo, hasher)
	profileService := services.NewProfileServiceWithCipher(profileRepo, attrCipher)

	// Auto-seed admin account on first run (if ADMIN_USERNAME and ADMIN_PASSWORD are set)
	if cfg.AdminUsername != "" {
		created, err := accountService.Bootstrap(context.Background(), cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			log.Error().Err(err).Msg("failed to create initial admin account")
		} else if !created {
			log.Info().Str("username", cfg.AdminUsername).Msg("admin account already exists")
		}
	}

	viewConfig, err := templates.LoadViewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load view config")
	}

	// Create Gin router
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	// Setup routes
	handlers.RegisterRoutes(router, accountService, handlers.Handlers{
		Health:  handlers.NewHealthHandler(db, string(hasher.Scheme())),
		Auth:    handlers.NewAuthHandler(accountService, cfg.CookieSecure),
		Account: handlers.NewAccountHandler(cfg.CookieSecure),
		Profile: handlers.NewProfileHandler(profileService),
		View:    handlers.NewViewHandler(viewConfig),
	})

	// Create HTTP server with timeouts (G112: protect from Slowloris attack)
	srv := &http.Server{
		Addr:              ":" + formatPort(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Graceful shutdown with timeout
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server shut down successfully")
}

// corsConfig allows the comma-separated origins in allowed, or localhost
// development origins when allowed is empty
func corsConfig(allowed string) cors.Config {
	origins := map[string]bool{}
	for _, origin := range strings.Split(allowed, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins[origin] = true
		}
	}

	return cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if len(origins) == 0 {
				return origin == "http://localhost" || origin == "http://localhost:8080"
			}
			return origins[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

func formatPort(port int) string {
	return fmt.Sprintf("%d", port)
}
