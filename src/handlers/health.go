package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/accounts-selfhosted/src/database"
	"github.com/khabaroff/accounts-selfhosted/src/logging"
	"github.com/khabaroff/accounts-selfhosted/src/middleware"
)

// ServiceName and Version are reported by the info endpoint
const (
	ServiceName = "accounts-selfhosted"
	Version     = "1.0.0"
)

var startTime = time.Now()

// HealthHandler serves liveness, readiness and service info
type HealthHandler struct {
	db             *database.Database
	passwordScheme string
}

// NewHealthHandler creates a new health handler. passwordScheme is the
// scheme new hashes are written with.
func NewHealthHandler(db *database.Database, passwordScheme string) *HealthHandler {
	return &HealthHandler{
		db:             db,
		passwordScheme: passwordScheme,
	}
}

// HandleHealth pings the database. Driver errors are logged, not returned.
func (hh *HealthHandler) HandleHealth(c *gin.Context) {
	start := time.Now()
	err := hh.db.Health(c.Request.Context())
	dbLatency := time.Since(start)

	if err != nil {
		logger := logging.ComponentLogger("health", middleware.GetRequestID(c))
		logger.Warn().Err(err).Msg("database ping failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"database":   "connected",
		"db_latency": dbLatency.String(),
		"uptime":     time.Since(startTime).String(),
	})
}

// HandleReady reports ready once the database answers and the account
// tables exist
func (hh *HealthHandler) HandleReady(c *gin.Context) {
	ctx := c.Request.Context()
	checks := gin.H{"database": false, "schema": false}

	if err := hh.db.Health(ctx); err == nil {
		checks["database"] = true
		if ok, err := hh.db.SchemaReady(ctx); err == nil && ok {
			checks["schema"] = true
		}
	}

	ready := checks["database"] == true && checks["schema"] == true
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "checks": checks})
}

// HandleInfo returns service metadata and, when connected, pool statistics
func (hh *HealthHandler) HandleInfo(c *gin.Context) {
	info := gin.H{
		"service":         ServiceName,
		"version":         Version,
		"status":          "running",
		"uptime":          time.Since(startTime).String(),
		"password_scheme": hh.passwordScheme,
	}

	if stat := hh.db.Stats(); stat != nil {
		info["pool"] = gin.H{
			"total_conns":    stat.TotalConns(),
			"idle_conns":     stat.IdleConns(),
			"acquired_conns": stat.AcquiredConns(),
			"max_conns":      stat.MaxConns(),
		}
	}

	c.JSON(http.StatusOK, info)
}
