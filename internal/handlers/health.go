package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler reports database reachability and how cleanup is scheduled.
type HealthHandler struct {
	db          *gorm.DB
	cleanupMode func() string
}

func NewHealthHandler(db *gorm.DB, cleanupMode func() string) *HealthHandler {
	return &HealthHandler{db: db, cleanupMode: cleanupMode}
}

// CheckHealth returns the health status of all subsystems.
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := 200

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		dbStatus = "unreachable"
		overall = "unhealthy"
		status = 503
	}

	cleanup := "disabled"
	if h.cleanupMode != nil {
		cleanup = h.cleanupMode()
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "puttlab",
		"components": gin.H{
			"database":      dbStatus,
			"token_cleanup": cleanup,
		},
	})
}
