package handlers

import (
	"net/http"
	"time"

	"foodgram-api/cache"
	"foodgram-api/helper"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DatabaseStats struct {
	MaxOpenConnections int           `json:"max_open_connections"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
	MaxIdleClosed      int64         `json:"max_idle_closed"`
	MaxLifetimeClosed  int64         `json:"max_lifetime_closed"`
}

type OpsHandler struct {
	db     *gorm.DB
	cache  *cache.Cache
	Helper *helper.HTTPHelper
}

func NewOpsHandler(db *gorm.DB, c *cache.Cache, h *helper.HTTPHelper) *OpsHandler {
	return &OpsHandler{db: db, cache: c, Helper: h}
}

// Health reports unhealthy when the database does not answer a ping.
func (h *OpsHandler) Health(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *OpsHandler) Metrics(c *gin.Context) {
	metrics := gin.H{}

	if sqlDB, err := h.db.DB(); err == nil {
		stats := sqlDB.Stats()
		metrics["database"] = DatabaseStats{
			MaxOpenConnections: stats.MaxOpenConnections,
			OpenConnections:    stats.OpenConnections,
			InUse:              stats.InUse,
			Idle:               stats.Idle,
			WaitCount:          stats.WaitCount,
			WaitDuration:       stats.WaitDuration,
			MaxIdleClosed:      stats.MaxIdleClosed,
			MaxLifetimeClosed:  stats.MaxLifetimeClosed,
		}
	} else {
		metrics["database"] = "database stats unavailable: " + err.Error()
	}
	metrics["cache"] = h.cache.Stats(c.Request.Context())

	h.Helper.SendSuccess(c, "Metrics loaded", metrics)
}
