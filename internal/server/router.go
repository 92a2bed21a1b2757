package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edusync/moodle-sync/internal/platform/logger"
	"github.com/edusync/moodle-sync/internal/services"
)

type RouterConfig struct {
	Log  *logger.Logger
	Sync services.SyncService
}

// NewRouter exposes the operational surface: a health probe and a
// manual sync trigger.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.GET("/healthcheck", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.POST("/sync", func(c *gin.Context) {
			stats, err := cfg.Sync.RunOnce(c.Request.Context())
			if errors.Is(err, services.ErrRunInProgress) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			if err != nil {
				cfg.Log.Error("manual sync failed", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"files":     stats.Files,
				"tasks":     stats.Tasks,
				"published": stats.Published,
			})
		})
	}

	return router
}
