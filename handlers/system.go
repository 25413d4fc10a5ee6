package handlers

import (
	"context"
	"net/http"
	"phosphor/core"
	"phosphor/version"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports liveness and store connectivity
func (h *Handler) HealthCheck(c *gin.Context) {
	health := gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"backend":   h.opts.BackendName,
	}

	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			health["status"] = "degraded"
			health["detail"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, health)
			return
		}
	}

	if r, ok := h.health.(interface{ Stats() map[string]any }); ok {
		if stats := r.Stats(); len(stats) > 0 {
			health["storage"] = stats
		}
	}

	c.JSON(http.StatusOK, health)
}

// GetErrorLogs returns the most recent server-side failures
func GetErrorLogs(c *gin.Context) {
	c.JSON(http.StatusOK, core.Errors.Entries())
}

// ClearErrorLogs wipes error logs
func ClearErrorLogs(c *gin.Context) {
	core.Errors.Clear()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Error logs cleared"})
}

// GetVersion returns build information
func GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}
