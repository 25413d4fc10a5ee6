package handlers

import (
	"context"
	"log"
	"net/http"
	"phosphor/core"
	"phosphor/icons"
	"phosphor/service"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether the document store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Options are the handler settings taken from config.
type Options struct {
	MaxIconBytes int64
	FrontendDir  string
	BackendName  string
	// AccessList filters clients by address; nil allows everyone.
	AccessList *core.AccessList
}

// Handler serves the dashboard API.
type Handler struct {
	services *service.Services
	icons    *icons.Store
	health   HealthChecker
	opts     Options
}

// New builds a handler around the service container.
func New(services *service.Services, iconStore *icons.Store, health HealthChecker, opts Options) *Handler {
	if opts.MaxIconBytes <= 0 {
		opts.MaxIconBytes = icons.DefaultMaxBytes
	}
	return &Handler{services: services, icons: iconStore, health: health, opts: opts}
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine) {
	// Uploads are kept in memory; the body limit below bounds them.
	r.MaxMultipartMemory = h.opts.MaxIconBytes + multipartOverhead
	if h.opts.AccessList != nil {
		r.Use(accessControl(h.opts.AccessList))
	}

	api := r.Group("/api")
	{
		// Application routes
		api.GET("/applications", h.ListApplications)
		api.POST("/applications", h.CreateApplication)
		api.PUT("/applications/reorder", h.ReorderApplications)
		api.PUT("/applications/:id", h.UpdateApplication)
		api.DELETE("/applications/:id", h.DeleteApplication)

		// Settings routes
		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.UpdateSettings)

		// Error log routes
		api.GET("/error-logs", GetErrorLogs)
		api.DELETE("/error-logs", ClearErrorLogs)

		api.GET("/version", GetVersion)
	}

	r.GET("/health", h.HealthCheck)
	r.GET("/uploads/:name", h.ServeIcon)
	r.HEAD("/uploads/:name", h.ServeIcon)

	r.NoRoute(h.Frontend)
}

// respondError writes {"error": msg} with the status err maps to.
// Internal failures are logged with request context and never leak their cause.
func respondError(c *gin.Context, err error) {
	code, msg := core.StatusOf(err)
	if code >= http.StatusInternalServerError {
		core.RecordError("api", "Request failed", err.Error(), map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		})
	} else if gin.Mode() == gin.DebugMode {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(code, gin.H{"error": msg})
}

// accessControl rejects clients the access list does not allow.
func accessControl(acl *core.AccessList) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !acl.Allows(c.ClientIP()) {
			log.Printf("Rejected request from %s: %s %s", c.ClientIP(), c.Request.Method, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}
