package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// ServeIcon serves a stored icon. SVG is served as an image that may not run scripts.
func (h *Handler) ServeIcon(c *gin.Context) {
	name := c.Param("name")
	file, err := h.icons.Path(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	c.Header("X-Content-Type-Options", "nosniff")
	if strings.EqualFold(filepath.Ext(name), ".svg") {
		c.Header("Content-Type", "image/svg+xml")
		c.Header("Content-Security-Policy", "script-src 'none'")
	}
	c.File(file)
}

// Frontend serves the single-page UI from FrontendDir and falls back to
// index.html for client-side routes. API paths and unknown assets get a JSON 404.
func (h *Handler) Frontend(c *gin.Context) {
	reqPath := c.Request.URL.Path
	if h.opts.FrontendDir == "" ||
		(c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) ||
		strings.HasPrefix(reqPath, "/api/") || strings.HasPrefix(reqPath, "/uploads/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	clean := path.Clean("/" + reqPath)
	candidate := filepath.Join(h.opts.FrontendDir, filepath.FromSlash(clean))
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		c.File(candidate)
		return
	}

	index := filepath.Join(h.opts.FrontendDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.File(index)
}
