package handlers

import (
	"net/http"
	"phosphor/core"
	"phosphor/models"

	"github.com/gin-gonic/gin"
)

// GetSettings returns the settings document
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.services.Settings.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings merges the submitted fields into the settings document
func (h *Handler) UpdateSettings(c *gin.Context) {
	var upd models.SettingsUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		respondError(c, core.NewValidationError("Invalid settings payload", err))
		return
	}

	settings, err := h.services.Settings.Update(c.Request.Context(), upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
