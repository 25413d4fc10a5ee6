package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"phosphor/core"
	"phosphor/icons"
	"phosphor/models"
	"phosphor/service"
	"strings"

	"github.com/gin-gonic/gin"
)

// multipartOverhead is the allowance for form fields and part headers on top of the icon.
const multipartOverhead int64 = 1 << 20

// ListApplications lists all applications sorted by order
func (h *Handler) ListApplications(c *gin.Context) {
	apps, err := h.services.Applications.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

// CreateApplication creates an application from a multipart form
func (h *Handler) CreateApplication(c *gin.Context) {
	in, icon, err := h.bindApplication(c)
	if err != nil {
		respondError(c, err)
		return
	}

	app, err := h.services.Applications.Create(c.Request.Context(), in, icon)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// UpdateApplication replaces name and URL and optionally the icon
func (h *Handler) UpdateApplication(c *gin.Context) {
	in, icon, err := h.bindApplication(c)
	if err != nil {
		respondError(c, err)
		return
	}

	app, err := h.services.Applications.Update(c.Request.Context(), c.Param("id"), in, icon)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

type reorderRequest struct {
	Applications []models.ReorderEntry `json:"applications" binding:"required"`
}

// ReorderApplications assigns order by position in the submitted list
func (h *Handler) ReorderApplications(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, core.NewValidationError("Applications must be an array", err))
		return
	}

	if err := h.services.Applications.Reorder(c.Request.Context(), req.Applications); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteApplication deletes an application and its unreferenced icon
func (h *Handler) DeleteApplication(c *gin.Context) {
	if _, err := h.services.Applications.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// bindApplication reads name, url and the optional "icon" file.
// Multipart and urlencoded forms carry the icon; JSON bodies carry fields only.
func (h *Handler) bindApplication(c *gin.Context) (models.ApplicationCreate, *service.IconUpload, error) {
	var in models.ApplicationCreate

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxIconBytes+multipartOverhead)
	if err := c.ShouldBind(&in); err != nil {
		return in, nil, h.bodyError(err)
	}

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return in, nil, nil
	}

	fh, err := c.FormFile("icon")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, nil
	}
	if err != nil {
		return in, nil, h.bodyError(err)
	}

	icon, err := h.readIcon(fh)
	return in, icon, err
}

// readIcon validates the part header before reading any of its bytes.
func (h *Handler) readIcon(fh *multipart.FileHeader) (*service.IconUpload, error) {
	if err := icons.Validate(fh.Filename, fh.Header.Get("Content-Type"), fh.Size, h.opts.MaxIconBytes); err != nil {
		return nil, core.NewValidationError(icons.UserMessage(err, h.opts.MaxIconBytes), err)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.opts.MaxIconBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > h.opts.MaxIconBytes {
		return nil, core.NewValidationError(icons.UserMessage(icons.ErrTooLarge, h.opts.MaxIconBytes), icons.ErrTooLarge)
	}
	return &service.IconUpload{Filename: fh.Filename, Data: data}, nil
}

// bodyError maps request parsing failures to 400.
func (h *Handler) bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return core.NewValidationError(icons.UserMessage(icons.ErrTooLarge, h.opts.MaxIconBytes), err)
	}
	return core.NewValidationError("Invalid request body", err)
}
