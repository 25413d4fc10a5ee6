package service

import (
	"context"
	"errors"
	"fmt"
	"phosphor/core"
	"phosphor/database"
	"phosphor/icons"
	"phosphor/models"
)

// ErrValidation marks errors caused by client input.
var ErrValidation = errors.New("validation failed")

// validationError returns a 400 AppError carrying msg that matches ErrValidation.
func validationError(msg string, cause error) error {
	if cause == nil {
		return core.NewValidationError(msg, ErrValidation)
	}
	return core.NewValidationError(msg, fmt.Errorf("%w: %w", ErrValidation, cause))
}

// ApplicationRepository is the part of the document store the application service needs.
type ApplicationRepository interface {
	ListApplications(ctx context.Context) ([]models.Application, error)
	FindApplication(ctx context.Context, id string) (*models.Application, error)
	CreateApplication(ctx context.Context, in models.ApplicationCreate) (*models.Application, error)
	UpdateApplication(ctx context.Context, id string, upd models.ApplicationUpdate) (*models.Application, error)
	ReorderApplications(ctx context.Context, entries []models.ReorderEntry) error
	DeleteApplication(ctx context.Context, id string) (*models.Application, error)
	CountImageReferences(ctx context.Context, name string) (int, error)
}

// SettingsRepository is the part of the document store the settings service needs.
type SettingsRepository interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	UpdateSettings(ctx context.Context, upd models.SettingsUpdate) (*models.Settings, error)
}

// IconStore stores and removes content-addressed icon files.
type IconStore interface {
	Save(ctx context.Context, data []byte, originalName string) (string, error)
	Remove(name string) error
}

// Services is the service container handed to the HTTP layer
type Services struct {
	Applications *ApplicationService
	Settings     *SettingsService
}

// New wires the services around a single store and icon directory.
func New(store *database.Store, iconStore *icons.Store, maxIconBytes int64) *Services {
	return &Services{
		Applications: NewApplicationService(store, iconStore, maxIconBytes),
		Settings:     NewSettingsService(store),
	}
}
