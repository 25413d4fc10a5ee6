package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"phosphor/core"
	"phosphor/database"
	"phosphor/icons"
	"phosphor/models"
)

// IconUpload is an uploaded icon file that already passed transport validation.
type IconUpload struct {
	Filename string
	Data     []byte
}

// ApplicationService handles application business logic
type ApplicationService struct {
	repo         ApplicationRepository
	icons        IconStore
	maxIconBytes int64
}

// NewApplicationService constructs an application service
func NewApplicationService(repo ApplicationRepository, iconStore IconStore, maxIconBytes int64) *ApplicationService {
	return &ApplicationService{repo: repo, icons: iconStore, maxIconBytes: maxIconBytes}
}

func requireNameAndURL(in *models.ApplicationCreate) error {
	in.Normalize()
	if in.Name == "" || in.URL == "" {
		return validationError("Name and URL are required", nil)
	}
	return nil
}

func (s *ApplicationService) storeIcon(ctx context.Context, icon *IconUpload) (string, error) {
	name, err := s.icons.Save(ctx, icon.Data, icon.Filename)
	if err != nil {
		if icons.IsValidationError(err) {
			return "", validationError(icons.UserMessage(err, s.maxIconBytes), err)
		}
		return "", fmt.Errorf("failed to store icon: %w", err)
	}
	return name, nil
}

func notFound(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return core.NewNotFoundError("Application not found", err)
	}
	return err
}

// List lists all applications sorted by order
func (s *ApplicationService) List(ctx context.Context) ([]models.Application, error) {
	apps, err := s.repo.ListApplications(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// Get fetches an application by id
func (s *ApplicationService) Get(ctx context.Context, id string) (*models.Application, error) {
	app, err := s.repo.FindApplication(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return app, nil
}

// Create stores the optional icon and appends a new application.
func (s *ApplicationService) Create(ctx context.Context, in models.ApplicationCreate, icon *IconUpload) (*models.Application, error) {
	if err := requireNameAndURL(&in); err != nil {
		return nil, err
	}

	in.Image = nil
	if icon != nil {
		name, err := s.storeIcon(ctx, icon)
		if err != nil {
			return nil, err
		}
		in.Image = &name
	}

	app, err := s.repo.CreateApplication(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	return app, nil
}

// Update replaces name and URL and, when a new icon is uploaded, the icon.
// The previous icon file is released once no record references it.
func (s *ApplicationService) Update(ctx context.Context, id string, in models.ApplicationCreate, icon *IconUpload) (*models.Application, error) {
	if err := requireNameAndURL(&in); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindApplication(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	upd := models.ApplicationUpdate{Name: &in.Name, URL: &in.URL}
	if icon != nil {
		name, err := s.storeIcon(ctx, icon)
		if err != nil {
			return nil, err
		}
		upd.Image = &name
	}

	app, err := s.repo.UpdateApplication(ctx, id, upd)
	if err != nil {
		return nil, notFound(err)
	}

	if old := existing.ImageName(); upd.Image != nil && old != "" && old != *upd.Image {
		s.releaseIcon(ctx, old)
	}
	return app, nil
}

// Reorder assigns order by position in entries.
func (s *ApplicationService) Reorder(ctx context.Context, entries []models.ReorderEntry) error {
	if err := s.repo.ReorderApplications(ctx, entries); err != nil {
		return fmt.Errorf("failed to reorder applications: %w", err)
	}
	return nil
}

// Delete removes an application and releases its icon.
func (s *ApplicationService) Delete(ctx context.Context, id string) (*models.Application, error) {
	removed, err := s.repo.DeleteApplication(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if name := removed.ImageName(); name != "" {
		s.releaseIcon(ctx, name)
	}
	return removed, nil
}

// releaseIcon deletes an icon file that no record references any more.
// Failures are logged; they never fail the calling operation.
func (s *ApplicationService) releaseIcon(ctx context.Context, name string) {
	refs, err := s.repo.CountImageReferences(ctx, name)
	if err != nil {
		core.RecordWarn("icons", "Could not check icon references", fmt.Sprintf("%s: %v", name, err))
		return
	}
	if refs > 0 {
		log.Printf("Keeping icon %s: still referenced by %d application(s)", name, refs)
		return
	}
	if err := s.icons.Remove(name); err != nil {
		core.RecordWarn("icons", "Could not delete image file", err.Error())
	}
}
