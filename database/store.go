package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"phosphor/models"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an application id is not in the collection.
var ErrNotFound = errors.New("application not found")

// Store is the document store for the applications list and the settings object.
// Every mutation reads, modifies and rewrites the whole document under that
// document's lock.
type Store struct {
	backend Backend

	appsMu     sync.Mutex
	settingsMu sync.Mutex

	// lastOrder is the largest creation order handed out; guarded by appsMu.
	lastOrder int64

	now   func() time.Time
	newID func() (string, error)
}

// NewStore wraps backend. Call Initialize before serving requests.
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   newApplicationID,
	}
}

// newApplicationID returns a UUIDv7: a millisecond timestamp prefix plus random bits.
func newApplicationID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Initialize prepares the backend and creates any missing document with its default.
// It is safe to call on every start.
func (s *Store) Initialize(ctx context.Context) error {
	if err := s.backend.Init(ctx); err != nil {
		return err
	}

	now := s.now()
	defaults := []struct {
		name  string
		value any
	}{
		{ApplicationsDocument, []models.Application{}},
		{SettingsDocument, models.DefaultSettings(now)},
	}

	for _, d := range defaults {
		_, found, err := s.backend.Load(ctx, d.name)
		if err != nil {
			return err
		}
		if found {
			continue
		}
		if err := s.save(ctx, d.name, d.value); err != nil {
			return err
		}
		log.Printf("Created %s document with default data", d.name)
	}

	log.Printf("Document store initialized (%s backend)", s.backend.Name())
	return nil
}

func (s *Store) save(ctx context.Context, name string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return s.backend.Save(ctx, name, data)
}

func (s *Store) readApplications(ctx context.Context) ([]models.Application, error) {
	data, found, err := s.backend.Load(ctx, ApplicationsDocument)
	if err != nil {
		return nil, err
	}
	apps := []models.Application{}
	if !found {
		return apps, nil
	}
	if err := json.Unmarshal(data, &apps); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", ApplicationsDocument, err)
	}
	if apps == nil {
		apps = []models.Application{}
	}
	return apps, nil
}

func (s *Store) writeApplications(ctx context.Context, apps []models.Application) error {
	return s.save(ctx, ApplicationsDocument, apps)
}

func indexOf(apps []models.Application, id string) int {
	for i := range apps {
		if apps[i].ID == id {
			return i
		}
	}
	return -1
}

// ListApplications returns all records sorted ascending by order.
// Records with equal order keep their stored (insertion) order.
func (s *Store) ListApplications(ctx context.Context) ([]models.Application, error) {
	apps, err := s.readApplications(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(apps, func(i, j int) bool { return apps[i].Order < apps[j].Order })
	return apps, nil
}

// FindApplication returns the record with the given id.
func (s *Store) FindApplication(ctx context.Context, id string) (*models.Application, error) {
	apps, err := s.readApplications(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(apps, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return &apps[i], nil
}

// CreateApplication appends a new record with a fresh id and timestamps.
// A zero Order is replaced by the creation time in Unix milliseconds, bumped so
// it stays strictly increasing within this process.
func (s *Store) CreateApplication(ctx context.Context, in models.ApplicationCreate) (*models.Application, error) {
	s.appsMu.Lock()
	defer s.appsMu.Unlock()

	apps, err := s.readApplications(ctx)
	if err != nil {
		return nil, err
	}

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	now := s.now()
	order := in.Order
	if order == 0 {
		order = now.UnixMilli()
		if order <= s.lastOrder {
			order = s.lastOrder + 1
		}
		s.lastOrder = order
	}

	app := models.Application{
		ID:        id,
		Name:      in.Name,
		URL:       in.URL,
		Image:     in.Image,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}

	apps = append(apps, app)
	if err := s.writeApplications(ctx, apps); err != nil {
		return nil, err
	}
	return &app, nil
}

// UpdateApplication merges the non-nil fields of upd into the record and refreshes updatedAt.
func (s *Store) UpdateApplication(ctx context.Context, id string, upd models.ApplicationUpdate) (*models.Application, error) {
	s.appsMu.Lock()
	defer s.appsMu.Unlock()

	apps, err := s.readApplications(ctx)
	if err != nil {
		return nil, err
	}

	i := indexOf(apps, id)
	if i < 0 {
		return nil, ErrNotFound
	}

	app := &apps[i]
	if upd.Name != nil {
		app.Name = *upd.Name
	}
	if upd.URL != nil {
		app.URL = *upd.URL
	}
	if upd.Image != nil {
		app.Image = upd.Image
	}
	if upd.Order != nil {
		app.Order = *upd.Order
	}
	app.UpdatedAt = s.now()

	if err := s.writeApplications(ctx, apps); err != nil {
		return nil, err
	}
	updated := *app
	return &updated, nil
}

// ReorderApplications sets order = index for every supplied id that exists.
// Unknown ids are ignored and records that were not supplied keep their order.
func (s *Store) ReorderApplications(ctx context.Context, entries []models.ReorderEntry) error {
	s.appsMu.Lock()
	defer s.appsMu.Unlock()

	apps, err := s.readApplications(ctx)
	if err != nil {
		return err
	}

	byID := make(map[string]int, len(apps))
	for i := range apps {
		byID[apps[i].ID] = i
	}

	now := s.now()
	for index, entry := range entries {
		i, ok := byID[entry.Key()]
		if !ok {
			continue
		}
		apps[i].Order = int64(index)
		apps[i].UpdatedAt = now
	}

	return s.writeApplications(ctx, apps)
}

// DeleteApplication removes the record and returns it.
func (s *Store) DeleteApplication(ctx context.Context, id string) (*models.Application, error) {
	s.appsMu.Lock()
	defer s.appsMu.Unlock()

	apps, err := s.readApplications(ctx)
	if err != nil {
		return nil, err
	}

	i := indexOf(apps, id)
	if i < 0 {
		return nil, ErrNotFound
	}

	removed := apps[i]
	apps = append(apps[:i], apps[i+1:]...)
	if err := s.writeApplications(ctx, apps); err != nil {
		return nil, err
	}
	return &removed, nil
}

// CountImageReferences returns how many records point at the icon file name.
func (s *Store) CountImageReferences(ctx context.Context, name string) (int, error) {
	if name == "" {
		return 0, nil
	}
	apps, err := s.readApplications(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := range apps {
		if apps[i].ImageName() == name {
			count++
		}
	}
	return count, nil
}

func (s *Store) readSettings(ctx context.Context) (*models.Settings, error) {
	data, found, err := s.backend.Load(ctx, SettingsDocument)
	if err != nil {
		return nil, err
	}
	if !found {
		settings := models.DefaultSettings(s.now())
		return &settings, nil
	}

	var settings models.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", SettingsDocument, err)
	}
	return &settings, nil
}

// GetSettings returns the settings document.
func (s *Store) GetSettings(ctx context.Context) (*models.Settings, error) {
	return s.readSettings(ctx)
}

// UpdateSettings merges the non-nil fields of upd into the settings document.
func (s *Store) UpdateSettings(ctx context.Context, upd models.SettingsUpdate) (*models.Settings, error) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	settings, err := s.readSettings(ctx)
	if err != nil {
		return nil, err
	}

	if upd.Language != nil {
		settings.Language = *upd.Language
	}
	if upd.PhosphorIcons != nil {
		settings.PhosphorIcons = *upd.PhosphorIcons
	}
	if upd.CustomTitle != nil {
		title := *upd.CustomTitle
		settings.CustomTitle = &title
	}
	settings.UpdatedAt = s.now()

	if err := s.save(ctx, SettingsDocument, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Ping checks that the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Stats returns backend runtime counters, or nil when the backend keeps none.
func (s *Store) Stats() map[string]any {
	if r, ok := s.backend.(interface{ Stats() map[string]any }); ok {
		return r.Stats()
	}
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
