package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"phosphor/core"
	"phosphor/database"
	"phosphor/icons"
	"phosphor/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg"><circle r="4"/></svg>`

type fixture struct {
	store    *database.Store
	icons    *icons.Store
	services *Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	store := database.NewStore(database.NewFileBackend(filepath.Join(root, "data")))
	require.NoError(t, store.Initialize(context.Background()))

	iconStore := icons.NewStore(filepath.Join(root, "uploads"), icons.DefaultSize)
	require.NoError(t, iconStore.Init())

	return &fixture{
		store:    store,
		icons:    iconStore,
		services: New(store, iconStore, icons.DefaultMaxBytes),
	}
}

func pngUpload(t *testing.T, c color.Color) *IconUpload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &IconUpload{Filename: "icon.png", Data: buf.Bytes()}
}

func statusOf(err error) int {
	code, _ := core.StatusOf(err)
	return code
}

func TestCreate_RequiresNameAndURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, in := range []models.ApplicationCreate{
		{Name: "", URL: "https://mail.example"},
		{Name: "Mail", URL: "   "},
	} {
		_, err := f.services.Applications.Create(ctx, in, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, http.StatusBadRequest, statusOf(err))
	}

	apps, err := f.services.Applications.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestCreate_WithIcon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	app, err := f.services.Applications.Create(ctx,
		models.ApplicationCreate{Name: " Mail ", URL: "https://mail.example"},
		&IconUpload{Filename: "mail.svg", Data: []byte(testSVG)})
	require.NoError(t, err)

	assert.Equal(t, "Mail", app.Name)
	require.NotNil(t, app.Image)
	assert.True(t, f.icons.Exists(*app.Image))
	assert.Positive(t, app.Order)
}

func TestCreate_InvalidIconIsValidationError(t *testing.T) {
	f := newFixture(t)

	_, err := f.services.Applications.Create(context.Background(),
		models.ApplicationCreate{Name: "Mail", URL: "https://mail.example"},
		&IconUpload{Filename: "mail.png", Data: []byte("not an image")})
	require.Error(t, err)
	assert.ErrorIs(t, err, icons.ErrInvalidImage)

	code, msg := core.StatusOf(err)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid image file.", msg)
}

func TestUpdate_UnknownIDIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.services.Applications.Update(context.Background(), "missing",
		models.ApplicationCreate{Name: "Mail", URL: "https://mail.example"}, nil)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, statusOf(err))
}

func TestUpdate_ReplacesIconAndReleasesOldOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apps := f.services.Applications

	app, err := apps.Create(ctx, models.ApplicationCreate{Name: "Mail", URL: "https://a"}, pngUpload(t, color.White))
	require.NoError(t, err)
	oldIcon := *app.Image

	updated, err := apps.Update(ctx, app.ID, models.ApplicationCreate{Name: "Mail 2", URL: "https://b"}, pngUpload(t, color.Black))
	require.NoError(t, err)

	assert.Equal(t, "Mail 2", updated.Name)
	assert.Equal(t, "https://b", updated.URL)
	require.NotNil(t, updated.Image)
	assert.NotEqual(t, oldIcon, *updated.Image)
	assert.True(t, f.icons.Exists(*updated.Image))
	assert.False(t, f.icons.Exists(oldIcon))
}

func TestUpdate_WithoutIconKeepsImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apps := f.services.Applications

	app, err := apps.Create(ctx, models.ApplicationCreate{Name: "Mail", URL: "https://a"}, pngUpload(t, color.White))
	require.NoError(t, err)

	updated, err := apps.Update(ctx, app.ID, models.ApplicationCreate{Name: "Mail", URL: "https://c"}, nil)
	require.NoError(t, err)
	assert.Equal(t, app.Image, updated.Image)
	assert.True(t, f.icons.Exists(*app.Image))
}

func TestDelete_KeepsIconSharedWithOtherRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apps := f.services.Applications

	first, err := apps.Create(ctx, models.ApplicationCreate{Name: "A", URL: "https://a"}, pngUpload(t, color.White))
	require.NoError(t, err)
	second, err := apps.Create(ctx, models.ApplicationCreate{Name: "B", URL: "https://b"}, pngUpload(t, color.White))
	require.NoError(t, err)
	require.Equal(t, *first.Image, *second.Image)

	_, err = apps.Delete(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, f.icons.Exists(*second.Image), "icon still referenced by B")

	_, err = apps.Delete(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, f.icons.Exists(*second.Image))

	_, err = apps.Delete(ctx, second.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(err))
}

type failingIcons struct {
	removeErr error
	removed   []string
}

func (f *failingIcons) Save(ctx context.Context, data []byte, originalName string) (string, error) {
	return "fixed.svg", nil
}

func (f *failingIcons) Remove(name string) error {
	f.removed = append(f.removed, name)
	return f.removeErr
}

func TestDelete_IconRemovalFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fake := &failingIcons{removeErr: os.ErrPermission}
	apps := NewApplicationService(f.store, fake, icons.DefaultMaxBytes)

	app, err := apps.Create(ctx, models.ApplicationCreate{Name: "A", URL: "https://a"}, &IconUpload{Filename: "a.svg", Data: []byte(testSVG)})
	require.NoError(t, err)

	removed, err := apps.Delete(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, removed.ID)
	assert.Equal(t, []string{"fixed.svg"}, fake.removed)

	_, err = f.store.FindApplication(ctx, app.ID)
	assert.True(t, errors.Is(err, database.ErrNotFound))
}

func TestReorder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apps := f.services.Applications

	a, err := apps.Create(ctx, models.ApplicationCreate{Name: "A", URL: "https://a"}, nil)
	require.NoError(t, err)
	b, err := apps.Create(ctx, models.ApplicationCreate{Name: "B", URL: "https://b"}, nil)
	require.NoError(t, err)

	require.NoError(t, apps.Reorder(ctx, []models.ReorderEntry{{ID: b.ID}, {AltID: a.ID}}))

	list, err := apps.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"B", "A"}, []string{list[0].Name, list[1].Name})
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"pt", "pt", false},
		{"pt-BR", "pt", false},
		{"en-US", "en", false},
		{" es ", "es", false},
		{"fr", "", true},
		{"not a tag!", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeLanguage(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("NormalizeLanguage(%q) expected error", tt.in)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("NormalizeLanguage(%q) error %v is not a validation error", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NormalizeLanguage(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("NormalizeLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSettingsUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	settings := f.services.Settings

	lang := "en-GB"
	updated, err := settings.Update(ctx, models.SettingsUpdate{Language: &lang})
	require.NoError(t, err)
	assert.Equal(t, "en", updated.Language)

	title := "Home"
	updated, err = settings.Update(ctx, models.SettingsUpdate{CustomTitle: &title})
	require.NoError(t, err)
	assert.Equal(t, "en", updated.Language, "omitted fields keep their value")
	require.NotNil(t, updated.CustomTitle)
	assert.Equal(t, "Home", *updated.CustomTitle)

	bad := "xx-invalid-tag-@"
	_, err = settings.Update(ctx, models.SettingsUpdate{Language: &bad})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	got, err := settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "en", got.Language)
}
