package service

import (
	"context"
	"fmt"
	"phosphor/models"
	"strings"

	"golang.org/x/text/language"
)

// SupportedLanguages are the locales the UI ships translations for.
var SupportedLanguages = []language.Tag{language.Portuguese, language.English, language.Spanish}

// NormalizeLanguage maps a BCP 47 tag to a supported base language ("pt-BR" -> "pt").
func NormalizeLanguage(value string) (string, error) {
	value = strings.TrimSpace(value)
	tag, err := language.Parse(value)
	if err != nil {
		return "", validationError(fmt.Sprintf("Unsupported language %q", value), err)
	}

	base, _ := tag.Base()
	for _, supported := range SupportedLanguages {
		if sb, _ := supported.Base(); sb == base {
			return sb.String(), nil
		}
	}
	return "", validationError(fmt.Sprintf("Unsupported language %q", value), nil)
}

// SettingsService handles the settings document
type SettingsService struct {
	repo SettingsRepository
}

// NewSettingsService constructs a settings service
func NewSettingsService(repo SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// Get returns the current settings
func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// Update merges upd into the settings; omitted fields keep their values.
func (s *SettingsService) Update(ctx context.Context, upd models.SettingsUpdate) (*models.Settings, error) {
	if upd.Language != nil {
		lang, err := NormalizeLanguage(*upd.Language)
		if err != nil {
			return nil, err
		}
		upd.Language = &lang
	}

	settings, err := s.repo.UpdateSettings(ctx, upd)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return settings, nil
}
