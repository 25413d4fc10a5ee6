package models

import "time"

// Settings is the single display preferences document.
type Settings struct {
	Language      string    `json:"language"`
	PhosphorIcons bool      `json:"phosphorIcons"`
	CustomTitle   *string   `json:"customTitle,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// SettingsUpdate is a partial settings update; omitted fields are left untouched.
type SettingsUpdate struct {
	Language      *string `json:"language"`
	PhosphorIcons *bool   `json:"phosphorIcons"`
	CustomTitle   *string `json:"customTitle"`
}

// Empty reports whether the update carries no fields.
func (u SettingsUpdate) Empty() bool {
	return u.Language == nil && u.PhosphorIcons == nil && u.CustomTitle == nil
}

// DefaultLanguage is the locale of a freshly initialized settings document.
const DefaultLanguage = "pt"

// DefaultSettings returns the settings document created on first run.
func DefaultSettings(now time.Time) Settings {
	return Settings{
		Language:      DefaultLanguage,
		PhosphorIcons: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
