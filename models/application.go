package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Application is a dashboard shortcut.
// The UI addresses records by "_id", so the identifier keeps that key on the wire.
type Application struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Image     *string   `json:"image"`
	Order     int64     `json:"order"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ImageName returns the icon filename or "" when no icon is set.
func (a *Application) ImageName() string {
	if a == nil || a.Image == nil {
		return ""
	}
	return *a.Image
}

// ApplicationCreate carries the client-supplied fields of a new application.
type ApplicationCreate struct {
	Name  string `form:"name" json:"name"`
	URL   string `form:"url" json:"url"`
	Image *string `form:"-" json:"-"`
	Order int64   `form:"-" json:"-"`
}

// Normalize trims whitespace from input fields
func (a *ApplicationCreate) Normalize() {
	a.Name = strings.TrimSpace(a.Name)
	a.URL = strings.TrimSpace(a.URL)
}

// ApplicationUpdate is a partial update; nil fields keep their stored value.
type ApplicationUpdate struct {
	Name  *string
	URL   *string
	Image *string
	Order *int64
}

// ReorderEntry is one element of a reorder request.
// Only the identifier is used; the rest of the record is ignored.
type ReorderEntry struct {
	ID    string `json:"_id"`
	AltID string `json:"id"`
}

// UnmarshalJSON accepts either a record object or a bare id string.
func (e *ReorderEntry) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '"' {
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return err
		}
		*e = ReorderEntry{ID: id}
		return nil
	}

	type plain ReorderEntry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = ReorderEntry(p)
	return nil
}

// Key returns the record identifier, accepting either "_id" or "id".
func (e ReorderEntry) Key() string {
	if id := strings.TrimSpace(e.ID); id != "" {
		return id
	}
	return strings.TrimSpace(e.AltID)
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
