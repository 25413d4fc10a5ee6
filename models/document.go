package models

import "time"

// Document stores one serialized JSON document in SQLite.
// It replaces the flat files when the sqlite backend is selected.
type Document struct {
	Name      string    `gorm:"primaryKey;size:64" json:"name"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	UpdatedAt time.Time `json:"updated_at"`
}
