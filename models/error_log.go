package models

import "time"

// ErrorLog is one entry of the in-memory error ring
type ErrorLog struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`   // ERROR, WARN
	Source    string    `json:"source"`  // Component that failed
	Message   string    `json:"message"` // Error message
	Detail    string    `json:"detail"`  // Underlying error text
	Stack     string    `json:"stack"`   // Stack trace
	Context   string    `json:"context"` // Request context (JSON)
}
