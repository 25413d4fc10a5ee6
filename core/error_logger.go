package core

import (
	"encoding/json"
	"fmt"
	"log"
	"phosphor/models"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	LevelError = "ERROR"
	LevelWarn  = "WARN"
)

// ErrorRing is a fixed-capacity buffer of recent server-side failures.
// Once full, each new entry overwrites the oldest one.
type ErrorRing struct {
	mu      sync.Mutex
	entries []models.ErrorLog
	next    int // slot for the next entry
	size    int // number of filled slots
	lastID  int
}

// Errors is the process-wide ring served by /api/error-logs.
var Errors = NewErrorRing(100)

// NewErrorRing returns a ring holding at most capacity entries.
func NewErrorRing(capacity int) *ErrorRing {
	if capacity <= 0 {
		capacity = 100
	}
	return &ErrorRing{entries: make([]models.ErrorLog, capacity)}
}

// Record stores an entry and mirrors it to the process log.
// ERROR entries carry the caller's stack.
func (r *ErrorRing) Record(level, source, message, detail string, fields map[string]any) {
	entry := models.ErrorLog{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Source:    source,
		Message:   message,
		Detail:    detail,
	}
	if level == LevelError {
		entry.Stack = callerStack(3)
	}
	if len(fields) > 0 {
		if data, err := json.Marshal(fields); err == nil {
			entry.Context = string(data)
		}
	}

	line := fmt.Sprintf("%s [%s] %s", level, source, message)
	if detail != "" {
		line += ": " + detail
	}
	log.Print(line)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastID++
	entry.ID = r.lastID
	r.entries[r.next] = entry
	r.next = (r.next + 1) % len(r.entries)
	if r.size < len(r.entries) {
		r.size++
	}
}

// Entries returns a copy of the stored entries, newest first.
func (r *ErrorRing) Entries() []models.ErrorLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.ErrorLog, 0, r.size)
	for i := 1; i <= r.size; i++ {
		idx := (r.next - i + len(r.entries)) % len(r.entries)
		out = append(out, r.entries[idx])
	}
	return out
}

// Clear drops every entry and restarts ids at 1.
func (r *ErrorRing) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entries)
	r.next, r.size, r.lastID = 0, 0, 0
}

func callerStack(skip int) string {
	pcs := make([]uintptr, 10)
	n := runtime.Callers(skip+1, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return b.String()
}

// RecordError adds an ERROR entry to the process-wide ring.
func RecordError(source, message, detail string, fields map[string]any) {
	Errors.Record(LevelError, source, message, detail, fields)
}

// RecordWarn adds a WARN entry to the process-wide ring.
func RecordWarn(source, message, detail string) {
	Errors.Record(LevelWarn, source, message, detail, nil)
}
