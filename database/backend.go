package database

import (
	"context"
	"fmt"
	"phosphor/config"
)

// Document names.
const (
	ApplicationsDocument = "applications"
	SettingsDocument     = "settings"
)

// Backend persists whole serialized documents by name.
// Save must replace the previous version atomically: a failed Save leaves the
// old document readable.
type Backend interface {
	// Name identifies the backend in logs and health output.
	Name() string
	// Init prepares the underlying storage (directories, tables).
	Init(ctx context.Context) error
	// Load returns the stored bytes; found is false when the document does not exist yet.
	Load(ctx context.Context, name string) (data []byte, found bool, err error)
	Save(ctx context.Context, name string, data []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// OpenBackend constructs the backend selected by cfg.StoreBackend.
func OpenBackend(cfg *config.Config) (Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendJSON, "":
		return NewFileBackend(cfg.DataDir), nil
	case config.BackendSQLite:
		return OpenSQLite(cfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
