package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"phosphor/config"
	"phosphor/models"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteBackend stores documents as rows of a single key/value table.
type SQLiteBackend struct {
	db         *gorm.DB
	path       string
	contention *contentionCounter
}

// OpenSQLite opens the database at cfg.DatabaseURL with the configured pool
// limits and PRAGMAs. Tables are created by Init.
func OpenSQLite(cfg *config.Config) (*SQLiteBackend, error) {
	base, _, _ := strings.Cut(cfg.DatabaseURL, "?")
	if base != "" && base != ":memory:" && !strings.HasPrefix(base, "file:") {
		if err := os.MkdirAll(filepath.Dir(base), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	logLevel := logger.Silent
	if cfg.LogLevel == "DEBUG" {
		logLevel = logger.Info
	}

	counter := &contentionCounter{}
	pragmas := sqlitePragmas(cfg)
	db, err := gorm.Open(sqlite.Open(sqliteDSN(cfg.DatabaseURL, pragmas)), &gorm.Config{
		Logger: countingLogger{
			Interface: logger.New(log.New(log.Writer(), "\r\n", log.LstdFlags), logger.Config{LogLevel: logLevel}),
			counter:   counter,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	newPoolLimits(cfg.SQLiteMaxOpenConns, cfg.SQLiteMaxIdleConns, cfg.SQLiteConnMaxIdleSec, cfg.SQLiteConnMaxLifeSec).apply(sqlDB)

	// The DSN covers connections opened later; apply to the current one too.
	for _, p := range pragmas {
		if err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)).Error; err != nil {
			log.Printf("Warning: PRAGMA %s failed: %v", p.name, err)
		}
	}

	return &SQLiteBackend{db: db, path: base, contention: counter}, nil
}

func (b *SQLiteBackend) Name() string { return "sqlite" }

// Init auto-migrates the documents table.
func (b *SQLiteBackend) Init(ctx context.Context) error {
	if err := b.db.WithContext(ctx).AutoMigrate(&models.Document{}); err != nil {
		return fmt.Errorf("failed to migrate documents table: %w", err)
	}
	log.Printf("SQLite document store ready at %s", b.path)
	return nil
}

func (b *SQLiteBackend) Load(ctx context.Context, name string) ([]byte, bool, error) {
	var doc models.Document
	if err := b.db.WithContext(ctx).First(&doc, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load document %s: %w", name, err)
	}
	return []byte(doc.Body), true, nil
}

// Save upserts the document row; a single statement keeps the replace atomic.
func (b *SQLiteBackend) Save(ctx context.Context, name string, data []byte) error {
	doc := models.Document{Name: name, Body: string(data), UpdatedAt: time.Now().UTC()}
	if err := b.db.WithContext(ctx).Save(&doc).Error; err != nil {
		return fmt.Errorf("failed to save document %s: %w", name, err)
	}
	return nil
}

func (b *SQLiteBackend) Ping(ctx context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) <= 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
	}
	return sqlDB.PingContext(ctx)
}

// Stats reports pool usage and lock contention for the health endpoint.
func (b *SQLiteBackend) Stats() map[string]any {
	stats := map[string]any{
		"busyErrors":   b.contention.busy.Load(),
		"lockedErrors": b.contention.locked.Load(),
	}
	if sqlDB, err := b.db.DB(); err == nil {
		s := sqlDB.Stats()
		stats["openConnections"] = s.OpenConnections
		stats["inUse"] = s.InUse
	}
	return stats
}

// Close closes the database connection and releases resources
func (b *SQLiteBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}

	log.Println("Closing database connection...")
	return sqlDB.Close()
}
