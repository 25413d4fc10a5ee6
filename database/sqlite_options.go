package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"phosphor/config"
	"strings"
	"time"
)

type pragma struct {
	name  string
	value string
}

// poolLimits are database/sql pool settings after clamping.
type poolLimits struct {
	maxOpen     int
	maxIdle     int
	maxIdleTime time.Duration
	maxLifetime time.Duration
}

func newPoolLimits(maxOpen, maxIdle, idleSec, lifeSec int) poolLimits {
	if maxOpen < 1 {
		maxOpen = 1
	}
	maxIdle = min(max(maxIdle, 0), maxOpen)
	return poolLimits{
		maxOpen:     maxOpen,
		maxIdle:     maxIdle,
		maxIdleTime: time.Duration(max(idleSec, 0)) * time.Second,
		maxLifetime: time.Duration(max(lifeSec, 0)) * time.Second,
	}
}

func (p poolLimits) apply(db *sql.DB) {
	db.SetMaxOpenConns(p.maxOpen)
	db.SetMaxIdleConns(p.maxIdle)
	db.SetConnMaxIdleTime(p.maxIdleTime)
	db.SetConnMaxLifetime(p.maxLifetime)
}

var (
	journalModes = []string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "OFF"}
	syncLevels   = []string{"OFF", "NORMAL", "FULL", "EXTRA", "0", "1", "2", "3"}
)

// oneOf returns the uppercased value when it is in allowed, otherwise "".
func oneOf(value string, allowed []string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	for _, a := range allowed {
		if value == a {
			return value
		}
	}
	return ""
}

// sqlitePragmas lists the PRAGMAs configured in cfg. Unknown modes are skipped.
func sqlitePragmas(cfg *config.Config) []pragma {
	if !cfg.SQLitePragmasEnabled {
		return nil
	}
	var out []pragma
	if cfg.SQLiteBusyTimeoutMS > 0 {
		out = append(out, pragma{"busy_timeout", fmt.Sprint(cfg.SQLiteBusyTimeoutMS)})
	}
	if mode := oneOf(cfg.SQLiteJournalMode, journalModes); mode != "" {
		out = append(out, pragma{"journal_mode", mode})
	}
	if level := oneOf(cfg.SQLiteSynchronous, syncLevels); level != "" {
		out = append(out, pragma{"synchronous", level})
	}
	return out
}

// sqliteDSN adds a _pragma query parameter per PRAGMA so every new pooled
// connection is configured. An existing query string is kept.
func sqliteDSN(path string, pragmas []pragma) string {
	base, rawQuery, _ := strings.Cut(path, "?")
	query, _ := url.ParseQuery(rawQuery)
	for _, p := range pragmas {
		query.Add("_pragma", fmt.Sprintf("%s(%s)", p.name, p.value))
	}
	if len(query) == 0 {
		return base
	}
	return base + "?" + query.Encode()
}
