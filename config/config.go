package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"phosphor/core"
	"phosphor/version"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends understood by database.Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config holds phosphor runtime configuration.
type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFilePath string `env:"LOG_FILE"`
	Host        string `env:"HOST" envDefault:"0.0.0.0"`
	Port        int    `env:"PORT" envDefault:"3001"`

	DataDir      string `env:"DATA_DIR" envDefault:"./data"`
	UploadsDir   string `env:"UPLOADS_DIR" envDefault:"./uploads"`
	FrontendDir  string `env:"FRONTEND_DIR"`
	StoreBackend string `env:"STORE_BACKEND" envDefault:"json"`

	DatabaseURL          string `env:"DATABASE_URL" envDefault:"./data/phosphor.db"`
	SQLitePragmasEnabled bool   `env:"SQLITE_PRAGMAS_ENABLED" envDefault:"true"`
	SQLiteBusyTimeoutMS  int    `env:"SQLITE_BUSY_TIMEOUT_MS" envDefault:"5000"`
	SQLiteJournalMode    string `env:"SQLITE_JOURNAL_MODE" envDefault:"WAL"`
	SQLiteSynchronous    string `env:"SQLITE_SYNCHRONOUS" envDefault:"NORMAL"`
	SQLiteMaxOpenConns   int    `env:"SQLITE_MAX_OPEN_CONNS" envDefault:"1"`
	SQLiteMaxIdleConns   int    `env:"SQLITE_MAX_IDLE_CONNS" envDefault:"1"`
	SQLiteConnMaxIdleSec int    `env:"SQLITE_CONN_MAX_IDLE_SECONDS" envDefault:"300"`
	SQLiteConnMaxLifeSec int    `env:"SQLITE_CONN_MAX_LIFETIME_SECONDS" envDefault:"0"`

	// Icon ingestion limits
	MaxIconBytes int64 `env:"MAX_ICON_BYTES" envDefault:"5242880"`
	IconSize     int   `env:"ICON_SIZE" envDefault:"64"`

	ShutdownTimeoutSeconds int `env:"SHUTDOWN_TIMEOUT_SECONDS" envDefault:"5"`

	// Client address filtering; empty lists allow everyone
	AllowedCIDRs []string `env:"ALLOWED_CIDRS" envSeparator:","`
	DeniedCIDRs  []string `env:"DENIED_CIDRS" envSeparator:","`

	CLIMode   bool   `env:"CLI_MODE" envDefault:"false"`
	CLIServer string // Server URL for CLI mode
}

// Settings is the global configuration instance populated from environment variables and flags.
var Settings *Config

func init() {
	Settings = Default()
}

// Default returns a Config populated from the process environment.
// A .env file in the working directory is loaded first when present; values
// already set in the environment win over the file.
func Default() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		// Fields that parsed keep their values; Validate rejects the rest.
		log.Printf("Warning: invalid environment configuration: %v", err)
	}
	return cfg
}

// ParseFlags parses command-line flags and applies any overrides to the package-level Settings.
// It handles --help (prints usage and exits) and --version (prints build info and exits).
func ParseFlags() {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Phosphor - dashboard launcher backend\n\n")
		fmt.Fprintf(out, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintln(out, "Options:")
		flag.PrintDefaults()
		fmt.Fprintln(out, "\nEnvironment variables:")
		fmt.Fprintln(out, "  LOG_LEVEL                         Log level (DEBUG, INFO, WARN, ERROR)")
		fmt.Fprintln(out, "  LOG_FILE                          Log file path (default stderr)")
		fmt.Fprintln(out, "  HOST                              HTTP listen host (default 0.0.0.0)")
		fmt.Fprintln(out, "  PORT                              HTTP server port (default 3001)")
		fmt.Fprintln(out, "  DATA_DIR                          Directory holding applications.json and settings.json (default ./data)")
		fmt.Fprintln(out, "  UPLOADS_DIR                       Directory holding uploaded icons (default ./uploads)")
		fmt.Fprintln(out, "  FRONTEND_DIR                      Optional directory with the built web UI")
		fmt.Fprintln(out, "  STORE_BACKEND                     Document backend: json or sqlite (default json)")
		fmt.Fprintln(out, "  DATABASE_URL                      SQLite database path when STORE_BACKEND=sqlite")
		fmt.Fprintln(out, "  SQLITE_PRAGMAS_ENABLED            Enable SQLite PRAGMAs (true/false, default true)")
		fmt.Fprintln(out, "  SQLITE_BUSY_TIMEOUT_MS            SQLite busy_timeout in milliseconds (default 5000)")
		fmt.Fprintln(out, "  SQLITE_JOURNAL_MODE               SQLite journal_mode (default WAL)")
		fmt.Fprintln(out, "  SQLITE_SYNCHRONOUS                SQLite synchronous (default NORMAL)")
		fmt.Fprintln(out, "  SQLITE_MAX_OPEN_CONNS             SQLite MaxOpenConns (default 1)")
		fmt.Fprintln(out, "  SQLITE_MAX_IDLE_CONNS             SQLite MaxIdleConns (default 1)")
		fmt.Fprintln(out, "  SQLITE_CONN_MAX_IDLE_SECONDS      SQLite ConnMaxIdleTime in seconds (default 300)")
		fmt.Fprintln(out, "  SQLITE_CONN_MAX_LIFETIME_SECONDS  SQLite ConnMaxLifetime in seconds (default 0)")
		fmt.Fprintln(out, "  MAX_ICON_BYTES                    Maximum icon upload size in bytes (default 5242880)")
		fmt.Fprintln(out, "  ICON_SIZE                         Edge length of normalized raster icons (default 64)")
		fmt.Fprintln(out, "  SHUTDOWN_TIMEOUT_SECONDS          Graceful shutdown timeout (default 5)")
		fmt.Fprintln(out, "  ALLOWED_CIDRS                     Comma-separated client CIDRs/IPs allowed to connect (default all)")
		fmt.Fprintln(out, "  DENIED_CIDRS                      Comma-separated client CIDRs/IPs refused (wins over ALLOWED_CIDRS)")
	}

	port := flag.Int("port", Settings.Port, "HTTP server port (overrides PORT)")
	host := flag.String("host", Settings.Host, "HTTP listen host (overrides HOST)")
	dataDir := flag.String("data-dir", Settings.DataDir, "Data directory (overrides DATA_DIR)")
	uploadsDir := flag.String("uploads-dir", Settings.UploadsDir, "Uploads directory (overrides UPLOADS_DIR)")
	frontendDir := flag.String("frontend-dir", Settings.FrontendDir, "Built web UI directory (overrides FRONTEND_DIR)")
	backend := flag.String("store", Settings.StoreBackend, "Document backend: json or sqlite (overrides STORE_BACKEND)")
	db := flag.String("db", Settings.DatabaseURL, "SQLite database path (overrides DATABASE_URL)")
	logLevel := flag.String("log-level", Settings.LogLevel, "Log level: DEBUG, INFO, WARN, ERROR (overrides LOG_LEVEL)")
	logFile := flag.String("log-file", Settings.LogFilePath, "Log file path (overrides LOG_FILE)")
	cliMode := flag.Bool("cli", Settings.CLIMode, "Run in CLI mode (HTTP client only, no data directory)")
	cliServer := flag.String("server", "", "Server URL for CLI mode (default from ~/.phosphor/config.yaml)")

	showHelp := flag.Bool("help", false, "Show help and exit")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetBuildInfo())
		os.Exit(0)
	}

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	Settings.Port = *port
	Settings.Host = *host
	Settings.DataDir = *dataDir
	Settings.UploadsDir = *uploadsDir
	Settings.FrontendDir = *frontendDir
	Settings.StoreBackend = *backend
	Settings.DatabaseURL = *db
	Settings.LogLevel = *logLevel
	Settings.LogFilePath = *logFile
	Settings.CLIMode = *cliMode
	Settings.CLIServer = *cliServer
}

// Validate reports configuration values the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("unknown store backend %q (want %s or %s)", c.StoreBackend, BackendJSON, BackendSQLite)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxIconBytes <= 0 {
		return fmt.Errorf("invalid icon size limit %d", c.MaxIconBytes)
	}
	if c.IconSize <= 0 {
		return fmt.Errorf("invalid icon size %d", c.IconSize)
	}
	if _, err := core.NewAccessList(c.AllowedCIDRs, c.DeniedCIDRs); err != nil {
		return err
	}
	return nil
}
