package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"phosphor/cli"
	"phosphor/config"
	"phosphor/core"
	"phosphor/database"
	"phosphor/handlers"
	"phosphor/icons"
	"phosphor/service"
	"phosphor/version"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load environment variables and parse CLI flags
	config.ParseFlags()
	cfg := config.Settings

	logFile, err := setupLogging(cfg.LogFilePath)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	// Check if CLI mode is requested
	if cfg.CLIMode {
		mainCLI(cfg.CLIServer)
		return
	}

	// Configure log format
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Printf("Phosphor %s starting up...", version.GetFullVersion())

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize document store
	backend, err := database.OpenBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	store := database.NewStore(backend)
	if err := store.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	// Initialize icon storage
	iconStore := icons.NewStore(cfg.UploadsDir, cfg.IconSize)
	if err := iconStore.Init(); err != nil {
		log.Fatalf("Failed to initialize uploads directory: %v", err)
	}

	// Initialize services
	services := service.New(store, iconStore, cfg.MaxIconBytes)

	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Direct Gin logs to the configured log output
	gin.DefaultWriter = log.Writer()
	gin.DefaultErrorWriter = log.Writer()
	gin.DisableConsoleColor()

	r := gin.Default()

	// CORS middleware
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}))

	acl, err := core.NewAccessList(cfg.AllowedCIDRs, cfg.DeniedCIDRs)
	if err != nil {
		log.Fatalf("Invalid access list: %v", err)
	}

	handlers.New(services, iconStore, store, handlers.Options{
		MaxIconBytes: cfg.MaxIconBytes,
		FrontendDir:  cfg.FrontendDir,
		BackendName:  backend.Name(),
		AccessList:   acl,
	}).Register(r)

	// Bind before serving so an occupied port fails startup
	ln, err := core.Listen(cfg.Host, cfg.Port)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server listening on http://%s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Received interrupt signal, shutting down...")

	// Gracefully shut down HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Close document store after in-flight requests drained
	if err := store.Close(); err != nil {
		log.Printf("Error closing store: %v", err)
	}

	log.Println("Server exited")
}

// mainCLI entrypoint for CLI (HTTP client mode)
func mainCLI(serverFlag string) {
	log.SetFlags(log.Ldate | log.Ltime)

	serverURL, err := cli.ResolveServer(serverFlag)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Phosphor CLI - Connecting to %s\n", serverURL)

	shell, err := cli.NewShell(serverURL)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("\nTips:")
		fmt.Println("  1. Make sure the Phosphor server is running:")
		fmt.Println("     ./phosphor")
		fmt.Println("  2. Or specify a different server:")
		fmt.Println("     ./phosphor --cli --server http://your-server:3001")
		os.Exit(1)
	}

	// Start CLI loop (readline handles Ctrl+C automatically)
	shell.Start()
}
