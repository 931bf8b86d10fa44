/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the cookieboard server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env and environment (config package)
  2. Apply command-line flag overrides
  3. Open the configured store (sqlite, postgres, or memory)
  4. Create API handler and router
  5. Start the like counter reconciliation scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (overrides COOKIEBOARD_PORT)
  -driver     sqlite | postgres | memory (overrides COOKIEBOARD_DB_DRIVER)
  -db         SQLite database path (overrides COOKIEBOARD_SQLITE_PATH)
              Use ":memory:" for an in-memory SQLite database
  -env        Path of the .env file to load (default: .env)
  -mint-token Print a bearer token for the given user ID and exit
  -admin      With -mint-token, include the admin claim

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/cookieboard.db"

  # Bootstrap an admin token
  COOKIEBOARD_JWT_SECRET=dev ./server -mint-token=ops -admin

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Default store
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/cookieboard/api"
	"github.com/warp/cookieboard/config"
	"github.com/warp/cookieboard/forum"
	"github.com/warp/cookieboard/forum/store"
	"github.com/warp/cookieboard/store/postgres"
	"github.com/warp/cookieboard/store/sqlite"
)

func main() {
	// Flags
	envPath := flag.String("env", ".env", "Path of the .env file")
	port := flag.Int("port", 0, "HTTP server port")
	driver := flag.String("driver", "", "Store driver: sqlite, postgres, or memory")
	dbPath := flag.String("db", "", "SQLite database path")
	mintFor := flag.String("mint-token", "", "Print a bearer token for this user ID and exit")
	admin := flag.Bool("admin", false, "Include the admin claim in -mint-token")
	flag.Parse()

	cfg, err := config.Load(*envPath)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	cfg.Apply(config.Overrides{Port: *port, Driver: *driver, SQLitePath: *dbPath})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("COOKIEBOARD_JWT_SECRET must be set")
	}

	auth := api.NewAuthenticator(cfg.JWTSecret)
	if *mintFor != "" {
		token, err := auth.Issue(forum.UserID(*mintFor), *admin, 24*time.Hour)
		if err != nil {
			log.Fatalf("Failed to mint token: %v", err)
		}
		fmt.Println(token)
		return
	}

	// Initialize store
	db, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer closeStore()

	// Initialize handler
	handler := api.NewHandler(db)
	handler.Ledger.Names = forum.RandomNames{Length: cfg.TokenNameLength}
	handler.Ledger.MaxNameAttempts = cfg.MaxNameAttempts

	// Create router
	router := api.NewRouter(handler, api.RouterOptions{
		Auth:           auth,
		AllowedOrigins: cfg.CORSOrigins,
	})

	scheduler := api.NewReconciliationScheduler(handler.Reactions, cfg.ReconcileInterval)
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d (store: %s)", cfg.Port, cfg.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func openStore(cfg config.Config) (forum.TxStore, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		s, err := postgres.New(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case config.DriverMemory:
		return store.NewMemory(), func() {}, nil
	default:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
}
