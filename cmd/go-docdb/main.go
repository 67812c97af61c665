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

	"github.com/adfharrison1/go-docdb/pkg/api"
	"github.com/adfharrison1/go-docdb/pkg/engine"
	"github.com/adfharrison1/go-docdb/pkg/metrics"
	"github.com/adfharrison1/go-docdb/pkg/server"
	"github.com/adfharrison1/go-docdb/pkg/storage"
)

func main() {
	// Command line flags
	var (
		port           = flag.String("port", "8080", "Server port")
		configFile     = flag.String("config", "", "TOML configuration file")
		backend        = flag.String("backend", "memory", "Storage backend: memory or badger")
		dataDir        = flag.String("data-dir", "go-docdb_data", "Data directory for the badger backend")
		dataFile       = flag.String("data-file", "go-docdb_data"+storage.FileExtension, "Snapshot file for the memory backend (empty disables persistence)")
		backgroundSave = flag.Duration("background-save", 0, "Background save interval for the memory backend (e.g., 5m, 30s). Set to 0 to disable.")
		cacheSize      = flag.Int("cache-size", -1, "Query cache capacity per collection (overrides the config file)")
		debug          = flag.Bool("debug", false, "Log query paths and cache decisions")
		showHelp       = flag.Bool("help", false, "Show help message")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\ngo-docdb is a document database with MongoDB-style queries, indexes and a query cache.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                    # In-memory backend with defaults\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -backend badger -data-dir /tmp/db   # Persistent badger backend\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -background-save 5m               # Snapshot every 5 minutes\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config docdb.toml -debug         # Indexes and schemas from a file\n", os.Args[0])
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	cfg := engine.DefaultConfig()
	if *configFile != "" {
		loaded, err := engine.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("ERROR: %v", err)
		}
		cfg = loaded
		log.Printf("INFO: Loaded configuration from %s", *configFile)
	}
	if *cacheSize >= 0 {
		cfg.CacheSize = *cacheSize
	}
	if *debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	var (
		store storage.Store
		stats api.MemoryStatsProvider
	)
	switch *backend {
	case "memory":
		var storageOptions []storage.StorageOption
		if cfg.MemoryLimit > 0 {
			storageOptions = append(storageOptions, storage.WithMemoryLimit(cfg.MemoryLimit))
		}
		if *dataFile != "" {
			storageOptions = append(storageOptions, storage.WithDataFile(*dataFile))
		}
		if *backgroundSave > 0 {
			storageOptions = append(storageOptions, storage.WithBackgroundSave(*backgroundSave))
			log.Printf("INFO: Background save enabled: every %v", *backgroundSave)
		} else if *dataFile != "" {
			log.Printf("WARN: Background save disabled - data only saved on graceful shutdown")
		}

		memStore := storage.NewMemoryStore(storageOptions...)
		if *dataFile != "" {
			log.Printf("INFO: Loading data from: %s", *dataFile)
			if err := memStore.LoadFromFile(*dataFile); err != nil {
				log.Fatalf("ERROR: Could not load data from %s: %v", *dataFile, err)
			}
		}
		memStore.StartBackgroundWorkers()
		store, stats = memStore, memStore
	case "badger":
		badgerStore, err := storage.OpenBadgerStore(*dataDir)
		if err != nil {
			log.Fatalf("ERROR: Could not open badger store at %s: %v", *dataDir, err)
		}
		log.Printf("INFO: Using badger data directory: %s", *dataDir)
		store = badgerStore
	default:
		log.Fatalf("ERROR: unknown backend %q (want memory or badger)", *backend)
	}

	recorder := metrics.NewRecorder(nil)
	db := engine.NewDatabase(store, cfg, recorder)
	srv := server.NewServer(db, stats, recorder)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:    ":" + *port,
		Handler: srv.Router(),
	}

	// Start server in a goroutine
	go func() {
		log.Printf("INFO: Starting go-docdb server on :%s (%s backend)", *port, *backend)
		log.Printf("INFO: API endpoints available at http://localhost:%s", *port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("INFO: Shutting down server...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("ERROR: Server forced to shutdown: %v", err)
	}

	// Closing the database snapshots the memory backend
	if err := srv.Close(); err != nil {
		log.Printf("ERROR: Close failed: %v", err)
	}

	log.Println("INFO: Server exited")
}
