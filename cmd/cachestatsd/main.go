package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/colaxr/SuifengTVDM/internal/admin"
	"github.com/colaxr/SuifengTVDM/internal/cachestats"
	"github.com/colaxr/SuifengTVDM/internal/config"
	"github.com/colaxr/SuifengTVDM/internal/kv"
	"github.com/colaxr/SuifengTVDM/internal/logging"
	"github.com/colaxr/SuifengTVDM/internal/metrics"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/cachestatsd.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	validateOnly := flag.Bool("validate", false, "Validate configuration and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("cachestatsd %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	// Load configuration
	loader := config.NewLoader()
	cfg, err := loader.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *validateOnly {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	// Initialize structured logger
	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logging.SetGlobal(logger)

	logging.Info("Starting cache statistics service",
		zap.String("version", version),
		zap.String("config", *configPath),
		zap.String("backend", backendLabel(cfg.Backend.Kind)),
	)

	// Select the primary backend per configuration; an absent kind
	// leaves no primary handle and every report comes from the local
	// store.
	handle, closeBackend := newBackend(cfg.Backend)
	defer closeBackend()

	local := kv.NewLocalStore(cfg.Local)
	collector := metrics.NewCollector()
	engine := cachestats.New(handle, local, collector)

	server := admin.NewServer(cfg.Admin, engine, collector)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logging.Info("Shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logging.Error("Shutdown error", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logging.Error("Server error", zap.Error(err))
			os.Exit(1)
		}
	}
}

// newBackend builds the configured primary storage handle. The second
// return value releases its resources.
func newBackend(cfg config.BackendConfig) (any, func()) {
	switch cfg.Kind {
	case config.BackendCluster:
		store := kv.NewClusterStore(cfg.Cluster)
		return store, func() { store.Close() }
	case config.BackendServerless:
		return kv.NewServerlessStore(cfg.Serverless), func() {}
	default:
		return nil, func() {}
	}
}

func backendLabel(kind string) string {
	if kind == "" {
		return config.BackendLocal
	}
	return kind
}
