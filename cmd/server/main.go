package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/JonMunkholm/leadsheets/internal/config"
	"github.com/JonMunkholm/leadsheets/internal/core"
	"github.com/JonMunkholm/leadsheets/internal/logging"
	"github.com/JonMunkholm/leadsheets/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// options holds the command-line flags. Each one set overrides the env
// var named in its usage text.
type options struct {
	envFile        string
	port           int
	dataDir        string
	manifest       string
	storageBackend string
}

func parseFlags(args []string) (options, map[string]string, error) {
	var opts options

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	fs.IntVarP(&opts.port, "port", "p", 0, "port to listen on (env SERVER_PORT)")
	fs.StringVarP(&opts.dataDir, "data-dir", "d", "", "directory sheet sources are read from (env DATA_DIR)")
	fs.StringVarP(&opts.manifest, "manifest", "m", "", "sheet manifest file (env DATA_MANIFEST)")
	fs.StringVar(&opts.storageBackend, "storage-backend", "", "overlay store: file, memory or postgres (env STORAGE_BACKEND)")

	if err := fs.Parse(args); err != nil {
		return options{}, nil, err
	}
	if fs.NArg() > 0 {
		return options{}, nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	overrides := map[string]string{
		"DATA_DIR":        opts.dataDir,
		"DATA_MANIFEST":   opts.manifest,
		"STORAGE_BACKEND": opts.storageBackend,
	}
	if opts.port != 0 {
		overrides["SERVER_PORT"] = strconv.Itoa(opts.port)
	}
	return opts, overrides, nil
}

func run(args []string) error {
	opts, overrides, err := parseFlags(args)
	if err != nil {
		return err
	}

	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(opts.envFile); err != nil {
		slog.Info("no .env file loaded, using environment variables", "path", opts.envFile)
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)", "path", opts.envFile)
	}

	cfg, err := config.LoadWithOverrides(overrides)
	if err != nil {
		return err
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	manifest, err := loadManifest(cfg)
	if err != nil {
		return err
	}

	loader, err := core.NewLoader(cfg.Data.Dir, cfg.Data.Encoding)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	service, err := core.NewService(core.ServiceConfig{
		Manifest:          manifest,
		Loader:            loader,
		Store:             store,
		LinkedInReference: cfg.Data.LinkedInReferencePath,
		LoadConcurrency:   cfg.Data.LoadConcurrency,
		Logger:            slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	slog.Info("sheets configured",
		"count", len(manifest.Sheets),
		"data_dir", cfg.Data.Dir,
		"storage", cfg.Storage.Backend,
		"linkedin_match", cfg.Data.LinkedInReferencePath != "",
	)
	for _, name := range service.Sheets() {
		slog.Debug("sheet", "name", name)
	}

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	<-stopped
	slog.Info("server stopped")
	return nil
}

// loadManifest reads the configured manifest, or falls back to the
// built-in sheet list.
func loadManifest(cfg *config.Config) (core.Manifest, error) {
	if cfg.Data.ManifestPath == "" {
		return core.DefaultManifest(), nil
	}
	return core.LoadManifest(cfg.Data.ManifestPath)
}

// openStore builds the configured overlay store. The returned func
// releases its resources.
func openStore(ctx context.Context, cfg *config.Config) (core.Store, func(), error) {
	noop := func() {}

	switch strings.ToLower(cfg.Storage.Backend) {
	case "memory":
		slog.Warn("using in-memory overlay store; edits are lost on restart")
		return core.NewMemoryStore(), noop, nil

	case "postgres":
		poolConfig, err := pgxpool.ParseConfig(cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("parse database URL: %w", err)
		}
		poolConfig.MaxConns = int32(cfg.Storage.MaxConns)
		poolConfig.MaxConnLifetime = cfg.Storage.MaxConnLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, noop, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("ping database: %w", err)
		}

		// Log which database we connected to
		if u, err := url.Parse(cfg.Storage.DatabaseURL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		}

		store := core.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return store, pool.Close, nil

	case "file", "":
		path := cfg.Storage.Path
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, noop, fmt.Errorf("create storage directory: %w", err)
			}
		}
		slog.Info("using file overlay store", "path", path)
		return core.NewFileStore(path), noop, nil

	default:
		return nil, noop, errors.New("unknown storage backend: " + cfg.Storage.Backend)
	}
}
