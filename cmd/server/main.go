package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/ledger/internal/config"
	"github.com/JonMunkholm/ledger/internal/core"
	"github.com/JonMunkholm/ledger/internal/logging"
	"github.com/JonMunkholm/ledger/internal/metrics"
	"github.com/JonMunkholm/ledger/internal/rates"
	"github.com/JonMunkholm/ledger/internal/store/memory"
	"github.com/JonMunkholm/ledger/internal/store/postgres"
	"github.com/JonMunkholm/ledger/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	var rateSource core.RateSource
	if cfg.Rates.Enabled {
		rateSource = rates.NewClient(cfg.Rates.BaseURL, cfg.Rates.Timeout)
		slog.Info("currency conversion enabled", "base_url", cfg.Rates.BaseURL)
	}

	service := core.NewService(store, rateSource, core.ServiceConfig{
		DefaultPageSize:      cfg.Pagination.DefaultLimit,
		MaxPageSize:          cfg.Pagination.MaxLimit,
		MaxConcurrentUploads: cfg.Upload.MaxConcurrent,
		MaxUploadWait:        cfg.Upload.MaxWaitTime,
		UploadTimeout:        cfg.Upload.Timeout,
	})

	m := metrics.New()
	m.RegisterGauge("uploads_active", "Uploads currently being processed.", func() float64 {
		return float64(service.Limiter().Status().Active)
	})

	server := web.NewServer(service, cfg, m)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active uploads to complete (with timeout)
		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// openStore builds the store selected by STORE_DRIVER. The returned func
// releases its resources.
func openStore(ctx context.Context, cfg *config.Config) (core.Store, func(), error) {
	if cfg.Store.Driver == config.DriverMemory {
		slog.Warn("using in-memory store; data is lost on exit")
		return memory.New(), func() {}, nil
	}

	store, err := postgres.Open(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		return nil, nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	if cfg.Store.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		slog.Info("schema applied")
	}
	return store, store.Close, nil
}
