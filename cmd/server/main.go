package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bananalabs-oss/troupe/internal/config"
	"github.com/bananalabs-oss/troupe/internal/database"
	"github.com/bananalabs-oss/troupe/internal/events"
	"github.com/bananalabs-oss/troupe/internal/logging"
	"github.com/bananalabs-oss/troupe/internal/metrics"
	"github.com/bananalabs-oss/troupe/internal/parties"
	"github.com/bananalabs-oss/troupe/internal/router"
	"github.com/bananalabs-oss/troupe/internal/session"
	"github.com/bananalabs-oss/troupe/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("Troupe stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting Troupe",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("database", cfg.Database.Type),
		zap.Int("party_size_limit", cfg.Party.SizeLimit),
		zap.Duration("storage_timeout", cfg.Party.StorageTimeout),
	)

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db, log); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var notifier events.Notifier = events.Nop{}
	if cfg.NATSURL != "" {
		nn, err := events.ConnectNATS(cfg.NATSURL, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := nn.Close(); err != nil {
				log.Warn("Failed to drain NATS connection", zap.Error(err))
			}
		}()
		notifier = nn
	}

	sessions := session.NewDirectory()
	svc := parties.NewService(
		store.New(db, log.Named("store"), cfg.Party.StorageTimeout),
		sessions,
		log.Named("parties"),
		parties.Options{
			SizeLimit: cfg.Party.SizeLimit,
			Timeout:   2 * cfg.Party.StorageTimeout,
			Notifier:  notifier,
			Metrics:   metrics.New(reg),
		},
	)
	h := parties.NewHandler(svc, sessions, cfg.Party.LookupAccounts, log.Named("http"))
	r := router.Setup(h, reg, cfg.Server.JWTSecret, cfg.Server.ServiceToken)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Troupe listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("Shutting down Troupe...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Troupe stopped")
	return nil
}
