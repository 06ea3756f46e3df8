package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/http/router"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/bloomfilter"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/instrumented"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/postgres"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/sqlite"
	"github.com/api-sage/account-ledger/src/internal/config"
	"github.com/api-sage/account-ledger/src/internal/logger"
	promcollector "github.com/api-sage/account-ledger/src/internal/metrics/prometheus"
	"github.com/api-sage/account-ledger/src/internal/usecase/services"
	"github.com/api-sage/account-ledger/src/migrations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	metricNamespace = "ledger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: cfg.LogDev,
	}); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal("account ledger stopped", err, nil)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	db, err := openStore(startupCtx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := promcollector.NewCollector(metricNamespace)
	if err := collector.Register(registry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	var repo repo_interfaces.AccountRepository
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		repo = postgres.NewAccountRepository(db)
	case config.DriverSQLite:
		repo = sqlite.NewAccountRepository(db)
	default:
		repo = memory.NewAccountRepository()
	}
	repo = instrumented.NewAccountRepository(repo, cfg.StoreDriver, collector)

	if cfg.BloomExpectedAccounts > 0 {
		filtered := bloomfilter.NewAccountRepository(repo, cfg.BloomExpectedAccounts, cfg.BloomFalsePositiveRate)
		if err := filtered.Seed(startupCtx); err != nil {
			return fmt.Errorf("seed account number filter: %w", err)
		}
		repo = filtered
	}

	numbers, err := services.NewIBANGenerator(cfg.AccountNumberCountry, 0)
	if err != nil {
		return fmt.Errorf("account number generator: %w", err)
	}
	accountService := services.NewAccountService(repo, numbers, collector, cfg.MaxConflictRetries)

	summary, err := accountService.StatusSummary(startupCtx)
	if err != nil {
		return fmt.Errorf("status summary: %w", err)
	}
	fields := logger.Fields{"driver": cfg.StoreDriver}
	for status, count := range summary {
		fields[status.String()] = count
	}
	logger.Info("account ledger ready", fields)

	if cfg.MetricsAddr == "" {
		logger.Info("METRICS_ADDR not set, exiting after startup checks", nil)
		return nil
	}

	var pinger router.Pinger
	if db != nil {
		pinger = db
	}
	return serve(ctx, cfg.MetricsAddr, router.New(pinger, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}

// openStore opens and migrates the configured database. The memory driver has none.
func openStore(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseDSN, postgres.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}

		var migrationFS fs.FS = migrations.FS
		if cfg.MigrationsDir != "" {
			migrationFS = os.DirFS(cfg.MigrationsDir)
		}
		if err := postgres.RunMigrations(ctx, db, migrationFS); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("initial migrations completed successfully", nil)
		return db, nil
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	default:
		logger.Warn("using in-memory account store, data is lost on exit", nil)
		return nil, nil
	}
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("operational endpoints listening", logger.Fields{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve operational endpoints: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down operational endpoints", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
