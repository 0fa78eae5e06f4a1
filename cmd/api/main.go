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

	"github.com/Dan9191/finance-tracker/internal/config"
	"github.com/Dan9191/finance-tracker/internal/handler"
	"github.com/Dan9191/finance-tracker/internal/integrations/cbr"
	"github.com/Dan9191/finance-tracker/internal/repository"
	"github.com/Dan9191/finance-tracker/internal/scheduler"
	"github.com/Dan9191/finance-tracker/internal/service"
	"github.com/Dan9191/finance-tracker/internal/utils/email"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

// openRepository selects the storage backend named by DB_DRIVER
func openRepository(ctx context.Context, cfg *config.Config) (repository.Repository, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return repository.NewPostgresRepository(ctx, cfg.DBConn)
	case config.DriverSQLite:
		return repository.NewSQLiteRepository(ctx, cfg.SQLitePath)
	case config.DriverMemory:
		return repository.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf("Failed to load .env: %v", err)
	}

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	repo, err := openRepository(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}
	defer repo.Close()
	logger.Infof("Storage ready: %s", cfg.DBDriver)

	// Initialize layers
	cbrClient := cbr.NewCBRClient(cfg, logger)
	svc := service.NewService(repo, cbrClient, logger, cfg)
	h := handler.NewHandler(svc, logger)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(h, cfg, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	sched := scheduler.New(logger)
	if cfg.StatementsEnabled() {
		if err := sched.AddStatementJob(cfg.StatementSchedule, svc, email.NewSender(cfg, logger)); err != nil {
			logger.Fatalf("Failed to schedule statements: %v", err)
		}
	} else {
		logger.Info("SMTP_HOST not set, monthly statements disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sched.Start()
		<-gctx.Done()

		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return sched.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Exited with error: %v", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
