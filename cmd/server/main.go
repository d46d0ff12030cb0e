package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/invoice-corrector/internal/config"
	httpapi "github.com/garyjia/invoice-corrector/internal/interfaces/http"
	"github.com/garyjia/invoice-corrector/internal/reconcile"
	"github.com/garyjia/invoice-corrector/internal/repository"
	"github.com/garyjia/invoice-corrector/internal/service"
	"github.com/garyjia/invoice-corrector/internal/storage"
	"github.com/garyjia/invoice-corrector/pkg/database"
	"github.com/garyjia/invoice-corrector/pkg/utils"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting invoice correction server",
		zap.String("version", httpapi.Version),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := database.NewMigrator(db, logger).Run(database.Migrations()); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		logger.Fatal("Failed to create output directory", zap.Error(err))
	}

	correctionService := service.NewCorrectionService(
		reconcile.NewCorrector(),
		repository.NewCorrectionRepository(db.DB, logger),
		storage.NewLocalFileStorage(cfg.Storage.OutputDir, logger),
		logger,
	)

	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxUploadBytes:  cfg.Upload.MaxSizeBytes,
	}, correctionService, logger)

	// Wait for interrupt signal to gracefully shutdown the server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return
	}

	logger.Info("Server exited")
}
