package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/franckalain/nutritrack/internal/config"
	"github.com/franckalain/nutritrack/internal/database"
	"github.com/franckalain/nutritrack/internal/fdc"
	"github.com/franckalain/nutritrack/internal/logging"
	"github.com/franckalain/nutritrack/internal/metrics"
	"github.com/franckalain/nutritrack/internal/ml"
	"github.com/franckalain/nutritrack/internal/server"
	"github.com/franckalain/nutritrack/internal/storage"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.GetConfigPath(), "path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Log.Level
	if cfg.Server.Debug {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
	logger.Info("server stopped gracefully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Initialize database
	db, err := database.NewSQLiteDB(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	foods, err := fdc.New(fdc.Config{
		BaseURL:   cfg.FDC.BaseURL,
		APIKey:    cfg.FDC.APIKey,
		Timeout:   cfg.FDC.Timeout,
		RateLimit: cfg.FDC.RateLimit,
		Burst:     cfg.FDC.Burst,
		CacheSize: cfg.FDC.CacheSize,
		PageSize:  cfg.FDC.PageSize,
	}, logger, m)
	if err != nil {
		return fmt.Errorf("failed to create food client: %w", err)
	}

	// Initialize ML service
	model, err := ml.NewModel(ml.Config{
		Type:            cfg.ML.Type,
		ProjectID:       cfg.ML.ProjectID,
		Location:        cfg.ML.Location,
		CredentialsFile: cfg.ML.CredentialsFile,
		Model:           cfg.ML.Model,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create ML model: %w", err)
	}
	if err := model.Load(ctx); err != nil {
		return fmt.Errorf("failed to load ML model: %w", err)
	}
	if closer, ok := model.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	var images storage.ImageStore = storage.NopStore{}
	if cfg.Storage.Type == "s3" {
		images, err = storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Prefix:    cfg.Storage.Prefix,
			PublicURL: cfg.Storage.PublicURL,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create image store: %w", err)
		}
	}

	srv := server.New(server.Deps{
		DB:              db,
		Foods:           foods,
		Model:           model,
		Images:          images,
		Metrics:         m,
		Logger:          logger,
		StaticDir:       cfg.Server.StaticDir,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Debug:           cfg.Server.Debug,
	})
	return srv.Start(ctx, ":"+cfg.Server.Port)
}
