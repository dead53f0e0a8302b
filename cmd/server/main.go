package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lightbnb/server/config"
	"lightbnb/server/internal/api"
	"lightbnb/server/internal/cache"
	"lightbnb/server/internal/database"
	"lightbnb/server/internal/events"
	"lightbnb/server/internal/models"
	"lightbnb/server/internal/processor"
	"lightbnb/server/internal/properties"
	"lightbnb/server/internal/queue"
	"lightbnb/server/internal/reservations"
	"lightbnb/server/internal/search"
	"lightbnb/server/internal/seed"
	"lightbnb/server/internal/users"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if level < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// Make sure the directory of a file-backed SQLite database exists
	if cfg.Database.Driver == "sqlite" && filepath.Dir(cfg.Database.DSN) != "." {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0o755); err != nil {
			logger.WithError(err).Fatal("Failed to create database directory")
		}
	}

	// Initialize database
	db, err := database.NewDatabase(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	searchCache := cache.NewSearchCache(cfg.Search.CacheSize, cfg.Search.CacheTTL, cfg.Search.MemcachedHost, logger)
	defer searchCache.Close()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.QueueName, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to message broker")
		}
		publisher = amqpPublisher
	}
	defer publisher.Close()

	searchService := search.NewService(db, searchCache, search.Options{
		DefaultLimit:      cfg.Search.DefaultLimit,
		MaxLimit:          cfg.Search.MaxLimit,
		IncludeUnreviewed: cfg.Search.IncludeUnreviewed,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Seed.Path != "" {
		if err := loadSeed(ctx, cfg, db, searchService, logger); err != nil {
			logger.WithError(err).Fatal("Failed to load seed catalog")
		}
	}

	handler := api.NewHandler(api.Services{
		DB:           db,
		Search:       searchService,
		Properties:   properties.NewService(db, searchService, logger),
		Reservations: reservations.NewService(db, publisher, logger),
		Users:        users.NewService(db, logger),
	}, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(handler, cfg.Server.AllowedOrigins, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shut down")
	}
}

// loadSeed writes the fixture catalog through the batch queue before the
// server starts accepting requests.
func loadSeed(ctx context.Context, cfg *config.Config, db *database.Database, searchService *search.Service, logger *logrus.Logger) error {
	catalogQueue := queue.NewCatalogQueue(cfg.BatchProcessing.QueueSize, logger)
	batchProcessor := processor.NewBatchProcessor(db.Gorm(context.Background()), catalogQueue, cfg, logger)
	batchProcessor.OnBatchProcessed(func(*models.CatalogBatch) {
		searchService.Invalidate()
	})

	batchProcessor.Start()
	catalogQueue.Start()
	defer func() {
		catalogQueue.Close()
		batchProcessor.Stop()
		<-catalogQueue.Done()
	}()

	logger.WithField("path", cfg.Seed.Path).Info("Loading seed catalog")
	loader := seed.NewLoader(catalogQueue, cfg.BatchProcessing.MaxBatchSize, logger)
	if err := loader.LoadFile(ctx, cfg.Seed.Path); err != nil {
		return err
	}

	processed, failed := batchProcessor.Stats()
	logger.WithFields(logrus.Fields{
		"processed": processed,
		"failed":    failed,
	}).Info("Seed catalog loaded")
	if failed > 0 {
		return errors.New("some seed batches could not be written")
	}
	return nil
}
