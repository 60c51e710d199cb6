package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/clipshard/internal/catalog"
	"github.com/timmy/clipshard/internal/config"
	"github.com/timmy/clipshard/internal/logger"
	"github.com/timmy/clipshard/internal/pipeline"
	"github.com/timmy/clipshard/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "clipshard-ingest",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	dataJSON := flag.String("data-json", "", "Path to the asset table (data.json)")
	rootDir := flag.String("root-dir", "", "Root directory image paths resolve against")
	splitJSON := flag.String("split-json", "", "Path to the split JSON carrying the annotations")
	splitStr := flag.String("split-str", "", "Split label (train, test, validate)")
	logFile := flag.String("log-file", "", "Optional log file path")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *dataJSON == "" || *rootDir == "" || *splitJSON == "" || *splitStr == "" {
		appLogger.Fatal("Flags --data-json, --root-dir, --split-json and --split-str are required")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Rebuild the logger with the configured level and optional file output
	appLogger = logger.New(&logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "clipshard-ingest",
		LogFile:     *logFile,
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	appLogger.WithFields(logger.Fields{
		"data_json":  *dataJSON,
		"split_json": *splitJSON,
		"split":      *splitStr,
	}).Info("Starting ingestion")

	// Initialize the run catalog when enabled
	var runRepo *catalog.RunRepository
	if cfg.Catalog.Enabled {
		db, err := catalog.InitDB(&cfg.Catalog)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize run catalog")
		}
		runRepo = catalog.NewRunRepository(db)
	}

	// Initialize storage for the dataset root
	store, err := storage.NewFileStore(*rootDir, &storage.S3Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	driver := pipeline.NewDriver(store, runRepo, appLogger, &pipeline.Config{
		Workers:   cfg.Pipeline.Workers,
		ChunkSize: cfg.Pipeline.ChunkSize,
	})

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	stats, hist, err := driver.Ingest(ctx, &pipeline.IngestOptions{
		DataPath:  *dataJSON,
		SplitPath: *splitJSON,
		Split:     *splitStr,
		RootDir:   *rootDir,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to ingest")
	}

	appLogger.WithFields(logger.Fields{
		"total":      stats.TotalAnnotations,
		"resolved":   stats.ResolvedEntries,
		"skipped":    stats.SkippedRecords,
		"score_dist": hist.String(),
	}).Info("Ingestion completed")
}
