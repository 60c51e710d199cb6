package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/clipshard/internal/catalog"
	"github.com/timmy/clipshard/internal/config"
	"github.com/timmy/clipshard/internal/index"
	"github.com/timmy/clipshard/internal/logger"
	"github.com/timmy/clipshard/internal/media"
	"github.com/timmy/clipshard/internal/pipeline"
	"github.com/timmy/clipshard/internal/shard"
	"github.com/timmy/clipshard/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "clipshard-shard",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	dataJSON := flag.String("data-json", "", "Path to data.json, or a pre-normalized Parquet file with --preprocessed")
	rootDir := flag.String("root-dir", "", "Root directory asset paths resolve against")
	outDir := flag.String("out-dir", "", "Output directory for shards and index files")
	preprocessed := flag.Bool("preprocessed", false, "Treat --data-json as a pre-normalized Parquet table")
	samplesPerShard := flag.Int("samples-per-shard", shard.DefaultSamplesPerShard, "Samples per shard")
	quality := flag.Int("quality", media.DefaultQuality, "JPEG quality")
	flushAmount := flag.Int("flush-amount", index.DefaultFlushAmount, "Processed records between index flushes")
	logFile := flag.String("log-file", "", "Optional log file path")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *dataJSON == "" || *outDir == "" {
		appLogger.Fatal("Flags --data-json and --out-dir are required")
	}
	if !*preprocessed && *rootDir == "" {
		appLogger.Fatal("Flag --root-dir is required unless --preprocessed is set")
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
		ServiceName: "clipshard-shard",
		LogFile:     *logFile,
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	appLogger.WithFields(logger.Fields{
		"data_json":         *dataJSON,
		"out_dir":           *outDir,
		"preprocessed":      *preprocessed,
		"samples_per_shard": *samplesPerShard,
	}).Info("Starting sharding")

	// Initialize the run catalog when enabled
	var runRepo *catalog.RunRepository
	if cfg.Catalog.Enabled {
		db, err := catalog.InitDB(&cfg.Catalog)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize run catalog")
		}
		runRepo = catalog.NewRunRepository(db)
	}

	// Initialize storage for the dataset root. The pre-normalized path has no
	// root, so the table path picks the backend instead.
	base := *rootDir
	if base == "" {
		base = *dataJSON
	}
	store, err := storage.NewFileStore(base, &storage.S3Config{
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

	stats, err := driver.Shard(ctx, &pipeline.ShardOptions{
		DataPath:        *dataJSON,
		RootDir:         *rootDir,
		OutDir:          *outDir,
		Preprocessed:    *preprocessed,
		SamplesPerShard: *samplesPerShard,
		Quality:         *quality,
		FlushAmount:     *flushAmount,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to shard")
	}

	appLogger.WithFields(logger.Fields{
		"total":   stats.TotalRecords,
		"written": stats.WrittenSamples,
		"skipped": stats.SkippedRecords,
		"shards":  stats.ShardCount,
	}).Info("Sharding completed")
}
