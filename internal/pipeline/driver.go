package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/timmy/clipshard/internal/catalog"
	"github.com/timmy/clipshard/internal/domain"
	"github.com/timmy/clipshard/internal/logger"
	"github.com/timmy/clipshard/internal/storage"
)

// DefaultChunkSize is the number of joined entries preprocessed per
// partition when none is configured.
const DefaultChunkSize = 2000

// Driver orchestrates pipeline runs: loading inputs through the file store,
// streaming records through the per-phase loops and recording run rows in
// the catalog when one is attached.
type Driver struct {
	store     storage.FileStore
	runs      *catalog.RunRepository
	logger    *logger.Logger
	workers   int
	chunkSize int
}

// Config holds driver tuning knobs
type Config struct {
	Workers   int // preprocessing pool size, 0 means one per CPU
	ChunkSize int // joined entries per preprocessing partition
}

// NewDriver creates a pipeline driver.
// Parameters:
//   - store: file store inputs are read through.
//   - runs: run catalog repository, nil disables catalog rows.
//   - log: logger used when the context carries none.
//   - cfg: tuning knobs, nil for defaults.
// Returns:
//   - *Driver: driver ready to run any pipeline phase.
func NewDriver(store storage.FileStore, runs *catalog.RunRepository, log *logger.Logger, cfg *Config) *Driver {
	if cfg == nil {
		cfg = &Config{}
	}
	if log == nil {
		log = logger.GetDefault()
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Driver{
		store:     store,
		runs:      runs,
		logger:    log,
		workers:   workers,
		chunkSize: chunkSize,
	}
}

// log returns a logger from context if available, otherwise returns the driver's logger
func (d *Driver) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return d.logger
}

// beginRun creates the catalog row for a starting run. A nil repository
// means the catalog is disabled and the call is a no-op.
func (d *Driver) beginRun(ctx context.Context, run *domain.Run) error {
	if d.runs == nil {
		return nil
	}
	if err := d.runs.Create(ctx, run); err != nil {
		return fmt.Errorf("failed to create run catalog row: %w", err)
	}
	return nil
}

// finishRun persists the final state of the run row. The write uses a
// detached context so a cancelled run still gets its row closed; a failed
// write is logged and never fails the run.
func (d *Driver) finishRun(ctx context.Context, run *domain.Run, runErr error) {
	if d.runs == nil {
		return
	}

	now := time.Now()
	run.CompletedAt = &now
	run.Status = domain.RunStatusCompleted
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.ErrorLog = runErr.Error()
	}

	if err := d.runs.Finish(context.WithoutCancel(ctx), run); err != nil {
		d.log(ctx).WithError(err).Error("Failed to finalize run catalog row")
	}
}
