package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/clipshard/internal/domain"
	"github.com/timmy/clipshard/internal/join"
	"github.com/timmy/clipshard/internal/logger"
	"github.com/timmy/clipshard/internal/source"
)

// IngestOptions holds the parameters of one validation run
type IngestOptions struct {
	DataPath  string // asset table (data.json)
	SplitPath string // split JSON carrying the annotations array
	Split     string // split label stamped on every entry
	RootDir   string // root the image paths resolve against
}

// Ingest dry-runs the join: it drains the annotation stream, counting how
// many entries resolve and collecting the similarity-score distribution.
// Nothing is written.
// Parameters:
//   - ctx: context for cancellation and logging.
//   - opts: run parameters.
// Returns:
//   - *domain.IngestStats: counts for the run.
//   - *join.ScoreHistogram: score distribution over every annotation seen.
//   - error: non-nil if loading failed outright.
func (d *Driver) Ingest(ctx context.Context, opts *IngestOptions) (*domain.IngestStats, *join.ScoreHistogram, error) {
	runID := uuid.New().String()
	ctx = d.logger.WithContext(ctx)
	ctx = logger.SetRunID(ctx, runID)
	ctx = logger.SetComponent(ctx, "ingest")
	ctx = logger.SetSplit(ctx, opts.Split)

	stats := &domain.IngestStats{StartTime: time.Now()}

	run := &domain.Run{
		ID:        runID,
		Kind:      domain.RunKindIngest,
		Split:     opts.Split,
		DataPath:  opts.DataPath,
		Status:    domain.RunStatusRunning,
		StartedAt: stats.StartTime,
	}
	if err := d.beginRun(ctx, run); err != nil {
		return nil, nil, err
	}

	d.log(ctx).WithFields(logger.Fields{
		"data_path":  opts.DataPath,
		"split_path": opts.SplitPath,
	}).Info("Starting ingestion")

	hist := join.NewScoreHistogram()
	err := d.runIngest(ctx, opts, hist, stats)
	stats.EndTime = time.Now()

	run.TotalRecords = stats.TotalAnnotations
	run.WrittenSamples = stats.ResolvedEntries
	run.SkippedRecords = stats.SkippedRecords
	d.finishRun(ctx, run, err)

	if err != nil {
		return stats, hist, err
	}

	d.log(ctx).WithFields(logger.Fields{
		"total":      stats.TotalAnnotations,
		"resolved":   stats.ResolvedEntries,
		"skipped":    stats.SkippedRecords,
		"score_dist": hist.String(),
		"duration":   stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Ingestion completed")

	return stats, hist, nil
}

func (d *Driver) runIngest(ctx context.Context, opts *IngestOptions, hist *join.ScoreHistogram, stats *domain.IngestStats) error {
	loader := source.NewLoader(d.store)
	assets, err := loader.LoadAssets(ctx, opts.DataPath)
	if err != nil {
		return fmt.Errorf("failed to load asset table: %w", err)
	}
	anns, err := loader.LoadAnnotations(ctx, opts.SplitPath)
	if err != nil {
		return fmt.Errorf("failed to load annotations: %w", err)
	}

	joiner := join.NewJoiner(join.BuildAssetMap(assets), d.store, opts.RootDir, opts.Split)
	stream := join.NewStream(joiner, anns, hist)

	for {
		_, err := stream.Next(ctx)
		if err != nil {
			if err != io.EOF {
				d.log(ctx).Warn("Run cancelled, reporting partial counts")
			}
			break
		}
		stats.ResolvedEntries++
	}

	stats.TotalAnnotations = int64(stream.Total())
	stats.SkippedRecords = int64(stream.Skipped())
	return nil
}
