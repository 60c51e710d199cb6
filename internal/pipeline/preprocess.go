package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/timmy/clipshard/internal/domain"
	"github.com/timmy/clipshard/internal/join"
	"github.com/timmy/clipshard/internal/logger"
	"github.com/timmy/clipshard/internal/media"
	"github.com/timmy/clipshard/internal/source"
)

// PartitionName formats the Parquet partition filename for one chunk
func PartitionName(idx int) string {
	return fmt.Sprintf("preprocessed-shard-%05d.parquet", idx)
}

// PreprocessOptions holds the parameters of one preprocessing run
type PreprocessOptions struct {
	DataPath  string // asset table (data.json)
	SplitPath string // split JSON carrying the annotations array
	Split     string // split label stamped on every entry
	RootDir   string // root the image paths resolve against
	OutDir    string // local directory the partitions land in
	ImgSize   int    // square resize target, 0 means media.DefaultImageSize
}

// Preprocess joins the annotation stream against the asset table and maps
// each chunk of entries through the media normalizer on a worker pool,
// writing one Parquet partition per chunk. Entries whose image fails to
// decode keep their caption and label but are filtered out of the partition.
// Parameters:
//   - ctx: context for cancellation and logging.
//   - opts: run parameters.
// Returns:
//   - *domain.PrepStats: counts for the run, partial on failure.
//   - error: non-nil if loading or writing failed outright.
func (d *Driver) Preprocess(ctx context.Context, opts *PreprocessOptions) (*domain.PrepStats, error) {
	size := opts.ImgSize
	if size <= 0 {
		size = media.DefaultImageSize
	}

	runID := uuid.New().String()
	ctx = d.logger.WithContext(ctx)
	ctx = logger.SetRunID(ctx, runID)
	ctx = logger.SetComponent(ctx, "preprocess")
	ctx = logger.SetSplit(ctx, opts.Split)

	stats := &domain.PrepStats{StartTime: time.Now()}

	run := &domain.Run{
		ID:        runID,
		Kind:      domain.RunKindPreprocess,
		Split:     opts.Split,
		DataPath:  opts.DataPath,
		OutDir:    opts.OutDir,
		Status:    domain.RunStatusRunning,
		StartedAt: stats.StartTime,
	}
	if err := d.beginRun(ctx, run); err != nil {
		return nil, err
	}

	d.log(ctx).WithFields(logger.Fields{
		"data_path":  opts.DataPath,
		"split_path": opts.SplitPath,
		"out_dir":    opts.OutDir,
		"img_size":   size,
		"workers":    d.workers,
		"chunk_size": d.chunkSize,
	}).Info("Starting preprocessing")

	hist := join.NewScoreHistogram()
	err := d.runPreprocess(ctx, opts, size, hist, stats)
	stats.EndTime = time.Now()

	run.TotalRecords = stats.TotalEntries
	run.WrittenSamples = stats.WrittenRows
	run.SkippedRecords = stats.SkippedRecords
	run.PartitionCount = stats.PartitionCount
	d.finishRun(ctx, run, err)

	if err != nil {
		return stats, err
	}

	d.log(ctx).WithFields(logger.Fields{
		"entries":    stats.TotalEntries,
		"written":    stats.WrittenRows,
		"invalid":    stats.InvalidEntries,
		"skipped":    stats.SkippedRecords,
		"partitions": stats.PartitionCount,
		"score_dist": hist.String(),
		"duration":   stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Preprocessing completed")

	return stats, nil
}

func (d *Driver) runPreprocess(ctx context.Context, opts *PreprocessOptions, size int, hist *join.ScoreHistogram, stats *domain.PrepStats) error {
	loader := source.NewLoader(d.store)
	assets, err := loader.LoadAssets(ctx, opts.DataPath)
	if err != nil {
		return fmt.Errorf("failed to load asset table: %w", err)
	}
	anns, err := loader.LoadAnnotations(ctx, opts.SplitPath)
	if err != nil {
		return fmt.Errorf("failed to load annotations: %w", err)
	}

	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", opts.OutDir, err)
	}

	joiner := join.NewJoiner(join.BuildAssetMap(assets), d.store, opts.RootDir, opts.Split)
	stream := join.NewStream(joiner, anns, hist)
	norm := media.NewNormalizer(media.DefaultQuality)

	partIdx := 0
	for {
		chunk, chunkErr := d.nextChunk(ctx, stream)

		if len(chunk) > 0 {
			stats.TotalEntries += int64(len(chunk))

			prepared := d.mapChunk(ctx, norm, chunk, size)

			rows := make([]domain.PreparedEntry, 0, len(prepared))
			for _, p := range prepared {
				if p.Valid {
					rows = append(rows, *p)
				}
			}
			stats.InvalidEntries += int64(len(prepared) - len(rows))

			path := filepath.Join(opts.OutDir, PartitionName(partIdx))
			if err := writePartition(path, rows); err != nil {
				return err
			}
			d.log(ctx).WithFields(logger.Fields{
				logger.FieldCount: len(rows),
				logger.FieldPath:  path,
			}).Infof("Wrote partition %d", partIdx)

			partIdx++
			stats.WrittenRows += int64(len(rows))
			stats.PartitionCount = partIdx
		}

		if chunkErr != nil {
			if chunkErr != io.EOF {
				d.log(ctx).Warn("Run cancelled, keeping partitions written so far")
			}
			break
		}
	}

	stats.SkippedRecords = int64(stream.Skipped())
	return nil
}

// nextChunk pulls up to chunkSize entries off the stream. The returned error
// is io.EOF once the stream is exhausted, or the context error on
// cancellation; either way the entries collected before it still count.
func (d *Driver) nextChunk(ctx context.Context, stream *join.Stream) ([]*domain.Entry, error) {
	chunk := make([]*domain.Entry, 0, d.chunkSize)
	for len(chunk) < d.chunkSize {
		entry, err := stream.Next(ctx)
		if err != nil {
			return chunk, err
		}
		chunk = append(chunk, entry)
	}
	return chunk, nil
}

// mapChunk prepares every entry of one chunk on the worker pool. Workers
// write to disjoint indices of the results slice so entry order is
// preserved without locking.
func (d *Driver) mapChunk(ctx context.Context, norm *media.Normalizer, entries []*domain.Entry, size int) []*domain.PreparedEntry {
	workers := d.workers
	if workers > len(entries) {
		workers = len(entries)
	}

	results := make([]*domain.PreparedEntry, len(entries))
	jobs := make(chan int, workers*2)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = norm.PrepareEntry(ctx, d.store, entries[i], size)
			}
		}()
	}

	for i := range entries {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func writePartition(path string, rows []domain.PreparedEntry) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create partition file %s: %w", path, err)
	}

	pw, err := writer.NewParquetWriter(fw, new(domain.PreparedEntry), 4)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to create parquet writer for %s: %w", path, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return fmt.Errorf("failed to write partition row to %s: %w", path, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to finalize partition file %s: %w", path, err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close partition file %s: %w", path, err)
	}
	return nil
}
