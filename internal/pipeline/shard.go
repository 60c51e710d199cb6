package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/clipshard/internal/domain"
	"github.com/timmy/clipshard/internal/index"
	"github.com/timmy/clipshard/internal/join"
	"github.com/timmy/clipshard/internal/logger"
	"github.com/timmy/clipshard/internal/media"
	"github.com/timmy/clipshard/internal/shard"
	"github.com/timmy/clipshard/internal/source"
	"github.com/timmy/clipshard/internal/storage"
)

// ShardOptions holds the parameters of one sharding run
type ShardOptions struct {
	DataPath        string // asset table: data.json, or a pre-normalized Parquet file
	RootDir         string // root the asset paths resolve against
	OutDir          string // local directory shards and index files land in
	Preprocessed    bool   // treat DataPath as pre-normalized Parquet
	SamplesPerShard int    // 0 means shard.DefaultSamplesPerShard
	Quality         int    // JPEG quality, 0 means media.DefaultQuality
	FlushAmount     int    // index flush cadence, 0 means index.DefaultFlushAmount
}

// Shard streams the asset table into capacity-bounded tar containers and a
// periodically flushed Parquet index. Per-record failures and duplicate
// sample keys are logged and skipped; the run only fails on load or write
// errors. Cancelling the context stops the stream between records and the
// output written so far is still finalized.
// Parameters:
//   - ctx: context for cancellation and logging.
//   - opts: run parameters.
// Returns:
//   - *domain.ShardStats: counts for the run, partial on failure.
//   - error: non-nil if loading or writing failed outright.
func (d *Driver) Shard(ctx context.Context, opts *ShardOptions) (*domain.ShardStats, error) {
	samplesPerShard := opts.SamplesPerShard
	if samplesPerShard <= 0 {
		samplesPerShard = shard.DefaultSamplesPerShard
	}
	quality := opts.Quality
	if quality <= 0 {
		quality = media.DefaultQuality
	}
	flushAmount := opts.FlushAmount
	if flushAmount <= 0 {
		flushAmount = index.DefaultFlushAmount
	}

	runID := uuid.New().String()
	ctx = d.logger.WithContext(ctx)
	ctx = logger.SetRunID(ctx, runID)
	ctx = logger.SetComponent(ctx, "shard")

	stats := &domain.ShardStats{StartTime: time.Now()}

	run := &domain.Run{
		ID:        runID,
		Kind:      domain.RunKindShard,
		DataPath:  opts.DataPath,
		OutDir:    opts.OutDir,
		Status:    domain.RunStatusRunning,
		StartedAt: stats.StartTime,
	}
	if err := d.beginRun(ctx, run); err != nil {
		return nil, err
	}

	d.log(ctx).WithFields(logger.Fields{
		"data_path":         opts.DataPath,
		"out_dir":           opts.OutDir,
		"preprocessed":      opts.Preprocessed,
		"samples_per_shard": samplesPerShard,
		"flush_amount":      flushAmount,
	}).Info("Starting sharding")

	err := d.runShard(ctx, opts, samplesPerShard, quality, flushAmount, stats)
	stats.EndTime = time.Now()

	run.TotalRecords = stats.TotalRecords
	run.WrittenSamples = stats.WrittenSamples
	run.SkippedRecords = stats.SkippedRecords
	run.ShardCount = stats.ShardCount
	run.IndexFiles = stats.IndexFiles
	d.finishRun(ctx, run, err)

	if err != nil {
		return stats, err
	}

	d.log(ctx).WithFields(logger.Fields{
		"total":       stats.TotalRecords,
		"written":     stats.WrittenSamples,
		"skipped":     stats.SkippedRecords,
		"shards":      stats.ShardCount,
		"index_files": stats.IndexFiles,
		"duration":    stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Sharding completed")

	return stats, nil
}

func (d *Driver) runShard(ctx context.Context, opts *ShardOptions, samplesPerShard, quality, flushAmount int, stats *domain.ShardStats) error {
	var materialize func(context.Context, int) (*domain.Sample, *join.SkipError)
	var total int

	if opts.Preprocessed {
		rows, err := source.LoadTabular(opts.DataPath)
		if err != nil {
			return fmt.Errorf("failed to load pre-normalized table: %w", err)
		}
		total = len(rows)
		materialize = func(_ context.Context, i int) (*domain.Sample, *join.SkipError) {
			return tabularSample(rows[i])
		}
	} else {
		assets, err := source.NewLoader(d.store).LoadAssets(ctx, opts.DataPath)
		if err != nil {
			return fmt.Errorf("failed to load asset table: %w", err)
		}
		norm := media.NewNormalizer(quality)
		total = len(assets)
		materialize = func(ctx context.Context, i int) (*domain.Sample, *join.SkipError) {
			return d.rawSample(ctx, norm, opts.RootDir, assets[i])
		}
	}

	stats.TotalRecords = int64(total)

	sink, err := shard.NewWriter(opts.OutDir, samplesPerShard)
	if err != nil {
		return err
	}
	flusher, err := index.NewFlusher(opts.OutDir)
	if err != nil {
		return err
	}

	if err := d.commitLoop(ctx, total, materialize, sink, flusher, flushAmount, stats); err != nil {
		return err
	}

	if err := flusher.FlushFinal(ctx); err != nil {
		return err
	}
	if err := sink.Finalize(); err != nil {
		return err
	}

	stats.ShardCount = sink.Count()
	stats.IndexFiles = flusher.Files()
	return nil
}

// commitLoop materializes record i, dedupes on sample key, appends to the
// shard writer and records the index row, flushing the index every
// flushAmount processed records whether they were written or skipped.
func (d *Driver) commitLoop(ctx context.Context, total int, materialize func(context.Context, int) (*domain.Sample, *join.SkipError), sink *shard.Writer, flusher *index.Flusher, flushAmount int, stats *domain.ShardStats) error {
	seen := make(map[string]struct{}, total)

	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			d.log(ctx).Warn("Run cancelled, finalizing partial output")
			break
		}

		sample, skipErr := materialize(ctx, i)
		if skipErr != nil {
			stats.SkippedRecords++
			d.log(ctx).WithFields(logger.Fields{
				"reason":             skipErr.Reason,
				logger.FieldRecordID: skipErr.RecordID,
				logger.FieldPath:     skipErr.Path,
			}).Warnf("Skipping record: %v", skipErr)
		} else if _, dup := seen[sample.Key]; dup {
			stats.SkippedRecords++
			d.log(ctx).WithFields(logger.Fields{
				"reason":             join.ReasonDuplicateKey,
				logger.FieldRecordID: sample.Meta.ID,
				"key":                sample.Key,
			}).Warn("Skipping record: duplicate sample key")
		} else {
			seen[sample.Key] = struct{}{}

			shardName, err := sink.Append(sample)
			if err != nil {
				return fmt.Errorf("failed to append sample %s: %w", sample.Key, err)
			}
			flusher.Record(domain.IndexRecord{
				ID:      sample.Meta.ID,
				Source:  sample.Meta.Source,
				Topic:   sample.Meta.Topic,
				Caption: sample.Meta.Caption,
				Key:     sample.Key,
				Shard:   shardName,
			})
			stats.WrittenSamples++
		}

		if (i+1)%flushAmount == 0 {
			if err := flusher.Flush(ctx, i+1); err != nil {
				return err
			}
		}
	}

	return nil
}

// rawSample materializes one asset record: both referenced files must exist,
// the image must decode and re-encode as JPEG, the article text is read as
// raw bytes.
func (d *Driver) rawSample(ctx context.Context, norm *media.Normalizer, rootDir string, rec domain.AssetRecord) (*domain.Sample, *join.SkipError) {
	imgPath := d.store.Join(rootDir, rec.ImagePath)
	txtPath := d.store.Join(rootDir, rec.ArticlePath)

	ok, err := d.store.Exists(ctx, imgPath)
	if err != nil || !ok {
		return nil, &join.SkipError{Reason: join.ReasonMissingImage, RecordID: rec.ID, Path: imgPath, Err: err}
	}
	ok, err = d.store.Exists(ctx, txtPath)
	if err != nil || !ok {
		return nil, &join.SkipError{Reason: join.ReasonMissingText, RecordID: rec.ID, Path: txtPath, Err: err}
	}

	raw, err := storage.ReadAll(ctx, d.store, imgPath)
	if err != nil {
		return nil, &join.SkipError{Reason: join.ReasonImageDecode, RecordID: rec.ID, Path: imgPath, Err: err}
	}
	img, err := media.DecodeImage(raw)
	if err != nil {
		return nil, &join.SkipError{Reason: join.ReasonImageDecode, RecordID: rec.ID, Path: imgPath, Err: err}
	}
	jpg, err := norm.EncodeJPEG(img)
	if err != nil {
		return nil, &join.SkipError{Reason: join.ReasonImageDecode, RecordID: rec.ID, Path: imgPath, Err: err}
	}

	text, err := storage.ReadAll(ctx, d.store, txtPath)
	if err != nil {
		return nil, &join.SkipError{Reason: join.ReasonTextRead, RecordID: rec.ID, Path: txtPath, Err: err}
	}

	return &domain.Sample{
		Key:   domain.SampleKey(rec.Source, rec.ID),
		Image: jpg,
		Text:  text,
		Meta: domain.SampleMeta{
			ID:      rec.ID,
			Source:  rec.Source,
			Topic:   rec.Topic,
			Caption: rec.Caption,
		},
	}, nil
}

// tabularSample materializes one pre-normalized row. The image bytes are
// stored base64-encoded and pass through without re-encoding.
func tabularSample(row domain.TabularSample) (*domain.Sample, *join.SkipError) {
	img, err := base64.StdEncoding.DecodeString(row.ImageB64)
	if err != nil {
		return nil, &join.SkipError{Reason: join.ReasonImageDecode, RecordID: row.ID, Err: err}
	}

	return &domain.Sample{
		Key:   domain.SampleKey(row.Source, row.ID),
		Image: img,
		Text:  []byte(row.Text),
		Meta: domain.SampleMeta{
			ID:      row.ID,
			Source:  row.Source,
			Topic:   row.Topic,
			Caption: row.Caption,
		},
	}, nil
}
