package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/timmy/clipshard/internal/domain"
	"github.com/timmy/clipshard/internal/logger"
)

// DefaultFlushAmount is the cadence (in processed records) between flushes
// when none is configured.
const DefaultFlushAmount = 50000

// FinalIndexName is the filename of the remainder flush.
const FinalIndexName = "index-final.parquet"

// IndexName formats the flush filename for a cumulative processed count.
func IndexName(processed int) string {
	return fmt.Sprintf("index-%09d.parquet", processed)
}

// Flusher buffers index records in insertion order and writes them out as
// snappy-compressed Parquet files. The flush cadence belongs to the caller;
// the flusher only names files after the cumulative processed count it is
// handed. Every buffered record is written exactly once.
type Flusher struct {
	outDir  string
	records []domain.IndexRecord
	files   int
}

// NewFlusher creates a flusher rooted at outDir, creating the directory if
// needed.
func NewFlusher(outDir string) (*Flusher, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outDir, err)
	}
	return &Flusher{outDir: outDir}, nil
}

// Record buffers one index row
func (f *Flusher) Record(rec domain.IndexRecord) {
	f.records = append(f.records, rec)
}

// Flush writes the buffer to index-%09d.parquet named by the cumulative
// processed count, then clears the buffer. An empty buffer still produces a
// zero-row file so the flush files line up with the cadence.
// Parameters:
//   - ctx: context for logging.
//   - processed: cumulative processed record count, written and skipped.
// Returns:
//   - error: non-nil if the Parquet file cannot be written.
func (f *Flusher) Flush(ctx context.Context, processed int) error {
	name := IndexName(processed)
	if err := f.write(name); err != nil {
		return err
	}

	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldCount: len(f.records),
		logger.FieldPath:  filepath.Join(f.outDir, name),
	}).Infof("Flushed index at %d processed records", processed)

	f.records = f.records[:0]
	f.files++
	return nil
}

// FlushFinal writes the remainder buffer to index-final.parquet. A run whose
// record count divides evenly into the cadence leaves nothing behind and no
// final file is written.
// Parameters:
//   - ctx: context for logging.
// Returns:
//   - error: non-nil if the Parquet file cannot be written.
func (f *Flusher) FlushFinal(ctx context.Context) error {
	if len(f.records) == 0 {
		return nil
	}

	if err := f.write(FinalIndexName); err != nil {
		return err
	}

	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldCount: len(f.records),
		logger.FieldPath:  filepath.Join(f.outDir, FinalIndexName),
	}).Info("Flushed final index")

	f.records = f.records[:0]
	f.files++
	return nil
}

// Files reports how many index files have been written
func (f *Flusher) Files() int {
	return f.files
}

// Buffered reports how many rows are waiting for the next flush
func (f *Flusher) Buffered() int {
	return len(f.records)
}

func (f *Flusher) write(name string) error {
	path := filepath.Join(f.outDir, name)

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create index file %s: %w", name, err)
	}

	pw, err := writer.NewParquetWriter(fw, new(domain.IndexRecord), 4)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to create parquet writer for %s: %w", name, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, rec := range f.records {
		if err := pw.Write(rec); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return fmt.Errorf("failed to write index row to %s: %w", name, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to finalize index file %s: %w", name, err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close index file %s: %w", name, err)
	}
	return nil
}
