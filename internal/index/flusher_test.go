package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/timmy/clipshard/internal/domain"
)

func indexRecordN(i int) domain.IndexRecord {
	return domain.IndexRecord{
		ID:      int64(i),
		Source:  "bbc",
		Topic:   "politics",
		Caption: fmt.Sprintf("caption %d", i),
		Key:     fmt.Sprintf("bbc_%d", i),
		Shard:   "shard-000000.tar",
	}
}

func readIndex(t *testing.T, path string) []domain.IndexRecord {
	t.Helper()
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(domain.IndexRecord), 4)
	if err != nil {
		t.Fatalf("parquet reader %s: %v", path, err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	rows := make([]domain.IndexRecord, num)
	if num > 0 {
		if err := pr.Read(&rows); err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
	}
	return rows
}

func TestFlusherCadence(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFlusher(dir)
	if err != nil {
		t.Fatalf("NewFlusher: %v", err)
	}
	ctx := context.Background()

	// Five records at a cadence of two: flushes at 2 and 4, final holds 1.
	f.Record(indexRecordN(0))
	f.Record(indexRecordN(1))
	if err := f.Flush(ctx, 2); err != nil {
		t.Fatalf("Flush(2): %v", err)
	}

	f.Record(indexRecordN(2))
	f.Record(indexRecordN(3))
	if err := f.Flush(ctx, 4); err != nil {
		t.Fatalf("Flush(4): %v", err)
	}

	f.Record(indexRecordN(4))
	if err := f.FlushFinal(ctx); err != nil {
		t.Fatalf("FlushFinal: %v", err)
	}

	if f.Files() != 3 {
		t.Errorf("Files = %d, want 3", f.Files())
	}

	first := readIndex(t, filepath.Join(dir, "index-000000002.parquet"))
	if len(first) != 2 || first[0].Key != "bbc_0" || first[1].Key != "bbc_1" {
		t.Errorf("first flush rows = %+v", first)
	}

	second := readIndex(t, filepath.Join(dir, "index-000000004.parquet"))
	if len(second) != 2 || second[0].Key != "bbc_2" {
		t.Errorf("second flush rows = %+v", second)
	}

	final := readIndex(t, filepath.Join(dir, "index-final.parquet"))
	if len(final) != 1 || final[0].Key != "bbc_4" {
		t.Errorf("final flush rows = %+v", final)
	}
}

func TestFlusherEmptyBufferStillWritesFile(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFlusher(dir)
	if err != nil {
		t.Fatalf("NewFlusher: %v", err)
	}

	if err := f.Flush(context.Background(), 2); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	rows := readIndex(t, filepath.Join(dir, "index-000000002.parquet"))
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
	if f.Files() != 1 {
		t.Errorf("Files = %d, want 1", f.Files())
	}
}

func TestFlusherFinalSkippedWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFlusher(dir)
	if err != nil {
		t.Fatalf("NewFlusher: %v", err)
	}

	f.Record(indexRecordN(0))
	if err := f.Flush(context.Background(), 1); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := f.FlushFinal(context.Background()); err != nil {
		t.Fatalf("FlushFinal: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, FinalIndexName)); !os.IsNotExist(err) {
		t.Error("final index written for empty remainder")
	}
	if f.Files() != 1 {
		t.Errorf("Files = %d, want 1", f.Files())
	}
}

func TestFlusherNoRecordFlushedTwice(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFlusher(dir)
	if err != nil {
		t.Fatalf("NewFlusher: %v", err)
	}
	ctx := context.Background()

	f.Record(indexRecordN(0))
	if err := f.Flush(ctx, 1); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if f.Buffered() != 0 {
		t.Fatalf("Buffered = %d after flush, want 0", f.Buffered())
	}

	f.Record(indexRecordN(1))
	if err := f.FlushFinal(ctx); err != nil {
		t.Fatalf("FlushFinal: %v", err)
	}

	final := readIndex(t, filepath.Join(dir, FinalIndexName))
	if len(final) != 1 || final[0].Key != "bbc_1" {
		t.Errorf("final rows = %+v, want only the second record", final)
	}
}

func TestIndexName(t *testing.T) {
	if got := IndexName(50000); got != "index-000050000.parquet" {
		t.Errorf("IndexName(50000) = %q", got)
	}
	if got := IndexName(2); got != "index-000000002.parquet" {
		t.Errorf("IndexName(2) = %q", got)
	}
}
