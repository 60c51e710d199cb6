package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"path"
	"path/filepath"
	"testing"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/timmy/clipshard/internal/domain"
	"github.com/timmy/clipshard/internal/media"
)

type fakeStore struct {
	openFn   func(ctx context.Context, p string) (io.ReadCloser, error)
	existsFn func(ctx context.Context, p string) (bool, error)
}

func (f *fakeStore) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if f.openFn == nil {
		return nil, errors.New("open not scripted")
	}
	return f.openFn(ctx, p)
}

func (f *fakeStore) Exists(ctx context.Context, p string) (bool, error) {
	if f.existsFn == nil {
		return false, errors.New("exists not scripted")
	}
	return f.existsFn(ctx, p)
}

func (f *fakeStore) Join(elem ...string) string {
	return path.Join(elem...)
}

func writeSplitTable(t *testing.T, path string, anns []domain.AnnotationRecord) {
	t.Helper()
	data, err := json.Marshal(map[string][]domain.AnnotationRecord{"annotations": anns})
	if err != nil {
		t.Fatalf("marshal annotations: %v", err)
	}
	writeFixture(t, path, data)
}

func readPartitionRows(t *testing.T, path string) []domain.PreparedEntry {
	t.Helper()
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(domain.PreparedEntry), 4)
	if err != nil {
		t.Fatalf("parquet reader %s: %v", path, err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	rows := make([]domain.PreparedEntry, num)
	if num > 0 {
		if err := pr.Read(&rows); err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
	}
	return rows
}

// TestPreprocessWritesPartitions joins five annotations and preprocesses
// them in chunks of two, checking partition layout, cleaned captions and the
// normalized image size.
func TestPreprocessWritesPartitions(t *testing.T) {
	tmp := t.TempDir()
	dataPath := newsroomFixture(t, tmp, 5)
	out := filepath.Join(tmp, "out")

	anns := make([]domain.AnnotationRecord, 0, 5)
	for i := 1; i <= 5; i++ {
		anns = append(anns, domain.AnnotationRecord{
			ID:              int64(i),
			ImageID:         int64(i),
			Falsified:       i%2 == 0,
			SimilarityScore: 0.5,
		})
	}
	splitPath := filepath.Join(tmp, "split.json")
	writeSplitTable(t, splitPath, anns)

	d := newLocalDriver(t, &Config{Workers: 2, ChunkSize: 2})
	stats, err := d.Preprocess(context.Background(), &PreprocessOptions{
		DataPath:  dataPath,
		SplitPath: splitPath,
		Split:     "train",
		RootDir:   filepath.Join(tmp, "root"),
		OutDir:    out,
		ImgSize:   32,
	})
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}

	if stats.TotalEntries != 5 || stats.WrittenRows != 5 || stats.InvalidEntries != 0 {
		t.Errorf("stats = entries %d written %d invalid %d, want 5/5/0",
			stats.TotalEntries, stats.WrittenRows, stats.InvalidEntries)
	}
	if stats.PartitionCount != 3 {
		t.Errorf("PartitionCount = %d, want 3", stats.PartitionCount)
	}

	wantRows := []int{2, 2, 1}
	captionIdx := 1
	for partIdx, want := range wantRows {
		rows := readPartitionRows(t, filepath.Join(out, PartitionName(partIdx)))
		if len(rows) != want {
			t.Fatalf("partition %d holds %d rows, want %d", partIdx, len(rows), want)
		}
		for _, row := range rows {
			if !row.Valid {
				t.Errorf("partition %d carries an invalid row: %+v", partIdx, row)
			}
			if wantCaption := fmt.Sprintf("caption %d", captionIdx); row.Caption != wantCaption {
				t.Errorf("caption = %q, want cleaned %q", row.Caption, wantCaption)
			}
			if wantLabel := captionIdx%2 == 0; row.Label != wantLabel {
				t.Errorf("label for entry %d = %v, want %v", captionIdx, row.Label, wantLabel)
			}

			jpg, err := base64.StdEncoding.DecodeString(row.Image)
			if err != nil {
				t.Fatalf("decode image column: %v", err)
			}
			img, _, err := image.Decode(bytes.NewReader(jpg))
			if err != nil {
				t.Fatalf("decode image bytes: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
				t.Errorf("image is %dx%d, want 32x32", b.Dx(), b.Dy())
			}
			captionIdx++
		}
	}
}

// TestPreprocessFiltersInvalidAndSkipsUnresolved mixes a resolvable entry
// whose image is undecodable and an annotation without an asset; the first
// is filtered from the partition, the second never reaches it.
func TestPreprocessFiltersInvalidAndSkipsUnresolved(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "root")
	out := filepath.Join(tmp, "out")

	writeFixture(t, filepath.Join(root, "images/1.jpg"), encodeTestJPEG(t, 8, 6))
	writeFixture(t, filepath.Join(root, "images/2.jpg"), encodeTestJPEG(t, 8, 6))
	writeFixture(t, filepath.Join(root, "images/3.jpg"), []byte("not an image"))

	assets := []domain.AssetRecord{
		{ID: 1, Source: "bbc", Caption: "First GOOD", ImagePath: "images/1.jpg"},
		{ID: 2, Source: "bbc", Caption: "Second GOOD", ImagePath: "images/2.jpg"},
		{ID: 3, Source: "bbc", Caption: "Broken image", ImagePath: "images/3.jpg"},
	}
	dataPath := filepath.Join(tmp, "data.json")
	writeAssetTable(t, dataPath, assets)

	anns := []domain.AnnotationRecord{
		{ID: 1, ImageID: 1, SimilarityScore: 0.9},
		{ID: 2, ImageID: 2, Falsified: true, SimilarityScore: 0.4},
		{ID: 3, ImageID: 3, SimilarityScore: 0.7},
		{ID: 9, ImageID: 9, SimilarityScore: 0.2},
	}
	splitPath := filepath.Join(tmp, "split.json")
	writeSplitTable(t, splitPath, anns)

	d := newLocalDriver(t, nil)
	stats, err := d.Preprocess(context.Background(), &PreprocessOptions{
		DataPath:  dataPath,
		SplitPath: splitPath,
		Split:     "validate",
		RootDir:   root,
		OutDir:    out,
		ImgSize:   16,
	})
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}

	if stats.TotalEntries != 3 {
		t.Errorf("TotalEntries = %d, want 3 resolved", stats.TotalEntries)
	}
	if stats.SkippedRecords != 1 {
		t.Errorf("SkippedRecords = %d, want 1 unresolved annotation", stats.SkippedRecords)
	}
	if stats.InvalidEntries != 1 {
		t.Errorf("InvalidEntries = %d, want 1 undecodable image", stats.InvalidEntries)
	}
	if stats.WrittenRows != 2 || stats.PartitionCount != 1 {
		t.Errorf("written %d partitions %d, want 2 rows in 1 partition",
			stats.WrittenRows, stats.PartitionCount)
	}

	rows := readPartitionRows(t, filepath.Join(out, PartitionName(0)))
	if len(rows) != 2 {
		t.Fatalf("partition holds %d rows, want 2", len(rows))
	}
	if rows[0].Caption != "first good" || rows[1].Caption != "second good" {
		t.Errorf("captions = %q, %q; want cleaned survivors in order", rows[0].Caption, rows[1].Caption)
	}
}

// TestMapChunkPreservesOrder runs the worker pool over a chunk and checks
// results stay aligned with their entries.
func TestMapChunkPreservesOrder(t *testing.T) {
	jpg := encodeTestJPEG(t, 8, 6)
	store := &fakeStore{
		openFn: func(_ context.Context, _ string) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(jpg)), nil
		},
	}

	entries := make([]*domain.Entry, 12)
	for i := range entries {
		entries[i] = &domain.Entry{
			Caption:   fmt.Sprintf("Caption %02d", i),
			ImagePath: fmt.Sprintf("images/%d.jpg", i),
			Label:     i%3 == 0,
			Split:     "train",
		}
	}

	d := NewDriver(store, nil, testLogger(), &Config{Workers: 4})
	results := d.mapChunk(context.Background(), media.NewNormalizer(media.DefaultQuality), entries, 16)

	if len(results) != len(entries) {
		t.Fatalf("got %d results, want %d", len(results), len(entries))
	}
	for i, res := range results {
		if res == nil {
			t.Fatalf("result %d is nil", i)
		}
		if want := fmt.Sprintf("caption %02d", i); res.Caption != want {
			t.Errorf("result %d caption = %q, want %q", i, res.Caption, want)
		}
		if res.Label != (i%3 == 0) {
			t.Errorf("result %d label = %v, want %v", i, res.Label, i%3 == 0)
		}
		if !res.Valid {
			t.Errorf("result %d not valid", i)
		}
	}
}
