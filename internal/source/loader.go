package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/timmy/clipshard/internal/domain"
	"github.com/timmy/clipshard/internal/storage"
)

// Loader reads dataset tables through a FileStore so inputs can live on
// local disk, S3 or HTTP.
type Loader struct {
	store storage.FileStore
}

// NewLoader creates a loader backed by the given store
func NewLoader(store storage.FileStore) *Loader {
	return &Loader{store: store}
}

// LoadAssets reads the asset table (data.json).
// A file holding a single object instead of an array is tolerated and
// wrapped into a one-element slice.
// Parameters:
//   - ctx: context for cancellation.
//   - path: asset table path or URL.
// Returns:
//   - []domain.AssetRecord: parsed asset records in file order.
//   - error: non-nil if the file cannot be read or parsed.
func (l *Loader) LoadAssets(ctx context.Context, path string) ([]domain.AssetRecord, error) {
	raw, err := storage.ReadAll(ctx, l.store, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset table %s: %w", path, err)
	}

	var records []domain.AssetRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		var single domain.AssetRecord
		if errSingle := json.Unmarshal(raw, &single); errSingle != nil {
			return nil, fmt.Errorf("failed to parse asset table %s: %w", path, err)
		}
		records = []domain.AssetRecord{single}
	}

	return records, nil
}

// LoadAnnotations reads a split file and returns its "annotations" array.
// A split file without the key yields an empty slice, not an error.
// Parameters:
//   - ctx: context for cancellation.
//   - path: split JSON path or URL.
// Returns:
//   - []domain.AnnotationRecord: labeled pairings in file order.
//   - error: non-nil if the file cannot be read or parsed.
func (l *Loader) LoadAnnotations(ctx context.Context, path string) ([]domain.AnnotationRecord, error) {
	raw, err := storage.ReadAll(ctx, l.store, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load split file %s: %w", path, err)
	}

	var split struct {
		Annotations []domain.AnnotationRecord `json:"annotations"`
	}
	if err := json.Unmarshal(raw, &split); err != nil {
		return nil, fmt.Errorf("failed to parse split file %s: %w", path, err)
	}

	return split.Annotations, nil
}

// LoadTabular reads a pre-normalized Parquet input where image bytes and
// article text are inlined per row. Parquet inputs are local files.
// Parameters:
//   - path: parquet file path on the local filesystem.
// Returns:
//   - []domain.TabularSample: all rows in file order.
//   - error: non-nil if the file cannot be opened or decoded.
func LoadTabular(path string) ([]domain.TabularSample, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(domain.TabularSample), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader for %s: %w", path, err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	rows := make([]domain.TabularSample, num)
	if num > 0 {
		if err := pr.Read(&rows); err != nil {
			return nil, fmt.Errorf("failed to read parquet rows from %s: %w", path, err)
		}
	}

	return rows, nil
}
