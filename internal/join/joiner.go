package join

import (
	"context"

	"github.com/timmy/clipshard/internal/domain"
	"github.com/timmy/clipshard/internal/storage"
)

// AssetRef is the projection of an asset row the join needs.
type AssetRef struct {
	Caption   string
	ImagePath string
}

// BuildAssetMap indexes asset records by id. On duplicate ids the last
// record wins, matching the resolution order of the source table itself.
// Parameters:
//   - records: asset records in file order.
// Returns:
//   - map[int64]AssetRef: id to caption/image-path projection.
func BuildAssetMap(records []domain.AssetRecord) map[int64]AssetRef {
	assets := make(map[int64]AssetRef, len(records))
	for _, rec := range records {
		assets[rec.ID] = AssetRef{
			Caption:   rec.Caption,
			ImagePath: rec.ImagePath,
		}
	}
	return assets
}

// Joiner resolves split annotations against the asset map into entries.
type Joiner struct {
	assets  map[int64]AssetRef
	store   storage.FileStore
	rootDir string
	split   string
}

// NewJoiner creates a joiner for one split.
// Parameters:
//   - assets: asset map built by BuildAssetMap.
//   - store: file store used to resolve and probe image paths.
//   - rootDir: image root directory or URL prefix.
//   - split: split label stamped on every entry.
// Returns:
//   - *Joiner: initialized joiner.
func NewJoiner(assets map[int64]AssetRef, store storage.FileStore, rootDir, split string) *Joiner {
	return &Joiner{
		assets:  assets,
		store:   store,
		rootDir: rootDir,
		split:   split,
	}
}

// Resolve joins one annotation into an entry. Both the caption id and the
// image id must resolve in the asset map and the referenced image file must
// exist; otherwise a SkipError describes why the record was dropped.
// Parameters:
//   - ctx: context for cancellation.
//   - ann: annotation to resolve.
// Returns:
//   - *domain.Entry: joined entry with a root-resolved image path, or nil.
//   - *SkipError: non-nil when the record must be skipped.
func (j *Joiner) Resolve(ctx context.Context, ann domain.AnnotationRecord) (*domain.Entry, *SkipError) {
	captionRef, capOK := j.assets[ann.ID]
	imageRef, imgOK := j.assets[ann.ImageID]

	if !capOK || !imgOK {
		return nil, &SkipError{
			Reason:   ReasonUnresolvedRef,
			RecordID: ann.ID,
			ImageID:  ann.ImageID,
		}
	}

	imgPath := j.store.Join(j.rootDir, imageRef.ImagePath)

	exists, err := j.store.Exists(ctx, imgPath)
	if err != nil {
		return nil, &SkipError{
			Reason:   ReasonMissingImage,
			RecordID: ann.ID,
			ImageID:  ann.ImageID,
			Path:     imgPath,
			Err:      err,
		}
	}
	if !exists {
		return nil, &SkipError{
			Reason:   ReasonMissingImage,
			RecordID: ann.ID,
			ImageID:  ann.ImageID,
			Path:     imgPath,
		}
	}

	return &domain.Entry{
		Caption:   captionRef.Caption,
		ImagePath: imgPath,
		Label:     ann.Falsified,
		Split:     j.split,
	}, nil
}
