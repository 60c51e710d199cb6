package media

import (
	"context"
	"encoding/base64"

	"github.com/timmy/clipshard/internal/domain"
	"github.com/timmy/clipshard/internal/logger"
	"github.com/timmy/clipshard/internal/storage"
)

// PrepareEntry cleans and encodes one joined entry into a training-table row.
// Caption and label always carry over; the base64 image and Valid flag are
// set only when the image loads, decodes and normalizes cleanly. Failures are
// logged and leave Valid false so the caller can filter the row out.
// Parameters:
//   - ctx: context for cancellation and logging.
//   - store: file store the entry's image path resolves against.
//   - entry: joined entry to prepare.
//   - size: square edge for the normalized image.
// Returns:
//   - *domain.PreparedEntry: prepared row, never nil.
func (n *Normalizer) PrepareEntry(ctx context.Context, store storage.FileStore, entry *domain.Entry, size int) *domain.PreparedEntry {
	out := &domain.PreparedEntry{
		Caption: CleanText(entry.Caption),
		Label:   entry.Label,
	}

	raw, err := storage.ReadAll(ctx, store, entry.ImagePath)
	if err != nil {
		logger.FromContext(ctx).WithError(err).
			WithField(logger.FieldPath, entry.ImagePath).
			Error("Image load failed")
		return out
	}

	img, err := DecodeImage(raw)
	if err != nil {
		logger.FromContext(ctx).WithError(err).
			WithField(logger.FieldPath, entry.ImagePath).
			Error("Image decode failed")
		return out
	}

	jpg, err := n.Normalize(img, size)
	if err != nil {
		logger.FromContext(ctx).WithError(err).
			WithField(logger.FieldPath, entry.ImagePath).
			Error("Image normalize failed")
		return out
	}

	out.Image = base64.StdEncoding.EncodeToString(jpg)
	out.Valid = true
	return out
}
