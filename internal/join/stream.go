package join

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/timmy/clipshard/internal/domain"
	"github.com/timmy/clipshard/internal/logger"
)

// ScoreHistogram counts annotation similarity scores in 0.10-wide buckets.
// Bucket n holds scores in [n*0.10, (n+1)*0.10).
type ScoreHistogram struct {
	counts map[int]int
}

// NewScoreHistogram creates an empty histogram
func NewScoreHistogram() *ScoreHistogram {
	return &ScoreHistogram{counts: make(map[int]int)}
}

// Observe records one score
func (h *ScoreHistogram) Observe(score float64) {
	h.counts[int(math.Floor(score/0.10))]++
}

// Counts returns a copy of the bucket counts
func (h *ScoreHistogram) Counts() map[int]int {
	out := make(map[int]int, len(h.counts))
	for k, v := range h.counts {
		out[k] = v
	}
	return out
}

// String renders buckets in ascending order for summary logging
func (h *ScoreHistogram) String() string {
	buckets := make([]int, 0, len(h.counts))
	for b := range h.counts {
		buckets = append(buckets, b)
	}
	sort.Ints(buckets)

	parts := make([]string, 0, len(buckets))
	for _, b := range buckets {
		parts = append(parts, fmt.Sprintf("%d:%d", b, h.counts[b]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Stream yields joined entries one at a time from a loaded annotation slice.
// Skipped records are logged and counted internally; callers only see
// resolvable entries. A stream is single-pass and not restartable.
type Stream struct {
	joiner  *Joiner
	anns    []domain.AnnotationRecord
	pos     int
	skipped int
	hist    *ScoreHistogram
}

// NewStream creates a stream over the given annotations.
// Parameters:
//   - joiner: joiner used to resolve each annotation.
//   - anns: annotations in file order.
//   - hist: optional histogram observing every annotation's score before
//     resolution; nil disables observation.
// Returns:
//   - *Stream: initialized stream positioned at the first annotation.
func NewStream(joiner *Joiner, anns []domain.AnnotationRecord, hist *ScoreHistogram) *Stream {
	return &Stream{
		joiner: joiner,
		anns:   anns,
		hist:   hist,
	}
}

// Next returns the next resolved entry. It returns io.EOF once the
// annotations are exhausted and the context error if ctx is cancelled.
// Parameters:
//   - ctx: context for cancellation.
// Returns:
//   - *domain.Entry: next joined entry, nil at end of stream.
//   - error: io.EOF at end, ctx.Err() on cancellation.
func (s *Stream) Next(ctx context.Context) (*domain.Entry, error) {
	for s.pos < len(s.anns) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ann := s.anns[s.pos]
		s.pos++

		if s.hist != nil {
			s.hist.Observe(ann.SimilarityScore)
		}

		entry, skipErr := s.joiner.Resolve(ctx, ann)
		if skipErr != nil {
			s.skipped++
			logger.FromContext(ctx).WithFields(logger.Fields{
				"reason":             skipErr.Reason,
				logger.FieldRecordID: skipErr.RecordID,
				"image_id":           skipErr.ImageID,
				logger.FieldPath:     skipErr.Path,
			}).Warnf("Skipping record: %v", skipErr)
			continue
		}

		return entry, nil
	}

	return nil, io.EOF
}

// Skipped reports how many annotations have been dropped so far
func (s *Stream) Skipped() int {
	return s.skipped
}

// Total reports how many annotations the stream covers
func (s *Stream) Total() int {
	return len(s.anns)
}
