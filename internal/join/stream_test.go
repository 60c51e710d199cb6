package join

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/timmy/clipshard/internal/domain"
)

func TestStreamYieldsResolvedSkipsBroken(t *testing.T) {
	// Three assets, two annotations, one referencing a missing image file.
	store := &fakeStore{
		existsFn: func(ctx context.Context, p string) (bool, error) {
			return p != "root/wapo/3.jpg", nil
		},
	}
	j := NewJoiner(testAssets(), store, "root", "train")

	anns := []domain.AnnotationRecord{
		{ID: 1, ImageID: 1, Falsified: false, SimilarityScore: 0.95},
		{ID: 2, ImageID: 3, Falsified: true, SimilarityScore: 0.42},
	}
	s := NewStream(j, anns, nil)

	entry, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if entry.Caption != "President speaks" || entry.ImagePath != "root/bbc/1.jpg" {
		t.Errorf("entry = %+v", entry)
	}

	if _, err := s.Next(context.Background()); err != io.EOF {
		t.Fatalf("Next = %v, want io.EOF", err)
	}

	if s.Skipped() != 1 {
		t.Errorf("Skipped = %d, want 1", s.Skipped())
	}
	if s.Total() != 2 {
		t.Errorf("Total = %d, want 2", s.Total())
	}
}

func TestStreamExhaustedStaysEOF(t *testing.T) {
	j := NewJoiner(testAssets(), &fakeStore{}, "root", "train")
	s := NewStream(j, nil, nil)

	for i := 0; i < 3; i++ {
		if _, err := s.Next(context.Background()); err != io.EOF {
			t.Fatalf("Next #%d = %v, want io.EOF", i, err)
		}
	}
}

func TestStreamCancelled(t *testing.T) {
	j := NewJoiner(testAssets(), &fakeStore{}, "root", "train")
	s := NewStream(j, []domain.AnnotationRecord{{ID: 1, ImageID: 1}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Next(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Next = %v, want context.Canceled", err)
	}
}

func TestStreamObservesEveryScore(t *testing.T) {
	// The histogram sees all annotations, including ones that get skipped.
	store := &fakeStore{
		existsFn: func(ctx context.Context, p string) (bool, error) {
			return false, nil
		},
	}
	j := NewJoiner(testAssets(), store, "root", "train")

	anns := []domain.AnnotationRecord{
		{ID: 1, ImageID: 1, SimilarityScore: 0.05},
		{ID: 2, ImageID: 2, SimilarityScore: 0.83},
		{ID: 3, ImageID: 3, SimilarityScore: 0.89},
	}
	hist := NewScoreHistogram()
	s := NewStream(j, anns, hist)

	for {
		if _, err := s.Next(context.Background()); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Next: %v", err)
		}
	}

	counts := hist.Counts()
	if counts[0] != 1 {
		t.Errorf("bucket 0 = %d, want 1", counts[0])
	}
	if counts[8] != 2 {
		t.Errorf("bucket 8 = %d, want 2", counts[8])
	}
}

func TestScoreHistogramBuckets(t *testing.T) {
	tests := []struct {
		score float64
		want  int
	}{
		{0.0, 0},
		{0.09, 0},
		{0.10, 1},
		{0.55, 5},
		{0.99, 9},
		{1.0, 10},
	}

	for _, tt := range tests {
		h := NewScoreHistogram()
		h.Observe(tt.score)
		if h.Counts()[tt.want] != 1 {
			t.Errorf("Observe(%v): bucket %d not incremented, counts=%v", tt.score, tt.want, h.Counts())
		}
	}
}

func TestScoreHistogramString(t *testing.T) {
	h := NewScoreHistogram()
	h.Observe(0.95)
	h.Observe(0.12)
	h.Observe(0.15)

	if got := h.String(); got != "{1:2 9:1}" {
		t.Errorf("String = %q, want %q", got, "{1:2 9:1}")
	}
}
