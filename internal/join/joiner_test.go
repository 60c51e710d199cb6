package join

import (
	"context"
	"errors"
	"io"
	"path"
	"testing"

	"github.com/timmy/clipshard/internal/domain"
)

// fakeStore implements storage.FileStore with function fields so tests can
// script existence checks without touching the filesystem.
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
		return true, nil
	}
	return f.existsFn(ctx, p)
}

func (f *fakeStore) Join(elem ...string) string {
	return path.Join(elem...)
}

func testAssets() map[int64]AssetRef {
	return BuildAssetMap([]domain.AssetRecord{
		{ID: 1, Caption: "President speaks", ImagePath: "bbc/1.jpg"},
		{ID: 2, Caption: "Final whistle", ImagePath: "guardian/2.jpg"},
		{ID: 3, Caption: "Market opens", ImagePath: "wapo/3.jpg"},
	})
}

func TestBuildAssetMap(t *testing.T) {
	assets := testAssets()
	if len(assets) != 3 {
		t.Fatalf("got %d assets, want 3", len(assets))
	}
	if assets[2].Caption != "Final whistle" || assets[2].ImagePath != "guardian/2.jpg" {
		t.Errorf("asset 2 = %+v", assets[2])
	}
}

func TestBuildAssetMapDuplicateIDLastWins(t *testing.T) {
	assets := BuildAssetMap([]domain.AssetRecord{
		{ID: 5, Caption: "first", ImagePath: "a.jpg"},
		{ID: 5, Caption: "second", ImagePath: "b.jpg"},
	})
	if len(assets) != 1 {
		t.Fatalf("got %d assets, want 1", len(assets))
	}
	if assets[5].Caption != "second" || assets[5].ImagePath != "b.jpg" {
		t.Errorf("asset 5 = %+v, want the later record", assets[5])
	}
}

func TestResolve(t *testing.T) {
	store := &fakeStore{
		existsFn: func(ctx context.Context, p string) (bool, error) {
			return p != "root/wapo/3.jpg", nil
		},
	}
	j := NewJoiner(testAssets(), store, "root", "train")

	tests := []struct {
		name       string
		ann        domain.AnnotationRecord
		wantReason string
		wantEntry  *domain.Entry
	}{
		{
			name: "matched pairing",
			ann:  domain.AnnotationRecord{ID: 1, ImageID: 1, Falsified: false},
			wantEntry: &domain.Entry{
				Caption:   "President speaks",
				ImagePath: "root/bbc/1.jpg",
				Label:     false,
				Split:     "train",
			},
		},
		{
			name: "mismatched pairing takes caption from id and image from image_id",
			ann:  domain.AnnotationRecord{ID: 1, ImageID: 2, Falsified: true},
			wantEntry: &domain.Entry{
				Caption:   "President speaks",
				ImagePath: "root/guardian/2.jpg",
				Label:     true,
				Split:     "train",
			},
		},
		{
			name:       "unknown caption id",
			ann:        domain.AnnotationRecord{ID: 99, ImageID: 1},
			wantReason: ReasonUnresolvedRef,
		},
		{
			name:       "unknown image id",
			ann:        domain.AnnotationRecord{ID: 1, ImageID: 99},
			wantReason: ReasonUnresolvedRef,
		},
		{
			name:       "image file absent",
			ann:        domain.AnnotationRecord{ID: 3, ImageID: 3},
			wantReason: ReasonMissingImage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, skipErr := j.Resolve(context.Background(), tt.ann)

			if tt.wantReason != "" {
				if skipErr == nil {
					t.Fatalf("expected skip, got entry %+v", entry)
				}
				if skipErr.Reason != tt.wantReason {
					t.Errorf("reason = %s, want %s", skipErr.Reason, tt.wantReason)
				}
				return
			}

			if skipErr != nil {
				t.Fatalf("unexpected skip: %v", skipErr)
			}
			if *entry != *tt.wantEntry {
				t.Errorf("entry = %+v, want %+v", *entry, *tt.wantEntry)
			}
		})
	}
}

func TestResolveExistsError(t *testing.T) {
	probeErr := errors.New("endpoint unreachable")
	store := &fakeStore{
		existsFn: func(ctx context.Context, p string) (bool, error) {
			return false, probeErr
		},
	}
	j := NewJoiner(testAssets(), store, "root", "test")

	_, skipErr := j.Resolve(context.Background(), domain.AnnotationRecord{ID: 1, ImageID: 1})
	if skipErr == nil {
		t.Fatal("expected skip on probe failure")
	}
	if skipErr.Reason != ReasonMissingImage {
		t.Errorf("reason = %s, want %s", skipErr.Reason, ReasonMissingImage)
	}
	if !errors.Is(skipErr, probeErr) {
		t.Error("skip should wrap the probe error")
	}
}
