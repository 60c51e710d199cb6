package shard

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/timmy/clipshard/internal/domain"
)

// DefaultSamplesPerShard is the rotation capacity used when none is given.
const DefaultSamplesPerShard = 5000

// ShardName formats the container filename for shard number idx.
func ShardName(idx int) string {
	return fmt.Sprintf("shard-%06d.tar", idx)
}

// Writer stores samples in numbered tar containers, rotating to the next
// container after a fixed number of samples. Containers open lazily on the
// first append after a rotation, so an exactly-full run never leaves an
// empty trailing shard and an empty run creates no containers at all.
// Rotation is count-triggered only; sample sizes play no part.
type Writer struct {
	outDir   string
	capacity int

	shardIdx int
	inShard  int
	created  int
	curName  string

	f  *os.File
	tw *tar.Writer
}

// NewWriter creates a writer rooted at outDir, creating the directory if
// needed. Non-positive samplesPerShard falls back to DefaultSamplesPerShard.
func NewWriter(outDir string, samplesPerShard int) (*Writer, error) {
	if samplesPerShard <= 0 {
		samplesPerShard = DefaultSamplesPerShard
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outDir, err)
	}
	return &Writer{
		outDir:   outDir,
		capacity: samplesPerShard,
	}, nil
}

// Append writes one sample as three co-keyed members ({key}.jpg, {key}.txt,
// {key}.json) into the current container, opening one first if none is open.
// When the append fills the container to capacity it is closed immediately.
// Parameters:
//   - sample: sample to store.
// Returns:
//   - string: name of the container file holding the sample.
//   - error: non-nil if the container or a member cannot be written.
func (w *Writer) Append(sample *domain.Sample) (string, error) {
	if w.tw == nil {
		if err := w.open(); err != nil {
			return "", err
		}
	}
	name := w.curName

	meta, err := json.Marshal(sample.Meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal sample metadata %s: %w", sample.Key, err)
	}

	if err := w.writeMember(sample.Key+".jpg", sample.Image); err != nil {
		return "", err
	}
	if err := w.writeMember(sample.Key+".txt", sample.Text); err != nil {
		return "", err
	}
	if err := w.writeMember(sample.Key+".json", meta); err != nil {
		return "", err
	}

	w.inShard++
	if w.inShard >= w.capacity {
		if err := w.closeCurrent(); err != nil {
			return "", err
		}
	}

	return name, nil
}

// Finalize closes the open container, if any. Idempotent.
func (w *Writer) Finalize() error {
	return w.closeCurrent()
}

// Count reports how many containers were actually created
func (w *Writer) Count() int {
	return w.created
}

// CurrentShard reports the name the next appended sample will land in
func (w *Writer) CurrentShard() string {
	return ShardName(w.shardIdx)
}

func (w *Writer) open() error {
	name := ShardName(w.shardIdx)
	f, err := os.Create(filepath.Join(w.outDir, name))
	if err != nil {
		return fmt.Errorf("failed to create shard %s: %w", name, err)
	}

	w.f = f
	w.tw = tar.NewWriter(f)
	w.curName = name
	w.inShard = 0
	w.created++
	return nil
}

func (w *Writer) closeCurrent() error {
	if w.tw == nil {
		return nil
	}

	twErr := w.tw.Close()
	fErr := w.f.Close()
	name := w.curName

	w.tw = nil
	w.f = nil
	w.curName = ""
	w.shardIdx++
	w.inShard = 0

	if twErr != nil {
		return fmt.Errorf("failed to close shard %s: %w", name, twErr)
	}
	if fErr != nil {
		return fmt.Errorf("failed to close shard file %s: %w", name, fErr)
	}
	return nil
}

func (w *Writer) writeMember(name string, data []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0644,
		Size:     int64(len(data)),
		ModTime:  time.Now(),
		Typeflag: tar.TypeReg,
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write member header %s: %w", name, err)
	}
	if _, err := w.tw.Write(data); err != nil {
		return fmt.Errorf("failed to write member %s: %w", name, err)
	}
	return nil
}
