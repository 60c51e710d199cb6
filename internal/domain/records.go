package domain

import "fmt"

// AssetRecord is one row of the asset table (data.json). Every field is
// present in the sharding input; the join path only needs ID, Caption and
// ImagePath.
type AssetRecord struct {
	ID          int64  `json:"id"`
	Source      string `json:"source"`
	Topic       string `json:"topic"`
	Caption     string `json:"caption"`
	ImagePath   string `json:"image_path"`
	ArticlePath string `json:"article_path"`
}

// AnnotationRecord is one labeled (caption, image) pairing from the split
// JSON's "annotations" array. ID references the caption-side asset record,
// ImageID the image-side one.
type AnnotationRecord struct {
	ID              int64   `json:"id"`
	ImageID         int64   `json:"image_id"`
	Falsified       bool    `json:"falsified"`
	SimilarityScore float64 `json:"similarity_score"`
}

// Entry is a joined, validated unit ready for media normalization. ImagePath
// is already resolved against the run's root directory. Entries are transient:
// consumed immediately or discarded.
type Entry struct {
	Caption   string `json:"caption"`
	ImagePath string `json:"img_path"`
	Label     bool   `json:"label"`
	Split     string `json:"split"`
}

// SampleMeta is the small structured metadata record stored alongside each
// sample as the shard's .json member.
type SampleMeta struct {
	ID      int64  `json:"id"`
	Source  string `json:"source"`
	Topic   string `json:"topic"`
	Caption string `json:"caption"`
}

// Sample is one processed unit ready for shard storage: JPEG bytes, raw
// article text and metadata, addressed by a key unique across the run.
type Sample struct {
	Key   string
	Image []byte
	Text  []byte
	Meta  SampleMeta
}

// SampleKey derives the stable sample key from source and record id.
func SampleKey(source string, id int64) string {
	return fmt.Sprintf("%s_%d", source, id)
}

// IndexRecord is the lightweight index row mirroring one written sample.
// Shard holds the container filename verbatim so the row is enough to fetch
// the sample back.
type IndexRecord struct {
	ID      int64  `parquet:"name=id, type=INT64" json:"id"`
	Source  string `parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY" json:"source"`
	Topic   string `parquet:"name=topic, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY" json:"topic"`
	Caption string `parquet:"name=caption, type=BYTE_ARRAY, convertedtype=UTF8" json:"caption"`
	Key     string `parquet:"name=key, type=BYTE_ARRAY, convertedtype=UTF8" json:"key"`
	Shard   string `parquet:"name=shard, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY" json:"shard"`
}

// PreparedEntry is the preprocessing output row. Image holds the base64 JPEG
// and is empty when Valid is false; invalid rows carry caption and label only
// and are filtered out before a partition is written.
type PreparedEntry struct {
	Caption string `parquet:"name=caption, type=BYTE_ARRAY, convertedtype=UTF8" json:"caption"`
	Label   bool   `parquet:"name=label, type=BOOLEAN" json:"label"`
	Image   string `parquet:"name=image, type=BYTE_ARRAY, convertedtype=UTF8" json:"image,omitempty"`
	Valid   bool   `parquet:"name=valid, type=BOOLEAN" json:"valid"`
}

// TabularSample is one pre-normalized sharding input row: image bytes inline
// as base64 and article text inline, no filesystem resolution needed.
type TabularSample struct {
	ID       int64  `parquet:"name=id, type=INT64" json:"id"`
	Source   string `parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY" json:"source"`
	Topic    string `parquet:"name=topic, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY" json:"topic"`
	Caption  string `parquet:"name=caption, type=BYTE_ARRAY, convertedtype=UTF8" json:"caption"`
	ImageB64 string `parquet:"name=image_b64, type=BYTE_ARRAY, convertedtype=UTF8" json:"image_b64"`
	Text     string `parquet:"name=text, type=BYTE_ARRAY, convertedtype=UTF8" json:"text"`
}
