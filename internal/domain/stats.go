package domain

import "time"

// ShardStats summarizes one sharding run.
type ShardStats struct {
	TotalRecords   int64
	WrittenSamples int64
	SkippedRecords int64
	ShardCount     int
	IndexFiles     int
	StartTime      time.Time
	EndTime        time.Time
}

// PrepStats summarizes one preprocessing run.
type PrepStats struct {
	TotalEntries   int64
	WrittenRows    int64
	InvalidEntries int64
	SkippedRecords int64
	PartitionCount int
	StartTime      time.Time
	EndTime        time.Time
}

// IngestStats summarizes one dry-run ingestion pass over the annotation
// stream.
type IngestStats struct {
	TotalAnnotations int64
	ResolvedEntries  int64
	SkippedRecords   int64
	StartTime        time.Time
	EndTime          time.Time
}
