package domain

import "time"

// RunStatus represents the lifecycle state of a pipeline run.
// Values include RunStatusRunning, RunStatusCompleted, and RunStatusFailed.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunKind identifies which pipeline an entry in the run catalog belongs to.
type RunKind string

const (
	RunKindIngest     RunKind = "ingest"
	RunKindPreprocess RunKind = "preprocess"
	RunKindShard      RunKind = "shard"
)

// Run is one catalog row of pipeline provenance: which inputs were processed,
// what was written where, and how the run ended.
type Run struct {
	ID             string     `gorm:"type:text;primaryKey" json:"id"`
	Kind           RunKind    `gorm:"type:text;not null;index:idx_runs_kind" json:"kind"`
	Split          string     `gorm:"type:text" json:"split,omitempty"`
	DataPath       string     `gorm:"type:text" json:"data_path"`
	OutDir         string     `gorm:"type:text" json:"out_dir,omitempty"`
	Status         RunStatus  `gorm:"type:text;index:idx_runs_status;default:running" json:"status"`
	TotalRecords   int64      `gorm:"default:0" json:"total_records"`
	WrittenSamples int64      `gorm:"default:0" json:"written_samples"`
	SkippedRecords int64      `gorm:"default:0" json:"skipped_records"`
	ShardCount     int        `gorm:"default:0" json:"shard_count"`
	IndexFiles     int        `gorm:"default:0" json:"index_files"`
	PartitionCount int        `gorm:"default:0" json:"partition_count"`
	ErrorLog       string     `json:"error_log,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Run.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Run) TableName() string {
	return "pipeline_runs"
}
