package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Standard Tracing Fields (Context level)
// These fields are propagated through the call chain
// ============================================

const (
	// FieldRunID is the pipeline run ID (UUID)
	FieldRunID = "run_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldSplit is the dataset split being processed
	FieldSplit = "split"

	// FieldSource is the originating news source of a record
	FieldSource = "source"

	// FieldRecordID is the numeric record identifier
	FieldRecordID = "record_id"

	// FieldPath is a file or object path
	FieldPath = "path"

	// FieldShard is the tar shard file name
	FieldShard = "shard"
)

// ============================================
// Standard Metric Fields (Entry level)
// These fields are used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
