package join

import "fmt"

const (
	ReasonUnresolvedRef = "E_UNRESOLVED_REF"
	ReasonMissingImage  = "E_MISSING_IMAGE"
	ReasonMissingText   = "E_MISSING_TEXT"
	ReasonImageDecode   = "E_IMAGE_DECODE"
	ReasonTextRead      = "E_TEXT_READ"
	ReasonDuplicateKey  = "E_DUPLICATE_KEY"
)

// SkipError marks a single record as unusable without failing the run.
// RecordID and ImageID identify the annotation or asset that was dropped;
// Path is the offending file when one is involved.
type SkipError struct {
	Reason   string
	RecordID int64
	ImageID  int64
	Path     string
	Err      error
}

func (e *SkipError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: record %d: %v", e.Reason, e.RecordID, e.Err)
	}
	return fmt.Sprintf("%s: record %d", e.Reason, e.RecordID)
}

func (e *SkipError) Unwrap() error { return e.Err }

func skip(reason string, recordID int64, err error) *SkipError {
	return &SkipError{Reason: reason, RecordID: recordID, Err: err}
}
