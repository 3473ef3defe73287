package model

import "github.com/sells-group/truckpark-cli/internal/raw"

// RejectReason explains why a raw record did not make it into the table.
type RejectReason string

// Reject reasons.
const (
	ReasonMissingCoordinates RejectReason = "missing_coordinates"
	ReasonInvalidCoordinates RejectReason = "invalid_coordinates"
	ReasonMissingSourceID    RejectReason = "missing_source_id"
	// ReasonDuplicateSourceID marks a record whose (data_source, source_id)
	// was already accepted earlier in the same run.
	ReasonDuplicateSourceID RejectReason = "duplicate_source_id"
)

// Reject is a raw record that failed validation, kept for inspection.
type Reject struct {
	DataSource string       `json:"data_source"`
	SourceFile string       `json:"source_file,omitempty"`
	Index      int          `json:"index"` // position within its input batch
	Reason     RejectReason `json:"reason"`
	Detail     string       `json:"detail,omitempty"`
	Record     raw.Record   `json:"record"`
}
