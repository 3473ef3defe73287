// Package store persists normalization runs and their facility tables.
// SQLiteStore writes a self-contained file for hand-off; PostgresStore keeps
// a shared table current by upserting on (data_source, source_id).
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/truckpark-cli/internal/model"
	"github.com/sells-group/truckpark-cli/internal/normalize"
)

// Run is the provenance of one normalization call.
type Run struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Sources   []string        `json:"sources"`
	Stats     normalize.Stats `json:"stats"`
}

// FacilityFilter narrows ListFacilities. Zero fields match everything.
type FacilityFilter struct {
	DataSource string             `json:"data_source,omitempty"`
	State      string             `json:"state,omitempty"`
	Type       model.FacilityType `json:"facility_type,omitempty"`
	Limit      int                `json:"limit,omitempty"`
	Offset     int                `json:"offset,omitempty"`
}

// Page limits for ListFacilities.
const (
	DefaultLimit = 1000
	MaxLimit     = 10000
)

// Store defines the persistence interface for normalized output.
type Store interface {
	// SaveRun records the run and writes its facilities and rejects.
	SaveRun(ctx context.Context, run Run, res *normalize.Result) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListFacilities(ctx context.Context, filter FacilityFilter) ([]model.Facility, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// where renders filter as a WHERE clause using placeholder(n) for the n-th
// (1-based) argument, followed by ORDER BY / LIMIT / OFFSET.
func (f FacilityFilter) where(placeholder func(n int) string) (string, []any) {
	var conds []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = %s", col, placeholder(len(args))))
	}
	if f.DataSource != "" {
		add("data_source", f.DataSource)
	}
	if f.State != "" {
		add("state", strings.ToUpper(f.State))
	}
	if f.Type != "" {
		add("facility_type", string(f.Type))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)
	offset := max(f.Offset, 0)

	var b strings.Builder
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	args = append(args, limit)
	fmt.Fprintf(&b, " ORDER BY data_source, source_id LIMIT %s", placeholder(len(args)))
	args = append(args, offset)
	fmt.Fprintf(&b, " OFFSET %s", placeholder(len(args)))
	return b.String(), args
}
