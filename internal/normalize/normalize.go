// Package normalize turns source-native facility records into one
// deduplicated, schema-consistent facility table.
//
// Normalization is a pure transform over already-materialized inputs: no I/O,
// no logging, no shared mutable state. Malformed records are rejected
// individually; only a malformed profile fails the whole call.
package normalize

import (
	"fmt"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/truckpark-cli/internal/model"
	"github.com/sells-group/truckpark-cli/internal/profile"
	"github.com/sells-group/truckpark-cli/internal/raw"
)

// ErrInvalidProfile is returned when a batch's profile fails validation.
var ErrInvalidProfile = eris.New("normalize: invalid source profile")

// Batch is one source's records together with the profile that maps them.
type Batch struct {
	Profile *profile.Profile
	// Label identifies where the records came from (usually the input file)
	// and is copied to each facility's SourceFile.
	Label   string
	Records []raw.Record
}

// Options tunes a normalization run. The zero value processes batches
// sequentially.
type Options struct {
	// Workers bounds how many batches are mapped concurrently. Values below 2
	// mean sequential. Output is identical for every setting.
	Workers int
}

// Result is the outcome of one normalization call. Every input record ends up
// in exactly one of Facilities or Rejects.
type Result struct {
	Facilities []model.Facility `json:"facilities"`
	Rejects    []model.Reject   `json:"rejects"`
	Stats      Stats            `json:"stats"`
}

// Normalize maps every batch through its profile, drops records that repeat
// an accepted (data_source, source_id), and flags cross-source duplicates.
// Output order is batch order, then record order within the batch.
func Normalize(batches []Batch, opts Options) (*Result, error) {
	for i, b := range batches {
		if err := b.Profile.Validate(); err != nil {
			return nil, eris.Wrapf(ErrInvalidProfile, "batch %d (%s): %v", i, b.Label, err)
		}
	}

	mapped := make([]mappedBatch, len(batches))
	if opts.Workers > 1 && len(batches) > 1 {
		var g errgroup.Group
		g.SetLimit(opts.Workers)
		for i := range batches {
			g.Go(func() error {
				mapped[i] = mapBatch(batches[i])
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range batches {
			mapped[i] = mapBatch(batches[i])
		}
	}

	res := merge(batches, mapped)
	groups := flagDuplicates(res.Facilities)
	res.Stats = computeStats(batches, res, groups)
	return res, nil
}

// outcome is the per-record result of mapping: exactly one of facility or
// reject is set.
type outcome struct {
	facility *model.Facility
	reject   *model.Reject
}

type mappedBatch []outcome

func mapBatch(b Batch) mappedBatch {
	out := make(mappedBatch, len(b.Records))
	for i, rec := range b.Records {
		f, reason, detail := mapRecord(b.Profile, b.Label, rec)
		if reason != "" {
			out[i] = outcome{reject: &model.Reject{
				DataSource: b.Profile.Source,
				SourceFile: b.Label,
				Index:      i,
				Reason:     reason,
				Detail:     detail,
				Record:     rec,
			}}
			continue
		}
		f.SourceFile = b.Label
		out[i] = outcome{facility: f}
	}
	return out
}

// origin locates a record by input label and index within that input.
type origin struct {
	label string
	index int
}

func (o origin) String() string {
	if o.label == "" {
		return fmt.Sprintf("record %d", o.index)
	}
	return fmt.Sprintf("%s record %d", o.label, o.index)
}

// merge folds the mapped batches into one table in input order, enforcing
// (data_source, source_id) uniqueness: the first occurrence wins.
func merge(batches []Batch, mapped []mappedBatch) *Result {
	res := &Result{
		Facilities: []model.Facility{},
		Rejects:    []model.Reject{},
	}
	seen := make(map[model.Ref]origin)
	for bi, mb := range mapped {
		for ri, o := range mb {
			if o.reject != nil {
				res.Rejects = append(res.Rejects, *o.reject)
				continue
			}
			ref := o.facility.Ref()
			if first, dup := seen[ref]; dup {
				res.Rejects = append(res.Rejects, model.Reject{
					DataSource: ref.DataSource,
					SourceFile: batches[bi].Label,
					Index:      ri,
					Reason:     model.ReasonDuplicateSourceID,
					Detail:     fmt.Sprintf("%s already accepted from %s", ref, first),
					Record:     batches[bi].Records[ri],
				})
				continue
			}
			seen[ref] = origin{label: batches[bi].Label, index: ri}
			res.Facilities = append(res.Facilities, *o.facility)
		}
	}
	return res
}
