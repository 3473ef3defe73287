package normalize

import "github.com/sells-group/truckpark-cli/internal/model"

// SourceStats counts records for one data source.
type SourceStats struct {
	Input    int `json:"input"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// Stats summarises a normalization run for logging and reports.
type Stats struct {
	Input           int                        `json:"input"`
	Accepted        int                        `json:"accepted"`
	Rejected        int                        `json:"rejected"`
	BySource        map[string]SourceStats     `json:"by_source"`
	ByType          map[model.FacilityType]int `json:"by_type"`
	ByReason        map[model.RejectReason]int `json:"by_reason"`
	DuplicateGroups int                        `json:"duplicate_groups"`
	Flagged         int                        `json:"flagged"`
}

func computeStats(batches []Batch, res *Result, groups int) Stats {
	st := Stats{
		Accepted:        len(res.Facilities),
		Rejected:        len(res.Rejects),
		BySource:        make(map[string]SourceStats),
		ByType:          make(map[model.FacilityType]int),
		ByReason:        make(map[model.RejectReason]int),
		DuplicateGroups: groups,
	}
	for _, b := range batches {
		st.Input += len(b.Records)
		s := st.BySource[b.Profile.Source]
		s.Input += len(b.Records)
		st.BySource[b.Profile.Source] = s
	}
	for i := range res.Facilities {
		f := &res.Facilities[i]
		s := st.BySource[f.DataSource]
		s.Accepted++
		st.BySource[f.DataSource] = s
		st.ByType[f.FacilityType]++
		if len(f.PossibleDuplicateOf) > 0 {
			st.Flagged++
		}
	}
	for _, r := range res.Rejects {
		s := st.BySource[r.DataSource]
		s.Rejected++
		st.BySource[r.DataSource] = s
		st.ByReason[r.Reason]++
	}
	return st
}
