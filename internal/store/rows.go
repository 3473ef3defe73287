package store

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/truckpark-cli/internal/model"
)

// facilityColumns are the stored facility columns; run_id is appended on
// write.
var facilityColumns = model.Columns

var facilitySelect = strings.Join(facilityColumns, ", ")

var rejectColumns = []string{"run_id", "data_source", "source_file", "idx", "reason", "detail", "record"}

type scanner interface {
	Scan(dest ...any) error
}

func optInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func optBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}

// facilityValues renders f in facilityColumns order followed by runID.
func facilityValues(f *model.Facility, runID string) ([]any, error) {
	cams, err := json.Marshal(f.CameraURLs)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal camera urls")
	}
	refs := f.PossibleDuplicateOf
	if refs == nil {
		refs = []model.Ref{}
	}
	dups, err := json.Marshal(refs)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal duplicate refs")
	}
	return []any{
		f.DataSource,
		f.SourceID,
		f.SourceFile,
		f.Name,
		f.Latitude,
		f.Longitude,
		f.Highway,
		string(f.FacilityType),
		f.Operator,
		f.State,
		f.City,
		optInt(f.TruckSpaces),
		optBool(f.HasRestrooms),
		optBool(f.HasFuel),
		optBool(f.HasShowers),
		optBool(f.HasWifi),
		optBool(f.Is24Hours),
		string(cams),
		f.DedupKey.String(),
		string(dups),
		runID,
	}, nil
}

func rejectValues(r *model.Reject, runID string) ([]any, error) {
	rec, err := json.Marshal(r.Record)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal reject record")
	}
	return []any{runID, r.DataSource, r.SourceFile, r.Index, string(r.Reason), r.Detail, string(rec)}, nil
}

// scanFacility reads one row selected with facilitySelect.
func scanFacility(s scanner) (model.Facility, error) {
	var (
		f                   model.Facility
		facilityType, dedup string
		cams, dups          string
	)
	err := s.Scan(
		&f.DataSource,
		&f.SourceID,
		&f.SourceFile,
		&f.Name,
		&f.Latitude,
		&f.Longitude,
		&f.Highway,
		&facilityType,
		&f.Operator,
		&f.State,
		&f.City,
		&f.TruckSpaces,
		&f.HasRestrooms,
		&f.HasFuel,
		&f.HasShowers,
		&f.HasWifi,
		&f.Is24Hours,
		&cams,
		&dedup,
		&dups,
	)
	if err != nil {
		return f, eris.Wrap(err, "store: scan facility")
	}
	f.FacilityType = model.FacilityType(facilityType)
	f.DedupKey = model.NewDedupKey(f.Latitude, f.Longitude, f.Name)
	if err := json.Unmarshal([]byte(cams), &f.CameraURLs); err != nil {
		return f, eris.Wrap(err, "store: decode camera urls")
	}
	if f.CameraURLs == nil {
		f.CameraURLs = []string{}
	}
	if err := json.Unmarshal([]byte(dups), &f.PossibleDuplicateOf); err != nil {
		return f, eris.Wrap(err, "store: decode duplicate refs")
	}
	if len(f.PossibleDuplicateOf) == 0 {
		f.PossibleDuplicateOf = nil
	}
	return f, nil
}
