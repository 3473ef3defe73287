package normalize

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sells-group/truckpark-cli/internal/model"
	"github.com/sells-group/truckpark-cli/internal/profile"
	"github.com/sells-group/truckpark-cli/internal/raw"
)

// mapRecord extracts, coerces, validates and classifies one record read from
// the input labelled label. A non-empty reason means the record is rejected
// and f is nil.
func mapRecord(p *profile.Profile, label string, rec raw.Record) (f *model.Facility, reason model.RejectReason, detail string) {
	lat, reason, detail := coordinate(rec, p.Latitude, "latitude", 90)
	if reason != "" {
		return nil, reason, detail
	}
	lon, reason, detail := coordinate(rec, p.Longitude, "longitude", 180)
	if reason != "" {
		return nil, reason, detail
	}

	id, ok := sourceID(p, label, rec)
	if !ok {
		return nil, model.ReasonMissingSourceID, "no value at " + joinPaths(slices.Concat(p.ID, p.FileIDs))
	}

	name, _ := text(rec, p.Name)
	f = &model.Facility{
		DataSource:   p.Source,
		SourceID:     id,
		Name:         name,
		Latitude:     lat,
		Longitude:    lon,
		FacilityType: classify(p, rec),
		CameraURLs:   cameraURLs(rec, p.CameraURLs),
		DedupKey:     model.NewDedupKey(lat, lon, name),
	}
	f.Highway, _ = text(rec, p.Highway)
	f.Operator, _ = text(rec, p.Operator)
	f.State, _ = text(rec, p.State)
	f.City, _ = text(rec, p.City)
	f.TruckSpaces = spaces(rec, p.TruckSpaces)
	f.HasRestrooms = flag(rec, p.Restrooms)
	f.HasFuel = flag(rec, p.Fuel)
	f.HasShowers = flag(rec, p.Showers)
	f.HasWifi = flag(rec, p.Wifi)
	f.Is24Hours = flag(rec, p.Open24)
	return f, "", ""
}

// sourceID resolves the record's identifier. Native ids are qualified by the
// profile's namespace unless already qualified; file-scoped ids are prefixed
// with the input label so two inputs of one source never collide.
func sourceID(p *profile.Profile, label string, rec raw.Record) (string, bool) {
	if id, ok := text(rec, p.ID); ok && id != "" {
		if ns, ok := text(rec, p.IDNamespace); ok && ns != "" && !strings.Contains(id, "/") {
			id = ns + "/" + id
		}
		return id, true
	}
	id, ok := text(rec, p.FileIDs)
	if !ok || id == "" {
		return "", false
	}
	if label == "" {
		return id, true
	}
	return label + "#" + id, true
}

// coordinate reads one axis. A missing value and an unusable value are
// reported differently: "N/A" is invalid, an absent key is missing.
func coordinate(rec raw.Record, paths []raw.Path, axis string, limit float64) (float64, model.RejectReason, string) {
	v, ok := rec.First(paths)
	if !ok {
		return 0, model.ReasonMissingCoordinates, "no " + axis + " at " + joinPaths(paths)
	}
	f, ok := v.AsFloat()
	if !ok {
		s, _ := v.Text()
		return 0, model.ReasonInvalidCoordinates, fmt.Sprintf("%s %q is not a number", axis, s)
	}
	if f < -limit || f > limit {
		return 0, model.ReasonInvalidCoordinates, fmt.Sprintf("%s %v outside [-%v, %v]", axis, f, limit, limit)
	}
	return f, "", ""
}

// text returns the first scalar value along paths, trimmed. Objects and
// arrays are skipped.
func text(rec raw.Record, paths []raw.Path) (string, bool) {
	for _, p := range paths {
		v, ok := rec.Get(p)
		if !ok {
			continue
		}
		if s, ok := v.Text(); ok {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}

// spaces returns the first non-negative integer capacity. A value that is
// present but unusable drops the field; it never rejects the record.
func spaces(rec raw.Record, paths []raw.Path) *int {
	v, ok := rec.First(paths)
	if !ok {
		return nil
	}
	n, ok := v.AsInt()
	if !ok || n < 0 {
		return nil
	}
	return &n
}

// flag resolves an amenity. Unrecognised values leave the flag absent:
// a missing tag is not evidence the amenity is missing.
func flag(rec raw.Record, bf profile.BoolField) *bool {
	if v, ok := rec.First(bf.Paths); ok {
		if b, ok := v.AsBool(); ok {
			return &b
		}
		if s, ok := v.Text(); ok {
			if b, ok := bf.Tokens[strings.ToLower(strings.TrimSpace(s))]; ok {
				return &b
			}
		}
		return nil
	}
	for _, lm := range bf.Lists {
		for _, item := range rec.GetAll(lm.Path) {
			if listContains(item, lm.Token) {
				b := true
				return &b
			}
		}
	}
	return nil
}

func listContains(v raw.Value, token string) bool {
	items, ok := v.Items()
	if !ok {
		items = []raw.Value{v}
	}
	for _, it := range items {
		if s, ok := it.Text(); ok && strings.EqualFold(strings.TrimSpace(s), token) {
			return true
		}
	}
	return false
}

// classify maps the first source type value that the profile's lookup table
// knows. Values the table does not know fall through to the next path; when
// nothing matches the type is unknown.
func classify(p *profile.Profile, rec raw.Record) model.FacilityType {
	for _, path := range p.FacilityType {
		v, ok := rec.Get(path)
		if !ok {
			continue
		}
		s, ok := v.Text()
		if !ok {
			continue
		}
		if ft, ok := p.Classify(s); ok {
			return ft
		}
	}
	return model.TypeUnknown
}

// cameraURLs returns the URLs found at the first path that yields any, in
// document order. Arrays of strings are flattened.
func cameraURLs(rec raw.Record, paths []raw.Path) []string {
	for _, p := range paths {
		var urls []string
		for _, v := range rec.GetAll(p) {
			items, ok := v.Items()
			if !ok {
				items = []raw.Value{v}
			}
			for _, it := range items {
				if it.Kind() != raw.String || it.Blank() {
					continue
				}
				s, _ := it.Text()
				urls = append(urls, strings.TrimSpace(s))
			}
		}
		if len(urls) > 0 {
			return urls
		}
	}
	return []string{}
}

func joinPaths(paths []raw.Path) string {
	parts := make([]string, len(paths))
	for i, p := range paths {
		parts[i] = p.String()
	}
	return strings.Join(parts, "|")
}
