// Package profile describes how each upstream data source's record shape maps
// onto the canonical facility fields. Profiles are static configuration built
// once at startup; nothing is inferred from record shape at run time.
package profile

import (
	"regexp"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/truckpark-cli/internal/model"
	"github.com/sells-group/truckpark-cli/internal/raw"
)

// ErrInvalid is wrapped by every profile validation failure.
var ErrInvalid = eris.New("invalid source profile")

var sourceNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_]*$`)

// ListMatch yields true when the array at Path contains Token
// (case-insensitive). TPIMS publishes amenities this way.
type ListMatch struct {
	Path  raw.Path
	Token string
}

// BoolField maps one amenity flag.
type BoolField struct {
	// Paths are scalar values coerced with the standard yes/no rules.
	Paths []raw.Path
	// Tokens are source-specific values (lower-case) consulted when the
	// standard rules do not recognise the value, e.g. "24/7" for opening_hours.
	Tokens map[string]bool
	// Lists are array-membership checks tried after Paths.
	Lists []ListMatch
}

// Empty reports whether the field has no mapping at all.
func (b BoolField) Empty() bool {
	return len(b.Paths) == 0 && len(b.Lists) == 0
}

// Profile is the field-mapping configuration for one source. Path lists are
// in priority order: the first present, non-blank value wins.
type Profile struct {
	Source      string
	Description string

	ID []raw.Path
	// IDNamespace qualifies an id that has no "/" of its own as
	// "<namespace>/<id>". OSM node, way and relation ids overlap, so elements
	// become "node/555", the same form Overpass Turbo GeoJSON uses.
	IDNamespace []raw.Path
	// FileIDs are consulted after ID and hold identifiers that are only
	// unique within one input, such as ingest row numbers. The batch label is
	// prepended: "loves.csv#3".
	FileIDs []raw.Path

	Name         []raw.Path
	Latitude     []raw.Path
	Longitude    []raw.Path
	FacilityType []raw.Path
	Highway      []raw.Path
	Operator     []raw.Path
	State        []raw.Path
	City         []raw.Path
	TruckSpaces  []raw.Path
	CameraURLs   []raw.Path

	Restrooms BoolField
	Fuel      BoolField
	Showers   BoolField
	Wifi      BoolField
	Open24    BoolField

	// Types maps lower-cased source type strings to canonical types.
	Types map[string]model.FacilityType
}

// Classify maps a source type string through the profile's lookup table.
func (p *Profile) Classify(s string) (model.FacilityType, bool) {
	ft, ok := p.Types[strings.ToLower(strings.TrimSpace(s))]
	return ft, ok
}

// Validate checks that the profile can produce canonical records at all:
// a well-formed source name plus id, latitude and longitude paths.
func (p *Profile) Validate() error {
	if p == nil {
		return eris.Wrap(ErrInvalid, "profile is nil")
	}
	if !sourceNameRe.MatchString(p.Source) {
		return eris.Wrapf(ErrInvalid, "source %q must match %s", p.Source, sourceNameRe)
	}

	required := []struct {
		field string
		paths []raw.Path
	}{
		{"id", slices.Concat(p.ID, p.FileIDs)},
		{"latitude", p.Latitude},
		{"longitude", p.Longitude},
	}
	for _, r := range required {
		if len(r.paths) == 0 {
			return eris.Wrapf(ErrInvalid, "%s: no %s key paths", p.Source, r.field)
		}
	}

	lists := map[string][]raw.Path{
		"id":            p.ID,
		"id_namespace":  p.IDNamespace,
		"file_id":       p.FileIDs,
		"name":          p.Name,
		"latitude":      p.Latitude,
		"longitude":     p.Longitude,
		"facility_type": p.FacilityType,
		"highway":       p.Highway,
		"operator":      p.Operator,
		"state":         p.State,
		"city":          p.City,
		"truck_spaces":  p.TruckSpaces,
		"camera_urls":   p.CameraURLs,
	}
	bools := map[string]BoolField{
		"restrooms": p.Restrooms,
		"fuel":      p.Fuel,
		"showers":   p.Showers,
		"wifi":      p.Wifi,
		"open_24":   p.Open24,
	}
	for name, bf := range bools {
		lists[name] = bf.Paths
		for _, lm := range bf.Lists {
			if !lm.Path.Valid() {
				return eris.Wrapf(ErrInvalid, "%s: %s list path %q is malformed", p.Source, name, lm.Path.String())
			}
			if strings.TrimSpace(lm.Token) == "" {
				return eris.Wrapf(ErrInvalid, "%s: %s list match on %q has no token", p.Source, name, lm.Path.String())
			}
		}
	}
	for name, paths := range lists {
		for _, path := range paths {
			if !path.Valid() {
				return eris.Wrapf(ErrInvalid, "%s: %s key path %q is malformed", p.Source, name, path.String())
			}
		}
	}

	for k, ft := range p.Types {
		if !ft.Valid() {
			return eris.Wrapf(ErrInvalid, "%s: type %q maps to unknown facility type %q", p.Source, k, ft)
		}
	}
	return nil
}
