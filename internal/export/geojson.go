package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/truckpark-cli/internal/model"
)

// WriteGeoJSON writes a FeatureCollection of points. Feature ids are
// "source:source_id"; absent values are null properties.
func WriteGeoJSON(w io.Writer, facilities []model.Facility) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, len(facilities))}
	for i := range facilities {
		f := &facilities[i]
		fc.Features[i] = &geojson.Feature{
			ID:         f.Ref().String(),
			Geometry:   geom.NewPointFlat(geom.XY, []float64{f.Longitude, f.Latitude}),
			Properties: properties(f),
		}
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}

func properties(f *model.Facility) map[string]any {
	refs := make([]string, len(f.PossibleDuplicateOf))
	for i, r := range f.PossibleDuplicateOf {
		refs[i] = r.String()
	}
	return map[string]any{
		"data_source":           f.DataSource,
		"source_id":             f.SourceID,
		"source_file":           f.SourceFile,
		"name":                  f.Name,
		"highway":               f.Highway,
		"facility_type":         f.FacilityType,
		"operator":              f.Operator,
		"state":                 f.State,
		"city":                  f.City,
		"truck_spaces":          f.TruckSpaces,
		"has_restrooms":         f.HasRestrooms,
		"has_fuel":              f.HasFuel,
		"has_showers":           f.HasShowers,
		"has_wifi":              f.HasWifi,
		"is_24_hours":           f.Is24Hours,
		"camera_urls":           f.CameraURLs,
		"dedup_key":             f.DedupKey.String(),
		"possible_duplicate_of": refs,
	}
}
