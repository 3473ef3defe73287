package export

import (
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/truckpark-cli/internal/model"
)

// dbfColumn pairs a DBF field (names are capped at 10 characters) with the
// facility value it holds.
type dbfColumn struct {
	field shp.Field
	value func(f *model.Facility) any
}

func shpBool(b *bool) any {
	if b == nil {
		return ""
	}
	if *b {
		return "T"
	}
	return "F"
}

var dbfColumns = []dbfColumn{
	{shp.StringField("SRC", 16), func(f *model.Facility) any { return f.DataSource }},
	{shp.StringField("SRC_ID", 64), func(f *model.Facility) any { return f.SourceID }},
	{shp.StringField("SRC_FILE", 128), func(f *model.Facility) any { return f.SourceFile }},
	{shp.StringField("NAME", 128), func(f *model.Facility) any { return f.Name }},
	{shp.FloatField("LAT", 12, 6), func(f *model.Facility) any { return f.Latitude }},
	{shp.FloatField("LON", 12, 6), func(f *model.Facility) any { return f.Longitude }},
	{shp.StringField("HIGHWAY", 32), func(f *model.Facility) any { return f.Highway }},
	{shp.StringField("FAC_TYPE", 16), func(f *model.Facility) any { return string(f.FacilityType) }},
	{shp.StringField("OPERATOR", 64), func(f *model.Facility) any { return f.Operator }},
	{shp.StringField("STATE", 8), func(f *model.Facility) any { return f.State }},
	{shp.StringField("CITY", 64), func(f *model.Facility) any { return f.City }},
	{shp.NumberField("SPACES", 8), func(f *model.Facility) any {
		if f.TruckSpaces == nil {
			return ""
		}
		return *f.TruckSpaces
	}},
	{shp.StringField("RESTROOMS", 1), func(f *model.Facility) any { return shpBool(f.HasRestrooms) }},
	{shp.StringField("FUEL", 1), func(f *model.Facility) any { return shpBool(f.HasFuel) }},
	{shp.StringField("SHOWERS", 1), func(f *model.Facility) any { return shpBool(f.HasShowers) }},
	{shp.StringField("WIFI", 1), func(f *model.Facility) any { return shpBool(f.HasWifi) }},
	{shp.StringField("OPEN_24H", 1), func(f *model.Facility) any { return shpBool(f.Is24Hours) }},
	{shp.StringField("CAMERAS", 254), func(f *model.Facility) any { return strings.Join(f.CameraURLs, "|") }},
	{shp.StringField("DEDUP_KEY", 160), func(f *model.Facility) any { return f.DedupKey.String() }},
	{shp.StringField("DUP_OF", 254), func(f *model.Facility) any { return formatRefs(f.PossibleDuplicateOf) }},
}

// WriteShapefile writes a POINT shapefile (.shp, .shx, .dbf) in WGS84
// longitude/latitude. Strings longer than their DBF field are truncated.
func WriteShapefile(path string, facilities []model.Facility) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	fields := make([]shp.Field, len(dbfColumns))
	for i, c := range dbfColumns {
		fields[i] = c.field
	}
	if err := w.SetFields(fields); err != nil {
		return eris.Wrap(err, "export: set dbf fields")
	}

	for i := range facilities {
		f := &facilities[i]
		n := int(w.Write(&shp.Point{X: f.Longitude, Y: f.Latitude}))
		for j, c := range dbfColumns {
			v := c.value(f)
			if s, ok := v.(string); ok {
				v = truncate(s, int(c.field.Size))
			}
			if err := w.WriteAttribute(n, j, v); err != nil {
				return eris.Wrapf(err, "export: write dbf row %d field %d", n, j)
			}
		}
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
