package ingest

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/truckpark-cli/internal/raw"
)

func text(t *testing.T, rec raw.Record, path string) string {
	t.Helper()
	v, ok := rec.Get(raw.ParsePath(path))
	require.True(t, ok, "no value at %s", path)
	s, ok := v.Text()
	require.True(t, ok, "no text at %s", path)
	return s
}

func number(t *testing.T, rec raw.Record, path string) float64 {
	t.Helper()
	v, ok := rec.Get(raw.ParsePath(path))
	require.True(t, ok, "no value at %s", path)
	f, ok := v.AsFloat()
	require.True(t, ok, "no number at %s", path)
	return f
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatAuto},
		{in: "GeoJSON", want: FormatGeoJSON},
		{in: " overpass ", want: FormatOverpass},
		{in: "xml", want: FormatXML},
		{in: "parquet", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

const overpassDoc = `{
  "version": 0.6,
  "generator": "Overpass API",
  "elements": [
    {"type":"node","id":123,"lat":36.0,"lon":-86.7,"tags":{"highway":"rest_area","name":"I-40 Rest Area","capacity:hgv":"40"}},
    {"type":"way","id":9007199254740993,"center":{"lat":35.1,"lon":-85.2},"nodes":[1,2,3],"tags":{"amenity":"parking","hgv":"designated"}}
  ]
}`

func TestLoad_Overpass(t *testing.T) {
	recs, err := Load(context.Background(), strings.NewReader(overpassDoc), Options{})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "123", text(t, recs[0], "id"))
	assert.Equal(t, "40", text(t, recs[0], "tags.capacity:hgv"))
	assert.Equal(t, "9007199254740993", text(t, recs[1], "id"))
	assert.InDelta(t, 35.1, number(t, recs[1], "center.lat"), 1e-9)
}

const geojsonDoc = `{
  "type": "FeatureCollection",
  "features": [
    {"type":"Feature","id":"node/1","properties":{"@id":"node/1","highway":"rest_area","name":"Point"},
     "geometry":{"type":"Point","coordinates":[-94.5,39.1]}},
    {"type":"Feature","id":"way/2","properties":{"@id":"way/2","amenity":"parking"},
     "geometry":{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]}},
    {"type":"Feature","properties":{"name":"No geometry"},"geometry":null},
    {"type":"Feature","properties":null,"geometry":{"type":"Point","coordinates":[]}}
  ]
}`

func TestLoad_GeoJSON(t *testing.T) {
	recs, err := Load(context.Background(), strings.NewReader(geojsonDoc), Options{})
	require.NoError(t, err)
	require.Len(t, recs, 4)

	assert.Equal(t, "node/1", text(t, recs[0], "id"))
	assert.Equal(t, "rest_area", text(t, recs[0], "properties.highway"))
	assert.Equal(t, "Point", text(t, recs[0], "geometry.type"))
	assert.InDelta(t, 39.1, number(t, recs[0], "geometry.lat"), 1e-9)
	assert.InDelta(t, -94.5, number(t, recs[0], "geometry.lon"), 1e-9)

	assert.Equal(t, "Polygon", text(t, recs[1], "geometry.type"))
	assert.InDelta(t, 1.0, number(t, recs[1], "geometry.lat"), 1e-9)
	assert.InDelta(t, 1.0, number(t, recs[1], "geometry.lon"), 1e-9)

	_, ok := recs[2].Get(raw.ParsePath("geometry.lat"))
	assert.False(t, ok)
	_, ok = recs[2].Get(raw.ParsePath("id"))
	assert.False(t, ok)

	_, ok = recs[3].Get(raw.ParsePath("geometry.lat"))
	assert.False(t, ok)
	props, ok := recs[3]["properties"].Record()
	require.True(t, ok)
	assert.Empty(t, props)
}

func TestLoad_JSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ids   []string
	}{
		{name: "array", input: `[{"siteId":"A"},{"siteId":"B"}]`, ids: []string{"A", "B"}},
		{name: "wrapped in data", input: `{"count":2,"data":[{"siteId":"A"},{"siteId":"B"}]}`, ids: []string{"A", "B"}},
		{name: "wrapped in sites", input: `{"sites":[{"siteId":"C"}]}`, ids: []string{"C"}},
		{name: "single object", input: `{"siteId":"D","name":"Solo"}`, ids: []string{"D"}},
		{name: "empty", input: "  \n", ids: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := Load(context.Background(), strings.NewReader(tt.input), Options{Format: FormatJSON})
			require.NoError(t, err)
			require.Len(t, recs, len(tt.ids))
			for i, id := range tt.ids {
				assert.Equal(t, id, text(t, recs[i], "siteId"))
			}
		})
	}
}

func TestLoad_JSONErrors(t *testing.T) {
	for _, input := range []string{`[1,2]`, `"just a string"`, `{"data":[`} {
		_, err := Load(context.Background(), strings.NewReader(input), Options{Format: FormatJSON})
		assert.Error(t, err, input)
	}
}

func TestLoad_CSV(t *testing.T) {
	input := "siteId, name ,latitude,longitude,capacity\nKS1,Goodland,39.35,-101.7,\nKS2, Salina ,38.8,-97.6,60,extra\n"
	recs, err := Load(context.Background(), strings.NewReader(input), Options{Format: FormatCSV})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "Goodland", text(t, recs[0], "name"))
	_, ok := recs[0].Get(raw.ParsePath("capacity"))
	assert.False(t, ok, "blank cell must be absent")
	assert.Equal(t, "1", text(t, recs[0], RowIDField))

	assert.Equal(t, "Salina", text(t, recs[1], "name"))
	assert.Equal(t, "60", text(t, recs[1], "capacity"))
	assert.Equal(t, "2", text(t, recs[1], RowIDField))
	assert.Len(t, recs[1], 6)
}

func TestLoad_CSVColumns(t *testing.T) {
	input := "-94.5,39.1,\"Flying J #123\",Truck Stop\n-95.0,40.0,Love's,Truck Stop\n"
	recs, err := Load(context.Background(), strings.NewReader(input), Options{
		Format:  FormatCSV,
		Columns: []string{"longitude", "latitude", "name", "category"},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Flying J #123", text(t, recs[0], "name"))
	assert.Equal(t, "2", text(t, recs[1], RowIDField))
}

func TestLoad_CSVKeepsRowIDColumn(t *testing.T) {
	recs, err := Load(context.Background(), strings.NewReader("row_id,name\n77,A\n"), Options{Format: FormatCSV})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "77", text(t, recs[0], RowIDField))
}

func TestLoad_XML(t *testing.T) {
	input := `<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Sites>
    <Site id="WY-17">
      <Name>Cheyenne Port of Entry</Name>
      <Latitude>41.12</Latitude>
      <Longitude>-104.79</Longitude>
      <Type>Weigh Station</Type>
    </Site>
    <Site id="WY-18">
      <Name>Pine Bluffs Rest Area</Name>
      <Latitude>41.18</Latitude>
      <Longitude>-104.06</Longitude>
    </Site>
  </Sites>
</Response>`

	recs, err := Load(context.Background(), strings.NewReader(input), Options{XMLPath: "Response.Sites.Site"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "WY-17", text(t, recs[0], "-id"))
	assert.Equal(t, "Cheyenne Port of Entry", text(t, recs[0], "Name"))
	assert.InDelta(t, -104.06, number(t, recs[1], "Longitude"), 1e-9)
}

func TestLoad_XMLErrors(t *testing.T) {
	_, err := Load(context.Background(), strings.NewReader("<a/>"), Options{Format: FormatXML})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element path")

	_, err = Load(context.Background(), strings.NewReader("<a><b>"), Options{Format: FormatXML, XMLPath: "a.b"})
	assert.Error(t, err)
}

func writeWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sites")
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "inventory.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoadFile_XLSX(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"Truck parking inventory"},
		{"id", "name", "lat", "lon"},
		{"1", "Goodland", "39.35", "-101.7"},
	})

	recs, err := LoadFile(context.Background(), path, Options{SkipRows: 1})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Goodland", text(t, recs[0], "name"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	recs, err = Load(context.Background(), strings.NewReader(string(data)), Options{SkipRows: 1})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "-101.7", text(t, recs[0], "lon"))
}

func TestLoadFile_ByExtension(t *testing.T) {
	tsv := writeFile(t, "sites.tsv", "id\tname\n1\tA\n")
	recs, err := LoadFile(context.Background(), tsv, Options{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "A", text(t, recs[0], "name"))

	gj := writeFile(t, "sites.geojson", geojsonDoc)
	recs, err = LoadFile(context.Background(), gj, Options{})
	require.NoError(t, err)
	assert.Len(t, recs, 4)

	_, err = LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.json"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest: open file")
}

func TestLoadAll(t *testing.T) {
	sources := []Source{
		{Path: writeFile(t, "osm.json", overpassDoc)},
		{Path: writeFile(t, "tpims.json", `[{"siteId":"A"}]`)},
		{Path: writeFile(t, "poi.csv", "name\nX\nY\nZ\n")},
	}

	out, err := LoadAll(context.Background(), sources, 2)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Len(t, out[0], 2)
	assert.Len(t, out[1], 1)
	assert.Len(t, out[2], 3)

	sources = append(sources, Source{Path: writeFile(t, "bad.json", `{"elements":{}}`)})
	_, err = LoadAll(context.Background(), sources, 2)
	assert.Error(t, err)
}

func TestSniff(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{input: overpassDoc, want: FormatOverpass},
		{input: geojsonDoc, want: FormatGeoJSON},
		{input: "\xEF\xBB\xBF  [{}]", want: FormatJSON},
		{input: `{"data":[]}`, want: FormatJSON},
		{input: "<Sites/>", want: FormatXML},
		{input: "PK\x03\x04rest", want: FormatXLSX},
		{input: "id,name\n", want: FormatCSV},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			br := newReader(tt.input)
			assert.Equal(t, tt.want, sniff(br))
		})
	}
}

func newReader(s string) *bufio.Reader {
	return bufio.NewReaderSize(strings.NewReader(s), 64<<10)
}
