// Package export writes a normalized facility table to files: CSV and XLSX
// for analysts, GeoJSON and Shapefile for GIS tools, plus a rejects report.
package export

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/truckpark-cli/internal/model"
	"github.com/sells-group/truckpark-cli/internal/normalize"
)

// Format is an output file format.
type Format string

// Output formats. SQLite output is written by the store package.
const (
	FormatCSV       Format = "csv"
	FormatXLSX      Format = "xlsx"
	FormatGeoJSON   Format = "geojson"
	FormatShapefile Format = "shp"
	FormatSQLite    Format = "sqlite"
)

var allFormats = []Format{FormatCSV, FormatXLSX, FormatGeoJSON, FormatShapefile, FormatSQLite}

// ParseFormats parses a comma-separated format list such as "csv,geojson".
// Duplicates are dropped; order is preserved.
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool)
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		f := Format(name)
		if f == "shapefile" {
			f = FormatShapefile
		}
		if !f.valid() {
			return nil, eris.Errorf("export: unknown format %q", part)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, eris.New("export: no formats given")
	}
	return out, nil
}

func (f Format) valid() bool {
	for _, a := range allFormats {
		if f == a {
			return true
		}
	}
	return false
}

// Metadata describes the run that produced an export.
type Metadata struct {
	RunID     string
	Generated time.Time
	Sources   []string
	Stats     normalize.Stats
}

// WriteFiles writes res into dir as <basename>.<ext> for every file format in
// formats, plus <basename>_rejects.csv when there are rejects. SQLite is
// skipped. Returns the paths written.
func WriteFiles(dir, basename string, formats []Format, res *normalize.Result, meta Metadata) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "export: create output dir")
	}

	var paths []string
	for _, f := range formats {
		var (
			path string
			err  error
		)
		switch f {
		case FormatCSV:
			path = filepath.Join(dir, basename+".csv")
			err = writeFile(path, func(file *os.File) error { return WriteCSV(file, res.Facilities) })
		case FormatXLSX:
			path = filepath.Join(dir, basename+".xlsx")
			err = WriteXLSX(path, res.Facilities, meta)
		case FormatGeoJSON:
			path = filepath.Join(dir, basename+".geojson")
			err = writeFile(path, func(file *os.File) error { return WriteGeoJSON(file, res.Facilities) })
		case FormatShapefile:
			path = filepath.Join(dir, basename+".shp")
			err = WriteShapefile(path, res.Facilities)
		default:
			continue
		}
		if err != nil {
			return paths, err
		}
		zap.L().Info("export: wrote file", zap.String("format", string(f)), zap.String("path", path))
		paths = append(paths, path)
	}

	if len(res.Rejects) > 0 {
		path := filepath.Join(dir, basename+"_rejects.csv")
		if err := writeFile(path, func(file *os.File) error { return WriteRejectsCSV(file, res.Rejects) }); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, fn func(*os.File) error) error {
	file, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := fn(file); err != nil {
		_ = file.Close()
		return err
	}
	return eris.Wrapf(file.Close(), "export: close %s", path)
}

// Cell renderings shared by the tabular writers.

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

func formatRefs(refs []model.Ref) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.String()
	}
	return strings.Join(parts, "|")
}

// row renders a facility in model.Columns order.
func row(f *model.Facility) []string {
	return []string{
		f.DataSource,
		f.SourceID,
		f.SourceFile,
		f.Name,
		formatFloat(f.Latitude),
		formatFloat(f.Longitude),
		f.Highway,
		string(f.FacilityType),
		f.Operator,
		f.State,
		f.City,
		formatInt(f.TruckSpaces),
		formatBool(f.HasRestrooms),
		formatBool(f.HasFuel),
		formatBool(f.HasShowers),
		formatBool(f.HasWifi),
		formatBool(f.Is24Hours),
		strings.Join(f.CameraURLs, "|"),
		f.DedupKey.String(),
		formatRefs(f.PossibleDuplicateOf),
	}
}
