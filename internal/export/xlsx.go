package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/truckpark-cli/internal/model"
)

const (
	headerFill = "FF2E7D32"
	headerFont = "FFFFFFFF"
)

// WriteXLSX writes a "Facilities" sheet with typed cells and a styled header
// row, and a "Metadata" sheet describing the run.
func WriteXLSX(path string, facilities []model.Facility, meta Metadata) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet("Facilities")
	if err != nil {
		return eris.Wrap(err, "export: add facilities sheet")
	}
	style := headerStyle()
	addHeader(sheet, model.Columns, style)
	for i := range facilities {
		addFacilityRow(sheet, &facilities[i])
	}

	ms, err := f.AddSheet("Metadata")
	if err != nil {
		return eris.Wrap(err, "export: add metadata sheet")
	}
	addHeader(ms, []string{"key", "value"}, style)
	for _, kv := range metadataRows(meta, len(facilities)) {
		r := ms.AddRow()
		r.AddCell().SetString(kv[0])
		r.AddCell().SetString(kv[1])
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func headerStyle() *xlsx.Style {
	s := xlsx.NewStyle()
	s.Font.Bold = true
	s.Font.Color = headerFont
	s.Fill = *xlsx.NewFill("solid", headerFill, headerFill)
	s.ApplyFont = true
	s.ApplyFill = true
	return s
}

func addHeader(sheet *xlsx.Sheet, names []string, style *xlsx.Style) {
	r := sheet.AddRow()
	for _, n := range names {
		c := r.AddCell()
		c.SetString(n)
		c.SetStyle(style)
	}
}

func addFacilityRow(sheet *xlsx.Sheet, f *model.Facility) {
	r := sheet.AddRow()
	str := func(s string) { r.AddCell().SetString(s) }
	boolean := func(b *bool) {
		c := r.AddCell()
		if b != nil {
			c.SetBool(*b)
		}
	}

	str(f.DataSource)
	str(f.SourceID)
	str(f.SourceFile)
	str(f.Name)
	r.AddCell().SetFloat(f.Latitude)
	r.AddCell().SetFloat(f.Longitude)
	str(f.Highway)
	str(string(f.FacilityType))
	str(f.Operator)
	str(f.State)
	str(f.City)
	c := r.AddCell()
	if f.TruckSpaces != nil {
		c.SetInt(*f.TruckSpaces)
	}
	boolean(f.HasRestrooms)
	boolean(f.HasFuel)
	boolean(f.HasShowers)
	boolean(f.HasWifi)
	boolean(f.Is24Hours)
	str(strings.Join(f.CameraURLs, "|"))
	str(f.DedupKey.String())
	str(formatRefs(f.PossibleDuplicateOf))
}

func metadataRows(meta Metadata, facilities int) [][2]string {
	generated := meta.Generated
	if generated.IsZero() {
		generated = time.Now()
	}
	rows := [][2]string{
		{"generated", generated.UTC().Format(time.RFC3339)},
		{"run_id", meta.RunID},
		{"facilities", fmt.Sprint(facilities)},
		{"input_records", fmt.Sprint(meta.Stats.Input)},
		{"rejected", fmt.Sprint(meta.Stats.Rejected)},
		{"duplicate_groups", fmt.Sprint(meta.Stats.DuplicateGroups)},
		{"flagged_duplicates", fmt.Sprint(meta.Stats.Flagged)},
		{"sources", strings.Join(meta.Sources, ", ")},
	}

	sources := make([]string, 0, len(meta.Stats.BySource))
	for s := range meta.Stats.BySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, s := range sources {
		st := meta.Stats.BySource[s]
		rows = append(rows, [2]string{
			"source:" + s,
			fmt.Sprintf("input=%d accepted=%d rejected=%d", st.Input, st.Accepted, st.Rejected),
		})
	}
	for _, t := range model.FacilityTypes {
		if n := meta.Stats.ByType[t]; n > 0 {
			rows = append(rows, [2]string{"type:" + string(t), fmt.Sprint(n)})
		}
	}
	return rows
}
