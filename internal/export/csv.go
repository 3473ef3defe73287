package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/truckpark-cli/internal/model"
)

// RejectColumns is the header of the rejects report.
var RejectColumns = []string{"data_source", "source_file", "index", "reason", "detail", "record_json"}

// WriteCSV writes facilities with a model.Columns header. Absent values are
// blank; booleans are true/false; list values are joined with "|".
func WriteCSV(w io.Writer, facilities []model.Facility) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.Columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for i := range facilities {
		if err := cw.Write(row(&facilities[i])); err != nil {
			return eris.Wrapf(err, "export: write csv row %d", i)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteRejectsCSV writes one line per reject with the original record as
// JSON, so it can be fixed and fed back in.
func WriteRejectsCSV(w io.Writer, rejects []model.Reject) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RejectColumns); err != nil {
		return eris.Wrap(err, "export: write rejects header")
	}
	for i, r := range rejects {
		rec, err := json.Marshal(r.Record)
		if err != nil {
			return eris.Wrapf(err, "export: marshal reject %d", i)
		}
		line := []string{r.DataSource, r.SourceFile, strconv.Itoa(r.Index), string(r.Reason), r.Detail, string(rec)}
		if err := cw.Write(line); err != nil {
			return eris.Wrapf(err, "export: write reject %d", i)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush rejects")
}
