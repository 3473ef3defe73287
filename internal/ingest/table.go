package ingest

import (
	"context"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/truckpark-cli/internal/fetcher"
	"github.com/sells-group/truckpark-cli/internal/raw"
)

// RowIDField is added to tabular records holding the 1-based data row
// number. It is only unique within one file, so profiles key on it through
// FileIDs, which prefixes the input label.
const RowIDField = "row_id"

func loadCSV(ctx context.Context, r io.Reader, opts Options) ([]raw.Record, error) {
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		Delimiter:  opts.Delimiter,
		LazyQuotes: true,
	})

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read csv")
		}
	}
	return tableRecords(rows, opts), nil
}

// tableRecords turns spreadsheet rows into records. The header is
// opts.Columns when given, otherwise the first row after opts.SkipRows.
// Blank cells are left out so they read as absent; cells beyond the header
// are dropped.
func tableRecords(rows [][]string, opts Options) []raw.Record {
	if opts.SkipRows > 0 {
		if opts.SkipRows >= len(rows) {
			return []raw.Record{}
		}
		rows = rows[opts.SkipRows:]
	}

	header := opts.Columns
	if len(header) == 0 {
		if len(rows) == 0 {
			return []raw.Record{}
		}
		header, rows = rows[0], rows[1:]
	}
	header = cleanHeader(header)

	addRowID := true
	for _, h := range header {
		if h == RowIDField {
			addRowID = false
		}
	}

	recs := make([]raw.Record, 0, len(rows))
	for i, row := range rows {
		rec := make(raw.Record, len(header)+1)
		for j, cell := range row {
			if j >= len(header) || header[j] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if _, dup := rec[header[j]]; dup {
				continue
			}
			rec[header[j]] = raw.Str(cell)
		}
		if addRowID {
			rec[RowIDField] = raw.Int(int64(i + 1))
		}
		recs = append(recs, rec)
	}
	return recs
}

func cleanHeader(h []string) []string {
	out := make([]string, len(h))
	for i, name := range h {
		out[i] = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	}
	return out
}
