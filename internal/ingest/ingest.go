// Package ingest reads downloaded facility feeds into raw records. It knows
// file formats, not sources: which fields mean what is left to the profile
// the records are normalized with.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/truckpark-cli/internal/fetcher"
	"github.com/sells-group/truckpark-cli/internal/raw"
)

// Format names an input file format.
type Format string

// Supported formats.
const (
	FormatAuto     Format = "auto"
	FormatOverpass Format = "overpass"
	FormatGeoJSON  Format = "geojson"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
	FormatXML      Format = "xml"
)

// Formats returns every format name accepted by ParseFormat.
func Formats() []Format {
	return []Format{FormatAuto, FormatOverpass, FormatGeoJSON, FormatJSON, FormatCSV, FormatXLSX, FormatXML}
}

// ParseFormat validates a format name. The empty string means auto.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatAuto, nil
	}
	for _, f := range Formats() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", eris.Errorf("ingest: unknown format %q", s)
}

// Options controls how a file is read.
type Options struct {
	Format Format
	// Columns names the fields of header-less CSV and XLSX input, such as
	// POI Factory's lon,lat,name,description files.
	Columns   []string
	Delimiter rune
	// Sheet selects an XLSX worksheet by name; the first sheet otherwise.
	Sheet string
	// SkipRows drops title rows above the header in CSV and XLSX input.
	SkipRows int
	// XMLPath selects the repeating element of XML input, e.g. "sites.site".
	XMLPath string
}

// Source is one input file and how to read it.
type Source struct {
	Path    string
	Options Options
}

// LoadFile reads the records of one file.
func LoadFile(ctx context.Context, path string, opts Options) ([]raw.Record, error) {
	if opts.Format == "" || opts.Format == FormatAuto {
		opts.Format = formatFromExt(path)
	}
	if opts.Delimiter == 0 && strings.EqualFold(filepath.Ext(path), ".tsv") {
		opts.Delimiter = '\t'
	}

	if opts.Format == FormatXLSX {
		rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: opts.Sheet})
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read %s", path)
		}
		return tableRecords(rows, opts), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open file")
	}
	defer f.Close() //nolint:errcheck

	recs, err := Load(ctx, f, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}
	return recs, nil
}

// Load reads records from r. With FormatAuto the format is sniffed from the
// leading bytes.
func Load(ctx context.Context, r io.Reader, opts Options) ([]raw.Record, error) {
	br := bufio.NewReaderSize(r, 64<<10)
	format := opts.Format
	if format == "" || format == FormatAuto {
		format = sniff(br)
	}

	zap.L().Debug("ingest: loading", zap.String("format", string(format)))

	switch format {
	case FormatOverpass:
		return loadOverpass(ctx, br)
	case FormatGeoJSON:
		return loadGeoJSON(ctx, br)
	case FormatJSON:
		return loadJSON(br)
	case FormatCSV:
		return loadCSV(ctx, br, opts)
	case FormatXLSX:
		data, err := io.ReadAll(br)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read xlsx")
		}
		rows, err := fetcher.ReadXLSXBinary(data, fetcher.XLSXOptions{SheetName: opts.Sheet})
		if err != nil {
			return nil, err
		}
		return tableRecords(rows, opts), nil
	case FormatXML:
		return loadXML(br, opts.XMLPath)
	default:
		return nil, eris.Errorf("ingest: unknown format %q", format)
	}
}

// LoadAll reads every source concurrently, at most workers at a time. The
// result is indexed like sources.
func LoadAll(ctx context.Context, sources []Source, workers int) ([][]raw.Record, error) {
	out := make([][]raw.Record, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, src := range sources {
		g.Go(func() error {
			recs, err := LoadFile(gctx, src.Path, src.Options)
			if err != nil {
				return err
			}
			zap.L().Info("ingest: loaded file",
				zap.String("path", src.Path),
				zap.Int("records", len(recs)),
			)
			out[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func formatFromExt(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson":
		return FormatGeoJSON
	case ".csv", ".tsv", ".txt":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	case ".xml":
		return FormatXML
	default:
		return FormatAuto
	}
}

// sniff guesses the format from the buffered prefix without consuming it.
func sniff(br *bufio.Reader) Format {
	head, _ := br.Peek(br.Size())
	head = bytes.TrimLeft(bytes.TrimPrefix(head, []byte{0xEF, 0xBB, 0xBF}), " \t\r\n")
	switch {
	case len(head) == 0:
		return FormatJSON
	case bytes.HasPrefix(head, []byte("PK\x03\x04")):
		return FormatXLSX
	case head[0] == '<':
		return FormatXML
	case head[0] == '[':
		return FormatJSON
	case head[0] == '{':
		switch {
		case bytes.Contains(head, []byte(`"elements"`)):
			return FormatOverpass
		case bytes.Contains(head, []byte(`"FeatureCollection"`)):
			return FormatGeoJSON
		default:
			return FormatJSON
		}
	default:
		return FormatCSV
	}
}
