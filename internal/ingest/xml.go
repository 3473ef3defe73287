package ingest

import (
	"io"
	"strings"

	"github.com/clbanning/mxj/v2"
	"github.com/rotisserie/eris"

	"github.com/sells-group/truckpark-cli/internal/raw"
)

// loadXML selects the repeating elements at path (for example
// "Response.Sites.Site") from an XML feed. Attributes appear as "-name"
// keys and element text under "#text"; values are left as text.
func loadXML(r io.Reader, path string) ([]raw.Record, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, eris.New("ingest: xml input needs an element path")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read xml")
	}

	m, err := mxj.NewMapXml(data)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: parse xml")
	}

	vals, err := m.ValuesForPath(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: xml path %q", path)
	}

	recs := make([]raw.Record, 0, len(vals))
	for _, v := range vals {
		switch t := v.(type) {
		case map[string]any:
			recs = append(recs, raw.FromMap(t))
		default:
			recs = append(recs, raw.Record{"#text": raw.FromAny(t)})
		}
	}
	return recs, nil
}
