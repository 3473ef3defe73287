package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/truckpark-cli/internal/fetcher"
	"github.com/sells-group/truckpark-cli/internal/raw"
)

// wrapperKeys are the members probed, in order, for the record array of a
// JSON object that wraps one.
var wrapperKeys = []string{"data", "sites", "items", "results", "features", "elements"}

// loadOverpass streams the "elements" array of an Overpass API response.
// Elements are kept as-is: nodes carry lat/lon, ways and relations queried
// with "out center" carry center.lat/center.lon.
func loadOverpass(ctx context.Context, r io.Reader) ([]raw.Record, error) {
	return drain(fetcher.DecodeJSONField[raw.Record](ctx, r, "elements"))
}

// loadGeoJSON streams the features of a FeatureCollection.
func loadGeoJSON(ctx context.Context, r io.Reader) ([]raw.Record, error) {
	features, err := drain(fetcher.DecodeJSONField[feature](ctx, r, "features"))
	if err != nil {
		return nil, err
	}
	recs := make([]raw.Record, len(features))
	for i, f := range features {
		recs[i] = f.record(i)
	}
	return recs, nil
}

// loadJSON accepts a top-level array of objects, an object wrapping such an
// array under one of wrapperKeys, or a single object.
func loadJSON(r io.Reader) ([]raw.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read json")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []raw.Record{}, nil
	}

	v, err := fetcher.DecodeJSONObject[raw.Value](bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	if items, ok := v.Items(); ok {
		return objects(items)
	}
	obj, ok := v.Record()
	if !ok {
		return nil, eris.Errorf("ingest: json top level is %s, want array or object", v.Kind())
	}
	for _, k := range wrapperKeys {
		if items, ok := obj[k].Items(); ok {
			zap.L().Debug("ingest: unwrapping json records", zap.String("key", k), zap.Int("count", len(items)))
			return objects(items)
		}
	}
	return []raw.Record{obj}, nil
}

func objects(items []raw.Value) ([]raw.Record, error) {
	recs := make([]raw.Record, 0, len(items))
	for i, it := range items {
		rec, ok := it.Record()
		if !ok {
			return nil, eris.Errorf("ingest: json element %d is %s, want object", i, it.Kind())
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func drain[T any](outCh <-chan T, errCh <-chan error) ([]T, error) {
	out := []T{}
	for v := range outCh {
		out = append(out, v)
	}
	for err := range errCh {
		if err != nil {
			return nil, eris.Wrap(err, "ingest: decode json")
		}
	}
	return out, nil
}

// feature is a GeoJSON feature with its properties kept lossless and its
// geometry left for go-geom.
type feature struct {
	ID         raw.Value       `json:"id"`
	Properties json.RawMessage `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}
