package ingest

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/truckpark-cli/internal/raw"
)

// record flattens a feature into {"id", "properties", "geometry"} where
// geometry carries the geometry type and a representative lat/lon: the
// coordinate of a point, the centroid of anything else. A feature whose
// geometry is missing or unreadable keeps no lat/lon.
func (f feature) record(index int) raw.Record {
	rec := raw.Record{}
	if !f.ID.IsNull() {
		rec["id"] = f.ID
	}

	props := raw.Record{}
	if len(f.Properties) > 0 && !isNull(f.Properties) {
		if err := props.UnmarshalJSON(f.Properties); err != nil {
			zap.L().Debug("ingest: feature properties not an object", zap.Int("feature", index), zap.Error(err))
			props = raw.Record{}
		}
	}
	rec["properties"] = raw.Obj(props)

	if len(f.Geometry) == 0 || isNull(f.Geometry) {
		return rec
	}

	var g geojson.Geometry
	if err := json.Unmarshal(f.Geometry, &g); err != nil {
		zap.L().Debug("ingest: unreadable feature geometry", zap.Int("feature", index), zap.Error(err))
		return rec
	}
	gr := raw.Record{"type": raw.Str(g.Type)}
	rec["geometry"] = raw.Obj(gr)

	t, err := g.Decode()
	if err != nil {
		zap.L().Debug("ingest: undecodable feature geometry", zap.Int("feature", index), zap.String("type", g.Type), zap.Error(err))
		return rec
	}
	if lat, lon, ok := representativePoint(t); ok {
		gr["lat"] = raw.Float(lat)
		gr["lon"] = raw.Float(lon)
	}
	return rec
}

// representativePoint returns lat/lon for a decoded geometry.
func representativePoint(t geom.T) (lat, lon float64, ok bool) {
	var c geom.Coord
	if p, isPoint := t.(*geom.Point); isPoint {
		if p.Empty() {
			return 0, 0, false
		}
		c = p.Coords()
	} else {
		var err error
		c, err = xy.Centroid(t)
		if err != nil {
			return 0, 0, false
		}
	}
	if len(c) < 2 || !finite(c.X()) || !finite(c.Y()) {
		return 0, 0, false
	}
	return c.Y(), c.X(), true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}
