package raw

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Record is one source-native facility record as downloaded.
type Record map[string]Value

// FromMap converts a decoded JSON object into a Record.
func FromMap(m map[string]any) Record {
	r := make(Record, len(m))
	for k, v := range m {
		r[k] = FromAny(v)
	}
	return r
}

// Map converts r back into plain Go values.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r))
	for k, v := range r {
		m[k] = v.Any()
	}
	return m
}

// UnmarshalJSON decodes a JSON object, preserving number literals.
func (r *Record) UnmarshalJSON(data []byte) error {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	rec, ok := v.Record()
	if !ok {
		return eris.Errorf("raw: expected JSON object, got %s", v.Kind())
	}
	*r = rec
	return nil
}

// MarshalJSON renders r as a JSON object with sorted keys.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// Path is a key path into a nested record. Numeric segments index arrays and
// the "*" segment fans out over every element of an array.
type Path []string

// Wildcard fans a Path out over array elements.
const Wildcard = "*"

// ParsePath splits a dotted path such as "tags.capacity:hgv".
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	return Path(strings.Split(s, "."))
}

// Paths parses several dotted paths.
func Paths(ss ...string) []Path {
	out := make([]Path, len(ss))
	for i, s := range ss {
		out[i] = ParsePath(s)
	}
	return out
}

// String returns the dotted form of p.
func (p Path) String() string { return strings.Join(p, ".") }

// Valid reports whether p has at least one segment and no empty segments.
func (p Path) Valid() bool {
	if len(p) == 0 {
		return false
	}
	for _, seg := range p {
		if seg == "" {
			return false
		}
	}
	return true
}

// Get resolves p against r. It reports false when any segment is missing or
// the final value is blank.
func (r Record) Get(p Path) (Value, bool) {
	vs := r.GetAll(p)
	if len(vs) == 0 {
		return Value{}, false
	}
	return vs[0], true
}

// GetAll resolves p against r, expanding wildcards, and returns every
// non-blank value found in document order.
func (r Record) GetAll(p Path) []Value {
	if len(p) == 0 {
		return nil
	}
	return walk(Obj(r), p, nil)
}

func walk(cur Value, p Path, out []Value) []Value {
	if len(p) == 0 {
		if !cur.Blank() {
			out = append(out, cur)
		}
		return out
	}
	seg, rest := p[0], p[1:]
	switch cur.Kind() {
	case Object:
		next, ok := cur.obj[seg]
		if !ok {
			return out
		}
		return walk(next, rest, out)
	case Array:
		if seg == Wildcard {
			for _, e := range cur.arr {
				out = walk(e, rest, out)
			}
			return out
		}
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(cur.arr) {
			return out
		}
		return walk(cur.arr[i], rest, out)
	default:
		return out
	}
}

// First returns the first non-blank value along paths, tried in order.
func (r Record) First(paths []Path) (Value, bool) {
	for _, p := range paths {
		if v, ok := r.Get(p); ok {
			return v, true
		}
	}
	return Value{}, false
}
