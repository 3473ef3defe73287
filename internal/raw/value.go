// Package raw models loosely-typed source records (OSM tags, Overture
// properties, TPIMS JSON objects) as an explicit tagged union.
package raw

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	// Null is an explicit JSON null (or a zero Value).
	Null Kind = iota
	// String holds text.
	String
	// Number holds a numeric literal, kept as text.
	Number
	// Bool holds a boolean.
	Bool
	// Object holds a nested record.
	Object
	// Array holds an ordered list of values.
	Array
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Object:
		return "object"
	case Array:
		return "array"
	default:
		return "unknown"
	}
}

// Value is one loosely-typed field value. The zero Value is Null.
type Value struct {
	kind Kind
	text string // String and Number payload
	b    bool
	obj  Record
	arr  []Value
}

// Str returns a String value.
func Str(s string) Value { return Value{kind: String, text: s} }

// Num returns a Number value from a literal such as "40" or "-86.7".
func Num(literal string) Value { return Value{kind: Number, text: literal} }

// Float returns a Number value for f.
func Float(f float64) Value {
	return Value{kind: Number, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Int returns a Number value for n.
func Int(n int64) Value { return Value{kind: Number, text: strconv.FormatInt(n, 10)} }

// Boolean returns a Bool value.
func Boolean(b bool) Value { return Value{kind: Bool, b: b} }

// Obj returns an Object value.
func Obj(r Record) Value { return Value{kind: Object, obj: r} }

// List returns an Array value.
func List(vs ...Value) Value { return Value{kind: Array, arr: vs} }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == Null }

// Record returns the nested record of an Object value.
func (v Value) Record() (Record, bool) {
	if v.kind != Object {
		return nil, false
	}
	return v.obj, true
}

// Items returns the elements of an Array value.
func (v Value) Items() ([]Value, bool) {
	if v.kind != Array {
		return nil, false
	}
	return v.arr, true
}

// Text returns the scalar rendered as text. Objects, arrays and null have no
// text form.
func (v Value) Text() (string, bool) {
	switch v.kind {
	case String, Number:
		return v.text, true
	case Bool:
		return strconv.FormatBool(v.b), true
	default:
		return "", false
	}
}

// Blank reports whether v carries no usable data: null, or a string that is
// empty after trimming.
func (v Value) Blank() bool {
	switch v.kind {
	case Null:
		return true
	case String:
		return strings.TrimSpace(v.text) == ""
	default:
		return false
	}
}

// AsFloat parses a String or Number as a finite float64.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != String && v.kind != Number {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// AsInt parses a String or Number holding an integral value. "40" and "40.0"
// both yield 40; "40.5" does not parse.
func (v Value) AsInt() (int, bool) {
	if v.kind != String && v.kind != Number {
		return 0, false
	}
	s := strings.TrimSpace(v.text)
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

var (
	trueTokens  = map[string]bool{"yes": true, "true": true, "1": true}
	falseTokens = map[string]bool{"no": true, "false": true, "0": true}
)

// AsBool coerces v into a boolean. Only yes/true/1 and no/false/0
// (case-insensitive) are recognised; every other value is absent, never false.
func (v Value) AsBool() (bool, bool) {
	if v.kind == Bool {
		return v.b, true
	}
	s, ok := v.Text()
	if !ok {
		return false, false
	}
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case trueTokens[s]:
		return true, true
	case falseTokens[s]:
		return false, true
	default:
		return false, false
	}
}

// FromAny converts a decoded JSON/XML/CSV value into a Value. Unsupported
// types become Null.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Value{}
	case Value:
		return t
	case string:
		return Str(t)
	case json.Number:
		return Num(t.String())
	case float64:
		return Float(t)
	case float32:
		return Float(float64(t))
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case int32:
		return Int(int64(t))
	case bool:
		return Boolean(t)
	case map[string]any:
		return Obj(FromMap(t))
	case []any:
		vs := make([]Value, len(t))
		for i, e := range t {
			vs[i] = FromAny(e)
		}
		return List(vs...)
	case []string:
		vs := make([]Value, len(t))
		for i, e := range t {
			vs[i] = Str(e)
		}
		return List(vs...)
	default:
		return Value{}
	}
}

// Any converts v back into plain Go values (json.Number for numbers).
func (v Value) Any() any {
	switch v.kind {
	case String:
		return v.text
	case Number:
		return json.Number(v.text)
	case Bool:
		return v.b
	case Object:
		return v.obj.Map()
	case Array:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Any()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON renders v as JSON, keeping number literals intact.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// UnmarshalJSON decodes any JSON value into v, preserving number literals.
func (v *Value) UnmarshalJSON(data []byte) error {
	var x any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&x); err != nil {
		return err
	}
	*v = FromAny(x)
	return nil
}
