package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// dedupScale rounds coordinates to 3 decimal places (~110m).
const dedupScale = 1000

// DedupKey is the coarse-coordinate plus normalized-name key used to spot the
// same physical facility reported by different sources.
type DedupKey struct {
	Lat  int64 // latitude * 1000, rounded
	Lon  int64 // longitude * 1000, rounded
	Name string
}

// NewDedupKey builds the key for a coordinate pair and raw name.
func NewDedupKey(lat, lon float64, name string) DedupKey {
	return DedupKey{
		Lat:  int64(math.Round(lat * dedupScale)),
		Lon:  int64(math.Round(lon * dedupScale)),
		Name: NormalizeName(name),
	}
}

// Empty reports whether the key must be excluded from duplicate grouping.
// A key without a name never matches anything.
func (k DedupKey) Empty() bool { return k.Name == "" }

// String renders "lat,lon,name" with 3-decimal coordinates, or "" for an
// empty key.
func (k DedupKey) String() string {
	if k.Empty() {
		return ""
	}
	return fmt.Sprintf("%.3f,%.3f,%s", float64(k.Lat)/dedupScale, float64(k.Lon)/dedupScale, k.Name)
}

// MarshalText renders the key for JSON output.
func (k DedupKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the String form back into a key.
func (k *DedupKey) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*k = DedupKey{}
		return nil
	}
	parts := strings.SplitN(string(text), ",", 3)
	if len(parts) != 3 || parts[2] == "" {
		return eris.Errorf("model: malformed dedup key %q", text)
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return eris.Wrapf(err, "model: dedup key latitude %q", parts[0])
	}
	lon, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return eris.Wrapf(err, "model: dedup key longitude %q", parts[1])
	}
	*k = DedupKey{
		Lat:  int64(math.Round(lat * dedupScale)),
		Lon:  int64(math.Round(lon * dedupScale)),
		Name: parts[2],
	}
	return nil
}

// NormalizeName folds a facility name for matching: diacritics removed,
// lowercased, apostrophes dropped, other punctuation and symbols turned into
// spaces, whitespace collapsed.
func NormalizeName(s string) string {
	folder := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		switch {
		case r == '\'' || r == '’' || r == 'ʼ':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
