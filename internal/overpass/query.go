// Package overpass builds Overpass QL queries for the OpenStreetMap features
// that make up the truck parking inventory.
package overpass

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultEndpoint is the main public Overpass API instance.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// DefaultTimeout is the server-side query timeout in seconds. Statewide
// queries for large states (TX, CA) take well over a minute.
const DefaultTimeout = 300

// Kind selects a family of OSM features.
type Kind string

// Supported query kinds.
const (
	KindRestAreas     Kind = "rest_areas"
	KindServices      Kind = "services"
	KindTruckParking  Kind = "truck_parking"
	KindWeighStations Kind = "weigh_stations"
)

var selectors = map[Kind][]string{
	KindRestAreas: {
		`nwr["highway"="rest_area"]`,
	},
	KindServices: {
		`nwr["highway"="services"]`,
	},
	KindTruckParking: {
		`nwr["amenity"="parking"]["hgv"~"^(yes|designated|only)$"]`,
		`nwr["amenity"="parking_space"]["hgv"~"^(yes|designated|only)$"]`,
		`nwr["amenity"="truck_stop"]`,
	},
	KindWeighStations: {
		`nwr["amenity"="weighbridge"]`,
		`nwr["highway"="weigh_station"]`,
	},
}

// Kinds returns every supported kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindRestAreas, KindServices, KindTruckParking, KindWeighStations}
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := selectors[k]; !ok {
		return "", eris.Errorf("overpass: unknown kind %q", s)
	}
	return k, nil
}

// BBox is a south,west,north,east bounding box in degrees.
type BBox struct {
	South, West, North, East float64
}

// Area restricts a query to a US state or a bounding box. Exactly one of
// State and BBox is set.
type Area struct {
	State string // ISO 3166-2 subdivision, e.g. "US-KS"
	BBox  *BBox
}

var stateCode = regexp.MustCompile(`^(US-)?([A-Z]{2})$`)

// StateArea builds an Area from a two-letter postal code or a full ISO
// 3166-2 code.
func StateArea(code string) (Area, error) {
	m := stateCode.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(code)))
	if m == nil {
		return Area{}, eris.Errorf("overpass: invalid state code %q", code)
	}
	return Area{State: "US-" + m[2]}, nil
}

// ParseBBox parses "south,west,north,east".
func ParseBBox(s string) (Area, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Area{}, eris.Errorf("overpass: bbox %q needs south,west,north,east", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Area{}, eris.Wrapf(err, "overpass: bbox %q", s)
		}
		v[i] = f
	}
	b := BBox{South: v[0], West: v[1], North: v[2], East: v[3]}
	if b.South < -90 || b.North > 90 || b.South >= b.North || b.West < -180 || b.East > 180 || b.West >= b.East {
		return Area{}, eris.Errorf("overpass: bbox %q out of range", s)
	}
	return Area{BBox: &b}, nil
}

// Query renders the Overpass QL for kind within area. Ways and relations are
// returned with their center so every element carries a coordinate.
func Query(kind Kind, area Area, timeout int) (string, error) {
	sel, ok := selectors[kind]
	if !ok {
		return "", eris.Errorf("overpass: unknown kind %q", kind)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];", timeout)

	var filter string
	switch {
	case area.State != "" && area.BBox == nil:
		fmt.Fprintf(&b, `area["ISO3166-2"=%q]["admin_level"="4"]->.searchArea;`, area.State)
		filter = "(area.searchArea)"
	case area.BBox != nil && area.State == "":
		bb := area.BBox
		filter = fmt.Sprintf("(%s,%s,%s,%s)", ff(bb.South), ff(bb.West), ff(bb.North), ff(bb.East))
	default:
		return "", eris.New("overpass: area needs exactly one of state or bbox")
	}

	b.WriteString("(")
	for _, s := range sel {
		b.WriteString(s)
		b.WriteString(filter)
		b.WriteString(";")
	}
	b.WriteString(");out center;")
	return b.String(), nil
}

// URL returns a GET URL that runs query against the endpoint.
func URL(endpoint, query string) (string, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", eris.Wrap(err, "overpass: parse endpoint")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", eris.Errorf("overpass: endpoint %q is not http(s)", endpoint)
	}
	q := u.Query()
	q.Set("data", query)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
