// Package model defines the canonical truck-parking facility record and the
// reject report produced by normalization.
package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// FacilityType is the canonical facility classification.
type FacilityType string

// Canonical facility types.
const (
	TypeRestArea      FacilityType = "rest_area"
	TypeServiceArea   FacilityType = "service_area"
	TypeTruckStop     FacilityType = "truck_stop"
	TypeWeighStation  FacilityType = "weigh_station"
	TypeWelcomeCenter FacilityType = "welcome_center"
	TypeParking       FacilityType = "parking"
	TypeUnknown       FacilityType = "unknown"
)

// FacilityTypes lists every canonical type in declaration order.
var FacilityTypes = []FacilityType{
	TypeRestArea,
	TypeServiceArea,
	TypeTruckStop,
	TypeWeighStation,
	TypeWelcomeCenter,
	TypeParking,
	TypeUnknown,
}

// Valid reports whether t is one of the canonical types.
func (t FacilityType) Valid() bool {
	for _, ft := range FacilityTypes {
		if t == ft {
			return true
		}
	}
	return false
}

// ParseFacilityType converts a string into a FacilityType.
func ParseFacilityType(s string) (FacilityType, error) {
	t := FacilityType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", eris.Errorf("unknown facility type: %q", s)
	}
	return t, nil
}

// Ref addresses one facility by its source identity.
type Ref struct {
	DataSource string `json:"data_source"`
	SourceID   string `json:"source_id"`
}

// String returns "source:id".
func (r Ref) String() string { return r.DataSource + ":" + r.SourceID }

// Facility is the normalized, schema-uniform facility record. Pointer fields
// are nil when the source said nothing about them.
type Facility struct {
	DataSource   string       `json:"data_source"`
	SourceID     string       `json:"source_id"`
	SourceFile   string       `json:"source_file,omitempty"`
	Name         string       `json:"name,omitempty"`
	Latitude     float64      `json:"latitude"`
	Longitude    float64      `json:"longitude"`
	Highway      string       `json:"highway,omitempty"`
	FacilityType FacilityType `json:"facility_type"`
	Operator     string       `json:"operator,omitempty"`
	State        string       `json:"state,omitempty"`
	City         string       `json:"city,omitempty"`
	TruckSpaces  *int         `json:"truck_spaces,omitempty"`
	HasRestrooms *bool        `json:"has_restrooms,omitempty"`
	HasFuel      *bool        `json:"has_fuel,omitempty"`
	HasShowers   *bool        `json:"has_showers,omitempty"`
	HasWifi      *bool        `json:"has_wifi,omitempty"`
	Is24Hours    *bool        `json:"is_24_hours,omitempty"`
	CameraURLs   []string     `json:"camera_urls"`
	DedupKey     DedupKey     `json:"dedup_key"`

	PossibleDuplicateOf []Ref `json:"possible_duplicate_of,omitempty"`
}

// Ref returns the facility's source identity.
func (f *Facility) Ref() Ref {
	return Ref{DataSource: f.DataSource, SourceID: f.SourceID}
}

// Columns is the flat column set written by tabular exporters, in order.
var Columns = []string{
	"data_source",
	"source_id",
	"source_file",
	"name",
	"latitude",
	"longitude",
	"highway",
	"facility_type",
	"operator",
	"state",
	"city",
	"truck_spaces",
	"has_restrooms",
	"has_fuel",
	"has_showers",
	"has_wifi",
	"is_24_hours",
	"camera_urls",
	"dedup_key",
	"possible_duplicate_of",
}
