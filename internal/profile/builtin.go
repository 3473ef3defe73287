package profile

import (
	"github.com/sells-group/truckpark-cli/internal/model"
	"github.com/sells-group/truckpark-cli/internal/raw"
)

// Built-in source identifiers.
const (
	SourceOSM        = "osm"
	SourceOverture   = "overture"
	SourceTPIMS      = "tpims"
	SourcePOIFactory = "poifactory"
	Source511        = "511"
)

// osmTag returns the key paths for an OSM tag in both Overpass element form
// (tags.<key>) and GeoJSON feature form (properties.<key>).
func osmTag(keys ...string) []raw.Path {
	out := make([]raw.Path, 0, 2*len(keys))
	for _, k := range keys {
		out = append(out, raw.Path{"tags", k})
	}
	for _, k := range keys {
		out = append(out, raw.Path{"properties", k})
	}
	return out
}

// OSM maps Overpass API JSON elements and Overpass Turbo GeoJSON features.
func OSM() *Profile {
	return &Profile{
		Source:      SourceOSM,
		Description: "OpenStreetMap via Overpass API (JSON elements or GeoJSON export)",
		ID:          []raw.Path{{"id"}, {"properties", "@id"}, {"properties", "id"}},
		IDNamespace: raw.Paths("type"),
		// Nodes carry lat/lon, ways and relations a center; GeoJSON features
		// carry the ingest-computed geometry point.
		Latitude:     raw.Paths("lat", "center.lat", "geometry.lat"),
		Longitude:    raw.Paths("lon", "center.lon", "geometry.lon"),
		Name:         raw.Paths("tags.name", "tags.ref", "properties.name", "properties.ref"),
		FacilityType: osmTag("highway", "amenity"),
		Highway:      osmTag("ref"),
		Operator:     osmTag("operator", "brand"),
		State:        osmTag("addr:state"),
		City:         osmTag("addr:city"),
		TruckSpaces:  osmTag("capacity:hgv"),
		CameraURLs:   osmTag("webcam", "contact:webcam"),
		Restrooms:    BoolField{Paths: osmTag("toilets")},
		Fuel:         BoolField{Paths: osmTag("fuel:HGV_diesel", "fuel:diesel")},
		Showers:      BoolField{Paths: osmTag("shower", "showers")},
		Wifi: BoolField{
			Paths:  osmTag("internet_access"),
			Tokens: map[string]bool{"wlan": true, "wifi": true},
		},
		Open24: BoolField{
			Paths:  osmTag("opening_hours"),
			Tokens: map[string]bool{"24/7": true},
		},
		Types: map[string]model.FacilityType{
			"rest_area":     model.TypeRestArea,
			"services":      model.TypeServiceArea,
			"truck_stop":    model.TypeTruckStop,
			"weighbridge":   model.TypeWeighStation,
			"weigh_station": model.TypeWeighStation,
			"parking":       model.TypeParking,
			"parking_space": model.TypeParking,
		},
	}
}

// Overture maps Overture Maps Places extracts: the flattened CSV written by
// the DuckDB extractor, its GeoJSON export, or raw place JSON.
func Overture() *Profile {
	return &Profile{
		Source:       SourceOverture,
		Description:  "Overture Maps Places theme (GERS ids)",
		ID:           raw.Paths("id", "properties.id"),
		Name:         raw.Paths("name", "names.primary", "properties.name", "properties.names.primary"),
		Latitude:     raw.Paths("latitude", "geometry.lat"),
		Longitude:    raw.Paths("longitude", "geometry.lon"),
		FacilityType: raw.Paths("category", "categories.primary", "properties.category", "properties.categories.primary"),
		State:        raw.Paths("state", "addresses.0.region", "properties.state"),
		City:         raw.Paths("city", "addresses.0.locality", "properties.city"),
		Types: map[string]model.FacilityType{
			"rest_areas":        model.TypeRestArea,
			"rest_area":         model.TypeRestArea,
			"rest_stop":         model.TypeRestArea,
			"truck_stop":        model.TypeTruckStop,
			"truck_gas_station": model.TypeTruckStop,
			"weigh_station":     model.TypeWeighStation,
			"visitor_center":    model.TypeWelcomeCenter,
			"parking":           model.TypeParking,
		},
	}
}

// TPIMS maps Truck Parking Information Management System static site feeds.
func TPIMS() *Profile {
	amenity := func(tokens ...string) BoolField {
		var lists []ListMatch
		for _, t := range tokens {
			lists = append(lists, ListMatch{Path: raw.Path{"amenities"}, Token: t})
		}
		return BoolField{Lists: lists}
	}
	return &Profile{
		Source:       SourceTPIMS,
		Description:  "TPIMS static site feed (siteId keyed)",
		ID:           raw.Paths("siteId", "siteID", "site_id"),
		Name:         raw.Paths("name", "siteName", "location.name"),
		Latitude:     raw.Paths("location.latitude", "latitude", "lat"),
		Longitude:    raw.Paths("location.longitude", "longitude", "lon"),
		FacilityType: raw.Paths("type", "siteType", "ownership"),
		Highway:      raw.Paths("location.relevantHighway", "relevantHighway"),
		Operator:     raw.Paths("operator", "owner"),
		State:        raw.Paths("location.state", "state"),
		City:         raw.Paths("location.city", "city"),
		TruckSpaces:  raw.Paths("capacity", "specificCapacity"),
		CameraURLs:   raw.Paths("images.*.url", "images"),
		Restrooms:    amenity("restroom", "restrooms"),
		Fuel:         amenity("fuel", "diesel"),
		Showers:      amenity("shower", "showers"),
		Wifi:         amenity("wifi", "wi-fi"),
		Types: map[string]model.FacilityType{
			"pu":             model.TypeRestArea,
			"pr":             model.TypeTruckStop,
			"rest area":      model.TypeRestArea,
			"truck stop":     model.TypeTruckStop,
			"weigh station":  model.TypeWeighStation,
			"welcome center": model.TypeWelcomeCenter,
		},
	}
}

// POIFactory maps POI Factory CSV downloads parsed to records upstream.
func POIFactory() *Profile {
	return &Profile{
		Source:       SourcePOIFactory,
		Description:  "POI Factory CSV (row id keyed)",
		ID:           raw.Paths("id"),
		FileIDs:      raw.Paths("row_id"),
		Name:         raw.Paths("name"),
		Latitude:     raw.Paths("latitude", "lat"),
		Longitude:    raw.Paths("longitude", "lon"),
		FacilityType: raw.Paths("category", "type"),
		Types: map[string]model.FacilityType{
			"truck stop":     model.TypeTruckStop,
			"truck stops":    model.TypeTruckStop,
			"truck_stop":     model.TypeTruckStop,
			"rest area":      model.TypeRestArea,
			"rest areas":     model.TypeRestArea,
			"weigh station":  model.TypeWeighStation,
			"weigh stations": model.TypeWeighStation,
			"welcome center": model.TypeWelcomeCenter,
			"truck parking":  model.TypeParking,
		},
	}
}

// Generic511 maps the common shape of state 511 traveler-information feeds.
// State-specific variants belong in a profiles file.
func Generic511() *Profile {
	return &Profile{
		Source:       Source511,
		Description:  "Generic state 511 JSON feed",
		ID:           raw.Paths("id", "ID", "Id", "siteId"),
		Name:         raw.Paths("name", "Name", "title"),
		Latitude:     raw.Paths("latitude", "Latitude", "lat", "location.latitude", "geometry.lat"),
		Longitude:    raw.Paths("longitude", "Longitude", "lon", "lng", "location.longitude", "geometry.lon"),
		FacilityType: raw.Paths("type", "Type", "category", "facilityType"),
		Highway:      raw.Paths("roadway", "RoadwayName", "highway", "route"),
		State:        raw.Paths("state", "State"),
		City:         raw.Paths("city", "City"),
		TruckSpaces:  raw.Paths("truckSpaces", "truck_spaces", "capacity"),
		CameraURLs:   raw.Paths("cameras.*.url", "cameras.*.Url", "cameraUrls"),
		Restrooms:    BoolField{Paths: raw.Paths("restrooms", "hasRestrooms")},
		Open24:       BoolField{Paths: raw.Paths("open24Hours", "is24Hours")},
		Types: map[string]model.FacilityType{
			"rest area":      model.TypeRestArea,
			"rest_area":      model.TypeRestArea,
			"restarea":       model.TypeRestArea,
			"service area":   model.TypeServiceArea,
			"service plaza":  model.TypeServiceArea,
			"travel plaza":   model.TypeServiceArea,
			"truck stop":     model.TypeTruckStop,
			"weigh station":  model.TypeWeighStation,
			"weigh_station":  model.TypeWeighStation,
			"scale":          model.TypeWeighStation,
			"welcome center": model.TypeWelcomeCenter,
			"welcome_center": model.TypeWelcomeCenter,
			"truck parking":  model.TypeParking,
			"parking":        model.TypeParking,
		},
	}
}

// Builtins returns fresh copies of every built-in profile in a fixed order.
func Builtins() []*Profile {
	return []*Profile{OSM(), Overture(), TPIMS(), POIFactory(), Generic511()}
}
