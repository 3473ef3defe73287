//go:build !integration

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/truckpark-cli/internal/model"
	"github.com/sells-group/truckpark-cli/internal/profile"
)

func TestFormatFacilities(t *testing.T) {
	spaces := 24
	facilities := []model.Facility{
		{
			DataSource:   "tpims",
			SourceID:     "KS-1",
			Name:         "Goodland Rest Area Westbound Interstate 70 Mile 7",
			Latitude:     39.35,
			Longitude:    -101.71,
			FacilityType: model.TypeRestArea,
			State:        "KS",
			TruckSpaces:  &spaces,
			PossibleDuplicateOf: []model.Ref{
				{DataSource: "osm", SourceID: "123"},
				{DataSource: "overture", SourceID: "08f2"},
			},
		},
		{
			DataSource:   "osm",
			SourceID:     "456",
			Latitude:     38.8,
			Longitude:    -97.6,
			FacilityType: model.TypeWeighStation,
		},
	}

	var buf bytes.Buffer
	formatFacilities(&buf, facilities)

	output := buf.String()
	assert.Contains(t, output, "REF")
	assert.Contains(t, output, "DUP_OF")
	assert.Contains(t, output, "tpims:KS-1")
	assert.Contains(t, output, "Goodland Rest Area Westboun...")
	assert.NotContains(t, output, "Mile 7")
	assert.Contains(t, output, "39.35000")
	assert.Contains(t, output, "osm:123 (+1)")
	assert.Contains(t, output, "weigh_station")
}

func TestFormatProfiles(t *testing.T) {
	var buf bytes.Buffer
	formatProfiles(&buf, []*profile.Profile{profile.TPIMS(), profile.POIFactory()})

	output := buf.String()
	assert.Contains(t, output, "tpims")
	assert.Contains(t, output, "TPIMS static site feed")
	assert.Contains(t, output, "siteId, siteID, site_id")
	assert.Contains(t, output, "location.latitude, latitude, lat")
	assert.Contains(t, output, "poifactory")
	assert.Regexp(t, `file_id\s+row_id`, output)
}

func TestOpenStore_NoTarget(t *testing.T) {
	withConfig(t, nil)
	_, err := openStore(t.Context(), "", false)
	assert.Error(t, err)
}
