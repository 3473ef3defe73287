package overpass

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery(t *testing.T) {
	ks, err := StateArea("ks")
	require.NoError(t, err)
	box, err := ParseBBox("38.5,-95.5,39.5,-94")
	require.NoError(t, err)

	tests := []struct {
		name    string
		kind    Kind
		area    Area
		timeout int
		want    string
	}{
		{
			name:    "rest areas in a state",
			kind:    KindRestAreas,
			area:    ks,
			timeout: 120,
			want:    `[out:json][timeout:120];area["ISO3166-2"="US-KS"]["admin_level"="4"]->.searchArea;(nwr["highway"="rest_area"](area.searchArea););out center;`,
		},
		{
			name: "weigh stations in a bbox",
			kind: KindWeighStations,
			area: box,
			want: `[out:json][timeout:300];(nwr["amenity"="weighbridge"](38.5,-95.5,39.5,-94);nwr["highway"="weigh_station"](38.5,-95.5,39.5,-94););out center;`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Query(tt.kind, tt.area, tt.timeout)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuery_TruckParkingSelectors(t *testing.T) {
	area, err := StateArea("US-TX")
	require.NoError(t, err)
	q, err := Query(KindTruckParking, area, 0)
	require.NoError(t, err)
	assert.Contains(t, q, `nwr["amenity"="parking"]["hgv"~"^(yes|designated|only)$"](area.searchArea);`)
	assert.Contains(t, q, `nwr["amenity"="truck_stop"](area.searchArea);`)
}

func TestQuery_Errors(t *testing.T) {
	_, err := Query("campgrounds", Area{State: "US-KS"}, 0)
	assert.Error(t, err)

	_, err = Query(KindServices, Area{}, 0)
	assert.Error(t, err)

	_, err = Query(KindServices, Area{State: "US-KS", BBox: &BBox{South: 1, West: 1, North: 2, East: 2}}, 0)
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Rest_Areas ")
	require.NoError(t, err)
	assert.Equal(t, KindRestAreas, k)

	_, err = ParseKind("toll_booths")
	assert.Error(t, err)

	for _, k := range Kinds() {
		_, err := ParseKind(string(k))
		assert.NoError(t, err)
	}
}

func TestStateArea(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "KS", want: "US-KS"},
		{in: "us-ca", want: "US-CA"},
		{in: "Kansas", wantErr: true},
		{in: "CA-ON", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			a, err := StateArea(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.State)
		})
	}
}

func TestParseBBox(t *testing.T) {
	a, err := ParseBBox(" 37 , -102.05 , 40 , -94.6 ")
	require.NoError(t, err)
	require.NotNil(t, a.BBox)
	assert.Equal(t, BBox{South: 37, West: -102.05, North: 40, East: -94.6}, *a.BBox)

	for _, bad := range []string{"1,2,3", "a,b,c,d", "40,-94,37,-102", "-91,0,0,1"} {
		_, err := ParseBBox(bad)
		assert.Error(t, err, bad)
	}
}

func TestURL(t *testing.T) {
	q := `[out:json];node["highway"="rest_area"];out;`
	got, err := URL("", q)
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "overpass-api.de", u.Host)
	assert.Equal(t, q, u.Query().Get("data"))

	_, err = URL("ftp://example.com/", q)
	assert.Error(t, err)
}
