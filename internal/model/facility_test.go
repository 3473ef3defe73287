package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pilot Travel Center", "pilot travel center"},
		{"  Love's   Travel Stop #312 ", "loves travel stop 312"},
		{"TA / Petro", "ta petro"},
		{"Café Rest-Area", "cafe rest area"},
		{"I-40 W.B. Rest Area", "i 40 w b rest area"},
		{"", ""},
		{"  --  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestNewDedupKey(t *testing.T) {
	k := NewDedupKey(36.00049, -86.70051, "Pilot Travel Center")
	assert.Equal(t, int64(36000), k.Lat)
	assert.Equal(t, int64(-86701), k.Lon)
	assert.Equal(t, "36.000,-86.701,pilot travel center", k.String())
	assert.False(t, k.Empty())

	same := NewDedupKey(36.0001, -86.7008, "PILOT travel-center")
	assert.Equal(t, "pilot travel center", same.Name)
	assert.Equal(t, k.Lat, same.Lat)
}

func TestDedupKey_EmptyName(t *testing.T) {
	k := NewDedupKey(36.0, -86.7, "")
	assert.True(t, k.Empty())
	assert.Equal(t, "", k.String())

	out, err := json.Marshal(k)
	require.NoError(t, err)
	assert.Equal(t, `""`, string(out))
}

func TestDedupKey_NegativeZero(t *testing.T) {
	k := NewDedupKey(-0.0001, 0.0001, "x")
	assert.Equal(t, "0.000,0.000,x", k.String())
}

func TestDedupKey_TextRoundTrip(t *testing.T) {
	k := NewDedupKey(39.3501, -101.7101, "Goodland Rest Area")
	out, err := json.Marshal(k)
	require.NoError(t, err)

	var back DedupKey
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, k, back)

	require.NoError(t, json.Unmarshal([]byte(`""`), &back))
	assert.True(t, back.Empty())

	for _, bad := range []string{`"39.350,-101.710"`, `"x,-101.710,name"`, `"39.350,y,name"`} {
		assert.Error(t, json.Unmarshal([]byte(bad), &back), bad)
	}
}

func TestParseFacilityType(t *testing.T) {
	ft, err := ParseFacilityType(" Rest_Area ")
	require.NoError(t, err)
	assert.Equal(t, TypeRestArea, ft)

	_, err = ParseFacilityType("marina")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown facility type")
}

func TestFacility_JSONOmitsAbsentFields(t *testing.T) {
	f := Facility{
		DataSource:   "osm",
		SourceID:     "1",
		Latitude:     36,
		Longitude:    -86.7,
		FacilityType: TypeUnknown,
		CameraURLs:   []string{},
	}
	out, err := json.Marshal(f)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.NotContains(t, m, "has_restrooms")
	assert.NotContains(t, m, "truck_spaces")
	assert.Equal(t, []any{}, m["camera_urls"])
	assert.Equal(t, "", m["dedup_key"])
}

func TestRef_String(t *testing.T) {
	f := Facility{DataSource: "tpims", SourceID: "MN00094IS0001"}
	assert.Equal(t, "tpims:MN00094IS0001", f.Ref().String())
}
