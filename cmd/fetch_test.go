package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/truckpark-cli/internal/config"
	"github.com/sells-group/truckpark-cli/internal/overpass"
)

func TestParseArea(t *testing.T) {
	tests := []struct {
		name    string
		state   string
		bbox    string
		want    string
		wantErr string
	}{
		{name: "state", state: "ks", want: "US-KS"},
		{name: "bbox", bbox: "37,-102,40,-94.6"},
		{name: "both", state: "KS", bbox: "37,-102,40,-94.6", wantErr: "not both"},
		{name: "neither", wantErr: "is required"},
		{name: "bad state", state: "Kansas", wantErr: "invalid state code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			area, err := parseArea(tt.state, tt.bbox)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, area.State)
			if tt.bbox != "" {
				assert.NotNil(t, area.BBox)
			}
		})
	}
}

func TestOverpassFileName(t *testing.T) {
	assert.Equal(t, "osm_ks_rest_areas.json", overpassFileName(overpass.KindRestAreas, overpass.Area{State: "US-KS"}))
	assert.Equal(t, "osm_bbox_weigh_stations.json", overpassFileName(overpass.KindWeighStations, overpass.Area{BBox: &overpass.BBox{}}))
}

func TestSyncTo(t *testing.T) {
	withConfig(t, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "truckpark-test", r.Header.Get("User-Agent"))
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(`{"elements":[]}`))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "feeds", "osm_ks.json")
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, syncTo(context.Background(), cmd, newFetcher(), srv.URL, out))
	assert.Equal(t, out+"\n", buf.String())
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, `{"elements":[]}`, string(data))

	buf.Reset()
	require.NoError(t, syncTo(context.Background(), cmd, newFetcher(), srv.URL, out))
	assert.Equal(t, out+" (unchanged)\n", buf.String())
}

func TestFetchOverpass_Command(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("data")
		_, _ = w.Write([]byte(`{"elements":[{"type":"node","id":1,"lat":39.1,"lon":-96.6}]}`))
	}))
	defer srv.Close()

	withConfig(t, func(c *config.Config) { c.Fetch.OverpassURL = srv.URL + "/api/interpreter" })
	out := filepath.Join(t.TempDir(), "osm.json")

	cmd := &cobra.Command{RunE: fetchOverpassCmd.RunE}
	cmd.Flags().AddFlagSet(fetchOverpassCmd.Flags())
	require.NoError(t, cmd.Flags().Set("state", "KS"))
	require.NoError(t, cmd.Flags().Set("kind", "weigh_stations"))
	require.NoError(t, cmd.Flags().Set("out", out))
	cmd.SetOut(&bytes.Buffer{})
	t.Cleanup(func() {
		// Reset the shared flag values.
		_ = fetchOverpassCmd.Flags().Set("state", "")
		_ = fetchOverpassCmd.Flags().Set("kind", string(overpass.KindRestAreas))
		_ = fetchOverpassCmd.Flags().Set("out", "")
	})

	require.NoError(t, cmd.RunE(cmd, nil))
	assert.Contains(t, gotQuery, `area["ISO3166-2"="US-KS"]`)
	assert.Contains(t, gotQuery, `nwr["amenity"="weighbridge"]`)
	_, err := os.Stat(out)
	assert.NoError(t, err)
}
