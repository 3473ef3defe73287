package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/truckpark-cli/internal/fetcher"
	"github.com/sells-group/truckpark-cli/internal/overpass"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download source data",
	Long:  "Downloads source files for normalize. Unchanged downloads are skipped using an .etag file next to the output.",
}

// -- fetch overpass --

var fetchOverpassCmd = &cobra.Command{
	Use:   "overpass",
	Short: "Query the Overpass API for one kind of OSM facility",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		kindName, _ := f.GetString("kind")
		state, _ := f.GetString("state")
		bbox, _ := f.GetString("bbox")
		out, _ := f.GetString("out")
		endpoint, _ := f.GetString("endpoint")
		timeout, _ := f.GetInt("timeout")

		kind, err := overpass.ParseKind(kindName)
		if err != nil {
			return err
		}
		area, err := parseArea(state, bbox)
		if err != nil {
			return err
		}
		query, err := overpass.Query(kind, area, timeout)
		if err != nil {
			return err
		}
		if endpoint == "" {
			endpoint = cfg.Fetch.OverpassURL
		}
		rawURL, err := overpass.URL(endpoint, query)
		if err != nil {
			return err
		}
		if out == "" {
			out = overpassFileName(kind, area)
		}

		zap.L().Debug("overpass query", zap.String("query", query))
		return syncTo(cmd.Context(), cmd, newFetcher(), rawURL, out)
	},
}

// -- fetch url --

var fetchURLCmd = &cobra.Command{
	Use:   "url",
	Short: "Download a feed (TPIMS, 511, POI Factory, Overture extract) to a file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rawURL, _ := cmd.Flags().GetString("url")
		out, _ := cmd.Flags().GetString("out")
		return syncTo(cmd.Context(), cmd, newFetcher(), rawURL, out)
	},
}

func parseArea(state, bbox string) (overpass.Area, error) {
	switch {
	case state != "" && bbox != "":
		return overpass.Area{}, eris.New("use either --state or --bbox, not both")
	case state != "":
		return overpass.StateArea(state)
	case bbox != "":
		return overpass.ParseBBox(bbox)
	default:
		return overpass.Area{}, eris.New("one of --state or --bbox is required")
	}
}

// overpassFileName names output so normalize infers the osm profile.
func overpassFileName(kind overpass.Kind, area overpass.Area) string {
	where := "bbox"
	if area.State != "" {
		where = strings.ToLower(strings.TrimPrefix(area.State, "US-"))
	}
	return fmt.Sprintf("osm_%s_%s.json", where, kind)
}

func newFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
	})
}

func syncTo(ctx context.Context, cmd *cobra.Command, f fetcher.Fetcher, rawURL, out string) error {
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "create %s", dir)
		}
	}
	changed, n, err := fetcher.SyncFile(ctx, f, rawURL, out)
	if err != nil {
		return err
	}
	if !changed {
		zap.L().Info("fetch: unchanged", zap.String("path", out))
		fmt.Fprintf(cmd.OutOrStdout(), "%s (unchanged)\n", out)
		return nil
	}
	zap.L().Info("fetch: wrote file", zap.String("path", out), zap.Int64("bytes", n))
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func init() {
	kinds := make([]string, 0, len(overpass.Kinds()))
	for _, k := range overpass.Kinds() {
		kinds = append(kinds, string(k))
	}
	fetchOverpassCmd.Flags().String("kind", string(overpass.KindRestAreas), "facility kind: "+strings.Join(kinds, ", "))
	fetchOverpassCmd.Flags().String("state", "", "US state postal code (KS) or ISO 3166-2 code (US-KS)")
	fetchOverpassCmd.Flags().String("bbox", "", "bounding box south,west,north,east")
	fetchOverpassCmd.Flags().String("out", "", "output file (default osm_<state>_<kind>.json)")
	fetchOverpassCmd.Flags().String("endpoint", "", "Overpass interpreter URL (default from config fetch.overpass_url)")
	fetchOverpassCmd.Flags().Int("timeout", overpass.DefaultTimeout, "Overpass server-side timeout in seconds")

	fetchURLCmd.Flags().String("url", "", "URL to download")
	fetchURLCmd.Flags().String("out", "", "output file")
	_ = fetchURLCmd.MarkFlagRequired("url")
	_ = fetchURLCmd.MarkFlagRequired("out")

	fetchCmd.AddCommand(fetchOverpassCmd)
	fetchCmd.AddCommand(fetchURLCmd)
	rootCmd.AddCommand(fetchCmd)
}
