package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/truckpark-cli/internal/config"
	"github.com/sells-group/truckpark-cli/internal/profile"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "truckpark",
	Short: "Truck parking facility normalizer",
	Long:  "Fetches truck parking, rest area and weigh station data from OSM, Overture, TPIMS, POI Factory and state 511 feeds, normalizes it into one deduplicated facility table, and exports it for analysts and GIS tools.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// loadRegistry returns the built-in profiles plus any from path (falling
// back to normalize.profiles_file).
func loadRegistry(path string) (*profile.Registry, error) {
	reg := profile.DefaultRegistry()
	if path == "" && cfg != nil {
		path = cfg.Normalize.ProfilesFile
	}
	if path == "" {
		return reg, nil
	}
	if err := reg.LoadFile(path); err != nil {
		return nil, err
	}
	zap.L().Debug("loaded profiles file", zap.String("path", path), zap.Strings("profiles", reg.Names()))
	return reg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
