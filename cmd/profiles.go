package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/truckpark-cli/internal/profile"
	"github.com/sells-group/truckpark-cli/internal/server"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List source profiles and their key paths",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("profiles")
		reg, err := loadRegistry(path)
		if err != nil {
			return err
		}
		formatProfiles(cmd.OutOrStdout(), reg.All())
		return nil
	},
}

var profileFields = []string{"id", "id_namespace", "file_id", "name", "latitude", "longitude", "facility_type", "state", "truck_spaces"}

// formatProfiles writes one block per profile with its main key paths.
func formatProfiles(out io.Writer, profiles []*profile.Profile) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, p := range profiles {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", p.Source, p.Description)
		info := server.Describe(p)
		for _, field := range profileFields {
			if paths, ok := info.Paths[field]; ok {
				_, _ = fmt.Fprintf(w, "  %s\t%s\n", field, strings.Join(paths, ", "))
			}
		}
	}
	_ = w.Flush()
}

func init() {
	profilesCmd.Flags().String("profiles", "", "YAML file with extra source profiles")
	rootCmd.AddCommand(profilesCmd)
}
