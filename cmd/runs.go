package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/truckpark-cli/internal/model"
	"github.com/sells-group/truckpark-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored normalization runs",
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the sources and stats of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dbPath, _ := cmd.Flags().GetString("db")
		usePG, _ := cmd.Flags().GetBool("pg")
		st, err := openStore(ctx, dbPath, usePG)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- facilities --

var facilitiesCmd = &cobra.Command{
	Use:   "facilities",
	Short: "List stored facilities",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dbPath, _ := cmd.Flags().GetString("db")
		usePG, _ := cmd.Flags().GetBool("pg")
		source, _ := cmd.Flags().GetString("source")
		state, _ := cmd.Flags().GetString("state")
		typ, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.FacilityFilter{DataSource: source, State: state, Limit: limit}
		if typ != "" {
			ft, err := model.ParseFacilityType(typ)
			if err != nil {
				return err
			}
			filter.Type = ft
		}

		st, err := openStore(ctx, dbPath, usePG)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		facilities, err := st.ListFacilities(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "facilities")
		}
		if len(facilities) == 0 {
			fmt.Fprintln(os.Stderr, "No facilities found.")
			return nil
		}

		formatFacilities(cmd.OutOrStdout(), facilities)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{runsShowCmd, facilitiesCmd} {
		c.Flags().String("db", "", "SQLite file written by normalize --formats sqlite")
		c.Flags().Bool("pg", false, "read the configured Postgres table instead")
	}

	facilitiesCmd.Flags().String("source", "", "filter by data source (osm, tpims, ...)")
	facilitiesCmd.Flags().String("state", "", "filter by state code")
	facilitiesCmd.Flags().String("type", "", "filter by facility type (rest_area, truck_stop, ...)")
	facilitiesCmd.Flags().Int("limit", 50, "max number of facilities to display")

	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(facilitiesCmd)
}

// formatFacilities writes a tabular list of facilities to w.
func formatFacilities(out io.Writer, facilities []model.Facility) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "REF\tNAME\tTYPE\tSTATE\tLAT\tLON\tSPACES\tDUP_OF")
	_, _ = fmt.Fprintln(w, "---\t----\t----\t-----\t---\t---\t------\t------")

	for i := range facilities {
		f := &facilities[i]
		name := f.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		spaces := ""
		if f.TruckSpaces != nil {
			spaces = fmt.Sprint(*f.TruckSpaces)
		}
		dups := ""
		if n := len(f.PossibleDuplicateOf); n > 0 {
			dups = f.PossibleDuplicateOf[0].String()
			if n > 1 {
				dups += fmt.Sprintf(" (+%d)", n-1)
			}
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.5f\t%.5f\t%s\t%s\n",
			f.Ref(),
			name,
			f.FacilityType,
			f.State,
			f.Latitude,
			f.Longitude,
			spaces,
			dups,
		)
	}
	_ = w.Flush()
}
