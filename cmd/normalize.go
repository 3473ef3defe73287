package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/truckpark-cli/internal/export"
	"github.com/sells-group/truckpark-cli/internal/ingest"
	"github.com/sells-group/truckpark-cli/internal/normalize"
	"github.com/sells-group/truckpark-cli/internal/profile"
	"github.com/sells-group/truckpark-cli/internal/store"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [profile=]path ...",
	Short: "Normalize source files into one facility table",
	Long: `Reads each input with its source profile, normalizes every record into the
canonical facility schema, flags cross-source duplicates and writes the
configured export formats plus a rejects report.

The profile is taken from a "profile=" prefix or inferred from the file name
(osm_ks.json -> osm, tpims_mn_static.json -> tpims).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := normalizeOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		out, err := runNormalize(cmd.Context(), args, opts)
		if err != nil {
			return err
		}

		logStats(out.Run.ID, out.Result.Stats)
		for _, p := range out.Paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

type normalizeOptions struct {
	Dir          string
	Basename     string
	Formats      []export.Format
	Workers      int
	ProfilesFile string
	Ingest       ingest.Options
	Postgres     bool
}

type normalizeOutcome struct {
	Run    store.Run
	Result *normalize.Result
	Paths  []string
}

// input is one command-line source.
type input struct {
	Profile *profile.Profile
	Path    string
}

func normalizeOptionsFromFlags(cmd *cobra.Command) (normalizeOptions, error) {
	f := cmd.Flags()
	dir, _ := f.GetString("out")
	basename, _ := f.GetString("basename")
	formats, _ := f.GetString("formats")
	workers, _ := f.GetInt("workers")
	profilesFile, _ := f.GetString("profiles")
	format, _ := f.GetString("format")
	columns, _ := f.GetStringSlice("columns")
	delim, _ := f.GetString("delimiter")
	sheet, _ := f.GetString("sheet")
	skipRows, _ := f.GetInt("skip-rows")
	xmlPath, _ := f.GetString("xml-path")
	usePG, _ := f.GetBool("pg")

	if dir == "" {
		dir = cfg.Export.Dir
	}
	if basename == "" {
		basename = cfg.Export.Basename
	}
	if formats == "" {
		formats = cfg.Export.Formats
	}
	if workers == 0 {
		workers = cfg.Normalize.Workers
	}

	opts := normalizeOptions{
		Dir:          dir,
		Basename:     basename,
		Workers:      workers,
		ProfilesFile: profilesFile,
		Postgres:     usePG,
		Ingest: ingest.Options{
			Columns:  columns,
			Sheet:    sheet,
			SkipRows: skipRows,
			XMLPath:  xmlPath,
		},
	}

	var err error
	if opts.Formats, err = export.ParseFormats(formats); err != nil {
		return opts, err
	}
	if opts.Ingest.Format, err = ingest.ParseFormat(format); err != nil {
		return opts, err
	}
	if delim != "" {
		r, size := utf8.DecodeRuneInString(delim)
		if size != len(delim) {
			return opts, eris.Errorf("delimiter must be a single character, got %q", delim)
		}
		opts.Ingest.Delimiter = r
	}
	return opts, nil
}

// parseInputs resolves "profile=path" arguments, inferring the profile from
// the file name when no prefix is given.
func parseInputs(reg *profile.Registry, args []string) ([]input, error) {
	out := make([]input, 0, len(args))
	for _, arg := range args {
		if name, path, ok := strings.Cut(arg, "="); ok && !strings.ContainsAny(name, `/\.`) {
			p, err := reg.Get(name)
			if err != nil {
				return nil, eris.Wrapf(err, "input %q", arg)
			}
			out = append(out, input{Profile: p, Path: path})
			continue
		}
		p, ok := reg.Match(arg)
		if !ok {
			return nil, eris.Wrapf(profile.ErrUnknownSource,
				"input %q: cannot infer profile from file name; use one of %s as profile=path",
				arg, strings.Join(reg.Names(), ", "))
		}
		out = append(out, input{Profile: p, Path: arg})
	}
	return out, nil
}

func runNormalize(ctx context.Context, args []string, opts normalizeOptions) (*normalizeOutcome, error) {
	reg, err := loadRegistry(opts.ProfilesFile)
	if err != nil {
		return nil, err
	}
	inputs, err := parseInputs(reg, args)
	if err != nil {
		return nil, err
	}

	sources := make([]ingest.Source, len(inputs))
	labels := make([]string, len(inputs))
	for i, in := range inputs {
		sources[i] = ingest.Source{Path: in.Path, Options: opts.Ingest}
		labels[i] = filepath.Base(in.Path)
	}
	records, err := ingest.LoadAll(ctx, sources, opts.Workers)
	if err != nil {
		return nil, err
	}

	batches := make([]normalize.Batch, len(inputs))
	for i, in := range inputs {
		batches[i] = normalize.Batch{Profile: in.Profile, Label: labels[i], Records: records[i]}
	}
	res, err := normalize.Normalize(batches, normalize.Options{Workers: opts.Workers})
	if err != nil {
		return nil, err
	}

	run := store.Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Sources:   labels,
		Stats:     res.Stats,
	}
	paths, err := export.WriteFiles(opts.Dir, opts.Basename, opts.Formats, res, export.Metadata{
		RunID:     run.ID,
		Generated: run.CreatedAt,
		Sources:   run.Sources,
		Stats:     res.Stats,
	})
	if err != nil {
		return nil, err
	}

	if slices.Contains(opts.Formats, export.FormatSQLite) {
		path := filepath.Join(opts.Dir, opts.Basename+".sqlite")
		if err := writeSQLite(ctx, path, run, res); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	if opts.Postgres {
		st, err := openStore(ctx, "", true)
		if err != nil {
			return nil, err
		}
		defer st.Close() //nolint:errcheck
		if err := st.SaveRun(ctx, run, res); err != nil {
			return nil, err
		}
	}

	return &normalizeOutcome{Run: run, Result: res, Paths: paths}, nil
}

// writeSQLite replaces path with a fresh database holding this run.
func writeSQLite(ctx context.Context, path string, run store.Run, res *normalize.Result) error {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return eris.Wrapf(err, "remove %s", path+suffix)
		}
	}
	st, err := openStore(ctx, path, false)
	if err != nil {
		return err
	}
	if err := st.SaveRun(ctx, run, res); err != nil {
		st.Close() //nolint:errcheck
		return err
	}
	if err := st.Close(); err != nil {
		return eris.Wrap(err, "close sqlite")
	}
	zap.L().Info("export: wrote file", zap.String("format", string(export.FormatSQLite)), zap.String("path", path))
	return nil
}

func logStats(runID string, st normalize.Stats) {
	zap.L().Info("normalize complete",
		zap.String("run_id", runID),
		zap.Int("input", st.Input),
		zap.Int("accepted", st.Accepted),
		zap.Int("rejected", st.Rejected),
		zap.Int("duplicate_groups", st.DuplicateGroups),
		zap.Int("flagged", st.Flagged),
	)

	sources := make([]string, 0, len(st.BySource))
	for s := range st.BySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, s := range sources {
		ss := st.BySource[s]
		zap.L().Info("source",
			zap.String("data_source", s),
			zap.Int("input", ss.Input),
			zap.Int("accepted", ss.Accepted),
			zap.Int("rejected", ss.Rejected),
		)
	}

	types := make([]zap.Field, 0, len(st.ByType))
	for t, n := range st.ByType {
		types = append(types, zap.Int(string(t), n))
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Key < types[j].Key })
	zap.L().Info("facility types", types...)

	if len(st.ByReason) > 0 {
		reasons := make([]zap.Field, 0, len(st.ByReason))
		for r, n := range st.ByReason {
			reasons = append(reasons, zap.Int(string(r), n))
		}
		sort.Slice(reasons, func(i, j int) bool { return reasons[i].Key < reasons[j].Key })
		zap.L().Warn("rejected records", reasons...)
	}
}

// addNormalizeFlags registers the normalize flags on cmd.
func addNormalizeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("out", "", "output directory (default from config export.dir)")
	f.String("basename", "", "output file name without extension (default from config export.basename)")
	f.String("formats", "", "comma-separated export formats: csv,xlsx,geojson,shp,sqlite (default from config)")
	f.Int("workers", 0, "concurrent files to ingest and batches to map (default from config)")
	f.String("profiles", "", "YAML file with extra source profiles")
	f.String("format", "auto", "input format for every file: auto, overpass, geojson, json, csv, xlsx, xml")
	f.StringSlice("columns", nil, "column names for header-less CSV/XLSX input (e.g. lon,lat,name,description)")
	f.String("delimiter", "", "CSV field delimiter (default comma, tab for .tsv)")
	f.String("sheet", "", "XLSX worksheet name (default first sheet)")
	f.Int("skip-rows", 0, "title rows to skip above the CSV/XLSX header")
	f.String("xml-path", "", "path of the repeating XML element, e.g. sites.site")
	f.Bool("pg", false, "also upsert into the Postgres table from config store.database_url")
}

func init() {
	addNormalizeFlags(normalizeCmd)
	rootCmd.AddCommand(normalizeCmd)
}
