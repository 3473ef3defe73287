package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/truckpark-cli/internal/model"
	"github.com/sells-group/truckpark-cli/internal/normalize"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	sources    TEXT NOT NULL,
	stats      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS facilities (
	data_source           TEXT NOT NULL,
	source_id             TEXT NOT NULL,
	source_file           TEXT NOT NULL DEFAULT '',
	name                  TEXT NOT NULL DEFAULT '',
	latitude              REAL NOT NULL,
	longitude             REAL NOT NULL,
	highway               TEXT NOT NULL DEFAULT '',
	facility_type         TEXT NOT NULL,
	operator              TEXT NOT NULL DEFAULT '',
	state                 TEXT NOT NULL DEFAULT '',
	city                  TEXT NOT NULL DEFAULT '',
	truck_spaces          INTEGER,
	has_restrooms         INTEGER,
	has_fuel              INTEGER,
	has_showers           INTEGER,
	has_wifi              INTEGER,
	is_24_hours           INTEGER,
	camera_urls           TEXT NOT NULL DEFAULT '[]',
	dedup_key             TEXT NOT NULL DEFAULT '',
	possible_duplicate_of TEXT NOT NULL DEFAULT '[]',
	run_id                TEXT NOT NULL,
	PRIMARY KEY (data_source, source_id)
);

CREATE TABLE IF NOT EXISTS rejects (
	run_id      TEXT NOT NULL,
	data_source TEXT NOT NULL,
	source_file TEXT NOT NULL DEFAULT '',
	idx         INTEGER NOT NULL,
	reason      TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	record      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_facilities_state ON facilities(state);
CREATE INDEX IF NOT EXISTS idx_facilities_type ON facilities(facility_type);
CREATE INDEX IF NOT EXISTS idx_facilities_dedup_key ON facilities(dedup_key);
CREATE INDEX IF NOT EXISTS idx_rejects_run_id ON rejects(run_id);
`

// Migrate creates the tables if they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun writes the run in one transaction. Facilities replace earlier rows
// with the same (data_source, source_id).
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run, res *normalize.Result) error {
	sources, err := json.Marshal(run.Sources)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal sources")
	}
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, sources, stats) VALUES (?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(time.RFC3339Nano), string(sources), string(stats),
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	cols := append(append([]string{}, facilityColumns...), "run_id")
	facStmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO facilities ("+strings.Join(cols, ", ")+") VALUES ("+marks(len(cols))+")")
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare facility insert")
	}
	defer facStmt.Close() //nolint:errcheck

	for i := range res.Facilities {
		vals, err := facilityValues(&res.Facilities[i], run.ID)
		if err != nil {
			return err
		}
		if _, err := facStmt.ExecContext(ctx, vals...); err != nil {
			return eris.Wrapf(err, "sqlite: insert facility %s", res.Facilities[i].Ref())
		}
	}

	rejStmt, err := tx.PrepareContext(ctx, "INSERT INTO rejects ("+strings.Join(rejectColumns, ", ")+") VALUES ("+marks(len(rejectColumns))+")")
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare reject insert")
	}
	defer rejStmt.Close() //nolint:errcheck

	for i := range res.Rejects {
		vals, err := rejectValues(&res.Rejects[i], run.ID)
		if err != nil {
			return err
		}
		if _, err := rejStmt.ExecContext(ctx, vals...); err != nil {
			return eris.Wrapf(err, "sqlite: insert reject %d", i)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// GetRun loads a run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var (
		run                     Run
		created, sources, stats string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, sources, stats FROM runs WHERE id = ?`, runID,
	).Scan(&run.ID, &created, &sources, &stats)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, eris.Wrap(err, "sqlite: parse run time")
	}
	if err := json.Unmarshal([]byte(sources), &run.Sources); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode run sources")
	}
	if err := json.Unmarshal([]byte(stats), &run.Stats); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode run stats")
	}
	return &run, nil
}

// ListFacilities returns facilities ordered by (data_source, source_id).
func (s *SQLiteStore) ListFacilities(ctx context.Context, filter FacilityFilter) ([]model.Facility, error) {
	where, args := filter.where(func(int) string { return "?" })
	rows, err := s.db.QueryContext(ctx, "SELECT "+facilitySelect+" FROM facilities"+where, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list facilities")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.Facility{}
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate facilities")
}

func marks(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
