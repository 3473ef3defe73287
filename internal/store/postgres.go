package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/truckpark-cli/internal/db"
	"github.com/sells-group/truckpark-cli/internal/model"
	"github.com/sells-group/truckpark-cli/internal/normalize"
)

// DefaultTable is the facility table used when none is configured.
const DefaultTable = "truck_parking"

// PostgresStore implements Store using pgxpool. Facilities live in table;
// runs and rejects in table_runs and table_rejects.
type PostgresStore struct {
	pool    db.Pool
	table   string
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString, table string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return NewPostgresWithPool(pool, table, pool.Close), nil
}

// NewPostgresWithPool wraps an existing pool. closeFn may be nil.
func NewPostgresWithPool(pool db.Pool, table string, closeFn func()) *PostgresStore {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresStore{pool: pool, table: table, closeFn: closeFn}
}

func (s *PostgresStore) runsTable() string    { return s.table + "_runs" }
func (s *PostgresStore) rejectsTable() string { return s.table + "_rejects" }

func ident(table string) string {
	parts := strings.SplitN(table, ".", 2)
	return pgx.Identifier(parts).Sanitize()
}

func (s *PostgresStore) migration() string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	sources    JSONB NOT NULL,
	stats      JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS %[2]s (
	data_source           TEXT NOT NULL,
	source_id             TEXT NOT NULL,
	source_file           TEXT NOT NULL DEFAULT '',
	name                  TEXT NOT NULL DEFAULT '',
	latitude              DOUBLE PRECISION NOT NULL,
	longitude             DOUBLE PRECISION NOT NULL,
	highway               TEXT NOT NULL DEFAULT '',
	facility_type         TEXT NOT NULL,
	operator              TEXT NOT NULL DEFAULT '',
	state                 TEXT NOT NULL DEFAULT '',
	city                  TEXT NOT NULL DEFAULT '',
	truck_spaces          INTEGER,
	has_restrooms         BOOLEAN,
	has_fuel              BOOLEAN,
	has_showers           BOOLEAN,
	has_wifi              BOOLEAN,
	is_24_hours           BOOLEAN,
	camera_urls           TEXT NOT NULL DEFAULT '[]',
	dedup_key             TEXT NOT NULL DEFAULT '',
	possible_duplicate_of TEXT NOT NULL DEFAULT '[]',
	run_id                TEXT NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (data_source, source_id)
);

CREATE TABLE IF NOT EXISTS %[3]s (
	run_id      TEXT NOT NULL,
	data_source TEXT NOT NULL,
	source_file TEXT NOT NULL DEFAULT '',
	idx         INTEGER NOT NULL,
	reason      TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	record      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS %[4]s ON %[2]s (state, facility_type);
CREATE INDEX IF NOT EXISTS %[5]s ON %[2]s (dedup_key);
`,
		ident(s.runsTable()),
		ident(s.table),
		ident(s.rejectsTable()),
		pgx.Identifier{"idx_" + strings.ReplaceAll(s.table, ".", "_") + "_state_type"}.Sanitize(),
		pgx.Identifier{"idx_" + strings.ReplaceAll(s.table, ".", "_") + "_dedup_key"}.Sanitize(),
	)
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, s.migration())
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveRun records the run, upserts its facilities on (data_source,
// source_id) and appends its rejects.
func (s *PostgresStore) SaveRun(ctx context.Context, run Run, res *normalize.Result) error {
	sources, err := json.Marshal(run.Sources)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal sources")
	}
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}

	if _, err := s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, created_at, sources, stats) VALUES ($1, $2, $3, $4)`, ident(s.runsTable())),
		run.ID, run.CreatedAt.UTC(), string(sources), string(stats),
	); err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	rows := make([][]any, 0, len(res.Facilities))
	for i := range res.Facilities {
		vals, err := facilityValues(&res.Facilities[i], run.ID)
		if err != nil {
			return err
		}
		rows = append(rows, vals)
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        s.table,
		Columns:      append(append([]string{}, facilityColumns...), "run_id"),
		ConflictKeys: []string{"data_source", "source_id"},
	}, rows)
	if err != nil {
		return eris.Wrap(err, "postgres: upsert facilities")
	}

	rejects := make([][]any, 0, len(res.Rejects))
	for i := range res.Rejects {
		vals, err := rejectValues(&res.Rejects[i], run.ID)
		if err != nil {
			return err
		}
		rejects = append(rejects, vals)
	}
	if _, err := db.CopyFrom(ctx, s.pool, s.rejectsTable(), rejectColumns, rejects); err != nil {
		return eris.Wrap(err, "postgres: copy rejects")
	}

	zap.L().Info("postgres: saved run",
		zap.String("run_id", run.ID),
		zap.String("table", s.table),
		zap.Int64("facilities_upserted", n),
		zap.Int("rejects", len(rejects)),
	)
	return nil
}

// GetRun loads a run by id.
func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var (
		run            Run
		sources, stats []byte
	)
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT id, created_at, sources, stats FROM %s WHERE id = $1`, ident(s.runsTable())),
		runID,
	).Scan(&run.ID, &run.CreatedAt, &sources, &stats)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	if err := json.Unmarshal(sources, &run.Sources); err != nil {
		return nil, eris.Wrap(err, "postgres: decode run sources")
	}
	if err := json.Unmarshal(stats, &run.Stats); err != nil {
		return nil, eris.Wrap(err, "postgres: decode run stats")
	}
	return &run, nil
}

// ListFacilities returns facilities ordered by (data_source, source_id).
func (s *PostgresStore) ListFacilities(ctx context.Context, filter FacilityFilter) ([]model.Facility, error) {
	where, args := filter.where(func(n int) string { return fmt.Sprintf("$%d", n) })
	rows, err := s.pool.Query(ctx, "SELECT "+facilitySelect+" FROM "+ident(s.table)+where, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list facilities")
	}
	defer rows.Close()

	out := []model.Facility{}
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate facilities")
}
