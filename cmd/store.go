package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/truckpark-cli/internal/store"
)

// openStore opens the SQLite file at dbPath, or the configured Postgres
// table when usePG is set, and migrates it.
func openStore(ctx context.Context, dbPath string, usePG bool) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch {
	case usePG:
		if err := cfg.Validate("load"); err != nil {
			return nil, err
		}
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Table, &store.PoolConfig{MaxConns: cfg.Store.MaxConns})
	case dbPath != "":
		st, err = store.NewSQLite(dbPath)
	default:
		return nil, eris.New("no store: pass --db <file.sqlite> or --pg")
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
