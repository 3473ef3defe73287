package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/truckpark-cli/internal/server"
	"github.com/sells-group/truckpark-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the normalization HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		profilesFile, _ := cmd.Flags().GetString("profiles")
		dbPath, _ := cmd.Flags().GetString("db")
		usePG, _ := cmd.Flags().GetBool("pg")

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		reg, err := loadRegistry(profilesFile)
		if err != nil {
			return err
		}

		var st store.Store
		if dbPath == "" {
			dbPath = cfg.Server.SQLitePath
		}
		if usePG || dbPath != "" {
			st, err = openStore(ctx, dbPath, usePG)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		api := server.New(server.Options{
			Registry:       reg,
			Store:          st,
			Workers:        cfg.Normalize.Workers,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			MaxBodyBytes:   int64(cfg.Server.MaxBodyMB) << 20,
		})

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.Bool("store", st != nil))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().String("profiles", "", "YAML file with extra source profiles")
	serveCmd.Flags().String("db", "", "SQLite file backing GET /v1/facilities (default from config server.sqlite_path)")
	serveCmd.Flags().Bool("pg", false, "back GET /v1/facilities with the configured Postgres table")
	rootCmd.AddCommand(serveCmd)
}
