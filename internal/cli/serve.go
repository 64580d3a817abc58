package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"relaypace/internal/metrics"
	"relaypace/internal/server"
	"relaypace/internal/storage/sqlite"
)

// ServeCmd returns the serve command.
func ServeCmd() *cobra.Command {
	var addr, dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, os.Stdout)
			if err != nil {
				return err
			}
			if addr != "" {
				a.cfg.Addr = addr
			}
			if dbPath != "" {
				a.cfg.DBPath = dbPath
			}
			return serve(a)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&dbPath, "db", "", "Path to sqlite database file")
	return cmd
}

func serve(a *app) error {
	logger := a.logger
	m := metrics.NewManager()

	store, err := sqlite.Open(a.cfg.DBPath, logger, m)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		return err
	}
	defer store.Close()

	srv := server.New(store, logger, server.Options{
		Seed:        a.cfg.Seed,
		CORSOrigins: a.cfg.CORSOrigins,
		Metrics:     m,
	})

	httpServer := &http.Server{
		Addr:    a.cfg.Addr,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr), slog.String("db", a.cfg.DBPath))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
	return nil
}

// MigrateCmd returns the migrate command.
func MigrateCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, os.Stderr)
			if err != nil {
				return err
			}
			if dbPath != "" {
				a.cfg.DBPath = dbPath
			}

			store, err := sqlite.Open(a.cfg.DBPath, a.logger, nil)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema up to date at %s\n", okColor.Sprint("OK"), a.cfg.DBPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to sqlite database file")
	return cmd
}
