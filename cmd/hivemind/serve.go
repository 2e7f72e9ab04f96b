package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hivemindapp/hivemind/internal/config"
	"github.com/hivemindapp/hivemind/internal/server"
)

func newServeCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run all pending migrations, then serve the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cfg)

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.MigrateTimeout)
			defer cancel()

			db, cleanup, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			runner, err := newRunner(db, logger)
			if err != nil {
				return err
			}

			// Fail closed: never open the listener against a database of
			// unknown schema version.
			if err := runner.Run(ctx); err != nil {
				logger.WithError(err).Error("migration run failed")
				return err
			}

			srv := &http.Server{
				Addr:    cfg.HTTPAddr,
				Handler: server.New(logger, runner),
			}

			errCh := make(chan error, 1)
			go func() {
				logger.WithField("addr", cfg.HTTPAddr).Info("admin api listening")
				errCh <- srv.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logger.WithField("signal", sig.String()).Info("shutting down")
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
