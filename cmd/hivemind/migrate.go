package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hivemindapp/hivemind/internal/config"
)

func newMigrateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "apply all pending migrations",
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
			return runner.Run(ctx)
		},
	}
}

func newRollbackCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <id>",
		Short: "roll back exactly one applied migration",
		Args:  cobra.ExactArgs(1),
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
			return runner.Rollback(ctx, args[0])
		},
	}
}

func newStatusCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "print every registered migration and whether it is applied",
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

			statuses, err := runner.Status(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-32s %-8s %-25s %s\n", "ID", "APPLIED", "APPLIED AT", "DESCRIPTION")
			for _, s := range statuses {
				appliedAt := ""
				if s.AppliedAt != nil {
					appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05 MST")
				}
				fmt.Fprintf(w, "%-32s %-8t %-25s %s\n", s.ID, s.Applied, appliedAt, s.Description)
			}
			return nil
		},
	}
}
