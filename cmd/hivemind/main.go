package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hivemindapp/hivemind/internal/config"
	"github.com/hivemindapp/hivemind/internal/migrate"
	"github.com/hivemindapp/hivemind/internal/migrations"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfg config.Config

	cmd := &cobra.Command{
		Use:           "hivemind",
		Short:         "hivemind social platform backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	config.Bind(cmd, &cfg)

	cmd.AddCommand(
		newServeCommand(&cfg),
		newMigrateCommand(&cfg),
		newRollbackCommand(&cfg),
		newStatusCommand(&cfg),
	)

	return cmd
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

// connect dials the database and verifies it answers before anything runs
// against it.
func connect(ctx context.Context, cfg *config.Config) (migrate.Database, func(), error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	cleanup := func() {
		_ = client.Disconnect(context.Background())
	}
	return migrate.NewMongoDatabase(client.Database(cfg.MongoDatabase)), cleanup, nil
}

// newRunner composes the full migration set explicitly; registration fails
// fast on duplicate or malformed ids.
func newRunner(db migrate.Database, logger logrus.FieldLogger) (*migrate.Runner, error) {
	runner := migrate.NewRunner(db, migrate.WithLogger(logger))
	if err := runner.RegisterMany(migrations.All()...); err != nil {
		return nil, err
	}
	return runner, nil
}
