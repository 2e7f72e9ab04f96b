// Package config loads process configuration from flags and HIVEMIND_*
// environment variables.
package config

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is everything the process needs to reach the database and serve the
// admin surface.
type Config struct {
	MongoURI      string
	MongoDatabase string
	HTTPAddr      string
	LogLevel      string

	// MigrateTimeout bounds a full migration run. A deadline expiring
	// mid-operation aborts the in-flight call only; structural changes
	// already made stay in place and are reconciled on the next run.
	MigrateTimeout time.Duration
}

const envPrefix = "HIVEMIND"

// Bind registers the configuration flags on cmd and wires them to the
// environment, flag values winning over env values. Reads into dest happen
// when cmd runs.
func Bind(cmd *cobra.Command, dest *Config) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := cmd.PersistentFlags()
	flags.String("mongo-uri", "mongodb://127.0.0.1:27017", "mongodb connection uri")
	flags.String("mongo-db", "hivemind", "database name")
	flags.String("http-addr", ":8086", "admin http listen address")
	flags.String("log-level", "info", "log level (debug|info|warn|error)")
	flags.Duration("migrate-timeout", 5*time.Minute, "deadline for a full migration run")

	cobra.OnInitialize(func() {
		_ = v.BindPFlags(flags)

		dest.MongoURI = v.GetString("mongo-uri")
		dest.MongoDatabase = v.GetString("mongo-db")
		dest.HTTPAddr = v.GetString("http-addr")
		dest.LogLevel = v.GetString("log-level")
		dest.MigrateTimeout = v.GetDuration("migrate-timeout")
	})
}
