package migrate

import (
	"context"

	"github.com/sirupsen/logrus"
)

type loggerKey struct{}

// withLogger stores the runner's logger in the context handed to forward and
// inverse functions, so the reconciler and collection migrator running inside
// them log through the same configured logger as the runner itself.
func withLogger(ctx context.Context, logger logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func loggerFrom(ctx context.Context) logrus.FieldLogger {
	if logger, ok := ctx.Value(loggerKey{}).(logrus.FieldLogger); ok {
		return logger
	}
	return logrus.StandardLogger()
}
