package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/glatt-dev/glatt/pkg/api"
)

// Logging returns middleware that emits structured log entries for each
// run. The log entry includes the request ID (from context), the record
// count, strict mode, duration, and whether the run succeeded or failed.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next BatchRunner) BatchRunner {
		return BatchRunnerFunc(func(ctx context.Context, req *api.RunRequest) (*api.Run, error) {
			start := time.Now()
			requestID := RequestIDFromContext(ctx)

			run, err := next.RunBatch(ctx, req)

			attrs := []slog.Attr{
				slog.String("request_id", requestID),
				slog.Int("records", len(req.Records)),
				slog.Bool("strict", req.Options.StrictMode),
				slog.Duration("duration", time.Since(start)),
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "run failed", attrs...)
			} else {
				attrs = append(attrs, slog.Int("coerced", run.Counts.FieldsCoerced))
				logger.LogAttrs(ctx, slog.LevelInfo, "run completed", attrs...)
			}

			return run, err
		})
	}
}
