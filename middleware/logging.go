package middleware

import (
	"log/slog"
	"time"

	"github.com/xraph/stepflow/workflow"
)

// Logging returns middleware that logs step start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(wctx *workflow.Context, step workflow.Step, next Handler) error {
		attrs := stepAttrs(wctx, step)
		logger.Info("step started", append(attrs,
			slog.String("kind", workflow.KindOf(step).String()),
			slog.String("correlation_id", wctx.CorrelationID()),
		)...)

		start := time.Now()
		err := next(wctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("step failed", append(attrs,
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)...)
		} else {
			logger.Info("step completed", append(attrs,
				slog.Duration("elapsed", elapsed),
			)...)
		}

		return err
	}
}
