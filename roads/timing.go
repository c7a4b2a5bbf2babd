package roads

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey string

// RequestIDKey carries the API request id into provider logs
const RequestIDKey ctxKey = "req_id"

// timeOp logs how long an operation took. Use as
//
//	defer timeOp(ctx, logger, "op")(&err)
func timeOp(ctx context.Context, logger zerolog.Logger, name string) func(errp *error) {
	start := time.Now()
	reqID, _ := ctx.Value(RequestIDKey).(string)

	return func(errp *error) {
		ev := logger.Debug()
		if errp != nil && *errp != nil {
			ev = ev.Err(*errp)
		}
		ev.Str("req_id", reqID).
			Str("op", name).
			Int64("dur_ms", time.Since(start).Milliseconds()).
			Msg("Road lookup")
	}
}
