package sqlloader

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const (
	startedTimeKey contextKey = "startedTime"
	loadIDKey      contextKey = "loadID"
)

// withLoad marks ctx with the start time and a fresh identifier of one load.
func withLoad(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, startedTimeKey, time.Now())
	return context.WithValue(ctx, loadIDKey, uuid.NewString())
}

func startedTimeFrom(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(startedTimeKey).(time.Time)
	return t, ok
}

// LoadIDFrom returns the identifier of the load running in ctx.
// Notifiers use it to correlate notifications with logs.
func LoadIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(loadIDKey).(string)
	return id, ok
}
