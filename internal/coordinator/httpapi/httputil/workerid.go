package httputil

import (
	"context"

	"github.com/google/uuid"
)

type workerIDKey struct{}

func WithWorkerID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, workerIDKey{}, id)
}

// WorkerIDFromContext returns the id the requireWorkerID middleware parsed
// from the uuid header, and whether one was present.
func WorkerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(workerIDKey{}).(uuid.UUID)
	return v, ok
}
