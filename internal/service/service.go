// Package service holds the business logic behind the HTTP handlers and the
// adoption job.
package service

import (
	"context"
	"log/slog"
	"time"

	"purpaws/internal/middleware"
	"purpaws/internal/storage"
)

// Clock returns the current time. Services take one so time-gated rules are testable.
type Clock func() time.Time

// SystemClock is UTC wall time truncated to the precision postgres stores.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// releaseBlobs deletes blobs whose owning records are gone. Failures only leave an
// orphaned blob behind, so they are logged.
func releaseBlobs(ctx context.Context, blobs storage.Store, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := blobs.Delete(ctx, key); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to release blob",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}
