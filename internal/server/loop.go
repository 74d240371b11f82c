package server

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errShuttingDown = status.Error(codes.Unavailable, "service is shutting down")

// RunEvery calls fn every interval until ctx is cancelled or shutdown
// begins. It blocks; start it in its own goroutine.
func (sm *ShutdownManager) RunEvery(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sm.shutdownCh:
			return
		case <-ticker.C:
			fn()
		}
	}
}
