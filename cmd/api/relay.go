package main

import (
	"context"
	"log/slog"
	"time"
)

const outboxRelayBatch = 100

// outboxRelayer retries outbox messages that were not queued after commit.
type outboxRelayer interface {
	RelayPending(ctx context.Context, limit int) (int, error)
}

// runOutboxRelay drains pending outbox rows every interval until ctx is
// cancelled. A full batch is followed immediately by another.
func runOutboxRelay(ctx context.Context, r outboxRelayer, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for ctx.Err() == nil {
			n, err := r.RelayPending(ctx, outboxRelayBatch)
			if err != nil {
				logger.Error("outbox relay failed", "error", err)
				break
			}
			if n > 0 {
				logger.Info("outbox messages relayed", "count", n)
			}
			if n < outboxRelayBatch {
				break
			}
		}
	}
}
