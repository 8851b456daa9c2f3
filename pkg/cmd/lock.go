package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gustolabs/fluxo/pkg/lock"
)

// NewLocker returns a Redis-backed locker when redisAddr is set, otherwise
// a process-local one. Single-instance deployments do not need Redis; the
// in-memory locker still closes the dedup race inside one process.
func NewLocker(ctx context.Context, logger *slog.Logger, redisAddr, redisPassword string, redisDB int) lock.Locker {
	if redisAddr == "" {
		logger.InfoContext(ctx, "No Redis address configured, using in-process run locks")

		return lock.NewMemoryLocker()
	}

	locker, err := lock.NewRedisLocker(ctx, logger, redisAddr, redisPassword, redisDB)
	if err != nil {
		panic(fmt.Errorf("failed to initialize Redis locker: %w", err))
	}

	return locker
}
