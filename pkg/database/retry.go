package database

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const startupAttempts = 3

// transientPatterns are error fragments that indicate the server was
// unreachable rather than that the statement was wrong.
var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"connection timed out",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"dial tcp",
	"EOF",
	"server closed the connection unexpectedly",
	"could not connect",
}

// isConnectionError reports whether err looks like a transient network
// failure. SQL errors never match.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// startupBackOff waits roughly 1s then 2s between attempts.
func startupBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0.25
	b.MaxInterval = 4 * time.Second
	return b
}

// retryStartup runs op up to startupAttempts times. op marks errors that
// must not be retried with backoff.Permanent.
func retryStartup[T any](ctx context.Context, logger *slog.Logger, what string, op backoff.Operation[T]) (T, error) {
	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		return op()
	},
		backoff.WithBackOff(startupBackOff()),
		backoff.WithMaxTries(startupAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			if logger == nil {
				return
			}
			logger.Warn(what+" failed, retrying",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", startupAttempts),
				slog.Duration("backoff", next),
				slog.String("error", err.Error()),
			)
		}),
	)
}
