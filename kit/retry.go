package kit

import (
	"context"
	"log/slog"
	"time"
)

// Retry retries calls whose error satisfies retryable, waiting baseBackoff
// doubled after each attempt. Non-retryable outcomes are returned as is,
// response included. It stops early when ctx is done.
func Retry(maxRetries int, baseBackoff time.Duration, retryable func(error) bool, logger *slog.Logger) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			var (
				resp any
				err  error
			)
			for attempt := 0; attempt <= maxRetries; attempt++ {
				resp, err = next(ctx, req)
				if err == nil || !retryable(err) || ctx.Err() != nil {
					return resp, err
				}
				if attempt == maxRetries {
					break
				}

				wait := baseBackoff * (1 << uint(attempt))
				if logger != nil {
					logger.WarnContext(ctx, "kit: retrying call",
						"attempt", attempt+1,
						"max_retries", maxRetries,
						"backoff", wait,
						"error", err)
				}
				select {
				case <-ctx.Done():
					return resp, err
				case <-time.After(wait):
				}
			}
			return resp, err
		}
	}
}
