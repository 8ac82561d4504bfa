package ai

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

type rateLimitError struct {
	retryAfter time.Duration
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("%v (retry after %s)", ErrProviderRateLimited, e.retryAfter)
}

func (e *rateLimitError) Unwrap() error { return ErrProviderRateLimited }

func asRateLimit(err error, target **rateLimitError) bool {
	return errors.As(err, target)
}

func isTransient(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrProviderRateLimited)
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// retryDelay is exponential backoff capped at 5s.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	d := base << uint(attempt)
	if max := 5 * time.Second; d > max {
		d = max
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
