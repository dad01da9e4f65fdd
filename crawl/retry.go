package crawl

import (
	"context"
	"time"

	"github.com/fwojciec/docmirror"
)

// FetchFunc is the signature for a fetch function.
type FetchFunc func(ctx context.Context, url string) (string, error)

// LogFunc is the signature for a logging function.
type LogFunc func(format string, args ...any)

// DefaultRetryDelays returns the backoff delays for fetch retries: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// FetchWithRetryDelays fetches url, retrying after each delay in turn while
// the error is retryable (see docmirror.IsRetryable). It returns the number
// of attempts made alongside the result.
func FetchWithRetryDelays(ctx context.Context, url string, fetch FetchFunc, logf LogFunc, delays []time.Duration) (string, int, error) {
	var lastErr error
	for attempt := 0; attempt <= len(delays); attempt++ {
		html, err := fetch(ctx, url)
		if err == nil {
			return html, attempt + 1, nil
		}
		lastErr = err

		if attempt == len(delays) || !docmirror.IsRetryable(err) {
			return "", attempt + 1, lastErr
		}

		if logf != nil {
			logf("retry %s (attempt %d): %v", url, attempt+2, err)
		}

		select {
		case <-ctx.Done():
			return "", attempt + 1, ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}
	return "", len(delays) + 1, lastErr
}
