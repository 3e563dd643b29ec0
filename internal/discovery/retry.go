package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const defaultBackoffBase = time.Second

// doWithRetry executes the request with bounded exponential backoff.
// Rate limits (429) wait the server-supplied Retry-After when present,
// otherwise the exponentially growing default. Server errors (5xx) and
// network failures retry the same way. Any other client error is not
// retryable and fails immediately.
func doWithRetry(ctx context.Context, client *http.Client, newRequest func() (*http.Request, error), maxRetries int, log *slog.Logger) (*http.Response, error) {
	op := "discovery.doWithRetry()"

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(lastErr, attempt)
			log.Debug("retrying search request",
				slog.String("op", op),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := newRequest()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = &retryableError{status: resp.StatusCode, retryAfter: parseRetryAfter(resp)}
			resp.Body.Close()
		case resp.StatusCode >= 500:
			lastErr = &retryableError{status: resp.StatusCode}
			resp.Body.Close()
		case resp.StatusCode >= 400:
			resp.Body.Close()
			return nil, fmt.Errorf("%s: non-retryable status %d", op, resp.StatusCode)
		default:
			return resp, nil
		}
	}

	return nil, fmt.Errorf("%s: retries exhausted: %w", op, lastErr)
}

type retryableError struct {
	status     int
	retryAfter time.Duration
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("retryable status %d", e.status)
}

func backoffDelay(lastErr error, attempt int) time.Duration {
	if re, ok := lastErr.(*retryableError); ok && re.retryAfter > 0 {
		return re.retryAfter
	}
	return defaultBackoffBase * time.Duration(1<<(attempt-1))
}

func parseRetryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
