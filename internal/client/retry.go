package client

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// RetryConfig configures retry behavior for idempotent requests.
type RetryConfig struct {
	MaxRetries      int           // Maximum retry attempts after the first try
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for a local or LAN backend.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// retryableStatus reports whether the response status is transient. Client
// errors (4xx) are never retried; the request will not get better.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	}
	return false
}

// withRetry executes attempt with exponential backoff on transport errors
// and transient statuses. The final response (or error) is returned as-is.
func (c *Client) withRetry(ctx context.Context, attempt func() (*http.Response, error)) (*http.Response, error) {
	var lastErr error
	delay := c.retry.InitialInterval

	for try := 0; try <= c.retry.MaxRetries; try++ {
		resp, err := attempt()
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = &APIError{Status: resp.StatusCode}
			_ = resp.Body.Close()
		}
		if try == c.retry.MaxRetries {
			break
		}

		c.logger.Debug("transient backend failure, retrying",
			"attempt", try+1, "delay", delay, "error", lastErr)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay *= 2
		if delay > c.retry.MaxInterval {
			delay = c.retry.MaxInterval
		}
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.retry.MaxRetries+1, lastErr)
}
