package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	maxRetries     = 4
	initialBackoff = 10 * time.Second
	maxBackoff     = 2 * time.Minute
)

// CompleteWithRetry calls the provider with exponential backoff on
// rate-limit and overload errors. Other errors return immediately.
func CompleteWithRetry(ctx context.Context, p Provider, req CompletionRequest) (*CompletionResponse, error) {
	backoff := initialBackoff

	for attempt := 0; ; attempt++ {
		resp, err := p.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}

		if !isRetryable(err) {
			return nil, err
		}
		if attempt == maxRetries {
			return nil, fmt.Errorf("rate limited after %d retries: %w", maxRetries, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

func isRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "overloaded")
}
