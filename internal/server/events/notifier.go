package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Sink delivers a single event somewhere outside the process
type Sink interface {
	Send(ctx context.Context, event Event) error
}

// WebhookNotifier POSTs events to a fixed URL
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	attempts   int
	backoff    time.Duration
	log        *zap.Logger
}

// NewWebhookNotifier creates a notifier for url
func NewWebhookNotifier(url string, log *zap.Logger) *WebhookNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookNotifier{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		attempts: 3,
		backoff:  time.Second,
		log:      log,
	}
}

// Send delivers event, retrying with quadratic backoff
func (n *WebhookNotifier) Send(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < n.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt*attempt) * n.backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("building webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Crmgraph-Event", event.Type)

		resp, err := n.httpClient.Do(req)
		if err != nil {
			lastErr = err
			n.log.Warn("webhook delivery attempt failed",
				zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		lastErr = &WebhookError{URL: n.url, StatusCode: resp.StatusCode}
		n.log.Warn("webhook delivery attempt rejected",
			zap.Int("attempt", attempt+1), zap.Int("status", resp.StatusCode))
	}

	return lastErr
}

// WebhookError represents a webhook delivery failure
type WebhookError struct {
	URL        string
	StatusCode int
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("webhook %s returned status %d", e.URL, e.StatusCode)
}
