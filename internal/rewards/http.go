package rewards

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff/v5"

	"github.com/trungse123/review-backend/pkg/httpclient"
)

// HTTPConfig holds the loyalty endpoint and credentials.
type HTTPConfig struct {
	URL   string
	Token string
}

// HTTPNotifier posts mission completions to the loyalty service.
type HTTPNotifier struct {
	doer  httpclient.Doer
	url   string
	token string
}

var _ Notifier = (*HTTPNotifier)(nil)

// NewHTTPNotifier creates an HTTP notifier.
func NewHTTPNotifier(doer httpclient.Doer, cfg HTTPConfig) *HTTPNotifier {
	return &HTTPNotifier{doer: doer, url: cfg.URL, token: cfg.Token}
}

// Name returns "http".
func (n *HTTPNotifier) Name() string { return "http" }

// NotifyCompleted posts the notification. A 4xx answer is marked permanent
// so the dispatcher does not retry it.
func (n *HTTPNotifier) NotifyCompleted(ctx context.Context, notification Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("marshal notification: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create notification request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.doer.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil
	}

	status := resp.StatusCode
	err = httpclient.ParseResponseError(resp, "rewards")
	if httpclient.IsClientError(status) && status != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}
