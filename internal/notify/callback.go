// Package notify delivers scraped posts to client callback endpoints.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/socialpulse/internal/metrics"
	"github.com/JakeFAU/socialpulse/internal/social"
)

// Config controls callback delivery behavior.
type Config struct {
	Timeout time.Duration
}

// CallbackNotifier POSTs post batches to a caller-supplied URL.
type CallbackNotifier struct {
	client *http.Client
	logger *zap.Logger
}

type postBatch struct {
	Username string        `json:"username"`
	Posts    []social.Post `json:"posts"`
	UserID   string        `json:"user_id,omitempty"`
}

// NewCallbackNotifier creates a notifier with the configured timeout.
func NewCallbackNotifier(cfg Config, logger *zap.Logger) *CallbackNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallbackNotifier{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// DeliverPosts POSTs the batch as JSON to callbackURL. Any status
// outside 2xx is an error.
func (n *CallbackNotifier) DeliverPosts(ctx context.Context, callbackURL, username, userID string, posts []social.Post) error {
	if callbackURL == "" {
		return fmt.Errorf("callback url is required")
	}
	body, err := json.Marshal(postBatch{
		Username: username,
		Posts:    posts,
		UserID:   userID,
	})
	if err != nil {
		return fmt.Errorf("marshal post batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		metrics.ObserveCallbackDelivery(err)
		return fmt.Errorf("post to callback: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("callback returned status %d", resp.StatusCode)
		metrics.ObserveCallbackDelivery(statusErr)
		return statusErr
	}

	metrics.ObserveCallbackDelivery(nil)
	n.logger.Debug("delivered posts to callback",
		zap.String("username", username),
		zap.Int("posts", len(posts)),
	)
	return nil
}
