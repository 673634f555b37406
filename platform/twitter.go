package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"postscheduler/oauth1"
	"postscheduler/pkg/scheduler"
)

const defaultTweetEndpoint = "https://api.twitter.com/2/tweets"

// Twitter publishes posts to the microblogging platform's create-post
// endpoint, authenticated with an OAuth 1.0a signed header.
type Twitter struct {
	signer   *oauth1.Signer
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewTwitter creates a Twitter publisher. It fails fast with a configuration
// error when any of the four credentials is missing.
func NewTwitter(signer *oauth1.Signer, logger *slog.Logger) (*Twitter, error) {
	if err := signer.Validate(); err != nil {
		return nil, err
	}
	return &Twitter{
		signer:   signer,
		endpoint: defaultTweetEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}, nil
}

type tweetRequest struct {
	Text string `json:"text"`
}

// Publish posts the content. Each call signs with a fresh nonce and
// timestamp; the platform replay-detects reused values.
func (t *Twitter) Publish(ctx context.Context, content string) (string, error) {
	jsonData, err := json.Marshal(tweetRequest{Text: content})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	header, err := t.signer.AuthHeader(http.MethodPost, t.endpoint)
	if err != nil {
		return "", err
	}

	t.logger.Info("Platform API request starting",
		"platform", "twitter",
		"method", "POST",
		"endpoint", t.endpoint,
		"content_length", len(content))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", header)

	startTime := time.Now()
	resp, err := t.client.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		t.logger.Warn("Platform API request failed",
			"platform", "twitter",
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return "", &scheduler.TransportError{URL: t.endpoint, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &scheduler.TransportError{URL: t.endpoint, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.logger.Warn("Platform API returned non-2xx status",
			"platform", "twitter",
			"status_code", resp.StatusCode,
			"duration_ms", duration.Milliseconds())
		return "", &scheduler.PlatformError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	t.logger.Info("Platform API request completed",
		"platform", "twitter",
		"endpoint", t.endpoint,
		"duration_ms", duration.Milliseconds(),
		"status", "success")

	return string(body), nil
}
