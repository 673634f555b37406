package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/blogger/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"postscheduler/pkg/scheduler"
)

// Blogger publishes posts to a configured blog via the Blogger API,
// authenticated as a service account (OAuth2 JWT bearer under the hood).
type Blogger struct {
	service *blogger.Service
	blogID  string
	logger  *slog.Logger
}

// NewBloggerService constructs the underlying API client from service
// account credentials JSON.
func NewBloggerService(ctx context.Context, credsJSON []byte) (*blogger.Service, error) {
	if len(credsJSON) == 0 {
		return nil, &scheduler.ConfigError{Missing: []string{"service account credentials"}}
	}
	return blogger.NewService(ctx, option.WithCredentialsJSON(credsJSON))
}

// NewBlogger creates a Blogger publisher for one blog.
func NewBlogger(service *blogger.Service, blogID string, logger *slog.Logger) (*Blogger, error) {
	if blogID == "" {
		return nil, &scheduler.ConfigError{Missing: []string{"blog ID"}}
	}
	return &Blogger{
		service: service,
		blogID:  blogID,
		logger:  logger,
	}, nil
}

// Publish creates a live post on the blog and returns a compact response
// payload for the audit record.
func (b *Blogger) Publish(ctx context.Context, content string) (string, error) {
	b.logger.Info("Platform API request starting",
		"platform", "blogger",
		"method", "POST",
		"endpoint", "posts.insert",
		"blog_id", b.blogID)

	startTime := time.Now()
	created, err := b.service.Posts.Insert(b.blogID, &blogger.Post{
		Content: content,
	}).IsDraft(false).Context(ctx).Do()
	duration := time.Since(startTime)

	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			b.logger.Warn("Platform API returned error status",
				"platform", "blogger",
				"status_code", apiErr.Code,
				"duration_ms", duration.Milliseconds())
			return "", &scheduler.PlatformError{StatusCode: apiErr.Code, Body: apiErr.Body}
		}
		b.logger.Warn("Platform API request failed",
			"platform", "blogger",
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return "", &scheduler.TransportError{URL: "blogger:posts.insert", Err: err}
	}

	b.logger.Info("Platform API request completed",
		"platform", "blogger",
		"endpoint", "posts.insert",
		"post_id", created.Id,
		"duration_ms", duration.Milliseconds(),
		"status", "success")

	resp, err := json.Marshal(map[string]string{"id": created.Id, "url": created.Url})
	if err != nil {
		return "", fmt.Errorf("marshal response: %w", err)
	}
	return string(resp), nil
}
