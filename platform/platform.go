// Package platform handles publishing post content to external platforms
// through pluggable publisher implementations.
package platform

import (
	"context"

	"postscheduler/pkg/scheduler"
)

// Publisher defines the interface for platform posting implementations.
// Publish issues exactly one outbound call and never retries; retry policy
// belongs to the dispatch loop's callers, not the client.
type Publisher interface {
	// Publish posts the content and returns the platform's response body.
	Publish(ctx context.Context, content string) (string, error)
}

// Registry maps each platform to its configured publisher.
type Registry map[scheduler.Platform]Publisher

// For returns the publisher for the platform, if one is configured.
func (r Registry) For(p scheduler.Platform) (Publisher, bool) {
	pub, ok := r[p]
	return pub, ok
}

// Platforms returns the registered platforms in deterministic order.
func (r Registry) Platforms() []scheduler.Platform {
	out := make([]scheduler.Platform, 0, len(r))
	for _, p := range []scheduler.Platform{scheduler.PlatformTwitter, scheduler.PlatformBlogger} {
		if _, ok := r[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
