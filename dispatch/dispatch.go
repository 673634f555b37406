// Package dispatch runs the periodic pass that delivers due scheduled
// posts. One invocation is a single sequential sweep: it selects every
// pending record whose time has arrived, publishes each one, and writes a
// terminal state per record. A failing record never stops the sweep.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"postscheduler/pkg/scheduler"
	"postscheduler/platform"
	"postscheduler/store"
)

const (
	defaultCallTimeout = 30 * time.Second
	// Pause between platform calls. Politeness toward external rate
	// limits, not a correctness requirement.
	defaultPause = 500 * time.Millisecond
)

// Store is the slice of the post store the loop consumes.
type Store interface {
	List(ctx context.Context, f store.Filter) ([]*scheduler.ScheduledPost, error)
	Update(ctx context.Context, id string, p store.Patch) error
}

// Config holds dispatch loop configuration.
type Config struct {
	Store       Store
	Publishers  platform.Registry
	Logger      *slog.Logger
	CallTimeout time.Duration // 0 means default
	Pause       time.Duration // 0 means default; use a negative value to disable
}

// Loop dispatches due posts.
type Loop struct {
	store       Store
	publishers  platform.Registry
	logger      *slog.Logger
	callTimeout time.Duration
	pause       time.Duration
}

// New creates a dispatch loop.
func New(cfg *Config) *Loop {
	callTimeout := cfg.CallTimeout
	if callTimeout == 0 {
		callTimeout = defaultCallTimeout
	}
	pause := cfg.Pause
	if pause == 0 {
		pause = defaultPause
	}
	if pause < 0 {
		pause = 0
	}
	return &Loop{
		store:       cfg.Store,
		publishers:  cfg.Publishers,
		logger:      cfg.Logger,
		callTimeout: callTimeout,
		pause:       pause,
	}
}

// Result carries the counters of one run.
type Result struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// Run performs one dispatch pass as of now. Per-record publish errors are
// recorded on the record and never propagate; the returned error is
// non-nil only for infrastructure failure (the store itself unreachable),
// in which case the whole batch was skipped and the next trigger retries
// it wholesale.
func (l *Loop) Run(ctx context.Context, now time.Time) (Result, error) {
	var result Result

	for _, p := range l.publishers.Platforms() {
		due, err := l.listDue(ctx, p, now)
		if err != nil {
			return result, fmt.Errorf("list due posts for %s: %w", p, err)
		}
		if len(due) == 0 {
			continue
		}

		l.logger.Info("Dispatching due posts",
			"platform", p,
			"count", len(due),
			"now", now.Format(time.RFC3339))

		pub, _ := l.publishers.For(p)
		for i, post := range due {
			// Check for context cancellation between records; each
			// record's transition is an independent atomic update, so
			// aborting here never corrupts data.
			select {
			case <-ctx.Done():
				l.logger.Info("Context cancelled, stopping dispatch run", "error", ctx.Err())
				return result, ctx.Err()
			default:
			}

			l.dispatchOne(ctx, pub, post, now, &result)

			if l.pause > 0 && i < len(due)-1 {
				timer := time.NewTimer(l.pause)
				select {
				case <-ctx.Done():
					timer.Stop()
					return result, ctx.Err()
				case <-timer.C:
				}
			}
		}
	}

	if result.Processed > 0 {
		l.logger.Info("Dispatch run completed",
			"processed", result.Processed,
			"sent", result.Sent,
			"failed", result.Failed)
	}
	return result, nil
}

func (l *Loop) listDue(ctx context.Context, p scheduler.Platform, now time.Time) ([]*scheduler.ScheduledPost, error) {
	pending := scheduler.StatusPending
	return l.store.List(ctx, store.Filter{
		Platform:           &p,
		Status:             &pending,
		ScheduledAtBefore:  &now,
		OrderByScheduledAt: true,
	})
}

// dispatchOne publishes one record and writes its terminal state. All
// publish errors, timeouts included, become a failed record; only the
// counters leave this function.
func (l *Loop) dispatchOne(ctx context.Context, pub platform.Publisher, post *scheduler.ScheduledPost, now time.Time, result *Result) {
	result.Processed++

	callCtx, cancel := context.WithTimeout(ctx, l.callTimeout)
	resp, err := pub.Publish(callCtx, post.Content)
	cancel()

	if err != nil {
		result.Failed++
		l.logger.Warn("Post dispatch failed",
			"id", post.ID,
			"platform", post.Platform,
			"scheduled_at", post.ScheduledAt.Format(time.RFC3339),
			"error", err)

		failed := scheduler.StatusFailed
		msg := err.Error()
		if updateErr := l.store.Update(ctx, post.ID, store.Patch{
			Status:       &failed,
			ErrorMessage: &msg,
			UpdatedAt:    now,
		}); updateErr != nil {
			l.logger.Error("Failed to record dispatch failure", "id", post.ID, "error", updateErr)
		}
		return
	}

	sent := scheduler.StatusSent
	if updateErr := l.store.Update(ctx, post.ID, store.Patch{
		Status:    &sent,
		Response:  &resp,
		UpdatedAt: now,
	}); updateErr != nil {
		// The post went out but the record still says pending: the next
		// run may redeliver. Loud log so an operator can reconcile.
		l.logger.Error("Post published but status update failed; record may be redelivered",
			"id", post.ID, "error", updateErr)
		result.Failed++
		return
	}

	result.Sent++
	l.logger.Info("Post dispatched",
		"id", post.ID,
		"platform", post.Platform,
		"scheduled_at", post.ScheduledAt.Format(time.RFC3339))
}
