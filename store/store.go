// Package store handles persistence of scheduled posts.
package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"postscheduler/pkg/scheduler"
)

// Store is the durable record storage the core consumes. Insert assigns the
// ID and bookkeeping timestamps; List applies the filter with all provided
// fields ANDed; Update applies a partial patch to one record.
type Store interface {
	Insert(ctx context.Context, post *scheduler.ScheduledPost) (*scheduler.ScheduledPost, error)
	List(ctx context.Context, f Filter) ([]*scheduler.ScheduledPost, error)
	Update(ctx context.Context, id string, p Patch) error
}

// Filter selects records. Nil fields are ignored; provided fields are ANDed.
// ScheduledAtBefore is an inclusive upper bound: a record scheduled exactly
// at the boundary is selected.
type Filter struct {
	Platform           *scheduler.Platform
	Status             *scheduler.Status
	ScheduledAtBefore  *time.Time
	OrderByScheduledAt bool // ascending, oldest due first
}

// Match reports whether the record passes the filter.
func (f Filter) Match(p *scheduler.ScheduledPost) bool {
	if f.Platform != nil && p.Platform != *f.Platform {
		return false
	}
	if f.Status != nil && p.Status != *f.Status {
		return false
	}
	if f.ScheduledAtBefore != nil && p.ScheduledAt.After(*f.ScheduledAtBefore) {
		return false
	}
	return true
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Status       *scheduler.Status
	Response     *string
	ErrorMessage *string
	UpdatedAt    time.Time
}

// Apply writes the patch onto the record. Response and ErrorMessage are
// mutually exclusive: setting one clears the other.
func (p Patch) Apply(post *scheduler.ScheduledPost) {
	if p.Status != nil {
		post.Status = *p.Status
	}
	if p.Response != nil {
		post.Response = *p.Response
		post.ErrorMessage = ""
	}
	if p.ErrorMessage != nil {
		post.ErrorMessage = *p.ErrorMessage
		post.Response = ""
	}
	if !p.UpdatedAt.IsZero() {
		post.UpdatedAt = p.UpdatedAt
	}
}

func sortByScheduledAt(posts []*scheduler.ScheduledPost) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].ScheduledAt.Before(posts[j].ScheduledAt)
	})
}

// IsNotFound checks if an error indicates a record was not found.
func IsNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "store: record doesn't exist")
}
