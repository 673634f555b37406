// Package scheduler contains the core domain types for the post dispatch service.
package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a scheduled post.
// A post starts pending and moves exactly once to sent or failed.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Terminal reports whether no further transition is defined for the status.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

// Platform identifies a publishing destination.
type Platform string

const (
	PlatformTwitter Platform = "twitter"
	PlatformBlogger Platform = "blogger"
)

// Known reports whether the platform is one this service can publish to.
func (p Platform) Known() bool {
	return p == PlatformTwitter || p == PlatformBlogger
}

// ScheduledPost is a durable record of one post to publish at one time.
// Recurring schedules are materialized as N one-shot records at creation
// time; nothing regenerates a record after it fires.
type ScheduledPost struct {
	ID             string    `json:"id"`
	Platform       Platform  `json:"platform"`
	Content        string    `json:"content"`
	ImageURL       string    `json:"image_url,omitempty"`       // carried through unchanged
	AttachmentName string    `json:"attachment_name,omitempty"` // carried through unchanged
	ScheduledAt    time.Time `json:"scheduled_at"`              // UTC
	Status         Status    `json:"status"`
	Response       string    `json:"response,omitempty"`      // set once, on pending->sent
	ErrorMessage   string    `json:"error_message,omitempty"` // set once, on pending->failed
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Due reports whether the record is eligible for dispatch at the given time.
func (p *ScheduledPost) Due(now time.Time) bool {
	return p.Status == StatusPending && !p.ScheduledAt.After(now)
}

// ScheduleType tags the two kinds of scheduling intent.
type ScheduleType string

const (
	ScheduleSpecificDate ScheduleType = "specificDate"
	ScheduleRecurring    ScheduleType = "recurring"
)

// Schedule is the user's delivery schedule: either a single date, or a set
// of weekdays whose next occurrences are computed at scheduling time.
type Schedule struct {
	Type     ScheduleType   `json:"type"`
	Date     string         `json:"date,omitempty"` // "2006-01-02", specificDate only
	Time     string         `json:"time"`           // "15:04"
	Weekdays []time.Weekday `json:"weekdays,omitempty"`
}

// Intent is a validated-later scheduling request: what to post, where, when.
type Intent struct {
	Platforms      []Platform `json:"platforms"`
	Content        string     `json:"content"`
	ImageURL       string     `json:"image_url,omitempty"`
	AttachmentName string     `json:"attachment_name,omitempty"`
	Schedule       Schedule   `json:"schedule"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday converts a lowercase or mixed-case weekday name to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return wd, nil
}
