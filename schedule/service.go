package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"postscheduler/pkg/scheduler"
	"postscheduler/platform"
	"postscheduler/store"
)

// Store is the slice of the post store the scheduling service consumes.
type Store interface {
	Insert(ctx context.Context, post *scheduler.ScheduledPost) (*scheduler.ScheduledPost, error)
	Update(ctx context.Context, id string, p store.Patch) error
}

// Config holds scheduling service configuration.
type Config struct {
	Store      Store
	Publishers platform.Registry
	Logger     *slog.Logger
	Location   *time.Location   // local interpretation of dates/times; nil means time.Local
	Now        func() time.Time // nil means time.Now
}

// Service validates scheduling intents and materializes them as pending
// post records, one per platform and occurrence.
type Service struct {
	store      Store
	publishers platform.Registry
	logger     *slog.Logger
	loc        *time.Location
	now        func() time.Time
}

// New creates a scheduling service.
func New(cfg *Config) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:      cfg.Store,
		publishers: cfg.Publishers,
		logger:     cfg.Logger,
		loc:        loc,
		now:        now,
	}
}

// Receipt reports what scheduling produced. EagerSent counts records that
// were due immediately and published on the spot; EagerErrors carries
// best-effort first-attempt failures whose records remain pending for the
// dispatch loop.
type Receipt struct {
	Posts       []*scheduler.ScheduledPost `json:"posts"`
	EagerSent   int                        `json:"eager_sent"`
	EagerErrors []string                   `json:"eager_errors,omitempty"`
}

// Schedule validates the intent, computes its occurrences, and writes one
// pending record per platform and occurrence. Validation failures write
// nothing. Records that are already due get one immediate publish attempt;
// on success the record is marked sent right away so the dispatch loop can
// never redeliver it, and on failure it stays pending for the loop.
func (s *Service) Schedule(ctx context.Context, intent scheduler.Intent) (*Receipt, error) {
	if err := validateIntent(intent); err != nil {
		return nil, err
	}

	occurrences, err := s.occurrences(intent.Schedule)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{}
	for _, p := range intent.Platforms {
		for _, at := range occurrences {
			saved, err := s.store.Insert(ctx, &scheduler.ScheduledPost{
				Platform:       p,
				Content:        intent.Content,
				ImageURL:       intent.ImageURL,
				AttachmentName: intent.AttachmentName,
				ScheduledAt:    at,
				Status:         scheduler.StatusPending,
			})
			if err != nil {
				return nil, fmt.Errorf("insert post record: %w", err)
			}
			receipt.Posts = append(receipt.Posts, saved)
		}
	}

	s.logger.Info("Scheduling intent materialized",
		"platforms", len(intent.Platforms),
		"occurrences", len(occurrences),
		"records", len(receipt.Posts))

	s.eagerPublish(ctx, receipt)
	return receipt, nil
}

// eagerPublish gives already-due records one immediate attempt for user
// feedback. Failures never block scheduling; successes write the same
// terminal transition the dispatch loop would.
func (s *Service) eagerPublish(ctx context.Context, receipt *Receipt) {
	now := s.now().UTC()
	for _, post := range receipt.Posts {
		if post.ScheduledAt.After(now) {
			continue
		}
		pub, ok := s.publishers.For(post.Platform)
		if !ok {
			continue
		}

		resp, err := pub.Publish(ctx, post.Content)
		if err != nil {
			s.logger.Warn("Eager publish failed, record stays pending for the dispatch loop",
				"id", post.ID,
				"platform", post.Platform,
				"error", err)
			receipt.EagerErrors = append(receipt.EagerErrors, fmt.Sprintf("%s: %v", post.Platform, err))
			continue
		}

		sent := scheduler.StatusSent
		if err := s.store.Update(ctx, post.ID, store.Patch{
			Status:    &sent,
			Response:  &resp,
			UpdatedAt: now,
		}); err != nil {
			// The publish went out but the record still says pending: the
			// loop may redeliver. Loud log so an operator can reconcile.
			s.logger.Error("Eager publish succeeded but status update failed; record may be redelivered",
				"id", post.ID,
				"platform", post.Platform,
				"error", err)
			continue
		}
		post.Status = sent
		post.Response = resp
		post.UpdatedAt = now
		receipt.EagerSent++
	}
}

func (s *Service) occurrences(sched scheduler.Schedule) ([]time.Time, error) {
	hour, minute, err := parseClock(sched.Time)
	if err != nil {
		return nil, &scheduler.ValidationError{Reason: err.Error()}
	}

	switch sched.Type {
	case scheduler.ScheduleSpecificDate:
		day, err := time.ParseInLocation("2006-01-02", sched.Date, s.loc)
		if err != nil {
			return nil, &scheduler.ValidationError{Reason: fmt.Sprintf("invalid date %q", sched.Date)}
		}
		at := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, s.loc)
		return []time.Time{at.UTC()}, nil

	case scheduler.ScheduleRecurring:
		now := s.now().In(s.loc)
		seen := make(map[time.Weekday]bool, len(sched.Weekdays))
		out := make([]time.Time, 0, len(sched.Weekdays))
		for _, wd := range sched.Weekdays {
			// A repeated weekday must not materialize a duplicate record.
			if seen[wd] {
				continue
			}
			seen[wd] = true
			out = append(out, NextOccurrence(now, wd, hour, minute).UTC())
		}
		return out, nil

	default:
		return nil, &scheduler.ValidationError{Reason: fmt.Sprintf("unknown schedule type %q", sched.Type)}
	}
}

func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

func validateIntent(intent scheduler.Intent) error {
	err := validation.ValidateStruct(&intent,
		validation.Field(&intent.Platforms,
			validation.Required.Error("at least one platform is required"),
			validation.Each(validation.By(knownPlatform))),
		validation.Field(&intent.Content,
			validation.Required.Error("content must not be empty")),
		validation.Field(&intent.Schedule, validation.By(validSchedule)),
	)
	if err != nil {
		return &scheduler.ValidationError{Reason: err.Error()}
	}
	return nil
}

func knownPlatform(value any) error {
	p, _ := value.(scheduler.Platform)
	if !p.Known() {
		return fmt.Errorf("unsupported platform %q", p)
	}
	return nil
}

func validSchedule(value any) error {
	sched, _ := value.(scheduler.Schedule)
	if sched.Time == "" {
		return fmt.Errorf("time is required")
	}
	switch sched.Type {
	case scheduler.ScheduleSpecificDate:
		if sched.Date == "" {
			return fmt.Errorf("date is required for a specific-date schedule")
		}
	case scheduler.ScheduleRecurring:
		if len(sched.Weekdays) == 0 {
			return fmt.Errorf("at least one weekday is required for a recurring schedule")
		}
	default:
		return fmt.Errorf("unknown schedule type %q", sched.Type)
	}
	return nil
}
