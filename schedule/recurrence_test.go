package schedule

import (
	"testing"
	"time"
)

func TestNextOccurrence(t *testing.T) {
	// Wednesday, 2024-01-03 10:00 UTC.
	now := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		weekday time.Weekday
		hour    int
		minute  int
		want    time.Time
	}{
		{
			name:    "same day, later time fires today",
			weekday: time.Wednesday,
			hour:    14, minute: 30,
			want: time.Date(2024, 1, 3, 14, 30, 0, 0, time.UTC),
		},
		{
			name:    "same day, earlier time rolls to next week",
			weekday: time.Wednesday,
			hour:    9, minute: 0,
			want: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "same day, exactly now counts as not yet passed",
			weekday: time.Wednesday,
			hour:    10, minute: 0,
			want: time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC),
		},
		{
			name:    "one minute before now rolls to next week",
			weekday: time.Wednesday,
			hour:    9, minute: 59,
			want: time.Date(2024, 1, 10, 9, 59, 0, 0, time.UTC),
		},
		{
			name:    "next monday",
			weekday: time.Monday,
			hour:    14, minute: 0,
			want: time.Date(2024, 1, 8, 14, 0, 0, 0, time.UTC),
		},
		{
			name:    "tomorrow",
			weekday: time.Thursday,
			hour:    0, minute: 0,
			want: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "yesterday's weekday lands six days out",
			weekday: time.Tuesday,
			hour:    23, minute: 59,
			want: time.Date(2024, 1, 9, 23, 59, 0, 0, time.UTC),
		},
		{
			name:    "sunday wraps the weekday numbering",
			weekday: time.Sunday,
			hour:    8, minute: 15,
			want: time.Date(2024, 1, 7, 8, 15, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextOccurrence(now, tt.weekday, tt.hour, tt.minute)
			if !got.Equal(tt.want) {
				t.Errorf("NextOccurrence() = %v, want %v", got, tt.want)
			}
			if got.Before(now) {
				t.Errorf("NextOccurrence() = %v is before now %v", got, now)
			}
		})
	}
}

func TestNextOccurrenceIdempotent(t *testing.T) {
	now := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	first := NextOccurrence(now, time.Friday, 12, 0)
	second := NextOccurrence(now, time.Friday, 12, 0)
	if !first.Equal(second) {
		t.Errorf("NextOccurrence() not idempotent: %v vs %v", first, second)
	}
}

func TestNextOccurrenceZeroesSeconds(t *testing.T) {
	now := time.Date(2024, 1, 3, 10, 0, 42, 999, time.UTC)
	got := NextOccurrence(now, time.Friday, 12, 30)
	if got.Second() != 0 || got.Nanosecond() != 0 {
		t.Errorf("NextOccurrence() = %v, want seconds and nanoseconds zeroed", got)
	}
}
