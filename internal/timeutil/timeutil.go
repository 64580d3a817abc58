// Package timeutil converts between the persisted time representations of a
// relay plan, the MM:SS / HH:MM strings users type, and durations.
//
// Times of day are anchored to ReferenceDate; only the clock reading of such
// a value carries meaning.
package timeutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ReferenceDate is the fixed date every time-of-day value is anchored to.
var ReferenceDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Input mask limits for a pace string.
const (
	maxPaceMinutes = 24
	maxPaceSeconds = 59
)

// ParsePace converts a "MM:SS" pace into a duration. Both groups must be
// non-negative integers; anything else yields ErrInvalidPace.
func ParsePace(s string) (time.Duration, error) {
	minutes, seconds, err := splitPair(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPace, s)
	}
	return time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second, nil
}

// ValidatePace checks a pace against the entry mask: two digit minutes no
// greater than 24 and two digit seconds no greater than 59.
func ValidatePace(s string) error {
	if len(s) != len("00:00") || s[2] != ':' {
		return fmt.Errorf("%w: %q must be MM:SS", ErrInvalidPace, s)
	}
	minutes, seconds, err := splitPair(s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidPace, s)
	}
	if minutes > maxPaceMinutes {
		return fmt.Errorf("%w: %q minutes above %d", ErrInvalidPace, s, maxPaceMinutes)
	}
	if seconds > maxPaceSeconds {
		return fmt.Errorf("%w: %q seconds above %d", ErrInvalidPace, s, maxPaceSeconds)
	}
	return nil
}

// ScaleDuration multiplies d by multiplier.
func ScaleDuration(d time.Duration, multiplier float64) time.Duration {
	return time.Duration(math.Round(float64(d) * multiplier))
}

// FormatDuration renders d as zero padded total minutes and seconds. The
// sub-second remainder is dropped.
func FormatDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	d = d.Truncate(time.Second)
	minutes := int64(d / time.Minute)
	seconds := int64((d % time.Minute) / time.Second)
	return fmt.Sprintf("%s%02d:%02d", sign, minutes, seconds)
}

// FormatTimeOfDay renders the clock reading of t as 24 hour "HH:MM".
func FormatTimeOfDay(t time.Time) string {
	return t.Format("15:04")
}

// FormatHuman renders the clock reading of t as "hh:mm AM".
func FormatHuman(t time.Time) string {
	return t.Format("03:04 PM")
}

// ParseTimeOfDay parses "HH:MM" into a time anchored to ReferenceDate.
func ParseTimeOfDay(s string) (time.Time, error) {
	hours, minutes, err := splitPair(s)
	if err != nil || hours > 23 || minutes > 59 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return ReferenceDate.Add(time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute), nil
}

// Anchor moves the clock reading of t onto ReferenceDate so values recorded
// on different dates compare by time of day only.
func Anchor(t time.Time) time.Time {
	return time.Date(ReferenceDate.Year(), ReferenceDate.Month(), ReferenceDate.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// NotBefore rolls t forward by whole days until it is not earlier than floor.
// The result is the first instant at or after floor with t's clock reading.
func NotBefore(t, floor time.Time) time.Time {
	if !t.Before(floor) {
		return t
	}
	t = t.In(floor.Location())
	y, m, d := floor.Date()
	moved := time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), floor.Location())
	if moved.Before(floor) {
		moved = moved.AddDate(0, 0, 1)
	}
	return moved
}

func splitPair(s string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected two groups, got %d", len(parts))
	}
	first, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	second, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if first < 0 || second < 0 {
		return 0, 0, fmt.Errorf("negative group in %q", s)
	}
	return first, second, nil
}
