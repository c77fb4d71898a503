// Package timeofday converts wall-clock times to minutes since midnight and
// answers interval overlap queries. All scheduling comparisons go through
// this package so overlap semantics are defined in one place.
package timeofday

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const MinutesPerDay = 24 * 60

var ErrInvalidClock = errors.New("invalid time of day")

// Clock is a naive time of day in minutes since midnight, in [0, 1440).
type Clock int

// New builds a Clock from an hour and minute.
func New(hour, minute int) (Clock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %02d:%02d", ErrInvalidClock, hour, minute)
	}
	return Clock(hour*60 + minute), nil
}

// Parse reads an "HH:MM" string. Single-digit hours ("9:30") are accepted.
func Parse(s string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(m) != 2 || len(h) == 0 || len(h) > 2 || !digits(h) || !digits(m) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return New(hour, minute)
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MustParse is Parse for literals; it panics on malformed input.
func MustParse(s string) Clock {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FromTime takes the wall-clock hour and minute of t, dropping seconds.
func FromTime(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) Valid() bool {
	return c >= 0 && c < MinutesPerDay
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// ToMinutes returns c as minutes since midnight.
func ToMinutes(c Clock) int {
	return int(c)
}

// Overlaps reports whether [startA, endA) and [startB, endB) intersect.
// Touching endpoints do not overlap. Callers guarantee start < end.
func Overlaps(startA, endA, startB, endB Clock) bool {
	return max(ToMinutes(startA), ToMinutes(startB)) < min(ToMinutes(endA), ToMinutes(endB))
}

func (c Clock) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d minutes", ErrInvalidClock, int(c))
	}
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts either "HH:MM" or {"hour": H, "minute": M}.
func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}

	var parts struct {
		Hour   *int `json:"hour"`
		Minute *int `json:"minute"`
	}
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidClock, string(data))
	}
	if parts.Hour == nil {
		return fmt.Errorf("%w: hour is required", ErrInvalidClock)
	}
	minute := 0
	if parts.Minute != nil {
		minute = *parts.Minute
	}
	parsed, err := New(*parts.Hour, minute)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
