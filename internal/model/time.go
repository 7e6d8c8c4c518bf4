package model

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeOfDay is a simulated instant in seconds since midnight.
type TimeOfDay int64

// Common instants.
const (
	Midnight  TimeOfDay = 0
	EndOfDay  TimeOfDay = 24*3600 - 1
	secPerMin           = 60
	secPerHr            = 3600
)

// At builds a TimeOfDay from hours, minutes and seconds.
func At(h, m, s int) TimeOfDay {
	return TimeOfDay(h*secPerHr + m*secPerMin + s)
}

// Add returns t advanced by secs seconds.
func (t TimeOfDay) Add(secs int64) TimeOfDay {
	return t + TimeOfDay(secs)
}

// Sub returns t - u in seconds.
func (t TimeOfDay) Sub(u TimeOfDay) int64 {
	return int64(t - u)
}

// Before reports whether t is strictly earlier than u.
func (t TimeOfDay) Before(u TimeOfDay) bool { return t < u }

// After reports whether t is strictly later than u.
func (t TimeOfDay) After(u TimeOfDay) bool { return t > u }

// String formats t as HH:MM:SS. Values past midnight keep counting hours.
func (t TimeOfDay) String() string {
	sign := ""
	v := int64(t)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, v/secPerHr, (v%secPerHr)/secPerMin, v%secPerMin)
}

// MaxTime returns the later of the given instants.
func MaxTime(first TimeOfDay, rest ...TimeOfDay) TimeOfDay {
	m := first
	for _, t := range rest {
		if t > m {
			m = t
		}
	}
	return m
}

// MinTime returns the earlier of the given instants.
func MinTime(first TimeOfDay, rest ...TimeOfDay) TimeOfDay {
	m := first
	for _, t := range rest {
		if t < m {
			m = t
		}
	}
	return m
}

// ParseTimeOfDay parses a wall-clock "HH:MM" or "HH:MM:SS" within one day.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	return parseClock(s, 24)
}

// ParseClock is ParseTimeOfDay without the 24 hour limit, so it reads back
// every value String prints, including instants past midnight.
func ParseClock(s string) (TimeOfDay, error) {
	return parseClock(s, 0)
}

// parseClock bounds the hour by maxHour unless it is zero.
func parseClock(s string, maxHour int) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("parse time of day %q: want HH:MM or HH:MM:SS", s)
	}

	var vals [3]int
	limits := [3]int{maxHour, 60, 60}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("parse time of day %q: %w", s, err)
		}
		if n < 0 || (limits[i] > 0 && n >= limits[i]) {
			return 0, fmt.Errorf("parse time of day %q: component %d out of range", s, i)
		}
		vals[i] = n
	}

	return At(vals[0], vals[1], vals[2]), nil
}

// MustParseTimeOfDay is ParseTimeOfDay for constants and tests. Panics on error.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Window is a closed interval [Start, End] of simulated time.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Contains reports whether t lies inside the window, bounds included.
func (w Window) Contains(t TimeOfDay) bool {
	return t >= w.Start && t <= w.End
}

// Valid reports whether the window is non-empty.
func (w Window) Valid() bool {
	return w.Start <= w.End
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// MarshalText encodes t as HH:MM:SS so traces and configs stay readable.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts HH:MM or HH:MM:SS, hours past 23 included.
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
