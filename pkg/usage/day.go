package usage

import (
	"fmt"
	"time"
)

const dayFormat = "2006-01-02"

// Day is a UTC calendar date in YYYY-MM-DD form. Using a dedicated type
// keeps every counter read and write pinned to the same day discipline.
type Day string

// DayOf returns the UTC calendar day of t.
func DayOf(t time.Time) Day {
	return Day(t.UTC().Format(dayFormat))
}

// ParseDay validates a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	if _, err := time.Parse(dayFormat, s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return Day(s), nil
}

// AddDays returns the day shifted by n calendar days.
func (d Day) AddDays(n int) Day {
	t, err := time.Parse(dayFormat, string(d))
	if err != nil {
		return d
	}
	return DayOf(t.AddDate(0, 0, n))
}

func (d Day) String() string {
	return string(d)
}

// Time returns midnight UTC of the day.
func (d Day) Time() (time.Time, error) {
	t, err := time.Parse(dayFormat, string(d))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDay, string(d))
	}
	return t.UTC(), nil
}
