package domain

import (
	"fmt"
	"time"
)

// CalendarDate is a valid Gregorian date without time or zone.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// NewCalendarDate reports false when the components do not form a real date.
func NewCalendarDate(year int, month time.Month, day int) (CalendarDate, bool) {
	if month < time.January || month > time.December || day < 1 {
		return CalendarDate{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return CalendarDate{}, false
	}
	return CalendarDate{Year: year, Month: month, Day: day}, true
}

func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

func (d CalendarDate) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d CalendarDate) IsZero() bool {
	return d == CalendarDate{}
}

func (d CalendarDate) AddDays(n int) CalendarDate {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Compare returns -1, 0 or +1.
func (d CalendarDate) Compare(other CalendarDate) int {
	return d.Time().Compare(other.Time())
}

// DaysBetween returns the absolute number of days between d and other.
func (d CalendarDate) DaysBetween(other CalendarDate) int {
	diff := int(d.Time().Sub(other.Time()).Hours() / 24)
	if diff < 0 {
		return -diff
	}
	return diff
}

func (d CalendarDate) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}
