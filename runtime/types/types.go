// Package types provides the scalar types shared by expressions, query results and metadata.
package types

import (
	"fmt"
	"time"

	"github.com/baltrad/bdb-go/runtime/dberr"
)

// Date is a calendar date without a time zone
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate creates a date, validating the day against the month
func NewDate(year int, month time.Month, day int) (Date, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, dberr.Value("invalid date %04d-%02d-%02d", year, month, day)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// MustDate is NewDate that panics on an invalid date
func MustDate(year int, month time.Month, day int) Date {
	d, err := NewDate(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the date part of t
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate accepts ISO (2006-01-02) and ODIM (20060102) forms
func ParseDate(s string) (Date, error) {
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, dberr.Value("unparseable date %q", s)
}

// String returns the ISO form
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC of the date
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Compare returns -1, 0 or 1
func (d Date) Compare(o Date) int {
	return d.Time().Compare(o.Time())
}

// Time is a time of day without a date
type Time struct {
	Hour   int
	Minute int
	Second int
	Usec   int
}

// NewTime creates a time of day
func NewTime(hour, minute, second, usec int) (Time, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 || usec < 0 || usec > 999999 {
		return Time{}, dberr.Value("invalid time %02d:%02d:%02d.%06d", hour, minute, second, usec)
	}
	return Time{Hour: hour, Minute: minute, Second: second, Usec: usec}, nil
}

// MustTime is NewTime that panics on an invalid time
func MustTime(hour, minute, second int) Time {
	t, err := NewTime(hour, minute, second, 0)
	if err != nil {
		panic(err)
	}
	return t
}

// TimeOf returns the time-of-day part of t
func TimeOf(t time.Time) Time {
	return Time{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Usec: t.Nanosecond() / 1000}
}

// ParseTime accepts ISO (15:04:05[.999999]) and ODIM (150405) forms
func ParseTime(s string) (Time, error) {
	for _, layout := range []string{"15:04:05.999999", "15:04:05", "150405"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOf(t), nil
		}
	}
	return Time{}, dberr.Value("unparseable time %q", s)
}

// String returns the ISO form, with microseconds only when present
func (t Time) String() string {
	if t.Usec != 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%06d", t.Hour, t.Minute, t.Second, t.Usec)
	}
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Duration returns the offset from midnight
func (t Time) Duration() time.Duration {
	return time.Duration(t.Hour)*time.Hour +
		time.Duration(t.Minute)*time.Minute +
		time.Duration(t.Second)*time.Second +
		time.Duration(t.Usec)*time.Microsecond
}

// Compare returns -1, 0 or 1
func (t Time) Compare(o Time) int {
	a, b := t.Duration(), o.Duration()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Combine joins a date and a time into a UTC timestamp
func Combine(d Date, t Time) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, t.Second, t.Usec*1000, time.UTC)
}

// DateTimeLayout is the textual timestamp form used in SQL literals and binds.
const DateTimeLayout = "2006-01-02 15:04:05"

// ParseDateTime accepts the SQL timestamp form and RFC 3339
func ParseDateTime(s string) (time.Time, error) {
	for _, layout := range []string{DateTimeLayout, "2006-01-02 15:04:05.999999999", time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, dberr.Value("unparseable datetime %q", s)
}
