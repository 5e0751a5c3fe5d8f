// internal/collections/date.go
package collections

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const isoDateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day and no zone. Installment due dates are
// stored as DATE columns and must never be shifted by a timezone conversion.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes out-of-range values the same way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf takes the wall-clock date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current date as seen in loc.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(time.Now().In(loc))
}

// ParseDate parses "YYYY-MM-DD". Anything after the date part (a time or an offset) is ignored.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(isoDateLayout) {
		s = s[:len(isoDateLayout)]
	}
	t, err := time.Parse(isoDateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for constants and tests.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// AddDays moves the date by n days; n may be negative.
func (d Date) AddDays(n int) Date {
	return DateOf(d.midnightUTC().AddDate(0, 0, n))
}

func (d Date) Equal(o Date) bool {
	return d == o
}

func (d Date) Before(o Date) bool {
	return d.midnightUTC().Before(o.midnightUTC())
}

// Format renders the date with a time layout, e.g. "02/01/2006".
func (d Date) Format(layout string) string {
	if d.IsZero() {
		return ""
	}
	return d.midnightUTC().Format(layout)
}

func (d Date) String() string {
	return d.Format(isoDateLayout)
}

func (d Date) midnightUTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Scan keeps the driver's year, month and day as-is. lib/pq hands DATE columns over as a
// time.Time at midnight; converting it to local time first would move the day backwards
// for zones west of UTC.
func (d *Date) Scan(v any) error {
	switch x := v.(type) {
	case time.Time:
		*d = DateOf(x)
		return nil
	case []byte:
		return d.parse(string(x))
	case string:
		return d.parse(x)
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("date: unsupported Scan type %T", v)
	}
}

func (d *Date) parse(s string) error {
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	return d.parse(s)
}
