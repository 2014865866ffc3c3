package core

import (
	"encoding/json"
	"time"
)

// DateFormat is the wire and storage representation of dates.
const DateFormat = "2006-01-02"

// MonthKeyFormat is the YYYY-MM key used by the period aggregator.
const MonthKeyFormat = "2006-01"

// Date is a day-granularity calendar date. It is a comparable value type; the
// zero value means "no date".
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns a normalized Date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// Today returns the current date in local time.
func Today() Date { return NewDate(time.Now().Date()) }

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return NewDate(t.Date()), nil
}

func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

func (d Date) Year() int             { return d.y }
func (d Date) Month() time.Month     { return d.m }
func (d Date) Day() int              { return d.d }
func (d Date) Weekday() time.Weekday { return d.time().Weekday() }
func (d Date) IsZero() bool          { return d.y == 0 && d.m == 0 && d.d == 0 }
func (d Date) Before(x Date) bool    { return d.time().Before(x.time()) }
func (d Date) After(x Date) bool     { return d.time().After(x.time()) }
func (d Date) String() string        { return d.time().Format(DateFormat) }

// MonthKey returns the YYYY-MM aggregation key for the date.
func (d Date) MonthKey() string { return d.time().Format(MonthKeyFormat) }

// Add returns the date i calendar days later (earlier when negative).
func (d Date) Add(i int) Date { return NewDate(d.y, d.m, d.d+i) }

// AddMonths returns the date n calendar months later, keeping the day of
// month and clamping to the last day of the target month when the source day
// does not exist there (Jan 31 + 1 month = Feb 28/29).
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.y, d.m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := d.d
	if day > last {
		day = last
	}
	return NewDate(first.Year(), first.Month(), day)
}

// IsBusinessDay reports whether the date falls on Monday through Friday.
// There is no holiday calendar.
func (d Date) IsBusinessDay() bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// AddBusinessDays advances the date one calendar day at a time until n
// weekdays have been consumed. n must be non-negative.
func AddBusinessDays(start Date, n int) (Date, error) {
	if n < 0 {
		return Date{}, ErrInvalidInput
	}
	d := start
	for counted := 0; counted < n; {
		d = d.Add(1)
		if d.IsBusinessDay() {
			counted++
		}
	}
	return d, nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	if s == nil || *s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
