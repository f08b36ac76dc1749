package forecast

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day without a time component
// =============================================================================

// DateLayout is the wire and storage layout for dates.
const DateLayout = "2006-01-02"

// Date is a calendar day. Lifecycle events and month boundaries are all
// day-granular, so Date always sits at UTC midnight.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return Date{Time: t}, nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
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
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween returns the number of whole days from one date to another.
func DaysBetween(from, to Date) int { return int(to.Time.Sub(from.Time).Hours() / 24) }

func StartOfYear(year int) Date { return NewDate(year, time.January, 1) }
func EndOfYear(year int) Date   { return NewDate(year, time.December, 31) }
func StartOfMonth(year int, month time.Month) Date {
	return NewDate(year, month, 1)
}
func EndOfMonth(year int, month time.Month) Date {
	return Date{Time: time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)}
}

// =============================================================================
// PERIOD - Closed date range
// =============================================================================

// Period is the closed range [Start, End].
type Period struct {
	Start Date
	End   Date
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// MONTH SPAN - One accounting month and its second-week threshold
// =============================================================================

// SecondWeekDay is the last day of the second standard week.
const SecondWeekDay = 14

// MonthSpan is one calendar month of a forecast year.
type MonthSpan struct {
	Period
	Year  int
	Month time.Month
}

func SpanOf(year int, month time.Month) MonthSpan {
	return MonthSpan{
		Period: Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)},
		Year:   year,
		Month:  month,
	}
}

// Days is the number of calendar days in the month.
func (s MonthSpan) Days() int { return DaysBetween(s.Start, s.End) + 1 }

// Threshold is the second-week cutoff: day 14, or the last day of a shorter month.
// Lifecycle events on or before it take effect from their actual date; events
// after it are treated as if they had not happened within the month.
func (s MonthSpan) Threshold() Date {
	day := SecondWeekDay
	if last := s.End.Day(); last < day {
		day = last
	}
	return NewDate(s.Year, s.Month, day)
}

// Months returns the twelve spans of a year in calendar order.
func Months(year int) []MonthSpan {
	spans := make([]MonthSpan, 0, 12)
	for m := time.January; m <= time.December; m++ {
		spans = append(spans, SpanOf(year, m))
	}
	return spans
}

// MonthName is the short display label for a month number (1-12).
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return time.Month(month).String()[:3]
}
