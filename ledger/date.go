package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar date (this IS a calendar scheduling system)
// =============================================================================

// Date is a calendar day in UTC. All scheduling in this engine is
// day-granular; times of day never matter.
type Date struct {
	t time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(o Date) bool        { return d.t.Before(o.t) }
func (d Date) After(o Date) bool         { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool         { return d.t.Equal(o.t) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }
func (d Date) IsZero() bool              { return d.t.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// AddMonthsClamped adds n months keeping the day-of-month, clamped to the
// last valid day of a shorter target month. Jan 31 + 1 month = Feb 28 (29 in
// a leap year), never Mar 2/3. Stepping is always anchored on the original
// date, so Jan 31 + 2 months is Mar 31, not Mar 28.
func (d Date) AddMonthsClamped(n int) Date {
	year, month, day := d.t.Date()
	// Normalize target year/month without day overflow.
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	ty, tm := first.Year(), first.Month()
	if last := daysIn(ty, tm); day > last {
		day = last
	}
	return NewDate(ty, tm, day)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) Time() time.Time       { return d.t }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
func (d Date) IsWorkday() bool { return !d.IsWeekend() }

// NextWorkday returns d if it is already a workday, otherwise the next
// Monday. Used for weekend shifting of generated occurrence dates.
func (d Date) NextWorkday() Date {
	for d.IsWeekend() {
		d = d.AddDays(1)
	}
	return d
}

func (d Date) String() string { return d.t.Format("2006-01-02") }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date literal %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween returns the number of days from a to b (negative if b < a).
func DaysBetween(a, b Date) int {
	return int(b.t.Sub(a.t).Hours() / 24)
}

// StartOfWeek returns the Monday of the week containing d.
func (d Date) StartOfWeek() Date {
	wd := int(d.Weekday())
	if wd == 0 { // Sunday
		wd = 7
	}
	return d.AddDays(1 - wd)
}

// =============================================================================
// WINDOW - Materialization window [From, To]
// =============================================================================

// Window is the inclusive date range over which occurrences are requested.
type Window struct {
	From Date
	To   Date
}

func NewWindow(from, to Date) (Window, error) {
	if to.Before(from) {
		return Window{}, &ValidationError{Field: "window", Reason: "end before start"}
	}
	return Window{From: from, To: to}, nil
}

func (w Window) Contains(d Date) bool {
	return d.AfterOrEqual(w.From) && d.BeforeOrEqual(w.To)
}

func (w Window) String() string {
	return "[" + w.From.String() + ", " + w.To.String() + "]"
}
