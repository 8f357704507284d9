package ledger

import (
	"testing"
	"time"
)

func TestAddMonthsClamped_MonthEnd(t *testing.T) {
	// GIVEN: Jan 31 in a non-leap year
	// WHEN: Adding one month
	// THEN: The result is Feb 28, never Mar 2/3
	jan31 := NewDate(2023, time.January, 31)
	if got := jan31.AddMonthsClamped(1); !got.Equal(NewDate(2023, time.February, 28)) {
		t.Errorf("Jan 31 2023 + 1 month = %s, want 2023-02-28", got)
	}

	// Leap year keeps Feb 29
	jan31leap := NewDate(2024, time.January, 31)
	if got := jan31leap.AddMonthsClamped(1); !got.Equal(NewDate(2024, time.February, 29)) {
		t.Errorf("Jan 31 2024 + 1 month = %s, want 2024-02-29", got)
	}
}

func TestAddMonthsClamped_AnchoredOnOriginalDay(t *testing.T) {
	// Stepping is anchored on the original date: the clamp in February
	// must not shorten later months.
	jan31 := NewDate(2023, time.January, 31)
	if got := jan31.AddMonthsClamped(2); !got.Equal(NewDate(2023, time.March, 31)) {
		t.Errorf("Jan 31 + 2 months = %s, want 2023-03-31", got)
	}
	if got := jan31.AddMonthsClamped(3); !got.Equal(NewDate(2023, time.April, 30)) {
		t.Errorf("Jan 31 + 3 months = %s, want 2023-04-30", got)
	}
}

func TestAddMonthsClamped_YearBoundary(t *testing.T) {
	nov15 := NewDate(2023, time.November, 15)
	if got := nov15.AddMonthsClamped(3); !got.Equal(NewDate(2024, time.February, 15)) {
		t.Errorf("Nov 15 + 3 months = %s, want 2024-02-15", got)
	}
}

func TestNextWorkday(t *testing.T) {
	// Saturday and Sunday shift to the following Monday
	sat := NewDate(2024, time.January, 6)
	sun := NewDate(2024, time.January, 7)
	mon := NewDate(2024, time.January, 8)

	if got := sat.NextWorkday(); !got.Equal(mon) {
		t.Errorf("NextWorkday(Sat) = %s, want %s", got, mon)
	}
	if got := sun.NextWorkday(); !got.Equal(mon) {
		t.Errorf("NextWorkday(Sun) = %s, want %s", got, mon)
	}
	// A workday maps to itself
	if got := mon.NextWorkday(); !got.Equal(mon) {
		t.Errorf("NextWorkday(Mon) = %s, want %s", got, mon)
	}
}

func TestStartOfWeek(t *testing.T) {
	// The week starts on Monday; Sunday belongs to the preceding week
	wed := NewDate(2024, time.January, 10)
	sun := NewDate(2024, time.January, 14)
	mon := NewDate(2024, time.January, 8)

	if got := wed.StartOfWeek(); !got.Equal(mon) {
		t.Errorf("StartOfWeek(Wed Jan 10) = %s, want %s", got, mon)
	}
	if got := sun.StartOfWeek(); !got.Equal(mon) {
		t.Errorf("StartOfWeek(Sun Jan 14) = %s, want %s", got, mon)
	}
}

func TestDaysBetween(t *testing.T) {
	a := NewDate(2024, time.January, 1)
	b := NewDate(2024, time.January, 15)
	if got := DaysBetween(a, b); got != 14 {
		t.Errorf("DaysBetween = %d, want 14", got)
	}
	if got := DaysBetween(b, a); got != -14 {
		t.Errorf("DaysBetween reversed = %d, want -14", got)
	}
	// Across the DST-free UTC March boundary
	if got := DaysBetween(NewDate(2024, time.February, 28), NewDate(2024, time.March, 1)); got != 2 {
		t.Errorf("DaysBetween across leap Feb = %d, want 2", got)
	}
}

func TestWindow(t *testing.T) {
	from := NewDate(2024, time.January, 1)
	to := NewDate(2024, time.January, 31)

	w, err := NewWindow(from, to)
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	if !w.Contains(from) || !w.Contains(to) {
		t.Error("window bounds are inclusive")
	}
	if w.Contains(NewDate(2024, time.February, 1)) {
		t.Error("window must not contain dates past To")
	}

	// Inverted windows are a validation error
	if _, err := NewWindow(to, from); err == nil {
		t.Error("inverted window must be rejected")
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2024, time.March, 31)
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(b) != `"2024-03-31"` {
		t.Errorf("MarshalJSON = %s", b)
	}

	var back Date
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if !back.Equal(d) {
		t.Errorf("round trip = %s, want %s", back, d)
	}
}
