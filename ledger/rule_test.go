package ledger

import (
	"errors"
	"testing"
	"time"
)

func endNever() EndCondition { return EndCondition{Kind: EndNever} }

func TestRuleValidate_FixedStepTypes(t *testing.T) {
	for _, typ := range []RecurrenceType{RecurNone, RecurDaily, RecurWeekly, RecurMonthly} {
		rule := RecurrenceRule{Type: typ, End: endNever()}
		if typ == RecurWeekly {
			rule.Weekdays = NewWeekdaySet(time.Monday)
		}
		if err := rule.Validate(); err != nil {
			t.Errorf("%s rule should validate: %v", typ, err)
		}
	}
}

func TestRuleValidate_IntervalBounds(t *testing.T) {
	// Interval below 1 is rejected at rule-creation time, not at
	// materialization time.
	rule := RecurrenceRule{Type: RecurInterval, Interval: 0, Unit: UnitDay, End: endNever()}
	err := rule.Validate()
	if !errors.Is(err, ErrValidation) {
		t.Errorf("zero interval: got %v, want validation error", err)
	}

	rule.Interval = -3
	if err := rule.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("negative interval: got %v, want validation error", err)
	}

	rule.Interval = 1
	if err := rule.Validate(); err != nil {
		t.Errorf("interval 1 should validate: %v", err)
	}
}

func TestRuleValidate_IntervalRequiresUnit(t *testing.T) {
	rule := RecurrenceRule{Type: RecurInterval, Interval: 2, End: endNever()}
	if err := rule.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("missing unit: got %v, want validation error", err)
	}

	rule.Unit = "fortnight"
	if err := rule.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown unit: got %v, want validation error", err)
	}
}

func TestRuleValidate_ExactlyOneEndCondition(t *testing.T) {
	d := NewDate(2024, time.December, 31)

	cases := []struct {
		name string
		end  EndCondition
		ok   bool
	}{
		{"never", EndCondition{Kind: EndNever}, true},
		{"by date", EndCondition{Kind: EndByDate, Date: &d}, true},
		{"by count", EndCondition{Kind: EndByCount, Count: 10}, true},
		{"never with date", EndCondition{Kind: EndNever, Date: &d}, false},
		{"never with count", EndCondition{Kind: EndNever, Count: 3}, false},
		{"by date without date", EndCondition{Kind: EndByDate}, false},
		{"by date with count", EndCondition{Kind: EndByDate, Date: &d, Count: 3}, false},
		{"by count without count", EndCondition{Kind: EndByCount}, false},
		{"by count with date", EndCondition{Kind: EndByCount, Count: 3, Date: &d}, false},
		{"unknown kind", EndCondition{Kind: "until further notice"}, false},
	}

	for _, tc := range cases {
		rule := RecurrenceRule{Type: RecurDaily, End: tc.end}
		err := rule.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrValidation) {
			t.Errorf("%s: got %v, want validation error", tc.name, err)
		}
	}
}

func TestRuleValidate_WeekdaysOnlyForWeeklyAndInterval(t *testing.T) {
	rule := RecurrenceRule{
		Type:     RecurMonthly,
		Weekdays: NewWeekdaySet(time.Friday),
		End:      endNever(),
	}
	if err := rule.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("monthly rule with weekdays: got %v, want validation error", err)
	}

	rule = RecurrenceRule{
		Type:     RecurInterval,
		Interval: 2,
		Unit:     UnitWeek,
		Weekdays: NewWeekdaySet(time.Monday, time.Friday),
		End:      endNever(),
	}
	if err := rule.Validate(); err != nil {
		t.Errorf("interval rule with weekdays should validate: %v", err)
	}
}

func TestWeekdaySet(t *testing.T) {
	s := NewWeekdaySet(time.Monday, time.Wednesday, time.Friday)
	if !s.Contains(time.Monday) || !s.Contains(time.Wednesday) || !s.Contains(time.Friday) {
		t.Error("set must contain its members")
	}
	if s.Contains(time.Sunday) || s.Contains(time.Saturday) {
		t.Error("set must not contain non-members")
	}
	if got := len(s.Weekdays()); got != 3 {
		t.Errorf("Weekdays() returned %d entries, want 3", got)
	}
	if !(WeekdaySet(0)).Empty() {
		t.Error("zero set is empty")
	}
}

func TestRuleStep(t *testing.T) {
	cases := []struct {
		rule     RecurrenceRule
		unit     IntervalUnit
		interval int
	}{
		{RecurrenceRule{Type: RecurDaily}, UnitDay, 1},
		{RecurrenceRule{Type: RecurWeekly}, UnitWeek, 1},
		{RecurrenceRule{Type: RecurMonthly}, UnitMonth, 1},
		{RecurrenceRule{Type: RecurInterval, Interval: 3, Unit: UnitDay}, UnitDay, 3},
		{RecurrenceRule{Type: RecurNone}, "", 0},
	}
	for _, tc := range cases {
		unit, interval := tc.rule.Step()
		if unit != tc.unit || interval != tc.interval {
			t.Errorf("Step(%s) = (%s, %d), want (%s, %d)", tc.rule.Type, unit, interval, tc.unit, tc.interval)
		}
	}
}
