package ledger

import (
	"time"
)

// =============================================================================
// RECURRENCE RULE - Declarative repeat pattern
// =============================================================================

type RecurrenceType string

const (
	RecurNone     RecurrenceType = "none"
	RecurDaily    RecurrenceType = "daily"
	RecurWeekly   RecurrenceType = "weekly"
	RecurMonthly  RecurrenceType = "monthly"
	RecurInterval RecurrenceType = "interval" // every N units
)

type IntervalUnit string

const (
	UnitDay   IntervalUnit = "day"
	UnitWeek  IntervalUnit = "week"
	UnitMonth IntervalUnit = "month"
)

type EndKind string

const (
	EndNever   EndKind = "never"
	EndByDate  EndKind = "by_date"
	EndByCount EndKind = "by_count"
)

// EndCondition holds exactly one variant, selected by Kind.
type EndCondition struct {
	Kind  EndKind
	Date  *Date // by_date
	Count int   // by_count
}

// RecurrenceRule is a declarative repeat pattern owned by exactly one
// PlannedTransaction. Validation happens at rule-creation time; the
// materializer assumes a valid rule.
type RecurrenceRule struct {
	Type         RecurrenceType
	Interval     int          // required for RecurInterval, >= 1
	Unit         IntervalUnit // required for RecurInterval
	Weekdays     WeekdaySet   // optional constraint for weekly/interval rules
	OnlyWorkdays bool         // shift weekend dates to the next workday
	End          EndCondition
}

// Step normalizes the rule to a (unit, interval) pair. RecurNone has no step.
func (r RecurrenceRule) Step() (IntervalUnit, int) {
	switch r.Type {
	case RecurDaily:
		return UnitDay, 1
	case RecurWeekly:
		return UnitWeek, 1
	case RecurMonthly:
		return UnitMonth, 1
	case RecurInterval:
		return r.Unit, r.Interval
	}
	return "", 0
}

// Validate checks the rule's structural invariants:
// interval >= 1 where a step exists, unit present for interval rules,
// and exactly one end-condition variant populated.
func (r RecurrenceRule) Validate() error {
	switch r.Type {
	case RecurNone, RecurDaily, RecurWeekly, RecurMonthly:
		// fixed step
	case RecurInterval:
		if r.Interval < 1 {
			return &ValidationError{Field: "interval", Reason: "must be >= 1"}
		}
		switch r.Unit {
		case UnitDay, UnitWeek, UnitMonth:
		default:
			return &ValidationError{Field: "interval_unit", Reason: "must be day, week or month"}
		}
	default:
		return &ValidationError{Field: "recurrence_type", Reason: "unknown type " + string(r.Type)}
	}

	switch r.End.Kind {
	case EndNever:
		if r.End.Date != nil || r.End.Count != 0 {
			return &ValidationError{Field: "end_condition", Reason: "never must not carry a date or count"}
		}
	case EndByDate:
		if r.End.Date == nil {
			return &ValidationError{Field: "end_condition", Reason: "by_date requires an end date"}
		}
		if r.End.Count != 0 {
			return &ValidationError{Field: "end_condition", Reason: "by_date must not carry a count"}
		}
	case EndByCount:
		if r.End.Count < 1 {
			return &ValidationError{Field: "end_condition", Reason: "by_count requires count >= 1"}
		}
		if r.End.Date != nil {
			return &ValidationError{Field: "end_condition", Reason: "by_count must not carry a date"}
		}
	default:
		return &ValidationError{Field: "end_condition", Reason: "unknown kind " + string(r.End.Kind)}
	}

	if !r.Weekdays.Empty() && r.Type != RecurWeekly && r.Type != RecurInterval {
		return &ValidationError{Field: "weekdays", Reason: "only weekly and interval rules take weekday constraints"}
	}
	return nil
}

// =============================================================================
// WEEKDAY SET - Bitmask of constrained weekdays
// =============================================================================

type WeekdaySet uint8

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

func (s WeekdaySet) Contains(d time.Weekday) bool { return s&(1<<uint(d)) != 0 }
func (s WeekdaySet) Empty() bool                  { return s == 0 }

func (s WeekdaySet) Weekdays() []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Contains(d) {
			days = append(days, d)
		}
	}
	return days
}
