/*
Package schedule expands recurrence rules into dated occurrences and
governs the occurrence lifecycle.

PURPOSE:
  The Materializer turns a PlannedTransaction and its RecurrenceRule into
  concrete PlannedOccurrence rows for a requested calendar window. The
  StatusMachine applies user actions (execute, skip) to occurrences and
  loan payments.

MATERIALIZATION CONTRACT:
  - Idempotent: re-running over overlapping windows never duplicates dates.
  - Deterministic: the rule's date sequence is always enumerated from the
    template's start date, so every call sees the same (sequence, date)
    pairs regardless of the window.
  - Bounded: enumeration stops at the window end, the rule's end date, or
    the rule's occurrence count - whichever comes first. The count is
    global across calls because it is the sequence index, not a count of
    rows inside the current window.

SEE ALSO:
  - status.go: Lifecycle transitions for materialized rows
  - ledger/rule.go: Rule definition and validation
*/
package schedule

import (
	"context"
	"time"

	"github.com/warp/obligation-engine/ledger"
)

// Materializer expands recurrence rules against a Store.
type Materializer struct {
	store ledger.Store
}

func NewMaterializer(store ledger.Store) *Materializer {
	return &Materializer{store: store}
}

// Materialize creates the occurrences of the template that fall inside the
// window and are not yet persisted, then returns all of the template's
// occurrences inside the window, date ascending. Inactive templates gain no
// new occurrences but existing ones are still returned.
func (m *Materializer) Materialize(ctx context.Context, id ledger.PlannedTransactionID, window ledger.Window) ([]ledger.PlannedOccurrence, error) {
	pt, err := m.store.GetPlannedTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	existing, err := m.store.OccurrencesByPlanned(ctx, id)
	if err != nil {
		return nil, err
	}
	haveSeq := make(map[int]bool, len(existing))
	for _, o := range existing {
		haveSeq[o.Sequence] = true
	}

	if pt.Active {
		for _, c := range expand(pt.Rule, pt.StartDate, window.To) {
			if haveSeq[c.seq] || !window.Contains(c.date) {
				continue
			}
			occ := ledger.PlannedOccurrence{
				ID:        ledger.OccurrenceID(ledger.NewID()),
				PlannedID: pt.ID,
				Sequence:  c.seq,
				Date:      c.date,
				Amount:    pt.Amount,
				Status:    ledger.StatusPending,
				CreatedAt: time.Now().UTC(),
			}
			if err := m.store.SaveOccurrence(ctx, &occ); err != nil {
				return nil, err
			}
		}
	}

	all, err := m.store.OccurrencesByPlanned(ctx, id)
	if err != nil {
		return nil, err
	}
	var out []ledger.PlannedOccurrence
	for _, o := range all {
		if window.Contains(o.Date) {
			out = append(out, o)
		}
	}
	return out, nil
}

// =============================================================================
// RULE EXPANSION - Deterministic (sequence, date) enumeration
// =============================================================================

type candidate struct {
	seq  int
	date ledger.Date
}

// expand enumerates the rule's occurrence dates from the start date up to
// the bound. A nil rule (or RecurNone) yields only the start date. Weekend
// shifting is applied after stepping; a shifted date that collides with an
// already-enumerated date is shifted again.
func expand(rule *ledger.RecurrenceRule, start, until ledger.Date) []candidate {
	if rule == nil {
		none := ledger.RecurrenceRule{Type: ledger.RecurNone}
		rule = &none
	}

	var out []candidate
	taken := make(map[string]bool)

	emit := func(base ledger.Date) (stop bool) {
		if rule.End.Kind == ledger.EndByDate && base.After(*rule.End.Date) {
			return true
		}
		if base.After(until) {
			return true
		}
		date := base
		if rule.OnlyWorkdays {
			date = date.NextWorkday()
			for taken[date.String()] {
				date = date.AddDays(1).NextWorkday()
			}
		}
		taken[date.String()] = true
		out = append(out, candidate{seq: len(out), date: date})
		return rule.End.Kind == ledger.EndByCount && len(out) >= rule.End.Count
	}

	if rule.Type == ledger.RecurNone {
		emit(start)
		return out
	}

	unit, interval := rule.Step()
	switch unit {
	case ledger.UnitMonth:
		for k := 0; ; k++ {
			base := start.AddMonthsClamped(k * interval)
			if emit(base) {
				break
			}
		}

	case ledger.UnitWeek:
		if rule.Weekdays.Empty() {
			for k := 0; ; k++ {
				if emit(start.AddDays(k * interval * 7)) {
					break
				}
			}
			break
		}
		// Weekday-constrained weekly rule: walk days, keep the constrained
		// weekdays of every interval-th week relative to the start's week.
		weekAnchor := start.StartOfWeek()
		for d := start; ; d = d.AddDays(1) {
			if d.After(until) {
				break
			}
			weekIdx := ledger.DaysBetween(weekAnchor, d) / 7
			if weekIdx%interval != 0 || !rule.Weekdays.Contains(d.Weekday()) {
				continue
			}
			if emit(d) {
				break
			}
		}

	default: // UnitDay
		for k := 0; ; k++ {
			base := start.AddDays(k * interval)
			if base.After(until) {
				break
			}
			// A weekday constraint filters stepped dates without
			// consuming a sequence slot.
			if !rule.Weekdays.Empty() && !rule.Weekdays.Contains(base.Weekday()) {
				continue
			}
			if emit(base) {
				break
			}
		}
	}
	return out
}
