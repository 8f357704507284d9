/*
query.go - Read-side aggregation for presentation layers

PURPOSE:
  The Queries facade answers the read-only questions a calendar or loan
  overview asks: what falls on a date, what is pending, how much debt
  remains, who holds what. It never mutates state and never fails on
  empty results - empty in, empty slice out.

SEE ALSO:
  - store.go: The persistence interface this facade reads through
*/
package ledger

import (
	"context"
	"sort"
)

// Queries is the read-side facade over a Store.
type Queries struct {
	store Store
	clock Clock
}

func NewQueries(store Store, clock Clock) *Queries {
	if clock == nil {
		clock = SystemClock()
	}
	return &Queries{store: store, clock: clock}
}

// OccurrencesOn returns all occurrences dated exactly on the given day.
func (q *Queries) OccurrencesOn(ctx context.Context, day Date) ([]PlannedOccurrence, error) {
	return q.store.OccurrencesInRange(ctx, day, day)
}

// OccurrencesBetween returns all occurrences in [from, to], date ascending.
func (q *Queries) OccurrencesBetween(ctx context.Context, from, to Date) ([]PlannedOccurrence, error) {
	return q.store.OccurrencesInRange(ctx, from, to)
}

// PendingOccurrences returns every pending occurrence, date ascending.
func (q *Queries) PendingOccurrences(ctx context.Context) ([]PlannedOccurrence, error) {
	return q.store.PendingOccurrences(ctx)
}

// TransferHistory returns a loan's transfers, oldest first.
func (q *Queries) TransferHistory(ctx context.Context, id LoanID) ([]DebtTransfer, error) {
	if _, err := q.store.GetLoan(ctx, id); err != nil {
		return nil, err
	}
	return q.store.TransfersByLoan(ctx, id)
}

// RemainingDebt returns the sum of Total over the loan's pending payments.
func (q *Queries) RemainingDebt(ctx context.Context, id LoanID) (Money, error) {
	if _, err := q.store.GetLoan(ctx, id); err != nil {
		return Money{}, err
	}
	payments, err := q.store.PaymentsByLoan(ctx, id)
	if err != nil {
		return Money{}, err
	}
	return PendingTotal(payments), nil
}

// PendingTotal sums Total over pending payments. Shared with the transfer
// coordinator, which uses the same figure as previous_amount.
func PendingTotal(payments []LoanPayment) Money {
	total := ZeroMoney()
	for _, p := range payments {
		if p.Status == StatusPending {
			total = total.Add(p.Total)
		}
	}
	return total
}

// OverduePayments returns pending payments past due as of the clock's today,
// oldest first.
func (q *Queries) OverduePayments(ctx context.Context) ([]LoanPayment, error) {
	today := q.clock.Today()
	loans, err := q.store.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	var overdue []LoanPayment
	for _, loan := range loans {
		payments, err := q.store.PaymentsByLoan(ctx, loan.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range payments {
			if p.OverdueDays(today) > 0 {
				overdue = append(overdue, p)
			}
		}
	}
	sort.SliceStable(overdue, func(i, j int) bool {
		return overdue[i].ScheduledDate.Before(overdue[j].ScheduledDate)
	})
	return overdue, nil
}

// =============================================================================
// STATISTICS
// =============================================================================

// RangeStatistics summarizes occurrences in a window for dashboards.
type RangeStatistics struct {
	Window          Window
	PendingCount    int
	ExecutedCount   int // includes executed-late
	SkippedCount    int
	PlannedIncome   Money // pending income total
	PlannedExpense  Money // pending expense total
	ExecutedIncome  Money
	ExecutedExpense Money
}

// Statistics aggregates occurrence counts and amounts over [from, to].
func (q *Queries) Statistics(ctx context.Context, from, to Date) (RangeStatistics, error) {
	window, err := NewWindow(from, to)
	if err != nil {
		return RangeStatistics{}, err
	}
	stats := RangeStatistics{
		Window:          window,
		PlannedIncome:   ZeroMoney(),
		PlannedExpense:  ZeroMoney(),
		ExecutedIncome:  ZeroMoney(),
		ExecutedExpense: ZeroMoney(),
	}

	occurrences, err := q.store.OccurrencesInRange(ctx, from, to)
	if err != nil {
		return RangeStatistics{}, err
	}
	templates := map[PlannedTransactionID]TransactionKind{}
	for _, o := range occurrences {
		kind, ok := templates[o.PlannedID]
		if !ok {
			pt, err := q.store.GetPlannedTransaction(ctx, o.PlannedID)
			if err != nil {
				return RangeStatistics{}, err
			}
			kind = pt.Kind
			templates[o.PlannedID] = kind
		}

		switch o.Status {
		case StatusPending:
			stats.PendingCount++
			if kind == KindIncome {
				stats.PlannedIncome = stats.PlannedIncome.Add(o.Amount)
			} else {
				stats.PlannedExpense = stats.PlannedExpense.Add(o.Amount)
			}
		case StatusExecuted, StatusExecutedLate:
			stats.ExecutedCount++
			amount := o.Amount
			if o.ExecutedAmount != nil {
				amount = *o.ExecutedAmount
			}
			if kind == KindIncome {
				stats.ExecutedIncome = stats.ExecutedIncome.Add(amount)
			} else {
				stats.ExecutedExpense = stats.ExecutedExpense.Add(amount)
			}
		case StatusSkipped:
			stats.SkippedCount++
		}
	}
	return stats, nil
}

// LenderExposure is the outstanding pending total attributed to one holder.
type LenderExposure struct {
	LenderID LenderID
	Name     string
	Pending  Money
	Loans    int
}

// HolderExposure groups outstanding pending payment totals by current
// holder, largest exposure first.
func (q *Queries) HolderExposure(ctx context.Context) ([]LenderExposure, error) {
	loans, err := q.store.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	byHolder := map[LenderID]*LenderExposure{}
	for _, loan := range loans {
		payments, err := q.store.PaymentsByLoan(ctx, loan.ID)
		if err != nil {
			return nil, err
		}
		pending := PendingTotal(payments)
		if pending.IsZero() {
			continue
		}
		e, ok := byHolder[loan.CurrentHolderID]
		if !ok {
			lender, err := q.store.GetLender(ctx, loan.CurrentHolderID)
			if err != nil {
				return nil, err
			}
			e = &LenderExposure{LenderID: lender.ID, Name: lender.Name, Pending: ZeroMoney()}
			byHolder[loan.CurrentHolderID] = e
		}
		e.Pending = e.Pending.Add(pending)
		e.Loans++
	}

	exposures := make([]LenderExposure, 0, len(byHolder))
	for _, e := range byHolder {
		exposures = append(exposures, *e)
	}
	sort.SliceStable(exposures, func(i, j int) bool {
		return exposures[i].Pending.GreaterThan(exposures[j].Pending)
	})
	return exposures, nil
}
