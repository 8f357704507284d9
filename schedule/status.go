/*
status.go - Occurrence and payment lifecycle

PURPOSE:
  A single status machine governs both PlannedOccurrence and LoanPayment:

      pending ──▶ executed        (executed on or before the due date)
      pending ──▶ executed_late   (executed after the due date)
      pending ──▶ skipped

  All non-pending states are terminal. There is no reopen: correcting a
  mistake means deleting and rematerializing through an external, audited
  operation, not reviving a terminal row.

SEE ALSO:
  - materializer.go: Creates rows in the pending state
  - loan/: Payments enter the same lifecycle from the schedule generator
*/
package schedule

import (
	"context"

	"github.com/warp/obligation-engine/ledger"
)

// StatusMachine applies lifecycle transitions. Mutations are expected to run
// inside a transactional boundary supplied by the caller (TxStore.WithTx).
type StatusMachine struct {
	store ledger.Store
	clock ledger.Clock
}

func NewStatusMachine(store ledger.Store, clock ledger.Clock) *StatusMachine {
	if clock == nil {
		clock = ledger.SystemClock()
	}
	return &StatusMachine{store: store, clock: clock}
}

// executionStatus decides executed vs executed_late from the due date.
func executionStatus(due, executed ledger.Date) ledger.OccurrenceStatus {
	if executed.BeforeOrEqual(due) {
		return ledger.StatusExecuted
	}
	return ledger.StatusExecutedLate
}

// =============================================================================
// OCCURRENCES
// =============================================================================

// ExecuteOccurrence marks a pending occurrence executed. The realized
// transaction record is created by an external collaborator; only its
// reference is stored here. A zero executedDate defaults to today.
func (sm *StatusMachine) ExecuteOccurrence(ctx context.Context, id ledger.OccurrenceID, executedDate ledger.Date, executedAmount ledger.Money, realizedTxID string) (*ledger.PlannedOccurrence, error) {
	occ, err := sm.store.GetOccurrence(ctx, id)
	if err != nil {
		return nil, err
	}
	if occ.Status != ledger.StatusPending {
		return nil, &ledger.TransitionError{Entity: "occurrence", ID: string(occ.ID), From: occ.Status, Attempted: "execute"}
	}
	if !executedAmount.IsPositive() {
		return nil, &ledger.ValidationError{Field: "executed_amount", Reason: "must be positive"}
	}
	if executedDate.IsZero() {
		executedDate = sm.clock.Today()
	}

	occ.Status = executionStatus(occ.Date, executedDate)
	occ.ExecutedDate = &executedDate
	occ.ExecutedAmount = &executedAmount
	occ.RealizedTxID = realizedTxID

	if err := sm.store.SaveOccurrence(ctx, occ); err != nil {
		return nil, err
	}
	return occ, nil
}

// SkipOccurrence marks a pending occurrence skipped, retaining it for audit.
func (sm *StatusMachine) SkipOccurrence(ctx context.Context, id ledger.OccurrenceID, reason string) (*ledger.PlannedOccurrence, error) {
	occ, err := sm.store.GetOccurrence(ctx, id)
	if err != nil {
		return nil, err
	}
	if occ.Status != ledger.StatusPending {
		return nil, &ledger.TransitionError{Entity: "occurrence", ID: string(occ.ID), From: occ.Status, Attempted: "skip"}
	}

	today := sm.clock.Today()
	occ.Status = ledger.StatusSkipped
	occ.SkipReason = reason
	occ.SkippedDate = &today

	if err := sm.store.SaveOccurrence(ctx, occ); err != nil {
		return nil, err
	}
	return occ, nil
}

// =============================================================================
// LOAN PAYMENTS
// =============================================================================

// ExecutePayment marks a pending loan payment executed. The payment's holder
// is frozen as recorded; later debt transfers never rewrite it. Executing
// the loan's last pending payment settles the loan in the same transaction.
func (sm *StatusMachine) ExecutePayment(ctx context.Context, id ledger.PaymentID, executedDate ledger.Date, executedAmount ledger.Money) (*ledger.LoanPayment, error) {
	p, err := sm.store.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != ledger.StatusPending {
		return nil, &ledger.TransitionError{Entity: "payment", ID: string(p.ID), From: p.Status, Attempted: "execute"}
	}
	if !executedAmount.IsPositive() {
		return nil, &ledger.ValidationError{Field: "executed_amount", Reason: "must be positive"}
	}
	if executedDate.IsZero() {
		executedDate = sm.clock.Today()
	}

	p.Status = executionStatus(p.ScheduledDate, executedDate)
	p.ExecutedDate = &executedDate
	p.ExecutedAmount = &executedAmount

	if err := sm.store.SavePayment(ctx, p); err != nil {
		return nil, err
	}
	return p, sm.settleIfFinished(ctx, p.LoanID)
}

// SkipPayment marks a pending payment skipped (forgiven or written off).
func (sm *StatusMachine) SkipPayment(ctx context.Context, id ledger.PaymentID, reason string) (*ledger.LoanPayment, error) {
	p, err := sm.store.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != ledger.StatusPending {
		return nil, &ledger.TransitionError{Entity: "payment", ID: string(p.ID), From: p.Status, Attempted: "skip"}
	}

	p.Status = ledger.StatusSkipped
	p.SkipReason = reason

	if err := sm.store.SavePayment(ctx, p); err != nil {
		return nil, err
	}
	return p, sm.settleIfFinished(ctx, p.LoanID)
}

// settleIfFinished moves an active loan to paid_off once no pending
// payments remain.
func (sm *StatusMachine) settleIfFinished(ctx context.Context, id ledger.LoanID) error {
	payments, err := sm.store.PaymentsByLoan(ctx, id)
	if err != nil {
		return err
	}
	if len(payments) == 0 {
		return nil
	}
	for _, p := range payments {
		if p.Status == ledger.StatusPending {
			return nil
		}
	}
	loan, err := sm.store.GetLoan(ctx, id)
	if err != nil {
		return err
	}
	if loan.Status != ledger.LoanActive {
		return nil
	}
	loan.Status = ledger.LoanPaidOff
	return sm.store.SaveLoan(ctx, loan)
}
