package schedule_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/obligation-engine/ledger"
	"github.com/warp/obligation-engine/ledger/store"
	"github.com/warp/obligation-engine/schedule"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newMachine(today ledger.Date) (*schedule.StatusMachine, *store.Memory) {
	mem := store.NewMemory()
	return schedule.NewStatusMachine(mem, ledger.FixedClock{Date: today}), mem
}

func pendingOccurrence(t *testing.T, s ledger.Store, date ledger.Date) ledger.PlannedOccurrence {
	t.Helper()
	pt := newTemplate(t, s, date, nil)
	o := ledger.PlannedOccurrence{
		ID:        ledger.OccurrenceID(ledger.NewID()),
		PlannedID: pt.ID,
		Sequence:  0,
		Date:      date,
		Amount:    ledger.NewMoneyFromInt(100),
		Status:    ledger.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.SaveOccurrence(context.Background(), &o))
	return o
}

func pendingLoan(t *testing.T, s ledger.Store, periods int) (ledger.Loan, []ledger.LoanPayment) {
	t.Helper()
	ctx := context.Background()
	lender := ledger.Lender{
		ID: ledger.LenderID(ledger.NewID()), Name: "Bank " + ledger.NewID(),
		Kind: ledger.LenderBank, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.SaveLender(ctx, &lender))

	l := ledger.Loan{
		ID:               ledger.LoanID(ledger.NewID()),
		Principal:        ledger.NewMoneyFromInt(int64(periods) * 1000),
		TermMonths:       periods,
		IssueDate:        ledger.NewDate(2024, time.January, 15),
		Status:           ledger.LoanActive,
		OriginalLenderID: lender.ID,
		CurrentHolderID:  lender.ID,
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, s.SaveLoan(ctx, &l))

	payments := make([]ledger.LoanPayment, periods)
	for i := range payments {
		payments[i] = ledger.LoanPayment{
			ID:            ledger.PaymentID(ledger.NewID()),
			LoanID:        l.ID,
			Period:        i + 1,
			ScheduledDate: l.IssueDate.AddMonthsClamped(i + 1),
			Principal:     ledger.NewMoneyFromInt(1000),
			Interest:      ledger.ZeroMoney(),
			Total:         ledger.NewMoneyFromInt(1000),
			Status:        ledger.StatusPending,
			HolderID:      lender.ID,
			CreatedAt:     time.Now().UTC(),
		}
		require.NoError(t, s.SavePayment(ctx, &payments[i]))
	}
	return l, payments
}

// =============================================================================
// OCCURRENCE TRANSITIONS
// =============================================================================

func TestExecuteOccurrence_OnTime(t *testing.T) {
	// GIVEN: A pending occurrence due Jan 15
	// WHEN: Executing on the due date
	// THEN: Status is executed, execution details are recorded
	sm, mem := newMachine(ledger.NewDate(2024, time.January, 15))
	o := pendingOccurrence(t, mem, ledger.NewDate(2024, time.January, 15))

	got, err := sm.ExecuteOccurrence(context.Background(), o.ID,
		ledger.NewDate(2024, time.January, 15), ledger.NewMoneyFromInt(120), "tx-realized-1")
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusExecuted, got.Status)
	assert.Equal(t, "tx-realized-1", got.RealizedTxID)
	require.NotNil(t, got.ExecutedAmount)
	assert.Equal(t, "120.00", got.ExecutedAmount.String())
	require.NotNil(t, got.ExecutedDate)
	assert.Equal(t, "2024-01-15", got.ExecutedDate.String())
}

func TestExecuteOccurrence_AfterDueDate_IsLate(t *testing.T) {
	sm, mem := newMachine(ledger.NewDate(2024, time.February, 1))
	o := pendingOccurrence(t, mem, ledger.NewDate(2024, time.January, 15))

	got, err := sm.ExecuteOccurrence(context.Background(), o.ID,
		ledger.NewDate(2024, time.January, 20), ledger.NewMoneyFromInt(100), "")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusExecutedLate, got.Status)
}

func TestExecuteOccurrence_ZeroDateDefaultsToToday(t *testing.T) {
	today := ledger.NewDate(2024, time.January, 10)
	sm, mem := newMachine(today)
	o := pendingOccurrence(t, mem, ledger.NewDate(2024, time.January, 15))

	got, err := sm.ExecuteOccurrence(context.Background(), o.ID, ledger.Date{}, ledger.NewMoneyFromInt(100), "")
	require.NoError(t, err)
	require.NotNil(t, got.ExecutedDate)
	assert.True(t, got.ExecutedDate.Equal(today))
	assert.Equal(t, ledger.StatusExecuted, got.Status)
}

func TestExecuteOccurrence_RejectsNonPositiveAmount(t *testing.T) {
	sm, mem := newMachine(ledger.NewDate(2024, time.January, 15))
	o := pendingOccurrence(t, mem, ledger.NewDate(2024, time.January, 15))

	_, err := sm.ExecuteOccurrence(context.Background(), o.ID, ledger.Date{}, ledger.ZeroMoney(), "")
	assert.True(t, errors.Is(err, ledger.ErrValidation))

	// The failed call left the occurrence untouched
	current, err2 := mem.GetOccurrence(context.Background(), o.ID)
	require.NoError(t, err2)
	assert.Equal(t, ledger.StatusPending, current.Status)
}

func TestSkipOccurrence_RecordsReasonAndDate(t *testing.T) {
	today := ledger.NewDate(2024, time.January, 20)
	sm, mem := newMachine(today)
	o := pendingOccurrence(t, mem, ledger.NewDate(2024, time.January, 15))

	got, err := sm.SkipOccurrence(context.Background(), o.ID, "covered in cash")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusSkipped, got.Status)
	assert.Equal(t, "covered in cash", got.SkipReason)
	require.NotNil(t, got.SkippedDate)
	assert.True(t, got.SkippedDate.Equal(today))
}

// =============================================================================
// TERMINALITY - Executed, executed-late and skipped admit no transitions
// =============================================================================

func TestOccurrenceTerminality(t *testing.T) {
	// GIVEN: Occurrences driven into each terminal state
	// WHEN: Executing or skipping again
	// THEN: Every attempt fails with an invalid-transition error and no
	//       mutation occurs
	ctx := context.Background()
	sm, mem := newMachine(ledger.NewDate(2024, time.March, 1))

	terminal := map[string]ledger.OccurrenceID{}

	onTime := pendingOccurrence(t, mem, ledger.NewDate(2024, time.January, 15))
	_, err := sm.ExecuteOccurrence(ctx, onTime.ID, ledger.NewDate(2024, time.January, 15), ledger.NewMoneyFromInt(100), "")
	require.NoError(t, err)
	terminal["executed"] = onTime.ID

	late := pendingOccurrence(t, mem, ledger.NewDate(2024, time.January, 10))
	_, err = sm.ExecuteOccurrence(ctx, late.ID, ledger.NewDate(2024, time.February, 1), ledger.NewMoneyFromInt(100), "")
	require.NoError(t, err)
	terminal["executed_late"] = late.ID

	skipped := pendingOccurrence(t, mem, ledger.NewDate(2024, time.January, 20))
	_, err = sm.SkipOccurrence(ctx, skipped.ID, "")
	require.NoError(t, err)
	terminal["skipped"] = skipped.ID

	for state, id := range terminal {
		before, err := mem.GetOccurrence(ctx, id)
		require.NoError(t, err)

		_, err = sm.ExecuteOccurrence(ctx, id, ledger.Date{}, ledger.NewMoneyFromInt(100), "")
		assert.True(t, errors.Is(err, ledger.ErrInvalidTransition), "execute on %s: %v", state, err)

		_, err = sm.SkipOccurrence(ctx, id, "again")
		assert.True(t, errors.Is(err, ledger.ErrInvalidTransition), "skip on %s: %v", state, err)

		after, err := mem.GetOccurrence(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, *before, *after, "terminal %s occurrence mutated", state)
	}
}

func TestTransitionError_CarriesContext(t *testing.T) {
	ctx := context.Background()
	sm, mem := newMachine(ledger.NewDate(2024, time.March, 1))
	o := pendingOccurrence(t, mem, ledger.NewDate(2024, time.January, 15))
	_, err := sm.SkipOccurrence(ctx, o.ID, "")
	require.NoError(t, err)

	_, err = sm.ExecuteOccurrence(ctx, o.ID, ledger.Date{}, ledger.NewMoneyFromInt(100), "")
	var te *ledger.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, string(o.ID), te.ID)
	assert.Equal(t, ledger.StatusSkipped, te.From)
	assert.Equal(t, "execute", te.Attempted)
}

// =============================================================================
// PAYMENT TRANSITIONS AND LOAN SETTLEMENT
// =============================================================================

func TestExecutePayment_LateAfterScheduledDate(t *testing.T) {
	sm, mem := newMachine(ledger.NewDate(2024, time.June, 1))
	_, payments := pendingLoan(t, mem, 2)

	late := payments[0]
	got, err := sm.ExecutePayment(context.Background(), late.ID,
		late.ScheduledDate.AddDays(10), late.Total)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusExecutedLate, got.Status)
}

func TestExecutePayment_KeepsHolder(t *testing.T) {
	sm, mem := newMachine(ledger.NewDate(2024, time.June, 1))
	_, payments := pendingLoan(t, mem, 2)

	got, err := sm.ExecutePayment(context.Background(), payments[0].ID,
		payments[0].ScheduledDate, payments[0].Total)
	require.NoError(t, err)
	assert.Equal(t, payments[0].HolderID, got.HolderID)
}

func TestExecutePayment_LastPaymentSettlesLoan(t *testing.T) {
	// GIVEN: A loan with two pending payments
	// WHEN: Both are executed
	// THEN: The loan flips to paid_off with the final execution
	ctx := context.Background()
	sm, mem := newMachine(ledger.NewDate(2024, time.June, 1))
	l, payments := pendingLoan(t, mem, 2)

	_, err := sm.ExecutePayment(ctx, payments[0].ID, payments[0].ScheduledDate, payments[0].Total)
	require.NoError(t, err)

	mid, err := mem.GetLoan(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.LoanActive, mid.Status)

	_, err = sm.ExecutePayment(ctx, payments[1].ID, payments[1].ScheduledDate, payments[1].Total)
	require.NoError(t, err)

	final, err := mem.GetLoan(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.LoanPaidOff, final.Status)
}

func TestSkipPayment_CountsTowardSettlement(t *testing.T) {
	// A written-off final installment also settles the loan
	ctx := context.Background()
	sm, mem := newMachine(ledger.NewDate(2024, time.June, 1))
	l, payments := pendingLoan(t, mem, 2)

	_, err := sm.ExecutePayment(ctx, payments[0].ID, payments[0].ScheduledDate, payments[0].Total)
	require.NoError(t, err)
	_, err = sm.SkipPayment(ctx, payments[1].ID, "written off")
	require.NoError(t, err)

	final, err := mem.GetLoan(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.LoanPaidOff, final.Status)
}

func TestPaymentTerminality(t *testing.T) {
	ctx := context.Background()
	sm, mem := newMachine(ledger.NewDate(2024, time.June, 1))
	_, payments := pendingLoan(t, mem, 2)

	_, err := sm.ExecutePayment(ctx, payments[0].ID, payments[0].ScheduledDate, payments[0].Total)
	require.NoError(t, err)

	_, err = sm.ExecutePayment(ctx, payments[0].ID, ledger.Date{}, payments[0].Total)
	assert.True(t, errors.Is(err, ledger.ErrInvalidTransition))
	_, err = sm.SkipPayment(ctx, payments[0].ID, "")
	assert.True(t, errors.Is(err, ledger.ErrInvalidTransition))
}
