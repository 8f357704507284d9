package loan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/obligation-engine/ledger"
	"github.com/warp/obligation-engine/ledger/store"
	"github.com/warp/obligation-engine/loan"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func rate(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedLender(t *testing.T, s ledger.Store, name string, kind ledger.LenderKind) ledger.Lender {
	t.Helper()
	l := ledger.Lender{
		ID:        ledger.LenderID(ledger.NewID()),
		Name:      name,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.SaveLender(context.Background(), &l))
	return l
}

func seedLoan(t *testing.T, s ledger.Store, holder ledger.LenderID, principal int64, annualRate string, term int) ledger.Loan {
	t.Helper()
	l := ledger.Loan{
		ID:               ledger.LoanID(ledger.NewID()),
		Description:      "test loan",
		Principal:        ledger.NewMoneyFromInt(principal),
		AnnualRate:       rate(annualRate),
		TermMonths:       term,
		IssueDate:        ledger.NewDate(2024, time.January, 15),
		Status:           ledger.LoanActive,
		OriginalLenderID: holder,
		CurrentHolderID:  holder,
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, s.SaveLoan(context.Background(), &l))
	return l
}

func sumPrincipal(installments []loan.Installment) ledger.Money {
	total := ledger.ZeroMoney()
	for _, inst := range installments {
		total = total.Add(inst.Principal)
	}
	return total
}

// =============================================================================
// AMORTIZE - Pure schedule computation
// =============================================================================

func TestAmortize_Annuity(t *testing.T) {
	// GIVEN: 120000 at 12% APR over 12 months
	// WHEN: Amortizing under the annuity policy
	// THEN: Level payments of 10661.85 with the first interest at exactly
	//       1% of the principal; the final period absorbs rounding
	issue := ledger.NewDate(2024, time.January, 15)
	schedule := loan.Amortize(ledger.NewMoneyFromInt(120000), rate("0.12"), 12, issue, loan.SplitAnnuity)
	require.Len(t, schedule, 12)

	first := schedule[0]
	assert.Equal(t, 1, first.Period)
	assert.Equal(t, "2024-02-15", first.Date.String())
	assert.Equal(t, "1200.00", first.Interest.String())
	assert.Equal(t, "9461.85", first.Principal.String())
	assert.Equal(t, "10661.85", first.Total.String())

	for _, inst := range schedule[:11] {
		assert.Equal(t, "10661.85", inst.Total.String(), "period %d", inst.Period)
	}

	assert.True(t, sumPrincipal(schedule).Equal(ledger.NewMoneyFromInt(120000)),
		"principal components must sum exactly to the loaned amount, got %s", sumPrincipal(schedule))
}

func TestAmortize_InterestDeclinesAsPrincipalGrows(t *testing.T) {
	schedule := loan.Amortize(ledger.NewMoneyFromInt(120000), rate("0.12"), 12,
		ledger.NewDate(2024, time.January, 15), loan.SplitAnnuity)

	for i := 1; i < len(schedule); i++ {
		assert.True(t, schedule[i].Interest.LessThan(schedule[i-1].Interest),
			"interest must shrink each period (period %d)", schedule[i].Period)
		assert.True(t, schedule[i].Principal.GreaterThan(schedule[i-1].Principal),
			"principal portion must grow each period (period %d)", schedule[i].Period)
	}
}

func TestAmortize_DecliningBalance(t *testing.T) {
	// Fixed principal portions, interest on the shrinking balance,
	// so totals decrease period over period
	schedule := loan.Amortize(ledger.NewMoneyFromInt(120000), rate("0.12"), 12,
		ledger.NewDate(2024, time.January, 15), loan.SplitDeclining)
	require.Len(t, schedule, 12)

	assert.Equal(t, "10000.00", schedule[0].Principal.String())
	assert.Equal(t, "1200.00", schedule[0].Interest.String())
	assert.Equal(t, "11200.00", schedule[0].Total.String())
	assert.Equal(t, "1100.00", schedule[1].Interest.String())
	assert.Equal(t, "100.00", schedule[11].Interest.String())
	assert.Equal(t, "10100.00", schedule[11].Total.String())

	for i := 1; i < len(schedule); i++ {
		assert.True(t, schedule[i].Total.LessThan(schedule[i-1].Total),
			"totals must decline (period %d)", schedule[i].Period)
	}
	assert.True(t, sumPrincipal(schedule).Equal(ledger.NewMoneyFromInt(120000)))
}

func TestAmortize_ZeroRate(t *testing.T) {
	schedule := loan.Amortize(ledger.NewMoneyFromInt(1200), decimal.Zero, 12,
		ledger.NewDate(2024, time.January, 15), loan.SplitAnnuity)

	for _, inst := range schedule {
		assert.True(t, inst.Interest.IsZero(), "period %d", inst.Period)
		assert.Equal(t, "100.00", inst.Total.String(), "period %d", inst.Period)
	}
}

func TestAmortize_FinalPeriodAbsorbsRemainder(t *testing.T) {
	// 1000 over 3 periods does not divide evenly into cents
	schedule := loan.Amortize(ledger.NewMoneyFromInt(1000), decimal.Zero, 3,
		ledger.NewDate(2024, time.January, 15), loan.SplitDeclining)
	require.Len(t, schedule, 3)

	assert.Equal(t, "333.33", schedule[0].Principal.String())
	assert.Equal(t, "333.33", schedule[1].Principal.String())
	assert.Equal(t, "333.34", schedule[2].Principal.String())
	assert.True(t, sumPrincipal(schedule).Equal(ledger.NewMoneyFromInt(1000)))
}

func TestAmortize_DatesClampAtMonthEnd(t *testing.T) {
	// Issued Jan 31: schedule dates land on the last day of short months
	// but return to the 31st where it exists
	schedule := loan.Amortize(ledger.NewMoneyFromInt(3000), decimal.Zero, 3,
		ledger.NewDate(2024, time.January, 31), loan.SplitDeclining)

	assert.Equal(t, "2024-02-29", schedule[0].Date.String())
	assert.Equal(t, "2024-03-31", schedule[1].Date.String())
	assert.Equal(t, "2024-04-30", schedule[2].Date.String())
}

// =============================================================================
// GENERATOR - Persistence, regeneration and the force flag
// =============================================================================

func TestGenerate_PersistsPendingSchedule(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	bank := seedLender(t, mem, "Bank A", ledger.LenderBank)
	l := seedLoan(t, mem, bank.ID, 12000, "0", 12)

	payments, err := loan.NewGenerator(mem).Generate(ctx, l.ID, loan.SplitDeclining, false)
	require.NoError(t, err)
	require.Len(t, payments, 12)

	for i, p := range payments {
		assert.Equal(t, i+1, p.Period)
		assert.Equal(t, ledger.StatusPending, p.Status)
		assert.Equal(t, bank.ID, p.HolderID)
		assert.Equal(t, "1000.00", p.Total.String())
	}
}

func TestGenerate_RejectsUnknownPolicy(t *testing.T) {
	mem := store.NewMemory()
	bank := seedLender(t, mem, "Bank A", ledger.LenderBank)
	l := seedLoan(t, mem, bank.ID, 12000, "0", 12)

	_, err := loan.NewGenerator(mem).Generate(context.Background(), l.ID, loan.SplitPolicy("bullet"), false)
	assert.True(t, errors.Is(err, ledger.ErrValidation))
}

func TestGenerate_ReplacesPendingScheduleOnRerun(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	bank := seedLender(t, mem, "Bank A", ledger.LenderBank)
	l := seedLoan(t, mem, bank.ID, 12000, "0.12", 12)

	gen := loan.NewGenerator(mem)
	_, err := gen.Generate(ctx, l.ID, loan.SplitDeclining, false)
	require.NoError(t, err)

	// Switch policy while everything is still pending
	_, err = gen.Generate(ctx, l.ID, loan.SplitAnnuity, false)
	require.NoError(t, err)

	all, err := mem.PaymentsByLoan(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, all, 12, "old pending schedule must be replaced, not appended to")
	assert.Equal(t, all[0].Total, all[1].Total, "annuity installments are level")
}

func TestGenerate_RejectsRegenerationAfterExecution(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	bank := seedLender(t, mem, "Bank A", ledger.LenderBank)
	l := seedLoan(t, mem, bank.ID, 12000, "0", 12)

	gen := loan.NewGenerator(mem)
	payments, err := gen.Generate(ctx, l.ID, loan.SplitDeclining, false)
	require.NoError(t, err)

	executed := payments[0]
	executed.Status = ledger.StatusExecuted
	require.NoError(t, mem.SavePayment(ctx, &executed))

	_, err = gen.Generate(ctx, l.ID, loan.SplitDeclining, false)
	assert.True(t, errors.Is(err, ledger.ErrScheduleAlreadyExecuted))
}

func TestGenerate_ForceKeepsExecutedPeriods(t *testing.T) {
	// GIVEN: A 12-period schedule with periods 1 and 2 executed
	// WHEN: Forcing regeneration
	// THEN: Executed rows survive; the remaining principal is spread over
	//       periods 3..12 with day-of-month anchoring preserved
	ctx := context.Background()
	mem := store.NewMemory()
	bank := seedLender(t, mem, "Bank A", ledger.LenderBank)
	l := seedLoan(t, mem, bank.ID, 12000, "0", 12)

	gen := loan.NewGenerator(mem)
	payments, err := gen.Generate(ctx, l.ID, loan.SplitDeclining, false)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		p := payments[i]
		p.Status = ledger.StatusExecuted
		require.NoError(t, mem.SavePayment(ctx, &p))
	}

	regenerated, err := gen.Generate(ctx, l.ID, loan.SplitDeclining, true)
	require.NoError(t, err)
	require.Len(t, regenerated, 10)
	assert.Equal(t, 3, regenerated[0].Period)
	assert.Equal(t, "2024-04-15", regenerated[0].ScheduledDate.String())
	assert.Equal(t, "1000.00", regenerated[0].Principal.String())

	all, err := mem.PaymentsByLoan(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, all, 12)
	assert.Equal(t, ledger.StatusExecuted, all[0].Status)
	assert.Equal(t, ledger.StatusExecuted, all[1].Status)
}

func TestGenerate_ForceFullyExecutedScheduleStillRejected(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	bank := seedLender(t, mem, "Bank A", ledger.LenderBank)
	l := seedLoan(t, mem, bank.ID, 2000, "0", 2)

	gen := loan.NewGenerator(mem)
	payments, err := gen.Generate(ctx, l.ID, loan.SplitDeclining, false)
	require.NoError(t, err)
	for _, p := range payments {
		p.Status = ledger.StatusExecuted
		require.NoError(t, mem.SavePayment(ctx, &p))
	}

	_, err = gen.Generate(ctx, l.ID, loan.SplitDeclining, true)
	assert.True(t, errors.Is(err, ledger.ErrScheduleAlreadyExecuted))
}
