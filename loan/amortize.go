/*
Package loan generates amortized payment schedules and coordinates debt
transfers between lenders.

PURPOSE:
  The Generator produces the ordered LoanPayment rows for a loan under an
  explicit split policy - equal installments (annuity) or fixed principal
  with interest on the declining balance. The TransferCoordinator records
  holder changes and keeps payment attribution consistent.

ROUNDING POLICY:
  Installments are rounded to cents; the final period absorbs the rounding
  remainder so the principal components always sum exactly to the
  original principal.

SEE ALSO:
  - transfer.go: Holder changes over the generated schedule
  - schedule/status.go: Payment lifecycle (same machine as occurrences)
*/
package loan

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/obligation-engine/ledger"
)

// SplitPolicy selects how each payment splits into principal and interest.
// Always explicit configuration, never an implicit default: the domain
// tracks both equal-installment and declining-balance loans.
type SplitPolicy string

const (
	// SplitAnnuity produces level total payments (standard annuity formula).
	SplitAnnuity SplitPolicy = "annuity"
	// SplitDeclining produces fixed principal portions with interest
	// computed on the declining balance.
	SplitDeclining SplitPolicy = "declining_balance"
)

func (p SplitPolicy) Valid() bool { return p == SplitAnnuity || p == SplitDeclining }

var twelve = decimal.NewFromInt(12)

// Installment is one computed period of an amortization schedule.
type Installment struct {
	Period    int
	Date      ledger.Date
	Principal ledger.Money
	Interest  ledger.Money
	Total     ledger.Money
}

// Amortize computes the payment schedule for a principal over termMonths
// periods, one per month starting the month after the issue date. It is a
// pure function of its inputs. Callers must pass termMonths >= 1 and a
// non-negative rate.
func Amortize(principal ledger.Money, annualRate decimal.Decimal, termMonths int, issue ledger.Date, policy SplitPolicy) []Installment {
	monthlyRate := annualRate.Div(twelve)
	balance := principal

	var level ledger.Money
	if policy == SplitAnnuity {
		level = annuityPayment(principal, monthlyRate, termMonths)
	} else {
		level = ledger.MoneyFromDecimal(principal.Value.Div(decimal.NewFromInt(int64(termMonths)))).Round2()
	}

	out := make([]Installment, 0, termMonths)
	for period := 1; period <= termMonths; period++ {
		interest := balance.Mul(monthlyRate).Round2()

		var principalPart ledger.Money
		switch {
		case period == termMonths:
			// Final period absorbs the rounding remainder.
			principalPart = balance
		case policy == SplitAnnuity:
			principalPart = level.Sub(interest)
		default:
			principalPart = level
		}

		out = append(out, Installment{
			Period:    period,
			Date:      issue.AddMonthsClamped(period),
			Principal: principalPart,
			Interest:  interest,
			Total:     principalPart.Add(interest),
		})
		balance = balance.Sub(principalPart)
	}
	return out
}

// annuityPayment returns the level monthly payment, rounded to cents.
func annuityPayment(principal ledger.Money, monthlyRate decimal.Decimal, n int) ledger.Money {
	months := decimal.NewFromInt(int64(n))
	if monthlyRate.IsZero() {
		return ledger.MoneyFromDecimal(principal.Value.Div(months)).Round2()
	}
	// payment = P * r * (1+r)^n / ((1+r)^n - 1)
	factor := decimal.NewFromInt(1).Add(monthlyRate).Pow(months)
	payment := principal.Value.Mul(monthlyRate).Mul(factor).Div(factor.Sub(decimal.NewFromInt(1)))
	return ledger.MoneyFromDecimal(payment).Round2()
}

// =============================================================================
// GENERATOR - Persists schedules against a Store
// =============================================================================

// Generator produces and persists loan schedules. Regeneration is not
// idempotent by design: a loan with non-pending payments rejects
// regeneration unless forced, because executed payments are immutable
// historical facts.
type Generator struct {
	store ledger.Store
}

func NewGenerator(store ledger.Store) *Generator {
	return &Generator{store: store}
}

// Generate builds the schedule for the loan under the given policy and
// returns the newly created payments, period ascending. Existing pending
// payments are replaced. With force, executed periods are kept and the
// remaining principal is amortized over the remaining term.
func (g *Generator) Generate(ctx context.Context, id ledger.LoanID, policy SplitPolicy, force bool) ([]ledger.LoanPayment, error) {
	if !policy.Valid() {
		return nil, &ledger.ValidationError{Field: "split_policy", Reason: "unknown policy " + string(policy)}
	}

	loan, err := g.store.GetLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	if loan.TermMonths < 1 {
		return nil, &ledger.ValidationError{Field: "term_months", Reason: "must be >= 1"}
	}
	if !loan.Principal.IsPositive() {
		return nil, &ledger.ValidationError{Field: "principal", Reason: "must be positive"}
	}
	if loan.AnnualRate.IsNegative() {
		return nil, &ledger.ValidationError{Field: "annual_rate", Reason: "must not be negative"}
	}

	existing, err := g.store.PaymentsByLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	principal := loan.Principal
	lastKeptPeriod := 0
	for _, p := range existing {
		if p.Status == ledger.StatusPending {
			continue
		}
		if !force {
			return nil, ledger.ErrScheduleAlreadyExecuted
		}
		if p.Period > lastKeptPeriod {
			lastKeptPeriod = p.Period
		}
		if p.Status != ledger.StatusSkipped {
			principal = principal.Sub(p.Principal)
		}
	}
	termLeft := loan.TermMonths - lastKeptPeriod
	if termLeft < 1 {
		return nil, ledger.ErrScheduleAlreadyExecuted
	}

	if err := g.store.DeletePendingPayments(ctx, id); err != nil {
		return nil, err
	}

	installments := Amortize(principal, loan.AnnualRate, termLeft, loan.IssueDate, policy)
	payments := make([]ledger.LoanPayment, len(installments))
	now := time.Now().UTC()
	for i, inst := range installments {
		payments[i] = ledger.LoanPayment{
			ID:     ledger.PaymentID(ledger.NewID()),
			LoanID: loan.ID,
			Period: lastKeptPeriod + inst.Period,
			// Always clamp from the issue date so day-of-month anchoring
			// survives forced regeneration mid-schedule.
			ScheduledDate: loan.IssueDate.AddMonthsClamped(lastKeptPeriod + inst.Period),
			Principal:     inst.Principal,
			Interest:      inst.Interest,
			Total:         inst.Total,
			Status:        ledger.StatusPending,
			HolderID:      loan.CurrentHolderID,
			CreatedAt:     now,
		}
	}
	if err := g.store.SavePayments(ctx, payments); err != nil {
		return nil, err
	}
	return payments, nil
}
