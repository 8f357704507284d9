/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates lenders, templates,
	loans and lifecycle history that demonstrate specific features.

AVAILABLE SCENARIOS:

	household-budget: Recurring salary and bills with a materialized month
	freelancer:       Weekly invoicing on Mon/Wed/Fri with workday shifting
	annuity-loan:     12-month equal-installment loan, partly repaid
	debt-collection:  MFO loan sold to a collector mid-schedule

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create lenders and templates
 3. Materialize occurrences / generate schedules
 4. Execute or skip a few rows to show lifecycle states
 5. Optionally transfer debt to show holder history

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "debt-collection"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase handler
  - ledger/rule.go: Rule shapes the loaders build
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/obligation-engine/ledger"
	"github.com/warp/obligation-engine/loan"
	"github.com/warp/obligation-engine/schedule"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "household-budget",
		Name:        "Household Budget",
		Description: "Monthly salary and rent with a materialized calendar month",
		Category:    "recurring",
	},
	{
		ID:          "freelancer",
		Name:        "Freelancer Invoicing",
		Description: "Mon/Wed/Fri invoicing rule with workday shifting",
		Category:    "recurring",
	},
	{
		ID:          "annuity-loan",
		Name:        "Annuity Loan",
		Description: "12-month equal-installment loan with two payments made",
		Category:    "loans",
	},
	{
		ID:          "debt-collection",
		Name:        "Debt Collection",
		Description: "MFO loan sold to a collector, pending payments re-pointed",
		Category:    "loans",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	resetter, ok := h.Store.(Resetter)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Store does not support reset", nil)
		return
	}
	ctx := r.Context()
	if err := resetter.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "household-budget":
		err = loadHouseholdBudgetScenario(ctx, h)
	case "freelancer":
		err = loadFreelancerScenario(ctx, h)
	case "annuity-loan":
		err = loadAnnuityLoanScenario(ctx, h)
	case "debt-collection":
		err = loadDebtCollectionScenario(ctx, h)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func newPlanned(description string, kind ledger.TransactionKind, amount float64, start ledger.Date, rule *ledger.RecurrenceRule) ledger.PlannedTransaction {
	return ledger.PlannedTransaction{
		ID:          ledger.PlannedTransactionID(ledger.NewID()),
		Description: description,
		Kind:        kind,
		Amount:      ledger.NewMoney(amount),
		StartDate:   start,
		Active:      true,
		Rule:        rule,
		CreatedAt:   time.Now().UTC(),
	}
}

func newLender(name string, kind ledger.LenderKind) ledger.Lender {
	return ledger.Lender{
		ID:        ledger.LenderID(ledger.NewID()),
		Name:      name,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
}

// loadHouseholdBudgetScenario: monthly salary on the 1st, rent on the 31st
// (clamped in shorter months), both materialized over the first quarter.
func loadHouseholdBudgetScenario(ctx context.Context, h *Handler) error {
	year := h.Clock.Today().Year()
	window, err := ledger.NewWindow(
		ledger.NewDate(year, time.January, 1),
		ledger.NewDate(year, time.March, 31))
	if err != nil {
		return err
	}

	salary := newPlanned("Salary", ledger.KindIncome, 5200, ledger.NewDate(year, time.January, 1),
		&ledger.RecurrenceRule{Type: ledger.RecurMonthly, End: ledger.EndCondition{Kind: ledger.EndNever}})
	rent := newPlanned("Rent", ledger.KindExpense, 1450, ledger.NewDate(year, time.January, 31),
		&ledger.RecurrenceRule{Type: ledger.RecurMonthly, End: ledger.EndCondition{Kind: ledger.EndNever}})

	return h.Store.WithTx(ctx, func(s ledger.Store) error {
		for _, pt := range []ledger.PlannedTransaction{salary, rent} {
			if err := s.SavePlannedTransaction(ctx, &pt); err != nil {
				return err
			}
			occs, err := schedule.NewMaterializer(s).Materialize(ctx, pt.ID, window)
			if err != nil {
				return err
			}
			// Execute the January rows so the calendar shows history.
			sm := schedule.NewStatusMachine(s, h.Clock)
			for _, o := range occs {
				if o.Date.Month() == time.January {
					if _, err := sm.ExecuteOccurrence(ctx, o.ID, o.Date, o.Amount, ledger.NewID()); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

// loadFreelancerScenario: invoicing every Monday, Wednesday and Friday with
// one skipped occurrence.
func loadFreelancerScenario(ctx context.Context, h *Handler) error {
	year := h.Clock.Today().Year()
	start := ledger.NewDate(year, time.January, 1)
	window, err := ledger.NewWindow(start, ledger.NewDate(year, time.February, 15))
	if err != nil {
		return err
	}

	invoicing := newPlanned("Client invoicing", ledger.KindIncome, 600, start,
		&ledger.RecurrenceRule{
			Type:     ledger.RecurWeekly,
			Weekdays: ledger.NewWeekdaySet(time.Monday, time.Wednesday, time.Friday),
			End:      ledger.EndCondition{Kind: ledger.EndNever},
		})

	return h.Store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.SavePlannedTransaction(ctx, &invoicing); err != nil {
			return err
		}
		occs, err := schedule.NewMaterializer(s).Materialize(ctx, invoicing.ID, window)
		if err != nil {
			return err
		}
		if len(occs) > 2 {
			sm := schedule.NewStatusMachine(s, h.Clock)
			if _, err := sm.ExecuteOccurrence(ctx, occs[0].ID, occs[0].Date, occs[0].Amount, ledger.NewID()); err != nil {
				return err
			}
			if _, err := sm.SkipOccurrence(ctx, occs[1].ID, "client on holiday"); err != nil {
				return err
			}
		}
		return nil
	})
}

// loadAnnuityLoanScenario: a 12-month equal-installment loan with the first
// two payments executed on time.
func loadAnnuityLoanScenario(ctx context.Context, h *Handler) error {
	bank := newLender("First National Bank", ledger.LenderBank)
	year := h.Clock.Today().Year()

	l := ledger.Loan{
		ID:               ledger.LoanID(ledger.NewID()),
		Description:      "Car loan",
		Principal:        ledger.NewMoneyFromInt(120000),
		AnnualRate:       decimal.NewFromFloat(0.12),
		TermMonths:       12,
		IssueDate:        ledger.NewDate(year-1, time.November, 15),
		Status:           ledger.LoanActive,
		OriginalLenderID: bank.ID,
		CurrentHolderID:  bank.ID,
		CreatedAt:        time.Now().UTC(),
	}

	return h.Store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.SaveLender(ctx, &bank); err != nil {
			return err
		}
		if err := s.SaveLoan(ctx, &l); err != nil {
			return err
		}
		payments, err := loan.NewGenerator(s).Generate(ctx, l.ID, loan.SplitAnnuity, false)
		if err != nil {
			return err
		}
		sm := schedule.NewStatusMachine(s, h.Clock)
		for _, p := range payments[:2] {
			if _, err := sm.ExecutePayment(ctx, p.ID, p.ScheduledDate, p.Total); err != nil {
				return err
			}
		}
		return nil
	})
}

// loadDebtCollectionScenario: an MFO loan with three payments made, then
// sold to a collector. The pending payments carry the collector as holder
// while the executed ones keep the MFO.
func loadDebtCollectionScenario(ctx context.Context, h *Handler) error {
	mfo := newLender("QuickCash MFO", ledger.LenderMFO)
	collector := newLender("Atlas Recovery", ledger.LenderCollector)
	year := h.Clock.Today().Year()

	l := ledger.Loan{
		ID:               ledger.LoanID(ledger.NewID()),
		Description:      "Short-term cash loan",
		Principal:        ledger.NewMoneyFromInt(48000),
		AnnualRate:       decimal.NewFromFloat(0.36),
		TermMonths:       12,
		IssueDate:        ledger.NewDate(year-1, time.June, 1),
		Status:           ledger.LoanActive,
		OriginalLenderID: mfo.ID,
		CurrentHolderID:  mfo.ID,
		CreatedAt:        time.Now().UTC(),
	}

	return h.Store.WithTx(ctx, func(s ledger.Store) error {
		for _, lender := range []*ledger.Lender{&mfo, &collector} {
			if err := s.SaveLender(ctx, lender); err != nil {
				return err
			}
		}
		if err := s.SaveLoan(ctx, &l); err != nil {
			return err
		}
		payments, err := loan.NewGenerator(s).Generate(ctx, l.ID, loan.SplitDeclining, false)
		if err != nil {
			return err
		}
		sm := schedule.NewStatusMachine(s, h.Clock)
		for i, p := range payments[:3] {
			// The second payment came in late.
			date := p.ScheduledDate
			if i == 1 {
				date = date.AddDays(9)
			}
			if _, err := sm.ExecutePayment(ctx, p.ID, date, p.Total); err != nil {
				return err
			}
		}

		remaining, err := s.PaymentsByLoan(ctx, l.ID)
		if err != nil {
			return err
		}
		_, err = loan.NewTransferCoordinator(s, h.Clock).Transfer(ctx, loan.TransferRequest{
			LoanID:     l.ID,
			ToLenderID: collector.ID,
			Date:       h.Clock.Today(),
			Amount:     ledger.PendingTotal(remaining).Round2(),
			Reason:     "portfolio sale",
		})
		return err
	})
}
