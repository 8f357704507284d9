/*
handlers.go - HTTP API handlers for the obligation scheduling engine

PURPOSE:
  Exposes the scheduling engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Lenders:
    GET    /api/lenders                 List all lenders
    POST   /api/lenders                 Create lender
    GET    /api/lenders/{id}            Get lender details

  Planned transactions:
    GET    /api/planned                 List templates
    POST   /api/planned                 Create template with optional rule
    GET    /api/planned/{id}            Get template
    POST   /api/planned/{id}/materialize Materialize occurrences for a window

  Occurrences:
    GET    /api/occurrences?from&to     Occurrences in a date range
    GET    /api/occurrences/pending     All pending occurrences
    POST   /api/occurrences/{id}/execute Execute a pending occurrence
    POST   /api/occurrences/{id}/skip   Skip a pending occurrence

  Loans:
    GET    /api/loans                   List loans
    POST   /api/loans                   Create loan
    GET    /api/loans/{id}              Get loan
    POST   /api/loans/{id}/schedule     Generate amortization schedule
    GET    /api/loans/{id}/payments     List schedule installments
    GET    /api/loans/{id}/balance      Remaining debt
    POST   /api/loans/{id}/transfers    Transfer debt to another lender
    GET    /api/loans/{id}/transfers    Transfer history, oldest first
    POST   /api/payments/{id}/execute   Execute a pending payment
    POST   /api/payments/{id}/skip      Skip a pending payment

  Read side:
    GET    /api/statistics?from&to      Occurrence statistics for a window
    GET    /api/exposure                Pending totals grouped by holder
    GET    /api/payments/overdue        Payments past due

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic inside a store transaction (mutations)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Entity not found
  - 409: Illegal state transition, business rule violation
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/obligation-engine/ledger"
	"github.com/warp/obligation-engine/loan"
	"github.com/warp/obligation-engine/schedule"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter is implemented by stores that can wipe all data (dev/demo only).
type Resetter interface {
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store ledger.TxStore
	Clock ledger.Clock

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store ledger.TxStore) *Handler {
	return &Handler{Store: store, Clock: ledger.SystemClock()}
}

// =============================================================================
// LENDER HANDLERS
// =============================================================================

// ListLenders returns all lenders, name ascending.
func (h *Handler) ListLenders(w http.ResponseWriter, r *http.Request) {
	lenders, err := h.Store.ListLenders(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list lenders", err)
		return
	}

	dtos := make([]LenderDTO, len(lenders))
	for i, l := range lenders {
		dtos[i] = toLenderDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLender returns a single lender.
func (h *Handler) GetLender(w http.ResponseWriter, r *http.Request) {
	l, err := h.Store.GetLender(r.Context(), ledger.LenderID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get lender", err)
		return
	}
	writeJSON(w, http.StatusOK, toLenderDTO(*l))
}

// CreateLender creates a new lender. Names are unique.
func (h *Handler) CreateLender(w http.ResponseWriter, r *http.Request) {
	var req CreateLenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Lender name is required", nil)
		return
	}
	kind := ledger.LenderKind(req.Kind)
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown lender kind", nil)
		return
	}

	l := ledger.Lender{
		ID:        ledger.LenderID(ledger.NewID()),
		Name:      req.Name,
		Kind:      kind,
		Notes:     req.Notes,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveLender(r.Context(), &l); err != nil {
		writeDomainError(w, "Failed to create lender", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLenderDTO(l))
}

// =============================================================================
// PLANNED TRANSACTION HANDLERS
// =============================================================================

// ListPlanned returns all planned transaction templates.
func (h *Handler) ListPlanned(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Store.ListPlannedTransactions(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list planned transactions", err)
		return
	}

	dtos := make([]PlannedTransactionDTO, len(templates))
	for i, pt := range templates {
		dtos[i] = toPlannedDTO(pt)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPlanned returns a single template.
func (h *Handler) GetPlanned(w http.ResponseWriter, r *http.Request) {
	pt, err := h.Store.GetPlannedTransaction(r.Context(), ledger.PlannedTransactionID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get planned transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlannedDTO(*pt))
}

// CreatePlanned creates a template with an optional recurrence rule.
// The rule is validated before anything is persisted.
func (h *Handler) CreatePlanned(w http.ResponseWriter, r *http.Request) {
	var req CreatePlannedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	kind := ledger.TransactionKind(req.Kind)
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "Kind must be income or expense", nil)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Amount must be a positive decimal", err)
		return
	}
	start, err := ledger.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	rule, err := req.Rule.toRule()
	if err != nil {
		writeDomainError(w, "Invalid recurrence rule", err)
		return
	}
	if rule != nil {
		if err := rule.Validate(); err != nil {
			writeDomainError(w, "Invalid recurrence rule", err)
			return
		}
	}

	pt := ledger.PlannedTransaction{
		ID:          ledger.PlannedTransactionID(ledger.NewID()),
		Description: req.Description,
		Kind:        kind,
		CategoryID:  ledger.CategoryID(req.CategoryID),
		Amount:      ledger.MoneyFromDecimal(amount),
		StartDate:   start,
		Active:      true,
		Rule:        rule,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Store.SavePlannedTransaction(r.Context(), &pt); err != nil {
		writeDomainError(w, "Failed to create planned transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlannedDTO(pt))
}

// MaterializeOccurrences expands the template's rule over the requested
// window. Idempotent: re-running over overlapping windows creates no
// duplicates. Runs inside a transaction so a partial expansion never
// commits.
func (h *Handler) MaterializeOccurrences(w http.ResponseWriter, r *http.Request) {
	id := ledger.PlannedTransactionID(chi.URLParam(r, "id"))
	window, err := windowFromQuery(r)
	if err != nil {
		writeDomainError(w, "Invalid materialization window", err)
		return
	}

	var occs []ledger.PlannedOccurrence
	err = h.Store.WithTx(r.Context(), func(s ledger.Store) error {
		var err error
		occs, err = schedule.NewMaterializer(s).Materialize(r.Context(), id, window)
		return err
	})
	if err != nil {
		writeDomainError(w, "Failed to materialize occurrences", err)
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceDTOs(occs))
}

// =============================================================================
// OCCURRENCE HANDLERS
// =============================================================================

// ListOccurrences returns occurrences in [from, to], date ascending.
func (h *Handler) ListOccurrences(w http.ResponseWriter, r *http.Request) {
	window, err := windowFromQuery(r)
	if err != nil {
		writeDomainError(w, "Invalid date range", err)
		return
	}

	occs, err := ledger.NewQueries(h.Store, h.Clock).OccurrencesBetween(r.Context(), window.From, window.To)
	if err != nil {
		writeDomainError(w, "Failed to list occurrences", err)
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceDTOs(occs))
}

// ListPendingOccurrences returns every pending occurrence.
func (h *Handler) ListPendingOccurrences(w http.ResponseWriter, r *http.Request) {
	occs, err := ledger.NewQueries(h.Store, h.Clock).PendingOccurrences(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list pending occurrences", err)
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceDTOs(occs))
}

// ExecuteOccurrence marks a pending occurrence executed (or executed-late
// when past its date).
func (h *Handler) ExecuteOccurrence(w http.ResponseWriter, r *http.Request) {
	id := ledger.OccurrenceID(chi.URLParam(r, "id"))
	date, amount, realizedTxID, err := parseExecuteRequest(r)
	if err != nil {
		writeDomainError(w, "Invalid execute request", err)
		return
	}

	var occ *ledger.PlannedOccurrence
	err = h.Store.WithTx(r.Context(), func(s ledger.Store) error {
		var err error
		occ, err = schedule.NewStatusMachine(s, h.Clock).ExecuteOccurrence(r.Context(), id, date, amount, realizedTxID)
		return err
	})
	if err != nil {
		writeDomainError(w, "Failed to execute occurrence", err)
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceDTO(*occ))
}

// SkipOccurrence marks a pending occurrence skipped.
func (h *Handler) SkipOccurrence(w http.ResponseWriter, r *http.Request) {
	id := ledger.OccurrenceID(chi.URLParam(r, "id"))
	var req SkipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var occ *ledger.PlannedOccurrence
	err := h.Store.WithTx(r.Context(), func(s ledger.Store) error {
		var err error
		occ, err = schedule.NewStatusMachine(s, h.Clock).SkipOccurrence(r.Context(), id, req.Reason)
		return err
	})
	if err != nil {
		writeDomainError(w, "Failed to skip occurrence", err)
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceDTO(*occ))
}

// =============================================================================
// LOAN HANDLERS
// =============================================================================

// ListLoans returns all loans.
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.Store.ListLoans(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list loans", err)
		return
	}

	dtos := make([]LoanDTO, len(loans))
	for i, l := range loans {
		dtos[i] = toLoanDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLoan returns a single loan.
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	l, err := h.Store.GetLoan(r.Context(), ledger.LoanID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get loan", err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(*l))
}

// CreateLoan creates a loan. The issuing lender becomes both the original
// lender and the current holder; a schedule is not generated until the
// client asks for one with an explicit split policy.
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	principal, err := decimal.NewFromString(req.Principal)
	if err != nil || !principal.IsPositive() {
		writeError(w, http.StatusBadRequest, "Principal must be a positive decimal", err)
		return
	}
	rate, err := decimal.NewFromString(req.AnnualRate)
	if err != nil || rate.IsNegative() {
		writeError(w, http.StatusBadRequest, "Annual rate must be a non-negative decimal", err)
		return
	}
	if req.TermMonths < 1 {
		writeError(w, http.StatusBadRequest, "Term must be at least one month", nil)
		return
	}
	issue, err := ledger.ParseDate(req.IssueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid issue_date format (use YYYY-MM-DD)", err)
		return
	}

	lenderID := ledger.LenderID(req.LenderID)
	if _, err := h.Store.GetLender(r.Context(), lenderID); err != nil {
		writeDomainError(w, "Issuing lender not found", err)
		return
	}

	l := ledger.Loan{
		ID:               ledger.LoanID(ledger.NewID()),
		Description:      req.Description,
		Principal:        ledger.MoneyFromDecimal(principal),
		AnnualRate:       rate,
		TermMonths:       req.TermMonths,
		IssueDate:        issue,
		Status:           ledger.LoanActive,
		OriginalLenderID: lenderID,
		CurrentHolderID:  lenderID,
		CreatedAt:        time.Now().UTC(),
	}
	if err := h.Store.SaveLoan(r.Context(), &l); err != nil {
		writeDomainError(w, "Failed to create loan", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoanDTO(l))
}

// GenerateSchedule produces the amortized payment schedule under an
// explicit split policy. Fails if executed payments exist unless forced.
func (h *Handler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	id := ledger.LoanID(chi.URLParam(r, "id"))
	var req GenerateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var payments []ledger.LoanPayment
	err := h.Store.WithTx(r.Context(), func(s ledger.Store) error {
		var err error
		payments, err = loan.NewGenerator(s).Generate(r.Context(), id, loan.SplitPolicy(req.SplitPolicy), req.Force)
		return err
	})
	if err != nil {
		writeDomainError(w, "Failed to generate schedule", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTOs(payments, h.Clock.Today()))
}

// ListPayments returns the loan's schedule, period ascending.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id := ledger.LoanID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetLoan(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to get loan", err)
		return
	}
	payments, err := h.Store.PaymentsByLoan(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTOs(payments, h.Clock.Today()))
}

// GetBalance returns the loan's remaining debt (sum of pending totals).
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.LoanID(chi.URLParam(r, "id"))
	remaining, err := ledger.NewQueries(h.Store, h.Clock).RemainingDebt(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to compute remaining debt", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{LoanID: string(id), RemainingDebt: remaining.String()})
}

// ExecutePayment marks a pending payment executed.
func (h *Handler) ExecutePayment(w http.ResponseWriter, r *http.Request) {
	id := ledger.PaymentID(chi.URLParam(r, "id"))
	date, amount, _, err := parseExecuteRequest(r)
	if err != nil {
		writeDomainError(w, "Invalid execute request", err)
		return
	}

	var p *ledger.LoanPayment
	err = h.Store.WithTx(r.Context(), func(s ledger.Store) error {
		var err error
		p, err = schedule.NewStatusMachine(s, h.Clock).ExecutePayment(r.Context(), id, date, amount)
		return err
	})
	if err != nil {
		writeDomainError(w, "Failed to execute payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(*p, h.Clock.Today()))
}

// SkipPayment marks a pending payment skipped.
func (h *Handler) SkipPayment(w http.ResponseWriter, r *http.Request) {
	id := ledger.PaymentID(chi.URLParam(r, "id"))
	var req SkipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var p *ledger.LoanPayment
	err := h.Store.WithTx(r.Context(), func(s ledger.Store) error {
		var err error
		p, err = schedule.NewStatusMachine(s, h.Clock).SkipPayment(r.Context(), id, req.Reason)
		return err
	})
	if err != nil {
		writeDomainError(w, "Failed to skip payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(*p, h.Clock.Today()))
}

// =============================================================================
// DEBT TRANSFER HANDLERS
// =============================================================================

// TransferDebt records a holder change. All preconditions are validated
// before any mutation; the transfer record, re-pointed payments and the
// loan's holder commit or roll back together.
func (h *Handler) TransferDebt(w http.ResponseWriter, r *http.Request) {
	id := ledger.LoanID(chi.URLParam(r, "id"))
	var req TransferRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Amount must be a decimal", err)
		return
	}
	domainReq := loan.TransferRequest{
		LoanID:       id,
		ToLenderID:   ledger.LenderID(req.ToLenderID),
		FromLenderID: ledger.LenderID(req.FromLenderID),
		Amount:       ledger.MoneyFromDecimal(amount),
		Reason:       req.Reason,
	}
	if req.Date != "" {
		if domainReq.Date, err = ledger.ParseDate(req.Date); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
	}

	var transfer *ledger.DebtTransfer
	err = h.Store.WithTx(r.Context(), func(s ledger.Store) error {
		var err error
		transfer, err = loan.NewTransferCoordinator(s, h.Clock).Transfer(r.Context(), domainReq)
		return err
	})
	if err != nil {
		writeDomainError(w, "Failed to transfer debt", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransferDTO(*transfer))
}

// ListTransfers returns a loan's transfer history, oldest first.
func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	id := ledger.LoanID(chi.URLParam(r, "id"))
	transfers, err := ledger.NewQueries(h.Store, h.Clock).TransferHistory(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list transfers", err)
		return
	}
	dtos := make([]TransferDTO, len(transfers))
	for i, t := range transfers {
		dtos[i] = toTransferDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// READ-SIDE HANDLERS
// =============================================================================

// GetStatistics aggregates occurrence counts and amounts over a window.
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	window, err := windowFromQuery(r)
	if err != nil {
		writeDomainError(w, "Invalid date range", err)
		return
	}

	stats, err := ledger.NewQueries(h.Store, h.Clock).Statistics(r.Context(), window.From, window.To)
	if err != nil {
		writeDomainError(w, "Failed to compute statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, StatisticsDTO{
		From:            stats.Window.From.String(),
		To:              stats.Window.To.String(),
		PendingCount:    stats.PendingCount,
		ExecutedCount:   stats.ExecutedCount,
		SkippedCount:    stats.SkippedCount,
		PlannedIncome:   stats.PlannedIncome.String(),
		PlannedExpense:  stats.PlannedExpense.String(),
		ExecutedIncome:  stats.ExecutedIncome.String(),
		ExecutedExpense: stats.ExecutedExpense.String(),
	})
}

// GetExposure groups outstanding pending totals by current holder.
func (h *Handler) GetExposure(w http.ResponseWriter, r *http.Request) {
	exposures, err := ledger.NewQueries(h.Store, h.Clock).HolderExposure(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to compute exposure", err)
		return
	}
	dtos := make([]ExposureDTO, len(exposures))
	for i, e := range exposures {
		dtos[i] = ExposureDTO{
			LenderID: string(e.LenderID),
			Name:     e.Name,
			Pending:  e.Pending.String(),
			Loans:    e.Loans,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListOverduePayments returns pending payments past due as of today.
func (h *Handler) ListOverduePayments(w http.ResponseWriter, r *http.Request) {
	overdue, err := ledger.NewQueries(h.Store, h.Clock).OverduePayments(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list overdue payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTOs(overdue, h.Clock.Today()))
}

// ResetDatabase wipes all data. Dev/demo environments only.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	resetter, ok := h.Store.(Resetter)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Store does not support reset", nil)
		return
	}
	if err := resetter.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, ledger.ErrInvalidTransition), errors.Is(err, ledger.ErrBusinessRule):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, ledger.ErrValidation):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// windowFromQuery parses the from/to query parameters into a Window.
func windowFromQuery(r *http.Request) (ledger.Window, error) {
	fromStr, toStr := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if fromStr == "" || toStr == "" {
		return ledger.Window{}, &ledger.ValidationError{Field: "window", Reason: "from and to query parameters are required"}
	}
	from, err := ledger.ParseDate(fromStr)
	if err != nil {
		return ledger.Window{}, &ledger.ValidationError{Field: "from", Reason: err.Error()}
	}
	to, err := ledger.ParseDate(toStr)
	if err != nil {
		return ledger.Window{}, &ledger.ValidationError{Field: "to", Reason: err.Error()}
	}
	return ledger.NewWindow(from, to)
}

// parseExecuteRequest decodes an ExecuteRequest body into domain values.
// An absent executed_date yields a zero Date, which the status machine
// resolves to today.
func parseExecuteRequest(r *http.Request) (ledger.Date, ledger.Money, string, error) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ledger.Date{}, ledger.Money{}, "", &ledger.ValidationError{Field: "body", Reason: err.Error()}
	}
	amount, err := decimal.NewFromString(req.ExecutedAmount)
	if err != nil {
		return ledger.Date{}, ledger.Money{}, "", &ledger.ValidationError{Field: "executed_amount", Reason: "must be a decimal"}
	}
	var date ledger.Date
	if req.ExecutedDate != "" {
		if date, err = ledger.ParseDate(req.ExecutedDate); err != nil {
			return ledger.Date{}, ledger.Money{}, "", &ledger.ValidationError{Field: "executed_date", Reason: err.Error()}
		}
	}
	return date, ledger.MoneyFromDecimal(amount), req.RealizedTxID, nil
}
