/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Lenders:
    LenderDTO, CreateLenderRequest

  Planned transactions:
    PlannedTransactionDTO, RuleDTO, CreatePlannedRequest

  Occurrences:
    OccurrenceDTO, ExecuteRequest, SkipRequest

  Loans:
    LoanDTO, CreateLoanRequest, GenerateScheduleRequest,
    PaymentDTO, TransferRequestDTO, TransferDTO

  Read side:
    BalanceDTO, StatisticsDTO, ExposureDTO

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/rule.go: The rule model RuleDTO maps onto
*/
package api

import (
	"time"

	"github.com/warp/obligation-engine/ledger"
)

// =============================================================================
// LENDERS
// =============================================================================

// LenderDTO represents a creditor in API responses.
type LenderDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateLenderRequest is the request to create a lender.
type CreateLenderRequest struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Notes string `json:"notes,omitempty"`
}

func toLenderDTO(l ledger.Lender) LenderDTO {
	return LenderDTO{
		ID:        string(l.ID),
		Name:      l.Name,
		Kind:      string(l.Kind),
		Notes:     l.Notes,
		CreatedAt: l.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// PLANNED TRANSACTIONS & RULES
// =============================================================================

// RuleDTO is the wire form of a recurrence rule.
type RuleDTO struct {
	Type         string   `json:"type"`
	Interval     int      `json:"interval,omitempty"`
	Unit         string   `json:"unit,omitempty"`
	Weekdays     []string `json:"weekdays,omitempty"`
	OnlyWorkdays bool     `json:"only_workdays,omitempty"`
	EndKind      string   `json:"end_kind"`
	EndDate      string   `json:"end_date,omitempty"`
	EndCount     int      `json:"end_count,omitempty"`
}

// PlannedTransactionDTO represents a recurring template.
type PlannedTransactionDTO struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Kind        string   `json:"kind"`
	CategoryID  string   `json:"category_id,omitempty"`
	Amount      string   `json:"amount"`
	StartDate   string   `json:"start_date"`
	Active      bool     `json:"active"`
	Rule        *RuleDTO `json:"rule,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// CreatePlannedRequest is the request to create a planned transaction.
type CreatePlannedRequest struct {
	Description string   `json:"description"`
	Kind        string   `json:"kind"`
	CategoryID  string   `json:"category_id,omitempty"`
	Amount      string   `json:"amount"`
	StartDate   string   `json:"start_date"`
	Rule        *RuleDTO `json:"rule,omitempty"`
}

var weekdayNames = []struct {
	name string
	day  time.Weekday
}{
	{"sunday", time.Sunday},
	{"monday", time.Monday},
	{"tuesday", time.Tuesday},
	{"wednesday", time.Wednesday},
	{"thursday", time.Thursday},
	{"friday", time.Friday},
	{"saturday", time.Saturday},
}

// toRule converts the wire form to the domain rule. The domain's Validate
// runs afterwards in the handler; this only maps fields.
func (r *RuleDTO) toRule() (*ledger.RecurrenceRule, error) {
	if r == nil {
		return nil, nil
	}
	rule := ledger.RecurrenceRule{
		Type:         ledger.RecurrenceType(r.Type),
		Interval:     r.Interval,
		Unit:         ledger.IntervalUnit(r.Unit),
		OnlyWorkdays: r.OnlyWorkdays,
		End:          ledger.EndCondition{Kind: ledger.EndKind(r.EndKind), Count: r.EndCount},
	}
	for _, name := range r.Weekdays {
		found := false
		for _, wd := range weekdayNames {
			if wd.name == name {
				rule.Weekdays |= ledger.NewWeekdaySet(wd.day)
				found = true
				break
			}
		}
		if !found {
			return nil, &ledger.ValidationError{Field: "weekdays", Reason: "unknown weekday " + name}
		}
	}
	if r.EndDate != "" {
		d, err := ledger.ParseDate(r.EndDate)
		if err != nil {
			return nil, &ledger.ValidationError{Field: "end_date", Reason: err.Error()}
		}
		rule.End.Date = &d
	}
	return &rule, nil
}

func toRuleDTO(rule *ledger.RecurrenceRule) *RuleDTO {
	if rule == nil {
		return nil
	}
	dto := RuleDTO{
		Type:         string(rule.Type),
		Interval:     rule.Interval,
		Unit:         string(rule.Unit),
		OnlyWorkdays: rule.OnlyWorkdays,
		EndKind:      string(rule.End.Kind),
		EndCount:     rule.End.Count,
	}
	for _, wd := range weekdayNames {
		if rule.Weekdays.Contains(wd.day) {
			dto.Weekdays = append(dto.Weekdays, wd.name)
		}
	}
	if rule.End.Date != nil {
		dto.EndDate = rule.End.Date.String()
	}
	return &dto
}

func toPlannedDTO(pt ledger.PlannedTransaction) PlannedTransactionDTO {
	return PlannedTransactionDTO{
		ID:          string(pt.ID),
		Description: pt.Description,
		Kind:        string(pt.Kind),
		CategoryID:  string(pt.CategoryID),
		Amount:      pt.Amount.String(),
		StartDate:   pt.StartDate.String(),
		Active:      pt.Active,
		Rule:        toRuleDTO(pt.Rule),
		CreatedAt:   pt.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// OCCURRENCES
// =============================================================================

// OccurrenceDTO represents one materialized calendar instance.
type OccurrenceDTO struct {
	ID             string `json:"id"`
	PlannedID      string `json:"planned_id"`
	Sequence       int    `json:"sequence"`
	Date           string `json:"date"`
	Amount         string `json:"amount"`
	Status         string `json:"status"`
	RealizedTxID   string `json:"realized_tx_id,omitempty"`
	ExecutedDate   string `json:"executed_date,omitempty"`
	ExecutedAmount string `json:"executed_amount,omitempty"`
	SkipReason     string `json:"skip_reason,omitempty"`
	SkippedDate    string `json:"skipped_date,omitempty"`
}

func toOccurrenceDTO(o ledger.PlannedOccurrence) OccurrenceDTO {
	dto := OccurrenceDTO{
		ID:           string(o.ID),
		PlannedID:    string(o.PlannedID),
		Sequence:     o.Sequence,
		Date:         o.Date.String(),
		Amount:       o.Amount.String(),
		Status:       string(o.Status),
		RealizedTxID: o.RealizedTxID,
		SkipReason:   o.SkipReason,
	}
	if o.ExecutedDate != nil {
		dto.ExecutedDate = o.ExecutedDate.String()
	}
	if o.ExecutedAmount != nil {
		dto.ExecutedAmount = o.ExecutedAmount.String()
	}
	if o.SkippedDate != nil {
		dto.SkippedDate = o.SkippedDate.String()
	}
	return dto
}

func toOccurrenceDTOs(occs []ledger.PlannedOccurrence) []OccurrenceDTO {
	dtos := make([]OccurrenceDTO, len(occs))
	for i, o := range occs {
		dtos[i] = toOccurrenceDTO(o)
	}
	return dtos
}

// ExecuteRequest marks an occurrence or payment executed.
type ExecuteRequest struct {
	ExecutedDate   string `json:"executed_date,omitempty"` // empty = today
	ExecutedAmount string `json:"executed_amount"`
	RealizedTxID   string `json:"realized_tx_id,omitempty"` // occurrences only
}

// SkipRequest marks an occurrence or payment skipped.
type SkipRequest struct {
	Reason string `json:"reason,omitempty"`
}

// =============================================================================
// LOANS
// =============================================================================

// LoanDTO represents a loan with its holder chain.
type LoanDTO struct {
	ID               string `json:"id"`
	Description      string `json:"description"`
	Principal        string `json:"principal"`
	AnnualRate       string `json:"annual_rate"`
	TermMonths       int    `json:"term_months"`
	IssueDate        string `json:"issue_date"`
	Status           string `json:"status"`
	OriginalLenderID string `json:"original_lender_id"`
	CurrentHolderID  string `json:"current_holder_id"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// CreateLoanRequest is the request to create a loan.
type CreateLoanRequest struct {
	Description string `json:"description"`
	Principal   string `json:"principal"`
	AnnualRate  string `json:"annual_rate"`
	TermMonths  int    `json:"term_months"`
	IssueDate   string `json:"issue_date"`
	LenderID    string `json:"lender_id"`
}

// GenerateScheduleRequest selects the split policy for schedule generation.
type GenerateScheduleRequest struct {
	SplitPolicy string `json:"split_policy"`
	Force       bool   `json:"force,omitempty"`
}

func toLoanDTO(l ledger.Loan) LoanDTO {
	return LoanDTO{
		ID:               string(l.ID),
		Description:      l.Description,
		Principal:        l.Principal.String(),
		AnnualRate:       l.AnnualRate.String(),
		TermMonths:       l.TermMonths,
		IssueDate:        l.IssueDate.String(),
		Status:           string(l.Status),
		OriginalLenderID: string(l.OriginalLenderID),
		CurrentHolderID:  string(l.CurrentHolderID),
		CreatedAt:        l.CreatedAt.Format(time.RFC3339),
	}
}

// PaymentDTO represents one schedule installment. OverdueDays is computed
// against the server's clock at response time, never stored.
type PaymentDTO struct {
	ID             string `json:"id"`
	LoanID         string `json:"loan_id"`
	Period         int    `json:"period"`
	ScheduledDate  string `json:"scheduled_date"`
	Principal      string `json:"principal"`
	Interest       string `json:"interest"`
	Total          string `json:"total"`
	Status         string `json:"status"`
	HolderID       string `json:"holder_id"`
	ExecutedDate   string `json:"executed_date,omitempty"`
	ExecutedAmount string `json:"executed_amount,omitempty"`
	SkipReason     string `json:"skip_reason,omitempty"`
	OverdueDays    int    `json:"overdue_days,omitempty"`
}

func toPaymentDTO(p ledger.LoanPayment, asOf ledger.Date) PaymentDTO {
	dto := PaymentDTO{
		ID:            string(p.ID),
		LoanID:        string(p.LoanID),
		Period:        p.Period,
		ScheduledDate: p.ScheduledDate.String(),
		Principal:     p.Principal.String(),
		Interest:      p.Interest.String(),
		Total:         p.Total.String(),
		Status:        string(p.Status),
		HolderID:      string(p.HolderID),
		SkipReason:    p.SkipReason,
		OverdueDays:   p.OverdueDays(asOf),
	}
	if p.ExecutedDate != nil {
		dto.ExecutedDate = p.ExecutedDate.String()
	}
	if p.ExecutedAmount != nil {
		dto.ExecutedAmount = p.ExecutedAmount.String()
	}
	return dto
}

func toPaymentDTOs(ps []ledger.LoanPayment, asOf ledger.Date) []PaymentDTO {
	dtos := make([]PaymentDTO, len(ps))
	for i, p := range ps {
		dtos[i] = toPaymentDTO(p, asOf)
	}
	return dtos
}

// =============================================================================
// DEBT TRANSFERS
// =============================================================================

// TransferRequestDTO is the request to transfer a loan's debt.
type TransferRequestDTO struct {
	ToLenderID   string `json:"to_lender_id"`
	FromLenderID string `json:"from_lender_id,omitempty"` // stale-view guard
	Date         string `json:"date,omitempty"`           // empty = today
	Amount       string `json:"amount"`
	Reason       string `json:"reason,omitempty"`
}

// TransferDTO represents one recorded holder change.
type TransferDTO struct {
	ID               string `json:"id"`
	LoanID           string `json:"loan_id"`
	Seq              int    `json:"seq"`
	FromLenderID     string `json:"from_lender_id"`
	ToLenderID       string `json:"to_lender_id"`
	TransferDate     string `json:"transfer_date"`
	TransferAmount   string `json:"transfer_amount"`
	PreviousAmount   string `json:"previous_amount"`
	AmountDifference string `json:"amount_difference"`
	Reason           string `json:"reason,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
}

func toTransferDTO(t ledger.DebtTransfer) TransferDTO {
	return TransferDTO{
		ID:               string(t.ID),
		LoanID:           string(t.LoanID),
		Seq:              t.Seq,
		FromLenderID:     string(t.FromLenderID),
		ToLenderID:       string(t.ToLenderID),
		TransferDate:     t.TransferDate.String(),
		TransferAmount:   t.TransferAmount.String(),
		PreviousAmount:   t.PreviousAmount.String(),
		AmountDifference: t.AmountDifference.String(),
		Reason:           t.Reason,
		CreatedAt:        t.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// READ SIDE
// =============================================================================

// BalanceDTO is the remaining debt of a loan.
type BalanceDTO struct {
	LoanID        string `json:"loan_id"`
	RemainingDebt string `json:"remaining_debt"`
}

// StatisticsDTO summarizes occurrences in a window.
type StatisticsDTO struct {
	From            string `json:"from"`
	To              string `json:"to"`
	PendingCount    int    `json:"pending_count"`
	ExecutedCount   int    `json:"executed_count"`
	SkippedCount    int    `json:"skipped_count"`
	PlannedIncome   string `json:"planned_income"`
	PlannedExpense  string `json:"planned_expense"`
	ExecutedIncome  string `json:"executed_income"`
	ExecutedExpense string `json:"executed_expense"`
}

// ExposureDTO is the pending total attributed to one holder.
type ExposureDTO struct {
	LenderID string `json:"lender_id"`
	Name     string `json:"name"`
	Pending  string `json:"pending"`
	Loans    int    `json:"loans"`
}

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
