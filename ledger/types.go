/*
Package ledger provides the core obligation scheduling engine.

PURPOSE:
  This package contains the domain vocabulary and invariants for turning
  declarative recurrence rules into concrete, dated financial occurrences,
  tracking each occurrence through its lifecycle, and maintaining a
  consistent debt-transfer history when a loan's holder changes.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A monetary quantity backed by decimal.Decimal
  - PlannedTransaction: Template for a recurring income/expense
  - PlannedOccurrence: One concrete, dated instance of a template
  - Loan / LoanPayment: An amortized obligation and its installments
  - Lender / DebtTransfer: Creditors and the append-only holder history

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Type Safety: Strong typing for IDs prevents mixing entity references
  3. Terminality: Executed/skipped occurrences are immutable facts
  4. Auditability: Transfers are append-only; history is never rewritten

SEE ALSO:
  - rule.go: Recurrence rule definition and validation
  - store.go: Persistence interfaces
  - errors.go: Error taxonomy
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Monetary quantity (single currency; conversion is out of scope)
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money          { return Money{Value: decimal.NewFromFloat(value)} }
func NewMoneyFromInt(value int64) Money     { return Money{Value: decimal.NewFromInt(value)} }
func MoneyFromDecimal(d decimal.Decimal) Money { return Money{Value: d} }

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func (m Money) Add(o Money) Money        { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money        { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s)} }
func (m Money) Neg() Money               { return Money{Value: m.Value.Neg()} }
func (m Money) Round2() Money            { return Money{Value: m.Value.Round(2)} }
func (m Money) IsZero() bool             { return m.Value.IsZero() }
func (m Money) IsPositive() bool         { return m.Value.IsPositive() }
func (m Money) IsNegative() bool         { return m.Value.IsNegative() }
func (m Money) Equal(o Money) bool       { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool    { return m.Value.LessThan(o.Value) }
func (m Money) String() string           { return m.Value.StringFixed(2) }

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

// =============================================================================
// IDENTIFIERS - Opaque unique strings, never ordering keys
// =============================================================================

type PlannedTransactionID string
type OccurrenceID string
type CategoryID string
type LenderID string
type LoanID string
type PaymentID string
type TransferID string

// NewID returns a globally unique identifier for a new entity.
func NewID() string { return uuid.NewString() }

// =============================================================================
// PLANNED TRANSACTION - Template for recurring income/expense
// =============================================================================

type TransactionKind string

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

func (k TransactionKind) Valid() bool { return k == KindIncome || k == KindExpense }

// PlannedTransaction is the template from which occurrences are materialized.
// It owns zero-or-one RecurrenceRule and many PlannedOccurrence rows.
type PlannedTransaction struct {
	ID          PlannedTransactionID
	Description string
	Kind        TransactionKind
	CategoryID  CategoryID
	Amount      Money
	StartDate   Date
	Active      bool
	Rule        *RecurrenceRule // nil = one-shot on StartDate
	CreatedAt   time.Time
}

// =============================================================================
// OCCURRENCE STATUS - Shared lifecycle for occurrences and loan payments
// =============================================================================

type OccurrenceStatus string

const (
	StatusPending      OccurrenceStatus = "pending"
	StatusExecuted     OccurrenceStatus = "executed"
	StatusExecutedLate OccurrenceStatus = "executed_late"
	StatusSkipped      OccurrenceStatus = "skipped"
)

// Terminal reports whether the status admits no further transitions.
// Everything except pending is terminal.
func (s OccurrenceStatus) Terminal() bool { return s != StatusPending }

// =============================================================================
// PLANNED OCCURRENCE - One concrete instance on the calendar
// =============================================================================

// PlannedOccurrence is a single dated instance materialized from a template.
// Sequence is the occurrence's index in the rule's deterministic date
// sequence, counted from the template's start date. It is the monotonic
// per-template index that makes by-count end conditions window-independent.
type PlannedOccurrence struct {
	ID        OccurrenceID
	PlannedID PlannedTransactionID
	Sequence  int
	Date      Date
	Amount    Money // may differ from the template if edited later
	Status    OccurrenceStatus

	// Set on execution. RealizedTxID references the realized transaction
	// record created by an external collaborator.
	RealizedTxID   string
	ExecutedDate   *Date
	ExecutedAmount *Money

	// Set on skip. Skipped occurrences are retained for audit.
	SkipReason  string
	SkippedDate *Date

	CreatedAt time.Time
}

// =============================================================================
// LENDER - Creditor entity with immutable identity
// =============================================================================

type LenderKind string

const (
	LenderBank       LenderKind = "bank"
	LenderMFO        LenderKind = "mfo"
	LenderIndividual LenderKind = "individual"
	LenderCollector  LenderKind = "collector"
	LenderOther      LenderKind = "other"
)

func (k LenderKind) Valid() bool {
	switch k {
	case LenderBank, LenderMFO, LenderIndividual, LenderCollector, LenderOther:
		return true
	}
	return false
}

// Lender names are unique across the store.
type Lender struct {
	ID        LenderID
	Name      string
	Kind      LenderKind
	Notes     string
	CreatedAt time.Time
}

// =============================================================================
// LOAN - Amortized obligation
// =============================================================================

type LoanStatus string

const (
	LoanActive    LoanStatus = "active"
	LoanPaidOff   LoanStatus = "paid_off"
	LoanDefaulted LoanStatus = "defaulted"
)

// Loan tracks principal, rate and term plus the holder chain.
//
// INVARIANTS:
//   - OriginalLenderID never changes after creation.
//   - CurrentHolderID equals the ToLenderID of the most recent DebtTransfer,
//     or OriginalLenderID if no transfer exists. It is a stored field kept
//     consistent in the same transaction that appends a transfer.
type Loan struct {
	ID               LoanID
	Description      string
	Principal        Money
	AnnualRate       decimal.Decimal // 0.12 = 12% APR
	TermMonths       int
	IssueDate        Date
	Status           LoanStatus
	OriginalLenderID LenderID
	CurrentHolderID  LenderID
	CreatedAt        time.Time
}

// =============================================================================
// LOAN PAYMENT - One scheduled installment
// =============================================================================

// LoanPayment is one installment of a loan schedule. HolderID is the lender
// entitled to the payment: re-pointed on transfer while pending, frozen at
// execution time once executed.
type LoanPayment struct {
	ID            PaymentID
	LoanID        LoanID
	Period        int // 1-based installment number
	ScheduledDate Date
	Principal     Money
	Interest      Money
	Total         Money
	Status        OccurrenceStatus
	HolderID      LenderID

	ExecutedDate   *Date
	ExecutedAmount *Money
	SkipReason     string

	CreatedAt time.Time
}

// OverdueDays returns how many days past due the payment is as of the given
// date. Zero for non-pending payments and payments not yet due.
func (p LoanPayment) OverdueDays(asOf Date) int {
	if p.Status != StatusPending || !p.ScheduledDate.Before(asOf) {
		return 0
	}
	return DaysBetween(p.ScheduledDate, asOf)
}

// =============================================================================
// DEBT TRANSFER - Append-only holder change record
// =============================================================================

// DebtTransfer records a holder change. Immutable once appended. Seq is a
// monotonic per-loan counter assigned at append time, used to break ordering
// ties between transfers on the same date.
type DebtTransfer struct {
	ID               TransferID
	LoanID           LoanID
	Seq              int
	FromLenderID     LenderID
	ToLenderID       LenderID
	TransferDate     Date
	TransferAmount   Money // balance at the moment of transfer, as agreed
	PreviousAmount   Money // outstanding balance immediately before
	AmountDifference Money // TransferAmount - PreviousAmount
	Reason           string
	CreatedAt        time.Time
}
