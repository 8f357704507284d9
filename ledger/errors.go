/*
errors.go - Centralized error types for the scheduling engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Components return structured errors that unwrap to one of five
  category sentinels, so callers can branch on category with errors.Is
  without matching concrete types.

ERROR CATEGORIES:
  1. Validation errors - malformed input, rejected before any state change
  2. State transition errors - execute/skip on a non-pending row
  3. Not-found errors - referenced entity does not exist
  4. Business rule violations - caller logic errors (self-transfer, ...)
  5. Persistence errors - store failures, rollback guaranteed

USAGE:
  if errors.Is(err, ledger.ErrBusinessRule) { ... }
  if errors.Is(err, ledger.ErrSelfTransfer) { ... }

SEE ALSO:
  - schedule/: status machine and materializer produce these
  - loan/: generator and transfer coordinator produce these
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// CATEGORY SENTINELS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the category for malformed input. Always recoverable
	// by the caller correcting the input.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition is the category for execute/skip attempts on a
	// row that is not pending. Terminal states admit no transitions.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNotFound is the category for dangling entity references.
	ErrNotFound = errors.New("entity not found")

	// ErrBusinessRule is the category for operations rejected by domain
	// rules. Indicates a logic error in the caller, not a system fault.
	ErrBusinessRule = errors.New("business rule violation")

	// ErrPersistence is the category for store failures. The enclosing
	// transaction is rolled back; this engine does not retry.
	ErrPersistence = errors.New("persistence failure")
)

// =============================================================================
// NAMED CONDITIONS - Specific rejections, each unwrapping to its category
// =============================================================================

var (
	// ErrLoanAlreadySettled rejects transfers of a paid-off loan.
	ErrLoanAlreadySettled = fmt.Errorf("%w: loan already settled", ErrBusinessRule)

	// ErrSelfTransfer rejects transfers to the loan's current holder.
	ErrSelfTransfer = fmt.Errorf("%w: transfer to current holder", ErrBusinessRule)

	// ErrTransferSourceMismatch rejects transfers that do not originate from
	// the current effective holder.
	ErrTransferSourceMismatch = fmt.Errorf("%w: transfer source is not the current holder", ErrBusinessRule)

	// ErrScheduleAlreadyExecuted rejects schedule regeneration over executed
	// payments without force. Executed payments are immutable facts.
	ErrScheduleAlreadyExecuted = fmt.Errorf("%w: schedule has executed payments", ErrBusinessRule)

	// ErrInvalidTransferAmount rejects non-positive transfer amounts.
	ErrInvalidTransferAmount = fmt.Errorf("%w: transfer amount must be positive", ErrValidation)

	// ErrDuplicateLenderName rejects a second lender with an existing name.
	ErrDuplicateLenderName = fmt.Errorf("%w: lender name already exists", ErrValidation)
)

// =============================================================================
// STRUCTURED ERRORS - Carry context for the caller's error surface
// =============================================================================

// ValidationError reports a malformed field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TransitionError reports an illegal lifecycle transition with enough
// context to construct a user-facing message.
type TransitionError struct {
	Entity    string // "occurrence" or "payment"
	ID        string
	From      OccurrenceStatus
	Attempted string // "execute" or "skip"
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: cannot %s %s %s in status %q",
		e.Attempted, e.Entity, e.ID, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// NotFoundError reports a dangling reference.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PersistenceError wraps a store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return ErrPersistence }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input or
// caller logic, as opposed to a system fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrBusinessRule)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
