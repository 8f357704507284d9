/*
transfer.go - Debt transfer coordination

PURPOSE:
  Records a holder change for a loan: validates the transfer, appends an
  immutable DebtTransfer record, re-points every pending payment to the
  new holder and updates the loan's stored current holder - all inside
  the caller's transactional boundary, all-or-nothing.

INVARIANTS:
  - Loan.OriginalLenderID never changes.
  - Loan.CurrentHolderID equals the ToLenderID of the latest transfer,
    or OriginalLenderID if none exist.
  - Pending payments always carry the current effective holder; executed
    payments keep the holder recorded at execution time.
  - A transfer's PreviousAmount equals the outstanding balance (sum of
    pending payment totals) immediately before the transfer.
*/
package loan

import (
	"context"
	"time"

	"github.com/warp/obligation-engine/ledger"
)

// TransferRequest carries the transfer parameters. FromLenderID is
// optional: when set it must match the loan's current effective holder,
// guarding callers that act on a stale view of the loan.
type TransferRequest struct {
	LoanID       ledger.LoanID
	ToLenderID   ledger.LenderID
	FromLenderID ledger.LenderID
	Date         ledger.Date // zero defaults to today
	Amount       ledger.Money
	Reason       string
}

// TransferCoordinator performs validated, atomic holder changes.
type TransferCoordinator struct {
	store ledger.Store
	clock ledger.Clock
}

func NewTransferCoordinator(store ledger.Store, clock ledger.Clock) *TransferCoordinator {
	if clock == nil {
		clock = ledger.SystemClock()
	}
	return &TransferCoordinator{store: store, clock: clock}
}

// Transfer validates the request, then applies the holder change. All
// preconditions are checked before any mutation; a validation failure
// leaves no side effects.
func (c *TransferCoordinator) Transfer(ctx context.Context, req TransferRequest) (*ledger.DebtTransfer, error) {
	loan, err := c.store.GetLoan(ctx, req.LoanID)
	if err != nil {
		return nil, err
	}
	if _, err := c.store.GetLender(ctx, req.ToLenderID); err != nil {
		return nil, err
	}

	if loan.Status == ledger.LoanPaidOff {
		return nil, ledger.ErrLoanAlreadySettled
	}
	if req.ToLenderID == loan.CurrentHolderID {
		return nil, ledger.ErrSelfTransfer
	}
	if !req.Amount.IsPositive() {
		return nil, ledger.ErrInvalidTransferAmount
	}
	if req.FromLenderID != "" && req.FromLenderID != loan.CurrentHolderID {
		return nil, ledger.ErrTransferSourceMismatch
	}

	payments, err := c.store.PaymentsByLoan(ctx, req.LoanID)
	if err != nil {
		return nil, err
	}
	previous := ledger.PendingTotal(payments)

	history, err := c.store.TransfersByLoan(ctx, req.LoanID)
	if err != nil {
		return nil, err
	}

	date := req.Date
	if date.IsZero() {
		date = c.clock.Today()
	}

	transfer := &ledger.DebtTransfer{
		ID:               ledger.TransferID(ledger.NewID()),
		LoanID:           loan.ID,
		Seq:              len(history) + 1,
		FromLenderID:     loan.CurrentHolderID,
		ToLenderID:       req.ToLenderID,
		TransferDate:     date,
		TransferAmount:   req.Amount,
		PreviousAmount:   previous,
		AmountDifference: req.Amount.Sub(previous),
		Reason:           req.Reason,
		CreatedAt:        time.Now().UTC(),
	}
	if err := c.store.AppendTransfer(ctx, transfer); err != nil {
		return nil, err
	}

	// Re-point pending payments; executed payments are untouched.
	for i := range payments {
		if payments[i].Status != ledger.StatusPending {
			continue
		}
		payments[i].HolderID = req.ToLenderID
		if err := c.store.SavePayment(ctx, &payments[i]); err != nil {
			return nil, err
		}
	}

	loan.CurrentHolderID = req.ToLenderID
	if err := c.store.SaveLoan(ctx, loan); err != nil {
		return nil, err
	}
	return transfer, nil
}
