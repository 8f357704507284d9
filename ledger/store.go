/*
store.go - Persistence interfaces for the scheduling engine

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   CRUD over the entities in types.go, queryable by date, range,
           status and foreign keys
  TxStore: Transactional boundary (atomic multi-row commits)

TRANSACTIONAL CONTRACT:
  Every mutating engine operation (materialize, execute, skip, generate,
  transfer) runs inside WithTx. Either all rows commit or none do; partial
  application is a correctness bug, not an accepted failure mode.

APPEND-ONLY RECORDS:
  Debt transfers are append-only: AppendTransfer is the only write, there
  is no update or delete. Occurrences are never deleted while their parent
  template exists; skipped occurrences are retained for audit.

IMPLEMENTATIONS:
  - store/sqlite:     Production SQLite store
  - ledger/store:     In-memory store for tests and development

SEE ALSO:
  - query.go: Read-side facade built on Store
*/
package ledger

import "context"

// Store handles persistence for all engine entities. Implementations return
// *NotFoundError for missing IDs and wrap backend failures in
// *PersistenceError.
type Store interface {
	// Planned transactions
	SavePlannedTransaction(ctx context.Context, pt *PlannedTransaction) error
	GetPlannedTransaction(ctx context.Context, id PlannedTransactionID) (*PlannedTransaction, error)
	ListPlannedTransactions(ctx context.Context) ([]PlannedTransaction, error)

	// Occurrences. Save enforces uniqueness of (planned_id, date) and
	// (planned_id, sequence).
	SaveOccurrence(ctx context.Context, o *PlannedOccurrence) error
	GetOccurrence(ctx context.Context, id OccurrenceID) (*PlannedOccurrence, error)
	OccurrencesByPlanned(ctx context.Context, id PlannedTransactionID) ([]PlannedOccurrence, error)
	OccurrencesInRange(ctx context.Context, from, to Date) ([]PlannedOccurrence, error)
	PendingOccurrences(ctx context.Context) ([]PlannedOccurrence, error)

	// Lenders. Names are unique; Save returns ErrDuplicateLenderName.
	SaveLender(ctx context.Context, l *Lender) error
	GetLender(ctx context.Context, id LenderID) (*Lender, error)
	GetLenderByName(ctx context.Context, name string) (*Lender, error)
	ListLenders(ctx context.Context) ([]Lender, error)

	// Loans
	SaveLoan(ctx context.Context, l *Loan) error
	GetLoan(ctx context.Context, id LoanID) (*Loan, error)
	ListLoans(ctx context.Context) ([]Loan, error)

	// Loan payments. PaymentsByLoan is ordered by period ascending.
	SavePayment(ctx context.Context, p *LoanPayment) error
	SavePayments(ctx context.Context, ps []LoanPayment) error
	GetPayment(ctx context.Context, id PaymentID) (*LoanPayment, error)
	PaymentsByLoan(ctx context.Context, id LoanID) ([]LoanPayment, error)
	DeletePendingPayments(ctx context.Context, id LoanID) error

	// Debt transfers: append-only. TransfersByLoan is ordered by transfer
	// date ascending, ties broken by Seq.
	AppendTransfer(ctx context.Context, t *DebtTransfer) error
	TransfersByLoan(ctx context.Context, id LoanID) ([]DebtTransfer, error)
}

// TxStore wraps Store with a transactional boundary.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
