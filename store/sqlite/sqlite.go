/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore using SQLite. The same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  planned_transactions: Recurring templates with embedded rule columns
  occurrences:          Materialized calendar instances
  lenders:              Creditor entities (unique names)
  loans:                Amortized obligations with holder chain
  loan_payments:        Schedule installments
  debt_transfers:       Append-only holder history

INDEXES:
  - idx_occurrences_planned_date / _seq: Materialization idempotence
    (backstop for the materializer's read-before-write dedup)
  - idx_transfers_loan_seq: Per-loan transfer ordering
  - idx_payments_loan: Schedule and balance queries (hot path)

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block
  and crash recovery improves. This engine assumes a single active writer.

TRANSACTIONS:
  WithTx wraps a function in BEGIN/COMMIT with rollback on error. Every
  mutating engine operation runs inside WithTx so occurrence, schedule
  and transfer rows commit or roll back together.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/obligation-engine/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	queries
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{queries: queries{db: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	-- Recurring templates; rule columns are NULL when no rule is attached
	CREATE TABLE IF NOT EXISTS planned_transactions (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		kind TEXT NOT NULL,
		category_id TEXT,
		amount TEXT NOT NULL,
		start_date TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		recurrence_type TEXT,
		recur_interval INTEGER,
		recur_unit TEXT,
		weekdays INTEGER,
		only_workdays INTEGER,
		end_kind TEXT,
		end_date TEXT,
		end_count INTEGER,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS occurrences (
		id TEXT PRIMARY KEY,
		planned_id TEXT NOT NULL REFERENCES planned_transactions(id),
		seq INTEGER NOT NULL,
		occurrence_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL,
		realized_tx_id TEXT,
		executed_date TEXT,
		executed_amount TEXT,
		skip_reason TEXT,
		skipped_date TEXT,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_occurrences_planned_date
		ON occurrences(planned_id, occurrence_date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_occurrences_planned_seq
		ON occurrences(planned_id, seq);
	CREATE INDEX IF NOT EXISTS idx_occurrences_date ON occurrences(occurrence_date);
	CREATE INDEX IF NOT EXISTS idx_occurrences_status ON occurrences(status);

	CREATE TABLE IF NOT EXISTS lenders (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		principal TEXT NOT NULL,
		annual_rate TEXT NOT NULL,
		term_months INTEGER NOT NULL,
		issue_date TEXT NOT NULL,
		status TEXT NOT NULL,
		original_lender_id TEXT NOT NULL REFERENCES lenders(id),
		current_holder_id TEXT NOT NULL REFERENCES lenders(id),
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS loan_payments (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL REFERENCES loans(id),
		period INTEGER NOT NULL,
		scheduled_date TEXT NOT NULL,
		principal TEXT NOT NULL,
		interest TEXT NOT NULL,
		total TEXT NOT NULL,
		status TEXT NOT NULL,
		holder_id TEXT NOT NULL REFERENCES lenders(id),
		executed_date TEXT,
		executed_amount TEXT,
		skip_reason TEXT,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_loan_period
		ON loan_payments(loan_id, period);
	CREATE INDEX IF NOT EXISTS idx_payments_loan ON loan_payments(loan_id);
	CREATE INDEX IF NOT EXISTS idx_payments_status ON loan_payments(status);

	-- Append-only: no UPDATE or DELETE statements exist for this table
	CREATE TABLE IF NOT EXISTS debt_transfers (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL REFERENCES loans(id),
		seq INTEGER NOT NULL,
		from_lender_id TEXT NOT NULL REFERENCES lenders(id),
		to_lender_id TEXT NOT NULL REFERENCES lenders(id),
		transfer_date TEXT NOT NULL,
		transfer_amount TEXT NOT NULL,
		previous_amount TEXT NOT NULL,
		amount_difference TEXT NOT NULL,
		reason TEXT,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_transfers_loan_seq
		ON debt_transfers(loan_id, seq);
	CREATE INDEX IF NOT EXISTS idx_transfers_loan_date
		ON debt_transfers(loan_id, transfer_date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &ledger.PersistenceError{Op: "begin tx", Err: err}
	}
	if err := fn(&queries{db: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return &ledger.PersistenceError{Op: "commit tx", Err: err}
	}
	return nil
}

var _ ledger.TxStore = (*Store)(nil)

// Reset clears all data (for testing/demo). Children first so foreign keys
// hold throughout.
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{"debt_transfers", "loan_payments", "loans", "lenders", "occurrences", "planned_transactions"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return &ledger.PersistenceError{Op: "reset", Err: err}
		}
	}
	return nil
}

// dbtx is satisfied by both *sql.DB and *sql.Tx, so the same query code
// serves direct and transactional access.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

var _ ledger.Store = (*queries)(nil)

// =============================================================================
// PLANNED TRANSACTIONS
// =============================================================================

func (q *queries) SavePlannedTransaction(ctx context.Context, pt *ledger.PlannedTransaction) error {
	var (
		recurType, recurUnit, endKind, endDate sql.NullString
		recurInterval, weekdays, endCount      sql.NullInt64
		onlyWorkdays                           sql.NullInt64
	)
	if r := pt.Rule; r != nil {
		recurType = nullString(string(r.Type))
		recurUnit = nullString(string(r.Unit))
		endKind = nullString(string(r.End.Kind))
		recurInterval = sql.NullInt64{Int64: int64(r.Interval), Valid: true}
		weekdays = sql.NullInt64{Int64: int64(r.Weekdays), Valid: true}
		onlyWorkdays = sql.NullInt64{Int64: boolToInt(r.OnlyWorkdays), Valid: true}
		endCount = sql.NullInt64{Int64: int64(r.End.Count), Valid: true}
		if r.End.Date != nil {
			endDate = nullString(r.End.Date.String())
		}
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO planned_transactions
			(id, description, kind, category_id, amount, start_date, active,
			 recurrence_type, recur_interval, recur_unit, weekdays,
			 only_workdays, end_kind, end_date, end_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			kind = excluded.kind,
			category_id = excluded.category_id,
			amount = excluded.amount,
			start_date = excluded.start_date,
			active = excluded.active,
			recurrence_type = excluded.recurrence_type,
			recur_interval = excluded.recur_interval,
			recur_unit = excluded.recur_unit,
			weekdays = excluded.weekdays,
			only_workdays = excluded.only_workdays,
			end_kind = excluded.end_kind,
			end_date = excluded.end_date,
			end_count = excluded.end_count`,
		string(pt.ID), pt.Description, string(pt.Kind), nullString(string(pt.CategoryID)),
		pt.Amount.Value.String(), pt.StartDate.String(), boolToInt(pt.Active),
		recurType, recurInterval, recurUnit, weekdays,
		onlyWorkdays, endKind, endDate, endCount,
		pt.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return &ledger.PersistenceError{Op: "save planned transaction", Err: err}
	}
	return nil
}

const plannedColumns = `id, description, kind, category_id, amount, start_date, active,
	recurrence_type, recur_interval, recur_unit, weekdays, only_workdays,
	end_kind, end_date, end_count, created_at`

func (q *queries) GetPlannedTransaction(ctx context.Context, id ledger.PlannedTransactionID) (*ledger.PlannedTransaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+plannedColumns+` FROM planned_transactions WHERE id = ?`, string(id))
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "get planned transaction", Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, &ledger.NotFoundError{Entity: "planned transaction", ID: string(id)}
	}
	return scanPlanned(rows)
}

func (q *queries) ListPlannedTransactions(ctx context.Context) ([]ledger.PlannedTransaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+plannedColumns+` FROM planned_transactions ORDER BY created_at`)
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "list planned transactions", Err: err}
	}
	defer rows.Close()

	var out []ledger.PlannedTransaction
	for rows.Next() {
		pt, err := scanPlanned(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *pt)
	}
	return out, rows.Err()
}

func scanPlanned(rows *sql.Rows) (*ledger.PlannedTransaction, error) {
	var (
		pt                                     ledger.PlannedTransaction
		id, kind, amount, startDate, createdAt string
		categoryID                             sql.NullString
		active                                 int
		recurType, recurUnit, endKind, endDate sql.NullString
		recurInterval, weekdays, endCount      sql.NullInt64
		onlyWorkdays                           sql.NullInt64
	)
	err := rows.Scan(&id, &pt.Description, &kind, &categoryID, &amount, &startDate, &active,
		&recurType, &recurInterval, &recurUnit, &weekdays, &onlyWorkdays,
		&endKind, &endDate, &endCount, &createdAt)
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "scan planned transaction", Err: err}
	}

	pt.ID = ledger.PlannedTransactionID(id)
	pt.Kind = ledger.TransactionKind(kind)
	pt.CategoryID = ledger.CategoryID(categoryID.String)
	pt.Amount = parseMoney(amount)
	pt.Active = active != 0
	if pt.StartDate, err = ledger.ParseDate(startDate); err != nil {
		return nil, err
	}
	if pt.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, &ledger.PersistenceError{Op: "scan planned transaction", Err: err}
	}

	if recurType.Valid {
		rule := ledger.RecurrenceRule{
			Type:         ledger.RecurrenceType(recurType.String),
			Interval:     int(recurInterval.Int64),
			Unit:         ledger.IntervalUnit(recurUnit.String),
			Weekdays:     ledger.WeekdaySet(weekdays.Int64),
			OnlyWorkdays: onlyWorkdays.Int64 != 0,
			End:          ledger.EndCondition{Kind: ledger.EndKind(endKind.String), Count: int(endCount.Int64)},
		}
		if endDate.Valid {
			d, err := ledger.ParseDate(endDate.String)
			if err != nil {
				return nil, err
			}
			rule.End.Date = &d
		}
		pt.Rule = &rule
	}
	return &pt, nil
}

// =============================================================================
// OCCURRENCES
// =============================================================================

func (q *queries) SaveOccurrence(ctx context.Context, o *ledger.PlannedOccurrence) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO occurrences
			(id, planned_id, seq, occurrence_date, amount, status,
			 realized_tx_id, executed_date, executed_amount,
			 skip_reason, skipped_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			status = excluded.status,
			realized_tx_id = excluded.realized_tx_id,
			executed_date = excluded.executed_date,
			executed_amount = excluded.executed_amount,
			skip_reason = excluded.skip_reason,
			skipped_date = excluded.skipped_date`,
		string(o.ID), string(o.PlannedID), o.Sequence, o.Date.String(),
		o.Amount.Value.String(), string(o.Status),
		nullString(o.RealizedTxID), nullDate(o.ExecutedDate), nullMoney(o.ExecutedAmount),
		nullString(o.SkipReason), nullDate(o.SkippedDate),
		o.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueConstraintError(err) {
			return &ledger.ValidationError{Field: "occurrence", Reason: "duplicate date or sequence for template"}
		}
		return &ledger.PersistenceError{Op: "save occurrence", Err: err}
	}
	return nil
}

const occurrenceColumns = `id, planned_id, seq, occurrence_date, amount, status,
	realized_tx_id, executed_date, executed_amount, skip_reason, skipped_date, created_at`

func (q *queries) GetOccurrence(ctx context.Context, id ledger.OccurrenceID) (*ledger.PlannedOccurrence, error) {
	occs, err := q.queryOccurrences(ctx,
		`SELECT `+occurrenceColumns+` FROM occurrences WHERE id = ?`, string(id))
	if err != nil {
		return nil, err
	}
	if len(occs) == 0 {
		return nil, &ledger.NotFoundError{Entity: "occurrence", ID: string(id)}
	}
	return &occs[0], nil
}

func (q *queries) OccurrencesByPlanned(ctx context.Context, id ledger.PlannedTransactionID) ([]ledger.PlannedOccurrence, error) {
	return q.queryOccurrences(ctx,
		`SELECT `+occurrenceColumns+` FROM occurrences
		 WHERE planned_id = ? ORDER BY occurrence_date, seq`, string(id))
}

func (q *queries) OccurrencesInRange(ctx context.Context, from, to ledger.Date) ([]ledger.PlannedOccurrence, error) {
	return q.queryOccurrences(ctx,
		`SELECT `+occurrenceColumns+` FROM occurrences
		 WHERE occurrence_date >= ? AND occurrence_date <= ?
		 ORDER BY occurrence_date, seq`, from.String(), to.String())
}

func (q *queries) PendingOccurrences(ctx context.Context) ([]ledger.PlannedOccurrence, error) {
	return q.queryOccurrences(ctx,
		`SELECT `+occurrenceColumns+` FROM occurrences
		 WHERE status = ? ORDER BY occurrence_date, seq`, string(ledger.StatusPending))
}

func (q *queries) queryOccurrences(ctx context.Context, query string, args ...any) ([]ledger.PlannedOccurrence, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "query occurrences", Err: err}
	}
	defer rows.Close()

	var out []ledger.PlannedOccurrence
	for rows.Next() {
		var (
			o                           ledger.PlannedOccurrence
			id, plannedID, date, amount string
			status, createdAt           string
			realizedTxID, skipReason    sql.NullString
			executedDate, skippedDate   sql.NullString
			executedAmount              sql.NullString
		)
		err := rows.Scan(&id, &plannedID, &o.Sequence, &date, &amount, &status,
			&realizedTxID, &executedDate, &executedAmount, &skipReason, &skippedDate, &createdAt)
		if err != nil {
			return nil, &ledger.PersistenceError{Op: "scan occurrence", Err: err}
		}
		o.ID = ledger.OccurrenceID(id)
		o.PlannedID = ledger.PlannedTransactionID(plannedID)
		o.Amount = parseMoney(amount)
		o.Status = ledger.OccurrenceStatus(status)
		o.RealizedTxID = realizedTxID.String
		o.SkipReason = skipReason.String
		if o.Date, err = ledger.ParseDate(date); err != nil {
			return nil, err
		}
		if o.ExecutedDate, err = parseNullDate(executedDate); err != nil {
			return nil, err
		}
		if o.SkippedDate, err = parseNullDate(skippedDate); err != nil {
			return nil, err
		}
		o.ExecutedAmount = parseNullMoney(executedAmount)
		if o.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, &ledger.PersistenceError{Op: "scan occurrence", Err: err}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// =============================================================================
// LENDERS
// =============================================================================

func (q *queries) SaveLender(ctx context.Context, l *ledger.Lender) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO lenders (id, name, kind, notes, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			notes = excluded.notes`,
		string(l.ID), l.Name, string(l.Kind), nullString(l.Notes),
		l.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateLenderName
		}
		return &ledger.PersistenceError{Op: "save lender", Err: err}
	}
	return nil
}

func (q *queries) GetLender(ctx context.Context, id ledger.LenderID) (*ledger.Lender, error) {
	return q.getLenderWhere(ctx, "id = ?", string(id))
}

func (q *queries) GetLenderByName(ctx context.Context, name string) (*ledger.Lender, error) {
	return q.getLenderWhere(ctx, "name = ?", name)
}

func (q *queries) getLenderWhere(ctx context.Context, where, arg string) (*ledger.Lender, error) {
	var (
		l             ledger.Lender
		id, createdAt string
		notes         sql.NullString
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, kind, notes, created_at FROM lenders WHERE `+where, arg).
		Scan(&id, &l.Name, (*string)(&l.Kind), &notes, &createdAt)
	if err == sql.ErrNoRows {
		return nil, &ledger.NotFoundError{Entity: "lender", ID: arg}
	}
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "get lender", Err: err}
	}
	l.ID = ledger.LenderID(id)
	l.Notes = notes.String
	if l.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, &ledger.PersistenceError{Op: "get lender", Err: err}
	}
	return &l, nil
}

func (q *queries) ListLenders(ctx context.Context) ([]ledger.Lender, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, kind, notes, created_at FROM lenders ORDER BY name`)
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "list lenders", Err: err}
	}
	defer rows.Close()

	var out []ledger.Lender
	for rows.Next() {
		var (
			l             ledger.Lender
			id, createdAt string
			notes         sql.NullString
		)
		if err := rows.Scan(&id, &l.Name, (*string)(&l.Kind), &notes, &createdAt); err != nil {
			return nil, &ledger.PersistenceError{Op: "scan lender", Err: err}
		}
		l.ID = ledger.LenderID(id)
		l.Notes = notes.String
		if l.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, &ledger.PersistenceError{Op: "scan lender", Err: err}
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// =============================================================================
// LOANS
// =============================================================================

func (q *queries) SaveLoan(ctx context.Context, l *ledger.Loan) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO loans
			(id, description, principal, annual_rate, term_months, issue_date,
			 status, original_lender_id, current_holder_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			status = excluded.status,
			current_holder_id = excluded.current_holder_id`,
		string(l.ID), l.Description, l.Principal.Value.String(), l.AnnualRate.String(),
		l.TermMonths, l.IssueDate.String(), string(l.Status),
		string(l.OriginalLenderID), string(l.CurrentHolderID),
		l.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return &ledger.PersistenceError{Op: "save loan", Err: err}
	}
	return nil
}

const loanColumns = `id, description, principal, annual_rate, term_months,
	issue_date, status, original_lender_id, current_holder_id, created_at`

func (q *queries) GetLoan(ctx context.Context, id ledger.LoanID) (*ledger.Loan, error) {
	loans, err := q.queryLoans(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = ?`, string(id))
	if err != nil {
		return nil, err
	}
	if len(loans) == 0 {
		return nil, &ledger.NotFoundError{Entity: "loan", ID: string(id)}
	}
	return &loans[0], nil
}

func (q *queries) ListLoans(ctx context.Context) ([]ledger.Loan, error) {
	return q.queryLoans(ctx, `SELECT `+loanColumns+` FROM loans ORDER BY created_at`)
}

func (q *queries) queryLoans(ctx context.Context, query string, args ...any) ([]ledger.Loan, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "query loans", Err: err}
	}
	defer rows.Close()

	var out []ledger.Loan
	for rows.Next() {
		var (
			l                                         ledger.Loan
			id, principal, rate, issueDate, createdAt string
			original, holder                          string
		)
		err := rows.Scan(&id, &l.Description, &principal, &rate, &l.TermMonths,
			&issueDate, (*string)(&l.Status), &original, &holder, &createdAt)
		if err != nil {
			return nil, &ledger.PersistenceError{Op: "scan loan", Err: err}
		}
		l.ID = ledger.LoanID(id)
		l.Principal = parseMoney(principal)
		l.OriginalLenderID = ledger.LenderID(original)
		l.CurrentHolderID = ledger.LenderID(holder)
		if l.AnnualRate, err = decimal.NewFromString(rate); err != nil {
			return nil, &ledger.PersistenceError{Op: "scan loan", Err: err}
		}
		if l.IssueDate, err = ledger.ParseDate(issueDate); err != nil {
			return nil, err
		}
		if l.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, &ledger.PersistenceError{Op: "scan loan", Err: err}
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// =============================================================================
// LOAN PAYMENTS
// =============================================================================

func (q *queries) SavePayment(ctx context.Context, p *ledger.LoanPayment) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO loan_payments
			(id, loan_id, period, scheduled_date, principal, interest, total,
			 status, holder_id, executed_date, executed_amount, skip_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			holder_id = excluded.holder_id,
			executed_date = excluded.executed_date,
			executed_amount = excluded.executed_amount,
			skip_reason = excluded.skip_reason`,
		string(p.ID), string(p.LoanID), p.Period, p.ScheduledDate.String(),
		p.Principal.Value.String(), p.Interest.Value.String(), p.Total.Value.String(),
		string(p.Status), string(p.HolderID),
		nullDate(p.ExecutedDate), nullMoney(p.ExecutedAmount), nullString(p.SkipReason),
		p.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return &ledger.PersistenceError{Op: "save payment", Err: err}
	}
	return nil
}

func (q *queries) SavePayments(ctx context.Context, ps []ledger.LoanPayment) error {
	for i := range ps {
		if err := q.SavePayment(ctx, &ps[i]); err != nil {
			return err
		}
	}
	return nil
}

const paymentColumns = `id, loan_id, period, scheduled_date, principal, interest,
	total, status, holder_id, executed_date, executed_amount, skip_reason, created_at`

func (q *queries) GetPayment(ctx context.Context, id ledger.PaymentID) (*ledger.LoanPayment, error) {
	payments, err := q.queryPayments(ctx,
		`SELECT `+paymentColumns+` FROM loan_payments WHERE id = ?`, string(id))
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, &ledger.NotFoundError{Entity: "payment", ID: string(id)}
	}
	return &payments[0], nil
}

func (q *queries) PaymentsByLoan(ctx context.Context, id ledger.LoanID) ([]ledger.LoanPayment, error) {
	return q.queryPayments(ctx,
		`SELECT `+paymentColumns+` FROM loan_payments WHERE loan_id = ? ORDER BY period`,
		string(id))
}

func (q *queries) DeletePendingPayments(ctx context.Context, id ledger.LoanID) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM loan_payments WHERE loan_id = ? AND status = ?`,
		string(id), string(ledger.StatusPending))
	if err != nil {
		return &ledger.PersistenceError{Op: "delete pending payments", Err: err}
	}
	return nil
}

func (q *queries) queryPayments(ctx context.Context, query string, args ...any) ([]ledger.LoanPayment, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "query payments", Err: err}
	}
	defer rows.Close()

	var out []ledger.LoanPayment
	for rows.Next() {
		var (
			p                                     ledger.LoanPayment
			id, loanID, date                      string
			principal, interest, total, createdAt string
			holder                                string
			executedDate, executedAmount          sql.NullString
			skipReason                            sql.NullString
		)
		err := rows.Scan(&id, &loanID, &p.Period, &date, &principal, &interest,
			&total, (*string)(&p.Status), &holder, &executedDate, &executedAmount,
			&skipReason, &createdAt)
		if err != nil {
			return nil, &ledger.PersistenceError{Op: "scan payment", Err: err}
		}
		p.ID = ledger.PaymentID(id)
		p.LoanID = ledger.LoanID(loanID)
		p.Principal = parseMoney(principal)
		p.Interest = parseMoney(interest)
		p.Total = parseMoney(total)
		p.HolderID = ledger.LenderID(holder)
		p.SkipReason = skipReason.String
		if p.ScheduledDate, err = ledger.ParseDate(date); err != nil {
			return nil, err
		}
		if p.ExecutedDate, err = parseNullDate(executedDate); err != nil {
			return nil, err
		}
		p.ExecutedAmount = parseNullMoney(executedAmount)
		if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, &ledger.PersistenceError{Op: "scan payment", Err: err}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// DEBT TRANSFERS (append-only)
// =============================================================================

func (q *queries) AppendTransfer(ctx context.Context, t *ledger.DebtTransfer) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO debt_transfers
			(id, loan_id, seq, from_lender_id, to_lender_id, transfer_date,
			 transfer_amount, previous_amount, amount_difference, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.ID), string(t.LoanID), t.Seq, string(t.FromLenderID), string(t.ToLenderID),
		t.TransferDate.String(), t.TransferAmount.Value.String(),
		t.PreviousAmount.Value.String(), t.AmountDifference.Value.String(),
		nullString(t.Reason), t.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return &ledger.PersistenceError{Op: "append transfer", Err: err}
	}
	return nil
}

func (q *queries) TransfersByLoan(ctx context.Context, id ledger.LoanID) ([]ledger.DebtTransfer, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, loan_id, seq, from_lender_id, to_lender_id, transfer_date,
		       transfer_amount, previous_amount, amount_difference, reason, created_at
		FROM debt_transfers WHERE loan_id = ?
		ORDER BY transfer_date, seq`, string(id))
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "query transfers", Err: err}
	}
	defer rows.Close()

	var out []ledger.DebtTransfer
	for rows.Next() {
		var (
			t                        ledger.DebtTransfer
			tid, loanID, from, to    string
			date, amount, prev, diff string
			createdAt                string
			reason                   sql.NullString
		)
		err := rows.Scan(&tid, &loanID, &t.Seq, &from, &to, &date,
			&amount, &prev, &diff, &reason, &createdAt)
		if err != nil {
			return nil, &ledger.PersistenceError{Op: "scan transfer", Err: err}
		}
		t.ID = ledger.TransferID(tid)
		t.LoanID = ledger.LoanID(loanID)
		t.FromLenderID = ledger.LenderID(from)
		t.ToLenderID = ledger.LenderID(to)
		t.TransferAmount = parseMoney(amount)
		t.PreviousAmount = parseMoney(prev)
		t.AmountDifference = parseMoney(diff)
		t.Reason = reason.String
		if t.TransferDate, err = ledger.ParseDate(date); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, &ledger.PersistenceError{Op: "scan transfer", Err: err}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(d *ledger.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullMoney(m *ledger.Money) sql.NullString {
	if m == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: m.Value.String(), Valid: true}
}

func parseMoney(s string) ledger.Money {
	return ledger.MustParseMoney(s)
}

func parseNullDate(s sql.NullString) (*ledger.Date, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := ledger.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseNullMoney(s sql.NullString) *ledger.Money {
	if !s.Valid {
		return nil
	}
	m := ledger.MustParseMoney(s.String)
	return &m
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
