// Package store provides the in-memory Store implementation used by tests
// and development servers.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/obligation-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements ledger.TxStore in process memory. Single-writer
// semantics with a mutex; WithTx simulates transactions with a snapshot
// that is restored on error.
type Memory struct {
	mu   sync.RWMutex
	data *tables
}

type tables struct {
	planned     map[ledger.PlannedTransactionID]ledger.PlannedTransaction
	occurrences map[ledger.OccurrenceID]ledger.PlannedOccurrence
	lenders     map[ledger.LenderID]ledger.Lender
	loans       map[ledger.LoanID]ledger.Loan
	payments    map[ledger.PaymentID]ledger.LoanPayment
	transfers   map[ledger.LoanID][]ledger.DebtTransfer
}

func newTables() *tables {
	return &tables{
		planned:     make(map[ledger.PlannedTransactionID]ledger.PlannedTransaction),
		occurrences: make(map[ledger.OccurrenceID]ledger.PlannedOccurrence),
		lenders:     make(map[ledger.LenderID]ledger.Lender),
		loans:       make(map[ledger.LoanID]ledger.Loan),
		payments:    make(map[ledger.PaymentID]ledger.LoanPayment),
		transfers:   make(map[ledger.LoanID][]ledger.DebtTransfer),
	}
}

func NewMemory() *Memory {
	return &Memory{data: newTables()}
}

var _ ledger.TxStore = (*Memory)(nil)

// Reset clears all data (for testing/demo).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = newTables()
	return nil
}

// =============================================================================
// PLANNED TRANSACTIONS
// =============================================================================

func (t *tables) savePlanned(pt *ledger.PlannedTransaction) error {
	t.planned[pt.ID] = *pt
	return nil
}

func (t *tables) getPlanned(id ledger.PlannedTransactionID) (*ledger.PlannedTransaction, error) {
	pt, ok := t.planned[id]
	if !ok {
		return nil, &ledger.NotFoundError{Entity: "planned transaction", ID: string(id)}
	}
	return &pt, nil
}

func (t *tables) listPlanned() ([]ledger.PlannedTransaction, error) {
	out := make([]ledger.PlannedTransaction, 0, len(t.planned))
	for _, pt := range t.planned {
		out = append(out, pt)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// =============================================================================
// OCCURRENCES
// =============================================================================

func (t *tables) saveOccurrence(o *ledger.PlannedOccurrence) error {
	for _, existing := range t.occurrences {
		if existing.ID == o.ID || existing.PlannedID != o.PlannedID {
			continue
		}
		if existing.Date.Equal(o.Date) || existing.Sequence == o.Sequence {
			return &ledger.ValidationError{Field: "occurrence", Reason: "duplicate date or sequence for template"}
		}
	}
	t.occurrences[o.ID] = *o
	return nil
}

func (t *tables) getOccurrence(id ledger.OccurrenceID) (*ledger.PlannedOccurrence, error) {
	o, ok := t.occurrences[id]
	if !ok {
		return nil, &ledger.NotFoundError{Entity: "occurrence", ID: string(id)}
	}
	return &o, nil
}

func sortOccurrences(out []ledger.PlannedOccurrence) {
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Sequence < out[j].Sequence
	})
}

func (t *tables) occurrencesByPlanned(id ledger.PlannedTransactionID) ([]ledger.PlannedOccurrence, error) {
	var out []ledger.PlannedOccurrence
	for _, o := range t.occurrences {
		if o.PlannedID == id {
			out = append(out, o)
		}
	}
	sortOccurrences(out)
	return out, nil
}

func (t *tables) occurrencesInRange(from, to ledger.Date) ([]ledger.PlannedOccurrence, error) {
	var out []ledger.PlannedOccurrence
	for _, o := range t.occurrences {
		if o.Date.AfterOrEqual(from) && o.Date.BeforeOrEqual(to) {
			out = append(out, o)
		}
	}
	sortOccurrences(out)
	return out, nil
}

func (t *tables) pendingOccurrences() ([]ledger.PlannedOccurrence, error) {
	var out []ledger.PlannedOccurrence
	for _, o := range t.occurrences {
		if o.Status == ledger.StatusPending {
			out = append(out, o)
		}
	}
	sortOccurrences(out)
	return out, nil
}

// =============================================================================
// LENDERS
// =============================================================================

func (t *tables) saveLender(l *ledger.Lender) error {
	for _, existing := range t.lenders {
		if existing.Name == l.Name && existing.ID != l.ID {
			return ledger.ErrDuplicateLenderName
		}
	}
	t.lenders[l.ID] = *l
	return nil
}

func (t *tables) getLender(id ledger.LenderID) (*ledger.Lender, error) {
	l, ok := t.lenders[id]
	if !ok {
		return nil, &ledger.NotFoundError{Entity: "lender", ID: string(id)}
	}
	return &l, nil
}

func (t *tables) getLenderByName(name string) (*ledger.Lender, error) {
	for _, l := range t.lenders {
		if l.Name == name {
			lender := l
			return &lender, nil
		}
	}
	return nil, &ledger.NotFoundError{Entity: "lender", ID: name}
}

func (t *tables) listLenders() ([]ledger.Lender, error) {
	out := make([]ledger.Lender, 0, len(t.lenders))
	for _, l := range t.lenders {
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// =============================================================================
// LOANS
// =============================================================================

func (t *tables) saveLoan(l *ledger.Loan) error {
	t.loans[l.ID] = *l
	return nil
}

func (t *tables) getLoan(id ledger.LoanID) (*ledger.Loan, error) {
	l, ok := t.loans[id]
	if !ok {
		return nil, &ledger.NotFoundError{Entity: "loan", ID: string(id)}
	}
	return &l, nil
}

func (t *tables) listLoans() ([]ledger.Loan, error) {
	out := make([]ledger.Loan, 0, len(t.loans))
	for _, l := range t.loans {
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// =============================================================================
// LOAN PAYMENTS
// =============================================================================

func (t *tables) savePayment(p *ledger.LoanPayment) error {
	t.payments[p.ID] = *p
	return nil
}

func (t *tables) savePayments(ps []ledger.LoanPayment) error {
	for i := range ps {
		if err := t.savePayment(&ps[i]); err != nil {
			return err
		}
	}
	return nil
}

func (t *tables) getPayment(id ledger.PaymentID) (*ledger.LoanPayment, error) {
	p, ok := t.payments[id]
	if !ok {
		return nil, &ledger.NotFoundError{Entity: "payment", ID: string(id)}
	}
	return &p, nil
}

func (t *tables) paymentsByLoan(id ledger.LoanID) ([]ledger.LoanPayment, error) {
	var out []ledger.LoanPayment
	for _, p := range t.payments {
		if p.LoanID == id {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out, nil
}

func (t *tables) deletePendingPayments(id ledger.LoanID) error {
	for pid, p := range t.payments {
		if p.LoanID == id && p.Status == ledger.StatusPending {
			delete(t.payments, pid)
		}
	}
	return nil
}

// =============================================================================
// DEBT TRANSFERS
// =============================================================================

func (t *tables) appendTransfer(tr *ledger.DebtTransfer) error {
	t.transfers[tr.LoanID] = append(t.transfers[tr.LoanID], *tr)
	return nil
}

func (t *tables) transfersByLoan(id ledger.LoanID) ([]ledger.DebtTransfer, error) {
	out := make([]ledger.DebtTransfer, len(t.transfers[id]))
	copy(out, t.transfers[id])
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TransferDate.Equal(out[j].TransferDate) {
			return out[i].TransferDate.Before(out[j].TransferDate)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

// =============================================================================
// LOCKED FACADE - Memory methods acquire the mutex and delegate
// =============================================================================

func (m *Memory) SavePlannedTransaction(_ context.Context, pt *ledger.PlannedTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.savePlanned(pt)
}

func (m *Memory) GetPlannedTransaction(_ context.Context, id ledger.PlannedTransactionID) (*ledger.PlannedTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getPlanned(id)
}

func (m *Memory) ListPlannedTransactions(_ context.Context) ([]ledger.PlannedTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.listPlanned()
}

func (m *Memory) SaveOccurrence(_ context.Context, o *ledger.PlannedOccurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.saveOccurrence(o)
}

func (m *Memory) GetOccurrence(_ context.Context, id ledger.OccurrenceID) (*ledger.PlannedOccurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getOccurrence(id)
}

func (m *Memory) OccurrencesByPlanned(_ context.Context, id ledger.PlannedTransactionID) ([]ledger.PlannedOccurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.occurrencesByPlanned(id)
}

func (m *Memory) OccurrencesInRange(_ context.Context, from, to ledger.Date) ([]ledger.PlannedOccurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.occurrencesInRange(from, to)
}

func (m *Memory) PendingOccurrences(_ context.Context) ([]ledger.PlannedOccurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.pendingOccurrences()
}

func (m *Memory) SaveLender(_ context.Context, l *ledger.Lender) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.saveLender(l)
}

func (m *Memory) GetLender(_ context.Context, id ledger.LenderID) (*ledger.Lender, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getLender(id)
}

func (m *Memory) GetLenderByName(_ context.Context, name string) (*ledger.Lender, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getLenderByName(name)
}

func (m *Memory) ListLenders(_ context.Context) ([]ledger.Lender, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.listLenders()
}

func (m *Memory) SaveLoan(_ context.Context, l *ledger.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.saveLoan(l)
}

func (m *Memory) GetLoan(_ context.Context, id ledger.LoanID) (*ledger.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getLoan(id)
}

func (m *Memory) ListLoans(_ context.Context) ([]ledger.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.listLoans()
}

func (m *Memory) SavePayment(_ context.Context, p *ledger.LoanPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.savePayment(p)
}

func (m *Memory) SavePayments(_ context.Context, ps []ledger.LoanPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.savePayments(ps)
}

func (m *Memory) GetPayment(_ context.Context, id ledger.PaymentID) (*ledger.LoanPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getPayment(id)
}

func (m *Memory) PaymentsByLoan(_ context.Context, id ledger.LoanID) ([]ledger.LoanPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.paymentsByLoan(id)
}

func (m *Memory) DeletePendingPayments(_ context.Context, id ledger.LoanID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.deletePendingPayments(id)
}

func (m *Memory) AppendTransfer(_ context.Context, t *ledger.DebtTransfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.appendTransfer(t)
}

func (m *Memory) TransfersByLoan(_ context.Context, id ledger.LoanID) ([]ledger.DebtTransfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.transfersByLoan(id)
}

// =============================================================================
// TRANSACTIONS - Snapshot and restore on error
// =============================================================================

// WithTx executes fn against an unlocked view of the tables while holding
// the write lock. On error the pre-transaction snapshot is restored.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(&txView{data: m.data}); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.planned {
		c.planned[k] = v
	}
	for k, v := range t.occurrences {
		c.occurrences[k] = v
	}
	for k, v := range t.lenders {
		c.lenders[k] = v
	}
	for k, v := range t.loans {
		c.loans[k] = v
	}
	for k, v := range t.payments {
		c.payments[k] = v
	}
	for k, v := range t.transfers {
		c.transfers[k] = append([]ledger.DebtTransfer{}, v...)
	}
	return c
}

// txView delegates to the tables without locking; the enclosing WithTx
// already holds the write lock.
type txView struct {
	data *tables
}

var _ ledger.Store = (*txView)(nil)

func (v *txView) SavePlannedTransaction(_ context.Context, pt *ledger.PlannedTransaction) error {
	return v.data.savePlanned(pt)
}

func (v *txView) GetPlannedTransaction(_ context.Context, id ledger.PlannedTransactionID) (*ledger.PlannedTransaction, error) {
	return v.data.getPlanned(id)
}

func (v *txView) ListPlannedTransactions(_ context.Context) ([]ledger.PlannedTransaction, error) {
	return v.data.listPlanned()
}

func (v *txView) SaveOccurrence(_ context.Context, o *ledger.PlannedOccurrence) error {
	return v.data.saveOccurrence(o)
}

func (v *txView) GetOccurrence(_ context.Context, id ledger.OccurrenceID) (*ledger.PlannedOccurrence, error) {
	return v.data.getOccurrence(id)
}

func (v *txView) OccurrencesByPlanned(_ context.Context, id ledger.PlannedTransactionID) ([]ledger.PlannedOccurrence, error) {
	return v.data.occurrencesByPlanned(id)
}

func (v *txView) OccurrencesInRange(_ context.Context, from, to ledger.Date) ([]ledger.PlannedOccurrence, error) {
	return v.data.occurrencesInRange(from, to)
}

func (v *txView) PendingOccurrences(_ context.Context) ([]ledger.PlannedOccurrence, error) {
	return v.data.pendingOccurrences()
}

func (v *txView) SaveLender(_ context.Context, l *ledger.Lender) error {
	return v.data.saveLender(l)
}

func (v *txView) GetLender(_ context.Context, id ledger.LenderID) (*ledger.Lender, error) {
	return v.data.getLender(id)
}

func (v *txView) GetLenderByName(_ context.Context, name string) (*ledger.Lender, error) {
	return v.data.getLenderByName(name)
}

func (v *txView) ListLenders(_ context.Context) ([]ledger.Lender, error) {
	return v.data.listLenders()
}

func (v *txView) SaveLoan(_ context.Context, l *ledger.Loan) error {
	return v.data.saveLoan(l)
}

func (v *txView) GetLoan(_ context.Context, id ledger.LoanID) (*ledger.Loan, error) {
	return v.data.getLoan(id)
}

func (v *txView) ListLoans(_ context.Context) ([]ledger.Loan, error) {
	return v.data.listLoans()
}

func (v *txView) SavePayment(_ context.Context, p *ledger.LoanPayment) error {
	return v.data.savePayment(p)
}

func (v *txView) SavePayments(_ context.Context, ps []ledger.LoanPayment) error {
	return v.data.savePayments(ps)
}

func (v *txView) GetPayment(_ context.Context, id ledger.PaymentID) (*ledger.LoanPayment, error) {
	return v.data.getPayment(id)
}

func (v *txView) PaymentsByLoan(_ context.Context, id ledger.LoanID) ([]ledger.LoanPayment, error) {
	return v.data.paymentsByLoan(id)
}

func (v *txView) DeletePendingPayments(_ context.Context, id ledger.LoanID) error {
	return v.data.deletePendingPayments(id)
}

func (v *txView) AppendTransfer(_ context.Context, t *ledger.DebtTransfer) error {
	return v.data.appendTransfer(t)
}

func (v *txView) TransfersByLoan(_ context.Context, id ledger.LoanID) ([]ledger.DebtTransfer, error) {
	return v.data.transfersByLoan(id)
}
