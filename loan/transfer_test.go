package loan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/obligation-engine/ledger"
	"github.com/warp/obligation-engine/ledger/store"
	"github.com/warp/obligation-engine/loan"
	"github.com/warp/obligation-engine/schedule"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func fixedClock(d ledger.Date) ledger.Clock { return ledger.FixedClock{Date: d} }

// transferFixture builds an MFO loan with a generated schedule and the first
// payment executed, leaving 11 pending periods.
type transferFixture struct {
	mem       *store.Memory
	mfo       ledger.Lender
	collector ledger.Lender
	loan      ledger.Loan
	pending   ledger.Money
}

func newTransferFixture(t *testing.T) *transferFixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	mfo := seedLender(t, mem, "QuickCash MFO", ledger.LenderMFO)
	collector := seedLender(t, mem, "Atlas Recovery", ledger.LenderCollector)
	l := seedLoan(t, mem, mfo.ID, 48000, "0.36", 12)

	_, err := loan.NewGenerator(mem).Generate(ctx, l.ID, loan.SplitDeclining, false)
	require.NoError(t, err)

	sm := schedule.NewStatusMachine(mem, fixedClock(ledger.NewDate(2024, time.March, 1)))
	payments, err := mem.PaymentsByLoan(ctx, l.ID)
	require.NoError(t, err)
	_, err = sm.ExecutePayment(ctx, payments[0].ID, payments[0].ScheduledDate, payments[0].Total)
	require.NoError(t, err)

	payments, err = mem.PaymentsByLoan(ctx, l.ID)
	require.NoError(t, err)
	return &transferFixture{
		mem:       mem,
		mfo:       mfo,
		collector: collector,
		loan:      l,
		pending:   ledger.PendingTotal(payments),
	}
}

func (f *transferFixture) coordinator(today ledger.Date) *loan.TransferCoordinator {
	return loan.NewTransferCoordinator(f.mem, fixedClock(today))
}

// =============================================================================
// TRANSFER - Holder consistency
// =============================================================================

func TestTransfer_MovesDebtToNewHolder(t *testing.T) {
	// GIVEN: An MFO loan with one executed and eleven pending payments
	// WHEN: The MFO sells the debt to a collector for 50000
	// THEN: The record captures the agreed amount against the outstanding
	//       balance, pending payments follow the collector, the executed
	//       payment stays attributed to the MFO
	ctx := context.Background()
	f := newTransferFixture(t)

	tr, err := f.coordinator(ledger.NewDate(2024, time.June, 1)).Transfer(ctx, loan.TransferRequest{
		LoanID:     f.loan.ID,
		ToLenderID: f.collector.ID,
		Date:       ledger.NewDate(2024, time.June, 1),
		Amount:     ledger.NewMoneyFromInt(50000),
		Reason:     "portfolio sale",
	})
	require.NoError(t, err)

	assert.Equal(t, f.mfo.ID, tr.FromLenderID)
	assert.Equal(t, f.collector.ID, tr.ToLenderID)
	assert.Equal(t, 1, tr.Seq)
	assert.Equal(t, "50000.00", tr.TransferAmount.String())
	assert.True(t, tr.PreviousAmount.Equal(f.pending),
		"previous amount must be the pending balance at transfer time")
	assert.True(t, tr.AmountDifference.Equal(ledger.NewMoneyFromInt(50000).Sub(f.pending)))

	got, err := f.mem.GetLoan(ctx, f.loan.ID)
	require.NoError(t, err)
	assert.Equal(t, f.collector.ID, got.CurrentHolderID)
	assert.Equal(t, f.mfo.ID, got.OriginalLenderID, "original lender never changes")

	payments, err := f.mem.PaymentsByLoan(ctx, f.loan.ID)
	require.NoError(t, err)
	for _, p := range payments {
		if p.Status == ledger.StatusPending {
			assert.Equal(t, f.collector.ID, p.HolderID, "period %d", p.Period)
		} else {
			assert.Equal(t, f.mfo.ID, p.HolderID, "executed period %d keeps its holder", p.Period)
		}
	}
}

func TestTransfer_ChainAdvancesSeqAndHolder(t *testing.T) {
	ctx := context.Background()
	f := newTransferFixture(t)
	bank := seedLender(t, f.mem, "Second Bank", ledger.LenderBank)

	c := f.coordinator(ledger.NewDate(2024, time.June, 1))
	first, err := c.Transfer(ctx, loan.TransferRequest{
		LoanID: f.loan.ID, ToLenderID: f.collector.ID,
		Amount: ledger.NewMoneyFromInt(50000), Reason: "portfolio sale",
	})
	require.NoError(t, err)

	second, err := c.Transfer(ctx, loan.TransferRequest{
		LoanID: f.loan.ID, ToLenderID: bank.ID,
		Amount: ledger.NewMoneyFromInt(45000), Reason: "resale",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, 2, second.Seq)
	assert.Equal(t, f.collector.ID, second.FromLenderID,
		"second transfer originates from the holder the first installed")

	history, err := ledger.NewQueries(f.mem, nil).TransferHistory(ctx, f.loan.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ID, history[1].ID)
}

func TestTransfer_ZeroDateDefaultsToToday(t *testing.T) {
	f := newTransferFixture(t)
	today := ledger.NewDate(2024, time.July, 4)

	tr, err := f.coordinator(today).Transfer(context.Background(), loan.TransferRequest{
		LoanID: f.loan.ID, ToLenderID: f.collector.ID,
		Amount: ledger.NewMoneyFromInt(40000),
	})
	require.NoError(t, err)
	assert.True(t, tr.TransferDate.Equal(today))
}

// =============================================================================
// TRANSFER - Rejections leave no side effects
// =============================================================================

func assertNoTransferSideEffects(t *testing.T, f *transferFixture) {
	t.Helper()
	ctx := context.Background()

	history, err := f.mem.TransfersByLoan(ctx, f.loan.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "rejected transfer must not be recorded")

	got, err := f.mem.GetLoan(ctx, f.loan.ID)
	require.NoError(t, err)
	assert.Equal(t, f.mfo.ID, got.CurrentHolderID)

	payments, err := f.mem.PaymentsByLoan(ctx, f.loan.ID)
	require.NoError(t, err)
	for _, p := range payments {
		assert.Equal(t, f.mfo.ID, p.HolderID)
	}
}

func TestTransfer_RejectsSettledLoan(t *testing.T) {
	ctx := context.Background()
	f := newTransferFixture(t)

	settled, err := f.mem.GetLoan(ctx, f.loan.ID)
	require.NoError(t, err)
	settled.Status = ledger.LoanPaidOff
	require.NoError(t, f.mem.SaveLoan(ctx, settled))

	_, err = f.coordinator(ledger.NewDate(2024, time.June, 1)).Transfer(ctx, loan.TransferRequest{
		LoanID: f.loan.ID, ToLenderID: f.collector.ID,
		Amount: ledger.NewMoneyFromInt(1000),
	})
	assert.True(t, errors.Is(err, ledger.ErrLoanAlreadySettled))
}

func TestTransfer_RejectsCurrentHolderAsTarget(t *testing.T) {
	f := newTransferFixture(t)

	_, err := f.coordinator(ledger.NewDate(2024, time.June, 1)).Transfer(context.Background(), loan.TransferRequest{
		LoanID: f.loan.ID, ToLenderID: f.mfo.ID,
		Amount: ledger.NewMoneyFromInt(1000),
	})
	assert.True(t, errors.Is(err, ledger.ErrSelfTransfer))
	assertNoTransferSideEffects(t, f)
}

func TestTransfer_RejectsNonPositiveAmount(t *testing.T) {
	f := newTransferFixture(t)
	c := f.coordinator(ledger.NewDate(2024, time.June, 1))

	for _, amount := range []ledger.Money{ledger.ZeroMoney(), ledger.NewMoneyFromInt(-100)} {
		_, err := c.Transfer(context.Background(), loan.TransferRequest{
			LoanID: f.loan.ID, ToLenderID: f.collector.ID, Amount: amount,
		})
		assert.True(t, errors.Is(err, ledger.ErrInvalidTransferAmount), "amount %s", amount)
	}
	assertNoTransferSideEffects(t, f)
}

func TestTransfer_RejectsStaleSourceView(t *testing.T) {
	f := newTransferFixture(t)
	stranger := seedLender(t, f.mem, "Stranger Capital", ledger.LenderOther)

	_, err := f.coordinator(ledger.NewDate(2024, time.June, 1)).Transfer(context.Background(), loan.TransferRequest{
		LoanID:       f.loan.ID,
		ToLenderID:   f.collector.ID,
		FromLenderID: stranger.ID,
		Amount:       ledger.NewMoneyFromInt(1000),
	})
	assert.True(t, errors.Is(err, ledger.ErrTransferSourceMismatch))
	assertNoTransferSideEffects(t, f)
}

func TestTransfer_RejectsUnknownLoanAndLender(t *testing.T) {
	f := newTransferFixture(t)
	c := f.coordinator(ledger.NewDate(2024, time.June, 1))

	_, err := c.Transfer(context.Background(), loan.TransferRequest{
		LoanID: ledger.LoanID(ledger.NewID()), ToLenderID: f.collector.ID,
		Amount: ledger.NewMoneyFromInt(1000),
	})
	assert.True(t, ledger.IsNotFound(err))

	_, err = c.Transfer(context.Background(), loan.TransferRequest{
		LoanID: f.loan.ID, ToLenderID: ledger.LenderID(ledger.NewID()),
		Amount: ledger.NewMoneyFromInt(1000),
	})
	assert.True(t, ledger.IsNotFound(err))
}

// =============================================================================
// TRANSFER - Atomicity under the transactional boundary
// =============================================================================

func TestTransfer_RollsBackWithEnclosingTransaction(t *testing.T) {
	// A failure after a successful transfer inside the same WithTx must
	// undo the holder change along with everything else
	ctx := context.Background()
	f := newTransferFixture(t)

	sentinel := errors.New("downstream failure")
	err := f.mem.WithTx(ctx, func(s ledger.Store) error {
		c := loan.NewTransferCoordinator(s, fixedClock(ledger.NewDate(2024, time.June, 1)))
		if _, err := c.Transfer(ctx, loan.TransferRequest{
			LoanID: f.loan.ID, ToLenderID: f.collector.ID,
			Amount: ledger.NewMoneyFromInt(50000),
		}); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assertNoTransferSideEffects(t, f)
}
