package indexer

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"loanft/core/events"
	"loanft/core/state"
	"loanft/native/loan"
)

func openTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	ix, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func sampleRecords(t *testing.T) []*state.EventRecord {
	t.Helper()
	esc, err := loan.NewEscrow([20]byte{0xEE}, loan.Terms{
		Borrower:           [20]byte{1},
		CollateralRegistry: [20]byte{2},
		RequestedRegistry:  [20]byte{3},
		InterestRegistry:   [20]byte{4},
		CollateralAssetID:  1,
		RequestedAssetID:   1,
		TimeToPay:          2,
		LoanFee:            big.NewInt(1),
		CommissionWallet:   [20]byte{9},
	})
	require.NoError(t, err)
	payloads := []events.Payload{
		loan.LoanCreatedEvent{Escrow: esc},
		events.FeeCollected{Escrow: esc.Address, Payer: esc.Borrower, CommissionWallet: esc.CommissionWallet, Amount: big.NewInt(1)},
		loan.BorrowOrderEvent{Escrow: esc.Address, Borrower: esc.Borrower, CollateralID: 1, InterestID: 2},
		events.FeeCollected{Escrow: esc.Address, Payer: [20]byte{7}, CommissionWallet: esc.CommissionWallet, Amount: big.NewInt(1)},
		loan.LendingOrderEvent{Escrow: esc.Address, Lender: [20]byte{7}, RequestedAssetID: 1, RequestedRegistry: esc.RequestedRegistry},
	}
	records := make([]*state.EventRecord, 0, len(payloads))
	for i, p := range payloads {
		records = append(records, &state.EventRecord{
			Sequence:  uint64(i + 1),
			TxHash:    [32]byte{byte(i + 1)},
			Timestamp: 1_700_000_000 + int64(i),
			Event:     p.Event(),
		})
	}
	return records
}

func TestIndexEventsBuildsEscrowProjection(t *testing.T) {
	ix := openTestIndexer(t)
	ctx := context.Background()
	records := sampleRecords(t)
	require.NoError(t, ix.IndexEvents(ctx, records))
	// Replays are ignored.
	require.NoError(t, ix.IndexEvents(ctx, records))

	escrow := events.FormatAddress([20]byte{0xEE})
	row, err := ix.Escrow(ctx, escrow)
	require.NoError(t, err)
	require.Equal(t, loan.PhaseLendDeposited.String(), row.Phase)
	require.Equal(t, events.FormatAddress([20]byte{7}), row.Lender)
	require.Equal(t, "2", row.InterestID)
	require.True(t, row.FeesCollected.Equal(decimal.NewFromInt(2)), "got %s", row.FeesCollected)
	require.Equal(t, "1", row.LoanFee.String())

	evts, err := ix.EventsByEscrow(ctx, escrow, 0)
	require.NoError(t, err)
	require.Len(t, evts, len(records))
	require.Equal(t, loan.EventTypeLoanCreated, evts[0].Type)

	total, err := ix.FeesCollected(ctx, events.FormatAddress([20]byte{9}))
	require.NoError(t, err)
	require.Equal(t, "2", total.String())

	rows, err := ix.ListEscrows(ctx, EscrowFilter{Phase: loan.PhaseLendDeposited.String()})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	rows, err = ix.ListEscrows(ctx, EscrowFilter{Phase: loan.PhaseCreated.String()})
	require.NoError(t, err)
	require.Empty(t, rows)

	_, err = ix.Escrow(ctx, events.FormatAddress([20]byte{0x01}))
	require.ErrorIs(t, err, ErrEscrowNotIndexed)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "dsn")
	require.Error(t, err)
	_, err = Open("sqlite", " ")
	require.Error(t, err)
}

func TestResumeSequenceStopsAtFirstHole(t *testing.T) {
	ix := openTestIndexer(t)
	ctx := context.Background()
	records := sampleRecords(t)

	resume, err := ix.ResumeSequence(ctx)
	require.NoError(t, err)
	require.Zero(t, resume)

	require.NoError(t, ix.IndexEvents(ctx, records[1:]))
	resume, err = ix.ResumeSequence(ctx)
	require.NoError(t, err)
	require.Zero(t, resume, "sequence 1 is missing")

	require.NoError(t, ix.IndexEvents(ctx, records[:1]))
	resume, err = ix.ResumeSequence(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(5), resume)
}

func TestRefilledRecordsDoNotRegressProjection(t *testing.T) {
	ix := openTestIndexer(t)
	ctx := context.Background()
	records := sampleRecords(t)

	// Creation and borrow were dropped; everything else landed first.
	require.NoError(t, ix.IndexEvents(ctx, []*state.EventRecord{records[1], records[3], records[4]}))
	escrow := events.FormatAddress([20]byte{0xEE})
	_, err := ix.Escrow(ctx, escrow)
	require.ErrorIs(t, err, ErrEscrowNotIndexed)

	require.NoError(t, ix.IndexEvents(ctx, []*state.EventRecord{records[0]}))
	row, err := ix.Escrow(ctx, escrow)
	require.NoError(t, err)
	require.Equal(t, loan.PhaseLendDeposited.String(), row.Phase)
	require.True(t, row.FeesCollected.Equal(decimal.NewFromInt(2)), "got %s", row.FeesCollected)

	require.NoError(t, ix.IndexEvents(ctx, []*state.EventRecord{records[2]}))
	row, err = ix.Escrow(ctx, escrow)
	require.NoError(t, err)
	require.Equal(t, loan.PhaseLendDeposited.String(), row.Phase)
	require.Equal(t, events.FormatAddress([20]byte{7}), row.Lender)
	require.Equal(t, "2", row.InterestID)
	require.True(t, row.FeesCollected.Equal(decimal.NewFromInt(2)), "got %s", row.FeesCollected)
}
