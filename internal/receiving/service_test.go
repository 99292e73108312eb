package receiving

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packtrack/packtrack/internal/ledger"
	"github.com/packtrack/packtrack/internal/masterdata"
	"github.com/packtrack/packtrack/internal/shared"
)

type fakeState struct {
	receipts  []Receipt
	lines     []ReceiptLine
	movements []ledger.Movement
	nextID    int64
}

type fakeTx struct {
	state        *fakeState
	items        map[int64]masterdata.PackagingItem
	failOnAppend int
	appends      int
}

func (f *fakeTx) id() int64 {
	f.state.nextID++
	return f.state.nextID
}

func (f *fakeTx) InsertReceipt(_ context.Context, receipt Receipt) (int64, error) {
	for _, existing := range f.state.receipts {
		if existing.ReceiptNumber == receipt.ReceiptNumber {
			return 0, shared.ErrDuplicateDocument
		}
	}
	receipt.ID = f.id()
	f.state.receipts = append(f.state.receipts, receipt)
	return receipt.ID, nil
}

func (f *fakeTx) InsertReceiptLine(_ context.Context, line ReceiptLine) (int64, error) {
	line.ID = f.id()
	f.state.lines = append(f.state.lines, line)
	return line.ID, nil
}

func (f *fakeTx) GetActivePackagingItems(_ context.Context, ids []int64) (map[int64]masterdata.PackagingItem, error) {
	out := map[int64]masterdata.PackagingItem{}
	for _, id := range ids {
		if item, ok := f.items[id]; ok && item.IsActive {
			out[id] = item
		}
	}
	return out, nil
}

func (f *fakeTx) AppendMovement(_ context.Context, m ledger.Movement) (int64, error) {
	f.appends++
	if f.failOnAppend > 0 && f.appends >= f.failOnAppend {
		return 0, errors.New("connection reset")
	}
	if m.Qty <= 0 {
		return 0, ledger.ErrInvalidQuantity
	}
	m.ID = f.id()
	f.state.movements = append(f.state.movements, m)
	return m.ID, nil
}

type fakeRepo struct {
	state        fakeState
	items        map[int64]masterdata.PackagingItem
	failOnAppend int
}

// WithTx stages all writes and discards them when the callback fails, the
// same all-or-nothing contract the real transaction gives.
func (f *fakeRepo) WithTx(_ context.Context, fn func(context.Context, TxRepository) error) error {
	staged := fakeState{
		receipts:  append([]Receipt{}, f.state.receipts...),
		lines:     append([]ReceiptLine{}, f.state.lines...),
		movements: append([]ledger.Movement{}, f.state.movements...),
		nextID:    f.state.nextID,
	}
	tx := &fakeTx{state: &staged, items: f.items, failOnAppend: f.failOnAppend}
	if err := fn(context.Background(), tx); err != nil {
		return err
	}
	f.state = staged
	return nil
}

func (f *fakeRepo) ListReceipts(context.Context, ListFilter) ([]Receipt, error) {
	return f.state.receipts, nil
}

func (f *fakeRepo) GetReceipt(_ context.Context, id int64) (Receipt, error) {
	for _, receipt := range f.state.receipts {
		if receipt.ID == id {
			return receipt, nil
		}
	}
	return Receipt{}, shared.ErrNotFound
}

type fakeAudit struct{ logs []shared.AuditLog }

func (f *fakeAudit) Record(_ context.Context, log shared.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

type fakeStock struct{ bumps int }

func (f *fakeStock) InvalidateStock(context.Context) { f.bumps++ }

func newTestService(repo *fakeRepo) (*Service, *fakeAudit, *fakeStock) {
	audit := &fakeAudit{}
	stock := &fakeStock{}
	return NewService(repo, audit, stock, slog.Default()), audit, stock
}

func testItems() map[int64]masterdata.PackagingItem {
	return map[int64]masterdata.PackagingItem{
		1: {ID: 1, Code: "PKG-001", Name: "Box 500g", UOM: "pcs", IsActive: true},
		2: {ID: 2, Code: "PKG-002", Name: "Label roll", UOM: "m", IsActive: true},
		3: {ID: 3, Code: "PKG-003", Name: "Old crate", UOM: "pcs", IsActive: false},
	}
}

func validInput() ReceiptInput {
	return ReceiptInput{
		ReceiptNumber: "RCV-001",
		ReceiptDate:   "2026-03-10",
		SupplierName:  "Karton Jaya",
		Lines: []ReceiptLineInput{
			{PackagingItemID: 1, Qty: 500},
			{PackagingItemID: 2, Qty: 120},
		},
	}
}

func TestRecordReceiptAppendsOneMovementPerLine(t *testing.T) {
	repo := &fakeRepo{items: testItems()}
	svc, audit, stock := newTestService(repo)

	receipt, err := svc.RecordReceipt(context.Background(), validInput())

	require.NoError(t, err)
	require.Len(t, receipt.Lines, 2)
	require.Len(t, repo.state.movements, 2)
	for _, m := range repo.state.movements {
		assert.Equal(t, ledger.KindPackaging, m.ItemKind)
		assert.Equal(t, ledger.DirectionIn, m.Direction)
		assert.Equal(t, ledger.SourceReceipt, m.SourceType)
		assert.Equal(t, receipt.ID, m.SourceID)
	}
	assert.Equal(t, "Receipt RCV-001 - Box 500g", repo.state.movements[0].Notes)
	assert.Len(t, audit.logs, 1)
	assert.Equal(t, 1, stock.bumps)
}

func TestRecordReceiptRejectsEmptyLines(t *testing.T) {
	repo := &fakeRepo{items: testItems()}
	svc, _, stock := newTestService(repo)
	input := validInput()
	input.Lines = nil

	_, err := svc.RecordReceipt(context.Background(), input)

	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Zero(t, stock.bumps)
}

func TestRecordReceiptRejectsNonPositiveQty(t *testing.T) {
	repo := &fakeRepo{items: testItems()}
	svc, _, _ := newTestService(repo)
	input := validInput()
	input.Lines[1].Qty = 0

	_, err := svc.RecordReceipt(context.Background(), input)

	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Empty(t, repo.state.movements)
}

func TestRecordReceiptRejectsRepeatedItemLine(t *testing.T) {
	repo := &fakeRepo{items: testItems()}
	svc, _, _ := newTestService(repo)
	input := validInput()
	input.Lines = []ReceiptLineInput{
		{PackagingItemID: 1, Qty: 100},
		{PackagingItemID: 1, Qty: 50},
	}

	_, err := svc.RecordReceipt(context.Background(), input)

	var dup *ledger.DuplicateLineError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "packaging item", dup.Field)
}

func TestRecordReceiptRejectsUnknownOrInactiveItem(t *testing.T) {
	repo := &fakeRepo{items: testItems()}
	svc, _, _ := newTestService(repo)

	input := validInput()
	input.Lines = []ReceiptLineInput{{PackagingItemID: 99, Qty: 10}}
	_, err := svc.RecordReceipt(context.Background(), input)
	assert.ErrorIs(t, err, shared.ErrValidation)

	input.Lines = []ReceiptLineInput{{PackagingItemID: 3, Qty: 10}}
	_, err = svc.RecordReceipt(context.Background(), input)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordReceiptRejectsDuplicateNumber(t *testing.T) {
	repo := &fakeRepo{items: testItems()}
	svc, _, _ := newTestService(repo)

	_, err := svc.RecordReceipt(context.Background(), validInput())
	require.NoError(t, err)

	_, err = svc.RecordReceipt(context.Background(), validInput())
	assert.ErrorIs(t, err, shared.ErrDuplicateDocument)
	assert.Len(t, repo.state.receipts, 1)
	assert.Len(t, repo.state.movements, 2)
}

func TestRecordReceiptRollsBackOnAppendFailure(t *testing.T) {
	repo := &fakeRepo{items: testItems(), failOnAppend: 2}
	svc, audit, stock := newTestService(repo)

	_, err := svc.RecordReceipt(context.Background(), validInput())

	assert.ErrorIs(t, err, ledger.ErrPersistence)
	assert.Empty(t, repo.state.receipts)
	assert.Empty(t, repo.state.lines)
	assert.Empty(t, repo.state.movements)
	assert.Empty(t, audit.logs)
	assert.Zero(t, stock.bumps)
}

func TestRecordReceiptRejectsBadDate(t *testing.T) {
	repo := &fakeRepo{items: testItems()}
	svc, _, _ := newTestService(repo)
	input := validInput()
	input.ReceiptDate = "10-03-2026"

	_, err := svc.RecordReceipt(context.Background(), input)

	assert.ErrorIs(t, err, shared.ErrValidation)
}
