package production

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packtrack/packtrack/internal/ledger"
	"github.com/packtrack/packtrack/internal/masterdata"
	"github.com/packtrack/packtrack/internal/shared"
)

type fakeState struct {
	batches   []Batch
	items     []BatchItem
	movements []ledger.Movement
	nextID    int64
}

type fakeTx struct {
	state        *fakeState
	products     map[int64]masterdata.Product
	boms         map[int64][]masterdata.BOMLine
	lockedIDs    []int64
	failOnAppend int
	appends      int
}

func (f *fakeTx) id() int64 {
	f.state.nextID++
	return f.state.nextID
}

func (f *fakeTx) InsertBatch(_ context.Context, batch Batch) (int64, error) {
	batch.ID = f.id()
	f.state.batches = append(f.state.batches, batch)
	return batch.ID, nil
}

func (f *fakeTx) InsertBatchItem(_ context.Context, item BatchItem) (int64, error) {
	for _, existing := range f.state.items {
		if existing.BatchCode == item.BatchCode {
			return 0, shared.ErrDuplicateDocument
		}
	}
	item.ID = f.id()
	f.state.items = append(f.state.items, item)
	return item.ID, nil
}

func (f *fakeTx) GetActiveProducts(_ context.Context, ids []int64) (map[int64]masterdata.Product, error) {
	out := map[int64]masterdata.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok && p.IsActive {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeTx) ListBOMLines(_ context.Context, productID int64) ([]masterdata.BOMLine, error) {
	return f.boms[productID], nil
}

func (f *fakeTx) LockPackagingItems(_ context.Context, ids []int64) error {
	f.lockedIDs = append([]int64{}, ids...)
	return nil
}

func (f *fakeTx) ItemBalances(_ context.Context, kind ledger.ItemKind, ids []int64) (map[int64]float64, error) {
	balances := make(map[int64]float64, len(ids))
	for _, id := range ids {
		balances[id] = 0
	}
	for _, m := range f.state.movements {
		if m.ItemKind != kind {
			continue
		}
		if _, ok := balances[m.ItemID]; !ok {
			continue
		}
		if m.Direction == ledger.DirectionIn {
			balances[m.ItemID] += m.Qty
		} else {
			balances[m.ItemID] -= m.Qty
		}
	}
	return balances, nil
}

func (f *fakeTx) AppendMovement(_ context.Context, m ledger.Movement) (int64, error) {
	f.appends++
	if f.failOnAppend > 0 && f.appends >= f.failOnAppend {
		return 0, errors.New("connection reset")
	}
	m.ID = f.id()
	f.state.movements = append(f.state.movements, m)
	return m.ID, nil
}

type fakeRepo struct {
	state        fakeState
	products     map[int64]masterdata.Product
	boms         map[int64][]masterdata.BOMLine
	failOnAppend int
	lastLocked   []int64
}

func (f *fakeRepo) WithTx(_ context.Context, fn func(context.Context, TxRepository) error) error {
	staged := fakeState{
		batches:   append([]Batch{}, f.state.batches...),
		items:     append([]BatchItem{}, f.state.items...),
		movements: append([]ledger.Movement{}, f.state.movements...),
		nextID:    f.state.nextID,
	}
	tx := &fakeTx{state: &staged, products: f.products, boms: f.boms, failOnAppend: f.failOnAppend}
	err := fn(context.Background(), tx)
	f.lastLocked = tx.lockedIDs
	if err != nil {
		return err
	}
	f.state = staged
	return nil
}

func (f *fakeRepo) ListBatches(context.Context, ListFilter) ([]Batch, error) {
	return f.state.batches, nil
}

func (f *fakeRepo) GetBatch(_ context.Context, id int64) (Batch, error) {
	for _, batch := range f.state.batches {
		if batch.ID == id {
			return batch, nil
		}
	}
	return Batch{}, shared.ErrNotFound
}

type fakeAudit struct{ logs []shared.AuditLog }

func (f *fakeAudit) Record(_ context.Context, log shared.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

type fakeStock struct{ bumps int }

func (f *fakeStock) InvalidateStock(context.Context) { f.bumps++ }

// newTestRepo seeds two packaging items and two products. Both products
// consume the box; the second also consumes label tape.
func newTestRepo() *fakeRepo {
	repo := &fakeRepo{
		products: map[int64]masterdata.Product{
			1: {ID: 1, Code: "FG-001", Name: "Cocoa Powder 500g", UOM: "pcs", IsActive: true},
			2: {ID: 2, Code: "FG-002", Name: "Cocoa Powder 1kg", UOM: "pcs", IsActive: true},
			3: {ID: 3, Code: "FG-003", Name: "No Recipe Yet", UOM: "pcs", IsActive: true},
		},
		boms: map[int64][]masterdata.BOMLine{
			1: {{ProductID: 1, PackagingItemID: 10, PackagingItemName: "Box 500g", QtyPerUnit: 1, UOM: "pcs"}},
			2: {
				{ProductID: 2, PackagingItemID: 10, PackagingItemName: "Box 500g", QtyPerUnit: 1, UOM: "pcs"},
				{ProductID: 2, PackagingItemID: 11, PackagingItemName: "Label roll", QtyPerUnit: 0.1, UOM: "m"},
			},
		},
	}
	return repo
}

func seedPackaging(repo *fakeRepo, itemID int64, qty float64) {
	repo.state.nextID++
	repo.state.movements = append(repo.state.movements, ledger.Movement{
		ID:         repo.state.nextID,
		ItemKind:   ledger.KindPackaging,
		ItemID:     itemID,
		Qty:        qty,
		Direction:  ledger.DirectionIn,
		SourceType: ledger.SourceReceipt,
		SourceID:   1,
	})
}

func newProductionService(repo *fakeRepo) (*Service, *fakeAudit, *fakeStock) {
	audit := &fakeAudit{}
	stock := &fakeStock{}
	return NewService(repo, audit, stock, slog.Default()), audit, stock
}

func TestProduceBatchPostsConsumptionAndOutput(t *testing.T) {
	repo := newTestRepo()
	seedPackaging(repo, 10, 600)
	seedPackaging(repo, 11, 50)
	svc, audit, stock := newProductionService(repo)

	batch, err := svc.ProduceBatch(context.Background(), BatchInput{
		BatchDate: "2026-03-12",
		Items: []BatchItemInput{
			{BatchCode: "B-2026-001", ProductID: 1, Qty: 300},
			{BatchCode: "B-2026-002", ProductID: 2, Qty: 200},
		},
	})

	require.NoError(t, err)
	require.Len(t, batch.Items, 2)

	var outs, ins []ledger.Movement
	for _, m := range repo.state.movements {
		if m.SourceType != ledger.SourceProduction {
			continue
		}
		if m.Direction == ledger.DirectionOut {
			outs = append(outs, m)
		} else {
			ins = append(ins, m)
		}
	}
	// one consumption per line component: box for line 1, box + label for line 2
	require.Len(t, outs, 3)
	require.Len(t, ins, 2)
	assert.Equal(t, "Production consumption for batch B-2026-001", outs[0].Notes)
	assert.Equal(t, "Production output for batch B-2026-001", ins[0].Notes)
	assert.Equal(t, batch.Items[0].ID, ins[0].BatchItemID)
	assert.Equal(t, ledger.KindFinishedGoods, ins[0].ItemKind)

	assert.Len(t, audit.logs, 1)
	assert.Equal(t, 1, stock.bumps)
}

func TestProduceBatchChecksAccumulatedRequirements(t *testing.T) {
	// 505 boxes on hand; each line alone fits, together they need 550.
	repo := newTestRepo()
	seedPackaging(repo, 10, 505)
	svc, _, stock := newProductionService(repo)

	_, err := svc.ProduceBatch(context.Background(), BatchInput{
		BatchDate: "2026-03-12",
		Items: []BatchItemInput{
			{BatchCode: "B-2026-001", ProductID: 1, Qty: 300},
			{BatchCode: "B-2026-002", ProductID: 1, Qty: 250},
		},
	})

	var insufficient *ledger.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Shortages, 1)
	assert.Equal(t, 550.0, insufficient.Shortages[0].Required)
	assert.Equal(t, 505.0, insufficient.Shortages[0].Available)
	assert.Equal(t, 45.0, insufficient.Shortages[0].Shortage)

	assert.Empty(t, repo.state.batches)
	assert.Zero(t, stock.bumps)
}

func TestProduceBatchExactStockPasses(t *testing.T) {
	repo := newTestRepo()
	seedPackaging(repo, 10, 550)
	svc, _, _ := newProductionService(repo)

	_, err := svc.ProduceBatch(context.Background(), BatchInput{
		BatchDate: "2026-03-12",
		Items: []BatchItemInput{
			{BatchCode: "B-2026-001", ProductID: 1, Qty: 300},
			{BatchCode: "B-2026-002", ProductID: 1, Qty: 250},
		},
	})

	require.NoError(t, err)
	balances, err := (&fakeTx{state: &repo.state}).ItemBalances(context.Background(), ledger.KindPackaging, []int64{10})
	require.NoError(t, err)
	assert.Equal(t, 0.0, balances[10])
}

func TestProduceBatchRejectsRepeatedBatchCode(t *testing.T) {
	repo := newTestRepo()
	seedPackaging(repo, 10, 1000)
	svc, _, _ := newProductionService(repo)

	_, err := svc.ProduceBatch(context.Background(), BatchInput{
		BatchDate: "2026-03-12",
		Items: []BatchItemInput{
			{BatchCode: "B-2026-001", ProductID: 1, Qty: 10},
			{BatchCode: "B-2026-001", ProductID: 2, Qty: 10},
		},
	})

	var dup *ledger.DuplicateLineError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "batch code", dup.Field)
	assert.Empty(t, repo.state.batches)
}

func TestProduceBatchRejectsCodeUsedByEarlierBatch(t *testing.T) {
	repo := newTestRepo()
	seedPackaging(repo, 10, 1000)
	svc, _, _ := newProductionService(repo)

	_, err := svc.ProduceBatch(context.Background(), BatchInput{
		BatchDate: "2026-03-12",
		Items:     []BatchItemInput{{BatchCode: "B-2026-001", ProductID: 1, Qty: 10}},
	})
	require.NoError(t, err)

	_, err = svc.ProduceBatch(context.Background(), BatchInput{
		BatchDate: "2026-03-13",
		Items:     []BatchItemInput{{BatchCode: "B-2026-001", ProductID: 1, Qty: 5}},
	})
	assert.ErrorIs(t, err, shared.ErrDuplicateDocument)
	assert.Len(t, repo.state.batches, 1)
}

func TestProduceBatchRejectsProductWithoutBOM(t *testing.T) {
	repo := newTestRepo()
	svc, _, _ := newProductionService(repo)

	_, err := svc.ProduceBatch(context.Background(), BatchInput{
		BatchDate: "2026-03-12",
		Items:     []BatchItemInput{{BatchCode: "B-2026-009", ProductID: 3, Qty: 10}},
	})

	var noBOM *ledger.BOMNotFoundError
	require.ErrorAs(t, err, &noBOM)
	assert.Equal(t, "B-2026-009", noBOM.BatchCode)
	assert.Equal(t, int64(3), noBOM.ProductID)
}

func TestProduceBatchLocksPackagingInIDOrder(t *testing.T) {
	repo := newTestRepo()
	seedPackaging(repo, 10, 1000)
	seedPackaging(repo, 11, 1000)
	svc, _, _ := newProductionService(repo)

	_, err := svc.ProduceBatch(context.Background(), BatchInput{
		BatchDate: "2026-03-12",
		Items:     []BatchItemInput{{BatchCode: "B-2026-001", ProductID: 2, Qty: 100}},
	})

	require.NoError(t, err)
	assert.True(t, sort.SliceIsSorted(repo.lastLocked, func(i, j int) bool {
		return repo.lastLocked[i] < repo.lastLocked[j]
	}))
}

func TestProduceBatchRollsBackOnAppendFailure(t *testing.T) {
	repo := newTestRepo()
	seedPackaging(repo, 10, 1000)
	repo.failOnAppend = 2
	svc, audit, stock := newProductionService(repo)
	movementsBefore := len(repo.state.movements)

	_, err := svc.ProduceBatch(context.Background(), BatchInput{
		BatchDate: "2026-03-12",
		Items: []BatchItemInput{
			{BatchCode: "B-2026-001", ProductID: 1, Qty: 100},
			{BatchCode: "B-2026-002", ProductID: 1, Qty: 100},
		},
	})

	assert.ErrorIs(t, err, ledger.ErrPersistence)
	assert.Empty(t, repo.state.batches)
	assert.Empty(t, repo.state.items)
	assert.Len(t, repo.state.movements, movementsBefore)
	assert.Empty(t, audit.logs)
	assert.Zero(t, stock.bumps)
}

func TestProduceBatchRejectsNonPositiveQty(t *testing.T) {
	repo := newTestRepo()
	svc, _, _ := newProductionService(repo)

	_, err := svc.ProduceBatch(context.Background(), BatchInput{
		BatchDate: "2026-03-12",
		Items:     []BatchItemInput{{BatchCode: "B-2026-001", ProductID: 1, Qty: -5}},
	})

	assert.ErrorIs(t, err, shared.ErrValidation)
}
