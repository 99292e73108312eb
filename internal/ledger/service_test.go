package ledger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	itemBalances      map[ItemRef]float64
	batchItemBalances map[int64]float64
	movements         []Movement
	batchItems        map[int64]BatchItemStock
	overviewCalls     int
	lastFilter        MovementFilter
}

func (f *fakeStore) ItemBalance(_ context.Context, kind ItemKind, itemID int64) (float64, error) {
	return f.itemBalances[ItemRef{Kind: kind, ID: itemID}], nil
}

func (f *fakeStore) BatchItemBalance(_ context.Context, batchItemID int64) (float64, error) {
	return f.batchItemBalances[batchItemID], nil
}

func (f *fakeStore) ItemBalances(_ context.Context, kind ItemKind, ids []int64) (map[int64]float64, error) {
	out := make(map[int64]float64, len(ids))
	for _, id := range ids {
		out[id] = f.itemBalances[ItemRef{Kind: kind, ID: id}]
	}
	return out, nil
}

func (f *fakeStore) ListMovements(_ context.Context, filter MovementFilter) ([]Movement, error) {
	f.lastFilter = filter
	out := []Movement{}
	for _, m := range f.movements {
		if filter.ItemKind != "" && m.ItemKind != filter.ItemKind {
			continue
		}
		if filter.SourceType != "" && m.SourceType != filter.SourceType {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeStore) PackagingOverview(context.Context) ([]ItemStock, error) {
	f.overviewCalls++
	return []ItemStock{{ItemKind: KindPackaging, ItemID: 1, Code: "PKG-001", Balance: 120}}, nil
}

func (f *fakeStore) FinishedGoodsOverview(context.Context) ([]ItemStock, error) {
	return []ItemStock{{ItemKind: KindFinishedGoods, ItemID: 1, Code: "FG-001", Balance: 30}}, nil
}

func (f *fakeStore) GetBatchItemStock(_ context.Context, batchItemID int64) (BatchItemStock, error) {
	return f.batchItems[batchItemID], nil
}

func (f *fakeStore) AvailableBatchItems(context.Context) ([]BatchItemStock, error) {
	out := []BatchItemStock{}
	for _, entry := range f.batchItems {
		if entry.Remaining > 0 {
			out = append(out, entry)
		}
	}
	return out, nil
}

func newLedgerService(store StorePort) *Service {
	return NewService(store, nil, slog.Default())
}

func TestCurrentStockRejectsBadInput(t *testing.T) {
	svc := newLedgerService(&fakeStore{})

	_, err := svc.CurrentStock(context.Background(), KindPackaging, 0)
	assert.Error(t, err)

	_, err = svc.CurrentStock(context.Background(), ItemKind("pallets"), 1)
	assert.Error(t, err)
}

func TestCurrentStockReturnsNetBalance(t *testing.T) {
	store := &fakeStore{itemBalances: map[ItemRef]float64{
		{Kind: KindPackaging, ID: 5}: 475,
	}}
	svc := newLedgerService(store)

	balance, err := svc.CurrentStock(context.Background(), KindPackaging, 5)

	require.NoError(t, err)
	assert.Equal(t, 475.0, balance)
}

func TestCurrentStockIsZeroWithoutMovements(t *testing.T) {
	svc := newLedgerService(&fakeStore{itemBalances: map[ItemRef]float64{}})

	balance, err := svc.CurrentStock(context.Background(), KindFinishedGoods, 99)

	require.NoError(t, err)
	assert.Equal(t, 0.0, balance)
}

func TestRemainingStockIsProducedMinusShipped(t *testing.T) {
	store := &fakeStore{batchItemBalances: map[int64]float64{12: 40}}
	svc := newLedgerService(store)

	remaining, err := svc.RemainingStock(context.Background(), 12)

	require.NoError(t, err)
	assert.Equal(t, 40.0, remaining)
}

func TestReadsDoNotChangeState(t *testing.T) {
	store := &fakeStore{itemBalances: map[ItemRef]float64{
		{Kind: KindPackaging, ID: 1}: 200,
	}}
	svc := newLedgerService(store)

	for i := 0; i < 3; i++ {
		balance, err := svc.CurrentStock(context.Background(), KindPackaging, 1)
		require.NoError(t, err)
		assert.Equal(t, 200.0, balance)
	}
}

func TestMovementsClampsPageSize(t *testing.T) {
	store := &fakeStore{}
	svc := newLedgerService(store)

	_, err := svc.Movements(context.Background(), MovementFilter{Limit: 100000})
	require.NoError(t, err)
	assert.Equal(t, maxMovementLimit, store.lastFilter.Limit)

	_, err = svc.Movements(context.Background(), MovementFilter{})
	require.NoError(t, err)
	assert.Equal(t, defaultMovementLimit, store.lastFilter.Limit)

	_, err = svc.Movements(context.Background(), MovementFilter{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 50, store.lastFilter.Limit)
}

func TestStockOverviewLoadsBothHalves(t *testing.T) {
	store := &fakeStore{}
	svc := newLedgerService(store)

	overview, err := svc.StockOverview(context.Background())

	require.NoError(t, err)
	require.Len(t, overview.Packaging, 1)
	require.Len(t, overview.FinishedGoods, 1)
	assert.Equal(t, 120.0, overview.Packaging[0].Balance)
	assert.Equal(t, 30.0, overview.FinishedGoods[0].Balance)
	assert.False(t, overview.GeneratedAt.IsZero())
}

func TestAvailableBatchItemsSkipsExhausted(t *testing.T) {
	store := &fakeStore{batchItems: map[int64]BatchItemStock{
		1: {BatchItemID: 1, BatchCode: "B-001", Remaining: 40},
		2: {BatchItemID: 2, BatchCode: "B-002", Remaining: 0},
	}}
	svc := newLedgerService(store)

	items, err := svc.AvailableBatchItems(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "B-001", items[0].BatchCode)
}
