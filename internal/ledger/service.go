package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// StorePort abstracts the movement store for the balance calculator.
type StorePort interface {
	ItemBalance(ctx context.Context, kind ItemKind, itemID int64) (float64, error)
	BatchItemBalance(ctx context.Context, batchItemID int64) (float64, error)
	ItemBalances(ctx context.Context, kind ItemKind, ids []int64) (map[int64]float64, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	PackagingOverview(ctx context.Context) ([]ItemStock, error)
	FinishedGoodsOverview(ctx context.Context) ([]ItemStock, error)
	GetBatchItemStock(ctx context.Context, batchItemID int64) (BatchItemStock, error)
	AvailableBatchItems(ctx context.Context) ([]BatchItemStock, error)
}

// Service is the derived-value layer over the movement log. Balances are
// pure functions of the log; the service adds caching and reporting but
// never a second source of truth.
type Service struct {
	store  StorePort
	cache  *Cache
	logger *slog.Logger
}

// NewService builds Service.
func NewService(store StorePort, cache *Cache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

// CurrentStock returns the net in/out balance for one item.
func (s *Service) CurrentStock(ctx context.Context, kind ItemKind, itemID int64) (float64, error) {
	if itemID <= 0 {
		return 0, errors.New("ledger: item id required")
	}
	if kind != KindPackaging && kind != KindFinishedGoods {
		return 0, errors.New("ledger: unknown item kind")
	}
	return s.store.ItemBalance(ctx, kind, itemID)
}

// RemainingStock returns quantity produced minus quantity shipped for one
// production batch item. This is the single implementation of the figure:
// both derivations the paper process used (ledger balance, produced minus
// shipment-line sum) must agree with it, which the integrity job verifies.
func (s *Service) RemainingStock(ctx context.Context, batchItemID int64) (float64, error) {
	if batchItemID <= 0 {
		return 0, errors.New("ledger: batch item id required")
	}
	return s.store.BatchItemBalance(ctx, batchItemID)
}

// BatchItemStock returns one batch item together with its remaining stock.
func (s *Service) BatchItemStock(ctx context.Context, batchItemID int64) (BatchItemStock, error) {
	if batchItemID <= 0 {
		return BatchItemStock{}, errors.New("ledger: batch item id required")
	}
	return s.store.GetBatchItemStock(ctx, batchItemID)
}

// AvailableBatchItems lists batch items with remaining stock > 0.
func (s *Service) AvailableBatchItems(ctx context.Context) ([]BatchItemStock, error) {
	return s.store.AvailableBatchItems(ctx)
}

const (
	defaultMovementLimit = 200
	maxMovementLimit     = 500
)

// Movements lists the raw movement log. The page size is clamped so a
// client cannot request an unbounded dump.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultMovementLimit
	} else if filter.Limit > maxMovementLimit {
		filter.Limit = maxMovementLimit
	}
	return s.store.ListMovements(ctx, filter)
}

// StockOverview aggregates balances for every active packaging item and
// product. Served from the versioned cache when possible; both halves are
// fetched concurrently on a miss.
func (s *Service) StockOverview(ctx context.Context) (Overview, error) {
	var overview Overview
	key, err := s.cache.BuildKey(ctx, "stock", "overview")
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("stock cache key", slog.Any("error", err))
		}
		return s.loadOverview(ctx)
	}
	err = s.cache.FetchJSON(ctx, key, &overview, func(ctx context.Context) (interface{}, error) {
		return s.loadOverview(ctx)
	})
	return overview, err
}

func (s *Service) loadOverview(ctx context.Context) (Overview, error) {
	var packaging, finished []ItemStock
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		packaging, err = s.store.PackagingOverview(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		finished, err = s.store.FinishedGoodsOverview(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return Overview{
		Packaging:     packaging,
		FinishedGoods: finished,
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

// InvalidateStock bumps the cache version after a workflow commit. Failure
// is logged, never surfaced: the cache self-expires and the ledger remains
// the source of truth.
func (s *Service) InvalidateStock(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil && s.logger != nil {
		s.logger.Warn("stock cache bump", slog.Any("error", err))
	}
}
