package production

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/packtrack/packtrack/internal/ledger"
	"github.com/packtrack/packtrack/internal/masterdata"
	"github.com/packtrack/packtrack/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListBatches(ctx context.Context, filter ListFilter) ([]Batch, error)
	GetBatch(ctx context.Context, id int64) (Batch, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// StockPort invalidates derived stock caches after a commit.
type StockPort interface {
	InvalidateStock(ctx context.Context)
}

// Service coordinates the production workflow.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	stock    StockPort
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, stock StockPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, stock: stock, logger: logger, validate: validator.New()}
}

// ProduceBatch posts a production run. Packaging consumption is resolved
// from each product's BOM, accumulated across all lines and checked against
// locked packaging balances before anything is written. On success the batch
// header, its items, one outbound movement per line component and one
// inbound finished-goods movement per item commit together.
func (s *Service) ProduceBatch(ctx context.Context, input BatchInput) (Batch, error) {
	if err := s.validate.Struct(input); err != nil {
		return Batch{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	batchDate, err := time.Parse("2006-01-02", input.BatchDate)
	if err != nil {
		return Batch{}, fmt.Errorf("%w: invalid batch date", shared.ErrValidation)
	}
	seenCodes := make(map[string]bool, len(input.Items))
	productIDs := make([]int64, 0, len(input.Items))
	for _, item := range input.Items {
		if seenCodes[item.BatchCode] {
			return Batch{}, &ledger.DuplicateLineError{Field: "batch code", Key: item.BatchCode}
		}
		seenCodes[item.BatchCode] = true
		productIDs = append(productIDs, item.ProductID)
	}

	batch := Batch{BatchDate: batchDate, PONumber: input.PONumber, Notes: input.Notes}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		products, err := tx.GetActiveProducts(ctx, productIDs)
		if err != nil {
			return err
		}
		for _, item := range input.Items {
			if _, ok := products[item.ProductID]; !ok {
				return fmt.Errorf("%w: product %d not found or inactive", shared.ErrValidation, item.ProductID)
			}
		}

		// Resolve packaging needs per line before touching stock.
		resolver := masterdata.NewResolver(tx)
		lineComponents := make([][]masterdata.ComponentRequirement, len(input.Items))
		var requirements []ledger.Requirement
		for i, item := range input.Items {
			components, err := resolver.RequirementsFor(ctx, item.ProductID, item.Qty)
			if errors.Is(err, masterdata.ErrNoBOM) {
				return &ledger.BOMNotFoundError{BatchCode: item.BatchCode, ProductID: item.ProductID}
			}
			if err != nil {
				return err
			}
			lineComponents[i] = components
			for _, c := range components {
				requirements = append(requirements, ledger.Requirement{
					ItemKind: ledger.KindPackaging,
					ItemID:   c.PackagingItemID,
					Label:    c.PackagingItemName,
					Qty:      c.Qty,
				})
			}
		}

		accumulated := ledger.Accumulate(requirements)
		packagingIDs := make([]int64, 0, len(accumulated))
		for _, req := range accumulated {
			packagingIDs = append(packagingIDs, req.ItemID)
		}
		sort.Slice(packagingIDs, func(i, j int) bool { return packagingIDs[i] < packagingIDs[j] })

		if err := tx.LockPackagingItems(ctx, packagingIDs); err != nil {
			return err
		}
		balances, err := tx.ItemBalances(ctx, ledger.KindPackaging, packagingIDs)
		if err != nil {
			return err
		}
		refBalances := make(map[ledger.ItemRef]float64, len(balances))
		for id, balance := range balances {
			refBalances[ledger.ItemRef{Kind: ledger.KindPackaging, ID: id}] = balance
		}
		if shortages := ledger.Evaluate(accumulated, refBalances); len(shortages) > 0 {
			return &ledger.InsufficientStockError{Shortages: shortages}
		}

		batchID, err := tx.InsertBatch(ctx, batch)
		if err != nil {
			return err
		}
		batch.ID = batchID

		for i, item := range input.Items {
			product := products[item.ProductID]
			stored := BatchItem{
				BatchID:     batchID,
				BatchCode:   item.BatchCode,
				ProductID:   item.ProductID,
				ProductName: product.Name,
				QtyProduced: item.Qty,
				UOM:         product.UOM,
				Notes:       item.Notes,
			}
			itemID, err := tx.InsertBatchItem(ctx, stored)
			if err != nil {
				return err
			}
			stored.ID = itemID

			for _, c := range lineComponents[i] {
				if _, err := tx.AppendMovement(ctx, ledger.Movement{
					MovementDate: batchDate,
					ItemKind:     ledger.KindPackaging,
					ItemID:       c.PackagingItemID,
					Qty:          c.Qty,
					UOM:          c.UOM,
					Direction:    ledger.DirectionOut,
					SourceType:   ledger.SourceProduction,
					SourceID:     batchID,
					Notes:        fmt.Sprintf("Production consumption for batch %s", item.BatchCode),
				}); err != nil {
					return err
				}
			}
			if _, err := tx.AppendMovement(ctx, ledger.Movement{
				MovementDate: batchDate,
				ItemKind:     ledger.KindFinishedGoods,
				ItemID:       item.ProductID,
				BatchItemID:  itemID,
				Qty:          item.Qty,
				UOM:          product.UOM,
				Direction:    ledger.DirectionIn,
				SourceType:   ledger.SourceProduction,
				SourceID:     batchID,
				Notes:        fmt.Sprintf("Production output for batch %s", item.BatchCode),
			}); err != nil {
				return err
			}
			batch.Items = append(batch.Items, stored)
		}
		return nil
	})
	if err != nil {
		return Batch{}, s.classify("produce batch", err)
	}

	s.recordAudit(ctx, batch)
	s.stock.InvalidateStock(ctx)
	return batch, nil
}

// ListBatches lists posted production batches.
func (s *Service) ListBatches(ctx context.Context, filter ListFilter) ([]Batch, error) {
	return s.repo.ListBatches(ctx, filter)
}

// GetBatch loads one batch with items.
func (s *Service) GetBatch(ctx context.Context, id int64) (Batch, error) {
	if id <= 0 {
		return Batch{}, shared.ErrValidation
	}
	return s.repo.GetBatch(ctx, id)
}

func (s *Service) classify(action string, err error) error {
	var dup *ledger.DuplicateLineError
	var insufficient *ledger.InsufficientStockError
	var noBOM *ledger.BOMNotFoundError
	switch {
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrDuplicateDocument),
		errors.As(err, &dup),
		errors.As(err, &insufficient),
		errors.As(err, &noBOM):
		return err
	}
	s.logger.Error(action, slog.Any("error", err))
	return ledger.ErrPersistence
}

func (s *Service) recordAudit(ctx context.Context, batch Batch) {
	if s.audit == nil {
		return
	}
	codes := make([]string, 0, len(batch.Items))
	for _, item := range batch.Items {
		codes = append(codes, item.BatchCode)
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Action:   "production.produce",
		Entity:   "production_batch",
		EntityID: strconv.FormatInt(batch.ID, 10),
		Meta: map[string]any{
			"correlation_id": uuid.NewString(),
			"batch_codes":    codes,
		},
		At: time.Now(),
	})
	if err != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}
