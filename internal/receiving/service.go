package receiving

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/packtrack/packtrack/internal/ledger"
	"github.com/packtrack/packtrack/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListReceipts(ctx context.Context, filter ListFilter) ([]Receipt, error)
	GetReceipt(ctx context.Context, id int64) (Receipt, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// StockPort invalidates derived stock caches after a commit.
type StockPort interface {
	InvalidateStock(ctx context.Context)
}

// Service coordinates the receipt workflow.
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

// RecordReceipt posts an inbound packaging delivery: the receipt header, its
// lines and one inbound movement per line commit in a single transaction.
// Receipts only add stock, so no sufficiency check runs here.
func (s *Service) RecordReceipt(ctx context.Context, input ReceiptInput) (Receipt, error) {
	if err := s.validate.Struct(input); err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	receiptDate, err := time.Parse("2006-01-02", input.ReceiptDate)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: invalid receipt date", shared.ErrValidation)
	}
	seen := make(map[int64]bool, len(input.Lines))
	itemIDs := make([]int64, 0, len(input.Lines))
	for _, line := range input.Lines {
		if seen[line.PackagingItemID] {
			return Receipt{}, &ledger.DuplicateLineError{Field: "packaging item", Key: strconv.FormatInt(line.PackagingItemID, 10)}
		}
		seen[line.PackagingItemID] = true
		itemIDs = append(itemIDs, line.PackagingItemID)
	}

	receipt := Receipt{
		ReceiptNumber:   input.ReceiptNumber,
		ReceiptDate:     receiptDate,
		SupplierName:    input.SupplierName,
		DeliveryNoteURL: input.DeliveryNoteURL,
		Notes:           input.Notes,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		items, err := tx.GetActivePackagingItems(ctx, itemIDs)
		if err != nil {
			return err
		}
		for _, id := range itemIDs {
			if _, ok := items[id]; !ok {
				return fmt.Errorf("%w: packaging item %d not found or inactive", shared.ErrValidation, id)
			}
		}

		receiptID, err := tx.InsertReceipt(ctx, receipt)
		if err != nil {
			return err
		}
		receipt.ID = receiptID

		for _, line := range input.Lines {
			item := items[line.PackagingItemID]
			stored := ReceiptLine{
				ReceiptID:         receiptID,
				PackagingItemID:   line.PackagingItemID,
				PackagingItemName: item.Name,
				Qty:               line.Qty,
				UOM:               item.UOM,
			}
			lineID, err := tx.InsertReceiptLine(ctx, stored)
			if err != nil {
				return err
			}
			stored.ID = lineID

			if _, err := tx.AppendMovement(ctx, ledger.Movement{
				MovementDate: receiptDate,
				ItemKind:     ledger.KindPackaging,
				ItemID:       line.PackagingItemID,
				Qty:          line.Qty,
				UOM:          item.UOM,
				Direction:    ledger.DirectionIn,
				SourceType:   ledger.SourceReceipt,
				SourceID:     receiptID,
				Notes:        fmt.Sprintf("Receipt %s - %s", receipt.ReceiptNumber, item.Name),
			}); err != nil {
				return err
			}
			receipt.Lines = append(receipt.Lines, stored)
		}
		return nil
	})
	if err != nil {
		return Receipt{}, s.classify("record receipt", err)
	}

	s.recordAudit(ctx, receipt)
	s.stock.InvalidateStock(ctx)
	return receipt, nil
}

// ListReceipts lists posted receipts.
func (s *Service) ListReceipts(ctx context.Context, filter ListFilter) ([]Receipt, error) {
	return s.repo.ListReceipts(ctx, filter)
}

// GetReceipt loads one receipt with lines.
func (s *Service) GetReceipt(ctx context.Context, id int64) (Receipt, error) {
	if id <= 0 {
		return Receipt{}, shared.ErrValidation
	}
	return s.repo.GetReceipt(ctx, id)
}

// classify passes domain rejections through untouched and collapses commit
// phase failures into ErrPersistence after logging the detail.
func (s *Service) classify(action string, err error) error {
	var dup *ledger.DuplicateLineError
	switch {
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrDuplicateDocument),
		errors.As(err, &dup):
		return err
	}
	s.logger.Error(action, slog.Any("error", err))
	return ledger.ErrPersistence
}

func (s *Service) recordAudit(ctx context.Context, receipt Receipt) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Action:   "receiving.record",
		Entity:   "receipt",
		EntityID: strconv.FormatInt(receipt.ID, 10),
		Meta: map[string]any{
			"correlation_id": uuid.NewString(),
			"receipt_number": receipt.ReceiptNumber,
			"lines":          len(receipt.Lines),
		},
		At: time.Now(),
	})
	if err != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}
