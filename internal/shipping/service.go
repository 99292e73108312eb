package shipping

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
	"github.com/packtrack/packtrack/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListShipments(ctx context.Context, filter ListFilter) ([]Shipment, error)
	GetShipment(ctx context.Context, id int64) (Shipment, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// StockPort invalidates derived stock caches after a commit.
type StockPort interface {
	InvalidateStock(ctx context.Context)
}

// Service coordinates the shipment workflow.
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

// ShipBatchItems posts an outbound delivery. Each line is capped by the
// remaining stock of its batch item, derived from the ledger under row
// locks; on success the shipment header, its lines and one outbound
// movement per line commit together.
func (s *Service) ShipBatchItems(ctx context.Context, input ShipmentInput) (Shipment, error) {
	if err := s.validate.Struct(input); err != nil {
		return Shipment{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	shipmentDate, err := time.Parse("2006-01-02", input.ShipmentDate)
	if err != nil {
		return Shipment{}, fmt.Errorf("%w: invalid shipment date", shared.ErrValidation)
	}
	seen := make(map[int64]bool, len(input.Lines))
	batchItemIDs := make([]int64, 0, len(input.Lines))
	for _, line := range input.Lines {
		if seen[line.BatchItemID] {
			return Shipment{}, &ledger.DuplicateLineError{Field: "batch item", Key: strconv.FormatInt(line.BatchItemID, 10)}
		}
		seen[line.BatchItemID] = true
		batchItemIDs = append(batchItemIDs, line.BatchItemID)
	}
	sort.Slice(batchItemIDs, func(i, j int) bool { return batchItemIDs[i] < batchItemIDs[j] })

	shipment := Shipment{
		ShipmentNumber:     input.ShipmentNumber,
		ShipmentDate:       shipmentDate,
		DestinationID:      input.DestinationID,
		DeliveryNoteNumber: input.DeliveryNoteNumber,
		Notes:              input.Notes,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		destination, err := tx.GetDestination(ctx, input.DestinationID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return fmt.Errorf("%w: destination %d not found", shared.ErrValidation, input.DestinationID)
			}
			return err
		}
		if !destination.IsActive {
			return fmt.Errorf("%w: destination %s is inactive", shared.ErrValidation, destination.Name)
		}
		shipment.DestinationName = destination.Name

		items, err := tx.GetBatchItems(ctx, batchItemIDs)
		if err != nil {
			return err
		}
		for _, id := range batchItemIDs {
			if _, ok := items[id]; !ok {
				return fmt.Errorf("%w: batch item %d not found", shared.ErrValidation, id)
			}
		}

		if err := tx.LockBatchItems(ctx, batchItemIDs); err != nil {
			return err
		}
		balances, err := tx.BatchItemBalances(ctx, batchItemIDs)
		if err != nil {
			return err
		}

		requirements := make([]ledger.Requirement, 0, len(input.Lines))
		refBalances := make(map[ledger.ItemRef]float64, len(balances))
		for _, line := range input.Lines {
			info := items[line.BatchItemID]
			requirements = append(requirements, ledger.Requirement{
				ItemKind: ledger.KindFinishedGoods,
				ItemID:   line.BatchItemID,
				Label:    fmt.Sprintf("Batch %s - %s", info.BatchCode, info.ProductName),
				Qty:      line.Qty,
			})
			refBalances[ledger.ItemRef{Kind: ledger.KindFinishedGoods, ID: line.BatchItemID}] = balances[line.BatchItemID]
		}
		if shortages := ledger.Evaluate(ledger.Accumulate(requirements), refBalances); len(shortages) > 0 {
			return &ledger.InsufficientStockError{Shortages: shortages}
		}

		shipmentID, err := tx.InsertShipment(ctx, shipment)
		if err != nil {
			return err
		}
		shipment.ID = shipmentID

		for _, line := range input.Lines {
			info := items[line.BatchItemID]
			stored := ShipmentLine{
				ShipmentID:  shipmentID,
				BatchItemID: line.BatchItemID,
				BatchCode:   info.BatchCode,
				ProductID:   info.ProductID,
				ProductName: info.ProductName,
				Qty:         line.Qty,
				UOM:         info.UOM,
			}
			lineID, err := tx.InsertShipmentLine(ctx, stored)
			if err != nil {
				return err
			}
			stored.ID = lineID

			if _, err := tx.AppendMovement(ctx, ledger.Movement{
				MovementDate: shipmentDate,
				ItemKind:     ledger.KindFinishedGoods,
				ItemID:       info.ProductID,
				BatchItemID:  line.BatchItemID,
				Qty:          line.Qty,
				UOM:          info.UOM,
				Direction:    ledger.DirectionOut,
				SourceType:   ledger.SourceShipment,
				SourceID:     shipmentID,
				Notes:        fmt.Sprintf("Shipment %s - Batch %s", shipment.ShipmentNumber, info.BatchCode),
			}); err != nil {
				return err
			}
			shipment.Lines = append(shipment.Lines, stored)
		}
		return nil
	})
	if err != nil {
		return Shipment{}, s.classify("ship batch items", err)
	}

	s.recordAudit(ctx, shipment)
	s.stock.InvalidateStock(ctx)
	return shipment, nil
}

// ListShipments lists posted shipments.
func (s *Service) ListShipments(ctx context.Context, filter ListFilter) ([]Shipment, error) {
	return s.repo.ListShipments(ctx, filter)
}

// GetShipment loads one shipment with lines.
func (s *Service) GetShipment(ctx context.Context, id int64) (Shipment, error) {
	if id <= 0 {
		return Shipment{}, shared.ErrValidation
	}
	return s.repo.GetShipment(ctx, id)
}

func (s *Service) classify(action string, err error) error {
	var dup *ledger.DuplicateLineError
	var insufficient *ledger.InsufficientStockError
	switch {
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrDuplicateDocument),
		errors.As(err, &dup),
		errors.As(err, &insufficient):
		return err
	}
	s.logger.Error(action, slog.Any("error", err))
	return ledger.ErrPersistence
}

func (s *Service) recordAudit(ctx context.Context, shipment Shipment) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Action:   "shipping.ship",
		Entity:   "shipment",
		EntityID: strconv.FormatInt(shipment.ID, 10),
		Meta: map[string]any{
			"correlation_id":  uuid.NewString(),
			"shipment_number": shipment.ShipmentNumber,
			"destination_id":  shipment.DestinationID,
			"lines":           len(shipment.Lines),
		},
		At: time.Now(),
	})
	if err != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}
