package shipping

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/packtrack/packtrack/internal/ledger"
	"github.com/packtrack/packtrack/internal/masterdata"
	"github.com/packtrack/packtrack/internal/platform/db"
	"github.com/packtrack/packtrack/internal/shared"
)

// Repository persists shipments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	InsertShipment(ctx context.Context, shipment Shipment) (int64, error)
	InsertShipmentLine(ctx context.Context, line ShipmentLine) (int64, error)
	GetDestination(ctx context.Context, id int64) (masterdata.Destination, error)
	GetBatchItems(ctx context.Context, ids []int64) (map[int64]BatchItemInfo, error)
	LockBatchItems(ctx context.Context, ids []int64) error
	BatchItemBalances(ctx context.Context, ids []int64) (map[int64]float64, error)
	AppendMovement(ctx context.Context, m ledger.Movement) (int64, error)
}

type txRepo struct {
	tx pgx.Tx
	*ledger.TxStore
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, TxStore: ledger.NewTxStore(tx)})
	})
}

func (r *txRepo) InsertShipment(ctx context.Context, shipment Shipment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO shipments (shipment_number, shipment_date, destination_id, delivery_note_number, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id`,
		shipment.ShipmentNumber, shipment.ShipmentDate, shipment.DestinationID, shipment.DeliveryNoteNumber, shipment.Notes).Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return 0, fmt.Errorf("shipment %s: %w", shipment.ShipmentNumber, shared.ErrDuplicateDocument)
	}
	return id, err
}

func (r *txRepo) InsertShipmentLine(ctx context.Context, line ShipmentLine) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO shipment_lines (shipment_id, batch_item_id, qty, uom)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		line.ShipmentID, line.BatchItemID, line.Qty, line.UOM).Scan(&id)
	return id, err
}

func (r *txRepo) GetDestination(ctx context.Context, id int64) (masterdata.Destination, error) {
	var d masterdata.Destination
	err := r.tx.QueryRow(ctx,
		`SELECT id, name, COALESCE(address, ''), is_active FROM destinations WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Address, &d.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return masterdata.Destination{}, shared.ErrNotFound
	}
	return d, err
}

func (r *txRepo) GetBatchItems(ctx context.Context, ids []int64) (map[int64]BatchItemInfo, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT bi.id, bi.batch_code, bi.product_id, p.name, bi.qty_produced, bi.uom
		 FROM production_batch_items bi
		 JOIN products p ON p.id = bi.product_id
		 WHERE bi.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[int64]BatchItemInfo, len(ids))
	for rows.Next() {
		var info BatchItemInfo
		if err := rows.Scan(&info.ID, &info.BatchCode, &info.ProductID, &info.ProductName, &info.QtyProduced, &info.UOM); err != nil {
			return nil, err
		}
		items[info.ID] = info
	}
	return items, rows.Err()
}

// ListShipments returns shipments, newest first.
func (r *Repository) ListShipments(ctx context.Context, filter ListFilter) ([]Shipment, error) {
	query := `SELECT s.id, s.shipment_number, s.shipment_date, s.destination_id, d.name, COALESCE(s.delivery_note_number, ''), COALESCE(s.notes, ''), s.created_at
FROM shipments s
JOIN destinations d ON d.id = s.destination_id
WHERE 1=1`
	args := []interface{}{}
	argCount := 0
	if filter.Search != "" {
		argCount++
		query += ` AND (s.shipment_number ILIKE $` + strconv.Itoa(argCount) + ` OR d.name ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.DestinationID > 0 {
		argCount++
		query += ` AND s.destination_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.DestinationID)
	}
	if !filter.From.IsZero() {
		argCount++
		query += ` AND s.shipment_date >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		query += ` AND s.shipment_date <= $` + strconv.Itoa(argCount)
		args = append(args, filter.To)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	argCount++
	query += ` ORDER BY s.shipment_date DESC, s.id DESC LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shipments := []Shipment{}
	for rows.Next() {
		var s Shipment
		if err := rows.Scan(&s.ID, &s.ShipmentNumber, &s.ShipmentDate, &s.DestinationID, &s.DestinationName, &s.DeliveryNoteNumber, &s.Notes, &s.CreatedAt); err != nil {
			return nil, err
		}
		shipments = append(shipments, s)
	}
	return shipments, rows.Err()
}

// GetShipment loads one shipment with its lines.
func (r *Repository) GetShipment(ctx context.Context, id int64) (Shipment, error) {
	var shipment Shipment
	err := r.pool.QueryRow(ctx,
		`SELECT s.id, s.shipment_number, s.shipment_date, s.destination_id, d.name, COALESCE(s.delivery_note_number, ''), COALESCE(s.notes, ''), s.created_at
		 FROM shipments s
		 JOIN destinations d ON d.id = s.destination_id
		 WHERE s.id = $1`, id).
		Scan(&shipment.ID, &shipment.ShipmentNumber, &shipment.ShipmentDate, &shipment.DestinationID, &shipment.DestinationName, &shipment.DeliveryNoteNumber, &shipment.Notes, &shipment.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Shipment{}, shared.ErrNotFound
	}
	if err != nil {
		return Shipment{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT sl.id, sl.shipment_id, sl.batch_item_id, bi.batch_code, bi.product_id, p.name, sl.qty, sl.uom
		 FROM shipment_lines sl
		 JOIN production_batch_items bi ON bi.id = sl.batch_item_id
		 JOIN products p ON p.id = bi.product_id
		 WHERE sl.shipment_id = $1 ORDER BY sl.id`, id)
	if err != nil {
		return Shipment{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line ShipmentLine
		if err := rows.Scan(&line.ID, &line.ShipmentID, &line.BatchItemID, &line.BatchCode, &line.ProductID, &line.ProductName, &line.Qty, &line.UOM); err != nil {
			return Shipment{}, err
		}
		shipment.Lines = append(shipment.Lines, line)
	}
	return shipment, rows.Err()
}
