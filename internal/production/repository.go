package production

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

// Repository persists production batches in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service. BOM
// reads, packaging locks, balance reads and movement appends all run on the
// same transaction snapshot.
type TxRepository interface {
	InsertBatch(ctx context.Context, batch Batch) (int64, error)
	InsertBatchItem(ctx context.Context, item BatchItem) (int64, error)
	GetActiveProducts(ctx context.Context, ids []int64) (map[int64]masterdata.Product, error)
	ListBOMLines(ctx context.Context, productID int64) ([]masterdata.BOMLine, error)
	LockPackagingItems(ctx context.Context, ids []int64) error
	ItemBalances(ctx context.Context, kind ledger.ItemKind, ids []int64) (map[int64]float64, error)
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

func (r *txRepo) InsertBatch(ctx context.Context, batch Batch) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO production_batches (batch_date, po_number, notes, created_at)
		 VALUES ($1, $2, $3, NOW()) RETURNING id`,
		batch.BatchDate, batch.PONumber, batch.Notes).Scan(&id)
	return id, err
}

func (r *txRepo) InsertBatchItem(ctx context.Context, item BatchItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO production_batch_items (batch_id, batch_code, product_id, qty_produced, uom, notes)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		item.BatchID, item.BatchCode, item.ProductID, item.QtyProduced, item.UOM, item.Notes).Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return 0, fmt.Errorf("batch code %s: %w", item.BatchCode, shared.ErrDuplicateDocument)
	}
	return id, err
}

func (r *txRepo) GetActiveProducts(ctx context.Context, ids []int64) (map[int64]masterdata.Product, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT id, code, name, uom, is_active FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[int64]masterdata.Product, len(ids))
	for rows.Next() {
		var p masterdata.Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.UOM, &p.IsActive); err != nil {
			return nil, err
		}
		if p.IsActive {
			products[p.ID] = p
		}
	}
	return products, rows.Err()
}

func (r *txRepo) ListBOMLines(ctx context.Context, productID int64) ([]masterdata.BOMLine, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT b.id, b.product_id, b.packaging_item_id, pi.name, b.qty_per_unit, pi.uom
		 FROM boms b
		 JOIN packaging_items pi ON pi.id = b.packaging_item_id
		 WHERE b.product_id = $1
		 ORDER BY pi.name`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []masterdata.BOMLine{}
	for rows.Next() {
		var line masterdata.BOMLine
		if err := rows.Scan(&line.ID, &line.ProductID, &line.PackagingItemID, &line.PackagingItemName, &line.QtyPerUnit, &line.UOM); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ListBatches returns production batches, newest first.
func (r *Repository) ListBatches(ctx context.Context, filter ListFilter) ([]Batch, error) {
	query := `SELECT DISTINCT b.id, b.batch_date, COALESCE(b.po_number, ''), COALESCE(b.notes, ''), b.created_at FROM production_batches b`
	args := []interface{}{}
	argCount := 0
	if filter.Search != "" {
		argCount++
		query += ` JOIN production_batch_items bi ON bi.batch_id = b.id AND bi.batch_code ILIKE $` + strconv.Itoa(argCount)
		args = append(args, "%"+filter.Search+"%")
	}
	query += ` WHERE 1=1`
	if !filter.From.IsZero() {
		argCount++
		query += ` AND b.batch_date >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		query += ` AND b.batch_date <= $` + strconv.Itoa(argCount)
		args = append(args, filter.To)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	argCount++
	query += ` ORDER BY b.batch_date DESC, b.id DESC LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := []Batch{}
	for rows.Next() {
		var batch Batch
		if err := rows.Scan(&batch.ID, &batch.BatchDate, &batch.PONumber, &batch.Notes, &batch.CreatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

// GetBatch loads one batch with its items.
func (r *Repository) GetBatch(ctx context.Context, id int64) (Batch, error) {
	var batch Batch
	err := r.pool.QueryRow(ctx,
		`SELECT id, batch_date, COALESCE(po_number, ''), COALESCE(notes, ''), created_at FROM production_batches WHERE id = $1`, id).
		Scan(&batch.ID, &batch.BatchDate, &batch.PONumber, &batch.Notes, &batch.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Batch{}, shared.ErrNotFound
	}
	if err != nil {
		return Batch{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT bi.id, bi.batch_id, bi.batch_code, bi.product_id, p.name, bi.qty_produced, bi.uom, COALESCE(bi.notes, '')
		 FROM production_batch_items bi
		 JOIN products p ON p.id = bi.product_id
		 WHERE bi.batch_id = $1 ORDER BY bi.id`, id)
	if err != nil {
		return Batch{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item BatchItem
		if err := rows.Scan(&item.ID, &item.BatchID, &item.BatchCode, &item.ProductID, &item.ProductName, &item.QtyProduced, &item.UOM, &item.Notes); err != nil {
			return Batch{}, err
		}
		batch.Items = append(batch.Items, item)
	}
	return batch, rows.Err()
}
