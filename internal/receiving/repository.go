package receiving

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

// Repository persists receipts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service. The
// embedded ledger store shares the same transaction, so receipt rows and
// their movements commit or roll back together.
type TxRepository interface {
	InsertReceipt(ctx context.Context, receipt Receipt) (int64, error)
	InsertReceiptLine(ctx context.Context, line ReceiptLine) (int64, error)
	GetActivePackagingItems(ctx context.Context, ids []int64) (map[int64]masterdata.PackagingItem, error)
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

func (r *txRepo) InsertReceipt(ctx context.Context, receipt Receipt) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO receipts (receipt_number, receipt_date, supplier_name, delivery_note_url, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id`,
		receipt.ReceiptNumber, receipt.ReceiptDate, receipt.SupplierName, receipt.DeliveryNoteURL, receipt.Notes).Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return 0, fmt.Errorf("receipt %s: %w", receipt.ReceiptNumber, shared.ErrDuplicateDocument)
	}
	return id, err
}

func (r *txRepo) InsertReceiptLine(ctx context.Context, line ReceiptLine) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO receipt_lines (receipt_id, packaging_item_id, qty, uom)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		line.ReceiptID, line.PackagingItemID, line.Qty, line.UOM).Scan(&id)
	return id, err
}

func (r *txRepo) GetActivePackagingItems(ctx context.Context, ids []int64) (map[int64]masterdata.PackagingItem, error) {
	return activePackagingItems(ctx, r.tx, ids)
}

// ListReceipts returns receipts for the register page, newest first.
func (r *Repository) ListReceipts(ctx context.Context, filter ListFilter) ([]Receipt, error) {
	query := `SELECT id, receipt_number, receipt_date, COALESCE(supplier_name, ''), COALESCE(delivery_note_url, ''), COALESCE(notes, ''), created_at FROM receipts WHERE 1=1`
	args := []interface{}{}
	argCount := 0
	if filter.Search != "" {
		argCount++
		query += ` AND (receipt_number ILIKE $` + strconv.Itoa(argCount) + ` OR supplier_name ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filter.Search+"%")
	}
	if !filter.From.IsZero() {
		argCount++
		query += ` AND receipt_date >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		query += ` AND receipt_date <= $` + strconv.Itoa(argCount)
		args = append(args, filter.To)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	argCount++
	query += ` ORDER BY receipt_date DESC, id DESC LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	receipts := []Receipt{}
	for rows.Next() {
		var receipt Receipt
		if err := rows.Scan(&receipt.ID, &receipt.ReceiptNumber, &receipt.ReceiptDate, &receipt.SupplierName, &receipt.DeliveryNoteURL, &receipt.Notes, &receipt.CreatedAt); err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	return receipts, rows.Err()
}

// GetReceipt loads one receipt with its lines.
func (r *Repository) GetReceipt(ctx context.Context, id int64) (Receipt, error) {
	var receipt Receipt
	err := r.pool.QueryRow(ctx,
		`SELECT id, receipt_number, receipt_date, COALESCE(supplier_name, ''), COALESCE(delivery_note_url, ''), COALESCE(notes, ''), created_at FROM receipts WHERE id = $1`, id).
		Scan(&receipt.ID, &receipt.ReceiptNumber, &receipt.ReceiptDate, &receipt.SupplierName, &receipt.DeliveryNoteURL, &receipt.Notes, &receipt.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Receipt{}, shared.ErrNotFound
	}
	if err != nil {
		return Receipt{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT rl.id, rl.receipt_id, rl.packaging_item_id, pi.name, rl.qty, rl.uom
		 FROM receipt_lines rl
		 JOIN packaging_items pi ON pi.id = rl.packaging_item_id
		 WHERE rl.receipt_id = $1 ORDER BY rl.id`, id)
	if err != nil {
		return Receipt{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line ReceiptLine
		if err := rows.Scan(&line.ID, &line.ReceiptID, &line.PackagingItemID, &line.PackagingItemName, &line.Qty, &line.UOM); err != nil {
			return Receipt{}, err
		}
		receipt.Lines = append(receipt.Lines, line)
	}
	return receipt, rows.Err()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func activePackagingItems(ctx context.Context, q querier, ids []int64) (map[int64]masterdata.PackagingItem, error) {
	rows, err := q.Query(ctx,
		`SELECT id, code, name, uom, is_active FROM packaging_items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[int64]masterdata.PackagingItem, len(ids))
	for rows.Next() {
		var item masterdata.PackagingItem
		if err := rows.Scan(&item.ID, &item.Code, &item.Name, &item.UOM, &item.IsActive); err != nil {
			return nil, err
		}
		if item.IsActive {
			items[item.ID] = item
		}
	}
	return items, rows.Err()
}
