package ledger

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const balanceExpr = `COALESCE(SUM(CASE WHEN direction = 'in' THEN qty ELSE -qty END), 0)`

// Store reads the append-only movement log in PostgreSQL. All balance
// figures are aggregated on demand; nothing here ever updates or deletes a
// movement row.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ItemBalance returns sum(in) - sum(out) for one item, 0 when no movements exist.
func (s *Store) ItemBalance(ctx context.Context, kind ItemKind, itemID int64) (float64, error) {
	if s == nil {
		return 0, errors.New("ledger store not initialised")
	}
	var balance float64
	err := s.pool.QueryRow(ctx,
		`SELECT `+balanceExpr+` FROM stock_movements WHERE item_kind = $1 AND item_id = $2`,
		string(kind), itemID).Scan(&balance)
	return balance, err
}

// BatchItemBalance returns the finished-goods balance for one production
// batch item: the produced quantity posted at batch creation minus every
// shipment posted against it.
func (s *Store) BatchItemBalance(ctx context.Context, batchItemID int64) (float64, error) {
	if s == nil {
		return 0, errors.New("ledger store not initialised")
	}
	var balance float64
	err := s.pool.QueryRow(ctx,
		`SELECT `+balanceExpr+` FROM stock_movements WHERE item_kind = 'finished_goods' AND batch_item_id = $1`,
		batchItemID).Scan(&balance)
	return balance, err
}

// ItemBalances aggregates balances for a set of items in one pass.
func (s *Store) ItemBalances(ctx context.Context, kind ItemKind, ids []int64) (map[int64]float64, error) {
	return itemBalances(ctx, s.pool, kind, ids)
}

// ListMovements returns the movement log filtered for reporting.
func (s *Store) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	query := `SELECT id, movement_date, item_kind, item_id, COALESCE(batch_item_id, 0), qty, uom, direction, source_type, source_id, COALESCE(notes, ''), created_at
FROM stock_movements WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filter.ItemKind != "" {
		argCount++
		query += ` AND item_kind = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.ItemKind))
	}
	if filter.ItemID > 0 {
		argCount++
		query += ` AND item_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.ItemID)
	}
	if filter.BatchItemID > 0 {
		argCount++
		query += ` AND batch_item_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.BatchItemID)
	}
	if filter.Direction != "" {
		argCount++
		query += ` AND direction = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.Direction))
	}
	if filter.SourceType != "" {
		argCount++
		query += ` AND source_type = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.SourceType))
	}
	if !filter.From.IsZero() {
		argCount++
		query += ` AND movement_date >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		query += ` AND movement_date <= $` + strconv.Itoa(argCount)
		args = append(args, filter.To)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultMovementLimit
	} else if limit > maxMovementLimit {
		limit = maxMovementLimit
	}
	argCount++
	query += ` ORDER BY movement_date DESC, id DESC LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.MovementDate, &m.ItemKind, &m.ItemID, &m.BatchItemID, &m.Qty, &m.UOM, &m.Direction, &m.SourceType, &m.SourceID, &m.Notes, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// PackagingOverview lists every active packaging item with its derived balance.
func (s *Store) PackagingOverview(ctx context.Context) ([]ItemStock, error) {
	return s.overview(ctx, KindPackaging, "packaging_items")
}

// FinishedGoodsOverview lists every active product with its derived balance.
func (s *Store) FinishedGoodsOverview(ctx context.Context) ([]ItemStock, error) {
	return s.overview(ctx, KindFinishedGoods, "products")
}

func (s *Store) overview(ctx context.Context, kind ItemKind, table string) ([]ItemStock, error) {
	rows, err := s.pool.Query(ctx, `SELECT i.id, i.code, i.name, i.uom,
COALESCE(SUM(CASE WHEN m.direction = 'in' THEN m.qty WHEN m.direction = 'out' THEN -m.qty END), 0)
FROM `+table+` i
LEFT JOIN stock_movements m ON m.item_kind = $1 AND m.item_id = i.id
WHERE i.is_active
GROUP BY i.id, i.code, i.name, i.uom
ORDER BY i.code`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stocks := []ItemStock{}
	for rows.Next() {
		entry := ItemStock{ItemKind: kind}
		if err := rows.Scan(&entry.ItemID, &entry.Code, &entry.Name, &entry.UOM, &entry.Balance); err != nil {
			return nil, err
		}
		stocks = append(stocks, entry)
	}
	return stocks, rows.Err()
}

// GetBatchItemStock reports one batch item with its remaining stock.
func (s *Store) GetBatchItemStock(ctx context.Context, batchItemID int64) (BatchItemStock, error) {
	var entry BatchItemStock
	err := s.pool.QueryRow(ctx, `SELECT bi.id, bi.batch_code, bi.product_id, p.name, bi.qty_produced, bi.uom,
COALESCE(SUM(CASE WHEN m.direction = 'in' THEN m.qty WHEN m.direction = 'out' THEN -m.qty END), 0)
FROM production_batch_items bi
JOIN products p ON p.id = bi.product_id
LEFT JOIN stock_movements m ON m.item_kind = 'finished_goods' AND m.batch_item_id = bi.id
WHERE bi.id = $1
GROUP BY bi.id, bi.batch_code, bi.product_id, p.name, bi.qty_produced, bi.uom`, batchItemID).
		Scan(&entry.BatchItemID, &entry.BatchCode, &entry.ProductID, &entry.ProductName, &entry.QtyProduced, &entry.UOM, &entry.Remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return BatchItemStock{}, err
	}
	return entry, err
}

// AvailableBatchItems lists batch items that still have remaining stock,
// the pick list shipment data entry works from.
func (s *Store) AvailableBatchItems(ctx context.Context) ([]BatchItemStock, error) {
	rows, err := s.pool.Query(ctx, `SELECT bi.id, bi.batch_code, bi.product_id, p.name, bi.qty_produced, bi.uom,
COALESCE(SUM(CASE WHEN m.direction = 'in' THEN m.qty WHEN m.direction = 'out' THEN -m.qty END), 0) AS remaining
FROM production_batch_items bi
JOIN products p ON p.id = bi.product_id
LEFT JOIN stock_movements m ON m.item_kind = 'finished_goods' AND m.batch_item_id = bi.id
GROUP BY bi.id, bi.batch_code, bi.product_id, p.name, bi.qty_produced, bi.uom
HAVING COALESCE(SUM(CASE WHEN m.direction = 'in' THEN m.qty WHEN m.direction = 'out' THEN -m.qty END), 0) > 0
ORDER BY bi.batch_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stocks := []BatchItemStock{}
	for rows.Next() {
		var entry BatchItemStock
		if err := rows.Scan(&entry.BatchItemID, &entry.BatchCode, &entry.ProductID, &entry.ProductName, &entry.QtyProduced, &entry.UOM, &entry.Remaining); err != nil {
			return nil, err
		}
		stocks = append(stocks, entry)
	}
	return stocks, rows.Err()
}

// TxStore exposes ledger writes and balance reads bound to an open
// transaction. Workflow repositories embed it so that document rows and
// their movements commit or roll back together.
type TxStore struct {
	tx pgx.Tx
}

// NewTxStore binds a TxStore to an open transaction.
func NewTxStore(tx pgx.Tx) *TxStore {
	return &TxStore{tx: tx}
}

// AppendMovement inserts one immutable movement row.
func (t *TxStore) AppendMovement(ctx context.Context, m Movement) (int64, error) {
	if m.Qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO stock_movements (movement_date, item_kind, item_id, batch_item_id, qty, uom, direction, source_type, source_id, notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW()) RETURNING id`,
		m.MovementDate, string(m.ItemKind), m.ItemID, nullInt(m.BatchItemID), m.Qty, m.UOM, string(m.Direction), string(m.SourceType), m.SourceID, m.Notes).Scan(&id)
	return id, err
}

// LockPackagingItems takes FOR UPDATE row locks on the given packaging
// items, in id order, so concurrent workflows consuming the same materials
// serialize their balance reads instead of deciding on the same snapshot.
func (t *TxStore) LockPackagingItems(ctx context.Context, ids []int64) error {
	return lockRows(ctx, t.tx, "packaging_items", ids)
}

// LockBatchItems takes FOR UPDATE row locks on the given production batch items.
func (t *TxStore) LockBatchItems(ctx context.Context, ids []int64) error {
	return lockRows(ctx, t.tx, "production_batch_items", ids)
}

// ItemBalances aggregates balances for a set of items inside the transaction.
func (t *TxStore) ItemBalances(ctx context.Context, kind ItemKind, ids []int64) (map[int64]float64, error) {
	return itemBalances(ctx, t.tx, kind, ids)
}

// BatchItemBalances aggregates finished-goods balances per batch item inside the transaction.
func (t *TxStore) BatchItemBalances(ctx context.Context, ids []int64) (map[int64]float64, error) {
	balances := make(map[int64]float64, len(ids))
	for _, id := range ids {
		balances[id] = 0
	}
	rows, err := t.tx.Query(ctx, `SELECT batch_item_id, `+balanceExpr+`
FROM stock_movements WHERE item_kind = 'finished_goods' AND batch_item_id = ANY($1)
GROUP BY batch_item_id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var balance float64
		if err := rows.Scan(&id, &balance); err != nil {
			return nil, err
		}
		balances[id] = balance
	}
	return balances, rows.Err()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func itemBalances(ctx context.Context, q querier, kind ItemKind, ids []int64) (map[int64]float64, error) {
	balances := make(map[int64]float64, len(ids))
	for _, id := range ids {
		balances[id] = 0
	}
	rows, err := q.Query(ctx, `SELECT item_id, `+balanceExpr+`
FROM stock_movements WHERE item_kind = $1 AND item_id = ANY($2)
GROUP BY item_id`, string(kind), ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var balance float64
		if err := rows.Scan(&id, &balance); err != nil {
			return nil, err
		}
		balances[id] = balance
	}
	return balances, rows.Err()
}

func lockRows(ctx context.Context, tx pgx.Tx, table string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	rows, err := tx.Query(ctx, `SELECT id FROM `+table+` WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
	}
	return rows.Err()
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
