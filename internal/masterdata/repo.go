package masterdata

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/packtrack/packtrack/internal/shared"
)

// ErrDuplicateCode indicates a code that another row already uses.
var ErrDuplicateCode = errors.New("code already in use")

// repo implements Repository on PostgreSQL.
type repo struct {
	db *pgxpool.Pool
}

// NewRepository creates a new master data repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repo{db: db}
}

// Product operations

func (r *repo) ListProducts(ctx context.Context, filters ListFilters) ([]Product, error) {
	query := `SELECT id, code, name, uom, is_active, created_at, updated_at FROM products`
	query, args := applyFilters(query, filters)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.UOM, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *repo) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.db.QueryRow(ctx,
		`SELECT id, code, name, uom, is_active, created_at, updated_at FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Code, &p.Name, &p.UOM, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repo) CreateProduct(ctx context.Context, product Product) (Product, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx,
		`INSERT INTO products (code, name, uom, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
		product.Code, product.Name, product.UOM, product.IsActive, now).Scan(&product.ID)
	if isUniqueViolation(err) {
		return Product{}, fmt.Errorf("product %s: %w", product.Code, ErrDuplicateCode)
	}
	if err != nil {
		return Product{}, err
	}
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

func (r *repo) UpdateProduct(ctx context.Context, id int64, product Product) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET code = $1, name = $2, uom = $3, is_active = $4, updated_at = $5 WHERE id = $6`,
		product.Code, product.Name, product.UOM, product.IsActive, time.Now(), id)
	if isUniqueViolation(err) {
		return fmt.Errorf("product %s: %w", product.Code, ErrDuplicateCode)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Packaging item operations

func (r *repo) ListPackagingItems(ctx context.Context, filters ListFilters) ([]PackagingItem, error) {
	query := `SELECT id, code, name, uom, is_active, created_at, updated_at FROM packaging_items`
	query, args := applyFilters(query, filters)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []PackagingItem{}
	for rows.Next() {
		var item PackagingItem
		if err := rows.Scan(&item.ID, &item.Code, &item.Name, &item.UOM, &item.IsActive, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repo) GetPackagingItem(ctx context.Context, id int64) (PackagingItem, error) {
	var item PackagingItem
	err := r.db.QueryRow(ctx,
		`SELECT id, code, name, uom, is_active, created_at, updated_at FROM packaging_items WHERE id = $1`, id).
		Scan(&item.ID, &item.Code, &item.Name, &item.UOM, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PackagingItem{}, shared.ErrNotFound
	}
	return item, err
}

func (r *repo) CreatePackagingItem(ctx context.Context, item PackagingItem) (PackagingItem, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx,
		`INSERT INTO packaging_items (code, name, uom, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
		item.Code, item.Name, item.UOM, item.IsActive, now).Scan(&item.ID)
	if isUniqueViolation(err) {
		return PackagingItem{}, fmt.Errorf("packaging item %s: %w", item.Code, ErrDuplicateCode)
	}
	if err != nil {
		return PackagingItem{}, err
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	return item, nil
}

func (r *repo) UpdatePackagingItem(ctx context.Context, id int64, item PackagingItem) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE packaging_items SET code = $1, name = $2, uom = $3, is_active = $4, updated_at = $5 WHERE id = $6`,
		item.Code, item.Name, item.UOM, item.IsActive, time.Now(), id)
	if isUniqueViolation(err) {
		return fmt.Errorf("packaging item %s: %w", item.Code, ErrDuplicateCode)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Bill of materials operations

func (r *repo) ListBOMLines(ctx context.Context, productID int64) ([]BOMLine, error) {
	rows, err := r.db.Query(ctx,
		`SELECT b.id, b.product_id, b.packaging_item_id, pi.name, b.qty_per_unit, pi.uom, b.created_at, b.updated_at
		 FROM boms b
		 JOIN packaging_items pi ON pi.id = b.packaging_item_id
		 WHERE b.product_id = $1
		 ORDER BY pi.name`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []BOMLine{}
	for rows.Next() {
		var line BOMLine
		if err := rows.Scan(&line.ID, &line.ProductID, &line.PackagingItemID, &line.PackagingItemName, &line.QtyPerUnit, &line.UOM, &line.CreatedAt, &line.UpdatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ReplaceBOMLines swaps the full bill of materials of a product in one
// transaction, the way the recipe is edited as a whole.
func (r *repo) ReplaceBOMLines(ctx context.Context, productID int64, lines []BOMLine) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM boms WHERE product_id = $1`, productID); err != nil {
		return err
	}
	now := time.Now()
	for _, line := range lines {
		_, err := tx.Exec(ctx,
			`INSERT INTO boms (product_id, packaging_item_id, qty_per_unit, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $4)`,
			productID, line.PackagingItemID, line.QtyPerUnit, now)
		if isUniqueViolation(err) {
			return fmt.Errorf("packaging item %d listed twice: %w", line.PackagingItemID, ErrDuplicateCode)
		}
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Destination operations

func (r *repo) ListDestinations(ctx context.Context, filters ListFilters) ([]Destination, error) {
	query := `SELECT id, name, COALESCE(address, ''), is_active, created_at, updated_at FROM destinations`
	args := []interface{}{}
	argCount := 0
	where := ""
	if filters.Search != "" {
		argCount++
		where = ` WHERE name ILIKE $` + strconv.Itoa(argCount)
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		if where == "" {
			where = ` WHERE`
		} else {
			where += ` AND`
		}
		where += ` is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}
	query += where + ` ORDER BY name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	destinations := []Destination{}
	for rows.Next() {
		var d Destination
		if err := rows.Scan(&d.ID, &d.Name, &d.Address, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		destinations = append(destinations, d)
	}
	return destinations, rows.Err()
}

func (r *repo) GetDestination(ctx context.Context, id int64) (Destination, error) {
	var d Destination
	err := r.db.QueryRow(ctx,
		`SELECT id, name, COALESCE(address, ''), is_active, created_at, updated_at FROM destinations WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Address, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Destination{}, shared.ErrNotFound
	}
	return d, err
}

func (r *repo) CreateDestination(ctx context.Context, destination Destination) (Destination, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx,
		`INSERT INTO destinations (name, address, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		destination.Name, destination.Address, destination.IsActive, now).Scan(&destination.ID)
	if err != nil {
		return Destination{}, err
	}
	destination.CreatedAt = now
	destination.UpdatedAt = now
	return destination, nil
}

func (r *repo) UpdateDestination(ctx context.Context, id int64, destination Destination) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE destinations SET name = $1, address = $2, is_active = $3, updated_at = $4 WHERE id = $5`,
		destination.Name, destination.Address, destination.IsActive, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func applyFilters(query string, filters ListFilters) (string, []interface{}) {
	args := []interface{}{}
	argCount := 0
	where := ""
	if filters.Search != "" {
		argCount++
		where = ` WHERE (code ILIKE $` + strconv.Itoa(argCount) + ` OR name ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		if where == "" {
			where = ` WHERE`
		} else {
			where += ` AND`
		}
		where += ` is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}
	query += where + ` ORDER BY code`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
	}
	return query, args
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
