package masterdata

import (
	"context"
	"time"
)

// ListFilters represents standard list page filters.
type ListFilters struct {
	Search   string
	IsActive *bool
	Limit    int
}

// Product is a finished good that production batches output.
type Product struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code" validate:"required,max=32"`
	Name      string    `json:"name" validate:"required,max=160"`
	UOM       string    `json:"uom" validate:"required,max=16"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PackagingItem is a raw packaging material consumed by production.
type PackagingItem struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code" validate:"required,max=32"`
	Name      string    `json:"name" validate:"required,max=160"`
	UOM       string    `json:"uom" validate:"required,max=16"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BOMLine states how much of one packaging item a single unit of a product
// consumes. The set of lines for a product is its bill of materials.
type BOMLine struct {
	ID                int64     `json:"id"`
	ProductID         int64     `json:"product_id"`
	PackagingItemID   int64     `json:"packaging_item_id" validate:"required,gt=0"`
	PackagingItemName string    `json:"packaging_item_name,omitempty"`
	QtyPerUnit        float64   `json:"qty_per_unit" validate:"required,gt=0"`
	UOM               string    `json:"uom"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Destination is a shipping destination.
type Destination struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" validate:"required,max=160"`
	Address   string    `json:"address" validate:"max=400"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository interface for master data operations.
type Repository interface {
	ListProducts(ctx context.Context, filters ListFilters) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, product Product) (Product, error)
	UpdateProduct(ctx context.Context, id int64, product Product) error

	ListPackagingItems(ctx context.Context, filters ListFilters) ([]PackagingItem, error)
	GetPackagingItem(ctx context.Context, id int64) (PackagingItem, error)
	CreatePackagingItem(ctx context.Context, item PackagingItem) (PackagingItem, error)
	UpdatePackagingItem(ctx context.Context, id int64, item PackagingItem) error

	ListBOMLines(ctx context.Context, productID int64) ([]BOMLine, error)
	ReplaceBOMLines(ctx context.Context, productID int64, lines []BOMLine) error

	ListDestinations(ctx context.Context, filters ListFilters) ([]Destination, error)
	GetDestination(ctx context.Context, id int64) (Destination, error)
	CreateDestination(ctx context.Context, destination Destination) (Destination, error)
	UpdateDestination(ctx context.Context, id int64, destination Destination) error
}

// Service interface for master data operations.
type Service interface {
	ListProducts(ctx context.Context, filters ListFilters) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, product Product) (Product, error)
	UpdateProduct(ctx context.Context, id int64, product Product) error

	ListPackagingItems(ctx context.Context, filters ListFilters) ([]PackagingItem, error)
	GetPackagingItem(ctx context.Context, id int64) (PackagingItem, error)
	CreatePackagingItem(ctx context.Context, item PackagingItem) (PackagingItem, error)
	UpdatePackagingItem(ctx context.Context, id int64, item PackagingItem) error

	ListBOMLines(ctx context.Context, productID int64) ([]BOMLine, error)
	ReplaceBOMLines(ctx context.Context, productID int64, lines []BOMLine) error

	ListDestinations(ctx context.Context, filters ListFilters) ([]Destination, error)
	GetDestination(ctx context.Context, id int64) (Destination, error)
	CreateDestination(ctx context.Context, destination Destination) (Destination, error)
	UpdateDestination(ctx context.Context, id int64, destination Destination) error
}
