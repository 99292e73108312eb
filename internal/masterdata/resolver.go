package masterdata

import (
	"context"
	"errors"
)

// ErrNoBOM indicates a product without any bill of materials lines.
var ErrNoBOM = errors.New("product has no bill of materials")

// ComponentRequirement is one resolved packaging need for a production
// quantity: qty_per_unit from the BOM line multiplied by the batch quantity.
type ComponentRequirement struct {
	PackagingItemID   int64
	PackagingItemName string
	Qty               float64
	UOM               string
}

// BOMSource reads bill of materials lines. Repository satisfies it for plain
// reads; workflow transactions provide their own tx-bound implementation so
// resolution sees the same snapshot as the stock check.
type BOMSource interface {
	ListBOMLines(ctx context.Context, productID int64) ([]BOMLine, error)
}

// Resolver expands a product's bill of materials into concrete packaging
// requirements for a given production quantity.
type Resolver struct {
	source BOMSource
}

// NewResolver creates a Resolver.
func NewResolver(source BOMSource) *Resolver {
	return &Resolver{source: source}
}

// RequirementsFor resolves the packaging consumption of producing qty units
// of the product. Products without BOM lines cannot be produced at all, so
// an empty recipe is an error rather than a free batch.
func (r *Resolver) RequirementsFor(ctx context.Context, productID int64, qty float64) ([]ComponentRequirement, error) {
	lines, err := r.source.ListBOMLines(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrNoBOM
	}
	reqs := make([]ComponentRequirement, 0, len(lines))
	for _, line := range lines {
		reqs = append(reqs, ComponentRequirement{
			PackagingItemID:   line.PackagingItemID,
			PackagingItemName: line.PackagingItemName,
			Qty:               line.QtyPerUnit * qty,
			UOM:               line.UOM,
		})
	}
	return reqs, nil
}
