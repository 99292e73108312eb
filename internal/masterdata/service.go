package masterdata

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/packtrack/packtrack/internal/shared"
)

// service implements Service interface.
type service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService creates a new master data service.
func NewService(repo Repository) Service {
	return &service{repo: repo, validate: validator.New()}
}

// Product operations

func (s *service) ListProducts(ctx context.Context, filters ListFilters) ([]Product, error) {
	return s.repo.ListProducts(ctx, filters)
}

func (s *service) GetProduct(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrValidation
	}
	return s.repo.GetProduct(ctx, id)
}

func (s *service) CreateProduct(ctx context.Context, product Product) (Product, error) {
	if err := s.validate.Struct(product); err != nil {
		return Product{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return s.repo.CreateProduct(ctx, product)
}

func (s *service) UpdateProduct(ctx context.Context, id int64, product Product) error {
	if id <= 0 {
		return shared.ErrValidation
	}
	if err := s.validate.Struct(product); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return s.repo.UpdateProduct(ctx, id, product)
}

// Packaging item operations

func (s *service) ListPackagingItems(ctx context.Context, filters ListFilters) ([]PackagingItem, error) {
	return s.repo.ListPackagingItems(ctx, filters)
}

func (s *service) GetPackagingItem(ctx context.Context, id int64) (PackagingItem, error) {
	if id <= 0 {
		return PackagingItem{}, shared.ErrValidation
	}
	return s.repo.GetPackagingItem(ctx, id)
}

func (s *service) CreatePackagingItem(ctx context.Context, item PackagingItem) (PackagingItem, error) {
	if err := s.validate.Struct(item); err != nil {
		return PackagingItem{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return s.repo.CreatePackagingItem(ctx, item)
}

func (s *service) UpdatePackagingItem(ctx context.Context, id int64, item PackagingItem) error {
	if id <= 0 {
		return shared.ErrValidation
	}
	if err := s.validate.Struct(item); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return s.repo.UpdatePackagingItem(ctx, id, item)
}

// Bill of materials operations

func (s *service) ListBOMLines(ctx context.Context, productID int64) ([]BOMLine, error) {
	if productID <= 0 {
		return nil, shared.ErrValidation
	}
	return s.repo.ListBOMLines(ctx, productID)
}

func (s *service) ReplaceBOMLines(ctx context.Context, productID int64, lines []BOMLine) error {
	if productID <= 0 {
		return shared.ErrValidation
	}
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return err
	}
	seen := make(map[int64]bool, len(lines))
	for _, line := range lines {
		if err := s.validate.StructPartial(line, "PackagingItemID", "QtyPerUnit"); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrValidation, err)
		}
		if seen[line.PackagingItemID] {
			return fmt.Errorf("%w: packaging item %d listed twice", shared.ErrValidation, line.PackagingItemID)
		}
		seen[line.PackagingItemID] = true
	}
	return s.repo.ReplaceBOMLines(ctx, productID, lines)
}

// Destination operations

func (s *service) ListDestinations(ctx context.Context, filters ListFilters) ([]Destination, error) {
	return s.repo.ListDestinations(ctx, filters)
}

func (s *service) GetDestination(ctx context.Context, id int64) (Destination, error) {
	if id <= 0 {
		return Destination{}, shared.ErrValidation
	}
	return s.repo.GetDestination(ctx, id)
}

func (s *service) CreateDestination(ctx context.Context, destination Destination) (Destination, error) {
	if err := s.validate.Struct(destination); err != nil {
		return Destination{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return s.repo.CreateDestination(ctx, destination)
}

func (s *service) UpdateDestination(ctx context.Context, id int64, destination Destination) error {
	if id <= 0 {
		return shared.ErrValidation
	}
	if err := s.validate.Struct(destination); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return s.repo.UpdateDestination(ctx, id, destination)
}
