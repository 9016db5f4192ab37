package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	if strings.TrimSpace(product.Name) == "" {
		return Product{}, fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	if !product.Condition.IsValid() {
		return Product{}, fmt.Errorf("%w: condition", shared.ErrRequiredField)
	}
	switch product.Category {
	case CategorySerialized:
		if product.SerialNumber == nil || strings.TrimSpace(*product.SerialNumber) == "" {
			return Product{}, fmt.Errorf("%w: serial_number", shared.ErrRequiredField)
		}
	case CategoryBulk:
		if product.PartNumber == nil || strings.TrimSpace(*product.PartNumber) == "" {
			return Product{}, fmt.Errorf("%w: part_number", shared.ErrRequiredField)
		}
	default:
		return Product{}, fmt.Errorf("%w: category", shared.ErrRequiredField)
	}
	if product.Status == "" {
		product.Status = StatusInStock
	}
	return s.repo.Create(ctx, product)
}
