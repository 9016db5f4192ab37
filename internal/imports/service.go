package imports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validation errors raised before anything is persisted.
var (
	ErrSerialRequired     = errors.New("serialized item requires a serial number")
	ErrSerialQuantity     = errors.New("serialized item quantity must be 1")
	ErrPartNumberRequired = errors.New("bulk item requires a part number")
	ErrSerialRepeated     = errors.New("serial number repeated within the batch")
)

// IdempotencyPort reused from shared.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service implements import batch registration and verification.
type Service struct {
	repo     Repository
	validate *validator.Validate
	idem     IdempotencyPort
	now      func() time.Time
}

// NewService constructs an import service.
func NewService(repo Repository, idem IdempotencyPort) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		idem:     idem,
		now:      time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*Import, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListImportsRequest) ([]Import, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, req)
}

// Create registers a PENDING import batch. Item shape is validated up front:
// serialized items need a serial and unit quantity, bulk items need a part
// number, and no serial may repeat within the batch.
func (s *Service) Create(ctx context.Context, req CreateImportRequest, userID int64) (*Import, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if err := checkItems(req.Items); err != nil {
		return nil, err
	}

	number, err := s.repo.GenerateNumber(ctx, req.ImportDate)
	if err != nil {
		return nil, fmt.Errorf("generate import number: %w", err)
	}

	imp := Import{
		Number:      number,
		SupplierID:  req.SupplierID,
		WarehouseID: req.WarehouseID,
		BranchID:    req.BranchID,
		Status:      StatusPending,
		ImportDate:  req.ImportDate,
		Notes:       req.Notes,
		CreatedBy:   userID,
	}
	items := make([]ImportItem, 0, len(req.Items))
	for _, ir := range req.Items {
		items = append(items, ImportItem{
			Name:            ir.Name,
			Brand:           ir.Brand,
			Category:        ir.Category,
			Condition:       ir.Condition,
			SerialNumber:    ir.SerialNumber,
			PartNumber:      ir.PartNumber,
			BatchNumber:     ir.BatchNumber,
			EngineModel:     ir.EngineModel,
			EnginePower:     ir.EnginePower,
			OperatingWeight: ir.OperatingWeight,
			Year:            ir.Year,
			Quantity:        ir.Quantity,
			UOM:             ir.UOM,
			UnitCost:        ir.UnitCost,
		})
	}

	id, err := s.repo.Create(ctx, imp, items)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Verify materializes the batch into products and stock. Any failure leaves
// the import PENDING with nothing written.
func (s *Service) Verify(ctx context.Context, id, userID int64) (*Import, error) {
	imp, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	idemKey := fmt.Sprintf("IMP-VERIFY:%s", imp.Number)
	inserted := false
	if s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idemKey, "imports.verify"); err != nil {
			return nil, err
		}
		inserted = true
	}
	if err := s.repo.Verify(ctx, id, userID, s.now()); err != nil {
		// A failed verification must release the key so the batch stays
		// retryable after the duplicate is corrected.
		if inserted {
			_ = s.idem.Delete(ctx, idemKey)
		}
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func checkItems(items []CreateImportItemReq) error {
	seenSerials := map[string]struct{}{}
	for i, it := range items {
		switch it.Category {
		case "SERIALIZED":
			if it.SerialNumber == nil || *it.SerialNumber == "" {
				return fmt.Errorf("item %d: %w", i+1, ErrSerialRequired)
			}
			if it.Quantity != 1 {
				return fmt.Errorf("item %d: %w", i+1, ErrSerialQuantity)
			}
			if _, ok := seenSerials[*it.SerialNumber]; ok {
				return fmt.Errorf("item %d: %w: %s", i+1, ErrSerialRepeated, *it.SerialNumber)
			}
			seenSerials[*it.SerialNumber] = struct{}{}
		case "BULK":
			if it.PartNumber == nil || *it.PartNumber == "" {
				return fmt.Errorf("item %d: %w", i+1, ErrPartNumberRequired)
			}
		}
	}
	return nil
}
