package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// IdempotencyPort reused from shared.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service implements the delivery note lifecycle. Branch access is enforced
// here so staff of one branch cannot act on another branch's deliveries.
type Service struct {
	repo     Repository
	validate *validator.Validate
	idem     IdempotencyPort
	now      func() time.Time
}

// NewService constructs a delivery service.
func NewService(repo Repository, idem IdempotencyPort) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		idem:     idem,
		now:      time.Now,
	}
}

// ErrBranchDenied signals the identity cannot act on the note's branch.
var ErrBranchDenied = fmt.Errorf("branch access denied")

func (s *Service) Get(ctx context.Context, ident shared.Identity, id int64) (*DeliveryNote, error) {
	note, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanAccessBranch(ident, note.BranchID) {
		return nil, ErrBranchDenied
	}
	return note, nil
}

func (s *Service) List(ctx context.Context, ident shared.Identity, req ListDeliveriesRequest) ([]DeliveryNote, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, err
	}
	// Non-HQ staff only ever see their own branch.
	if !ident.IsAdmin && !ident.IsHQ {
		branchID := ident.BranchID
		req.BranchID = &branchID
	}
	return s.repo.List(ctx, req)
}

// Create registers a PENDING delivery note, optionally tied to an invoice.
func (s *Service) Create(ctx context.Context, ident shared.Identity, req CreateDeliveryRequest) (*DeliveryNote, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if !rbac.CanAccessBranch(ident, req.BranchID) {
		return nil, ErrBranchDenied
	}

	number, err := s.repo.GenerateNumber(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("generate delivery number: %w", err)
	}

	note := DeliveryNote{
		Number:        number,
		InvoiceID:     req.InvoiceID,
		CustomerID:    req.CustomerID,
		BranchID:      req.BranchID,
		Status:        StatusPending,
		Notes:         req.Notes,
		DriverName:    req.DriverName,
		DriverPhone:   req.DriverPhone,
		VehicleNumber: req.VehicleNumber,
		CreatedBy:     ident.UserID,
	}
	lines := make([]DeliveryLine, 0, len(req.Lines))
	for _, lr := range req.Lines {
		lines = append(lines, DeliveryLine{ProductID: lr.ProductID, WarehouseID: lr.WarehouseID, Quantity: lr.Quantity, UOM: lr.UOM})
	}

	id, err := s.repo.Create(ctx, note, lines)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Dispatch moves a PENDING note to IN_TRANSIT.
func (s *Service) Dispatch(ctx context.Context, ident shared.Identity, id int64) (*DeliveryNote, error) {
	note, err := s.Get(ctx, ident, id)
	if err != nil {
		return nil, err
	}
	if !note.Status.CanDispatch() {
		return nil, fmt.Errorf("%w: delivery is %s", ErrInvalidStatus, note.Status)
	}
	if err := s.repo.MarkDispatched(ctx, id, s.now()); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Execute depletes warehouse stock for every line and marks the note
// DELIVERED. All lines succeed or none do.
func (s *Service) Execute(ctx context.Context, ident shared.Identity, id int64) (*DeliveryNote, error) {
	note, err := s.Get(ctx, ident, id)
	if err != nil {
		return nil, err
	}
	if !note.Status.CanExecute() {
		return nil, fmt.Errorf("%w: delivery is %s", ErrInvalidStatus, note.Status)
	}

	idemKey := fmt.Sprintf("DN-EXEC:%s", note.Number)
	inserted := false
	if s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idemKey, "delivery.execute"); err != nil {
			return nil, err
		}
		inserted = true
	}
	if err := s.repo.Execute(ctx, id, ident.UserID, s.now()); err != nil {
		// A failed execution must release the key so the note stays retryable.
		if inserted {
			_ = s.idem.Delete(ctx, idemKey)
		}
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Cancel voids an unexecuted note. Cancelling never moves stock back; an
// executed delivery stays on the ledger.
func (s *Service) Cancel(ctx context.Context, ident shared.Identity, id int64, req CancelRequest) (*DeliveryNote, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	note, err := s.Get(ctx, ident, id)
	if err != nil {
		return nil, err
	}
	if !note.Status.CanCancel() {
		return nil, fmt.Errorf("%w: delivery is %s", ErrInvalidStatus, note.Status)
	}
	if err := s.repo.MarkCancelled(ctx, id, req.Reason, s.now()); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}
