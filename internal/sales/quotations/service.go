package quotations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/sales/money"
)

// Lifecycle errors surfaced to the handler layer.
var (
	ErrInvalidStatus   = errors.New("invalid status transition")
	ErrNotSent         = errors.New("quotation has not been sent to the customer")
	ErrNotAccepted     = errors.New("quotation has not been accepted")
	ErrAlreadyInvoiced = errors.New("quotation is already invoiced")
)

// IdempotencyPort reused from shared.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service implements the quotation lifecycle. All status transitions are
// guarded here so the repository stays a dumb persistence layer.
type Service struct {
	repo     Repository
	validate *validator.Validate
	dueDays  int
	idem     IdempotencyPort
	now      func() time.Time
}

// NewService constructs a quotation service. dueDays is the default payment
// term applied when mark-invoiced is called without an explicit due date.
func NewService(repo Repository, dueDays int, idem IdempotencyPort) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		dueDays:  dueDays,
		idem:     idem,
		now:      time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*Quotation, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, req)
}

// Create builds a DRAFT quotation. Line amounts are always recomputed
// server-side from quantity, unit price, discount and tax percentages.
func (s *Service) Create(ctx context.Context, req CreateQuotationRequest, userID int64) (*Quotation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if req.ValidUntil.Before(req.QuoteDate) {
		return nil, errors.New("valid_until must not precede quote_date")
	}

	number, err := s.repo.GenerateNumber(ctx, req.QuoteDate)
	if err != nil {
		return nil, fmt.Errorf("generate quotation number: %w", err)
	}

	lines, subtotal, taxTotal := buildLines(req.Lines)

	q := Quotation{
		Number:     number,
		CustomerID: req.CustomerID,
		BranchID:   req.BranchID,
		QuoteDate:  req.QuoteDate,
		ValidUntil: req.ValidUntil,
		Status:     StatusDraft,
		Currency:   req.Currency,
		Subtotal:   subtotal,
		TaxAmount:  taxTotal,
		Total:      money.Round2(subtotal + taxTotal),
		Notes:      req.Notes,
		CreatedBy:  userID,
	}

	id, err := s.repo.Create(ctx, q)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		lines[i].QuotationID = id
		if _, err := s.repo.InsertLine(ctx, lines[i]); err != nil {
			return nil, err
		}
	}
	return s.repo.Get(ctx, id)
}

// Update modifies header fields and optionally replaces the full line set.
// Only DRAFT quotations may be edited.
func (s *Service) Update(ctx context.Context, id int64, req UpdateQuotationRequest) (*Quotation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !q.Status.CanEdit() {
		return nil, fmt.Errorf("%w: cannot edit quotation in status %s", ErrInvalidStatus, q.Status)
	}

	updates := map[string]interface{}{}
	if req.QuoteDate != nil {
		updates["quote_date"] = *req.QuoteDate
	}
	if req.ValidUntil != nil {
		updates["valid_until"] = *req.ValidUntil
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	if req.Lines != nil {
		lines, subtotal, taxTotal := buildLines(*req.Lines)
		if err := s.repo.DeleteLines(ctx, id); err != nil {
			return nil, err
		}
		for i := range lines {
			lines[i].QuotationID = id
			if _, err := s.repo.InsertLine(ctx, lines[i]); err != nil {
				return nil, err
			}
		}
		updates["subtotal"] = subtotal
		updates["tax_amount"] = taxTotal
		updates["total"] = money.Round2(subtotal + taxTotal)
	}

	if err := s.repo.UpdateHeader(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Submit moves a DRAFT quotation to SUBMITTED for internal approval.
func (s *Service) Submit(ctx context.Context, id, userID int64) (*Quotation, error) {
	return s.transition(ctx, id, userID, StatusSubmitted, StatusDraft)
}

// Approve moves a SUBMITTED quotation to APPROVED and records the approver.
func (s *Service) Approve(ctx context.Context, id, userID int64) (*Quotation, error) {
	return s.transition(ctx, id, userID, StatusApproved, StatusSubmitted)
}

// Send marks an APPROVED quotation as delivered to the customer.
func (s *Service) Send(ctx context.Context, id, userID int64) (*Quotation, error) {
	return s.transition(ctx, id, userID, StatusSent, StatusApproved)
}

// InternalReject rejects a SUBMITTED quotation during review. This is a
// distinct path from a customer rejection and stores its reason in the same
// field, with the response date left empty.
func (s *Service) InternalReject(ctx context.Context, id int64, req InternalRejectRequest) (*Quotation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.Status != StatusSubmitted {
		return nil, fmt.Errorf("%w: cannot internally reject quotation in status %s", ErrInvalidStatus, q.Status)
	}
	resp := CustomerResponse{
		RejectionReason: &req.Reason,
		ResponseDate:    s.now(),
	}
	if err := s.repo.RecordResponse(ctx, id, StatusRejected, resp); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Accept records a customer acceptance of a SENT quotation.
func (s *Service) Accept(ctx context.Context, id int64, req AcceptRequest) (*Quotation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if err := s.requireSent(ctx, id); err != nil {
		return nil, err
	}
	resp := CustomerResponse{
		AcceptanceInfo: &req.AcceptanceInfo,
		Notes:          req.Notes,
		ResponseDate:   s.now(),
	}
	if err := s.repo.RecordResponse(ctx, id, StatusAccepted, resp); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// CustomerReject records a customer rejection of a SENT quotation.
func (s *Service) CustomerReject(ctx context.Context, id int64, req CustomerRejectRequest) (*Quotation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if err := s.requireSent(ctx, id); err != nil {
		return nil, err
	}
	resp := CustomerResponse{
		RejectionReason: &req.RejectionReason,
		Notes:           req.Notes,
		ResponseDate:    s.now(),
	}
	if err := s.repo.RecordResponse(ctx, id, StatusRejected, resp); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Revise returns a SENT quotation to DRAFT so the lines can be reworked under
// the same number.
func (s *Service) Revise(ctx context.Context, id int64, req ReviseRequest) (*Quotation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if err := s.requireSent(ctx, id); err != nil {
		return nil, err
	}
	resp := CustomerResponse{
		RevisionReason: &req.RevisionReason,
		Notes:          req.Notes,
		ResponseDate:   s.now(),
	}
	if err := s.repo.RecordResponse(ctx, id, StatusDraft, resp); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// MarkInvoiced creates an invoice from an ACCEPTED quotation and stamps the
// quotation, both inside one transaction. The invoiced stamp is set exactly
// once; a second call fails without creating another invoice.
func (s *Service) MarkInvoiced(ctx context.Context, id int64, req MarkInvoicedRequest, userID int64) (*Quotation, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.Invoiced() {
		return nil, ErrAlreadyInvoiced
	}
	if q.Status != StatusAccepted {
		return nil, fmt.Errorf("%w: quotation is %s", ErrNotAccepted, q.Status)
	}

	now := s.now()
	invoiceDate := now
	if req.InvoiceDate != nil {
		invoiceDate = *req.InvoiceDate
	}
	dueDate := invoiceDate.AddDate(0, 0, s.dueDays)
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}

	idemKey := fmt.Sprintf("INV:%s", q.Number)
	inserted := false
	if s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idemKey, "sales.invoice"); err != nil {
			return nil, err
		}
		inserted = true
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number := ""
		if req.InvoiceNumber != nil {
			number = *req.InvoiceNumber
		} else {
			count, err := tx.CountInvoicesInMonth(ctx, invoiceDate.Year(), invoiceDate.Month())
			if err != nil {
				return err
			}
			number = fmt.Sprintf("INV/%d/%d/%03d", invoiceDate.Year(), int(invoiceDate.Month()), count+1)
		}

		draft := InvoiceDraft{
			Number:      number,
			QuotationID: q.ID,
			CustomerID:  q.CustomerID,
			Currency:    q.Currency,
			Subtotal:    q.Subtotal,
			TaxAmount:   q.TaxAmount,
			Total:       q.Total,
			InvoiceDate: invoiceDate,
			DueDate:     dueDate,
			CreatedBy:   userID,
		}
		invoiceID, err := tx.CreateInvoice(ctx, draft, q.Lines)
		if err != nil {
			return err
		}
		return tx.StampInvoiced(ctx, q.ID, invoiceID, now)
	})
	if err != nil {
		if inserted {
			_ = s.idem.Delete(ctx, idemKey)
		}
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) transition(ctx context.Context, id, userID int64, to QuotationStatus, from QuotationStatus) (*Quotation, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.Status != from {
		return nil, fmt.Errorf("%w: cannot move quotation from %s to %s", ErrInvalidStatus, q.Status, to)
	}
	if err := s.repo.UpdateStatus(ctx, id, to, userID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) requireSent(ctx context.Context, id int64) error {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if q.Status != StatusSent {
		return fmt.Errorf("%w: quotation is %s", ErrNotSent, q.Status)
	}
	return nil
}

func buildLines(reqs []CreateQuotationLineReq) ([]QuotationLine, float64, float64) {
	lines := make([]QuotationLine, 0, len(reqs))
	var subtotal, taxTotal float64
	for i, lr := range reqs {
		discount, tax, total := money.LineTotals(lr.Quantity, lr.UnitPrice, lr.DiscountPercent, lr.TaxPercent)
		order := lr.LineOrder
		if order == 0 {
			order = i + 1
		}
		lines = append(lines, QuotationLine{
			ProductID:       lr.ProductID,
			Description:     lr.Description,
			Quantity:        lr.Quantity,
			UOM:             lr.UOM,
			UnitPrice:       lr.UnitPrice,
			DiscountPercent: lr.DiscountPercent,
			DiscountAmount:  discount,
			TaxPercent:      lr.TaxPercent,
			TaxAmount:       tax,
			LineTotal:       total,
			LineOrder:       order,
		})
		subtotal = money.Round2(subtotal + total - tax)
		taxTotal = money.Round2(taxTotal + tax)
	}
	return lines, subtotal, taxTotal
}
