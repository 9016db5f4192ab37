package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/meridian-erp/meridian-erp/internal/sales/money"
)

// ErrInvalidStatus signals a disallowed lifecycle transition.
var ErrInvalidStatus = errors.New("invalid invoice status transition")

// Payment term applied when a standalone invoice has no explicit due date.
const defaultDueDays = 14

// Service implements the invoice lifecycle. Quotation billing creates
// invoices through the mark-invoiced transaction; Create covers standalone
// billing outside that flow.
type Service struct {
	repo     Repository
	validate *validator.Validate
	printer  *message.Printer
	now      func() time.Time
}

// NewService constructs an invoice service.
func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		printer:  message.NewPrinter(language.English),
		now:      time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, req)
}

// Create registers a standalone DRAFT invoice for billing outside the
// quotation flow. Line amounts are recomputed server-side.
func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest, userID int64) (*Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	invoiceDate := s.now()
	if req.InvoiceDate != nil {
		invoiceDate = *req.InvoiceDate
	}
	dueDate := invoiceDate.AddDate(0, 0, defaultDueDays)
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}

	lines := make([]InvoiceLine, 0, len(req.Lines))
	var subtotal, taxTotal float64
	for i, lr := range req.Lines {
		discount, tax, total := money.LineTotals(lr.Quantity, lr.UnitPrice, lr.DiscountPercent, lr.TaxPercent)
		order := lr.LineOrder
		if order == 0 {
			order = i + 1
		}
		lines = append(lines, InvoiceLine{
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

	inv := Invoice{
		CustomerID:  req.CustomerID,
		Currency:    req.Currency,
		Subtotal:    subtotal,
		TaxAmount:   taxTotal,
		Total:       money.Round2(subtotal + taxTotal),
		Status:      StatusDraft,
		InvoiceDate: invoiceDate,
		DueDate:     dueDate,
		CreatedBy:   userID,
	}
	id, err := s.repo.Create(ctx, inv, lines)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Send issues a DRAFT invoice to the customer.
func (s *Service) Send(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inv.Status.CanSend() {
		return nil, fmt.Errorf("%w: invoice is %s", ErrInvalidStatus, inv.Status)
	}
	if err := s.repo.MarkSent(ctx, id, s.now()); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Pay records a payment against a SENT invoice.
func (s *Service) Pay(ctx context.Context, id int64, req PayRequest) (*Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inv.Status.CanPay() {
		return nil, fmt.Errorf("%w: invoice is %s", ErrInvalidStatus, inv.Status)
	}
	paidAt := s.now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}
	if err := s.repo.MarkPaid(ctx, id, req.PaymentRef, paidAt); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Void cancels an unpaid invoice. Paid invoices can never be voided.
func (s *Service) Void(ctx context.Context, id int64, req VoidRequest) (*Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inv.Status.CanVoid() {
		return nil, fmt.Errorf("%w: invoice is %s", ErrInvalidStatus, inv.Status)
	}
	if err := s.repo.MarkVoid(ctx, id, req.Reason); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// AgingReport aggregates outstanding amounts per currency with a formatted
// one-line summary per bucket.
type AgingReport struct {
	Buckets []AgingSummary `json:"buckets"`
	Summary []string       `json:"summary"`
}

// Aging builds the receivables aging report across all sent invoices.
func (s *Service) Aging(ctx context.Context) (*AgingReport, error) {
	buckets, err := s.repo.Aging(ctx, s.now())
	if err != nil {
		return nil, err
	}
	report := &AgingReport{Buckets: buckets}
	for _, b := range buckets {
		report.Summary = append(report.Summary, s.printer.Sprintf(
			"%s: %.2f outstanding across %d invoices (%.2f current, %.2f past due)",
			b.Currency, b.Outstanding, b.Count, b.Current, b.Outstanding-b.Current))
	}
	return report, nil
}
