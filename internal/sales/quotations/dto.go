package quotations

import "time"

type CreateQuotationRequest struct {
	CustomerID int64                    `json:"customer_id" validate:"required,gt=0"`
	BranchID   int64                    `json:"branch_id" validate:"required,gt=0"`
	QuoteDate  time.Time                `json:"quote_date" validate:"required"`
	ValidUntil time.Time                `json:"valid_until" validate:"required"`
	Currency   string                   `json:"currency" validate:"required,len=3"`
	Notes      *string                  `json:"notes,omitempty"`
	Lines      []CreateQuotationLineReq `json:"lines" validate:"required,min=1,dive"`
}

type CreateQuotationLineReq struct {
	ProductID       int64   `json:"product_id" validate:"required,gt=0"`
	Description     *string `json:"description,omitempty"`
	Quantity        float64 `json:"quantity" validate:"required,gt=0"`
	UOM             string  `json:"uom" validate:"required,max=20"`
	UnitPrice       float64 `json:"unit_price" validate:"required,gte=0"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
	TaxPercent      float64 `json:"tax_percent" validate:"gte=0,lte=100"`
	LineOrder       int     `json:"line_order" validate:"gte=0"`
}

type UpdateQuotationRequest struct {
	QuoteDate  *time.Time                `json:"quote_date,omitempty"`
	ValidUntil *time.Time                `json:"valid_until,omitempty"`
	Notes      *string                   `json:"notes,omitempty"`
	Lines      *[]CreateQuotationLineReq `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

type ListQuotationsRequest struct {
	CustomerID *int64           `json:"customer_id,omitempty"`
	BranchID   *int64           `json:"branch_id,omitempty"`
	Status     *QuotationStatus `json:"status,omitempty"`
	DateFrom   *time.Time       `json:"date_from,omitempty"`
	DateTo     *time.Time       `json:"date_to,omitempty"`
	Limit      int              `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int              `json:"offset" validate:"gte=0"`
}

// AcceptRequest records a customer acceptance of a sent quotation.
type AcceptRequest struct {
	AcceptanceInfo string  `json:"acceptance_info" validate:"required,min=1"`
	Notes          *string `json:"notes,omitempty"`
}

// CustomerRejectRequest records a customer rejection of a sent quotation.
type CustomerRejectRequest struct {
	RejectionReason string  `json:"rejection_reason" validate:"required,min=1"`
	Notes           *string `json:"notes,omitempty"`
}

// InternalRejectRequest records a manager rejection during internal approval.
type InternalRejectRequest struct {
	Reason string `json:"reason" validate:"required,min=1"`
}

// ReviseRequest sends a quotation back to draft for rework.
type ReviseRequest struct {
	RevisionReason string  `json:"revision_reason" validate:"required,min=1"`
	Notes          *string `json:"notes,omitempty"`
}

// MarkInvoicedRequest optionally overrides generated invoice fields.
type MarkInvoicedRequest struct {
	InvoiceNumber *string    `json:"invoice_number,omitempty"`
	InvoiceDate   *time.Time `json:"invoice_date,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
}
