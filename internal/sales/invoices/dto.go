package invoices

import "time"

type ListInvoicesRequest struct {
	CustomerID *int64         `json:"customer_id,omitempty"`
	Status     *InvoiceStatus `json:"status,omitempty"`
	DateFrom   *time.Time     `json:"date_from,omitempty"`
	DateTo     *time.Time     `json:"date_to,omitempty"`
	Overdue    bool           `json:"overdue,omitempty"`
	Limit      int            `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int            `json:"offset" validate:"gte=0"`
}

// CreateInvoiceRequest registers a standalone invoice not generated from a
// quotation.
type CreateInvoiceRequest struct {
	CustomerID  int64                  `json:"customer_id" validate:"required,gt=0"`
	Currency    string                 `json:"currency" validate:"required,len=3"`
	InvoiceDate *time.Time             `json:"invoice_date,omitempty"`
	DueDate     *time.Time             `json:"due_date,omitempty"`
	Lines       []CreateInvoiceLineReq `json:"lines" validate:"required,min=1,dive"`
}

type CreateInvoiceLineReq struct {
	ProductID       int64   `json:"product_id" validate:"required,gt=0"`
	Description     *string `json:"description,omitempty"`
	Quantity        float64 `json:"quantity" validate:"required,gt=0"`
	UOM             string  `json:"uom" validate:"required,max=20"`
	UnitPrice       float64 `json:"unit_price" validate:"gte=0"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
	TaxPercent      float64 `json:"tax_percent" validate:"gte=0,lte=100"`
	LineOrder       int     `json:"line_order,omitempty"`
}

// PayRequest records a payment against a sent invoice.
type PayRequest struct {
	PaymentRef string     `json:"payment_ref" validate:"required,min=1"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
}

// VoidRequest cancels an unpaid invoice.
type VoidRequest struct {
	Reason string `json:"reason" validate:"required,min=1"`
}
