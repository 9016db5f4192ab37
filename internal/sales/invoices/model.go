package invoices

import "time"

// InvoiceStatus represents the invoice lifecycle.
type InvoiceStatus string

const (
	StatusDraft InvoiceStatus = "DRAFT"
	StatusSent  InvoiceStatus = "SENT"
	StatusPaid  InvoiceStatus = "PAID"
	StatusVoid  InvoiceStatus = "VOID"
)

// IsValid checks if the status is a known value.
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusVoid:
		return true
	default:
		return false
	}
}

// CanSend reports whether the invoice can be issued to the customer.
func (s InvoiceStatus) CanSend() bool {
	return s == StatusDraft
}

// CanPay reports whether a payment can be recorded.
func (s InvoiceStatus) CanPay() bool {
	return s == StatusSent
}

// CanVoid reports whether the invoice can be voided. Paid invoices are
// immutable.
func (s InvoiceStatus) CanVoid() bool {
	return s == StatusDraft || s == StatusSent
}

// Invoice represents a billing document, usually generated from an accepted
// quotation but creatable standalone.
type Invoice struct {
	ID          int64         `json:"id"`
	Number      string        `json:"number"`
	QuotationID *int64        `json:"quotation_id,omitempty"`
	CustomerID  int64         `json:"customer_id"`
	Currency    string        `json:"currency"`
	Subtotal    float64       `json:"subtotal"`
	TaxAmount   float64       `json:"tax_amount"`
	Total       float64       `json:"total"`
	Status      InvoiceStatus `json:"status"`
	InvoiceDate time.Time     `json:"invoice_date"`
	DueDate     time.Time     `json:"due_date"`

	SentAt     *time.Time `json:"sent_at,omitempty"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	PaymentRef *string    `json:"payment_ref,omitempty"`
	VoidReason *string    `json:"void_reason,omitempty"`

	CreatedBy int64         `json:"created_by"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Lines     []InvoiceLine `json:"lines,omitempty"`
}

// Overdue reports whether the invoice passed its due date unpaid.
func (i *Invoice) Overdue(now time.Time) bool {
	return i.Status == StatusSent && now.After(i.DueDate)
}

// InvoiceLine is a billed line item.
type InvoiceLine struct {
	ID              int64     `json:"id"`
	InvoiceID       int64     `json:"invoice_id"`
	ProductID       int64     `json:"product_id"`
	Description     *string   `json:"description,omitempty"`
	Quantity        float64   `json:"quantity"`
	UOM             string    `json:"uom"`
	UnitPrice       float64   `json:"unit_price"`
	DiscountPercent float64   `json:"discount_percent"`
	DiscountAmount  float64   `json:"discount_amount"`
	TaxPercent      float64   `json:"tax_percent"`
	TaxAmount       float64   `json:"tax_amount"`
	LineTotal       float64   `json:"line_total"`
	LineOrder       int       `json:"line_order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AgingSummary aggregates outstanding invoice amounts per bucket.
type AgingSummary struct {
	Currency    string  `json:"currency"`
	Outstanding float64 `json:"outstanding"`
	Current     float64 `json:"current"`
	Overdue30   float64 `json:"overdue_30"`
	Overdue60   float64 `json:"overdue_60"`
	Overdue90   float64 `json:"overdue_90_plus"`
	Count       int     `json:"count"`
}
