package quotations

import "time"

// QuotationStatus represents the quotation lifecycle.
type QuotationStatus string

const (
	StatusDraft     QuotationStatus = "DRAFT"
	StatusSubmitted QuotationStatus = "SUBMITTED"
	StatusApproved  QuotationStatus = "APPROVED"
	StatusSent      QuotationStatus = "SENT"
	StatusAccepted  QuotationStatus = "ACCEPTED"
	StatusRejected  QuotationStatus = "REJECTED"
)

// IsValid checks if the status is a known value.
func (s QuotationStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusSent, StatusAccepted, StatusRejected:
		return true
	default:
		return false
	}
}

// CanEdit checks if the quotation can still be edited.
func (s QuotationStatus) CanEdit() bool {
	return s == StatusDraft
}

// Quotation represents a priced offer to a customer. Being invoiced is not a
// status value: it is tracked through InvoiceID/InvoicedAt, which are either
// both nil or both set, and set exactly once.
type Quotation struct {
	ID         int64           `json:"id"`
	Number     string          `json:"number"`
	CustomerID int64           `json:"customer_id"`
	BranchID   int64           `json:"branch_id"`
	QuoteDate  time.Time       `json:"quote_date"`
	ValidUntil time.Time       `json:"valid_until"`
	Status     QuotationStatus `json:"status"`
	Currency   string          `json:"currency"`
	Subtotal   float64         `json:"subtotal"`
	TaxAmount  float64         `json:"tax_amount"`
	Total      float64         `json:"total"`
	Notes      *string         `json:"notes,omitempty"`

	CreatedBy  int64      `json:"created_by"`
	ApprovedBy *int64     `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`

	// Customer response fields, written by accept/reject/revise.
	AcceptanceInfo  *string    `json:"acceptance_info,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	RevisionReason  *string    `json:"revision_reason,omitempty"`
	ResponseNotes   *string    `json:"response_notes,omitempty"`
	ResponseDate    *time.Time `json:"response_date,omitempty"`

	InvoiceID  *int64     `json:"invoice_id,omitempty"`
	InvoicedAt *time.Time `json:"invoiced_at,omitempty"`

	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Lines     []QuotationLine `json:"lines,omitempty"`
}

// Invoiced reports whether an invoice has been generated for the quotation.
func (q *Quotation) Invoiced() bool {
	return q.InvoicedAt != nil
}

// QuotationLine is a priced line item.
type QuotationLine struct {
	ID              int64     `json:"id"`
	QuotationID     int64     `json:"quotation_id"`
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

// CustomerResponse captures the fields written when a customer answers a sent
// quotation.
type CustomerResponse struct {
	AcceptanceInfo  *string
	RejectionReason *string
	RevisionReason  *string
	Notes           *string
	ResponseDate    time.Time
}

// InvoiceDraft holds the values the mark-invoiced transaction writes into the
// invoices table, mirrored from the accepted quotation.
type InvoiceDraft struct {
	Number      string
	QuotationID int64
	CustomerID  int64
	Currency    string
	Subtotal    float64
	TaxAmount   float64
	Total       float64
	InvoiceDate time.Time
	DueDate     time.Time
	CreatedBy   int64
}
