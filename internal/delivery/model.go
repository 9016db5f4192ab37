package delivery

import "time"

// DeliveryStatus represents the delivery note lifecycle.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "PENDING"
	StatusInTransit DeliveryStatus = "IN_TRANSIT"
	StatusDelivered DeliveryStatus = "DELIVERED"
	StatusCancelled DeliveryStatus = "CANCELLED"
)

// IsValid checks if the status is a known value.
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInTransit, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanDispatch reports whether the note can move to IN_TRANSIT.
func (s DeliveryStatus) CanDispatch() bool {
	return s == StatusPending
}

// CanExecute reports whether stock can be depleted for the note.
func (s DeliveryStatus) CanExecute() bool {
	return s == StatusPending || s == StatusInTransit
}

// CanCancel reports whether the note can still be cancelled. Executed
// deliveries stay executed; stock is never returned by a cancel.
func (s DeliveryStatus) CanCancel() bool {
	return s == StatusPending || s == StatusInTransit
}

// DeliveryNote records goods leaving warehouse stock. The invoice reference
// is optional; internal moves ship without one.
type DeliveryNote struct {
	ID         int64          `json:"id"`
	Number     string         `json:"number"`
	InvoiceID  *int64         `json:"invoice_id,omitempty"`
	CustomerID int64          `json:"customer_id"`
	BranchID   int64          `json:"branch_id"`
	Status     DeliveryStatus `json:"status"`
	Notes      *string        `json:"notes,omitempty"`

	DriverName    *string `json:"driver_name,omitempty"`
	DriverPhone   *string `json:"driver_phone,omitempty"`
	VehicleNumber *string `json:"vehicle_number,omitempty"`

	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelReason *string    `json:"cancel_reason,omitempty"`

	CreatedBy int64          `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Lines     []DeliveryLine `json:"lines,omitempty"`
}

// DeliveryLine is one product quantity to ship. Each line names its own
// source warehouse, so one note can draw from several warehouses.
type DeliveryLine struct {
	ID          int64   `json:"id"`
	DeliveryID  int64   `json:"delivery_id"`
	ProductID   int64   `json:"product_id"`
	WarehouseID int64   `json:"warehouse_id"`
	Quantity    float64 `json:"quantity"`
	UOM         string  `json:"uom"`
}
