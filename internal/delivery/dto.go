package delivery

type CreateDeliveryRequest struct {
	InvoiceID     *int64                  `json:"invoice_id,omitempty" validate:"omitempty,gt=0"`
	CustomerID    int64                   `json:"customer_id" validate:"required,gt=0"`
	BranchID      int64                   `json:"branch_id" validate:"required,gt=0"`
	DriverName    *string                 `json:"driver_name,omitempty" validate:"omitempty,max=255"`
	DriverPhone   *string                 `json:"driver_phone,omitempty" validate:"omitempty,max=50"`
	VehicleNumber *string                 `json:"vehicle_number,omitempty" validate:"omitempty,max=50"`
	Notes         *string                 `json:"notes,omitempty"`
	Lines         []CreateDeliveryLineReq `json:"lines" validate:"required,min=1,dive"`
}

type CreateDeliveryLineReq struct {
	ProductID   int64   `json:"product_id" validate:"required,gt=0"`
	WarehouseID int64   `json:"warehouse_id" validate:"required,gt=0"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	UOM         string  `json:"uom" validate:"required,max=20"`
}

type ListDeliveriesRequest struct {
	InvoiceID   *int64          `json:"invoice_id,omitempty"`
	BranchID    *int64          `json:"branch_id,omitempty"`
	WarehouseID *int64          `json:"warehouse_id,omitempty"`
	Status      *DeliveryStatus `json:"status,omitempty"`
	Limit       int             `json:"limit" validate:"gte=0,lte=1000"`
	Offset      int             `json:"offset" validate:"gte=0"`
}

// CancelRequest voids a delivery note before it is executed.
type CancelRequest struct {
	Reason string `json:"reason" validate:"required,min=1"`
}
