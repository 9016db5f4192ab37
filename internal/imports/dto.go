package imports

import "time"

type CreateImportRequest struct {
	SupplierID  int64                 `json:"supplier_id" validate:"required,gt=0"`
	WarehouseID int64                 `json:"warehouse_id" validate:"required,gt=0"`
	BranchID    int64                 `json:"branch_id" validate:"required,gt=0"`
	ImportDate  time.Time             `json:"import_date" validate:"required"`
	Notes       *string               `json:"notes,omitempty"`
	Items       []CreateImportItemReq `json:"items" validate:"required,min=1,dive"`
}

type CreateImportItemReq struct {
	Name         string  `json:"name" validate:"required,min=1"`
	Brand        string  `json:"brand,omitempty"`
	Category     string  `json:"category" validate:"required,oneof=SERIALIZED BULK"`
	Condition    string  `json:"condition" validate:"required,oneof=NEW USED REFURBISHED"`
	SerialNumber *string `json:"serial_number,omitempty"`
	PartNumber   *string `json:"part_number,omitempty"`
	BatchNumber  *string `json:"batch_number,omitempty"`

	EngineModel     *string  `json:"engine_model,omitempty"`
	EnginePower     *string  `json:"engine_power,omitempty"`
	OperatingWeight *float64 `json:"operating_weight,omitempty" validate:"omitempty,gt=0"`
	Year            *int     `json:"year,omitempty" validate:"omitempty,gte=1900"`

	Quantity float64 `json:"quantity" validate:"required,gt=0"`
	UOM      string  `json:"uom" validate:"required,max=20"`
	UnitCost float64 `json:"unit_cost" validate:"gte=0"`
}

type ListImportsRequest struct {
	SupplierID  *int64        `json:"supplier_id,omitempty"`
	WarehouseID *int64        `json:"warehouse_id,omitempty"`
	Status      *ImportStatus `json:"status,omitempty"`
	Limit       int           `json:"limit" validate:"gte=0,lte=1000"`
	Offset      int           `json:"offset" validate:"gte=0"`
}
