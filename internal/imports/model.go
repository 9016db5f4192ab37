package imports

import "time"

// ImportStatus represents the verification state of an import batch.
type ImportStatus string

const (
	StatusPending  ImportStatus = "PENDING"
	StatusVerified ImportStatus = "VERIFIED"
)

// IsValid checks if the status is a known value.
func (s ImportStatus) IsValid() bool {
	return s == StatusPending || s == StatusVerified
}

// Import is a batch of incoming goods from a supplier. Verification turns
// items into catalog products and stock ledger rows, atomically for the
// whole batch.
type Import struct {
	ID          int64        `json:"id"`
	Number      string       `json:"number"`
	SupplierID  int64        `json:"supplier_id"`
	WarehouseID int64        `json:"warehouse_id"`
	BranchID    int64        `json:"branch_id"`
	Status      ImportStatus `json:"status"`
	ImportDate  time.Time    `json:"import_date"`
	Notes       *string      `json:"notes,omitempty"`

	VerifiedBy *int64     `json:"verified_by,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	CreatedBy int64        `json:"created_by"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Items     []ImportItem `json:"items,omitempty"`
}

// ImportItem describes one line declared on an import. Serialized items
// carry one serial per unit; bulk items carry a part number and quantity.
type ImportItem struct {
	ID        int64  `json:"id"`
	ImportID  int64  `json:"import_id"`
	Name      string `json:"name"`
	Brand     string `json:"brand"`
	Category  string `json:"category"`
	Condition string `json:"condition"`

	SerialNumber *string `json:"serial_number,omitempty"`
	PartNumber   *string `json:"part_number,omitempty"`
	BatchNumber  *string `json:"batch_number,omitempty"`

	EngineModel     *string  `json:"engine_model,omitempty"`
	EnginePower     *string  `json:"engine_power,omitempty"`
	OperatingWeight *float64 `json:"operating_weight,omitempty"`
	Year            *int     `json:"year,omitempty"`

	Quantity float64 `json:"quantity"`
	UOM      string  `json:"uom"`
	UnitCost float64 `json:"unit_cost"`

	ProductID *int64    `json:"product_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
