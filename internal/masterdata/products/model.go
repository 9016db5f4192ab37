package products

import "time"

// ProductCategory distinguishes serialized machines from bulk parts.
type ProductCategory string

const (
	CategorySerialized ProductCategory = "SERIALIZED"
	CategoryBulk       ProductCategory = "BULK"
)

// ProductCondition partitions stock rows for outbound precedence.
type ProductCondition string

const (
	ConditionNew         ProductCondition = "NEW"
	ConditionUsed        ProductCondition = "USED"
	ConditionRefurbished ProductCondition = "REFURBISHED"
)

// ProductStatus tracks catalog availability.
type ProductStatus string

const (
	StatusInStock  ProductStatus = "IN_STOCK"
	StatusReserved ProductStatus = "RESERVED"
	StatusSold     ProductStatus = "SOLD"
)

// IsValid reports whether the condition is one of the known values.
func (c ProductCondition) IsValid() bool {
	switch c {
	case ConditionNew, ConditionUsed, ConditionRefurbished:
		return true
	default:
		return false
	}
}

// Product represents a catalog entry. Serialized products carry a unique
// serial number; bulk products are identified by part number plus batch.
type Product struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Brand           string           `json:"brand"`
	MachineType     string           `json:"machine_type"`
	Category        ProductCategory  `json:"category"`
	Condition       ProductCondition `json:"condition"`
	Status          ProductStatus    `json:"status"`
	SerialNumber    *string          `json:"serial_number,omitempty"`
	PartNumber      *string          `json:"part_number,omitempty"`
	BatchNumber     *string          `json:"batch_number,omitempty"`
	UOM             string           `json:"uom"`
	AdditionalSpecs map[string]any   `json:"additional_specs,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}
