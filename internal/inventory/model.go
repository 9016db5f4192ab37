package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Condition precedence used when depleting stock. New stock is consumed
// before used, used before refurbished, and within a condition the oldest
// ledger row goes first.
const (
	ConditionNew         = "NEW"
	ConditionUsed        = "USED"
	ConditionRefurbished = "REFURBISHED"
)

// ConditionRank returns the depletion order of a condition. Unknown
// conditions sort last.
func ConditionRank(condition string) int {
	switch condition {
	case ConditionNew:
		return 0
	case ConditionUsed:
		return 1
	case ConditionRefurbished:
		return 2
	default:
		return 3
	}
}

// StockRow is one ledger entry in warehouse_stock. Quantity only ever
// decreases after insert; a fully depleted row keeps its zero balance for
// audit.
type StockRow struct {
	ID          int64     `json:"id"`
	WarehouseID int64     `json:"warehouse_id"`
	ProductID   int64     `json:"product_id"`
	Condition   string    `json:"condition"`
	Quantity    float64   `json:"quantity"`
	UnitCost    float64   `json:"unit_cost"`
	RefType     *string   `json:"ref_type,omitempty"`
	RefID       *int64    `json:"ref_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MovementType classifies a stock movement.
type MovementType string

const (
	MovementIn       MovementType = "IN"
	MovementOut      MovementType = "OUT"
	MovementTransfer MovementType = "TRANSFER"
)

// NewMovementCode mints the external reference code for a stock movement.
func NewMovementCode() string {
	return "MV-" + uuid.NewString()
}

// StockMovement records a quantity change against a ledger row. Code is a
// stable external reference independent of the database id.
type StockMovement struct {
	ID          int64        `json:"id"`
	Code        string       `json:"code"`
	StockRowID  int64        `json:"stock_row_id"`
	WarehouseID int64        `json:"warehouse_id"`
	ProductID   int64        `json:"product_id"`
	Type        MovementType `json:"type"`
	Quantity    float64      `json:"quantity"`
	RefType     string       `json:"ref_type"`
	RefID       int64        `json:"ref_id"`
	CreatedBy   int64        `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
}

// StockLevel is an aggregated view per warehouse, product and condition.
type StockLevel struct {
	WarehouseID int64   `json:"warehouse_id"`
	ProductID   int64   `json:"product_id"`
	Condition   string  `json:"condition"`
	Quantity    float64 `json:"quantity"`
}

// Take is one planned deduction from a ledger row.
type Take struct {
	RowID    int64
	Quantity float64
}
