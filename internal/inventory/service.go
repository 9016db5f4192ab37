package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TransferRequest moves stock of one product between warehouses.
type TransferRequest struct {
	FromWarehouseID int64   `json:"from_warehouse_id" validate:"required,gt=0"`
	ToWarehouseID   int64   `json:"to_warehouse_id" validate:"required,gt=0"`
	ProductID       int64   `json:"product_id" validate:"required,gt=0"`
	Quantity        float64 `json:"quantity" validate:"required,gt=0"`
	Condition       string  `json:"condition,omitempty"`
}

// ErrSameWarehouse rejects transfers where source and destination match.
var ErrSameWarehouse = errors.New("source and destination warehouse are the same")

// Service exposes stock ledger reads and the warehouse transfer operation.
type Service struct {
	repo Repository
}

// NewService constructs an inventory service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Levels(ctx context.Context, warehouseID, productID *int64) ([]StockLevel, error) {
	return s.repo.Levels(ctx, warehouseID, productID)
}

func (s *Service) Movements(ctx context.Context, warehouseID, productID *int64, limit, offset int) ([]StockMovement, int, error) {
	return s.repo.Movements(ctx, warehouseID, productID, limit, offset)
}

// Receive inserts a new ledger row for incoming stock and records an IN
// movement.
func (s *Service) Receive(ctx context.Context, row StockRow, refType string, refID, userID int64) (int64, error) {
	if row.Quantity <= 0 {
		return 0, fmt.Errorf("quantity must be positive")
	}
	if ConditionRank(row.Condition) > 2 {
		return 0, fmt.Errorf("unknown condition %q", row.Condition)
	}
	var rowID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO warehouse_stock (warehouse_id, product_id, condition, quantity, unit_cost, ref_type, ref_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			RETURNING id`,
			row.WarehouseID, row.ProductID, row.Condition, row.Quantity, row.UnitCost, refType, refID).Scan(&rowID)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO stock_movements (code, stock_row_id, warehouse_id, product_id, type, quantity, ref_type, ref_id, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`,
			NewMovementCode(), rowID, row.WarehouseID, row.ProductID, MovementIn, row.Quantity, refType, refID, userID)
		return err
	})
	return rowID, err
}

// Transfer depletes stock from the source warehouse and re-creates it in the
// destination, preserving each take's condition and unit cost. The transfer
// is all or nothing.
func (s *Service) Transfer(ctx context.Context, req TransferRequest, userID int64) error {
	if req.FromWarehouseID == req.ToWarehouseID {
		return ErrSameWarehouse
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		stock, err := LockRowsForUpdate(ctx, tx, req.FromWarehouseID, req.ProductID)
		if err != nil {
			return err
		}
		if req.Condition != "" {
			filtered := stock[:0]
			for _, row := range stock {
				if row.Condition == req.Condition {
					filtered = append(filtered, row)
				}
			}
			stock = filtered
		}
		takes, err := PlanDepletion(stock, req.Quantity)
		if err != nil {
			return err
		}
		if err := ApplyTakes(ctx, tx, takes, MovementTransfer, "transfer", req.ToWarehouseID, userID); err != nil {
			return err
		}

		byRow := map[int64]StockRow{}
		for _, row := range stock {
			byRow[row.ID] = row
		}
		for _, take := range takes {
			src := byRow[take.RowID]
			var newID int64
			err := tx.QueryRow(ctx, `
				INSERT INTO warehouse_stock (warehouse_id, product_id, condition, quantity, unit_cost, ref_type, ref_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, 'transfer', $6, NOW(), NOW())
				RETURNING id`,
				req.ToWarehouseID, req.ProductID, src.Condition, take.Quantity, src.UnitCost, req.FromWarehouseID).Scan(&newID)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO stock_movements (code, stock_row_id, warehouse_id, product_id, type, quantity, ref_type, ref_id, created_by, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, 'transfer', $7, $8, NOW())`,
				NewMovementCode(), newID, req.ToWarehouseID, req.ProductID, MovementIn, take.Quantity, req.FromWarehouseID, userID)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// RefreshSnapshot rebuilds the aggregated stock view used by dashboards.
func (s *Service) RefreshSnapshot(ctx context.Context) error {
	return s.repo.RefreshSnapshot(ctx)
}
