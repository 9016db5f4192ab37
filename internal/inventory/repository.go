package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// ErrNotFound indicates a missing ledger row.
var ErrNotFound = errors.New("stock row not found")

// Repository provides PostgreSQL backed persistence for the stock ledger.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
	Levels(ctx context.Context, warehouseID, productID *int64) ([]StockLevel, error)
	Movements(ctx context.Context, warehouseID, productID *int64, limit, offset int) ([]StockMovement, int, error)
	InsertRow(ctx context.Context, row StockRow) (int64, error)
	RefreshSnapshot(ctx context.Context) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, tx)
	})
}

func (r *repository) Levels(ctx context.Context, warehouseID, productID *int64) ([]StockLevel, error) {
	query := `
		SELECT warehouse_id, product_id, condition, COALESCE(SUM(quantity), 0)
		FROM warehouse_stock
		WHERE ($1::bigint IS NULL OR warehouse_id = $1)
		  AND ($2::bigint IS NULL OR product_id = $2)
		GROUP BY warehouse_id, product_id, condition
		HAVING SUM(quantity) > 0
		ORDER BY warehouse_id, product_id, condition`
	rows, err := r.pool.Query(ctx, query, warehouseID, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var l StockLevel
		if err := rows.Scan(&l.WarehouseID, &l.ProductID, &l.Condition, &l.Quantity); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

func (r *repository) Movements(ctx context.Context, warehouseID, productID *int64, limit, offset int) ([]StockMovement, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM stock_movements
		WHERE ($1::bigint IS NULL OR warehouse_id = $1)
		  AND ($2::bigint IS NULL OR product_id = $2)`,
		warehouseID, productID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, code, stock_row_id, warehouse_id, product_id, type, quantity, ref_type, ref_id, created_by, created_at
		FROM stock_movements
		WHERE ($1::bigint IS NULL OR warehouse_id = $1)
		  AND ($2::bigint IS NULL OR product_id = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`, warehouseID, productID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.Code, &m.StockRowID, &m.WarehouseID, &m.ProductID, &m.Type, &m.Quantity,
			&m.RefType, &m.RefID, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		movements = append(movements, m)
	}
	return movements, total, rows.Err()
}

func (r *repository) InsertRow(ctx context.Context, row StockRow) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO warehouse_stock (warehouse_id, product_id, condition, quantity, unit_cost, ref_type, ref_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id`,
		row.WarehouseID, row.ProductID, row.Condition, row.Quantity, row.UnitCost, row.RefType, row.RefID).Scan(&id)
	return id, err
}

// RefreshSnapshot rebuilds the aggregated stock_snapshot materialized view.
func (r *repository) RefreshSnapshot(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `REFRESH MATERIALIZED VIEW CONCURRENTLY stock_snapshot`)
	return err
}

// LockRowsForUpdate selects every ledger row for a product in a warehouse
// with a row lock, so concurrent depletions serialize on the same stock.
func LockRowsForUpdate(ctx context.Context, tx pgx.Tx, warehouseID, productID int64) ([]StockRow, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, warehouse_id, product_id, condition, quantity, unit_cost, ref_type, ref_id, created_at, updated_at
		FROM warehouse_stock
		WHERE warehouse_id = $1 AND product_id = $2 AND quantity > 0
		ORDER BY created_at, id
		FOR UPDATE`, warehouseID, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stock []StockRow
	for rows.Next() {
		var s StockRow
		if err := rows.Scan(&s.ID, &s.WarehouseID, &s.ProductID, &s.Condition, &s.Quantity, &s.UnitCost,
			&s.RefType, &s.RefID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		stock = append(stock, s)
	}
	return stock, rows.Err()
}

// ApplyTakes deducts each planned take from its ledger row and records an
// OUT movement. Meant to run inside the caller's transaction right after
// LockRowsForUpdate.
func ApplyTakes(ctx context.Context, tx pgx.Tx, takes []Take, movementType MovementType, refType string, refID, userID int64) error {
	for _, take := range takes {
		tag, err := tx.Exec(ctx, `
			UPDATE warehouse_stock
			SET quantity = quantity - $1, updated_at = NOW()
			WHERE id = $2 AND quantity >= $1`, take.Quantity, take.RowID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrInsufficientStock
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO stock_movements (code, stock_row_id, warehouse_id, product_id, type, quantity, ref_type, ref_id, created_by, created_at)
			SELECT $7, id, warehouse_id, product_id, $2, $3, $4, $5, $6, NOW()
			FROM warehouse_stock WHERE id = $1`,
			take.RowID, movementType, take.Quantity, refType, refID, userID, NewMovementCode())
		if err != nil {
			return err
		}
	}
	return nil
}

// Deplete locks, plans and applies a depletion for one product in one
// warehouse inside the given transaction. The whole quantity is taken or the
// transaction fails with ErrInsufficientStock.
func Deplete(ctx context.Context, tx pgx.Tx, warehouseID, productID int64, quantity float64, refType string, refID, userID int64) ([]Take, error) {
	stock, err := LockRowsForUpdate(ctx, tx, warehouseID, productID)
	if err != nil {
		return nil, err
	}
	takes, err := PlanDepletion(stock, quantity)
	if err != nil {
		return nil, err
	}
	if err := ApplyTakes(ctx, tx, takes, MovementOut, refType, refID, userID); err != nil {
		return nil, err
	}
	return takes, nil
}
