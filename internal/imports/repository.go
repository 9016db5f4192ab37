package imports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Errors surfaced by the repository.
var (
	ErrNotFound        = errors.New("import not found")
	ErrAlreadyVerified = errors.New("import already verified")
	ErrDuplicateSerial = errors.New("duplicate serial number")
	ErrDuplicatePart   = errors.New("duplicate part number")
)

// Repository provides PostgreSQL backed persistence for import batches.
// Verify runs entirely in one transaction so a batch with any bad item
// leaves no products, no stock and a still PENDING import behind.
type Repository interface {
	Get(ctx context.Context, id int64) (*Import, error)
	List(ctx context.Context, req ListImportsRequest) ([]Import, int, error)
	Create(ctx context.Context, imp Import, items []ImportItem) (int64, error)
	GenerateNumber(ctx context.Context, date time.Time) (string, error)
	Verify(ctx context.Context, id, userID int64, at time.Time) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const importColumns = `id, number, supplier_id, warehouse_id, branch_id, status, import_date, notes,
	verified_by, verified_at, created_by, created_at, updated_at`

func scanImport(row pgx.Row) (*Import, error) {
	var imp Import
	err := row.Scan(&imp.ID, &imp.Number, &imp.SupplierID, &imp.WarehouseID, &imp.BranchID, &imp.Status,
		&imp.ImportDate, &imp.Notes, &imp.VerifiedBy, &imp.VerifiedAt, &imp.CreatedBy, &imp.CreatedAt, &imp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Import, error) {
	imp, err := scanImport(r.pool.QueryRow(ctx, `SELECT `+importColumns+` FROM imports WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, import_id, name, brand, category, condition, serial_number, part_number, batch_number,
		       engine_model, engine_power, operating_weight, year,
		       quantity, uom, unit_cost, product_id, created_at, updated_at
		FROM import_items WHERE import_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it ImportItem
		if err := rows.Scan(&it.ID, &it.ImportID, &it.Name, &it.Brand, &it.Category, &it.Condition,
			&it.SerialNumber, &it.PartNumber, &it.BatchNumber,
			&it.EngineModel, &it.EnginePower, &it.OperatingWeight, &it.Year,
			&it.Quantity, &it.UOM, &it.UnitCost,
			&it.ProductID, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		imp.Items = append(imp.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return imp, nil
}

func (r *repository) List(ctx context.Context, req ListImportsRequest) ([]Import, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	addCond := func(clause string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(clause, argPos))
		args = append(args, value)
		argPos++
	}

	if req.SupplierID != nil {
		addCond("supplier_id = $%d", *req.SupplierID)
	}
	if req.WarehouseID != nil {
		addCond("warehouse_id = $%d", *req.WarehouseID)
	}
	if req.Status != nil {
		addCond("status = $%d", *req.Status)
	}

	whereClause := ""
	for i, cond := range conditions {
		if i == 0 {
			whereClause = "WHERE " + cond
		} else {
			whereClause += " AND " + cond
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM imports %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM imports %s ORDER BY import_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		importColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var imports []Import
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, 0, err
		}
		imports = append(imports, *imp)
	}
	return imports, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, imp Import, items []ImportItem) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO imports (number, supplier_id, warehouse_id, branch_id, status, import_date, notes, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
			RETURNING id`,
			imp.Number, imp.SupplierID, imp.WarehouseID, imp.BranchID, imp.Status, imp.ImportDate, imp.Notes, imp.CreatedBy).Scan(&id)
		if err != nil {
			return err
		}
		for _, it := range items {
			_, err := tx.Exec(ctx, `
				INSERT INTO import_items (import_id, name, brand, category, condition, serial_number, part_number, batch_number,
					engine_model, engine_power, operating_weight, year,
					quantity, uom, unit_cost, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())`,
				id, it.Name, it.Brand, it.Category, it.Condition, it.SerialNumber, it.PartNumber, it.BatchNumber,
				it.EngineModel, it.EnginePower, it.OperatingWeight, it.Year,
				it.Quantity, it.UOM, it.UnitCost)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return id, err
}

func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	var seq int64
	period := date.Format("200601")
	err := r.pool.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq`, "IMP", period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("IMP-%s-%04d", date.Format("0601"), seq), nil
}

// Verify turns every item of a PENDING import into a product plus a stock
// ledger row, then marks the import VERIFIED. A duplicate serial anywhere in
// the batch rolls the whole transaction back.
func (r *repository) Verify(ctx context.Context, id, userID int64, at time.Time) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var status ImportStatus
		var warehouseID int64
		err := tx.QueryRow(ctx, `SELECT status, warehouse_id FROM imports WHERE id = $1 FOR UPDATE`, id).Scan(&status, &warehouseID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if status != StatusPending {
			return ErrAlreadyVerified
		}

		rows, err := tx.Query(ctx, `
			SELECT id, name, brand, category, condition, serial_number, part_number, batch_number,
			       engine_model, engine_power, operating_weight, year, quantity, uom, unit_cost
			FROM import_items WHERE import_id = $1 ORDER BY id`, id)
		if err != nil {
			return err
		}
		var items []ImportItem
		for rows.Next() {
			var it ImportItem
			if err := rows.Scan(&it.ID, &it.Name, &it.Brand, &it.Category, &it.Condition,
				&it.SerialNumber, &it.PartNumber, &it.BatchNumber,
				&it.EngineModel, &it.EnginePower, &it.OperatingWeight, &it.Year,
				&it.Quantity, &it.UOM, &it.UnitCost); err != nil {
				rows.Close()
				return err
			}
			items = append(items, it)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, it := range items {
			productID, err := insertProduct(ctx, tx, it)
			if err != nil {
				return err
			}

			var rowID int64
			err = tx.QueryRow(ctx, `
				INSERT INTO warehouse_stock (warehouse_id, product_id, condition, quantity, unit_cost, ref_type, ref_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, 'import', $6, NOW(), NOW())
				RETURNING id`,
				warehouseID, productID, it.Condition, it.Quantity, it.UnitCost, id).Scan(&rowID)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO stock_movements (code, stock_row_id, warehouse_id, product_id, type, quantity, ref_type, ref_id, created_by, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, 'import', $7, $8, NOW())`,
				inventory.NewMovementCode(), rowID, warehouseID, productID, inventory.MovementIn, it.Quantity, id, userID)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `UPDATE import_items SET product_id = $1, updated_at = NOW() WHERE id = $2`, productID, it.ID)
			if err != nil {
				return err
			}
		}

		_, err = tx.Exec(ctx, `
			UPDATE imports SET status = 'VERIFIED', verified_by = $1, verified_at = $2, updated_at = NOW()
			WHERE id = $3`, userID, at, id)
		return err
	})
}

// insertProduct creates the catalog entry for an item. Serialized items must
// carry an unused serial, bulk items an unused part number. The per-category
// spec fields are packed into the product's additional_specs blob.
func insertProduct(ctx context.Context, tx pgx.Tx, it ImportItem) (int64, error) {
	specs := map[string]interface{}{}
	if it.EngineModel != nil {
		specs["engine_model"] = *it.EngineModel
	}
	if it.EnginePower != nil {
		specs["engine_power"] = *it.EnginePower
	}
	if it.OperatingWeight != nil {
		specs["operating_weight"] = *it.OperatingWeight
	}
	if it.Year != nil {
		specs["year"] = *it.Year
	}

	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO products (name, brand, category, condition, status, serial_number, part_number, batch_number, uom, additional_specs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'IN_STOCK', $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id`,
		it.Name, it.Brand, it.Category, it.Condition, it.SerialNumber, it.PartNumber, it.BatchNumber, it.UOM, specs).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, duplicateErr(it)
		}
		return 0, err
	}
	return id, nil
}

func duplicateErr(it ImportItem) error {
	if it.Category == "BULK" {
		part := ""
		if it.PartNumber != nil {
			part = *it.PartNumber
		}
		return fmt.Errorf("%w: %s", ErrDuplicatePart, part)
	}
	serial := ""
	if it.SerialNumber != nil {
		serial = *it.SerialNumber
	}
	return fmt.Errorf("%w: %s", ErrDuplicateSerial, serial)
}
