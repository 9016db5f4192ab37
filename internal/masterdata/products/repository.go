package products

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	ExistsBySerial(ctx context.Context, serial string) (bool, error)
	ExistsByPartNumber(ctx context.Context, partNumber string) (bool, error)
	Create(ctx context.Context, product Product) (Product, error)
	UpdateStatus(ctx context.Context, id int64, status ProductStatus) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, name, brand, machine_type, category, condition, status, serial_number, part_number, batch_number, uom, additional_specs, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var specs []byte
	err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.MachineType, &p.Category, &p.Condition, &p.Status,
		&p.SerialNumber, &p.PartNumber, &p.BatchNumber, &p.UOM, &specs, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &p.AdditionalSpecs); err != nil {
			return Product{}, err
		}
	}
	return p, nil
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM products WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		clause := ` AND (name ILIKE $` + strconv.Itoa(argCount) +
			` OR serial_number ILIKE $` + strconv.Itoa(argCount) +
			` OR part_number ILIKE $` + strconv.Itoa(argCount) + `)`
		query += clause
		countQuery += clause
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.Category != nil {
		argCount++
		clause := ` AND category = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, *filters.Category)
	}
	if filters.Status != nil {
		argCount++
		clause := ` AND status = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, *filters.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY name ASC, id ASC LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
	args = append(args, filters.PageLimit(), filters.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var productsList []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		productsList = append(productsList, p)
	}
	return productsList, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *repository) ExistsBySerial(ctx context.Context, serial string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE serial_number = $1)`, serial).Scan(&exists)
	return exists, err
}

func (r *repository) ExistsByPartNumber(ctx context.Context, partNumber string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE part_number = $1)`, partNumber).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	specs, err := json.Marshal(product.AdditionalSpecs)
	if err != nil {
		return Product{}, err
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO products (name, brand, machine_type, category, condition, status, serial_number, part_number, batch_number, uom, additional_specs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		product.Name, product.Brand, product.MachineType, product.Category, product.Condition, product.Status,
		product.SerialNumber, product.PartNumber, product.BatchNumber, product.UOM, specs).
		Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Product{}, shared.ErrDuplicate
		}
		return Product{}, err
	}
	return product, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status ProductStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
