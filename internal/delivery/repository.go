package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Errors surfaced by the repository.
var (
	ErrNotFound      = errors.New("delivery note not found")
	ErrInvalidStatus = errors.New("invalid delivery status transition")
)

// Repository provides PostgreSQL backed persistence for delivery notes. The
// stock-affecting execute path lives here because it must hold row locks on
// both the note and the warehouse ledger in one transaction.
type Repository interface {
	Get(ctx context.Context, id int64) (*DeliveryNote, error)
	List(ctx context.Context, req ListDeliveriesRequest) ([]DeliveryNote, int, error)
	Create(ctx context.Context, note DeliveryNote, lines []DeliveryLine) (int64, error)
	GenerateNumber(ctx context.Context, date time.Time) (string, error)
	MarkDispatched(ctx context.Context, id int64, at time.Time) error
	MarkCancelled(ctx context.Context, id int64, reason string, at time.Time) error
	Execute(ctx context.Context, id, userID int64, at time.Time) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const deliveryColumns = `id, number, invoice_id, customer_id, branch_id, status, notes,
	driver_name, driver_phone, vehicle_number,
	dispatched_at, delivered_at, cancelled_at, cancel_reason, created_by, created_at, updated_at`

func scanDelivery(row pgx.Row) (*DeliveryNote, error) {
	var d DeliveryNote
	err := row.Scan(&d.ID, &d.Number, &d.InvoiceID, &d.CustomerID, &d.BranchID, &d.Status, &d.Notes,
		&d.DriverName, &d.DriverPhone, &d.VehicleNumber,
		&d.DispatchedAt, &d.DeliveredAt, &d.CancelledAt, &d.CancelReason, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*DeliveryNote, error) {
	d, err := scanDelivery(r.pool.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM delivery_notes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	lines, err := r.lines(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Lines = lines
	return d, nil
}

func (r *repository) lines(ctx context.Context, deliveryID int64) ([]DeliveryLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, delivery_id, product_id, warehouse_id, quantity, uom
		FROM delivery_lines WHERE delivery_id = $1 ORDER BY id`, deliveryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []DeliveryLine
	for rows.Next() {
		var l DeliveryLine
		if err := rows.Scan(&l.ID, &l.DeliveryID, &l.ProductID, &l.WarehouseID, &l.Quantity, &l.UOM); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListDeliveriesRequest) ([]DeliveryNote, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	addCond := func(clause string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(clause, argPos))
		args = append(args, value)
		argPos++
	}

	if req.InvoiceID != nil {
		addCond("invoice_id = $%d", *req.InvoiceID)
	}
	if req.BranchID != nil {
		addCond("branch_id = $%d", *req.BranchID)
	}
	if req.WarehouseID != nil {
		addCond("EXISTS (SELECT 1 FROM delivery_lines dl WHERE dl.delivery_id = delivery_notes.id AND dl.warehouse_id = $%d)", *req.WarehouseID)
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
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM delivery_notes %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM delivery_notes %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		deliveryColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notes []DeliveryNote
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, 0, err
		}
		notes = append(notes, *d)
	}
	return notes, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, note DeliveryNote, lines []DeliveryLine) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO delivery_notes (number, invoice_id, customer_id, branch_id, status, notes, driver_name, driver_phone, vehicle_number, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
			RETURNING id`,
			note.Number, note.InvoiceID, note.CustomerID, note.BranchID, note.Status, note.Notes,
			note.DriverName, note.DriverPhone, note.VehicleNumber, note.CreatedBy).Scan(&id)
		if err != nil {
			return err
		}
		for _, line := range lines {
			_, err := tx.Exec(ctx, `
				INSERT INTO delivery_lines (delivery_id, product_id, warehouse_id, quantity, uom)
				VALUES ($1, $2, $3, $4, $5)`, id, line.ProductID, line.WarehouseID, line.Quantity, line.UOM)
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
		RETURNING seq`, "DN", period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("DN-%s-%04d", date.Format("0601"), seq), nil
}

func (r *repository) MarkDispatched(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx, `UPDATE delivery_notes SET status = 'IN_TRANSIT', dispatched_at = $1, updated_at = NOW() WHERE id = $2`, at, id)
}

func (r *repository) MarkCancelled(ctx context.Context, id int64, reason string, at time.Time) error {
	return r.exec(ctx, `UPDATE delivery_notes SET status = 'CANCELLED', cancel_reason = $1, cancelled_at = $2, updated_at = NOW() WHERE id = $3`, reason, at, id)
}

func (r *repository) exec(ctx context.Context, query string, args ...interface{}) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Execute depletes stock for every line of the note and marks it DELIVERED
// inside one transaction. The note row is locked first so two executes of
// the same note serialize; the status check under that lock makes the
// second one fail instead of double-shipping.
func (r *repository) Execute(ctx context.Context, id, userID int64, at time.Time) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var status DeliveryStatus
		err := tx.QueryRow(ctx, `
			SELECT status FROM delivery_notes WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if !status.CanExecute() {
			return fmt.Errorf("%w: delivery is %s", ErrInvalidStatus, status)
		}

		rows, err := tx.Query(ctx, `SELECT product_id, warehouse_id, quantity FROM delivery_lines WHERE delivery_id = $1 ORDER BY id`, id)
		if err != nil {
			return err
		}
		type lineItem struct {
			productID   int64
			warehouseID int64
			quantity    float64
		}
		var items []lineItem
		for rows.Next() {
			var it lineItem
			if err := rows.Scan(&it.productID, &it.warehouseID, &it.quantity); err != nil {
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
			if _, err := inventory.Deplete(ctx, tx, it.warehouseID, it.productID, it.quantity, "delivery", id, userID); err != nil {
				return err
			}
		}

		_, err = tx.Exec(ctx, `
			UPDATE delivery_notes SET status = 'DELIVERED', delivered_at = $1, updated_at = NOW() WHERE id = $2`, at, id)
		return err
	})
}
