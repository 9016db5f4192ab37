package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// ErrNotFound indicates a missing invoice.
var ErrNotFound = errors.New("invoice not found")

// Repository provides PostgreSQL backed persistence for invoices.
type Repository interface {
	Get(ctx context.Context, id int64) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	Create(ctx context.Context, inv Invoice, lines []InvoiceLine) (int64, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	MarkPaid(ctx context.Context, id int64, ref string, at time.Time) error
	MarkVoid(ctx context.Context, id int64, reason string) error
	Aging(ctx context.Context, now time.Time) ([]AgingSummary, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const invoiceColumns = `id, number, quotation_id, customer_id, currency, subtotal, tax_amount, total,
	status, invoice_date, due_date, sent_at, paid_at, payment_ref, void_reason,
	created_by, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.QuotationID, &inv.CustomerID, &inv.Currency,
		&inv.Subtotal, &inv.TaxAmount, &inv.Total, &inv.Status, &inv.InvoiceDate, &inv.DueDate,
		&inv.SentAt, &inv.PaidAt, &inv.PaymentRef, &inv.VoidReason,
		&inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, product_id, description, quantity, uom, unit_price,
		       discount_percent, discount_amount, tax_percent, tax_amount, line_total, line_order,
		       created_at, updated_at
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_order, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ProductID, &l.Description, &l.Quantity, &l.UOM, &l.UnitPrice,
			&l.DiscountPercent, &l.DiscountAmount, &l.TaxPercent, &l.TaxAmount, &l.LineTotal, &l.LineOrder,
			&l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		inv.Lines = append(inv.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	addCond := func(clause string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(clause, argPos))
		args = append(args, value)
		argPos++
	}

	if req.CustomerID != nil {
		addCond("customer_id = $%d", *req.CustomerID)
	}
	if req.Status != nil {
		addCond("status = $%d", *req.Status)
	}
	if req.DateFrom != nil {
		addCond("invoice_date >= $%d", *req.DateFrom)
	}
	if req.DateTo != nil {
		addCond("invoice_date <= $%d", *req.DateTo)
	}
	if req.Overdue {
		conditions = append(conditions, "status = 'SENT' AND due_date < NOW()")
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
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM invoices %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM invoices %s ORDER BY invoice_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, total, rows.Err()
}

// Create inserts a standalone invoice with its lines in one transaction. An
// empty number gets the monthly sequence number, counted inside the same
// transaction as the insert.
func (r *repository) Create(ctx context.Context, inv Invoice, lines []InvoiceLine) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		number, err := r.number(ctx, tx, inv)
		if err != nil {
			return err
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO invoices (number, quotation_id, customer_id, currency, subtotal, tax_amount, total,
				status, invoice_date, due_date, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
			RETURNING id`,
			number, inv.QuotationID, inv.CustomerID, inv.Currency, inv.Subtotal, inv.TaxAmount, inv.Total,
			inv.Status, inv.InvoiceDate, inv.DueDate, inv.CreatedBy).Scan(&id)
		if err != nil {
			return err
		}
		for _, l := range lines {
			_, err := tx.Exec(ctx, `
				INSERT INTO invoice_lines (invoice_id, product_id, description, quantity, uom, unit_price,
					discount_percent, discount_amount, tax_percent, tax_amount, line_total, line_order, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())`,
				id, l.ProductID, l.Description, l.Quantity, l.UOM, l.UnitPrice,
				l.DiscountPercent, l.DiscountAmount, l.TaxPercent, l.TaxAmount, l.LineTotal, l.LineOrder)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return id, err
}

func (r *repository) number(ctx context.Context, tx pgx.Tx, inv Invoice) (string, error) {
	if inv.Number != "" {
		return inv.Number, nil
	}
	var count int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM invoices
		WHERE EXTRACT(YEAR FROM invoice_date) = $1 AND EXTRACT(MONTH FROM invoice_date) = $2`,
		inv.InvoiceDate.Year(), int(inv.InvoiceDate.Month())).Scan(&count)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV/%d/%d/%03d", inv.InvoiceDate.Year(), int(inv.InvoiceDate.Month()), count+1), nil
}

func (r *repository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx, `UPDATE invoices SET status = 'SENT', sent_at = $1, updated_at = NOW() WHERE id = $2`, at, id)
}

func (r *repository) MarkPaid(ctx context.Context, id int64, ref string, at time.Time) error {
	return r.exec(ctx, `UPDATE invoices SET status = 'PAID', payment_ref = $1, paid_at = $2, updated_at = NOW() WHERE id = $3`, ref, at, id)
}

func (r *repository) MarkVoid(ctx context.Context, id int64, reason string) error {
	return r.exec(ctx, `UPDATE invoices SET status = 'VOID', void_reason = $1, updated_at = NOW() WHERE id = $2`, reason, id)
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

func (r *repository) Aging(ctx context.Context, now time.Time) ([]AgingSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT currency,
		       COALESCE(SUM(total), 0),
		       COALESCE(SUM(total) FILTER (WHERE due_date >= $1), 0),
		       COALESCE(SUM(total) FILTER (WHERE due_date < $1 AND due_date >= $1 - INTERVAL '30 days'), 0),
		       COALESCE(SUM(total) FILTER (WHERE due_date < $1 - INTERVAL '30 days' AND due_date >= $1 - INTERVAL '60 days'), 0),
		       COALESCE(SUM(total) FILTER (WHERE due_date < $1 - INTERVAL '60 days'), 0),
		       COUNT(*)
		FROM invoices
		WHERE status = 'SENT'
		GROUP BY currency
		ORDER BY currency`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []AgingSummary
	for rows.Next() {
		var s AgingSummary
		if err := rows.Scan(&s.Currency, &s.Outstanding, &s.Current, &s.Overdue30, &s.Overdue60, &s.Overdue90, &s.Count); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
