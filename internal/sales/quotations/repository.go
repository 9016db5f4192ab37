package quotations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// ErrNotFound indicates a missing quotation.
var ErrNotFound = errors.New("quotation not found")

// Repository provides PostgreSQL backed persistence for quotations.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Quotation, error)
	List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error)
	Create(ctx context.Context, quotation Quotation) (int64, error)
	InsertLine(ctx context.Context, line QuotationLine) (int64, error)
	DeleteLines(ctx context.Context, quotationID int64) error
	UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error
	UpdateStatus(ctx context.Context, id int64, status QuotationStatus, userID int64) error
	RecordResponse(ctx context.Context, id int64, status QuotationStatus, resp CustomerResponse) error
	GenerateNumber(ctx context.Context, date time.Time) (string, error)
}

// TxRepository exposes the operations used inside the mark-invoiced
// transaction. Both writes share one database transaction so an invoice row
// can never exist without the quotation back-reference.
type TxRepository interface {
	CountInvoicesInMonth(ctx context.Context, year int, month time.Month) (int, error)
	CreateInvoice(ctx context.Context, draft InvoiceDraft, lines []QuotationLine) (int64, error)
	StampInvoiced(ctx context.Context, quotationID, invoiceID int64, at time.Time) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const quotationColumns = `id, number, customer_id, branch_id, quote_date, valid_until, status, currency,
	subtotal, tax_amount, total, notes, created_by, approved_by, approved_at,
	acceptance_info, rejection_reason, revision_reason, response_notes, response_date,
	invoice_id, invoiced_at, created_at, updated_at`

func scanQuotation(row pgx.Row) (*Quotation, error) {
	var q Quotation
	err := row.Scan(&q.ID, &q.Number, &q.CustomerID, &q.BranchID, &q.QuoteDate, &q.ValidUntil, &q.Status, &q.Currency,
		&q.Subtotal, &q.TaxAmount, &q.Total, &q.Notes, &q.CreatedBy, &q.ApprovedBy, &q.ApprovedAt,
		&q.AcceptanceInfo, &q.RejectionReason, &q.RevisionReason, &q.ResponseNotes, &q.ResponseDate,
		&q.InvoiceID, &q.InvoicedAt, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, err := scanQuotation(r.pool.QueryRow(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, quotation_id, product_id, description, quantity, uom, unit_price,
		       discount_percent, discount_amount, tax_percent, tax_amount, line_total, line_order,
		       created_at, updated_at
		FROM quotation_lines WHERE quotation_id = $1 ORDER BY line_order, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l QuotationLine
		if err := rows.Scan(&l.ID, &l.QuotationID, &l.ProductID, &l.Description, &l.Quantity, &l.UOM, &l.UnitPrice,
			&l.DiscountPercent, &l.DiscountAmount, &l.TaxPercent, &l.TaxAmount, &l.LineTotal, &l.LineOrder,
			&l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		q.Lines = append(q.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return q, nil
}

func (r *repository) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
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
	if req.BranchID != nil {
		addCond("branch_id = $%d", *req.BranchID)
	}
	if req.Status != nil {
		addCond("status = $%d", *req.Status)
	}
	if req.DateFrom != nil {
		addCond("quote_date >= $%d", *req.DateFrom)
	}
	if req.DateTo != nil {
		addCond("quote_date <= $%d", *req.DateTo)
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
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM quotations %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM quotations %s ORDER BY quote_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		quotationColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var quotations []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, 0, err
		}
		quotations = append(quotations, *q)
	}
	return quotations, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO quotations (number, customer_id, branch_id, quote_date, valid_until, status, currency,
			subtotal, tax_amount, total, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING id`,
		q.Number, q.CustomerID, q.BranchID, q.QuoteDate, q.ValidUntil, q.Status, q.Currency,
		q.Subtotal, q.TaxAmount, q.Total, q.Notes, q.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) InsertLine(ctx context.Context, line QuotationLine) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO quotation_lines (quotation_id, product_id, description, quantity, uom, unit_price,
			discount_percent, discount_amount, tax_percent, tax_amount, line_total, line_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING id`,
		line.QuotationID, line.ProductID, line.Description, line.Quantity, line.UOM, line.UnitPrice,
		line.DiscountPercent, line.DiscountAmount, line.TaxPercent, line.TaxAmount, line.LineTotal, line.LineOrder).Scan(&id)
	return id, err
}

func (r *repository) DeleteLines(ctx context.Context, quotationID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM quotation_lines WHERE quotation_id = $1`, quotationID)
	return err
}

func (r *repository) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE quotations SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"quote_date", "valid_until", "notes", "subtotal", "tax_amount", "total"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status QuotationStatus, userID int64) error {
	var tag pgconn.CommandTag
	var err error
	if status == StatusApproved {
		tag, err = r.pool.Exec(ctx,
			`UPDATE quotations SET status = $1, approved_by = $2, approved_at = NOW(), updated_at = NOW() WHERE id = $3`,
			status, userID, id)
	} else {
		tag, err = r.pool.Exec(ctx,
			`UPDATE quotations SET status = $1, updated_at = NOW() WHERE id = $2`,
			status, id)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) RecordResponse(ctx context.Context, id int64, status QuotationStatus, resp CustomerResponse) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE quotations
		SET status = $1,
		    acceptance_info = COALESCE($2, acceptance_info),
		    rejection_reason = COALESCE($3, rejection_reason),
		    revision_reason = COALESCE($4, revision_reason),
		    response_notes = COALESCE($5, response_notes),
		    response_date = $6,
		    updated_at = NOW()
		WHERE id = $7`,
		status, resp.AcceptanceInfo, resp.RejectionReason, resp.RevisionReason, resp.Notes, resp.ResponseDate, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	var seq int64
	period := date.Format("200601")
	err := r.pool.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq`, "QT", period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("QT-%s-%04d", date.Format("0601"), seq), nil
}

// ---------------------------------------------------------------------------
// Transactional repository

func (t *txRepo) CountInvoicesInMonth(ctx context.Context, year int, month time.Month) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM invoices
		WHERE EXTRACT(YEAR FROM invoice_date) = $1 AND EXTRACT(MONTH FROM invoice_date) = $2`,
		year, int(month)).Scan(&count)
	return count, err
}

func (t *txRepo) CreateInvoice(ctx context.Context, draft InvoiceDraft, lines []QuotationLine) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO invoices (number, quotation_id, customer_id, currency, subtotal, tax_amount, total,
			status, invoice_date, due_date, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'DRAFT', $8, $9, $10, NOW(), NOW())
		RETURNING id`,
		draft.Number, draft.QuotationID, draft.CustomerID, draft.Currency, draft.Subtotal, draft.TaxAmount, draft.Total,
		draft.InvoiceDate, draft.DueDate, draft.CreatedBy).Scan(&id)
	if err != nil {
		return 0, err
	}
	for _, line := range lines {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO invoice_lines (invoice_id, product_id, description, quantity, uom, unit_price,
				discount_percent, discount_amount, tax_percent, tax_amount, line_total, line_order, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())`,
			id, line.ProductID, line.Description, line.Quantity, line.UOM, line.UnitPrice,
			line.DiscountPercent, line.DiscountAmount, line.TaxPercent, line.TaxAmount, line.LineTotal, line.LineOrder)
		if err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (t *txRepo) StampInvoiced(ctx context.Context, quotationID, invoiceID int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE quotations SET invoice_id = $1, invoiced_at = $2, updated_at = NOW()
		WHERE id = $3 AND invoiced_at IS NULL`, invoiceID, at, quotationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
