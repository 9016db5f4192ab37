package quotations

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	quotations map[int64]*Quotation
	invoices   map[int64]InvoiceDraft
	nextID     int64
	nextInvID  int64
	seq        map[string]int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		quotations: map[int64]*Quotation{},
		invoices:   map[int64]InvoiceDraft{},
		nextID:     1,
		nextInvID:  1,
		seq:        map[string]int64{},
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Quotation, error) {
	q, ok := m.quotations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (m *memoryRepo) List(_ context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	var out []Quotation
	for _, q := range m.quotations {
		if req.Status != nil && q.Status != *req.Status {
			continue
		}
		out = append(out, *q)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(_ context.Context, q Quotation) (int64, error) {
	id := m.nextID
	m.nextID++
	q.ID = id
	m.quotations[id] = &q
	return id, nil
}

func (m *memoryRepo) InsertLine(_ context.Context, line QuotationLine) (int64, error) {
	q, ok := m.quotations[line.QuotationID]
	if !ok {
		return 0, ErrNotFound
	}
	line.ID = int64(len(q.Lines) + 1)
	q.Lines = append(q.Lines, line)
	return line.ID, nil
}

func (m *memoryRepo) DeleteLines(_ context.Context, quotationID int64) error {
	q, ok := m.quotations[quotationID]
	if !ok {
		return ErrNotFound
	}
	q.Lines = nil
	return nil
}

func (m *memoryRepo) UpdateHeader(_ context.Context, id int64, updates map[string]interface{}) error {
	q, ok := m.quotations[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["notes"]; ok {
		notes := v.(string)
		q.Notes = &notes
	}
	if v, ok := updates["subtotal"]; ok {
		q.Subtotal = v.(float64)
	}
	if v, ok := updates["tax_amount"]; ok {
		q.TaxAmount = v.(float64)
	}
	if v, ok := updates["total"]; ok {
		q.Total = v.(float64)
	}
	return nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, id int64, status QuotationStatus, userID int64) error {
	q, ok := m.quotations[id]
	if !ok {
		return ErrNotFound
	}
	q.Status = status
	if status == StatusApproved {
		now := time.Now()
		q.ApprovedBy = &userID
		q.ApprovedAt = &now
	}
	return nil
}

func (m *memoryRepo) RecordResponse(_ context.Context, id int64, status QuotationStatus, resp CustomerResponse) error {
	q, ok := m.quotations[id]
	if !ok {
		return ErrNotFound
	}
	q.Status = status
	if resp.AcceptanceInfo != nil {
		q.AcceptanceInfo = resp.AcceptanceInfo
	}
	if resp.RejectionReason != nil {
		q.RejectionReason = resp.RejectionReason
	}
	if resp.RevisionReason != nil {
		q.RevisionReason = resp.RevisionReason
	}
	q.ResponseNotes = resp.Notes
	date := resp.ResponseDate
	q.ResponseDate = &date
	return nil
}

func (m *memoryRepo) GenerateNumber(_ context.Context, date time.Time) (string, error) {
	period := date.Format("0601")
	m.seq[period]++
	return fmt.Sprintf("QT-%s-%04d", period, m.seq[period]), nil
}

func (m *memoryRepo) CountInvoicesInMonth(_ context.Context, year int, month time.Month) (int, error) {
	count := 0
	for _, inv := range m.invoices {
		if inv.InvoiceDate.Year() == year && inv.InvoiceDate.Month() == month {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) CreateInvoice(_ context.Context, draft InvoiceDraft, _ []QuotationLine) (int64, error) {
	id := m.nextInvID
	m.nextInvID++
	m.invoices[id] = draft
	return id, nil
}

func (m *memoryRepo) StampInvoiced(_ context.Context, quotationID, invoiceID int64, at time.Time) error {
	q, ok := m.quotations[quotationID]
	if !ok {
		return ErrNotFound
	}
	if q.InvoicedAt != nil {
		return ErrNotFound
	}
	q.InvoiceID = &invoiceID
	q.InvoicedAt = &at
	return nil
}

type memoryIdemStore struct {
	keys map[string]string
}

func newMemoryIdemStore() *memoryIdemStore {
	return &memoryIdemStore{keys: map[string]string{}}
}

func (m *memoryIdemStore) CheckAndInsert(_ context.Context, key, module string) error {
	if _, ok := m.keys[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = module
	return nil
}

func (m *memoryIdemStore) Delete(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

func newTestService(repo *memoryRepo) *Service {
	svc := NewService(repo, 14, nil)
	svc.now = func() time.Time { return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC) }
	return svc
}

func createRequest() CreateQuotationRequest {
	return CreateQuotationRequest{
		CustomerID: 7,
		BranchID:   1,
		QuoteDate:  time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		ValidUntil: time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
		Currency:   "USD",
		Lines: []CreateQuotationLineReq{
			{ProductID: 11, Quantity: 2, UOM: "unit", UnitPrice: 150, DiscountPercent: 10, TaxPercent: 11},
		},
	}
}

func sendQuotation(t *testing.T, svc *Service, id int64) {
	t.Helper()
	_, err := svc.Submit(context.Background(), id, 2)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), id, 3)
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), id, 2)
	require.NoError(t, err)
}

func TestCreateComputesTotals(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	q, err := svc.Create(context.Background(), createRequest(), 2)
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, q.Status)
	assert.Equal(t, "QT-2503-0001", q.Number)
	require.Len(t, q.Lines, 1)
	assert.InDelta(t, 30.0, q.Lines[0].DiscountAmount, 0.001)
	assert.InDelta(t, 29.7, q.Lines[0].TaxAmount, 0.001)
	assert.InDelta(t, 299.7, q.Lines[0].LineTotal, 0.001)
	assert.InDelta(t, 270.0, q.Subtotal, 0.001)
	assert.InDelta(t, 29.7, q.TaxAmount, 0.001)
	assert.InDelta(t, 299.7, q.Total, 0.001)
}

func TestSubmitOnlyFromDraft(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	q, err := svc.Create(context.Background(), createRequest(), 2)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), q.ID, 3)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	q, err = svc.Submit(context.Background(), q.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, q.Status)

	_, err = svc.Submit(context.Background(), q.ID, 2)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestEditLockedAfterSubmit(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	q, err := svc.Create(context.Background(), createRequest(), 2)
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), q.ID, 2)
	require.NoError(t, err)

	notes := "changed"
	_, err = svc.Update(context.Background(), q.ID, UpdateQuotationRequest{Notes: &notes})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAcceptRecordsResponse(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	q, err := svc.Create(context.Background(), createRequest(), 2)
	require.NoError(t, err)
	sendQuotation(t, svc, q.ID)

	q, err = svc.Accept(context.Background(), q.ID, AcceptRequest{AcceptanceInfo: "PO#123"})
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, q.Status)
	require.NotNil(t, q.AcceptanceInfo)
	assert.Equal(t, "PO#123", *q.AcceptanceInfo)
	require.NotNil(t, q.ResponseDate)
}

func TestAcceptRequiresSent(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	q, err := svc.Create(context.Background(), createRequest(), 2)
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), q.ID, AcceptRequest{AcceptanceInfo: "PO#123"})
	assert.ErrorIs(t, err, ErrNotSent)
}

func TestInternalRejectOnlyFromSubmitted(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	q, err := svc.Create(context.Background(), createRequest(), 2)
	require.NoError(t, err)

	_, err = svc.InternalReject(context.Background(), q.ID, InternalRejectRequest{Reason: "pricing off"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.Submit(context.Background(), q.ID, 2)
	require.NoError(t, err)

	q, err = svc.InternalReject(context.Background(), q.ID, InternalRejectRequest{Reason: "pricing off"})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, q.Status)
	require.NotNil(t, q.RejectionReason)
	assert.Equal(t, "pricing off", *q.RejectionReason)
}

func TestReviseReturnsToDraft(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	q, err := svc.Create(context.Background(), createRequest(), 2)
	require.NoError(t, err)
	sendQuotation(t, svc, q.ID)

	q, err = svc.Revise(context.Background(), q.ID, ReviseRequest{RevisionReason: "customer wants fewer units"})
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, q.Status)
	assert.True(t, q.Status.CanEdit())
}

func TestMarkInvoicedGeneratesNumberAndStamps(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	q, err := svc.Create(context.Background(), createRequest(), 2)
	require.NoError(t, err)
	sendQuotation(t, svc, q.ID)
	_, err = svc.Accept(context.Background(), q.ID, AcceptRequest{AcceptanceInfo: "PO#123"})
	require.NoError(t, err)

	q, err = svc.MarkInvoiced(context.Background(), q.ID, MarkInvoicedRequest{}, 2)
	require.NoError(t, err)
	require.NotNil(t, q.InvoiceID)
	require.NotNil(t, q.InvoicedAt)

	inv := repo.invoices[*q.InvoiceID]
	assert.Equal(t, "INV/2025/3/001", inv.Number)
	assert.Equal(t, q.ID, inv.QuotationID)
	assert.InDelta(t, q.Total, inv.Total, 0.001)
	assert.Equal(t, inv.InvoiceDate.AddDate(0, 0, 14), inv.DueDate)
}

func TestMarkInvoicedSecondCallFails(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	q, err := svc.Create(context.Background(), createRequest(), 2)
	require.NoError(t, err)
	sendQuotation(t, svc, q.ID)
	_, err = svc.Accept(context.Background(), q.ID, AcceptRequest{AcceptanceInfo: "PO#123"})
	require.NoError(t, err)

	first, err := svc.MarkInvoiced(context.Background(), q.ID, MarkInvoicedRequest{}, 2)
	require.NoError(t, err)
	require.NotNil(t, first.InvoiceID)

	_, err = svc.MarkInvoiced(context.Background(), q.ID, MarkInvoicedRequest{}, 2)
	assert.ErrorIs(t, err, ErrAlreadyInvoiced)
	assert.Len(t, repo.invoices, 1)

	got, err := svc.Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.InvoiceID, *got.InvoiceID)
}

func TestMarkInvoicedReplayedKeyConflicts(t *testing.T) {
	repo := newMemoryRepo()
	idem := newMemoryIdemStore()
	svc := NewService(repo, 14, idem)
	svc.now = func() time.Time { return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC) }

	q, err := svc.Create(context.Background(), createRequest(), 2)
	require.NoError(t, err)
	sendQuotation(t, svc, q.ID)
	_, err = svc.Accept(context.Background(), q.ID, AcceptRequest{AcceptanceInfo: "PO#123"})
	require.NoError(t, err)

	// A key left behind by an earlier attempt blocks the replay before any
	// invoice row is written.
	idem.keys["INV:"+q.Number] = "sales.invoice"

	_, err = svc.MarkInvoiced(context.Background(), q.ID, MarkInvoicedRequest{}, 2)
	assert.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	assert.Empty(t, repo.invoices)
}

func TestMarkInvoicedRequiresAccepted(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	q, err := svc.Create(context.Background(), createRequest(), 2)
	require.NoError(t, err)
	sendQuotation(t, svc, q.ID)

	_, err = svc.MarkInvoiced(context.Background(), q.ID, MarkInvoicedRequest{}, 2)
	assert.ErrorIs(t, err, ErrNotAccepted)
}

func TestMonthlyInvoiceSequence(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	for i := 0; i < 2; i++ {
		q, err := svc.Create(context.Background(), createRequest(), 2)
		require.NoError(t, err)
		sendQuotation(t, svc, q.ID)
		_, err = svc.Accept(context.Background(), q.ID, AcceptRequest{AcceptanceInfo: "PO"})
		require.NoError(t, err)
		q, err = svc.MarkInvoiced(context.Background(), q.ID, MarkInvoicedRequest{}, 2)
		require.NoError(t, err)
		inv := repo.invoices[*q.InvoiceID]
		assert.Equal(t, fmt.Sprintf("INV/2025/3/%03d", i+1), inv.Number)
	}
}
