package invoices

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	invoices map[int64]*Invoice
	nextID   int64
}

func newMemoryRepo(invoices ...*Invoice) *memoryRepo {
	repo := &memoryRepo{invoices: map[int64]*Invoice{}, nextID: 100}
	for _, inv := range invoices {
		repo.invoices[inv.ID] = inv
	}
	return repo
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memoryRepo) List(_ context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if req.Status != nil && inv.Status != *req.Status {
			continue
		}
		out = append(out, *inv)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(_ context.Context, inv Invoice, lines []InvoiceLine) (int64, error) {
	id := m.nextID
	m.nextID++
	inv.ID = id
	if inv.Number == "" {
		count := 0
		for _, existing := range m.invoices {
			if existing.InvoiceDate.Year() == inv.InvoiceDate.Year() && existing.InvoiceDate.Month() == inv.InvoiceDate.Month() {
				count++
			}
		}
		inv.Number = fmt.Sprintf("INV/%d/%d/%03d", inv.InvoiceDate.Year(), int(inv.InvoiceDate.Month()), count+1)
	}
	inv.Lines = lines
	m.invoices[id] = &inv
	return id, nil
}

func (m *memoryRepo) MarkSent(_ context.Context, id int64, at time.Time) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.Status = StatusSent
	inv.SentAt = &at
	return nil
}

func (m *memoryRepo) MarkPaid(_ context.Context, id int64, ref string, at time.Time) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.Status = StatusPaid
	inv.PaymentRef = &ref
	inv.PaidAt = &at
	return nil
}

func (m *memoryRepo) MarkVoid(_ context.Context, id int64, reason string) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.Status = StatusVoid
	inv.VoidReason = &reason
	return nil
}

func (m *memoryRepo) Aging(_ context.Context, now time.Time) ([]AgingSummary, error) {
	byCurrency := map[string]*AgingSummary{}
	for _, inv := range m.invoices {
		if inv.Status != StatusSent {
			continue
		}
		s, ok := byCurrency[inv.Currency]
		if !ok {
			s = &AgingSummary{Currency: inv.Currency}
			byCurrency[inv.Currency] = s
		}
		s.Outstanding += inv.Total
		s.Count++
		if !now.After(inv.DueDate) {
			s.Current += inv.Total
		}
	}
	var out []AgingSummary
	for _, s := range byCurrency {
		out = append(out, *s)
	}
	return out, nil
}

func testInvoice(id int64, status InvoiceStatus) *Invoice {
	return &Invoice{
		ID:          id,
		Number:      "INV/2025/3/001",
		CustomerID:  7,
		Currency:    "USD",
		Subtotal:    270,
		TaxAmount:   29.7,
		Total:       299.7,
		Status:      status,
		InvoiceDate: time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2025, time.March, 24, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateStandaloneInvoice(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC) }

	inv, err := svc.Create(context.Background(), CreateInvoiceRequest{
		CustomerID: 7,
		Currency:   "USD",
		Lines: []CreateInvoiceLineReq{
			{ProductID: 11, Quantity: 2, UOM: "unit", UnitPrice: 150, DiscountPercent: 10, TaxPercent: 11},
		},
	}, 2)
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, inv.Status)
	assert.Nil(t, inv.QuotationID)
	assert.Equal(t, "INV/2025/3/001", inv.Number)
	assert.Equal(t, inv.InvoiceDate.AddDate(0, 0, 14), inv.DueDate)
	assert.InDelta(t, 299.7, inv.Total, 0.001)
	require.Len(t, inv.Lines, 1)
}

func TestSendOnlyFromDraft(t *testing.T) {
	repo := newMemoryRepo(testInvoice(1, StatusDraft))
	svc := NewService(repo)

	inv, err := svc.Send(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, inv.Status)
	require.NotNil(t, inv.SentAt)

	_, err = svc.Send(context.Background(), 1)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestPayRequiresSent(t *testing.T) {
	repo := newMemoryRepo(testInvoice(1, StatusDraft))
	svc := NewService(repo)

	_, err := svc.Pay(context.Background(), 1, PayRequest{PaymentRef: "TRX-9"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.Send(context.Background(), 1)
	require.NoError(t, err)

	inv, err := svc.Pay(context.Background(), 1, PayRequest{PaymentRef: "TRX-9"})
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, inv.Status)
	require.NotNil(t, inv.PaymentRef)
	assert.Equal(t, "TRX-9", *inv.PaymentRef)
}

func TestVoidBlockedWhenPaid(t *testing.T) {
	repo := newMemoryRepo(testInvoice(1, StatusPaid))
	svc := NewService(repo)

	_, err := svc.Void(context.Background(), 1, VoidRequest{Reason: "duplicate billing"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestVoidFromSent(t *testing.T) {
	repo := newMemoryRepo(testInvoice(1, StatusSent))
	svc := NewService(repo)

	inv, err := svc.Void(context.Background(), 1, VoidRequest{Reason: "customer cancelled order"})
	require.NoError(t, err)
	assert.Equal(t, StatusVoid, inv.Status)
	require.NotNil(t, inv.VoidReason)
}

func TestOverdue(t *testing.T) {
	inv := testInvoice(1, StatusSent)
	assert.False(t, inv.Overdue(time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)))
	assert.True(t, inv.Overdue(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)))

	inv.Status = StatusPaid
	assert.False(t, inv.Overdue(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)))
}

func TestAgingSummaryText(t *testing.T) {
	first := testInvoice(1, StatusSent)
	second := testInvoice(2, StatusSent)
	second.DueDate = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	repo := newMemoryRepo(first, second)

	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC) }

	report, err := svc.Aging(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Buckets, 1)
	assert.InDelta(t, 599.4, report.Buckets[0].Outstanding, 0.001)
	assert.InDelta(t, 299.7, report.Buckets[0].Current, 0.001)
	require.Len(t, report.Summary, 1)
	assert.Contains(t, report.Summary[0], "USD")
	assert.Contains(t, report.Summary[0], "2 invoices")
}
