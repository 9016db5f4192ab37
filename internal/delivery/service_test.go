package delivery

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type stockKey struct {
	warehouseID int64
	productID   int64
}

type memoryRepo struct {
	notes  map[int64]*DeliveryNote
	stock  map[stockKey]float64
	nextID int64
	seq    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		notes:  map[int64]*DeliveryNote{},
		stock:  map[stockKey]float64{},
		nextID: 1,
	}
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*DeliveryNote, error) {
	note, ok := m.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *note
	return &cp, nil
}

func (m *memoryRepo) List(_ context.Context, req ListDeliveriesRequest) ([]DeliveryNote, int, error) {
	var out []DeliveryNote
	for _, note := range m.notes {
		if req.BranchID != nil && note.BranchID != *req.BranchID {
			continue
		}
		if req.Status != nil && note.Status != *req.Status {
			continue
		}
		out = append(out, *note)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(_ context.Context, note DeliveryNote, lines []DeliveryLine) (int64, error) {
	id := m.nextID
	m.nextID++
	note.ID = id
	for i := range lines {
		lines[i].ID = int64(i + 1)
		lines[i].DeliveryID = id
	}
	note.Lines = lines
	m.notes[id] = &note
	return id, nil
}

func (m *memoryRepo) GenerateNumber(_ context.Context, date time.Time) (string, error) {
	m.seq++
	return fmt.Sprintf("DN-%s-%04d", date.Format("0601"), m.seq), nil
}

func (m *memoryRepo) MarkDispatched(_ context.Context, id int64, at time.Time) error {
	note, ok := m.notes[id]
	if !ok {
		return ErrNotFound
	}
	note.Status = StatusInTransit
	note.DispatchedAt = &at
	return nil
}

func (m *memoryRepo) MarkCancelled(_ context.Context, id int64, reason string, at time.Time) error {
	note, ok := m.notes[id]
	if !ok {
		return ErrNotFound
	}
	note.Status = StatusCancelled
	note.CancelReason = &reason
	note.CancelledAt = &at
	return nil
}

func (m *memoryRepo) Execute(_ context.Context, id, _ int64, at time.Time) error {
	note, ok := m.notes[id]
	if !ok {
		return ErrNotFound
	}
	if !note.Status.CanExecute() {
		return fmt.Errorf("%w: delivery is %s", ErrInvalidStatus, note.Status)
	}
	// All lines must be coverable before anything is deducted.
	for _, line := range note.Lines {
		if m.stock[stockKey{line.WarehouseID, line.ProductID}] < line.Quantity {
			return fmt.Errorf("%w: product %d", inventory.ErrInsufficientStock, line.ProductID)
		}
	}
	for _, line := range note.Lines {
		m.stock[stockKey{line.WarehouseID, line.ProductID}] -= line.Quantity
	}
	note.Status = StatusDelivered
	note.DeliveredAt = &at
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

func staffIdent(branchID int64) shared.Identity {
	return shared.Identity{UserID: 5, Role: "staff", BranchID: branchID}
}

func hqIdent() shared.Identity {
	return shared.Identity{UserID: 1, Role: "director", BranchID: 1, IsHQ: true}
}

func createNote(t *testing.T, svc *Service, lines []CreateDeliveryLineReq) *DeliveryNote {
	t.Helper()
	invoiceID := int64(3)
	note, err := svc.Create(context.Background(), staffIdent(1), CreateDeliveryRequest{
		InvoiceID:  &invoiceID,
		CustomerID: 7,
		BranchID:   1,
		Lines:      lines,
	})
	require.NoError(t, err)
	return note
}

func TestCreateStartsPending(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	note := createNote(t, svc, []CreateDeliveryLineReq{{ProductID: 11, WarehouseID: 2, Quantity: 4, UOM: "unit"}})
	assert.Equal(t, StatusPending, note.Status)
	assert.Contains(t, note.Number, "DN-")
	require.Len(t, note.Lines, 1)
	assert.Equal(t, int64(2), note.Lines[0].WarehouseID)
}

func TestCreateWithoutInvoiceReference(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	driver := "B. Santoso"
	vehicle := "B 9041 XY"
	note, err := svc.Create(context.Background(), staffIdent(1), CreateDeliveryRequest{
		CustomerID:    7,
		BranchID:      1,
		DriverName:    &driver,
		VehicleNumber: &vehicle,
		Lines:         []CreateDeliveryLineReq{{ProductID: 11, WarehouseID: 2, Quantity: 1, UOM: "unit"}},
	})
	require.NoError(t, err)
	assert.Nil(t, note.InvoiceID)
	require.NotNil(t, note.DriverName)
	assert.Equal(t, "B. Santoso", *note.DriverName)
	require.NotNil(t, note.VehicleNumber)
	assert.Equal(t, "B 9041 XY", *note.VehicleNumber)
}

func TestExecuteDepletesAndDelivers(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	repo.stock[stockKey{2, 11}] = 10

	note := createNote(t, svc, []CreateDeliveryLineReq{{ProductID: 11, WarehouseID: 2, Quantity: 4, UOM: "unit"}})

	note, err := svc.Execute(context.Background(), staffIdent(1), note.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, note.Status)
	require.NotNil(t, note.DeliveredAt)
	assert.Equal(t, 6.0, repo.stock[stockKey{2, 11}])
}

func TestExecuteShipsLinesFromDifferentWarehouses(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	repo.stock[stockKey{2, 11}] = 5
	repo.stock[stockKey{3, 12}] = 8

	note := createNote(t, svc, []CreateDeliveryLineReq{
		{ProductID: 11, WarehouseID: 2, Quantity: 5, UOM: "unit"},
		{ProductID: 12, WarehouseID: 3, Quantity: 2, UOM: "unit"},
	})

	note, err := svc.Execute(context.Background(), staffIdent(1), note.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, note.Status)
	assert.Equal(t, 0.0, repo.stock[stockKey{2, 11}])
	assert.Equal(t, 6.0, repo.stock[stockKey{3, 12}])
}

func TestExecuteAllOrNothing(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	repo.stock[stockKey{2, 11}] = 10
	repo.stock[stockKey{2, 12}] = 1

	note := createNote(t, svc, []CreateDeliveryLineReq{
		{ProductID: 11, WarehouseID: 2, Quantity: 4, UOM: "unit"},
		{ProductID: 12, WarehouseID: 2, Quantity: 2, UOM: "unit"},
	})

	_, err := svc.Execute(context.Background(), staffIdent(1), note.ID)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	// Nothing shipped, nothing depleted.
	got, err := svc.Get(context.Background(), staffIdent(1), note.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, 10.0, repo.stock[stockKey{2, 11}])
	assert.Equal(t, 1.0, repo.stock[stockKey{2, 12}])
}

func TestExecuteTwiceFails(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	repo.stock[stockKey{2, 11}] = 10

	note := createNote(t, svc, []CreateDeliveryLineReq{{ProductID: 11, WarehouseID: 2, Quantity: 4, UOM: "unit"}})

	_, err := svc.Execute(context.Background(), staffIdent(1), note.ID)
	require.NoError(t, err)
	_, err = svc.Execute(context.Background(), staffIdent(1), note.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, 6.0, repo.stock[stockKey{2, 11}])
}

func TestExecuteReplayedKeyConflicts(t *testing.T) {
	repo := newMemoryRepo()
	idem := newMemoryIdemStore()
	svc := NewService(repo, idem)
	repo.stock[stockKey{2, 11}] = 10

	note := createNote(t, svc, []CreateDeliveryLineReq{{ProductID: 11, WarehouseID: 2, Quantity: 4, UOM: "unit"}})
	idem.keys["DN-EXEC:"+note.Number] = "delivery.execute"

	_, err := svc.Execute(context.Background(), staffIdent(1), note.ID)
	assert.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	assert.Equal(t, 10.0, repo.stock[stockKey{2, 11}])
}

func TestExecuteFailureReleasesKey(t *testing.T) {
	repo := newMemoryRepo()
	idem := newMemoryIdemStore()
	svc := NewService(repo, idem)

	note := createNote(t, svc, []CreateDeliveryLineReq{{ProductID: 11, WarehouseID: 2, Quantity: 4, UOM: "unit"}})

	_, err := svc.Execute(context.Background(), staffIdent(1), note.ID)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Empty(t, idem.keys)

	// Once stock arrives the same note executes.
	repo.stock[stockKey{2, 11}] = 4
	got, err := svc.Execute(context.Background(), staffIdent(1), note.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, got.Status)
	assert.Contains(t, idem.keys, "DN-EXEC:"+note.Number)
}

func TestCancelBlockedAfterDelivered(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	repo.stock[stockKey{2, 11}] = 10

	note := createNote(t, svc, []CreateDeliveryLineReq{{ProductID: 11, WarehouseID: 2, Quantity: 4, UOM: "unit"}})
	_, err := svc.Execute(context.Background(), staffIdent(1), note.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), staffIdent(1), note.ID, CancelRequest{Reason: "wrong address"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
	// Cancel never returns stock either way.
	assert.Equal(t, 6.0, repo.stock[stockKey{2, 11}])
}

func TestCancelFromPending(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	note := createNote(t, svc, []CreateDeliveryLineReq{{ProductID: 11, WarehouseID: 2, Quantity: 4, UOM: "unit"}})
	note, err := svc.Cancel(context.Background(), staffIdent(1), note.ID, CancelRequest{Reason: "order withdrawn"})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, note.Status)
	require.NotNil(t, note.CancelReason)
}

func TestDispatchThenExecute(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	repo.stock[stockKey{2, 11}] = 5

	note := createNote(t, svc, []CreateDeliveryLineReq{{ProductID: 11, WarehouseID: 2, Quantity: 5, UOM: "unit"}})

	note, err := svc.Dispatch(context.Background(), staffIdent(1), note.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInTransit, note.Status)

	_, err = svc.Dispatch(context.Background(), staffIdent(1), note.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	note, err = svc.Execute(context.Background(), staffIdent(1), note.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, note.Status)
}

func TestBranchGuard(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	note := createNote(t, svc, []CreateDeliveryLineReq{{ProductID: 11, WarehouseID: 2, Quantity: 4, UOM: "unit"}})

	_, err := svc.Get(context.Background(), staffIdent(99), note.ID)
	assert.ErrorIs(t, err, ErrBranchDenied)

	// HQ sees every branch.
	_, err = svc.Get(context.Background(), hqIdent(), note.ID)
	assert.NoError(t, err)
}

func TestListScopedToBranchForStaff(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	createNote(t, svc, []CreateDeliveryLineReq{{ProductID: 11, WarehouseID: 2, Quantity: 1, UOM: "unit"}})

	notes, total, err := svc.List(context.Background(), staffIdent(99), ListDeliveriesRequest{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, notes)

	notes, total, err = svc.List(context.Background(), hqIdent(), ListDeliveriesRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, notes, 1)
}
