package imports

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
	imports map[int64]*Import
	serials map[string]bool // serials already in the catalog
	parts   map[string]bool // part numbers already in the catalog
	nextID  int64
	seq     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		imports: map[int64]*Import{},
		serials: map[string]bool{},
		parts:   map[string]bool{},
		nextID:  1,
	}
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Import, error) {
	imp, ok := m.imports[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *imp
	return &cp, nil
}

func (m *memoryRepo) List(_ context.Context, req ListImportsRequest) ([]Import, int, error) {
	var out []Import
	for _, imp := range m.imports {
		if req.Status != nil && imp.Status != *req.Status {
			continue
		}
		out = append(out, *imp)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(_ context.Context, imp Import, items []ImportItem) (int64, error) {
	id := m.nextID
	m.nextID++
	imp.ID = id
	for i := range items {
		items[i].ID = int64(i + 1)
		items[i].ImportID = id
	}
	imp.Items = items
	m.imports[id] = &imp
	return id, nil
}

func (m *memoryRepo) GenerateNumber(_ context.Context, date time.Time) (string, error) {
	m.seq++
	return fmt.Sprintf("IMP-%s-%04d", date.Format("0601"), m.seq), nil
}

func (m *memoryRepo) Verify(_ context.Context, id, userID int64, at time.Time) error {
	imp, ok := m.imports[id]
	if !ok {
		return ErrNotFound
	}
	if imp.Status != StatusPending {
		return ErrAlreadyVerified
	}
	// Whole batch checked before anything is written.
	for _, it := range imp.Items {
		if it.SerialNumber != nil && m.serials[*it.SerialNumber] {
			return fmt.Errorf("%w: %s", ErrDuplicateSerial, *it.SerialNumber)
		}
		if it.Category == "BULK" && it.PartNumber != nil && m.parts[*it.PartNumber] {
			return fmt.Errorf("%w: %s", ErrDuplicatePart, *it.PartNumber)
		}
	}
	productID := int64(100)
	for i := range imp.Items {
		if imp.Items[i].SerialNumber != nil {
			m.serials[*imp.Items[i].SerialNumber] = true
		}
		if imp.Items[i].PartNumber != nil {
			m.parts[*imp.Items[i].PartNumber] = true
		}
		pid := productID
		imp.Items[i].ProductID = &pid
		productID++
	}
	imp.Status = StatusVerified
	imp.VerifiedBy = &userID
	imp.VerifiedAt = &at
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

func strPtr(s string) *string { return &s }

func serializedItem(serial string) CreateImportItemReq {
	return CreateImportItemReq{
		Name:         "Excavator X200",
		Category:     "SERIALIZED",
		Condition:    "NEW",
		SerialNumber: strPtr(serial),
		Quantity:     1,
		UOM:          "unit",
		UnitCost:     50000,
	}
}

func bulkItem(part string, qty float64) CreateImportItemReq {
	return CreateImportItemReq{
		Name:       "Hydraulic Filter",
		Category:   "BULK",
		Condition:  "NEW",
		PartNumber: strPtr(part),
		Quantity:   qty,
		UOM:        "pcs",
		UnitCost:   12.5,
	}
}

func createRequest(items ...CreateImportItemReq) CreateImportRequest {
	return CreateImportRequest{
		SupplierID:  3,
		WarehouseID: 2,
		BranchID:    1,
		ImportDate:  time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC),
		Items:       items,
	}
}

func TestCreateStartsPending(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	imp, err := svc.Create(context.Background(), createRequest(serializedItem("SN-001")), 2)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, imp.Status)
	assert.Contains(t, imp.Number, "IMP-2503")
	require.Len(t, imp.Items, 1)
}

func TestSerializedRequiresSerialAndUnitQuantity(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	item := serializedItem("SN-001")
	item.SerialNumber = nil
	_, err := svc.Create(context.Background(), createRequest(item), 2)
	assert.ErrorIs(t, err, ErrSerialRequired)

	item = serializedItem("SN-001")
	item.Quantity = 2
	_, err = svc.Create(context.Background(), createRequest(item), 2)
	assert.ErrorIs(t, err, ErrSerialQuantity)
}

func TestBulkRequiresPartNumber(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	item := bulkItem("HF-22", 40)
	item.PartNumber = nil
	_, err := svc.Create(context.Background(), createRequest(item), 2)
	assert.ErrorIs(t, err, ErrPartNumberRequired)
}

func TestSerialRepeatedInBatchRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), createRequest(serializedItem("SN-001"), serializedItem("SN-001")), 2)
	assert.ErrorIs(t, err, ErrSerialRepeated)
}

func TestVerifyMarksVerified(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	imp, err := svc.Create(context.Background(), createRequest(serializedItem("SN-001"), bulkItem("HF-22", 40)), 2)
	require.NoError(t, err)

	imp, err = svc.Verify(context.Background(), imp.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, imp.Status)
	require.NotNil(t, imp.VerifiedBy)
	assert.Equal(t, int64(4), *imp.VerifiedBy)
	for _, it := range imp.Items {
		assert.NotNil(t, it.ProductID)
	}
}

func TestVerifyDuplicateSerialLeavesImportPending(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	repo.serials["SN-001"] = true

	imp, err := svc.Create(context.Background(), createRequest(serializedItem("SN-001"), bulkItem("HF-22", 40)), 2)
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), imp.ID, 4)
	require.ErrorIs(t, err, ErrDuplicateSerial)

	got, err := svc.Get(context.Background(), imp.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	for _, it := range got.Items {
		assert.Nil(t, it.ProductID)
	}
}

func TestVerifyDuplicatePartNumberLeavesImportPending(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	repo.parts["HF-22"] = true

	imp, err := svc.Create(context.Background(), createRequest(bulkItem("HF-22", 40)), 2)
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), imp.ID, 4)
	require.ErrorIs(t, err, ErrDuplicatePart)

	got, err := svc.Get(context.Background(), imp.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestVerifyReplayedKeyConflicts(t *testing.T) {
	repo := newMemoryRepo()
	idem := newMemoryIdemStore()
	svc := NewService(repo, idem)

	imp, err := svc.Create(context.Background(), createRequest(serializedItem("SN-001")), 2)
	require.NoError(t, err)
	idem.keys["IMP-VERIFY:"+imp.Number] = "imports.verify"

	_, err = svc.Verify(context.Background(), imp.ID, 4)
	assert.ErrorIs(t, err, shared.ErrIdempotencyConflict)

	got, err := svc.Get(context.Background(), imp.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestVerifyFailureReleasesKey(t *testing.T) {
	repo := newMemoryRepo()
	idem := newMemoryIdemStore()
	svc := NewService(repo, idem)
	repo.serials["SN-001"] = true

	imp, err := svc.Create(context.Background(), createRequest(serializedItem("SN-001")), 2)
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), imp.ID, 4)
	require.ErrorIs(t, err, ErrDuplicateSerial)
	assert.Empty(t, idem.keys)
}

func TestVerifyTwiceFails(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	imp, err := svc.Create(context.Background(), createRequest(serializedItem("SN-001")), 2)
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), imp.ID, 4)
	require.NoError(t, err)
	_, err = svc.Verify(context.Background(), imp.ID, 4)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}
