package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/entity"
	"github.com/bitfantasy/nimo-pharmacy/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	pharmacyID = testutil.DefaultPharmacy
	otherPharm = "pharmacy-002"
	userID     = testutil.DefaultUser
)

var clockStart = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

// stepClock 每次调用前进一秒
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Second)
		return now
	}
}

type fixture struct {
	t   *testing.T
	db  *gorm.DB
	svc *OrderService
	ctx context.Context
}

func newFixture(t *testing.T) *fixture {
	db := testutil.SetupTestDB(t)
	svc := NewOrderService(db, zap.NewNop())
	svc.SetClock(stepClock(clockStart))

	testutil.SeedProduct(t, db, "prod-a", pharmacyID, 100, "1.00")
	testutil.SeedProduct(t, db, "prod-b", pharmacyID, 50, "1.00")
	testutil.SeedProduct(t, db, "prod-x", otherPharm, 0, "1.00")

	return &fixture{t: t, db: db, svc: svc, ctx: context.Background()}
}

func strp(s string) *string { return &s }

// draft 创建两行草稿订单：prod-a ×10, prod-b ×5
func (f *fixture) draft() *entity.PurchaseOrder {
	f.t.Helper()
	po, err := f.svc.Create(f.ctx, pharmacyID, userID, &CreateOrderRequest{
		SupplierID: "sup-1",
		OrderDate:  "2026-10-16",
		Items: []OrderItemInput{
			{ProductID: "prod-a", Quantity: 10},
			{ProductID: "prod-b", Quantity: 5},
		},
	})
	require.NoError(f.t, err)
	require.Len(f.t, po.Lines, 2)
	return po
}

// confirmed 草稿订单确认，两行均可供
func (f *fixture) confirmed() *entity.PurchaseOrder {
	f.t.Helper()
	po := f.draft()
	po, err := f.svc.Confirm(f.ctx, po.ID, pharmacyID, userID, map[string]ConfirmedItem{
		po.Lines[0].ID: {UnitCost: "2.50", Available: true},
		po.Lines[1].ID: {UnitCost: "4.00", Available: true},
	})
	require.NoError(f.t, err)
	return po
}

func (f *fixture) reload(id string) *entity.PurchaseOrder {
	f.t.Helper()
	var po entity.PurchaseOrder
	require.NoError(f.t, f.db.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	}).First(&po, "id = ?", id).Error)
	return &po
}

func (f *fixture) product(id string) *entity.Product {
	f.t.Helper()
	var p entity.Product
	require.NoError(f.t, f.db.First(&p, "id = ?", id).Error)
	return &p
}

func (f *fixture) activity(orderID string) []entity.ActivityLog {
	f.t.Helper()
	var logs []entity.ActivityLog
	require.NoError(f.t, f.db.Where("entity_id = ?", orderID).Order("created_at ASC").Find(&logs).Error)
	return logs
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, *entity.ActivityLog) error {
	return errors.New("activity store down")
}

// memCache 进程内订单缓存
type memCache struct {
	mu    sync.Mutex
	items map[string]entity.PurchaseOrder
}

func newMemCache() *memCache {
	return &memCache{items: map[string]entity.PurchaseOrder{}}
}

func (c *memCache) Get(_ context.Context, pharmacyID, id string) (*entity.PurchaseOrder, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	po, ok := c.items[pharmacyID+"/"+id]
	if !ok {
		return nil, false
	}
	return &po, true
}

func (c *memCache) Set(_ context.Context, po *entity.PurchaseOrder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[po.PharmacyID+"/"+po.ID] = *po
}

func (c *memCache) Invalidate(_ context.Context, pharmacyID, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, pharmacyID+"/"+id)
}
