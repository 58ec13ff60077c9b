package service

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/cache"
	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/entity"
	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Catalog 商品目录接口（库存与成本价由目录模块维护）
type Catalog interface {
	GetProduct(ctx context.Context, id, pharmacyID string) (*entity.Product, error)
	IncrementStock(ctx context.Context, id, pharmacyID string, delta int, costPrice decimal.Decimal, pricedAt time.Time) error
}

// ActivityRecorder 操作日志接口
type ActivityRecorder interface {
	Record(ctx context.Context, log *entity.ActivityLog) error
}

// Services 采购服务集合
type Services struct {
	Order *OrderService
	API   *PurchaseOrderAPI
}

// NewServices 创建采购服务集合
func NewServices(db *gorm.DB, orderCache cache.OrderCache, logger *zap.Logger) *Services {
	orders := NewOrderService(db, logger)
	if orderCache != nil {
		orders.SetCache(orderCache)
	}
	return &Services{
		Order: orders,
		API:   NewPurchaseOrderAPI(orders, logger),
	}
}

// OrderService 采购订单服务：建单、确认、收货
type OrderService struct {
	db       *gorm.DB
	catalog  func(tx *gorm.DB) Catalog
	activity ActivityRecorder
	cache    cache.OrderCache
	logger   *zap.Logger
	now      func() time.Time
}

func NewOrderService(db *gorm.DB, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		db: db,
		catalog: func(tx *gorm.DB) Catalog {
			return repository.NewCatalogRepository(tx)
		},
		activity: repository.NewActivityLogRepository(db),
		cache:    cache.NopOrderCache{},
		logger:   logger,
		now:      time.Now,
	}
}

// SetCache 注入订单缓存
func (s *OrderService) SetCache(c cache.OrderCache) {
	s.cache = c
}

// SetClock 注入时钟（订单号与确认时间）
func (s *OrderService) SetClock(now func() time.Time) {
	s.now = now
}

// SetActivityRecorder 注入操作日志
func (s *OrderService) SetActivityRecorder(r ActivityRecorder) {
	s.activity = r
}

// SetCatalog 注入商品目录；factory 接收事务句柄，返回绑定该事务的目录
func (s *OrderService) SetCatalog(factory func(tx *gorm.DB) Catalog) {
	s.catalog = factory
}

// recordActivity 提交后记录操作日志，失败只记日志
func (s *OrderService) recordActivity(ctx context.Context, po *entity.PurchaseOrder, action, fromStatus, toStatus, operatorID string, details entity.JSONB) {
	err := s.activity.Record(ctx, &entity.ActivityLog{
		PharmacyID: po.PharmacyID,
		EntityType: entity.EntityTypePurchaseOrder,
		EntityID:   po.ID,
		EntityCode: po.OrderNumber,
		Action:     action,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		Details:    details,
		OperatorID: operatorID,
	})
	if err != nil {
		s.logger.Warn("record activity failed",
			zap.String("order_id", po.ID),
			zap.String("pharmacy_id", po.PharmacyID),
			zap.String("action", action),
			zap.Error(err))
	}
}

func (s *OrderService) logStorage(op, orderID, pharmacyID string, err error) {
	s.logger.Error("purchase order storage failure",
		zap.String("op", op),
		zap.String("order_id", orderID),
		zap.String("pharmacy_id", pharmacyID),
		zap.Error(err))
}

// finish 统一处理写操作的错误：未分类错误记日志并包装为 StorageError
func (s *OrderService) finish(op, orderID, pharmacyID string, err error) error {
	wrapped := wrapStorage(op, err)
	if _, ok := wrapped.(*StorageError); ok {
		s.logStorage(op, orderID, pharmacyID, err)
	}
	return wrapped
}
