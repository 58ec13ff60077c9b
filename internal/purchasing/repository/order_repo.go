package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/entity"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 采购订单仓库
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func preloadLines(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC")
}

// FindAll 查询门店采购订单列表
func (r *OrderRepository) FindAll(ctx context.Context, pharmacyID string, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	var items []entity.PurchaseOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{}).
		Where("pharmacy_id = ?", pharmacyID)

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if supplierID := filters["supplier_id"]; supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("order_number LIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	err := query.
		Preload("Lines", preloadLines).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 查找门店内的采购订单（含订单行）；其他门店的订单视为不存在
func (r *OrderRepository) FindByID(ctx context.Context, id, pharmacyID string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Lines", preloadLines).
		Where("id = ? AND pharmacy_id = ?", id, pharmacyID).
		First(&po).Error
	if err != nil {
		return nil, translate(err)
	}
	return &po, nil
}

// UpdatedAt 只读取订单的最后更新时间；其他门店的订单视为不存在
func (r *OrderRepository) UpdatedAt(ctx context.Context, id, pharmacyID string) (time.Time, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Select("id", "updated_at").
		Where("id = ? AND pharmacy_id = ?", id, pharmacyID).
		Take(&po).Error
	if err != nil {
		return time.Time{}, translate(err)
	}
	return po.UpdatedAt, nil
}

// FindByIDForUpdate 同 FindByID，但对订单行加行锁（需在事务内调用）
func (r *OrderRepository) FindByIDForUpdate(ctx context.Context, id, pharmacyID string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND pharmacy_id = ?", id, pharmacyID).
		First(&po).Error
	if err != nil {
		return nil, translate(err)
	}
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", po.ID).
		Order("sort_order ASC").
		Find(&po.Lines).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

// Create 创建采购订单及订单行
func (r *OrderRepository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(po).Error
}

// UpdateHeader 更新订单头（不级联订单行）
func (r *OrderRepository) UpdateHeader(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(po).Error
}

// ReplaceLines 整体替换订单行（先删后插）
func (r *OrderRepository) ReplaceLines(ctx context.Context, orderID string, lines []entity.PurchaseOrderLine) error {
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&entity.PurchaseOrderLine{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

// SetLineUnitCost 写入确认单价
func (r *OrderRepository) SetLineUnitCost(ctx context.Context, lineID string, unitCost decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&entity.PurchaseOrderLine{}).
		Where("id = ?", lineID).
		Update("unit_cost", unitCost).Error
}

// SetReceivedQuantity 覆盖写入累计收货数量
func (r *OrderRepository) SetReceivedQuantity(ctx context.Context, lineID string, qty int) error {
	return r.db.WithContext(ctx).Model(&entity.PurchaseOrderLine{}).
		Where("id = ?", lineID).
		Update("received_quantity", qty).Error
}

// DeleteLine 删除订单行
func (r *OrderRepository) DeleteLine(ctx context.Context, lineID string) error {
	return r.db.WithContext(ctx).Where("id = ?", lineID).Delete(&entity.PurchaseOrderLine{}).Error
}

// Delete 删除采购订单及订单行
func (r *OrderRepository) Delete(ctx context.Context, id, pharmacyID string) error {
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Delete(&entity.PurchaseOrderLine{}).Error; err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Where("id = ? AND pharmacy_id = ?", id, pharmacyID).Delete(&entity.PurchaseOrder{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
