package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/entity"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogRepository 商品库存/成本价读写
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetProduct 查询门店商品
func (r *CatalogRepository) GetProduct(ctx context.Context, id, pharmacyID string) (*entity.Product, error) {
	var p entity.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND pharmacy_id = ?", id, pharmacyID).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// IncrementStock 库存原子累加，并在来源订单不早于当前成本价来源时更新成本价
func (r *CatalogRepository) IncrementStock(ctx context.Context, id, pharmacyID string, delta int, costPrice decimal.Decimal, pricedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&entity.Product{}).
		Where("id = ? AND pharmacy_id = ?", id, pharmacyID).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return r.db.WithContext(ctx).Model(&entity.Product{}).
		Where("id = ? AND pharmacy_id = ?", id, pharmacyID).
		Where("cost_priced_at IS NULL OR cost_priced_at <= ?", pricedAt).
		Updates(map[string]interface{}{
			"cost_price":     costPrice,
			"cost_priced_at": pricedAt,
		}).Error
}
