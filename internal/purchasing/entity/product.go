package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product 商品目录（库存与成本价），由目录模块维护，这里只做读写
type Product struct {
	ID           string          `json:"id" gorm:"primaryKey;size:32"`
	PharmacyID   string          `json:"pharmacy_id" gorm:"size:32;not null;index"`
	Name         string          `json:"name" gorm:"size:200;not null"`
	Quantity     int             `json:"quantity" gorm:"not null;default:0"`
	CostPrice    decimal.Decimal `json:"cost_price" gorm:"type:decimal(12,2);not null;default:0"`
	CostPricedAt *time.Time      `json:"cost_priced_at"` // 成本价来源订单的确认时间
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (Product) TableName() string {
	return "pharmacy_products"
}
