package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 采购仓库集合
type Repositories struct {
	Order       *OrderRepository
	Catalog     *CatalogRepository
	ActivityLog *ActivityLogRepository
}

// NewRepositories 创建采购仓库集合；传入事务句柄时所有仓库共用该事务
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order:       NewOrderRepository(db),
		Catalog:     NewCatalogRepository(db),
		ActivityLog: NewActivityLogRepository(db),
	}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
