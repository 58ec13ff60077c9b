package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// 操作日志动作
const (
	ActionPOCreated           = "PO_CREATED"
	ActionPOUpdated           = "PO_UPDATED"
	ActionPOStatusChanged     = "PO_STATUS_CHANGED"
	ActionPOConfirmed         = "PO_CONFIRMED"
	ActionPOReceived          = "PO_RECEIVED"
	ActionPOPartiallyReceived = "PO_PARTIALLY_RECEIVED"
	ActionPODeleted           = "PO_DELETED"
)

const EntityTypePurchaseOrder = "purchase_order"

// JSONB JSON对象列
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

// ActivityLog 采购操作日志
type ActivityLog struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	PharmacyID string `json:"pharmacy_id" gorm:"size:32;not null;index"`
	EntityType string `json:"entity_type" gorm:"size:50;not null;index:idx_pharmacy_activity_entity"`
	EntityID   string `json:"entity_id" gorm:"size:32;not null;index:idx_pharmacy_activity_entity"`
	EntityCode string `json:"entity_code" gorm:"size:50"`

	Action     string `json:"action" gorm:"size:50;not null"`
	FromStatus string `json:"from_status" gorm:"size:20"`
	ToStatus   string `json:"to_status" gorm:"size:20"`
	Details    JSONB  `json:"details" gorm:"type:text"`

	OperatorID string    `json:"operator_id" gorm:"size:32"`
	CreatedAt  time.Time `json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "pharmacy_activity_logs"
}

// AutoMigrate 自动迁移采购相关表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Product{},
		&PurchaseOrder{},
		&PurchaseOrderLine{},
		&ActivityLog{},
	)
}
