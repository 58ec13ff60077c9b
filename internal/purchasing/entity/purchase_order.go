package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// 采购订单状态
const (
	POStatusDraft             = "DRAFT"
	POStatusExported          = "EXPORTED"
	POStatusSubmitted         = "SUBMITTED"
	POStatusConfirmed         = "CONFIRMED"
	POStatusPartiallyReceived = "PARTIALLY_RECEIVED"
	POStatusReceived          = "RECEIVED"
	POStatusCancelled         = "CANCELLED"
)

// ValidPOStatusTransitions 可通过状态接口直接设置的流转。
// CONFIRMED 由确认流程设置，PARTIALLY_RECEIVED/RECEIVED 由收货推导。
var ValidPOStatusTransitions = map[string][]string{
	POStatusDraft:             {POStatusExported, POStatusSubmitted, POStatusCancelled},
	POStatusExported:          {POStatusSubmitted, POStatusCancelled},
	POStatusSubmitted:         {POStatusCancelled},
	POStatusConfirmed:         {POStatusCancelled},
	POStatusPartiallyReceived: {POStatusCancelled},
}

// 允许确认的状态
var ConfirmableStatuses = []string{POStatusDraft, POStatusExported, POStatusSubmitted}

// 允许收货的状态
var ReceivableStatuses = []string{POStatusConfirmed, POStatusPartiallyReceived, POStatusReceived}

// 允许删除的状态
var DeletableStatuses = []string{POStatusDraft, POStatusCancelled}

// PurchaseOrder 采购订单
type PurchaseOrder struct {
	ID          string          `json:"id" gorm:"primaryKey;size:32"`
	OrderNumber string          `json:"order_number" gorm:"size:32;not null;index"`
	PharmacyID  string          `json:"pharmacy_id" gorm:"size:32;not null;index"`
	SupplierID  string          `json:"supplier_id" gorm:"size:32;not null;index"`
	OrderDate   time.Time       `json:"order_date" gorm:"type:date;not null"`
	Status      string          `json:"status" gorm:"size:20;not null;default:DRAFT;index"`
	TotalCost   decimal.Decimal `json:"total_cost" gorm:"type:decimal(12,2);not null;default:0"`
	Notes       string          `json:"notes" gorm:"type:text"`

	ConfirmedAt *time.Time `json:"confirmed_at"`
	ReceivedAt  *time.Time `json:"received_at"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lines []PurchaseOrderLine `json:"lines,omitempty" gorm:"foreignKey:OrderID"`
}

func (PurchaseOrder) TableName() string {
	return "pharmacy_purchase_orders"
}

// PurchaseOrderLine 采购订单行
type PurchaseOrderLine struct {
	ID               string              `json:"id" gorm:"primaryKey;size:32"`
	OrderID          string              `json:"order_id" gorm:"size:32;not null;index"`
	ProductID        string              `json:"product_id" gorm:"size:32;not null;index"`
	Quantity         int                 `json:"quantity" gorm:"not null"`
	UnitCost         decimal.NullDecimal `json:"unit_cost" gorm:"type:decimal(12,2)"`
	ReceivedQuantity int                 `json:"received_quantity" gorm:"not null;default:0"`
	SortOrder        int                 `json:"sort_order" gorm:"default:0"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func (PurchaseOrderLine) TableName() string {
	return "pharmacy_po_lines"
}

// LineByID 按ID查找订单行
func (o *PurchaseOrder) LineByID(id string) *PurchaseOrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == id {
			return &o.Lines[i]
		}
	}
	return nil
}

// StatusIn 判断状态是否在给定集合中
func StatusIn(status string, statuses []string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsValidStatus 是否为已知状态
func IsValidStatus(status string) bool {
	return StatusIn(status, []string{
		POStatusDraft, POStatusExported, POStatusSubmitted, POStatusConfirmed,
		POStatusPartiallyReceived, POStatusReceived, POStatusCancelled,
	})
}

// CanTransition 状态接口是否允许 from → to
func CanTransition(from, to string) bool {
	allowed, ok := ValidPOStatusTransitions[from]
	if !ok {
		return false
	}
	return StatusIn(to, allowed)
}

// ProjectStatus 根据各行的(订购数量, 已收数量)推导订单状态。
// 只返回 CONFIRMED / PARTIALLY_RECEIVED / RECEIVED 之一。
func ProjectStatus(lines []PurchaseOrderLine) string {
	if len(lines) == 0 {
		return POStatusConfirmed
	}

	allFullyReceived := true
	anyPartiallyReceived := false
	for _, l := range lines {
		if l.ReceivedQuantity < l.Quantity {
			allFullyReceived = false
		}
		if l.ReceivedQuantity > 0 {
			anyPartiallyReceived = true
		}
	}

	switch {
	case allFullyReceived:
		return POStatusReceived
	case anyPartiallyReceived:
		return POStatusPartiallyReceived
	default:
		return POStatusConfirmed
	}
}
