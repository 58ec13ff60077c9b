package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/entity"
	"go.uber.org/zap"
)

// Result 统一返回信封；边界方法从不返回 error，也不向外抛 panic
type Result[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

// PurchaseOrderAPI 采购订单对外操作
type PurchaseOrderAPI struct {
	orders *OrderService
	logger *zap.Logger
}

func NewPurchaseOrderAPI(orders *OrderService, logger *zap.Logger) *PurchaseOrderAPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseOrderAPI{orders: orders, logger: logger}
}

func invoke[T any](a *PurchaseOrderAPI, op string, fn func() (T, error)) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("purchase order operation panicked", zap.String("op", op), zap.Any("panic", r))
			res = Result[T]{Success: false, Message: fmt.Sprintf("failed to %s purchase order", op)}
		}
	}()

	data, err := fn()
	if err != nil {
		return Result[T]{Success: false, Message: a.message(err)}
	}
	return Result[T]{Success: true, Data: data}
}

func (a *PurchaseOrderAPI) message(err error) string {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Error()
	}
	return err.Error()
}

func inventoryFlag(updateInventory *bool) bool {
	if updateInventory == nil {
		return true
	}
	return *updateInventory
}

// CreatePurchaseOrder 创建草稿订单
func (a *PurchaseOrderAPI) CreatePurchaseOrder(ctx context.Context, pharmacyID, userID string, req *CreateOrderRequest) Result[*entity.PurchaseOrder] {
	return invoke(a, "create", func() (*entity.PurchaseOrder, error) {
		if req == nil {
			return nil, validationf("request is required")
		}
		return a.orders.Create(ctx, pharmacyID, userID, req)
	})
}

// UpdatePurchaseOrder 更新草稿订单
func (a *PurchaseOrderAPI) UpdatePurchaseOrder(ctx context.Context, id, pharmacyID, userID string, req *UpdateOrderRequest) Result[*entity.PurchaseOrder] {
	return invoke(a, "update", func() (*entity.PurchaseOrder, error) {
		if req == nil {
			return nil, validationf("request is required")
		}
		return a.orders.Update(ctx, id, pharmacyID, userID, req)
	})
}

// UpdatePurchaseOrderStatus 设置订单状态
func (a *PurchaseOrderAPI) UpdatePurchaseOrderStatus(ctx context.Context, id, pharmacyID, userID, status string) Result[*entity.PurchaseOrder] {
	return invoke(a, "update status of", func() (*entity.PurchaseOrder, error) {
		return a.orders.UpdateStatus(ctx, id, pharmacyID, userID, status)
	})
}

// ConfirmPurchaseOrder 确认订单
func (a *PurchaseOrderAPI) ConfirmPurchaseOrder(ctx context.Context, id, pharmacyID, userID string, items map[string]ConfirmedItem) Result[*entity.PurchaseOrder] {
	return invoke(a, "confirm", func() (*entity.PurchaseOrder, error) {
		return a.orders.Confirm(ctx, id, pharmacyID, userID, items)
	})
}

// UpdateReceivedQuantities 登记收货并同步库存
func (a *PurchaseOrderAPI) UpdateReceivedQuantities(ctx context.Context, id, pharmacyID, userID string, quantities map[string]int) Result[*entity.PurchaseOrder] {
	return invoke(a, "receive", func() (*entity.PurchaseOrder, error) {
		return a.orders.Receive(ctx, id, pharmacyID, userID, quantities, true)
	})
}

// ReceiveAllItems 全部收货；updateInventory 为 nil 时同步库存
func (a *PurchaseOrderAPI) ReceiveAllItems(ctx context.Context, id, pharmacyID, userID string, updateInventory *bool) Result[*entity.PurchaseOrder] {
	return invoke(a, "receive", func() (*entity.PurchaseOrder, error) {
		return a.orders.ReceiveAll(ctx, id, pharmacyID, userID, inventoryFlag(updateInventory))
	})
}

// PartiallyReceiveItems 部分收货；updateInventory 为 nil 时同步库存
func (a *PurchaseOrderAPI) PartiallyReceiveItems(ctx context.Context, id, pharmacyID, userID string, quantities map[string]int, updateInventory *bool) Result[*entity.PurchaseOrder] {
	return invoke(a, "receive", func() (*entity.PurchaseOrder, error) {
		return a.orders.Receive(ctx, id, pharmacyID, userID, quantities, inventoryFlag(updateInventory))
	})
}

// DeletePurchaseOrder 删除订单，返回被删除的订单ID
func (a *PurchaseOrderAPI) DeletePurchaseOrder(ctx context.Context, id, pharmacyID, userID string) Result[string] {
	return invoke(a, "delete", func() (string, error) {
		if err := a.orders.Delete(ctx, id, pharmacyID, userID); err != nil {
			return "", err
		}
		return id, nil
	})
}

// GetPurchaseOrder 获取订单详情
func (a *PurchaseOrderAPI) GetPurchaseOrder(ctx context.Context, id, pharmacyID string) Result[*entity.PurchaseOrder] {
	return invoke(a, "load", func() (*entity.PurchaseOrder, error) {
		return a.orders.Get(ctx, id, pharmacyID)
	})
}

// ListPurchaseOrders 分页查询订单
func (a *PurchaseOrderAPI) ListPurchaseOrders(ctx context.Context, pharmacyID string, params ListParams) Result[*OrderPage] {
	return invoke(a, "list", func() (*OrderPage, error) {
		return a.orders.List(ctx, pharmacyID, params)
	})
}
