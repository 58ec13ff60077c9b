package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/entity"
	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const orderDateLayout = "2006-01-02"

// OrderItemInput 订单行输入
type OrderItemInput struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitCost  *string `json:"unit_cost"`
}

// CreateOrderRequest 创建采购订单请求
type CreateOrderRequest struct {
	SupplierID string           `json:"supplier_id"`
	OrderDate  string           `json:"order_date"`
	Notes      string           `json:"notes"`
	Items      []OrderItemInput `json:"items"`
}

// UpdateOrderRequest 更新采购订单请求；Items 非 nil 时整体替换订单行
type UpdateOrderRequest struct {
	SupplierID *string          `json:"supplier_id"`
	OrderDate  *string          `json:"order_date"`
	Notes      *string          `json:"notes"`
	Items      []OrderItemInput `json:"items"`
}

// ListParams 列表查询参数
type ListParams struct {
	Status     string
	SupplierID string
	Search     string
	Page       int
	PageSize   int
}

// OrderPage 分页结果
type OrderPage struct {
	Items    []entity.PurchaseOrder `json:"items"`
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
}

func (s *OrderService) orderNumber(now time.Time) string {
	return "PO-" + now.Format("20060102150405")
}

func parseOrderDate(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(orderDateLayout, value)
	if err != nil {
		return time.Time{}, validationf("invalid order date %q, expected YYYY-MM-DD", value)
	}
	return d, nil
}

// buildLines 校验订单行格式（不访问存储）
func buildLines(orderID string, items []OrderItemInput) ([]entity.PurchaseOrderLine, error) {
	if len(items) == 0 {
		return nil, validationf("at least one item is required")
	}
	lines := make([]entity.PurchaseOrderLine, 0, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return nil, validationf("item %d: product id is required", i+1)
		}
		if item.Quantity <= 0 {
			return nil, validationf("item %d: quantity must be a positive integer", i+1)
		}
		line := entity.PurchaseOrderLine{
			ID:        uuid.New().String()[:32],
			OrderID:   orderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			SortOrder: i + 1,
		}
		if item.UnitCost != nil && *item.UnitCost != "" {
			cost, ok := parseMoney(*item.UnitCost)
			if !ok {
				return nil, validationf("item %d: invalid unit cost %q", i+1, *item.UnitCost)
			}
			line.UnitCost = decimal.NullDecimal{Decimal: cost, Valid: true}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// checkProducts 校验商品存在于本门店目录
func (s *OrderService) checkProducts(ctx context.Context, tx *gorm.DB, pharmacyID string, lines []entity.PurchaseOrderLine) error {
	catalog := s.catalog(tx)
	for _, l := range lines {
		if _, err := catalog.GetProduct(ctx, l.ProductID, pharmacyID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return validationf("product not found: %s", l.ProductID)
			}
			return err
		}
	}
	return nil
}

// Create 创建采购订单（DRAFT）
func (s *OrderService) Create(ctx context.Context, pharmacyID, userID string, req *CreateOrderRequest) (*entity.PurchaseOrder, error) {
	if strings.TrimSpace(req.SupplierID) == "" {
		return nil, validationf("supplier id is required")
	}
	now := s.now()
	orderDate, err := parseOrderDate(req.OrderDate, now)
	if err != nil {
		return nil, err
	}

	po := &entity.PurchaseOrder{
		ID:          uuid.New().String()[:32],
		OrderNumber: s.orderNumber(now),
		PharmacyID:  pharmacyID,
		SupplierID:  req.SupplierID,
		OrderDate:   orderDate,
		Status:      entity.POStatusDraft,
		TotalCost:   decimal.Zero,
		Notes:       req.Notes,
		CreatedBy:   userID,
	}
	po.Lines, err = buildLines(po.ID, req.Items)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkProducts(ctx, tx, pharmacyID, po.Lines); err != nil {
			return err
		}
		return repository.NewOrderRepository(tx).Create(ctx, po)
	})
	if err != nil {
		return nil, s.finish("create", po.ID, pharmacyID, err)
	}

	s.recordActivity(ctx, po, entity.ActionPOCreated, "", entity.POStatusDraft, userID, entity.JSONB{
		"supplier_id": po.SupplierID,
		"line_count":  len(po.Lines),
	})
	return po, nil
}

// Update 更新草稿订单
func (s *OrderService) Update(ctx context.Context, id, pharmacyID, userID string, req *UpdateOrderRequest) (*entity.PurchaseOrder, error) {
	if req.SupplierID != nil && strings.TrimSpace(*req.SupplierID) == "" {
		return nil, validationf("supplier id is required")
	}
	var newLines []entity.PurchaseOrderLine
	if req.Items != nil {
		var err error
		if newLines, err = buildLines(id, req.Items); err != nil {
			return nil, err
		}
	}

	var po *entity.PurchaseOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := repository.NewOrderRepository(tx)
		var err error
		po, err = orders.FindByIDForUpdate(ctx, id, pharmacyID)
		if err != nil {
			return orderNotFound(id, err)
		}
		if po.Status != entity.POStatusDraft {
			return &TerminalStateError{Status: po.Status, Op: "update"}
		}

		if req.SupplierID != nil {
			po.SupplierID = *req.SupplierID
		}
		if req.OrderDate != nil {
			d, err := parseOrderDate(*req.OrderDate, s.now())
			if err != nil {
				return err
			}
			po.OrderDate = d
		}
		if req.Notes != nil {
			po.Notes = *req.Notes
		}

		if newLines != nil {
			if err := s.checkProducts(ctx, tx, pharmacyID, newLines); err != nil {
				return err
			}
			if err := orders.ReplaceLines(ctx, po.ID, newLines); err != nil {
				return err
			}
			po.Lines = newLines
		}
		return orders.UpdateHeader(ctx, po)
	})
	if err != nil {
		return nil, s.finish("update", id, pharmacyID, err)
	}

	s.cache.Invalidate(ctx, pharmacyID, id)
	s.recordActivity(ctx, po, entity.ActionPOUpdated, po.Status, po.Status, userID, entity.JSONB{
		"lines_replaced": newLines != nil,
		"line_count":     len(po.Lines),
	})
	return po, nil
}

// Delete 删除订单，仅限 DRAFT / CANCELLED
func (s *OrderService) Delete(ctx context.Context, id, pharmacyID, userID string) error {
	var po *entity.PurchaseOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := repository.NewOrderRepository(tx)
		var err error
		po, err = orders.FindByIDForUpdate(ctx, id, pharmacyID)
		if err != nil {
			return orderNotFound(id, err)
		}
		if !entity.StatusIn(po.Status, entity.DeletableStatuses) {
			return &TerminalStateError{Status: po.Status, Op: "delete"}
		}
		return orderNotFound(id, orders.Delete(ctx, id, pharmacyID))
	})
	if err != nil {
		return s.finish("delete", id, pharmacyID, err)
	}

	s.cache.Invalidate(ctx, pharmacyID, id)
	s.recordActivity(ctx, po, entity.ActionPODeleted, po.Status, "", userID, nil)
	return nil
}

// UpdateStatus 直接设置状态（导出/提交/取消）
func (s *OrderService) UpdateStatus(ctx context.Context, id, pharmacyID, userID, status string) (*entity.PurchaseOrder, error) {
	if !entity.IsValidStatus(status) {
		return nil, validationf("unknown status %q", status)
	}

	var po *entity.PurchaseOrder
	var fromStatus string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := repository.NewOrderRepository(tx)
		var err error
		po, err = orders.FindByIDForUpdate(ctx, id, pharmacyID)
		if err != nil {
			return orderNotFound(id, err)
		}
		fromStatus = po.Status
		if !entity.CanTransition(po.Status, status) {
			return &TerminalStateError{Status: po.Status, Op: "set status " + status + " on"}
		}
		po.Status = status
		return orders.UpdateHeader(ctx, po)
	})
	if err != nil {
		return nil, s.finish("update status of", id, pharmacyID, err)
	}

	s.cache.Invalidate(ctx, pharmacyID, id)
	s.recordActivity(ctx, po, entity.ActionPOStatusChanged, fromStatus, status, userID, nil)
	return po, nil
}

// Get 获取订单详情（先查缓存）
func (s *OrderService) Get(ctx context.Context, id, pharmacyID string) (*entity.PurchaseOrder, error) {
	if po, ok := s.cache.Get(ctx, pharmacyID, id); ok {
		return po, nil
	}
	orders := repository.NewOrderRepository(s.db)
	po, err := orders.FindByID(ctx, id, pharmacyID)
	if err != nil {
		return nil, s.finish("load", id, pharmacyID, orderNotFound(id, err))
	}
	s.cache.Set(ctx, po)
	// 写操作在提交后才失效缓存；回填后再核对一次版本，读到旧值的回填在此撤销
	if updatedAt, err := orders.UpdatedAt(ctx, id, pharmacyID); err != nil || !updatedAt.Equal(po.UpdatedAt) {
		s.cache.Invalidate(ctx, pharmacyID, id)
	}
	return po, nil
}

// List 获取门店订单列表
func (s *OrderService) List(ctx context.Context, pharmacyID string, params ListParams) (*OrderPage, error) {
	if params.Status != "" && !entity.IsValidStatus(params.Status) {
		return nil, validationf("unknown status %q", params.Status)
	}
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 20
	}
	items, total, err := repository.NewOrderRepository(s.db).FindAll(ctx, pharmacyID, params.Page, params.PageSize, map[string]string{
		"status":      params.Status,
		"supplier_id": params.SupplierID,
		"search":      params.Search,
	})
	if err != nil {
		return nil, s.finish("list", "", pharmacyID, err)
	}
	return &OrderPage{Items: items, Total: total, Page: params.Page, PageSize: params.PageSize}, nil
}

// ActivityLogs 查询订单操作日志；订单须存在于本门店
func (s *OrderService) ActivityLogs(ctx context.Context, id, pharmacyID string, page, pageSize int) ([]entity.ActivityLog, int64, error) {
	if _, err := repository.NewOrderRepository(s.db).UpdatedAt(ctx, id, pharmacyID); err != nil {
		return nil, 0, s.finish("load activity of", id, pharmacyID, orderNotFound(id, err))
	}
	logs, total, err := repository.NewActivityLogRepository(s.db).FindByEntity(ctx, pharmacyID, entity.EntityTypePurchaseOrder, id, page, pageSize)
	if err != nil {
		return nil, 0, s.finish("load activity of", id, pharmacyID, err)
	}
	return logs, total, nil
}
