package handler

import (
	"net/http"

	"github.com/bitfantasy/nimo-pharmacy/internal/middleware"
	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/service"
	"github.com/gin-gonic/gin"
)

// ManagerRole 可删除订单的角色
const ManagerRole = "purchasing_manager"

// POHandler 采购订单处理器
type POHandler struct {
	svc *service.OrderService
}

func NewPOHandler(svc *service.OrderService) *POHandler {
	return &POHandler{svc: svc}
}

// RegisterRoutes 注册采购订单路由（group 需已挂载 JWTAuth）
func (h *POHandler) RegisterRoutes(group *gin.RouterGroup) {
	pos := group.Group("/purchase-orders")
	pos.GET("", h.ListPOs)
	pos.POST("", h.CreatePO)
	pos.GET("/:id", h.GetPO)
	pos.PUT("/:id", h.UpdatePO)
	pos.DELETE("/:id", middleware.RequireRole(ManagerRole), h.DeletePO)
	pos.PUT("/:id/status", h.UpdateStatus)
	pos.GET("/:id/activity", h.ListActivity)
	pos.POST("/:id/confirm", h.ConfirmPO)
	pos.POST("/:id/receive", h.ReceivePO)
	pos.POST("/:id/receive-all", h.ReceiveAll)
}

// ListPOs 采购订单列表
// GET /api/v1/pharmacy/purchase-orders?status=xxx&supplier_id=xxx&search=xxx
func (h *POHandler) ListPOs(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalidRequest(c, err)
		return
	}
	pharmacyID, _ := tenant(c)
	result, err := h.svc.List(c.Request.Context(), pharmacyID, service.ListParams{
		Status:     c.Query("status"),
		SupplierID: c.Query("supplier_id"),
		Search:     c.Query("search"),
		Page:       q.Page,
		PageSize:   q.PageSize,
	})
	if err != nil {
		ServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, newPagedList(result.Items, q, result.Total))
}

// GetPO 采购订单详情
// GET /api/v1/pharmacy/purchase-orders/:id
func (h *POHandler) GetPO(c *gin.Context) {
	pharmacyID, _ := tenant(c)
	po, err := h.svc.Get(c.Request.Context(), c.Param("id"), pharmacyID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, po)
}

// CreatePO 创建采购订单
// POST /api/v1/pharmacy/purchase-orders
func (h *POHandler) CreatePO(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	pharmacyID, userID := tenant(c)
	po, err := h.svc.Create(c.Request.Context(), pharmacyID, userID, &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	respond(c, http.StatusCreated, po)
}

// UpdatePO 更新草稿订单
// PUT /api/v1/pharmacy/purchase-orders/:id
func (h *POHandler) UpdatePO(c *gin.Context) {
	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	pharmacyID, userID := tenant(c)
	po, err := h.svc.Update(c.Request.Context(), c.Param("id"), pharmacyID, userID, &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, po)
}

// DeletePO 删除订单
// DELETE /api/v1/pharmacy/purchase-orders/:id
func (h *POHandler) DeletePO(c *gin.Context) {
	id := c.Param("id")
	pharmacyID, userID := tenant(c)
	if err := h.svc.Delete(c.Request.Context(), id, pharmacyID, userID); err != nil {
		ServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus 设置订单状态
// PUT /api/v1/pharmacy/purchase-orders/:id/status
func (h *POHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	pharmacyID, userID := tenant(c)
	po, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), pharmacyID, userID, req.Status)
	if err != nil {
		ServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, po)
}

// ListActivity 订单操作日志
// GET /api/v1/pharmacy/purchase-orders/:id/activity
func (h *POHandler) ListActivity(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalidRequest(c, err)
		return
	}
	pharmacyID, _ := tenant(c)
	logs, total, err := h.svc.ActivityLogs(c.Request.Context(), c.Param("id"), pharmacyID, q.Page, q.PageSize)
	if err != nil {
		ServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, newPagedList(logs, q, total))
}

type confirmRequest struct {
	Items map[string]service.ConfirmedItem `json:"items" binding:"required"`
}

// ConfirmPO 按供应商报价确认订单
// POST /api/v1/pharmacy/purchase-orders/:id/confirm
func (h *POHandler) ConfirmPO(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	pharmacyID, userID := tenant(c)
	po, err := h.svc.Confirm(c.Request.Context(), c.Param("id"), pharmacyID, userID, req.Items)
	if err != nil {
		ServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, po)
}

type receiveRequest struct {
	Quantities      map[string]int `json:"quantities" binding:"required"`
	UpdateInventory *bool          `json:"update_inventory"`
}

type receiveAllRequest struct {
	UpdateInventory *bool `json:"update_inventory"`
}

func inventoryFlag(v *bool) bool {
	return v == nil || *v
}

// ReceivePO 登记收货数量
// POST /api/v1/pharmacy/purchase-orders/:id/receive
func (h *POHandler) ReceivePO(c *gin.Context) {
	var req receiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	pharmacyID, userID := tenant(c)
	po, err := h.svc.Receive(c.Request.Context(), c.Param("id"), pharmacyID, userID, req.Quantities, inventoryFlag(req.UpdateInventory))
	if err != nil {
		ServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, po)
}

// ReceiveAll 全部收货
// POST /api/v1/pharmacy/purchase-orders/:id/receive-all
func (h *POHandler) ReceiveAll(c *gin.Context) {
	var req receiveAllRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidRequest(c, err)
			return
		}
	}

	pharmacyID, userID := tenant(c)
	po, err := h.svc.ReceiveAll(c.Request.Context(), c.Param("id"), pharmacyID, userID, inventoryFlag(req.UpdateInventory))
	if err != nil {
		ServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, po)
}
