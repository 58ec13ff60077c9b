package handler

import (
	"errors"

	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/service"
	"github.com/gin-gonic/gin"
)

// Handlers 采购处理器集合
type Handlers struct {
	PO *POHandler
}

// NewHandlers 创建采购处理器集合
func NewHandlers(svcs *service.Services) *Handlers {
	return &Handlers{
		PO: NewPOHandler(svcs.Order),
	}
}

// 业务错误码，HTTP 状态为 code/100
const (
	codeOK         = 0
	codeBadRequest = 40000
	codeNotFound   = 40400
	codeConflict   = 40900
	codeInternal   = 50000
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Code: codeOK, Message: "success", Data: data})
}

func fail(c *gin.Context, code int, message string) {
	c.JSON(code/100, Response{Code: code, Message: message})
}

func invalidRequest(c *gin.Context, err error) {
	fail(c, codeBadRequest, "invalid request: "+err.Error())
}

// ServiceError 按服务层错误类型映射响应码；存储错误只返回通用信息
func ServiceError(c *gin.Context, err error) {
	var ve *service.ValidationError
	var nf *service.NotFoundError
	var ts *service.TerminalStateError
	var se *service.StorageError
	switch {
	case errors.As(err, &ve):
		fail(c, codeBadRequest, ve.Error())
	case errors.As(err, &nf):
		fail(c, codeNotFound, nf.Error())
	case errors.As(err, &ts):
		fail(c, codeConflict, ts.Error())
	case errors.As(err, &se):
		fail(c, codeInternal, se.Error())
	default:
		fail(c, codeInternal, "internal error")
	}
}

// tenant 取 JWTAuth 写入的门店与操作人
func tenant(c *gin.Context) (pharmacyID, userID string) {
	return c.GetString("pharmacy_id"), c.GetString("user_id")
}

type pageQuery struct {
	Page     int `form:"page,default=1" binding:"min=1"`
	PageSize int `form:"page_size,default=20" binding:"min=1,max=100"`
}

type pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

type pagedList struct {
	Items      interface{} `json:"items"`
	Pagination pagination  `json:"pagination"`
}

func newPagedList(items interface{}, q pageQuery, total int64) pagedList {
	size := int64(q.PageSize)
	return pagedList{
		Items: items,
		Pagination: pagination{
			Page:       q.Page,
			PageSize:   q.PageSize,
			Total:      total,
			TotalPages: (total + size - 1) / size,
		},
	}
}
