package handler

import (
	"github.com/RastislavMadac/angeapp/internal/erp/service"
	"github.com/RastislavMadac/angeapp/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// OutboundHandler 订单与出库
type OutboundHandler struct {
	svc *service.OutboundService
}

func NewOutboundHandler(svc *service.OutboundService) *OutboundHandler {
	return &OutboundHandler{svc: svc}
}

func (h *OutboundHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	order, err := h.svc.CreateOrder(c.Request.Context(), req, middleware.Actor(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, order)
}

func (h *OutboundHandler) GetOrder(c *gin.Context) {
	order, err := h.svc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, order)
}

// IssueOrder POST /orders/:id/issue
func (h *OutboundHandler) IssueOrder(c *gin.Context) {
	issue, err := h.svc.CreateIssueFromOrder(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, issue)
}

func (h *OutboundHandler) GetIssue(c *gin.Context) {
	issue, err := h.svc.GetIssue(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, issue)
}

// Storno POST /issues/:id/storno
func (h *OutboundHandler) Storno(c *gin.Context) {
	issue, err := h.svc.Storno(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, issue)
}

// ExpeditionHandler 发货拣选
type ExpeditionHandler struct {
	svc *service.ExpeditionService
}

func NewExpeditionHandler(svc *service.ExpeditionService) *ExpeditionHandler {
	return &ExpeditionHandler{svc: svc}
}

type createExpeditionRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

func (h *ExpeditionHandler) Create(c *gin.Context) {
	var req createExpeditionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	exp, err := h.svc.CreateExpedition(c.Request.Context(), req.OrderID, middleware.Actor(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, exp)
}

func (h *ExpeditionHandler) Get(c *gin.Context) {
	exp, err := h.svc.GetExpedition(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, exp)
}

type assignSerialRequest struct {
	Serial string `json:"serial" binding:"required"`
}

// AssignSerial POST /expedition-items/:id/serial
func (h *ExpeditionHandler) AssignSerial(c *gin.Context) {
	var req assignSerialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	line, err := h.svc.AssignSerial(c.Request.Context(), c.Param("id"), req.Serial)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, line)
}

type setQuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

func (h *ExpeditionHandler) SetQuantity(c *gin.Context) {
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	line, err := h.svc.SetItemQuantity(c.Request.Context(), c.Param("id"), req.Quantity)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, line)
}

type closeExpeditionRequest struct {
	Status string `json:"status" binding:"required"`
}

// Close POST /expeditions/:id/close {"status": "ready"|"shipped"}
func (h *ExpeditionHandler) Close(c *gin.Context) {
	var req closeExpeditionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	exp, err := h.svc.Close(c.Request.Context(), c.Param("id"), req.Status, middleware.Actor(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, exp)
}
