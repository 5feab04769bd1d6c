package handler

import (
	"github.com/RastislavMadac/angeapp/internal/erp/service"
	"github.com/RastislavMadac/angeapp/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ProductionHandler 计划、生产卡与入库
type ProductionHandler struct {
	svc *service.ProductionService
}

func NewProductionHandler(svc *service.ProductionService) *ProductionHandler {
	return &ProductionHandler{svc: svc}
}

// quantityRequest is the body of progress updates
type quantityRequest struct {
	Quantity int64 `json:"quantity"`
}

func (h *ProductionHandler) CreatePlan(c *gin.Context) {
	var req service.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	plan, err := h.svc.CreatePlan(c.Request.Context(), req, middleware.Actor(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, plan)
}

func (h *ProductionHandler) GetPlan(c *gin.Context) {
	plan, err := h.svc.GetPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, plan)
}

func (h *ProductionHandler) AddPlanItem(c *gin.Context) {
	var req service.AddPlanItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	item, err := h.svc.AddPlanItem(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, item)
}

func (h *ProductionHandler) CancelPlanItem(c *gin.Context) {
	item, err := h.svc.CancelPlanItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, item)
}

// CreateCard POST /cards
func (h *ProductionHandler) CreateCard(c *gin.Context) {
	var req service.CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	res, err := h.svc.CreateCard(c.Request.Context(), req, middleware.Actor(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, res)
}

func (h *ProductionHandler) GetCard(c *gin.Context) {
	card, err := h.svc.GetCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, card)
}

// UpdateProduced POST /cards/:id/produced {"quantity": n}
func (h *ProductionHandler) UpdateProduced(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	res, err := h.svc.UpdateProduced(c.Request.Context(), c.Param("id"), req.Quantity, middleware.Actor(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, res)
}

func (h *ProductionHandler) UpdateDefective(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	res, err := h.svc.UpdateDefective(c.Request.Context(), c.Param("id"), req.Quantity)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, res)
}

func (h *ProductionHandler) CancelCard(c *gin.Context) {
	res, err := h.svc.CancelCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, res)
}

func (h *ProductionHandler) DeleteCard(c *gin.Context) {
	planItem, err := h.svc.DeleteCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, planItem)
}

// ShortageReport GET /cards/:id/shortages, id "all" covers every active card
func (h *ProductionHandler) ShortageReport(c *gin.Context) {
	cardID := c.Param("id")
	if cardID == "all" {
		cardID = ""
	}
	report, err := h.svc.ShortageReport(c.Request.Context(), cardID)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, report)
}

func (h *ProductionHandler) CreateManualReceipt(c *gin.Context) {
	var req service.ManualReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	receipt, err := h.svc.CreateManualReceipt(c.Request.Context(), req, middleware.Actor(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, receipt)
}

func (h *ProductionHandler) DeleteReceipt(c *gin.Context) {
	if err := h.svc.DeleteReceipt(c.Request.Context(), c.Param("id"), middleware.Actor(c)); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}
