package handler

import (
	"github.com/RastislavMadac/angeapp/internal/erp/service"
	"github.com/RastislavMadac/angeapp/internal/middleware"
	"github.com/gin-gonic/gin"
)

// QualityHandler 质检
type QualityHandler struct {
	svc *service.QualityService
}

func NewQualityHandler(svc *service.QualityService) *QualityHandler {
	return &QualityHandler{svc: svc}
}

func (h *QualityHandler) Create(c *gin.Context) {
	var req service.CreateQualityCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	check, unit, err := h.svc.CreateQualityCheck(c.Request.Context(), req, middleware.Actor(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, gin.H{"check": check, "unit": unit})
}

func (h *QualityHandler) Update(c *gin.Context) {
	var req service.UpdateQualityCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	check, err := h.svc.UpdateQualityCheck(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, check)
}

func (h *QualityHandler) Approve(c *gin.Context) {
	check, err := h.svc.ApproveForShipping(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, check)
}

func (h *QualityHandler) GetSerial(c *gin.Context) {
	unit, err := h.svc.GetSerial(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, unit)
}
