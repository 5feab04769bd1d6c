package handler

import (
	"net/http"

	"github.com/RastislavMadac/angeapp/internal/erp/service"
	"github.com/gin-gonic/gin"
)

type StockHandler struct {
	catalog *service.CatalogService
	export  *service.ExportService
}

func NewStockHandler(catalog *service.CatalogService, export *service.ExportService) *StockHandler {
	return &StockHandler{catalog: catalog, export: export}
}

// ListItems GET /items?type=RAW
func (h *StockHandler) ListItems(c *gin.Context) {
	items, err := h.catalog.ListItems(c.Request.Context(), c.Query("type"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, items)
}

func (h *StockHandler) CreateItem(c *gin.Context) {
	var req service.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	item, err := h.catalog.CreateItem(c.Request.Context(), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, item)
}

func (h *StockHandler) GetItem(c *gin.Context) {
	item, err := h.catalog.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, item)
}

// ListMovements GET /items/:id/movements
func (h *StockHandler) ListMovements(c *gin.Context) {
	page, pageSize := GetPagination(c)
	list, total, err := h.catalog.ListMovements(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ListResponse{Items: list, Total: total, Page: page, PageSize: pageSize})
}

func (h *StockHandler) Recipe(c *gin.Context) {
	edges, err := h.catalog.Recipe(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, edges)
}

func (h *StockHandler) AddBOMEdge(c *gin.Context) {
	var req service.AddBOMEdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	edge, err := h.catalog.AddBOMEdge(c.Request.Context(), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, edge)
}

func (h *StockHandler) RemoveBOMEdge(c *gin.Context) {
	if err := h.catalog.RemoveBOMEdge(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// Export GET /export
func (h *StockHandler) Export(c *gin.Context) {
	f, filename, err := h.export.ExportStock(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
