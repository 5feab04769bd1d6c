package handler

import (
	"net/http"
	"strconv"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"github.com/RastislavMadac/angeapp/internal/erp/events"
	"github.com/RastislavMadac/angeapp/internal/erp/service"
	"github.com/RastislavMadac/angeapp/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers 库存HTTP处理器集合
type Handlers struct {
	Stock      *StockHandler
	Production *ProductionHandler
	Outbound   *OutboundHandler
	Expedition *ExpeditionHandler
	Quality    *QualityHandler
	SSE        *SSEHandler
}

func NewHandlers(services *service.Services, hub *events.Hub) *Handlers {
	return &Handlers{
		Stock:      NewStockHandler(services.Catalog, services.Export),
		Production: NewProductionHandler(services.Production),
		Outbound:   NewOutboundHandler(services.Outbound),
		Expedition: NewExpeditionHandler(services.Expedition),
		Quality:    NewQualityHandler(services.Quality),
		SSE:        NewSSEHandler(hub),
	}
}

// RegisterRoutes mounts the stock API on an authenticated group
func (h *Handlers) RegisterRoutes(v1 *gin.RouterGroup) {
	// 物品与配方
	items := v1.Group("/items")
	{
		items.GET("", h.Stock.ListItems)
		items.POST("", h.Stock.CreateItem)
		items.GET("/:id", h.Stock.GetItem)
		items.GET("/:id/movements", h.Stock.ListMovements)
		items.GET("/:id/recipe", h.Stock.Recipe)
	}
	bom := v1.Group("/bom-edges")
	{
		bom.POST("", h.Stock.AddBOMEdge)
		bom.DELETE("/:id", h.Stock.RemoveBOMEdge)
	}
	v1.GET("/export.xlsx", h.Stock.Export)

	// 生产
	plans := v1.Group("/plans")
	{
		plans.POST("", h.Production.CreatePlan)
		plans.GET("/:id", h.Production.GetPlan)
		plans.POST("/:id/items", h.Production.AddPlanItem)
	}
	v1.POST("/plan-items/:id/cancel", h.Production.CancelPlanItem)
	cards := v1.Group("/cards")
	{
		cards.POST("", h.Production.CreateCard)
		cards.GET("/:id", h.Production.GetCard)
		cards.POST("/:id/produced", h.Production.UpdateProduced)
		cards.POST("/:id/defective", h.Production.UpdateDefective)
		cards.POST("/:id/cancel", h.Production.CancelCard)
		cards.DELETE("/:id", h.Production.DeleteCard)
		cards.GET("/:id/shortages", h.Production.ShortageReport)
	}
	receipts := v1.Group("/receipts")
	{
		receipts.POST("", h.Production.CreateManualReceipt)
		receipts.DELETE("/:id", middleware.RequireRole("manager"), h.Production.DeleteReceipt)
	}

	// 质检
	qc := v1.Group("/quality-checks")
	{
		qc.POST("", h.Quality.Create)
		qc.PUT("/:id", h.Quality.Update)
		qc.POST("/:id/approve", middleware.RequireRole("manager", "qc"), h.Quality.Approve)
	}
	v1.GET("/serials/:id", h.Quality.GetSerial)

	// 订单与出库
	orders := v1.Group("/orders")
	{
		orders.POST("", h.Outbound.CreateOrder)
		orders.GET("/:id", h.Outbound.GetOrder)
		orders.POST("/:id/issue", h.Outbound.IssueOrder)
	}
	issues := v1.Group("/issues")
	{
		issues.GET("/:id", h.Outbound.GetIssue)
		issues.POST("/:id/storno", middleware.RequireRole("manager"), h.Outbound.Storno)
	}

	// 发货
	exps := v1.Group("/expeditions")
	{
		exps.POST("", h.Expedition.Create)
		exps.GET("/:id", h.Expedition.Get)
		exps.POST("/:id/close", h.Expedition.Close)
	}
	lines := v1.Group("/expedition-items")
	{
		lines.POST("/:id/serial", h.Expedition.AssignSerial)
		lines.PUT("/:id/quantity", h.Expedition.SetQuantity)
	}

	v1.GET("/events", h.SSE.Stream)
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "success", Data: data})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{Code: code, Message: message})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// domainStatus maps error codes to HTTP status
var domainStatus = map[string]int{
	entity.CodeInvalidQuantity:        http.StatusBadRequest,
	entity.CodeValidation:             http.StatusBadRequest,
	entity.CodeNonDecreasingViolation: http.StatusBadRequest,
	entity.CodeNotFound:               http.StatusNotFound,
	entity.CodeInsufficientAvailable:  http.StatusConflict,
	entity.CodeInsufficientReserved:   http.StatusConflict,
	entity.CodeInsufficientTotal:      http.StatusConflict,
	entity.CodeInsufficientPlan:       http.StatusConflict,
	entity.CodeOverProduction:         http.StatusConflict,
	entity.CodeInvalidTransition:      http.StatusConflict,
	entity.CodeLocked:                 http.StatusConflict,
	entity.CodeAlreadyStorno:          http.StatusConflict,
	entity.CodeAlreadyShipped:         http.StatusConflict,
	entity.CodeAlreadyUsed:            http.StatusConflict,
	entity.CodeUnassignedSerial:       http.StatusConflict,
	entity.CodeMissingRecipe:          http.StatusUnprocessableEntity,
	entity.CodeWrongProduct:           http.StatusUnprocessableEntity,
	entity.CodeQCFailed:               http.StatusUnprocessableEntity,
	entity.CodeNotInspected:           http.StatusUnprocessableEntity,
	entity.CodeCyclicBOM:              http.StatusUnprocessableEntity,
}

// Fail writes err. Domain errors keep their code and details, anything else
// is a 500.
func Fail(c *gin.Context, err error) {
	de, ok := entity.AsDomainError(err)
	if !ok {
		c.Error(err)
		InternalError(c, err.Error())
		return
	}
	status, ok := domainStatus[de.Code]
	if !ok {
		status = http.StatusBadRequest
	}
	c.Set("error_code", de.Code)
	data := gin.H{"error": de.Code}
	if len(de.Shortages) > 0 {
		data["shortages"] = de.Shortages
	}
	if de.ExpectedProduct != nil {
		data["expected_product"] = de.ExpectedProduct
	}
	c.JSON(status, Response{Code: status * 100, Message: de.Message, Data: data})
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}
	return page, pageSize
}
