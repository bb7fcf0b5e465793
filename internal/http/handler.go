package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/trip-settlements/internal/http/middleware"
	"github.com/nurpe/trip-settlements/internal/model"
	"github.com/nurpe/trip-settlements/internal/service"
)

type Handler struct {
	settlements *service.SettlementService
	expenses    *service.ExpenseService
	exports     *service.ExportService
	log         zerolog.Logger
}

func NewHandler(settlements *service.SettlementService, expenses *service.ExpenseService, exports *service.ExportService, log zerolog.Logger) *Handler {
	return &Handler{settlements: settlements, expenses: expenses, exports: exports, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	elevated := middleware.RequireRoles(model.RoleDirector, model.RoleAdmin, model.RoleSystems)
	owners := middleware.RequireRoles(model.RoleCapturist, model.RoleSystems)
	systems := middleware.RequireRoles(model.RoleSystems)

	protected := router.Group("/")
	protected.Use(authMiddleware)

	settlements := protected.Group("/settlements")
	settlements.POST("", owners, h.createSettlement)
	settlements.GET("/:id", h.getSettlement)
	settlements.PUT("/:id", h.updateSettlement)
	settlements.DELETE("/:id", owners, h.deleteSettlement)
	settlements.PATCH("/:id/status", h.changeStatus)
	settlements.PATCH("/:id/adjust", elevated, h.adjust)
	settlements.PATCH("/:id/net-payable", elevated, h.overrideNetPayable)
	settlements.PATCH("/:id/commission-paid", elevated, h.overrideCommissionPaid)
	settlements.POST("/:id/recompute", systems, h.recompute)
	settlements.GET("/:id/export.xlsx", h.exportWorkbook)
	settlements.GET("/:id/export.pdf", h.exportReceipt)
	settlements.GET("/:id/expenses/:category", h.listExpenses)
	settlements.POST("/:id/expenses/:category", h.createExpense)

	expenses := protected.Group("/expenses")
	expenses.PUT("/:category/:expenseID", h.updateExpense)
	expenses.DELETE("/:category/:expenseID", h.deleteExpense)
}

type createSettlementRequest struct {
	Folio                string           `json:"folio"`
	Client               string           `json:"client" binding:"required"`
	UnitID               string           `json:"unit_id" binding:"required"`
	OperatorID           string           `json:"operator_id" binding:"required"`
	StartDate            string           `json:"start_date" binding:"required"`
	EndDate              string           `json:"end_date" binding:"required"`
	ArrivalDate          string           `json:"arrival_date" binding:"required"`
	DistanceKm           decimal.Decimal  `json:"distance_km"`
	TabulatedYield       decimal.Decimal  `json:"tabulated_yield"`
	FerryCost            decimal.Decimal  `json:"ferry_cost"`
	CommissionPercentage *decimal.Decimal `json:"commission_percentage"`
}

type updateSettlementRequest struct {
	Client               *string          `json:"client"`
	UnitID               *string          `json:"unit_id"`
	OperatorID           *string          `json:"operator_id"`
	StartDate            *string          `json:"start_date"`
	EndDate              *string          `json:"end_date"`
	ArrivalDate          *string          `json:"arrival_date"`
	DistanceKm           *decimal.Decimal `json:"distance_km"`
	TabulatedYield       *decimal.Decimal `json:"tabulated_yield"`
	FerryCost            *decimal.Decimal `json:"ferry_cost"`
	CommissionPercentage *decimal.Decimal `json:"commission_percentage"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type adjustRequest struct {
	TabulatedYield       *decimal.Decimal `json:"tabulated_yield"`
	CommissionPercentage *decimal.Decimal `json:"commission_percentage"`
	ManualAdjustment     decimal.Decimal  `json:"manual_adjustment"`
	Reason               string           `json:"reason"`
}

type netPayableRequest struct {
	NetPayable *decimal.Decimal `json:"net_payable"`
}

type commissionPaidRequest struct {
	CommissionPaid *decimal.Decimal `json:"commission_paid"`
}

type expenseRequest struct {
	Amount  *decimal.Decimal `json:"amount"`
	Liters  decimal.Decimal  `json:"liters"`
	Concept string           `json:"concept"`
}

type expenseResponse struct {
	Expense    *model.Expense    `json:"expense"`
	Settlement *model.Settlement `json:"settlement"`
}

func (h *Handler) createSettlement(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req createSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	unitID, err := uuid.Parse(strings.TrimSpace(req.UnitID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit_id"})
		return
	}
	operatorID, err := uuid.Parse(strings.TrimSpace(req.OperatorID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid operator_id"})
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
		return
	}
	arrival, err := parseDate(req.ArrivalDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid arrival_date"})
		return
	}

	percentage := decimal.Zero
	if req.CommissionPercentage != nil {
		percentage = *req.CommissionPercentage
	}

	settlement, err := h.settlements.Create(c.Request.Context(), service.CreateSettlementInput{
		Folio:                req.Folio,
		Client:               req.Client,
		UnitID:               unitID,
		OperatorID:           operatorID,
		StartDate:            start,
		EndDate:              end,
		ArrivalDate:          arrival,
		DistanceKm:           req.DistanceKm,
		TabulatedYield:       req.TabulatedYield,
		FerryCost:            req.FerryCost,
		CommissionPercentage: percentage,
		Principal:            principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, settlement)
}

func (h *Handler) getSettlement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	settlement, err := h.settlements.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

func (h *Handler) updateSettlement(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := service.UpdateSettlementInput{
		SettlementID:         id,
		Client:               req.Client,
		DistanceKm:           req.DistanceKm,
		TabulatedYield:       req.TabulatedYield,
		FerryCost:            req.FerryCost,
		CommissionPercentage: req.CommissionPercentage,
		Principal:            principal,
	}

	var err error
	if input.UnitID, err = optionalUUID(req.UnitID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit_id"})
		return
	}
	if input.OperatorID, err = optionalUUID(req.OperatorID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid operator_id"})
		return
	}
	if input.StartDate, err = optionalDate(req.StartDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return
	}
	if input.EndDate, err = optionalDate(req.EndDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
		return
	}
	if input.ArrivalDate, err = optionalDate(req.ArrivalDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid arrival_date"})
		return
	}

	settlement, err := h.settlements.Update(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

func (h *Handler) deleteSettlement(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.settlements.Delete(c.Request.Context(), id, principal); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) changeStatus(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	target, ok := model.ParseStatus(req.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	settlement, err := h.settlements.TransitionState(c.Request.Context(), id, target, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

func (h *Handler) adjust(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TabulatedYield == nil || req.CommissionPercentage == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tabulated_yield and commission_percentage are required"})
		return
	}

	settlement, err := h.settlements.Adjust(c.Request.Context(), service.AdjustInput{
		SettlementID:         id,
		TabulatedYield:       *req.TabulatedYield,
		CommissionPercentage: *req.CommissionPercentage,
		ManualAdjustment:     req.ManualAdjustment,
		Reason:               req.Reason,
		Principal:            principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

func (h *Handler) overrideNetPayable(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req netPayableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.NetPayable == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "net_payable is required"})
		return
	}

	settlement, err := h.settlements.OverrideNetPayable(c.Request.Context(), id, *req.NetPayable, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

func (h *Handler) overrideCommissionPaid(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req commissionPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settlement, err := h.settlements.OverrideCommissionPaid(c.Request.Context(), id, req.CommissionPaid, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

func (h *Handler) recompute(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	settlement, err := h.settlements.Recompute(c.Request.Context(), id, &principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

func (h *Handler) exportWorkbook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.exports.Workbook(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, result)
}

func (h *Handler) exportReceipt(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.exports.Receipt(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, result)
}

func (h *Handler) listExpenses(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	category, ok := pathCategory(c)
	if !ok {
		return
	}

	rows, err := h.expenses.List(c.Request.Context(), id, category)
	if err != nil {
		h.handleError(c, err)
		return
	}
	for i := range rows {
		rows[i].Category = category
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (h *Handler) createExpense(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	category, ok := pathCategory(c)
	if !ok {
		return
	}

	var req expenseRequest
	if !bindExpense(c, &req) {
		return
	}

	result, err := h.expenses.Create(c.Request.Context(), service.ExpenseInput{
		SettlementID: id,
		Category:     category,
		Amount:       *req.Amount,
		Liters:       req.Liters,
		Concept:      req.Concept,
		Principal:    principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expenseResponse{Expense: result.Expense, Settlement: result.Settlement})
}

func (h *Handler) updateExpense(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	category, ok := pathCategory(c)
	if !ok {
		return
	}
	expenseID, ok := pathID(c, "expenseID")
	if !ok {
		return
	}

	var req expenseRequest
	if !bindExpense(c, &req) {
		return
	}

	result, err := h.expenses.Update(c.Request.Context(), service.ExpenseUpdateInput{
		ExpenseID: expenseID,
		Category:  category,
		Amount:    *req.Amount,
		Liters:    req.Liters,
		Concept:   req.Concept,
		Principal: principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, expenseResponse{Expense: result.Expense, Settlement: result.Settlement})
}

func (h *Handler) deleteExpense(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	category, ok := pathCategory(c)
	if !ok {
		return
	}
	expenseID, ok := pathID(c, "expenseID")
	if !ok {
		return
	}

	settlement, err := h.expenses.Delete(c.Request.Context(), category, expenseID, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

func (h *Handler) principal(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
	}
	return principal, ok
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("settlement request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func bindExpense(c *gin.Context, req *expenseRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	if req.Amount == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
		return false
	}
	return true
}

func sendFile(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

func pathID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(param)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}

func pathCategory(c *gin.Context) (model.Category, bool) {
	category, ok := model.ParseCategory(c.Param("category"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
		return "", false
	}
	return category, true
}

func optionalUUID(raw *string) (*uuid.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func optionalDate(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	parsed, err := parseDate(*raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}
