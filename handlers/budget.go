package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/closings_backend/utils"
	"bitbucket.org/mmdatafocus/closings_backend/workflow"
	"github.com/gin-gonic/gin"
)

type budgetPayload struct {
	TenantId      string  `json:"tenant_id"`
	StoreId       string  `json:"store_id" binding:"required"`
	WeekStart     string  `json:"week_start" binding:"required,isodate"`
	KitchenBudget float64 `json:"kitchen_budget" binding:"min=0"`
	BarBudget     float64 `json:"bar_budget" binding:"min=0"`
	SubmittedBy   string  `json:"submitted_by"`
}

func (h *Handler) UpsertBudget(c *gin.Context) {
	var payload budgetPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.writeError(c, "handlers", "UpsertBudget", utils.ValidationError("invalid payload: %s", err.Error()))
		return
	}
	week, err := parseDate(payload.WeekStart)
	if err != nil {
		h.writeError(c, "handlers", "UpsertBudget", err)
		return
	}
	budget, err := h.engine.UpsertWeeklyBudget(c.Request.Context(), &workflow.BudgetInput{
		TenantId:      payload.TenantId,
		StoreId:       payload.StoreId,
		WeekStart:     week,
		KitchenBudget: payload.KitchenBudget,
		BarBudget:     payload.BarBudget,
		SubmittedBy:   payload.SubmittedBy,
	})
	if err != nil {
		h.writeError(c, "handlers", "UpsertBudget", err)
		return
	}
	c.JSON(http.StatusOK, budget)
}

type lockBudgetPayload struct {
	TenantId      string   `json:"tenant_id"`
	BudgetId      string   `json:"budget_id"`
	StoreId       string   `json:"store_id"`
	WeekStart     string   `json:"week_start"`
	KitchenBudget *float64 `json:"kitchen_budget"`
	BarBudget     *float64 `json:"bar_budget"`
	LockedBy      string   `json:"locked_by"`
}

func (h *Handler) LockBudget(c *gin.Context) {
	var payload lockBudgetPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.writeError(c, "handlers", "LockBudget", utils.ValidationError("invalid payload: %s", err.Error()))
		return
	}
	in := &workflow.LockBudgetInput{
		TenantId:      payload.TenantId,
		BudgetId:      payload.BudgetId,
		StoreId:       payload.StoreId,
		KitchenBudget: payload.KitchenBudget,
		BarBudget:     payload.BarBudget,
		LockedBy:      payload.LockedBy,
	}
	if payload.WeekStart != "" {
		week, err := parseDate(payload.WeekStart)
		if err != nil {
			h.writeError(c, "handlers", "LockBudget", err)
			return
		}
		in.WeekStart = week
	}
	budget, err := h.engine.LockWeeklyBudget(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, "handlers", "LockBudget", err)
		return
	}
	c.JSON(http.StatusOK, budget)
}

func (h *Handler) GetBudget(c *gin.Context) {
	storeId := c.Query("store_id")
	weekStr := c.Query("week_start")
	if storeId == "" || weekStr == "" {
		h.writeError(c, "handlers", "GetBudget", utils.ValidationError("store_id and week_start query parameters are required"))
		return
	}
	week, err := parseDate(weekStr)
	if err != nil {
		h.writeError(c, "handlers", "GetBudget", err)
		return
	}
	budget, err := h.engine.GetWeeklyBudget(c.Request.Context(), storeId, week)
	if err != nil {
		h.writeError(c, "handlers", "GetBudget", err)
		return
	}
	c.JSON(http.StatusOK, budget)
}
