package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/closings_backend/utils"
	"bitbucket.org/mmdatafocus/closings_backend/workflow"
	"github.com/gin-gonic/gin"
)

type closingPayload struct {
	TenantId     string `json:"tenant_id"`
	StoreId      string `json:"store_id"`
	StoreName    string `json:"store_name"`
	BusinessDate string `json:"business_date" binding:"required,isodate"`
	SubmittedBy  string `json:"submitted_by"`

	TotalSales           *float64 `json:"total_sales"`
	NetSales             *float64 `json:"net_sales"`
	CashPayments         *float64 `json:"cash_payments"`
	CardPayments         *float64 `json:"card_payments"`
	DigitalPayments      *float64 `json:"digital_payments"`
	GrabPayments         *float64 `json:"grab_payments"`
	VoucherPayments      *float64 `json:"voucher_payments"`
	BankTransferPayments *float64 `json:"bank_transfer_payments"`
	MarketingExpenses    *float64 `json:"marketing_expenses"`
	ActualCashCounted    *float64 `json:"actual_cash_counted"`
	CashFloat            *float64 `json:"cash_float"`
	KitchenBudget        *float64 `json:"kitchen_budget"`
	BarBudget            *float64 `json:"bar_budget"`
	NonFoodBudget        *float64 `json:"non_food_budget"`
	StaffMealBudget      *float64 `json:"staff_meal_budget"`
}

func (p *closingPayload) toInput() (*workflow.ClosingInput, error) {
	day, err := parseDate(p.BusinessDate)
	if err != nil {
		return nil, err
	}
	return &workflow.ClosingInput{
		TenantId:             p.TenantId,
		StoreId:              p.StoreId,
		StoreName:            p.StoreName,
		BusinessDate:         day,
		SubmittedBy:          p.SubmittedBy,
		TotalSales:           p.TotalSales,
		NetSales:             p.NetSales,
		CashPayments:         p.CashPayments,
		CardPayments:         p.CardPayments,
		DigitalPayments:      p.DigitalPayments,
		GrabPayments:         p.GrabPayments,
		VoucherPayments:      p.VoucherPayments,
		BankTransferPayments: p.BankTransferPayments,
		MarketingExpenses:    p.MarketingExpenses,
		ActualCashCounted:    p.ActualCashCounted,
		CashFloat:            p.CashFloat,
		KitchenBudget:        p.KitchenBudget,
		BarBudget:            p.BarBudget,
		NonFoodBudget:        p.NonFoodBudget,
		StaffMealBudget:      p.StaffMealBudget,
	}, nil
}

func (h *Handler) UpsertClosing(c *gin.Context) {
	var payload closingPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.writeError(c, "handlers", "UpsertClosing", utils.ValidationError("invalid payload: %s", err.Error()))
		return
	}
	in, err := payload.toInput()
	if err != nil {
		h.writeError(c, "handlers", "UpsertClosing", err)
		return
	}
	result, err := h.engine.UpsertClosing(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, "handlers", "UpsertClosing", err)
		return
	}
	status := http.StatusOK
	if result.Status == workflow.UpsertStatusCreated {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (h *Handler) GetClosing(c *gin.Context) {
	rec, err := h.engine.GetClosing(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "handlers", "GetClosing", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// patchPayload carries only the editable fields; identity and lifecycle
// fields are not patchable.
type patchPayload struct {
	SubmittedBy string `json:"submitted_by"`

	TotalSales           *float64 `json:"total_sales"`
	NetSales             *float64 `json:"net_sales"`
	CashPayments         *float64 `json:"cash_payments"`
	CardPayments         *float64 `json:"card_payments"`
	DigitalPayments      *float64 `json:"digital_payments"`
	GrabPayments         *float64 `json:"grab_payments"`
	VoucherPayments      *float64 `json:"voucher_payments"`
	BankTransferPayments *float64 `json:"bank_transfer_payments"`
	MarketingExpenses    *float64 `json:"marketing_expenses"`
	ActualCashCounted    *float64 `json:"actual_cash_counted"`
	CashFloat            *float64 `json:"cash_float"`
	KitchenBudget        *float64 `json:"kitchen_budget"`
	BarBudget            *float64 `json:"bar_budget"`
	NonFoodBudget        *float64 `json:"non_food_budget"`
	StaffMealBudget      *float64 `json:"staff_meal_budget"`
}

// PatchClosing edits an Unlocked record only; only the fields present in
// the payload move.
func (h *Handler) PatchClosing(c *gin.Context) {
	var payload patchPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.writeError(c, "handlers", "PatchClosing", utils.ValidationError("invalid payload: %s", err.Error()))
		return
	}
	patch := &workflow.ClosingInput{
		SubmittedBy:          payload.SubmittedBy,
		TotalSales:           payload.TotalSales,
		NetSales:             payload.NetSales,
		CashPayments:         payload.CashPayments,
		CardPayments:         payload.CardPayments,
		DigitalPayments:      payload.DigitalPayments,
		GrabPayments:         payload.GrabPayments,
		VoucherPayments:      payload.VoucherPayments,
		BankTransferPayments: payload.BankTransferPayments,
		MarketingExpenses:    payload.MarketingExpenses,
		ActualCashCounted:    payload.ActualCashCounted,
		CashFloat:            payload.CashFloat,
		KitchenBudget:        payload.KitchenBudget,
		BarBudget:            payload.BarBudget,
		NonFoodBudget:        payload.NonFoodBudget,
		StaffMealBudget:      payload.StaffMealBudget,
	}
	rec, err := h.engine.PatchClosing(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.writeError(c, "handlers", "PatchClosing", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type unlockPayload struct {
	Pin string `json:"pin" binding:"required"`
}

func (h *Handler) UnlockClosing(c *gin.Context) {
	var payload unlockPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.writeError(c, "handlers", "UnlockClosing", utils.ValidationError("pin is required"))
		return
	}
	rec, err := h.engine.UnlockClosing(c.Request.Context(), c.Param("id"), payload.Pin)
	if err != nil {
		h.writeError(c, "handlers", "UnlockClosing", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type verifyPayload struct {
	Status     string `json:"status" binding:"required"`
	VerifiedBy string `json:"verified_by"`
	Notes      string `json:"notes"`
}

func (h *Handler) VerifyClosing(c *gin.Context) {
	var payload verifyPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.writeError(c, "handlers", "VerifyClosing", utils.ValidationError("status is required"))
		return
	}
	result, err := h.engine.VerifyClosing(c.Request.Context(), c.Param("id"), payload.Status, payload.VerifiedBy, payload.Notes)
	if err != nil {
		h.writeError(c, "handlers", "VerifyClosing", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListHistory(c *gin.Context) {
	storeName := c.Query("store")
	dateStr := c.Query("business_date")
	if storeName == "" || dateStr == "" {
		h.writeError(c, "handlers", "ListHistory", utils.ValidationError("store and business_date query parameters are required"))
		return
	}
	day, err := parseDate(dateStr)
	if err != nil {
		h.writeError(c, "handlers", "ListHistory", err)
		return
	}
	entries, err := h.engine.ListHistory(c.Request.Context(), storeName, day)
	if err != nil {
		h.writeError(c, "handlers", "ListHistory", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(entries), "entries": entries})
}
