package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WeeklyBudget is the Monday-to-Sunday kitchen+bar envelope for one store.
//
// Grain: (tenant_id, store_id, week_start), week_start always the Monday of
// the ISO week. Mutable while Draft; once Locked only the reconciliation
// engine may move FoodCostDeducted / RemainingBudget, via deltas.
type WeeklyBudget struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	TenantId string `gorm:"size:64;index:idx_budget_tenant_store_week,priority:1" json:"tenant_id"`
	StoreId  string `gorm:"size:64;index:idx_budget_tenant_store_week,priority:2" json:"store_id"`

	WeekStart time.Time `gorm:"index:idx_budget_tenant_store_week,priority:3" json:"week_start"`

	KitchenWeeklyBudget decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"kitchen_weekly_budget"`
	BarWeeklyBudget     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"bar_weekly_budget"`
	WeeklyBudgetAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"weekly_budget_amount"`

	// FoodCostDeducted is the running total of verified closings' food spend
	// attributed to this week. RemainingBudget may legally go negative on
	// the delta path; overspend is surfaced, not hidden.
	FoodCostDeducted decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"food_cost_deducted"`
	RemainingBudget  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"remaining_budget"`

	Status BudgetStatus `gorm:"size:16" json:"status"`

	// Set at first lock, immutable thereafter. Nil means never locked.
	OriginalWeeklyBudgetAmount *decimal.Decimal `gorm:"type:decimal(20,4)" json:"original_weekly_budget_amount"`

	SubmittedBy string     `gorm:"size:100" json:"submitted_by"`
	LockedBy    string     `gorm:"size:100" json:"locked_by"`
	LockedAt    *time.Time `json:"locked_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// WeekStartOf returns the Monday of the ISO week containing d, date-only UTC.
func WeekStartOf(d time.Time) time.Time {
	day := DateOnly(d)
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return day.AddDate(0, 0, -offset)
}

func IsMonday(d time.Time) bool {
	return d.Weekday() == time.Monday
}
