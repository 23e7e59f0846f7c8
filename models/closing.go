package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ClosingRecord is one store's end-of-day submission for one business date.
//
// Grain: (tenant_id, store, business_date) — uniqueness is enforced by
// find-before-write under a keyed lock, not by a DB constraint, because the
// Airtable backend cannot express one.
//
// Variance, CashForDeposit, TransferNeeded and TotalBudgets are derived on
// every write and never accepted from clients.
type ClosingRecord struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	TenantId  string `gorm:"size:64;index:idx_closing_tenant_date,priority:1" json:"tenant_id"`
	StoreId   string `gorm:"size:64;index" json:"store_id"`
	StoreName string `gorm:"size:255" json:"store_name"`

	BusinessDate time.Time `gorm:"index:idx_closing_tenant_date,priority:2" json:"business_date"`

	TotalSales           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_sales"`
	NetSales             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_sales"`
	CashPayments         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cash_payments"`
	CardPayments         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"card_payments"`
	DigitalPayments      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"digital_payments"`
	GrabPayments         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"grab_payments"`
	VoucherPayments      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"voucher_payments"`
	BankTransferPayments decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"bank_transfer_payments"`
	MarketingExpenses    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"marketing_expenses"`
	ActualCashCounted    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"actual_cash_counted"`
	CashFloat            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cash_float"`
	KitchenBudget        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"kitchen_budget"`
	BarBudget            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"bar_budget"`
	NonFoodBudget        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"non_food_budget"`
	StaffMealBudget      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"staff_meal_budget"`

	// Derived display fields.
	Variance       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"variance"`
	CashForDeposit decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cash_for_deposit"`
	TransferNeeded decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"transfer_needed"`
	TotalBudgets   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_budgets"`

	LockStatus        LockStatus     `gorm:"size:16" json:"lock_status"`
	VerifiedStatus    VerifiedStatus `gorm:"size:16" json:"verified_status"`
	VerifiedBy        string         `gorm:"size:100" json:"verified_by"`
	VerifiedAt        *time.Time     `json:"verified_at"`
	VerificationNotes string         `gorm:"type:text" json:"verification_notes"`

	// FoodCostDeducted is the anchor: the portion of this closing's
	// kitchen+bar spend currently reflected in its weekly budget.
	FoodCostDeducted decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"food_cost_deducted"`

	SubmittedBy   string     `gorm:"size:100" json:"submitted_by"`
	LastUpdatedBy string     `gorm:"size:100" json:"last_updated_by"`
	LastUpdatedAt *time.Time `json:"last_updated_at"`
	UnlockedBy    string     `gorm:"size:100" json:"unlocked_by"`
	UnlockedAt    *time.Time `json:"unlocked_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FoodSpend is the portion of the closing that draws from the weekly
// food envelope. Non-food and staff-meal budgets do not count.
func (c *ClosingRecord) FoodSpend() decimal.Decimal {
	return c.KitchenBudget.Add(c.BarBudget)
}

// ComputeDerived refreshes the server-computed display fields.
func (c *ClosingRecord) ComputeDerived() {
	c.CashForDeposit = c.ActualCashCounted.Sub(c.CashFloat)
	c.Variance = c.CashForDeposit.Sub(c.CashPayments)
	if c.CashForDeposit.IsNegative() {
		c.TransferNeeded = decimal.Zero
	} else {
		c.TransferNeeded = c.CashForDeposit
	}
	c.TotalBudgets = c.KitchenBudget.Add(c.BarBudget).Add(c.NonFoodBudget).Add(c.StaffMealBudget)
}

// DisplayName prefers the stored name; callers fall back to the directory.
func (c *ClosingRecord) DisplayName() string {
	if c.StoreName != "" {
		return c.StoreName
	}
	return c.StoreId
}

// MatchesStore implements the upsert join rule: a store_id match wins when
// both sides carry one; otherwise normalized store names are compared for
// legacy callers that never migrated to store_id.
func (c *ClosingRecord) MatchesStore(storeId, storeName string) bool {
	if storeId != "" && c.StoreId != "" {
		return c.StoreId == storeId
	}
	norm := NormalizeStoreName(storeName)
	return norm != "" && NormalizeStoreName(c.StoreName) == norm
}

var apostropheStripper = strings.NewReplacer("'", "", "’", "", "‘", "")

// NormalizeStoreName produces a stable join key independent of punctuation
// drift in user-entered names: lowercase, trimmed, apostrophe variants
// removed ("Nonie's", "Nonie’s" and "nonie's " all collapse to "nonies").
func NormalizeStoreName(name string) string {
	return apostropheStripper.Replace(strings.ToLower(strings.TrimSpace(name)))
}

// DateOnly truncates to a calendar day in UTC; business dates carry no time
// component.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
