package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestClosingFromFields_CoercesExternalNumberShapes(t *testing.T) {
	// The external store returns float64 from its JSON, but cached layers
	// and CSV imports have produced json.Number and strings before.
	fields := map[string]interface{}{
		"Tenant ID":           "tenant1",
		"Store":               []interface{}{"recStore1"},
		"Store Name":          "Nonie's",
		"Business Date":       "2025-11-19",
		"Total Sales":         float64(1000),
		"Net Sales":           json.Number("900"),
		"Cash Payments":       "400.50",
		"Lock Status":         "Locked",
		"Verified Status":     "Pending",
		"Food Cost Deducted":  2,
		"Verified At":         "2025-11-19T10:00:00Z",
	}
	c := ClosingFromFields("rec123", fields)

	if c.StoreId != "recStore1" {
		t.Fatalf("linked record id not extracted, got %q", c.StoreId)
	}
	if !c.BusinessDate.Equal(time.Date(2025, 11, 19, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("business date mis-parsed: %s", c.BusinessDate)
	}
	if !c.TotalSales.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("float64 coercion failed: %s", c.TotalSales)
	}
	if !c.NetSales.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("json.Number coercion failed: %s", c.NetSales)
	}
	if !c.CashPayments.Equal(decimal.NewFromFloat(400.50)) {
		t.Fatalf("string coercion failed: %s", c.CashPayments)
	}
	if !c.FoodCostDeducted.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("int coercion failed: %s", c.FoodCostDeducted)
	}
	if c.VerifiedAt == nil || !c.VerifiedAt.Equal(time.Date(2025, 11, 19, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("timestamp mis-parsed: %v", c.VerifiedAt)
	}
	if c.LockStatus != LockStatusLocked || c.VerifiedStatus != VerifiedStatusPending {
		t.Fatalf("status fields mis-parsed: %s / %s", c.LockStatus, c.VerifiedStatus)
	}
}

func TestClosingToFields_StoreLinkOnlyWhenIdPresent(t *testing.T) {
	c := &ClosingRecord{TenantId: "tenant1", StoreName: "Nonie's", BusinessDate: time.Date(2025, 11, 19, 0, 0, 0, 0, time.UTC)}
	fields := ClosingToFields(c)
	if _, ok := fields["Store"]; ok {
		t.Fatal("record without store_id must not emit a Store link")
	}
	if fields["Business Date"] != "2025-11-19" {
		t.Fatalf("business date must be ISO date-only, got %v", fields["Business Date"])
	}

	c.StoreId = "recStore1"
	fields = ClosingToFields(c)
	link, ok := fields["Store"].([]string)
	if !ok || len(link) != 1 || link[0] != "recStore1" {
		t.Fatalf("expected linked-record array, got %v", fields["Store"])
	}
}

func TestBudgetFields_OriginalAmountOnlyWhenLocked(t *testing.T) {
	b := &WeeklyBudget{
		TenantId:  "tenant1",
		StoreId:   "recStore1",
		WeekStart: time.Date(2025, 11, 17, 0, 0, 0, 0, time.UTC),
		Status:    BudgetStatusDraft,
	}
	fields := BudgetToFields(b)
	if _, ok := fields["Original Weekly Budget Amount"]; ok {
		t.Fatal("never-locked budget must not emit an original amount")
	}

	back := BudgetFromFields("recB1", fields)
	if back.OriginalWeeklyBudgetAmount != nil {
		t.Fatal("absent field must round-trip to nil, not zero")
	}

	orig := decimal.NewFromInt(700)
	b.OriginalWeeklyBudgetAmount = &orig
	back = BudgetFromFields("recB1", BudgetToFields(b))
	if back.OriginalWeeklyBudgetAmount == nil || !back.OriginalWeeklyBudgetAmount.Equal(orig) {
		t.Fatalf("original amount lost in round trip: %v", back.OriginalWeeklyBudgetAmount)
	}
}

func TestClosingSnapshot_IsValidJSONWithSpacedKeys(t *testing.T) {
	c := &ClosingRecord{TenantId: "tenant1", StoreName: "Nonie's", TotalSales: decimal.NewFromInt(1000)}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(ClosingSnapshot(c)), &decoded); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if decoded["Total Sales"] != float64(1000) {
		t.Fatalf("snapshot must use the external spaced keys, got %v", decoded["Total Sales"])
	}
}
