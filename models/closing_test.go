package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNormalizeStoreName_CollapsesApostropheVariants(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"Nonie's", "nonies"},
		{"Nonie’s", "nonies"},
		{"nonie‘s ", "nonies"},
		{"  NONIES  ", "nonies"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := NormalizeStoreName(tc.in); got != tc.expected {
			t.Fatalf("NormalizeStoreName(%q) expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

func TestMatchesStore_IdWinsOverName(t *testing.T) {
	rec := &ClosingRecord{StoreId: "recA", StoreName: "Nonie's"}

	if !rec.MatchesStore("recA", "Completely Different") {
		t.Fatal("matching ids must win regardless of names")
	}
	if rec.MatchesStore("recB", "Nonie's") {
		t.Fatal("differing ids must not match even with equal names")
	}
	// Name comparison only applies when either side lacks an id.
	if !rec.MatchesStore("", "nonie’s ") {
		t.Fatal("normalized name should match when caller has no id")
	}
	if rec.MatchesStore("", "") {
		t.Fatal("empty identity must never match")
	}

	legacy := &ClosingRecord{StoreName: "Nonie's"}
	if !legacy.MatchesStore("recA", "Nonie's") {
		t.Fatal("record without id should fall back to name matching")
	}
}

func TestComputeDerived(t *testing.T) {
	rec := &ClosingRecord{
		CashPayments:      decimal.NewFromInt(400),
		ActualCashCounted: decimal.NewFromInt(450),
		CashFloat:         decimal.NewFromInt(50),
		KitchenBudget:     decimal.NewFromInt(300),
		BarBudget:         decimal.NewFromInt(100),
		NonFoodBudget:     decimal.NewFromInt(50),
		StaffMealBudget:   decimal.NewFromInt(50),
	}
	rec.ComputeDerived()

	if !rec.CashForDeposit.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("cash for deposit expected 400, got %s", rec.CashForDeposit)
	}
	if !rec.Variance.Equal(decimal.Zero) {
		t.Fatalf("variance expected 0, got %s", rec.Variance)
	}
	if !rec.TransferNeeded.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("transfer needed expected 400, got %s", rec.TransferNeeded)
	}
	if !rec.TotalBudgets.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("total budgets expected 500, got %s", rec.TotalBudgets)
	}

	// A drawer shorter than the float yields a negative deposit; the
	// transfer figure clamps at zero instead of asking for negative cash.
	rec.ActualCashCounted = decimal.NewFromInt(30)
	rec.ComputeDerived()
	if !rec.CashForDeposit.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("cash for deposit expected -20, got %s", rec.CashForDeposit)
	}
	if !rec.TransferNeeded.IsZero() {
		t.Fatalf("transfer needed must clamp at zero, got %s", rec.TransferNeeded)
	}
}

func TestFoodSpend_CountsKitchenAndBarOnly(t *testing.T) {
	rec := &ClosingRecord{
		KitchenBudget:   decimal.NewFromInt(300),
		BarBudget:       decimal.NewFromInt(100),
		NonFoodBudget:   decimal.NewFromInt(999),
		StaffMealBudget: decimal.NewFromInt(999),
	}
	if !rec.FoodSpend().Equal(decimal.NewFromInt(400)) {
		t.Fatalf("food spend expected 400, got %s", rec.FoodSpend())
	}
}

func TestWeekStartOf(t *testing.T) {
	monday := time.Date(2025, 11, 17, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		in   time.Time
	}{
		{"monday itself", monday},
		{"wednesday", time.Date(2025, 11, 19, 15, 30, 0, 0, time.UTC)},
		{"sunday", time.Date(2025, 11, 23, 23, 59, 59, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := WeekStartOf(tc.in); !got.Equal(monday) {
			t.Fatalf("%s: expected %s, got %s", tc.name, monday, got)
		}
	}

	// The next Monday starts a new week.
	next := time.Date(2025, 11, 24, 0, 0, 0, 0, time.UTC)
	if got := WeekStartOf(next); !got.Equal(next) {
		t.Fatalf("next monday should map to itself, got %s", got)
	}

	if !IsMonday(monday) || IsMonday(monday.AddDate(0, 0, 3)) {
		t.Fatal("IsMonday misclassified")
	}
}

func TestDateOnly_NormalizesToUTCDay(t *testing.T) {
	in := time.Date(2025, 11, 19, 23, 45, 12, 999, time.FixedZone("X", 8*3600))
	got := DateOnly(in)
	if got.Hour() != 0 || got.Minute() != 0 || got.Location() != time.UTC {
		t.Fatalf("expected midnight UTC, got %s", got)
	}
	if got.Day() != 19 {
		t.Fatalf("calendar day must be preserved as written, got %d", got.Day())
	}
}
