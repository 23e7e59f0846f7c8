package workflow

import (
	"math"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/closings_backend/models"
	"github.com/shopspring/decimal"
)

func f(v float64) *float64 { return &v }

func balancedRecord() *models.ClosingRecord {
	rec := &models.ClosingRecord{
		TotalSales:           decimal.NewFromInt(1000),
		NetSales:             decimal.NewFromInt(900),
		CashPayments:         decimal.NewFromInt(400),
		CardPayments:         decimal.NewFromInt(300),
		DigitalPayments:      decimal.NewFromInt(100),
		GrabPayments:         decimal.NewFromInt(100),
		VoucherPayments:      decimal.NewFromInt(50),
		BankTransferPayments: decimal.NewFromInt(50),
		ActualCashCounted:    decimal.NewFromInt(450),
		CashFloat:            decimal.NewFromInt(50),
		KitchenBudget:        decimal.NewFromInt(300),
		BarBudget:            decimal.NewFromInt(100),
		NonFoodBudget:        decimal.NewFromInt(50),
		StaffMealBudget:      decimal.NewFromInt(50),
	}
	rec.ComputeDerived()
	return rec
}

func TestValidateClosing_BalancedRecordPasses(t *testing.T) {
	if v := ValidateClosing(balancedRecord()); len(v) != 0 {
		t.Fatalf("expected no violations, got %+v", v)
	}
}

func TestValidateClosing_ToleranceBoundary(t *testing.T) {
	// Difference of exactly 1.00 is inside the tolerance.
	rec := balancedRecord()
	rec.CashPayments = decimal.NewFromInt(401)
	rec.ComputeDerived()
	if v := ValidateClosing(rec); len(v) != 0 {
		t.Fatalf("difference of 1.00 should pass, got %+v", v)
	}

	// 1.01 is outside it.
	rec = balancedRecord()
	rec.CashPayments = decimal.NewFromFloat(401.01)
	rec.ComputeDerived()
	v := ValidateClosing(rec)
	if len(v) != 1 {
		t.Fatalf("difference of 1.01 should fail, got %+v", v)
	}
	if v[0].Field != "Total Sales" {
		t.Fatalf("expected Total Sales violation, got %q", v[0].Field)
	}
}

func TestValidateClosing_NetMayNotExceedTotal(t *testing.T) {
	rec := balancedRecord()
	rec.NetSales = decimal.NewFromInt(1100)
	rec.ComputeDerived()
	v := ValidateClosing(rec)
	if len(v) == 0 {
		t.Fatal("expected a Net Sales violation")
	}
	if v[0].Field != "Net Sales" {
		t.Fatalf("expected Net Sales violation first, got %q", v[0].Field)
	}
}

func TestValidateClosing_BudgetsMayNotExceedNetSales(t *testing.T) {
	rec := balancedRecord()
	rec.KitchenBudget = decimal.NewFromInt(900)
	rec.ComputeDerived()
	v := ValidateClosing(rec)
	if len(v) == 0 {
		t.Fatal("expected a budget allocation violation")
	}
	found := false
	for _, viol := range v {
		if strings.Contains(viol.Message, "allocated budgets") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected allocated-budgets violation, got %+v", v)
	}

	// Equal to net sales is allowed; only strictly greater fails.
	rec = balancedRecord()
	rec.KitchenBudget = decimal.NewFromInt(700)
	rec.ComputeDerived()
	if v := ValidateClosing(rec); len(v) != 0 {
		t.Fatalf("budgets equal to net sales should pass, got %+v", v)
	}
}

func TestValidateInput_RejectsNegativeAndNonFinite(t *testing.T) {
	in := &ClosingInput{TotalSales: f(-5)}
	v := ValidateInput(in)
	if len(v) != 1 || v[0].Field != "Total Sales" {
		t.Fatalf("expected one Total Sales violation, got %+v", v)
	}

	in = &ClosingInput{CashPayments: f(math.NaN()), CardPayments: f(math.Inf(1))}
	v = ValidateInput(in)
	if len(v) != 2 {
		t.Fatalf("expected two violations for NaN and Inf, got %+v", v)
	}

	in = &ClosingInput{TotalSales: f(0)}
	if v := ValidateInput(in); len(v) != 0 {
		t.Fatalf("zero is a legal amount, got %+v", v)
	}
}
