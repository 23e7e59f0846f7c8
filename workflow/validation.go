package workflow

import (
	"fmt"
	"math"

	"bitbucket.org/mmdatafocus/closings_backend/models"
	"github.com/shopspring/decimal"
)

// Violation is one failed consistency rule. Messages name the offending
// fields and values so the operator can fix the submission directly.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// moneyTolerance is the absolute slack allowed wherever money sums are
// compared: a fixed ±1 currency unit, never proportional.
var moneyTolerance = decimal.NewFromInt(1)

// ValidateInput checks every supplied money amount for shape: finite and
// non-negative. Runs before any merge so garbage never reaches a record.
func ValidateInput(in *ClosingInput) []Violation {
	var violations []Violation
	for _, f := range in.moneyFields() {
		if f.value == nil {
			continue
		}
		v := *f.value
		if math.IsNaN(v) || math.IsInf(v, 0) {
			violations = append(violations, Violation{
				Field:   f.name,
				Message: fmt.Sprintf("%s must be a finite number", f.name),
			})
			continue
		}
		if v < 0 {
			violations = append(violations, Violation{
				Field:   f.name,
				Message: fmt.Sprintf("%s must not be negative (got %.2f)", f.name, v),
			})
		}
	}
	return violations
}

// ValidateClosing checks cross-field consistency on the full (merged) view,
// so partial patches cannot bypass the rules.
func ValidateClosing(rec *models.ClosingRecord) []Violation {
	var violations []Violation

	if rec.NetSales.GreaterThan(rec.TotalSales) {
		violations = append(violations, Violation{
			Field: "Net Sales",
			Message: fmt.Sprintf("Net Sales (%s) may not exceed Total Sales (%s)",
				models.FormatMoney(rec.NetSales), models.FormatMoney(rec.TotalSales)),
		})
	}

	paymentsTotal := rec.CashPayments.
		Add(rec.CardPayments).
		Add(rec.DigitalPayments).
		Add(rec.GrabPayments).
		Add(rec.VoucherPayments).
		Add(rec.BankTransferPayments).
		Add(rec.MarketingExpenses)
	if diff := paymentsTotal.Sub(rec.TotalSales); diff.Abs().GreaterThan(moneyTolerance) {
		violations = append(violations, Violation{
			Field: "Total Sales",
			Message: fmt.Sprintf("payments + marketing (%s) do not reconcile with Total Sales (%s); difference %s exceeds the allowed 1.00",
				models.FormatMoney(paymentsTotal), models.FormatMoney(rec.TotalSales), models.FormatMoney(diff.Abs())),
		})
	}

	// Cash for Deposit is server-derived on every write path, so this can
	// only trip when stored data was corrupted out-of-band.
	expectedDeposit := rec.ActualCashCounted.Sub(rec.CashFloat)
	if diff := rec.CashForDeposit.Sub(expectedDeposit); diff.Abs().GreaterThan(moneyTolerance) {
		violations = append(violations, Violation{
			Field: "Cash for Deposit",
			Message: fmt.Sprintf("Cash for Deposit (%s) does not match Actual Cash Counted (%s) minus Cash Float (%s)",
				models.FormatMoney(rec.CashForDeposit), models.FormatMoney(rec.ActualCashCounted), models.FormatMoney(rec.CashFloat)),
		})
	}

	budgetTotal := rec.KitchenBudget.Add(rec.BarBudget).Add(rec.NonFoodBudget).Add(rec.StaffMealBudget)
	if budgetTotal.GreaterThan(rec.NetSales) {
		violations = append(violations, Violation{
			Field: "Kitchen Budget",
			Message: fmt.Sprintf("allocated budgets (%s) exceed Net Sales (%s)",
				models.FormatMoney(budgetTotal), models.FormatMoney(rec.NetSales)),
		})
	}

	return violations
}
