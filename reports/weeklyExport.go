package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"bitbucket.org/mmdatafocus/closings_backend/models"
	"bitbucket.org/mmdatafocus/closings_backend/store"
	"bitbucket.org/mmdatafocus/closings_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// WeeklyWorkbook renders one store-week as an xlsx: a Closings sheet with
// one row per business date, and a Budget sheet summarising the weekly
// envelope against verified food spend.
func WeeklyWorkbook(ctx context.Context, stores *store.Stores, tenantId, storeId string, weekStart time.Time, w io.Writer) error {
	week := models.WeekStartOf(weekStart)

	closings, err := stores.Closings.FindClosingsInWeek(ctx, tenantId, storeId, week)
	if err != nil {
		return err
	}
	budget, err := stores.Budgets.FindBudget(ctx, tenantId, storeId, week)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	closingsSheet := "Closings"
	if err := f.SetSheetName("Sheet1", closingsSheet); err != nil {
		return err
	}

	// Add headers
	headers := []string{
		"Business Date", "Store", "Lock Status", "Verified Status",
		"Total Sales", "Net Sales", "Cash Payments", "Card Payments",
		"Digital Payments", "Grab Payments", "Voucher Payments",
		"Bank Transfer Payments", "Marketing Expenses",
		"Actual Cash Counted", "Cash Float", "Cash for Deposit",
		"Variance", "Transfer Needed", "Kitchen Budget", "Bar Budget",
		"Non-Food Budget", "Staff Meal Budget", "Total Budgets",
		"Submitted By", "Verified By",
	}
	col := 'A'
	for _, h := range headers {
		f.SetCellValue(closingsSheet, cell(col, 1), h)
		col++
	}

	// Add data
	verifiedSpend := decimal.Zero
	for i, c := range closings {
		row := i + 2
		values := []interface{}{
			c.BusinessDate.Format("2006-01-02"),
			c.DisplayName(),
			string(c.LockStatus),
			string(c.VerifiedStatus),
			money(c.TotalSales), money(c.NetSales),
			money(c.CashPayments), money(c.CardPayments),
			money(c.DigitalPayments), money(c.GrabPayments),
			money(c.VoucherPayments), money(c.BankTransferPayments),
			money(c.MarketingExpenses),
			money(c.ActualCashCounted), money(c.CashFloat),
			money(c.CashForDeposit), money(c.Variance),
			money(c.TransferNeeded),
			money(c.KitchenBudget), money(c.BarBudget),
			money(c.NonFoodBudget), money(c.StaffMealBudget),
			money(c.TotalBudgets),
			c.SubmittedBy, c.VerifiedBy,
		}
		col := 'A'
		for _, v := range values {
			f.SetCellValue(closingsSheet, cell(col, row), v)
			col++
		}
		if c.VerifiedStatus == models.VerifiedStatusVerified {
			verifiedSpend = verifiedSpend.Add(c.FoodSpend())
		}
	}

	budgetSheet := "Budget"
	if _, err := f.NewSheet(budgetSheet); err != nil {
		return err
	}
	f.SetCellValue(budgetSheet, "A1", "Week Start")
	f.SetCellValue(budgetSheet, "B1", week.Format("2006-01-02"))
	f.SetCellValue(budgetSheet, "A2", "Verified Food Spend")
	f.SetCellValue(budgetSheet, "B2", money(verifiedSpend))
	if budget != nil {
		f.SetCellValue(budgetSheet, "A3", "Status")
		f.SetCellValue(budgetSheet, "B3", string(budget.Status))
		f.SetCellValue(budgetSheet, "A4", "Kitchen Weekly Budget")
		f.SetCellValue(budgetSheet, "B4", money(budget.KitchenWeeklyBudget))
		f.SetCellValue(budgetSheet, "A5", "Bar Weekly Budget")
		f.SetCellValue(budgetSheet, "B5", money(budget.BarWeeklyBudget))
		f.SetCellValue(budgetSheet, "A6", "Weekly Budget Amount")
		f.SetCellValue(budgetSheet, "B6", money(budget.WeeklyBudgetAmount))
		f.SetCellValue(budgetSheet, "A7", "Food Cost Deducted")
		f.SetCellValue(budgetSheet, "B7", money(budget.FoodCostDeducted))
		f.SetCellValue(budgetSheet, "A8", "Remaining Budget")
		f.SetCellValue(budgetSheet, "B8", money(budget.RemainingBudget))
		if budget.OriginalWeeklyBudgetAmount != nil {
			f.SetCellValue(budgetSheet, "A9", "Original Weekly Budget Amount")
			f.SetCellValue(budgetSheet, "B9", money(*budget.OriginalWeeklyBudgetAmount))
		}
	} else {
		f.SetCellValue(budgetSheet, "A3", "Status")
		f.SetCellValue(budgetSheet, "B3", "No budget submitted")
	}

	return f.Write(w)
}

// WeeklyReportFilename is the Content-Disposition filename for the export.
func WeeklyReportFilename(storeId string, weekStart time.Time) string {
	return fmt.Sprintf("closings_%s_%s.xlsx",
		utils.SanitizeFilePart(storeId),
		models.WeekStartOf(weekStart).Format("2006-01-02"))
}

func cell(col rune, row int) string {
	return string(col) + fmt.Sprint(row)
}

// money converts the decimal to the float excelize stores natively; two
// decimal places is the grain of every monetary field here.
func money(d decimal.Decimal) float64 {
	v, _ := d.Round(2).Float64()
	return v
}
