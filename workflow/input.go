package workflow

import (
	"time"

	"bitbucket.org/mmdatafocus/closings_backend/models"
	"github.com/shopspring/decimal"
)

// ClosingInput is a submission or patch payload. Money fields are pointers
// so "absent" and "zero" stay distinguishable: absent fields are left
// untouched on merge. Server-computed fields have no input slot at all —
// supplying them is impossible rather than merely rejected.
type ClosingInput struct {
	TenantId     string
	StoreId      string
	StoreName    string
	BusinessDate time.Time
	SubmittedBy  string

	TotalSales           *float64
	NetSales             *float64
	CashPayments         *float64
	CardPayments         *float64
	DigitalPayments      *float64
	GrabPayments         *float64
	VoucherPayments      *float64
	BankTransferPayments *float64
	MarketingExpenses    *float64
	ActualCashCounted    *float64
	CashFloat            *float64
	KitchenBudget        *float64
	BarBudget            *float64
	NonFoodBudget        *float64
	StaffMealBudget      *float64
}

type moneyField struct {
	name  string // external spaced field name, also used in history changed_fields
	value *float64
	set   func(rec *models.ClosingRecord, d decimal.Decimal)
}

func (in *ClosingInput) moneyFields() []moneyField {
	return []moneyField{
		{"Total Sales", in.TotalSales, func(r *models.ClosingRecord, d decimal.Decimal) { r.TotalSales = d }},
		{"Net Sales", in.NetSales, func(r *models.ClosingRecord, d decimal.Decimal) { r.NetSales = d }},
		{"Cash Payments", in.CashPayments, func(r *models.ClosingRecord, d decimal.Decimal) { r.CashPayments = d }},
		{"Card Payments", in.CardPayments, func(r *models.ClosingRecord, d decimal.Decimal) { r.CardPayments = d }},
		{"Digital Payments", in.DigitalPayments, func(r *models.ClosingRecord, d decimal.Decimal) { r.DigitalPayments = d }},
		{"Grab Payments", in.GrabPayments, func(r *models.ClosingRecord, d decimal.Decimal) { r.GrabPayments = d }},
		{"Voucher Payments", in.VoucherPayments, func(r *models.ClosingRecord, d decimal.Decimal) { r.VoucherPayments = d }},
		{"Bank Transfer Payments", in.BankTransferPayments, func(r *models.ClosingRecord, d decimal.Decimal) { r.BankTransferPayments = d }},
		{"Marketing Expenses", in.MarketingExpenses, func(r *models.ClosingRecord, d decimal.Decimal) { r.MarketingExpenses = d }},
		{"Actual Cash Counted", in.ActualCashCounted, func(r *models.ClosingRecord, d decimal.Decimal) { r.ActualCashCounted = d }},
		{"Cash Float", in.CashFloat, func(r *models.ClosingRecord, d decimal.Decimal) { r.CashFloat = d }},
		{"Kitchen Budget", in.KitchenBudget, func(r *models.ClosingRecord, d decimal.Decimal) { r.KitchenBudget = d }},
		{"Bar Budget", in.BarBudget, func(r *models.ClosingRecord, d decimal.Decimal) { r.BarBudget = d }},
		{"Non-Food Budget", in.NonFoodBudget, func(r *models.ClosingRecord, d decimal.Decimal) { r.NonFoodBudget = d }},
		{"Staff Meal Budget", in.StaffMealBudget, func(r *models.ClosingRecord, d decimal.Decimal) { r.StaffMealBudget = d }},
	}
}

// applyTo overlays the supplied fields onto rec, leaving absent ones alone.
func (in *ClosingInput) applyTo(rec *models.ClosingRecord) {
	for _, f := range in.moneyFields() {
		if f.value != nil {
			f.set(rec, decimal.NewFromFloat(*f.value))
		}
	}
}

// changedFieldNames lists the external names of the supplied fields, for
// history changed_fields on the patch path.
func (in *ClosingInput) changedFieldNames() []string {
	var names []string
	for _, f := range in.moneyFields() {
		if f.value != nil {
			names = append(names, f.name)
		}
	}
	return names
}

// allFieldNames is the full written set, for history on create/upsert.
func (in *ClosingInput) allFieldNames() []string {
	fields := in.moneyFields()
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.name)
	}
	return names
}
