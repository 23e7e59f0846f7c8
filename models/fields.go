package models

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// The external record store keys fields with spaced, human-readable names
// ("Total Sales", "Cash Float"). All translation between those maps and the
// typed records lives here, so business logic never sees a raw field map.

const (
	fieldStore                = "Store"
	fieldStoreName            = "Store Name"
	fieldTenantId             = "Tenant ID"
	fieldBusinessDate         = "Business Date"
	fieldTotalSales           = "Total Sales"
	fieldNetSales             = "Net Sales"
	fieldCashPayments         = "Cash Payments"
	fieldCardPayments         = "Card Payments"
	fieldDigitalPayments      = "Digital Payments"
	fieldGrabPayments         = "Grab Payments"
	fieldVoucherPayments      = "Voucher Payments"
	fieldBankTransferPayments = "Bank Transfer Payments"
	fieldMarketingExpenses    = "Marketing Expenses"
	fieldActualCashCounted    = "Actual Cash Counted"
	fieldCashFloat            = "Cash Float"
	fieldKitchenBudget        = "Kitchen Budget"
	fieldBarBudget            = "Bar Budget"
	fieldNonFoodBudget        = "Non-Food Budget"
	fieldStaffMealBudget      = "Staff Meal Budget"
	fieldVariance             = "Variance"
	fieldCashForDeposit       = "Cash for Deposit"
	fieldTransferNeeded       = "Transfer Needed"
	fieldTotalBudgets         = "Total Budgets"
	fieldLockStatus           = "Lock Status"
	fieldVerifiedStatus       = "Verified Status"
	fieldVerifiedBy           = "Verified By"
	fieldVerifiedAt           = "Verified At"
	fieldVerificationNotes    = "Verification Notes"
	fieldFoodCostDeducted     = "Food Cost Deducted"
	fieldSubmittedBy          = "Submitted By"
	fieldLastUpdatedBy        = "Last Updated By"
	fieldLastUpdatedAt        = "Last Updated At"
	fieldUnlockedBy           = "Unlocked By"
	fieldUnlockedAt           = "Unlocked At"
)

// ClosingComputedFields are server-computed in the external store and
// rejected on write; they must be stripped from every outbound field map.
var ClosingComputedFields = []string{
	fieldVariance,
	fieldCashForDeposit,
	fieldTransferNeeded,
	fieldTotalBudgets,
}

// ClosingToFields renders the record as external-store fields, spaced keys,
// dates in ISO-8601. Computed fields are included (for history snapshots);
// store writers strip them via ClosingComputedFields.
func ClosingToFields(c *ClosingRecord) map[string]interface{} {
	fields := map[string]interface{}{
		fieldTenantId:             c.TenantId,
		fieldStoreName:            c.StoreName,
		fieldBusinessDate:         c.BusinessDate.Format("2006-01-02"),
		fieldTotalSales:           decimalField(c.TotalSales),
		fieldNetSales:             decimalField(c.NetSales),
		fieldCashPayments:         decimalField(c.CashPayments),
		fieldCardPayments:         decimalField(c.CardPayments),
		fieldDigitalPayments:      decimalField(c.DigitalPayments),
		fieldGrabPayments:         decimalField(c.GrabPayments),
		fieldVoucherPayments:      decimalField(c.VoucherPayments),
		fieldBankTransferPayments: decimalField(c.BankTransferPayments),
		fieldMarketingExpenses:    decimalField(c.MarketingExpenses),
		fieldActualCashCounted:    decimalField(c.ActualCashCounted),
		fieldCashFloat:            decimalField(c.CashFloat),
		fieldKitchenBudget:        decimalField(c.KitchenBudget),
		fieldBarBudget:            decimalField(c.BarBudget),
		fieldNonFoodBudget:        decimalField(c.NonFoodBudget),
		fieldStaffMealBudget:      decimalField(c.StaffMealBudget),
		fieldVariance:             decimalField(c.Variance),
		fieldCashForDeposit:       decimalField(c.CashForDeposit),
		fieldTransferNeeded:       decimalField(c.TransferNeeded),
		fieldTotalBudgets:         decimalField(c.TotalBudgets),
		fieldLockStatus:           string(c.LockStatus),
		fieldVerifiedStatus:       string(c.VerifiedStatus),
		fieldVerifiedBy:           c.VerifiedBy,
		fieldVerificationNotes:    c.VerificationNotes,
		fieldFoodCostDeducted:     decimalField(c.FoodCostDeducted),
		fieldSubmittedBy:          c.SubmittedBy,
		fieldLastUpdatedBy:        c.LastUpdatedBy,
		fieldUnlockedBy:           c.UnlockedBy,
	}
	if c.StoreId != "" {
		// Linked record: the store column holds an identifier array.
		fields[fieldStore] = []string{c.StoreId}
	}
	setTimeField(fields, fieldVerifiedAt, c.VerifiedAt)
	setTimeField(fields, fieldLastUpdatedAt, c.LastUpdatedAt)
	setTimeField(fields, fieldUnlockedAt, c.UnlockedAt)
	return fields
}

func ClosingFromFields(id string, fields map[string]interface{}) *ClosingRecord {
	c := &ClosingRecord{
		ID:                   id,
		TenantId:             stringField(fields, fieldTenantId),
		StoreId:              linkedIdField(fields, fieldStore),
		StoreName:            stringField(fields, fieldStoreName),
		BusinessDate:         dateField(fields, fieldBusinessDate),
		TotalSales:           numberField(fields, fieldTotalSales),
		NetSales:             numberField(fields, fieldNetSales),
		CashPayments:         numberField(fields, fieldCashPayments),
		CardPayments:         numberField(fields, fieldCardPayments),
		DigitalPayments:      numberField(fields, fieldDigitalPayments),
		GrabPayments:         numberField(fields, fieldGrabPayments),
		VoucherPayments:      numberField(fields, fieldVoucherPayments),
		BankTransferPayments: numberField(fields, fieldBankTransferPayments),
		MarketingExpenses:    numberField(fields, fieldMarketingExpenses),
		ActualCashCounted:    numberField(fields, fieldActualCashCounted),
		CashFloat:            numberField(fields, fieldCashFloat),
		KitchenBudget:        numberField(fields, fieldKitchenBudget),
		BarBudget:            numberField(fields, fieldBarBudget),
		NonFoodBudget:        numberField(fields, fieldNonFoodBudget),
		StaffMealBudget:      numberField(fields, fieldStaffMealBudget),
		Variance:             numberField(fields, fieldVariance),
		CashForDeposit:       numberField(fields, fieldCashForDeposit),
		TransferNeeded:       numberField(fields, fieldTransferNeeded),
		TotalBudgets:         numberField(fields, fieldTotalBudgets),
		LockStatus:           LockStatus(stringField(fields, fieldLockStatus)),
		VerifiedStatus:       VerifiedStatus(stringField(fields, fieldVerifiedStatus)),
		VerifiedBy:           stringField(fields, fieldVerifiedBy),
		VerifiedAt:           timeField(fields, fieldVerifiedAt),
		VerificationNotes:    stringField(fields, fieldVerificationNotes),
		FoodCostDeducted:     numberField(fields, fieldFoodCostDeducted),
		SubmittedBy:          stringField(fields, fieldSubmittedBy),
		LastUpdatedBy:        stringField(fields, fieldLastUpdatedBy),
		LastUpdatedAt:        timeField(fields, fieldLastUpdatedAt),
		UnlockedBy:           stringField(fields, fieldUnlockedBy),
		UnlockedAt:           timeField(fields, fieldUnlockedAt),
	}
	return c
}

// ClosingSnapshot is the history snapshot: the full spaced-key field dump,
// JSON-serialized, dates already ISO-8601.
func ClosingSnapshot(c *ClosingRecord) string {
	b, err := json.Marshal(ClosingToFields(c))
	if err != nil {
		return "{}"
	}
	return string(b)
}

const (
	fieldWeekStart           = "Week Start"
	fieldKitchenWeeklyBudget = "Kitchen Weekly Budget"
	fieldBarWeeklyBudget     = "Bar Weekly Budget"
	fieldWeeklyBudgetAmount  = "Weekly Budget Amount"
	fieldRemainingBudget     = "Remaining Budget"
	fieldBudgetStatus        = "Status"
	fieldOriginalAmount      = "Original Weekly Budget Amount"
	fieldLockedBy            = "Locked By"
	fieldLockedAt            = "Locked At"
)

func BudgetToFields(b *WeeklyBudget) map[string]interface{} {
	fields := map[string]interface{}{
		fieldTenantId:            b.TenantId,
		fieldWeekStart:           b.WeekStart.Format("2006-01-02"),
		fieldKitchenWeeklyBudget: decimalField(b.KitchenWeeklyBudget),
		fieldBarWeeklyBudget:     decimalField(b.BarWeeklyBudget),
		fieldWeeklyBudgetAmount:  decimalField(b.WeeklyBudgetAmount),
		fieldFoodCostDeducted:    decimalField(b.FoodCostDeducted),
		fieldRemainingBudget:     decimalField(b.RemainingBudget),
		fieldBudgetStatus:        string(b.Status),
		fieldSubmittedBy:         b.SubmittedBy,
		fieldLockedBy:            b.LockedBy,
	}
	if b.StoreId != "" {
		fields[fieldStore] = []string{b.StoreId}
	}
	if b.OriginalWeeklyBudgetAmount != nil {
		fields[fieldOriginalAmount] = decimalField(*b.OriginalWeeklyBudgetAmount)
	}
	setTimeField(fields, fieldLockedAt, b.LockedAt)
	return fields
}

func BudgetFromFields(id string, fields map[string]interface{}) *WeeklyBudget {
	b := &WeeklyBudget{
		ID:                  id,
		TenantId:            stringField(fields, fieldTenantId),
		StoreId:             linkedIdField(fields, fieldStore),
		WeekStart:           dateField(fields, fieldWeekStart),
		KitchenWeeklyBudget: numberField(fields, fieldKitchenWeeklyBudget),
		BarWeeklyBudget:     numberField(fields, fieldBarWeeklyBudget),
		WeeklyBudgetAmount:  numberField(fields, fieldWeeklyBudgetAmount),
		FoodCostDeducted:    numberField(fields, fieldFoodCostDeducted),
		RemainingBudget:     numberField(fields, fieldRemainingBudget),
		Status:              BudgetStatus(stringField(fields, fieldBudgetStatus)),
		SubmittedBy:         stringField(fields, fieldSubmittedBy),
		LockedBy:            stringField(fields, fieldLockedBy),
		LockedAt:            timeField(fields, fieldLockedAt),
	}
	if _, ok := fields[fieldOriginalAmount]; ok {
		orig := numberField(fields, fieldOriginalAmount)
		b.OriginalWeeklyBudgetAmount = &orig
	}
	return b
}

const (
	fieldAction        = "Action"
	fieldChangedBy     = "Changed By"
	fieldTimestamp     = "Timestamp"
	fieldRecordId      = "Record ID"
	fieldChangedFields = "Changed Fields"
	fieldSnapshot      = "Snapshot"
)

func HistoryToFields(h *HistoryEntry) map[string]interface{} {
	return map[string]interface{}{
		fieldTenantId:      h.TenantId,
		fieldAction:        string(h.Action),
		fieldStore:         h.Store,
		fieldBusinessDate:  h.BusinessDate.Format("2006-01-02"),
		fieldChangedBy:     h.ChangedBy,
		fieldTimestamp:     h.Timestamp.UTC().Format(time.RFC3339),
		fieldRecordId:      h.RecordId,
		fieldLockStatus:    string(h.LockStatus),
		fieldChangedFields: []string(h.ChangedFields),
		fieldSnapshot:      h.Snapshot,
	}
}

func HistoryFromFields(id string, fields map[string]interface{}) *HistoryEntry {
	return &HistoryEntry{
		ID:            id,
		TenantId:      stringField(fields, fieldTenantId),
		Action:        HistoryAction(stringField(fields, fieldAction)),
		Store:         stringField(fields, fieldStore),
		BusinessDate:  dateField(fields, fieldBusinessDate),
		ChangedBy:     stringField(fields, fieldChangedBy),
		Timestamp:     dateTimeField(fields, fieldTimestamp),
		RecordId:      stringField(fields, fieldRecordId),
		LockStatus:    LockStatus(stringField(fields, fieldLockStatus)),
		ChangedFields: stringListField(fields, fieldChangedFields),
		Snapshot:      stringField(fields, fieldSnapshot),
	}
}

func decimalField(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func setTimeField(fields map[string]interface{}, key string, t *time.Time) {
	if t != nil {
		fields[key] = t.UTC().Format(time.RFC3339)
	}
}

func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

// linkedIdField reads the first element of a linked-record identifier array.
func linkedIdField(fields map[string]interface{}, key string) string {
	switch v := fields[key].(type) {
	case []interface{}:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case string:
		return v
	}
	return ""
}

func numberField(fields map[string]interface{}, key string) decimal.Decimal {
	switch v := fields[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case json.Number:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return d
		}
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.Zero
}

func dateField(fields map[string]interface{}, key string) time.Time {
	s := stringField(fields, key)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOnly(t.UTC())
	}
	return time.Time{}
}

func dateTimeField(fields map[string]interface{}, key string) time.Time {
	s := stringField(fields, key)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func timeField(fields map[string]interface{}, key string) *time.Time {
	s := stringField(fields, key)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	return nil
}

func stringListField(fields map[string]interface{}, key string) StringList {
	switch v := fields[key].(type) {
	case []string:
		return StringList(v)
	case []interface{}:
		out := make(StringList, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		if err := json.Unmarshal([]byte(v), &out); err == nil {
			return StringList(out)
		}
	}
	return nil
}

// FormatMoney rounds to 2 decimals for display strings.
func FormatMoney(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return strconv.FormatFloat(f, 'f', 2, 64)
}
