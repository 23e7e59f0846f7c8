package workflow

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/closings_backend/models"
	"bitbucket.org/mmdatafocus/closings_backend/utils"
	"github.com/shopspring/decimal"
)

var testWeek = time.Date(2025, 11, 17, 0, 0, 0, 0, time.UTC) // Monday of testNow's week

func lockedBudget(t *testing.T, engine *Engine, kitchen, bar float64) *models.WeeklyBudget {
	t.Helper()
	ctx := context.Background()
	draft, err := engine.UpsertWeeklyBudget(ctx, &BudgetInput{
		TenantId:      "tenant1",
		StoreId:       "recStore1",
		WeekStart:     testWeek,
		KitchenBudget: kitchen,
		BarBudget:     bar,
		SubmittedBy:   "Owner",
	})
	if err != nil {
		t.Fatalf("UpsertWeeklyBudget: %v", err)
	}
	locked, err := engine.LockWeeklyBudget(ctx, &LockBudgetInput{
		TenantId: "tenant1",
		BudgetId: draft.ID,
		LockedBy: "Owner",
	})
	if err != nil {
		t.Fatalf("LockWeeklyBudget: %v", err)
	}
	return locked
}

func TestUpsertWeeklyBudget_Rules(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	// Week start must be a Monday.
	_, err := engine.UpsertWeeklyBudget(ctx, &BudgetInput{
		TenantId: "tenant1", StoreId: "recStore1",
		WeekStart: testWeek.AddDate(0, 0, 2), KitchenBudget: 100,
	})
	if utils.KindOf(err) != utils.ErrorKindValidation {
		t.Fatalf("non-Monday week start must be rejected, got %v", err)
	}

	// Past weeks are closed books.
	_, err = engine.UpsertWeeklyBudget(ctx, &BudgetInput{
		TenantId: "tenant1", StoreId: "recStore1",
		WeekStart: testWeek.AddDate(0, 0, -7), KitchenBudget: 100,
	})
	if utils.KindOf(err) != utils.ErrorKindForbidden {
		t.Fatalf("past week must be forbidden, got %v", err)
	}

	// Draft edits recompute the totals.
	draft, err := engine.UpsertWeeklyBudget(ctx, &BudgetInput{
		TenantId: "tenant1", StoreId: "recStore1",
		WeekStart: testWeek, KitchenBudget: 500, BarBudget: 200,
	})
	if err != nil {
		t.Fatalf("UpsertWeeklyBudget: %v", err)
	}
	if !draft.WeeklyBudgetAmount.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("expected total 700, got %s", draft.WeeklyBudgetAmount)
	}
	edited, err := engine.UpsertWeeklyBudget(ctx, &BudgetInput{
		TenantId: "tenant1", StoreId: "recStore1",
		WeekStart: testWeek, KitchenBudget: 600, BarBudget: 200,
	})
	if err != nil {
		t.Fatalf("draft edit: %v", err)
	}
	if edited.ID != draft.ID {
		t.Fatalf("edit must hit the same budget, got %s vs %s", edited.ID, draft.ID)
	}
	if !edited.RemainingBudget.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("expected remaining 800, got %s", edited.RemainingBudget)
	}

	// Locked budgets refuse edits.
	if _, err := engine.LockWeeklyBudget(ctx, &LockBudgetInput{TenantId: "tenant1", BudgetId: draft.ID}); err != nil {
		t.Fatalf("LockWeeklyBudget: %v", err)
	}
	_, err = engine.UpsertWeeklyBudget(ctx, &BudgetInput{
		TenantId: "tenant1", StoreId: "recStore1",
		WeekStart: testWeek, KitchenBudget: 1, BarBudget: 1,
	})
	if utils.KindOf(err) != utils.ErrorKindForbidden {
		t.Fatalf("editing a locked budget must be forbidden, got %v", err)
	}
}

func TestVerifyClosing_DeductsFoodSpendOnce(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	lockedBudget(t, engine, 600, 200)

	result, err := engine.UpsertClosing(ctx, validInput("recStore1", testNow))
	if err != nil {
		t.Fatalf("UpsertClosing: %v", err)
	}
	id := result.Record.ID

	if _, err := engine.VerifyClosing(ctx, id, string(models.VerifiedStatusVerified), "Manager B", ""); err != nil {
		t.Fatalf("VerifyClosing: %v", err)
	}
	budget, err := engine.GetWeeklyBudget(utils.SetTenantIdInContext(ctx, "tenant1"), "recStore1", testWeek)
	if err != nil {
		t.Fatalf("GetWeeklyBudget: %v", err)
	}
	// Food spend = kitchen 300 + bar 100.
	if !budget.FoodCostDeducted.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected 400 deducted, got %s", budget.FoodCostDeducted)
	}
	if !budget.RemainingBudget.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected 400 remaining, got %s", budget.RemainingBudget)
	}
	rec, _ := engine.GetClosing(ctx, id)
	if !rec.FoodCostDeducted.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("closing anchor should be 400, got %s", rec.FoodCostDeducted)
	}

	// Verifying the same unchanged record again must not double-deduct.
	if _, err := engine.VerifyClosing(ctx, id, string(models.VerifiedStatusVerified), "Manager B", "second pass"); err != nil {
		t.Fatalf("re-verify: %v", err)
	}
	budget, _ = engine.GetWeeklyBudget(utils.SetTenantIdInContext(ctx, "tenant1"), "recStore1", testWeek)
	if !budget.FoodCostDeducted.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("re-verify double-deducted: %s", budget.FoodCostDeducted)
	}
}

func TestVerifyClosing_NeedsUpdateReversesExactly(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	lockedBudget(t, engine, 600, 200)

	result, err := engine.UpsertClosing(ctx, validInput("recStore1", testNow))
	if err != nil {
		t.Fatalf("UpsertClosing: %v", err)
	}
	id := result.Record.ID

	if _, err := engine.VerifyClosing(ctx, id, string(models.VerifiedStatusVerified), "Manager B", ""); err != nil {
		t.Fatalf("VerifyClosing: %v", err)
	}
	if _, err := engine.VerifyClosing(ctx, id, string(models.VerifiedStatusNeedsUpdate), "Manager B", "redo"); err != nil {
		t.Fatalf("needs update: %v", err)
	}

	budget, err := engine.GetWeeklyBudget(utils.SetTenantIdInContext(ctx, "tenant1"), "recStore1", testWeek)
	if err != nil {
		t.Fatalf("GetWeeklyBudget: %v", err)
	}
	if !budget.FoodCostDeducted.IsZero() {
		t.Fatalf("reversal should zero the deduction, got %s", budget.FoodCostDeducted)
	}
	if !budget.RemainingBudget.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("reversal should restore remaining to 800, got %s", budget.RemainingBudget)
	}
	rec, _ := engine.GetClosing(ctx, id)
	if !rec.FoodCostDeducted.IsZero() {
		t.Fatalf("closing anchor should be cleared, got %s", rec.FoodCostDeducted)
	}
}

func TestVerifyClosing_EditedSpendContributesLatestOnly(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	lockedBudget(t, engine, 600, 200)

	result, err := engine.UpsertClosing(ctx, validInput("recStore1", testNow))
	if err != nil {
		t.Fatalf("UpsertClosing: %v", err)
	}
	id := result.Record.ID
	if _, err := engine.VerifyClosing(ctx, id, string(models.VerifiedStatusVerified), "Manager B", ""); err != nil {
		t.Fatalf("VerifyClosing: %v", err)
	}

	// Manager flags it, cashier resubmits with a higher kitchen spend,
	// manager verifies again. The budget must reflect 430, not 400+430.
	if _, err := engine.VerifyClosing(ctx, id, string(models.VerifiedStatusNeedsUpdate), "Manager B", ""); err != nil {
		t.Fatalf("needs update: %v", err)
	}
	in := validInput("recStore1", testNow)
	in.KitchenBudget = f(330)
	if _, err := engine.UpsertClosing(ctx, in); err != nil {
		t.Fatalf("resubmission: %v", err)
	}
	if _, err := engine.VerifyClosing(ctx, id, string(models.VerifiedStatusVerified), "Manager B", ""); err != nil {
		t.Fatalf("re-verify: %v", err)
	}

	budget, err := engine.GetWeeklyBudget(utils.SetTenantIdInContext(ctx, "tenant1"), "recStore1", testWeek)
	if err != nil {
		t.Fatalf("GetWeeklyBudget: %v", err)
	}
	if !budget.FoodCostDeducted.Equal(decimal.NewFromInt(430)) {
		t.Fatalf("expected 430 deducted after edit, got %s", budget.FoodCostDeducted)
	}
	if !budget.RemainingBudget.Equal(decimal.NewFromInt(370)) {
		t.Fatalf("expected 370 remaining, got %s", budget.RemainingBudget)
	}
}

func TestVerifyClosing_PatchAfterUnlockMovesBudgetByDelta(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	lockedBudget(t, engine, 600, 200)

	result, err := engine.UpsertClosing(ctx, validInput("recStore1", testNow))
	if err != nil {
		t.Fatalf("UpsertClosing: %v", err)
	}
	id := result.Record.ID
	if _, err := engine.VerifyClosing(ctx, id, string(models.VerifiedStatusVerified), "Manager B", ""); err != nil {
		t.Fatalf("VerifyClosing: %v", err)
	}

	// PIN unlock, edit the kitchen spend in place, verify again. The patch
	// preserves the deduction anchor, so the budget moves by exactly the
	// 300→330 difference instead of charging the full spend twice.
	if _, err := engine.UnlockClosing(ctx, id, "4321"); err != nil {
		t.Fatalf("UnlockClosing: %v", err)
	}
	if _, err := engine.PatchClosing(ctx, id, &ClosingInput{KitchenBudget: f(330)}); err != nil {
		t.Fatalf("PatchClosing: %v", err)
	}
	if _, err := engine.VerifyClosing(ctx, id, string(models.VerifiedStatusVerified), "Manager B", ""); err != nil {
		t.Fatalf("re-verify: %v", err)
	}

	budget, err := engine.GetWeeklyBudget(utils.SetTenantIdInContext(ctx, "tenant1"), "recStore1", testWeek)
	if err != nil {
		t.Fatalf("GetWeeklyBudget: %v", err)
	}
	if !budget.FoodCostDeducted.Equal(decimal.NewFromInt(430)) {
		t.Fatalf("expected 430 deducted after the edit, got %s", budget.FoodCostDeducted)
	}
	if !budget.RemainingBudget.Equal(decimal.NewFromInt(370)) {
		t.Fatalf("expected 370 remaining, got %s", budget.RemainingBudget)
	}
	rec, _ := engine.GetClosing(ctx, id)
	if !rec.FoodCostDeducted.Equal(decimal.NewFromInt(430)) {
		t.Fatalf("closing anchor should follow the new spend, got %s", rec.FoodCostDeducted)
	}
}

func TestVerifyClosing_OverspendGoesNegative(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	lockedBudget(t, engine, 200, 100)

	result, err := engine.UpsertClosing(ctx, validInput("recStore1", testNow))
	if err != nil {
		t.Fatalf("UpsertClosing: %v", err)
	}
	if _, err := engine.VerifyClosing(ctx, result.Record.ID, string(models.VerifiedStatusVerified), "Manager B", ""); err != nil {
		t.Fatalf("VerifyClosing: %v", err)
	}

	budget, err := engine.GetWeeklyBudget(utils.SetTenantIdInContext(ctx, "tenant1"), "recStore1", testWeek)
	if err != nil {
		t.Fatalf("GetWeeklyBudget: %v", err)
	}
	// Spend 400 against a 300 envelope: overspend is surfaced, not clamped.
	if !budget.RemainingBudget.Equal(decimal.NewFromInt(-100)) {
		t.Fatalf("expected remaining -100, got %s", budget.RemainingBudget)
	}
}

func TestLockWeeklyBudget_RecomputesOverVerifiedClosings(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	// Three closings in the week: two verified, one still pending.
	spends := []struct {
		day     time.Time
		kitchen float64
		bar     float64
		verify  bool
	}{
		{testWeek, 80, 20, true},
		{testWeek.AddDate(0, 0, 1), 40, 10, true},
		{testWeek.AddDate(0, 0, 2), 300, 100, false},
	}
	for _, s := range spends {
		in := validInput("recStore1", s.day)
		in.KitchenBudget = f(s.kitchen)
		in.BarBudget = f(s.bar)
		result, err := engine.UpsertClosing(ctx, in)
		if err != nil {
			t.Fatalf("UpsertClosing %s: %v", s.day.Format("2006-01-02"), err)
		}
		if s.verify {
			if _, err := engine.VerifyClosing(ctx, result.Record.ID, string(models.VerifiedStatusVerified), "Manager B", ""); err != nil {
				t.Fatalf("VerifyClosing: %v", err)
			}
		}
	}

	draft, err := engine.UpsertWeeklyBudget(ctx, &BudgetInput{
		TenantId: "tenant1", StoreId: "recStore1",
		WeekStart: testWeek, KitchenBudget: 500, BarBudget: 100,
	})
	if err != nil {
		t.Fatalf("UpsertWeeklyBudget: %v", err)
	}

	locked, err := engine.LockWeeklyBudget(ctx, &LockBudgetInput{
		TenantId: "tenant1", BudgetId: draft.ID, LockedBy: "Owner",
	})
	if err != nil {
		t.Fatalf("LockWeeklyBudget: %v", err)
	}
	// Verified spend: (80+20) + (40+10) = 150. The pending closing is out.
	if !locked.FoodCostDeducted.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected 150 deducted at lock, got %s", locked.FoodCostDeducted)
	}
	if !locked.RemainingBudget.Equal(decimal.NewFromInt(450)) {
		t.Fatalf("expected 450 remaining, got %s", locked.RemainingBudget)
	}
	if locked.Status != models.BudgetStatusLocked {
		t.Fatalf("expected locked status, got %s", locked.Status)
	}
	if locked.OriginalWeeklyBudgetAmount == nil || !locked.OriginalWeeklyBudgetAmount.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("original amount should capture the first lock total, got %v", locked.OriginalWeeklyBudgetAmount)
	}
	if locked.LockedAt == nil || !locked.LockedAt.Equal(testNow) {
		t.Fatalf("locked_at not stamped: %v", locked.LockedAt)
	}

	// Locking again is a no-op, not an error.
	again, err := engine.LockWeeklyBudget(ctx, &LockBudgetInput{TenantId: "tenant1", BudgetId: draft.ID})
	if err != nil {
		t.Fatalf("repeat lock: %v", err)
	}
	if !again.FoodCostDeducted.Equal(locked.FoodCostDeducted) {
		t.Fatalf("repeat lock changed the budget: %s", again.FoodCostDeducted)
	}
}

func TestLockWeeklyBudget_ClampsRemainingAtZero(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	in := validInput("recStore1", testNow)
	result, err := engine.UpsertClosing(ctx, in)
	if err != nil {
		t.Fatalf("UpsertClosing: %v", err)
	}
	if _, err := engine.VerifyClosing(ctx, result.Record.ID, string(models.VerifiedStatusVerified), "Manager B", ""); err != nil {
		t.Fatalf("VerifyClosing: %v", err)
	}

	draft, err := engine.UpsertWeeklyBudget(ctx, &BudgetInput{
		TenantId: "tenant1", StoreId: "recStore1",
		WeekStart: testWeek, KitchenBudget: 200, BarBudget: 100,
	})
	if err != nil {
		t.Fatalf("UpsertWeeklyBudget: %v", err)
	}
	locked, err := engine.LockWeeklyBudget(ctx, &LockBudgetInput{TenantId: "tenant1", BudgetId: draft.ID})
	if err != nil {
		t.Fatalf("LockWeeklyBudget: %v", err)
	}
	// 400 verified spend against 300: the authoritative recompute floors at zero.
	if !locked.RemainingBudget.IsZero() {
		t.Fatalf("lock recompute must clamp remaining at zero, got %s", locked.RemainingBudget)
	}
	if !locked.FoodCostDeducted.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected full 400 recorded as deducted, got %s", locked.FoodCostDeducted)
	}
}

func TestLockWeeklyBudget_ByStoreAndWeekWithOverrides(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.UpsertWeeklyBudget(ctx, &BudgetInput{
		TenantId: "tenant1", StoreId: "recStore1",
		WeekStart: testWeek, KitchenBudget: 500, BarBudget: 100,
	}); err != nil {
		t.Fatalf("UpsertWeeklyBudget: %v", err)
	}

	locked, err := engine.LockWeeklyBudget(ctx, &LockBudgetInput{
		TenantId:      "tenant1",
		StoreId:       "recStore1",
		WeekStart:     testWeek,
		KitchenBudget: f(700),
		LockedBy:      "Owner",
	})
	if err != nil {
		t.Fatalf("LockWeeklyBudget: %v", err)
	}
	if !locked.WeeklyBudgetAmount.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("kitchen override should apply at lock, got total %s", locked.WeeklyBudgetAmount)
	}

	// Unknown store+week is a not-found, not a silent create.
	_, err = engine.LockWeeklyBudget(ctx, &LockBudgetInput{
		TenantId: "tenant1", StoreId: "recStoreX", WeekStart: testWeek,
	})
	if utils.KindOf(err) != utils.ErrorKindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
