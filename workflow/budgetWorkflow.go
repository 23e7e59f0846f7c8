package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/closings_backend/models"
	"bitbucket.org/mmdatafocus/closings_backend/utils"
	"github.com/shopspring/decimal"
)

// Weekly-budget reconciliation: delta-based deduction and reversal of food
// spend (kitchen + bar) against a locked weekly envelope, plus the
// authoritative from-scratch recompute performed at budget lock time.

func budgetLockKey(tenant, storeId string, weekStart time.Time) string {
	return "budget:" + tenant + ":" + storeId + ":" + weekStart.Format("2006-01-02")
}

// applyVerificationDelta charges the closing's current food spend to its
// week's locked budget, as a delta against the closing's anchor. Repeated
// verification of an unchanged record is a no-op; an edited record only
// ever contributes its latest spend, never an accumulation.
func (e *Engine) applyVerificationDelta(ctx context.Context, closing *models.ClosingRecord) error {
	if closing.StoreId == "" {
		// Legacy name-only closings have no budget linkage.
		return nil
	}
	weekStart := models.WeekStartOf(closing.BusinessDate)

	release := e.locks.Acquire(ctx, budgetLockKey(closing.TenantId, closing.StoreId, weekStart))
	defer release()

	opCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	budget, err := e.stores.Budgets.FindBudget(opCtx, closing.TenantId, closing.StoreId, weekStart)
	if err != nil {
		return err
	}
	if budget == nil || budget.Status != models.BudgetStatusLocked {
		// Budgets are optional; a closing verifies fine without one.
		return nil
	}

	newSpend := closing.FoodSpend()
	delta := newSpend.Sub(closing.FoodCostDeducted)
	if delta.IsZero() {
		return nil
	}

	budget.FoodCostDeducted = budget.FoodCostDeducted.Add(delta)
	// Deliberately unclamped: a negative remainder surfaces overspend.
	budget.RemainingBudget = budget.RemainingBudget.Sub(delta)

	if _, err := e.stores.Budgets.UpdateBudget(opCtx, budget); err != nil {
		return err
	}
	closing.FoodCostDeducted = newSpend
	return nil
}

// reverseDeduction gives the closing's anchored deduction back to its
// week's budget. The before-update snapshot resolves the week, so a date
// edit in the same request cannot strand the reversal. Returns whether the
// anchor may be cleared.
func (e *Engine) reverseDeduction(ctx context.Context, before *models.ClosingRecord) (bool, error) {
	anchor := before.FoodCostDeducted
	if !anchor.IsPositive() {
		return true, nil
	}
	if before.StoreId == "" {
		return true, nil
	}
	weekStart := models.WeekStartOf(before.BusinessDate)

	release := e.locks.Acquire(ctx, budgetLockKey(before.TenantId, before.StoreId, weekStart))
	defer release()

	opCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	budget, err := e.stores.Budgets.FindBudget(opCtx, before.TenantId, before.StoreId, weekStart)
	if err != nil {
		return false, err
	}
	if budget == nil {
		// Nothing left to credit; still safe to clear the anchor.
		return true, nil
	}

	budget.RemainingBudget = budget.RemainingBudget.Add(anchor)
	// Reversal never pushes the running deduction negative, even when
	// bookkeeping elsewhere has drifted.
	budget.FoodCostDeducted = budget.FoodCostDeducted.Sub(anchor)
	if budget.FoodCostDeducted.IsNegative() {
		budget.FoodCostDeducted = decimal.Zero
	}

	if _, err := e.stores.Budgets.UpdateBudget(opCtx, budget); err != nil {
		return false, err
	}
	return true, nil
}

type BudgetInput struct {
	TenantId      string
	StoreId       string
	WeekStart     time.Time
	KitchenBudget float64
	BarBudget     float64
	SubmittedBy   string
}

// UpsertWeeklyBudget creates or edits a Draft envelope. Locked budgets and
// past weeks reject edits.
func (e *Engine) UpsertWeeklyBudget(ctx context.Context, in *BudgetInput) (*models.WeeklyBudget, error) {
	tenant, err := e.tenantFor(ctx, in.TenantId)
	if err != nil {
		return nil, err
	}
	if in.StoreId == "" {
		return nil, utils.ValidationError("store_id is required")
	}
	week := models.DateOnly(in.WeekStart)
	if week.IsZero() {
		return nil, utils.ValidationError("week_start is required")
	}
	if !models.IsMonday(week) {
		return nil, utils.ValidationError("week_start %s is not a Monday", week.Format("2006-01-02"))
	}
	if in.KitchenBudget < 0 || in.BarBudget < 0 {
		return nil, utils.ValidationError("budget amounts must not be negative")
	}
	if week.Before(models.WeekStartOf(e.now())) {
		return nil, utils.ForbiddenError("week starting %s is in the past; past weeks cannot be edited", week.Format("2006-01-02"))
	}

	release := e.locks.Acquire(ctx, budgetLockKey(tenant, in.StoreId, week))
	defer release()

	opCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	kitchen := decimal.NewFromFloat(in.KitchenBudget)
	bar := decimal.NewFromFloat(in.BarBudget)
	total := kitchen.Add(bar)

	existing, err := e.stores.Budgets.FindBudget(opCtx, tenant, in.StoreId, week)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == models.BudgetStatusLocked {
			return nil, utils.ForbiddenError("weekly budget for week %s is locked", week.Format("2006-01-02"))
		}
		existing.KitchenWeeklyBudget = kitchen
		existing.BarWeeklyBudget = bar
		existing.WeeklyBudgetAmount = total
		existing.RemainingBudget = floorZero(total.Sub(existing.FoodCostDeducted))
		existing.SubmittedBy = in.SubmittedBy
		return e.stores.Budgets.UpdateBudget(opCtx, existing)
	}

	budget := &models.WeeklyBudget{
		TenantId:            tenant,
		StoreId:             in.StoreId,
		WeekStart:           week,
		KitchenWeeklyBudget: kitchen,
		BarWeeklyBudget:     bar,
		WeeklyBudgetAmount:  total,
		FoodCostDeducted:    decimal.Zero,
		RemainingBudget:     floorZero(total),
		Status:              models.BudgetStatusDraft,
		SubmittedBy:         in.SubmittedBy,
	}
	return e.stores.Budgets.CreateBudget(opCtx, budget)
}

type LockBudgetInput struct {
	TenantId  string
	BudgetId  string
	StoreId   string
	WeekStart time.Time
	// Optional overrides of the stored draft figures.
	KitchenBudget *float64
	BarBudget     *float64
	LockedBy      string
}

// LockWeeklyBudget freezes the envelope and recomputes food_cost_deducted
// from scratch over all Verified closings in the week. This is the
// authoritative reconciliation point: it corrects any drift the per-closing
// deltas accumulated. Locking an already-locked budget returns it unchanged.
func (e *Engine) LockWeeklyBudget(ctx context.Context, in *LockBudgetInput) (*models.WeeklyBudget, error) {
	tenant, err := e.tenantFor(ctx, in.TenantId)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	var budget *models.WeeklyBudget
	if in.BudgetId != "" {
		budget, err = e.stores.Budgets.GetBudget(opCtx, in.BudgetId)
	} else {
		week := models.DateOnly(in.WeekStart)
		if in.StoreId == "" || week.IsZero() {
			return nil, utils.ValidationError("budget_id or (store_id, week_start) is required")
		}
		budget, err = e.stores.Budgets.FindBudget(opCtx, tenant, in.StoreId, week)
		if err == nil && budget == nil {
			err = utils.NotFoundError("weekly budget for store %s week %s", in.StoreId, week.Format("2006-01-02"))
		}
	}
	if err != nil {
		return nil, err
	}

	release := e.locks.Acquire(ctx, budgetLockKey(budget.TenantId, budget.StoreId, budget.WeekStart))
	defer release()

	// Re-read under the lock: the preliminary read only resolved the key,
	// and a concurrent lock or draft edit may have landed since.
	budget, err = e.stores.Budgets.GetBudget(opCtx, budget.ID)
	if err != nil {
		return nil, err
	}

	if budget.Status == models.BudgetStatusLocked {
		return budget, nil
	}

	kitchen := budget.KitchenWeeklyBudget
	bar := budget.BarWeeklyBudget
	if in.KitchenBudget != nil {
		kitchen = decimal.NewFromFloat(*in.KitchenBudget)
	}
	if in.BarBudget != nil {
		bar = decimal.NewFromFloat(*in.BarBudget)
	}
	total := kitchen.Add(bar)

	closings, err := e.stores.Closings.FindClosingsInWeek(opCtx, budget.TenantId, budget.StoreId, budget.WeekStart)
	if err != nil {
		return nil, err
	}
	spent := decimal.Zero
	for _, c := range closings {
		if c.VerifiedStatus == models.VerifiedStatusVerified {
			spent = spent.Add(c.FoodSpend())
		}
	}

	now := e.now()
	budget.KitchenWeeklyBudget = kitchen
	budget.BarWeeklyBudget = bar
	budget.WeeklyBudgetAmount = total
	budget.FoodCostDeducted = spent
	budget.RemainingBudget = floorZero(total.Sub(spent))
	budget.Status = models.BudgetStatusLocked
	budget.LockedBy = in.LockedBy
	budget.LockedAt = &now
	if budget.OriginalWeeklyBudgetAmount == nil {
		// First-ever lock: preserve the baseline through later re-locks.
		orig := total
		budget.OriginalWeeklyBudgetAmount = &orig
	}

	return e.stores.Budgets.UpdateBudget(opCtx, budget)
}

// GetWeeklyBudget is a read-through for the transport layer.
func (e *Engine) GetWeeklyBudget(ctx context.Context, storeId string, weekStart time.Time) (*models.WeeklyBudget, error) {
	tenant, err := e.tenantFor(ctx, "")
	if err != nil {
		return nil, err
	}
	opCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()
	budget, err := e.stores.Budgets.FindBudget(opCtx, tenant, storeId, weekStart)
	if err != nil {
		return nil, err
	}
	if budget == nil {
		return nil, utils.NotFoundError("weekly budget for store %s week %s", storeId, models.DateOnly(weekStart).Format("2006-01-02"))
	}
	return budget, nil
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
