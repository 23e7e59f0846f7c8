package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/closings_backend/config"
	"bitbucket.org/mmdatafocus/closings_backend/models"
	"bitbucket.org/mmdatafocus/closings_backend/store"
	"bitbucket.org/mmdatafocus/closings_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Engine owns the closing lifecycle and the weekly-budget reconciliation.
// All collaborators are injected; nothing reads ambient state.
type Engine struct {
	cfg      *config.Config
	logger   *logrus.Logger
	stores   store.Stores
	notifier Notifier
	locks    *KeyedLocker
	now      func() time.Time
}

func NewEngine(cfg *config.Config, logger *logrus.Logger, stores store.Stores, notifier Notifier, locks *KeyedLocker) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{
		cfg:      cfg,
		logger:   logger,
		stores:   stores,
		notifier: notifier,
		locks:    locks,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

const (
	UpsertStatusCreated = "created_locked"
	UpsertStatusUpdated = "updated_locked"
)

type UpsertResult struct {
	Status string                `json:"status"`
	Record *models.ClosingRecord `json:"record"`
}

type VerifyResult struct {
	RecordId  string                `json:"record_id"`
	NewStatus models.VerifiedStatus `json:"new_status"`
}

func (e *Engine) tenantFor(ctx context.Context, fallback string) (string, error) {
	if tenant, ok := utils.GetTenantIdFromContext(ctx); ok && tenant != "" {
		return tenant, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", utils.ValidationError("tenant_id is required")
}

func (e *Engine) userFor(ctx context.Context, fallback string) string {
	if user, ok := utils.GetUserNameFromContext(ctx); ok && user != "" {
		return user
	}
	return fallback
}

func storeKey(storeId, storeName string) string {
	if storeId != "" {
		return "id:" + storeId
	}
	return "name:" + models.NormalizeStoreName(storeName)
}

func firstViolationError(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	return utils.ValidationError("%s", violations[0].Message)
}

// UpsertClosing is the cashier submission path: find-or-create by
// (store, business_date) under a keyed lock, then lock the record.
func (e *Engine) UpsertClosing(ctx context.Context, in *ClosingInput) (*UpsertResult, error) {
	tenant, err := e.tenantFor(ctx, in.TenantId)
	if err != nil {
		return nil, err
	}
	if in.StoreId == "" && models.NormalizeStoreName(in.StoreName) == "" {
		return nil, utils.ValidationError("store_id or store_name is required")
	}
	if in.BusinessDate.IsZero() {
		return nil, utils.ValidationError("business_date is required")
	}
	if err := firstViolationError(ValidateInput(in)); err != nil {
		return nil, err
	}

	day := models.DateOnly(in.BusinessDate)
	release := e.locks.Acquire(ctx, "closing:"+tenant+":"+storeKey(in.StoreId, in.StoreName)+":"+day.Format("2006-01-02"))
	defer release()

	opCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	candidates, err := e.stores.Closings.FindClosingsByDate(opCtx, tenant, day)
	if err != nil {
		return nil, err
	}
	// A caller sending only store_id still has to match legacy records
	// stored with only a name, so the name fallback needs the directory's
	// display name to compare against.
	matchName := in.StoreName
	if in.StoreId != "" && models.NormalizeStoreName(matchName) == "" {
		matchName = e.stores.Directory.ResolveDisplayName(opCtx, in.StoreId)
	}
	var existing *models.ClosingRecord
	for _, c := range candidates {
		if c.MatchesStore(in.StoreId, matchName) {
			existing = c
			break
		}
	}

	if existing == nil {
		return e.createClosing(opCtx, tenant, day, in)
	}

	if existing.VerifiedStatus != models.VerifiedStatusNeedsUpdate &&
		(existing.LockStatus == models.LockStatusLocked || existing.VerifiedStatus == models.VerifiedStatusVerified) {
		return nil, utils.ConflictError("closing for %s on %s is locked and cannot be modified",
			existing.DisplayName(), day.Format("2006-01-02"))
	}

	return e.resubmitClosing(opCtx, existing, in)
}

func (e *Engine) createClosing(ctx context.Context, tenant string, day time.Time, in *ClosingInput) (*UpsertResult, error) {
	now := e.now()
	submittedBy := e.userFor(ctx, in.SubmittedBy)

	rec := &models.ClosingRecord{
		TenantId:       tenant,
		StoreId:        in.StoreId,
		StoreName:      in.StoreName,
		BusinessDate:   day,
		LockStatus:     models.LockStatusLocked,
		VerifiedStatus: models.VerifiedStatusPending,
		SubmittedBy:    submittedBy,
		LastUpdatedBy:  submittedBy,
		LastUpdatedAt:  &now,
	}
	in.applyTo(rec)
	if rec.StoreName == "" && rec.StoreId != "" {
		// Display/history only; the join key stays store_id.
		rec.StoreName = e.stores.Directory.ResolveDisplayName(ctx, rec.StoreId)
	}
	rec.ComputeDerived()
	if err := firstViolationError(ValidateClosing(rec)); err != nil {
		return nil, err
	}

	created, err := e.stores.Closings.CreateClosing(ctx, rec)
	if err != nil {
		return nil, err
	}

	e.appendHistory(ctx, created, models.HistoryActionCreated, submittedBy, in.allFieldNames())
	e.notifySubmission(created, models.SubmissionReasonFirst)

	return &UpsertResult{Status: UpsertStatusCreated, Record: created}, nil
}

func (e *Engine) resubmitClosing(ctx context.Context, existing *models.ClosingRecord, in *ClosingInput) (*UpsertResult, error) {
	now := e.now()
	submittedBy := e.userFor(ctx, in.SubmittedBy)
	wasNeedsUpdate := existing.VerifiedStatus == models.VerifiedStatusNeedsUpdate

	merged := *existing
	in.applyTo(&merged)
	merged.ComputeDerived()
	if err := firstViolationError(ValidateClosing(&merged)); err != nil {
		return nil, err
	}

	merged.LockStatus = models.LockStatusLocked
	merged.LastUpdatedBy = submittedBy
	merged.LastUpdatedAt = &now
	if wasNeedsUpdate {
		// Reset verification so the next Verified computes a clean delta
		// instead of double-counting the previous deduction.
		merged.VerifiedStatus = models.VerifiedStatusPending
		merged.VerifiedAt = nil
		merged.FoodCostDeducted = decimal.Zero
	}

	updated, err := e.stores.Closings.UpdateClosing(ctx, &merged)
	if err != nil {
		return nil, err
	}

	e.appendHistory(ctx, updated, models.HistoryActionUpdated, submittedBy, in.allFieldNames())
	if wasNeedsUpdate {
		e.notifySubmission(updated, models.SubmissionReasonResubmission)
	}

	return &UpsertResult{Status: UpsertStatusUpdated, Record: updated}, nil
}

// lockClosing serializes a by-id mutation: a preliminary read resolves the
// record's lock key, then the record is read again under the lock so the
// caller mutates a current snapshot, not whatever was stored before a
// concurrent writer committed.
func (e *Engine) lockClosing(ctx, opCtx context.Context, recordId string) (*models.ClosingRecord, func(), error) {
	rec, err := e.stores.Closings.GetClosing(opCtx, recordId)
	if err != nil {
		return nil, nil, err
	}
	release := e.locks.Acquire(ctx, "closing:"+rec.TenantId+":"+storeKey(rec.StoreId, rec.StoreName)+":"+rec.BusinessDate.Format("2006-01-02"))
	rec, err = e.stores.Closings.GetClosing(opCtx, recordId)
	if err != nil {
		release()
		return nil, nil, err
	}
	return rec, release, nil
}

// UnlockClosing opens a locked record with the shared manager PIN.
// Verification state is untouched: unlock is orthogonal to review.
func (e *Engine) UnlockClosing(ctx context.Context, recordId, pin string) (*models.ClosingRecord, error) {
	if e.cfg.ManagerPIN == "" || !pinMatches(pin, e.cfg.ManagerPIN) {
		return nil, utils.AuthorizationError("invalid unlock PIN")
	}

	opCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	rec, release, err := e.lockClosing(ctx, opCtx, recordId)
	if err != nil {
		return nil, err
	}
	defer release()

	now := e.now()
	rec.LockStatus = models.LockStatusUnlocked
	rec.UnlockedBy = "Manager PIN"
	rec.UnlockedAt = &now

	updated, err := e.stores.Closings.UpdateClosing(opCtx, rec)
	if err != nil {
		return nil, err
	}
	e.appendHistory(opCtx, updated, models.HistoryActionUnlocked, "Manager PIN", []string{"Lock Status", "Unlocked By", "Unlocked At"})
	return updated, nil
}

// pinMatches compares in constant time: length mismatch rejects first, then
// every position is XOR-ed and OR-accumulated before deciding, so match
// position never shows in timing.
func pinMatches(supplied, expected string) bool {
	if len(supplied) != len(expected) {
		return false
	}
	var diff byte
	for i := 0; i < len(supplied); i++ {
		diff |= supplied[i] ^ expected[i]
	}
	return diff == 0
}

// VerifyClosing records a manager review outcome and reconciles the weekly
// budget. Budget failures are logged but never roll back the verification:
// the closing's verified status is the source of truth, and LockWeeklyBudget
// recomputes authoritatively.
func (e *Engine) VerifyClosing(ctx context.Context, recordId, status, verifiedBy, notes string) (*VerifyResult, error) {
	if !models.ValidVerifiedStatus(status) {
		return nil, utils.ValidationError("status must be one of Verified, Needs Update, Pending (got %q)", status)
	}
	newStatus := models.VerifiedStatus(status)

	opCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	rec, release, err := e.lockClosing(ctx, opCtx, recordId)
	if err != nil {
		return nil, err
	}
	defer release()

	// Snapshot before any mutation: the reversal path resolves its week
	// from the pre-update state.
	before := *rec
	now := e.now()

	rec.VerifiedStatus = newStatus
	rec.VerifiedBy = verifiedBy
	rec.VerificationNotes = notes
	rec.LastUpdatedBy = verifiedBy
	rec.LastUpdatedAt = &now

	if newStatus == models.VerifiedStatusVerified {
		rec.VerifiedAt = &now
		rec.LockStatus = models.LockStatusLocked
		if err := e.applyVerificationDelta(ctx, rec); err != nil {
			config.LogError(e.logger, "closingWorkflow.go", "VerifyClosing", "applyVerificationDelta", recordId, err)
		}
	} else {
		rec.VerifiedAt = nil
		rec.LockStatus = models.LockStatusUnlocked
		if before.VerifiedStatus == models.VerifiedStatusVerified && before.FoodCostDeducted.IsPositive() {
			reversed, err := e.reverseDeduction(ctx, &before)
			if err != nil {
				config.LogError(e.logger, "closingWorkflow.go", "VerifyClosing", "reverseDeduction", recordId, err)
			}
			if reversed {
				rec.FoodCostDeducted = decimal.Zero
			}
		}
	}

	updated, err := e.stores.Closings.UpdateClosing(opCtx, rec)
	if err != nil {
		return nil, err
	}

	e.appendHistory(opCtx, updated, models.HistoryActionVerification(newStatus), verifiedBy,
		[]string{"Verified Status", "Verified By", "Verified At", "Verification Notes", "Lock Status", "Food Cost Deducted"})
	if newStatus == models.VerifiedStatusVerified {
		e.notifyVerification(updated, verifiedBy, notes)
	}

	return &VerifyResult{RecordId: updated.ID, NewStatus: newStatus}, nil
}

// PatchClosing merges partial fields onto the stored snapshot and re-runs
// the full validation on the merged view. Locked records must be unlocked
// first.
func (e *Engine) PatchClosing(ctx context.Context, recordId string, patch *ClosingInput) (*models.ClosingRecord, error) {
	changed := patch.changedFieldNames()
	if len(changed) == 0 {
		return nil, utils.ValidationError("patch contains no editable fields")
	}
	if err := firstViolationError(ValidateInput(patch)); err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	rec, release, err := e.lockClosing(ctx, opCtx, recordId)
	if err != nil {
		return nil, err
	}
	defer release()

	// The gate is lock_status alone: a PIN unlock makes even a verified
	// closing editable, and the next verification reconciles the budget by
	// delta against the preserved deduction anchor.
	if rec.LockStatus == models.LockStatusLocked {
		return nil, utils.ForbiddenError("closing for %s on %s is locked; unlock before editing",
			rec.DisplayName(), rec.BusinessDate.Format("2006-01-02"))
	}

	merged := *rec
	patch.applyTo(&merged)
	merged.ComputeDerived()
	if err := firstViolationError(ValidateClosing(&merged)); err != nil {
		return nil, err
	}

	now := e.now()
	merged.LastUpdatedBy = e.userFor(ctx, patch.SubmittedBy)
	merged.LastUpdatedAt = &now

	updated, err := e.stores.Closings.UpdateClosing(opCtx, &merged)
	if err != nil {
		return nil, err
	}

	e.appendHistory(opCtx, updated, models.HistoryActionPatched, merged.LastUpdatedBy, changed)
	return updated, nil
}

func (e *Engine) appendHistory(ctx context.Context, rec *models.ClosingRecord, action models.HistoryAction, changedBy string, changedFields []string) {
	entry := &models.HistoryEntry{
		TenantId:      rec.TenantId,
		Action:        action,
		Store:         rec.DisplayName(),
		BusinessDate:  rec.BusinessDate,
		ChangedBy:     changedBy,
		Timestamp:     e.now(),
		RecordId:      rec.ID,
		LockStatus:    rec.LockStatus,
		ChangedFields: changedFields,
		Snapshot:      models.ClosingSnapshot(rec),
	}
	if err := e.stores.History.AppendHistory(ctx, entry); err != nil {
		// History is auditing, not a gate: a failed append must not undo
		// the write it describes.
		config.LogError(e.logger, "closingWorkflow.go", "appendHistory", string(action), rec.ID, err)
	}
}

func (e *Engine) notifySubmission(rec *models.ClosingRecord, reason models.SubmissionReason) {
	notice := SubmissionNotice{
		StoreName:    rec.DisplayName(),
		BusinessDate: rec.BusinessDate.Format("2006-01-02"),
		SubmittedBy:  rec.LastUpdatedBy,
		Reason:       reason,
		Fields:       models.ClosingToFields(rec),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.NotifyTimeout)
		defer cancel()
		if err := e.notifier.NotifySubmission(ctx, notice); err != nil {
			config.LogError(e.logger, "closingWorkflow.go", "notifySubmission", string(reason), notice.StoreName, err)
		}
	}()
}

func (e *Engine) notifyVerification(rec *models.ClosingRecord, verifiedBy, notes string) {
	notice := VerificationNotice{
		StoreName:    rec.DisplayName(),
		BusinessDate: rec.BusinessDate.Format("2006-01-02"),
		Cashier:      rec.SubmittedBy,
		VerifiedBy:   verifiedBy,
		Status:       rec.VerifiedStatus,
		Notes:        notes,
		Fields:       models.ClosingToFields(rec),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.NotifyTimeout)
		defer cancel()
		if err := e.notifier.NotifyVerification(ctx, notice); err != nil {
			config.LogError(e.logger, "closingWorkflow.go", "notifyVerification", string(notice.Status), notice.StoreName, err)
		}
	}()
}

// GetClosing is a read-through for the transport layer.
func (e *Engine) GetClosing(ctx context.Context, recordId string) (*models.ClosingRecord, error) {
	opCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()
	return e.stores.Closings.GetClosing(opCtx, recordId)
}

// ListHistory returns the audit trail for a store+date.
func (e *Engine) ListHistory(ctx context.Context, storeName string, businessDate time.Time) ([]*models.HistoryEntry, error) {
	tenant, err := e.tenantFor(ctx, "")
	if err != nil {
		return nil, err
	}
	opCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()
	return e.stores.History.ListHistory(opCtx, tenant, storeName, businessDate)
}
