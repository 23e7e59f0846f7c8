package models

type LockStatus string

const (
	LockStatusUnlocked LockStatus = "Unlocked"
	LockStatusLocked   LockStatus = "Locked"
)

type VerifiedStatus string

const (
	VerifiedStatusPending     VerifiedStatus = "Pending"
	VerifiedStatusVerified    VerifiedStatus = "Verified"
	VerifiedStatusNeedsUpdate VerifiedStatus = "Needs Update"
)

// ValidVerifiedStatus reports membership in the allowed manager-review set.
// Comparison is case-sensitive on purpose: these strings are stored as-is.
func ValidVerifiedStatus(s string) bool {
	switch VerifiedStatus(s) {
	case VerifiedStatusPending, VerifiedStatusVerified, VerifiedStatusNeedsUpdate:
		return true
	}
	return false
}

type BudgetStatus string

const (
	BudgetStatusDraft  BudgetStatus = "Draft"
	BudgetStatusLocked BudgetStatus = "Locked"
)

type HistoryAction string

const (
	HistoryActionCreated  HistoryAction = "Created"
	HistoryActionUpdated  HistoryAction = "Updated"
	HistoryActionPatched  HistoryAction = "Patched"
	HistoryActionUnlocked HistoryAction = "Unlocked"
)

// HistoryActionVerification encodes the review outcome into the action name,
// e.g. "Verification-Verified" or "Verification-Needs Update".
func HistoryActionVerification(status VerifiedStatus) HistoryAction {
	return HistoryAction("Verification-" + string(status))
}

type SubmissionReason string

const (
	SubmissionReasonFirst        SubmissionReason = "first_submission"
	SubmissionReasonResubmission SubmissionReason = "resubmission_after_update"
)
