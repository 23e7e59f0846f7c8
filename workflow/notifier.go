package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/closings_backend/models"
)

// SubmissionNotice is sent when a cashier first submits or resubmits a
// closing.
type SubmissionNotice struct {
	StoreName    string
	BusinessDate string
	SubmittedBy  string
	Reason       models.SubmissionReason
	Fields       map[string]interface{} // spaced-key snapshot
}

// VerificationNotice is sent when a manager records a review outcome.
type VerificationNotice struct {
	StoreName    string
	BusinessDate string
	Cashier      string
	VerifiedBy   string
	Status       models.VerifiedStatus
	Notes        string
	Fields       map[string]interface{}
}

// Notifier delivers notices fire-and-forget: the engine calls it on a
// detached goroutine, swallows errors and only logs them. A failed
// notification never fails or rolls back the record mutation behind it.
type Notifier interface {
	NotifySubmission(ctx context.Context, n SubmissionNotice) error
	NotifyVerification(ctx context.Context, n VerificationNotice) error
}

type NopNotifier struct{}

func (NopNotifier) NotifySubmission(context.Context, SubmissionNotice) error     { return nil }
func (NopNotifier) NotifyVerification(context.Context, VerificationNotice) error { return nil }
