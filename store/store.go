// Package store isolates the external record-store surface behind typed
// interfaces. The external stores key fields by spaced, human-readable names
// and compute some fields server-side; none of that leaks past this package.
package store

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/closings_backend/models"
)

type ClosingStore interface {
	// GetClosing returns utils.ErrorRecordNotFound (wrapped) for unknown ids.
	GetClosing(ctx context.Context, id string) (*models.ClosingRecord, error)

	// FindClosingsByDate returns every closing for the tenant on the given
	// business date. Store matching (id preferred, normalized-name fallback)
	// is the caller's concern.
	FindClosingsByDate(ctx context.Context, tenantId string, businessDate time.Time) ([]*models.ClosingRecord, error)

	// FindClosingsInWeek returns the store's closings with business dates in
	// [weekStart, weekStart+7d).
	FindClosingsInWeek(ctx context.Context, tenantId, storeId string, weekStart time.Time) ([]*models.ClosingRecord, error)

	CreateClosing(ctx context.Context, rec *models.ClosingRecord) (*models.ClosingRecord, error)
	UpdateClosing(ctx context.Context, rec *models.ClosingRecord) (*models.ClosingRecord, error)
}

type BudgetStore interface {
	GetBudget(ctx context.Context, id string) (*models.WeeklyBudget, error)

	// FindBudget returns (nil, nil) when no budget exists for the week;
	// absence is a legal state, not an error.
	FindBudget(ctx context.Context, tenantId, storeId string, weekStart time.Time) (*models.WeeklyBudget, error)

	CreateBudget(ctx context.Context, b *models.WeeklyBudget) (*models.WeeklyBudget, error)
	UpdateBudget(ctx context.Context, b *models.WeeklyBudget) (*models.WeeklyBudget, error)
}

type HistoryStore interface {
	AppendHistory(ctx context.Context, entry *models.HistoryEntry) error
	ListHistory(ctx context.Context, tenantId, store string, businessDate time.Time) ([]*models.HistoryEntry, error)
}

// Directory resolves store display names, best-effort: "" on any failure,
// never an error into the core.
type Directory interface {
	ResolveDisplayName(ctx context.Context, storeId string) string
}

// Stores bundles one backend's implementations for constructor wiring.
type Stores struct {
	Closings  ClosingStore
	Budgets   BudgetStore
	History   HistoryStore
	Directory Directory
}
