package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/closings_backend/models"
	"bitbucket.org/mmdatafocus/closings_backend/utils"
	"github.com/google/uuid"
)

// Memory is an in-process backend for tests and local development. Values
// are copied on the way in and out so callers cannot alias stored state.
type Memory struct {
	mu       sync.RWMutex
	closings map[string]*models.ClosingRecord
	budgets  map[string]*models.WeeklyBudget
	history  []*models.HistoryEntry
	names    map[string]string // storeId -> display name
}

func NewMemory() *Memory {
	return &Memory{
		closings: map[string]*models.ClosingRecord{},
		budgets:  map[string]*models.WeeklyBudget{},
		names:    map[string]string{},
	}
}

func (m *Memory) Stores() Stores {
	return Stores{Closings: m, Budgets: m, History: m, Directory: m}
}

// RegisterStore seeds the directory.
func (m *Memory) RegisterStore(storeId, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[storeId] = name
}

func (m *Memory) GetClosing(ctx context.Context, id string) (*models.ClosingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.closings[id]
	if !ok {
		return nil, utils.NotFoundError("closing %s", id)
	}
	cp := *rec
	return &cp, nil
}

func (m *Memory) FindClosingsByDate(ctx context.Context, tenantId string, businessDate time.Time) ([]*models.ClosingRecord, error) {
	day := models.DateOnly(businessDate)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.ClosingRecord
	for _, rec := range m.closings {
		if rec.TenantId == tenantId && models.DateOnly(rec.BusinessDate).Equal(day) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) FindClosingsInWeek(ctx context.Context, tenantId, storeId string, weekStart time.Time) ([]*models.ClosingRecord, error) {
	start := models.DateOnly(weekStart)
	end := start.AddDate(0, 0, 7)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.ClosingRecord
	for _, rec := range m.closings {
		day := models.DateOnly(rec.BusinessDate)
		if rec.TenantId == tenantId && rec.StoreId == storeId && !day.Before(start) && day.Before(end) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BusinessDate.Before(out[j].BusinessDate) })
	return out, nil
}

func (m *Memory) CreateClosing(ctx context.Context, rec *models.ClosingRecord) (*models.ClosingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	m.closings[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *Memory) UpdateClosing(ctx context.Context, rec *models.ClosingRecord) (*models.ClosingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.closings[rec.ID]; !ok {
		return nil, utils.NotFoundError("closing %s", rec.ID)
	}
	cp := *rec
	cp.UpdatedAt = time.Now().UTC()
	m.closings[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *Memory) GetBudget(ctx context.Context, id string) (*models.WeeklyBudget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.budgets[id]
	if !ok {
		return nil, utils.NotFoundError("weekly budget %s", id)
	}
	cp := *b
	return &cp, nil
}

func (m *Memory) FindBudget(ctx context.Context, tenantId, storeId string, weekStart time.Time) (*models.WeeklyBudget, error) {
	week := models.DateOnly(weekStart)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.budgets {
		if b.TenantId == tenantId && b.StoreId == storeId && models.DateOnly(b.WeekStart).Equal(week) {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) CreateBudget(ctx context.Context, b *models.WeeklyBudget) (*models.WeeklyBudget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	m.budgets[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *Memory) UpdateBudget(ctx context.Context, b *models.WeeklyBudget) (*models.WeeklyBudget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.budgets[b.ID]; !ok {
		return nil, utils.NotFoundError("weekly budget %s", b.ID)
	}
	cp := *b
	cp.UpdatedAt = time.Now().UTC()
	m.budgets[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *Memory) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.CreatedAt = time.Now().UTC()
	m.history = append(m.history, &cp)
	return nil
}

func (m *Memory) ListHistory(ctx context.Context, tenantId, storeName string, businessDate time.Time) ([]*models.HistoryEntry, error) {
	day := models.DateOnly(businessDate)
	norm := models.NormalizeStoreName(storeName)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.HistoryEntry
	for _, h := range m.history {
		if h.TenantId != tenantId {
			continue
		}
		if norm != "" && models.NormalizeStoreName(h.Store) != norm {
			continue
		}
		if !businessDate.IsZero() && !models.DateOnly(h.BusinessDate).Equal(day) {
			continue
		}
		cp := *h
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) ResolveDisplayName(ctx context.Context, storeId string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.names[storeId]
}

// HistoryLen is a test helper.
func (m *Memory) HistoryLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.history)
}
