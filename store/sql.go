package store

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/closings_backend/models"
	"bitbucket.org/mmdatafocus/closings_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SQL is the gorm/MySQL backend. Rows are typed; no spaced-key translation
// is needed here.
type SQL struct {
	db *gorm.DB
}

func NewSQL(db *gorm.DB) *SQL {
	return &SQL{db: db}
}

func (s *SQL) Stores() Stores {
	return Stores{Closings: s, Budgets: s, History: s, Directory: s}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ClosingRecord{},
		&models.WeeklyBudget{},
		&models.HistoryEntry{},
		&models.Store{},
	)
}

func (s *SQL) GetClosing(ctx context.Context, id string) (*models.ClosingRecord, error) {
	var rec models.ClosingRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundError("closing %s", id)
	}
	if err != nil {
		return nil, utils.DependencyError("querying closing", err)
	}
	return &rec, nil
}

func (s *SQL) FindClosingsByDate(ctx context.Context, tenantId string, businessDate time.Time) ([]*models.ClosingRecord, error) {
	day := models.DateOnly(businessDate)
	var recs []*models.ClosingRecord
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND business_date >= ? AND business_date < ?", tenantId, day, day.AddDate(0, 0, 1)).
		Find(&recs).Error
	if err != nil {
		return nil, utils.DependencyError("querying closings by date", err)
	}
	return recs, nil
}

func (s *SQL) FindClosingsInWeek(ctx context.Context, tenantId, storeId string, weekStart time.Time) ([]*models.ClosingRecord, error) {
	start := models.DateOnly(weekStart)
	var recs []*models.ClosingRecord
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND store_id = ? AND business_date >= ? AND business_date < ?",
			tenantId, storeId, start, start.AddDate(0, 0, 7)).
		Order("business_date asc").
		Find(&recs).Error
	if err != nil {
		return nil, utils.DependencyError("querying closings in week", err)
	}
	return recs, nil
}

func (s *SQL) CreateClosing(ctx context.Context, rec *models.ClosingRecord) (*models.ClosingRecord, error) {
	cp := *rec
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(&cp).Error; err != nil {
		return nil, utils.DependencyError("creating closing", err)
	}
	return &cp, nil
}

func (s *SQL) UpdateClosing(ctx context.Context, rec *models.ClosingRecord) (*models.ClosingRecord, error) {
	cp := *rec
	res := s.db.WithContext(ctx).Model(&models.ClosingRecord{}).Where("id = ?", cp.ID).
		Select("*").Omit("id", "created_at").Updates(&cp)
	if res.Error != nil {
		return nil, utils.DependencyError("updating closing", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, utils.NotFoundError("closing %s", cp.ID)
	}
	return &cp, nil
}

func (s *SQL) GetBudget(ctx context.Context, id string) (*models.WeeklyBudget, error) {
	var b models.WeeklyBudget
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundError("weekly budget %s", id)
	}
	if err != nil {
		return nil, utils.DependencyError("querying weekly budget", err)
	}
	return &b, nil
}

func (s *SQL) FindBudget(ctx context.Context, tenantId, storeId string, weekStart time.Time) (*models.WeeklyBudget, error) {
	week := models.DateOnly(weekStart)
	var b models.WeeklyBudget
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND store_id = ? AND week_start >= ? AND week_start < ?",
			tenantId, storeId, week, week.AddDate(0, 0, 1)).
		Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.DependencyError("querying weekly budget", err)
	}
	return &b, nil
}

func (s *SQL) CreateBudget(ctx context.Context, b *models.WeeklyBudget) (*models.WeeklyBudget, error) {
	cp := *b
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(&cp).Error; err != nil {
		return nil, utils.DependencyError("creating weekly budget", err)
	}
	return &cp, nil
}

func (s *SQL) UpdateBudget(ctx context.Context, b *models.WeeklyBudget) (*models.WeeklyBudget, error) {
	cp := *b
	res := s.db.WithContext(ctx).Model(&models.WeeklyBudget{}).Where("id = ?", cp.ID).
		Select("*").Omit("id", "created_at").Updates(&cp)
	if res.Error != nil {
		return nil, utils.DependencyError("updating weekly budget", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, utils.NotFoundError("weekly budget %s", cp.ID)
	}
	return &cp, nil
}

func (s *SQL) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	cp := *entry
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(&cp).Error; err != nil {
		return utils.DependencyError("appending history", err)
	}
	return nil
}

func (s *SQL) ListHistory(ctx context.Context, tenantId, storeName string, businessDate time.Time) ([]*models.HistoryEntry, error) {
	q := s.db.WithContext(ctx).Where("tenant_id = ?", tenantId)
	if storeName != "" {
		q = q.Where("store = ?", storeName)
	}
	if !businessDate.IsZero() {
		day := models.DateOnly(businessDate)
		q = q.Where("business_date >= ? AND business_date < ?", day, day.AddDate(0, 0, 1))
	}
	var entries []*models.HistoryEntry
	if err := q.Order("timestamp asc").Find(&entries).Error; err != nil {
		return nil, utils.DependencyError("querying history", err)
	}
	return entries, nil
}

func (s *SQL) ResolveDisplayName(ctx context.Context, storeId string) string {
	var st models.Store
	if err := s.db.WithContext(ctx).Where("id = ?", storeId).Take(&st).Error; err != nil {
		return ""
	}
	return st.Name
}
