package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/closings_backend/config"
	"bitbucket.org/mmdatafocus/closings_backend/models"
	"bitbucket.org/mmdatafocus/closings_backend/utils"
	"github.com/mehanizm/airtable"
)

// Airtable is the original system of record. Field keys are spaced and
// human-readable; the translation lives in models/fields.go. Server-computed
// fields are stripped from every write because Airtable rejects writes to
// formula columns.
type Airtable struct {
	closings *airtable.Table
	budgets  *airtable.Table
	history  *airtable.Table
	stores   *airtable.Table
}

func NewAirtable(cfg *config.Config) *Airtable {
	client := airtable.NewClient(cfg.AirtableAPIKey)
	return &Airtable{
		closings: client.GetTable(cfg.AirtableBaseId, cfg.AirtableClosingTable),
		budgets:  client.GetTable(cfg.AirtableBaseId, cfg.AirtableBudgetTable),
		history:  client.GetTable(cfg.AirtableBaseId, cfg.AirtableHistoryTable),
		stores:   client.GetTable(cfg.AirtableBaseId, cfg.AirtableStoreTable),
	}
}

func (a *Airtable) Stores() Stores {
	return Stores{Closings: a, Budgets: a, History: a, Directory: a}
}

func formulaEscape(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}

func isNotFoundStatus(err error) bool {
	return err != nil && strings.Contains(err.Error(), "404")
}

func stripComputed(fields map[string]interface{}) map[string]interface{} {
	for _, name := range models.ClosingComputedFields {
		delete(fields, name)
	}
	return fields
}

func (a *Airtable) GetClosing(ctx context.Context, id string) (*models.ClosingRecord, error) {
	rec, err := a.closings.GetRecordContext(ctx, id)
	if err != nil {
		if isNotFoundStatus(err) {
			return nil, utils.NotFoundError("closing %s", id)
		}
		return nil, utils.DependencyError("fetching closing", err)
	}
	return models.ClosingFromFields(rec.ID, rec.Fields), nil
}

func (a *Airtable) FindClosingsByDate(ctx context.Context, tenantId string, businessDate time.Time) ([]*models.ClosingRecord, error) {
	formula := fmt.Sprintf("AND({Tenant ID}='%s', IS_SAME({Business Date}, '%s', 'day'))",
		formulaEscape(tenantId), businessDate.Format("2006-01-02"))
	records, err := a.closings.GetRecords().
		WithFilterFormula(formula).
		MaxRecords(100).
		DoContext(ctx)
	if err != nil {
		return nil, utils.DependencyError("querying closings by date", err)
	}
	out := make([]*models.ClosingRecord, 0, len(records.Records))
	for _, rec := range records.Records {
		out = append(out, models.ClosingFromFields(rec.ID, rec.Fields))
	}
	return out, nil
}

func (a *Airtable) FindClosingsInWeek(ctx context.Context, tenantId, storeId string, weekStart time.Time) ([]*models.ClosingRecord, error) {
	start := models.DateOnly(weekStart)
	end := start.AddDate(0, 0, 7)
	formula := fmt.Sprintf(
		"AND({Tenant ID}='%s', FIND('%s', ARRAYJOIN({Store}))>0, IS_AFTER({Business Date}, '%s'), IS_BEFORE({Business Date}, '%s'))",
		formulaEscape(tenantId), formulaEscape(storeId),
		start.AddDate(0, 0, -1).Format("2006-01-02"), end.Format("2006-01-02"))
	records, err := a.closings.GetRecords().
		WithFilterFormula(formula).
		MaxRecords(100).
		DoContext(ctx)
	if err != nil {
		return nil, utils.DependencyError("querying closings in week", err)
	}
	out := make([]*models.ClosingRecord, 0, len(records.Records))
	for _, rec := range records.Records {
		out = append(out, models.ClosingFromFields(rec.ID, rec.Fields))
	}
	return out, nil
}

func (a *Airtable) CreateClosing(ctx context.Context, rec *models.ClosingRecord) (*models.ClosingRecord, error) {
	fields := stripComputed(models.ClosingToFields(rec))
	res, err := a.closings.AddRecordsContext(ctx, &airtable.Records{
		Records: []*airtable.Record{{Fields: fields}},
	})
	if err != nil {
		return nil, utils.DependencyError("creating closing", err)
	}
	if len(res.Records) == 0 {
		return nil, utils.DependencyError("creating closing", fmt.Errorf("empty create response"))
	}
	return models.ClosingFromFields(res.Records[0].ID, res.Records[0].Fields), nil
}

func (a *Airtable) UpdateClosing(ctx context.Context, rec *models.ClosingRecord) (*models.ClosingRecord, error) {
	existing, err := a.closings.GetRecordContext(ctx, rec.ID)
	if err != nil {
		if isNotFoundStatus(err) {
			return nil, utils.NotFoundError("closing %s", rec.ID)
		}
		return nil, utils.DependencyError("fetching closing for update", err)
	}
	fields := stripComputed(models.ClosingToFields(rec))
	updated, err := existing.UpdateRecordPartialContext(ctx, fields)
	if err != nil {
		return nil, utils.DependencyError("updating closing", err)
	}
	return models.ClosingFromFields(updated.ID, updated.Fields), nil
}

func (a *Airtable) GetBudget(ctx context.Context, id string) (*models.WeeklyBudget, error) {
	rec, err := a.budgets.GetRecordContext(ctx, id)
	if err != nil {
		if isNotFoundStatus(err) {
			return nil, utils.NotFoundError("weekly budget %s", id)
		}
		return nil, utils.DependencyError("fetching weekly budget", err)
	}
	return models.BudgetFromFields(rec.ID, rec.Fields), nil
}

func (a *Airtable) FindBudget(ctx context.Context, tenantId, storeId string, weekStart time.Time) (*models.WeeklyBudget, error) {
	formula := fmt.Sprintf(
		"AND({Tenant ID}='%s', FIND('%s', ARRAYJOIN({Store}))>0, IS_SAME({Week Start}, '%s', 'day'))",
		formulaEscape(tenantId), formulaEscape(storeId), models.DateOnly(weekStart).Format("2006-01-02"))
	records, err := a.budgets.GetRecords().
		WithFilterFormula(formula).
		MaxRecords(1).
		DoContext(ctx)
	if err != nil {
		return nil, utils.DependencyError("querying weekly budget", err)
	}
	if len(records.Records) == 0 {
		return nil, nil
	}
	rec := records.Records[0]
	return models.BudgetFromFields(rec.ID, rec.Fields), nil
}

func (a *Airtable) CreateBudget(ctx context.Context, b *models.WeeklyBudget) (*models.WeeklyBudget, error) {
	res, err := a.budgets.AddRecordsContext(ctx, &airtable.Records{
		Records: []*airtable.Record{{Fields: models.BudgetToFields(b)}},
	})
	if err != nil {
		return nil, utils.DependencyError("creating weekly budget", err)
	}
	if len(res.Records) == 0 {
		return nil, utils.DependencyError("creating weekly budget", fmt.Errorf("empty create response"))
	}
	return models.BudgetFromFields(res.Records[0].ID, res.Records[0].Fields), nil
}

func (a *Airtable) UpdateBudget(ctx context.Context, b *models.WeeklyBudget) (*models.WeeklyBudget, error) {
	existing, err := a.budgets.GetRecordContext(ctx, b.ID)
	if err != nil {
		if isNotFoundStatus(err) {
			return nil, utils.NotFoundError("weekly budget %s", b.ID)
		}
		return nil, utils.DependencyError("fetching weekly budget for update", err)
	}
	updated, err := existing.UpdateRecordPartialContext(ctx, models.BudgetToFields(b))
	if err != nil {
		return nil, utils.DependencyError("updating weekly budget", err)
	}
	return models.BudgetFromFields(updated.ID, updated.Fields), nil
}

func (a *Airtable) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	_, err := a.history.AddRecordsContext(ctx, &airtable.Records{
		Records: []*airtable.Record{{Fields: models.HistoryToFields(entry)}},
	})
	if err != nil {
		return utils.DependencyError("appending history", err)
	}
	return nil
}

func (a *Airtable) ListHistory(ctx context.Context, tenantId, storeName string, businessDate time.Time) ([]*models.HistoryEntry, error) {
	clauses := []string{fmt.Sprintf("{Tenant ID}='%s'", formulaEscape(tenantId))}
	if storeName != "" {
		clauses = append(clauses, fmt.Sprintf("{Store}='%s'", formulaEscape(storeName)))
	}
	if !businessDate.IsZero() {
		clauses = append(clauses, fmt.Sprintf("IS_SAME({Business Date}, '%s', 'day')", businessDate.Format("2006-01-02")))
	}
	records, err := a.history.GetRecords().
		WithFilterFormula("AND(" + strings.Join(clauses, ", ") + ")").
		WithSort(struct {
			FieldName string
			Direction string
		}{FieldName: "Timestamp", Direction: "asc"}).
		MaxRecords(200).
		DoContext(ctx)
	if err != nil {
		return nil, utils.DependencyError("querying history", err)
	}
	out := make([]*models.HistoryEntry, 0, len(records.Records))
	for _, rec := range records.Records {
		out = append(out, models.HistoryFromFields(rec.ID, rec.Fields))
	}
	return out, nil
}

func (a *Airtable) ResolveDisplayName(ctx context.Context, storeId string) string {
	rec, err := a.stores.GetRecordContext(ctx, storeId)
	if err != nil || rec == nil {
		return ""
	}
	if name, ok := rec.Fields["Name"].(string); ok {
		return name
	}
	return ""
}
