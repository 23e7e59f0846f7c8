package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringList stores a []string as JSON text in SQL backends.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, (*[]string)(l))
	case string:
		return json.Unmarshal([]byte(v), (*[]string)(l))
	}
	return errors.New("unsupported type for StringList")
}

// HistoryEntry is one append-only audit snapshot. Entries are never mutated
// or deleted.
type HistoryEntry struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	TenantId string `gorm:"size:64;index:idx_history_tenant_store_date,priority:1" json:"tenant_id"`

	Action       HistoryAction `gorm:"size:40;not null" json:"action"`
	Store        string        `gorm:"size:255;index:idx_history_tenant_store_date,priority:2" json:"store"`
	BusinessDate time.Time     `gorm:"index:idx_history_tenant_store_date,priority:3" json:"business_date"`

	ChangedBy  string     `gorm:"size:100" json:"changed_by"`
	Timestamp  time.Time  `gorm:"not null" json:"timestamp"`
	RecordId   string     `gorm:"size:36;index" json:"record_id"`
	LockStatus LockStatus `gorm:"size:16" json:"lock_status"`

	ChangedFields StringList `gorm:"type:text" json:"changed_fields"`

	// Snapshot is the full field dump at time of write, JSON with dates
	// normalized to ISO-8601.
	Snapshot string `gorm:"type:text" json:"snapshot"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
