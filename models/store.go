package models

import "time"

// Store is the minimal directory entity backing display-name resolution and
// the legacy store-name fallback during upsert matching.
type Store struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	TenantId string `gorm:"size:64;index" json:"tenant_id"`
	Name     string `gorm:"size:255" json:"name"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
