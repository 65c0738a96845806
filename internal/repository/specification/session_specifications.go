package specification

import (
	"time"

	"gorm.io/gorm"
)

type ByConversation struct {
	TenantId       string
	ConversationId string
}

func (s ByConversation) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("tenant_id = ? AND conversation_id = ?", s.TenantId, s.ConversationId)
}

type ByTenant struct {
	TenantId string
}

func (s ByTenant) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("tenant_id = ?", s.TenantId)
}

// ActiveSince keeps sessions with a turn at or after Since.
type ActiveSince struct {
	Since time.Time
}

func (s ActiveSince) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("last_active >= ?", s.Since)
}

type ByLastCategory struct {
	Category string
}

func (s ByLastCategory) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("last_category = ?", s.Category)
}
