package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ConversationSession is the durable copy of a session. Turns are stored as
// one jsonb array; TurnCount guards against out-of-order writes.
type ConversationSession struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	TenantId        string         `gorm:"type:varchar(128);not null;uniqueIndex:idx_conversation_key"`
	ConversationId  string         `gorm:"type:varchar(128);not null;uniqueIndex:idx_conversation_key"`
	Turns           datatypes.JSON `gorm:"type:jsonb;not null"`
	TurnCount       int            `gorm:"not null;default:0"`
	LastCategory    string         `gorm:"type:varchar(32)"`
	ContinuityScore float64        `gorm:"not null;default:0"`
	CreatedAt       time.Time      `gorm:"not null"`
	LastActive      time.Time      `gorm:"not null;index"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
}

func (ConversationSession) TableName() string {
	return "conversation_sessions"
}
