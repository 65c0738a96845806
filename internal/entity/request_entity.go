package entity

import (
	"time"

	"github.com/google/uuid"
)

// Request is created once per inbound message by a channel adapter and is never mutated afterwards.
type Request struct {
	Id               uuid.UUID
	Text             string `validate:"required,max=8000"`
	ChannelId        string `validate:"required,max=64"`
	UserId           string `validate:"required,max=128"`
	TenantId         string `validate:"required,max=128"`
	ConversationId   string `validate:"required,max=128"`
	ArrivedAt        time.Time
	Deadline         time.Time
	CategoryOverride Category `validate:"omitempty,category"`
	SkillOverrides   []Skill  `validate:"omitempty,dive,skill"`
}

const (
	ChannelChat = "chat"
	ChannelWeb  = "web"
)
