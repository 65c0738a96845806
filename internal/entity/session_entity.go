package entity

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

type SessionKey struct {
	TenantId       string
	ConversationId string
}

// String is the storage and lock key. Both parts are escaped so ':' inside
// an id can never make two different keys collide.
func (k SessionKey) String() string {
	return url.QueryEscape(k.TenantId) + ":" + url.QueryEscape(k.ConversationId)
}

type Turn struct {
	RequestText   string    `json:"request_text"`
	ChannelId     string    `json:"channel_id"`
	Intent        Intent    `json:"intent"`
	Entities      []Entity  `json:"entities"`
	Category      Category  `json:"category"`
	Skills        []Skill   `json:"skills"`
	ResultSummary string    `json:"result_summary"`
	Timestamp     time.Time `json:"timestamp"`
}

// Session is the per-conversation state shared by every channel the conversation arrives on.
type Session struct {
	Id              uuid.UUID
	Key             SessionKey
	Turns           []Turn
	CreatedAt       time.Time
	LastActive      time.Time
	ContinuityScore float64
}

func NewSession(key SessionKey, now time.Time) *Session {
	return &Session{
		Id:         uuid.New(),
		Key:        key,
		Turns:      []Turn{},
		CreatedAt:  now,
		LastActive: now,
	}
}

func (s *Session) LastTurn() *Turn {
	if s == nil || len(s.Turns) == 0 {
		return nil
	}
	return &s.Turns[len(s.Turns)-1]
}

// Clone returns a deep copy so snapshots handed to a plan never observe later appends.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Turns = make([]Turn, len(s.Turns))
	for i, t := range s.Turns {
		t.Entities = append([]Entity(nil), t.Entities...)
		t.Skills = append([]Skill(nil), t.Skills...)
		cp.Turns[i] = t
	}
	return &cp
}

// Continuity is the compact view of a session the category selector consumes.
type Continuity struct {
	PreviousCategory Category
	Score            float64
}

type SessionSummary struct {
	TenantId          string           `json:"tenant_id"`
	ConversationId    string           `json:"conversation_id"`
	TurnCount         int              `json:"turn_count"`
	CreatedAt         time.Time        `json:"created_at"`
	LastActive        time.Time        `json:"last_active"`
	LastCategory      Category         `json:"last_category,omitempty"`
	ContinuityScore   float64          `json:"continuity_score"`
	CategoryHistogram map[Category]int `json:"category_histogram"`
	RecentTurns       []Turn           `json:"recent_turns"`
}
