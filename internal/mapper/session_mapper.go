package mapper

import (
	"encoding/json"
	"fmt"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/model"

	"gorm.io/datatypes"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) SessionToModel(s *entity.Session) (*model.ConversationSession, error) {
	if s == nil {
		return nil, nil
	}

	turns := s.Turns
	if turns == nil {
		turns = []entity.Turn{}
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return nil, fmt.Errorf("failed to encode turns: %w", err)
	}

	var lastCategory string
	if last := s.LastTurn(); last != nil {
		lastCategory = string(last.Category)
	}

	return &model.ConversationSession{
		Id:              s.Id,
		TenantId:        s.Key.TenantId,
		ConversationId:  s.Key.ConversationId,
		Turns:           datatypes.JSON(raw),
		TurnCount:       len(s.Turns),
		LastCategory:    lastCategory,
		ContinuityScore: s.ContinuityScore,
		CreatedAt:       s.CreatedAt,
		LastActive:      s.LastActive,
	}, nil
}

func (m *SessionMapper) SessionToEntity(cs *model.ConversationSession) (*entity.Session, error) {
	if cs == nil {
		return nil, nil
	}

	turns := []entity.Turn{}
	if len(cs.Turns) > 0 {
		if err := json.Unmarshal(cs.Turns, &turns); err != nil {
			return nil, fmt.Errorf("failed to decode turns of %s:%s: %w", cs.TenantId, cs.ConversationId, err)
		}
	}

	return &entity.Session{
		Id:              cs.Id,
		Key:             entity.SessionKey{TenantId: cs.TenantId, ConversationId: cs.ConversationId},
		Turns:           turns,
		CreatedAt:       cs.CreatedAt,
		LastActive:      cs.LastActive,
		ContinuityScore: cs.ContinuityScore,
	}, nil
}
