package session

import (
	"context"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/repository/contract"
	"ai-orchestrator-be/internal/repository/specification"
)

// RepositoryStore adapts the session repository to the durable tier.
type RepositoryStore struct {
	repo contract.SessionRepository
}

func NewRepositoryStore(repo contract.SessionRepository) *RepositoryStore {
	return &RepositoryStore{repo: repo}
}

func (s *RepositoryStore) Read(ctx context.Context, key entity.SessionKey) (*entity.Session, error) {
	return s.repo.FindOne(ctx, specification.ByConversation{TenantId: key.TenantId, ConversationId: key.ConversationId})
}

func (s *RepositoryStore) Write(ctx context.Context, session *entity.Session) error {
	return s.repo.Upsert(ctx, session)
}
