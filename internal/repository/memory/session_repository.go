package memory

import (
	"context"
	"time"

	"ai-orchestrator-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// SessionRepository is the single-node fast tier. Every Get pushes the
// expiry out again, giving a sliding TTL.
type SessionRepository struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	// purge expired sessions every ttl/2
	c := cache.New(ttl, ttl/2)
	return &SessionRepository{
		cache: c,
		ttl:   ttl,
	}
}

func (r *SessionRepository) Set(_ context.Context, session *entity.Session) error {
	r.cache.Set(session.Key.String(), session.Clone(), r.ttl)
	return nil
}

func (r *SessionRepository) Get(_ context.Context, key entity.SessionKey) (*entity.Session, error) {
	x, found := r.cache.Get(key.String())
	if !found {
		return nil, nil
	}
	session := x.(*entity.Session)
	// refresh expiry on access
	r.cache.Set(key.String(), session, r.ttl)
	return session.Clone(), nil
}

// Peek reads without refreshing the expiry.
func (r *SessionRepository) Peek(_ context.Context, key entity.SessionKey) (*entity.Session, error) {
	x, found := r.cache.Get(key.String())
	if !found {
		return nil, nil
	}
	return x.(*entity.Session).Clone(), nil
}

func (r *SessionRepository) Delete(key entity.SessionKey) {
	r.cache.Delete(key.String())
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
