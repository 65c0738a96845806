package session

import (
	"context"

	"ai-orchestrator-be/internal/entity"
)

// FastStore is the expiring tier. Get refreshes the entry's TTL, Peek does not.
// A miss is (nil, nil).
type FastStore interface {
	Get(ctx context.Context, key entity.SessionKey) (*entity.Session, error)
	Peek(ctx context.Context, key entity.SessionKey) (*entity.Session, error)
	Set(ctx context.Context, session *entity.Session) error
}

// DurableStore is the authoritative tier. A miss is (nil, nil).
type DurableStore interface {
	Read(ctx context.Context, key entity.SessionKey) (*entity.Session, error)
	Write(ctx context.Context, session *entity.Session) error
}

// PersistQueue accepts sessions for asynchronous durable write-through.
// Enqueue must not wait on the durable store.
type PersistQueue interface {
	Enqueue(ctx context.Context, session *entity.Session) error
}
