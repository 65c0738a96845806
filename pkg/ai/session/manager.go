package session

import (
	"context"
	"errors"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/apperror"
)

type Config struct {
	// FastTierTimeout bounds every fast-tier call; a timeout counts as a miss.
	FastTierTimeout time.Duration
	DurableTimeout  time.Duration
	// RecentTurns is how many turns SessionSummary and plan snapshots carry.
	RecentTurns int
	Continuity  ContinuityConfig
}

func DefaultConfig() Config {
	return Config{
		FastTierTimeout: 50 * time.Millisecond,
		DurableTimeout:  2 * time.Second,
		RecentTurns:     5,
		Continuity:      DefaultContinuityConfig(),
	}
}

// Manager is the only way the pipeline touches session state. Reads go fast
// tier → durable tier → new session; writes go to the fast tier synchronously
// and to the durable tier through the persist queue.
type Manager struct {
	fast    FastStore
	durable DurableStore
	queue   PersistQueue
	locks   *keyLock
	cfg     Config
	now     func() time.Time
	logger  logger.ILogger
}

func NewManager(fast FastStore, durable DurableStore, queue PersistQueue, cfg Config, log logger.ILogger) *Manager {
	return &Manager{
		fast:    fast,
		durable: durable,
		queue:   queue,
		locks:   newKeyLock(),
		cfg:     cfg,
		now:     time.Now,
		logger:  log,
	}
}

// WithClock replaces the time source; used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// GetOrCreate returns a private copy of the session for key. It only fails
// when ctx is already done; store errors degrade to a fresh session.
func (m *Manager) GetOrCreate(ctx context.Context, key entity.SessionKey) (*entity.Session, error) {
	session, err := m.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = entity.NewSession(key, m.now())
	}
	return session, nil
}

func (m *Manager) load(ctx context.Context, key entity.SessionKey) (*entity.Session, error) {
	// 1. Fast tier
	if session := m.fastGet(ctx, key); session != nil {
		if session.Key == key {
			return session, nil
		}
		m.logger.Error("SESSION", "Fast tier returned a foreign session, ignoring it", map[string]interface{}{
			"session": key.String(),
			"got":     session.Key.String(),
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, apperror.Timeout("session load", err)
	}

	// 2. Durable tier (read-through)
	session := m.durableRead(ctx, key)
	if err := ctx.Err(); err != nil {
		return nil, apperror.Timeout("session load", err)
	}
	if session == nil {
		return nil, nil
	}
	if session.Key != key {
		m.logger.Error("SESSION", "Durable tier returned a foreign session, ignoring it", map[string]interface{}{
			"session": key.String(),
			"got":     session.Key.String(),
		})
		return nil, nil
	}

	m.fastSet(ctx, session)
	return session, nil
}

// Conversation is exclusive access to one session key, held from load to the
// final append. Requests on the same key get it in arrival order.
type Conversation struct {
	m       *Manager
	key     entity.SessionKey
	session *entity.Session
	unlock  func()
}

// Open waits for the key (bounded by ctx) and loads its session. Callers
// must Close the conversation.
func (m *Manager) Open(ctx context.Context, key entity.SessionKey) (*Conversation, error) {
	unlock, err := m.locks.Lock(ctx, key.String())
	if err != nil {
		return nil, apperror.Timeout("session lock", err)
	}
	session, err := m.GetOrCreate(ctx, key)
	if err != nil {
		unlock()
		return nil, err
	}
	return &Conversation{m: m, key: key, session: session, unlock: unlock}, nil
}

// Session is the state as loaded by Open, updated by Append.
func (c *Conversation) Session() *entity.Session {
	return c.session
}

// Append records turn while the key is still held.
func (c *Conversation) Append(ctx context.Context, turn entity.Turn) (*entity.Session, error) {
	updated, err := c.m.appendLocked(ctx, c.session, turn)
	if err != nil {
		return nil, err
	}
	c.session = updated
	return updated.Clone(), nil
}

func (c *Conversation) Close() {
	c.unlock()
}

// AppendTurn appends turn to the conversation identified by session.Key.
// Appends to one key are serialized and applied to the latest stored state,
// so turns from concurrent callers are never lost.
// The returned session reflects the append.
func (m *Manager) AppendTurn(ctx context.Context, session *entity.Session, turn entity.Turn) (*entity.Session, error) {
	if session == nil {
		return nil, apperror.Validation("session is required")
	}
	unlock, err := m.locks.Lock(ctx, session.Key.String())
	if err != nil {
		return nil, apperror.Timeout("session append", err)
	}
	defer unlock()

	updated, err := m.appendLocked(ctx, session, turn)
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

func (m *Manager) appendLocked(ctx context.Context, session *entity.Session, turn entity.Turn) (*entity.Session, error) {
	if session == nil {
		return nil, apperror.Validation("session is required")
	}
	key := session.Key

	current, err := m.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if current == nil {
		current = session.Clone()
	}

	if turn.Timestamp.IsZero() {
		turn.Timestamp = m.now()
	}

	score := m.cfg.Continuity.Score(current, entity.AnalysisResult{Intent: turn.Intent, Entities: turn.Entities}, turn.Timestamp)
	current.ContinuityScore = m.cfg.Continuity.Rolling(current.ContinuityScore, score, len(current.Turns) == 0)
	current.Turns = append(current.Turns, turn)
	current.LastActive = turn.Timestamp

	m.fastSet(ctx, current)

	if err := m.queue.Enqueue(context.WithoutCancel(ctx), current.Clone()); err != nil {
		m.logger.Error("SESSION", "Failed to queue durable write", map[string]interface{}{
			"session": key.String(),
			"turns":   len(current.Turns),
			"error":   err.Error(),
		})
	}

	return current, nil
}

// Continuity computes the soft routing signal for a new request.
func (m *Manager) Continuity(session *entity.Session, next entity.AnalysisResult) entity.Continuity {
	last := session.LastTurn()
	if last == nil {
		return entity.Continuity{}
	}
	return entity.Continuity{
		PreviousCategory: last.Category,
		Score:            m.ContinuityScore(session, next),
	}
}

func (m *Manager) ContinuityScore(session *entity.Session, next entity.AnalysisResult) float64 {
	return m.cfg.Continuity.Score(session, next, m.now())
}

// Inspect summarizes a session without touching its TTL.
func (m *Manager) Inspect(ctx context.Context, key entity.SessionKey) (entity.SessionSummary, error) {
	session := m.fastPeek(ctx, key)
	if session == nil {
		session = m.durableRead(ctx, key)
	}
	if session == nil {
		return entity.SessionSummary{}, apperror.NotFound("session %s not found", key.String())
	}
	return Summarize(session, m.cfg.RecentTurns), nil
}

func (m *Manager) fastGet(ctx context.Context, key entity.SessionKey) *entity.Session {
	fctx, cancel := context.WithTimeout(ctx, m.cfg.FastTierTimeout)
	defer cancel()

	session, err := m.fast.Get(fctx, key)
	if err != nil {
		m.logFastError("get", key, err)
		return nil
	}
	return session
}

func (m *Manager) fastPeek(ctx context.Context, key entity.SessionKey) *entity.Session {
	fctx, cancel := context.WithTimeout(ctx, m.cfg.FastTierTimeout)
	defer cancel()

	session, err := m.fast.Peek(fctx, key)
	if err != nil {
		m.logFastError("peek", key, err)
		return nil
	}
	return session
}

func (m *Manager) fastSet(ctx context.Context, session *entity.Session) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.FastTierTimeout)
	defer cancel()

	if err := m.fast.Set(fctx, session); err != nil {
		m.logFastError("set", session.Key, err)
	}
}

func (m *Manager) logFastError(op string, key entity.SessionKey, err error) {
	details := map[string]interface{}{"op": op, "session": key.String(), "error": err.Error()}
	if errors.Is(err, context.DeadlineExceeded) {
		m.logger.Warn("SESSION", "Fast tier timed out, treating as miss", details)
		return
	}
	m.logger.Warn("SESSION", "Fast tier error, treating as miss", details)
}

func (m *Manager) durableRead(ctx context.Context, key entity.SessionKey) *entity.Session {
	dctx, cancel := context.WithTimeout(ctx, m.cfg.DurableTimeout)
	defer cancel()

	session, err := m.durable.Read(dctx, key)
	if err != nil {
		m.logger.Error("SESSION", "Durable read failed, starting fresh", map[string]interface{}{
			"session": key.String(),
			"error":   err.Error(),
		})
		return nil
	}
	return session
}

// Summarize builds the read-only view exposed to observability tooling.
func Summarize(s *entity.Session, recent int) entity.SessionSummary {
	summary := entity.SessionSummary{
		TenantId:          s.Key.TenantId,
		ConversationId:    s.Key.ConversationId,
		TurnCount:         len(s.Turns),
		CreatedAt:         s.CreatedAt,
		LastActive:        s.LastActive,
		ContinuityScore:   s.ContinuityScore,
		CategoryHistogram: make(map[entity.Category]int),
		RecentTurns:       []entity.Turn{},
	}
	for _, t := range s.Turns {
		summary.CategoryHistogram[t.Category]++
	}
	if last := s.LastTurn(); last != nil {
		summary.LastCategory = last.Category
	}
	start := len(s.Turns) - recent
	if start < 0 {
		start = 0
	}
	summary.RecentTurns = append(summary.RecentTurns, s.Clone().Turns[start:]...)
	return summary
}
