package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu       sync.Mutex
	failures int
	calls    int
	written  []*entity.Session
}

func (w *recordingWriter) Write(_ context.Context, s *entity.Session) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.failures > 0 {
		w.failures--
		return errors.New("db down")
	}
	w.written = append(w.written, s)
	return nil
}

func (w *recordingWriter) snapshot() (int, []*entity.Session) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls, append([]*entity.Session(nil), w.written...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func newPersistence(t *testing.T, writer DurableWriter, pub EventPublisher) ISessionPersistenceService {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { pubSub.Close() })

	svc := NewSessionPersistenceService(pubSub, "SESSION_PERSIST", writer, pub, time.Second, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, svc.Consume(ctx))
	return svc
}

func sampleSession(turns int) *entity.Session {
	s := entity.NewSession(entity.SessionKey{TenantId: "acme", ConversationId: "c1"}, time.Now())
	for i := 0; i < turns; i++ {
		s.Turns = append(s.Turns, entity.Turn{RequestText: "hi", Category: entity.CategoryQuick})
	}
	return s
}

func TestSessionPersistenceWritesEnqueuedSession(t *testing.T) {
	writer := &recordingWriter{}
	pub := &recordingPublisher{}
	svc := newPersistence(t, writer, pub)

	require.NoError(t, svc.Enqueue(context.Background(), sampleSession(2)))

	require.Eventually(t, func() bool {
		_, written := writer.snapshot()
		return len(written) == 1
	}, time.Second, 5*time.Millisecond)

	_, written := writer.snapshot()
	assert.Len(t, written[0].Turns, 2)
	assert.Equal(t, "acme", written[0].Key.TenantId)
	assert.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, svc.Failed())
}

func TestSessionPersistenceRetriesTransientFailure(t *testing.T) {
	writer := &recordingWriter{failures: 1}
	svc := newPersistence(t, writer, nil)

	require.NoError(t, svc.Enqueue(context.Background(), sampleSession(1)))

	require.Eventually(t, func() bool {
		_, written := writer.snapshot()
		return len(written) == 1
	}, 3*time.Second, 10*time.Millisecond)
	calls, _ := writer.snapshot()
	assert.Equal(t, 2, calls)
	assert.Zero(t, svc.Failed())
}

func TestSessionPersistenceGivesUpAfterBoundedTries(t *testing.T) {
	writer := &recordingWriter{failures: 100}
	svc := newPersistence(t, writer, nil)

	require.NoError(t, svc.Enqueue(context.Background(), sampleSession(1)))

	require.Eventually(t, func() bool { return svc.Failed() == 1 }, 5*time.Second, 10*time.Millisecond)
	calls, written := writer.snapshot()
	assert.Equal(t, 3, calls)
	assert.Empty(t, written)
}
