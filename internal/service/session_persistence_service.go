package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/cenkalti/backoff/v5"
)

// DurableWriter is the durable tier as seen by the persistence consumer.
type DurableWriter interface {
	Write(ctx context.Context, session *entity.Session) error
}

// EventPublisher announces completed writes; optional.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type ISessionPersistenceService interface {
	Enqueue(ctx context.Context, session *entity.Session) error
	Consume(ctx context.Context) error
	Failed() int64
}

type sessionPersistenceService struct {
	pubSub       *gochannel.GoChannel
	topicName    string
	writer       DurableWriter
	publisher    EventPublisher
	writeTimeout time.Duration
	maxTries     uint
	logger       logger.ILogger

	failed atomic.Int64
}

func NewSessionPersistenceService(
	pubSub *gochannel.GoChannel,
	topicName string,
	writer DurableWriter,
	publisher EventPublisher,
	writeTimeout time.Duration,
	log logger.ILogger,
) ISessionPersistenceService {
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Second
	}
	return &sessionPersistenceService{
		pubSub:       pubSub,
		topicName:    topicName,
		writer:       writer,
		publisher:    publisher,
		writeTimeout: writeTimeout,
		maxTries:     3,
		logger:       log,
	}
}

// Enqueue hands the session to the consumer. It does not wait for the write.
func (s *sessionPersistenceService) Enqueue(_ context.Context, session *entity.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", session.Key.String(), err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("session", session.Key.String())
	return s.pubSub.Publish(s.topicName, msg)
}

func (s *sessionPersistenceService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *sessionPersistenceService) Failed() int64 {
	return s.failed.Load()
}

// processMessage always acks: gochannel redelivers a nacked message forever,
// so retries are bounded here instead.
func (s *sessionPersistenceService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var session entity.Session
	if err := json.Unmarshal(msg.Payload, &session); err != nil {
		s.failed.Add(1)
		s.logger.Error("PERSIST", "Dropping undecodable session message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	attempts := 0
	_, err := backoff.Retry(context.WithoutCancel(ctx), func() (struct{}, error) {
		attempts++
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
		defer cancel()
		return struct{}{}, s.writer.Write(wctx, &session)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.maxTries),
	)
	if err != nil {
		s.failed.Add(1)
		s.logger.Error("PERSIST", "Durable write failed, fast tier remains the only copy", map[string]interface{}{
			"session":  session.Key.String(),
			"turns":    len(session.Turns),
			"attempts": attempts,
			"error":    err.Error(),
		})
		return
	}

	s.logger.Debug("PERSIST", "Session persisted", map[string]interface{}{
		"session": session.Key.String(),
		"turns":   len(session.Turns),
	})

	if s.publisher != nil {
		event := events.BaseEvent{
			Type: events.SessionPersisted,
			Data: map[string]interface{}{
				"tenant_id":       session.Key.TenantId,
				"conversation_id": session.Key.ConversationId,
				"turns":           len(session.Turns),
			},
			OccurredAt: time.Now(),
		}
		if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
			s.logger.Warn("PERSIST", "Failed to publish persisted event", map[string]interface{}{
				"session": session.Key.String(),
				"error":   err.Error(),
			})
		}
	}
}
