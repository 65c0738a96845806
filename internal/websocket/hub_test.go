package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	got    chan entity.Request
	result *entity.Result
	err    error
}

func (f *fakeHandler) Handle(_ context.Context, req entity.Request) (*entity.Result, error) {
	f.got <- req
	return f.result, f.err
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func testClient(hub *Hub, conversation string, handler RequestHandler) *Client {
	key := entity.SessionKey{TenantId: "acme", ConversationId: conversation}
	return newClient(hub, nil, key, "u1", handler, logger.NewNopLogger())
}

func receive(t *testing.T, c *Client) OutboundMessage {
	t.Helper()
	select {
	case raw := <-c.Send:
		var msg OutboundMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return OutboundMessage{}
	}
}

func TestHubDeliversToEveryDeviceOnConversation(t *testing.T) {
	hub := startHub(t)
	phone := testClient(hub, "c1", nil)
	laptop := testClient(hub, "c1", nil)
	other := testClient(hub, "c2", nil)
	for _, c := range []*Client{phone, laptop, other} {
		require.True(t, hub.Register(c))
	}
	require.Eventually(t, func() bool { return hub.Count() == 3 }, time.Second, time.Millisecond)

	hub.Deliver(phone.Key, []byte(`{"type":"result","conversation_id":"c1"}`))

	assert.Equal(t, "result", receive(t, phone).Type)
	assert.Equal(t, "result", receive(t, laptop).Type)
	assert.Empty(t, other.Send)
}

func TestHubUnregisterClosesSendOnce(t *testing.T) {
	hub := startHub(t)
	c := testClient(hub, "c1", nil)
	require.True(t, hub.Register(c))

	hub.Unregister(c)
	hub.Unregister(c)
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, time.Millisecond)

	_, open := <-c.Send
	assert.False(t, open)
	// late deliveries are dropped, not panics
	assert.True(t, c.enqueue([]byte("late")))
}

func TestHubDisconnectsSlowClient(t *testing.T) {
	hub := startHub(t)
	c := testClient(hub, "c1", nil)
	require.True(t, hub.Register(c))
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, time.Millisecond)

	for i := 0; i < cap(c.Send)+1; i++ {
		hub.Deliver(c.Key, []byte(`{}`))
	}
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, time.Millisecond)
}

func TestClientHandleDeliversResult(t *testing.T) {
	hub := startHub(t)
	handler := &fakeHandler{
		got:    make(chan entity.Request, 1),
		result: &entity.Result{PlanId: uuid.New(), Text: "scheduled", Category: entity.CategoryQuick, Strategy: "rules"},
	}
	c := testClient(hub, "c1", handler)
	require.True(t, hub.Register(c))
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, time.Millisecond)

	c.handle(context.Background(), []byte(`{"request_id":"r1","text":"book a meeting tomorrow"}`))

	req := <-handler.got
	assert.Equal(t, entity.ChannelChat, req.ChannelId)
	assert.Equal(t, "acme", req.TenantId)
	assert.Equal(t, "c1", req.ConversationId)
	assert.Equal(t, "u1", req.UserId)

	msg := receive(t, c)
	assert.Equal(t, "result", msg.Type)
	assert.Equal(t, "r1", msg.RequestId)
	require.NotNil(t, msg.Result)
	assert.Equal(t, "scheduled", msg.Result.Text)
}

func TestClientHandleReportsErrors(t *testing.T) {
	hub := startHub(t)
	handler := &fakeHandler{
		got: make(chan entity.Request, 1),
		err: apperror.BackendUnavailable("primary", true, 0, 10*time.Second, errors.New("open")),
	}
	c := testClient(hub, "c1", handler)

	c.handle(context.Background(), []byte(`not json`))
	msg := receive(t, c)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, 400, msg.Error.Code)

	c.handle(context.Background(), []byte(`{"text":"hi","category":"bogus"}`))
	msg = receive(t, c)
	assert.Equal(t, 400, msg.Error.Code)

	c.handle(context.Background(), []byte(`{"request_id":"r2","text":"hi"}`))
	<-handler.got
	msg = receive(t, c)
	assert.Equal(t, "r2", msg.RequestId)
	assert.Equal(t, 503, msg.Error.Code)
	assert.True(t, msg.Error.KnownDown)
	assert.Equal(t, 10, msg.Error.RetryAfter)
}
