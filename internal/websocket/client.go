package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ai-orchestrator-be/internal/dto"
	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/internal/pkg/serverutils"
	"ai-orchestrator-be/pkg/apperror"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	maxInFlight    = 4
)

// RequestHandler runs one chat message through the orchestration pipeline.
type RequestHandler interface {
	Handle(ctx context.Context, req entity.Request) (*entity.Result, error)
}

// InboundMessage is what a chat client sends. ConversationId defaults to the
// conversation the connection was opened on.
type InboundMessage struct {
	RequestId string `json:"request_id,omitempty"`
	dto.DispatchRequest
}

type OutboundMessage struct {
	Type           string                     `json:"type"`
	RequestId      string                     `json:"request_id,omitempty"`
	ConversationId string                     `json:"conversation_id"`
	Result         *dto.DispatchResponse      `json:"result,omitempty"`
	Error          *serverutils.ErrorResponse `json:"error,omitempty"`
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	Key    entity.SessionKey
	UserId string

	// Buffered channel of outbound messages.
	Send chan []byte

	handler  RequestHandler
	logger   logger.ILogger
	inFlight chan struct{}
	sendMu   sync.Mutex
	closed   bool
	now      func() time.Time
}

func newClient(hub *Hub, conn *websocket.Conn, key entity.SessionKey, userId string, handler RequestHandler, log logger.ILogger) *Client {
	return &Client{
		Hub:      hub,
		Conn:     conn,
		Key:      key,
		UserId:   userId,
		Send:     make(chan []byte, 256),
		handler:  handler,
		logger:   log,
		inFlight: make(chan struct{}, maxInFlight),
		now:      time.Now,
	}
}

// enqueue reports false when the buffer is full. Sends after the hub closed
// Send are dropped.
func (c *Client) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// closeSend is called by the hub only.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// readPump pumps messages from the websocket connection to the pipeline.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("Hub", "Unexpected close", map[string]interface{}{"conversation": c.Key.String(), "error": err.Error()})
			}
			return
		}

		select {
		case c.inFlight <- struct{}{}:
			go func() {
				defer func() { <-c.inFlight }()
				c.handle(ctx, raw)
			}()
		default:
			c.reply(OutboundMessage{
				Type:           "error",
				ConversationId: c.Key.ConversationId,
				Error:          &serverutils.ErrorResponse{Code: 429, Message: "too many requests in flight on this connection", Kind: string(apperror.KindThrottled)},
			})
		}
	}
}

// handle runs one inbound message. Results go to every connection on the
// conversation; errors only to the sender.
func (c *Client) handle(ctx context.Context, raw []byte) {
	var in InboundMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		c.replyError("", apperror.Validation("message is not valid JSON"))
		return
	}
	if in.ConversationId == "" {
		in.ConversationId = c.Key.ConversationId
	}
	if err := serverutils.ValidateRequest(in.DispatchRequest); err != nil {
		c.replyError(in.RequestId, err)
		return
	}

	req := in.DispatchRequest.ToRequest(entity.ChannelChat, c.Key.TenantId, c.UserId, c.now())
	result, err := c.handler.Handle(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.replyError(in.RequestId, err)
		return
	}

	resp := dto.NewDispatchResponse(result)
	data, err := json.Marshal(OutboundMessage{
		Type:           "result",
		RequestId:      in.RequestId,
		ConversationId: req.ConversationId,
		Result:         &resp,
	})
	if err != nil {
		return
	}
	c.Hub.Deliver(entity.SessionKey{TenantId: req.TenantId, ConversationId: req.ConversationId}, data)
}

func (c *Client) replyError(requestId string, err error) {
	_, resp := serverutils.BuildErrorResponse(err)
	c.reply(OutboundMessage{Type: "error", RequestId: requestId, ConversationId: c.Key.ConversationId, Error: &resp})
}

func (c *Client) reply(msg OutboundMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if !c.enqueue(data) {
		c.logger.Warn("Hub", "Dropping reply, send buffer full", map[string]interface{}{"conversation": c.Key.String()})
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
