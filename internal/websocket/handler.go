package websocket

import (
	"context"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RequireUpgrade rejects plain HTTP requests on the chat route and checks the
// conversation is named before the upgrade.
func RequireUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if c.Query("conversation_id") == "" {
			return fiber.NewError(fiber.StatusBadRequest, "conversation_id is required")
		}
		return c.Next()
	}
}

// Handler serves one chat connection per conversation. The tenant and user
// come from TenantMiddleware.
func Handler(hub *Hub, handler RequestHandler, chatLog logger.ILogger) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		tenantId, _ := c.Locals(serverutils.LocalTenantId).(string)
		userId, _ := c.Locals(serverutils.LocalUserId).(string)
		key := entity.SessionKey{TenantId: tenantId, ConversationId: c.Query("conversation_id")}

		ServeWs(hub, c, key, userId, handler, chatLog)
	})
}

// ServeWs handles websocket requests from the peer.
func ServeWs(hub *Hub, c *websocket.Conn, key entity.SessionKey, userId string, handler RequestHandler, chatLog logger.ILogger) {
	client := newClient(hub, c, key, userId, handler, chatLog)
	if !hub.Register(client) {
		c.Close()
		return
	}

	// in-flight requests stop waiting once the peer is gone
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.writePump()
	client.readPump(ctx)
}
