package handlers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/rawlink/marketplace/backend/internal/chat"
	"github.com/rawlink/marketplace/backend/internal/metrics"
	"github.com/rawlink/marketplace/backend/internal/models"
)

const chatUserKey = "chatUser"

// ChatUpgrade gates the chat WebSocket route: the upgrade is only allowed
// for an authenticated identity. There is no anonymous fallback — any
// authentication failure denies the connection before the upgrade happens.
func ChatUpgrade(authenticator *chat.Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		user, err := authenticator.Authenticate(c.Context(), c.Query("token"), c.Get("Authorization"))
		if err != nil {
			log.Warn().Str("remote", c.IP()).Msg("chat connection rejected")
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		c.Locals(chatUserKey, user)
		return c.Next()
	}
}

// ChatWSEndpoint serves one authenticated chat connection: it subscribes the
// connection to the user's delivery group, pumps outbound frames from the
// hub, and relays inbound frames until the client disconnects.
func ChatWSEndpoint(conn *websocket.Conn) {
	user, ok := conn.Locals(chatUserKey).(*models.User)
	if !ok {
		conn.Close()
		return
	}

	client := chat.NewClient(user.ID, user.Username, conn)
	chat.GlobalHub.Register(client)
	metrics.ActiveChatConnections.Inc()
	log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("chat connected")

	go writePump(client)
	readPump(client, user)
}

// writePump drains the client's send channel onto the wire. It exits when
// the hub closes the channel or a write fails.
func writePump(client *chat.Client) {
	defer client.Conn.Close()

	for payload := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Debug().Err(err).Int64("user_id", client.UserID).Msg("chat write failed")
			chat.GlobalHub.Unregister(client)
			return
		}
	}
}

// readPump relays inbound frames until the connection drops, then
// unsubscribes the client. Malformed frames are logged and skipped; relay
// rejections do not terminate the connection.
func readPump(client *chat.Client, user *models.User) {
	defer func() {
		chat.GlobalHub.Unregister(client)
		client.Conn.Close()
		metrics.ActiveChatConnections.Dec()
		log.Info().Int64("user_id", user.ID).Msg("chat disconnected")
	}()

	for {
		_, raw, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Int64("user_id", user.ID).Msg("chat read failed")
			}
			return
		}

		var frame chat.InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Debug().Err(err).Int64("user_id", user.ID).Msg("malformed chat frame")
			continue
		}

		if _, err := chat.GlobalRelay.SendMessage(context.Background(), user, frame.ReceiverID, frame.Message); err != nil {
			log.Debug().Err(err).Int64("user_id", user.ID).Int64("receiver_id", frame.ReceiverID).Msg("chat send rejected")
		}
	}
}
