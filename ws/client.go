package ws

import (
	"context"
	"encoding/json"
	"time"

	"internship_backend/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

type IncomingWSMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// OutgoingAck - ответ на входящее действие клиента
type OutgoingAck struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
	Ctx    context.Context

	manager *WebSocketManager
}

func newClient(ctx context.Context, manager *WebSocketManager, userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID:  userID,
		Conn:    conn,
		Send:    make(chan []byte, sendBufferSize),
		Ctx:     ctx,
		manager: manager,
	}
}

func (c *Client) readPump() {
	defer func() {
		c.manager.leave(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msgBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket read error", "user_id", c.UserID, "error", err)
			}
			return
		}

		var msg IncomingWSMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			c.reply(OutgoingAck{Type: "ack", Action: "unknown", Error: "invalid message format"})
			continue
		}

		c.reply(c.handleMessage(msg))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Warn("WebSocket write error", "user_id", c.UserID, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Централизованный обработчик входящих действий
func (c *Client) handleMessage(msg IncomingWSMessage) OutgoingAck {
	ack := OutgoingAck{Type: "ack", Action: msg.Action}

	switch msg.Action {
	case "ping":
		ack.OK = true

	case "mark_read":
		var payload struct {
			ConversationID string `json:"conversation_id"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.ConversationID == "" {
			ack.Error = "conversation_id is required"
			return ack
		}
		if c.manager.reads == nil {
			ack.Error = "mark_read is not available"
			return ack
		}
		if err := c.manager.reads.MarkConversationRead(c.Ctx, c.UserID, payload.ConversationID); err != nil {
			logger.CtxWarn(c.Ctx, "WebSocket mark_read failed", "conversation_id", payload.ConversationID, "error", err)
			ack.Error = err.Error()
			return ack
		}
		ack.OK = true

	default:
		ack.Error = "unsupported action"
	}
	return ack
}

// reply - ответ только этому соединению; при переполнении ответ теряется
func (c *Client) reply(ack OutgoingAck) {
	payload, err := json.Marshal(ack)
	if err != nil {
		return
	}
	c.manager.mu.RLock()
	defer c.manager.mu.RUnlock()
	if _, ok := c.manager.clients[c.UserID][c]; !ok {
		return
	}
	select {
	case c.Send <- payload:
	default:
	}
}
