package ws

import (
	"context"
	"net/http"

	"internship_backend/internal/logger"
	"internship_backend/pkg/apperrors"
	"internship_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	Manager  *WebSocketManager
	upgrader websocket.Upgrader
}

// NewWebSocketHandler: allowedOrigins "*" (или пустой список) пропускает любой origin
func NewWebSocketHandler(manager *WebSocketManager, allowedOrigins []string) *WebSocketHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	anyOrigin := len(allowedOrigins) == 0
	for _, o := range allowedOrigins {
		if o == "*" {
			anyOrigin = true
		}
		origins[o] = true
	}

	return &WebSocketHandler{
		Manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return anyOrigin || origin == "" || origins[origin]
			},
		},
	}
}

// ServeWS - GET /ws; userID кладет AuthMiddleware (токен в заголовке или ?token=)
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	userIDVal, _ := c.Get(contextkeys.UserIDKey)
	userID, _ := userIDVal.(string)
	if userID == "" {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.CtxWarn(c.Request.Context(), "WebSocket upgrade error", "error", err)
		return
	}

	// контекст запроса отменяется после выхода из хэндлера, значения (request_id) сохраняем
	ctx := context.WithoutCancel(c.Request.Context())
	client := newClient(ctx, h.Manager, userID, conn)

	if !h.Manager.join(client) {
		conn.Close()
		return
	}
	logger.CtxInfo(ctx, "WebSocket client connected", "user_id", userID)

	go client.readPump()
	go client.writePump()
}
