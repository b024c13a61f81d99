package ws

import (
	"context"
	"sync"

	"internship_backend/internal/logger"
)

// ReadMarker - входящее действие mark_read от клиента
type ReadMarker interface {
	MarkConversationRead(ctx context.Context, userID, conversationID string) error
}

type ReadMarkerFunc func(ctx context.Context, userID, conversationID string) error

func (f ReadMarkerFunc) MarkConversationRead(ctx context.Context, userID, conversationID string) error {
	return f(ctx, userID, conversationID)
}

// WebSocketManager хранит соединения по пользователям; у одного пользователя
// может быть несколько вкладок/устройств.
type WebSocketManager struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	reads ReadMarker
}

func NewWebSocketManager(reads ReadMarker) *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		reads:      reads,
	}
}

func (manager *WebSocketManager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(manager.done)
			manager.closeAll()
			return

		case client := <-manager.register:
			manager.mu.Lock()
			set, ok := manager.clients[client.UserID]
			if !ok {
				set = make(map[*Client]struct{})
				manager.clients[client.UserID] = set
			}
			set[client] = struct{}{}
			manager.mu.Unlock()
			logger.Debug("WebSocket client registered", "user_id", client.UserID, "connections", len(set))

		case client := <-manager.unregister:
			manager.remove(client)
		}
	}
}

// join/leave не блокируются после остановки Run
func (manager *WebSocketManager) join(client *Client) bool {
	select {
	case manager.register <- client:
		return true
	case <-manager.done:
		return false
	}
}

func (manager *WebSocketManager) leave(client *Client) {
	select {
	case manager.unregister <- client:
	case <-manager.done:
	}
}

func (manager *WebSocketManager) remove(client *Client) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	set, ok := manager.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	close(client.Send)
	delete(set, client)
	if len(set) == 0 {
		delete(manager.clients, client.UserID)
	}
	logger.Debug("WebSocket client unregistered", "user_id", client.UserID)
}

func (manager *WebSocketManager) closeAll() {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	for userID, set := range manager.clients {
		for client := range set {
			close(client.Send)
		}
		delete(manager.clients, userID)
	}
}

// SendToUser кладет payload во все соединения пользователя и возвращает
// число соединений, принявших его. Переполненный клиент отключается.
func (manager *WebSocketManager) SendToUser(userID string, payload []byte) int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	delivered := 0
	for client := range manager.clients[userID] {
		select {
		case client.Send <- payload:
			delivered++
		default:
			go manager.leave(client)
			logger.Warn("WebSocket client disconnected due to full send channel", "user_id", userID)
		}
	}
	return delivered
}

func (manager *WebSocketManager) GetClientCount() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	total := 0
	for _, set := range manager.clients {
		total += len(set)
	}
	return total
}

func (manager *WebSocketManager) IsUserConnected(userID string) bool {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.clients[userID]) > 0
}
