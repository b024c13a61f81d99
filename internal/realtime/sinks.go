package realtime

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"internship_backend/internal/services/dto"

	"github.com/rabbitmq/amqp091-go"
)

// UserSender - локальные websocket соединения (ws.WebSocketManager)
type UserSender interface {
	SendToUser(userID string, payload []byte) int
}

type WebSocketSink struct {
	sender UserSender
}

func NewWebSocketSink(sender UserSender) *WebSocketSink {
	return &WebSocketSink{sender: sender}
}

func (s *WebSocketSink) Name() string { return "websocket" }

// Deliver: пользователи без активных соединений просто пропускаются
func (s *WebSocketSink) Deliver(_ context.Context, userIDs []string, _ dto.RealtimeEvent, payload []byte) error {
	for _, id := range userIDs {
		s.sender.SendToUser(id, payload)
	}
	return nil
}

// AMQPSink публикует события в topic exchange для других инстансов API.
// Routing key - тип события, получатели в заголовке recipients.
type AMQPSink struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

func NewAMQPSink(url, exchange string) (*AMQPSink, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &AMQPSink{conn: conn, channel: ch, exchange: exchange}, nil
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Deliver(ctx context.Context, userIDs []string, event dto.RealtimeEvent, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil || s.conn.IsClosed() {
		return fmt.Errorf("amqp connection is closed")
	}

	return s.channel.PublishWithContext(ctx,
		s.exchange,
		event.Type,
		false,
		false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        payload,
			Timestamp:   event.OccurredAt,
			Headers: amqp091.Table{
				"recipients":      strings.Join(userIDs, ","),
				"conversation_id": event.ConversationID,
			},
		},
	)
}

func (s *AMQPSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel != nil {
		_ = s.channel.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
}
