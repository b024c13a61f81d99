package dto

import "time"

// Типы событий, которые уходят клиентам по websocket
const (
	EventNotificationCreated = "notification.created"
	EventMessageCreated      = "message.created"
	EventMessageEdited       = "message.edited"
	EventConversationRead    = "conversation.read"
	EventConversationUpdated = "conversation.updated"
	EventParticipantsChanged = "participants.changed"
)

// RealtimeEvent - конверт события для RealtimePublisher
type RealtimeEvent struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Payload        interface{} `json:"payload"`
	OccurredAt     time.Time   `json:"occurred_at"`
}
