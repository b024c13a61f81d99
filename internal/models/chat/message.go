package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageFile  MessageType = "file"
	MessageImage MessageType = "image"
	MessageLink  MessageType = "link"
)

func (t MessageType) IsValid() bool {
	switch t {
	case MessageText, MessageFile, MessageImage, MessageLink:
		return true
	default:
		return false
	}
}

// Message: sent_at строго растет внутри беседы, пара (conversation_id, sent_at) уникальна
type Message struct {
	ID             string `gorm:"type:varchar(36);primaryKey" json:"id"`
	ConversationID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_messages_conversation_sent,priority:1" json:"conversation_id"`
	// SenderID без внешнего ключа: сообщения переживают удаление аккаунта
	SenderID       string      `gorm:"type:varchar(36);not null;index" json:"sender_id"`
	Type           MessageType `gorm:"type:varchar(16);not null;default:'text'" json:"type"`
	Text           string      `gorm:"type:text" json:"text"`
	AttachmentURL  *string     `gorm:"type:varchar(512)" json:"attachment_url,omitempty"`
	AttachmentName *string     `gorm:"type:varchar(255)" json:"attachment_name,omitempty"`
	SentAt         time.Time   `gorm:"not null;uniqueIndex:idx_messages_conversation_sent,priority:2" json:"sent_at"`
	EditedAt       *time.Time  `json:"edited_at,omitempty"`
	IsEdited       bool        `gorm:"not null;default:false" json:"is_edited"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
