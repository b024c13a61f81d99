package chat

import "time"

// ConversationParticipant - членство пользователя в беседе.
// LastReadAt - единственное состояние прочтения: непрочитанные сообщения
// вычисляются как sent_at > last_read_at, флагов на сообщениях нет.
type ConversationParticipant struct {
	ConversationID string     `gorm:"type:varchar(36);primaryKey" json:"conversation_id"`
	UserID         string     `gorm:"type:varchar(36);primaryKey;index" json:"user_id"`
	JoinedAt       time.Time  `gorm:"not null" json:"joined_at"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty"`
}
