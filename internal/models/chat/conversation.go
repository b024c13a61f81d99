package chat

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

type Conversation struct {
	ID      string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	Type    ConversationType `gorm:"type:varchar(16);not null" json:"type"`
	GroupID *string          `gorm:"type:varchar(36);index" json:"group_id,omitempty"` // проектная группа
	Name    *string          `gorm:"type:varchar(255)" json:"name,omitempty"`
	// DirectKey - упорядоченная пара "a:b" для личных бесед, NULL для групп.
	// Уникальный индекс делает создание личной беседы идемпотентным.
	DirectKey     *string    `gorm:"type:varchar(80);uniqueIndex" json:"-"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	LastMessageAt *time.Time `gorm:"index" json:"last_message_at,omitempty"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (c *Conversation) IsDirect() bool {
	return c.Type == ConversationDirect
}

// DirectKeyFor строит ключ, не зависящий от порядка пользователей
func DirectKeyFor(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}
