package models

import (
	"time"

	"gorm.io/datatypes"
)

type Notification struct {
	BaseModel
	UserID      string               `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Category    NotificationCategory `gorm:"type:varchar(32);not null;index" json:"category"`
	Title       string               `gorm:"type:varchar(255);not null" json:"title"`
	Body        string               `gorm:"type:text" json:"body"`
	RelatedRefs datatypes.JSON       `json:"related_refs,omitempty"` // {"project_id": "...", "conversation_id": "..."}
	ActionURL   *string              `gorm:"type:varchar(512)" json:"action_url,omitempty"`
	IsRead      bool                 `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt      *time.Time           `json:"read_at,omitempty"`
}

// NotificationPreferences - по одной строке на пользователя, создается лениво
type NotificationPreferences struct {
	BaseModel
	UserID             string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"user_id"`
	EmailEnabled       bool      `gorm:"not null" json:"email_enabled"`
	PushEnabled        bool      `gorm:"not null" json:"push_enabled"`
	MessageEnabled     bool      `gorm:"not null" json:"message_enabled"`
	ApplicationEnabled bool      `gorm:"not null" json:"application_enabled"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (NotificationPreferences) TableName() string {
	return "notification_preferences"
}

// DefaultPreferences - все каналы включены
func DefaultPreferences(userID string) *NotificationPreferences {
	return &NotificationPreferences{
		UserID:             userID,
		EmailEnabled:       true,
		PushEnabled:        true,
		MessageEnabled:     true,
		ApplicationEnabled: true,
	}
}
