package dto

import (
	"time"

	"internship_backend/internal/models"
)

// ---------------- Requests ----------------

// CreateNotificationRequest - уведомление, которое выпускает другой модуль платформы
// (заявки, проекты, дедлайны, чат). UserID - получатель.
type CreateNotificationRequest struct {
	UserID      string                      `json:"user_id" validate:"required"`
	Category    models.NotificationCategory `json:"category" validate:"required"`
	Title       string                      `json:"title" validate:"required,max=255"`
	Body        string                      `json:"body" validate:"omitempty,max=2000"`
	RelatedRefs map[string]interface{}      `json:"related_refs,omitempty"`
	ActionURL   *string                     `json:"action_url,omitempty" validate:"omitempty,max=512"`
}

type MarkMultipleAsReadRequest struct {
	NotificationIDs []string `json:"notification_ids" validate:"required,min=1,max=500"`
}

// UpdatePreferencesRequest - частичное обновление: nil поля не меняются
type UpdatePreferencesRequest struct {
	EmailEnabled       *bool `json:"email_enabled,omitempty"`
	PushEnabled        *bool `json:"push_enabled,omitempty"`
	MessageEnabled     *bool `json:"message_enabled,omitempty"`
	ApplicationEnabled *bool `json:"application_enabled,omitempty"`
}

// ---------------- Responses ----------------

type NotificationResponse struct {
	ID          string                      `json:"id"`
	UserID      string                      `json:"user_id"`
	Category    models.NotificationCategory `json:"category"`
	Title       string                      `json:"title"`
	Body        string                      `json:"body"`
	RelatedRefs map[string]interface{}      `json:"related_refs,omitempty"`
	ActionURL   *string                     `json:"action_url,omitempty"`
	IsRead      bool                        `json:"is_read"`
	ReadAt      *time.Time                  `json:"read_at,omitempty"`
	CreatedAt   time.Time                   `json:"created_at"`
}

// CreateNotificationResult - подавление по настройкам не ошибка:
// Suppressed=true и Notification=nil.
type CreateNotificationResult struct {
	Notification *NotificationResponse `json:"notification,omitempty"`
	Suppressed   bool                  `json:"suppressed"`
}

type NotificationListResponse struct {
	Notifications []*NotificationResponse `json:"notifications"`
	Total         int64                   `json:"total"`
	Page          int                     `json:"page"`
	PageSize      int                     `json:"page_size"`
	TotalPages    int                     `json:"total_pages"`
}

type MarkMultipleAsReadResponse struct {
	Updated int64 `json:"updated"`
	Skipped int   `json:"skipped"` // id, которых нет
}

type NotificationStatsResponse struct {
	Total       int64 `json:"total"`
	Unread      int64 `json:"unread"`
	Read        int64 `json:"read"`
	Application int64 `json:"application"` // application + acceptance + rejection
	Message     int64 `json:"message"`
	Project     int64 `json:"project"` // project + deadline

	ByCategory map[models.NotificationCategory]int64 `json:"by_category"`
}

type PreferencesResponse struct {
	UserID             string    `json:"user_id"`
	EmailEnabled       bool      `json:"email_enabled"`
	PushEnabled        bool      `json:"push_enabled"`
	MessageEnabled     bool      `json:"message_enabled"`
	ApplicationEnabled bool      `json:"application_enabled"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ---------------- Criteria ----------------

type NotificationCriteria struct {
	Page       int                         `form:"-"`
	PageSize   int                         `form:"-"`
	UnreadOnly bool                        `form:"unread_only"`
	Category   models.NotificationCategory `form:"category" validate:"omitempty,notification-category"`
}
