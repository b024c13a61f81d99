package dto

import (
	"time"

	"internship_backend/internal/models/chat"
)

// Request/Response structures

type CreateConversationRequest struct {
	Type    chat.ConversationType `json:"type" validate:"required,conversation-type"`
	UserIDs []string              `json:"participant_ids" validate:"required,min=1,max=200,uuid-list"`
	GroupID *string               `json:"group_id,omitempty" validate:"omitempty,max=36"`
	Name    *string               `json:"name,omitempty" validate:"omitempty,max=255"`
}

type AddParticipantsRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,max=200,uuid-list"`
}

type RenameConversationRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type SendMessageRequest struct {
	Type           chat.MessageType `json:"type" validate:"omitempty,message-type"` // text по умолчанию
	Text           string           `json:"text" validate:"required_without=AttachmentURL,max=5000"`
	AttachmentURL  *string          `json:"attachment_url,omitempty" validate:"omitempty,url,max=512"`
	AttachmentName *string          `json:"attachment_name,omitempty" validate:"omitempty,max=255"`
}

type EditMessageRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

type MarkConversationReadRequest struct {
	AsOf *time.Time `json:"as_of,omitempty"`
}

type ConversationResponse struct {
	ID            string                 `json:"id"`
	Type          chat.ConversationType  `json:"type"`
	GroupID       *string                `json:"group_id,omitempty"`
	Name          *string                `json:"name,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	LastMessageAt *time.Time             `json:"last_message_at,omitempty"`
	Participants  []*ParticipantResponse `json:"participants"`
}

type ParticipantResponse struct {
	UserID      string     `json:"user_id"`
	DisplayName string     `json:"display_name"`
	JoinedAt    time.Time  `json:"joined_at"`
	LastReadAt  *time.Time `json:"last_read_at,omitempty"`
}

type MessageResponse struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	SenderID       string           `json:"sender_id"`
	SenderName     string           `json:"sender_name"`
	Type           chat.MessageType `json:"type"`
	Text           string           `json:"text"`
	AttachmentURL  *string          `json:"attachment_url,omitempty"`
	AttachmentName *string          `json:"attachment_name,omitempty"`
	SentAt         time.Time        `json:"sent_at"`
	EditedAt       *time.Time       `json:"edited_at,omitempty"`
	IsEdited       bool             `json:"is_edited"`
}

type MessageListResponse struct {
	Messages   []*MessageResponse `json:"messages"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

// ConversationSummary - строка списка бесед пользователя
type ConversationSummary struct {
	ConversationID string                `json:"conversation_id"`
	Type           chat.ConversationType `json:"type"`
	Name           *string               `json:"name,omitempty"`
	LastMessage    *MessagePreview       `json:"last_message,omitempty"`
	LastMessageAt  *time.Time            `json:"last_message_at,omitempty"`
	UnreadCount    int64                 `json:"unread_count"`
}

type ConversationSummaryResponse struct {
	Conversations []*ConversationSummary `json:"conversations"`
	Total         int64                  `json:"total"`
	Page          int                    `json:"page"`
	PageSize      int                    `json:"page_size"`
	TotalPages    int                    `json:"total_pages"`
}

type MessagePreview struct {
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sent_at"`
}

type UnreadCountResponse struct {
	ConversationID string `json:"conversation_id,omitempty"`
	UnreadCount    int64  `json:"unread_count"`
}
