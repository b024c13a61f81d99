package services

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"internship_backend/internal/logger"
	"internship_backend/internal/metrics"
	"internship_backend/internal/models"
	"internship_backend/internal/models/chat"
	"internship_backend/internal/repositories"
	"internship_backend/internal/services/dto"
	"internship_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// превью сообщения в теле уведомления
const messagePreviewLength = 120

type MessageService interface {
	SendMessage(db *gorm.DB, senderID, conversationID string, req *dto.SendMessageRequest) (*dto.MessageResponse, error)
	EditMessage(db *gorm.DB, userID, messageID string, req *dto.EditMessageRequest) (*dto.MessageResponse, error)
	GetMessages(db *gorm.DB, userID, conversationID string, page, pageSize int) (*dto.MessageListResponse, error)
}

type messageService struct {
	chatRepo      repositories.ChatRepository
	users         UserDirectory
	notifications NotificationService
	publisher     RealtimePublisher
	paging        Paging
}

func NewMessageService(
	chatRepo repositories.ChatRepository,
	users UserDirectory,
	notifications NotificationService,
	publisher RealtimePublisher,
	paging Paging,
) MessageService {
	if publisher == nil {
		publisher = NoopPublisher()
	}
	return &messageService{
		chatRepo:      chatRepo,
		users:         users,
		notifications: notifications,
		publisher:     publisher,
		paging:        paging.withDefaults(),
	}
}

// SendMessage: запись сообщения и last_message_at в одной транзакции,
// затем уведомления остальным участникам и push в беседу.
func (s *messageService) SendMessage(db *gorm.DB, senderID, conversationID string, req *dto.SendMessageRequest) (*dto.MessageResponse, error) {
	msgType := req.Type
	if msgType == "" {
		msgType = chat.MessageText
	}
	if !msgType.IsValid() {
		return nil, apperrors.InvalidInput("chat", fmt.Sprintf("unknown message type %q", req.Type))
	}
	if strings.TrimSpace(req.Text) == "" && req.AttachmentURL == nil {
		return nil, apperrors.InvalidInput("chat", "message must have text or an attachment")
	}
	if !isUUID(conversationID) {
		return nil, apperrors.ErrConversationNotFound
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	// параллельные отправки в одну беседу идут по очереди
	conversation, err := s.chatRepo.FindConversationForUpdate(tx, conversationID)
	if err != nil {
		return nil, handleChatError(err)
	}
	ok, err := s.chatRepo.IsUserInConversation(tx, conversationID, senderID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !ok {
		return nil, apperrors.ErrConversationAccessDenied
	}

	message := &chat.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Type:           msgType,
		Text:           req.Text,
		AttachmentURL:  req.AttachmentURL,
		AttachmentName: req.AttachmentName,
		SentAt:         nextSentAt(conversation.LastMessageAt),
	}
	if err := s.chatRepo.CreateMessage(tx, message); err != nil {
		return nil, handleChatError(err)
	}

	participants, err := s.chatRepo.FindParticipantsByConversation(tx, conversationID)
	if err != nil {
		return nil, handleChatError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	metrics.MessagesSent.WithLabelValues(string(conversation.Type)).Inc()

	senderName := s.users.DisplayName(db, senderID)
	response := buildMessageResponse(message, senderName)

	for _, p := range participants {
		if p.UserID == senderID {
			continue
		}
		s.notifyRecipient(db, p.UserID, senderName, conversation, message)
	}

	s.publisher.PushToConversation(conversationID, dto.RealtimeEvent{
		Type:           dto.EventMessageCreated,
		ConversationID: conversationID,
		Payload:        response,
		OccurredAt:     message.SentAt,
	})

	logger.CtxDebug(ctxOf(db), "message sent",
		"conversation_id", conversationID,
		"message_id", message.ID,
		"sender_id", senderID,
	)
	return response, nil
}

// nextSentAt - sent_at строго больше, чем у предыдущего сообщения беседы
func nextSentAt(lastMessageAt *time.Time) time.Time {
	now := nowFunc()
	if lastMessageAt != nil && !now.After(*lastMessageAt) {
		return lastMessageAt.UTC().Add(time.Microsecond)
	}
	return now
}

// notifyRecipient - ошибки уведомлений не влияют на отправку сообщения
func (s *messageService) notifyRecipient(db *gorm.DB, recipientID, senderName string, conversation *chat.Conversation, message *chat.Message) {
	actionURL := fmt.Sprintf("/conversations/%s", conversation.ID)
	title := fmt.Sprintf("New message from %s", senderName)
	if conversation.Name != nil && *conversation.Name != "" {
		title = fmt.Sprintf("New message in %s", *conversation.Name)
	}

	_, err := s.notifications.CreateNotification(db, &dto.CreateNotificationRequest{
		UserID:   recipientID,
		Category: models.CategoryMessage,
		Title:    title,
		Body:     previewText(message),
		RelatedRefs: map[string]interface{}{
			"conversation_id": conversation.ID,
			"message_id":      message.ID,
		},
		ActionURL: &actionURL,
	})
	if err != nil {
		logger.CtxWithError(ctxOf(db), "failed to create message notification", err,
			"conversation_id", conversation.ID,
			"recipient_id", recipientID,
		)
	}
}

// EditMessage - только автор; sent_at не меняется
func (s *messageService) EditMessage(db *gorm.DB, userID, messageID string, req *dto.EditMessageRequest) (*dto.MessageResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, apperrors.InvalidInput("chat", "text must not be empty")
	}
	if !isUUID(messageID) {
		return nil, apperrors.ErrMessageNotFound
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	message, err := s.chatRepo.FindMessageByID(tx, messageID)
	if err != nil {
		return nil, handleChatError(err)
	}
	if message.SenderID != userID {
		return nil, apperrors.ErrCannotEditMessage
	}

	editedAt := nowFunc()
	message.Text = req.Text
	message.IsEdited = true
	message.EditedAt = &editedAt

	if err := s.chatRepo.UpdateMessageText(tx, message); err != nil {
		return nil, handleChatError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	response := buildMessageResponse(message, s.users.DisplayName(db, userID))
	s.publisher.PushToConversation(message.ConversationID, dto.RealtimeEvent{
		Type:           dto.EventMessageEdited,
		ConversationID: message.ConversationID,
		Payload:        response,
		OccurredAt:     editedAt,
	})
	return response, nil
}

// GetMessages - история беседы, новые сверху
func (s *messageService) GetMessages(db *gorm.DB, userID, conversationID string, page, pageSize int) (*dto.MessageListResponse, error) {
	page, pageSize = s.paging.normalize(page, pageSize)
	if !isUUID(conversationID) {
		return nil, apperrors.ErrConversationNotFound
	}

	if _, err := s.chatRepo.FindConversationByID(db, conversationID); err != nil {
		return nil, handleChatError(err)
	}
	ok, err := s.chatRepo.IsUserInConversation(db, conversationID, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !ok {
		return nil, apperrors.ErrConversationAccessDenied
	}

	messages, total, err := s.chatRepo.FindMessagesByConversation(db, conversationID, page, pageSize)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	senderIDs := make([]string, 0, len(messages))
	for _, m := range messages {
		senderIDs = append(senderIDs, m.SenderID)
	}
	names := s.users.DisplayNames(db, removeDuplicates(senderIDs))

	responses := make([]*dto.MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, buildMessageResponse(&messages[i], names[messages[i].SenderID]))
	}

	return &dto.MessageListResponse{
		Messages:   responses,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: calculateTotalPages(total, pageSize),
	}, nil
}

func buildMessageResponse(m *chat.Message, senderName string) *dto.MessageResponse {
	return &dto.MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     senderName,
		Type:           m.Type,
		Text:           m.Text,
		AttachmentURL:  m.AttachmentURL,
		AttachmentName: m.AttachmentName,
		SentAt:         m.SentAt,
		EditedAt:       m.EditedAt,
		IsEdited:       m.IsEdited,
	}
}

func previewText(m *chat.Message) string {
	text := strings.TrimSpace(m.Text)
	if text == "" && m.AttachmentName != nil {
		return *m.AttachmentName
	}
	if utf8.RuneCountInString(text) <= messagePreviewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:messagePreviewLength]) + "..."
}
