package services

import (
	"time"

	"internship_backend/internal/repositories"
	"internship_backend/internal/services/dto"
	"internship_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// UnreadService считает непрочитанные сообщения по watermark участника.
// Непрочитанное: sent_at строго больше last_read_at, свои сообщения не считаются,
// NULL watermark - не прочитано ничего.
type UnreadService interface {
	MarkConversationRead(db *gorm.DB, userID, conversationID string, asOf *time.Time) error
	UnreadCount(db *gorm.DB, userID, conversationID string) (int64, error)
	ConversationSummary(db *gorm.DB, userID string, page, pageSize int) (*dto.ConversationSummaryResponse, error)
}

type unreadService struct {
	chatRepo  repositories.ChatRepository
	users     UserDirectory
	publisher RealtimePublisher
	paging    Paging
}

func NewUnreadService(chatRepo repositories.ChatRepository, users UserDirectory, publisher RealtimePublisher, paging Paging) UnreadService {
	if publisher == nil {
		publisher = NoopPublisher()
	}
	return &unreadService{
		chatRepo:  chatRepo,
		users:     users,
		publisher: publisher,
		paging:    paging.withDefaults(),
	}
}

// MarkConversationRead выставляет last_read_at = asOf (по умолчанию сейчас)
func (s *unreadService) MarkConversationRead(db *gorm.DB, userID, conversationID string, asOf *time.Time) error {
	if !isUUID(conversationID) {
		return apperrors.ErrConversationNotFound
	}

	watermark := nowFunc()
	if asOf != nil {
		watermark = asOf.UTC().Truncate(time.Microsecond)
	}

	tx := db.Begin()
	if tx.Error != nil {
		return apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	if _, err := s.chatRepo.FindConversationByID(tx, conversationID); err != nil {
		return handleChatError(err)
	}
	if err := s.chatRepo.UpdateLastReadAt(tx, conversationID, userID, watermark); err != nil {
		if err == repositories.ErrParticipantNotFound {
			return apperrors.ErrConversationAccessDenied
		}
		return handleChatError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return apperrors.InternalError(err)
	}

	s.publisher.PushToConversation(conversationID, dto.RealtimeEvent{
		Type:           dto.EventConversationRead,
		ConversationID: conversationID,
		Payload: map[string]interface{}{
			"user_id":      userID,
			"last_read_at": watermark,
		},
		OccurredAt: nowFunc(),
	})
	return nil
}

func (s *unreadService) UnreadCount(db *gorm.DB, userID, conversationID string) (int64, error) {
	if !isUUID(conversationID) {
		return 0, apperrors.ErrConversationNotFound
	}
	if _, err := s.chatRepo.FindConversationByID(db, conversationID); err != nil {
		return 0, handleChatError(err)
	}

	participant, err := s.chatRepo.FindParticipant(db, conversationID, userID)
	if err != nil {
		if err == repositories.ErrParticipantNotFound {
			return 0, apperrors.ErrConversationAccessDenied
		}
		return 0, apperrors.InternalError(err)
	}

	count, err := s.chatRepo.CountUnread(db, conversationID, userID, participant.LastReadAt)
	if err != nil {
		return 0, apperrors.InternalError(err)
	}
	return count, nil
}

// ConversationSummary - страница бесед пользователя по last_message_at (новые сверху)
// с превью последнего сообщения и числом непрочитанных
func (s *unreadService) ConversationSummary(db *gorm.DB, userID string, page, pageSize int) (*dto.ConversationSummaryResponse, error) {
	page, pageSize = s.paging.normalize(page, pageSize)

	conversations, total, err := s.chatRepo.FindUserConversations(db, userID, page, pageSize)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	response := &dto.ConversationSummaryResponse{
		Conversations: []*dto.ConversationSummary{},
		Total:         total,
		Page:          page,
		PageSize:      pageSize,
		TotalPages:    calculateTotalPages(total, pageSize),
	}
	if len(conversations) == 0 {
		return response, nil
	}

	ids := make([]string, 0, len(conversations))
	for _, c := range conversations {
		ids = append(ids, c.ID)
	}

	unread, err := s.chatRepo.CountUnreadByConversation(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	lastMessages, err := s.chatRepo.FindLastMessages(db, ids)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	senderIDs := make([]string, 0, len(lastMessages))
	for _, m := range lastMessages {
		senderIDs = append(senderIDs, m.SenderID)
	}
	names := s.users.DisplayNames(db, removeDuplicates(senderIDs))

	for _, c := range conversations {
		summary := &dto.ConversationSummary{
			ConversationID: c.ID,
			Type:           c.Type,
			Name:           c.Name,
			LastMessageAt:  c.LastMessageAt,
			UnreadCount:    unread[c.ID],
		}
		if m, ok := lastMessages[c.ID]; ok {
			summary.LastMessage = &dto.MessagePreview{
				SenderID:   m.SenderID,
				SenderName: names[m.SenderID],
				Text:       previewText(&m),
				SentAt:     m.SentAt,
			}
		}
		response.Conversations = append(response.Conversations, summary)
	}
	return response, nil
}
