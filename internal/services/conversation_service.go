package services

import (
	"fmt"
	"strings"

	"internship_backend/internal/logger"
	"internship_backend/internal/models/chat"
	"internship_backend/internal/repositories"
	"internship_backend/internal/services/dto"
	"internship_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// ConversationService - беседы и состав участников
type ConversationService interface {
	CreateConversation(db *gorm.DB, actorID string, req *dto.CreateConversationRequest) (*dto.ConversationResponse, error)
	GetConversation(db *gorm.DB, userID, conversationID string) (*dto.ConversationResponse, error)
	AddParticipants(db *gorm.DB, actorID, conversationID string, userIDs []string) (*dto.ConversationResponse, error)
	RemoveParticipant(db *gorm.DB, actorID, conversationID, targetUserID string) error
	RenameConversation(db *gorm.DB, actorID, conversationID, name string) (*dto.ConversationResponse, error)
	ParticipantIDs(db *gorm.DB, conversationID string) ([]string, error)
}

type conversationService struct {
	chatRepo  repositories.ChatRepository
	userRepo  repositories.UserRepository
	users     UserDirectory
	publisher RealtimePublisher
}

func NewConversationService(
	chatRepo repositories.ChatRepository,
	userRepo repositories.UserRepository,
	users UserDirectory,
	publisher RealtimePublisher,
) ConversationService {
	if publisher == nil {
		publisher = NoopPublisher()
	}
	return &conversationService{
		chatRepo:  chatRepo,
		userRepo:  userRepo,
		users:     users,
		publisher: publisher,
	}
}

// CreateConversation: личная беседа - ровно два разных пользователя,
// повторное создание для той же пары возвращает существующую беседу.
func (s *conversationService) CreateConversation(db *gorm.DB, actorID string, req *dto.CreateConversationRequest) (*dto.ConversationResponse, error) {
	userIDs := removeDuplicates(req.UserIDs)

	switch req.Type {
	case chat.ConversationDirect:
		if len(userIDs) != 2 {
			return nil, apperrors.InvalidInput("chat", "direct conversation requires exactly two distinct participants")
		}
	case chat.ConversationGroup:
		if len(userIDs) == 0 {
			return nil, apperrors.InvalidInput("chat", "participant list must not be empty")
		}
	default:
		return nil, apperrors.InvalidInput("chat", fmt.Sprintf("unknown conversation type %q", req.Type))
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	if err := s.ensureUsersExist(tx, userIDs); err != nil {
		return nil, err
	}

	now := nowFunc()
	conversation := &chat.Conversation{
		Type:      req.Type,
		GroupID:   req.GroupID,
		Name:      req.Name,
		CreatedAt: now,
	}

	created := true
	if req.Type == chat.ConversationDirect {
		key := chat.DirectKeyFor(userIDs[0], userIDs[1])
		conversation.DirectKey = &key
		conversation.Name = nil

		inserted, err := s.chatRepo.CreateDirectConversation(tx, conversation)
		if err != nil {
			return nil, handleChatError(err)
		}
		if !inserted {
			created = false
			conversation, err = s.chatRepo.FindConversationByDirectKey(tx, key)
			if err != nil {
				return nil, handleChatError(err)
			}
		}
	} else if err := s.chatRepo.CreateConversation(tx, conversation); err != nil {
		return nil, handleChatError(err)
	}

	if created {
		participants := make([]*chat.ConversationParticipant, 0, len(userIDs))
		for _, id := range userIDs {
			participants = append(participants, &chat.ConversationParticipant{
				ConversationID: conversation.ID,
				UserID:         id,
				JoinedAt:       now,
			})
		}
		if _, err := s.chatRepo.AddParticipants(tx, participants); err != nil {
			return nil, handleChatError(err)
		}
	}

	response, err := s.buildConversationResponse(tx, conversation)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	if created {
		logger.CtxInfo(ctxOf(db), "conversation created",
			"conversation_id", conversation.ID,
			"type", conversation.Type,
			"actor_id", actorID,
			"participants", len(userIDs),
		)
		for _, id := range userIDs {
			s.publisher.PushToUser(id, dto.RealtimeEvent{
				Type:           dto.EventConversationUpdated,
				ConversationID: conversation.ID,
				Payload:        response,
				OccurredAt:     now,
			})
		}
	}
	return response, nil
}

func (s *conversationService) GetConversation(db *gorm.DB, userID, conversationID string) (*dto.ConversationResponse, error) {
	conversation, err := s.loadForParticipant(db, conversationID, userID)
	if err != nil {
		return nil, err
	}
	return s.buildConversationResponse(db, conversation)
}

func (s *conversationService) AddParticipants(db *gorm.DB, actorID, conversationID string, userIDs []string) (*dto.ConversationResponse, error) {
	userIDs = removeDuplicates(userIDs)
	if len(userIDs) == 0 {
		return nil, apperrors.InvalidInput("chat", "participant list must not be empty")
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	conversation, err := s.loadForParticipant(tx, conversationID, actorID)
	if err != nil {
		return nil, err
	}
	if conversation.IsDirect() {
		return nil, apperrors.ErrDirectConversationImmutable
	}
	if err := s.ensureUsersExist(tx, userIDs); err != nil {
		return nil, err
	}

	now := nowFunc()
	participants := make([]*chat.ConversationParticipant, 0, len(userIDs))
	for _, id := range userIDs {
		participants = append(participants, &chat.ConversationParticipant{
			ConversationID: conversation.ID,
			UserID:         id,
			JoinedAt:       now,
		})
	}
	added, err := s.chatRepo.AddParticipants(tx, participants)
	if err != nil {
		return nil, handleChatError(err)
	}

	response, err := s.buildConversationResponse(tx, conversation)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	if added > 0 {
		logger.CtxInfo(ctxOf(db), "participants added",
			"conversation_id", conversationID,
			"actor_id", actorID,
			"added", added,
		)
		s.publisher.PushToConversation(conversationID, dto.RealtimeEvent{
			Type:           dto.EventParticipantsChanged,
			ConversationID: conversationID,
			Payload:        response,
			OccurredAt:     now,
		})
	}
	return response, nil
}

// RemoveParticipant удаляет только строку участия; сообщения остаются
func (s *conversationService) RemoveParticipant(db *gorm.DB, actorID, conversationID, targetUserID string) error {
	tx := db.Begin()
	if tx.Error != nil {
		return apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	conversation, err := s.loadForParticipant(tx, conversationID, actorID)
	if err != nil {
		return err
	}
	if conversation.IsDirect() {
		return apperrors.ErrDirectConversationImmutable
	}
	if !isUUID(targetUserID) {
		return apperrors.ErrParticipantNotFound
	}
	if err := s.chatRepo.RemoveParticipant(tx, conversationID, targetUserID); err != nil {
		return handleChatError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return apperrors.InternalError(err)
	}

	logger.CtxInfo(ctxOf(db), "participant removed",
		"conversation_id", conversationID,
		"actor_id", actorID,
		"target_user_id", targetUserID,
	)

	event := dto.RealtimeEvent{
		Type:           dto.EventParticipantsChanged,
		ConversationID: conversationID,
		Payload:        map[string]string{"removed_user_id": targetUserID},
		OccurredAt:     nowFunc(),
	}
	s.publisher.PushToConversation(conversationID, event)
	s.publisher.PushToUser(targetUserID, event)
	return nil
}

func (s *conversationService) RenameConversation(db *gorm.DB, actorID, conversationID, name string) (*dto.ConversationResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.InvalidInput("chat", "name must not be empty")
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	conversation, err := s.loadForParticipant(tx, conversationID, actorID)
	if err != nil {
		return nil, err
	}
	if conversation.IsDirect() {
		return nil, apperrors.ErrDirectConversationImmutable
	}

	if err := s.chatRepo.UpdateConversationName(tx, conversationID, &name); err != nil {
		return nil, handleChatError(err)
	}
	conversation.Name = &name

	response, err := s.buildConversationResponse(tx, conversation)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	s.publisher.PushToConversation(conversationID, dto.RealtimeEvent{
		Type:           dto.EventConversationUpdated,
		ConversationID: conversationID,
		Payload:        response,
		OccurredAt:     nowFunc(),
	})
	return response, nil
}

// ParticipantIDs - текущий состав беседы (для рассылки событий)
func (s *conversationService) ParticipantIDs(db *gorm.DB, conversationID string) ([]string, error) {
	participants, err := s.chatRepo.FindParticipantsByConversation(db, conversationID)
	if err != nil {
		return nil, handleChatError(err)
	}
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	return ids, nil
}

// ---------------- Helpers ----------------

// loadForParticipant: NotFound если беседы нет, доступ запрещен если пользователь не участник
func (s *conversationService) loadForParticipant(db *gorm.DB, conversationID, userID string) (*chat.Conversation, error) {
	if !isUUID(conversationID) {
		return nil, apperrors.ErrConversationNotFound
	}
	conversation, err := s.chatRepo.FindConversationByID(db, conversationID)
	if err != nil {
		return nil, handleChatError(err)
	}

	ok, err := s.chatRepo.IsUserInConversation(db, conversationID, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !ok {
		return nil, apperrors.ErrConversationAccessDenied
	}
	return conversation, nil
}

func (s *conversationService) ensureUsersExist(db *gorm.DB, userIDs []string) error {
	for _, id := range userIDs {
		if !isUUID(id) {
			return apperrors.NotFound("user", fmt.Sprintf("user %s not found", id))
		}
	}
	count, err := s.userRepo.CountExisting(db, userIDs)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if count != int64(len(userIDs)) {
		return apperrors.NotFound("user", "one or more participants do not exist")
	}
	return nil
}

func (s *conversationService) buildConversationResponse(db *gorm.DB, conversation *chat.Conversation) (*dto.ConversationResponse, error) {
	participants, err := s.chatRepo.FindParticipantsByConversation(db, conversation.ID)
	if err != nil {
		return nil, handleChatError(err)
	}

	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	names := s.users.DisplayNames(db, ids)

	response := &dto.ConversationResponse{
		ID:            conversation.ID,
		Type:          conversation.Type,
		GroupID:       conversation.GroupID,
		Name:          conversation.Name,
		CreatedAt:     conversation.CreatedAt,
		LastMessageAt: conversation.LastMessageAt,
		Participants:  make([]*dto.ParticipantResponse, 0, len(participants)),
	}
	for _, p := range participants {
		response.Participants = append(response.Participants, &dto.ParticipantResponse{
			UserID:      p.UserID,
			DisplayName: names[p.UserID],
			JoinedAt:    p.JoinedAt,
			LastReadAt:  p.LastReadAt,
		})
	}
	return response, nil
}
