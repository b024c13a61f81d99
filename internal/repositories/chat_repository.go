package repositories

import (
	"errors"
	"time"

	"internship_backend/internal/models/chat"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrParticipantNotFound  = errors.New("participant not found")
)

type ChatRepository interface {
	// Conversation operations
	CreateConversation(db *gorm.DB, conversation *chat.Conversation) error
	CreateDirectConversation(db *gorm.DB, conversation *chat.Conversation) (bool, error)
	FindConversationByID(db *gorm.DB, id string) (*chat.Conversation, error)
	FindConversationForUpdate(db *gorm.DB, id string) (*chat.Conversation, error)
	FindConversationByDirectKey(db *gorm.DB, directKey string) (*chat.Conversation, error)
	FindUserConversations(db *gorm.DB, userID string, page, pageSize int) ([]chat.Conversation, int64, error)
	UpdateConversationName(db *gorm.DB, id string, name *string) error
	TouchLastMessage(db *gorm.DB, id string, at time.Time) error

	// Participant operations
	AddParticipants(db *gorm.DB, participants []*chat.ConversationParticipant) (int64, error)
	FindParticipant(db *gorm.DB, conversationID, userID string) (*chat.ConversationParticipant, error)
	FindParticipantsByConversation(db *gorm.DB, conversationID string) ([]chat.ConversationParticipant, error)
	RemoveParticipant(db *gorm.DB, conversationID, userID string) error
	IsUserInConversation(db *gorm.DB, conversationID, userID string) (bool, error)
	UpdateLastReadAt(db *gorm.DB, conversationID, userID string, at time.Time) error

	// Message operations
	CreateMessage(db *gorm.DB, message *chat.Message) error
	FindMessageByID(db *gorm.DB, id string) (*chat.Message, error)
	UpdateMessageText(db *gorm.DB, message *chat.Message) error
	FindMessagesByConversation(db *gorm.DB, conversationID string, page, pageSize int) ([]chat.Message, int64, error)
	FindLastMessages(db *gorm.DB, conversationIDs []string) (map[string]chat.Message, error)

	// Watermark-based unread counters
	CountUnread(db *gorm.DB, conversationID, userID string, lastReadAt *time.Time) (int64, error)
	CountUnreadByConversation(db *gorm.DB, userID string) (map[string]int64, error)
}

type ChatRepositoryImpl struct{}

func NewChatRepository() ChatRepository {
	return &ChatRepositoryImpl{}
}

// Conversation operations

func (r *ChatRepositoryImpl) CreateConversation(db *gorm.DB, conversation *chat.Conversation) error {
	return db.Omit(clause.Associations).Create(conversation).Error
}

// CreateDirectConversation вставляет личную беседу, если по direct_key ее еще нет.
// false означает, что беседа уже существует (в том числе создана параллельно).
func (r *ChatRepositoryImpl) CreateDirectConversation(db *gorm.DB, conversation *chat.Conversation) (bool, error) {
	result := db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "direct_key"}},
		DoNothing: true,
	}).Create(conversation)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *ChatRepositoryImpl) FindConversationByID(db *gorm.DB, id string) (*chat.Conversation, error) {
	var conversation chat.Conversation
	if err := db.First(&conversation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conversation, nil
}

// FindConversationForUpdate блокирует строку беседы до конца транзакции (в sqlite блокировка не нужна и пропускается)
func (r *ChatRepositoryImpl) FindConversationForUpdate(db *gorm.DB, id string) (*chat.Conversation, error) {
	return r.FindConversationByID(db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *ChatRepositoryImpl) FindConversationByDirectKey(db *gorm.DB, directKey string) (*chat.Conversation, error) {
	var conversation chat.Conversation
	if err := db.First(&conversation, "direct_key = ?", directKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conversation, nil
}

// FindUserConversations - беседы пользователя, свежие сверху, без сообщений в конце
func (r *ChatRepositoryImpl) FindUserConversations(db *gorm.DB, userID string, page, pageSize int) ([]chat.Conversation, int64, error) {
	var conversations []chat.Conversation

	member := func(tx *gorm.DB) *gorm.DB {
		return tx.Joins("JOIN conversation_participants ON conversation_participants.conversation_id = conversations.id").
			Where("conversation_participants.user_id = ?", userID)
	}

	var total int64
	if err := db.Model(&chat.Conversation{}).Scopes(member).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Scopes(member).
		Order("CASE WHEN conversations.last_message_at IS NULL THEN 1 ELSE 0 END").
		Order("conversations.last_message_at DESC").
		Order("conversations.created_at DESC").
		Order("conversations.id").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&conversations).Error
	return conversations, total, err
}

func (r *ChatRepositoryImpl) UpdateConversationName(db *gorm.DB, id string, name *string) error {
	result := db.Model(&chat.Conversation{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (r *ChatRepositoryImpl) TouchLastMessage(db *gorm.DB, id string, at time.Time) error {
	return db.Model(&chat.Conversation{}).Where("id = ?", id).Update("last_message_at", at).Error
}

// Participant operations

// AddParticipants пропускает тех, кто уже состоит в беседе; возвращает число добавленных
func (r *ChatRepositoryImpl) AddParticipants(db *gorm.DB, participants []*chat.ConversationParticipant) (int64, error) {
	if len(participants) == 0 {
		return 0, nil
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&participants)
	return result.RowsAffected, result.Error
}

func (r *ChatRepositoryImpl) FindParticipant(db *gorm.DB, conversationID, userID string) (*chat.ConversationParticipant, error) {
	var participant chat.ConversationParticipant
	err := db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return &participant, nil
}

func (r *ChatRepositoryImpl) FindParticipantsByConversation(db *gorm.DB, conversationID string) ([]chat.ConversationParticipant, error) {
	var participants []chat.ConversationParticipant
	err := db.Where("conversation_id = ?", conversationID).Order("joined_at ASC").Find(&participants).Error
	return participants, err
}

// RemoveParticipant удаляет только строку участия; сообщения остаются
func (r *ChatRepositoryImpl) RemoveParticipant(db *gorm.DB, conversationID, userID string) error {
	result := db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&chat.ConversationParticipant{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

func (r *ChatRepositoryImpl) IsUserInConversation(db *gorm.DB, conversationID, userID string) (bool, error) {
	var count int64
	err := db.Model(&chat.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *ChatRepositoryImpl) UpdateLastReadAt(db *gorm.DB, conversationID, userID string, at time.Time) error {
	result := db.Model(&chat.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("last_read_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// Message operations

// CreateMessage добавляет сообщение и сдвигает last_message_at беседы.
// Вызывать внутри транзакции.
func (r *ChatRepositoryImpl) CreateMessage(db *gorm.DB, message *chat.Message) error {
	if err := db.Create(message).Error; err != nil {
		return err
	}
	return r.TouchLastMessage(db, message.ConversationID, message.SentAt)
}

func (r *ChatRepositoryImpl) FindMessageByID(db *gorm.DB, id string) (*chat.Message, error) {
	var message chat.Message
	if err := db.First(&message, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// UpdateMessageText меняет только текст и признаки редактирования; sent_at не трогается
func (r *ChatRepositoryImpl) UpdateMessageText(db *gorm.DB, message *chat.Message) error {
	return db.Model(&chat.Message{}).Where("id = ?", message.ID).Updates(map[string]interface{}{
		"text":      message.Text,
		"is_edited": message.IsEdited,
		"edited_at": message.EditedAt,
	}).Error
}

func (r *ChatRepositoryImpl) FindMessagesByConversation(db *gorm.DB, conversationID string, page, pageSize int) ([]chat.Message, int64, error) {
	var messages []chat.Message

	var total int64
	if err := db.Model(&chat.Message{}).Where("conversation_id = ?", conversationID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Where("conversation_id = ?", conversationID).
		Order("sent_at DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&messages).Error
	return messages, total, err
}

// FindLastMessages возвращает последнее сообщение каждой из бесед.
// sent_at уникален в пределах беседы, поэтому на беседу приходится ровно одна строка.
func (r *ChatRepositoryImpl) FindLastMessages(db *gorm.DB, conversationIDs []string) (map[string]chat.Message, error) {
	result := make(map[string]chat.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return result, nil
	}

	latest := db.Table("messages AS m2").
		Select("MAX(m2.sent_at)").
		Where("m2.conversation_id = messages.conversation_id")

	var messages []chat.Message
	err := db.Where("conversation_id IN ?", conversationIDs).
		Where("sent_at = (?)", latest).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for _, m := range messages {
		result[m.ConversationID] = m
	}
	return result, nil
}

// CountUnread считает сообщения других участников строго после last_read_at.
// nil watermark - пользователь еще ничего не читал, считаются все.
func (r *ChatRepositoryImpl) CountUnread(db *gorm.DB, conversationID, userID string, lastReadAt *time.Time) (int64, error) {
	query := db.Model(&chat.Message{}).
		Where("conversation_id = ? AND sender_id <> ?", conversationID, userID)
	if lastReadAt != nil {
		query = query.Where("sent_at > ?", *lastReadAt)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

// CountUnreadByConversation - то же, что CountUnread, одним запросом по всем беседам пользователя
func (r *ChatRepositoryImpl) CountUnreadByConversation(db *gorm.DB, userID string) (map[string]int64, error) {
	var rows []struct {
		ConversationID string
		Unread         int64
	}
	err := db.Table("conversation_participants AS p").
		Select("p.conversation_id AS conversation_id, COUNT(m.id) AS unread").
		Joins("JOIN messages AS m ON m.conversation_id = p.conversation_id AND m.sender_id <> p.user_id AND (p.last_read_at IS NULL OR m.sent_at > p.last_read_at)").
		Where("p.user_id = ?", userID).
		Group("p.conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.ConversationID] = row.Unread
	}
	return counts, nil
}
