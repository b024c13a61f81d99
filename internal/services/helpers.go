package services

import (
	"errors"

	"internship_backend/internal/config"
	"internship_backend/internal/repositories"
	"internship_backend/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// isUUID - невалидный id трактуется как "не найдено", а не как ошибка БД
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Paging - границы страниц для всех списков; нулевые поля берутся из config
type Paging struct {
	DefaultPageSize int
	MaxPageSize     int
}

func (p Paging) withDefaults() Paging {
	if p.MaxPageSize <= 0 {
		p.MaxPageSize = config.MaxPageSize
	}
	if p.DefaultPageSize <= 0 {
		p.DefaultPageSize = config.DefaultPageSize
	}
	if p.DefaultPageSize > p.MaxPageSize {
		p.DefaultPageSize = p.MaxPageSize
	}
	return p
}

// normalize: page >= 1, размер страницы по умолчанию и не больше максимума
func (p Paging) normalize(page, pageSize int) (int, int) {
	p = p.withDefaults()
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = p.DefaultPageSize
	}
	if pageSize > p.MaxPageSize {
		pageSize = p.MaxPageSize
	}
	return page, pageSize
}

func calculateTotalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

func removeDuplicates(slice []string) []string {
	keys := make(map[string]bool, len(slice))
	result := make([]string, 0, len(slice))
	for _, item := range slice {
		if !keys[item] {
			keys[item] = true
			result = append(result, item)
		}
	}
	return result
}

func handleNotificationError(err error) error {
	if errors.Is(err, repositories.ErrNotificationNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotificationNotFound
	}
	if errors.Is(err, repositories.ErrUserNotFound) {
		return apperrors.ErrRecipientNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.ErrConflict(err, "notification", "Notification already exists")
	}
	return apperrors.InternalError(err)
}

func handleChatError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrConversationNotFound):
		return apperrors.ErrConversationNotFound
	case errors.Is(err, repositories.ErrMessageNotFound):
		return apperrors.ErrMessageNotFound
	case errors.Is(err, repositories.ErrParticipantNotFound):
		return apperrors.ErrParticipantNotFound
	case errors.Is(err, repositories.ErrUserNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound(err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.ErrConflict(err, "chat", "Conversation state changed concurrently")
	}
	return apperrors.InternalError(err)
}
