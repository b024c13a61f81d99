package validator

import (
	"internship_backend/internal/logger"
	"internship_backend/internal/models"
	"internship_backend/internal/models/chat"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// registerCustomRules регистрирует кастомные теги в экземпляре валидатора.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// без правил приложение запускать нельзя
			logger.Fatal("failed to register custom validation tag", "tag", tag, "error", err)
		}
	}

	mustRegister("is-user-role", validateUserRole)
	mustRegister("notification-category", validateNotificationCategory)
	mustRegister("conversation-type", validateConversationType)
	mustRegister("message-type", validateMessageType)
	mustRegister("uuid-list", validateUUIDList)
}

// --- Функции валидации ---
// Пустые значения пропускаются: для них есть 'required'.

func validateUserRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.UserRole(value) {
	case models.UserRoleStudent, models.UserRoleCompany, models.UserRoleAdmin:
		return true
	default:
		return false
	}
}

func validateNotificationCategory(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.NotificationCategory(value).IsValid()
}

func validateConversationType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch chat.ConversationType(value) {
	case chat.ConversationDirect, chat.ConversationGroup:
		return true
	default:
		return false
	}
}

func validateMessageType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return chat.MessageType(value).IsValid()
}

// validateUUIDList - каждый элемент []string должен быть UUID
func validateUUIDList(fl validator.FieldLevel) bool {
	ids, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}
