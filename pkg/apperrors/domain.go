package apperrors

import (
	"net/http"
)

/*
Фабрики и предопределенные ошибки для уведомлений и чатов.
*/

// ErrNotFound - оборачивает ошибку репозитория (gorm.ErrRecordNotFound и т.п.) в 404
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrConflict - общая фабрика для конфликтов (409)
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// NotFound - 404 с доменом и сообщением
func NotFound(domain, message string) *AppError {
	return New(CodeNotFound, domain, message, http.StatusNotFound)
}

// InvalidInput - нарушено бизнес-правило входных данных (400)
func InvalidInput(domain, message string) *AppError {
	return New(CodeValidationFailed, domain, message, http.StatusBadRequest)
}

// AccessDenied - пользователь аутентифицирован, но не владеет ресурсом (403)
func AccessDenied(domain, message string) *AppError {
	return New(CodeForbidden, domain, message, http.StatusForbidden)
}

// --- Notifications ---

var ErrNotificationNotFound = NotFound("notification", "Notification not found")

var ErrNotificationAccessDenied = AccessDenied("notification", "Notification belongs to another user")

var ErrUnknownCategory = InvalidInput("notification", "Unknown notification category")

var ErrRecipientNotFound = NotFound("notification", "Recipient not found")

// --- Chat ---

var ErrConversationNotFound = NotFound("chat", "Conversation not found")

// ErrConversationAccessDenied - пользователь не является участником беседы
var ErrConversationAccessDenied = AccessDenied("chat", "Access to conversation denied")

var ErrMessageNotFound = NotFound("chat", "Message not found")

var ErrCannotEditMessage = AccessDenied("chat", "Only the author can edit this message")

var ErrParticipantNotFound = NotFound("chat", "Participant not found in this conversation")

var ErrDirectConversationImmutable = InvalidInput("chat", "Direct conversations cannot be renamed or change participants")

var ErrInsufficientPermissions = NewForbiddenError("Insufficient permissions")
