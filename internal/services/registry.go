package services

import (
	"internship_backend/internal/repositories"
)

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	Users               UserDirectory
	PreferenceService   PreferenceService
	NotificationService NotificationService
	ConversationService ConversationService
	MessageService      MessageService
	UnreadService       UnreadService
}

// Collaborators - внешние зависимости ядра; nil поля заменяются noop-реализациями
type Collaborators struct {
	Publisher   RealtimePublisher
	UnreadCache UnreadCache
	Mailer      NotificationMailer
	Paging      Paging
}

func NewServiceContainer(deps Collaborators) *ServiceContainer {
	userRepo := repositories.NewUserRepository()
	chatRepo := repositories.NewChatRepository()

	users := NewUserDirectory(userRepo)
	prefs := NewPreferenceService(repositories.NewPreferenceRepository())
	notifications := NewNotificationService(
		repositories.NewNotificationRepository(),
		prefs,
		users,
		deps.Publisher,
		deps.UnreadCache,
		deps.Mailer,
		deps.Paging,
	)

	return &ServiceContainer{
		Users:               users,
		PreferenceService:   prefs,
		NotificationService: notifications,
		ConversationService: NewConversationService(chatRepo, userRepo, users, deps.Publisher),
		MessageService:      NewMessageService(chatRepo, users, notifications, deps.Publisher, deps.Paging),
		UnreadService:       NewUnreadService(chatRepo, users, deps.Publisher, deps.Paging),
	}
}
