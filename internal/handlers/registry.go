package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	NotificationHandler *NotificationHandler
	ChatHandler         *ChatHandler
	HealthHandler       *HealthHandler
}
