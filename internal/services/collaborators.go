package services

import (
	"context"
	"time"

	"internship_backend/internal/models"
	"internship_backend/internal/services/dto"

	"gorm.io/gorm"
)

// DeletedUserName - подпись для отправителя, чей аккаунт удален
const DeletedUserName = "Deleted user"

// RealtimePublisher - асинхронная доставка событий клиентам.
// Вызовы не блокируются и не возвращают ошибок: сбои только логируются.
type RealtimePublisher interface {
	PushToUser(userID string, event dto.RealtimeEvent)
	PushToConversation(conversationID string, event dto.RealtimeEvent)
}

// UserDirectory - чтение пользователей из сервиса аккаунтов
type UserDirectory interface {
	Exists(db *gorm.DB, userID string) (bool, error)
	// DisplayName возвращает DeletedUserName для удаленных и неизвестных
	DisplayName(db *gorm.DB, userID string) string
	DisplayNames(db *gorm.DB, userIDs []string) map[string]string
	FindByID(db *gorm.DB, userID string) (*models.User, error)
}

// UnreadCache - кэш счетчика непрочитанных уведомлений (redis или noop)
type UnreadCache interface {
	Get(ctx context.Context, userID string) (int64, bool)
	Set(ctx context.Context, userID string, count int64)
	Invalidate(ctx context.Context, userID string)
}

// NotificationMailer - best-effort email канал
type NotificationMailer interface {
	EnqueueNotification(to, recipientName string, notification *dto.NotificationResponse)
}

type noopPublisher struct{}

func (noopPublisher) PushToUser(string, dto.RealtimeEvent)         {}
func (noopPublisher) PushToConversation(string, dto.RealtimeEvent) {}

// NoopPublisher - для запуска без realtime (cli, тесты)
func NoopPublisher() RealtimePublisher { return noopPublisher{} }

type noopUnreadCache struct{}

func (noopUnreadCache) Get(context.Context, string) (int64, bool) { return 0, false }
func (noopUnreadCache) Set(context.Context, string, int64)        {}
func (noopUnreadCache) Invalidate(context.Context, string)        {}

func NoopUnreadCache() UnreadCache { return noopUnreadCache{} }

type noopMailer struct{}

func (noopMailer) EnqueueNotification(string, string, *dto.NotificationResponse) {}

func NoopMailer() NotificationMailer { return noopMailer{} }

// nowFunc - единая точка времени сервисов (UTC, точность Postgres)
var nowFunc = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// ctxOf достает request context из gorm-хэндла (nil-safe для логгера)
func ctxOf(db *gorm.DB) context.Context {
	if db != nil && db.Statement != nil && db.Statement.Context != nil {
		return db.Statement.Context
	}
	return context.Background()
}
