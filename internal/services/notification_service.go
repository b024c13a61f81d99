package services

import (
	"encoding/json"
	"fmt"
	"time"

	"internship_backend/internal/logger"
	"internship_backend/internal/metrics"
	"internship_backend/internal/models"
	"internship_backend/internal/repositories"
	"internship_backend/internal/services/dto"
	"internship_backend/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationService interface {
	// Notification operations
	CreateNotification(db *gorm.DB, req *dto.CreateNotificationRequest) (*dto.CreateNotificationResult, error)
	GetNotification(db *gorm.DB, userID, notificationID string) (*dto.NotificationResponse, error)
	GetUserNotifications(db *gorm.DB, userID string, criteria dto.NotificationCriteria) (*dto.NotificationListResponse, error)
	MarkAsRead(db *gorm.DB, userID, notificationID string) error
	MarkMultipleAsRead(db *gorm.DB, userID string, notificationIDs []string) (*dto.MarkMultipleAsReadResponse, error)
	MarkAllAsRead(db *gorm.DB, userID string) (int64, error)
	DeleteNotification(db *gorm.DB, userID, notificationID string) error
	DeleteUserNotifications(db *gorm.DB, userID string) (int64, error)
	CleanOldNotifications(db *gorm.DB, days int) (int64, error)

	// Notification stats
	GetUserNotificationStats(db *gorm.DB, userID string) (*dto.NotificationStatsResponse, error)
	GetUnreadCount(db *gorm.DB, userID string) (int64, error)
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	preferences      PreferenceService
	users            UserDirectory
	publisher        RealtimePublisher
	unreadCache      UnreadCache
	mailer           NotificationMailer
	paging           Paging
}

func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	preferences PreferenceService,
	users UserDirectory,
	publisher RealtimePublisher,
	unreadCache UnreadCache,
	mailer NotificationMailer,
	paging Paging,
) NotificationService {
	if publisher == nil {
		publisher = NoopPublisher()
	}
	if unreadCache == nil {
		unreadCache = NoopUnreadCache()
	}
	if mailer == nil {
		mailer = NoopMailer()
	}
	return &notificationService{
		notificationRepo: notificationRepo,
		preferences:      preferences,
		users:            users,
		publisher:        publisher,
		unreadCache:      unreadCache,
		mailer:           mailer,
		paging:           paging.withDefaults(),
	}
}

// ---------------- Notification operations ----------------

// CreateNotification: получатель -> категория -> настройки (лениво) -> фильтр -> запись -> push.
// Подавленное уведомление - успех без записи.
func (s *notificationService) CreateNotification(db *gorm.DB, req *dto.CreateNotificationRequest) (*dto.CreateNotificationResult, error) {
	log := logger.FromContext(ctxOf(db))

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	exists, err := s.users.Exists(tx, req.UserID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !exists {
		return nil, apperrors.ErrRecipientNotFound
	}

	if !req.Category.IsValid() {
		return nil, apperrors.ErrUnknownCategory
	}

	prefs, err := s.preferences.GetOrCreateDefault(tx, req.UserID)
	if err != nil {
		return nil, err
	}

	if Decide(prefs, req.Category) == Suppress {
		// настройки по умолчанию могли быть только что созданы
		if err := tx.Commit().Error; err != nil {
			return nil, apperrors.InternalError(err)
		}
		metrics.NotificationsSuppressed.WithLabelValues(string(req.Category), string(ChannelFor(req.Category))).Inc()
		log.Debug("notification suppressed by preferences",
			"recipient_id", req.UserID,
			"category", req.Category,
		)
		return &dto.CreateNotificationResult{Suppressed: true}, nil
	}

	var refs datatypes.JSON
	if len(req.RelatedRefs) > 0 {
		raw, err := json.Marshal(req.RelatedRefs)
		if err != nil {
			return nil, apperrors.InvalidInput("notification", fmt.Sprintf("related_refs is not serializable: %v", err))
		}
		refs = datatypes.JSON(raw)
	}

	notification := &models.Notification{
		BaseModel:   models.BaseModel{CreatedAt: nowFunc()},
		UserID:      req.UserID,
		Category:    req.Category,
		Title:       req.Title,
		Body:        req.Body,
		RelatedRefs: refs,
		ActionURL:   req.ActionURL,
		IsRead:      false,
	}
	if err := s.notificationRepo.CreateNotification(tx, notification); err != nil {
		return nil, handleNotificationError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	response := s.buildNotificationResponse(notification)
	metrics.NotificationsCreated.WithLabelValues(string(req.Category)).Inc()
	s.unreadCache.Invalidate(ctxOf(db), req.UserID)

	s.publisher.PushToUser(req.UserID, dto.RealtimeEvent{
		Type:       dto.EventNotificationCreated,
		Payload:    response,
		OccurredAt: notification.CreatedAt,
	})

	if prefs.EmailEnabled {
		s.enqueueEmail(db, response)
	}

	log.Info("notification created",
		"notification_id", notification.ID,
		"recipient_id", req.UserID,
		"category", req.Category,
	)
	return &dto.CreateNotificationResult{Notification: response}, nil
}

func (s *notificationService) enqueueEmail(db *gorm.DB, notification *dto.NotificationResponse) {
	user, err := s.users.FindByID(db, notification.UserID)
	if err != nil {
		logger.CtxWithError(ctxOf(db), "failed to load recipient for email", err, "recipient_id", notification.UserID)
		return
	}
	s.mailer.EnqueueNotification(user.Email, user.DisplayName(), notification)
}

func (s *notificationService) GetNotification(db *gorm.DB, userID, notificationID string) (*dto.NotificationResponse, error) {
	if !isUUID(notificationID) {
		return nil, apperrors.ErrNotificationNotFound
	}
	notification, err := s.notificationRepo.FindNotificationByID(db, notificationID)
	if err != nil {
		return nil, handleNotificationError(err)
	}
	if notification.UserID != userID {
		return nil, apperrors.ErrNotificationAccessDenied
	}
	return s.buildNotificationResponse(notification), nil
}

func (s *notificationService) GetUserNotifications(db *gorm.DB, userID string, criteria dto.NotificationCriteria) (*dto.NotificationListResponse, error) {
	criteria.Page, criteria.PageSize = s.paging.normalize(criteria.Page, criteria.PageSize)
	if criteria.Category != "" && !criteria.Category.IsValid() {
		return nil, apperrors.ErrUnknownCategory
	}

	notifications, total, err := s.notificationRepo.FindUserNotifications(db, userID, repositories.NotificationCriteria{
		UnreadOnly: criteria.UnreadOnly,
		Category:   criteria.Category,
		Page:       criteria.Page,
		PageSize:   criteria.PageSize,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	responses := make([]*dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, s.buildNotificationResponse(&notifications[i]))
	}

	return &dto.NotificationListResponse{
		Notifications: responses,
		Total:         total,
		Page:          criteria.Page,
		PageSize:      criteria.PageSize,
		TotalPages:    calculateTotalPages(total, criteria.PageSize),
	}, nil
}

// MarkAsRead идемпотентен: повторный вызов не меняет read_at
func (s *notificationService) MarkAsRead(db *gorm.DB, userID, notificationID string) error {
	if !isUUID(notificationID) {
		return apperrors.ErrNotificationNotFound
	}

	tx := db.Begin()
	if tx.Error != nil {
		return apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	notification, err := s.notificationRepo.FindNotificationByID(tx, notificationID)
	if err != nil {
		return handleNotificationError(err)
	}
	if notification.UserID != userID {
		return apperrors.ErrNotificationAccessDenied
	}
	if notification.IsRead {
		return nil
	}

	if err := s.notificationRepo.MarkAsRead(tx, notificationID, nowFunc()); err != nil {
		return apperrors.InternalError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return apperrors.InternalError(err)
	}

	s.unreadCache.Invalidate(ctxOf(db), userID)
	return nil
}

// MarkMultipleAsRead: отсутствующие id пропускаются, а любой чужой id
// отменяет всю пачку - ничего не записывается.
func (s *notificationService) MarkMultipleAsRead(db *gorm.DB, userID string, notificationIDs []string) (*dto.MarkMultipleAsReadResponse, error) {
	ids := removeDuplicates(notificationIDs)
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	found, err := s.notificationRepo.FindNotificationsByIDs(tx, valid)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	ownIDs := make([]string, 0, len(found))
	for _, n := range found {
		if n.UserID != userID {
			logger.CtxWarn(ctxOf(db), "bulk mark-read rejected: foreign notification in batch",
				"notification_id", n.ID,
				"batch_size", len(ids),
			)
			return nil, apperrors.ErrNotificationAccessDenied
		}
		ownIDs = append(ownIDs, n.ID)
	}

	updated, err := s.notificationRepo.MarkMultipleAsRead(tx, ownIDs, nowFunc())
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	if updated > 0 {
		s.unreadCache.Invalidate(ctxOf(db), userID)
	}
	return &dto.MarkMultipleAsReadResponse{
		Updated: updated,
		Skipped: len(ids) - len(found),
	}, nil
}

// MarkAllAsRead - один UPDATE по непрочитанным пользователя
func (s *notificationService) MarkAllAsRead(db *gorm.DB, userID string) (int64, error) {
	updated, err := s.notificationRepo.MarkAllAsRead(db, userID, nowFunc())
	if err != nil {
		return 0, apperrors.InternalError(err)
	}
	s.unreadCache.Invalidate(ctxOf(db), userID)
	return updated, nil
}

func (s *notificationService) DeleteNotification(db *gorm.DB, userID, notificationID string) error {
	if !isUUID(notificationID) {
		return apperrors.ErrNotificationNotFound
	}

	tx := db.Begin()
	if tx.Error != nil {
		return apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	notification, err := s.notificationRepo.FindNotificationByID(tx, notificationID)
	if err != nil {
		return handleNotificationError(err)
	}
	if notification.UserID != userID {
		return apperrors.ErrNotificationAccessDenied
	}
	if err := s.notificationRepo.DeleteNotification(tx, notificationID); err != nil {
		return handleNotificationError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return apperrors.InternalError(err)
	}

	if !notification.IsRead {
		s.unreadCache.Invalidate(ctxOf(db), userID)
	}
	return nil
}

func (s *notificationService) DeleteUserNotifications(db *gorm.DB, userID string) (int64, error) {
	deleted, err := s.notificationRepo.DeleteUserNotifications(db, userID)
	if err != nil {
		return 0, apperrors.InternalError(err)
	}
	s.unreadCache.Invalidate(ctxOf(db), userID)
	return deleted, nil
}

// CleanOldNotifications удаляет уведомления старше days дней (retention)
func (s *notificationService) CleanOldNotifications(db *gorm.DB, days int) (int64, error) {
	if days <= 0 {
		return 0, apperrors.InvalidInput("notification", "days must be positive")
	}

	cutoff := nowFunc().Add(-time.Duration(days) * 24 * time.Hour)
	deleted, err := s.notificationRepo.DeleteOlderThan(db, cutoff)
	if err != nil {
		return 0, apperrors.InternalError(err)
	}

	metrics.RetentionDeleted.Add(float64(deleted))
	logger.CtxInfo(ctxOf(db), "old notifications cleaned", "days", days, "deleted", deleted)
	return deleted, nil
}

// ---------------- Notification stats ----------------

func (s *notificationService) GetUserNotificationStats(db *gorm.DB, userID string) (*dto.NotificationStatsResponse, error) {
	rows, err := s.notificationRepo.GetCategoryCounts(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	stats := &dto.NotificationStatsResponse{
		ByCategory: make(map[models.NotificationCategory]int64, len(models.AllNotificationCategories)),
	}
	for _, c := range models.AllNotificationCategories {
		stats.ByCategory[c] = 0
	}

	for _, row := range rows {
		stats.Total += row.Total
		stats.Unread += row.Unread
		stats.ByCategory[row.Category] += row.Total

		switch row.Category {
		case models.CategoryApplication, models.CategoryAcceptance, models.CategoryRejection:
			stats.Application += row.Total
		case models.CategoryMessage:
			stats.Message += row.Total
		case models.CategoryProject, models.CategoryDeadline:
			stats.Project += row.Total
		}
	}
	stats.Read = stats.Total - stats.Unread
	return stats, nil
}

func (s *notificationService) GetUnreadCount(db *gorm.DB, userID string) (int64, error) {
	ctx := ctxOf(db)
	if count, ok := s.unreadCache.Get(ctx, userID); ok {
		return count, nil
	}

	count, err := s.notificationRepo.GetUnreadCount(db, userID)
	if err != nil {
		return 0, apperrors.InternalError(err)
	}
	s.unreadCache.Set(ctx, userID, count)
	return count, nil
}

// ---------------- Helpers ----------------

func (s *notificationService) buildNotificationResponse(n *models.Notification) *dto.NotificationResponse {
	response := &dto.NotificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		Category:  n.Category,
		Title:     n.Title,
		Body:      n.Body,
		ActionURL: n.ActionURL,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
	if len(n.RelatedRefs) > 0 {
		var refs map[string]interface{}
		if err := json.Unmarshal(n.RelatedRefs, &refs); err == nil {
			response.RelatedRefs = refs
		}
	}
	return response
}
