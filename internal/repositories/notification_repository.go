package repositories

import (
	"errors"
	"time"

	"internship_backend/internal/models"

	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	CreateNotification(db *gorm.DB, notification *models.Notification) error
	FindNotificationByID(db *gorm.DB, id string) (*models.Notification, error)
	FindNotificationsByIDs(db *gorm.DB, ids []string) ([]models.Notification, error)
	FindUserNotifications(db *gorm.DB, userID string, criteria NotificationCriteria) ([]models.Notification, int64, error)

	MarkAsRead(db *gorm.DB, notificationID string, readAt time.Time) error
	MarkMultipleAsRead(db *gorm.DB, notificationIDs []string, readAt time.Time) (int64, error)
	MarkAllAsRead(db *gorm.DB, userID string, readAt time.Time) (int64, error)

	DeleteNotification(db *gorm.DB, id string) error
	DeleteUserNotifications(db *gorm.DB, userID string) (int64, error)
	DeleteOlderThan(db *gorm.DB, cutoff time.Time) (int64, error)

	GetUnreadCount(db *gorm.DB, userID string) (int64, error)
	GetCategoryCounts(db *gorm.DB, userID string) ([]CategoryCount, error)
}

type NotificationRepositoryImpl struct{}

// NotificationCriteria - фильтры списка уведомлений пользователя
type NotificationCriteria struct {
	UnreadOnly bool
	Category   models.NotificationCategory
	Page       int
	PageSize   int
}

// CategoryCount - строка агрегата по категории
type CategoryCount struct {
	Category models.NotificationCategory
	Total    int64
	Unread   int64
}

func NewNotificationRepository() NotificationRepository {
	return &NotificationRepositoryImpl{}
}

func (r *NotificationRepositoryImpl) CreateNotification(db *gorm.DB, notification *models.Notification) error {
	return db.Create(notification).Error
}

func (r *NotificationRepositoryImpl) FindNotificationByID(db *gorm.DB, id string) (*models.Notification, error) {
	var notification models.Notification
	if err := db.First(&notification, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &notification, nil
}

func (r *NotificationRepositoryImpl) FindNotificationsByIDs(db *gorm.DB, ids []string) ([]models.Notification, error) {
	var notifications []models.Notification
	if len(ids) == 0 {
		return notifications, nil
	}
	err := db.Where("id IN ?", ids).Find(&notifications).Error
	return notifications, err
}

func (r *NotificationRepositoryImpl) FindUserNotifications(db *gorm.DB, userID string, criteria NotificationCriteria) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	filter := func(tx *gorm.DB) *gorm.DB {
		tx = tx.Where("user_id = ?", userID)
		if criteria.UnreadOnly {
			tx = tx.Where("is_read = ?", false)
		}
		if criteria.Category != "" {
			tx = tx.Where("category = ?", criteria.Category)
		}
		return tx
	}

	var total int64
	if err := db.Model(&models.Notification{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (criteria.Page - 1) * criteria.PageSize
	err := db.Scopes(filter).
		Order("created_at DESC").Order("id DESC").
		Limit(criteria.PageSize).Offset(offset).
		Find(&notifications).Error

	return notifications, total, err
}

func (r *NotificationRepositoryImpl) MarkAsRead(db *gorm.DB, notificationID string, readAt time.Time) error {
	// условие is_read = false сохраняет исходный read_at при повторном вызове
	return db.Model(&models.Notification{}).
		Where("id = ? AND is_read = ?", notificationID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": readAt,
		}).Error
}

func (r *NotificationRepositoryImpl) MarkMultipleAsRead(db *gorm.DB, notificationIDs []string, readAt time.Time) (int64, error) {
	if len(notificationIDs) == 0 {
		return 0, nil
	}
	result := db.Model(&models.Notification{}).
		Where("id IN ? AND is_read = ?", notificationIDs, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": readAt,
		})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) MarkAllAsRead(db *gorm.DB, userID string, readAt time.Time) (int64, error) {
	result := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": readAt,
		})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) DeleteNotification(db *gorm.DB, id string) error {
	result := db.Where("id = ?", id).Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepositoryImpl) DeleteUserNotifications(db *gorm.DB, userID string) (int64, error) {
	result := db.Where("user_id = ?", userID).Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) DeleteOlderThan(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("created_at < ?", cutoff).Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) GetUnreadCount(db *gorm.DB, userID string) (int64, error) {
	var count int64
	err := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *NotificationRepositoryImpl) GetCategoryCounts(db *gorm.DB, userID string) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := db.Model(&models.Notification{}).
		Select("category, COUNT(*) AS total, SUM(CASE WHEN is_read = ? THEN 1 ELSE 0 END) AS unread", false).
		Where("user_id = ?", userID).
		Group("category").
		Scan(&rows).Error
	return rows, err
}
