package workers

import (
	"context"
	"time"

	"internship_backend/internal/logger"
	"internship_backend/internal/services"

	"gorm.io/gorm"
)

// NotificationRetentionWorker периодически удаляет уведомления старше retentionDays
type NotificationRetentionWorker struct {
	db            *gorm.DB
	notifications services.NotificationService
	retentionDays int
	interval      time.Duration
}

func NewNotificationRetentionWorker(db *gorm.DB, notifications services.NotificationService, retentionDays int, interval time.Duration) *NotificationRetentionWorker {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &NotificationRetentionWorker{
		db:            db,
		notifications: notifications,
		retentionDays: retentionDays,
		interval:      interval,
	}
}

// Start запускает фоновую очистку; retentionDays <= 0 отключает ее
func (w *NotificationRetentionWorker) Start(ctx context.Context) {
	if w.retentionDays <= 0 {
		logger.Info("Notification retention disabled")
		return
	}
	go w.run(ctx)
}

func (w *NotificationRetentionWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification retention worker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep - один проход очистки
func (w *NotificationRetentionWorker) Sweep(ctx context.Context) int64 {
	deleted, err := w.notifications.CleanOldNotifications(w.db.WithContext(ctx), w.retentionDays)
	if err != nil {
		logger.WorkerLog("notification_retention", "sweep", err, "retention_days", w.retentionDays)
		return 0
	}
	if deleted > 0 {
		logger.WorkerLog("notification_retention", "sweep", nil, "deleted", deleted)
	}
	return deleted
}
