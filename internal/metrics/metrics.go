package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Созданные уведомления по категориям
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of notifications persisted",
		},
		[]string{"category"},
	)

	// Уведомления, отброшенные настройками пользователя
	NotificationsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_suppressed_total",
			Help: "Total number of notifications suppressed by user preferences",
		},
		[]string{"category", "channel"},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of chat messages appended",
		},
		[]string{"conversation_type"},
	)

	// Доставка realtime событий: sink = websocket | amqp, status = delivered | failed
	RealtimeDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_deliveries_total",
			Help: "Realtime events handed to sinks",
		},
		[]string{"sink", "status"},
	)

	// События, отброшенные из-за переполненной очереди
	RealtimeDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_dropped_total",
			Help: "Realtime events dropped because the dispatch queue was full",
		},
		[]string{"event_type"},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_emails_total",
			Help: "Notification emails by outcome",
		},
		[]string{"status"}, // sent, failed, dropped
	)

	RetentionDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_retention_deleted_total",
			Help: "Notifications removed by the retention sweep",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
