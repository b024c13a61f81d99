package email

import (
	"context"
	"sync"

	"internship_backend/internal/logger"
	"internship_backend/internal/metrics"
	"internship_backend/internal/services/dto"
)

// NotificationMailer - best-effort email канал уведомлений.
// Письма уходят из фоновой очереди; при переполнении письмо теряется.
type NotificationMailer struct {
	sender    Sender
	templates *TemplateManager
	from      string
	fromName  string

	queue    chan *Email
	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

func NewNotificationMailer(sender Sender, from, fromName string, queueSize int) *NotificationMailer {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &NotificationMailer{
		sender:    sender,
		templates: NewTemplateManager(),
		from:      from,
		fromName:  fromName,
		queue:     make(chan *Email, queueSize),
		done:      make(chan struct{}),
	}
}

func (m *NotificationMailer) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.done:
				return
			case e := <-m.queue:
				m.send(e)
			}
		}
	}()
}

func (m *NotificationMailer) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
	m.wg.Wait()
}

func (m *NotificationMailer) EnqueueNotification(to, recipientName string, n *dto.NotificationResponse) {
	if to == "" {
		return
	}

	data := TemplateData{
		"RecipientName": recipientName,
		"Title":         n.Title,
		"Body":          n.Body,
		"ActionURL":     "",
	}
	if n.ActionURL != nil {
		data["ActionURL"] = *n.ActionURL
	}

	html, err := m.templates.Render(NotificationTemplate, data)
	if err != nil {
		logger.Error("Failed to render notification email", "error", err, "notification_id", n.ID)
		return
	}

	e := &Email{
		From:     m.from,
		FromName: m.fromName,
		To:       []string{to},
		Subject:  n.Title,
		Body:     n.Body,
		HTMLBody: html,
	}

	select {
	case m.queue <- e:
	default:
		metrics.EmailsSent.WithLabelValues("dropped").Inc()
		logger.Warn("Email queue is full, notification email dropped", "notification_id", n.ID)
	}
}

func (m *NotificationMailer) send(e *Email) {
	if err := m.sender.Send(e); err != nil {
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		logger.WorkerLog("email", "send", err, "subject", e.Subject)
		return
	}
	metrics.EmailsSent.WithLabelValues("sent").Inc()
}
