package email

import (
	"internship_backend/internal/logger"

	"gopkg.in/gomail.v2"
)

// SMTPSender отправляет письма через gomail
type SMTPSender struct {
	dialer *gomail.Dialer
}

func NewSMTPSender(host string, port int, user, password string) *SMTPSender {
	return &SMTPSender{dialer: gomail.NewDialer(host, port, user, password)}
}

func (s *SMTPSender) Send(e *Email) error {
	m := gomail.NewMessage()
	if e.FromName != "" {
		m.SetAddressHeader("From", e.From, e.FromName)
	} else {
		m.SetHeader("From", e.From)
	}
	m.SetHeader("To", e.To...)
	m.SetHeader("Subject", e.Subject)
	if e.Body != "" {
		m.SetBody("text/plain", e.Body)
		if e.HTMLBody != "" {
			m.AddAlternative("text/html", e.HTMLBody)
		}
	} else {
		m.SetBody("text/html", e.HTMLBody)
	}
	return s.dialer.DialAndSend(m)
}

// LogSender - для локальной разработки без SMTP: письма только логируются
type LogSender struct{}

func (LogSender) Send(e *Email) error {
	logger.Debug("Email (not sent, SMTP disabled)", "to", e.To, "subject", e.Subject)
	return nil
}
