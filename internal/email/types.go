package email

// Email - письмо, готовое к отправке
type Email struct {
	From     string
	FromName string
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// TemplateData представляет данные для шаблонов писем
type TemplateData map[string]interface{}

// Sender - транспорт писем (SMTP или лог)
type Sender interface {
	Send(email *Email) error
}
