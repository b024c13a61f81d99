package models

type UserRole string

const (
	UserRoleStudent UserRole = "student"
	UserRoleCompany UserRole = "company"
	UserRoleAdmin   UserRole = "admin"
)

// NotificationCategory - закрытый список категорий уведомлений
type NotificationCategory string

const (
	CategoryApplication NotificationCategory = "application"
	CategoryMessage     NotificationCategory = "message"
	CategoryProject     NotificationCategory = "project"
	CategoryDeadline    NotificationCategory = "deadline"
	CategoryAcceptance  NotificationCategory = "acceptance"
	CategoryRejection   NotificationCategory = "rejection"
	CategoryCertificate NotificationCategory = "certificate"
	CategorySystem      NotificationCategory = "system"
)

// AllNotificationCategories в порядке отображения
var AllNotificationCategories = []NotificationCategory{
	CategoryApplication,
	CategoryMessage,
	CategoryProject,
	CategoryDeadline,
	CategoryAcceptance,
	CategoryRejection,
	CategoryCertificate,
	CategorySystem,
}

func (c NotificationCategory) IsValid() bool {
	switch c {
	case CategoryApplication, CategoryMessage, CategoryProject, CategoryDeadline,
		CategoryAcceptance, CategoryRejection, CategoryCertificate, CategorySystem:
		return true
	default:
		return false
	}
}
