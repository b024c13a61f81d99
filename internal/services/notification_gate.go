package services

import "internship_backend/internal/models"

// PreferenceChannel - переключатель в настройках, который управляет категорией
type PreferenceChannel string

const (
	ChannelApplication PreferenceChannel = "application"
	ChannelMessage     PreferenceChannel = "message"
	ChannelPush        PreferenceChannel = "push"
)

type GateDecision int

const (
	Allow GateDecision = iota
	Suppress
)

func (d GateDecision) String() string {
	if d == Allow {
		return "allow"
	}
	return "suppress"
}

// ChannelFor: application/acceptance/rejection -> application, message -> message,
// все остальное (включая неизвестные категории) -> push.
func ChannelFor(category models.NotificationCategory) PreferenceChannel {
	switch category {
	case models.CategoryApplication, models.CategoryAcceptance, models.CategoryRejection:
		return ChannelApplication
	case models.CategoryMessage:
		return ChannelMessage
	default:
		return ChannelPush
	}
}

// Decide - чистая функция: создавать ли уведомление при данных настройках
func Decide(prefs *models.NotificationPreferences, category models.NotificationCategory) GateDecision {
	var enabled bool
	switch ChannelFor(category) {
	case ChannelApplication:
		enabled = prefs.ApplicationEnabled
	case ChannelMessage:
		enabled = prefs.MessageEnabled
	default:
		enabled = prefs.PushEnabled
	}

	if enabled {
		return Allow
	}
	return Suppress
}
