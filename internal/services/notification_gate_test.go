package services

import (
	"testing"

	"internship_backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestChannelFor(t *testing.T) {
	cases := []struct {
		category models.NotificationCategory
		want     PreferenceChannel
	}{
		{models.CategoryApplication, ChannelApplication},
		{models.CategoryAcceptance, ChannelApplication},
		{models.CategoryRejection, ChannelApplication},
		{models.CategoryMessage, ChannelMessage},
		{models.CategoryProject, ChannelPush},
		{models.CategoryDeadline, ChannelPush},
		{models.CategoryCertificate, ChannelPush},
		{models.CategorySystem, ChannelPush},
		{models.NotificationCategory("something-new"), ChannelPush},
	}

	for _, tc := range cases {
		t.Run(string(tc.category), func(t *testing.T) {
			assert.Equal(t, tc.want, ChannelFor(tc.category))
		})
	}
}

func TestDecide(t *testing.T) {
	prefs := models.DefaultPreferences("u")
	for _, c := range models.AllNotificationCategories {
		assert.Equal(t, Allow, Decide(prefs, c), "По умолчанию все категории разрешены: %s", c)
	}

	prefs.MessageEnabled = false
	assert.Equal(t, Suppress, Decide(prefs, models.CategoryMessage))
	assert.Equal(t, Allow, Decide(prefs, models.CategoryProject))
	assert.Equal(t, Allow, Decide(prefs, models.CategoryApplication))

	prefs = models.DefaultPreferences("u")
	prefs.ApplicationEnabled = false
	assert.Equal(t, Suppress, Decide(prefs, models.CategoryApplication))
	assert.Equal(t, Suppress, Decide(prefs, models.CategoryAcceptance))
	assert.Equal(t, Suppress, Decide(prefs, models.CategoryRejection))
	assert.Equal(t, Allow, Decide(prefs, models.CategoryMessage))

	prefs = models.DefaultPreferences("u")
	prefs.PushEnabled = false
	assert.Equal(t, Suppress, Decide(prefs, models.CategoryDeadline))
	assert.Equal(t, Suppress, Decide(prefs, models.NotificationCategory("unknown")))
	assert.Equal(t, Allow, Decide(prefs, models.CategoryMessage))

	// email не участвует в фильтрации
	prefs = models.DefaultPreferences("u")
	prefs.EmailEnabled = false
	assert.Equal(t, Allow, Decide(prefs, models.CategorySystem))
}

func TestGateDecisionString(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "suppress", Suppress.String())
}
