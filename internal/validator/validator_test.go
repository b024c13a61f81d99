package validator

import (
	"testing"

	"internship_backend/internal/services/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_CreateConversation(t *testing.T) {
	v := New()

	err := v.Validate(&dto.CreateConversationRequest{
		Type:    "direct",
		UserIDs: []string{uuid.NewString()},
	})
	assert.NoError(t, err)

	err = v.Validate(&dto.CreateConversationRequest{
		Type:    "channel",
		UserIDs: []string{"not-a-uuid"},
	})
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Must be one of: direct, group", vErr.Errors["type"])
	assert.Equal(t, "Every item must be a valid UUID", vErr.Errors["participant_ids"])

	err = v.Validate(&dto.CreateConversationRequest{Type: "group"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "This field is required", vErr.Errors["participant_ids"])
}

func TestValidate_SendMessage(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&dto.SendMessageRequest{Text: "hi"}))

	url := "https://files.example.com/a.png"
	assert.NoError(t, v.Validate(&dto.SendMessageRequest{Type: "image", AttachmentURL: &url}), "Вложение без текста допустимо")

	err := v.Validate(&dto.SendMessageRequest{})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Errors["text"], "required when")

	err = v.Validate(&dto.SendMessageRequest{Type: "video", Text: "hi"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Must be one of: text, file, image, link", vErr.Errors["type"])
}

func TestValidate_NotificationCriteria(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&dto.NotificationCriteria{Category: "deadline"}))
	assert.NoError(t, v.Validate(&dto.NotificationCriteria{}))

	err := v.Validate(&dto.NotificationCriteria{Category: "promo"})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Unknown notification category", vErr.Errors["category"])
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Errors: map[string]string{
		"b": "second",
		"a": "first",
	}}
	assert.Equal(t, "Validation failed: field 'a': first; field 'b': second", err.Error())
}
