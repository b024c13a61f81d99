package services

import (
	"strings"
	"testing"
	"time"

	"internship_backend/internal/config"
	"internship_backend/internal/models"
	"internship_backend/internal/models/chat"
	"internship_backend/internal/services/dto"
	"internship_backend/internal/testutil"
	"internship_backend/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "Alice")
	bob := env.user(t, "Bob")
	direct := env.direct(t, alice.ID, bob.ID)

	sentAt := env.clock.Advance(5 * time.Second)
	message := env.send(t, alice.ID, direct.ID, "Привет!")
	assert.Equal(t, chat.MessageText, message.Type)
	assert.Equal(t, "Alice", message.SenderName)
	assert.Equal(t, sentAt, message.SentAt)
	assert.False(t, message.IsEdited)

	var conversation chat.Conversation
	require.NoError(t, env.db.First(&conversation, "id = ?", direct.ID).Error)
	require.NotNil(t, conversation.LastMessageAt)
	assert.True(t, sentAt.Equal(*conversation.LastMessageAt), "last_message_at сдвигается вместе с сообщением")

	var notifications []models.Notification
	require.NoError(t, env.db.Where("user_id = ?", bob.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1, "Получатель получает уведомление")
	assert.Equal(t, models.CategoryMessage, notifications[0].Category)
	assert.Equal(t, "New message from Alice", notifications[0].Title)
	assert.Equal(t, "Привет!", notifications[0].Body)
	require.NotNil(t, notifications[0].ActionURL)
	assert.Equal(t, "/conversations/"+direct.ID, *notifications[0].ActionURL)

	assert.Equal(t, int64(0), countNotifications(t, env, alice.ID), "Отправитель не уведомляется")
	assert.Equal(t, 1, env.publisher.conversationEvents(direct.ID, dto.EventMessageCreated))
	t.Logf("ЧАТ: Отправка сообщения - Успешно.")
}

func TestSendMessage_RespectsMessageToggle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "Alice")
	bob := env.user(t, "Bob")
	testutil.SetPreferences(t, env.db, &models.NotificationPreferences{
		UserID:             bob.ID,
		PushEnabled:        true,
		MessageEnabled:     false,
		ApplicationEnabled: true,
	})
	group := env.group(t, "Study group", alice.ID, bob.ID)

	env.send(t, alice.ID, group.ID, "muted for bob")
	assert.Equal(t, int64(0), countNotifications(t, env, bob.ID))

	var messages int64
	require.NoError(t, env.db.Model(&chat.Message{}).Where("conversation_id = ?", group.ID).Count(&messages).Error)
	assert.Equal(t, int64(1), messages, "Сообщение сохраняется независимо от настроек")
	t.Logf("ЧАТ: Настройки получателя - Успешно.")
}

func TestSendMessage_Errors(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "Alice")
	bob := env.user(t, "Bob")
	outsider := env.user(t, "Outsider")
	direct := env.direct(t, alice.ID, bob.ID)

	_, err := env.services.MessageService.SendMessage(env.db, outsider.ID, direct.ID, &dto.SendMessageRequest{Text: "hi"})
	assert.ErrorIs(t, err, apperrors.ErrConversationAccessDenied)

	_, err = env.services.MessageService.SendMessage(env.db, alice.ID, uuid.NewString(), &dto.SendMessageRequest{Text: "hi"})
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)

	_, err = env.services.MessageService.SendMessage(env.db, alice.ID, direct.ID, &dto.SendMessageRequest{Text: "   "})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = env.services.MessageService.SendMessage(env.db, alice.ID, direct.ID, &dto.SendMessageRequest{Type: "video", Text: "hi"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	var messages int64
	require.NoError(t, env.db.Model(&chat.Message{}).Count(&messages).Error)
	assert.Equal(t, int64(0), messages)
	t.Logf("ЧАТ: Ошибки отправки - Успешно.")
}

func TestSendMessage_Attachment(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "Alice")
	bob := env.user(t, "Bob")
	direct := env.direct(t, alice.ID, bob.ID)

	url := "https://files.example.com/cv.pdf"
	name := "cv.pdf"
	message, err := env.services.MessageService.SendMessage(env.db, alice.ID, direct.ID, &dto.SendMessageRequest{
		Type:           chat.MessageFile,
		AttachmentURL:  &url,
		AttachmentName: &name,
	})
	require.NoError(t, err)
	assert.Equal(t, chat.MessageFile, message.Type)

	var n models.Notification
	require.NoError(t, env.db.Where("user_id = ?", bob.ID).First(&n).Error)
	assert.Equal(t, "cv.pdf", n.Body, "Превью вложения - имя файла")
	t.Logf("ЧАТ: Вложение - Успешно.")
}

func TestEditMessage(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "Alice")
	bob := env.user(t, "Bob")
	direct := env.direct(t, alice.ID, bob.ID)

	original := env.send(t, alice.ID, direct.ID, "original")

	env.clock.Advance(time.Minute)
	_, err := env.services.MessageService.EditMessage(env.db, bob.ID, original.ID, &dto.EditMessageRequest{Text: "hacked"})
	assert.ErrorIs(t, err, apperrors.ErrCannotEditMessage)

	var stored chat.Message
	require.NoError(t, env.db.First(&stored, "id = ?", original.ID).Error)
	assert.Equal(t, "original", stored.Text, "Текст не меняется после отказа")
	assert.False(t, stored.IsEdited)

	editedAt := env.clock.Advance(time.Minute)
	edited, err := env.services.MessageService.EditMessage(env.db, alice.ID, original.ID, &dto.EditMessageRequest{Text: "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", edited.Text)
	assert.True(t, edited.IsEdited)
	require.NotNil(t, edited.EditedAt)
	assert.Equal(t, editedAt, *edited.EditedAt)

	require.NoError(t, env.db.First(&stored, "id = ?", original.ID).Error)
	assert.True(t, stored.IsEdited)
	assert.True(t, original.SentAt.Equal(stored.SentAt), "sent_at не меняется при редактировании")
	assert.Equal(t, 1, env.publisher.conversationEvents(direct.ID, dto.EventMessageEdited))

	_, err = env.services.MessageService.EditMessage(env.db, alice.ID, uuid.NewString(), &dto.EditMessageRequest{Text: "x"})
	assert.ErrorIs(t, err, apperrors.ErrMessageNotFound)
	t.Logf("ЧАТ: Редактирование - Успешно.")
}

func TestGetMessages_Paging(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "Alice")
	bob := env.user(t, "Bob")
	outsider := env.user(t, "Outsider")
	direct := env.direct(t, alice.ID, bob.ID)

	for _, text := range []string{"one", "two", "three"} {
		env.clock.Advance(time.Second)
		env.send(t, alice.ID, direct.ID, text)
	}

	page, err := env.services.MessageService.GetMessages(env.db, bob.ID, direct.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "three", page.Messages[0].Text, "Новые сообщения первыми")
	assert.Equal(t, "Alice", page.Messages[0].SenderName)

	_, err = env.services.MessageService.GetMessages(env.db, outsider.ID, direct.ID, 1, 2)
	assert.ErrorIs(t, err, apperrors.ErrConversationAccessDenied)

	all, err := env.services.MessageService.GetMessages(env.db, bob.ID, direct.ID, -1, 100000)
	require.NoError(t, err)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, config.MaxPageSize, all.PageSize, "Сервис сам ограничивает размер страницы")
	assert.Len(t, all.Messages, 3)

	defaults, err := env.services.MessageService.GetMessages(env.db, bob.ID, direct.ID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPageSize, defaults.PageSize)
	t.Logf("ЧАТ: История сообщений - Успешно.")
}

func TestSendMessage_SameInstant(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "Alice")
	bob := env.user(t, "Bob")
	direct := env.direct(t, alice.ID, bob.ID)

	now := env.clock.Advance(time.Second)
	first := env.send(t, alice.ID, direct.ID, "first")
	second := env.send(t, bob.ID, direct.ID, "second")
	third := env.send(t, alice.ID, direct.ID, "third")

	assert.Equal(t, now, first.SentAt)
	assert.True(t, second.SentAt.After(first.SentAt), "sent_at строго растет внутри беседы")
	assert.True(t, third.SentAt.After(second.SentAt))
	assert.Equal(t, time.Microsecond, second.SentAt.Sub(first.SentAt))

	history, err := env.services.MessageService.GetMessages(env.db, alice.ID, direct.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, history.Messages, 3)
	assert.Equal(t, "third", history.Messages[0].Text)
	assert.Equal(t, "first", history.Messages[2].Text)

	var conversation chat.Conversation
	require.NoError(t, env.db.First(&conversation, "id = ?", direct.ID).Error)
	require.NotNil(t, conversation.LastMessageAt)
	assert.True(t, third.SentAt.Equal(*conversation.LastMessageAt))

	// watermark на первом сообщении оставляет непрочитанными два следующих
	asOf := first.SentAt
	require.NoError(t, env.services.UnreadService.MarkConversationRead(env.db, bob.ID, direct.ID, &asOf))
	assert.Equal(t, int64(1), unreadOf(t, env, bob.ID, direct.ID), "Свое сообщение second не считается")
	t.Logf("ЧАТ: Сообщения в один момент времени - Успешно.")
}

func TestSendMessage_ConcurrentSenders(t *testing.T) {
	env := newTestEnv(t)
	members := []*models.User{env.user(t, "A"), env.user(t, "B"), env.user(t, "C"), env.user(t, "D")}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	group := env.group(t, "Team", ids...)
	env.clock.Advance(time.Second)

	var g errgroup.Group
	for _, m := range members {
		senderID := m.ID
		g.Go(func() error {
			_, err := env.services.MessageService.SendMessage(env.db, senderID, group.ID, &dto.SendMessageRequest{Text: "hello"})
			return err
		})
	}
	require.NoError(t, g.Wait())

	var messages []chat.Message
	require.NoError(t, env.db.Where("conversation_id = ?", group.ID).Order("sent_at").Find(&messages).Error)
	require.Len(t, messages, len(members))
	for i := 1; i < len(messages); i++ {
		assert.True(t, messages[i].SentAt.After(messages[i-1].SentAt), "Параллельные отправки получают разные sent_at")
	}
	t.Logf("ЧАТ: Параллельная отправка - Успешно.")
}

func TestPreviewText(t *testing.T) {
	short := &chat.Message{Text: "  hello  "}
	assert.Equal(t, "hello", previewText(short))

	long := &chat.Message{Text: strings.Repeat("я", messagePreviewLength+10)}
	preview := previewText(long)
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.Equal(t, messagePreviewLength+3, len([]rune(preview)))
}
