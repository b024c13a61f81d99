package services

import (
	"testing"
	"time"

	"internship_backend/internal/config"
	"internship_backend/internal/models/chat"
	"internship_backend/internal/services/dto"
	"internship_backend/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreadOf(t *testing.T, env *testEnv, userID, conversationID string) int64 {
	t.Helper()
	count, err := env.services.UnreadService.UnreadCount(env.db, userID, conversationID)
	require.NoError(t, err)
	return count
}

func TestUnreadCount_Watermark(t *testing.T) {
	env := newTestEnv(t)
	first := env.user(t, "First")
	second := env.user(t, "Second")
	direct := env.direct(t, first.ID, second.ID)

	for _, text := range []string{"a", "b", "c"} {
		env.clock.Advance(time.Second)
		env.send(t, first.ID, direct.ID, text)
	}
	assert.Equal(t, int64(3), unreadOf(t, env, second.ID, direct.ID), "NULL watermark - непрочитаны все")
	assert.Equal(t, int64(0), unreadOf(t, env, first.ID, direct.ID), "Свои сообщения не считаются")

	env.clock.Advance(time.Second)
	require.NoError(t, env.services.UnreadService.MarkConversationRead(env.db, second.ID, direct.ID, nil))
	assert.Equal(t, int64(0), unreadOf(t, env, second.ID, direct.ID))
	assert.Equal(t, 1, env.publisher.conversationEvents(direct.ID, dto.EventConversationRead))

	env.clock.Advance(time.Second)
	env.send(t, first.ID, direct.ID, "d")
	assert.Equal(t, int64(1), unreadOf(t, env, second.ID, direct.ID))
	t.Logf("ЧАТ: Счетчик непрочитанных - Успешно.")
}

func TestUnreadCount_StrictBoundary(t *testing.T) {
	env := newTestEnv(t)
	first := env.user(t, "First")
	second := env.user(t, "Second")
	direct := env.direct(t, first.ID, second.ID)

	env.clock.Advance(time.Second)
	message := env.send(t, first.ID, direct.ID, "boundary")

	asOf := message.SentAt
	require.NoError(t, env.services.UnreadService.MarkConversationRead(env.db, second.ID, direct.ID, &asOf))
	assert.Equal(t, int64(0), unreadOf(t, env, second.ID, direct.ID), "Сообщение ровно на watermark прочитано")

	before := message.SentAt.Add(-time.Second)
	require.NoError(t, env.services.UnreadService.MarkConversationRead(env.db, second.ID, direct.ID, &before))
	assert.Equal(t, int64(1), unreadOf(t, env, second.ID, direct.ID), "Watermark можно сдвинуть назад")

	var participant chat.ConversationParticipant
	require.NoError(t, env.db.Where("conversation_id = ? AND user_id = ?", direct.ID, second.ID).First(&participant).Error)
	require.NotNil(t, participant.LastReadAt)
	assert.True(t, before.Equal(*participant.LastReadAt))
	t.Logf("ЧАТ: Граница watermark - Успешно.")
}

func TestUnreadCount_Errors(t *testing.T) {
	env := newTestEnv(t)
	first := env.user(t, "First")
	second := env.user(t, "Second")
	outsider := env.user(t, "Outsider")
	direct := env.direct(t, first.ID, second.ID)

	_, err := env.services.UnreadService.UnreadCount(env.db, outsider.ID, direct.ID)
	assert.ErrorIs(t, err, apperrors.ErrConversationAccessDenied)

	_, err = env.services.UnreadService.UnreadCount(env.db, first.ID, uuid.NewString())
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)

	err = env.services.UnreadService.MarkConversationRead(env.db, outsider.ID, direct.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrConversationAccessDenied)

	err = env.services.UnreadService.MarkConversationRead(env.db, first.ID, uuid.NewString(), nil)
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
	t.Logf("ЧАТ: Ошибки счетчика - Успешно.")
}

func TestConversationSummary(t *testing.T) {
	env := newTestEnv(t)
	me := env.user(t, "Me")
	alice := env.user(t, "Alice")
	bob := env.user(t, "Bob")

	withAlice := env.direct(t, me.ID, alice.ID)
	withBob := env.direct(t, me.ID, bob.ID)
	silent := env.group(t, "Silent", me.ID, alice.ID, bob.ID)

	env.clock.Advance(time.Second)
	env.send(t, alice.ID, withAlice.ID, "from alice 1")
	env.clock.Advance(time.Second)
	env.send(t, alice.ID, withAlice.ID, "from alice 2")
	env.clock.Advance(time.Second)
	env.send(t, bob.ID, withBob.ID, "from bob")
	env.clock.Advance(time.Second)
	env.send(t, me.ID, withBob.ID, "my reply")

	page, err := env.services.UnreadService.ConversationSummary(env.db, me.ID, 1, 0)
	require.NoError(t, err)
	summaries := page.Conversations
	require.Len(t, summaries, 3)
	assert.Equal(t, int64(3), page.Total)

	assert.Equal(t, withBob.ID, summaries[0].ConversationID, "Сортировка по last_message_at по убыванию")
	assert.Equal(t, withAlice.ID, summaries[1].ConversationID)
	assert.Equal(t, silent.ID, summaries[2].ConversationID, "Беседы без сообщений в конце")

	assert.Equal(t, int64(1), summaries[0].UnreadCount)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "my reply", summaries[0].LastMessage.Text)
	assert.Equal(t, "Me", summaries[0].LastMessage.SenderName)

	assert.Equal(t, int64(2), summaries[1].UnreadCount)
	require.NotNil(t, summaries[1].LastMessage)
	assert.Equal(t, "from alice 2", summaries[1].LastMessage.Text)

	assert.Equal(t, int64(0), summaries[2].UnreadCount)
	assert.Nil(t, summaries[2].LastMessage)
	assert.Nil(t, summaries[2].LastMessageAt)

	empty, err := env.services.UnreadService.ConversationSummary(env.db, uuid.NewString(), 1, 0)
	require.NoError(t, err)
	assert.NotNil(t, empty.Conversations)
	assert.Len(t, empty.Conversations, 0)
	assert.Equal(t, int64(0), empty.Total)
	t.Logf("ЧАТ: Список бесед - Успешно.")
}

func TestConversationSummary_Paging(t *testing.T) {
	env := newTestEnv(t)
	me := env.user(t, "Me")

	var ids []string
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		other := env.user(t, name)
		conversation := env.direct(t, me.ID, other.ID)
		env.clock.Advance(time.Second)
		env.send(t, other.ID, conversation.ID, "hi from "+name)
		ids = append(ids, conversation.ID)
	}

	first, err := env.services.UnreadService.ConversationSummary(env.db, me.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), first.Total)
	assert.Equal(t, 2, first.TotalPages)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, 2, first.PageSize)
	require.Len(t, first.Conversations, 2)
	assert.Equal(t, ids[2], first.Conversations[0].ConversationID, "Новые беседы первыми")
	assert.Equal(t, ids[1], first.Conversations[1].ConversationID)
	assert.Equal(t, int64(1), first.Conversations[0].UnreadCount)

	second, err := env.services.UnreadService.ConversationSummary(env.db, me.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, second.Conversations, 1)
	assert.Equal(t, ids[0], second.Conversations[0].ConversationID)
	require.NotNil(t, second.Conversations[0].LastMessage)
	assert.Equal(t, "hi from Alice", second.Conversations[0].LastMessage.Text)

	beyond, err := env.services.UnreadService.ConversationSummary(env.db, me.ID, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, beyond.Conversations)
	assert.Equal(t, int64(3), beyond.Total)

	normalized, err := env.services.UnreadService.ConversationSummary(env.db, me.ID, 0, 100000)
	require.NoError(t, err)
	assert.Equal(t, 1, normalized.Page, "page < 1 приводится к 1")
	assert.Equal(t, config.MaxPageSize, normalized.PageSize, "Размер страницы ограничен максимумом")
	assert.Len(t, normalized.Conversations, 3)
	t.Logf("ЧАТ: Постраничный список бесед - Успешно.")
}

// сообщения в один и тот же момент: превью показывает последнее отправленное
func TestConversationSummary_SameInstantMessages(t *testing.T) {
	env := newTestEnv(t)
	me := env.user(t, "Me")
	alice := env.user(t, "Alice")
	direct := env.direct(t, me.ID, alice.ID)

	env.clock.Advance(time.Second)
	for _, text := range []string{"first", "second", "third"} {
		env.send(t, alice.ID, direct.ID, text)
	}

	page, err := env.services.UnreadService.ConversationSummary(env.db, me.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Conversations, 1)
	require.NotNil(t, page.Conversations[0].LastMessage)
	assert.Equal(t, "third", page.Conversations[0].LastMessage.Text)
	assert.Equal(t, int64(3), page.Conversations[0].UnreadCount)
	t.Logf("ЧАТ: Превью при совпадении времени - Успешно.")
}

func TestPagingNormalize(t *testing.T) {
	paging := Paging{DefaultPageSize: 20, MaxPageSize: 30}

	page, size := paging.normalize(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)

	page, size = paging.normalize(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, 30, size)

	_, size = Paging{}.normalize(1, 0)
	assert.Equal(t, config.DefaultPageSize, size, "Пустые границы берутся из config")

	_, size = Paging{DefaultPageSize: 80, MaxPageSize: 40}.normalize(1, 0)
	assert.Equal(t, 40, size, "Размер по умолчанию не превышает максимум")
}
