package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"internship_backend/internal/auth"
	"internship_backend/internal/config"
	"internship_backend/internal/models"
	"internship_backend/internal/services/dto"
	"internship_backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) (*testServer, func(name string) *models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.TTL = 60
	cfg.Paging.DefaultPageSize = config.DefaultPageSize
	cfg.Paging.MaxPageSize = config.MaxPageSize
	cfg.Realtime.QueueSize = 64
	cfg.Realtime.Workers = 1
	cfg.Email.QueueSize = 8
	cfg.CORS.AllowedOrigins = []string{"*"}

	db := testutil.NewTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	router, cleanup := SetupRouter(ctx, cfg, db)
	t.Cleanup(func() {
		cancel()
		cleanup()
	})

	server := &testServer{
		t:      t,
		router: router,
		tokens: auth.NewTokenManager(cfg.JWT.Secret, time.Hour),
	}
	return server, func(name string) *models.User {
		return testutil.CreateUser(t, db, name)
	}
}

func (s *testServer) token(userID string, role models.UserRole) string {
	token, err := s.tokens.GenerateToken(userID, role)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)

	rec := server.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = server.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	t.Logf("HEALTH: Проверка доступности - Успешно.")
}

func TestAuthRequired(t *testing.T) {
	server, _ := newTestServer(t)

	rec := server.do(http.MethodGet, "/api/v1/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = server.do(http.MethodGet, "/api/v1/notifications", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = server.do(http.MethodGet, "/api/v1/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	t.Logf("AUTH: Доступ без токена - Успешно.")
}

func TestChatFlow(t *testing.T) {
	server, createUser := newTestServer(t)
	alice := createUser("Alice")
	bob := createUser("Bob")
	aliceToken := server.token(alice.ID, models.UserRoleStudent)
	bobToken := server.token(bob.ID, models.UserRoleCompany)

	// 1. Личная беседа идемпотентна
	rec := server.do(http.MethodPost, "/api/v1/conversations", aliceToken, map[string]interface{}{
		"type":            "direct",
		"participant_ids": []string{bob.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var conversation dto.ConversationResponse
	decode(t, rec, &conversation)
	assert.Len(t, conversation.Participants, 2)

	rec = server.do(http.MethodPost, "/api/v1/conversations", bobToken, map[string]interface{}{
		"type":            "direct",
		"participant_ids": []string{alice.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var again dto.ConversationResponse
	decode(t, rec, &again)
	assert.Equal(t, conversation.ID, again.ID, "Повторное создание возвращает ту же беседу")

	// 2. Сообщения и счетчик
	messagesPath := "/api/v1/conversations/" + conversation.ID + "/messages"
	var first dto.MessageResponse
	for i, text := range []string{"Привет", "Как дела?"} {
		rec = server.do(http.MethodPost, messagesPath, aliceToken, map[string]interface{}{"text": text})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		if i == 0 {
			decode(t, rec, &first)
		}
	}

	var unread dto.UnreadCountResponse
	rec = server.do(http.MethodGet, "/api/v1/conversations/"+conversation.ID+"/unread-count", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &unread)
	assert.Equal(t, int64(2), unread.UnreadCount)

	rec = server.do(http.MethodPost, "/api/v1/conversations/"+conversation.ID+"/read", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = server.do(http.MethodGet, "/api/v1/conversations/"+conversation.ID+"/unread-count", bobToken, nil)
	decode(t, rec, &unread)
	assert.Equal(t, int64(0), unread.UnreadCount)

	// 3. Уведомления о сообщениях у получателя
	var list dto.NotificationListResponse
	rec = server.do(http.MethodGet, "/api/v1/notifications?category=message", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &list)
	assert.Equal(t, int64(2), list.Total)
	assert.Equal(t, config.DefaultPageSize, list.PageSize)

	// 4. Только автор редактирует
	rec = server.do(http.MethodPatch, "/api/v1/messages/"+first.ID, bobToken, map[string]interface{}{"text": "hack"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = server.do(http.MethodPatch, "/api/v1/messages/"+first.ID, aliceToken, map[string]interface{}{"text": "Привет!"})
	require.Equal(t, http.StatusOK, rec.Code)
	var edited dto.MessageResponse
	decode(t, rec, &edited)
	assert.True(t, edited.IsEdited)
	assert.True(t, first.SentAt.Equal(edited.SentAt))

	// 5. Чужая беседа недоступна
	outsider := createUser("Outsider")
	rec = server.do(http.MethodGet, messagesPath, server.token(outsider.ID, models.UserRoleStudent), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = server.do(http.MethodPatch, "/api/v1/conversations/"+conversation.ID, aliceToken, map[string]interface{}{"name": "Friends"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "Личную беседу нельзя переименовать")

	// 6. Список бесед постранично
	var summary dto.ConversationSummaryResponse
	rec = server.do(http.MethodGet, "/api/v1/conversations", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &summary)
	require.Len(t, summary.Conversations, 1)
	require.NotNil(t, summary.Conversations[0].LastMessage)
	assert.Equal(t, int64(1), summary.Total)
	assert.Equal(t, config.DefaultPageSize, summary.PageSize)

	rec = server.do(http.MethodGet, "/api/v1/conversations?page=2&page_size=1", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var secondPage dto.ConversationSummaryResponse
	decode(t, rec, &secondPage)
	assert.Empty(t, secondPage.Conversations)
	assert.Equal(t, 2, secondPage.Page)
	assert.Equal(t, 1, secondPage.TotalPages)

	rec = server.do(http.MethodGet, "/api/v1/conversations?page_size=100000", aliceToken, nil)
	var capped dto.ConversationSummaryResponse
	decode(t, rec, &capped)
	assert.Equal(t, config.MaxPageSize, capped.PageSize)
	t.Logf("ЧАТ: Полный сценарий через HTTP - Успешно.")
}

func TestNotificationFlow(t *testing.T) {
	server, createUser := newTestServer(t)
	student := createUser("Student")
	other := createUser("Other")
	studentToken := server.token(student.ID, models.UserRoleStudent)
	adminToken := server.token(uuid.NewString(), models.UserRoleAdmin)

	// 1. Выпуск уведомлений доступен только администратору
	payload := map[string]interface{}{
		"user_id":  student.ID,
		"category": "project",
		"title":    "Project published",
	}
	rec := server.do(http.MethodPost, "/api/v1/admin/notifications", studentToken, payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = server.do(http.MethodPost, "/api/v1/admin/notifications", adminToken, payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created dto.CreateNotificationResult
	decode(t, rec, &created)
	require.NotNil(t, created.Notification)

	rec = server.do(http.MethodPost, "/api/v1/admin/notifications", adminToken, map[string]interface{}{
		"user_id":  uuid.NewString(),
		"category": "project",
		"title":    "Nobody",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = server.do(http.MethodPost, "/api/v1/admin/notifications", adminToken, map[string]interface{}{
		"user_id":  student.ID,
		"category": "promo",
		"title":    "Unknown",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 2. Выключенный push подавляет project
	rec = server.do(http.MethodPut, "/api/v1/notifications/preferences", studentToken, map[string]interface{}{"push_enabled": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = server.do(http.MethodPost, "/api/v1/admin/notifications", adminToken, payload)
	require.Equal(t, http.StatusOK, rec.Code)
	var suppressed dto.CreateNotificationResult
	decode(t, rec, &suppressed)
	assert.True(t, suppressed.Suppressed)

	// 3. Чужое уведомление в пачке отменяет отметку
	otherResult := server.do(http.MethodPost, "/api/v1/admin/notifications", adminToken, map[string]interface{}{
		"user_id":  other.ID,
		"category": "system",
		"title":    "For other",
	})
	require.Equal(t, http.StatusCreated, otherResult.Code)
	var foreign dto.CreateNotificationResult
	decode(t, otherResult, &foreign)

	rec = server.do(http.MethodPut, "/api/v1/notifications/read-multiple", studentToken, map[string]interface{}{
		"notification_ids": []string{created.Notification.ID, foreign.Notification.ID},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var count map[string]int64
	rec = server.do(http.MethodGet, "/api/v1/notifications/unread-count", studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &count)
	assert.Equal(t, int64(1), count["unread_count"])

	// 4. Отметка идемпотентна
	for i := 0; i < 2; i++ {
		rec = server.do(http.MethodPut, "/api/v1/notifications/"+created.Notification.ID+"/read", studentToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec = server.do(http.MethodPut, "/api/v1/notifications/"+foreign.Notification.ID+"/read", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var stats dto.NotificationStatsResponse
	rec = server.do(http.MethodGet, "/api/v1/notifications/stats", studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &stats)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(0), stats.Unread)
	assert.Equal(t, int64(1), stats.Project)

	// 5. Очистка только для администратора
	rec = server.do(http.MethodDelete, "/api/v1/admin/notifications/cleanup?days=0", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = server.do(http.MethodDelete, "/api/v1/admin/notifications/cleanup?days=30", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	t.Logf("УВЕДОМЛЕНИЯ: Полный сценарий через HTTP - Успешно.")
}
