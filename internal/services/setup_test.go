package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"internship_backend/internal/models"
	"internship_backend/internal/services/dto"
	"internship_backend/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeClock - управляемое время сервисов; шаг в целых секундах
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func useFakeClock(t *testing.T) *fakeClock {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	prev := nowFunc
	nowFunc = clock.Now
	t.Cleanup(func() { nowFunc = prev })
	return clock
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type pushedEvent struct {
	Target string
	Event  dto.RealtimeEvent
}

type recordingPublisher struct {
	mu             sync.Mutex
	toUser         []pushedEvent
	toConversation []pushedEvent
}

func (p *recordingPublisher) PushToUser(userID string, event dto.RealtimeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toUser = append(p.toUser, pushedEvent{Target: userID, Event: event})
}

func (p *recordingPublisher) PushToConversation(conversationID string, event dto.RealtimeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toConversation = append(p.toConversation, pushedEvent{Target: conversationID, Event: event})
}

func (p *recordingPublisher) userEvents(userID, eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.toUser {
		if e.Target == userID && e.Event.Type == eventType {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) conversationEvents(conversationID, eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.toConversation {
		if e.Target == conversationID && e.Event.Type == eventType {
			n++
		}
	}
	return n
}

// memoryCache - UnreadCache на map, считает попадания
type memoryCache struct {
	mu     sync.Mutex
	values map[string]int64
	hits   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]int64)}
}

func (c *memoryCache) Get(_ context.Context, userID string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[userID]
	if ok {
		c.hits++
	}
	return v, ok
}

func (c *memoryCache) Set(_ context.Context, userID string, count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[userID] = count
}

func (c *memoryCache) Invalidate(_ context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, userID)
}

type sentEmail struct {
	To           string
	Notification *dto.NotificationResponse
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (m *recordingMailer) EnqueueNotification(to, _ string, n *dto.NotificationResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{To: to, Notification: n})
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type testEnv struct {
	db        *gorm.DB
	clock     *fakeClock
	publisher *recordingPublisher
	cache     *memoryCache
	mailer    *recordingMailer
	services  *ServiceContainer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		db:        testutil.NewTestDB(t),
		clock:     useFakeClock(t),
		publisher: &recordingPublisher{},
		cache:     newMemoryCache(),
		mailer:    &recordingMailer{},
	}
	env.services = NewServiceContainer(Collaborators{
		Publisher:   env.publisher,
		UnreadCache: env.cache,
		Mailer:      env.mailer,
	})
	return env
}

func (env *testEnv) user(t *testing.T, name string) *models.User {
	t.Helper()
	return testutil.CreateUser(t, env.db, name)
}

func (env *testEnv) notify(t *testing.T, userID string, category models.NotificationCategory) *dto.NotificationResponse {
	t.Helper()
	result, err := env.services.NotificationService.CreateNotification(env.db, &dto.CreateNotificationRequest{
		UserID:   userID,
		Category: category,
		Title:    "Test " + string(category),
		Body:     "body",
	})
	require.NoError(t, err)
	require.False(t, result.Suppressed, "Уведомление не должно подавляться")
	require.NotNil(t, result.Notification)
	return result.Notification
}

func (env *testEnv) direct(t *testing.T, a, b string) *dto.ConversationResponse {
	t.Helper()
	conversation, err := env.services.ConversationService.CreateConversation(env.db, a, &dto.CreateConversationRequest{
		Type:    "direct",
		UserIDs: []string{a, b},
	})
	require.NoError(t, err)
	return conversation
}

func (env *testEnv) group(t *testing.T, name string, userIDs ...string) *dto.ConversationResponse {
	t.Helper()
	conversation, err := env.services.ConversationService.CreateConversation(env.db, userIDs[0], &dto.CreateConversationRequest{
		Type:    "group",
		UserIDs: userIDs,
		Name:    &name,
	})
	require.NoError(t, err)
	return conversation
}

func (env *testEnv) send(t *testing.T, senderID, conversationID, text string) *dto.MessageResponse {
	t.Helper()
	message, err := env.services.MessageService.SendMessage(env.db, senderID, conversationID, &dto.SendMessageRequest{Text: text})
	require.NoError(t, err)
	return message
}
