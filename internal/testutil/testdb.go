package testutil

import (
	"fmt"
	"testing"

	"internship_backend/database"
	"internship_backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB - отдельная in-memory SQLite на тест.
// Одно соединение: вызывать пул внутри открытой транзакции нельзя (deadlock).
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "Не удалось открыть тестовую БД")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db), "Не удалось выполнить AutoMigrate")
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// CreateUser создает пользователя с ролью student
func CreateUser(t *testing.T, db *gorm.DB, fullName string) *models.User {
	t.Helper()

	user := &models.User{
		Email:    fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		FullName: fullName,
		Role:     models.UserRoleStudent,
	}
	require.NoError(t, db.Create(user).Error, "Создание тестового пользователя не должно вызывать ошибку")
	return user
}

// SetPreferences сохраняет настройки уведомлений пользователя целиком
func SetPreferences(t *testing.T, db *gorm.DB, prefs *models.NotificationPreferences) {
	t.Helper()
	require.NoError(t, db.Create(prefs).Error)
}
