package repositories

import (
	"internship_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PreferenceRepository interface {
	// GetOrCreateDefault - ленивое создание настроек без гонки:
	// INSERT ... ON CONFLICT (user_id) DO NOTHING, затем чтение.
	GetOrCreateDefault(db *gorm.DB, userID string) (*models.NotificationPreferences, error)
	Save(db *gorm.DB, prefs *models.NotificationPreferences) error
}

type PreferenceRepositoryImpl struct{}

func NewPreferenceRepository() PreferenceRepository {
	return &PreferenceRepositoryImpl{}
}

func (r *PreferenceRepositoryImpl) GetOrCreateDefault(db *gorm.DB, userID string) (*models.NotificationPreferences, error) {
	defaults := models.DefaultPreferences(userID)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(defaults).Error
	if err != nil {
		return nil, err
	}

	var prefs models.NotificationPreferences
	if err := db.Where("user_id = ?", userID).First(&prefs).Error; err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (r *PreferenceRepositoryImpl) Save(db *gorm.DB, prefs *models.NotificationPreferences) error {
	return db.Model(prefs).Select("email_enabled", "push_enabled", "message_enabled", "application_enabled", "updated_at").
		Updates(prefs).Error
}
