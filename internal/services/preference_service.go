package services

import (
	"internship_backend/internal/logger"
	"internship_backend/internal/models"
	"internship_backend/internal/repositories"
	"internship_backend/internal/services/dto"
	"internship_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// PreferenceService - хранилище настроек уведомлений (PreferenceStore)
type PreferenceService interface {
	GetOrCreateDefault(db *gorm.DB, userID string) (*models.NotificationPreferences, error)
	GetPreferences(db *gorm.DB, userID string) (*dto.PreferencesResponse, error)
	Update(db *gorm.DB, userID string, req *dto.UpdatePreferencesRequest) (*dto.PreferencesResponse, error)
}

type preferenceService struct {
	prefRepo repositories.PreferenceRepository
}

func NewPreferenceService(prefRepo repositories.PreferenceRepository) PreferenceService {
	return &preferenceService{prefRepo: prefRepo}
}

func (s *preferenceService) GetOrCreateDefault(db *gorm.DB, userID string) (*models.NotificationPreferences, error) {
	prefs, err := s.prefRepo.GetOrCreateDefault(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return prefs, nil
}

func (s *preferenceService) GetPreferences(db *gorm.DB, userID string) (*dto.PreferencesResponse, error) {
	prefs, err := s.GetOrCreateDefault(db, userID)
	if err != nil {
		return nil, err
	}
	return buildPreferencesResponse(prefs), nil
}

func (s *preferenceService) Update(db *gorm.DB, userID string, req *dto.UpdatePreferencesRequest) (*dto.PreferencesResponse, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	prefs, err := s.prefRepo.GetOrCreateDefault(tx, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if req.EmailEnabled != nil {
		prefs.EmailEnabled = *req.EmailEnabled
	}
	if req.PushEnabled != nil {
		prefs.PushEnabled = *req.PushEnabled
	}
	if req.MessageEnabled != nil {
		prefs.MessageEnabled = *req.MessageEnabled
	}
	if req.ApplicationEnabled != nil {
		prefs.ApplicationEnabled = *req.ApplicationEnabled
	}
	prefs.UpdatedAt = nowFunc()

	if err := s.prefRepo.Save(tx, prefs); err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctxOf(db), "notification preferences updated",
		"target_user_id", userID,
		"push", prefs.PushEnabled,
		"message", prefs.MessageEnabled,
		"application", prefs.ApplicationEnabled,
		"email", prefs.EmailEnabled,
	)
	return buildPreferencesResponse(prefs), nil
}

func buildPreferencesResponse(p *models.NotificationPreferences) *dto.PreferencesResponse {
	return &dto.PreferencesResponse{
		UserID:             p.UserID,
		EmailEnabled:       p.EmailEnabled,
		PushEnabled:        p.PushEnabled,
		MessageEnabled:     p.MessageEnabled,
		ApplicationEnabled: p.ApplicationEnabled,
		UpdatedAt:          p.UpdatedAt,
	}
}
