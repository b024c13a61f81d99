package services

import (
	"errors"

	"internship_backend/internal/logger"
	"internship_backend/internal/models"
	"internship_backend/internal/repositories"

	"gorm.io/gorm"
)

type userDirectory struct {
	userRepo repositories.UserRepository
}

func NewUserDirectory(userRepo repositories.UserRepository) UserDirectory {
	return &userDirectory{userRepo: userRepo}
}

func (d *userDirectory) Exists(db *gorm.DB, userID string) (bool, error) {
	if !isUUID(userID) {
		return false, nil
	}
	return d.userRepo.Exists(db, userID)
}

func (d *userDirectory) FindByID(db *gorm.DB, userID string) (*models.User, error) {
	if !isUUID(userID) {
		return nil, repositories.ErrUserNotFound
	}
	return d.userRepo.FindByID(db, userID)
}

func (d *userDirectory) DisplayName(db *gorm.DB, userID string) string {
	return d.DisplayNames(db, []string{userID})[userID]
}

// DisplayNames - мягко удаленные пользователи и отсутствующие id получают DeletedUserName
func (d *userDirectory) DisplayNames(db *gorm.DB, userIDs []string) map[string]string {
	names := make(map[string]string, len(userIDs))
	valid := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		names[id] = DeletedUserName
		if isUUID(id) {
			valid = append(valid, id)
		}
	}

	users, err := d.userRepo.FindByIDsUnscoped(db, valid)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.CtxWithError(ctxOf(db), "failed to resolve display names", err)
		return names
	}
	for i := range users {
		if users[i].DeletedAt.Valid {
			continue
		}
		names[users[i].ID] = users[i].DisplayName()
	}
	return names
}
