package repositories

import (
	"errors"

	"internship_backend/internal/models"

	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository - доступ только на чтение: учетными записями владеет сервис аккаунтов
type UserRepository interface {
	FindByID(db *gorm.DB, id string) (*models.User, error)
	// FindByIDsUnscoped возвращает пользователей, включая мягко удаленных
	FindByIDsUnscoped(db *gorm.DB, ids []string) ([]models.User, error)
	Exists(db *gorm.DB, id string) (bool, error)
	CountExisting(db *gorm.DB, ids []string) (int64, error)
}

type UserRepositoryImpl struct{}

func NewUserRepository() UserRepository {
	return &UserRepositoryImpl{}
}

func (r *UserRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByIDsUnscoped(db *gorm.DB, ids []string) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := db.Unscoped().Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *UserRepositoryImpl) Exists(db *gorm.DB, id string) (bool, error) {
	count, err := r.CountExisting(db, []string{id})
	return count > 0, err
}

func (r *UserRepositoryImpl) CountExisting(db *gorm.DB, ids []string) (int64, error) {
	var count int64
	if len(ids) == 0 {
		return 0, nil
	}
	err := db.Model(&models.User{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}
