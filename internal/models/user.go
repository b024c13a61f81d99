package models

import (
	"time"

	"gorm.io/gorm"
)

// User принадлежит сервису аккаунтов; здесь только читается
type User struct {
	BaseModel
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName  string         `gorm:"type:varchar(255)" json:"full_name"`
	Role      UserRole       `gorm:"type:varchar(20);not null" json:"role"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// DisplayName - имя для интерфейса, email если имя не заполнено
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
