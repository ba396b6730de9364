package models

import (
	"time"

	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Fullname     string         `gorm:"column:fullname;type:text;not null"`
	Email        string         `gorm:"column:email;type:text;not null;uniqueIndex:users_email_key"`
	PhoneNumber  string         `gorm:"column:phone_number;type:text;not null"`
	PasswordHash string         `gorm:"column:password_hash;type:text;not null"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null;default:'normal'"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
