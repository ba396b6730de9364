package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Fullname    string         `json:"fullname"`
	Email       string         `json:"email"`
	PhoneNumber string         `json:"phone_number"`
	Role        enums.UserRole `json:"role"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Fullname     string
	Email        string
	PhoneNumber  string
	PasswordHash string
	Role         enums.UserRole
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Fullname:    u.Fullname,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (d CreateUserDTO) ToModel() *models.User {
	role := d.Role
	if role == "" {
		role = enums.UserRoleNormal
	}
	return &models.User{
		Fullname:     d.Fullname,
		Email:        d.Email,
		PhoneNumber:  d.PhoneNumber,
		PasswordHash: d.PasswordHash,
		Role:         role,
	}
}
