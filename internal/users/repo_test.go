package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/thriftlane-backend/pkg/auth"
	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
)

func setupRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}))
	return conn
}

func TestRepositoryCreateAndLookup(t *testing.T) {
	t.Parallel()
	repo := NewRepository(setupRepoDB(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{Fullname: "Ada Obi", Email: "ada@example.com", PhoneNumber: "0800", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, enums.UserRoleNormal, user.Role)

	found, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	role, err := repo.LookupRole(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleNormal, role)

	_, err = repo.LookupRole(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrUnknownUser)
}

func TestRepositoryRejectsDuplicateEmail(t *testing.T) {
	t.Parallel()
	repo := NewRepository(setupRepoDB(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateUserDTO{Fullname: "A", Email: "dup@example.com", PhoneNumber: "1", PasswordHash: "h"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, CreateUserDTO{Fullname: "B", Email: "dup@example.com", PhoneNumber: "2", PasswordHash: "h"})
	require.Error(t, err)
}

func TestRepositoryListAndDTO(t *testing.T) {
	t.Parallel()
	repo := NewRepository(setupRepoDB(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateUserDTO{Fullname: "A", Email: "a@example.com", PhoneNumber: "1", PasswordHash: "h", Role: enums.UserRoleAdmin})
	require.NoError(t, err)
	_, err = repo.Create(ctx, CreateUserDTO{Fullname: "B", Email: "b@example.com", PhoneNumber: "2", PasswordHash: "h"})
	require.NoError(t, err)

	rows, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	dto := FromModel(&rows[0])
	require.NotNil(t, dto)
	assert.NotEmpty(t, dto.Email)
	assert.Nil(t, FromModel(nil))
}
