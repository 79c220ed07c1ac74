package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&User{}))
	return db
}

func TestGetUserBySubject_Found(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&User{FirebaseUID: "uid-alice"}).Error)
	require.NoError(t, db.Create(&User{FirebaseUID: "uid-bob"}).Error)

	service := NewUserService(NewUserRepository(db))
	user, err := service.GetUserBySubject(context.Background(), "uid-bob")
	require.NoError(t, err)

	assert.Equal(t, "uid-bob", user.FirebaseUID)
	assert.Equal(t, uint(2), user.ID)
}

func TestGetUserBySubject_NotFound(t *testing.T) {
	db := setupTestDB(t)

	service := NewUserService(NewUserRepository(db))
	user, err := service.GetUserBySubject(context.Background(), "uid-missing")

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetUserBySubject_DatabaseError(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&User{}))

	service := NewUserService(NewUserRepository(db))
	_, err := service.GetUserBySubject(context.Background(), "uid-alice")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}
