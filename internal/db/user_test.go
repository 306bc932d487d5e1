package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-backoffice/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

func testUser() models.User {
	return models.User{
		ID:           uuid.NewString(),
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "hashedpassword",
		Role:         models.RoleAdmin,
		FirstName:    "Test",
		LastName:     "User",
	}
}

func TestMongoUsers_InsertUser(t *testing.T) {
	s := newIntegrationStore(t)
	user := testUser()

	err := s.InsertUser(context.Background(), user)
	assert.NoError(t, err)

	// Verify user was inserted
	var foundUser models.User
	err = s.coll(usersCollection).FindOne(context.Background(), bson.M{"username": "testuser"}).Decode(&foundUser)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, foundUser.ID)
	assert.Equal(t, user.Role, foundUser.Role)
	assert.True(t, foundUser.IsActive)
	assert.NotZero(t, foundUser.CreatedAt)

	dup := testUser()
	dup.Email = "other@example.com"
	var conflict *models.ConflictError
	require.ErrorAs(t, s.InsertUser(context.Background(), dup), &conflict)
	assert.Equal(t, "username", conflict.Field)
}

func TestMongoUsers_Find(t *testing.T) {
	s := newIntegrationStore(t)
	user := testUser()
	require.NoError(t, s.InsertUser(context.Background(), user))

	foundUser, err := s.FindUserByID(context.Background(), user.ID)
	assert.NoError(t, err)
	assert.Equal(t, user.Username, foundUser.Username)

	foundUser, err = s.FindUserByUsername(context.Background(), "testuser")
	assert.NoError(t, err)
	assert.Equal(t, user.Email, foundUser.Email)

	foundUser, err = s.FindUserByEmail(context.Background(), "test@example.com")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, foundUser.ID)

	_, err = s.FindUserByUsername(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.FindUserByID(context.Background(), "invalid-id")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMongoUsers_UpdateUser(t *testing.T) {
	s := newIntegrationStore(t)
	user := testUser()
	require.NoError(t, s.InsertUser(context.Background(), user))
	inserted, err := s.FindUserByID(context.Background(), user.ID)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	updatedUser := *inserted
	updatedUser.FirstName = "Updated"
	updatedUser.LastName = "Name"
	require.NoError(t, s.UpdateUser(context.Background(), user.ID, updatedUser))

	foundUser, err := s.FindUserByID(context.Background(), user.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Updated", foundUser.FirstName)
	assert.Equal(t, "Name", foundUser.LastName)
	assert.True(t, foundUser.UpdatedAt.After(inserted.UpdatedAt))
	assert.True(t, foundUser.CreatedAt.Equal(inserted.CreatedAt))
}

func TestMongoUsers_DeleteUser(t *testing.T) {
	s := newIntegrationStore(t)
	user := testUser()
	require.NoError(t, s.InsertUser(context.Background(), user))
	require.NoError(t, s.InsertNotification(context.Background(), models.Notification{
		ID: uuid.NewString(), UserID: user.ID, Type: models.NotificationInfo, Link: "/x",
	}))

	require.NoError(t, s.DeleteUser(context.Background(), user.ID))

	_, err := s.FindUserByID(context.Background(), user.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	list, err := s.ListNotifications(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.ErrorIs(t, s.DeleteUser(context.Background(), user.ID), models.ErrNotFound)
}

func TestMongoUsers_UpdateLastLogin(t *testing.T) {
	s := newIntegrationStore(t)
	user := testUser()
	require.NoError(t, s.InsertUser(context.Background(), user))

	err := s.UpdateLastLogin(context.Background(), user.ID)
	assert.NoError(t, err)

	updatedUser, err := s.FindUserByID(context.Background(), user.ID)
	assert.NoError(t, err)
	require.NotNil(t, updatedUser.LastLogin)
	assert.False(t, updatedUser.LastLogin.Before(updatedUser.CreatedAt.Truncate(time.Millisecond)))
}
