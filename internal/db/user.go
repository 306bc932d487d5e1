package db

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/fleet-backoffice/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertUser inserts a new user into the database
func (c *mongoCollections) InsertUser(ctx context.Context, user models.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	user.IsActive = true

	_, err := c.coll(usersCollection).InsertOne(ctx, user)
	return mapMongoError(err, "user")
}

// FindUserByID finds a user by their ID
func (c *mongoCollections) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := c.findByID(ctx, usersCollection, "user", id, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByUsername finds a user by their username
func (c *mongoCollections) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return c.findUser(ctx, bson.M{"username": username}, username)
}

// FindUserByEmail finds a user by their email
func (c *mongoCollections) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return c.findUser(ctx, bson.M{"email": email}, email)
}

func (c *mongoCollections) findUser(ctx context.Context, filter bson.M, key string) (*models.User, error) {
	var user models.User
	err := c.coll(usersCollection).FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NotFound("user", key)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns every user ordered by username.
func (c *mongoCollections) ListUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := c.coll(usersCollection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, err
	}
	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser updates a user in the database
func (c *mongoCollections) UpdateUser(ctx context.Context, id string, user models.User) error {
	existing, err := c.FindUserByID(ctx, id)
	if err != nil {
		return err
	}
	user.ID = id
	user.CreatedAt = existing.CreatedAt
	user.LastLogin = existing.LastLogin
	user.UpdatedAt = time.Now()
	return c.replaceByID(ctx, usersCollection, "user", id, user)
}

// DeleteUser deletes a user and their notifications.
func (c *mongoCollections) DeleteUser(ctx context.Context, id string) error {
	if _, err := c.coll(notificationsCollection).DeleteMany(ctx, bson.M{"user_id": id}); err != nil {
		return err
	}
	return c.deleteByID(ctx, usersCollection, "user", id)
}

// UpdateLastLogin updates the last login time for a user
func (c *mongoCollections) UpdateLastLogin(ctx context.Context, id string) error {
	now := time.Now()
	res, err := c.coll(usersCollection).UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_login": now, "updated_at": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.NotFound("user", id)
	}
	return nil
}
