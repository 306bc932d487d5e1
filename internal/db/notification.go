package db

import (
	"context"
	"time"

	"github.com/ukydev/fleet-backoffice/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListNotifications returns a user's notifications, newest first.
func (c *mongoCollections) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	cursor, err := c.coll(notificationsCollection).Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// InsertNotification inserts a notification.
func (c *mongoCollections) InsertNotification(ctx context.Context, n models.Notification) error {
	now := time.Now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	_, err := c.coll(notificationsCollection).InsertOne(ctx, n)
	return mapMongoError(err, "notification")
}

// UpdateNotification rewrites the message, details and read flag of n.
func (c *mongoCollections) UpdateNotification(ctx context.Context, n models.Notification) error {
	return c.updateNotification(ctx, n.UserID, n.ID, bson.M{
		"message":    n.Message,
		"details":    n.Details,
		"read":       n.Read,
		"updated_at": time.Now(),
	})
}

// MarkNotificationRead flags one of the user's notifications as read.
func (c *mongoCollections) MarkNotificationRead(ctx context.Context, userID, id string) error {
	return c.updateNotification(ctx, userID, id, bson.M{"read": true, "updated_at": time.Now()})
}

func (c *mongoCollections) updateNotification(ctx context.Context, userID, id string, set bson.M) error {
	res, err := c.coll(notificationsCollection).UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.NotFound("notification", id)
	}
	return nil
}

// DeleteNotification deletes one of the user's notifications.
func (c *mongoCollections) DeleteNotification(ctx context.Context, userID, id string) error {
	res, err := c.coll(notificationsCollection).DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.NotFound("notification", id)
	}
	return nil
}

// CountUnread counts the user's unread notifications.
func (c *mongoCollections) CountUnread(ctx context.Context, userID string) (int, error) {
	n, err := c.coll(notificationsCollection).CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
	return int(n), err
}
