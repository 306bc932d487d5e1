package models

import "time"

// NotificationType is the severity of a notification.
type NotificationType string

const (
	NotificationInfo     NotificationType = "info"
	NotificationSuccess  NotificationType = "success"
	NotificationWarning  NotificationType = "warning"
	NotificationError    NotificationType = "error"
	NotificationCritical NotificationType = "critical"
)

// Notification is a per-user message about a fleet entity.
type Notification struct {
	ID        string           `bson:"_id" json:"id"`
	UserID    string           `bson:"user_id" json:"user_id"`
	Type      NotificationType `bson:"type" json:"type"`
	Message   string           `bson:"message" json:"message"`
	Details   string           `bson:"details" json:"details"`
	Link      string           `bson:"link" json:"link"`
	Read      bool             `bson:"read" json:"read"`
	CreatedAt time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time        `bson:"updated_at" json:"updated_at"`
}

// NotificationKey identifies a notification during reconciliation.
type NotificationKey struct {
	Link string
	Type NotificationType
}

// Key returns the reconciliation key of n.
func (n *Notification) Key() NotificationKey {
	return NotificationKey{Link: n.Link, Type: n.Type}
}
