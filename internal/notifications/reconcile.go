package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-backoffice/internal/db"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

// Alert is the desired notification state for one link.
type Alert struct {
	Link    string
	State   State
	Message string
	Details string
}

// Outcome reports what Reconcile wrote.
type Outcome int

const (
	Unchanged Outcome = iota
	Created
	Refreshed
	Removed
)

// Reconciler applies alerts for one user against that user's stored
// notifications, indexed by (link, type). It is not safe for concurrent use.
type Reconciler struct {
	userID  string
	store   db.NotificationCollection
	byKey   map[models.NotificationKey]*models.Notification
	created []models.Notification
	now     func() time.Time
	log     *logrus.Entry

	writes   int
	failures int
}

// NewReconciler loads the user's notifications once.
func NewReconciler(ctx context.Context, store db.NotificationCollection, userID string, log *logrus.Entry) (*Reconciler, error) {
	existing, err := store.ListNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}
	r := &Reconciler{
		userID: userID,
		store:  store,
		byKey:  make(map[models.NotificationKey]*models.Notification, len(existing)),
		now:    time.Now,
		log:    log,
	}
	for i := range existing {
		n := &existing[i]
		r.byKey[n.Key()] = n
	}
	return r, nil
}

// Reconcile moves the link to the alert's state:
//   - critical removes a warning and creates or refreshes the critical
//   - warning creates or refreshes the warning and leaves a critical alone
//   - none removes both
//
// A refresh writes only when message, details or the read flag differ, and
// always leaves the notification unread.
func (r *Reconciler) Reconcile(ctx context.Context, a Alert) (Outcome, error) {
	warning := models.NotificationKey{Link: a.Link, Type: models.NotificationWarning}
	critical := models.NotificationKey{Link: a.Link, Type: models.NotificationCritical}

	switch a.State {
	case StateCritical:
		if err := r.remove(ctx, warning); err != nil {
			return Unchanged, err
		}
		return r.upsert(ctx, critical, a)
	case StateWarning:
		return r.upsert(ctx, warning, a)
	case StateNone:
		removedWarning := r.byKey[warning] != nil
		if err := r.remove(ctx, warning); err != nil {
			return Unchanged, err
		}
		removedCritical := r.byKey[critical] != nil
		if err := r.remove(ctx, critical); err != nil {
			return Unchanged, err
		}
		if removedWarning || removedCritical {
			return Removed, nil
		}
		return Unchanged, nil
	default:
		return Unchanged, models.Invalid("state", "unknown state %d", a.State)
	}
}

func (r *Reconciler) upsert(ctx context.Context, key models.NotificationKey, a Alert) (Outcome, error) {
	if n, ok := r.byKey[key]; ok {
		if n.Message == a.Message && n.Details == a.Details && !n.Read {
			return Unchanged, nil
		}
		updated := *n
		updated.Message = a.Message
		updated.Details = a.Details
		updated.Read = false
		if err := r.store.UpdateNotification(ctx, updated); err != nil {
			return Unchanged, err
		}
		r.writes++
		*n = updated
		return Refreshed, nil
	}

	now := r.now()
	n := models.Notification{
		ID:        uuid.NewString(),
		UserID:    r.userID,
		Type:      key.Type,
		Message:   a.Message,
		Details:   a.Details,
		Link:      a.Link,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.InsertNotification(ctx, n); err != nil {
		return Unchanged, err
	}
	r.writes++
	r.byKey[key] = &n
	r.created = append(r.created, n)
	return Created, nil
}

func (r *Reconciler) remove(ctx context.Context, key models.NotificationKey) error {
	n, ok := r.byKey[key]
	if !ok {
		return nil
	}
	if err := r.store.DeleteNotification(ctx, r.userID, n.ID); err != nil {
		return err
	}
	r.writes++
	delete(r.byKey, key)
	return nil
}

// Fail records a subject that could not be evaluated.
func (r *Reconciler) Fail(subject, id string, err error) {
	r.failures++
	r.log.WithError(err).WithFields(logrus.Fields{
		"user_id": r.userID,
		"subject": subject,
		"id":      id,
	}).Warn("Failed to evaluate notification subject")
}

// Created returns the notifications inserted so far.
func (r *Reconciler) Created() []models.Notification {
	return r.created
}

// Writes counts inserts, updates and deletes issued so far.
func (r *Reconciler) Writes() int {
	return r.writes
}

// Failures counts subjects that failed.
func (r *Reconciler) Failures() int {
	return r.failures
}
