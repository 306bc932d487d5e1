package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-backoffice/internal/db"
	"github.com/ukydev/fleet-backoffice/internal/keylock"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

// Evaluator runs every registered checker for a user. Runs for the same user
// are serialized; different users run concurrently.
type Evaluator struct {
	store     db.Store
	checkers  []Checker
	publisher Publisher
	locks     *keylock.Map
	now       func() time.Time
	log       *logrus.Entry
}

// NewEvaluator creates an evaluator with the driver license, vehicle document
// and fuel card checkers registered.
func NewEvaluator(store db.Store, publisher Publisher, logger *logrus.Logger) *Evaluator {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	log := logger.WithField("component", "notifications")
	e := &Evaluator{
		store:     store,
		publisher: publisher,
		locks:     keylock.New(),
		now:       time.Now,
		log:       log,
	}
	e.Register(&DriverLicenseChecker{Drivers: store.Drivers()})
	e.Register(&VehicleDocumentChecker{Vehicles: store.Vehicles(), Log: log})
	e.Register(&FuelCardChecker{Cards: store.FuelCards()})
	return e
}

// Register appends a checker. Checkers run in registration order.
func (e *Evaluator) Register(c Checker) {
	e.checkers = append(e.checkers, c)
}

// Run evaluates every checker for userID and returns the user's notifications
// afterwards. Checker failures are logged and do not stop the run.
func (e *Evaluator) Run(ctx context.Context, userID string) ([]models.Notification, error) {
	if userID == "" {
		return nil, models.Invalid("user_id", "is required")
	}
	unlock := e.locks.Lock(userID)
	defer unlock()

	started := time.Now()
	log := e.log.WithField("user_id", userID)
	rec, err := NewReconciler(ctx, e.store.Notifications(), userID, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}
	rec.now = e.now

	today := e.now()
	failed := 0
	for _, c := range e.checkers {
		if err := runChecker(ctx, c, rec, today); err != nil {
			failed++
			log.WithError(err).WithField("checker", c.Name()).Error("Notification checker failed")
		}
	}

	for _, n := range rec.Created() {
		if err := e.publisher.Publish(ctx, n); err != nil {
			log.WithError(err).WithField("notification_id", n.ID).Warn("Failed to publish notification")
		}
	}

	log.WithFields(logrus.Fields{
		"created":         len(rec.Created()),
		"writes":          rec.Writes(),
		"failed_subjects": rec.Failures(),
		"failed_checkers": failed,
		"duration":        time.Since(started).String(),
	}).Info("Notification check completed")

	return e.store.Notifications().ListNotifications(ctx, userID)
}

// runChecker isolates a checker, turning a panic into an error.
func runChecker(ctx context.Context, c Checker, rec *Reconciler, today time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("checker %s panicked: %v", c.Name(), r)
		}
	}()
	return c.Check(ctx, rec, today)
}

// RunAll runs the evaluator for every active user. It returns how many users
// were evaluated successfully.
func (e *Evaluator) RunAll(ctx context.Context) (int, error) {
	users, err := e.store.Users().ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}
	done := 0
	for _, u := range users {
		if !u.IsActive {
			continue
		}
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := e.Run(ctx, u.ID); err != nil {
			e.log.WithError(err).WithField("user_id", u.ID).Error("Notification check failed")
			continue
		}
		done++
	}
	return done, nil
}
