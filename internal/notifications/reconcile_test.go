package notifications

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-backoffice/internal/db/sqlite"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })
	return store
}

func newTestReconciler(t *testing.T, store *sqlite.Store, userID string) *Reconciler {
	t.Helper()
	rec, err := NewReconciler(context.Background(), store.Notifications(), userID, newTestLogger().WithField("test", t.Name()))
	require.NoError(t, err)
	return rec
}

func typesByLink(t *testing.T, store *sqlite.Store, userID string) map[string][]models.NotificationType {
	t.Helper()
	list, err := store.ListNotifications(context.Background(), userID)
	require.NoError(t, err)
	out := map[string][]models.NotificationType{}
	for _, n := range list {
		out[n.Link] = append(out[n.Link], n.Type)
	}
	return out
}

func TestReconcile_CriticalReplacesWarning(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	rec := newTestReconciler(t, store, "u1")

	out, err := rec.Reconcile(ctx, Alert{Link: "/fleet/drivers/d1", State: StateWarning, Message: "soon"})
	require.NoError(t, err)
	assert.Equal(t, Created, out)

	// a fresh reconciler sees the stored warning
	rec = newTestReconciler(t, store, "u1")
	out, err = rec.Reconcile(ctx, Alert{Link: "/fleet/drivers/d1", State: StateCritical, Message: "expired"})
	require.NoError(t, err)
	assert.Equal(t, Created, out)

	assert.Equal(t, map[string][]models.NotificationType{
		"/fleet/drivers/d1": {models.NotificationCritical},
	}, typesByLink(t, store, "u1"))
	require.Len(t, rec.Created(), 1)
	assert.Equal(t, models.NotificationCritical, rec.Created()[0].Type)
}

func TestReconcile_WarningKeepsCritical(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	rec := newTestReconciler(t, store, "u1")

	_, err := rec.Reconcile(ctx, Alert{Link: "/x", State: StateCritical, Message: "expired"})
	require.NoError(t, err)
	_, err = rec.Reconcile(ctx, Alert{Link: "/x", State: StateWarning, Message: "soon"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []models.NotificationType{models.NotificationCritical, models.NotificationWarning},
		typesByLink(t, store, "u1")["/x"])
}

func TestReconcile_NoneRemovesBoth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	rec := newTestReconciler(t, store, "u1")

	_, err := rec.Reconcile(ctx, Alert{Link: "/x", State: StateCritical, Message: "expired"})
	require.NoError(t, err)
	_, err = rec.Reconcile(ctx, Alert{Link: "/x", State: StateWarning, Message: "soon"})
	require.NoError(t, err)

	out, err := rec.Reconcile(ctx, Alert{Link: "/x", State: StateNone})
	require.NoError(t, err)
	assert.Equal(t, Removed, out)
	assert.Empty(t, typesByLink(t, store, "u1"))

	out, err = rec.Reconcile(ctx, Alert{Link: "/x", State: StateNone})
	require.NoError(t, err)
	assert.Equal(t, Unchanged, out)
}

func TestReconcile_RefreshOnlyWhenDifferent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	rec := newTestReconciler(t, store, "u1")

	alert := Alert{Link: "/x", State: StateWarning, Message: "expires in 5 day(s)", Details: "d"}
	_, err := rec.Reconcile(ctx, alert)
	require.NoError(t, err)
	writes := rec.Writes()

	out, err := rec.Reconcile(ctx, alert)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, out)
	assert.Equal(t, writes, rec.Writes())

	alert.Message = "expires in 4 day(s)"
	out, err = rec.Reconcile(ctx, alert)
	require.NoError(t, err)
	assert.Equal(t, Refreshed, out)
	assert.Len(t, rec.Created(), 1)

	list, err := store.ListNotifications(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "expires in 4 day(s)", list[0].Message)
}

func TestReconcile_RefreshResetsRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	rec := newTestReconciler(t, store, "u1")

	alert := Alert{Link: "/x", State: StateCritical, Message: "expired"}
	_, err := rec.Reconcile(ctx, alert)
	require.NoError(t, err)
	id := rec.Created()[0].ID
	require.NoError(t, store.MarkNotificationRead(ctx, "u1", id))

	rec = newTestReconciler(t, store, "u1")
	out, err := rec.Reconcile(ctx, alert)
	require.NoError(t, err)
	assert.Equal(t, Refreshed, out)

	unread, err := store.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestReconcile_ScopedByUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := newTestReconciler(t, store, "u1").Reconcile(ctx, Alert{Link: "/x", State: StateWarning, Message: "m"})
	require.NoError(t, err)
	out, err := newTestReconciler(t, store, "u2").Reconcile(ctx, Alert{Link: "/x", State: StateWarning, Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, Created, out)

	out, err = newTestReconciler(t, store, "u2").Reconcile(ctx, Alert{Link: "/x", State: StateNone})
	require.NoError(t, err)
	assert.Equal(t, Removed, out)
	assert.Len(t, typesByLink(t, store, "u1"), 1)
}
