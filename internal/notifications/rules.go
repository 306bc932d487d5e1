// Package notifications evaluates expiry dates of drivers, vehicle documents and
// fuel cards and keeps each user's notification set in line with them.
package notifications

import (
	"time"

	"github.com/ukydev/fleet-backoffice/internal/models"
)

// WarningWindowDays is how many days before expiry a warning is raised.
const WarningWindowDays = 30

// State is the target notification state of one subject.
type State int

const (
	StateNone State = iota
	StateWarning
	StateCritical
)

func (s State) String() string {
	switch s {
	case StateWarning:
		return "warning"
	case StateCritical:
		return "critical"
	default:
		return "none"
	}
}

// NotificationType maps a state to the notification type it produces. StateNone
// has no type.
func (s State) NotificationType() models.NotificationType {
	switch s {
	case StateWarning:
		return models.NotificationWarning
	case StateCritical:
		return models.NotificationCritical
	default:
		return ""
	}
}

// DaysUntil counts whole calendar days (UTC) from today to date. It is negative
// once date has passed.
func DaysUntil(date, today time.Time) int {
	d := truncateDay(date)
	t := truncateDay(today)
	return int(d.Sub(t).Hours() / 24)
}

// Classify returns the state for an expiry date: expired is critical, within the
// warning window (inclusive) is a warning, anything later or a zero date is none.
func Classify(expiresAt, today time.Time) (State, int) {
	if expiresAt.IsZero() {
		return StateNone, 0
	}
	days := DaysUntil(expiresAt, today)
	switch {
	case days < 0:
		return StateCritical, days
	case days <= WarningWindowDays:
		return StateWarning, days
	default:
		return StateNone, days
	}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
