// Package plan computes the reminder schedule for a subscription window.
//
// The offset table below is the single source of truth for both planning
// and message rendering: the kind stored on a reminder row is derived from
// the same Offset that selects its template, so the two cannot drift.
package plan

import (
	"fmt"
	"time"

	"github.com/webstoer2020/Subscription-bot/internal/model"
)

// Unit is the measurement unit of a reminder offset before expiry.
type Unit string

const (
	UnitDays    Unit = "days"
	UnitMinutes Unit = "minutes"
	UnitSeconds Unit = "seconds"
)

// Offset is one reminder position, measured backwards from validUntil.
type Offset struct {
	Value int
	Unit  Unit
}

// Kind returns the tag stored on the reminder row, e.g. "7_days".
func (o Offset) Kind() string {
	return fmt.Sprintf("%d_%s", o.Value, o.Unit)
}

// Duration returns the offset as a time.Duration.
func (o Offset) Duration() time.Duration {
	switch o.Unit {
	case UnitDays:
		return time.Duration(o.Value) * 24 * time.Hour
	case UnitMinutes:
		return time.Duration(o.Value) * time.Minute
	default:
		return time.Duration(o.Value) * time.Second
	}
}

// bucket maps a minimum total granted duration to its offset set.
// Buckets are evaluated in order; the first match wins.
type bucket struct {
	minTotal time.Duration
	offsets  []Offset
}

var buckets = []bucket{
	{24 * time.Hour, []Offset{{7, UnitDays}, {3, UnitDays}, {1, UnitDays}, {0, UnitDays}}},
	{time.Hour, []Offset{{60, UnitMinutes}, {30, UnitMinutes}, {10, UnitMinutes}, {0, UnitMinutes}}},
	{0, []Offset{{10, UnitMinutes}, {5, UnitMinutes}, {2, UnitMinutes}, {1, UnitMinutes}, {0, UnitMinutes}}},
}

// finalCountdown is scheduled for every window regardless of bucket, so
// even a very short grant gets a last-moment notification.
var finalCountdown = Offset{5, UnitSeconds}

// Total converts a grant expressed in days/hours/minutes to a duration.
func Total(days, hours, minutes int) time.Duration {
	return time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute
}

func offsetsFor(total time.Duration) []Offset {
	for _, b := range buckets {
		if total >= b.minTotal {
			return b.offsets
		}
	}
	return nil
}

// Reminders plans the reminder batch for a subscription window.
//
// total is the full granted duration (for an extension: from the original
// validFrom to the new validUntil, not the increment), which selects the
// bucket. Due times that are not strictly in the future are dropped and
// never back-filled.
func Reminders(userID int64, now, validUntil time.Time, total time.Duration) []model.Reminder {
	offsets := offsetsFor(total)

	reminders := make([]model.Reminder, 0, len(offsets)+1)

	if due := validUntil.Add(-finalCountdown.Duration()); due.After(now) {
		reminders = append(reminders, model.Reminder{
			UserID: userID,
			Kind:   finalCountdown.Kind(),
			DueAt:  due,
		})
	}

	for _, o := range offsets {
		due := validUntil.Add(-o.Duration())
		if !due.After(now) {
			continue
		}
		reminders = append(reminders, model.Reminder{
			UserID: userID,
			Kind:   o.Kind(),
			DueAt:  due,
		})
	}

	return reminders
}
