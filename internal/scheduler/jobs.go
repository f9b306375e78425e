package scheduler

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/webstoer2020/Subscription-bot/internal/clock"
	"github.com/webstoer2020/Subscription-bot/internal/model"
	"github.com/webstoer2020/Subscription-bot/internal/plan"
)

// kickedMessage is sent to a subscriber right after a successful
// revocation.
const kickedMessage = "Your subscription has ended and your channel access was revoked. Renew your subscription to rejoin."

// subscriptions is the slice of the subscription service the sweeps
// need. Flipping status through the service keeps the cached status in
// step with the store.
type subscriptions interface {
	List(ctx context.Context, status string) ([]model.Subscriber, error)
	SetStatus(ctx context.Context, strategy retry.Strategy, userID int64, status string) bool
}

type reminderStore interface {
	GetDue(ctx context.Context, now time.Time) ([]model.DueReminder, error)
	MarkSent(ctx context.Context, id uuid.UUID, now time.Time) error
}

type accessGateway interface {
	Revoke(ctx context.Context, userID int64) error
}

type notifier interface {
	Send(to string, msg string) error
}

// Jobs contains the two periodic sweeps.
//
// Each sweep attempts every affected row exactly once per tick; rows
// that fail stay in their pre-failure state and are picked up again on
// the next tick, so both sweeps tolerate overlapping runs.
type Jobs struct {
	subs      subscriptions
	reminders reminderStore
	gateway   accessGateway
	notifier  notifier
	clock     clock.Clock
	strategy  retry.Strategy
}

// NewJobs creates the sweep runner.
func NewJobs(subs subscriptions, reminders reminderStore, gateway accessGateway, n notifier, clk clock.Clock, strategy retry.Strategy) *Jobs {
	return &Jobs{
		subs:      subs,
		reminders: reminders,
		gateway:   gateway,
		notifier:  n,
		clock:     clk,
		strategy:  strategy,
	}
}

// CheckNotifications delivers due, unsent reminders and marks them sent.
//
// An entry is marked sent only after its delivery attempt succeeds; a
// failed send leaves it unsent so the next sweep retries it
// (at-least-once delivery bounded by the sweep interval).
func (j *Jobs) CheckNotifications() {
	j.checkNotifications(context.Background())
}

func (j *Jobs) checkNotifications(ctx context.Context) {
	now := j.clock.Now()

	due, err := j.reminders.GetDue(ctx, now)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to get due reminders")
		return
	}

	for _, d := range due {
		msg, ok := plan.Message(d.Kind, d.ValidUntil.In(j.clock.Location()))
		if !ok {
			zlog.Logger.Warn().Str("kind", d.Kind).Int64("user_id", d.UserID).Msg("skipping reminder with unknown kind")
			continue
		}

		if err := j.notifier.Send(chatID(d.UserID), msg); err != nil {
			zlog.Logger.Error().Err(err).Int64("user_id", d.UserID).Str("kind", d.Kind).Msg("failed to send reminder, will retry next sweep")
			continue
		}

		if err := j.reminders.MarkSent(ctx, d.ID, now); err != nil {
			zlog.Logger.Error().Err(err).Int64("user_id", d.UserID).Str("kind", d.Kind).Msg("failed to mark reminder sent")
			continue
		}

		zlog.Logger.Info().Int64("user_id", d.UserID).Str("kind", d.Kind).Msg("reminder sent")
	}
}

// CheckExpired revokes access for subscribers past their validity
// window.
//
// The status flips to expired only after the gateway confirms the
// revocation, so status=expired always implies access was revoked. A
// failed revocation leaves the subscriber active to be re-attempted on
// the next sweep.
func (j *Jobs) CheckExpired() {
	j.checkExpired(context.Background())
}

func (j *Jobs) checkExpired(ctx context.Context) {
	now := j.clock.Now()

	active, err := j.subs.List(ctx, model.StatusActive)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to list active subscribers")
		return
	}

	for _, sub := range active {
		if sub.ValidUntil.After(now) {
			continue
		}

		if err := j.gateway.Revoke(ctx, sub.UserID); err != nil {
			zlog.Logger.Error().Err(err).Int64("user_id", sub.UserID).Msg("failed to revoke channel access, will retry next sweep")
			continue
		}

		if ok := j.subs.SetStatus(ctx, j.strategy, sub.UserID, model.StatusExpired); !ok {
			zlog.Logger.Error().Int64("user_id", sub.UserID).Msg("failed to mark subscriber expired")
			continue
		}

		if err := j.notifier.Send(chatID(sub.UserID), kickedMessage); err != nil {
			zlog.Logger.Error().Err(err).Int64("user_id", sub.UserID).Msg("failed to send kicked notification")
		}

		zlog.Logger.Info().Int64("user_id", sub.UserID).Msg("subscriber expired and access revoked")
	}
}

// ForceCheck runs both sweeps out-of-band, e.g. from the admin API. It
// is safe to run concurrently with the periodic timers: every mutation
// is idempotent and keyed by subscriber or entry ID.
func (j *Jobs) ForceCheck(ctx context.Context) {
	j.checkNotifications(ctx)
	j.checkExpired(ctx)
}

func chatID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
