package subscription

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/webstoer2020/Subscription-bot/internal/clock"
	"github.com/webstoer2020/Subscription-bot/internal/model"
	"github.com/webstoer2020/Subscription-bot/internal/plan"
	subscriberrepo "github.com/webstoer2020/Subscription-bot/internal/repository/subscriber"
)

type subscriberRepository interface {
	Grant(ctx context.Context, sub model.Subscriber, details string, reminders []model.Reminder) error
	Extend(ctx context.Context, userID int64, newValidUntil, now time.Time, details string, reminders []model.Reminder) error
	Get(ctx context.Context, userID int64) (model.Subscriber, error)
	ListByStatus(ctx context.Context, status string) ([]model.Subscriber, error)
	UpdateStatus(ctx context.Context, userID int64, status string, now time.Time) error
	Delete(ctx context.Context, userID int64) error
}

type reminderRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]model.Reminder, error)
}

type accessGateway interface {
	Restore(ctx context.Context, userID int64) error
	Revoke(ctx context.Context, userID int64) error
}

// Notifier delivers a rendered message over one channel.
type Notifier interface {
	Send(to string, msg string) error
}

type cache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
	GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error)
}

// Service orchestrates the subscription lifecycle.
//
// Storage failures on mutating operations are logged and reported as
// boolean failures, never propagated, so a failed action can simply be
// retried by the caller or the next sweep.
type Service struct {
	subs      subscriberRepository
	reminders reminderRepository
	gateway   accessGateway
	notifiers map[string]Notifier
	cache     cache
	clock     clock.Clock
}

func NewService(
	subs subscriberRepository,
	reminders reminderRepository,
	gateway accessGateway,
	notifiers map[string]Notifier,
	cache cache,
	clk clock.Clock,
) *Service {
	return &Service{
		subs:      subs,
		reminders: reminders,
		gateway:   gateway,
		notifiers: notifiers,
		cache:     cache,
		clock:     clk,
	}
}

// Grant creates or fully replaces a subscriber's access window and
// plans its reminder batch. The subscriber is unbanned first so a
// previously revoked user can re-enter the channel.
func (s *Service) Grant(ctx context.Context, strategy retry.Strategy, userID int64, username, firstName, lastName string, days, hours, minutes int) bool {
	if err := s.gateway.Restore(ctx, userID); err != nil {
		zlog.Logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to restore channel access, granting anyway")
	}

	now := s.clock.Now()
	total := plan.Total(days, hours, minutes)
	validUntil := now.Add(total)

	sub := model.Subscriber{
		UserID:     userID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		ValidFrom:  now,
		ValidUntil: validUntil,
		Status:     model.StatusActive,
		UpdatedAt:  now,
	}

	details := fmt.Sprintf("granted for %d days, %d hours, %d minutes", days, hours, minutes)
	reminders := plan.Reminders(userID, now, validUntil, total)

	if err := s.subs.Grant(ctx, sub, details, reminders); err != nil {
		zlog.Logger.Error().Err(err).Int64("user_id", userID).Msg("failed to grant subscription")
		return false
	}

	s.cacheStatus(ctx, strategy, userID, model.StatusActive)

	return true
}

// Extend pushes an existing subscriber's validUntil forward by the
// given duration and replans reminders using the total window from the
// original validFrom, so a window that grows past a bucket boundary is
// replanned into the coarser bucket. An expired subscriber is revived.
//
// Reports false when the subscriber is unknown.
func (s *Service) Extend(ctx context.Context, strategy retry.Strategy, userID int64, days, hours, minutes int) bool {
	sub, err := s.subs.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, subscriberrepo.ErrSubscriberNotFound) {
			zlog.Logger.Warn().Int64("user_id", userID).Msg("cannot extend unknown subscriber")
		} else {
			zlog.Logger.Error().Err(err).Int64("user_id", userID).Msg("failed to load subscriber for extension")
		}
		return false
	}

	if err := s.gateway.Restore(ctx, userID); err != nil {
		zlog.Logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to restore channel access, extending anyway")
	}

	now := s.clock.Now()
	newValidUntil := sub.ValidUntil.Add(plan.Total(days, hours, minutes))

	details := fmt.Sprintf("extended by %d days, %d hours, %d minutes", days, hours, minutes)
	reminders := plan.Reminders(userID, now, newValidUntil, newValidUntil.Sub(sub.ValidFrom))

	if err := s.subs.Extend(ctx, userID, newValidUntil, now, details, reminders); err != nil {
		if errors.Is(err, subscriberrepo.ErrSubscriberNotFound) {
			zlog.Logger.Warn().Int64("user_id", userID).Msg("cannot extend unknown subscriber")
		} else {
			zlog.Logger.Error().Err(err).Int64("user_id", userID).Msg("failed to extend subscription")
		}
		return false
	}

	s.cacheStatus(ctx, strategy, userID, model.StatusActive)

	return true
}

// Get retrieves a subscriber.
func (s *Service) Get(ctx context.Context, userID int64) (model.Subscriber, error) {
	sub, err := s.subs.Get(ctx, userID)
	if err != nil {
		return model.Subscriber{}, fmt.Errorf("get subscriber: %w", err)
	}

	return sub, nil
}

// List retrieves subscribers by status, soonest-expiring first. An
// empty status lists everyone.
func (s *Service) List(ctx context.Context, status string) ([]model.Subscriber, error) {
	subs, err := s.subs.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	return subs, nil
}

// Reminders retrieves a subscriber's reminder entries, sent and unsent.
func (s *Service) Reminders(ctx context.Context, userID int64) ([]model.Reminder, error) {
	reminders, err := s.reminders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}

	return reminders, nil
}

// Status reports a subscriber's status, preferring the cache and
// falling back to the store on a miss.
func (s *Service) Status(ctx context.Context, strategy retry.Strategy, userID int64) (string, error) {
	key := statusKey(userID)

	status, err := s.cache.GetWithRetry(ctx, strategy, key)
	if err != nil && !errors.Is(err, redis.Nil) {
		zlog.Logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get subscriber status from cache")
	}

	// An empty value marks a removed subscriber; treat it as a miss so
	// the store decides whether the subscriber still exists.
	if err != nil || status == "" {
		sub, err := s.subs.Get(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("get subscriber status: %w", err)
		}
		status = sub.Status

		s.cacheStatus(ctx, strategy, userID, status)
	}

	return status, nil
}

// SetStatus updates a subscriber's status. Reports false when the
// subscriber is unknown or the store fails.
func (s *Service) SetStatus(ctx context.Context, strategy retry.Strategy, userID int64, status string) bool {
	if err := s.subs.UpdateStatus(ctx, userID, status, s.clock.Now()); err != nil {
		zlog.Logger.Error().Err(err).Int64("user_id", userID).Msg("failed to update subscriber status")
		return false
	}

	s.cacheStatus(ctx, strategy, userID, status)

	return true
}

// Remove deletes a subscriber together with its reminder entries and
// revokes their channel access. The revocation is best-effort: once the
// row is gone the expiry sweep can no longer reach the user, so a
// failed kick is logged rather than undoing the removal.
func (s *Service) Remove(ctx context.Context, strategy retry.Strategy, userID int64) bool {
	if err := s.subs.Delete(ctx, userID); err != nil {
		if errors.Is(err, subscriberrepo.ErrSubscriberNotFound) {
			zlog.Logger.Warn().Int64("user_id", userID).Msg("cannot remove unknown subscriber")
		} else {
			zlog.Logger.Error().Err(err).Int64("user_id", userID).Msg("failed to remove subscriber")
		}
		return false
	}

	if err := s.gateway.Revoke(ctx, userID); err != nil {
		zlog.Logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to revoke channel access for removed subscriber")
	}

	s.cacheStatus(ctx, strategy, userID, "")

	return true
}

// Send delivers an ad-hoc message over the named channel.
func (s *Service) Send(to, message, channel string) error {
	notifier, ok := s.notifiers[channel]
	if !ok {
		return fmt.Errorf("unknown channel %s", channel)
	}

	err := notifier.Send(to, message)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	return nil
}

func (s *Service) cacheStatus(ctx context.Context, strategy retry.Strategy, userID int64, status string) {
	if err := s.cache.SetWithRetry(ctx, strategy, statusKey(userID), status); err != nil {
		zlog.Logger.Error().Err(err).Int64("user_id", userID).Msg("failed to cache subscriber status")
	}
}

func statusKey(userID int64) string {
	return "subscriber:" + strconv.FormatInt(userID, 10)
}
