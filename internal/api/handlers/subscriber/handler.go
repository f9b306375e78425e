package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/webstoer2020/Subscription-bot/internal/api/respond"
	"github.com/webstoer2020/Subscription-bot/internal/config"
	"github.com/webstoer2020/Subscription-bot/internal/model"
	subscriberrepo "github.com/webstoer2020/Subscription-bot/internal/repository/subscriber"
)

// subscriptionService defines the interface that the Handler depends on.
//
// Mutating operations report success as a boolean; the handler maps
// unknown subscribers to 404 and everything else to 500.
type subscriptionService interface {
	Grant(ctx context.Context, strategy retry.Strategy, userID int64, username, firstName, lastName string, days, hours, minutes int) bool
	Extend(ctx context.Context, strategy retry.Strategy, userID int64, days, hours, minutes int) bool
	Get(ctx context.Context, userID int64) (model.Subscriber, error)
	List(ctx context.Context, status string) ([]model.Subscriber, error)
	Reminders(ctx context.Context, userID int64) ([]model.Reminder, error)
	Status(ctx context.Context, strategy retry.Strategy, userID int64) (string, error)
	Remove(ctx context.Context, strategy retry.Strategy, userID int64) bool
	Send(to, message, channel string) error
}

// checker triggers the sweeps out-of-band.
type checker interface {
	ForceCheck(ctx context.Context)
}

// Handler handles HTTP requests related to subscribers.
type Handler struct {
	service   subscriptionService
	checker   checker
	validator *validator.Validate
	cfg       *config.Config
}

// NewHandler creates a new Handler instance.
func NewHandler(
	s subscriptionService,
	c checker,
	v *validator.Validate,
	cfg *config.Config,
) *Handler {
	return &Handler{service: s, checker: c, validator: v, cfg: cfg}
}

// GrantRequest represents the JSON body expected when granting a
// subscription.
type GrantRequest struct {
	UserID    int64  `json:"user_id" validate:"required"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Days      int    `json:"days" validate:"gte=0,lte=3650"`
	Hours     int    `json:"hours" validate:"gte=0,lte=8760"`
	Minutes   int    `json:"minutes" validate:"gte=0,lte=525600"`
}

// ExtendRequest represents the JSON body expected when extending a
// subscription.
type ExtendRequest struct {
	Days    int `json:"days" validate:"gte=0,lte=3650"`
	Hours   int `json:"hours" validate:"gte=0,lte=8760"`
	Minutes int `json:"minutes" validate:"gte=0,lte=525600"`
}

// NotifyRequest represents the JSON body for an ad-hoc notification.
type NotifyRequest struct {
	To      string `json:"to" validate:"required"`
	Message string `json:"message" validate:"required"`
	Channel string `json:"channel" validate:"required,oneof=telegram email"`
}

// Grant handles HTTP POST requests to create or replace a subscription.
func (h *Handler) Grant(c *ginext.Context) {
	var req GrantRequest

	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	if req.Days == 0 && req.Hours == 0 && req.Minutes == 0 {
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("duration must be positive"))
		return
	}

	ok := h.service.Grant(c.Request.Context(), h.cfg.Retry, req.UserID, req.Username, req.FirstName, req.LastName, req.Days, req.Hours, req.Minutes)
	if !ok {
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	sub, err := h.service.Get(c.Request.Context(), req.UserID)
	if err != nil {
		zlog.Logger.Error().Err(err).Int64("user_id", req.UserID).Msg("failed to load granted subscriber")
		respond.Created(c.Writer, req.UserID)
		return
	}

	respond.Created(c.Writer, sub)
}

// Extend handles HTTP POST requests to extend an existing subscription.
func (h *Handler) Extend(c *ginext.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req ExtendRequest

	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	if req.Days == 0 && req.Hours == 0 && req.Minutes == 0 {
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("duration must be positive"))
		return
	}

	if ok := h.service.Extend(c.Request.Context(), h.cfg.Retry, userID, req.Days, req.Hours, req.Minutes); !ok {
		if _, err := h.service.Get(c.Request.Context(), userID); errors.Is(err, subscriberrepo.ErrSubscriberNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("subscriber not found"))
			return
		}

		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	sub, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		zlog.Logger.Error().Err(err).Int64("user_id", userID).Msg("failed to load extended subscriber")
		respond.OK(c.Writer, userID)
		return
	}

	respond.OK(c.Writer, sub)
}

// List handles HTTP GET requests to list subscribers, optionally
// filtered by status, ordered soonest-expiring first.
func (h *Handler) List(c *ginext.Context) {
	status := c.Query("status")
	if status != "" && status != model.StatusActive && status != model.StatusExpired {
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid status"))
		return
	}

	subs, err := h.service.List(c.Request.Context(), status)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to list subscribers")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, subs)
}

// Get handles HTTP GET requests for one subscriber, including its
// reminder entries.
func (h *Handler) Get(c *ginext.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	sub, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, subscriberrepo.ErrSubscriberNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("subscriber not found"))
			return
		}

		zlog.Logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get subscriber")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	reminders, err := h.service.Reminders(c.Request.Context(), userID)
	if err != nil {
		zlog.Logger.Error().Err(err).Int64("user_id", userID).Msg("failed to list reminders")
	}

	respond.OK(c.Writer, map[string]interface{}{
		"subscriber": sub,
		"reminders":  reminders,
	})
}

// GetStatus handles HTTP GET requests for a subscriber's status,
// answered from the cache when possible.
func (h *Handler) GetStatus(c *ginext.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	status, err := h.service.Status(c.Request.Context(), h.cfg.Retry, userID)
	if err != nil {
		if errors.Is(err, subscriberrepo.ErrSubscriberNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("subscriber not found"))
			return
		}

		zlog.Logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get subscriber status")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, status)
}

// Remove handles HTTP DELETE requests to remove a subscriber together
// with its reminders.
func (h *Handler) Remove(c *ginext.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	if ok := h.service.Remove(c.Request.Context(), h.cfg.Retry, userID); !ok {
		if _, err := h.service.Get(c.Request.Context(), userID); errors.Is(err, subscriberrepo.ErrSubscriberNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("subscriber not found"))
			return
		}

		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, "subscriber removed")
}

// ForceCheck handles HTTP POST requests that trigger both sweeps
// immediately, outside the periodic timers.
func (h *Handler) ForceCheck(c *ginext.Context) {
	h.checker.ForceCheck(c.Request.Context())
	respond.OK(c.Writer, "check completed")
}

// Notify handles HTTP POST requests to send an ad-hoc message to a
// recipient over the chosen channel.
func (h *Handler) Notify(c *ginext.Context) {
	var req NotifyRequest

	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	if err := h.service.Send(req.To, req.Message, req.Channel); err != nil {
		zlog.Logger.Error().Err(err).Str("to", req.To).Str("channel", req.Channel).Msg("failed to send notification")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, "notification sent")
}

// userID extracts the subscriber ID from the URL, rejecting anything
// unparseable with a 400.
func (h *Handler) userID(c *ginext.Context) (int64, bool) {
	idStr := c.Param("id")

	userID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || userID == 0 {
		zlog.Logger.Warn().Str("id", idStr).Msg("invalid subscriber id")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return 0, false
	}

	return userID, true
}
