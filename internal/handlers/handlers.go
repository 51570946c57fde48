package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"inventoryHub/internal/auth"
	"inventoryHub/internal/cache"
	"inventoryHub/internal/db"
	"inventoryHub/internal/notification"
	"inventoryHub/internal/queue"
)

// Notifications is the part of the notification service the API calls.
type Notifications interface {
	notification.PageFetcher
	SendNotification(ctx context.Context, req *notification.NotificationRequest) (*notification.Notification, error)
	MarkAsRead(ctx context.Context, user *notification.UserProfile, id string) error
	MarkAsUnread(ctx context.Context, user *notification.UserProfile, id string) error
	MarkAllAsRead(ctx context.Context, user *notification.UserProfile) (int, error)
	GetNotificationStats(ctx context.Context, user *notification.UserProfile) (*notification.NotificationStats, error)
	Subscribe(ctx context.Context, user *notification.UserProfile, listener func([]notification.View)) *notification.Subscription
}

type UserStore interface {
	CreateUser(ctx context.Context, user *db.User) error
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	UpdateScope(ctx context.Context, uid string, update db.ScopeUpdate) (*db.User, error)
}

// ProfileStore serves caller profiles and drops stale ones after a scope
// change.
type ProfileStore interface {
	cache.ProfileSource
	Invalidate(ctx context.Context, uid string) error
}

type RegistrationQueue interface {
	EnqueueUserRegistration(payload queue.UserRegistrationPayload) (string, error)
}

type Handler struct {
	notifications Notifications
	profiles      ProfileStore
	users         UserStore
	tokens        *auth.TokenIssuer
	registrations RegistrationQueue
	validate      *validator.Validate
	pageSize      int
	heartbeat     time.Duration
	now           func() time.Time
}

type Deps struct {
	Notifications Notifications
	Profiles      ProfileStore
	Users         UserStore
	Tokens        *auth.TokenIssuer
	Registrations RegistrationQueue
	Validate      *validator.Validate
	PageSize      int
}

func New(d Deps) *Handler {
	v := d.Validate
	if v == nil {
		v = auth.NewValidator()
	}
	pageSize := d.PageSize
	if pageSize <= 0 {
		pageSize = notification.DefaultPageSize
	}
	return &Handler{
		notifications: d.Notifications,
		profiles:      d.Profiles,
		users:         d.Users,
		tokens:        d.Tokens,
		registrations: d.Registrations,
		validate:      v,
		pageSize:      pageSize,
		heartbeat:     25 * time.Second,
		now:           time.Now,
	}
}

func (h *Handler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// currentUser resolves the profile of the authenticated caller. On failure
// the response has already been written and the returned error is the
// result of writing it.
func (h *Handler) currentUser(c echo.Context) (*notification.UserProfile, error) {
	uid := auth.UserID(c)
	if uid == "" {
		return nil, c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	profile, err := h.profiles.GetProfile(c.Request().Context(), uid)
	if errors.Is(err, db.ErrUserNotFound) {
		return nil, c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unknown user"})
	}
	if err != nil {
		slog.Error("Failed to load user profile", "error", err, "uid", uid)
		return nil, c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load user profile"})
	}
	return profile, nil
}
