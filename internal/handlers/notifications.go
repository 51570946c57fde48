package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"inventoryHub/internal/notification"
)

var publisherRoles = []string{
	notification.RoleSuperAdmin,
	notification.RoleProvinceAdmin,
	notification.RoleGeneralManager,
}

func canPublish(user *notification.UserProfile) bool {
	for _, role := range publisherRoles {
		if strings.EqualFold(user.Role, role) {
			return true
		}
	}
	return false
}

func (h *Handler) GetNotifications(c echo.Context) error {
	user, err := h.currentUser(c)
	if user == nil {
		return err
	}

	pageSize := h.pageSize
	if raw := c.QueryParam("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "page_size must be a positive integer"})
		}
		pageSize = n
	}

	cursor := c.QueryParam("cursor")
	if _, err := notification.DecodeCursor(cursor); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid cursor"})
	}

	page := h.notifications.FetchPage(c.Request().Context(), user, pageSize, cursor)
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) GetNotificationStats(c echo.Context) error {
	user, err := h.currentUser(c)
	if user == nil {
		return err
	}

	stats, err := h.notifications.GetNotificationStats(c.Request().Context(), user)
	if err != nil {
		slog.Error("Failed to get notification stats", "error", err, "uid", user.UID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get notification stats"})
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) CreateNotification(c echo.Context) error {
	user, err := h.currentUser(c)
	if user == nil {
		return err
	}
	if !canPublish(user) {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Insufficient role to publish notifications"})
	}

	var req notification.NotificationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	created, err := h.notifications.SendNotification(c.Request().Context(), &req)
	if err != nil {
		if errors.Is(err, notification.ErrInvalidNotification) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		slog.Error("Failed to create notification", "error", err, "uid", user.UID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create notification"})
	}

	return c.JSON(http.StatusCreated, notification.NewView(created, user.UID))
}

func (h *Handler) MarkAsRead(c echo.Context) error {
	return h.setRead(c, true)
}

func (h *Handler) MarkAsUnread(c echo.Context) error {
	return h.setRead(c, false)
}

func (h *Handler) setRead(c echo.Context, read bool) error {
	user, err := h.currentUser(c)
	if user == nil {
		return err
	}

	id := c.Param("id")
	ctx := c.Request().Context()
	if read {
		err = h.notifications.MarkAsRead(ctx, user, id)
	} else {
		err = h.notifications.MarkAsUnread(ctx, user, id)
	}

	switch {
	case errors.Is(err, notification.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
	case err != nil:
		slog.Error("Failed to update read state", "error", err, "uid", user.UID, "notification_id", id, "read", read)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update notification"})
	}

	return c.JSON(http.StatusOK, map[string]any{"id": id, "is_read": read})
}

func (h *Handler) MarkAllAsRead(c echo.Context) error {
	user, err := h.currentUser(c)
	if user == nil {
		return err
	}

	updated, err := h.notifications.MarkAllAsRead(c.Request().Context(), user)
	if err != nil {
		slog.Error("Failed to mark all notifications as read", "error", err, "uid", user.UID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update notifications"})
	}
	return c.JSON(http.StatusOK, map[string]int{"updated": updated})
}
