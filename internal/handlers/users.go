package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"inventoryHub/internal/db"
	"inventoryHub/internal/notification"
)

// UpdateUserScope lets a super admin change another user's role, branch,
// department and provinces. The cached profile is dropped so notification
// relevance follows the new scope on the next request.
func (h *Handler) UpdateUserScope(c echo.Context) error {
	caller, err := h.currentUser(c)
	if caller == nil {
		return err
	}
	if !strings.EqualFold(caller.Role, notification.RoleSuperAdmin) {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Only super admins can change user scope"})
	}

	var req db.ScopeUpdate
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	uid := c.Param("id")
	ctx := c.Request().Context()
	user, err := h.users.UpdateScope(ctx, uid, req)
	if errors.Is(err, db.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
	}
	if err != nil {
		slog.Error("Failed to update user scope", "error", err, "uid", uid)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update user"})
	}

	if err := h.profiles.Invalidate(ctx, uid); err != nil {
		slog.Warn("Failed to invalidate cached profile", "error", err, "uid", uid)
	}

	return c.JSON(http.StatusOK, user)
}
