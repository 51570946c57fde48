package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"inventoryHub/internal/auth"
	"inventoryHub/internal/db"
	"inventoryHub/internal/notification"
	"inventoryHub/internal/queue"
)

func (h *Handler) Signup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := auth.ValidateEmail(h.validate, req.Email); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.validate.Var(req.Password, "password"); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Password must be at least 8 characters long and contain uppercase, lowercase, number, and special character",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create user"})
	}

	user := &db.User{
		ID:         uuid.NewString(),
		Email:      strings.ToLower(req.Email),
		Password:   hashed,
		Role:       notification.RoleUser,
		Branch:     req.Branch,
		Department: req.Department,
		Province:   req.Province,
	}
	if err := h.users.CreateUser(c.Request().Context(), user); err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "Email already registered"})
		}
		slog.Error("Failed to create user", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create user"})
	}

	// The account exists either way; a lost review notice is not worth
	// failing the signup for.
	if h.registrations != nil {
		taskID, err := h.registrations.EnqueueUserRegistration(queue.UserRegistrationPayload{
			UID:        user.ID,
			Email:      user.Email,
			ProvinceID: user.Province,
		})
		if err != nil {
			slog.Warn("Failed to enqueue registration notification", "error", err, "uid", user.ID)
		} else {
			slog.Info("Enqueued registration notification", "uid", user.ID, "task_id", taskID)
		}
	}

	return c.JSON(http.StatusCreated, user)
}

func (h *Handler) Login(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := auth.ValidateEmail(h.validate, req.Email); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user, err := h.users.GetUserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if !errors.Is(err, db.ErrUserNotFound) {
			slog.Error("Failed to look up user", "error", err)
		}
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	}

	if err := auth.VerifyPassword(user.Password, req.Password); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	}

	token, err := h.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		slog.Error("Failed to generate token", "error", err, "uid", user.ID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate token"})
	}

	return c.JSON(http.StatusOK, auth.LoginResponse{Token: token})
}
