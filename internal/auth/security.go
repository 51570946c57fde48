package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	limiterpkg "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"inventoryHub/internal/notification"
)

var disposableDomains = []string{
	"tempmail.com",
	"throwawaymail.com",
	"mailinator.com",
}

// NewValidator returns a validator with the password and notification_type
// rules registered. It panics if a rule cannot be registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	mustRegister(v, "password", validatePassword)
	mustRegister(v, "notification_type", validateNotificationType)
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

func validatePassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()

	if len(password) < 8 {
		return false
	}
	if !strings.ContainsAny(password, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return false
	}
	if !strings.ContainsAny(password, "abcdefghijklmnopqrstuvwxyz") {
		return false
	}
	if !strings.ContainsAny(password, "0123456789") {
		return false
	}
	return strings.ContainsAny(password, "!@#$%^&*()_+-=[]{}|;:,.<>?")
}

func validateNotificationType(fl validator.FieldLevel) bool {
	return notification.NotificationType(fl.Field().String()).Valid()
}

func ValidateEmail(v *validator.Validate, email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if err := v.Var(email, "required,email,max=255"); err != nil {
		return errors.New("invalid email format")
	}
	for _, domain := range disposableDomains {
		if strings.HasSuffix(strings.ToLower(email), "@"+domain) {
			return errors.New("disposable email addresses are not allowed")
		}
	}
	return nil
}

// RateLimiter caps requests per client IP on the public auth routes.
type RateLimiter struct {
	limiter *limiterpkg.Limiter
}

func NewRateLimiter(perMinute int64) *RateLimiter {
	rate := limiterpkg.Rate{
		Period: time.Minute,
		Limit:  perMinute,
	}
	return &RateLimiter{limiter: limiterpkg.New(memory.NewStore(), rate)}
}

func (r *RateLimiter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ip := c.RealIP()
		context, err := r.limiter.Get(c.Request().Context(), ip)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "rate limit error",
			})
		}

		if context.Reached {
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded",
			})
		}

		return next(c)
	}
}
