package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"inventoryHub/internal/notification"
)

// StreamNotifications pushes the caller's inbox as Server-Sent Events. The
// first event is the first page; each later one follows a store change.
// Closing the connection releases the subscription.
func (h *Handler) StreamNotifications(c echo.Context) error {
	user, err := h.currentUser(c)
	if user == nil {
		return err
	}

	ctx := c.Request().Context()
	inbox := notification.NewInbox(h.notifications, user, h.pageSize)
	inbox.Refresh(ctx)

	// Holds at most the latest state; a slow client skips intermediate ones.
	updates := make(chan notification.InboxState, 1)
	publish := func(state notification.InboxState) {
		select {
		case <-updates:
		default:
		}
		updates <- state
	}
	publish(inbox.State())

	sub := h.notifications.Subscribe(ctx, user, func(views []notification.View) {
		inbox.Apply(views)
		inbox.Prune(h.now())
		publish(inbox.State())
	})
	defer sub.Unsubscribe()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done():
			// Feed gave up after retries; let the client reconnect.
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case state := <-updates:
			if err := writeEvent(res, "inbox", state); err != nil {
				slog.Warn("Notification stream closed", "uid", user.UID, "error", err)
				return nil
			}
		}
	}
}

func writeEvent(res *echo.Response, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
