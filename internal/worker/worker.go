package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"inventoryHub/internal/notification"
	"inventoryHub/internal/queue"
)

const RegistrationTitle = "New User Registration"

type NotificationSender interface {
	SendNotification(ctx context.Context, req *notification.NotificationRequest) (*notification.Notification, error)
}

type Worker struct {
	server        *asynq.Server
	notifications NotificationSender
	concurrency   int
}

func NewWorker(redisAddr string, concurrency int, notifications NotificationSender) *Worker {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				queue.QueueNotifications: 1,
			},
		},
	)

	return &Worker{
		server:        server,
		notifications: notifications,
		concurrency:   concurrency,
	}
}

func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskUserRegistration, w.HandleUserRegistration)
	return mux
}

func (w *Worker) Start(ctx context.Context) error {
	slog.Info("Starting worker",
		"queues", []string{queue.QueueNotifications},
		"concurrency", w.concurrency)

	if err := w.server.Start(w.Mux()); err != nil {
		return err
	}

	slog.Info("Worker started successfully")

	<-ctx.Done()

	w.server.Shutdown()
	slog.Info("Worker stopped")
	return nil
}

// HandleUserRegistration posts the review notice for a new account to the
// roles that approve users, scoped to the account's province.
func (w *Worker) HandleUserRegistration(ctx context.Context, t *asynq.Task) error {
	var payload queue.UserRegistrationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.UID == "" {
		return fmt.Errorf("registration payload without uid: %w", asynq.SkipRetry)
	}

	created, err := w.notifications.SendNotification(ctx, &notification.NotificationRequest{
		Title:       RegistrationTitle,
		Description: fmt.Sprintf("%s registered and is waiting for review", payload.Email),
		Type:        notification.TypeInfo,
		TargetRoles: []string{
			notification.RoleSuperAdmin,
			notification.RoleProvinceAdmin,
			notification.RoleGeneralManager,
		},
		ProvinceID: payload.ProvinceID,
		Link:       "/review-users?uid=" + payload.UID,
	})
	if err != nil {
		slog.Error("Failed to send registration notification", "error", err, "uid", payload.UID)
		return err
	}

	slog.Info("Successfully processed user registration",
		"uid", payload.UID,
		"province_id", payload.ProvinceID,
		"notification_id", created.ID)
	return nil
}
