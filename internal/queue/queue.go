package queue

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	QueueNotifications = "notifications"

	TaskUserRegistration = "notification:user_registration"
)

type UserRegistrationPayload struct {
	UID        string `json:"uid"`
	Email      string `json:"email"`
	ProvinceID string `json:"province_id,omitempty"`
}

type enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client enqueues notification jobs on Redis.
type Client struct {
	client enqueuer
}

func NewClient(redisAddr string) *Client {
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	slog.Info("Successfully initialized task queue", "redis_addr", redisAddr)
	return &Client{client: client}
}

func NewUserRegistrationTask(payload UserRegistrationPayload) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TaskUserRegistration, payloadBytes), nil
}

// EnqueueUserRegistration schedules the "new user registration" notice for
// reviewers of the new user's province.
func (c *Client) EnqueueUserRegistration(payload UserRegistrationPayload) (string, error) {
	task, err := NewUserRegistrationTask(payload)
	if err != nil {
		return "", err
	}

	info, err := c.client.Enqueue(task,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	return info.ID, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
