package queue

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueNotifications}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func TestEnqueueUserRegistration(t *testing.T) {
	fake := &fakeEnqueuer{}
	client := &Client{client: fake}

	id, err := client.EnqueueUserRegistration(UserRegistrationPayload{UID: "u1", Email: "a@b.la", ProvinceID: "P1"})
	require.NoError(t, err)
	assert.Equal(t, "task-1", id)

	require.Len(t, fake.tasks, 1)
	assert.Equal(t, TaskUserRegistration, fake.tasks[0].Type())

	var payload UserRegistrationPayload
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &payload))
	assert.Equal(t, "P1", payload.ProvinceID)
}

func TestEnqueueUserRegistrationError(t *testing.T) {
	client := &Client{client: &fakeEnqueuer{err: errors.New("redis down")}}

	_, err := client.EnqueueUserRegistration(UserRegistrationPayload{UID: "u1"})
	assert.Error(t, err)
}
