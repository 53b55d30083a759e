package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"maintline/internal/engine"
)

const (
	// QueueDefault is used when no queue is configured.
	QueueDefault = "notifications"
	// TaskWorkOrderEvent carries one engine.Notification.
	TaskWorkOrderEvent = "work_order:event"
)

// NewWorkOrderEventTask constructs an Asynq task for a notification.
func NewWorkOrderEventTask(n engine.Notification) (*asynq.Task, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	return asynq.NewTask(TaskWorkOrderEvent, data, asynq.MaxRetry(8)), nil
}

// ParseWorkOrderEvent decodes a task payload.
func ParseWorkOrderEvent(t *asynq.Task) (engine.Notification, error) {
	var n engine.Notification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return n, err
	}
	if n.Event == "" || n.WorkOrderID == "" {
		return n, fmt.Errorf("notification missing event or work order id")
	}
	return n, nil
}

// Notifier enqueues notifications for the worker. It implements engine.Notifier.
type Notifier struct {
	client *asynq.Client
	queue  string
}

func NewNotifier(redisOpts asynq.RedisClientOpt, queue string) *Notifier {
	if queue == "" {
		queue = QueueDefault
	}
	return &Notifier{client: asynq.NewClient(redisOpts), queue: queue}
}

func (n *Notifier) Notify(ctx context.Context, note engine.Notification) error {
	task, err := NewWorkOrderEventTask(note)
	if err != nil {
		return err
	}
	_, err = n.client.EnqueueContext(ctx, task, asynq.Queue(n.queue))
	return err
}

// Close releases client resources.
func (n *Notifier) Close() error {
	return n.client.Close()
}
