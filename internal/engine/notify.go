package engine

import (
	"context"

	"go.uber.org/zap"
)

const (
	EventCreated       = "work_order.created"
	EventStatusChanged = "work_order.status_changed"
	EventAssigned      = "work_order.assigned"
	EventDeleted       = "work_order.deleted"
)

// Notification describes a committed work-order mutation.
type Notification struct {
	Event       string `json:"event"`
	WorkOrderID string `json:"workOrderId"`
	ActorID     string `json:"actorId"`
	Status      string `json:"status,omitempty"`
	AssignedTo  string `json:"assignedTo,omitempty"`
	Action      string `json:"action,omitempty"`
	At          string `json:"at"`
}

// Notifier receives notifications after commit. Errors are logged only.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

func (e Engine) notify(ctx context.Context, n Notification) {
	if e.Notifier == nil {
		return
	}
	if n.At == "" {
		n.At = e.timestamp()
	}
	if err := e.Notifier.Notify(context.WithoutCancel(ctx), n); err != nil {
		e.logger().Warn("work order notification failed",
			zap.String("event", n.Event),
			zap.String("work_order_id", n.WorkOrderID),
			zap.Error(err))
	}
}
