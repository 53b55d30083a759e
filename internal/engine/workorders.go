package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"maintline/internal/domain"
	"maintline/internal/history"
	"maintline/internal/policy"
	"maintline/internal/repo"
	"maintline/internal/validate"
)

// CreateWorkOrderInput are parameters for creating a work order. AssetID,
// when set, must name a catalog asset and supplies Asset if it is empty.
type CreateWorkOrderInput struct {
	Asset       string          `json:"asset,omitempty" validate:"required_without=AssetID,max=200"`
	AssetID     string          `json:"assetId,omitempty" validate:"max=64"`
	Description string          `json:"description" validate:"required,max=4000"`
	Priority    domain.Priority `json:"priority,omitempty" validate:"omitempty,oneof=Low Medium High"`
}

func (e Engine) CreateWorkOrder(ctx context.Context, actor domain.Actor, in CreateWorkOrderInput) (domain.WorkOrder, error) {
	if err := e.Policy.Check(actor, policy.ActionCreateWorkOrder, nil); err != nil {
		return domain.WorkOrder{}, err
	}
	in.Asset = strings.TrimSpace(in.Asset)
	in.AssetID = strings.TrimSpace(in.AssetID)
	in.Description = strings.TrimSpace(in.Description)
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	if err := validate.Struct(in); err != nil {
		return domain.WorkOrder{}, err
	}
	now := e.timestamp()
	wo := domain.WorkOrder{
		ID:          uuid.NewString(),
		Asset:       in.Asset,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		CreatedBy:   actor.ID,
		UpdatedAt:   now,
		Version:     1,
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if in.AssetID != "" {
			a, err := e.Repo.GetAsset(ctx, tx, in.AssetID)
			if err != nil {
				return err
			}
			wo.AssetID = &a.ID
			if wo.Asset == "" {
				wo.Asset = a.Name
			}
		}
		if err := e.Repo.InsertWorkOrder(ctx, tx, wo); err != nil {
			return fmt.Errorf("insert work order: %w", err)
		}
		entry, err := e.appendHistory(ctx, tx, wo.ID, history.ActionCreated,
			fmt.Sprintf("%s priority work order for %s", wo.Priority, wo.Asset), actor.ID)
		if err != nil {
			return err
		}
		wo.History = []domain.HistoryEntry{entry}
		return nil
	})
	if err != nil {
		return domain.WorkOrder{}, err
	}
	e.notify(ctx, Notification{Event: EventCreated, WorkOrderID: wo.ID, ActorID: actor.ID, Status: string(wo.Status), Action: history.ActionCreated})
	return wo, nil
}

// mutate loads the work order under its lock, authorizes action, runs fn and
// returns the committed entity with its full history. Nothing is written
// when any step fails.
func (e Engine) mutate(ctx context.Context, actor domain.Actor, id string, action policy.Action, fn func(tx *sql.Tx, wo *domain.WorkOrder) (string, error)) (domain.WorkOrder, string, error) {
	var (
		out   domain.WorkOrder
		label string
	)
	err := e.withWorkOrderLock(ctx, id, func() error {
		return e.inTx(ctx, func(tx *sql.Tx) error {
			wo, err := e.Repo.GetWorkOrder(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := e.Policy.Check(actor, action, &wo); err != nil {
				return err
			}
			if label, err = fn(tx, &wo); err != nil {
				return err
			}
			if wo.History, err = e.Projector.Entries(ctx, tx, wo.ID); err != nil {
				return err
			}
			out = wo
			return nil
		})
	})
	return out, label, err
}

// RequestStatusChange moves a work order to newStatus and records it.
func (e Engine) RequestStatusChange(ctx context.Context, actor domain.Actor, id, newStatus string) (domain.WorkOrder, error) {
	wo, label, err := e.mutate(ctx, actor, id, policy.ActionUpdateStatus, func(tx *sql.Tx, wo *domain.WorkOrder) (string, error) {
		next, err := domain.ParseStatus(newStatus)
		if err != nil {
			return "", err
		}
		if err := ensureStatusTransition(wo.Status, next, e.allowReopen()); err != nil {
			return "", err
		}
		prev := wo.Status
		wo.Status = next
		wo.UpdatedAt = e.timestamp()
		if err := e.Repo.UpdateWorkOrder(ctx, tx, *wo); err != nil {
			return "", err
		}
		wo.Version++
		label := history.StatusChanged(next)
		details := fmt.Sprintf("%s -> %s by %s", prev, next, e.actorName(ctx, tx, actor.ID))
		if _, err := e.appendHistory(ctx, tx, wo.ID, label, details, actor.ID); err != nil {
			return "", err
		}
		return label, nil
	})
	if err != nil {
		return domain.WorkOrder{}, err
	}
	e.notify(ctx, Notification{Event: EventStatusChanged, WorkOrderID: wo.ID, ActorID: actor.ID, Status: string(wo.Status), AssignedTo: wo.AssigneeID(), Action: label})
	return wo, nil
}

// AssignTechnician sets the assignee. The target must be a Technician.
func (e Engine) AssignTechnician(ctx context.Context, actor domain.Actor, id, technicianID string) (domain.WorkOrder, error) {
	wo, label, err := e.mutate(ctx, actor, id, policy.ActionAssignTechnician, func(tx *sql.Tx, wo *domain.WorkOrder) (string, error) {
		technicianID = strings.TrimSpace(technicianID)
		if technicianID == "" {
			return "", fmt.Errorf("technician id is required: %w", domain.ErrInvalidInput)
		}
		tech, err := e.Repo.GetUser(ctx, tx, technicianID)
		if errors.Is(err, repo.ErrNotFound) {
			return "", fmt.Errorf("unknown technician %s: %w", technicianID, domain.ErrInvalidInput)
		}
		if err != nil {
			return "", err
		}
		if tech.Role != domain.RoleTechnician {
			return "", fmt.Errorf("user %s has role %s, not %s: %w", tech.ID, tech.Role, domain.RoleTechnician, domain.ErrInvalidInput)
		}
		prev := "unassigned"
		if wo.AssignedTo != nil {
			prev = wo.AssignedTo.Name
		}
		wo.AssignedTo = &domain.UserRef{ID: tech.ID, Name: tech.Name}
		wo.UpdatedAt = e.timestamp()
		if err := e.Repo.UpdateWorkOrder(ctx, tx, *wo); err != nil {
			return "", err
		}
		wo.Version++
		label := history.AssignedTo(tech.Name)
		details := fmt.Sprintf("previously %s; assigned by %s", prev, e.actorName(ctx, tx, actor.ID))
		if _, err := e.appendHistory(ctx, tx, wo.ID, label, details, actor.ID); err != nil {
			return "", err
		}
		return label, nil
	})
	if err != nil {
		return domain.WorkOrder{}, err
	}
	e.notify(ctx, Notification{Event: EventAssigned, WorkOrderID: wo.ID, ActorID: actor.ID, Status: string(wo.Status), AssignedTo: wo.AssigneeID(), Action: label})
	return wo, nil
}

// DeleteWorkOrder removes the work order and its history.
func (e Engine) DeleteWorkOrder(ctx context.Context, actor domain.Actor, id string) error {
	_, _, err := e.mutate(ctx, actor, id, policy.ActionDeleteWorkOrder, func(tx *sql.Tx, wo *domain.WorkOrder) (string, error) {
		return "", e.Repo.DeleteWorkOrder(ctx, tx, wo.ID)
	})
	if err != nil {
		return err
	}
	e.notify(ctx, Notification{Event: EventDeleted, WorkOrderID: id, ActorID: actor.ID})
	return nil
}

// GetWorkOrder returns a work order with its history.
func (e Engine) GetWorkOrder(ctx context.Context, actor domain.Actor, id string) (domain.WorkOrder, error) {
	wo, err := e.Repo.GetWorkOrder(ctx, nil, id)
	if err != nil {
		return domain.WorkOrder{}, storeErr(err)
	}
	if err := e.Policy.Check(actor, policy.ActionViewWorkOrder, &wo); err != nil {
		return domain.WorkOrder{}, err
	}
	if wo.History, err = e.Projector.Entries(ctx, nil, wo.ID); err != nil {
		return domain.WorkOrder{}, storeErr(err)
	}
	return wo, nil
}

// ListWorkOrders returns work orders without history. Technicians limited
// to their own orders get the assignee filter forced to themselves.
func (e Engine) ListWorkOrders(ctx context.Context, actor domain.Actor, f repo.WorkOrderFilter) ([]domain.WorkOrder, error) {
	if err := e.Policy.Check(actor, policy.ActionViewWorkOrder, nil); err != nil {
		return nil, err
	}
	if f.Status != "" {
		if _, err := domain.ParseStatus(string(f.Status)); err != nil {
			return nil, err
		}
	}
	if f.Priority != "" {
		if _, err := domain.ParsePriority(string(f.Priority)); err != nil {
			return nil, err
		}
	}
	if e.Policy.OwnOnly(actor.Role) {
		f.AssignedTo = actor.ID
	}
	list, err := e.Repo.ListWorkOrders(ctx, f)
	if err != nil {
		return nil, storeErr(err)
	}
	if list == nil {
		list = []domain.WorkOrder{}
	}
	return list, nil
}

// GetHistory returns the ordered history of an existing work order.
func (e Engine) GetHistory(ctx context.Context, actor domain.Actor, id string) ([]domain.HistoryEntry, error) {
	wo, err := e.Repo.GetWorkOrder(ctx, nil, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if err := e.Policy.Check(actor, policy.ActionViewHistory, &wo); err != nil {
		return nil, err
	}
	entries, err := e.Projector.Entries(ctx, nil, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return entries, nil
}

// Timeline is GetHistory with actor names resolved.
func (e Engine) Timeline(ctx context.Context, actor domain.Actor, id string) ([]history.TimelineEntry, error) {
	entries, err := e.GetHistory(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return e.Projector.Timeline(ctx, entries, e.Repo), nil
}
