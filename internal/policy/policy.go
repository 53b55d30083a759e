// Package policy decides which role may perform which work-order action.
// Decisions are pure: no I/O, no clock, no global state.
package policy

import (
	"fmt"
	"sort"

	"maintline/internal/domain"
)

type Action string

const (
	ActionCreateWorkOrder  Action = "createWorkOrder"
	ActionAssignTechnician Action = "assignTechnician"
	ActionUpdateStatus     Action = "updateStatus"
	ActionDeleteWorkOrder  Action = "deleteWorkOrder"
	ActionViewWorkOrder    Action = "viewWorkOrder"
	ActionViewHistory      Action = "viewHistory"
	ActionManageAssets     Action = "manageAssets"
	ActionManageUsers      Action = "manageUsers"
	ActionViewAssets       Action = "viewAssets"
	ActionViewReports      Action = "viewReports"
	ActionListUsers        Action = "listUsers"
)

// ViewScope controls which work orders a technician may read.
type ViewScope string

const (
	ViewAll ViewScope = "all"
	ViewOwn ViewScope = "own"
)

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  string
}

// ForbiddenError indicates a denied action.
type ForbiddenError struct {
	Action Action
	Role   domain.Role
	Reason string
}

func (e ForbiddenError) Error() string {
	msg := fmt.Sprintf("action %s not permitted for role %s", e.Action, roleLabel(e.Role))
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e ForbiddenError) Is(target error) bool {
	return target == domain.ErrForbidden
}

func roleLabel(r domain.Role) string {
	if r == "" {
		return "<none>"
	}
	return string(r)
}

// Policy holds the configurable parts of the role table.
type Policy struct {
	TechnicianView ViewScope
}

func New(scope ViewScope) Policy {
	if scope == "" {
		scope = ViewAll
	}
	return Policy{TechnicianView: scope}
}

// rule reports whether the action is allowed. wo is nil for collection
// level checks such as creating or listing.
type rule func(p Policy, actorID string, wo *domain.WorkOrder) (bool, string)

func allow(Policy, string, *domain.WorkOrder) (bool, string) { return true, "" }

func assignedToActor(_ Policy, actorID string, wo *domain.WorkOrder) (bool, string) {
	if wo == nil {
		return false, "work order required"
	}
	if actorID == "" || wo.AssigneeID() != actorID {
		return false, "work order is not assigned to you"
	}
	return true, ""
}

func technicianView(p Policy, actorID string, wo *domain.WorkOrder) (bool, string) {
	if p.TechnicianView != ViewOwn || wo == nil {
		return true, ""
	}
	return assignedToActor(p, actorID, wo)
}

var table = map[Action]map[domain.Role]rule{
	ActionCreateWorkOrder:  {domain.RoleAdmin: allow, domain.RoleManager: allow},
	ActionAssignTechnician: {domain.RoleAdmin: allow, domain.RoleManager: allow},
	ActionUpdateStatus:     {domain.RoleAdmin: allow, domain.RoleManager: allow, domain.RoleTechnician: assignedToActor},
	ActionDeleteWorkOrder:  {domain.RoleAdmin: allow, domain.RoleManager: allow},
	ActionViewWorkOrder:    {domain.RoleAdmin: allow, domain.RoleManager: allow, domain.RoleTechnician: technicianView},
	ActionViewHistory:      {domain.RoleAdmin: allow, domain.RoleManager: allow, domain.RoleTechnician: technicianView},
	ActionManageAssets:     {domain.RoleAdmin: allow},
	ActionManageUsers:      {domain.RoleAdmin: allow},
	ActionViewAssets:       {domain.RoleAdmin: allow, domain.RoleManager: allow, domain.RoleTechnician: allow},
	ActionViewReports:      {domain.RoleAdmin: allow},
	ActionListUsers:        {domain.RoleAdmin: allow, domain.RoleManager: allow},
}

// Authorize evaluates the role table. Unknown roles and actions are denied.
func (p Policy) Authorize(role domain.Role, actorID string, action Action, wo *domain.WorkOrder) Decision {
	roles, ok := table[action]
	if !ok {
		return Decision{Reason: "unknown action"}
	}
	if !role.Valid() {
		return Decision{Reason: "unknown role"}
	}
	fn, ok := roles[role]
	if !ok {
		return Decision{Reason: "role lacks permission"}
	}
	allowed, reason := fn(p, actorID, wo)
	return Decision{Allowed: allowed, Reason: reason}
}

// Check is Authorize returning a ForbiddenError on denial.
func (p Policy) Check(actor domain.Actor, action Action, wo *domain.WorkOrder) error {
	d := p.Authorize(actor.Role, actor.ID, action, wo)
	if d.Allowed {
		return nil
	}
	return ForbiddenError{Action: action, Role: actor.Role, Reason: d.Reason}
}

// OwnOnly reports whether list results must be narrowed to the actor's
// own assignments.
func (p Policy) OwnOnly(role domain.Role) bool {
	return role == domain.RoleTechnician && p.TechnicianView == ViewOwn
}

// Actions lists the known actions in stable order.
func Actions() []Action {
	out := make([]Action, 0, len(table))
	for a := range table {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Grants lists the roles that hold an action, ignoring per-order conditions.
func Grants(action Action) []domain.Role {
	var out []domain.Role
	for _, r := range []domain.Role{domain.RoleAdmin, domain.RoleManager, domain.RoleTechnician} {
		if _, ok := table[action][r]; ok {
			out = append(out, r)
		}
	}
	return out
}
