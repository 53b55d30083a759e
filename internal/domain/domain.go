package domain

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleManager    Role = "Manager"
	RoleTechnician Role = "Technician"
)

var roles = []Role{RoleAdmin, RoleManager, RoleTechnician}

// ParseRole matches a role name case-insensitively.
func ParseRole(v string) (Role, error) {
	v = strings.TrimSpace(v)
	for _, r := range roles {
		if strings.EqualFold(v, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q: %w", v, ErrInvalidInput)
}

func (r Role) Valid() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

var statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

// ParseStatus accepts only the exact status labels.
func ParseStatus(v string) (Status, error) {
	for _, s := range statuses {
		if v == string(s) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status %q: %w", v, ErrInvalidInput)
}

// Rank orders statuses along the lifecycle; unknown statuses rank -1.
func (s Status) Rank() int {
	for i, known := range statuses {
		if s == known {
			return i
		}
	}
	return -1
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

var priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority accepts only the exact priority labels.
func ParsePriority(v string) (Priority, error) {
	for _, p := range priorities {
		if v == string(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q: %w", v, ErrInvalidInput)
}

type AssetStatus string

const (
	AssetOperational      AssetStatus = "Operational"
	AssetUnderMaintenance AssetStatus = "Under Maintenance"
	AssetOutOfService     AssetStatus = "Out of Service"
)

// Actor is the authenticated caller of a core operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role" enum:"Admin,Manager,Technician"`
	CreatedAt    string `json:"createdAt" format:"date-time"`
}

func (u User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

// UserRef is the denormalized assignee embedded in a work order.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Asset struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Location     string      `json:"location"`
	Status       AssetStatus `json:"status" enum:"Operational,Under Maintenance,Out of Service"`
	Model        *string     `json:"model,omitempty"`
	Manufacturer *string     `json:"manufacturer,omitempty"`
	CreatedAt    string      `json:"createdAt" format:"date-time"`
}

type WorkOrder struct {
	ID          string         `json:"id"`
	Asset       string         `json:"asset"`
	AssetID     *string        `json:"assetId,omitempty"`
	Description string         `json:"description"`
	Priority    Priority       `json:"priority" enum:"Low,Medium,High"`
	Status      Status         `json:"status" enum:"Pending,In Progress,Completed"`
	AssignedTo  *UserRef       `json:"assignedTo"`
	History     []HistoryEntry `json:"history,omitempty"`
	CreatedAt   string         `json:"createdAt" format:"date-time"`
	CreatedBy   string         `json:"createdBy"`
	UpdatedAt   string         `json:"updatedAt" format:"date-time"`
	Version     int64          `json:"version"`
}

// AssigneeID returns the assigned user id or "" when unassigned.
func (w WorkOrder) AssigneeID() string {
	if w.AssignedTo == nil {
		return ""
	}
	return w.AssignedTo.ID
}

type HistoryEntry struct {
	Seq       int64  `json:"seq"`
	Action    string `json:"action"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp" format:"date-time"`
	ActorID   string `json:"actorId"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"-"`
	CreatedAt string `json:"createdAt" format:"date-time"`
}

type Report struct {
	TotalAssets     int `json:"totalAssets"`
	TotalTasks      int `json:"totalTasks"`
	PendingTasks    int `json:"pendingTasks"`
	InProgressTasks int `json:"inProgressTasks"`
	CompletedTasks  int `json:"completedTasks"`
}
