package server

import (
	"maintline/internal/domain"
	"maintline/internal/history"
)

// Request payloads

type LoginRequest struct {
	Email    string `json:"email" minLength:"1"`
	Password string `json:"password" minLength:"1"`
}

type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role" doc:"Admin, Manager or Technician"`
}

type CreateAPIKeyRequest struct {
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name,omitempty"`
}

type CreateAssetRequest struct {
	Name         string `json:"name"`
	Location     string `json:"location,omitempty"`
	Status       string `json:"status,omitempty"`
	Model        string `json:"model,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
}

type CreateWorkOrderRequest struct {
	Asset       string `json:"asset,omitempty"`
	AssetID     string `json:"assetId,omitempty"`
	Description string `json:"description"`
	Priority    string `json:"priority,omitempty"`
}

// Status is validated by the engine so that authorization is decided first.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type AssignRequest struct {
	TechnicianID string `json:"technicianId"`
}

// Response payloads

type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt" format:"date-time"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type WhoAmIResponse struct {
	ID      string   `json:"id"`
	Name    string   `json:"name,omitempty"`
	Email   string   `json:"email,omitempty"`
	Role    string   `json:"role"`
	Source  string   `json:"source"`
	Actions []string `json:"actions"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"createdAt" format:"date-time"`
	// Key is only returned on creation.
	Key string `json:"key"`
}

type paginatedUsers struct {
	Items []UserResponse `json:"items"`
}

type paginatedAssets struct {
	Items []domain.Asset `json:"items"`
}

type paginatedWorkOrders struct {
	Items []domain.WorkOrder `json:"items"`
}

type historyResponse struct {
	WorkOrderID string                  `json:"workOrderId"`
	Items       []history.TimelineEntry `json:"items"`
}

func userResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func userResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u))
	}
	return out
}
