package maintlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal maintline HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// UserRef names the assigned technician.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HistoryEntry is one recorded change. ActorName is only set by History.
type HistoryEntry struct {
	Seq       int64  `json:"seq"`
	Action    string `json:"action"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actorId"`
	ActorName string `json:"actorName,omitempty"`
}

// WorkOrder represents the API work order model.
type WorkOrder struct {
	ID          string         `json:"id"`
	Asset       string         `json:"asset"`
	AssetID     string         `json:"assetId,omitempty"`
	Description string         `json:"description"`
	Priority    string         `json:"priority"`
	Status      string         `json:"status"`
	AssignedTo  *UserRef       `json:"assignedTo"`
	History     []HistoryEntry `json:"history,omitempty"`
	CreatedAt   string         `json:"createdAt"`
	CreatedBy   string         `json:"createdBy"`
	UpdatedAt   string         `json:"updatedAt"`
	Version     int64          `json:"version"`
}

// User is the public user model.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ListFilter narrows ListWorkOrders. Empty fields are ignored.
type ListFilter struct {
	Status     string
	AssignedTo string
	Priority   string
	AssetID    string
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login exchanges credentials for a token and stores it on the client.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var resp struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	body := map[string]any{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "auth/login", body, &resp); err != nil {
		return User{}, err
	}
	c.BearerToken = resp.Token
	return resp.User, nil
}

// CreateWorkOrder creates a Pending work order. Priority may be empty.
func (c *Client) CreateWorkOrder(ctx context.Context, asset, description, priority string) (WorkOrder, error) {
	body := map[string]any{
		"asset":       asset,
		"description": description,
	}
	if priority != "" {
		body["priority"] = priority
	}
	var resp WorkOrder
	err := c.do(ctx, http.MethodPost, "work-orders", body, &resp)
	return resp, err
}

// GetWorkOrder fetches a work order with its history.
func (c *Client) GetWorkOrder(ctx context.Context, id string) (WorkOrder, error) {
	var resp WorkOrder
	err := c.do(ctx, http.MethodGet, "work-orders/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListWorkOrders lists work orders without history.
func (c *Client) ListWorkOrders(ctx context.Context, f ListFilter) ([]WorkOrder, error) {
	q := url.Values{}
	for k, v := range map[string]string{"status": f.Status, "assignedTo": f.AssignedTo, "priority": f.Priority, "assetId": f.AssetID} {
		if v != "" {
			q.Set(k, v)
		}
	}
	endpoint := "work-orders"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp struct {
		Items []WorkOrder `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// UpdateStatus requests a status change.
func (c *Client) UpdateStatus(ctx context.Context, id, status string) (WorkOrder, error) {
	var resp WorkOrder
	err := c.do(ctx, http.MethodPut, "work-orders/"+url.PathEscape(id)+"/status", map[string]any{"status": status}, &resp)
	return resp, err
}

// Assign assigns a technician to the work order.
func (c *Client) Assign(ctx context.Context, id, technicianID string) (WorkOrder, error) {
	var resp WorkOrder
	err := c.do(ctx, http.MethodPut, "work-orders/"+url.PathEscape(id)+"/assign", map[string]any{"technicianId": technicianID}, &resp)
	return resp, err
}

// DeleteWorkOrder removes a work order and its history.
func (c *Client) DeleteWorkOrder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "work-orders/"+url.PathEscape(id), nil, nil)
}

// History returns the timeline of a work order, oldest first.
func (c *Client) History(ctx context.Context, id string) ([]HistoryEntry, error) {
	var resp struct {
		Items []HistoryEntry `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "work-orders/"+url.PathEscape(id)+"/history", nil, &resp)
	return resp.Items, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(c.BasePath, "/")
}
