package maintlinesdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginStoresBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v0/auth/login":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "mgr@example.com", body["email"])
			json.NewEncoder(w).Encode(map[string]any{
				"token": "tok-1",
				"user":  map[string]string{"id": "u1", "role": "Manager"},
			})
		case "/v0/work-orders":
			gotAuth = r.Header.Get("Authorization")
			assert.Equal(t, "In Progress", r.URL.Query().Get("status"))
			json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{{"id": "wo-1", "status": "In Progress"}}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	u, err := c.Login(context.Background(), "mgr@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Manager", u.Role)

	list, err := c.ListWorkOrders(context.Background(), ListFilter{Status: "In Progress"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "wo-1", list[0].ID)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestAPIErrorDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v0/work-orders/wo-1/status", r.URL.Path)
		assert.Equal(t, "ml_key", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":"forbidden","message":"action updateStatus not permitted for role Technician"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.APIKey = "ml_key"
	_, err := c.UpdateStatus(context.Background(), "wo-1", "Completed")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "forbidden", apiErr.Code)
	assert.Contains(t, apiErr.Message, "updateStatus")
}

func TestDeleteWorkOrderNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, New(srv.URL).DeleteWorkOrder(context.Background(), "wo-1"))
}
