package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maintline/internal/config"
	"maintline/internal/engine"
)

type capture struct {
	mu      sync.Mutex
	bodies  []engine.Notification
	headers []http.Header
	raw     [][]byte
	status  int
}

func (c *capture) handler(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	var n engine.Notification
	_ = json.Unmarshal(data, &n)
	c.mu.Lock()
	c.bodies = append(c.bodies, n)
	c.headers = append(c.headers, r.Header.Clone())
	c.raw = append(c.raw, data)
	status := c.status
	c.mu.Unlock()
	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

func TestTaskRoundTrip(t *testing.T) {
	n := engine.Notification{Event: engine.EventAssigned, WorkOrderID: "wo-1", ActorID: "m-1", AssignedTo: "t-1", At: "2024-01-01T00:00:00Z"}
	task, err := NewWorkOrderEventTask(n)
	require.NoError(t, err)
	assert.Equal(t, TaskWorkOrderEvent, task.Type())
	got, err := ParseWorkOrderEvent(task)
	require.NoError(t, err)
	assert.Equal(t, n, got)

	_, err = ParseWorkOrderEvent(asynq.NewTask(TaskWorkOrderEvent, []byte(`{"event":""}`)))
	assert.Error(t, err)
}

func TestHandlerDeliversToMatchingWebhooks(t *testing.T) {
	all := &capture{}
	allSrv := httptest.NewServer(http.HandlerFunc(all.handler))
	defer allSrv.Close()
	deletes := &capture{}
	deleteSrv := httptest.NewServer(http.HandlerFunc(deletes.handler))
	defer deleteSrv.Close()

	h := EventHandler{Webhooks: []config.WebhookConfig{
		{URL: allSrv.URL, Secret: "s3cret"},
		{URL: deleteSrv.URL, Events: []string{engine.EventDeleted}},
	}}
	task, err := NewWorkOrderEventTask(engine.Notification{Event: engine.EventStatusChanged, WorkOrderID: "wo-1", Status: "Completed"})
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(context.Background(), task))

	require.Len(t, all.bodies, 1)
	assert.Equal(t, "Completed", all.bodies[0].Status)
	assert.Equal(t, engine.EventStatusChanged, all.headers[0].Get("X-Maintline-Event"))
	assert.Equal(t, "sha256="+Sign("s3cret", all.raw[0]), all.headers[0].Get("X-Maintline-Signature"))
	assert.Empty(t, deletes.bodies)
}

func TestHandlerFailsOnBadStatus(t *testing.T) {
	c := &capture{status: http.StatusBadGateway}
	srv := httptest.NewServer(http.HandlerFunc(c.handler))
	defer srv.Close()
	h := EventHandler{Webhooks: []config.WebhookConfig{{URL: srv.URL}}}
	task, err := NewWorkOrderEventTask(engine.Notification{Event: engine.EventCreated, WorkOrderID: "wo-1"})
	require.NoError(t, err)
	err = h.ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandlerSkipsRetryOnMalformedPayload(t *testing.T) {
	err := EventHandler{}.ProcessTask(context.Background(), asynq.NewTask(TaskWorkOrderEvent, []byte("{")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestEventFilter(t *testing.T) {
	assert.True(t, newEventFilter(nil).match("anything"))
	assert.True(t, newEventFilter([]string{" "}).match("anything"))
	f := newEventFilter([]string{engine.EventCreated})
	assert.True(t, f.match(engine.EventCreated))
	assert.False(t, f.match(engine.EventDeleted))
}
