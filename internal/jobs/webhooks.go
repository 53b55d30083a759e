package jobs

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"maintline/internal/config"
	"maintline/internal/engine"
)

const defaultWebhookTimeout = 5 * time.Second

// EventHandler processes work-order event tasks: it logs each event and
// posts it to every matching webhook. A failed delivery fails the task so
// asynq retries it.
type EventHandler struct {
	Webhooks []config.WebhookConfig
	Client   *http.Client
	Logger   *zap.Logger
}

func (h EventHandler) logger() *zap.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return zap.NewNop()
}

// ProcessTask implements asynq.Handler.
func (h EventHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	n, err := ParseWorkOrderEvent(t)
	if err != nil {
		h.logger().Error("discarding malformed work order event", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	log := h.logger().With(zap.String("event", n.Event), zap.String("work_order_id", n.WorkOrderID))
	log.Info("work order event", zap.String("actor_id", n.ActorID), zap.String("status", n.Status), zap.String("action", n.Action))

	var errs []error
	for _, hook := range h.Webhooks {
		if !newEventFilter(hook.Events).match(n.Event) {
			continue
		}
		if err := h.post(ctx, hook, n); err != nil {
			log.Warn("webhook delivery failed", zap.String("url", hook.URL), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", hook.URL, err))
		}
	}
	return errors.Join(errs...)
}

func (h EventHandler) post(ctx context.Context, hook config.WebhookConfig, n engine.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	timeout := defaultWebhookTimeout
	if hook.TimeoutSeconds > 0 {
		timeout = time.Duration(hook.TimeoutSeconds) * time.Second
	}
	client := h.Client
	if client == nil {
		client = &http.Client{}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Maintline-Event", n.Event)
	req.Header.Set("X-Maintline-Work-Order", n.WorkOrderID)
	if secret := strings.TrimSpace(hook.Secret); secret != "" {
		req.Header.Set("X-Maintline-Signature", "sha256="+Sign(secret, data))
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type eventFilter struct {
	all bool
	set map[string]struct{}
}

func newEventFilter(events []string) eventFilter {
	set := make(map[string]struct{}, len(events))
	for _, evt := range events {
		if key := strings.TrimSpace(evt); key != "" {
			set[key] = struct{}{}
		}
	}
	if len(set) == 0 {
		return eventFilter{all: true}
	}
	return eventFilter{set: set}
}

func (f eventFilter) match(evt string) bool {
	if f.all {
		return true
	}
	_, ok := f.set[evt]
	return ok
}
