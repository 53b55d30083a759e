package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Policy.TechnicianView != "all" || !cfg.Lifecycle.AllowReopen {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Auth.TokenTTL != 12*time.Hour || cfg.Locks.TTL != 10*time.Second {
		t.Fatalf("unexpected durations: %v %v", cfg.Auth.TokenTTL, cfg.Locks.TTL)
	}
}

func TestFromYAMLKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := FromYAML([]byte("lifecycle:\n  allow_reopen: false\npolicy:\n  technician_view: own\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Lifecycle.AllowReopen {
		t.Fatalf("expected allow_reopen false")
	}
	if cfg.Policy.TechnicianView != "own" {
		t.Fatalf("expected own view, got %s", cfg.Policy.TechnicianView)
	}
	if cfg.Locks.Backend != "memory" || cfg.Notify.Queue != "notifications" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"view":      "policy:\n  technician_view: some\n",
		"backend":   "locks:\n  backend: etcd\n",
		"redisaddr": "locks:\n  backend: redis\n",
		"ttl":       "auth:\n  token_ttl: 0s\n",
		"hook":      "notify:\n  webhooks:\n    - url: \"\"\n",
		"event":     "notify:\n  webhooks:\n    - url: http://example.test\n      events: [work_order.archived]\n",
	}
	for name, body := range cases {
		if _, err := FromYAML([]byte(body)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil || cfg == nil {
		t.Fatalf("expected defaults, got %v %v", cfg, err)
	}
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "ml init") {
		t.Fatalf("expected not found hint, got %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("locks:\n  ttl: 3s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Locks.TTL != 3*time.Second {
		t.Fatalf("expected 3s ttl, got %v", cfg.Locks.TTL)
	}
}
