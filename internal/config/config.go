package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const FileName = "maintline.yml"

// Config models maintline.yml.
type Config struct {
	Policy struct {
		TechnicianView string `yaml:"technician_view" json:"technician_view"`
	} `yaml:"policy" json:"policy"`
	Lifecycle struct {
		AllowReopen bool `yaml:"allow_reopen" json:"allow_reopen"`
	} `yaml:"lifecycle" json:"lifecycle"`
	Auth struct {
		Issuer   string        `yaml:"issuer" json:"issuer"`
		TokenTTL time.Duration `yaml:"token_ttl" json:"token_ttl"`
	} `yaml:"auth" json:"auth"`
	Locks struct {
		Backend   string        `yaml:"backend" json:"backend"`
		RedisAddr string        `yaml:"redis_addr" json:"redis_addr,omitempty"`
		TTL       time.Duration `yaml:"ttl" json:"ttl"`
	} `yaml:"locks" json:"locks"`
	Notify struct {
		RedisAddr string          `yaml:"redis_addr" json:"redis_addr,omitempty"`
		Queue     string          `yaml:"queue" json:"queue"`
		Webhooks  []WebhookConfig `yaml:"webhooks" json:"webhooks,omitempty"`
	} `yaml:"notify" json:"notify"`
}

// WebhookConfig is one delivery target for work-order notifications.
type WebhookConfig struct {
	URL            string   `yaml:"url" json:"url"`
	Events         []string `yaml:"events" json:"events,omitempty"`
	Secret         string   `yaml:"secret" json:"-"`
	TimeoutSeconds int      `yaml:"timeout_seconds" json:"timeout_seconds,omitempty"`
}

var knownEvents = map[string]bool{
	"work_order.created":        true,
	"work_order.status_changed": true,
	"work_order.assigned":       true,
	"work_order.deleted":        true,
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Policy.TechnicianView {
	case "all", "own":
	default:
		return fmt.Errorf("config.policy.technician_view must be 'all' or 'own'")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("config.auth.token_ttl must be positive")
	}
	switch c.Locks.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Locks.RedisAddr) == "" {
			return fmt.Errorf("config.locks.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config.locks.backend must be 'memory' or 'redis'")
	}
	if c.Locks.TTL <= 0 {
		return fmt.Errorf("config.locks.ttl must be positive")
	}
	if strings.TrimSpace(c.Notify.Queue) == "" {
		return fmt.Errorf("config.notify.queue is required")
	}
	for i, hook := range c.Notify.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("config.notify.webhooks[%d].url is required", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("config.notify.webhooks[%d].timeout_seconds must not be negative", i)
		}
		for _, evt := range hook.Events {
			if !knownEvents[evt] {
				return fmt.Errorf("config.notify.webhooks[%d] has unknown event %s", i, evt)
			}
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with ml init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the config described by the default template.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(fmt.Sprintf("default config template: %v", err))
	}
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing
// from data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `policy:
  # all: technicians read every work order; own: only those assigned to them
  technician_view: all

lifecycle:
  # false restricts status changes to forward moves
  allow_reopen: true

auth:
  issuer: maintline
  token_ttl: 12h

locks:
  # memory or redis
  backend: memory
  redis_addr: ""
  ttl: 10s

notify:
  # empty redis_addr disables background notifications
  redis_addr: ""
  queue: notifications
  webhooks: []
`
