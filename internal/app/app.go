package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"maintline/internal/config"
	"maintline/internal/db"
	"maintline/internal/engine"
	"maintline/internal/identity"
	"maintline/internal/jobs"
	"maintline/internal/locks"
	"maintline/internal/migrate"
)

// Options control how a workspace is opened.
type Options struct {
	Workspace string
	Logger    *zap.Logger
	// RequireConfig fails when maintline.yml is missing instead of using defaults.
	RequireConfig bool
}

// Runtime is the wired core for one workspace.
type Runtime struct {
	Workspace string
	Config    *config.Config
	DB        *sql.DB
	Engine    engine.Engine
	Logger    *zap.Logger
	closers   []func() error
}

// Open loads the config, migrates the database and builds the engine with
// the configured lock backend and notifier.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var (
		cfg *config.Config
		err error
	)
	if opts.RequireConfig {
		cfg, err = config.Load(opts.Workspace)
	} else {
		cfg, err = config.LoadOptional(opts.Workspace)
	}
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Workspace: opts.Workspace, Config: cfg, DB: conn, Logger: log}
	rt.closers = append(rt.closers, conn.Close)
	if err := migrate.Migrate(ctx, conn); err != nil {
		rt.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	e := engine.New(conn, cfg)
	e.Logger = log
	if cfg.Locks.Backend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Locks.RedisAddr})
		rt.closers = append(rt.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			rt.Close()
			return nil, fmt.Errorf("lock backend %s: %w", cfg.Locks.RedisAddr, err)
		}
		e.Locks = locks.NewRedisLocker(client, cfg.Locks.TTL)
	}
	if addr := strings.TrimSpace(cfg.Notify.RedisAddr); addr != "" {
		n := jobs.NewNotifier(asynq.RedisClientOpt{Addr: addr}, cfg.Notify.Queue)
		rt.closers = append(rt.closers, n.Close)
		e.Notifier = n
	}
	rt.Engine = e
	log.Debug("workspace opened",
		zap.String("workspace", opts.Workspace),
		zap.String("locks", cfg.Locks.Backend),
		zap.Bool("notify", e.Notifier != nil),
	)
	return rt, nil
}

// Identity returns a token provider bound to the runtime's users.
func (r *Runtime) Identity(secret string) (identity.Provider, error) {
	if strings.TrimSpace(secret) == "" {
		return identity.Provider{}, errors.New("jwt secret required; set MAINTLINE_JWT_SECRET")
	}
	return identity.Provider{
		Repo:   r.Engine.Repo,
		Secret: []byte(secret),
		Issuer: r.Config.Auth.Issuer,
		TTL:    r.Config.Auth.TokenTTL,
	}, nil
}

// Close releases resources in reverse order of acquisition.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
