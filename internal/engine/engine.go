package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"maintline/internal/config"
	"maintline/internal/domain"
	"maintline/internal/history"
	"maintline/internal/locks"
	"maintline/internal/policy"
	"maintline/internal/repo"
)

type Engine struct {
	DB        *sql.DB
	Repo      repo.Repo
	History   history.Writer
	Projector history.Projector
	Policy    policy.Policy
	Locks     locks.Locker
	Notifier  Notifier
	Config    *config.Config
	Logger    *zap.Logger
	Now       func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := Engine{
		DB:        db,
		Repo:      repo.Repo{DB: db},
		Projector: history.Projector{DB: db},
		Policy:    policy.New(policy.ViewScope(cfg.Policy.TechnicianView)),
		Locks:     locks.NewKeyedMutex(),
		Config:    cfg,
		Logger:    zap.NewNop(),
		Now:       time.Now,
	}
	return e
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

func (e Engine) allowReopen() bool {
	return e.Config == nil || e.Config.Lifecycle.AllowReopen
}

// storeErr keeps domain errors and marks everything else as retryable.
func storeErr(err error) error {
	if err == nil || domain.IsDomain(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
}

// appendHistory stamps entries with the engine clock unless the writer
// carries its own.
func (e Engine) appendHistory(ctx context.Context, tx *sql.Tx, workOrderID, action, details, actorID string) (domain.HistoryEntry, error) {
	w := e.History
	if w.Now == nil {
		w.Now = e.now
	}
	return w.Append(ctx, tx, workOrderID, action, details, actorID)
}

// inTx runs fn in one transaction; any error rolls everything back.
func (e Engine) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return storeErr(err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// withWorkOrderLock serializes callers mutating the same work order.
func (e Engine) withWorkOrderLock(ctx context.Context, id string, fn func() error) error {
	if e.Locks == nil {
		return fn()
	}
	release, err := e.Locks.Acquire(ctx, locks.WorkOrderKey(id))
	if err != nil {
		return storeErr(err)
	}
	defer release()
	return fn()
}

// actorName resolves a display name for history details.
func (e Engine) actorName(ctx context.Context, tx *sql.Tx, id string) string {
	u, err := e.Repo.GetUser(ctx, tx, id)
	if err != nil || u.Name == "" {
		return id
	}
	return u.Name
}
