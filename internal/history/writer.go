// Package history appends and projects the work-order audit trail.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"maintline/internal/domain"
)

const ActionCreated = "Created"

func StatusChanged(s domain.Status) string {
	return "Status changed to " + string(s)
}

func AssignedTo(name string) string {
	return "Assigned to " + name
}

// Writer appends entries inside the caller's transaction so the entry
// commits or rolls back together with the entity change.
type Writer struct {
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, workOrderID, action, details, actorID string) (domain.HistoryEntry, error) {
	if tx == nil {
		return domain.HistoryEntry{}, fmt.Errorf("history append requires a transaction")
	}
	if w.Now == nil {
		w.Now = time.Now
	}
	entry := domain.HistoryEntry{
		Action:    action,
		Details:   details,
		Timestamp: w.Now().UTC().Format(time.RFC3339),
		ActorID:   actorID,
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO work_order_history(work_order_id,action,details,ts,actor_id) VALUES (?,?,?,?,?)`,
		workOrderID, entry.Action, entry.Details, entry.Timestamp, entry.ActorID)
	if err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("append history: %w", err)
	}
	if entry.Seq, err = res.LastInsertId(); err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("append history: %w", err)
	}
	return entry, nil
}
