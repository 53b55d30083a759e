package history

import (
	"context"
	"database/sql"

	"maintline/internal/domain"
	"maintline/internal/repo"
)

// Projector is the read side of the audit trail.
type Projector struct {
	DB *sql.DB
}

// TimelineEntry is a history entry with the actor name resolved.
type TimelineEntry struct {
	domain.HistoryEntry
	ActorName string `json:"actorName"`
}

// Entries lists a work order's history oldest first. It does not check that
// the work order exists.
func (p Projector) Entries(ctx context.Context, tx *sql.Tx, workOrderID string) ([]domain.HistoryEntry, error) {
	var q repo.Querier = p.DB
	if tx != nil {
		q = tx
	}
	rows, err := q.QueryContext(ctx, `SELECT seq,action,details,ts,actor_id FROM work_order_history WHERE work_order_id=? ORDER BY seq`, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(&e.Seq, &e.Action, &e.Details, &e.Timestamp, &e.ActorID); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Timeline resolves actor names through dir. Unknown actors keep their id.
func (p Projector) Timeline(ctx context.Context, entries []domain.HistoryEntry, dir repo.Directory) []TimelineEntry {
	names := map[string]string{}
	out := make([]TimelineEntry, 0, len(entries))
	for _, e := range entries {
		name, ok := names[e.ActorID]
		if !ok {
			name = e.ActorID
			if dir != nil {
				if u, err := dir.LookupUser(ctx, e.ActorID); err == nil && u.Name != "" {
					name = u.Name
				}
			}
			names[e.ActorID] = name
		}
		out = append(out, TimelineEntry{HistoryEntry: e, ActorName: name})
	}
	return out
}
