package migrate

import (
	"context"
	"testing"

	"maintline/internal/db"
)

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if v, err := Current(ctx, conn); err != nil || v != 0 {
		t.Fatalf("fresh db version = %d, %v", v, err)
	}
	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, conn); err != nil {
			t.Fatalf("migrate pass %d: %v", i, err)
		}
	}
	latest, err := Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	v, err := Current(ctx, conn)
	if err != nil || v != latest {
		t.Fatalf("version = %d (%v), want %d", v, err, latest)
	}
	for _, table := range []string{"users", "api_keys", "assets", "work_orders", "work_order_history"} {
		var name string
		if err := conn.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name); err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestHistoryRowsRejectUpdates(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	if err := Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := conn.ExecContext(ctx, `INSERT INTO work_orders(id,asset,description,priority,status,created_at,created_by,updated_at) VALUES ('w','Pump','leak','Low','Pending','t','u','t')`); err != nil {
		t.Fatalf("insert work order: %v", err)
	}
	if _, err := conn.ExecContext(ctx, `INSERT INTO work_order_history(work_order_id,action,ts,actor_id) VALUES ('w','Created','t','u')`); err != nil {
		t.Fatalf("insert history: %v", err)
	}
	if _, err := conn.ExecContext(ctx, `UPDATE work_order_history SET action='Edited'`); err == nil {
		t.Fatalf("expected update to be rejected")
	}
	if _, err := conn.ExecContext(ctx, `DELETE FROM work_orders WHERE id='w'`); err != nil {
		t.Fatalf("delete work order: %v", err)
	}
	var n int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM work_order_history`).Scan(&n); err != nil || n != 0 {
		t.Fatalf("history not cascaded: %d %v", n, err)
	}
}
