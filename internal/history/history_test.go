package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"maintline/internal/db"
	"maintline/internal/domain"
	"maintline/internal/migrate"
	"maintline/internal/repo"
)

type mapDirectory map[string]domain.User

func (m mapDirectory) LookupUser(_ context.Context, id string) (domain.User, error) {
	u, ok := m[id]
	if !ok {
		return domain.User{}, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return u, nil
}

func TestAppendAndProject(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	if err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	r := repo.Repo{DB: conn}
	fixed := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	w := Writer{Now: func() time.Time { return fixed }}
	p := Projector{DB: conn}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	wo := domain.WorkOrder{ID: "wo-1", Asset: "Pump", Description: "leak", Priority: domain.PriorityLow, Status: domain.StatusPending,
		CreatedAt: "2024-03-01T08:00:00Z", CreatedBy: "m-1", UpdatedAt: "2024-03-01T08:00:00Z", Version: 1}
	if err := r.InsertWorkOrder(ctx, tx, wo); err != nil {
		t.Fatalf("insert: %v", err)
	}
	first, err := w.Append(ctx, tx, "wo-1", ActionCreated, "", "m-1")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := w.Append(ctx, tx, "wo-1", StatusChanged(domain.StatusInProgress), "Pending -> In Progress by Tess", "t-1")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if second.Seq <= first.Seq {
		t.Fatalf("seq not increasing: %d then %d", first.Seq, second.Seq)
	}
	inTx, err := p.Entries(ctx, tx, "wo-1")
	if err != nil || len(inTx) != 2 {
		t.Fatalf("entries inside tx = %v, %v", inTx, err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	entries, err := p.Entries(ctx, nil, "wo-1")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 || entries[0].Action != "Created" || entries[1].Action != "Status changed to In Progress" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].Timestamp != "2024-03-01T08:00:00Z" {
		t.Fatalf("unexpected timestamp %s", entries[0].Timestamp)
	}
	again, _ := p.Entries(ctx, nil, "wo-1")
	if len(again) != len(entries) || again[1].Seq != entries[1].Seq {
		t.Fatalf("projection not stable: %+v vs %+v", again, entries)
	}

	timeline := p.Timeline(ctx, entries, mapDirectory{"m-1": {ID: "m-1", Name: "Mona"}})
	if timeline[0].ActorName != "Mona" || timeline[1].ActorName != "t-1" {
		t.Fatalf("unexpected names: %+v", timeline)
	}

	empty, err := p.Entries(ctx, nil, "missing")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty history, got %v, %v", empty, err)
	}
}

func TestAppendRequiresTransaction(t *testing.T) {
	if _, err := (Writer{}).Append(context.Background(), nil, "wo", ActionCreated, "", "a"); err == nil {
		t.Fatalf("expected error without tx")
	}
}

func TestLabels(t *testing.T) {
	if got := StatusChanged(domain.StatusCompleted); got != "Status changed to Completed" {
		t.Fatalf("got %q", got)
	}
	if got := AssignedTo("Tess"); got != "Assigned to Tess" {
		t.Fatalf("got %q", got)
	}
}
