package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"maintline/internal/domain"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repo reads and writes through tx when one is given, otherwise through DB.
type Repo struct {
	DB *sql.DB
}

var ErrNotFound = domain.ErrNotFound

func (r Repo) conn(tx *sql.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.DB
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableString(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	s := ns.String
	return &s
}

// isUniqueViolation matches the SQLite constraint message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const workOrderColumns = `w.id,w.asset,w.asset_id,w.description,w.priority,w.status,w.assigned_to,COALESCE(u.name,''),w.created_at,w.created_by,w.updated_at,w.version`

const workOrderFrom = ` FROM work_orders w LEFT JOIN users u ON u.id=w.assigned_to`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkOrder(row rowScanner) (domain.WorkOrder, error) {
	var (
		wo                domain.WorkOrder
		assetID, assignee sql.NullString
		assigneeName      string
	)
	err := row.Scan(&wo.ID, &wo.Asset, &assetID, &wo.Description, &wo.Priority, &wo.Status,
		&assignee, &assigneeName, &wo.CreatedAt, &wo.CreatedBy, &wo.UpdatedAt, &wo.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return wo, ErrNotFound
	}
	if err != nil {
		return wo, err
	}
	wo.AssetID = stringPtr(assetID)
	if assignee.Valid && assignee.String != "" {
		if assigneeName == "" {
			assigneeName = assignee.String
		}
		wo.AssignedTo = &domain.UserRef{ID: assignee.String, Name: assigneeName}
	}
	return wo, nil
}

func (r Repo) InsertWorkOrder(ctx context.Context, tx *sql.Tx, wo domain.WorkOrder) error {
	_, err := r.conn(tx).ExecContext(ctx, `INSERT INTO work_orders(id,asset,asset_id,description,priority,status,assigned_to,created_at,created_by,updated_at,version) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		wo.ID, wo.Asset, nullableString(wo.AssetID), wo.Description, wo.Priority, wo.Status,
		nullable(wo.AssigneeID()), wo.CreatedAt, wo.CreatedBy, wo.UpdatedAt, wo.Version)
	return err
}

// GetWorkOrder loads a work order without its history.
func (r Repo) GetWorkOrder(ctx context.Context, tx *sql.Tx, id string) (domain.WorkOrder, error) {
	wo, err := scanWorkOrder(r.conn(tx).QueryRowContext(ctx, `SELECT `+workOrderColumns+workOrderFrom+` WHERE w.id=?`, id))
	if errors.Is(err, ErrNotFound) {
		return wo, fmt.Errorf("work order %s: %w", id, ErrNotFound)
	}
	return wo, err
}

// UpdateWorkOrder writes status and assignee, conditional on wo.Version
// still being current. The stored version is incremented.
func (r Repo) UpdateWorkOrder(ctx context.Context, tx *sql.Tx, wo domain.WorkOrder) error {
	res, err := r.conn(tx).ExecContext(ctx, `UPDATE work_orders SET status=?, assigned_to=?, updated_at=?, version=version+1 WHERE id=? AND version=?`,
		wo.Status, nullable(wo.AssigneeID()), wo.UpdatedAt, wo.ID, wo.Version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := r.conn(tx).QueryRowContext(ctx, `SELECT 1 FROM work_orders WHERE id=?`, wo.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("work order %s: %w", wo.ID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("work order %s changed since version %d: %w", wo.ID, wo.Version, domain.ErrConflict)
	}
	return nil
}

// DeleteWorkOrder removes the work order; history rows cascade.
func (r Repo) DeleteWorkOrder(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.conn(tx).ExecContext(ctx, `DELETE FROM work_orders WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("work order %s: %w", id, ErrNotFound)
	}
	return nil
}

type WorkOrderFilter struct {
	Status     domain.Status
	AssignedTo string
	Priority   domain.Priority
	AssetID    string
}

func (r Repo) ListWorkOrders(ctx context.Context, f WorkOrderFilter) ([]domain.WorkOrder, error) {
	query := `SELECT ` + workOrderColumns + workOrderFrom
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		conds = append(conds, "w.status=?")
		args = append(args, f.Status)
	}
	if f.AssignedTo != "" {
		conds = append(conds, "w.assigned_to=?")
		args = append(args, f.AssignedTo)
	}
	if f.Priority != "" {
		conds = append(conds, "w.priority=?")
		args = append(args, f.Priority)
	}
	if f.AssetID != "" {
		conds = append(conds, "w.asset_id=?")
		args = append(args, f.AssetID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY w.created_at DESC, w.id"
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WorkOrder
	for rows.Next() {
		wo, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, wo)
	}
	return res, rows.Err()
}

// CountWorkOrdersByStatus returns the number of work orders per status.
func (r Repo) CountWorkOrdersByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM work_orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[domain.Status]int{}
	for rows.Next() {
		var (
			s domain.Status
			n int
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}
	return counts, rows.Err()
}
