package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"maintline/internal/domain"
)

const assetColumns = `id,name,location,status,model,manufacturer,created_at`

func scanAsset(row rowScanner) (domain.Asset, error) {
	var (
		a                   domain.Asset
		model, manufacturer sql.NullString
	)
	err := row.Scan(&a.ID, &a.Name, &a.Location, &a.Status, &model, &manufacturer, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	a.Model = stringPtr(model)
	a.Manufacturer = stringPtr(manufacturer)
	return a, err
}

func (r Repo) InsertAsset(ctx context.Context, tx *sql.Tx, a domain.Asset) error {
	_, err := r.conn(tx).ExecContext(ctx, `INSERT INTO assets(`+assetColumns+`) VALUES (?,?,?,?,?,?,?)`,
		a.ID, a.Name, a.Location, a.Status, nullableString(a.Model), nullableString(a.Manufacturer), a.CreatedAt)
	return err
}

func (r Repo) GetAsset(ctx context.Context, tx *sql.Tx, id string) (domain.Asset, error) {
	a, err := scanAsset(r.conn(tx).QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id=?`, id))
	if errors.Is(err, ErrNotFound) {
		return a, fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	return a, err
}

func (r Repo) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+assetColumns+` FROM assets ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// DeleteAsset removes the asset record. Work orders keep their asset name.
func (r Repo) DeleteAsset(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.conn(tx).ExecContext(ctx, `DELETE FROM assets WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r Repo) CountAssets(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets`).Scan(&n)
	return n, err
}
