package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"maintline/internal/domain"
	"maintline/internal/identity"
	"maintline/internal/policy"
	"maintline/internal/validate"
)

// RegisterUser creates an account. Only admins may register users.
func (e Engine) RegisterUser(ctx context.Context, actor domain.Actor, in identity.Registration) (domain.User, error) {
	if err := e.Policy.Check(actor, policy.ActionManageUsers, nil); err != nil {
		return domain.User{}, err
	}
	u, err := identity.NewUser(in, e.now())
	if err != nil {
		return domain.User{}, err
	}
	if err := e.Repo.InsertUser(ctx, nil, u); err != nil {
		return domain.User{}, storeErr(err)
	}
	return u, nil
}

// BootstrapAdmin creates the first admin of an empty directory.
func (e Engine) BootstrapAdmin(ctx context.Context, in identity.Registration) (domain.User, error) {
	in.Role = string(domain.RoleAdmin)
	u, err := identity.NewUser(in, e.now())
	if err != nil {
		return domain.User{}, err
	}
	err = e.inTx(ctx, func(tx *sql.Tx) error {
		n, err := e.Repo.CountUsers(ctx, tx)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("users already exist; register new users as an admin: %w", domain.ErrConflict)
		}
		return e.Repo.InsertUser(ctx, tx, u)
	})
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// ListUsers lists users, optionally by role.
func (e Engine) ListUsers(ctx context.Context, actor domain.Actor, role string) ([]domain.User, error) {
	if err := e.Policy.Check(actor, policy.ActionListUsers, nil); err != nil {
		return nil, err
	}
	var r domain.Role
	if strings.TrimSpace(role) != "" {
		parsed, err := domain.ParseRole(role)
		if err != nil {
			return nil, err
		}
		r = parsed
	}
	users, err := e.Repo.ListUsers(ctx, r)
	if err != nil {
		return nil, storeErr(err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// CreateAPIKey issues a key for the actor itself, or for any user when the
// actor may manage users. The plaintext key is returned once.
func (e Engine) CreateAPIKey(ctx context.Context, actor domain.Actor, userID, name string) (domain.APIKey, string, error) {
	if userID == "" {
		userID = actor.ID
	}
	if userID != actor.ID {
		if err := e.Policy.Check(actor, policy.ActionManageUsers, nil); err != nil {
			return domain.APIKey{}, "", err
		}
	}
	if _, err := e.Repo.GetUser(ctx, nil, userID); err != nil {
		return domain.APIKey{}, "", storeErr(err)
	}
	plain, hash, err := identity.GenerateAPIKey()
	if err != nil {
		return domain.APIKey{}, "", err
	}
	key := domain.APIKey{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		KeyHash:   hash,
		CreatedAt: e.timestamp(),
	}
	if err := e.Repo.InsertAPIKey(ctx, nil, key); err != nil {
		return domain.APIKey{}, "", storeErr(err)
	}
	return key, plain, nil
}

// AssetInput is the payload for registering an asset.
type AssetInput struct {
	Name         string             `json:"name" validate:"required,max=200"`
	Location     string             `json:"location,omitempty" validate:"max=200"`
	Status       domain.AssetStatus `json:"status,omitempty" validate:"omitempty,oneof=Operational 'Under Maintenance' 'Out of Service'"`
	Model        string             `json:"model,omitempty" validate:"max=200"`
	Manufacturer string             `json:"manufacturer,omitempty" validate:"max=200"`
}

func (e Engine) CreateAsset(ctx context.Context, actor domain.Actor, in AssetInput) (domain.Asset, error) {
	if err := e.Policy.Check(actor, policy.ActionManageAssets, nil); err != nil {
		return domain.Asset{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	if in.Status == "" {
		in.Status = domain.AssetOperational
	}
	if err := validate.Struct(in); err != nil {
		return domain.Asset{}, err
	}
	a := domain.Asset{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Location:  in.Location,
		Status:    in.Status,
		CreatedAt: e.timestamp(),
	}
	if m := strings.TrimSpace(in.Model); m != "" {
		a.Model = &m
	}
	if m := strings.TrimSpace(in.Manufacturer); m != "" {
		a.Manufacturer = &m
	}
	if err := e.Repo.InsertAsset(ctx, nil, a); err != nil {
		return domain.Asset{}, storeErr(err)
	}
	return a, nil
}

func (e Engine) ListAssets(ctx context.Context, actor domain.Actor) ([]domain.Asset, error) {
	if err := e.Policy.Check(actor, policy.ActionViewAssets, nil); err != nil {
		return nil, err
	}
	assets, err := e.Repo.ListAssets(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	if assets == nil {
		assets = []domain.Asset{}
	}
	return assets, nil
}

func (e Engine) DeleteAsset(ctx context.Context, actor domain.Actor, id string) error {
	if err := e.Policy.Check(actor, policy.ActionManageAssets, nil); err != nil {
		return err
	}
	return storeErr(e.Repo.DeleteAsset(ctx, nil, id))
}

// Report summarizes assets and work orders.
func (e Engine) Report(ctx context.Context, actor domain.Actor) (domain.Report, error) {
	if err := e.Policy.Check(actor, policy.ActionViewReports, nil); err != nil {
		return domain.Report{}, err
	}
	assets, err := e.Repo.CountAssets(ctx)
	if err != nil {
		return domain.Report{}, storeErr(err)
	}
	counts, err := e.Repo.CountWorkOrdersByStatus(ctx)
	if err != nil {
		return domain.Report{}, storeErr(err)
	}
	rep := domain.Report{
		TotalAssets:     assets,
		PendingTasks:    counts[domain.StatusPending],
		InProgressTasks: counts[domain.StatusInProgress],
		CompletedTasks:  counts[domain.StatusCompleted],
	}
	for _, n := range counts {
		rep.TotalTasks += n
	}
	return rep, nil
}
