package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maintline/internal/domain"
)

func assigned(id string) *domain.WorkOrder {
	wo := &domain.WorkOrder{ID: "wo-1", Status: domain.StatusPending}
	if id != "" {
		wo.AssignedTo = &domain.UserRef{ID: id, Name: id}
	}
	return wo
}

func TestRoleTable(t *testing.T) {
	p := New(ViewAll)
	cases := []struct {
		action Action
		role   domain.Role
		want   bool
	}{
		{ActionCreateWorkOrder, domain.RoleAdmin, true},
		{ActionCreateWorkOrder, domain.RoleManager, true},
		{ActionCreateWorkOrder, domain.RoleTechnician, false},
		{ActionAssignTechnician, domain.RoleAdmin, true},
		{ActionAssignTechnician, domain.RoleManager, true},
		{ActionAssignTechnician, domain.RoleTechnician, false},
		{ActionDeleteWorkOrder, domain.RoleManager, true},
		{ActionDeleteWorkOrder, domain.RoleTechnician, false},
		{ActionManageAssets, domain.RoleAdmin, true},
		{ActionManageAssets, domain.RoleManager, false},
		{ActionManageUsers, domain.RoleAdmin, true},
		{ActionManageUsers, domain.RoleManager, false},
		{ActionManageUsers, domain.RoleTechnician, false},
		{ActionViewAssets, domain.RoleTechnician, true},
		{ActionViewReports, domain.RoleAdmin, true},
		{ActionViewReports, domain.RoleManager, false},
		{ActionListUsers, domain.RoleManager, true},
		{ActionListUsers, domain.RoleTechnician, false},
		{ActionViewWorkOrder, domain.RoleTechnician, true},
		{ActionViewHistory, domain.RoleTechnician, true},
	}
	for _, tc := range cases {
		d := p.Authorize(tc.role, "u-1", tc.action, assigned("someone-else"))
		assert.Equalf(t, tc.want, d.Allowed, "%s as %s", tc.action, tc.role)
	}
}

func TestTechnicianStatusRequiresAssignment(t *testing.T) {
	p := New(ViewAll)
	assert.True(t, p.Authorize(domain.RoleTechnician, "t-1", ActionUpdateStatus, assigned("t-1")).Allowed)

	d := p.Authorize(domain.RoleTechnician, "t-1", ActionUpdateStatus, assigned("t-2"))
	assert.False(t, d.Allowed)
	assert.NotEmpty(t, d.Reason)

	assert.False(t, p.Authorize(domain.RoleTechnician, "t-1", ActionUpdateStatus, assigned("")).Allowed)
	assert.False(t, p.Authorize(domain.RoleTechnician, "", ActionUpdateStatus, assigned("")).Allowed)
	assert.False(t, p.Authorize(domain.RoleTechnician, "t-1", ActionUpdateStatus, nil).Allowed)
	assert.True(t, p.Authorize(domain.RoleManager, "m-1", ActionUpdateStatus, assigned("t-2")).Allowed)
}

func TestUnknownRoleAndActionDenied(t *testing.T) {
	p := New(ViewAll)
	assert.False(t, p.Authorize("Guest", "g-1", ActionViewWorkOrder, assigned("")).Allowed)
	assert.False(t, p.Authorize("", "g-1", ActionViewAssets, nil).Allowed)
	assert.False(t, p.Authorize(domain.RoleAdmin, "a-1", Action("archive"), nil).Allowed)
}

func TestOwnViewScope(t *testing.T) {
	p := New(ViewOwn)
	assert.True(t, p.Authorize(domain.RoleTechnician, "t-1", ActionViewWorkOrder, assigned("t-1")).Allowed)
	assert.False(t, p.Authorize(domain.RoleTechnician, "t-1", ActionViewWorkOrder, assigned("t-2")).Allowed)
	assert.False(t, p.Authorize(domain.RoleTechnician, "t-1", ActionViewHistory, assigned("")).Allowed)
	assert.True(t, p.Authorize(domain.RoleTechnician, "t-1", ActionViewWorkOrder, nil).Allowed)
	assert.True(t, p.Authorize(domain.RoleManager, "m-1", ActionViewWorkOrder, assigned("t-2")).Allowed)
	assert.True(t, p.OwnOnly(domain.RoleTechnician))
	assert.False(t, p.OwnOnly(domain.RoleManager))
	assert.False(t, New("").OwnOnly(domain.RoleTechnician))
}

func TestCheckReturnsForbiddenError(t *testing.T) {
	p := New(ViewAll)
	err := p.Check(domain.Actor{ID: "t-1", Role: domain.RoleTechnician}, ActionDeleteWorkOrder, assigned("t-1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	var fe ForbiddenError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, ActionDeleteWorkOrder, fe.Action)
	assert.Equal(t, domain.RoleTechnician, fe.Role)

	assert.NoError(t, p.Check(domain.Actor{ID: "a-1", Role: domain.RoleAdmin}, ActionDeleteWorkOrder, assigned("")))
}

func TestGrants(t *testing.T) {
	assert.Equal(t, []domain.Role{domain.RoleAdmin}, Grants(ActionManageUsers))
	assert.Equal(t, []domain.Role{domain.RoleAdmin, domain.RoleManager, domain.RoleTechnician}, Grants(ActionUpdateStatus))
	assert.Len(t, Actions(), 11)
}
