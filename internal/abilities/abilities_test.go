package abilities

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dluzirna/dluzirna/internal/models"
)

func TestResolveAdmin(t *testing.T) {
	admin := &models.User{ID: "a1", Role: models.RoleAdmin}
	ability := Resolve(ForUser(admin))

	require.True(t, ability.ManageDebts)
	require.True(t, ability.ViewDashboard)
	require.True(t, ability.ManageUsers)
	require.False(t, ability.ListOwnDebts)
	require.False(t, ability.Register)

	require.True(t, ability.CanViewDebt(&models.Debt{ID: "d1"}))
}

func TestResolveCustomer(t *testing.T) {
	customer := &models.User{ID: "c1", Role: models.RoleCustomer}
	ability := Resolve(ForUser(customer))

	require.False(t, ability.ManageDebts)
	require.False(t, ability.ViewDashboard)
	require.False(t, ability.ManageUsers)
	require.True(t, ability.ListOwnDebts)

	ownID := "c1"
	otherID := "c2"
	require.True(t, ability.CanViewDebt(&models.Debt{ID: "d1", CustomerUserID: &ownID}))
	require.False(t, ability.CanViewDebt(&models.Debt{ID: "d2", CustomerUserID: &otherID}))
	require.False(t, ability.CanViewDebt(&models.Debt{ID: "d3"}))
}

func TestResolveAnonymous(t *testing.T) {
	ability := Resolve(Anonymous)

	require.False(t, ability.ManageDebts)
	require.False(t, ability.ListOwnDebts)
	require.True(t, ability.Register)

	linked := "c1"
	require.False(t, ability.CanViewDebt(&models.Debt{ID: "d1", CustomerUserID: &linked}))
	require.False(t, ability.CanViewDebt(nil))
}

func TestRolesAreMutuallyExclusive(t *testing.T) {
	require.True(t, models.RoleAdmin.Valid())
	require.True(t, models.RoleCustomer.Valid())
	require.False(t, models.Role("superuser").Valid())
	require.False(t, models.Role("").Valid())
}
