package ownership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-iam/strata/internal/hierarchy"
)

const (
	roleOwner    hierarchy.Role = "owner"
	roleOperator hierarchy.Role = "operator"

	acctOwner hierarchy.Account = "acct-owner"
	acctNext  hierarchy.Account = "acct-next"
	acctRand  hierarchy.Account = "acct-random"
)

func newGuard(t *testing.T) *Guard {
	t.Helper()
	g := NewGuard(hierarchy.New(roleOwner, 100))
	require.NoError(t, g.Bootstrap(acctOwner))
	return g
}

func TestBootstrap(t *testing.T) {
	g := NewGuard(hierarchy.New(roleOwner, 100))
	assert.ErrorIs(t, g.Bootstrap(hierarchy.AccountNone), hierarchy.ErrInvalidAccount)

	require.NoError(t, g.Bootstrap(acctOwner))
	assert.True(t, g.IsOwner(acctOwner))
	assert.Equal(t, roleOwner, g.Engine().RoleOf(acctOwner))

	assert.ErrorIs(t, g.Bootstrap(acctNext), ErrAlreadyBootstrapped)
}

func TestTransferOwnership(t *testing.T) {
	g := newGuard(t)

	prev, err := g.TransferOwnership(acctOwner, acctNext)
	require.NoError(t, err)
	assert.Equal(t, acctOwner, prev)

	assert.False(t, g.IsOwner(acctOwner))
	assert.True(t, g.IsOwner(acctNext))
	assert.Equal(t, hierarchy.RoleNone, g.Engine().RoleOf(acctOwner))
	assert.Equal(t, roleOwner, g.Engine().RoleOf(acctNext))

	// Symmetric transfer back works; the displaced owner has no authority.
	_, err = g.TransferOwnership(acctOwner, acctRand)
	assert.True(t, hierarchy.IsUnauthorized(err))
	_, err = g.TransferOwnership(acctNext, acctOwner)
	require.NoError(t, err)
	assert.True(t, g.IsOwner(acctOwner))
}

func TestTransferRejections(t *testing.T) {
	g := newGuard(t)

	_, err := g.TransferOwnership(acctOwner, hierarchy.AccountNone)
	assert.ErrorIs(t, err, ErrTransferToZeroAccount)

	_, err = g.TransferOwnership(acctOwner, acctOwner)
	assert.ErrorIs(t, err, ErrTransferToSelf)

	_, err = g.TransferOwnership(acctRand, acctNext)
	assert.True(t, hierarchy.IsUnauthorized(err))
	// Failed attempts leave the owner untouched.
	assert.True(t, g.IsOwner(acctOwner))
}

func TestOwnerRoleClosedToGenericAPI(t *testing.T) {
	g := newGuard(t)

	_, err := g.GrantRole(acctOwner, roleOwner, acctNext)
	assert.ErrorIs(t, err, ErrOwnerRoleNotGrantable)

	_, err = g.RevokeRole(acctOwner, roleOwner, acctOwner)
	assert.ErrorIs(t, err, ErrOwnerRoleNotRevocable)

	_, err = g.RenounceRole(acctOwner, roleOwner, acctOwner)
	assert.ErrorIs(t, err, ErrOwnerRoleNotRevocable)

	// Granting a lesser role to the owner account would silently vacate
	// the owner role, so it is rejected too.
	require.NoError(t, g.SetRoleLevel(acctOwner, roleOperator, 90))
	_, err = g.GrantRole(acctOwner, roleOperator, acctOwner)
	assert.ErrorIs(t, err, ErrOwnerRoleNotRevocable)

	assert.True(t, g.IsOwner(acctOwner))
	assert.Equal(t, roleOwner, g.Engine().RoleOf(acctOwner))
}

func TestGenericRolesStillFlow(t *testing.T) {
	g := newGuard(t)
	require.NoError(t, g.SetRoleLevel(acctOwner, roleOperator, 90))

	changed, err := g.GrantRole(acctOwner, roleOperator, acctNext)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = g.RenounceRole(acctNext, roleOperator, acctNext)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestExactlyOneOwnerAlways(t *testing.T) {
	g := newGuard(t)
	accounts := []hierarchy.Account{acctOwner, acctNext, acctRand}

	countOwners := func() int {
		n := 0
		for _, a := range accounts {
			if g.Engine().RoleOf(a) == roleOwner {
				n++
			}
		}
		return n
	}

	assert.Equal(t, 1, countOwners())
	_, err := g.TransferOwnership(acctOwner, acctNext)
	require.NoError(t, err)
	assert.Equal(t, 1, countOwners())
	_, err = g.TransferOwnership(acctNext, acctRand)
	require.NoError(t, err)
	assert.Equal(t, 1, countOwners())
}

func TestRevertTransfer(t *testing.T) {
	g := newGuard(t)
	prev, err := g.TransferOwnership(acctOwner, acctNext)
	require.NoError(t, err)

	g.RevertTransfer(prev, acctNext)
	assert.True(t, g.IsOwner(acctOwner))
	assert.Equal(t, roleOwner, g.Engine().RoleOf(acctOwner))
	assert.Equal(t, hierarchy.RoleNone, g.Engine().RoleOf(acctNext))
}

func TestNotBootstrapped(t *testing.T) {
	g := NewGuard(hierarchy.New(roleOwner, 100))
	_, err := g.TransferOwnership(acctOwner, acctNext)
	assert.ErrorIs(t, err, ErrNotBootstrapped)
}
