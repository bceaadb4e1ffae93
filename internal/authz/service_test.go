package authz

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-iam/strata/internal/events"
	"github.com/strata-iam/strata/internal/hierarchy"
	"github.com/strata-iam/strata/internal/ownership"
)

const (
	roleOwner    hierarchy.Role = "owner"
	roleOperator hierarchy.Role = "operator"

	acctOwner hierarchy.Account = "acct-owner"
	acctAdmin hierarchy.Account = "acct-admin"
	acctUser  hierarchy.Account = "acct-user"
)

type memRepo struct {
	state    State
	saved    []events.Event
	failNext error
}

func newMemRepo() *memRepo {
	return &memRepo{state: State{
		Levels:      make(map[hierarchy.Role]hierarchy.Level),
		Assignments: make(map[hierarchy.Account]hierarchy.Role),
	}}
}

func (m *memRepo) fail() error {
	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}
	return nil
}

func (m *memRepo) Load(ctx context.Context) (State, error) {
	return m.state, nil
}

func (m *memRepo) SaveAssignment(ctx context.Context, account hierarchy.Account, role hierarchy.Role, evt events.Event) error {
	if err := m.fail(); err != nil {
		return err
	}
	m.state.Assignments[account] = role
	m.saved = append(m.saved, evt)
	return nil
}

func (m *memRepo) ClearAssignment(ctx context.Context, account hierarchy.Account, evt events.Event) error {
	if err := m.fail(); err != nil {
		return err
	}
	delete(m.state.Assignments, account)
	m.saved = append(m.saved, evt)
	return nil
}

func (m *memRepo) SaveLevel(ctx context.Context, role hierarchy.Role, level hierarchy.Level, evt events.Event) error {
	if err := m.fail(); err != nil {
		return err
	}
	m.state.Levels[role] = level
	m.saved = append(m.saved, evt)
	return nil
}

func (m *memRepo) SaveOwner(ctx context.Context, prev, next hierarchy.Account, ownerRole hierarchy.Role, evt events.Event) error {
	if err := m.fail(); err != nil {
		return err
	}
	delete(m.state.Assignments, prev)
	m.state.Assignments[next] = ownerRole
	m.state.Owner = next
	m.saved = append(m.saved, evt)
	return nil
}

func (m *memRepo) SeedOwner(ctx context.Context, owner hierarchy.Account, ownerRole hierarchy.Role, level hierarchy.Level) error {
	m.state.Levels[ownerRole] = level
	m.state.Assignments[owner] = ownerRole
	m.state.Owner = owner
	return nil
}

type captureDispatcher struct {
	dispatched []events.Event
}

func (c *captureDispatcher) Dispatch(ctx context.Context, evt events.Event) {
	c.dispatched = append(c.dispatched, evt)
}

func newTestService(t *testing.T) (*Service, *memRepo, *captureDispatcher) {
	t.Helper()
	repo := newMemRepo()
	disp := &captureDispatcher{}
	guard := ownership.NewGuard(hierarchy.New(roleOwner, 100))
	svc := NewService(slog.Default(), guard, repo, disp, nil)
	require.NoError(t, svc.Rehydrate(context.Background(), acctOwner))
	return svc, repo, disp
}

func TestRehydrateBootstrapsFirstBoot(t *testing.T) {
	svc, repo, _ := newTestService(t)

	assert.Equal(t, acctOwner, svc.Owner())
	assert.Equal(t, acctOwner, repo.state.Owner)
	assert.Equal(t, roleOwner, repo.state.Assignments[acctOwner])
	assert.Equal(t, hierarchy.Level(100), repo.state.Levels[roleOwner])
}

func TestRehydrateFromDurableState(t *testing.T) {
	repo := newMemRepo()
	repo.state.Levels[roleOwner] = 100
	repo.state.Levels[roleOperator] = 90
	repo.state.Assignments[acctOwner] = roleOwner
	repo.state.Assignments[acctAdmin] = roleOperator
	repo.state.Owner = acctOwner

	guard := ownership.NewGuard(hierarchy.New(roleOwner, 100))
	svc := NewService(slog.Default(), guard, repo, nil, nil)
	require.NoError(t, svc.Rehydrate(context.Background(), "ignored-bootstrap"))

	assert.Equal(t, acctOwner, svc.Owner())
	assert.Equal(t, roleOperator, svc.AccountRole(acctAdmin))
	assert.True(t, svc.Check(roleOperator, acctAdmin))
}

func TestGrantPersistsAndDispatches(t *testing.T) {
	svc, repo, disp := newTestService(t)
	require.NoError(t, svc.SetLevel(context.Background(), acctOwner, roleOperator, 90))

	changed, err := svc.Grant(context.Background(), acctOwner, roleOperator, acctAdmin)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, roleOperator, repo.state.Assignments[acctAdmin])

	var granted []events.Event
	for _, evt := range disp.dispatched {
		if evt.Kind == events.KindRoleGranted {
			granted = append(granted, evt)
		}
	}
	require.Len(t, granted, 1)
	assert.Equal(t, string(roleOperator), granted[0].Role)
	assert.Equal(t, string(acctAdmin), granted[0].Account)
	assert.Equal(t, string(acctOwner), granted[0].Actor)
}

func TestGrantIdempotentStillEmitsEvent(t *testing.T) {
	svc, _, disp := newTestService(t)
	require.NoError(t, svc.SetLevel(context.Background(), acctOwner, roleOperator, 90))

	_, err := svc.Grant(context.Background(), acctOwner, roleOperator, acctAdmin)
	require.NoError(t, err)
	before := len(disp.dispatched)

	changed, err := svc.Grant(context.Background(), acctOwner, roleOperator, acctAdmin)
	require.NoError(t, err)
	// No state change, but the event still fires.
	assert.False(t, changed)
	assert.Len(t, disp.dispatched, before+1)
}

func TestGrantDeniedLeavesNoTrace(t *testing.T) {
	svc, repo, disp := newTestService(t)
	require.NoError(t, svc.SetLevel(context.Background(), acctOwner, roleOperator, 90))
	eventsBefore := len(repo.saved)

	_, err := svc.Grant(context.Background(), acctUser, roleOperator, acctAdmin)
	assert.True(t, hierarchy.IsUnauthorized(err))
	assert.NotContains(t, repo.state.Assignments, acctAdmin)
	assert.Len(t, repo.saved, eventsBefore)
	for _, evt := range disp.dispatched {
		assert.NotEqual(t, events.KindRoleGranted, evt.Kind)
	}
}

func TestGrantPersistFailureRevertsEngine(t *testing.T) {
	svc, repo, _ := newTestService(t)
	require.NoError(t, svc.SetLevel(context.Background(), acctOwner, roleOperator, 90))

	repo.failNext = errors.New("pg down")
	_, err := svc.Grant(context.Background(), acctOwner, roleOperator, acctAdmin)
	require.Error(t, err)
	assert.Equal(t, hierarchy.RoleNone, svc.AccountRole(acctAdmin))

	// The same grant succeeds once the store recovers.
	changed, err := svc.Grant(context.Background(), acctOwner, roleOperator, acctAdmin)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestRevokeNoOpEmitsNothing(t *testing.T) {
	svc, repo, _ := newTestService(t)
	require.NoError(t, svc.SetLevel(context.Background(), acctOwner, roleOperator, 90))
	eventsBefore := len(repo.saved)

	changed, err := svc.Revoke(context.Background(), acctOwner, roleOperator, acctAdmin)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, repo.saved, eventsBefore)
}

func TestRevokeAndRenounce(t *testing.T) {
	svc, repo, _ := newTestService(t)
	require.NoError(t, svc.SetLevel(context.Background(), acctOwner, roleOperator, 90))

	_, err := svc.Grant(context.Background(), acctOwner, roleOperator, acctAdmin)
	require.NoError(t, err)
	changed, err := svc.Revoke(context.Background(), acctOwner, roleOperator, acctAdmin)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotContains(t, repo.state.Assignments, acctAdmin)

	_, err = svc.Grant(context.Background(), acctOwner, roleOperator, acctAdmin)
	require.NoError(t, err)
	_, err = svc.Renounce(context.Background(), acctAdmin, roleOperator, acctUser)
	assert.ErrorIs(t, err, hierarchy.ErrBadConfirmation)
	changed, err = svc.Renounce(context.Background(), acctAdmin, roleOperator, acctAdmin)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestSetLevelPersistFailureReverts(t *testing.T) {
	svc, repo, _ := newTestService(t)
	require.NoError(t, svc.SetLevel(context.Background(), acctOwner, roleOperator, 90))

	repo.failNext = errors.New("pg down")
	err := svc.SetLevel(context.Background(), acctOwner, roleOperator, 50)
	require.Error(t, err)
	assert.Equal(t, hierarchy.Level(90), svc.RoleLevel(roleOperator))
}

func TestTransferPersistsOwner(t *testing.T) {
	svc, repo, disp := newTestService(t)

	require.NoError(t, svc.Transfer(context.Background(), acctOwner, acctAdmin))
	assert.Equal(t, acctAdmin, svc.Owner())
	assert.Equal(t, acctAdmin, repo.state.Owner)
	assert.Equal(t, roleOwner, repo.state.Assignments[acctAdmin])
	assert.NotContains(t, repo.state.Assignments, acctOwner)

	last := disp.dispatched[len(disp.dispatched)-1]
	assert.Equal(t, events.KindOwnershipTransferred, last.Kind)
	assert.Equal(t, string(acctOwner), last.Actor)
	assert.Equal(t, string(acctAdmin), last.Account)
}

func TestTransferPersistFailureReverts(t *testing.T) {
	svc, repo, _ := newTestService(t)

	repo.failNext = errors.New("pg down")
	err := svc.Transfer(context.Background(), acctOwner, acctAdmin)
	require.Error(t, err)
	assert.Equal(t, acctOwner, svc.Owner())
	assert.Equal(t, roleOwner, svc.AccountRole(acctOwner))
	assert.Equal(t, hierarchy.RoleNone, svc.AccountRole(acctAdmin))
}

func TestOwnerRoleClosedThroughService(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Grant(context.Background(), acctOwner, roleOwner, acctAdmin)
	assert.ErrorIs(t, err, ownership.ErrOwnerRoleNotGrantable)
	_, err = svc.Revoke(context.Background(), acctOwner, roleOwner, acctOwner)
	assert.ErrorIs(t, err, ownership.ErrOwnerRoleNotRevocable)
}
