package authz

import (
	"context"
	"log/slog"
	"sync"

	"github.com/strata-iam/strata/internal/events"
	"github.com/strata-iam/strata/internal/hierarchy"
	"github.com/strata-iam/strata/internal/ownership"
)

// Dispatcher fans a recorded event out to external subscribers. Dispatch is
// best-effort: the mutation has already committed when it runs.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt events.Event)
}

// DecisionMetrics counts authorization outcomes.
type DecisionMetrics interface {
	Decision(op string, allowed bool)
}

// Service is the authorization facade. The in-memory engine is authoritative
// at runtime; mutations write through to the repository and revert the
// engine if the durable write fails, so both views either advance together
// or not at all. The service mutex serializes mutations end to end.
type Service struct {
	mu         sync.Mutex
	logger     *slog.Logger
	guard      *ownership.Guard
	repo       Repository
	dispatcher Dispatcher
	metrics    DecisionMetrics
}

// NewService constructs a Service. dispatcher and metrics may be nil.
func NewService(logger *slog.Logger, guard *ownership.Guard, repo Repository, dispatcher Dispatcher, metrics DecisionMetrics) *Service {
	return &Service{
		logger:     logger,
		guard:      guard,
		repo:       repo,
		dispatcher: dispatcher,
		metrics:    metrics,
	}
}

func (s *Service) engine() *hierarchy.Engine {
	return s.guard.Engine()
}

// Rehydrate loads durable state into the engine, or seeds the bootstrap
// owner on first boot.
func (s *Service) Rehydrate(ctx context.Context, bootstrapOwner hierarchy.Account) error {
	state, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	if state.Owner == hierarchy.AccountNone {
		if err := s.guard.Bootstrap(bootstrapOwner); err != nil {
			return err
		}
		ownerRole := s.engine().OwnerRole()
		if err := s.repo.SeedOwner(ctx, bootstrapOwner, ownerRole, s.engine().LevelOf(ownerRole)); err != nil {
			return err
		}
		s.logger.Info("bootstrapped owner", slog.String("owner", string(bootstrapOwner)))
		return nil
	}
	for role, level := range state.Levels {
		s.engine().SeedLevel(role, level)
	}
	for account, role := range state.Assignments {
		s.engine().SeedAssignment(account, role)
	}
	s.guard.Rehydrate(state.Owner)
	s.logger.Info("rehydrated role state",
		slog.Int("roles", len(state.Levels)),
		slog.Int("assignments", len(state.Assignments)),
		slog.String("owner", string(state.Owner)),
	)
	return nil
}

// Check reports whether account satisfies role. Pure read.
func (s *Service) Check(role hierarchy.Role, account hierarchy.Account) bool {
	allowed := s.engine().HasRole(role, account)
	s.recordDecision("check", allowed)
	return allowed
}

// RequireRole is the facade's precondition guard: business entry points call
// it before any state change.
func (s *Service) RequireRole(role hierarchy.Role, account hierarchy.Account) error {
	err := s.engine().RequireRole(role, account)
	s.recordDecision("require", err == nil)
	return err
}

// Grant assigns role to account on behalf of caller. The RoleGranted event
// is recorded on every successful call, including the idempotent no-change
// case; the returned boolean carries the state-change signal.
func (s *Service) Grant(ctx context.Context, caller hierarchy.Account, role hierarchy.Role, account hierarchy.Account) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.engine().RoleOf(account)
	changed, err := s.guard.GrantRole(caller, role, account)
	if err != nil {
		s.recordDecision("grant", false)
		return false, err
	}
	evt := events.RoleGranted(string(role), string(account), string(caller))
	if err := s.repo.SaveAssignment(ctx, account, role, evt); err != nil {
		s.engine().SeedAssignment(account, prev)
		return false, err
	}
	s.recordDecision("grant", true)
	s.dispatch(ctx, evt)
	return changed, nil
}

// Revoke clears account's assignment of role on behalf of caller. The
// no-op case (account does not literally hold role) records no event.
func (s *Service) Revoke(ctx context.Context, caller hierarchy.Account, role hierarchy.Role, account hierarchy.Account) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.guard.RevokeRole(caller, role, account)
	if err != nil {
		s.recordDecision("revoke", false)
		return false, err
	}
	s.recordDecision("revoke", true)
	if !changed {
		return false, nil
	}
	evt := events.RoleRevoked(string(role), string(account), string(caller))
	if err := s.repo.ClearAssignment(ctx, account, evt); err != nil {
		s.engine().SeedAssignment(account, role)
		return false, err
	}
	s.dispatch(ctx, evt)
	return true, nil
}

// Renounce is the self-service revoke.
func (s *Service) Renounce(ctx context.Context, caller hierarchy.Account, role hierarchy.Role, confirm hierarchy.Account) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.guard.RenounceRole(caller, role, confirm)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}
	evt := events.RoleRevoked(string(role), string(caller), string(caller))
	if err := s.repo.ClearAssignment(ctx, caller, evt); err != nil {
		s.engine().SeedAssignment(caller, role)
		return false, err
	}
	s.dispatch(ctx, evt)
	return true, nil
}

// SetLevel overwrites role's level. The reordering is global and immediate
// for every account holding any role.
func (s *Service) SetLevel(ctx context.Context, caller hierarchy.Account, role hierarchy.Role, level hierarchy.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.engine().LevelOf(role)
	if err := s.guard.SetRoleLevel(caller, role, level); err != nil {
		s.recordDecision("set_level", false)
		return err
	}
	evt := events.RoleLevelSet(string(role), uint32(level), string(caller))
	if err := s.repo.SaveLevel(ctx, role, level, evt); err != nil {
		s.engine().SeedLevel(role, prev)
		return err
	}
	s.recordDecision("set_level", true)
	s.dispatch(ctx, evt)
	return nil
}

// Transfer atomically moves ownership to newOwner.
func (s *Service) Transfer(ctx context.Context, caller, newOwner hierarchy.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.guard.TransferOwnership(caller, newOwner)
	if err != nil {
		s.recordDecision("transfer", false)
		return err
	}
	evt := events.OwnershipTransferred(string(prev), string(newOwner))
	if err := s.repo.SaveOwner(ctx, prev, newOwner, s.engine().OwnerRole(), evt); err != nil {
		s.guard.RevertTransfer(prev, newOwner)
		return err
	}
	s.recordDecision("transfer", true)
	s.dispatch(ctx, evt)
	return nil
}

// RoleLevel returns role's level; unknown roles are level 0.
func (s *Service) RoleLevel(role hierarchy.Role) hierarchy.Level {
	return s.engine().LevelOf(role)
}

// AccountRole returns the role literally assigned to account.
func (s *Service) AccountRole(account hierarchy.Account) hierarchy.Role {
	return s.engine().RoleOf(account)
}

// Owner returns the current owner.
func (s *Service) Owner() hierarchy.Account {
	return s.guard.Owner()
}

// IsOwner reports whether account is the owner.
func (s *Service) IsOwner(account hierarchy.Account) bool {
	return s.guard.IsOwner(account)
}

// OwnerRole returns the reserved owner role name.
func (s *Service) OwnerRole() hierarchy.Role {
	return s.engine().OwnerRole()
}

func (s *Service) dispatch(ctx context.Context, evt events.Event) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Dispatch(ctx, evt)
}

func (s *Service) recordDecision(op string, allowed bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.Decision(op, allowed)
}
