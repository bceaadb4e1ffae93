// Package ownership layers the single-owner invariant on top of the
// hierarchy engine: exactly one account holds the owner role at every
// observable state, and the only path that moves it is TransferOwnership.
package ownership

import (
	"errors"
	"sync"

	"github.com/strata-iam/strata/internal/hierarchy"
)

var (
	// ErrOwnerRoleNotGrantable rejects owner-role grants through the generic
	// role API; a second owner must never exist, even transiently.
	ErrOwnerRoleNotGrantable = errors.New("ownership: owner role can only move via transfer")
	// ErrOwnerRoleNotRevocable rejects owner-role revokes and renounces; zero
	// owners must never exist.
	ErrOwnerRoleNotRevocable = errors.New("ownership: owner role cannot be revoked or renounced")
	// ErrTransferToZeroAccount rejects a transfer to the zero account.
	ErrTransferToZeroAccount = errors.New("ownership: cannot transfer to the zero account")
	// ErrTransferToSelf rejects a transfer to the current owner.
	ErrTransferToSelf = errors.New("ownership: cannot transfer to the current owner")
	// ErrTransferInProgress trips if a transfer re-enters the transfer
	// boundary. The mutex already serializes transfers under real
	// concurrency; the flag keeps the revoke+grant pair a documented
	// non-reentrant transaction even if a future call path loops back in.
	ErrTransferInProgress = errors.New("ownership: transfer already in progress")
	// ErrNotBootstrapped indicates the guard was used before an owner was
	// seeded.
	ErrNotBootstrapped = errors.New("ownership: no owner bootstrapped")
	// ErrAlreadyBootstrapped indicates a second bootstrap attempt.
	ErrAlreadyBootstrapped = errors.New("ownership: owner already bootstrapped")
)

// Guard wraps a hierarchy engine and enforces the single-owner invariant
// across every role mutation. All role traffic goes through the guard; the
// engine is never mutated directly once the guard owns it.
type Guard struct {
	engine *hierarchy.Engine

	mu           sync.Mutex
	owner        hierarchy.Account
	transferring bool
}

// NewGuard wraps engine. Bootstrap must run before any other operation.
func NewGuard(engine *hierarchy.Engine) *Guard {
	return &Guard{engine: engine}
}

// Engine exposes the wrapped engine for read-only predicates.
func (g *Guard) Engine() *hierarchy.Engine {
	return g.engine
}

// OwnerRole returns the distinguished owner role.
func (g *Guard) OwnerRole() hierarchy.Role {
	return g.engine.OwnerRole()
}

// Bootstrap seeds the initial owner. It runs exactly once, at module
// initialization or at boot when no durable owner exists yet.
func (g *Guard) Bootstrap(owner hierarchy.Account) error {
	if owner == hierarchy.AccountNone {
		return hierarchy.ErrInvalidAccount
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.owner != hierarchy.AccountNone {
		return ErrAlreadyBootstrapped
	}
	g.engine.SeedAssignment(owner, g.engine.OwnerRole())
	g.owner = owner
	return nil
}

// Rehydrate restores the owner slot from durable state without the
// run-once restriction. Boot-time use only.
func (g *Guard) Rehydrate(owner hierarchy.Account) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.owner = owner
}

// Owner returns the current owner account.
func (g *Guard) Owner() hierarchy.Account {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.owner
}

// IsOwner reports whether account is the current owner.
func (g *Guard) IsOwner(account hierarchy.Account) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return account != hierarchy.AccountNone && account == g.owner
}

// TransferOwnership atomically moves the owner role from the current owner
// to newOwner: revoke, grant and owner-slot update happen inside one
// transfer boundary, so no observer sees zero or two owners.
func (g *Guard) TransferOwnership(caller, newOwner hierarchy.Account) (hierarchy.Account, error) {
	if newOwner == hierarchy.AccountNone {
		return hierarchy.AccountNone, ErrTransferToZeroAccount
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.owner == hierarchy.AccountNone {
		return hierarchy.AccountNone, ErrNotBootstrapped
	}
	if g.transferring {
		return hierarchy.AccountNone, ErrTransferInProgress
	}
	if caller != g.owner {
		return hierarchy.AccountNone, &hierarchy.UnauthorizedError{Account: caller, Role: g.engine.OwnerRole()}
	}
	if newOwner == g.owner {
		return hierarchy.AccountNone, ErrTransferToSelf
	}
	g.transferring = true
	defer func() { g.transferring = false }()

	prev := g.owner
	g.engine.SeedAssignment(prev, hierarchy.RoleNone)
	g.engine.SeedAssignment(newOwner, g.engine.OwnerRole())
	g.owner = newOwner
	return prev, nil
}

// GrantRole forwards to the engine after rejecting the owner role, which is
// never grantable through the generic API.
func (g *Guard) GrantRole(caller hierarchy.Account, role hierarchy.Role, account hierarchy.Account) (bool, error) {
	if role == g.engine.OwnerRole() {
		return false, ErrOwnerRoleNotGrantable
	}
	// Granting any role to the owner would vacate the owner role, since an
	// account holds exactly one role.
	if g.IsOwner(account) {
		return false, ErrOwnerRoleNotRevocable
	}
	return g.engine.GrantRole(caller, role, account)
}

// RevokeRole forwards to the engine after rejecting the owner role.
func (g *Guard) RevokeRole(caller hierarchy.Account, role hierarchy.Role, account hierarchy.Account) (bool, error) {
	if role == g.engine.OwnerRole() {
		return false, ErrOwnerRoleNotRevocable
	}
	return g.engine.RevokeRole(caller, role, account)
}

// RenounceRole forwards to the engine after rejecting the owner role; the
// owner cannot abdicate, only transfer.
func (g *Guard) RenounceRole(caller hierarchy.Account, role hierarchy.Role, confirm hierarchy.Account) (bool, error) {
	if role == g.engine.OwnerRole() {
		return false, ErrOwnerRoleNotRevocable
	}
	return g.engine.RenounceRole(caller, role, confirm)
}

// SetRoleLevel forwards to the engine, which enforces the owner-only gate
// and the owner-level clamp.
func (g *Guard) SetRoleLevel(caller hierarchy.Account, role hierarchy.Role, level hierarchy.Level) error {
	return g.engine.SetRoleLevel(caller, role, level)
}

// RevertTransfer undoes an applied transfer whose durable write failed.
// Persistence-layer use only.
func (g *Guard) RevertTransfer(prev, failed hierarchy.Account) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.engine.SeedAssignment(failed, hierarchy.RoleNone)
	g.engine.SeedAssignment(prev, g.engine.OwnerRole())
	g.owner = prev
}
