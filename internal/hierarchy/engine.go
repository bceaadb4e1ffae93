package hierarchy

import "sync"

// Engine holds the two authorization tables and applies every state
// transition under a single mutex, so each operation is atomic: all checks
// run before any write, and a failed check leaves the tables untouched.
//
// Admin authority is computed live from the level tables rather than a
// static per-role admin map: a caller administers a role iff the caller's
// own role level is strictly greater than the target role's level. The one
// exception is the owner role, which only its literal holder administers:
// nothing can strictly outrank the maximum level, so strict-greater could
// never be satisfied for it.
type Engine struct {
	mu        sync.Mutex
	ownerRole Role

	levels   map[Role]Level
	assigned map[Account]Role
}

// New builds an empty engine with the given distinguished owner role pinned
// at ownerLevel. ownerRole must not be RoleNone.
func New(ownerRole Role, ownerLevel Level) *Engine {
	return &Engine{
		ownerRole: ownerRole,
		levels:    map[Role]Level{ownerRole: ownerLevel},
		assigned:  make(map[Account]Role),
	}
}

// OwnerRole returns the distinguished owner role.
func (e *Engine) OwnerRole() Role {
	return e.ownerRole
}

// LevelOf returns the level of role. Unknown roles resolve to 0; that is the
// safe default, not an error.
func (e *Engine) LevelOf(role Role) Level {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.levels[role]
}

// RoleOf returns the role literally assigned to account, or RoleNone.
func (e *Engine) RoleOf(account Account) Role {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.assigned[account]
}

// HasRole reports whether account satisfies the role requirement. This is a
// level dominance check, not a membership check: any account whose assigned
// role's level is at least the required level passes, whether or not it was
// ever literally granted that role.
func (e *Engine) HasRole(role Role, account Account) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dominates(role, account)
}

// RequireRole is HasRole with an UnauthorizedError on failure. Privileged
// entry points call it before touching any state.
func (e *Engine) RequireRole(role Role, account Account) error {
	if !e.HasRole(role, account) {
		return &UnauthorizedError{Account: account, Role: role}
	}
	return nil
}

// IsAdminFor reports whether caller may grant or revoke role. Access and
// administration are distinct relations: equal-level roles satisfy each
// other's HasRole checks but neither administers the other.
func (e *Engine) IsAdminFor(role Role, caller Account) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.adminFor(role, caller)
}

// RequireAdminFor is IsAdminFor with an UnauthorizedError on failure.
func (e *Engine) RequireAdminFor(role Role, caller Account) error {
	if !e.IsAdminFor(role, caller) {
		return &UnauthorizedError{Account: caller, Role: role}
	}
	return nil
}

// GrantRole assigns role to account, replacing any role the account held
// before; there is no additive membership. The caller must administer role.
// The returned boolean reports whether state actually changed: a grant of a
// role the account already literally holds succeeds without changing state.
func (e *Engine) GrantRole(caller Account, role Role, account Account) (bool, error) {
	if account == AccountNone {
		return false, ErrInvalidAccount
	}
	if role == RoleNone {
		return false, ErrInvalidRole
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.adminFor(role, caller) {
		return false, &UnauthorizedError{Account: caller, Role: role}
	}
	if e.assigned[account] == role {
		return false, nil
	}
	e.assigned[account] = role
	return true, nil
}

// RevokeRole clears account's assignment, but only if the account literally
// holds role; revoking a role the account does not hold is a no-op reported
// through the returned boolean. The caller must administer role.
func (e *Engine) RevokeRole(caller Account, role Role, account Account) (bool, error) {
	if account == AccountNone {
		return false, ErrInvalidAccount
	}
	if role == RoleNone {
		return false, ErrInvalidRole
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.adminFor(role, caller) {
		return false, &UnauthorizedError{Account: caller, Role: role}
	}
	if e.assigned[account] != role {
		return false, nil
	}
	delete(e.assigned, account)
	return true, nil
}

// RenounceRole is the self-service revoke: no admin check, but confirm must
// equal the caller so a caller cannot renounce on someone else's behalf.
func (e *Engine) RenounceRole(caller Account, role Role, confirm Account) (bool, error) {
	if caller == AccountNone {
		return false, ErrInvalidAccount
	}
	if confirm != caller {
		return false, ErrBadConfirmation
	}
	if role == RoleNone {
		return false, ErrInvalidRole
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.assigned[caller] != role {
		return false, nil
	}
	delete(e.assigned, caller)
	return true, nil
}

// SetRoleLevel overwrites role's level. Only the literal owner may call it.
// The change is immediate and retroactive: every subsequent HasRole and
// IsAdminFor evaluation sees the new ordering, with no grace period for
// accounts whose effective privilege just dropped.
//
// The owner role's own level is immutable, and no other role may be raised
// to or above it; both rules keep the owner the unique maximum.
func (e *Engine) SetRoleLevel(caller Account, role Role, level Level) error {
	if role == RoleNone {
		return ErrInvalidRole
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.assigned[caller] != e.ownerRole {
		return &UnauthorizedError{Account: caller, Role: e.ownerRole}
	}
	if role == e.ownerRole {
		return ErrOwnerLevelImmutable
	}
	if level >= e.levels[e.ownerRole] {
		return ErrLevelExceedsOwner
	}
	e.levels[role] = level
	return nil
}

// Snapshot returns a copy of both tables.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{
		Levels:      make(map[Role]Level, len(e.levels)),
		Assignments: make(map[Account]Role, len(e.assigned)),
	}
	for r, l := range e.levels {
		snap.Levels[r] = l
	}
	for a, r := range e.assigned {
		snap.Assignments[a] = r
	}
	return snap
}

// SeedLevel writes a level entry without authorization checks. It exists for
// boot rehydration and for reverting an applied mutation whose durable write
// failed; it is not part of the authorization surface.
func (e *Engine) SeedLevel(role Role, level Level) {
	if role == RoleNone {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.levels[role] = level
}

// SeedAssignment writes an assignment entry without authorization checks.
// Assigning RoleNone removes the entry. Same restrictions as SeedLevel.
func (e *Engine) SeedAssignment(account Account, role Role) {
	if account == AccountNone {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if role == RoleNone {
		delete(e.assigned, account)
		return
	}
	e.assigned[account] = role
}

// dominates implements the access relation. Callers hold e.mu.
func (e *Engine) dominates(role Role, account Account) bool {
	return e.levels[role] <= e.levels[e.assigned[account]]
}

// adminFor implements the administration relation. Callers hold e.mu.
func (e *Engine) adminFor(role Role, caller Account) bool {
	if role == e.ownerRole {
		return e.assigned[caller] == e.ownerRole
	}
	return e.levels[e.assigned[caller]] > e.levels[role]
}
