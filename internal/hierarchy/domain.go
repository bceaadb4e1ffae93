// Package hierarchy implements the level-ordered role model: every role maps
// to a numeric privilege level, every account holds at most one role, and a
// required role is satisfied by any account whose assigned role's level is at
// least the required level.
package hierarchy

// Role identifies a privilege category. Roles exist implicitly the first time
// they are referenced; an unreferenced role has level 0.
type Role string

// RoleNone is the tombstone for "no role assigned". It resolves to level 0,
// the same as any role that was never given an explicit level.
const RoleNone Role = ""

// Account identifies a principal being checked or assigned a role.
type Account string

// AccountNone is the zero account. It is rejected by every mutation.
const AccountNone Account = ""

// Level is the privilege rank attached to a role. Higher dominates lower.
type Level uint32

// Snapshot is a copy of the engine's state, used for persistence and boot
// rehydration.
type Snapshot struct {
	Levels      map[Role]Level
	Assignments map[Account]Role
}
