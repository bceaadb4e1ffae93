// Package events is the durable external record of role changes: every
// successful mutation emits exactly one event, persisted alongside the
// mutation and fanned out to webhook subscribers. Events fire on success
// paths only; there is no other history surface.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates event payloads.
type Kind string

const (
	KindRoleGranted          Kind = "role.granted"
	KindRoleRevoked          Kind = "role.revoked"
	KindRoleLevelSet         Kind = "role.level_set"
	KindOwnershipTransferred Kind = "ownership.transferred"
)

// Event is one role-change record.
//
// Field use per kind: role.granted/role.revoked carry Role, Account (the
// subject) and Actor (the caller); role.level_set carries Role, Level and
// Actor; ownership.transferred carries Account (new owner) and Actor
// (previous owner).
type Event struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	Role    string    `json:"role,omitempty"`
	Account string    `json:"account,omitempty"`
	Actor   string    `json:"actor,omitempty"`
	Level   uint32    `json:"level,omitempty"`
	At      time.Time `json:"at"`
}

func newEvent(kind Kind) Event {
	return Event{ID: uuid.NewString(), Kind: kind, At: time.Now().UTC()}
}

// RoleGranted records a grant of role to account by actor.
func RoleGranted(role, account, actor string) Event {
	evt := newEvent(KindRoleGranted)
	evt.Role, evt.Account, evt.Actor = role, account, actor
	return evt
}

// RoleRevoked records a revoke of role from account by actor.
func RoleRevoked(role, account, actor string) Event {
	evt := newEvent(KindRoleRevoked)
	evt.Role, evt.Account, evt.Actor = role, account, actor
	return evt
}

// RoleLevelSet records a level change for role by actor.
func RoleLevelSet(role string, level uint32, actor string) Event {
	evt := newEvent(KindRoleLevelSet)
	evt.Role, evt.Level, evt.Actor = role, level, actor
	return evt
}

// OwnershipTransferred records the owner moving from actor to account.
func OwnershipTransferred(previous, next string) Event {
	evt := newEvent(KindOwnershipTransferred)
	evt.Actor, evt.Account = previous, next
	return evt
}
