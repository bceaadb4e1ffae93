// Package authz wires the hierarchy engine and ownership guard to their
// durable storage, event log and HTTP surface. Every privileged entry point
// authorizes before it mutates; a failed check or a failed durable write
// leaves no state behind.
package authz

import (
	"github.com/strata-iam/strata/internal/hierarchy"
)

// State is the durable image of the engine plus the owner slot, loaded at
// boot.
type State struct {
	Levels      map[hierarchy.Role]hierarchy.Level
	Assignments map[hierarchy.Account]hierarchy.Role
	Owner       hierarchy.Account
}

type checkRequest struct {
	Role    string `json:"role" validate:"required,min=1,max=200"`
	Account string `json:"account" validate:"required,min=1,max=200"`
}

type grantRequest struct {
	Account string `json:"account" validate:"required,min=1,max=200"`
}

type revokeRequest struct {
	Account string `json:"account" validate:"required,min=1,max=200"`
}

type renounceRequest struct {
	ConfirmAccount string `json:"confirm_account" validate:"required,min=1,max=200"`
}

type setLevelRequest struct {
	Level uint32 `json:"level"`
}

type transferRequest struct {
	NewOwner string `json:"new_owner" validate:"required,min=1,max=200"`
}
