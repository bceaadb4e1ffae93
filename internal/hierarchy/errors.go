package hierarchy

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAccount indicates the zero account was passed to a mutation.
	ErrInvalidAccount = errors.New("hierarchy: invalid account")
	// ErrBadConfirmation indicates a renounce whose confirmation does not
	// match the caller.
	ErrBadConfirmation = errors.New("hierarchy: renounce confirmation does not match caller")
	// ErrInvalidRole indicates the null role was passed where a real role is
	// required.
	ErrInvalidRole = errors.New("hierarchy: invalid role")
	// ErrOwnerLevelImmutable indicates an attempt to change the owner role's
	// level.
	ErrOwnerLevelImmutable = errors.New("hierarchy: owner role level cannot be changed")
	// ErrLevelExceedsOwner indicates an attempt to raise a role to or above
	// the owner level.
	ErrLevelExceedsOwner = errors.New("hierarchy: role level must stay below the owner level")
)

// UnauthorizedError reports which account failed which role requirement, so
// callers get a precise denial rather than a generic one.
type UnauthorizedError struct {
	Account Account
	Role    Role
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("hierarchy: account %q is not authorized for role %q", e.Account, e.Role)
}

// IsUnauthorized reports whether err is an authorization denial.
func IsUnauthorized(err error) bool {
	var ue *UnauthorizedError
	return errors.As(err, &ue)
}
