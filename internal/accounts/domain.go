// Package accounts issues and verifies the API credentials that identify
// callers. A credential binds a bearer token to one hierarchy account; the
// secret half of the token is bcrypt-hashed at rest.
package accounts

import (
	"time"

	"github.com/strata-iam/strata/internal/hierarchy"
)

// Credential binds a token to an account.
type Credential struct {
	ID         string
	Account    hierarchy.Account
	SecretHash string
	CreatedAt  time.Time
	RevokedAt  *time.Time
}

// Revoked reports whether the credential has been revoked.
func (c *Credential) Revoked() bool {
	return c.RevokedAt != nil
}
