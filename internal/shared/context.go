// Package shared holds the request-scoped caller identity passed between
// the credential middleware and the authorization handlers.
package shared

import (
	"context"

	"github.com/strata-iam/strata/internal/hierarchy"
)

type callerContextKey struct{}

// ContextWithCaller stores the authenticated caller account in context.
func ContextWithCaller(ctx context.Context, caller hierarchy.Account) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext extracts the authenticated caller account from context,
// or AccountNone when the request was not authenticated.
func CallerFromContext(ctx context.Context) hierarchy.Account {
	caller, _ := ctx.Value(callerContextKey{}).(hierarchy.Account)
	return caller
}
