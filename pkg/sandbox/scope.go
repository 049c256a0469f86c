package sandbox

import (
	"context"
)

// scopeContextKey is unexported so only this package can establish a scope.
type scopeContextKey struct{}

// Scope records that the current call chain is already running inside a
// savepoint. It is visible only within the call tree of the operation that
// established it and is used solely to decide whether a nested implicit wrap
// or a lock acquisition is necessary, never for data routing.
type Scope struct {
	SavepointName string
}

// withScope derives a context marked as running inside the named savepoint.
func withScope(ctx context.Context, savepointName string) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, &Scope{SavepointName: savepointName})
}

// ScopeFromContext returns the enclosing savepoint scope, if the call chain is
// inside one.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return scope, ok
}
