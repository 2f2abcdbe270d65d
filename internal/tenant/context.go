// Package tenant implements the ambient per-request tenant identifier that
// every repository call consults before touching the Store.
//
// Go's async propagation primitive is context.Context: a tenant id bound
// into a context survives everywhere that context is threaded, including
// across goroutines spawned from the bound function, as long as those
// goroutines receive the derived context rather than a fresh one.
package tenant

import (
	"context"

	"github.com/cutflow/core/internal/errs"
)

type ctxKey struct{}

// Run binds tenantID into a context derived from ctx and invokes fn with
// it. Repositories called transitively from fn should receive this
// context so that Current/CurrentOptional can resolve the bound tenant.
func Run[T any](ctx context.Context, tenantID string, fn func(context.Context) T) T {
	return fn(context.WithValue(ctx, ctxKey{}, tenantID))
}

// Bind returns a context with tenantID bound, for callers that cannot use
// the fn-style Run (e.g. message bus handlers receiving an envelope).
func Bind(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, tenantID)
}

// Current returns the tenant id bound to ctx, failing with
// NO_TENANT_CONTEXT if none is bound.
func Current(ctx context.Context) (string, *errs.Error) {
	id, ok := ctx.Value(ctxKey{}).(string)
	if !ok || id == "" {
		return "", errs.New(errs.NoTenantContext, "no tenant bound to context")
	}
	return id, nil
}

// CurrentOptional returns the tenant id bound to ctx, or "" if none is
// bound. Tenant-optional repositories use this and log the omission at
// warn level themselves rather than failing.
func CurrentOptional(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
