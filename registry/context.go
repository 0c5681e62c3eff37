package registry

import "context"

type contextKey struct{}

// WithRegistry binds r into ctx, returning the derived context. Per spec
// Design Notes (a), Go has no implicit flow-local storage, so the registry
// is threaded explicitly: callers must use the returned context for any
// subsequent engine or resource-manager call that should see r.
func WithRegistry(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, contextKey{}, r)
}

// FromContext returns the Registry bound to ctx, if any.
func FromContext(ctx context.Context) (*Registry, bool) {
	r, ok := ctx.Value(contextKey{}).(*Registry)
	return r, ok
}

// Ensure returns the Registry already bound to ctx, or lazily creates one
// and returns a derived context carrying it (spec §3 — "created lazily on
// first binding or first initSynchronization").
func Ensure(ctx context.Context) (*Registry, context.Context) {
	if r, ok := FromContext(ctx); ok {
		return r, ctx
	}
	r := New()
	return r, WithRegistry(ctx, r)
}

// Inherit spawns a child flow's registry as a snapshot-copy of the
// registry bound to ctx (spec §5 "Inheritability"). If ctx carries no
// registry, it is returned unchanged. Mutations in either flow's registry
// afterward are local to that flow.
func Inherit(ctx context.Context) context.Context {
	parent, ok := FromContext(ctx)
	if !ok {
		return ctx
	}
	return WithRegistry(ctx, parent.snapshotCopy())
}
