package reconcile

import "context"

type guardKey struct{}

// guard suppresses nested mirror triggers. It lives in the context of one
// call chain, so concurrent syncs never share it.
type guard struct {
	active bool
}

// WithGuard starts a new guard scope. Syncer calls it per run; contexts
// without a scope get one lazily on the first mirror trigger.
func WithGuard(ctx context.Context) context.Context {
	return context.WithValue(ctx, guardKey{}, &guard{})
}

// acquireGuard marks the guard active. ok is false when a trigger further up
// the chain already holds it. release must run on every exit path.
func acquireGuard(ctx context.Context) (_ context.Context, release func(), ok bool) {
	g, _ := ctx.Value(guardKey{}).(*guard)
	if g == nil {
		g = &guard{}
		ctx = context.WithValue(ctx, guardKey{}, g)
	}
	if g.active {
		return ctx, func() {}, false
	}
	g.active = true
	return ctx, func() { g.active = false }, true
}

// guardActive reports whether a mirror cascade is in progress on ctx.
func guardActive(ctx context.Context) bool {
	g, _ := ctx.Value(guardKey{}).(*guard)
	return g != nil && g.active
}
