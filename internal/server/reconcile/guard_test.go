package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_NestedAcquireIsSuppressed(t *testing.T) {
	ctx := WithGuard(context.Background())

	ctx, release, ok := acquireGuard(ctx)
	require.True(t, ok)
	assert.True(t, guardActive(ctx))

	_, _, nested := acquireGuard(ctx)
	assert.False(t, nested)

	release()
	assert.False(t, guardActive(ctx))

	_, again, ok := acquireGuard(ctx)
	assert.True(t, ok)
	again()
}

func TestGuard_ScopesAreIndependent(t *testing.T) {
	a := WithGuard(context.Background())
	b := WithGuard(context.Background())

	_, releaseA, okA := acquireGuard(a)
	_, releaseB, okB := acquireGuard(b)
	defer releaseA()
	defer releaseB()

	assert.True(t, okA)
	assert.True(t, okB)
}

func TestGuard_LazyScope(t *testing.T) {
	ctx, release, ok := acquireGuard(context.Background())
	require.True(t, ok)
	defer release()

	_, _, nested := acquireGuard(ctx)
	assert.False(t, nested)
	assert.False(t, guardActive(context.Background()))
}
