package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeLockAcquireRelease(t *testing.T) {
	l := newScopeLock()

	require.NoError(t, l.Acquire(context.Background()))
	assert.True(t, l.Held())

	l.Release()
	assert.False(t, l.Held())
}

func TestScopeLockAcquireHonorsContext(t *testing.T) {
	l := newScopeLock()
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	l.Release()
}

func TestScopeLockReleaseWithoutHoldPanics(t *testing.T) {
	l := newScopeLock()

	assert.Panics(t, func() { l.Release() })
}

func TestScopeContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	_, ok := ScopeFromContext(ctx)
	assert.False(t, ok)

	scoped := withScope(ctx, "tx_sandbox_sp_7")

	scope, ok := ScopeFromContext(scoped)
	require.True(t, ok)
	assert.Equal(t, "tx_sandbox_sp_7", scope.SavepointName)
}
