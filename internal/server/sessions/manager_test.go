package sessions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/intercomkey/internal/logging"
	"github.com/dmitrijs2005/intercomkey/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(acc *fakeAccounts, size int, ttl time.Duration) *Manager {
	return NewManager(&fakeVendor{}, acc, &fakeInventory{}, logging.Discard(), size, ttl)
}

func TestManager_GetOrCreate_SameHandle(t *testing.T) {
	m := newTestManager(newFakeAccounts(), 10, time.Hour)

	h1, err := m.GetOrCreate(context.Background(), "111")
	require.NoError(t, err)
	h2, err := m.GetOrCreate(context.Background(), "111")
	require.NoError(t, err)
	other, err := m.GetOrCreate(context.Background(), "222")
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, h1.DeviceID(), h2.DeviceID())
	assert.NotSame(t, h1, other)
	assert.NotEqual(t, h1.DeviceID(), other.DeviceID())
	assert.Equal(t, 2, m.Len())
}

func TestManager_GetOrCreate_Concurrent(t *testing.T) {
	acc := newFakeAccounts()
	m := newTestManager(acc, 10, time.Hour)

	const n = 50
	handles := make([]*Handle, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := m.GetOrCreate(context.Background(), "111")
			assert.NoError(t, err)
			handles[i] = h
		}()
	}
	wg.Wait()

	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
}

func TestManager_Hydration(t *testing.T) {
	acc := newFakeAccounts()
	acc.logins["111"] = &models.Login{ID: "l1", Login: "111", VendorToken: "stored"}
	m := newTestManager(acc, 10, time.Hour)

	h, err := m.GetOrCreate(context.Background(), "111")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, h.State())

	fresh, err := m.GetOrCreate(context.Background(), "222")
	require.NoError(t, err)
	assert.Equal(t, StateUnauthenticated, fresh.State())
}

func TestManager_HydrationError(t *testing.T) {
	acc := newFakeAccounts()
	acc.err = errors.New("db down")
	m := newTestManager(acc, 10, time.Hour)

	_, err := m.GetOrCreate(context.Background(), "111")
	assert.ErrorIs(t, err, acc.err)
	_, ok := m.Lookup("111")
	assert.False(t, ok)
}

func TestManager_Lookup(t *testing.T) {
	m := newTestManager(newFakeAccounts(), 10, time.Hour)

	_, ok := m.Lookup("111")
	assert.False(t, ok)

	h, err := m.GetOrCreate(context.Background(), "111")
	require.NoError(t, err)

	got, ok := m.Lookup("111")
	require.True(t, ok)
	assert.Same(t, h, got)
}

func TestManager_Evict(t *testing.T) {
	m := newTestManager(newFakeAccounts(), 10, time.Hour)

	h1, err := m.GetOrCreate(context.Background(), "111")
	require.NoError(t, err)
	m.Evict("111")

	_, ok := m.Lookup("111")
	assert.False(t, ok)

	h2, err := m.GetOrCreate(context.Background(), "111")
	require.NoError(t, err)
	assert.NotSame(t, h1, h2)
}

func TestManager_SizeBound(t *testing.T) {
	m := newTestManager(newFakeAccounts(), 2, time.Hour)

	for _, login := range []string{"1", "2", "3"} {
		_, err := m.GetOrCreate(context.Background(), login)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, m.Len())
	_, ok := m.Lookup("1")
	assert.False(t, ok)
}

func TestManager_TTL(t *testing.T) {
	m := newTestManager(newFakeAccounts(), 10, 50*time.Millisecond)

	_, err := m.GetOrCreate(context.Background(), "111")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, ok := m.Lookup("111")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestManager_GetOrCreate_CallerCancelled(t *testing.T) {
	acc := newFakeAccounts()
	acc.logins["111"] = &models.Login{ID: "l1", Login: "111", VendorToken: "stored"}
	m := newTestManager(acc, 10, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h, err := m.GetOrCreate(ctx, "111")
	require.NoError(t, err)
	assert.NoError(t, acc.findCtx)
	assert.Equal(t, StateAuthenticated, h.State())
}

func TestManager_CodeRequestedSurvivesEviction(t *testing.T) {
	m := newTestManager(newFakeAccounts(), 1, time.Hour)
	ctx := context.Background()

	h, err := m.GetOrCreate(ctx, "111")
	require.NoError(t, err)
	require.True(t, h.RequestCode(ctx, "", "").OK())

	// pushes "111" out of a registry of one
	_, err = m.GetOrCreate(ctx, "222")
	require.NoError(t, err)

	got, ok := m.Lookup("111")
	require.True(t, ok)
	assert.Same(t, h, got)
	assert.Equal(t, StateCodeRequested, got.State())

	again, err := m.GetOrCreate(ctx, "111")
	require.NoError(t, err)
	assert.Same(t, h, again)

	res, err := got.RequestToken(ctx, "1234")
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func TestManager_RequestCodeReinsertsDroppedHandle(t *testing.T) {
	m := newTestManager(newFakeAccounts(), 10, time.Hour)
	ctx := context.Background()

	h, err := m.GetOrCreate(ctx, "111")
	require.NoError(t, err)
	m.mu.Lock()
	m.handles.Remove("111")
	m.mu.Unlock()

	require.True(t, h.RequestCode(ctx, "", "").OK())

	got, ok := m.Lookup("111")
	require.True(t, ok)
	assert.Same(t, h, got)
}

func TestManager_OnlyPendingHandlesRevive(t *testing.T) {
	ctx := context.Background()

	t.Run("unauthenticated", func(t *testing.T) {
		m := newTestManager(newFakeAccounts(), 1, time.Hour)
		_, err := m.GetOrCreate(ctx, "111")
		require.NoError(t, err)
		_, err = m.GetOrCreate(ctx, "222")
		require.NoError(t, err)

		_, ok := m.Lookup("111")
		assert.False(t, ok)
	})

	t.Run("after token exchange", func(t *testing.T) {
		m := newTestManager(newFakeAccounts(), 1, time.Hour)
		h, err := m.GetOrCreate(ctx, "111")
		require.NoError(t, err)
		require.True(t, h.RequestCode(ctx, "", "").OK())
		_, err = h.RequestToken(ctx, "1234")
		require.NoError(t, err)

		_, err = m.GetOrCreate(ctx, "222")
		require.NoError(t, err)

		_, ok := m.Lookup("111")
		assert.False(t, ok)
	})

	t.Run("explicit evict", func(t *testing.T) {
		m := newTestManager(newFakeAccounts(), 10, time.Hour)
		h, err := m.GetOrCreate(ctx, "111")
		require.NoError(t, err)
		require.True(t, h.RequestCode(ctx, "", "").OK())

		m.Evict("111")

		_, ok := m.Lookup("111")
		assert.False(t, ok)
	})

	t.Run("code wait elapsed", func(t *testing.T) {
		m := newTestManager(newFakeAccounts(), 1, time.Hour)
		h, err := m.GetOrCreate(ctx, "111")
		require.NoError(t, err)
		require.True(t, h.RequestCode(ctx, "", "").OK())
		_, err = m.GetOrCreate(ctx, "222")
		require.NoError(t, err)

		m.pendingMu.Lock()
		p := m.pending["111"]
		p.since = time.Now().Add(-codeWait - time.Second)
		m.pending["111"] = p
		m.pendingMu.Unlock()

		_, ok := m.Lookup("111")
		assert.False(t, ok)
	})
}
