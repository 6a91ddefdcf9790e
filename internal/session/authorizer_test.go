package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EternisAI/vpn-admin-bot/internal/metrics"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestAuthorizeOpensSession(t *testing.T) {
	a := NewAuthorizer(10 * time.Minute)

	assert.False(t, a.IsAuthorized(42, t0))
	require.True(t, a.Authorize(42, "s3cret", "s3cret", t0))
	assert.True(t, a.IsAuthorized(42, t0.Add(time.Minute)))
}

func TestAuthorizeWrongSecret(t *testing.T) {
	a := NewAuthorizer(10 * time.Minute)

	assert.False(t, a.Authorize(42, "guess", "s3cret", t0))
	assert.False(t, a.IsAuthorized(42, t0))

	a.mu.Lock()
	_, exists := a.lastSeen[42]
	a.mu.Unlock()
	assert.False(t, exists, "mismatch must not create a record")
}

func TestAuthorizeEmptySecrets(t *testing.T) {
	a := NewAuthorizer(10 * time.Minute)

	assert.False(t, a.Authorize(42, "", "s3cret", t0))
	assert.False(t, a.Authorize(42, "", "", t0))
	assert.False(t, a.Authorize(42, "anything", "", t0))
	assert.False(t, a.AuthorizeWith(42, "anything", nil, t0))
}

func TestSlidingRenewal(t *testing.T) {
	ttl := 10 * time.Minute
	a := NewAuthorizer(ttl)
	require.True(t, a.Authorize(1, "s", "s", t0))

	now := t0
	for i := 0; i < 5; i++ {
		now = now.Add(ttl - time.Second)
		assert.True(t, a.IsAuthorized(1, now), "step %d", i)
	}
}

func TestExpiresAtTTL(t *testing.T) {
	ttl := 10 * time.Minute
	a := NewAuthorizer(ttl)
	require.True(t, a.Authorize(1, "s", "s", t0))

	assert.False(t, a.IsAuthorized(1, t0.Add(ttl)))
	assert.False(t, a.IsAuthorized(1, t0.Add(ttl+time.Hour)))
}

func TestExpiredCheckDoesNotRefresh(t *testing.T) {
	ttl := 10 * time.Minute
	a := NewAuthorizer(ttl)
	require.True(t, a.Authorize(1, "s", "s", t0))

	assert.False(t, a.IsAuthorized(1, t0.Add(ttl)))
	assert.False(t, a.IsAuthorized(1, t0.Add(ttl+time.Second)))
}

func TestStaleTimestampDoesNotRewind(t *testing.T) {
	ttl := 10 * time.Minute
	a := NewAuthorizer(ttl)
	require.True(t, a.Authorize(1, "s", "s", t0))
	require.True(t, a.IsAuthorized(1, t0.Add(5*time.Minute)))

	// a handler that captured an earlier now must not shorten the session
	require.True(t, a.IsAuthorized(1, t0.Add(time.Minute)))
	assert.True(t, a.IsAuthorized(1, t0.Add(14*time.Minute)))
}

func TestSuperuserAlwaysAuthorized(t *testing.T) {
	a := NewAuthorizer(time.Minute, 7)

	assert.True(t, a.IsAuthorized(7, t0))
	assert.True(t, a.IsAuthorized(7, t0.Add(1000*time.Hour)))
	assert.Equal(t, 0, a.Sessions(t0), "superusers have no record")

	assert.False(t, a.IsAuthorized(8, t0))
}

func TestReloginOverwritesRecord(t *testing.T) {
	ttl := 10 * time.Minute
	a := NewAuthorizer(ttl)
	require.True(t, a.Authorize(1, "s", "s", t0))
	require.True(t, a.Authorize(1, "s", "s", t0.Add(30*time.Minute)))

	assert.True(t, a.IsAuthorized(1, t0.Add(35*time.Minute)))
}

func TestSessionsCountsLiveOnly(t *testing.T) {
	ttl := 10 * time.Minute
	a := NewAuthorizer(ttl)
	require.True(t, a.Authorize(1, "s", "s", t0))
	require.True(t, a.Authorize(2, "s", "s", t0.Add(5*time.Minute)))

	assert.Equal(t, 2, a.Sessions(t0.Add(6*time.Minute)))
	assert.Equal(t, 1, a.Sessions(t0.Add(12*time.Minute)))
}

func TestActiveSessionsGauge(t *testing.T) {
	a := NewAuthorizer(10 * time.Minute)

	require.True(t, a.Authorize(1, "s3cret", "s3cret", t0))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ActiveSessions))

	require.True(t, a.Authorize(2, "s3cret", "s3cret", t0.Add(5*time.Minute)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ActiveSessions))

	// the first session has lapsed by the time the third opens
	require.True(t, a.Authorize(3, "s3cret", "s3cret", t0.Add(11*time.Minute)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ActiveSessions))

	a.cleanup(t0.Add(30 * time.Minute))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ActiveSessions))
}

func TestCleanup(t *testing.T) {
	ttl := 10 * time.Minute
	a := NewAuthorizer(ttl)
	require.True(t, a.Authorize(1, "s", "s", t0))
	require.True(t, a.Authorize(2, "s", "s", t0.Add(8*time.Minute)))

	a.cleanup(t0.Add(11 * time.Minute))

	a.mu.Lock()
	count := len(a.lastSeen)
	a.mu.Unlock()
	assert.Equal(t, 1, count)
	assert.False(t, a.IsAuthorized(1, t0.Add(11*time.Minute)))
	assert.True(t, a.IsAuthorized(2, t0.Add(11*time.Minute)))
}

func TestStartCleanupStopsOnCancel(t *testing.T) {
	a := NewAuthorizer(time.Millisecond)
	require.True(t, a.Authorize(1, "s", "s", time.Now()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.StartCleanup(ctx, 2*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return len(a.lastSeen) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}

func TestConcurrentAccess(t *testing.T) {
	a := NewAuthorizer(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p := Principal(id % 5)
			now := t0.Add(time.Duration(id) * time.Second)
			a.Authorize(p, "s", "s", now)
			_ = a.IsAuthorized(p, now)
			_ = a.Sessions(now)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, a.Sessions(t0.Add(time.Minute)))
}
