package fleet

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(max int64, window time.Duration) *ConnectivityTracker {
	ac := NewAdmissionController(max, window)
	return NewConnectivityTracker(ac, window, zerolog.Nop())
}

func TestTierFor(t *testing.T) {
	const max = 8000

	tests := []struct {
		name      string
		connected int64
		want      CapacityTier
	}{
		{"empty fleet", 0, TierLow},
		{"just below half", 3999, TierLow},
		{"exactly half", 4000, TierMedium},
		{"just below eighty percent", 6399, TierMedium},
		{"exactly eighty percent", 6400, TierHigh},
		{"just below ninety five percent", 7599, TierHigh},
		{"exactly ninety five percent", 7600, TierCritical},
		{"full", 8000, TierCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TierFor(tt.connected, max))
		})
	}
}

func TestTierFor_ZeroMax(t *testing.T) {
	assert.Equal(t, TierCritical, TierFor(0, 0))
}

func TestConnectivityTracker_TouchOpensSession(t *testing.T) {
	tr := newTestTracker(10, 5*time.Minute)
	now := time.Now().UTC()

	opened, err := tr.Touch(1, now, "10.0.0.1:5000")
	require.NoError(t, err)
	assert.True(t, opened)
	assert.True(t, tr.Connected(1, now))
	assert.Equal(t, int64(1), tr.CapacitySnapshot().Connected)

	// A second heartbeat refreshes, it does not open a new session.
	opened, err = tr.Touch(1, now.Add(time.Minute), "10.0.0.1:5000")
	require.NoError(t, err)
	assert.False(t, opened)
	assert.Equal(t, int64(1), tr.CapacitySnapshot().Connected)

	sess, ok := tr.Session(1)
	require.True(t, ok)
	assert.Equal(t, now.Add(time.Minute), sess.LastHeartbeat)
	assert.Equal(t, now, sess.ConnectedAt)
}

func TestConnectivityTracker_HeartbeatNeverMovesBackwards(t *testing.T) {
	tr := newTestTracker(10, 5*time.Minute)
	now := time.Now().UTC()

	_, err := tr.Touch(1, now, "")
	require.NoError(t, err)

	// A delayed heartbeat with an older timestamp must not regress last-seen.
	_, err = tr.Touch(1, now.Add(-time.Minute), "")
	require.NoError(t, err)

	sess, ok := tr.Session(1)
	require.True(t, ok)
	assert.Equal(t, now, sess.LastHeartbeat)
}

func TestConnectivityTracker_ReconnectAfterStaleness(t *testing.T) {
	tr := newTestTracker(10, 5*time.Minute)
	start := time.Now().UTC()

	opened, err := tr.Touch(1, start, "")
	require.NoError(t, err)
	assert.True(t, opened)

	// The screen goes silent past the window but the sweep has not collected
	// the session yet, so it is Disconnected in derived terms.
	reconnectAt := start.Add(6 * time.Minute)
	assert.False(t, tr.Connected(1, reconnectAt))

	// The next heartbeat is a Disconnected -> Connected transition.
	opened, err = tr.Touch(1, reconnectAt, "")
	require.NoError(t, err)
	assert.True(t, opened)
	assert.True(t, tr.Connected(1, reconnectAt))

	// The admission slot was held the whole time, not acquired twice.
	assert.Equal(t, int64(1), tr.CapacitySnapshot().Connected)

	// The session restarts its uptime at the reconnect.
	sess, ok := tr.Session(1)
	require.True(t, ok)
	assert.Equal(t, reconnectAt, sess.ConnectedAt)

	// A subsequent in-window heartbeat is a plain refresh again.
	opened, err = tr.Touch(1, reconnectAt.Add(time.Minute), "")
	require.NoError(t, err)
	assert.False(t, opened)
}

func TestConnectivityTracker_ConcurrentFirstHeartbeats(t *testing.T) {
	tr := newTestTracker(10, 5*time.Minute)
	now := time.Now().UTC()

	const goroutines = 16
	var wg sync.WaitGroup
	var openedCount int64
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			opened, err := tr.Touch(1, now.Add(time.Duration(n)*time.Millisecond), "")
			assert.NoError(t, err)
			if opened {
				atomic.AddInt64(&openedCount, 1)
			}
		}(i)
	}
	wg.Wait()

	// Exactly one heartbeat may open the session and take a capacity slot.
	assert.Equal(t, int64(1), openedCount)
	assert.Equal(t, int64(1), tr.CapacitySnapshot().Connected)
}

func TestConnectivityTracker_ConcurrentTouchAndReads(t *testing.T) {
	tr := newTestTracker(100, 5*time.Minute)
	start := time.Now().UTC()

	for id := uint(1); id <= 8; id++ {
		_, err := tr.Touch(id, start, "")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := uint(i%8 + 1)
				_, _ = tr.Touch(id, start.Add(time.Duration(n*1000+i)*time.Millisecond), "10.0.0.1:5000")
			}
		}(w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				tr.Connected(uint(i%8+1), start.Add(time.Minute))
				tr.Sessions()
				tr.ExpireStale(start)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(8), tr.CapacitySnapshot().Connected)
}

func TestConnectivityTracker_AdmissionGate(t *testing.T) {
	tr := newTestTracker(1, 5*time.Minute)
	now := time.Now().UTC()

	opened, err := tr.Touch(1, now, "")
	require.NoError(t, err)
	assert.True(t, opened)

	_, err = tr.Touch(2, now, "")
	require.Error(t, err)
	_, ok := IsCapacityError(err)
	assert.True(t, ok)

	// An existing session keeps heartbeating even at capacity.
	_, err = tr.Touch(1, now.Add(time.Second), "")
	require.NoError(t, err)
}

func TestConnectivityTracker_ExpireStale(t *testing.T) {
	tr := newTestTracker(10, 5*time.Minute)
	start := time.Now().UTC()

	_, err := tr.Touch(1, start, "")
	require.NoError(t, err)
	_, err = tr.Touch(2, start, "")
	require.NoError(t, err)

	// Screen 2 keeps heartbeating, screen 1 goes silent.
	later := start.Add(4 * time.Minute)
	_, err = tr.Touch(2, later, "")
	require.NoError(t, err)

	sweepAt := start.Add(5 * time.Minute)
	expired := tr.ExpireStale(sweepAt)

	require.Len(t, expired, 1)
	assert.Equal(t, uint(1), expired[0])
	assert.False(t, tr.Connected(1, sweepAt))
	assert.True(t, tr.Connected(2, sweepAt))
	assert.Equal(t, int64(1), tr.CapacitySnapshot().Connected)
}

func TestConnectivityTracker_ExpireStaleFreesCapacity(t *testing.T) {
	tr := newTestTracker(1, time.Minute)
	start := time.Now().UTC()

	_, err := tr.Touch(1, start, "")
	require.NoError(t, err)

	_, err = tr.Touch(2, start, "")
	require.Error(t, err)

	tr.ExpireStale(start.Add(time.Minute))

	opened, err := tr.Touch(2, start.Add(time.Minute), "")
	require.NoError(t, err)
	assert.True(t, opened)
}

func TestConnectivityTracker_Disconnect(t *testing.T) {
	tr := newTestTracker(10, 5*time.Minute)
	now := time.Now().UTC()

	_, err := tr.Touch(1, now, "")
	require.NoError(t, err)

	assert.True(t, tr.Disconnect(1))
	assert.False(t, tr.Connected(1, now))
	assert.Equal(t, int64(0), tr.CapacitySnapshot().Connected)

	// Disconnecting an unknown screen is a no-op.
	assert.False(t, tr.Disconnect(1))
	assert.Equal(t, int64(0), tr.CapacitySnapshot().Connected)
}

func TestConnectivityTracker_Sessions(t *testing.T) {
	tr := newTestTracker(10, 5*time.Minute)
	now := time.Now().UTC()

	for id := uint(1); id <= 3; id++ {
		_, err := tr.Touch(id, now, "")
		require.NoError(t, err)
	}

	sessions := tr.Sessions()
	assert.Len(t, sessions, 3)

	snap := tr.CapacitySnapshot()
	assert.Equal(t, int64(3), snap.Connected)
	assert.Equal(t, int64(10), snap.Max)
	assert.Equal(t, TierLow, snap.Tier)
}
