package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innoad/screenfleet/fleet"
)

func TestConnectivitySweeper_ExpiresStaleSessions(t *testing.T) {
	f := newSweepFixture(t)
	screen := f.addScreen(1)

	_, err := f.tracker.Touch(1, f.base, "10.0.0.1:4000")
	require.NoError(t, err)

	ch, cancel := f.bus.Subscribe(fleet.TopicFleet)
	defer cancel()

	// Still inside the 5 minute window: nothing expires.
	f.freezeClocks(f.base.Add(4 * time.Minute))
	f.connectivitySweeper.runOnce(context.Background())
	assert.Empty(t, drainEvents(ch))
	assert.True(t, f.tracker.Connected(1, f.base.Add(4*time.Minute)))

	f.freezeClocks(f.base.Add(6 * time.Minute))
	f.connectivitySweeper.runOnce(context.Background())

	events := drainEvents(ch)
	require.Len(t, events, 1)
	assert.Equal(t, fleet.EventScreenDisconnected, events[0].Type)
	assert.Equal(t, uint(1), events[0].ScreenID)
	assert.Equal(t, screen.UUID, events[0].ScreenUUID)

	assert.False(t, f.tracker.Connected(1, f.base.Add(6*time.Minute)))
	assert.Equal(t, int64(0), f.tracker.CapacitySnapshot().Connected)
}

func TestConnectivitySweeper_FlushesDirtyLastSeen(t *testing.T) {
	f := newSweepFixture(t)
	f.addScreen(1)
	f.addScreen(2)

	f.store.TouchScreen(1, f.base)
	f.store.TouchScreen(2, f.base.Add(time.Second))

	f.connectivitySweeper.runOnce(context.Background())

	require.Len(t, f.screenRepo.seenBatches, 1)
	batch := f.screenRepo.seenBatches[0]
	assert.Equal(t, f.base, batch[1])
	assert.Equal(t, f.base.Add(time.Second), batch[2])

	// Nothing accumulated since: no second flush.
	f.connectivitySweeper.runOnce(context.Background())
	assert.Len(t, f.screenRepo.seenBatches, 1)
}

func TestConnectivitySweeper_FlushFailureIsBestEffort(t *testing.T) {
	f := newSweepFixture(t)
	f.addScreen(1)
	f.screenRepo.batchErr = errors.New("database unavailable")

	f.store.TouchScreen(1, f.base)
	f.connectivitySweeper.runOnce(context.Background())

	assert.Empty(t, f.screenRepo.seenBatches)

	// The failed batch is dropped; the next heartbeat re-dirties the screen.
	f.screenRepo.batchErr = nil
	f.store.TouchScreen(1, f.base.Add(time.Minute))
	f.connectivitySweeper.runOnce(context.Background())
	require.Len(t, f.screenRepo.seenBatches, 1)
}

func TestConnectivitySweeper_StartRunsAndStops(t *testing.T) {
	f := newSweepFixture(t)
	f.addScreen(1)
	f.store.TouchScreen(1, f.base)

	stop := f.connectivitySweeper.Start(context.Background())
	defer stop()

	// Start runs one sweep immediately before the first tick.
	require.Eventually(t, func() bool {
		f.screenRepo.mu.Lock()
		defer f.screenRepo.mu.Unlock()
		return len(f.screenRepo.seenBatches) == 1
	}, time.Second, 10*time.Millisecond)
}
