package fleet

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmissionController_TryAcquire(t *testing.T) {
	ac := NewAdmissionController(2, 30*time.Second)

	require.NoError(t, ac.TryAcquire())
	require.NoError(t, ac.TryAcquire())
	assert.Equal(t, int64(2), ac.Connected())

	err := ac.TryAcquire()
	require.Error(t, err)

	ce, ok := IsCapacityError(err)
	require.True(t, ok)
	assert.Equal(t, int64(2), ce.Connected)
	assert.Equal(t, int64(2), ce.Max)
	assert.Equal(t, 30*time.Second, ce.RetryAfter)

	// A rejection must not change the count.
	assert.Equal(t, int64(2), ac.Connected())
}

func TestAdmissionController_ReleaseFreesSlot(t *testing.T) {
	ac := NewAdmissionController(1, time.Second)

	require.NoError(t, ac.TryAcquire())
	require.Error(t, ac.TryAcquire())

	ac.Release()
	require.NoError(t, ac.TryAcquire())
}

func TestAdmissionController_ReleaseNeverGoesNegative(t *testing.T) {
	ac := NewAdmissionController(5, time.Second)

	ac.Release()
	ac.Release()
	assert.Equal(t, int64(0), ac.Connected())
}

func TestAdmissionController_ConcurrentAcquire(t *testing.T) {
	const max = 50
	const attempts = 200

	ac := NewAdmissionController(max, time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ac.TryAcquire(); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Exactly max attempts may win; the last slot is never double-granted.
	assert.Equal(t, max, admitted)
	assert.Equal(t, int64(max), ac.Connected())
}
