package fleet

import (
	"sync/atomic"
	"time"
)

// AdmissionController gates new connections against the fleet-wide budget.
// TryAcquire and the count increment are a single compare-and-swap, so two
// concurrent attempts can never both take the last slot.
type AdmissionController struct {
	max        int64
	connected  atomic.Int64
	retryAfter time.Duration
}

// NewAdmissionController creates an admission controller with the given
// maximum concurrent connections and retry-after hint for rejections.
func NewAdmissionController(max int64, retryAfter time.Duration) *AdmissionController {
	return &AdmissionController{
		max:        max,
		retryAfter: retryAfter,
	}
}

// TryAcquire claims a connection slot. It returns a *CapacityError when the
// fleet is full; no queuing, the caller either proceeds or reports the
// retry-after hint.
func (a *AdmissionController) TryAcquire() error {
	for {
		cur := a.connected.Load()
		if cur >= a.max {
			admissionRejected.Inc()
			return &CapacityError{Connected: cur, Max: a.max, RetryAfter: a.retryAfter}
		}
		if a.connected.CompareAndSwap(cur, cur+1) {
			connectedSessions.Set(float64(cur + 1))
			return nil
		}
	}
}

// Release frees a previously acquired slot
func (a *AdmissionController) Release() {
	for {
		cur := a.connected.Load()
		if cur <= 0 {
			return
		}
		if a.connected.CompareAndSwap(cur, cur-1) {
			connectedSessions.Set(float64(cur - 1))
			return
		}
	}
}

// Connected returns the current connected count
func (a *AdmissionController) Connected() int64 {
	return a.connected.Load()
}

// Max returns the configured maximum
func (a *AdmissionController) Max() int64 {
	return a.max
}
