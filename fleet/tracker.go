package fleet

import (
	"strconv"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/innoad/screenfleet/utils"
)

// CapacityTier is a coarse label for fleet-wide connection load
type CapacityTier string

const (
	TierLow      CapacityTier = "LOW"
	TierMedium   CapacityTier = "MEDIUM"
	TierHigh     CapacityTier = "HIGH"
	TierCritical CapacityTier = "CRITICAL"
)

// TierFor computes the capacity tier for connected out of max. Boundaries are
// inclusive on the lower bound, exclusive on the upper: <50% LOW, <80% MEDIUM,
// <95% HIGH, else CRITICAL. Integer arithmetic keeps the step function exact
// at the boundaries.
func TierFor(connected, max int64) CapacityTier {
	if max <= 0 {
		return TierCritical
	}
	scaled := connected * 100
	switch {
	case scaled < max*50:
		return TierLow
	case scaled < max*80:
		return TierMedium
	case scaled < max*95:
		return TierHigh
	default:
		return TierCritical
	}
}

// ConnectionSession is the ephemeral record of a live screen connection. It
// exists only in the tracker's in-memory index and is garbage-collected on
// expiry or explicit disconnect. Sessions are immutable once published;
// refreshes replace the stored session with a copy.
type ConnectionSession struct {
	ScreenID      uint
	ConnectedAt   time.Time
	LastHeartbeat time.Time
	RemoteAddr    string
}

// Uptime returns how long the session has been alive at now
func (s *ConnectionSession) Uptime(now time.Time) time.Duration {
	return now.Sub(s.ConnectedAt)
}

// CapacitySnapshot summarizes fleet connection load at a point in time
type CapacitySnapshot struct {
	Connected int64        `json:"connected"`
	Max       int64        `json:"max"`
	Tier      CapacityTier `json:"tier"`
}

// ConnectivityTracker owns per-screen liveness. Heartbeats refresh sessions;
// a periodic sweep expires sessions whose last heartbeat fell out of the
// heartbeat window. Connectivity is derived from this index, never stored.
//
// mu serializes the session lifecycle (create, refresh, remove) so a first
// heartbeat cannot race another into a second admission slot. Reads go
// straight to the map: stored sessions are never mutated in place, so a
// reader either sees the old copy or the new one, never a torn write.
type ConnectivityTracker struct {
	mu        sync.Mutex
	sessions  cmap.ConcurrentMap[string, *ConnectionSession]
	admission *AdmissionController
	window    time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewConnectivityTracker creates a tracker with the given heartbeat window
func NewConnectivityTracker(admission *AdmissionController, window time.Duration, logger zerolog.Logger) *ConnectivityTracker {
	return &ConnectivityTracker{
		sessions:  cmap.New[*ConnectionSession](),
		admission: admission,
		window:    window,
		logger:    logger.With().Str("component", "tracker").Logger(),
		now:       utils.UTCNow,
	}
}

func sessionKey(screenID uint) string {
	return strconv.FormatUint(uint64(screenID), 10)
}

// Window returns the configured heartbeat window
func (t *ConnectivityTracker) Window() time.Duration {
	return t.window
}

// Touch records a heartbeat for the screen at ts. When no live session exists
// the connection is admission-gated; opened reports whether the screen
// transitioned Disconnected -> Connected, either by creating a new session or
// by reviving one that outlived the heartbeat window before the sweep
// collected it.
func (t *ConnectivityTracker) Touch(screenID uint, ts time.Time, remoteAddr string) (opened bool, err error) {
	key := sessionKey(screenID)

	t.mu.Lock()
	defer t.mu.Unlock()

	if sess, ok := t.sessions.Get(key); ok {
		// Heartbeats can arrive out of order; never move last-seen backwards.
		if !ts.After(sess.LastHeartbeat) {
			return false, nil
		}

		// A session past the window is already Disconnected in derived terms,
		// the sweep just has not collected it yet. This heartbeat reconnects
		// the screen; the admission slot was never released, so no re-acquire.
		reopened := ts.Sub(sess.LastHeartbeat) >= t.window

		next := *sess
		next.LastHeartbeat = ts
		if remoteAddr != "" {
			next.RemoteAddr = remoteAddr
		}
		if reopened {
			next.ConnectedAt = ts
		}
		t.sessions.Set(key, &next)
		return reopened, nil
	}

	if err := t.admission.TryAcquire(); err != nil {
		return false, err
	}

	t.sessions.Set(key, &ConnectionSession{
		ScreenID:      screenID,
		ConnectedAt:   ts,
		LastHeartbeat: ts,
		RemoteAddr:    remoteAddr,
	})
	return true, nil
}

// Connected reports whether the screen has a live session at now
func (t *ConnectivityTracker) Connected(screenID uint, now time.Time) bool {
	sess, ok := t.sessions.Get(sessionKey(screenID))
	if !ok {
		return false
	}
	return now.Sub(sess.LastHeartbeat) < t.window
}

// Session returns the live session for a screen, if any
func (t *ConnectivityTracker) Session(screenID uint) (*ConnectionSession, bool) {
	return t.sessions.Get(sessionKey(screenID))
}

// Sessions returns a snapshot of all live sessions
func (t *ConnectivityTracker) Sessions() []*ConnectionSession {
	out := make([]*ConnectionSession, 0, t.sessions.Count())
	for item := range t.sessions.IterBuffered() {
		out = append(out, item.Val)
	}
	return out
}

// Disconnect removes the screen's session explicitly. It reports whether a
// session existed.
func (t *ConnectivityTracker) Disconnect(screenID uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := sessionKey(screenID)
	if _, ok := t.sessions.Get(key); !ok {
		return false
	}
	t.sessions.Remove(key)
	t.admission.Release()
	return true
}

// ExpireStale removes every session whose last heartbeat is at least one
// heartbeat window before now and returns the affected screen ids. Designed
// to run on a fixed period regardless of heartbeat traffic volume.
func (t *ConnectivityTracker) ExpireStale(now time.Time) []uint {
	t.mu.Lock()
	defer t.mu.Unlock()

	var expired []uint
	for item := range t.sessions.IterBuffered() {
		sess := item.Val
		if now.Sub(sess.LastHeartbeat) < t.window {
			continue
		}
		t.sessions.Remove(item.Key)
		t.admission.Release()
		expired = append(expired, sess.ScreenID)
		t.logger.Debug().Uint("screen_id", sess.ScreenID).
			Time("last_heartbeat", sess.LastHeartbeat).
			Msg("expired stale session")
	}
	return expired
}

// CapacitySnapshot returns the current connected count, the configured
// maximum, and the computed capacity tier.
func (t *ConnectivityTracker) CapacitySnapshot() CapacitySnapshot {
	connected := t.admission.Connected()
	max := t.admission.Max()
	return CapacitySnapshot{
		Connected: connected,
		Max:       max,
		Tier:      TierFor(connected, max),
	}
}
