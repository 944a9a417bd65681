package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/innoad/screenfleet/fleet"
	"github.com/innoad/screenfleet/repository"
	"github.com/innoad/screenfleet/utils"
)

// ConnectivitySweeper expires sessions whose last heartbeat fell outside the
// heartbeat window and flushes the accumulated last-seen timestamps to the
// database in one batch. The heartbeat hot path only touches memory; this
// sweep is where persistence catches up.
type ConnectivitySweeper struct {
	store      *fleet.Store
	tracker    *fleet.ConnectivityTracker
	screenRepo repository.ScreenRepository
	bus        fleet.Broadcaster
	interval   time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

// NewConnectivitySweeper creates a new connectivity sweeper
func NewConnectivitySweeper(
	store *fleet.Store,
	tracker *fleet.ConnectivityTracker,
	screenRepo repository.ScreenRepository,
	bus fleet.Broadcaster,
	interval time.Duration,
	logger zerolog.Logger,
) *ConnectivitySweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &ConnectivitySweeper{
		store:      store,
		tracker:    tracker,
		screenRepo: screenRepo,
		bus:        bus,
		interval:   interval,
		logger:     logger.With().Str("component", "connectivity_sweeper").Logger(),
		now:        utils.UTCNow,
	}
}

// Start launches the sweep loop in a background goroutine and returns a stop function
func (s *ConnectivitySweeper) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *ConnectivitySweeper) runOnce(ctx context.Context) {
	started := time.Now()
	now := s.now()

	expired := s.tracker.ExpireStale(now)
	for _, id := range expired {
		ev := fleet.Event{
			Type:       fleet.EventScreenDisconnected,
			ScreenID:   id,
			OccurredAt: now,
		}
		if screen, ok := s.store.Screen(id); ok {
			ev.ScreenUUID = screen.UUID
		}
		s.bus.Publish(ctx, ev)
	}
	if len(expired) > 0 {
		s.logger.Info().Int("expired", len(expired)).Msg("stale sessions expired")
	}

	s.flushLastSeen(ctx)

	fleet.ObserveSweep("connectivity", time.Since(started).Seconds())
}

// flushLastSeen persists the heartbeat timestamps accumulated since the last
// sweep. Flushing is best effort; a failed batch is dropped and the next
// heartbeat marks the screen dirty again.
func (s *ConnectivitySweeper) flushLastSeen(ctx context.Context) {
	dirty := s.store.DrainDirtyLastSeen()
	if len(dirty) == 0 {
		return
	}

	if err := s.screenRepo.UpdateLastSeenBatch(ctx, dirty); err != nil {
		s.logger.Warn().Err(err).Int("screens", len(dirty)).Msg("last-seen flush failed")
		return
	}

	s.logger.Debug().Int("screens", len(dirty)).Msg("last-seen flushed")
}
