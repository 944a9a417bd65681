// Package scheduler runs the background ticker sweeps that drive automatic
// campaign transitions and connectivity expiry.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/innoad/screenfleet/fleet"
	"github.com/innoad/screenfleet/models"
	"github.com/innoad/screenfleet/repository"
	"github.com/innoad/screenfleet/utils"
)

// CampaignSweeper advances campaigns past their window boundaries: scheduled
// campaigns activate at their start time and running campaigns finish at
// their end time. Explicit transitions race the sweep safely because every
// sweep transition is guarded by the campaign version it observed; losing
// the race means skipping, never overwriting.
type CampaignSweeper struct {
	store        *fleet.Store
	campaignRepo repository.CampaignRepository
	screenRepo   repository.ScreenRepository
	resolver     *fleet.Resolver
	bus          fleet.Broadcaster
	interval     time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

// NewCampaignSweeper creates a new campaign sweeper
func NewCampaignSweeper(
	store *fleet.Store,
	campaignRepo repository.CampaignRepository,
	screenRepo repository.ScreenRepository,
	resolver *fleet.Resolver,
	bus fleet.Broadcaster,
	interval time.Duration,
	logger zerolog.Logger,
) *CampaignSweeper {
	if interval <= 0 {
		interval = time.Minute
	}

	return &CampaignSweeper{
		store:        store,
		campaignRepo: campaignRepo,
		screenRepo:   screenRepo,
		resolver:     resolver,
		bus:          bus,
		interval:     interval,
		logger:       logger.With().Str("component", "campaign_sweeper").Logger(),
		now:          utils.UTCNow,
	}
}

// Start launches the sweep loop in a background goroutine and returns a stop function
func (s *CampaignSweeper) Start(parent context.Context) func() {
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

func (s *CampaignSweeper) runOnce(ctx context.Context) {
	started := time.Now()
	now := s.now()

	for _, campaign := range s.store.Campaigns() {
		if campaign.Status.Terminal() {
			continue
		}

		target, due := dueTransition(campaign, now)
		if !due {
			continue
		}

		// One campaign failing must not stop the rest of the sweep.
		if err := s.apply(ctx, campaign, target, now); err != nil {
			s.logger.Warn().Err(err).
				Uint("campaign_id", campaign.ID).
				Str("target", string(target)).
				Msg("sweep transition failed")
		}
	}

	fleet.ObserveSweep("campaign", time.Since(started).Seconds())
}

// apply performs one sweep transition guarded by the observed version
func (s *CampaignSweeper) apply(ctx context.Context, campaign models.Campaign, target models.CampaignStatus, now time.Time) error {
	observed := campaign.Version

	updated, err := s.store.Transition(campaign.ID, &observed, target, now)
	if err != nil {
		if errors.Is(err, fleet.ErrStaleVersion) {
			// An explicit transition won the race. The next sweep re-reads.
			s.logger.Debug().Uint("campaign_id", campaign.ID).Msg("sweep skipped stale campaign")
			return nil
		}
		return err
	}
	if updated.Status == campaign.Status {
		return nil
	}

	if err := s.campaignRepo.UpdateStatusVersioned(ctx, campaign.ID, updated.Version-1, updated.Status); err != nil {
		return err
	}

	s.bus.Publish(ctx, fleet.Event{
		Type:       fleet.EventCampaignStateChanged,
		CampaignID: campaign.ID,
		OldStatus:  campaign.Status,
		NewStatus:  updated.Status,
		OccurredAt: now,
	})

	s.logger.Info().
		Uint("campaign_id", campaign.ID).
		Str("from", string(campaign.Status)).
		Str("to", string(updated.Status)).
		Msg("campaign advanced by sweep")

	s.refreshAssignments(ctx, updated, now)
	return nil
}

// refreshAssignments recomputes affected screens after a sweep transition and
// broadcasts the screens whose displayed content changed
func (s *CampaignSweeper) refreshAssignments(ctx context.Context, campaign models.Campaign, now time.Time) {
	for _, raw := range campaign.ScreenIDs {
		id := uint(raw)

		asn, changed, err := s.resolver.Recompute(id, now)
		if err != nil || !changed {
			continue
		}

		screen, ok := s.store.Screen(id)
		if !ok {
			continue
		}

		_ = s.screenRepo.UpdateCurrentContent(ctx, id, asn.ContentID)

		s.bus.Publish(ctx, fleet.Event{
			Type:       fleet.EventContentAssigned,
			ScreenID:   id,
			ScreenUUID: screen.UUID,
			ContentID:  asn.ContentID,
			OccurredAt: now,
		})
	}
}

// dueTransition reports the automatic transition a campaign owes at time now.
// Paused campaigns never advance automatically; their window is re-checked on
// explicit resume.
func dueTransition(c models.Campaign, now time.Time) (models.CampaignStatus, bool) {
	switch c.Status {
	case models.CampaignStatusScheduled:
		if !now.Before(c.EndAt) {
			return models.CampaignStatusFinished, true
		}
		if !now.Before(c.StartAt) {
			return models.CampaignStatusActive, true
		}
	case models.CampaignStatusActive:
		if !now.Before(c.EndAt) {
			return models.CampaignStatusFinished, true
		}
	}
	return c.Status, false
}
