package businessflow

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/innoad/screenfleet/app/dto"
	"github.com/innoad/screenfleet/fleet"
	"github.com/innoad/screenfleet/utils"
)

// MonitoringFlow exposes the live fleet state for dashboards: capacity,
// connections, campaign states and the broadcast event feed.
type MonitoringFlow interface {
	GetCapacity(ctx context.Context) (*dto.CapacityResponse, error)
	ListConnections(ctx context.Context) (*dto.ListConnectionsResponse, error)
	ListCampaignStates(ctx context.Context) (*dto.ListCampaignStatesResponse, error)
	PollEvents(ctx context.Context, topic string, wait time.Duration) (*dto.PollEventsResponse, error)
}

// MonitoringFlowImpl implements the monitoring business flow
type MonitoringFlowImpl struct {
	store   *fleet.Store
	tracker *fleet.ConnectivityTracker
	bus     fleet.Broadcaster
	now     func() time.Time
}

// NewMonitoringFlow creates a new monitoring flow instance
func NewMonitoringFlow(store *fleet.Store, tracker *fleet.ConnectivityTracker, bus fleet.Broadcaster) MonitoringFlow {
	return &MonitoringFlowImpl{
		store:   store,
		tracker: tracker,
		bus:     bus,
		now:     utils.UTCNow,
	}
}

// GetCapacity returns the current connection count, limit and capacity tier
func (s *MonitoringFlowImpl) GetCapacity(ctx context.Context) (*dto.CapacityResponse, error) {
	snapshot := s.tracker.CapacitySnapshot()
	return &dto.CapacityResponse{
		Message:   "Capacity snapshot",
		Connected: snapshot.Connected,
		Max:       snapshot.Max,
		Tier:      string(snapshot.Tier),
	}, nil
}

// ListConnections returns every live screen session, newest first
func (s *MonitoringFlowImpl) ListConnections(ctx context.Context) (*dto.ListConnectionsResponse, error) {
	now := s.now()
	sessions := s.tracker.Sessions()

	items := make([]dto.ConnectionDTO, 0, len(sessions))
	for _, sess := range sessions {
		item := dto.ConnectionDTO{
			ScreenID:      sess.ScreenID,
			ConnectedAt:   sess.ConnectedAt,
			LastHeartbeat: sess.LastHeartbeat,
			UptimeSeconds: int64(sess.Uptime(now).Seconds()),
			RemoteAddr:    sess.RemoteAddr,
		}
		if screen, ok := s.store.Screen(sess.ScreenID); ok {
			item.ScreenUUID = screen.UUID.String()
			item.ScreenName = screen.Name
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].ConnectedAt.After(items[j].ConnectedAt)
	})

	return &dto.ListConnectionsResponse{
		Message: "Connections listed successfully",
		Items:   items,
		Total:   len(items),
	}, nil
}

// ListCampaignStates returns the live state of every non-finished campaign
func (s *MonitoringFlowImpl) ListCampaignStates(ctx context.Context) (*dto.ListCampaignStatesResponse, error) {
	campaigns := s.store.Campaigns()

	items := make([]dto.CampaignStateDTO, 0, len(campaigns))
	for _, c := range campaigns {
		if c.Status.Terminal() {
			continue
		}
		items = append(items, dto.CampaignStateDTO{
			ID:       c.ID,
			UUID:     c.UUID.String(),
			Name:     c.Name,
			Status:   string(c.Status),
			Priority: c.Priority,
			Version:  c.Version,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})

	return &dto.ListCampaignStatesResponse{
		Message: "Campaign states listed successfully",
		Items:   items,
		Total:   len(items),
	}, nil
}

// PollEvents long-polls the broadcast bus on the given topic. The call blocks
// until at least one event arrives, the wait elapses, or the context is
// cancelled, then returns whatever accumulated. Delivery is at-most-once:
// events published while no poller is subscribed are gone.
func (s *MonitoringFlowImpl) PollEvents(ctx context.Context, topic string, wait time.Duration) (*dto.PollEventsResponse, error) {
	if wait <= 0 || wait > utils.MaxEventPollWait {
		wait = utils.MaxEventPollWait
	}

	ch, cancel := s.bus.Subscribe(topic)
	defer cancel()

	resp := &dto.PollEventsResponse{
		Message: "Events polled successfully",
		Items:   []dto.FleetEventDTO{},
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case ev, ok := <-ch:
		if !ok {
			return resp, nil
		}
		resp.Items = append(resp.Items, toFleetEventDTO(ev))
	case <-timer.C:
		return resp, nil
	case <-ctx.Done():
		return resp, nil
	}

	// Drain whatever else is already buffered without blocking again.
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return resp, nil
			}
			resp.Items = append(resp.Items, toFleetEventDTO(ev))
		default:
			return resp, nil
		}
	}
}

func toFleetEventDTO(ev fleet.Event) dto.FleetEventDTO {
	out := dto.FleetEventDTO{
		Type:       string(ev.Type),
		ScreenID:   ev.ScreenID,
		ContentID:  ev.ContentID,
		CampaignID: ev.CampaignID,
		OldStatus:  string(ev.OldStatus),
		NewStatus:  string(ev.NewStatus),
		OccurredAt: ev.OccurredAt,
	}
	if ev.ScreenUUID != uuid.Nil {
		out.ScreenUUID = ev.ScreenUUID.String()
	}
	return out
}
