package fleet

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/innoad/screenfleet/models"
)

// campaignEntry wraps a campaign with its own mutex so transitions are
// linearized per campaign, never across campaigns.
type campaignEntry struct {
	mu sync.Mutex
	c  models.Campaign
}

// Store is the in-memory projection the core operates on. It is loaded from
// the persistence collaborator at startup and kept current by the flows;
// resolution and sweeps never touch external I/O.
type Store struct {
	campaigns     cmap.ConcurrentMap[string, *campaignEntry]
	screens       cmap.ConcurrentMap[string, *models.Screen]
	contents      cmap.ConcurrentMap[string, *models.Content]
	campaignUUIDs cmap.ConcurrentMap[string, uint]
	screenUUIDs   cmap.ConcurrentMap[string, uint]
	screenCodes   cmap.ConcurrentMap[string, uint]
	contentUUIDs  cmap.ConcurrentMap[string, uint]

	// dirtyLastSeen accumulates heartbeat updates between sweeper flushes so
	// the heartbeat hot path never waits on persistence.
	dirtyLastSeen cmap.ConcurrentMap[string, time.Time]
}

// NewStore creates an empty projection store
func NewStore() *Store {
	return &Store{
		campaigns:     cmap.New[*campaignEntry](),
		screens:       cmap.New[*models.Screen](),
		contents:      cmap.New[*models.Content](),
		campaignUUIDs: cmap.New[uint](),
		screenUUIDs:   cmap.New[uint](),
		screenCodes:   cmap.New[uint](),
		contentUUIDs:  cmap.New[uint](),
		dirtyLastSeen: cmap.New[time.Time](),
	}
}

func idKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// PutCampaign upserts a campaign projection. An existing entry is updated in
// place under its lock rather than replaced, so a Transition or MutateCampaign
// racing with the upsert keeps operating on the entry the map serves.
func (s *Store) PutCampaign(c models.Campaign) {
	key := idKey(c.ID)
	for {
		if entry, ok := s.campaigns.Get(key); ok {
			entry.mu.Lock()
			entry.c = c
			entry.mu.Unlock()
			break
		}
		if s.campaigns.SetIfAbsent(key, &campaignEntry{c: c}) {
			break
		}
	}
	s.campaignUUIDs.Set(c.UUID.String(), c.ID)
	activeCampaigns.Set(float64(s.countActiveCampaigns()))
}

// PutScreen upserts a screen projection
func (s *Store) PutScreen(sc models.Screen) {
	copied := sc
	s.screens.Set(idKey(sc.ID), &copied)
	s.screenUUIDs.Set(sc.UUID.String(), sc.ID)
	s.screenCodes.Set(sc.Code, sc.ID)
}

// PutContent upserts a content projection
func (s *Store) PutContent(c models.Content) {
	copied := c
	s.contents.Set(idKey(c.ID), &copied)
	s.contentUUIDs.Set(c.UUID.String(), c.ID)
}

// Campaign returns a copy of the campaign by id
func (s *Store) Campaign(id uint) (models.Campaign, bool) {
	entry, ok := s.campaigns.Get(idKey(id))
	if !ok {
		return models.Campaign{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.c, true
}

// CampaignByUUID returns a copy of the campaign by uuid
func (s *Store) CampaignByUUID(u uuid.UUID) (models.Campaign, bool) {
	id, ok := s.campaignUUIDs.Get(u.String())
	if !ok {
		return models.Campaign{}, false
	}
	return s.Campaign(id)
}

// Screen returns a copy of the screen by id
func (s *Store) Screen(id uint) (models.Screen, bool) {
	sc, ok := s.screens.Get(idKey(id))
	if !ok {
		return models.Screen{}, false
	}
	return *sc, true
}

// ScreenByUUID returns a copy of the screen by uuid
func (s *Store) ScreenByUUID(u uuid.UUID) (models.Screen, bool) {
	id, ok := s.screenUUIDs.Get(u.String())
	if !ok {
		return models.Screen{}, false
	}
	return s.Screen(id)
}

// ScreenByCode returns a copy of the screen by its registration code
func (s *Store) ScreenByCode(code string) (models.Screen, bool) {
	id, ok := s.screenCodes.Get(code)
	if !ok {
		return models.Screen{}, false
	}
	return s.Screen(id)
}

// Content returns a copy of the content by id
func (s *Store) Content(id uint) (models.Content, bool) {
	c, ok := s.contents.Get(idKey(id))
	if !ok {
		return models.Content{}, false
	}
	return *c, true
}

// ContentByUUID returns a copy of the content by uuid
func (s *Store) ContentByUUID(u uuid.UUID) (models.Content, bool) {
	id, ok := s.contentUUIDs.Get(u.String())
	if !ok {
		return models.Content{}, false
	}
	return s.Content(id)
}

// Campaigns returns a snapshot of all campaign projections
func (s *Store) Campaigns() []models.Campaign {
	out := make([]models.Campaign, 0, s.campaigns.Count())
	for item := range s.campaigns.IterBuffered() {
		item.Val.mu.Lock()
		out = append(out, item.Val.c)
		item.Val.mu.Unlock()
	}
	return out
}

// Screens returns a snapshot of all screen projections
func (s *Store) Screens() []models.Screen {
	out := make([]models.Screen, 0, s.screens.Count())
	for item := range s.screens.IterBuffered() {
		out = append(out, *item.Val)
	}
	return out
}

// CampaignsForScreen returns all campaigns whose assignment set contains the
// screen, regardless of state.
func (s *Store) CampaignsForScreen(screenID uint) []models.Campaign {
	var out []models.Campaign
	for item := range s.campaigns.IterBuffered() {
		item.Val.mu.Lock()
		if item.Val.c.HasScreen(screenID) {
			out = append(out, item.Val.c)
		}
		item.Val.mu.Unlock()
	}
	return out
}

// Transition applies a status transition to the campaign, linearized on the
// campaign's own lock. When expectVersion is non-nil the transition only
// applies if the campaign still carries that version (sweeps pass the version
// they observed; a mismatch means another transition won the race). The
// campaign's version increments on success. Invalid transitions leave the
// campaign untouched and return the current state alongside
// ErrInvalidTransition.
func (s *Store) Transition(id uint, expectVersion *uint64, to models.CampaignStatus, at time.Time) (models.Campaign, error) {
	entry, ok := s.campaigns.Get(idKey(id))
	if !ok {
		return models.Campaign{}, ErrUnknownCampaign
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if expectVersion != nil && entry.c.Version != *expectVersion {
		return entry.c, ErrStaleVersion
	}
	if entry.c.Status == to {
		// Idempotent under repeated application.
		return entry.c, nil
	}
	if !entry.c.CanTransitionTo(to) {
		return entry.c, ErrInvalidTransition
	}

	entry.c.Status = to
	entry.c.Version++
	ts := at
	entry.c.UpdatedAt = &ts

	campaignTransitions.WithLabelValues(string(to)).Inc()
	activeCampaigns.Set(float64(s.countActiveCampaigns()))
	return entry.c, nil
}

// MutateCampaign applies fn to the campaign under its lock, for non-status
// edits (assignment set, content list). fn receives a pointer to the live
// projection; the version is not bumped.
func (s *Store) MutateCampaign(id uint, fn func(*models.Campaign)) (models.Campaign, error) {
	entry, ok := s.campaigns.Get(idKey(id))
	if !ok {
		return models.Campaign{}, ErrUnknownCampaign
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	fn(&entry.c)
	return entry.c, nil
}

// TouchScreen records a heartbeat timestamp on the screen projection and
// marks it dirty for the next persistence flush.
func (s *Store) TouchScreen(id uint, ts time.Time) {
	if sc, ok := s.screens.Get(idKey(id)); ok {
		copied := *sc
		if copied.LastSeenAt == nil || ts.After(*copied.LastSeenAt) {
			copied.LastSeenAt = &ts
			s.screens.Set(idKey(id), &copied)
			s.dirtyLastSeen.Set(idKey(id), ts)
		}
	}
}

// SetScreenAssignment updates the screen's cached resolved content id
func (s *Store) SetScreenAssignment(id uint, contentID *uint) {
	if sc, ok := s.screens.Get(idKey(id)); ok {
		copied := *sc
		copied.CurrentContentID = contentID
		s.screens.Set(idKey(id), &copied)
	}
}

// DrainDirtyLastSeen returns and clears the accumulated heartbeat updates.
// The connectivity sweeper flushes these to persistence in one batch.
func (s *Store) DrainDirtyLastSeen() map[uint]time.Time {
	out := make(map[uint]time.Time)
	for item := range s.dirtyLastSeen.IterBuffered() {
		s.dirtyLastSeen.RemoveCb(item.Key, func(key string, v time.Time, exists bool) bool {
			if exists {
				id, err := strconv.ParseUint(key, 10, 64)
				if err == nil {
					out[uint(id)] = v
				}
			}
			return exists
		})
	}
	return out
}

// countActiveCampaigns is a gauge approximation. It reads statuses without
// taking per-entry locks because callers may already hold one.
func (s *Store) countActiveCampaigns() int {
	n := 0
	for item := range s.campaigns.IterBuffered() {
		if item.Val.c.Status == models.CampaignStatusActive {
			n++
		}
	}
	return n
}
