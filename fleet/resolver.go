package fleet

import (
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/innoad/screenfleet/models"
	"github.com/innoad/screenfleet/utils"
)

// Assignment is the resolved answer for a screen at a point in time. A nil
// ContentID means the screen should idle. ValidUntil is the earliest instant
// the answer could change through time alone (rotation boundary or campaign
// window end); state changes invalidate it sooner.
type Assignment struct {
	ScreenID   uint       `json:"screen_id"`
	CampaignID *uint      `json:"campaign_id,omitempty"`
	ContentID  *uint      `json:"content_id,omitempty"`
	ResolvedAt time.Time  `json:"resolved_at"`
	ValidUntil time.Time  `json:"valid_until"`
}

// Resolver computes which content each screen should display. Resolution is a
// pure function of the projection store and the clock; it performs no I/O.
// Results are cached per screen until their ValidUntil or an explicit
// invalidation.
type Resolver struct {
	store   *Store
	cache   cmap.ConcurrentMap[string, Assignment]
	refresh time.Duration
	logger  zerolog.Logger
}

// NewResolver creates a resolver over the given projection store. refresh
// bounds how long an idle (no campaign) answer is cached.
func NewResolver(store *Store, refresh time.Duration, logger zerolog.Logger) *Resolver {
	if refresh <= 0 {
		refresh = 30 * time.Second
	}
	return &Resolver{
		store:   store,
		cache:   cmap.New[Assignment](),
		refresh: refresh,
		logger:  logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve computes the assignment for the screen at time t, bypassing the
// cache. The winning campaign is the Active one whose window contains t with
// the highest priority; ties go to the most recently created campaign, then
// to the lowest id.
func (r *Resolver) Resolve(screenID uint, t time.Time) (Assignment, error) {
	if _, ok := r.store.Screen(screenID); !ok {
		return Assignment{}, ErrUnknownScreen
	}

	var winner *models.Campaign
	for _, c := range r.store.CampaignsForScreen(screenID) {
		if !c.IsActiveAt(t) {
			continue
		}
		c := c
		if winner == nil || beats(&c, winner) {
			winner = &c
		}
	}

	asn := Assignment{ScreenID: screenID, ResolvedAt: t}
	if winner == nil {
		asn.ValidUntil = t.Add(r.refresh)
		return asn, nil
	}

	id := winner.ID
	asn.CampaignID = &id
	contentID, boundary := r.rotate(winner, t)
	asn.ContentID = contentID

	validUntil := winner.EndAt
	if boundary != nil && boundary.Before(validUntil) {
		validUntil = *boundary
	}
	asn.ValidUntil = validUntil
	return asn, nil
}

// CurrentAssignment returns the cached assignment for the screen at time t,
// recomputing it when missing or expired.
func (r *Resolver) CurrentAssignment(screenID uint, t time.Time) (Assignment, error) {
	if cached, ok := r.cache.Get(sessionKey(screenID)); ok && t.Before(cached.ValidUntil) {
		resolutionsTotal.WithLabelValues("cached").Inc()
		return cached, nil
	}
	asn, _, err := r.Recompute(screenID, t)
	return asn, err
}

// Recompute resolves the screen fresh at time t, updates the cache and the
// screen's projected assignment, and reports whether the answer changed from
// the previously cached one.
func (r *Resolver) Recompute(screenID uint, t time.Time) (Assignment, bool, error) {
	// A missing cache entry counts as idle, so a screen's first resolution to
	// idle does not report a change.
	prev, _ := r.cache.Get(sessionKey(screenID))

	asn, err := r.Resolve(screenID, t)
	if err != nil {
		return Assignment{}, false, err
	}
	r.cache.Set(sessionKey(screenID), asn)
	r.store.SetScreenAssignment(screenID, asn.ContentID)
	resolutionsTotal.WithLabelValues("computed").Inc()

	changed := !uintPtrEqual(prev.ContentID, asn.ContentID) ||
		!uintPtrEqual(prev.CampaignID, asn.CampaignID)
	return asn, changed, nil
}

// Invalidate drops the cached assignments for the given screens
func (r *Resolver) Invalidate(screenIDs ...uint) {
	for _, id := range screenIDs {
		r.cache.Remove(sessionKey(id))
	}
}

// InvalidateAll drops every cached assignment
func (r *Resolver) InvalidateAll() {
	r.cache.Clear()
}

// rotate picks the content to show at t from the campaign's ordered rotation
// list, considering only eligible contents. The display window of each item
// is its duration; the rotation cycles from the campaign's StartAt. It
// returns the chosen content id and the end of the current rotation slot, or
// nils when the campaign carries no eligible content.
func (r *Resolver) rotate(c *models.Campaign, t time.Time) (*uint, *time.Time) {
	type item struct {
		id       uint
		duration int64
	}
	items := make([]item, 0, len(c.ContentIDs))
	var total int64
	for _, raw := range c.ContentIDs {
		content, ok := r.store.Content(uint(raw))
		if !ok || !content.Eligible() {
			continue
		}
		d := int64(content.DurationSeconds)
		if d <= 0 {
			d = int64(utils.DefaultContentDurationSeconds)
		}
		items = append(items, item{id: content.ID, duration: d})
		total += d
	}
	if len(items) == 0 {
		return nil, nil
	}

	elapsed := int64(t.Sub(c.StartAt) / time.Second)
	if elapsed < 0 || total == 0 {
		id := items[0].id
		boundary := c.StartAt.Add(time.Duration(items[0].duration) * time.Second)
		return &id, &boundary
	}

	offset := elapsed % total
	cycleStart := t.Add(-time.Duration(offset) * time.Second)
	var passed int64
	for _, it := range items {
		if offset < passed+it.duration {
			id := it.id
			boundary := cycleStart.Add(time.Duration(passed+it.duration) * time.Second)
			return &id, &boundary
		}
		passed += it.duration
	}

	// Unreachable given offset < total, kept as a safe fallback.
	id := items[0].id
	return &id, nil
}

// beats reports whether a wins over b under the conflict rules
func beats(a, b *models.Campaign) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

func uintPtrEqual(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
