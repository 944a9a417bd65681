package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innoad/screenfleet/fleet"
	"github.com/innoad/screenfleet/models"
	"github.com/innoad/screenfleet/repository"
)

type stubCampaignRepo struct {
	repository.CampaignRepository

	mu             sync.Mutex
	versionedCalls []versionedCall
	failID         uint
}

type versionedCall struct {
	ID          uint
	FromVersion uint64
	Status      models.CampaignStatus
}

func (r *stubCampaignRepo) UpdateStatusVersioned(ctx context.Context, id uint, fromVersion uint64, status models.CampaignStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failID != 0 && id == r.failID {
		return errors.New("persistence unavailable")
	}
	r.versionedCalls = append(r.versionedCalls, versionedCall{ID: id, FromVersion: fromVersion, Status: status})
	return nil
}

func (r *stubCampaignRepo) calls() []versionedCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]versionedCall(nil), r.versionedCalls...)
}

type stubScreenRepo struct {
	repository.ScreenRepository

	mu             sync.Mutex
	currentContent map[uint]*uint
	seenBatches    []map[uint]time.Time
	batchErr       error
}

func (r *stubScreenRepo) UpdateCurrentContent(ctx context.Context, id uint, contentID *uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentContent == nil {
		r.currentContent = make(map[uint]*uint)
	}
	r.currentContent[id] = contentID
	return nil
}

func (r *stubScreenRepo) UpdateLastSeenBatch(ctx context.Context, seen map[uint]time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.batchErr != nil {
		return r.batchErr
	}
	r.seenBatches = append(r.seenBatches, seen)
	return nil
}

type sweepFixture struct {
	base time.Time

	campaignRepo *stubCampaignRepo
	screenRepo   *stubScreenRepo

	store    *fleet.Store
	tracker  *fleet.ConnectivityTracker
	resolver *fleet.Resolver
	bus      *fleet.Bus

	campaignSweeper     *CampaignSweeper
	connectivitySweeper *ConnectivitySweeper
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()

	logger := zerolog.Nop()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	f := &sweepFixture{
		base:         base,
		campaignRepo: &stubCampaignRepo{},
		screenRepo:   &stubScreenRepo{},
		store:        fleet.NewStore(),
		bus:          fleet.NewBus(logger),
	}

	admission := fleet.NewAdmissionController(100, 30*time.Second)
	f.tracker = fleet.NewConnectivityTracker(admission, 5*time.Minute, logger)
	f.resolver = fleet.NewResolver(f.store, 30*time.Second, logger)

	f.campaignSweeper = NewCampaignSweeper(f.store, f.campaignRepo, f.screenRepo, f.resolver, f.bus, time.Minute, logger)
	f.connectivitySweeper = NewConnectivitySweeper(f.store, f.tracker, f.screenRepo, f.bus, 30*time.Second, logger)

	f.freezeClocks(base)
	return f
}

func (f *sweepFixture) freezeClocks(at time.Time) {
	now := func() time.Time { return at }
	f.campaignSweeper.now = now
	f.connectivitySweeper.now = now
}

func (f *sweepFixture) addScreen(id uint) models.Screen {
	screen := models.Screen{ID: id, UUID: uuid.New(), Code: "screen", Name: "Screen", OwnerID: 1}
	f.store.PutScreen(screen)
	return screen
}

func (f *sweepFixture) addContent(id uint) models.Content {
	content := models.Content{
		ID:              id,
		UUID:            uuid.New(),
		OwnerID:         1,
		Name:            "content",
		Type:            models.ContentTypeImage,
		Status:          models.ContentStatusActive,
		DurationSeconds: 10,
		CreatedAt:       f.base.Add(-time.Hour),
	}
	f.store.PutContent(content)
	return content
}

func (f *sweepFixture) addCampaign(id uint, status models.CampaignStatus, startAt, endAt time.Time, screenIDs, contentIDs pq.Int64Array) models.Campaign {
	campaign := models.Campaign{
		ID:         id,
		UUID:       uuid.New(),
		OwnerID:    1,
		Name:       "campaign",
		Status:     status,
		Priority:   10,
		StartAt:    startAt,
		EndAt:      endAt,
		ScreenIDs:  screenIDs,
		ContentIDs: contentIDs,
		Version:    1,
		CreatedAt:  f.base.Add(-2 * time.Hour),
	}
	f.store.PutCampaign(campaign)
	return campaign
}

func drainEvents(ch <-chan fleet.Event) []fleet.Event {
	var out []fleet.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestCampaignSweeper_ActivatesScheduledCampaignAtStart(t *testing.T) {
	f := newSweepFixture(t)
	f.addScreen(1)
	f.addContent(5)
	f.addCampaign(100, models.CampaignStatusScheduled, f.base.Add(-10*time.Minute), f.base.Add(time.Hour), pq.Int64Array{1}, pq.Int64Array{5})

	ch, cancel := f.bus.Subscribe(fleet.TopicFleet)
	defer cancel()

	f.campaignSweeper.runOnce(context.Background())

	live, ok := f.store.Campaign(100)
	require.True(t, ok)
	assert.Equal(t, models.CampaignStatusActive, live.Status)
	assert.Equal(t, uint64(2), live.Version)

	calls := f.campaignRepo.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, versionedCall{ID: 100, FromVersion: 1, Status: models.CampaignStatusActive}, calls[0])

	events := drainEvents(ch)
	require.Len(t, events, 2)
	assert.Equal(t, fleet.EventCampaignStateChanged, events[0].Type)
	assert.Equal(t, models.CampaignStatusScheduled, events[0].OldStatus)
	assert.Equal(t, models.CampaignStatusActive, events[0].NewStatus)

	assert.Equal(t, fleet.EventContentAssigned, events[1].Type)
	assert.Equal(t, uint(1), events[1].ScreenID)
	require.NotNil(t, events[1].ContentID)
	assert.Equal(t, uint(5), *events[1].ContentID)

	require.NotNil(t, f.screenRepo.currentContent[1])
	assert.Equal(t, uint(5), *f.screenRepo.currentContent[1])
}

func TestCampaignSweeper_FinishesActiveCampaignAtEnd(t *testing.T) {
	f := newSweepFixture(t)
	f.addScreen(1)
	f.addContent(5)
	f.addCampaign(100, models.CampaignStatusActive, f.base.Add(-2*time.Hour), f.base.Add(-time.Minute), pq.Int64Array{1}, pq.Int64Array{5})

	// Prime the resolver while the campaign still resolves, so the sweep's
	// recompute observes the content going away.
	_, _, err := f.resolver.Recompute(1, f.base.Add(-2*time.Minute))
	require.NoError(t, err)

	ch, cancel := f.bus.Subscribe(fleet.TopicFleet)
	defer cancel()

	f.campaignSweeper.runOnce(context.Background())

	live, ok := f.store.Campaign(100)
	require.True(t, ok)
	assert.Equal(t, models.CampaignStatusFinished, live.Status)

	events := drainEvents(ch)
	require.Len(t, events, 2)
	assert.Equal(t, fleet.EventCampaignStateChanged, events[0].Type)
	assert.Equal(t, models.CampaignStatusFinished, events[0].NewStatus)

	assert.Equal(t, fleet.EventContentAssigned, events[1].Type)
	assert.Nil(t, events[1].ContentID)
}

func TestCampaignSweeper_LeavesUndueCampaignsAlone(t *testing.T) {
	f := newSweepFixture(t)
	f.addCampaign(100, models.CampaignStatusScheduled, f.base.Add(time.Hour), f.base.Add(2*time.Hour), nil, nil)
	f.addCampaign(101, models.CampaignStatusDraft, f.base.Add(-time.Hour), f.base.Add(time.Hour), nil, nil)
	// Paused campaigns never advance automatically, even past their end.
	f.addCampaign(102, models.CampaignStatusPaused, f.base.Add(-2*time.Hour), f.base.Add(-time.Hour), nil, nil)

	f.campaignSweeper.runOnce(context.Background())

	assert.Empty(t, f.campaignRepo.calls())
	for _, id := range []uint{100, 101, 102} {
		live, ok := f.store.Campaign(id)
		require.True(t, ok)
		assert.Equal(t, uint64(1), live.Version)
	}
}

func TestCampaignSweeper_SkipsScheduledCampaignStraightToFinished(t *testing.T) {
	f := newSweepFixture(t)
	// Never activated and its window already closed.
	f.addCampaign(100, models.CampaignStatusScheduled, f.base.Add(-2*time.Hour), f.base.Add(-time.Hour), nil, nil)

	f.campaignSweeper.runOnce(context.Background())

	live, ok := f.store.Campaign(100)
	require.True(t, ok)
	assert.Equal(t, models.CampaignStatusFinished, live.Status)
}

func TestCampaignSweeper_RunOnceIsIdempotent(t *testing.T) {
	f := newSweepFixture(t)
	f.addCampaign(100, models.CampaignStatusScheduled, f.base.Add(-10*time.Minute), f.base.Add(time.Hour), nil, nil)

	f.campaignSweeper.runOnce(context.Background())
	f.campaignSweeper.runOnce(context.Background())

	live, ok := f.store.Campaign(100)
	require.True(t, ok)
	assert.Equal(t, models.CampaignStatusActive, live.Status)
	assert.Equal(t, uint64(2), live.Version)
	assert.Len(t, f.campaignRepo.calls(), 1)
}

func TestCampaignSweeper_OneFailureDoesNotStopTheSweep(t *testing.T) {
	f := newSweepFixture(t)
	f.campaignRepo.failID = 100
	f.addCampaign(100, models.CampaignStatusScheduled, f.base.Add(-10*time.Minute), f.base.Add(time.Hour), nil, nil)
	f.addCampaign(101, models.CampaignStatusScheduled, f.base.Add(-10*time.Minute), f.base.Add(time.Hour), nil, nil)

	f.campaignSweeper.runOnce(context.Background())

	calls := f.campaignRepo.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, uint(101), calls[0].ID)

	live, ok := f.store.Campaign(101)
	require.True(t, ok)
	assert.Equal(t, models.CampaignStatusActive, live.Status)
}
