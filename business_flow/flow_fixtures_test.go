package businessflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/innoad/screenfleet/app/services"
	"github.com/innoad/screenfleet/fleet"
	"github.com/innoad/screenfleet/models"
	"github.com/innoad/screenfleet/repository"
)

// The flow tests exercise the business layer against the in-memory projection
// with stub repositories, so they never touch postgres. The repository layer
// has its own contract; here only call shapes and recorded writes matter.

type stubCampaignRepo struct {
	repository.CampaignRepository

	mu             sync.Mutex
	nextID         uint
	saved          []*models.Campaign
	updated        []models.Campaign
	versionedCalls []versionedCall
	saveErr        error
	listResult     []*models.Campaign
}

type versionedCall struct {
	ID          uint
	FromVersion uint64
	Status      models.CampaignStatus
}

func (r *stubCampaignRepo) Save(ctx context.Context, c *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.nextID++
	c.ID = r.nextID
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	r.saved = append(r.saved, c)
	return nil
}

func (r *stubCampaignRepo) Update(ctx context.Context, c models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = append(r.updated, c)
	return nil
}

func (r *stubCampaignRepo) UpdateStatusVersioned(ctx context.Context, id uint, fromVersion uint64, status models.CampaignStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versionedCalls = append(r.versionedCalls, versionedCall{ID: id, FromVersion: fromVersion, Status: status})
	return nil
}

func (r *stubCampaignRepo) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	return r.listResult, nil
}

func (r *stubCampaignRepo) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	return int64(len(r.listResult)), nil
}

type stubScreenRepo struct {
	repository.ScreenRepository

	mu             sync.Mutex
	nextID         uint
	saved          []*models.Screen
	updated        []models.Screen
	currentContent map[uint]*uint
	listResult     []*models.Screen
}

func (r *stubScreenRepo) Save(ctx context.Context, s *models.Screen) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s.ID = r.nextID
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	r.saved = append(r.saved, s)
	return nil
}

func (r *stubScreenRepo) Update(ctx context.Context, s models.Screen) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = append(r.updated, s)
	return nil
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

func (r *stubScreenRepo) ByFilter(ctx context.Context, filter models.ScreenFilter, orderBy string, limit, offset int) ([]*models.Screen, error) {
	return r.listResult, nil
}

func (r *stubScreenRepo) Count(ctx context.Context, filter models.ScreenFilter) (int64, error) {
	return int64(len(r.listResult)), nil
}

type stubContentRepo struct {
	repository.ContentRepository

	mu         sync.Mutex
	nextID     uint
	saved      []*models.Content
	statusSets []statusSet
	listResult []*models.Content
}

type statusSet struct {
	ID     uint
	Status models.ContentStatus
}

func (r *stubContentRepo) Save(ctx context.Context, c *models.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	r.saved = append(r.saved, c)
	return nil
}

func (r *stubContentRepo) UpdateStatus(ctx context.Context, id uint, status models.ContentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusSets = append(r.statusSets, statusSet{ID: id, Status: status})
	return nil
}

func (r *stubContentRepo) ByFilter(ctx context.Context, filter models.ContentFilter, orderBy string, limit, offset int) ([]*models.Content, error) {
	return r.listResult, nil
}

func (r *stubContentRepo) Count(ctx context.Context, filter models.ContentFilter) (int64, error) {
	return int64(len(r.listResult)), nil
}

type stubAuditRepo struct {
	repository.AuditLogRepository

	mu   sync.Mutex
	logs []*models.AuditLog
}

func (r *stubAuditRepo) Save(ctx context.Context, a *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, a)
	return nil
}

func (r *stubAuditRepo) byAction(action string) []*models.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditLog
	for _, l := range r.logs {
		if l.Action == action {
			out = append(out, l)
		}
	}
	return out
}

// flowFixture wires the full business layer around the in-memory core
type flowFixture struct {
	base time.Time

	campaignRepo *stubCampaignRepo
	screenRepo   *stubScreenRepo
	contentRepo  *stubContentRepo
	auditRepo    *stubAuditRepo

	store    *fleet.Store
	tracker  *fleet.ConnectivityTracker
	resolver *fleet.Resolver
	bus      *fleet.Bus

	screenFlow     ScreenFlow
	campaignFlow   CampaignFlow
	contentFlow    ContentFlow
	monitoringFlow MonitoringFlow
}

func newFlowFixture(t *testing.T, maxConnections int64) *flowFixture {
	t.Helper()

	logger := zerolog.Nop()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	f := &flowFixture{
		base:         base,
		campaignRepo: &stubCampaignRepo{},
		screenRepo:   &stubScreenRepo{},
		contentRepo:  &stubContentRepo{},
		auditRepo:    &stubAuditRepo{},
		store:        fleet.NewStore(),
		bus:          fleet.NewBus(logger),
	}

	admission := fleet.NewAdmissionController(maxConnections, 30*time.Second)
	f.tracker = fleet.NewConnectivityTracker(admission, 5*time.Minute, logger)
	f.resolver = fleet.NewResolver(f.store, 30*time.Second, logger)

	tokenService, err := services.NewTokenService(
		time.Hour, 24*time.Hour, 30*24*time.Hour,
		"screenfleet-test", "screenfleet-clients",
		false, "", "", "test-secret-key-for-flow-tests",
	)
	require.NoError(t, err)

	f.screenFlow = NewScreenFlow(f.screenRepo, f.auditRepo, f.store, f.tracker, f.resolver, f.bus, tokenService, nil)
	f.campaignFlow = NewCampaignFlow(f.campaignRepo, f.screenRepo, f.contentRepo, f.auditRepo, f.store, f.resolver, f.bus, nil)
	f.contentFlow = NewContentFlow(f.contentRepo, f.screenRepo, f.auditRepo, f.store, f.resolver, f.bus, nil)
	f.monitoringFlow = NewMonitoringFlow(f.store, f.tracker, f.bus)

	f.freezeClocks(base)
	return f
}

// freezeClocks pins every flow clock to at, keeping window checks and
// rotation arithmetic deterministic.
func (f *flowFixture) freezeClocks(at time.Time) {
	now := func() time.Time { return at }
	f.screenFlow.(*ScreenFlowImpl).now = now
	f.campaignFlow.(*CampaignFlowImpl).now = now
	f.contentFlow.(*ContentFlowImpl).now = now
	f.monitoringFlow.(*MonitoringFlowImpl).now = now
}

func (f *flowFixture) addScreen(id uint, ownerID uint, code string) models.Screen {
	screen := models.Screen{
		ID:      id,
		UUID:    uuid.New(),
		Code:    code,
		Name:    "Screen " + code,
		OwnerID: ownerID,
	}
	f.store.PutScreen(screen)
	return screen
}

func (f *flowFixture) addContent(id uint, ownerID uint, status models.ContentStatus, durationSeconds int) models.Content {
	content := models.Content{
		ID:              id,
		UUID:            uuid.New(),
		OwnerID:         ownerID,
		Name:            "content",
		Type:            models.ContentTypeImage,
		Status:          status,
		DurationSeconds: durationSeconds,
		CreatedAt:       f.base.Add(-time.Hour),
	}
	f.store.PutContent(content)
	return content
}

func (f *flowFixture) addCampaign(id uint, ownerID uint, status models.CampaignStatus, screenIDs, contentIDs []uint) models.Campaign {
	// Drafts get a window that has not opened yet so they can still be
	// scheduled; running campaigns get a window containing f.base.
	startAt, endAt := f.base.Add(-time.Hour), f.base.Add(time.Hour)
	if status == models.CampaignStatusDraft {
		startAt, endAt = f.base.Add(30*time.Minute), f.base.Add(90*time.Minute)
	}
	campaign := models.Campaign{
		ID:         id,
		UUID:       uuid.New(),
		OwnerID:    ownerID,
		Name:       "campaign",
		Status:     status,
		Priority:   10,
		StartAt:    startAt,
		EndAt:      endAt,
		ScreenIDs:  uintsToInt64Array(screenIDs),
		ContentIDs: uintsToInt64Array(contentIDs),
		Version:    1,
		CreatedAt:  f.base.Add(-2 * time.Hour),
	}
	f.store.PutCampaign(campaign)
	return campaign
}
