package fleet

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innoad/screenfleet/models"
)

func storeCampaign(id uint, status models.CampaignStatus, screenIDs ...int64) models.Campaign {
	now := time.Now().UTC()
	return models.Campaign{
		ID:        id,
		UUID:      uuid.New(),
		OwnerID:   1,
		Name:      "campaign",
		Status:    status,
		StartAt:   now,
		EndAt:     now.Add(time.Hour),
		ScreenIDs: pq.Int64Array(screenIDs),
		CreatedAt: now,
	}
}

func TestStore_TransitionLifecycle(t *testing.T) {
	s := NewStore()
	s.PutCampaign(storeCampaign(1, models.CampaignStatusDraft))

	at := time.Now().UTC()
	steps := []models.CampaignStatus{
		models.CampaignStatusScheduled,
		models.CampaignStatusActive,
		models.CampaignStatusPaused,
		models.CampaignStatusActive,
		models.CampaignStatusFinished,
	}

	for i, status := range steps {
		c, err := s.Transition(1, nil, status, at)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, status, c.Status)
		assert.Equal(t, uint64(i+1), c.Version)
	}
}

func TestStore_PutCampaignKeepsEntryIdentity(t *testing.T) {
	s := NewStore()
	first := storeCampaign(1, models.CampaignStatusDraft)
	s.PutCampaign(first)

	var live *models.Campaign
	_, err := s.MutateCampaign(1, func(c *models.Campaign) {
		live = c
	})
	require.NoError(t, err)

	// An upsert for an existing id rewrites the stored campaign without
	// swapping the entry a concurrent transition could be locked on.
	second := first
	second.Name = "campaign-renamed"
	second.Version = 7
	s.PutCampaign(second)

	_, err = s.MutateCampaign(1, func(c *models.Campaign) {
		assert.Same(t, live, c)
		assert.Equal(t, "campaign-renamed", c.Name)
		assert.Equal(t, uint64(7), c.Version)
	})
	require.NoError(t, err)
}

func TestStore_TransitionInvalid(t *testing.T) {
	s := NewStore()
	s.PutCampaign(storeCampaign(1, models.CampaignStatusDraft))

	c, err := s.Transition(1, nil, models.CampaignStatusActive, time.Now().UTC())
	require.ErrorIs(t, err, ErrInvalidTransition)

	// The campaign is left untouched.
	assert.Equal(t, models.CampaignStatusDraft, c.Status)
	assert.Equal(t, uint64(0), c.Version)
}

func TestStore_TransitionFromTerminal(t *testing.T) {
	s := NewStore()
	s.PutCampaign(storeCampaign(1, models.CampaignStatusFinished))

	for _, status := range []models.CampaignStatus{
		models.CampaignStatusDraft,
		models.CampaignStatusScheduled,
		models.CampaignStatusActive,
		models.CampaignStatusPaused,
	} {
		_, err := s.Transition(1, nil, status, time.Now().UTC())
		assert.ErrorIs(t, err, ErrInvalidTransition, "finished -> %s", status)
	}
}

func TestStore_CancelFromAnyNonTerminal(t *testing.T) {
	for i, status := range []models.CampaignStatus{
		models.CampaignStatusDraft,
		models.CampaignStatusScheduled,
		models.CampaignStatusActive,
		models.CampaignStatusPaused,
	} {
		s := NewStore()
		s.PutCampaign(storeCampaign(uint(i+1), status))

		c, err := s.Transition(uint(i+1), nil, models.CampaignStatusFinished, time.Now().UTC())
		require.NoError(t, err, "%s -> finished", status)
		assert.Equal(t, models.CampaignStatusFinished, c.Status)
	}
}

func TestStore_TransitionStaleVersion(t *testing.T) {
	s := NewStore()
	s.PutCampaign(storeCampaign(1, models.CampaignStatusScheduled))

	observed := uint64(0)
	c, err := s.Transition(1, &observed, models.CampaignStatusActive, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.Version)

	// A second attempt with the same observed version lost the race.
	_, err = s.Transition(1, &observed, models.CampaignStatusFinished, time.Now().UTC())
	assert.ErrorIs(t, err, ErrStaleVersion)
}

func TestStore_TransitionIdempotent(t *testing.T) {
	s := NewStore()
	s.PutCampaign(storeCampaign(1, models.CampaignStatusActive))

	c, err := s.Transition(1, nil, models.CampaignStatusActive, time.Now().UTC())
	require.NoError(t, err)

	// Repeated application of the same status does not bump the version.
	assert.Equal(t, uint64(0), c.Version)
}

func TestStore_TransitionUnknownCampaign(t *testing.T) {
	s := NewStore()
	_, err := s.Transition(42, nil, models.CampaignStatusFinished, time.Now().UTC())
	assert.ErrorIs(t, err, ErrUnknownCampaign)
}

func TestStore_CampaignsForScreen(t *testing.T) {
	s := NewStore()
	s.PutCampaign(storeCampaign(1, models.CampaignStatusActive, 10, 11))
	s.PutCampaign(storeCampaign(2, models.CampaignStatusActive, 11))
	s.PutCampaign(storeCampaign(3, models.CampaignStatusPaused, 12))

	assert.Len(t, s.CampaignsForScreen(10), 1)
	assert.Len(t, s.CampaignsForScreen(11), 2)
	assert.Len(t, s.CampaignsForScreen(12), 1)
	assert.Empty(t, s.CampaignsForScreen(13))
}

func TestStore_LookupByUUIDAndCode(t *testing.T) {
	s := NewStore()
	c := storeCampaign(1, models.CampaignStatusDraft)
	s.PutCampaign(c)

	sc := models.Screen{ID: 5, UUID: uuid.New(), Code: "SCR-0005", Name: "lobby"}
	s.PutScreen(sc)

	got, ok := s.CampaignByUUID(c.UUID)
	require.True(t, ok)
	assert.Equal(t, c.ID, got.ID)

	gotScreen, ok := s.ScreenByUUID(sc.UUID)
	require.True(t, ok)
	assert.Equal(t, sc.ID, gotScreen.ID)

	gotScreen, ok = s.ScreenByCode("SCR-0005")
	require.True(t, ok)
	assert.Equal(t, sc.ID, gotScreen.ID)

	_, ok = s.ScreenByCode("SCR-MISSING")
	assert.False(t, ok)
}

func TestStore_TouchScreenMonotonic(t *testing.T) {
	s := NewStore()
	s.PutScreen(models.Screen{ID: 1, UUID: uuid.New(), Code: "SCR-0001"})

	now := time.Now().UTC()
	s.TouchScreen(1, now)
	s.TouchScreen(1, now.Add(-time.Minute))

	sc, ok := s.Screen(1)
	require.True(t, ok)
	require.NotNil(t, sc.LastSeenAt)
	assert.Equal(t, now, *sc.LastSeenAt)
}

func TestStore_DrainDirtyLastSeen(t *testing.T) {
	s := NewStore()
	s.PutScreen(models.Screen{ID: 1, UUID: uuid.New(), Code: "SCR-0001"})
	s.PutScreen(models.Screen{ID: 2, UUID: uuid.New(), Code: "SCR-0002"})

	now := time.Now().UTC()
	s.TouchScreen(1, now)
	s.TouchScreen(2, now.Add(time.Second))
	s.TouchScreen(1, now.Add(2*time.Second))

	dirty := s.DrainDirtyLastSeen()
	require.Len(t, dirty, 2)
	assert.Equal(t, now.Add(2*time.Second), dirty[1])
	assert.Equal(t, now.Add(time.Second), dirty[2])

	// A second drain with no new heartbeats is empty.
	assert.Empty(t, s.DrainDirtyLastSeen())
}

func TestStore_MutateCampaign(t *testing.T) {
	s := NewStore()
	s.PutCampaign(storeCampaign(1, models.CampaignStatusDraft))

	c, err := s.MutateCampaign(1, func(c *models.Campaign) {
		c.ScreenIDs = pq.Int64Array{7, 8}
	})
	require.NoError(t, err)
	assert.True(t, c.HasScreen(7))
	assert.True(t, c.HasScreen(8))

	_, err = s.MutateCampaign(99, func(*models.Campaign) {})
	assert.ErrorIs(t, err, ErrUnknownCampaign)
}
