package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCampaignStatus(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		for _, s := range []CampaignStatus{
			CampaignStatusDraft, CampaignStatusScheduled, CampaignStatusActive,
			CampaignStatusPaused, CampaignStatusFinished,
		} {
			assert.True(t, s.Valid(), s.String())
		}
		assert.False(t, CampaignStatus("running").Valid())
		assert.False(t, CampaignStatus("").Valid())
	})

	t.Run("Terminal", func(t *testing.T) {
		assert.True(t, CampaignStatusFinished.Terminal())
		assert.False(t, CampaignStatusDraft.Terminal())
		assert.False(t, CampaignStatusPaused.Terminal())
	})

	t.Run("ScanAndValue", func(t *testing.T) {
		var s CampaignStatus
		assert.NoError(t, s.Scan("active"))
		assert.Equal(t, CampaignStatusActive, s)

		assert.NoError(t, s.Scan([]byte("paused")))
		assert.Equal(t, CampaignStatusPaused, s)

		assert.Error(t, s.Scan(42))

		v, err := CampaignStatusScheduled.Value()
		assert.NoError(t, err)
		assert.Equal(t, "scheduled", v)

		_, err = CampaignStatus("bogus").Value()
		assert.Error(t, err)
	})
}

func TestCampaignTransitions(t *testing.T) {
	cases := []struct {
		from    CampaignStatus
		to      CampaignStatus
		allowed bool
	}{
		{CampaignStatusDraft, CampaignStatusScheduled, true},
		{CampaignStatusDraft, CampaignStatusActive, false},
		{CampaignStatusScheduled, CampaignStatusActive, true},
		{CampaignStatusScheduled, CampaignStatusPaused, false},
		{CampaignStatusActive, CampaignStatusPaused, true},
		{CampaignStatusActive, CampaignStatusScheduled, false},
		{CampaignStatusPaused, CampaignStatusActive, true},
		{CampaignStatusPaused, CampaignStatusScheduled, false},
		// cancellation is allowed from every non-terminal status
		{CampaignStatusDraft, CampaignStatusFinished, true},
		{CampaignStatusScheduled, CampaignStatusFinished, true},
		{CampaignStatusActive, CampaignStatusFinished, true},
		{CampaignStatusPaused, CampaignStatusFinished, true},
		// nothing leaves finished
		{CampaignStatusFinished, CampaignStatusActive, false},
		{CampaignStatusFinished, CampaignStatusFinished, false},
	}

	for _, tc := range cases {
		c := &Campaign{Status: tc.from}
		assert.Equal(t, tc.allowed, c.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestCampaignWindow(t *testing.T) {
	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(6 * time.Hour)
	c := &Campaign{Status: CampaignStatusActive, StartAt: start, EndAt: end}

	t.Run("WindowValid", func(t *testing.T) {
		assert.True(t, c.WindowValid())
		assert.False(t, (&Campaign{StartAt: end, EndAt: start}).WindowValid())
		assert.False(t, (&Campaign{StartAt: start, EndAt: start}).WindowValid())
		assert.False(t, (&Campaign{EndAt: end}).WindowValid())
	})

	t.Run("WindowContains", func(t *testing.T) {
		assert.True(t, c.WindowContains(start), "start is inclusive")
		assert.True(t, c.WindowContains(start.Add(time.Hour)))
		assert.False(t, c.WindowContains(end), "end is exclusive")
		assert.False(t, c.WindowContains(start.Add(-time.Second)))
	})

	t.Run("IsActiveAt", func(t *testing.T) {
		assert.True(t, c.IsActiveAt(start))
		assert.False(t, c.IsActiveAt(end))

		paused := &Campaign{Status: CampaignStatusPaused, StartAt: start, EndAt: end}
		assert.False(t, paused.IsActiveAt(start.Add(time.Hour)))
	})
}

func TestCampaignHasScreen(t *testing.T) {
	c := &Campaign{ScreenIDs: []int64{3, 7, 11}}
	assert.True(t, c.HasScreen(7))
	assert.False(t, c.HasScreen(8))
	assert.False(t, (&Campaign{}).HasScreen(1))
}

func TestScreenConnectedAt(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	window := 5 * time.Minute

	t.Run("NeverSeen", func(t *testing.T) {
		s := &Screen{}
		assert.False(t, s.ConnectedAt(now, window))
	})

	t.Run("WithinWindow", func(t *testing.T) {
		seen := now.Add(-window + time.Second)
		s := &Screen{LastSeenAt: &seen}
		assert.True(t, s.ConnectedAt(now, window))
	})

	t.Run("ExactlyAtBoundary", func(t *testing.T) {
		seen := now.Add(-window)
		s := &Screen{LastSeenAt: &seen}
		assert.False(t, s.ConnectedAt(now, window), "boundary counts as disconnected")
	})

	t.Run("StaleHeartbeat", func(t *testing.T) {
		seen := now.Add(-time.Hour)
		s := &Screen{LastSeenAt: &seen}
		assert.False(t, s.ConnectedAt(now, window))
	})
}

func TestContentTypeAndStatus(t *testing.T) {
	t.Run("TypeValid", func(t *testing.T) {
		for _, ct := range []ContentType{
			ContentTypeImage, ContentTypeVideo, ContentTypeHTML,
			ContentTypeCarousel, ContentTypePDF, ContentTypeAudio,
		} {
			assert.True(t, ct.Valid(), string(ct))
		}
		assert.False(t, ContentType("gif").Valid())
	})

	t.Run("StatusValid", func(t *testing.T) {
		assert.True(t, ContentStatusDraft.Valid())
		assert.True(t, ContentStatusActive.Valid())
		assert.True(t, ContentStatusArchived.Valid())
		assert.False(t, ContentStatus("published").Valid())
	})

	t.Run("Eligible", func(t *testing.T) {
		assert.True(t, (&Content{Status: ContentStatusActive}).Eligible())
		assert.False(t, (&Content{Status: ContentStatusDraft}).Eligible())
		assert.False(t, (&Content{Status: ContentStatusArchived}).Eligible())
	})

	t.Run("StatusScanAndValue", func(t *testing.T) {
		var s ContentStatus
		assert.NoError(t, s.Scan("archived"))
		assert.Equal(t, ContentStatusArchived, s)
		assert.Error(t, s.Scan(3.14))

		v, err := ContentStatusActive.Value()
		assert.NoError(t, err)
		assert.Equal(t, "active", v)

		_, err = ContentStatus("nope").Value()
		assert.Error(t, err)
	})
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "campaigns", Campaign{}.TableName())
	assert.Equal(t, "screens", Screen{}.TableName())
	assert.Equal(t, "contents", Content{}.TableName())
	assert.Equal(t, "audit_log", AuditLog{}.TableName())
}
