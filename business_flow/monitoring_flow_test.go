package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innoad/screenfleet/app/dto"
	"github.com/innoad/screenfleet/fleet"
	"github.com/innoad/screenfleet/models"
)

func TestMonitoringFlow_GetCapacity(t *testing.T) {
	f := newFlowFixture(t, 10)
	f.addScreen(1, 1, "screen-a")

	_, err := f.screenFlow.Heartbeat(context.Background(), &dto.HeartbeatRequest{ScreenID: 1}, nil)
	require.NoError(t, err)

	resp, err := f.monitoringFlow.GetCapacity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Connected)
	assert.Equal(t, int64(10), resp.Max)
	assert.Equal(t, string(fleet.TierLow), resp.Tier)
}

func TestMonitoringFlow_ListConnections(t *testing.T) {
	f := newFlowFixture(t, 10)
	screen := f.addScreen(1, 1, "screen-a")

	_, err := f.screenFlow.Heartbeat(context.Background(), &dto.HeartbeatRequest{ScreenID: 1}, &ClientMetadata{IPAddress: "10.0.0.7"})
	require.NoError(t, err)

	resp, err := f.monitoringFlow.ListConnections(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, resp.Total)

	conn := resp.Items[0]
	assert.Equal(t, screen.ID, conn.ScreenID)
	assert.Equal(t, screen.UUID.String(), conn.ScreenUUID)
	assert.Equal(t, screen.Name, conn.ScreenName)
	assert.Equal(t, "10.0.0.7", conn.RemoteAddr)
	assert.Equal(t, f.base, conn.ConnectedAt)
}

func TestMonitoringFlow_ListCampaignStatesSkipsFinished(t *testing.T) {
	f := newFlowFixture(t, 10)
	f.addCampaign(1, 1, models.CampaignStatusActive, nil, nil)
	f.addCampaign(2, 1, models.CampaignStatusFinished, nil, nil)
	f.addCampaign(3, 1, models.CampaignStatusDraft, nil, nil)

	resp, err := f.monitoringFlow.ListCampaignStates(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, resp.Total)
	assert.Equal(t, uint(1), resp.Items[0].ID)
	assert.Equal(t, uint(3), resp.Items[1].ID)
}

func TestMonitoringFlow_PollEventsReceivesBroadcast(t *testing.T) {
	f := newFlowFixture(t, 10)
	screen := f.addScreen(1, 1, "screen-a")

	done := make(chan *dto.PollEventsResponse, 1)
	go func() {
		resp, _ := f.monitoringFlow.PollEvents(context.Background(), fleet.TopicFleet, 5*time.Second)
		done <- resp
	}()

	// Give the poller time to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	_, err := f.screenFlow.Heartbeat(context.Background(), &dto.HeartbeatRequest{ScreenID: 1}, nil)
	require.NoError(t, err)

	select {
	case resp := <-done:
		require.Len(t, resp.Items, 1)
		assert.Equal(t, string(fleet.EventScreenConnected), resp.Items[0].Type)
		assert.Equal(t, screen.UUID.String(), resp.Items[0].ScreenUUID)
	case <-time.After(5 * time.Second):
		t.Fatal("poll did not return")
	}
}

func TestMonitoringFlow_PollEventsTimesOutEmpty(t *testing.T) {
	f := newFlowFixture(t, 10)

	resp, err := f.monitoringFlow.PollEvents(context.Background(), fleet.TopicFleet, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
}

func TestMonitoringFlow_PollEventsHonorsContext(t *testing.T) {
	f := newFlowFixture(t, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	resp, err := f.monitoringFlow.PollEvents(ctx, fleet.TopicFleet, 5*time.Second)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Less(t, time.Since(start), time.Second)
}
