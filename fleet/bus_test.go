package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innoad/screenfleet/models"
)

func TestBus_PublishFansOutToTopics(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	defer bus.Close()

	screenUUID := uuid.New()
	fleetCh, cancelFleet := bus.Subscribe(TopicFleet)
	defer cancelFleet()
	screenCh, cancelScreen := bus.Subscribe(TopicScreen(screenUUID))
	defer cancelScreen()
	otherCh, cancelOther := bus.Subscribe(TopicScreen(uuid.New()))
	defer cancelOther()

	contentID := uint(7)
	bus.Publish(context.Background(), Event{
		Type:       EventContentAssigned,
		ScreenID:   1,
		ScreenUUID: screenUUID,
		ContentID:  &contentID,
		OccurredAt: time.Now().UTC(),
	})

	ev := <-fleetCh
	assert.Equal(t, EventContentAssigned, ev.Type)

	ev = <-screenCh
	require.NotNil(t, ev.ContentID)
	assert.Equal(t, contentID, *ev.ContentID)

	// The unrelated screen topic receives nothing.
	assert.Empty(t, otherCh)
}

func TestBus_CampaignEventsOnFleetTopicOnly(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	defer bus.Close()

	fleetCh, cancel := bus.Subscribe(TopicFleet)
	defer cancel()

	bus.Publish(context.Background(), Event{
		Type:       EventCampaignStateChanged,
		CampaignID: 3,
		OldStatus:  models.CampaignStatusScheduled,
		NewStatus:  models.CampaignStatusActive,
		OccurredAt: time.Now().UTC(),
	})

	ev := <-fleetCh
	assert.Equal(t, EventCampaignStateChanged, ev.Type)
	assert.Equal(t, models.CampaignStatusActive, ev.NewStatus)
}

func TestBus_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	defer bus.Close()

	ch, cancel := bus.Subscribe(TopicFleet)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer+10; i++ {
			bus.Publish(context.Background(), Event{Type: EventScreenConnected, OccurredAt: time.Now().UTC()})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// Only a full buffer's worth was delivered, the rest was dropped.
	assert.Equal(t, subscriberBuffer, len(ch))
}

func TestBus_CancelStopsDelivery(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	defer bus.Close()

	ch, cancel := bus.Subscribe(TopicFleet)
	cancel()

	// The channel is closed, publishes after cancel go nowhere.
	bus.Publish(context.Background(), Event{Type: EventScreenConnected, OccurredAt: time.Now().UTC()})
	_, open := <-ch
	assert.False(t, open)
}

func TestBus_CloseIsIdempotent(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	ch, _ := bus.Subscribe(TopicFleet)
	bus.Close()
	bus.Close()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after close is a no-op.
	bus.Publish(context.Background(), Event{Type: EventScreenConnected, OccurredAt: time.Now().UTC()})
}
