// Package fleet implements the live coordination core: the in-memory
// projection store, connectivity tracking, admission control, content
// assignment resolution, and the broadcast bus that fans state changes out to
// subscribers.
package fleet

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/innoad/screenfleet/models"
)

// EventType identifies a state-change event published on the broadcast bus
type EventType string

const (
	EventScreenConnected      EventType = "screen_connected"
	EventScreenDisconnected   EventType = "screen_disconnected"
	EventContentAssigned      EventType = "content_assigned"
	EventCampaignStateChanged EventType = "campaign_state_changed"
)

// TopicFleet receives every event and serves fleet-wide dashboard consumers
const TopicFleet = "fleet"

// TopicScreen returns the screen-scoped topic for screen-targeted events
func TopicScreen(screenUUID uuid.UUID) string {
	return fmt.Sprintf("screen:%s", screenUUID)
}

// Event is a state-change notification. Delivery is at-most-once and
// non-durable: subscribers that connect late must pull current resolved state
// instead of relying on replay.
type Event struct {
	Type       EventType `json:"type"`
	ScreenID   uint      `json:"screen_id,omitempty"`
	ScreenUUID uuid.UUID `json:"screen_uuid,omitempty"`
	// ContentID is the newly resolved assignment for content_assigned events;
	// nil means the screen fell back to its idle state.
	ContentID  *uint                 `json:"content_id,omitempty"`
	CampaignID uint                  `json:"campaign_id,omitempty"`
	OldStatus  models.CampaignStatus `json:"old_status,omitempty"`
	NewStatus  models.CampaignStatus `json:"new_status,omitempty"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// Topics returns the topics this event is delivered on: the fleet topic
// always, plus the screen topic for screen-targeted events.
func (e Event) Topics() []string {
	if e.ScreenUUID != uuid.Nil {
		return []string{TopicFleet, TopicScreen(e.ScreenUUID)}
	}
	return []string{TopicFleet}
}
