package dto

import (
	"time"
)

// CapacityResponse summarizes fleet-wide connection load
type CapacityResponse struct {
	Message   string `json:"message"`
	Connected int64  `json:"connected"`
	Max       int64  `json:"max"`
	Tier      string `json:"tier"`
}

// ConnectionDTO represents one live screen session
type ConnectionDTO struct {
	ScreenID      uint      `json:"screen_id"`
	ScreenUUID    string    `json:"screen_uuid"`
	ScreenName    string    `json:"screen_name"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	RemoteAddr    string    `json:"remote_addr,omitempty"`
}

// ListConnectionsResponse represents the live connection listing
type ListConnectionsResponse struct {
	Message string          `json:"message"`
	Items   []ConnectionDTO `json:"items"`
	Total   int             `json:"total"`
}

// CampaignStateDTO represents one campaign's live state for dashboards
type CampaignStateDTO struct {
	ID       uint   `json:"id"`
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Priority int    `json:"priority"`
	Version  uint64 `json:"version"`
}

// ListCampaignStatesResponse represents the live campaign state listing
type ListCampaignStatesResponse struct {
	Message string             `json:"message"`
	Items   []CampaignStateDTO `json:"items"`
	Total   int                `json:"total"`
}

// FleetEventDTO represents one broadcast event delivered to a poller
type FleetEventDTO struct {
	Type       string    `json:"type"`
	ScreenID   uint      `json:"screen_id,omitempty"`
	ScreenUUID string    `json:"screen_uuid,omitempty"`
	ContentID  *uint     `json:"content_id,omitempty"`
	CampaignID uint      `json:"campaign_id,omitempty"`
	OldStatus  string    `json:"old_status,omitempty"`
	NewStatus  string    `json:"new_status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PollEventsResponse represents a long-poll batch of broadcast events
type PollEventsResponse struct {
	Message string          `json:"message"`
	Items   []FleetEventDTO `json:"items"`
}
