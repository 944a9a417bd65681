package dto

import (
	"time"
)

// RegisterScreenRequest represents the request to register a screen.
// Registration is idempotent per code: repeating it for an existing code owned
// by the same owner refreshes the device credential instead of failing.
type RegisterScreenRequest struct {
	OwnerID     uint    `json:"-"`
	Code        string  `json:"code" validate:"required,min=3,max=100"`
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Location    string  `json:"location" validate:"required,min=1,max=100"`
	Resolution  *string `json:"resolution,omitempty" validate:"omitempty,max=50"`
	Orientation *string `json:"orientation,omitempty" validate:"omitempty,oneof=HORIZONTAL VERTICAL"`
}

// RegisterScreenResponse represents the response to a screen registration.
// Token is the device credential; it is returned only here and must be stored
// by the device.
type RegisterScreenResponse struct {
	Message   string `json:"message"`
	ID        uint   `json:"id"`
	UUID      string `json:"uuid"`
	Code      string `json:"code"`
	Token     string `json:"token"`
	CreatedAt string `json:"created_at"`
}

// HeartbeatRequest represents a device heartbeat. ScreenID comes from the
// device token, never from the request body.
type HeartbeatRequest struct {
	ScreenID uint `json:"-"`
}

// HeartbeatResponse carries liveness acknowledgement plus the device's current
// assignment so a single round trip keeps a screen both alive and current.
type HeartbeatResponse struct {
	Message      string         `json:"message"`
	Connected    bool           `json:"connected"`
	SessionNew   bool           `json:"session_new"`
	CapacityTier string         `json:"capacity_tier"`
	Assignment   *AssignmentDTO `json:"assignment,omitempty"`
}

// AssignmentDTO represents a resolved content assignment for a screen
type AssignmentDTO struct {
	ScreenUUID string      `json:"screen_uuid"`
	CampaignID *uint       `json:"campaign_id,omitempty"`
	ContentID  *uint       `json:"content_id,omitempty"`
	Content    *ContentDTO `json:"content,omitempty"`
	ResolvedAt time.Time   `json:"resolved_at"`
	ValidUntil time.Time   `json:"valid_until"`
}

// DisconnectScreenRequest represents an explicit device disconnect
type DisconnectScreenRequest struct {
	ScreenID uint `json:"-"`
}

// DisconnectScreenResponse represents the response to a disconnect
type DisconnectScreenResponse struct {
	Message string `json:"message"`
}

// GetScreenRequest represents the request to fetch one screen
type GetScreenRequest struct {
	UUID    string `json:"-"`
	OwnerID uint   `json:"-"`
}

// ScreenDTO represents a screen in responses
type ScreenDTO struct {
	ID               uint       `json:"id"`
	UUID             string     `json:"uuid"`
	Code             string     `json:"code"`
	Name             string     `json:"name"`
	Description      *string    `json:"description,omitempty"`
	Location         string     `json:"location"`
	Resolution       string     `json:"resolution"`
	Orientation      string     `json:"orientation"`
	Connected        bool       `json:"connected"`
	LastSeenAt       *time.Time `json:"last_seen_at,omitempty"`
	CurrentContentID *uint      `json:"current_content_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ListScreensRequest represents the request to list screens
type ListScreensRequest struct {
	OwnerID  uint    `json:"-"`
	Page     int     `json:"page" validate:"omitempty,min=1"`
	PageSize int     `json:"page_size" validate:"omitempty,min=1,max=100"`
	Location *string `json:"location,omitempty"`
}

// ListScreensResponse represents the response to list screens
type ListScreensResponse struct {
	Message string      `json:"message"`
	Items   []ScreenDTO `json:"items"`
	Total   int64       `json:"total"`
}
