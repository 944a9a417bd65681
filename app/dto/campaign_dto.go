package dto

import (
	"time"
)

// CreateCampaignRequest represents the request to create a new campaign
type CreateCampaignRequest struct {
	OwnerID     uint      `json:"-"`
	Name        string    `json:"name" validate:"required,min=1,max=255"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=1000"`
	Priority    int       `json:"priority" validate:"omitempty,min=0,max=1000"`
	StartAt     time.Time `json:"start_at" validate:"required"`
	EndAt       time.Time `json:"end_at" validate:"required"`
	ContentIDs  []uint    `json:"content_ids,omitempty" validate:"omitempty,max=100"`
	ScreenIDs   []uint    `json:"screen_ids,omitempty" validate:"omitempty,max=1000"`
}

// CreateCampaignResponse represents the response to create a new campaign
type CreateCampaignResponse struct {
	Message   string `json:"message"`
	ID        uint   `json:"id"`
	UUID      string `json:"uuid"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// TransitionCampaignRequest represents a lifecycle transition request
// (schedule, pause, resume, cancel).
type TransitionCampaignRequest struct {
	UUID    string `json:"-"`
	OwnerID uint   `json:"-"`
}

// TransitionCampaignResponse represents the response to a lifecycle transition
type TransitionCampaignResponse struct {
	Message string `json:"message"`
	UUID    string `json:"uuid"`
	Status  string `json:"status"`
	Version uint64 `json:"version"`
}

// AssignScreensRequest replaces the campaign's screen assignment set
type AssignScreensRequest struct {
	UUID      string `json:"-"`
	OwnerID   uint   `json:"-"`
	ScreenIDs []uint `json:"screen_ids" validate:"required,max=1000"`
}

// AssignScreensResponse represents the response to a screen assignment update
type AssignScreensResponse struct {
	Message   string `json:"message"`
	UUID      string `json:"uuid"`
	ScreenIDs []uint `json:"screen_ids"`
}

// SetContentsRequest replaces the campaign's ordered content rotation list
type SetContentsRequest struct {
	UUID       string `json:"-"`
	OwnerID    uint   `json:"-"`
	ContentIDs []uint `json:"content_ids" validate:"required,max=100"`
}

// SetContentsResponse represents the response to a content list update
type SetContentsResponse struct {
	Message    string `json:"message"`
	UUID       string `json:"uuid"`
	ContentIDs []uint `json:"content_ids"`
}

// GetCampaignRequest represents the request to fetch one campaign
type GetCampaignRequest struct {
	UUID    string `json:"-"`
	OwnerID uint   `json:"-"`
}

// CampaignDTO represents a campaign in responses
type CampaignDTO struct {
	ID          uint       `json:"id"`
	UUID        string     `json:"uuid"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    int        `json:"priority"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       time.Time  `json:"end_at"`
	ContentIDs  []uint     `json:"content_ids"`
	ScreenIDs   []uint     `json:"screen_ids"`
	Version     uint64     `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ListCampaignsRequest represents the request to list campaigns
type ListCampaignsRequest struct {
	OwnerID  uint    `json:"-"`
	Page     int     `json:"page" validate:"omitempty,min=1"`
	PageSize int     `json:"page_size" validate:"omitempty,min=1,max=100"`
	Status   *string `json:"status,omitempty" validate:"omitempty,oneof=draft scheduled active paused finished"`
}

// ListCampaignsResponse represents the response to list campaigns
type ListCampaignsResponse struct {
	Message string        `json:"message"`
	Items   []CampaignDTO `json:"items"`
	Total   int64         `json:"total"`
}
