package dto

import (
	"time"
)

// CreateContentRequest represents the request to create a content item
type CreateContentRequest struct {
	OwnerID         uint    `json:"-"`
	Name            string  `json:"name" validate:"required,min=1,max=255"`
	Type            string  `json:"type" validate:"required,oneof=image video html carousel pdf audio"`
	DurationSeconds int     `json:"duration_seconds" validate:"omitempty,min=1,max=86400"`
	PublicURL       *string `json:"public_url,omitempty" validate:"omitempty,url,max=512"`
}

// CreateContentResponse represents the response to create a content item
type CreateContentResponse struct {
	Message   string `json:"message"`
	ID        uint   `json:"id"`
	UUID      string `json:"uuid"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// UpdateContentStatusRequest moves a content item between draft, active and
// archived.
type UpdateContentStatusRequest struct {
	UUID    string `json:"-"`
	OwnerID uint   `json:"-"`
	Status  string `json:"status" validate:"required,oneof=draft active archived"`
}

// UpdateContentStatusResponse represents the response to a status change
type UpdateContentStatusResponse struct {
	Message string `json:"message"`
	UUID    string `json:"uuid"`
	Status  string `json:"status"`
}

// GetContentRequest represents the request to fetch one content item
type GetContentRequest struct {
	UUID    string `json:"-"`
	OwnerID uint   `json:"-"`
}

// ContentDTO represents a content item in responses
type ContentDTO struct {
	ID              uint      `json:"id"`
	UUID            string    `json:"uuid"`
	Name            string    `json:"name"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	DurationSeconds int       `json:"duration_seconds"`
	PublicURL       *string   `json:"public_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ListContentsRequest represents the request to list contents
type ListContentsRequest struct {
	OwnerID  uint    `json:"-"`
	Page     int     `json:"page" validate:"omitempty,min=1"`
	PageSize int     `json:"page_size" validate:"omitempty,min=1,max=100"`
	Status   *string `json:"status,omitempty" validate:"omitempty,oneof=draft active archived"`
}

// ListContentsResponse represents the response to list contents
type ListContentsResponse struct {
	Message string       `json:"message"`
	Items   []ContentDTO `json:"items"`
	Total   int64        `json:"total"`
}
