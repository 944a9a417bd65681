package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/innoad/screenfleet/utils"
	"gorm.io/gorm"
)

// ContentType represents the media type of a content item
type ContentType string

const (
	ContentTypeImage    ContentType = "image"
	ContentTypeVideo    ContentType = "video"
	ContentTypeHTML     ContentType = "html"
	ContentTypeCarousel ContentType = "carousel"
	ContentTypePDF      ContentType = "pdf"
	ContentTypeAudio    ContentType = "audio"
)

// Valid checks if the content type is valid
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeImage, ContentTypeVideo, ContentTypeHTML,
		ContentTypeCarousel, ContentTypePDF, ContentTypeAudio:
		return true
	default:
		return false
	}
}

// ContentStatus represents the publication state of a content item
type ContentStatus string

const (
	ContentStatusDraft    ContentStatus = "draft"
	ContentStatusActive   ContentStatus = "active"
	ContentStatusArchived ContentStatus = "archived"
)

// Valid checks if the status is valid
func (s ContentStatus) Valid() bool {
	switch s {
	case ContentStatusDraft, ContentStatusActive, ContentStatusArchived:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for ContentStatus
func (s *ContentStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = ContentStatus(v)
	case []byte:
		*s = ContentStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ContentStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ContentStatus
func (s ContentStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid ContentStatus: %s", s)
	}
	return string(s), nil
}

// Content represents a displayable content item. Only Active content is
// eligible for assignment resolution.
type Content struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	UUID            uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:uk_contents_uuid" json:"uuid"`
	OwnerID         uint          `gorm:"not null;index:idx_contents_owner_id" json:"owner_id"`
	Name            string        `gorm:"not null;size:255" json:"name"`
	Type            ContentType   `gorm:"not null;size:20;index:idx_contents_type" json:"type"`
	Status          ContentStatus `gorm:"type:content_status;not null;default:'draft'" json:"status"`
	DurationSeconds int           `gorm:"not null;default:10" json:"duration_seconds"`
	PublicURL       *string       `gorm:"size:512" json:"public_url,omitempty"`
	CreatedAt       time.Time     `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt       *time.Time    `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Content) TableName() string {
	return "contents"
}

// BeforeCreate is called before creating a new record
func (c *Content) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = ContentStatusDraft
	}
	if c.DurationSeconds <= 0 {
		c.DurationSeconds = utils.DefaultContentDurationSeconds
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Content) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// Eligible reports whether the content may be resolved onto a screen
func (c *Content) Eligible() bool {
	return c.Status == ContentStatusActive
}

// ContentFilter represents filter criteria for contents
type ContentFilter struct {
	ID      *uint          `json:"id,omitempty"`
	UUID    *uuid.UUID     `json:"uuid,omitempty"`
	OwnerID *uint          `json:"owner_id,omitempty"`
	Type    *ContentType   `json:"type,omitempty"`
	Status  *ContentStatus `json:"status,omitempty"`
	Name    *string        `json:"name,omitempty"`
}
