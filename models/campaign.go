package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/innoad/screenfleet/utils"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// CampaignStatus represents the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusFinished  CampaignStatus = "finished"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusScheduled, CampaignStatusActive,
		CampaignStatusPaused, CampaignStatusFinished:
		return true
	default:
		return false
	}
}

// Terminal reports whether no transition leaves this status
func (s CampaignStatus) Terminal() bool {
	return s == CampaignStatusFinished
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// Campaign represents an advertising campaign targeting a set of screens.
// ContentIDs is an ordered rotation list; Priority decides conflicts between
// overlapping campaigns on the same screen (higher wins, ties broken by the
// most recent CreatedAt, then by the lowest ID). Version increments on every
// status transition and guards concurrent sweeps.
type Campaign struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	OwnerID     uint           `gorm:"not null;index:idx_campaigns_owner_id" json:"owner_id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Description *string        `gorm:"type:text" json:"description,omitempty"`
	Status      CampaignStatus `gorm:"type:campaign_status;not null;default:'draft';index:idx_campaigns_status" json:"status"`
	Priority    int            `gorm:"not null;default:0" json:"priority"`
	StartAt     time.Time      `gorm:"not null;index:idx_campaigns_start_at" json:"start_at"`
	EndAt       time.Time      `gorm:"not null" json:"end_at"`
	ContentIDs  pq.Int64Array  `gorm:"type:bigint[]" json:"content_ids"`
	ScreenIDs   pq.Int64Array  `gorm:"type:bigint[]" json:"screen_ids"`
	Version     uint64         `gorm:"not null;default:0" json:"version"`
	CreatedAt   time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// WindowValid reports whether the campaign window is well formed
func (c *Campaign) WindowValid() bool {
	return !c.StartAt.IsZero() && !c.EndAt.IsZero() && c.StartAt.Before(c.EndAt)
}

// WindowContains reports whether t falls inside [StartAt, EndAt)
func (c *Campaign) WindowContains(t time.Time) bool {
	return !t.Before(c.StartAt) && t.Before(c.EndAt)
}

// IsActiveAt reports whether the campaign is eligible for resolution at t:
// Active status and t inside the window.
func (c *Campaign) IsActiveAt(t time.Time) bool {
	return c.Status == CampaignStatusActive && c.WindowContains(t)
}

// CanTransitionTo checks if the campaign can transition to the given status.
// Cancellation (any non-terminal status -> finished) is always allowed.
func (c *Campaign) CanTransitionTo(newStatus CampaignStatus) bool {
	if c.Status.Terminal() {
		return false
	}
	if newStatus == CampaignStatusFinished {
		return true
	}
	switch c.Status {
	case CampaignStatusDraft:
		return newStatus == CampaignStatusScheduled
	case CampaignStatusScheduled:
		return newStatus == CampaignStatusActive
	case CampaignStatusActive:
		return newStatus == CampaignStatusPaused
	case CampaignStatusPaused:
		return newStatus == CampaignStatusActive
	default:
		return false
	}
}

// HasScreen reports whether the screen id is in the campaign's assignment set
func (c *Campaign) HasScreen(screenID uint) bool {
	for _, id := range c.ScreenIDs {
		if uint(id) == screenID {
			return true
		}
	}
	return false
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	OwnerID       *uint           `json:"owner_id,omitempty"`
	Status        *CampaignStatus `json:"status,omitempty"`
	Name          *string         `json:"name,omitempty"`
	StartAfter    *time.Time      `json:"start_after,omitempty"`
	StartBefore   *time.Time      `json:"start_before,omitempty"`
	EndAfter      *time.Time      `json:"end_after,omitempty"`
	EndBefore     *time.Time      `json:"end_before,omitempty"`
	MinPriority   *int            `json:"min_priority,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
}

// GetStatusDisplayName returns a human-readable status name
func (c *Campaign) GetStatusDisplayName() string {
	switch c.Status {
	case CampaignStatusDraft:
		return "Draft"
	case CampaignStatusScheduled:
		return "Scheduled"
	case CampaignStatusActive:
		return "Active"
	case CampaignStatusPaused:
		return "Paused"
	case CampaignStatusFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}
