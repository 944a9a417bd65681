package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/innoad/screenfleet/utils"
	"gorm.io/gorm"
)

// Screen represents a remote display device. Connectivity is derived, never
// stored: a screen is connected iff a heartbeat was received within the
// configured heartbeat window (see ConnectedAt).
type Screen struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UUID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_screens_uuid" json:"uuid"`
	Code           string     `gorm:"not null;size:100;uniqueIndex:uk_screens_code" json:"code"`
	Name           string     `gorm:"not null;size:255" json:"name"`
	Description    *string    `gorm:"type:text" json:"description,omitempty"`
	Location       string     `gorm:"not null;size:100" json:"location"`
	Resolution     string     `gorm:"size:50" json:"resolution"`
	Orientation    string     `gorm:"size:20" json:"orientation"`
	OwnerID        uint       `gorm:"not null;index:idx_screens_owner_id" json:"owner_id"`
	CredentialHash *string    `gorm:"size:255" json:"-"`
	LastSeenAt     *time.Time `gorm:"index:idx_screens_last_seen_at" json:"last_seen_at,omitempty"`
	// CurrentContentID caches the last resolved assignment; nil means idle.
	CurrentContentID *uint      `json:"current_content_id,omitempty"`
	CreatedAt        time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Screen) TableName() string {
	return "screens"
}

// BeforeCreate is called before creating a new record
func (s *Screen) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	if s.Resolution == "" {
		s.Resolution = "1920x1080"
	}
	if s.Orientation == "" {
		s.Orientation = "HORIZONTAL"
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (s *Screen) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	s.UpdatedAt = &now
	return nil
}

// ConnectedAt reports whether the screen counts as connected at now, given the
// heartbeat window: connected on [lastSeen, lastSeen+window), disconnected from
// lastSeen+window onward.
func (s *Screen) ConnectedAt(now time.Time, window time.Duration) bool {
	if s.LastSeenAt == nil {
		return false
	}
	return now.Sub(*s.LastSeenAt) < window
}

// ScreenFilter represents filter criteria for screens
type ScreenFilter struct {
	ID           *uint      `json:"id,omitempty"`
	UUID         *uuid.UUID `json:"uuid,omitempty"`
	Code         *string    `json:"code,omitempty"`
	OwnerID      *uint      `json:"owner_id,omitempty"`
	Name         *string    `json:"name,omitempty"`
	Location     *string    `json:"location,omitempty"`
	SeenAfter    *time.Time `json:"seen_after,omitempty"`
	SeenBefore   *time.Time `json:"seen_before,omitempty"`
	CreatedAfter *time.Time `json:"created_after,omitempty"`
}
