// Package models contains domain entities for the screen fleet coordination system
package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	OwnerID      *uint           `gorm:"index:idx_audit_owner_id" json:"owner_id,omitempty"`
	Action       string          `gorm:"type:audit_action_enum;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb;index:idx_audit_metadata,type:gin" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionScreenRegistered         = "screen_registered"
	AuditActionScreenRegistrationFailed = "screen_registration_failed"
	AuditActionScreenAdmissionRejected  = "screen_admission_rejected"
	AuditActionScreenDisconnected       = "screen_disconnected"
	AuditActionCampaignCreated          = "campaign_created"
	AuditActionCampaignCreationFailed   = "campaign_creation_failed"
	AuditActionCampaignScheduled        = "campaign_scheduled"
	AuditActionCampaignPaused           = "campaign_paused"
	AuditActionCampaignResumed          = "campaign_resumed"
	AuditActionCampaignCancelled        = "campaign_cancelled"
	AuditActionCampaignTransitionFailed = "campaign_transition_failed"
	AuditActionCampaignScreensAssigned  = "campaign_screens_assigned"
	AuditActionCampaignContentsUpdated  = "campaign_contents_updated"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	OwnerID       *uint
	Action        *string
	Success       *bool
	IPAddress     *string
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
