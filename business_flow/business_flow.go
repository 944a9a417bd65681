// Package businessflow contains the business logic for the application.
package businessflow

import (
	"github.com/lib/pq"

	"github.com/innoad/screenfleet/app/dto"
	"github.com/innoad/screenfleet/fleet"
	"github.com/innoad/screenfleet/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	DeviceInfo map[string]string `json:"device_info,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		DeviceInfo: make(map[string]string),
		Additional: make(map[string]string),
	}
}

// AddDeviceInfo adds device information to the metadata
func (cm *ClientMetadata) AddDeviceInfo(key, value string) {
	if cm.DeviceInfo == nil {
		cm.DeviceInfo = make(map[string]string)
	}
	cm.DeviceInfo[key] = value
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToCampaignDTO converts a campaign model to its response representation
func ToCampaignDTO(c models.Campaign) dto.CampaignDTO {
	return dto.CampaignDTO{
		ID:          c.ID,
		UUID:        c.UUID.String(),
		Name:        c.Name,
		Description: c.Description,
		Status:      string(c.Status),
		Priority:    c.Priority,
		StartAt:     c.StartAt,
		EndAt:       c.EndAt,
		ContentIDs:  int64ArrayToUints(c.ContentIDs),
		ScreenIDs:   int64ArrayToUints(c.ScreenIDs),
		Version:     c.Version,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// ToScreenDTO converts a screen model to its response representation.
// connected is derived from the live session index, never from the model.
func ToScreenDTO(s models.Screen, connected bool) dto.ScreenDTO {
	return dto.ScreenDTO{
		ID:               s.ID,
		UUID:             s.UUID.String(),
		Code:             s.Code,
		Name:             s.Name,
		Description:      s.Description,
		Location:         s.Location,
		Resolution:       s.Resolution,
		Orientation:      s.Orientation,
		Connected:        connected,
		LastSeenAt:       s.LastSeenAt,
		CurrentContentID: s.CurrentContentID,
		CreatedAt:        s.CreatedAt,
	}
}

// ToContentDTO converts a content model to its response representation
func ToContentDTO(c models.Content) dto.ContentDTO {
	return dto.ContentDTO{
		ID:              c.ID,
		UUID:            c.UUID.String(),
		Name:            c.Name,
		Type:            string(c.Type),
		Status:          string(c.Status),
		DurationSeconds: c.DurationSeconds,
		PublicURL:       c.PublicURL,
		CreatedAt:       c.CreatedAt,
	}
}

// ToAssignmentDTO converts a resolved assignment to its response representation
func ToAssignmentDTO(asn fleet.Assignment, screenUUID string, content *models.Content) *dto.AssignmentDTO {
	out := &dto.AssignmentDTO{
		ScreenUUID: screenUUID,
		CampaignID: asn.CampaignID,
		ContentID:  asn.ContentID,
		ResolvedAt: asn.ResolvedAt,
		ValidUntil: asn.ValidUntil,
	}
	if content != nil {
		c := ToContentDTO(*content)
		out.Content = &c
	}
	return out
}

func int64ArrayToUints(arr pq.Int64Array) []uint {
	out := make([]uint, 0, len(arr))
	for _, v := range arr {
		out = append(out, uint(v))
	}
	return out
}

func uintsToInt64Array(ids []uint) pq.Int64Array {
	out := make(pq.Int64Array, 0, len(ids))
	for _, v := range ids {
		out = append(out, int64(v))
	}
	return out
}
