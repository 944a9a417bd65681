// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/innoad/screenfleet/app/dto"
	"github.com/innoad/screenfleet/fleet"
	"github.com/innoad/screenfleet/models"
	"github.com/innoad/screenfleet/repository"
	"github.com/innoad/screenfleet/utils"
)

// CampaignFlow handles the campaign business logic
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error)
	ScheduleCampaign(ctx context.Context, req *dto.TransitionCampaignRequest, metadata *ClientMetadata) (*dto.TransitionCampaignResponse, error)
	PauseCampaign(ctx context.Context, req *dto.TransitionCampaignRequest, metadata *ClientMetadata) (*dto.TransitionCampaignResponse, error)
	ResumeCampaign(ctx context.Context, req *dto.TransitionCampaignRequest, metadata *ClientMetadata) (*dto.TransitionCampaignResponse, error)
	CancelCampaign(ctx context.Context, req *dto.TransitionCampaignRequest, metadata *ClientMetadata) (*dto.TransitionCampaignResponse, error)
	AssignScreens(ctx context.Context, req *dto.AssignScreensRequest, metadata *ClientMetadata) (*dto.AssignScreensResponse, error)
	SetContents(ctx context.Context, req *dto.SetContentsRequest, metadata *ClientMetadata) (*dto.SetContentsResponse, error)
	GetCampaign(ctx context.Context, req *dto.GetCampaignRequest) (*dto.CampaignDTO, error)
	ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo repository.CampaignRepository
	screenRepo   repository.ScreenRepository
	contentRepo  repository.ContentRepository
	auditRepo    repository.AuditLogRepository
	store        *fleet.Store
	resolver     *fleet.Resolver
	bus          fleet.Broadcaster
	db           *gorm.DB
	now          func() time.Time
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	screenRepo repository.ScreenRepository,
	contentRepo repository.ContentRepository,
	auditRepo repository.AuditLogRepository,
	store *fleet.Store,
	resolver *fleet.Resolver,
	bus fleet.Broadcaster,
	db *gorm.DB,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo: campaignRepo,
		screenRepo:   screenRepo,
		contentRepo:  contentRepo,
		auditRepo:    auditRepo,
		store:        store,
		resolver:     resolver,
		bus:          bus,
		db:           db,
		now:          utils.UTCNow,
	}
}

// CreateCampaign handles the complete campaign creation process
func (s *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error) {
	if err := s.validateCreateCampaignRequest(req); err != nil {
		errMsg := fmt.Sprintf("Campaign validation failed: %s", err.Error())
		_ = s.createAuditLog(ctx, &req.OwnerID, models.AuditActionCampaignCreationFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", err)
	}

	campaign := &models.Campaign{
		OwnerID:     req.OwnerID,
		Name:        req.Name,
		Description: req.Description,
		Status:      models.CampaignStatusDraft,
		Priority:    req.Priority,
		StartAt:     req.StartAt.UTC(),
		EndAt:       req.EndAt.UTC(),
		ContentIDs:  uintsToInt64Array(req.ContentIDs),
		ScreenIDs:   uintsToInt64Array(req.ScreenIDs),
		CreatedAt:   s.now(),
	}

	// Use transaction for atomicity
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.campaignRepo.Save(txCtx, campaign)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Campaign creation failed: %s", err.Error())
		_ = s.createAuditLog(ctx, &req.OwnerID, models.AuditActionCampaignCreationFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "Campaign creation failed", err)
	}

	s.store.PutCampaign(*campaign)

	msg := fmt.Sprintf("Campaign created successfully: %s", campaign.UUID.String())
	_ = s.createAuditLog(ctx, &req.OwnerID, models.AuditActionCampaignCreated, msg, true, nil, metadata)

	return &dto.CreateCampaignResponse{
		Message:   "Campaign created successfully",
		ID:        campaign.ID,
		UUID:      campaign.UUID.String(),
		Status:    string(campaign.Status),
		CreatedAt: campaign.CreatedAt.Format(time.RFC3339),
	}, nil
}

// ScheduleCampaign moves a draft campaign into the scheduled status. Scheduling
// requires the campaign window to open in the future; a campaign whose start
// has already passed cannot sit in scheduled waiting for a sweep.
func (s *CampaignFlowImpl) ScheduleCampaign(ctx context.Context, req *dto.TransitionCampaignRequest, metadata *ClientMetadata) (*dto.TransitionCampaignResponse, error) {
	campaign, err := s.getOwnedCampaign(req.UUID, req.OwnerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	if !s.now().Before(campaign.StartAt) {
		errMsg := fmt.Sprintf("Campaign %s schedule rejected: start %s is not in the future", campaign.UUID, campaign.StartAt.Format(time.RFC3339))
		_ = s.createAuditLog(ctx, &req.OwnerID, models.AuditActionCampaignTransitionFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_TRANSITION_REJECTED", "Campaign start time must be in the future to schedule", ErrInvalidStateTransition)
	}

	return s.transition(ctx, req, models.CampaignStatusScheduled, models.AuditActionCampaignScheduled, metadata)
}

// PauseCampaign suspends an active campaign
func (s *CampaignFlowImpl) PauseCampaign(ctx context.Context, req *dto.TransitionCampaignRequest, metadata *ClientMetadata) (*dto.TransitionCampaignResponse, error) {
	return s.transition(ctx, req, models.CampaignStatusPaused, models.AuditActionCampaignPaused, metadata)
}

// ResumeCampaign reactivates a paused campaign. When the campaign window has
// already closed, the campaign finishes instead of re-entering active.
func (s *CampaignFlowImpl) ResumeCampaign(ctx context.Context, req *dto.TransitionCampaignRequest, metadata *ClientMetadata) (*dto.TransitionCampaignResponse, error) {
	campaign, err := s.getOwnedCampaign(req.UUID, req.OwnerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	target := models.CampaignStatusActive
	if !s.now().Before(campaign.EndAt) {
		target = models.CampaignStatusFinished
	}

	return s.transition(ctx, req, target, models.AuditActionCampaignResumed, metadata)
}

// CancelCampaign finishes a campaign from any non-terminal status
func (s *CampaignFlowImpl) CancelCampaign(ctx context.Context, req *dto.TransitionCampaignRequest, metadata *ClientMetadata) (*dto.TransitionCampaignResponse, error) {
	return s.transition(ctx, req, models.CampaignStatusFinished, models.AuditActionCampaignCancelled, metadata)
}

// AssignScreens replaces the campaign's screen assignment set
func (s *CampaignFlowImpl) AssignScreens(ctx context.Context, req *dto.AssignScreensRequest, metadata *ClientMetadata) (*dto.AssignScreensResponse, error) {
	campaign, err := s.getOwnedCampaign(req.UUID, req.OwnerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	if err := s.checkScreensOwned(req.OwnerID, req.ScreenIDs); err != nil {
		return nil, NewBusinessError("SCREEN_LOOKUP_FAILED", "Failed to lookup assigned screens", err)
	}

	previous := int64ArrayToUints(campaign.ScreenIDs)

	updated, err := s.store.MutateCampaign(campaign.ID, func(c *models.Campaign) {
		c.ScreenIDs = uintsToInt64Array(req.ScreenIDs)
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_UPDATE_FAILED", "Failed to update campaign", err)
	}

	if err := s.campaignRepo.Update(ctx, updated); err != nil {
		return nil, NewBusinessError("CAMPAIGN_PERSIST_FAILED", "Failed to persist campaign", err)
	}

	// Every screen that entered or left the set may change what it displays.
	s.refreshAssignments(ctx, unionScreenIDs(previous, req.ScreenIDs))

	msg := fmt.Sprintf("Campaign %s screens assigned: %d screens", campaign.UUID, len(req.ScreenIDs))
	_ = s.createAuditLog(ctx, &req.OwnerID, models.AuditActionCampaignScreensAssigned, msg, true, nil, metadata)

	return &dto.AssignScreensResponse{
		Message:   "Campaign screens assigned successfully",
		UUID:      campaign.UUID.String(),
		ScreenIDs: req.ScreenIDs,
	}, nil
}

// SetContents replaces the campaign's ordered content rotation list
func (s *CampaignFlowImpl) SetContents(ctx context.Context, req *dto.SetContentsRequest, metadata *ClientMetadata) (*dto.SetContentsResponse, error) {
	campaign, err := s.getOwnedCampaign(req.UUID, req.OwnerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	if err := s.checkContentsOwned(req.OwnerID, req.ContentIDs); err != nil {
		return nil, NewBusinessError("CONTENT_LOOKUP_FAILED", "Failed to lookup campaign contents", err)
	}

	updated, err := s.store.MutateCampaign(campaign.ID, func(c *models.Campaign) {
		c.ContentIDs = uintsToInt64Array(req.ContentIDs)
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_UPDATE_FAILED", "Failed to update campaign", err)
	}

	if err := s.campaignRepo.Update(ctx, updated); err != nil {
		return nil, NewBusinessError("CAMPAIGN_PERSIST_FAILED", "Failed to persist campaign", err)
	}

	s.refreshAssignments(ctx, int64ArrayToUints(updated.ScreenIDs))

	msg := fmt.Sprintf("Campaign %s contents updated: %d items", campaign.UUID, len(req.ContentIDs))
	_ = s.createAuditLog(ctx, &req.OwnerID, models.AuditActionCampaignContentsUpdated, msg, true, nil, metadata)

	return &dto.SetContentsResponse{
		Message:    "Campaign contents updated successfully",
		UUID:       campaign.UUID.String(),
		ContentIDs: req.ContentIDs,
	}, nil
}

// GetCampaign returns one campaign from the live projection
func (s *CampaignFlowImpl) GetCampaign(ctx context.Context, req *dto.GetCampaignRequest) (*dto.CampaignDTO, error) {
	campaign, err := s.getOwnedCampaign(req.UUID, req.OwnerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	out := ToCampaignDTO(campaign)
	return &out, nil
}

// ListCampaigns lists campaigns for the owner with pagination
func (s *CampaignFlowImpl) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := models.CampaignFilter{OwnerID: &req.OwnerID}
	if req.Status != nil {
		status := models.CampaignStatus(*req.Status)
		filter.Status = &status
	}

	campaigns, err := s.campaignRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}

	total, err := s.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_COUNT_FAILED", "Failed to count campaigns", err)
	}

	items := make([]dto.CampaignDTO, 0, len(campaigns))
	for _, c := range campaigns {
		// Prefer the projection: it carries transitions not yet read back
		// from the database.
		if live, ok := s.store.Campaign(c.ID); ok {
			items = append(items, ToCampaignDTO(live))
			continue
		}
		items = append(items, ToCampaignDTO(*c))
	}

	return &dto.ListCampaignsResponse{
		Message: "Campaigns listed successfully",
		Items:   items,
		Total:   total,
	}, nil
}

// transition applies a lifecycle transition end to end: projection first,
// then persistence guarded by the version the projection observed, then the
// broadcast and assignment refresh.
func (s *CampaignFlowImpl) transition(ctx context.Context, req *dto.TransitionCampaignRequest, to models.CampaignStatus, auditAction string, metadata *ClientMetadata) (*dto.TransitionCampaignResponse, error) {
	campaign, err := s.getOwnedCampaign(req.UUID, req.OwnerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	oldStatus := campaign.Status

	updated, err := s.store.Transition(campaign.ID, nil, to, s.now())
	if err != nil {
		errMsg := fmt.Sprintf("Campaign %s transition %s -> %s rejected: %s", campaign.UUID, oldStatus, to, err.Error())
		_ = s.createAuditLog(ctx, &req.OwnerID, models.AuditActionCampaignTransitionFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_TRANSITION_REJECTED", "Campaign state transition rejected", ErrInvalidStateTransition)
	}

	if updated.Status != oldStatus {
		if err := s.campaignRepo.UpdateStatusVersioned(ctx, campaign.ID, updated.Version-1, updated.Status); err != nil {
			errMsg := fmt.Sprintf("Campaign %s transition persistence failed: %s", campaign.UUID, err.Error())
			_ = s.createAuditLog(ctx, &req.OwnerID, models.AuditActionCampaignTransitionFailed, errMsg, false, &errMsg, metadata)

			return nil, NewBusinessError("CAMPAIGN_PERSIST_FAILED", "Failed to persist campaign transition", err)
		}

		s.bus.Publish(ctx, fleet.Event{
			Type:       fleet.EventCampaignStateChanged,
			CampaignID: campaign.ID,
			OldStatus:  oldStatus,
			NewStatus:  updated.Status,
			OccurredAt: s.now(),
		})

		s.refreshAssignments(ctx, int64ArrayToUints(updated.ScreenIDs))
	}

	msg := fmt.Sprintf("Campaign %s transitioned %s -> %s", campaign.UUID, oldStatus, updated.Status)
	_ = s.createAuditLog(ctx, &req.OwnerID, auditAction, msg, true, nil, metadata)

	return &dto.TransitionCampaignResponse{
		Message: "Campaign transitioned successfully",
		UUID:    campaign.UUID.String(),
		Status:  string(updated.Status),
		Version: updated.Version,
	}, nil
}

// refreshAssignments recomputes the resolved assignment for the given screens
// and broadcasts a content_assigned event for every screen whose answer
// changed. Persistence of the cached assignment is best effort; the
// projection is authoritative.
func (s *CampaignFlowImpl) refreshAssignments(ctx context.Context, screenIDs []uint) {
	now := s.now()
	for _, id := range screenIDs {
		asn, changed, err := s.resolver.Recompute(id, now)
		if err != nil || !changed {
			continue
		}

		screen, ok := s.store.Screen(id)
		if !ok {
			continue
		}

		_ = s.screenRepo.UpdateCurrentContent(ctx, id, asn.ContentID)

		s.bus.Publish(ctx, fleet.Event{
			Type:       fleet.EventContentAssigned,
			ScreenID:   id,
			ScreenUUID: screen.UUID,
			ContentID:  asn.ContentID,
			OccurredAt: now,
		})
	}
}

// getOwnedCampaign loads a campaign from the projection and enforces ownership
func (s *CampaignFlowImpl) getOwnedCampaign(uuidStr string, ownerID uint) (models.Campaign, error) {
	parsed, err := utils.ParseUUID(uuidStr)
	if err != nil {
		return models.Campaign{}, ErrCampaignNotFound
	}

	campaign, ok := s.store.CampaignByUUID(parsed)
	if !ok {
		return models.Campaign{}, ErrCampaignNotFound
	}
	if campaign.OwnerID != ownerID {
		return models.Campaign{}, ErrCampaignAccessDenied
	}

	return campaign, nil
}

func (s *CampaignFlowImpl) checkScreensOwned(ownerID uint, screenIDs []uint) error {
	for _, id := range screenIDs {
		screen, ok := s.store.Screen(id)
		if !ok {
			return fmt.Errorf("screen %d: %w", id, ErrScreenNotFound)
		}
		if screen.OwnerID != ownerID {
			return fmt.Errorf("screen %d: %w", id, ErrScreenAccessDenied)
		}
	}
	return nil
}

func (s *CampaignFlowImpl) checkContentsOwned(ownerID uint, contentIDs []uint) error {
	for _, id := range contentIDs {
		content, ok := s.store.Content(id)
		if !ok {
			return fmt.Errorf("content %d: %w", id, ErrContentNotFound)
		}
		if content.OwnerID != ownerID {
			return fmt.Errorf("content %d: %w", id, ErrContentAccessDenied)
		}
	}
	return nil
}

func (s *CampaignFlowImpl) validateCreateCampaignRequest(req *dto.CreateCampaignRequest) error {
	if req.Name == "" {
		return ErrCampaignNameRequired
	}
	if !req.StartAt.Before(req.EndAt) {
		return ErrCampaignWindowInvalid
	}
	if !s.now().Before(req.EndAt) {
		return ErrCampaignWindowInPast
	}
	if err := s.checkContentsOwned(req.OwnerID, req.ContentIDs); err != nil {
		return err
	}
	return s.checkScreensOwned(req.OwnerID, req.ScreenIDs)
}

func (s *CampaignFlowImpl) createAuditLog(ctx context.Context, ownerID *uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		OwnerID:      ownerID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	// Extract request ID from context if available
	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	if err := s.auditRepo.Save(ctx, audit); err != nil {
		return err
	}

	return nil
}

func unionScreenIDs(a, b []uint) []uint {
	seen := make(map[uint]struct{}, len(a)+len(b))
	out := make([]uint, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
