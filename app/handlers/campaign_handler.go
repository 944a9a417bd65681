package handlers

import (
	"context"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/innoad/screenfleet/app/dto"
	"github.com/innoad/screenfleet/app/middleware"
	businessflow "github.com/innoad/screenfleet/business_flow"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	ScheduleCampaign(c fiber.Ctx) error
	PauseCampaign(c fiber.Ctx) error
	ResumeCampaign(c fiber.Ctx) error
	CancelCampaign(c fiber.Ctx) error
	AssignScreens(c fiber.Ctx) error
	SetContents(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	validator    *validator.Validate
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow) *CampaignHandler {
	return &CampaignHandler{
		campaignFlow: campaignFlow,
		validator:    validator.New(),
	}
}

// CreateCampaign handles the campaign creation process
// @Summary Create Campaign
// @Description Create a new campaign in draft status
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body dto.CreateCampaignRequest true "Campaign creation data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateCampaignResponse} "Campaign created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrorMessages(err))
	}

	ownerID, ok := middleware.GetOwnerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}
	req.OwnerID = ownerID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.CreateCampaign(createRequestContext(c), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignWindowInvalid(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Campaign window is invalid", "CAMPAIGN_WINDOW_INVALID", nil)
		}
		if businessflow.IsScreenNotFound(err) || businessflow.IsContentNotFound(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Campaign references unknown screens or contents", "CAMPAIGN_REFERENCE_INVALID", nil)
		}

		log.Println("Campaign creation failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED", nil)
	}

	return successResponse(c, fiber.StatusCreated, "Campaign created successfully", result)
}

// ScheduleCampaign moves a draft campaign into the scheduled status
// @Summary Schedule Campaign
// @Description Transition a draft campaign to scheduled
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.TransitionCampaignResponse} "Campaign scheduled"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Transition not allowed from the current status"
// @Router /api/v1/campaigns/{uuid}/schedule [post]
func (h *CampaignHandler) ScheduleCampaign(c fiber.Ctx) error {
	return h.transition(c, h.campaignFlow.ScheduleCampaign, "Campaign scheduled successfully")
}

// PauseCampaign suspends an active campaign
// @Summary Pause Campaign
// @Description Transition an active campaign to paused
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.TransitionCampaignResponse} "Campaign paused"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Transition not allowed from the current status"
// @Router /api/v1/campaigns/{uuid}/pause [post]
func (h *CampaignHandler) PauseCampaign(c fiber.Ctx) error {
	return h.transition(c, h.campaignFlow.PauseCampaign, "Campaign paused successfully")
}

// ResumeCampaign reactivates a paused campaign
// @Summary Resume Campaign
// @Description Transition a paused campaign back to active, or finish it when its window closed
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.TransitionCampaignResponse} "Campaign resumed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Transition not allowed from the current status"
// @Router /api/v1/campaigns/{uuid}/resume [post]
func (h *CampaignHandler) ResumeCampaign(c fiber.Ctx) error {
	return h.transition(c, h.campaignFlow.ResumeCampaign, "Campaign resumed successfully")
}

// CancelCampaign finishes a campaign from any non-terminal status
// @Summary Cancel Campaign
// @Description Finish a campaign early from any non-terminal status
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.TransitionCampaignResponse} "Campaign cancelled"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Transition not allowed from the current status"
// @Router /api/v1/campaigns/{uuid}/cancel [post]
func (h *CampaignHandler) CancelCampaign(c fiber.Ctx) error {
	return h.transition(c, h.campaignFlow.CancelCampaign, "Campaign cancelled successfully")
}

// transition is the shared path for every lifecycle endpoint
func (h *CampaignHandler) transition(
	c fiber.Ctx,
	fn func(ctx context.Context, req *dto.TransitionCampaignRequest, metadata *businessflow.ClientMetadata) (*dto.TransitionCampaignResponse, error),
	successMsg string,
) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	ownerID, ok := middleware.GetOwnerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}

	req := dto.TransitionCampaignRequest{UUID: campaignUUID, OwnerID: ownerID}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := fn(createRequestContext(c), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return errorResponse(c, fiber.StatusForbidden, "Campaign access denied", "CAMPAIGN_ACCESS_DENIED", nil)
		}
		if businessflow.IsInvalidStateTransition(err) {
			return errorResponse(c, fiber.StatusConflict, "Transition not allowed from the current status", "INVALID_STATE_TRANSITION", nil)
		}

		log.Println("Campaign transition failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Campaign transition failed", "CAMPAIGN_TRANSITION_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, successMsg, result)
}

// AssignScreens replaces the campaign's screen assignment set
// @Summary Assign Screens
// @Description Replace the set of screens the campaign targets
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.AssignScreensRequest true "Screen assignment data"
// @Success 200 {object} dto.APIResponse{data=dto.AssignScreensResponse} "Screens assigned"
// @Failure 400 {object} dto.APIResponse "Validation error or unknown screens"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid}/screens [put]
func (h *CampaignHandler) AssignScreens(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.AssignScreensRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrorMessages(err))
	}

	ownerID, ok := middleware.GetOwnerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}
	req.UUID = campaignUUID
	req.OwnerID = ownerID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.AssignScreens(createRequestContext(c), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return errorResponse(c, fiber.StatusForbidden, "Campaign access denied", "CAMPAIGN_ACCESS_DENIED", nil)
		}
		if businessflow.IsScreenNotFound(err) || businessflow.IsScreenAccessDenied(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Assignment references unknown screens", "SCREEN_REFERENCE_INVALID", nil)
		}

		log.Println("Screen assignment failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Screen assignment failed", "SCREEN_ASSIGNMENT_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Campaign screens assigned successfully", result)
}

// SetContents replaces the campaign's ordered content rotation list
// @Summary Set Contents
// @Description Replace the campaign's ordered content rotation list
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.SetContentsRequest true "Content list data"
// @Success 200 {object} dto.APIResponse{data=dto.SetContentsResponse} "Contents updated"
// @Failure 400 {object} dto.APIResponse "Validation error or unknown contents"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid}/contents [put]
func (h *CampaignHandler) SetContents(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.SetContentsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrorMessages(err))
	}

	ownerID, ok := middleware.GetOwnerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}
	req.UUID = campaignUUID
	req.OwnerID = ownerID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.SetContents(createRequestContext(c), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return errorResponse(c, fiber.StatusForbidden, "Campaign access denied", "CAMPAIGN_ACCESS_DENIED", nil)
		}
		if businessflow.IsContentNotFound(err) || businessflow.IsContentAccessDenied(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Rotation list references unknown contents", "CONTENT_REFERENCE_INVALID", nil)
		}

		log.Println("Content list update failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Content list update failed", "CONTENT_LIST_UPDATE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Campaign contents updated successfully", result)
}

// GetCampaign returns one campaign
// @Summary Get Campaign
// @Description Fetch one campaign from the live projection
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO} "Campaign retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid} [get]
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	ownerID, ok := middleware.GetOwnerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}

	req := dto.GetCampaignRequest{UUID: campaignUUID, OwnerID: ownerID}

	result, err := h.campaignFlow.GetCampaign(createRequestContext(c), &req)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return errorResponse(c, fiber.StatusForbidden, "Campaign access denied", "CAMPAIGN_ACCESS_DENIED", nil)
		}

		log.Println("Get campaign failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to get campaign", "GET_CAMPAIGN_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Campaign retrieved successfully", result)
}

// ListCampaigns lists the owner's campaigns
// @Summary List Campaigns
// @Description List the owner's campaigns with pagination and an optional status filter
// @Tags Campaigns
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param status query string false "Filter by status"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResponse} "Campaigns listed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	ownerID, ok := middleware.GetOwnerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}

	req := dto.ListCampaignsRequest{
		OwnerID:  ownerID,
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	if status := c.Query("status"); status != "" {
		req.Status = &status
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrorMessages(err))
	}

	result, err := h.campaignFlow.ListCampaigns(createRequestContext(c), &req)
	if err != nil {
		log.Println("List campaigns failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list campaigns", "LIST_CAMPAIGNS_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Campaigns listed successfully", result)
}
