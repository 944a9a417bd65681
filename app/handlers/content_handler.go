package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/innoad/screenfleet/app/dto"
	"github.com/innoad/screenfleet/app/middleware"
	businessflow "github.com/innoad/screenfleet/business_flow"
)

// ContentHandlerInterface defines the contract for content handlers
type ContentHandlerInterface interface {
	CreateContent(c fiber.Ctx) error
	UpdateContentStatus(c fiber.Ctx) error
	GetContent(c fiber.Ctx) error
	ListContents(c fiber.Ctx) error
}

// ContentHandler handles content-related HTTP requests
type ContentHandler struct {
	contentFlow businessflow.ContentFlow
	validator   *validator.Validate
}

// NewContentHandler creates a new content handler
func NewContentHandler(contentFlow businessflow.ContentFlow) *ContentHandler {
	return &ContentHandler{
		contentFlow: contentFlow,
		validator:   validator.New(),
	}
}

// CreateContent handles content creation
// @Summary Create Content
// @Description Register a new content item in draft status
// @Tags Contents
// @Accept json
// @Produce json
// @Param request body dto.CreateContentRequest true "Content creation data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateContentResponse} "Content created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/contents [post]
func (h *ContentHandler) CreateContent(c fiber.Ctx) error {
	var req dto.CreateContentRequest
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

	result, err := h.contentFlow.CreateContent(createRequestContext(c), &req, metadata)
	if err != nil {
		if businessflow.IsContentTypeInvalid(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Content type is not supported", "CONTENT_TYPE_INVALID", nil)
		}

		log.Println("Content creation failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Content creation failed", "CONTENT_CREATION_FAILED", nil)
	}

	return successResponse(c, fiber.StatusCreated, "Content created successfully", result)
}

// UpdateContentStatus moves a content item between draft, active and archived
// @Summary Update Content Status
// @Description Change a content item's status and refresh every screen showing it
// @Tags Contents
// @Accept json
// @Produce json
// @Param uuid path string true "Content UUID"
// @Param request body dto.UpdateContentStatusRequest true "Status change"
// @Success 200 {object} dto.APIResponse{data=dto.UpdateContentStatusResponse} "Status updated"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Content access denied"
// @Failure 404 {object} dto.APIResponse "Content not found"
// @Router /api/v1/contents/{uuid}/status [put]
func (h *ContentHandler) UpdateContentStatus(c fiber.Ctx) error {
	contentUUID := c.Params("uuid")
	if contentUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Content UUID is required", "MISSING_CONTENT_UUID", nil)
	}

	var req dto.UpdateContentStatusRequest
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
	req.UUID = contentUUID
	req.OwnerID = ownerID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.contentFlow.UpdateContentStatus(createRequestContext(c), &req, metadata)
	if err != nil {
		if businessflow.IsContentNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Content not found", "CONTENT_NOT_FOUND", nil)
		}
		if businessflow.IsContentAccessDenied(err) {
			return errorResponse(c, fiber.StatusForbidden, "Content access denied", "CONTENT_ACCESS_DENIED", nil)
		}

		log.Println("Content status update failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Content status update failed", "CONTENT_STATUS_UPDATE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Content status updated successfully", result)
}

// GetContent returns one content item
// @Summary Get Content
// @Description Fetch one content item
// @Tags Contents
// @Produce json
// @Param uuid path string true "Content UUID"
// @Success 200 {object} dto.APIResponse{data=dto.ContentDTO} "Content retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Content not found"
// @Router /api/v1/contents/{uuid} [get]
func (h *ContentHandler) GetContent(c fiber.Ctx) error {
	contentUUID := c.Params("uuid")
	if contentUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Content UUID is required", "MISSING_CONTENT_UUID", nil)
	}

	ownerID, ok := middleware.GetOwnerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}

	req := dto.GetContentRequest{UUID: contentUUID, OwnerID: ownerID}

	result, err := h.contentFlow.GetContent(createRequestContext(c), &req)
	if err != nil {
		if businessflow.IsContentNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Content not found", "CONTENT_NOT_FOUND", nil)
		}
		if businessflow.IsContentAccessDenied(err) {
			return errorResponse(c, fiber.StatusForbidden, "Content access denied", "CONTENT_ACCESS_DENIED", nil)
		}

		log.Println("Get content failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to get content", "GET_CONTENT_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Content retrieved successfully", result)
}

// ListContents lists the owner's content items
// @Summary List Contents
// @Description List the owner's content items with pagination and an optional status filter
// @Tags Contents
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param status query string false "Filter by status"
// @Success 200 {object} dto.APIResponse{data=dto.ListContentsResponse} "Contents listed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/contents [get]
func (h *ContentHandler) ListContents(c fiber.Ctx) error {
	ownerID, ok := middleware.GetOwnerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}

	req := dto.ListContentsRequest{
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

	result, err := h.contentFlow.ListContents(createRequestContext(c), &req)
	if err != nil {
		log.Println("List contents failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list contents", "LIST_CONTENTS_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Contents listed successfully", result)
}
