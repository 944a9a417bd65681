package handlers

import (
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/innoad/screenfleet/app/dto"
	"github.com/innoad/screenfleet/app/middleware"
	businessflow "github.com/innoad/screenfleet/business_flow"
	"github.com/innoad/screenfleet/fleet"
)

// ScreenHandlerInterface defines the contract for screen handlers
type ScreenHandlerInterface interface {
	RegisterScreen(c fiber.Ctx) error
	Heartbeat(c fiber.Ctx) error
	DisconnectScreen(c fiber.Ctx) error
	GetScreen(c fiber.Ctx) error
	ListScreens(c fiber.Ctx) error
}

// ScreenHandler handles screen-related HTTP requests
type ScreenHandler struct {
	screenFlow businessflow.ScreenFlow
	validator  *validator.Validate
}

// NewScreenHandler creates a new screen handler
func NewScreenHandler(screenFlow businessflow.ScreenFlow) *ScreenHandler {
	return &ScreenHandler{
		screenFlow: screenFlow,
		validator:  validator.New(),
	}
}

// RegisterScreen handles the screen registration process
// @Summary Register Screen
// @Description Register a display screen, or refresh its credential when the code is already yours
// @Tags Screens
// @Accept json
// @Produce json
// @Param request body dto.RegisterScreenRequest true "Screen registration data"
// @Success 201 {object} dto.APIResponse{data=dto.RegisterScreenResponse} "Screen registered successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 409 {object} dto.APIResponse "Screen code registered to another owner"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/screens [post]
func (h *ScreenHandler) RegisterScreen(c fiber.Ctx) error {
	var req dto.RegisterScreenRequest
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

	result, err := h.screenFlow.RegisterScreen(createRequestContext(c), &req, metadata)
	if err != nil {
		if businessflow.IsScreenCodeAlreadyExists(err) {
			return errorResponse(c, fiber.StatusConflict, "Screen code is already registered", "SCREEN_CODE_TAKEN", nil)
		}

		log.Println("Screen registration failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Screen registration failed", "SCREEN_REGISTRATION_FAILED", nil)
	}

	return successResponse(c, fiber.StatusCreated, "Screen registered successfully", result)
}

// Heartbeat handles a device heartbeat
// @Summary Screen Heartbeat
// @Description Record a device heartbeat and return the screen's current content assignment
// @Tags Screens
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.HeartbeatResponse} "Heartbeat accepted"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Screen not found"
// @Failure 503 {object} dto.APIResponse "Fleet at capacity"
// @Router /api/v1/screens/heartbeat [post]
func (h *ScreenHandler) Heartbeat(c fiber.Ctx) error {
	screenID, ok := middleware.GetScreenIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Screen ID not found in context", "MISSING_SCREEN_ID", nil)
	}

	req := dto.HeartbeatRequest{ScreenID: screenID}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.screenFlow.Heartbeat(createRequestContext(c), &req, metadata)
	if err != nil {
		if businessflow.IsScreenNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Screen not found", "SCREEN_NOT_FOUND", nil)
		}
		if businessflow.IsFleetAtCapacity(err) {
			retryAfter := 30
			if capErr, ok := fleet.IsCapacityError(err); ok {
				retryAfter = int(capErr.RetryAfter.Seconds())
			}
			c.Set("Retry-After", strconv.Itoa(retryAfter))
			return errorResponse(c, fiber.StatusServiceUnavailable, "Fleet connection capacity reached", "FLEET_AT_CAPACITY", nil)
		}

		log.Println("Heartbeat failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Heartbeat processing failed", "HEARTBEAT_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Heartbeat accepted", result)
}

// DisconnectScreen handles an explicit device disconnect
// @Summary Disconnect Screen
// @Description Close the screen's live session and free its capacity slot
// @Tags Screens
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.DisconnectScreenResponse} "Screen disconnected"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Screen not found"
// @Router /api/v1/screens/disconnect [post]
func (h *ScreenHandler) DisconnectScreen(c fiber.Ctx) error {
	screenID, ok := middleware.GetScreenIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Screen ID not found in context", "MISSING_SCREEN_ID", nil)
	}

	req := dto.DisconnectScreenRequest{ScreenID: screenID}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.screenFlow.DisconnectScreen(createRequestContext(c), &req, metadata)
	if err != nil {
		if businessflow.IsScreenNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Screen not found", "SCREEN_NOT_FOUND", nil)
		}

		log.Println("Screen disconnect failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Screen disconnect failed", "SCREEN_DISCONNECT_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Screen disconnected successfully", result)
}

// GetScreen returns one screen with its derived connectivity
// @Summary Get Screen
// @Description Fetch one screen including its live connectivity
// @Tags Screens
// @Produce json
// @Param uuid path string true "Screen UUID"
// @Success 200 {object} dto.APIResponse{data=dto.ScreenDTO} "Screen retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Screen access denied"
// @Failure 404 {object} dto.APIResponse "Screen not found"
// @Router /api/v1/screens/{uuid} [get]
func (h *ScreenHandler) GetScreen(c fiber.Ctx) error {
	screenUUID := c.Params("uuid")
	if screenUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Screen UUID is required", "MISSING_SCREEN_UUID", nil)
	}

	ownerID, ok := middleware.GetOwnerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}

	req := dto.GetScreenRequest{UUID: screenUUID, OwnerID: ownerID}

	result, err := h.screenFlow.GetScreen(createRequestContext(c), &req)
	if err != nil {
		if businessflow.IsScreenNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Screen not found", "SCREEN_NOT_FOUND", nil)
		}
		if businessflow.IsScreenAccessDenied(err) {
			return errorResponse(c, fiber.StatusForbidden, "Screen access denied", "SCREEN_ACCESS_DENIED", nil)
		}

		log.Println("Get screen failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to get screen", "GET_SCREEN_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Screen retrieved successfully", result)
}

// ListScreens lists the owner's screens
// @Summary List Screens
// @Description List the owner's screens with derived connectivity and pagination
// @Tags Screens
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListScreensResponse} "Screens listed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/screens [get]
func (h *ScreenHandler) ListScreens(c fiber.Ctx) error {
	ownerID, ok := middleware.GetOwnerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}

	req := dto.ListScreensRequest{
		OwnerID:  ownerID,
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	if location := c.Query("location"); location != "" {
		req.Location = &location
	}

	result, err := h.screenFlow.ListScreens(createRequestContext(c), &req)
	if err != nil {
		log.Println("List screens failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list screens", "LIST_SCREENS_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Screens listed successfully", result)
}
