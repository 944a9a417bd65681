package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	businessflow "github.com/innoad/screenfleet/business_flow"
	"github.com/innoad/screenfleet/fleet"
)

// MonitoringHandlerInterface defines the contract for monitoring handlers
type MonitoringHandlerInterface interface {
	GetCapacity(c fiber.Ctx) error
	ListConnections(c fiber.Ctx) error
	ListCampaignStates(c fiber.Ctx) error
	PollEvents(c fiber.Ctx) error
}

// MonitoringHandler exposes the live fleet state for dashboards
type MonitoringHandler struct {
	monitoringFlow businessflow.MonitoringFlow
}

// NewMonitoringHandler creates a new monitoring handler
func NewMonitoringHandler(monitoringFlow businessflow.MonitoringFlow) *MonitoringHandler {
	return &MonitoringHandler{monitoringFlow: monitoringFlow}
}

// GetCapacity returns the current connection load
// @Summary Get Capacity
// @Description Current connection count, limit and capacity tier
// @Tags Monitoring
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CapacityResponse} "Capacity snapshot"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/monitoring/capacity [get]
func (h *MonitoringHandler) GetCapacity(c fiber.Ctx) error {
	result, err := h.monitoringFlow.GetCapacity(createRequestContext(c))
	if err != nil {
		log.Println("Capacity snapshot failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to get capacity", "GET_CAPACITY_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Capacity retrieved successfully", result)
}

// ListConnections lists every live screen session
// @Summary List Connections
// @Description Every live screen session, newest first
// @Tags Monitoring
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ListConnectionsResponse} "Connections listed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/monitoring/connections [get]
func (h *MonitoringHandler) ListConnections(c fiber.Ctx) error {
	result, err := h.monitoringFlow.ListConnections(createRequestContext(c))
	if err != nil {
		log.Println("Connection listing failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list connections", "LIST_CONNECTIONS_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Connections listed successfully", result)
}

// ListCampaignStates lists the live state of every non-finished campaign
// @Summary List Campaign States
// @Description Live status, priority and version of every non-finished campaign
// @Tags Monitoring
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignStatesResponse} "Campaign states listed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/monitoring/campaigns [get]
func (h *MonitoringHandler) ListCampaignStates(c fiber.Ctx) error {
	result, err := h.monitoringFlow.ListCampaignStates(createRequestContext(c))
	if err != nil {
		log.Println("Campaign state listing failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list campaign states", "LIST_CAMPAIGN_STATES_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Campaign states listed successfully", result)
}

// PollEvents long-polls the broadcast event feed
// @Summary Poll Events
// @Description Long-poll the broadcast feed. Blocks until an event arrives or the wait elapses. Delivery is at-most-once.
// @Tags Monitoring
// @Produce json
// @Param screen_uuid query string false "Subscribe to one screen's topic instead of the fleet-wide feed"
// @Param wait query int false "Seconds to wait for the first event (max 30)"
// @Success 200 {object} dto.APIResponse{data=dto.PollEventsResponse} "Events polled"
// @Failure 400 {object} dto.APIResponse "Invalid screen UUID"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/monitoring/events [get]
func (h *MonitoringHandler) PollEvents(c fiber.Ctx) error {
	topic := fleet.TopicFleet
	if screenUUID := c.Query("screen_uuid"); screenUUID != "" {
		parsed, err := uuid.Parse(screenUUID)
		if err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid screen UUID", "INVALID_SCREEN_UUID", nil)
		}
		topic = fleet.TopicScreen(parsed)
	}

	wait := time.Duration(queryInt(c, "wait", 0)) * time.Second

	result, err := h.monitoringFlow.PollEvents(createRequestContext(c), topic, wait)
	if err != nil {
		log.Println("Event poll failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to poll events", "POLL_EVENTS_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Events polled successfully", result)
}
