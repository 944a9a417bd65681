package businessflow

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/innoad/screenfleet/app/dto"
	"github.com/innoad/screenfleet/app/services"
	"github.com/innoad/screenfleet/fleet"
	"github.com/innoad/screenfleet/models"
	"github.com/innoad/screenfleet/repository"
	"github.com/innoad/screenfleet/utils"
)

// ScreenFlow handles the screen registration and device-facing business logic
type ScreenFlow interface {
	RegisterScreen(ctx context.Context, req *dto.RegisterScreenRequest, metadata *ClientMetadata) (*dto.RegisterScreenResponse, error)
	Heartbeat(ctx context.Context, req *dto.HeartbeatRequest, metadata *ClientMetadata) (*dto.HeartbeatResponse, error)
	DisconnectScreen(ctx context.Context, req *dto.DisconnectScreenRequest, metadata *ClientMetadata) (*dto.DisconnectScreenResponse, error)
	GetScreen(ctx context.Context, req *dto.GetScreenRequest) (*dto.ScreenDTO, error)
	ListScreens(ctx context.Context, req *dto.ListScreensRequest) (*dto.ListScreensResponse, error)
}

// ScreenFlowImpl implements the screen business flow
type ScreenFlowImpl struct {
	screenRepo   repository.ScreenRepository
	auditRepo    repository.AuditLogRepository
	store        *fleet.Store
	tracker      *fleet.ConnectivityTracker
	resolver     *fleet.Resolver
	bus          fleet.Broadcaster
	tokenService services.TokenService
	db           *gorm.DB
	now          func() time.Time
}

// NewScreenFlow creates a new screen flow instance
func NewScreenFlow(
	screenRepo repository.ScreenRepository,
	auditRepo repository.AuditLogRepository,
	store *fleet.Store,
	tracker *fleet.ConnectivityTracker,
	resolver *fleet.Resolver,
	bus fleet.Broadcaster,
	tokenService services.TokenService,
	db *gorm.DB,
) ScreenFlow {
	return &ScreenFlowImpl{
		screenRepo:   screenRepo,
		auditRepo:    auditRepo,
		store:        store,
		tracker:      tracker,
		resolver:     resolver,
		bus:          bus,
		tokenService: tokenService,
		db:           db,
		now:          utils.UTCNow,
	}
}

// RegisterScreen handles the complete screen registration process. Registration
// is idempotent per code: re-registering a code you own refreshes the screen's
// metadata and mints a fresh device token instead of failing.
func (s *ScreenFlowImpl) RegisterScreen(ctx context.Context, req *dto.RegisterScreenRequest, metadata *ClientMetadata) (*dto.RegisterScreenResponse, error) {
	if req.Code == "" {
		return nil, NewBusinessError("SCREEN_VALIDATION_FAILED", "Screen validation failed", ErrScreenCodeRequired)
	}

	if existing, ok := s.store.ScreenByCode(req.Code); ok {
		if existing.OwnerID != req.OwnerID {
			errMsg := fmt.Sprintf("Screen code %s is already registered to another owner", req.Code)
			_ = s.createAuditLog(ctx, &req.OwnerID, models.AuditActionScreenRegistrationFailed, errMsg, false, &errMsg, metadata)

			return nil, NewBusinessError("SCREEN_CODE_TAKEN", "Screen code is already registered", ErrScreenCodeAlreadyExists)
		}
		return s.refreshRegistration(ctx, existing, req, metadata)
	}

	screen := &models.Screen{
		OwnerID:     req.OwnerID,
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		CreatedAt:   s.now(),
	}
	if req.Resolution != nil {
		screen.Resolution = *req.Resolution
	}
	if req.Orientation != nil {
		screen.Orientation = *req.Orientation
	}

	// Use transaction for atomicity
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.screenRepo.Save(txCtx, screen)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Screen registration failed: %s", err.Error())
		_ = s.createAuditLog(ctx, &req.OwnerID, models.AuditActionScreenRegistrationFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("SCREEN_REGISTRATION_FAILED", "Screen registration failed", err)
	}

	token, err := s.issueCredential(ctx, screen)
	if err != nil {
		errMsg := fmt.Sprintf("Screen credential issuance failed: %s", err.Error())
		_ = s.createAuditLog(ctx, &req.OwnerID, models.AuditActionScreenRegistrationFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("SCREEN_TOKEN_FAILED", "Failed to issue screen credential", err)
	}

	s.store.PutScreen(*screen)

	msg := fmt.Sprintf("Screen registered successfully: %s (%s)", screen.Code, screen.UUID)
	_ = s.createAuditLog(ctx, &req.OwnerID, models.AuditActionScreenRegistered, msg, true, nil, metadata)

	return &dto.RegisterScreenResponse{
		Message:   "Screen registered successfully",
		ID:        screen.ID,
		UUID:      screen.UUID.String(),
		Code:      screen.Code,
		Token:     token,
		CreatedAt: screen.CreatedAt.Format(time.RFC3339),
	}, nil
}

// Heartbeat processes a device heartbeat: liveness first, then the current
// resolved assignment, so one round trip keeps the screen alive and current.
func (s *ScreenFlowImpl) Heartbeat(ctx context.Context, req *dto.HeartbeatRequest, metadata *ClientMetadata) (*dto.HeartbeatResponse, error) {
	screen, ok := s.store.Screen(req.ScreenID)
	if !ok {
		return nil, NewBusinessError("SCREEN_LOOKUP_FAILED", "Failed to lookup screen", ErrScreenNotFound)
	}

	now := s.now()
	remoteAddr := ""
	if metadata != nil {
		remoteAddr = metadata.IPAddress
	}

	opened, err := s.tracker.Touch(screen.ID, now, remoteAddr)
	if err != nil {
		if capErr, ok := fleet.IsCapacityError(err); ok {
			errMsg := fmt.Sprintf("Screen %s rejected: fleet at capacity (%d/%d)", screen.Code, capErr.Connected, capErr.Max)
			_ = s.createAuditLog(ctx, &screen.OwnerID, models.AuditActionScreenAdmissionRejected, errMsg, false, &errMsg, metadata)

			// Keep the capacity details reachable through errors.As so the
			// transport layer can surface the real retry hint.
			return nil, NewBusinessError("FLEET_AT_CAPACITY", "Fleet connection capacity reached", fmt.Errorf("%w: %w", ErrFleetAtCapacity, capErr))
		}
		return nil, NewBusinessError("HEARTBEAT_FAILED", "Heartbeat processing failed", err)
	}

	s.store.TouchScreen(screen.ID, now)

	if opened {
		s.bus.Publish(ctx, fleet.Event{
			Type:       fleet.EventScreenConnected,
			ScreenID:   screen.ID,
			ScreenUUID: screen.UUID,
			OccurredAt: now,
		})
	}

	resp := &dto.HeartbeatResponse{
		Message:      "Heartbeat accepted",
		Connected:    true,
		SessionNew:   opened,
		CapacityTier: string(s.tracker.CapacitySnapshot().Tier),
	}

	asn, err := s.resolver.CurrentAssignment(screen.ID, now)
	if err == nil {
		var content *models.Content
		if asn.ContentID != nil {
			if c, ok := s.store.Content(*asn.ContentID); ok {
				content = &c
			}
		}
		resp.Assignment = ToAssignmentDTO(asn, screen.UUID.String(), content)
	}

	return resp, nil
}

// DisconnectScreen removes the screen's live session explicitly so its
// capacity slot frees immediately instead of waiting for the sweep.
func (s *ScreenFlowImpl) DisconnectScreen(ctx context.Context, req *dto.DisconnectScreenRequest, metadata *ClientMetadata) (*dto.DisconnectScreenResponse, error) {
	screen, ok := s.store.Screen(req.ScreenID)
	if !ok {
		return nil, NewBusinessError("SCREEN_LOOKUP_FAILED", "Failed to lookup screen", ErrScreenNotFound)
	}

	if s.tracker.Disconnect(screen.ID) {
		s.bus.Publish(ctx, fleet.Event{
			Type:       fleet.EventScreenDisconnected,
			ScreenID:   screen.ID,
			ScreenUUID: screen.UUID,
			OccurredAt: s.now(),
		})
	}

	msg := fmt.Sprintf("Screen disconnected: %s", screen.Code)
	_ = s.createAuditLog(ctx, &screen.OwnerID, models.AuditActionScreenDisconnected, msg, true, nil, metadata)

	return &dto.DisconnectScreenResponse{
		Message: "Screen disconnected successfully",
	}, nil
}

// GetScreen returns one screen with its derived connectivity
func (s *ScreenFlowImpl) GetScreen(ctx context.Context, req *dto.GetScreenRequest) (*dto.ScreenDTO, error) {
	parsed, err := utils.ParseUUID(req.UUID)
	if err != nil {
		return nil, NewBusinessError("SCREEN_LOOKUP_FAILED", "Failed to lookup screen", ErrScreenNotFound)
	}

	screen, ok := s.store.ScreenByUUID(parsed)
	if !ok {
		return nil, NewBusinessError("SCREEN_LOOKUP_FAILED", "Failed to lookup screen", ErrScreenNotFound)
	}
	if screen.OwnerID != req.OwnerID {
		return nil, NewBusinessError("SCREEN_ACCESS_DENIED", "Screen access denied", ErrScreenAccessDenied)
	}

	out := ToScreenDTO(screen, s.tracker.Connected(screen.ID, s.now()))
	return &out, nil
}

// ListScreens lists the owner's screens with pagination
func (s *ScreenFlowImpl) ListScreens(ctx context.Context, req *dto.ListScreensRequest) (*dto.ListScreensResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := models.ScreenFilter{OwnerID: &req.OwnerID, Location: req.Location}

	screens, err := s.screenRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("SCREEN_LIST_FAILED", "Failed to list screens", err)
	}

	total, err := s.screenRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("SCREEN_COUNT_FAILED", "Failed to count screens", err)
	}

	now := s.now()
	items := make([]dto.ScreenDTO, 0, len(screens))
	for _, sc := range screens {
		// Prefer the projection for last-seen freshness; heartbeats land there
		// before the persistence sweep flushes them.
		screen := *sc
		if live, ok := s.store.Screen(sc.ID); ok {
			screen = live
		}
		items = append(items, ToScreenDTO(screen, s.tracker.Connected(screen.ID, now)))
	}

	return &dto.ListScreensResponse{
		Message: "Screens listed successfully",
		Items:   items,
		Total:   total,
	}, nil
}

// refreshRegistration re-registers an existing screen: metadata is updated and
// a fresh device token replaces the previous credential.
func (s *ScreenFlowImpl) refreshRegistration(ctx context.Context, screen models.Screen, req *dto.RegisterScreenRequest, metadata *ClientMetadata) (*dto.RegisterScreenResponse, error) {
	screen.Name = req.Name
	screen.Description = req.Description
	screen.Location = req.Location
	if req.Resolution != nil {
		screen.Resolution = *req.Resolution
	}
	if req.Orientation != nil {
		screen.Orientation = *req.Orientation
	}

	token, err := s.issueCredential(ctx, &screen)
	if err != nil {
		errMsg := fmt.Sprintf("Screen credential issuance failed: %s", err.Error())
		_ = s.createAuditLog(ctx, &req.OwnerID, models.AuditActionScreenRegistrationFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("SCREEN_TOKEN_FAILED", "Failed to issue screen credential", err)
	}

	s.store.PutScreen(screen)

	msg := fmt.Sprintf("Screen re-registered: %s (%s)", screen.Code, screen.UUID)
	_ = s.createAuditLog(ctx, &req.OwnerID, models.AuditActionScreenRegistered, msg, true, nil, metadata)

	return &dto.RegisterScreenResponse{
		Message:   "Screen registered successfully",
		ID:        screen.ID,
		UUID:      screen.UUID.String(),
		Code:      screen.Code,
		Token:     token,
		CreatedAt: screen.CreatedAt.Format(time.RFC3339),
	}, nil
}

// issueCredential mints the screen's device JWT and persists its bcrypt hash
// so a stolen database dump never yields a usable token.
func (s *ScreenFlowImpl) issueCredential(ctx context.Context, screen *models.Screen) (string, error) {
	token, err := s.tokenService.GenerateScreenToken(screen.ID)
	if err != nil {
		return "", err
	}

	// bcrypt caps input at 72 bytes; digest the JWT down first.
	sum := sha256.Sum256([]byte(token))
	hashed, err := bcrypt.GenerateFromPassword(sum[:], bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	hashedStr := string(hashed)
	screen.CredentialHash = &hashedStr

	if err := s.screenRepo.Update(ctx, *screen); err != nil {
		return "", err
	}

	return token, nil
}

func (s *ScreenFlowImpl) createAuditLog(ctx context.Context, ownerID *uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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
