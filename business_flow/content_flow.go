package businessflow

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/innoad/screenfleet/app/dto"
	"github.com/innoad/screenfleet/fleet"
	"github.com/innoad/screenfleet/models"
	"github.com/innoad/screenfleet/repository"
	"github.com/innoad/screenfleet/utils"
)

// ContentFlow handles the content catalog business logic
type ContentFlow interface {
	CreateContent(ctx context.Context, req *dto.CreateContentRequest, metadata *ClientMetadata) (*dto.CreateContentResponse, error)
	UpdateContentStatus(ctx context.Context, req *dto.UpdateContentStatusRequest, metadata *ClientMetadata) (*dto.UpdateContentStatusResponse, error)
	GetContent(ctx context.Context, req *dto.GetContentRequest) (*dto.ContentDTO, error)
	ListContents(ctx context.Context, req *dto.ListContentsRequest) (*dto.ListContentsResponse, error)
}

// ContentFlowImpl implements the content business flow
type ContentFlowImpl struct {
	contentRepo repository.ContentRepository
	screenRepo  repository.ScreenRepository
	auditRepo   repository.AuditLogRepository
	store       *fleet.Store
	resolver    *fleet.Resolver
	bus         fleet.Broadcaster
	db          *gorm.DB
	now         func() time.Time
}

// NewContentFlow creates a new content flow instance
func NewContentFlow(
	contentRepo repository.ContentRepository,
	screenRepo repository.ScreenRepository,
	auditRepo repository.AuditLogRepository,
	store *fleet.Store,
	resolver *fleet.Resolver,
	bus fleet.Broadcaster,
	db *gorm.DB,
) ContentFlow {
	return &ContentFlowImpl{
		contentRepo: contentRepo,
		screenRepo:  screenRepo,
		auditRepo:   auditRepo,
		store:       store,
		resolver:    resolver,
		bus:         bus,
		db:          db,
		now:         utils.UTCNow,
	}
}

// CreateContent handles the content creation process. New content starts in
// draft and is invisible to assignment resolution until activated.
func (s *ContentFlowImpl) CreateContent(ctx context.Context, req *dto.CreateContentRequest, metadata *ClientMetadata) (*dto.CreateContentResponse, error) {
	contentType := models.ContentType(req.Type)
	if !contentType.Valid() {
		return nil, NewBusinessError("CONTENT_VALIDATION_FAILED", "Content validation failed", ErrContentTypeInvalid)
	}

	content := &models.Content{
		OwnerID:         req.OwnerID,
		Name:            req.Name,
		Type:            contentType,
		Status:          models.ContentStatusDraft,
		DurationSeconds: req.DurationSeconds,
		PublicURL:       req.PublicURL,
		CreatedAt:       s.now(),
	}
	if content.DurationSeconds <= 0 {
		content.DurationSeconds = utils.DefaultContentDurationSeconds
	}

	// Use transaction for atomicity
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.contentRepo.Save(txCtx, content)
	})
	if err != nil {
		return nil, NewBusinessError("CONTENT_CREATION_FAILED", "Content creation failed", err)
	}

	s.store.PutContent(*content)

	return &dto.CreateContentResponse{
		Message:   "Content created successfully",
		ID:        content.ID,
		UUID:      content.UUID.String(),
		Status:    string(content.Status),
		CreatedAt: content.CreatedAt.Format(time.RFC3339),
	}, nil
}

// UpdateContentStatus moves a content item between draft, active and archived.
// Eligibility changes ripple into assignment resolution, so every screen of
// every campaign referencing the item is recomputed.
func (s *ContentFlowImpl) UpdateContentStatus(ctx context.Context, req *dto.UpdateContentStatusRequest, metadata *ClientMetadata) (*dto.UpdateContentStatusResponse, error) {
	content, err := s.getOwnedContent(req.UUID, req.OwnerID)
	if err != nil {
		return nil, NewBusinessError("CONTENT_LOOKUP_FAILED", "Failed to lookup content", err)
	}

	status := models.ContentStatus(req.Status)
	if !status.Valid() {
		return nil, NewBusinessError("CONTENT_VALIDATION_FAILED", "Content validation failed", ErrContentTypeInvalid)
	}

	if content.Status == status {
		return &dto.UpdateContentStatusResponse{
			Message: "Content status unchanged",
			UUID:    content.UUID.String(),
			Status:  string(status),
		}, nil
	}

	if err := s.contentRepo.UpdateStatus(ctx, content.ID, status); err != nil {
		return nil, NewBusinessError("CONTENT_PERSIST_FAILED", "Failed to persist content status", err)
	}

	content.Status = status
	updatedAt := s.now()
	content.UpdatedAt = &updatedAt
	s.store.PutContent(content)

	s.refreshReferencingScreens(ctx, content.ID)

	return &dto.UpdateContentStatusResponse{
		Message: "Content status updated successfully",
		UUID:    content.UUID.String(),
		Status:  string(status),
	}, nil
}

// GetContent returns one content item
func (s *ContentFlowImpl) GetContent(ctx context.Context, req *dto.GetContentRequest) (*dto.ContentDTO, error) {
	content, err := s.getOwnedContent(req.UUID, req.OwnerID)
	if err != nil {
		return nil, NewBusinessError("CONTENT_LOOKUP_FAILED", "Failed to lookup content", err)
	}

	out := ToContentDTO(content)
	return &out, nil
}

// ListContents lists the owner's contents with pagination
func (s *ContentFlowImpl) ListContents(ctx context.Context, req *dto.ListContentsRequest) (*dto.ListContentsResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := models.ContentFilter{OwnerID: &req.OwnerID}
	if req.Status != nil {
		status := models.ContentStatus(*req.Status)
		filter.Status = &status
	}

	contents, err := s.contentRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("CONTENT_LIST_FAILED", "Failed to list contents", err)
	}

	total, err := s.contentRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CONTENT_COUNT_FAILED", "Failed to count contents", err)
	}

	items := make([]dto.ContentDTO, 0, len(contents))
	for _, c := range contents {
		items = append(items, ToContentDTO(*c))
	}

	return &dto.ListContentsResponse{
		Message: "Contents listed successfully",
		Items:   items,
		Total:   total,
	}, nil
}

// refreshReferencingScreens recomputes assignments for every screen of every
// campaign whose rotation list contains the content.
func (s *ContentFlowImpl) refreshReferencingScreens(ctx context.Context, contentID uint) {
	now := s.now()
	affected := make(map[uint]struct{})

	for _, c := range s.store.Campaigns() {
		if c.Status.Terminal() {
			continue
		}
		references := false
		for _, id := range int64ArrayToUints(c.ContentIDs) {
			if id == contentID {
				references = true
				break
			}
		}
		if !references {
			continue
		}
		for _, id := range int64ArrayToUints(c.ScreenIDs) {
			affected[id] = struct{}{}
		}
	}

	for id := range affected {
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

func (s *ContentFlowImpl) getOwnedContent(uuidStr string, ownerID uint) (models.Content, error) {
	parsed, err := utils.ParseUUID(uuidStr)
	if err != nil {
		return models.Content{}, ErrContentNotFound
	}

	content, ok := s.store.ContentByUUID(parsed)
	if !ok {
		return models.Content{}, ErrContentNotFound
	}
	if content.OwnerID != ownerID {
		return models.Content{}, ErrContentAccessDenied
	}

	return content, nil
}
