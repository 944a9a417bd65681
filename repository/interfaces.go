// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/innoad/screenfleet/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	ByOwnerID(ctx context.Context, ownerID uint, limit, offset int) ([]*models.Campaign, error)
	ByStatus(ctx context.Context, status models.CampaignStatus, limit, offset int) ([]*models.Campaign, error)
	ListUnfinished(ctx context.Context) ([]*models.Campaign, error)
	Update(ctx context.Context, campaign models.Campaign) error
	UpdateStatusVersioned(ctx context.Context, id uint, fromVersion uint64, status models.CampaignStatus) error
}

// ScreenRepository defines operations for screens
type ScreenRepository interface {
	Repository[models.Screen, models.ScreenFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Screen, error)
	ByCode(ctx context.Context, code string) (*models.Screen, error)
	ByOwnerID(ctx context.Context, ownerID uint, limit, offset int) ([]*models.Screen, error)
	ListAll(ctx context.Context) ([]*models.Screen, error)
	Update(ctx context.Context, screen models.Screen) error
	UpdateLastSeenBatch(ctx context.Context, seen map[uint]time.Time) error
	UpdateCurrentContent(ctx context.Context, id uint, contentID *uint) error
}

// ContentRepository defines operations for contents
type ContentRepository interface {
	Repository[models.Content, models.ContentFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Content, error)
	ByOwnerID(ctx context.Context, ownerID uint, limit, offset int) ([]*models.Content, error)
	ListAll(ctx context.Context) ([]*models.Content, error)
	Update(ctx context.Context, content models.Content) error
	UpdateStatus(ctx context.Context, id uint, status models.ContentStatus) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
