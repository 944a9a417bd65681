package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/innoad/screenfleet/models"
	"github.com/innoad/screenfleet/utils"
)

// ContentRepositoryImpl implements the ContentRepository interface
type ContentRepositoryImpl struct {
	*BaseRepository[models.Content, models.ContentFilter]
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &ContentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Content, models.ContentFilter](db),
	}
}

// ByUUID retrieves a content item by UUID
func (r *ContentRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Content, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.ContentFilter{UUID: &parsedUUID}
	contents, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(contents) == 0 {
		return nil, nil
	}

	return contents[0], nil
}

// ByOwnerID retrieves contents by owner ID with pagination
func (r *ContentRepositoryImpl) ByOwnerID(ctx context.Context, ownerID uint, limit, offset int) ([]*models.Content, error) {
	filter := models.ContentFilter{OwnerID: &ownerID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// ListAll retrieves every content item. Used to load the in-memory projection
// at startup.
func (r *ContentRepositoryImpl) ListAll(ctx context.Context) ([]*models.Content, error) {
	db := r.getDB(ctx)

	var contents []*models.Content
	err := db.Order("id ASC").Find(&contents).Error
	if err != nil {
		return nil, err
	}

	return contents, nil
}

// Update updates a content item
func (r *ContentRepositoryImpl) Update(ctx context.Context, content models.Content) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	now := utils.UTCNow()
	content.UpdatedAt = &now

	err = db.Save(&content).Error
	if err != nil {
		return err
	}

	return nil
}

// UpdateStatus updates only the status of a content item
func (r *ContentRepositoryImpl) UpdateStatus(ctx context.Context, id uint, status models.ContentStatus) error {
	db := r.getDB(ctx)
	return db.Model(&models.Content{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": utils.UTCNow(),
		}).Error
}

// ByFilter retrieves contents based on filter criteria
func (r *ContentRepositoryImpl) ByFilter(ctx context.Context, filter models.ContentFilter, orderBy string, limit, offset int) ([]*models.Content, error) {
	db := r.getDB(ctx)

	var contents []*models.Content
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&contents).Error
	if err != nil {
		return nil, err
	}

	return contents, nil
}

// Count returns the number of contents matching the filter
func (r *ContentRepositoryImpl) Count(ctx context.Context, filter models.ContentFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var content models.Content
	query := r.applyFilter(db.Model(&content), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any content matching the filter exists
func (r *ContentRepositoryImpl) Exists(ctx context.Context, filter models.ContentFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ContentRepositoryImpl) applyFilter(db *gorm.DB, filter models.ContentFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.OwnerID != nil {
		db = db.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Type != nil {
		db = db.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.Name != nil {
		db = db.Where("name ILIKE ?", "%"+*filter.Name+"%")
	}

	return db
}
