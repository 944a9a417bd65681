package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/innoad/screenfleet/models"
	"github.com/innoad/screenfleet/utils"
)

// ScreenRepositoryImpl implements the ScreenRepository interface
type ScreenRepositoryImpl struct {
	*BaseRepository[models.Screen, models.ScreenFilter]
}

// NewScreenRepository creates a new screen repository
func NewScreenRepository(db *gorm.DB) ScreenRepository {
	return &ScreenRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Screen, models.ScreenFilter](db),
	}
}

// ByUUID retrieves a screen by UUID
func (r *ScreenRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Screen, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.ScreenFilter{UUID: &parsedUUID}
	screens, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(screens) == 0 {
		return nil, nil
	}

	return screens[0], nil
}

// ByCode retrieves a screen by its registration code
func (r *ScreenRepositoryImpl) ByCode(ctx context.Context, code string) (*models.Screen, error) {
	filter := models.ScreenFilter{Code: &code}
	screens, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(screens) == 0 {
		return nil, nil
	}

	return screens[0], nil
}

// ByOwnerID retrieves screens by owner ID with pagination
func (r *ScreenRepositoryImpl) ByOwnerID(ctx context.Context, ownerID uint, limit, offset int) ([]*models.Screen, error) {
	filter := models.ScreenFilter{OwnerID: &ownerID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// ListAll retrieves every registered screen. Used to load the in-memory
// projection at startup.
func (r *ScreenRepositoryImpl) ListAll(ctx context.Context) ([]*models.Screen, error) {
	db := r.getDB(ctx)

	var screens []*models.Screen
	err := db.Order("id ASC").Find(&screens).Error
	if err != nil {
		return nil, err
	}

	return screens, nil
}

// Update updates a screen
func (r *ScreenRepositoryImpl) Update(ctx context.Context, screen models.Screen) error {
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
	screen.UpdatedAt = &now

	err = db.Save(&screen).Error
	if err != nil {
		return err
	}

	return nil
}

// UpdateLastSeenBatch flushes accumulated heartbeat timestamps in a single
// transaction. Last-seen only moves forward, so replayed flushes are safe.
func (r *ScreenRepositoryImpl) UpdateLastSeenBatch(ctx context.Context, seen map[uint]time.Time) error {
	if len(seen) == 0 {
		return nil
	}

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

	for id, ts := range seen {
		err = db.Model(&models.Screen{}).
			Where("id = ? AND (last_seen_at IS NULL OR last_seen_at < ?)", id, ts).
			Update("last_seen_at", ts).Error
		if err != nil {
			return err
		}
	}

	return nil
}

// UpdateCurrentContent updates the screen's cached resolved assignment
func (r *ScreenRepositoryImpl) UpdateCurrentContent(ctx context.Context, id uint, contentID *uint) error {
	db := r.getDB(ctx)
	return db.Model(&models.Screen{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_content_id": contentID,
			"updated_at":         utils.UTCNow(),
		}).Error
}

// ByFilter retrieves screens based on filter criteria
func (r *ScreenRepositoryImpl) ByFilter(ctx context.Context, filter models.ScreenFilter, orderBy string, limit, offset int) ([]*models.Screen, error) {
	db := r.getDB(ctx)

	var screens []*models.Screen
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

	err := query.Find(&screens).Error
	if err != nil {
		return nil, err
	}

	return screens, nil
}

// Count returns the number of screens matching the filter
func (r *ScreenRepositoryImpl) Count(ctx context.Context, filter models.ScreenFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var screen models.Screen
	query := r.applyFilter(db.Model(&screen), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any screen matching the filter exists
func (r *ScreenRepositoryImpl) Exists(ctx context.Context, filter models.ScreenFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ScreenRepositoryImpl) applyFilter(db *gorm.DB, filter models.ScreenFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Code != nil {
		db = db.Where("code = ?", *filter.Code)
	}
	if filter.OwnerID != nil {
		db = db.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Name != nil {
		db = db.Where("name ILIKE ?", "%"+*filter.Name+"%")
	}
	if filter.Location != nil {
		db = db.Where("location = ?", *filter.Location)
	}
	if filter.SeenAfter != nil {
		db = db.Where("last_seen_at >= ?", *filter.SeenAfter)
	}
	if filter.SeenBefore != nil {
		db = db.Where("last_seen_at < ?", *filter.SeenBefore)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}

	return db
}
