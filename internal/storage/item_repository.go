package storage

import (
	"time"

	"tinyvault/internal/models"

	"gorm.io/gorm"
)

// ItemRepository handles database operations for Item
type ItemRepository struct {
	db *gorm.DB
}

// NewItemRepository creates a new ItemRepository
func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *ItemRepository) WithTx(tx *gorm.DB) *ItemRepository {
	return &ItemRepository{db: tx}
}

// MigrateTable ensures the items table exists
func (r *ItemRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.Item{})
}

// ItemStats summarizes an owner's live items
type ItemStats struct {
	Total int64
	URLs  int64
	Notes int64
}

// live narrows a query to items that have not been soft deleted. Every
// non-admin read path goes through this predicate.
func live(db *gorm.DB) *gorm.DB {
	return db.Where("deleted_at IS NULL")
}

// Create inserts a new item. A short code collision surfaces as
// gorm.ErrDuplicatedKey for the caller's retry loop.
func (r *ItemRepository) Create(item *models.Item) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	return r.db.Create(item).Error
}

// GetLiveByCode retrieves a live item by short code, nil if the code is
// unknown or the item has been soft deleted
func (r *ItemRepository) GetLiveByCode(shortCode string) (*models.Item, error) {
	var item models.Item
	result := live(r.db).Where("short_code = ?", shortCode).First(&item)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &item, nil
}

// GetByCode retrieves an item by short code regardless of deletion state.
// Admin audit paths only.
func (r *ItemRepository) GetByCode(shortCode string) (*models.Item, error) {
	var item models.Item
	result := r.db.Where("short_code = ?", shortCode).First(&item)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &item, nil
}

// ListLiveByOwner returns the owner's most recent live items, newest first
func (r *ItemRepository) ListLiveByOwner(ownerUserID uint, limit int) ([]*models.Item, error) {
	var items []*models.Item
	result := live(r.db).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&items)
	return items, result.Error
}

// ListLiveByOwnerAndKind returns the owner's live items of one kind, newest first
func (r *ItemRepository) ListLiveByOwnerAndKind(ownerUserID uint, kind string) ([]*models.Item, error) {
	var items []*models.Item
	result := live(r.db).
		Where("owner_user_id = ? AND kind = ?", ownerUserID, kind).
		Order("created_at DESC, id DESC").
		Find(&items)
	return items, result.Error
}

// SearchLiveByOwner returns the owner's live items whose content contains
// the query string, newest first
func (r *ItemRepository) SearchLiveByOwner(ownerUserID uint, query string) ([]*models.Item, error) {
	var items []*models.Item
	result := live(r.db).
		Where("owner_user_id = ? AND content LIKE ?", ownerUserID, "%"+query+"%").
		Order("created_at DESC, id DESC").
		Find(&items)
	return items, result.Error
}

// ListAll returns items across all owners with pagination. Soft-deleted
// rows are included only when includeDeleted is set.
func (r *ItemRepository) ListAll(limit, offset int, includeDeleted bool) ([]*models.Item, error) {
	var items []*models.Item
	query := r.db.Order("created_at DESC, id DESC").Limit(limit).Offset(offset)
	if !includeDeleted {
		query = live(query)
	}
	result := query.Find(&items)
	return items, result.Error
}

// SoftDelete marks the owner's live item as deleted. Returns false when
// the code is unknown, already deleted, or owned by someone else; applying
// it twice therefore reports not-found rather than deleting again.
func (r *ItemRepository) SoftDelete(shortCode string, ownerUserID uint) (bool, error) {
	result := r.db.Model(&models.Item{}).
		Where("short_code = ? AND owner_user_id = ? AND deleted_at IS NULL", shortCode, ownerUserID).
		Update("deleted_at", time.Now())
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// HardDelete removes the item row entirely, whatever its deletion state.
// Admin purge only.
func (r *ItemRepository) HardDelete(shortCode string) (bool, error) {
	result := r.db.Where("short_code = ?", shortCode).Delete(&models.Item{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountLive returns the number of live items across all owners
func (r *ItemRepository) CountLive() (int64, error) {
	var count int64
	result := r.db.Model(&models.Item{}).Where("deleted_at IS NULL").Count(&count)
	return count, result.Error
}

// StatsByOwner returns live item counts for one owner, broken down by kind
func (r *ItemRepository) StatsByOwner(ownerUserID uint) (*ItemStats, error) {
	stats := &ItemStats{}
	base := r.db.Model(&models.Item{}).Where("owner_user_id = ? AND deleted_at IS NULL", ownerUserID)

	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("kind = ?", models.KindURL).Count(&stats.URLs).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("kind = ?", models.KindNote).Count(&stats.Notes).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
