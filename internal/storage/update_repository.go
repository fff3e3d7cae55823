package storage

import (
	"time"

	"tinyvault/internal/models"

	"gorm.io/gorm"
)

// UpdateRepository handles database operations for the idempotency ledger
// of processed Telegram updates
type UpdateRepository struct {
	db *gorm.DB
}

// NewUpdateRepository creates a new UpdateRepository
func NewUpdateRepository(db *gorm.DB) *UpdateRepository {
	return &UpdateRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *UpdateRepository) WithTx(tx *gorm.DB) *UpdateRepository {
	return &UpdateRepository{db: tx}
}

// MigrateTable ensures the processed_updates table exists
func (r *UpdateRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.ProcessedUpdate{})
}

// Record inserts the marker for an update. A second delivery of the same
// update_id hits the unique index and surfaces gorm.ErrDuplicatedKey; the
// caller treats that as "already processed". The marker is written inside
// the command's transaction, so a failed command rolls it back too.
func (r *UpdateRepository) Record(update *models.ProcessedUpdate) error {
	if update.CreatedAt.IsZero() {
		update.CreatedAt = time.Now()
	}
	return r.db.Create(update).Error
}

// GetByUpdateID retrieves the marker for an update, nil if absent
func (r *UpdateRepository) GetByUpdateID(updateID int64) (*models.ProcessedUpdate, error) {
	var update models.ProcessedUpdate
	result := r.db.Where("update_id = ?", updateID).First(&update)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &update, nil
}

// SaveResponse stores the rendered reply on an update's marker so a
// duplicate delivery can answer with the original result
func (r *UpdateRepository) SaveResponse(updateID int64, response string) error {
	return r.db.Model(&models.ProcessedUpdate{}).
		Where("update_id = ?", updateID).
		Update("response", response).Error
}
