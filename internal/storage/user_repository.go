package storage

import (
	"time"

	"tinyvault/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository handles database operations for User
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// MigrateTable ensures the users table exists
func (r *UserRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.User{})
}

// UserWithItemCount pairs a user with the number of live items they own
type UserWithItemCount struct {
	models.User
	ItemCount int64
}

// Touch creates the user on first contact or advances last_seen_at on a
// repeat visit. The whole operation is a single upsert on the unique
// telegram_user_id index, so concurrent deliveries for the same identity
// cannot produce duplicate rows.
func (r *UserRepository) Touch(telegramUserID int64) (*models.User, error) {
	now := time.Now()
	user := models.User{
		TelegramUserID: telegramUserID,
		FirstSeenAt:    now,
		LastSeenAt:     now,
	}

	// The CASE keeps last_seen_at non-decreasing when concurrent touches
	// commit out of wall-clock order.
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "telegram_user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_seen_at": gorm.Expr("CASE WHEN last_seen_at > ? THEN last_seen_at ELSE ? END", now, now),
		}),
	}).Create(&user).Error
	if err != nil {
		return nil, err
	}

	// Re-read the row: on the conflict path the in-memory struct does not
	// carry the existing ID and first_seen_at.
	return r.GetByTelegramID(telegramUserID)
}

// GetByTelegramID retrieves a user by Telegram identity, nil if unknown
func (r *UserRepository) GetByTelegramID(telegramUserID int64) (*models.User, error) {
	var user models.User
	result := r.db.Where("telegram_user_id = ?", telegramUserID).First(&user)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &user, nil
}

// GetByID retrieves a user by primary key, nil if unknown
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	result := r.db.First(&user, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &user, nil
}

// ListWithItemCounts returns all users along with their live item counts
func (r *UserRepository) ListWithItemCounts() ([]UserWithItemCount, error) {
	var rows []UserWithItemCount
	result := r.db.Model(&models.User{}).
		Select("users.*, COUNT(CASE WHEN items.deleted_at IS NULL THEN items.id END) AS item_count").
		Joins("LEFT JOIN items ON items.owner_user_id = users.id").
		Group("users.id").
		Order("users.id").
		Scan(&rows)
	return rows, result.Error
}

// Count returns the total number of users
func (r *UserRepository) Count() (int64, error) {
	var count int64
	result := r.db.Model(&models.User{}).Count(&count)
	return count, result.Error
}

// CountActiveSince returns the number of users seen after the cutoff
func (r *UserRepository) CountActiveSince(cutoff time.Time) (int64, error) {
	var count int64
	result := r.db.Model(&models.User{}).Where("last_seen_at >= ?", cutoff).Count(&count)
	return count, result.Error
}
