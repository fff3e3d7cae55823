package service

import (
	"fmt"
	"time"

	"tinyvault/internal/models"
	"tinyvault/internal/storage"

	"gorm.io/gorm"
)

// UserService tracks first-seen/last-seen bookkeeping per Telegram
// identity.
type UserService struct {
	users *storage.UserRepository
}

// NewUserService creates a UserService over the given repository.
func NewUserService(users *storage.UserRepository) *UserService {
	return &UserService{users: users}
}

// WithTx returns a copy of the service whose repository is bound to the
// given transaction
func (s *UserService) WithTx(tx *gorm.DB) *UserService {
	return &UserService{users: s.users.WithTx(tx)}
}

// Touch records an interaction from the identity: creates the user on
// first contact, advances last_seen_at otherwise. Safe to call once per
// inbound update, including concurrently for the same identity.
func (s *UserService) Touch(telegramUserID int64) (*models.User, error) {
	user, err := s.users.Touch(telegramUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to touch user %d: %w", telegramUserID, err)
	}
	return user, nil
}

// GetByTelegramID returns the user for a Telegram identity, nil if unknown.
func (s *UserService) GetByTelegramID(telegramUserID int64) (*models.User, error) {
	return s.users.GetByTelegramID(telegramUserID)
}

// ListWithItemCounts returns all users with their live item counts.
func (s *UserService) ListWithItemCounts() ([]storage.UserWithItemCount, error) {
	return s.users.ListWithItemCounts()
}

// Count returns the total number of users.
func (s *UserService) Count() (int64, error) {
	return s.users.Count()
}

// CountActiveSince returns how many users interacted after the cutoff.
func (s *UserService) CountActiveSince(cutoff time.Time) (int64, error) {
	return s.users.CountActiveSince(cutoff)
}
