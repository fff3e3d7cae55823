package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"tinyvault/internal/config"
	"tinyvault/internal/models"
	"tinyvault/internal/storage"

	"gorm.io/gorm"
)

// codeGenerator produces candidate short codes. Uniqueness is enforced by
// the insert-with-retry loop in Save, not by the generator.
type codeGenerator interface {
	Generate() (string, error)
}

// URL detection patterns for kind inference
var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://`),
	regexp.MustCompile(`^www\.`),
	regexp.MustCompile(`^[a-zA-Z0-9-]+\.(com|org|net|io|co|me|dev)$`),
}

// strict URL shape check applied to content saved as a URL
var urlFormatPattern = regexp.MustCompile(`(?i)^https?://(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+[A-Z]{2,6}\.?|localhost|\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})(?::\d+)?(?:/?|[/?]\S+)$`)

// ItemService owns creation, lookup and soft deletion of saved items.
type ItemService struct {
	items           *storage.ItemRepository
	gen             codeGenerator
	maxCodeAttempts int
	maxContentBytes int
}

// NewItemService creates an ItemService with the given repository,
// generator and vault policy settings.
func NewItemService(items *storage.ItemRepository, gen codeGenerator, vault config.VaultConfig) *ItemService {
	maxAttempts := vault.MaxCodeAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	maxContent := vault.MaxContentBytes
	if maxContent <= 0 {
		maxContent = 10000
	}
	return &ItemService{
		items:           items,
		gen:             gen,
		maxCodeAttempts: maxAttempts,
		maxContentBytes: maxContent,
	}
}

// WithTx returns a copy of the service whose repository is bound to the
// given transaction
func (s *ItemService) WithTx(tx *gorm.DB) *ItemService {
	clone := *s
	clone.items = s.items.WithTx(tx)
	return &clone
}

// DetectKind classifies content as a URL or a note.
func DetectKind(content string) string {
	trimmed := strings.TrimSpace(content)
	for _, pattern := range urlPatterns {
		if pattern.MatchString(trimmed) {
			return models.KindURL
		}
	}
	return models.KindNote
}

// validateContent checks the content a user asked to save.
func (s *ItemService) validateContent(content, kind string) error {
	if strings.TrimSpace(content) == "" {
		return &ValidationError{Msg: "content cannot be empty"}
	}
	if len(content) > s.maxContentBytes {
		return &ValidationError{Msg: fmt.Sprintf("content too long (max %d bytes)", s.maxContentBytes)}
	}
	if kind == models.KindURL && strings.HasPrefix(strings.TrimSpace(content), "http") {
		if !urlFormatPattern.MatchString(strings.TrimSpace(content)) {
			return &ValidationError{Msg: "invalid URL format"}
		}
	}
	return nil
}

// Save validates the content, infers its kind when none is given, assigns
// a short code and persists a new live item. Code uniqueness rides on the
// unique index: a collision comes back as gorm.ErrDuplicatedKey and a
// fresh candidate is drawn, up to the configured attempt budget.
func (s *ItemService) Save(ownerUserID uint, content, kind string) (*models.Item, error) {
	if kind == "" {
		kind = DetectKind(content)
	}
	if kind != models.KindURL && kind != models.KindNote {
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown item kind %q", kind)}
	}
	if err := s.validateContent(content, kind); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < s.maxCodeAttempts; attempt++ {
		code, err := s.gen.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate short code: %w", err)
		}

		item := &models.Item{
			OwnerUserID: ownerUserID,
			ShortCode:   code,
			Kind:        kind,
			Content:     content,
		}
		err = s.items.Create(item)
		if err == nil {
			return item, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Candidate already taken, draw another.
			continue
		}
		return nil, fmt.Errorf("failed to save item: %w", err)
	}

	return nil, ErrCodeExhausted
}

// Get returns the caller's live item for the given short code.
func (s *ItemService) Get(ownerUserID uint, shortCode string) (*models.Item, error) {
	item, err := s.items.GetLiveByCode(shortCode)
	if err != nil {
		return nil, fmt.Errorf("failed to look up item: %w", err)
	}
	if item == nil || item.OwnerUserID != ownerUserID {
		return nil, ErrNotFound
	}
	return item, nil
}

// GetAny returns an item by code regardless of owner or deletion state.
// Admin audit paths only.
func (s *ItemService) GetAny(shortCode string) (*models.Item, error) {
	item, err := s.items.GetByCode(shortCode)
	if err != nil {
		return nil, fmt.Errorf("failed to look up item: %w", err)
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

// List returns the caller's most recent live items, newest first.
func (s *ItemService) List(ownerUserID uint, limit int) ([]*models.Item, error) {
	return s.items.ListLiveByOwner(ownerUserID, limit)
}

// ListByKind returns the caller's live items of one kind, newest first.
func (s *ItemService) ListByKind(ownerUserID uint, kind string) ([]*models.Item, error) {
	if kind != models.KindURL && kind != models.KindNote {
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown item kind %q", kind)}
	}
	return s.items.ListLiveByOwnerAndKind(ownerUserID, kind)
}

// Search returns the caller's live items whose content contains the query.
func (s *ItemService) Search(ownerUserID uint, query string) ([]*models.Item, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Msg: "search query cannot be empty"}
	}
	return s.items.SearchLiveByOwner(ownerUserID, query)
}

// ListAll returns items across all owners with pagination. Admin only.
func (s *ItemService) ListAll(limit, offset int, includeDeleted bool) ([]*models.Item, error) {
	return s.items.ListAll(limit, offset, includeDeleted)
}

// Delete soft deletes the caller's live item. Deleting an unknown or
// already-deleted code reports ErrNotFound, which makes a second delete of
// the same code a no-op rather than a double deletion.
func (s *ItemService) Delete(ownerUserID uint, shortCode string) error {
	ok, err := s.items.SoftDelete(shortCode, ownerUserID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// HardDelete purges an item row entirely. Admin only.
func (s *ItemService) HardDelete(shortCode string) error {
	ok, err := s.items.HardDelete(shortCode)
	if err != nil {
		return fmt.Errorf("failed to purge item: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Stats returns live item counts for one owner.
func (s *ItemService) Stats(ownerUserID uint) (*storage.ItemStats, error) {
	return s.items.StatsByOwner(ownerUserID)
}

// CountLive returns the number of live items across all owners.
func (s *ItemService) CountLive() (int64, error) {
	return s.items.CountLive()
}
