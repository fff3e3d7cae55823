package storage

import (
	"errors"
	"testing"

	"tinyvault/internal/models"

	"gorm.io/gorm"
)

func TestRecordDuplicateUpdateID(t *testing.T) {
	repo := NewUpdateRepository(newTestDB(t))

	if err := repo.Record(&models.ProcessedUpdate{UpdateID: 100, TelegramUserID: 1, Command: "save"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	err := repo.Record(&models.ProcessedUpdate{UpdateID: 100, TelegramUserID: 1, Command: "save"})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected gorm.ErrDuplicatedKey for duplicate update, got %v", err)
	}
}

func TestSaveAndLoadCachedResponse(t *testing.T) {
	repo := NewUpdateRepository(newTestDB(t))

	if err := repo.Record(&models.ProcessedUpdate{UpdateID: 7, TelegramUserID: 9, Command: "get"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := repo.SaveResponse(7, "here is your item"); err != nil {
		t.Fatalf("SaveResponse failed: %v", err)
	}

	update, err := repo.GetByUpdateID(7)
	if err != nil {
		t.Fatalf("GetByUpdateID failed: %v", err)
	}
	if update == nil || update.Response != "here is your item" {
		t.Fatalf("expected cached response, got %+v", update)
	}

	missing, err := repo.GetByUpdateID(8)
	if err != nil {
		t.Fatalf("GetByUpdateID for unknown id failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown update id, got %+v", missing)
	}
}
