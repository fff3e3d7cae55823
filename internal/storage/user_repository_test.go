package storage

import (
	"sync"
	"testing"
	"time"

	"tinyvault/internal/models"
)

func TestTouchCreatesUserOnFirstContact(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	user, err := repo.Touch(12345)
	if err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	if user == nil || user.ID == 0 {
		t.Fatalf("expected persisted user, got %+v", user)
	}
	if user.TelegramUserID != 12345 {
		t.Errorf("expected telegram user id 12345, got %d", user.TelegramUserID)
	}
	if user.FirstSeenAt.IsZero() || user.LastSeenAt.IsZero() {
		t.Errorf("expected seen timestamps to be set, got %+v", user)
	}
}

func TestTouchAdvancesLastSeen(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	first, err := repo.Touch(77)
	if err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	second, err := repo.Touch(77)
	if err != nil {
		t.Fatalf("second Touch failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the same user row, got %d and %d", first.ID, second.ID)
	}
	if second.LastSeenAt.Before(first.LastSeenAt) {
		t.Errorf("last_seen_at went backwards: %v -> %v", first.LastSeenAt, second.LastSeenAt)
	}
	if !second.FirstSeenAt.Equal(first.FirstSeenAt) {
		t.Errorf("first_seen_at changed on repeat touch: %v -> %v", first.FirstSeenAt, second.FirstSeenAt)
	}
}

func TestTouchMonotonicOverManyInteractions(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	var previous time.Time
	for i := 0; i < 5; i++ {
		user, err := repo.Touch(5)
		if err != nil {
			t.Fatalf("Touch %d failed: %v", i, err)
		}
		if user.LastSeenAt.Before(previous) {
			t.Fatalf("last_seen_at regressed on interaction %d: %v < %v", i, user.LastSeenAt, previous)
		}
		previous = user.LastSeenAt
	}
}

func TestTouchNeverStepsLastSeenBackwards(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	user, err := repo.Touch(88)
	if err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	// Simulate a touch that committed ahead of this one in wall-clock
	// terms: the stored timestamp is already later than now.
	ahead := time.Now().Add(5 * time.Second)
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Update("last_seen_at", ahead).Error; err != nil {
		t.Fatalf("failed to advance last_seen_at: %v", err)
	}

	after, err := repo.Touch(88)
	if err != nil {
		t.Fatalf("second Touch failed: %v", err)
	}
	if after.LastSeenAt.Before(ahead) {
		t.Errorf("last_seen_at stepped backwards: %v -> %v", ahead, after.LastSeenAt)
	}
}

func TestTouchConcurrentSameIdentity(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Touch(12345); err != nil {
				t.Errorf("concurrent Touch failed: %v", err)
			}
		}()
	}
	wg.Wait()

	var count int64
	if err := db.Model(&models.User{}).Where("telegram_user_id = ?", 12345).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly one user row for identity 12345, got %d", count)
	}
}

func TestListWithItemCountsCountsOnlyLiveItems(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	items := NewItemRepository(db)

	alice, err := users.Touch(1)
	if err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	bob, err := users.Touch(2)
	if err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	for i, code := range []string{"aaaa111", "bbbb222", "cccc333"} {
		item := &models.Item{OwnerUserID: alice.ID, ShortCode: code, Kind: models.KindNote, Content: "note"}
		if err := items.Create(item); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}
	if ok, err := items.SoftDelete("cccc333", alice.ID); err != nil || !ok {
		t.Fatalf("SoftDelete failed: ok=%v err=%v", ok, err)
	}

	rows, err := users.ListWithItemCounts()
	if err != nil {
		t.Fatalf("ListWithItemCounts failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 users, got %d", len(rows))
	}

	counts := map[int64]int64{}
	for _, row := range rows {
		counts[row.TelegramUserID] = row.ItemCount
	}
	if counts[1] != 2 {
		t.Errorf("expected 2 live items for alice, got %d", counts[1])
	}
	if counts[bob.TelegramUserID] != 0 {
		t.Errorf("expected 0 items for bob, got %d", counts[bob.TelegramUserID])
	}
}

func TestCountActiveSince(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	if _, err := repo.Touch(10); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	if _, err := repo.Touch(11); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	// Age one user past the cutoff.
	old := time.Now().AddDate(0, 0, -60)
	if err := db.Model(&models.User{}).Where("telegram_user_id = ?", 11).Update("last_seen_at", old).Error; err != nil {
		t.Fatalf("failed to age user: %v", err)
	}

	active, err := repo.CountActiveSince(time.Now().AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("CountActiveSince failed: %v", err)
	}
	if active != 1 {
		t.Errorf("expected 1 active user, got %d", active)
	}
}
