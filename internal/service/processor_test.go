package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"tinyvault/internal/models"
	"tinyvault/internal/storage"
)

func TestProcessSaveIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	_, _, processor := newTestServices(t, db, nil)

	cmd := Command{UpdateID: 1, TelegramUserID: 12345, Kind: CmdSave, Args: "https://example.com"}

	first, err := processor.Process(context.Background(), cmd)
	if err != nil {
		t.Fatalf("first Process failed: %v", err)
	}
	if first.Status != StatusProcessed {
		t.Fatalf("expected StatusProcessed, got %s", first.Status)
	}

	// A retried delivery of the same update must not save again and must
	// answer with the original reply.
	second, err := processor.Process(context.Background(), cmd)
	if err != nil {
		t.Fatalf("second Process failed: %v", err)
	}
	if second.Status != StatusSkipped {
		t.Fatalf("expected StatusSkipped, got %s", second.Status)
	}
	if second.Reply != first.Reply {
		t.Errorf("duplicate reply differs from original:\nfirst:  %q\nsecond: %q", first.Reply, second.Reply)
	}

	var count int64
	if err := db.Model(&models.Item{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly one saved item, got %d", count)
	}
}

func TestProcessFailureRollsBackMarker(t *testing.T) {
	db := newTestDB(t)
	_, _, processor := newTestServices(t, db, nil)

	// Save with no content fails validation and must roll back everything,
	// including the idempotency marker and the user touch.
	bad := Command{UpdateID: 5, TelegramUserID: 99, Kind: CmdSave, Args: ""}
	if _, err := processor.Process(context.Background(), bad); !IsValidationError(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	updates := storage.NewUpdateRepository(db)
	marker, err := updates.GetByUpdateID(5)
	if err != nil {
		t.Fatalf("GetByUpdateID failed: %v", err)
	}
	if marker != nil {
		t.Errorf("expected no marker after rollback, got %+v", marker)
	}

	var userCount int64
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if userCount != 0 {
		t.Errorf("expected user touch to roll back, found %d users", userCount)
	}

	// A corrected retry of the same update id goes through.
	good := Command{UpdateID: 5, TelegramUserID: 99, Kind: CmdSave, Args: "try again"}
	result, err := processor.Process(context.Background(), good)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if result.Status != StatusProcessed {
		t.Errorf("expected retry to process, got %s", result.Status)
	}
}

func TestProcessDeleteTwice(t *testing.T) {
	db := newTestDB(t)
	_, _, processor := newTestServices(t, db, nil)

	saved, err := processor.Process(context.Background(), Command{UpdateID: 1, TelegramUserID: 7, Kind: CmdSave, Args: "note to drop"})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	code := extractCode(t, saved.Reply)

	first, err := processor.Process(context.Background(), Command{UpdateID: 2, TelegramUserID: 7, Kind: CmdDelete, Args: code})
	if err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	if first.Status != StatusProcessed {
		t.Fatalf("expected first delete to process, got %s", first.Status)
	}

	// Same command again under a fresh update id: the item is gone, so
	// the outcome is NotFound, not a second deletion.
	_, err = processor.Process(context.Background(), Command{UpdateID: 3, TelegramUserID: 7, Kind: CmdDelete, Args: code})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestProcessGetAndList(t *testing.T) {
	db := newTestDB(t)
	_, _, processor := newTestServices(t, db, nil)

	saved, err := processor.Process(context.Background(), Command{UpdateID: 1, TelegramUserID: 7, Kind: CmdSave, Args: "https://example.com"})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	code := extractCode(t, saved.Reply)

	got, err := processor.Process(context.Background(), Command{UpdateID: 2, TelegramUserID: 7, Kind: CmdGet, Args: code})
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !strings.Contains(got.Reply, "https://example.com") {
		t.Errorf("expected reply to contain the saved URL, got %q", got.Reply)
	}

	// Another user cannot read it.
	if _, err := processor.Process(context.Background(), Command{UpdateID: 3, TelegramUserID: 8, Kind: CmdGet, Args: code}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign item, got %v", err)
	}

	list, err := processor.Process(context.Background(), Command{UpdateID: 4, TelegramUserID: 7, Kind: CmdList})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(list.Reply, code) {
		t.Errorf("expected listing to mention %s, got %q", code, list.Reply)
	}
}

func TestProcessTouchesUser(t *testing.T) {
	db := newTestDB(t)
	_, users, processor := newTestServices(t, db, nil)

	if _, err := processor.Process(context.Background(), Command{UpdateID: 1, TelegramUserID: 42, Kind: CmdStart}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	user, err := users.GetByTelegramID(42)
	if err != nil {
		t.Fatalf("GetByTelegramID failed: %v", err)
	}
	if user == nil {
		t.Fatal("expected user to be created by the first command")
	}

	firstSeen := user.LastSeenAt
	if _, err := processor.Process(context.Background(), Command{UpdateID: 2, TelegramUserID: 42, Kind: CmdHelp}); err != nil {
		t.Fatalf("help failed: %v", err)
	}

	user, err = users.GetByTelegramID(42)
	if err != nil {
		t.Fatalf("GetByTelegramID failed: %v", err)
	}
	if user.LastSeenAt.Before(firstSeen) {
		t.Errorf("last_seen_at regressed: %v -> %v", firstSeen, user.LastSeenAt)
	}
}

func TestProcessListReplyStaysValidUTF8(t *testing.T) {
	db := newTestDB(t)
	_, _, processor := newTestServices(t, db, nil)

	// 49 ASCII bytes followed by multibyte runes puts a rune astride the
	// preview truncation point.
	note := strings.Repeat("a", 49) + "日本語のメモ"
	if _, err := processor.Process(context.Background(), Command{UpdateID: 1, TelegramUserID: 7, Kind: CmdSave, Args: note}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	list, err := processor.Process(context.Background(), Command{UpdateID: 2, TelegramUserID: 7, Kind: CmdList})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !utf8.ValidString(list.Reply) {
		t.Fatalf("list reply contains invalid UTF-8: %q", list.Reply)
	}
}

func TestContentPreview(t *testing.T) {
	cases := []struct {
		content  string
		maxBytes int
		want     string
	}{
		{"short", 50, "short"},
		{strings.Repeat("x", 50), 50, strings.Repeat("x", 50)},
		{strings.Repeat("x", 51), 50, strings.Repeat("x", 50) + "..."},
		{strings.Repeat("a", 49) + "日本語", 50, strings.Repeat("a", 49) + "..."},
		{"日本語のメモです、長いので切り詰める必要があります", 10, "日本語..."},
	}

	for _, tc := range cases {
		got := contentPreview(tc.content, tc.maxBytes)
		if got != tc.want {
			t.Errorf("contentPreview(%q, %d) = %q, want %q", tc.content, tc.maxBytes, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("contentPreview(%q, %d) produced invalid UTF-8", tc.content, tc.maxBytes)
		}
	}
}

func TestProcessUnknownCommand(t *testing.T) {
	db := newTestDB(t)
	_, _, processor := newTestServices(t, db, nil)

	result, err := processor.Process(context.Background(), Command{UpdateID: 1, TelegramUserID: 1, Kind: CmdUnknown, Args: "what"})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !strings.Contains(result.Reply, "/help") {
		t.Errorf("expected hint pointing at /help, got %q", result.Reply)
	}
}

// extractCode pulls the short code out of a save reply ("Saved as <code> ...").
func extractCode(t *testing.T, reply string) string {
	t.Helper()
	fields := strings.Fields(reply)
	for i, f := range fields {
		if f == "as" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	t.Fatalf("could not find short code in reply %q", reply)
	return ""
}
