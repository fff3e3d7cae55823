package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"tinyvault/internal/config"
	"tinyvault/internal/models"
	"tinyvault/internal/storage"

	"gorm.io/gorm"
)

// CommandKind identifies one inbound bot command.
type CommandKind string

const (
	CmdStart   CommandKind = "start"
	CmdHelp    CommandKind = "help"
	CmdSave    CommandKind = "save"
	CmdList    CommandKind = "list"
	CmdGet     CommandKind = "get"
	CmdDelete  CommandKind = "del"
	CmdUnknown CommandKind = "unknown"
)

// Command is one inbound chat update reduced to what the core needs.
type Command struct {
	UpdateID       int64
	TelegramUserID int64
	Kind           CommandKind
	Args           string
}

// Status reports how a command ended up.
type Status string

const (
	// StatusProcessed means the command executed and committed.
	StatusProcessed Status = "processed"
	// StatusSkipped means the update was a duplicate delivery; the reply
	// is the previously computed one and no side effects ran.
	StatusSkipped Status = "skipped"
)

// Result is the outcome of processing one command.
type Result struct {
	Status Status
	Reply  string
}

// Processor composes the idempotency ledger, the user registry and the
// item store to answer one inbound command with an at-most-once result.
// The ledger insert, the user touch and the command's own writes share a
// single transaction: a failed command rolls all of them back, so a
// legitimate retry of the same update is executed again.
type Processor struct {
	db        *gorm.DB
	items     *ItemService
	users     *UserService
	updates   *storage.UpdateRepository
	listLimit int
}

// NewProcessor creates a Processor over the shared database handle.
func NewProcessor(db *gorm.DB, items *ItemService, users *UserService, updates *storage.UpdateRepository, vault config.VaultConfig) *Processor {
	listLimit := vault.ListLimit
	if listLimit <= 0 {
		listLimit = 5
	}
	return &Processor{
		db:        db,
		items:     items,
		users:     users,
		updates:   updates,
		listLimit: listLimit,
	}
}

// Process executes one inbound command.
func (p *Processor) Process(ctx context.Context, cmd Command) (*Result, error) {
	var res *Result

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := p.updates.WithTx(tx)

		// Record-then-execute: the marker goes in first so a concurrent
		// delivery of the same update blocks on the unique index until
		// this transaction resolves.
		marker := &models.ProcessedUpdate{
			UpdateID:       cmd.UpdateID,
			TelegramUserID: cmd.TelegramUserID,
			Command:        string(cmd.Kind),
		}
		if err := updates.Record(marker); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				prior, gerr := updates.GetByUpdateID(cmd.UpdateID)
				if gerr != nil {
					return fmt.Errorf("failed to load processed update %d: %w", cmd.UpdateID, gerr)
				}
				reply := "Already processed."
				if prior != nil && prior.Response != "" {
					reply = prior.Response
				}
				res = &Result{Status: StatusSkipped, Reply: reply}
				return nil
			}
			return fmt.Errorf("failed to record update %d: %w", cmd.UpdateID, err)
		}

		user, err := p.users.WithTx(tx).Touch(cmd.TelegramUserID)
		if err != nil {
			return err
		}

		reply, err := p.dispatch(tx, user, cmd)
		if err != nil {
			return err
		}

		if err := updates.SaveResponse(cmd.UpdateID, reply); err != nil {
			return fmt.Errorf("failed to cache response for update %d: %w", cmd.UpdateID, err)
		}

		res = &Result{Status: StatusProcessed, Reply: reply}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// dispatch runs the command-specific handler and renders its reply.
func (p *Processor) dispatch(tx *gorm.DB, user *models.User, cmd Command) (string, error) {
	items := p.items.WithTx(tx)

	switch cmd.Kind {
	case CmdStart:
		return startReply(), nil

	case CmdHelp:
		return helpReply(), nil

	case CmdSave:
		if strings.TrimSpace(cmd.Args) == "" {
			return "", &ValidationError{Msg: "nothing to save, usage: /save <content>"}
		}
		item, err := items.Save(user.ID, cmd.Args, "")
		if err != nil {
			return "", err
		}
		return saveReply(item), nil

	case CmdList:
		list, err := items.List(user.ID, p.listLimit)
		if err != nil {
			return "", err
		}
		return listReply(list), nil

	case CmdGet:
		code := strings.TrimSpace(cmd.Args)
		if code == "" {
			return "", &ValidationError{Msg: "missing short code, usage: /get <code>"}
		}
		item, err := items.Get(user.ID, code)
		if err != nil {
			return "", err
		}
		return getReply(item), nil

	case CmdDelete:
		code := strings.TrimSpace(cmd.Args)
		if code == "" {
			return "", &ValidationError{Msg: "missing short code, usage: /del <code>"}
		}
		if err := items.Delete(user.ID, code); err != nil {
			return "", err
		}
		return fmt.Sprintf("Item %s has been deleted.", code), nil

	default:
		return unknownReply(), nil
	}
}

func startReply() string {
	return "Welcome to TinyVault.\n\n" +
		"Commands:\n" +
		"/save <content> - save a URL or note\n" +
		"/list - show your recent items\n" +
		"/get <code> - retrieve an item by short code\n" +
		"/del <code> - delete an item by short code\n" +
		"/help - show this message"
}

func helpReply() string {
	return "TinyVault commands:\n" +
		"/start - initialize your account\n" +
		"/save <content> - save a URL or note\n" +
		"/list - show your recent items\n" +
		"/get <code> - retrieve an item by short code\n" +
		"/del <code> - delete an item by short code\n\n" +
		"Examples:\n" +
		"/save https://example.com\n" +
		"/save remember to water the plants\n" +
		"/get abc2345"
}

func unknownReply() string {
	return "Unknown command. Send /help to see available commands."
}

func saveReply(item *models.Item) string {
	return fmt.Sprintf("Saved as %s (%s).\nUse /get %s to retrieve it.", item.ShortCode, item.Kind, item.ShortCode)
}

func getReply(item *models.Item) string {
	return fmt.Sprintf("%s (%s), saved %s:\n%s",
		item.ShortCode, item.Kind, item.CreatedAt.Format("2006-01-02 15:04"), item.Content)
}

func listReply(items []*models.Item) string {
	if len(items) == 0 {
		return "You have no saved items yet. Use /save <content> to add one."
	}

	var b strings.Builder
	b.WriteString("Your recent items:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "\n%s (%s) %s\n  %s", item.ShortCode, item.Kind, item.CreatedAt.Format("2006-01-02 15:04"), contentPreview(item.Content, 50))
	}
	b.WriteString("\n\nUse /get <code> to retrieve an item.")
	return b.String()
}

// contentPreview truncates content to at most maxBytes without splitting a
// rune. Telegram rejects messages that are not valid UTF-8, so the cut must
// land on a rune boundary.
func contentPreview(content string, maxBytes int) string {
	if len(content) <= maxBytes {
		return content
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}
