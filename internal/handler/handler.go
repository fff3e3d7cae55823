package handler

import (
	"errors"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tinyvault/internal/logger"
	"tinyvault/internal/service"
)

// SetupMessageHandlers configures all bot message handlers
func SetupMessageHandlers(bh *th.BotHandler, bot *telego.Bot, processor *service.Processor) {
	bh.Handle(func(ctx *th.Context, update telego.Update) error {
		return handleMessageUpdate(ctx, bot, processor, update)
	}, th.AnyMessage())
}

// handleMessageUpdate processes one inbound message update end to end:
// parse the command, run it through the processor, send the reply.
func handleMessageUpdate(ctx *th.Context, bot *telego.Bot, processor *service.Processor, update telego.Update) error {
	message := update.Message
	if message == nil || message.From == nil || message.From.IsBot {
		return nil
	}

	// The vault is a private-chat bot; group noise is not ours to answer.
	if message.Chat.Type != "private" {
		return nil
	}

	cmd := ParseCommand(update)
	result, err := processor.Process(ctx.Context(), cmd)
	if err != nil {
		incrementCounter(&totalErrors)
		return sendReply(ctx, bot, message.Chat.ID, renderError(cmd, err))
	}

	incrementCounter(&totalMessagesProcessed)
	if result.Status == service.StatusSkipped {
		incrementCounter(&totalDuplicates)
		logger.Infof("Skipped duplicate update %d from user %d", cmd.UpdateID, cmd.TelegramUserID)
	}

	return sendReply(ctx, bot, message.Chat.ID, result.Reply)
}

// ParseCommand reduces a Telegram update to the command the core runs.
func ParseCommand(update telego.Update) service.Command {
	message := update.Message
	cmd := service.Command{
		UpdateID:       int64(update.UpdateID),
		TelegramUserID: message.From.ID,
		Kind:           service.CmdUnknown,
	}

	text := strings.TrimSpace(message.Text)
	if !strings.HasPrefix(text, "/") {
		return cmd
	}

	name, args := text, ""
	if idx := strings.IndexAny(text, " \t\n"); idx >= 0 {
		name, args = text[:idx], strings.TrimSpace(text[idx+1:])
	}
	// Commands may arrive suffixed with the bot username, e.g. /save@MyBot.
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}

	switch name {
	case "/start":
		cmd.Kind = service.CmdStart
	case "/help":
		cmd.Kind = service.CmdHelp
	case "/save":
		cmd.Kind = service.CmdSave
	case "/list":
		cmd.Kind = service.CmdList
	case "/get":
		cmd.Kind = service.CmdGet
	case "/del":
		cmd.Kind = service.CmdDelete
	}
	cmd.Args = args
	return cmd
}

// renderError maps a processing failure to the reply the user sees.
func renderError(cmd service.Command, err error) string {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return "Cannot do that: " + ve.Msg
	case errors.Is(err, service.ErrNotFound):
		return "No item found for that code."
	case errors.Is(err, service.ErrCodeExhausted):
		logger.Errorf("Short code space exhausted handling update %d: %v", cmd.UpdateID, err)
		return "Could not assign a short code right now, please try again."
	default:
		logger.Errorf("Error processing update %d (%s): %v", cmd.UpdateID, cmd.Kind, err)
		return "Something went wrong, please try again."
	}
}

func sendReply(ctx *th.Context, bot *telego.Bot, chatID int64, text string) error {
	_, err := bot.SendMessage(ctx.Context(), &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   text,
	})
	if err != nil {
		logger.Warningf("Failed to send reply to chat %d: %v", chatID, err)
	}
	return err
}
