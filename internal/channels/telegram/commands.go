package telegram

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"
)

// commandName extracts "/cmd" from text, stripping any @botname suffix.
// Empty when text is not a command.
func commandName(text string) string {
	if len(text) == 0 || text[0] != '/' {
		return ""
	}
	cmd := strings.SplitN(text, " ", 2)[0]
	cmd = strings.SplitN(cmd, "@", 2)[0]
	return strings.ToLower(cmd)
}

// handleBotCommand handles /start and /help. Returns true if the message was a command.
func (c *Channel) handleBotCommand(ctx context.Context, text string, chatID int64) bool {
	switch commandName(text) {
	case "":
		return false
	case "/start":
		c.sendWelcome(ctx, chatID)
	case "/help":
		c.reply(ctx, chatID, textHelp, mainMenuKeyboard(), false)
	default:
		slog.Debug("unknown telegram command", "text", text)
		c.reply(ctx, chatID, textHelp, mainMenuKeyboard(), false)
	}
	return true
}

func (c *Channel) sendWelcome(ctx context.Context, chatID int64) {
	c.reply(ctx, chatID, textWelcome, startKeyboard(), true)
}

// SyncMenuCommands replaces the bot's command menu.
func (c *Channel) SyncMenuCommands(ctx context.Context, commands []telego.BotCommand) error {
	if err := c.bot.DeleteMyCommands(ctx, nil); err != nil {
		slog.Debug("deleteMyCommands failed (may not exist)", "error", err)
	}

	if len(commands) == 0 {
		return nil
	}

	if len(commands) > 100 {
		commands = commands[:100]
	}

	return c.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: commands,
	})
}

// DefaultMenuCommands returns the default bot menu commands.
func DefaultMenuCommands() []telego.BotCommand {
	return []telego.BotCommand{
		{Command: "start", Description: "Приветствие и опрос"},
		{Command: "help", Description: "Справка по кнопкам"},
	}
}
