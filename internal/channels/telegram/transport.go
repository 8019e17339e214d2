package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/galkinart-netizen/tg-bot-911/internal/dispatch"
)

// downloadMaxRetries is the number of GetFile attempts.
const downloadMaxRetries = 3

// Channel implements dispatch.Transport.
var _ dispatch.Transport = (*Channel)(nil)

func (c *Channel) SendMessage(ctx context.Context, destination, text string, opts dispatch.SendOptions) (dispatch.MessageRef, error) {
	chatID, err := parseChatID(destination)
	if err != nil {
		return dispatch.MessageRef{}, fmt.Errorf("invalid chat id %q: %w", destination, err)
	}

	msg := tu.Message(tu.ID(chatID), text)
	if opts.HTML {
		msg = msg.WithParseMode(telego.ModeHTML)
	}
	switch opts.Markup {
	case dispatch.MarkupMainMenu:
		msg = msg.WithReplyMarkup(mainMenuKeyboard())
	case dispatch.MarkupProviderChoice:
		if kb := providerKeyboard(opts.Providers); kb != nil {
			msg = msg.WithReplyMarkup(kb)
		} else {
			msg = msg.WithReplyMarkup(mainMenuKeyboard())
		}
	}

	sent, err := c.bot.SendMessage(ctx, msg)
	if err != nil {
		return dispatch.MessageRef{}, fmt.Errorf("send message: %w", err)
	}
	return dispatch.MessageRef{Destination: destination, MessageID: sent.MessageID}, nil
}

// EditMessage replaces a message's text. Edits share one rate budget across chats.
func (c *Channel) EditMessage(ctx context.Context, ref dispatch.MessageRef, text string) error {
	chatID, err := parseChatID(ref.Destination)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", ref.Destination, err)
	}
	if err := c.edits.Wait(ctx); err != nil {
		return err
	}
	_, err = c.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    tu.ID(chatID),
		MessageID: ref.MessageID,
		Text:      text,
	})
	return err
}

func (c *Channel) DeleteMessage(ctx context.Context, ref dispatch.MessageRef) error {
	chatID, err := parseChatID(ref.Destination)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", ref.Destination, err)
	}
	return c.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    tu.ID(chatID),
		MessageID: ref.MessageID,
	})
}

// DownloadContent fetches a file by file_id with retry logic and a size limit.
func (c *Channel) DownloadContent(ctx context.Context, fileID string) ([]byte, error) {
	maxBytes := c.config.MediaMaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMediaMaxBytes
	}

	var file *telego.File
	var err error

	for attempt := 1; attempt <= downloadMaxRetries; attempt++ {
		file, err = c.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
		if err == nil {
			break
		}
		if attempt < downloadMaxRetries {
			slog.Debug("retrying file download", "file_id", fileID, "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("get file info after %d attempts: %w", downloadMaxRetries, err)
	}

	if file.FilePath == "" {
		return nil, fmt.Errorf("empty file path for file_id %s", fileID)
	}
	if int64(file.FileSize) > maxBytes {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", file.FileSize, maxBytes)
	}

	downloadURL := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", c.config.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return readLimited(resp.Body, maxBytes)
}

// readLimited reads at most maxBytes, failing when the body is larger.
func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("file exceeds max size during download: more than %d bytes", maxBytes)
	}
	return data, nil
}
