package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/galkinart-netizen/tg-bot-911/internal/channels"
	"github.com/galkinart-netizen/tg-bot-911/internal/dispatch"
	"github.com/galkinart-netizen/tg-bot-911/internal/media"
	"github.com/galkinart-netizen/tg-bot-911/internal/store"
	"github.com/galkinart-netizen/tg-bot-911/internal/survey"
)

// handleMessage processes an incoming Telegram message.
func (c *Channel) handleMessage(ctx context.Context, message *telego.Message) {
	// Skip service messages (member added/removed, title changed, etc.).
	if isServiceMessage(message) {
		slog.Debug("telegram service message skipped", "chat_id", message.Chat.ID)
		return
	}

	user := message.From
	if user == nil {
		return
	}

	userID := fmt.Sprintf("%d", user.ID)
	senderID := userID
	if user.Username != "" {
		senderID = fmt.Sprintf("%s|%s", userID, user.Username)
	}
	if !c.allow.IsAllowed(senderID) {
		slog.Debug("telegram message rejected by allowlist", "user_id", userID, "username", user.Username)
		return
	}

	chatID := message.Chat.ID
	chatIDStr := fmt.Sprintf("%d", chatID)

	slog.Debug("telegram message received",
		"chat_id", chatID,
		"user_id", user.ID,
		"username", user.Username,
		"text_preview", channels.Truncate(message.Text, 60),
	)

	switch {
	case len(message.Photo) > 0:
		// Highest resolution is last.
		photo := message.Photo[len(message.Photo)-1]
		c.acceptDocument(ctx, userID, chatIDStr, photo.FileID, "image/jpeg")
	case message.Document != nil:
		doc := message.Document
		if !media.IsImage(doc.MimeType) {
			c.reply(ctx, chatID, textNotImage, nil, false)
			return
		}
		c.acceptDocument(ctx, userID, chatIDStr, doc.FileID, media.NormalizeMime(doc.MimeType))
	case message.Text != "":
		c.handleText(ctx, message, userID, chatID, chatIDStr)
	}
}

func (c *Channel) acceptDocument(ctx context.Context, userID, chatIDStr, fileID, mime string) {
	n := c.engine.OnDocumentArrived(userID, chatIDStr, fileID, mime)
	delaySec := int(c.engine.Delay().Seconds())
	if _, err := c.SendMessage(ctx, chatIDStr, arrivalText(n, delaySec), dispatch.SendOptions{
		Markup:    dispatch.MarkupProviderChoice,
		Providers: c.engine.Providers(),
	}); err != nil {
		slog.Warn("telegram arrival ack failed", "chat_id", chatIDStr, "error", err)
	}
}

func (c *Channel) handleText(ctx context.Context, message *telego.Message, userID string, chatID int64, chatIDStr string) {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return
	}

	if c.handleBotCommand(ctx, text, chatID) {
		return
	}

	switch text {
	case btnStart:
		c.sendWelcome(ctx, chatID)
		return
	case btnStop:
		c.engine.OnStopSignal(userID)
		c.reply(ctx, chatID, textStopped, mainMenuKeyboard(), false)
		return
	case btnRestart:
		c.engine.OnStopSignal(userID)
		c.survey.Cancel(userID)
		c.reply(ctx, chatID, textRestarted, mainMenuKeyboard(), false)
		return
	case btnAddPhoto:
		c.reply(ctx, chatID, textAddPhoto, mainMenuKeyboard(), false)
		return
	case btnDiagnosis, btnTreatment:
		c.sendLastConclusion(ctx, userID, chatID, text == btnTreatment)
		return
	}

	if c.survey.Active(userID) {
		step, err := c.survey.Answer(ctx, userID, text)
		if err == nil {
			c.showSurveyStep(ctx, userID, chatID, step)
			return
		}
		// The session ended concurrently: fall through to normal handling.
	}

	if isDonePhrase(text) {
		c.async(func() { c.handleDone(ctx, userID, chatID, chatIDStr) })
		return
	}

	if looksLikeFullName(text) {
		c.reply(ctx, chatID, textNameGuard, mainMenuKeyboard(), false)
		return
	}

	c.async(func() {
		if err := c.engine.AskText(ctx, chatIDStr, text); err != nil {
			slog.Debug("text question not answered", "user_id", userID, "error", err)
		}
	})
}

func (c *Channel) handleDone(ctx context.Context, userID string, chatID int64, chatIDStr string) {
	res := c.engine.OnDoneSignal(userID)
	switch res.Action {
	case dispatch.DoneNoBatch:
		c.reply(ctx, chatID, textNothingQueued, mainMenuKeyboard(), false)
	case dispatch.DoneDispatched:
		slog.Debug("done phrase dispatched batch", "user_id", userID, "state", res.Outcome.State)
	}
}

func (c *Channel) sendLastConclusion(ctx context.Context, userID string, chatID int64, treatment bool) {
	rec, err := c.engine.GetLastConclusion(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Warn("load conclusion failed", "user_id", userID, "error", err)
	}

	var text string
	if rec != nil {
		text = strings.TrimSpace(rec.Diagnosis)
		if treatment && strings.TrimSpace(rec.Treatment) != "" {
			text = strings.TrimSpace(rec.Treatment)
		}
	}
	if text == "" {
		text = textNoDiagnosis
		if treatment {
			text = textNoTreatment
		}
	}
	c.reply(ctx, chatID, text, mainMenuKeyboard(), false)
}

// handleCallbackQuery routes inline button presses.
func (c *Channel) handleCallbackQuery(ctx context.Context, query *telego.CallbackQuery) {
	userID := fmt.Sprintf("%d", query.From.ID)
	senderID := userID
	if query.From.Username != "" {
		senderID = fmt.Sprintf("%s|%s", userID, query.From.Username)
	}
	if !c.allow.IsAllowed(senderID) || query.Message == nil {
		_ = c.bot.AnswerCallbackQuery(ctx, tu.CallbackQuery(query.ID))
		return
	}

	chatID := query.Message.GetChat().ID
	messageID := query.Message.GetMessageID()
	data := strings.TrimSpace(query.Data)

	if data == cbSurveySend {
		c.handleSurveySend(ctx, query, userID, chatID, messageID)
		return
	}
	if err := c.bot.AnswerCallbackQuery(ctx, tu.CallbackQuery(query.ID)); err != nil {
		slog.Debug("answer callback failed", "error", err)
	}

	if name, ok := providerFromCallback(data); ok {
		if c.engine.Pending(userID) == 0 {
			c.editText(ctx, chatID, messageID, textNoDocsForAI)
			return
		}
		c.editText(ctx, chatID, messageID, textStarting)
		c.async(func() {
			out := c.engine.OnExplicitProviderChosen(userID, name)
			slog.Debug("provider button dispatch", "user_id", userID, "provider", name, "state", out.State)
		})
		return
	}

	switch data {
	case cbFlowStart:
		c.deleteMessage(ctx, chatID, messageID)
		c.reply(ctx, chatID, textConsent, consentKeyboard(), true)
	case cbConsentDecline:
		c.deleteMessage(ctx, chatID, messageID)
		c.reply(ctx, chatID, textConsentDeclined, mainMenuKeyboard(), false)
	case cbConsentAccept:
		c.deleteMessage(ctx, chatID, messageID)
		c.reply(ctx, chatID, textNextStep, nextStepKeyboard(), false)
	case cbNextSurvey:
		c.deleteMessage(ctx, chatID, messageID)
		c.startSurvey(ctx, userID, chatID)
	case cbNextUpload:
		c.deleteMessage(ctx, chatID, messageID)
		c.reply(ctx, chatID, textUploadPrompt, mainMenuKeyboard(), false)
	default:
		slog.Debug("unknown callback data", "data", data)
	}
}

func (c *Channel) handleSurveySend(ctx context.Context, query *telego.CallbackQuery, userID string, chatID int64, messageID int) {
	step, err := c.survey.Send(userID)
	if err != nil {
		answer := tu.CallbackQuery(query.ID)
		if errors.Is(err, survey.ErrNoAnswer) {
			answer = answer.WithText(textSurveyNoAnswer).WithShowAlert()
		}
		_ = c.bot.AnswerCallbackQuery(ctx, answer)
		return
	}
	_ = c.bot.AnswerCallbackQuery(ctx, tu.CallbackQuery(query.ID))
	if step.Previous == 0 {
		step.Previous = messageID
	}
	c.showSurveyStep(ctx, userID, chatID, step)
}

func (c *Channel) startSurvey(ctx context.Context, userID string, chatID int64) {
	step := c.survey.Start(ctx, userID)
	if id := c.sendQuestion(ctx, chatID, step.Question); id != 0 {
		c.survey.SetQuestionMessage(userID, id)
	}
}

// showSurveyStep removes the answered question and shows the next one, or
// the completion messages.
func (c *Channel) showSurveyStep(ctx context.Context, userID string, chatID int64, step survey.Step) {
	if step.Previous != 0 {
		c.deleteMessage(ctx, chatID, step.Previous)
	}
	if !step.Done {
		if id := c.sendQuestion(ctx, chatID, step.Question); id != 0 {
			c.survey.SetQuestionMessage(userID, id)
		}
		return
	}
	c.reply(ctx, chatID, textSurveyDone, mainMenuKeyboard(), false)
	if step.HasID {
		c.reply(ctx, chatID, surveyIDText(step.RecordID), mainMenuKeyboard(), true)
	}
}

func (c *Channel) sendQuestion(ctx context.Context, chatID int64, question string) int {
	msg := tu.Message(tu.ID(chatID), question).
		WithParseMode(telego.ModeHTML).
		WithReplyMarkup(tu.ReplyKeyboardRemove())
	sent, err := c.bot.SendMessage(ctx, msg)
	if err != nil {
		slog.Warn("telegram survey question failed", "chat_id", chatID, "error", err)
		return 0
	}
	return sent.MessageID
}

// reply sends text with an optional keyboard. Failures are logged.
func (c *Channel) reply(ctx context.Context, chatID int64, text string, markup telego.ReplyMarkup, html bool) {
	msg := tu.Message(tu.ID(chatID), text)
	if html {
		msg = msg.WithParseMode(telego.ModeHTML)
	}
	if markup != nil {
		msg = msg.WithReplyMarkup(markup)
	}
	if _, err := c.bot.SendMessage(ctx, msg); err != nil {
		slog.Warn("telegram send failed", "chat_id", chatID, "error", err)
	}
}

func (c *Channel) editText(ctx context.Context, chatID int64, messageID int, text string) {
	if _, err := c.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
		Text:      text,
	}); err != nil {
		slog.Debug("telegram edit failed", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func (c *Channel) deleteMessage(ctx context.Context, chatID int64, messageID int) {
	if err := c.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
	}); err != nil {
		slog.Debug("telegram delete failed", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

// isDonePhrase reports whether text asks to process the batch now.
func isDonePhrase(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "всё", "все", "готово", "готово.":
		return true
	}
	return false
}

// looksLikeFullName reports whether text resembles a person's full name:
// short, no question mark, two to five words made of letters (hyphens and
// dots allowed). Such text is never sent to providers.
func looksLikeFullName(text string) bool {
	if utf8.RuneCountInString(text) >= 100 || strings.Contains(text, "?") {
		return false
	}
	words := strings.Fields(text)
	if len(words) < 2 || len(words) > 5 {
		return false
	}
	for _, w := range words {
		w = strings.NewReplacer("-", "", ".", "").Replace(w)
		if w == "" {
			return false
		}
		for _, r := range w {
			if !unicode.IsLetter(r) {
				return false
			}
		}
	}
	return true
}

// isServiceMessage returns true if the Telegram message is a service/system message
// (member added/removed, title changed, pinned, etc.) rather than a user-sent message.
func isServiceMessage(msg *telego.Message) bool {
	if msg.Text != "" || msg.Caption != "" {
		return false
	}
	if msg.Photo != nil || msg.Audio != nil || msg.Video != nil ||
		msg.Document != nil || msg.Voice != nil || msg.VideoNote != nil ||
		msg.Sticker != nil || msg.Animation != nil || msg.Contact != nil ||
		msg.Location != nil || msg.Venue != nil || msg.Poll != nil {
		return false
	}
	return true
}
