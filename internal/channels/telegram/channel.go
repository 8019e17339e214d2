// Package telegram serves the bot over the Telegram Bot API using long polling.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	"golang.org/x/time/rate"

	"github.com/galkinart-netizen/tg-bot-911/internal/channels"
	"github.com/galkinart-netizen/tg-bot-911/internal/config"
	"github.com/galkinart-netizen/tg-bot-911/internal/dispatch"
	"github.com/galkinart-netizen/tg-bot-911/internal/store"
	"github.com/galkinart-netizen/tg-bot-911/internal/survey"
)

const (
	// defaultMediaMaxBytes is the default max download size (20MB, Telegram Bot API limit).
	defaultMediaMaxBytes int64 = 20 * 1024 * 1024

	defaultEditsPerSec = 20
)

// Dispatcher is the batch engine as seen by the update handlers.
type Dispatcher interface {
	OnDocumentArrived(userID, destination, contentRef, mime string) int
	OnExplicitProviderChosen(userID, provider string) dispatch.Outcome
	OnDoneSignal(userID string) dispatch.DoneResult
	OnStopSignal(userID string)
	GetLastConclusion(ctx context.Context, userID string) (*store.ConclusionRecord, error)
	AskText(ctx context.Context, destination, question string) error
	Providers() []string
	Pending(userID string) int
	Delay() time.Duration
}

// Channel connects to Telegram via the Bot API using long polling.
type Channel struct {
	bot        *telego.Bot
	config     config.TelegramConfig
	httpClient *http.Client
	allow      *channels.Allowlist
	edits      *rate.Limiter

	engine Dispatcher
	survey *survey.Flow

	pollCancel context.CancelFunc // cancels the long polling context
	pollDone   chan struct{}      // closed when polling goroutine exits
	work       sync.WaitGroup     // long-running handlers (dispatch, text answers)
}

// New creates a new Telegram channel from config.
func New(cfg config.TelegramConfig) (*Channel, error) {
	var opts []telego.BotOption
	var transport http.RoundTripper = http.DefaultTransport

	if cfg.Proxy != "" {
		proxyURL, parseErr := url.Parse(cfg.Proxy)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Proxy, parseErr)
		}
		transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		opts = append(opts, telego.WithHTTPClient(&http.Client{Transport: transport}))
	}

	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	editsPerSec := cfg.EditsPerSec
	if editsPerSec <= 0 {
		editsPerSec = defaultEditsPerSec
	}

	return &Channel{
		bot:        bot,
		config:     cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second, Transport: transport},
		allow:      channels.NewAllowlist(cfg.AllowFrom),
		edits:      rate.NewLimiter(rate.Limit(editsPerSec), 1),
	}, nil
}

// Attach wires the engine and questionnaire. Must be called before Start.
func (c *Channel) Attach(engine Dispatcher, flow *survey.Flow) {
	c.engine = engine
	c.survey = flow
}

// Start begins long polling for Telegram updates.
func (c *Channel) Start(ctx context.Context) error {
	if c.engine == nil || c.survey == nil {
		return fmt.Errorf("telegram channel started before Attach")
	}
	slog.Info("starting telegram bot (polling mode)")

	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	slog.Info("telegram bot connected", "username", c.bot.Username())

	// Register bot menu commands with retry.
	go func() {
		commands := DefaultMenuCommands()
		for attempt := 1; attempt <= 3; attempt++ {
			if err := c.SyncMenuCommands(pollCtx, commands); err != nil {
				slog.Warn("failed to sync telegram menu commands", "error", err, "attempt", attempt)
				if attempt < 3 {
					select {
					case <-pollCtx.Done():
						return
					case <-time.After(time.Duration(attempt*5) * time.Second):
					}
				}
			} else {
				slog.Info("telegram menu commands synced")
				return
			}
		}
	}()

	go func() {
		defer close(c.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					slog.Info("telegram updates channel closed")
					return
				}
				switch {
				case update.Message != nil:
					c.handleMessage(pollCtx, update.Message)
				case update.CallbackQuery != nil:
					c.handleCallbackQuery(pollCtx, update.CallbackQuery)
				default:
					slog.Debug("telegram update skipped", "update_id", update.UpdateID)
				}
			}
		}
	}()

	return nil
}

// Stop cancels long polling and waits for the polling goroutine and any
// running handlers to exit.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping telegram bot")

	if c.pollCancel != nil {
		c.pollCancel()
	}

	// Wait for the polling goroutine to fully exit so that
	// Telegram releases the getUpdates lock before a new instance starts.
	if c.pollDone != nil {
		select {
		case <-c.pollDone:
		case <-time.After(10 * time.Second):
			slog.Warn("telegram polling goroutine did not exit within timeout")
		}
	}

	done := make(chan struct{})
	go func() {
		c.work.Wait()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("telegram bot stopped")
	case <-time.After(10 * time.Second):
		slog.Warn("telegram handlers did not finish within timeout")
	}
	return nil
}

// async runs fn off the polling goroutine. Stop waits for it.
func (c *Channel) async(fn func()) {
	c.work.Add(1)
	go func() {
		defer c.work.Done()
		fn()
	}()
}

// parseChatID converts a string chat ID to int64.
func parseChatID(chatIDStr string) (int64, error) {
	var id int64
	_, err := fmt.Sscanf(chatIDStr, "%d", &id)
	return id, err
}
