package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/inconshreveable/log15/v3"
	"go.uber.org/multierr"

	"TodayBrief/config"
	"TodayBrief/internal/brief"
	"TodayBrief/internal/profile"
	"TodayBrief/internal/session"
)

const updateTimeout = 2 * time.Minute

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
}

type Sessions interface {
	Create(ctx context.Context, userID, chatID int64, handle string) (authURL, state string, err error)
}

type Conversations interface {
	Begin(ctx context.Context, userID, chatID int64) error
	Submit(ctx context.Context, userID int64, text string) (session.NoteState, error)
	Rewrite(ctx context.Context, userID int64) (session.NoteState, error)
	Confirm(ctx context.Context, userID int64) (session.NoteState, error)
}

type Daily interface {
	Personal(ctx context.Context, telegramID int64) (string, error)
}

type Reports interface {
	Build(ctx context.Context, requestedBy string, f brief.Filter) ([]brief.UserReport, error)
	Messages(reports []brief.UserReport, split bool) []string
}

type Profiles interface {
	Get(ctx context.Context, telegramID int64) (profile.Profile, error)
}

type NoteStore interface {
	SaveNote(ctx context.Context, userName, text string) error
}

// Deps groups what the bot talks to.
type Deps struct {
	Sessions      Sessions
	Conversations Conversations
	Daily         Daily
	Reports       Reports
	Profiles      Profiles
	Notes         NoteStore
	Groups        config.Groups
	// ProvisioningURL points at the sheet where permanent tokens are requested.
	ProvisioningURL string
}

type Bot struct {
	api API
	Deps
	log log15.Logger
	wg  sync.WaitGroup
}

func New(api API, deps Deps, log log15.Logger) *Bot {
	return &Bot{api: api, Deps: deps, log: log}
}

// PublishCommands sets the command menu shown by Telegram clients.
func (b *Bot) PublishCommands() error {
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		return fmt.Errorf("PublishCommands: %w", err)
	}
	return nil
}

// Run dispatches updates until ctx is cancelled or the channel closes, then
// waits for in-flight handlers. Every update runs in its own goroutine.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	b.log.Info("bot started")
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.log.Info("bot stopping")
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handle(ctx, upd)
			}()
		}
	}
}

func (b *Bot) handle(parent context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic while handling update", "update", upd.UpdateID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), updateTimeout)
	defer cancel()

	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.IsCommand():
		b.handleCommand(ctx, upd.Message)
	case upd.Message != nil && upd.Message.Text != "":
		b.handleText(ctx, upd.Message)
	}
}

// Notify sends an HTML message. Used for pushes outside a conversation.
func (b *Bot) Notify(_ context.Context, chatID int64, text string) error {
	return b.send(chatID, text, nil)
}

// Username looks up the Telegram handle of a private chat.
func (b *Bot) Username(_ context.Context, chatID int64) (string, error) {
	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
	if err != nil {
		return "", fmt.Errorf("Username: chat %d: %w", chatID, err)
	}
	return chat.UserName, nil
}

// SendReport builds the named report and posts it to every chat.
func (b *Bot) SendReport(ctx context.Context, group string, chatIDs []int64) error {
	msgs, err := b.reportMessages(ctx, group, "scheduler")
	if err != nil {
		return fmt.Errorf("SendReport: %w", err)
	}
	var errs error
	for _, chatID := range chatIDs {
		for _, m := range msgs {
			if err := b.send(chatID, m, nil); err != nil {
				errs = multierr.Append(errs, err)
				break
			}
		}
	}
	b.log.Info("report sent", "group", group, "chats", len(chatIDs), "messages", len(msgs), "failed", len(multierr.Errors(errs)))
	return errs
}

func (b *Bot) reportMessages(ctx context.Context, group, requestedBy string) ([]string, error) {
	g, err := brief.LookupGroup(group, b.Groups)
	if err != nil {
		return nil, err
	}
	reports, err := b.Reports.Build(ctx, requestedBy, g.Filter)
	if err != nil {
		return nil, err
	}
	return b.Reports.Messages(reports, g.Split), nil
}

func (b *Bot) send(chatID int64, text string, markup any) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("failed to send message", "chat", chatID, "err", err)
		return fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	return nil
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Warn("failed to answer callback", "err", err)
	}
}

func handleOf(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return strings.TrimPrefix(u.UserName, "@")
}
