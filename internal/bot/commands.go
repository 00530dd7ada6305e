package bot

import (
	"context"
	"errors"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"TodayBrief/internal/asana"
	"TodayBrief/internal/profile"
)

var reportCommands = map[string]string{
	"report":    "general",
	"pm_report": "pm",
	"ba_report": "ba",
	"av_report": "av",
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	cmd := msg.Command()
	b.log.Info("command", "cmd", cmd, "user", userID(msg.From), "chat", chatID)

	switch cmd {
	case "start":
		b.sendAuthLink(ctx, msg, textStart, btnConnect)
	case "connect":
		b.sendAuthLink(ctx, msg, textConnect, btnOAuth)
	case "mytasks":
		b.myTasks(ctx, msg)
	case "report", "pm_report", "ba_report", "av_report":
		b.report(ctx, msg, reportCommands[cmd])
	case "chatid":
		_ = b.send(chatID, fmt.Sprintf(textChatID, chatID), nil)
	}
}

func (b *Bot) sendAuthLink(ctx context.Context, msg *tgbotapi.Message, text, button string) {
	uid := userID(msg.From)
	authURL, state, err := b.Sessions.Create(ctx, uid, msg.Chat.ID, handleOf(msg.From))
	if err != nil {
		b.log.Error("failed to create oauth session", "user", uid, "err", err)
		_ = b.send(msg.Chat.ID, textFailed, nil)
		return
	}
	b.log.Info("oauth session created", "user", uid, "state", state)
	_ = b.send(msg.Chat.ID, text, linkKB(button, authURL))
}

func (b *Bot) myTasks(ctx context.Context, msg *tgbotapi.Message) {
	uid := userID(msg.From)
	text, err := b.Daily.Personal(ctx, uid)
	if err != nil {
		b.log.Warn("mytasks failed", "user", uid, "err", err)
		_ = b.send(msg.Chat.ID, b.describe(err), nil)
		return
	}
	_ = b.send(msg.Chat.ID, text, addNotesKB)
}

func (b *Bot) describe(err error) string {
	switch {
	case errors.Is(err, profile.ErrProfileNotFound):
		return textNotConnected
	case errors.Is(err, profile.ErrNotProvisioned):
		if b.ProvisioningURL == "" {
			return textNoToken
		}
		return fmt.Sprintf("%s: <a href=\"%s\">check this</a>", textNoToken, html.EscapeString(b.ProvisioningURL))
	case errors.Is(err, asana.ErrUnavailable):
		return textTryLater
	default:
		return textFailed
	}
}

func (b *Bot) report(ctx context.Context, msg *tgbotapi.Message, group string) {
	uid := userID(msg.From)
	requestedBy := handleOf(msg.From)
	if p, err := b.Profiles.Get(ctx, uid); err == nil {
		requestedBy = p.UserName
	}

	msgs, err := b.reportMessages(ctx, group, requestedBy)
	if err != nil {
		b.log.Error("report failed", "group", group, "user", uid, "err", err)
		_ = b.send(msg.Chat.ID, textReportFailed, nil)
		return
	}
	for _, m := range msgs {
		if err := b.send(msg.Chat.ID, m, nil); err != nil {
			return
		}
	}
	b.log.Info("report sent", "group", group, "user", uid, "messages", len(msgs))
}

func userID(u *tgbotapi.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
