package bot

import (
	"context"
	"errors"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"TodayBrief/internal/session"
)

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	uid := userID(msg.From)
	st, err := b.Conversations.Submit(ctx, uid, msg.Text)
	if errors.Is(err, session.ErrStaleConversation) {
		b.log.Info("note text outside of a note flow", "user", uid)
		_ = b.send(msg.Chat.ID, textNoteStale, nil)
		return
	}
	if err != nil {
		b.log.Error("failed to store note draft", "user", uid, "err", err)
		_ = b.send(msg.Chat.ID, textFailed, nil)
		return
	}
	_ = b.send(st.ChatID, fmt.Sprintf(textNoteConfirm, html.EscapeString(st.Note)), confirmNoteKB)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	uid := userID(cq.From)
	var chatID int64
	if cq.Message != nil && cq.Message.Chat != nil {
		chatID = cq.Message.Chat.ID
	}
	b.log.Info("button", "data", cq.Data, "user", uid)

	switch cq.Data {
	case cbAddNotes:
		if err := b.Conversations.Begin(ctx, uid, chatID); err != nil {
			b.log.Error("failed to begin note", "user", uid, "err", err)
			b.answer(cq.ID, textFailed)
			return
		}
		b.answer(cq.ID, "")
		_ = b.send(chatID, textNotePrompt, nil)

	case cbConfirmNote:
		st, err := b.Conversations.Confirm(ctx, uid)
		if b.staleOrFailed(cq, err) {
			return
		}
		b.answer(cq.ID, "")
		_ = b.send(st.ChatID, b.saveNote(ctx, uid, st.Note), nil)

	case cbEditNote:
		st, err := b.Conversations.Rewrite(ctx, uid)
		if b.staleOrFailed(cq, err) {
			return
		}
		b.answer(cq.ID, "")
		_ = b.send(st.ChatID, textNoteRewrite, nil)

	default:
		b.answer(cq.ID, "")
	}
}

func (b *Bot) staleOrFailed(cq *tgbotapi.CallbackQuery, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, session.ErrStaleConversation):
		b.answer(cq.ID, textButtonStale)
	default:
		b.log.Error("note flow failed", "user", userID(cq.From), "err", err)
		b.answer(cq.ID, textFailed)
	}
	return true
}

// saveNote persists a confirmed note and returns the reply for the user.
func (b *Bot) saveNote(ctx context.Context, uid int64, note string) string {
	p, err := b.Profiles.Get(ctx, uid)
	if err != nil {
		b.log.Error("cannot save note without a profile", "user", uid, "err", err)
		return textNoteFailed
	}
	if err := b.Notes.SaveNote(ctx, p.UserName, note); err != nil {
		b.log.Error("failed to save note", "user", uid, "name", p.UserName, "err", err)
		return textNoteFailed
	}
	b.log.Info("note saved", "user", uid, "name", p.UserName)
	return textNoteSaved
}
