package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/inconshreveable/log15/v3"

	"TodayBrief/internal/asana"
	"TodayBrief/internal/profile"
	"TodayBrief/internal/session"
)

type Sessions interface {
	Resolve(ctx context.Context, state string) (session.Session, error)
}

type Exchanger interface {
	Exchange(ctx context.Context, code string) (string, error)
}

type Users interface {
	CurrentUser(ctx context.Context, token string) (asana.User, error)
}

type Profiles interface {
	LookupToken(ctx context.Context, name string) (gid, token string, err error)
	Save(ctx context.Context, p profile.Profile) error
}

// Notifier reaches the Telegram user that started the handshake.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
	Username(ctx context.Context, chatID int64) (string, error)
}

// Handler serves the OAuth redirect.
type Handler struct {
	Sessions Sessions
	OAuth    Exchanger
	Asana    Users
	Profiles Profiles
	Notifier Notifier
	// ProvisioningURL is where users without a permanent token are sent.
	ProvisioningURL string
	Log             log15.Logger
}

// Callback completes the authorization-code flow started by /connect.
// No token exchange happens unless the state resolves.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		h.Log.Warn("callback without code")
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}
	if state == "" {
		h.Log.Warn("callback without state")
		http.Error(w, "Missing state", http.StatusBadRequest)
		return
	}

	sess, err := h.Sessions.Resolve(ctx, state)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			h.Log.Error("failed to resolve state", "err", err)
		}
		h.Log.Warn("invalid or expired state", "state", state)
		http.Error(w, "Invalid / Expired state", http.StatusBadRequest)
		return
	}
	log := h.Log.New("user", sess.UserID)
	log.Info("valid state")

	chatID := sess.ChatID
	if chatID == 0 {
		chatID = sess.UserID
	}
	handle := sess.Handle
	if handle == "" {
		if handle, err = h.Notifier.Username(ctx, sess.UserID); err != nil {
			log.Warn("failed to fetch telegram username", "err", err)
		}
	}

	accessToken, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		log.Error("failed to exchange auth code", "err", err)
		h.notify(ctx, log, chatID, chatAuthFailed)
		writeJSON(w, http.StatusBadRequest, CallbackResponse{Message: statusAuthFailed})
		return
	}

	user, err := h.Asana.CurrentUser(ctx, accessToken)
	if err != nil {
		log.Error("failed to fetch asana user", "err", err)
		h.notify(ctx, log, chatID, chatAuthFailed)
		writeJSON(w, http.StatusBadRequest, CallbackResponse{Message: statusAuthFailed})
		return
	}
	log = log.New("name", user.Name)

	gid, token, err := h.Profiles.LookupToken(ctx, user.Name)
	if errors.Is(err, profile.ErrNotProvisioned) {
		log.Warn("no permanent token provisioned")
		text := fmt.Sprintf(chatAuthOK, html.EscapeString(user.Name)) + chatTokenMiss
		if h.ProvisioningURL != "" {
			text += fmt.Sprintf(chatSheetLink, html.EscapeString(h.ProvisioningURL))
		}
		h.notify(ctx, log, chatID, text)
		writeJSON(w, http.StatusBadRequest, CallbackResponse{
			Message:   statusAuthSuccessful,
			UserName:  user.Name,
			UserToken: tokenMissing,
			CheckThis: h.ProvisioningURL,
		})
		return
	}
	if err != nil {
		log.Error("failed to look up permanent token", "err", err)
		h.notify(ctx, log, chatID, chatAuthFailed)
		writeJSON(w, http.StatusInternalServerError, CallbackResponse{Message: statusAuthFailed})
		return
	}
	if gid == "" {
		gid = user.GID
	}

	err = h.Profiles.Save(ctx, profile.Profile{
		TelegramID: sess.UserID,
		TGHandle:   handle,
		UserGID:    gid,
		UserName:   user.Name,
		Token:      token,
	})
	if err != nil {
		log.Error("failed to save profile", "err", err)
		h.notify(ctx, log, chatID, fmt.Sprintf(chatAuthOK, html.EscapeString(user.Name))+chatNotSaved)
		writeJSON(w, http.StatusInternalServerError, CallbackResponse{Message: statusAuthFailed})
		return
	}

	h.notify(ctx, log, chatID, fmt.Sprintf(chatAuthOK, html.EscapeString(user.Name))+chatSaved)
	log.Info("token saved")
	writeJSON(w, http.StatusOK, CallbackResponse{
		Message:   statusAuthSuccessful,
		UserName:  user.Name,
		UserToken: tokenSaved,
	})
}

// notify is best-effort; the HTTP outcome does not depend on it.
func (h *Handler) notify(ctx context.Context, log log15.Logger, chatID int64, text string) {
	if err := h.Notifier.Notify(ctx, chatID, text); err != nil {
		log.Error("failed to notify user", "chat", chatID, "err", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
