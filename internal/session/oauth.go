package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"TodayBrief/utils"
)

// ErrSessionNotFound covers unknown, expired and already consumed states.
var ErrSessionNotFound = errors.New("session: not found")

const (
	stateKeyPrefix = "oauth_state:"
	stateBytes     = 16
)

// URLBuilder turns a state into an authorization URL.
type URLBuilder interface {
	AuthCodeURL(state string) string
}

// Session is the owner bound to an OAuth state.
type Session struct {
	UserID int64  `json:"user_id"`
	ChatID int64  `json:"chat_id"`
	Handle string `json:"tg_user,omitempty"`
}

// Manager issues and resolves single-use OAuth states.
type Manager struct {
	rdb    redis.Cmdable
	urls   URLBuilder
	ttl    time.Duration
	random func() (string, error)
}

func NewManager(rdb redis.Cmdable, urls URLBuilder, ttl time.Duration) *Manager {
	return &Manager{rdb: rdb, urls: urls, ttl: ttl, random: newState}
}

// Create binds a fresh state to the user and returns the URL to send them to.
func (m *Manager) Create(ctx context.Context, userID, chatID int64, handle string) (authURL, state string, err error) {
	state, err = m.random()
	if err != nil {
		return "", "", fmt.Errorf("Create: %w", err)
	}
	s := Session{UserID: userID, ChatID: chatID, Handle: handle}
	if err := utils.SetJSON(ctx, m.rdb, stateKeyPrefix+state, s, m.ttl); err != nil {
		return "", "", fmt.Errorf("Create: failed to store state for user %d: %w", userID, err)
	}
	return m.urls.AuthCodeURL(state), state, nil
}

// Resolve returns the owner of state and removes it, so a state resolves at most once.
func (m *Manager) Resolve(ctx context.Context, state string) (Session, error) {
	var s Session
	found, err := utils.TakeJSON(ctx, m.rdb, stateKeyPrefix+state, &s)
	if err != nil {
		return Session{}, fmt.Errorf("Resolve: %w", err)
	}
	if !found {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func newState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
