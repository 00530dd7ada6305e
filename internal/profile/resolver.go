package profile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"TodayBrief/db"
	"TodayBrief/utils"
)

var (
	// ErrProfileNotFound means the Telegram user never connected.
	ErrProfileNotFound = errors.New("profile: not found")
	// ErrNotProvisioned means no permanent token is on file for the display name.
	ErrNotProvisioned = errors.New("profile: token not provisioned")
)

const cacheKeyPrefix = "user_data:"

// Store is the durable side of the resolver.
type Store interface {
	GetBinding(ctx context.Context, userID int64) (db.Binding, error)
	SaveBinding(ctx context.Context, b db.Binding) error
	ProvisionedToken(ctx context.Context, name string) (db.ProvisionedUser, error)
}

// Profile is a Telegram user bound to an Asana identity.
type Profile struct {
	TelegramID int64
	TGHandle   string
	UserGID    string
	UserName   string
	Token      string
}

type cached struct {
	UserGID   string `json:"user_gid"`
	TGUser    string `json:"tg_user,omitempty"`
	UserName  string `json:"user_name"`
	UserToken string `json:"user_token"`
}

// Resolver reads profiles through the redis cache, falling back to the bot table.
type Resolver struct {
	rdb    redis.Cmdable
	store  Store
	sealer *utils.Sealer
	ttl    time.Duration
	log    log15.Logger
}

func NewResolver(rdb redis.Cmdable, store Store, sealer *utils.Sealer, ttl time.Duration, log log15.Logger) *Resolver {
	return &Resolver{rdb: rdb, store: store, sealer: sealer, ttl: ttl, log: log}
}

func cacheKey(telegramID int64) string {
	return cacheKeyPrefix + strconv.FormatInt(telegramID, 10)
}

// Get returns the profile of telegramID. Cache failures degrade to a database read.
func (r *Resolver) Get(ctx context.Context, telegramID int64) (Profile, error) {
	var c cached
	found, err := utils.GetJSON(ctx, r.rdb, cacheKey(telegramID), &c)
	if err != nil {
		r.log.Warn("profile cache read failed, falling back to db", "user", telegramID, "err", err)
	}
	if found && err == nil {
		token, err := r.sealer.Open(c.UserToken)
		if err == nil {
			return Profile{
				TelegramID: telegramID,
				TGHandle:   c.TGUser,
				UserGID:    c.UserGID,
				UserName:   c.UserName,
				Token:      token,
			}, nil
		}
		r.log.Warn("cached token unreadable, falling back to db", "user", telegramID, "err", err)
	}

	b, err := r.store.GetBinding(ctx, telegramID)
	if errors.Is(err, db.ErrNotFound) {
		return Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("Get: %w", err)
	}
	token, err := r.sealer.Open(b.UserToken)
	if err != nil {
		return Profile{}, fmt.Errorf("Get: user %d: %w", telegramID, err)
	}

	c = cached{UserGID: b.UserGID, UserName: b.UserName, UserToken: b.UserToken}
	if b.TGUser != nil {
		c.TGUser = *b.TGUser
	}
	if err := utils.SetJSON(ctx, r.rdb, cacheKey(telegramID), c, r.ttl); err != nil {
		r.log.Warn("failed to repopulate profile cache", "user", telegramID, "err", err)
	}

	return Profile{
		TelegramID: telegramID,
		TGHandle:   c.TGUser,
		UserGID:    b.UserGID,
		UserName:   b.UserName,
		Token:      token,
	}, nil
}

// Save writes the profile to the cache and the bot table. Both writes are
// attempted; the two stores are not updated atomically.
func (r *Resolver) Save(ctx context.Context, p Profile) error {
	sealed, err := r.sealer.Seal(p.Token)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	c := cached{UserGID: p.UserGID, TGUser: p.TGHandle, UserName: p.UserName, UserToken: sealed}
	var errs error
	if err := utils.SetJSON(ctx, r.rdb, cacheKey(p.TelegramID), c, r.ttl); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("cache: %w", err))
	}

	b := db.Binding{
		UserID:    p.TelegramID,
		UserName:  p.UserName,
		UserToken: sealed,
		UserGID:   p.UserGID,
	}
	if p.TGHandle != "" {
		handle := p.TGHandle
		b.TGUser = &handle
	}
	if err := r.store.SaveBinding(ctx, b); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("db: %w", err))
	}

	if errs != nil {
		return fmt.Errorf("Save: user %d: %w", p.TelegramID, errs)
	}
	return nil
}

// LookupToken returns the provisioned Asana gid and permanent token for a display name.
func (r *Resolver) LookupToken(ctx context.Context, name string) (gid, token string, err error) {
	u, err := r.store.ProvisionedToken(ctx, name)
	if errors.Is(err, db.ErrNotFound) {
		return "", "", ErrNotProvisioned
	}
	if err != nil {
		return "", "", fmt.Errorf("LookupToken: %w", err)
	}
	if u.UserToken == "" {
		return "", "", ErrNotProvisioned
	}
	return u.UserGID, u.UserToken, nil
}
