package session

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeURLs struct{}

func (fakeURLs) AuthCodeURL(state string) string {
	return "https://auth.example.com/authorize?state=" + url.QueryEscape(state)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCreateAndResolve(t *testing.T) {
	t.Parallel()
	mr, rdb := newRedis(t)
	m := NewManager(rdb, fakeURLs{}, 10*time.Minute)

	authURL, state, err := m.Create(t.Context(), 42, 4200, "alice")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(state) != 32 {
		t.Fatalf("state %q is not 128 bits of hex", state)
	}
	u, _ := url.Parse(authURL)
	if u.Query().Get("state") != state {
		t.Fatalf("url %s does not carry state", authURL)
	}
	if ttl := mr.TTL(stateKeyPrefix + state); ttl != 10*time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}

	s, err := m.Resolve(t.Context(), state)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s != (Session{UserID: 42, ChatID: 4200, Handle: "alice"}) {
		t.Fatalf("session = %+v", s)
	}

	if _, err := m.Resolve(t.Context(), state); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second Resolve: err = %v, want ErrSessionNotFound", err)
	}
}

func TestResolveUnknownAndExpired(t *testing.T) {
	t.Parallel()
	mr, rdb := newRedis(t)
	m := NewManager(rdb, fakeURLs{}, time.Minute)

	if _, err := m.Resolve(t.Context(), "never-issued"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("unknown: err = %v", err)
	}

	_, state, err := m.Create(t.Context(), 1, 1, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	mr.FastForward(time.Minute + time.Second)
	if _, err := m.Resolve(t.Context(), state); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired: err = %v", err)
	}
}

func TestStatesAreUnique(t *testing.T) {
	t.Parallel()
	_, rdb := newRedis(t)
	m := NewManager(rdb, fakeURLs{}, time.Minute)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		_, state, err := m.Create(t.Context(), int64(i), int64(i), "")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if seen[state] {
			t.Fatalf("duplicate state %s", state)
		}
		seen[state] = true
	}
}

func TestResolveRedisDown(t *testing.T) {
	t.Parallel()
	mr, rdb := newRedis(t)
	m := NewManager(rdb, fakeURLs{}, time.Minute)
	mr.Close()

	_, err := m.Resolve(t.Context(), "abc")
	if err == nil || errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want a redis error", err)
	}
}

func TestNoteConversation(t *testing.T) {
	t.Parallel()

	t.Run("happy path", func(t *testing.T) {
		t.Parallel()
		mr, rdb := newRedis(t)
		n := NewNotes(rdb, 30*time.Minute)
		ctx := t.Context()

		if err := n.Begin(ctx, 7, 70); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		st, err := n.Submit(ctx, 7, "first draft")
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if st.Phase != PhaseAwaitingConfirmation || st.Note != "first draft" || st.ChatID != 70 {
			t.Fatalf("after Submit: %+v", st)
		}
		if ttl := mr.TTL(noteKey(7)); ttl != 30*time.Minute {
			t.Fatalf("ttl = %v", ttl)
		}

		if st, err = n.Rewrite(ctx, 7); err != nil || st.Phase != PhaseAwaitingText || st.Note != "" {
			t.Fatalf("Rewrite: %+v %v", st, err)
		}
		if _, err = n.Submit(ctx, 7, "second draft"); err != nil {
			t.Fatalf("Submit: %v", err)
		}

		st, err = n.Confirm(ctx, 7)
		if err != nil {
			t.Fatalf("Confirm: %v", err)
		}
		if st.Note != "second draft" {
			t.Fatalf("confirmed note = %q", st.Note)
		}
		if mr.Exists(noteKey(7)) {
			t.Fatal("state survives Confirm")
		}
		if st, _ := n.State(ctx, 7); st.Phase != PhaseIdle {
			t.Fatalf("phase after Confirm = %s", st.Phase)
		}
	})

	t.Run("guards", func(t *testing.T) {
		t.Parallel()
		_, rdb := newRedis(t)
		n := NewNotes(rdb, time.Minute)
		ctx := t.Context()

		if _, err := n.Submit(ctx, 1, "text"); !errors.Is(err, ErrStaleConversation) {
			t.Fatalf("Submit while idle: %v", err)
		}
		if _, err := n.Confirm(ctx, 1); !errors.Is(err, ErrStaleConversation) {
			t.Fatalf("Confirm while idle: %v", err)
		}
		if _, err := n.Rewrite(ctx, 1); !errors.Is(err, ErrStaleConversation) {
			t.Fatalf("Rewrite while idle: %v", err)
		}

		if err := n.Begin(ctx, 1, 1); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		if _, err := n.Confirm(ctx, 1); !errors.Is(err, ErrStaleConversation) {
			t.Fatalf("Confirm while awaiting text: %v", err)
		}
	})

	t.Run("begin overwrites pending", func(t *testing.T) {
		t.Parallel()
		_, rdb := newRedis(t)
		n := NewNotes(rdb, time.Minute)
		ctx := t.Context()

		_ = n.Begin(ctx, 3, 3)
		_, _ = n.Submit(ctx, 3, "old")
		if err := n.Begin(ctx, 3, 30); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		st, _ := n.State(ctx, 3)
		if st.Phase != PhaseAwaitingText || st.Note != "" || st.ChatID != 30 {
			t.Fatalf("state = %+v", st)
		}
	})

	t.Run("expiry", func(t *testing.T) {
		t.Parallel()
		mr, rdb := newRedis(t)
		n := NewNotes(rdb, time.Minute)
		ctx := t.Context()

		_ = n.Begin(ctx, 9, 9)
		mr.FastForward(2 * time.Minute)
		if _, err := n.Submit(ctx, 9, "late"); !errors.Is(err, ErrStaleConversation) {
			t.Fatalf("Submit after expiry: %v", err)
		}
	})
}
