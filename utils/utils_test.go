package utils

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSealer(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		s, err := NewSealer(strings.Repeat("k", 32))
		if err != nil {
			t.Fatalf("NewSealer: %v", err)
		}
		sealed, err := s.Seal("1/secret-token")
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		if !strings.HasPrefix(sealed, sealedPrefix) || strings.Contains(sealed, "secret") {
			t.Fatalf("sealed value leaks plain text: %q", sealed)
		}
		plain, err := s.Open(sealed)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if plain != "1/secret-token" {
			t.Fatalf("Open = %q", plain)
		}
	})

	t.Run("no key passes through", func(t *testing.T) {
		t.Parallel()
		s, err := NewSealer("")
		if err != nil {
			t.Fatalf("NewSealer: %v", err)
		}
		sealed, _ := s.Seal("tok")
		if sealed != "tok" {
			t.Fatalf("Seal = %q", sealed)
		}
		if _, err := s.Open(sealedPrefix + "AAAA"); err == nil {
			t.Fatal("expected error opening sealed value without key")
		}
	})

	t.Run("bad key", func(t *testing.T) {
		t.Parallel()
		if _, err := NewSealer("short"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("tampered", func(t *testing.T) {
		t.Parallel()
		s, _ := NewSealer(strings.Repeat("k", 32))
		other, _ := NewSealer(strings.Repeat("x", 32))
		sealed, _ := s.Seal("tok")
		if _, err := other.Open(sealed); err == nil {
			t.Fatal("expected error opening with wrong key")
		}
	})
}

func TestJSONHelpers(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := t.Context()

	type rec struct {
		A string `json:"a"`
	}

	if err := SetJSON(ctx, rdb, "k", rec{A: "x"}, time.Minute); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	var got rec
	found, err := GetJSON(ctx, rdb, "k", &got)
	if err != nil || !found || got.A != "x" {
		t.Fatalf("GetJSON = %v %v %+v", found, err, got)
	}

	found, err = TakeJSON(ctx, rdb, "k", &got)
	if err != nil || !found {
		t.Fatalf("TakeJSON = %v %v", found, err)
	}
	found, err = TakeJSON(ctx, rdb, "k", &got)
	if err != nil || found {
		t.Fatalf("second TakeJSON = %v %v, want not found", found, err)
	}

	mr.Set("bad", "{not json")
	if _, err := GetJSON(ctx, rdb, "bad", &got); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestStartOfDay(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("MSK", 3*3600)
	ts := time.Date(2025, 3, 4, 22, 30, 0, 0, time.UTC) // 01:30 next day in MSK
	got := StartOfDay(ts, loc)
	if got.Day() != 5 || got.Hour() != 0 || got.Location() != loc {
		t.Fatalf("StartOfDay = %v", got)
	}
}

func TestParseDueOn(t *testing.T) {
	t.Parallel()
	if d := ParseDueOn("2025-01-31"); d.Format(DueDateLayout) != "31-01-2025" {
		t.Fatalf("ParseDueOn = %v", d)
	}
	if !ParseDueOn("").IsZero() || !ParseDueOn("soon").IsZero() {
		t.Fatal("expected zero time")
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l, err := newLogger(&buf, "info", "logfmt")
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	l.Debug("hidden")
	l.Info("profile cached", "user", 42)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "user=42") {
		t.Fatalf("unexpected log output %q", out)
	}

	var jbuf bytes.Buffer
	jl, err := newLogger(&jbuf, "debug", "json")
	if err != nil {
		t.Fatalf("newLogger json: %v", err)
	}
	jl.Debug("state stored", "user", 42)
	if out := jbuf.String(); !strings.Contains(out, `"user":42`) || !strings.Contains(out, `"msg":"state stored"`) {
		t.Fatalf("unexpected json output %q", out)
	}

	if _, err := newLogger(&buf, "info", "xml"); err == nil {
		t.Fatal("expected format error")
	}
}
