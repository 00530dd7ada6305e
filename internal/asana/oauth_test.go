package asana

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestAuthCodeURL(t *testing.T) {
	t.Parallel()
	o := NewOAuth("cid", "secret", "https://bot.example.com/callback", "https://app.asana.com/-/oauth_authorize", "https://app.asana.com/-/oauth_token", nil)

	raw := o.AuthCodeURL("abc123")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	q := u.Query()
	if u.Host != "app.asana.com" || u.Path != "/-/oauth_authorize" {
		t.Fatalf("url = %s", raw)
	}
	want := map[string]string{
		"response_type": "code",
		"client_id":     "cid",
		"redirect_uri":  "https://bot.example.com/callback",
		"state":         "abc123",
	}
	for k, v := range want {
		if q.Get(k) != v {
			t.Errorf("%s = %q, want %q", k, q.Get(k), v)
		}
	}
}

func TestExchange(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		errCh := make(chan error, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				errCh <- err
				return
			}
			want := map[string]string{
				"grant_type":    "authorization_code",
				"client_id":     "cid",
				"client_secret": "secret",
				"redirect_uri":  "https://bot.example.com/callback",
				"code":          "the-code",
			}
			for k, v := range want {
				if r.PostForm.Get(k) != v {
					errCh <- fmt.Errorf("%s = %q, want %q", k, r.PostForm.Get(k), v)
					return
				}
			}
			errCh <- nil
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"short-lived","token_type":"bearer","expires_in":3600}`))
		}))
		t.Cleanup(srv.Close)

		o := NewOAuth("cid", "secret", "https://bot.example.com/callback", srv.URL+"/authorize", srv.URL+"/token", srv.Client())
		tok, err := o.Exchange(t.Context(), "the-code")
		if err != nil {
			t.Fatalf("Exchange: %v", err)
		}
		if err := <-errCh; err != nil {
			t.Fatal(err)
		}
		if tok != "short-lived" {
			t.Fatalf("token = %q", tok)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		t.Parallel()
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		}))
		t.Cleanup(srv.Close)

		o := NewOAuth("cid", "secret", "https://bot.example.com/callback", srv.URL+"/authorize", srv.URL+"/token", srv.Client())
		if _, err := o.Exchange(t.Context(), "used-code"); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("err = %v", err)
		}
		if calls != 1 {
			t.Fatalf("calls = %d, want exactly one attempt", calls)
		}
	})
}
