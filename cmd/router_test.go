package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"TodayBrief/api"
	"TodayBrief/utils"
)

func TestSetupRouter(t *testing.T) {
	t.Parallel()
	checks := map[string]api.Pinger{"redis": func(context.Context) error { return nil }}
	srv := httptest.NewServer(SetupRouter(&api.Handler{Log: utils.Discard()}, checks, utils.Discard()))
	t.Cleanup(srv.Close)

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/callback", http.StatusBadRequest},
		{http.MethodPost, "/callback", http.StatusMethodNotAllowed},
		{http.MethodGet, "/oauth/start", http.StatusNotFound},
	}
	for _, tt := range tests {
		req, err := http.NewRequestWithContext(t.Context(), tt.method, srv.URL+tt.path, nil)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tt.method, tt.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, resp.StatusCode, tt.want)
		}
	}
}
