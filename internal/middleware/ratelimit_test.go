package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("third request inside the window should be rejected")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other IPs have their own budget")
	}

	now = now.Add(time.Minute + time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Error("request after the window should pass")
	}

	now = now.Add(3 * time.Minute)
	rl.cleanup()
	if len(rl.requests) != 0 {
		t.Errorf("cleanup kept %d IPs, want 0", len(rl.requests))
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(1, time.Minute)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/gallery", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusNoContent {
		t.Fatalf("first status = %d, want 204", rec.Code)
	}
	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	for _, limit := range []int{0, -1} {
		h := RateLimit(limit, time.Minute)(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		for i := 0; i < 5; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/gallery", nil)
			req.RemoteAddr = "192.0.2.1:5555"
			rec := httptest.NewRecorder()
			h(rec, req)
			if rec.Code != http.StatusNoContent {
				t.Fatalf("limit %d request %d: status = %d, want 204", limit, i+1, rec.Code)
			}
		}
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		window time.Duration
		want   int
	}{
		{time.Minute, 60},
		{500 * time.Millisecond, 1},
		{1500 * time.Millisecond, 2},
		{0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.window.String(), func(t *testing.T) {
			if got := retryAfterSeconds(tt.window); got != tt.want {
				t.Errorf("retryAfterSeconds(%s) = %d, want %d", tt.window, got, tt.want)
			}
		})
	}
}

func TestRateLimit_SubSecondWindow(t *testing.T) {
	h := RateLimit(1, 500*time.Millisecond)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	var rec *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/gallery", nil)
		req.RemoteAddr = "192.0.2.9:5555"
		rec = httptest.NewRecorder()
		h(rec, req)
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.1:1", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": " 203.0.113.6 "}, "10.0.0.1:1", "203.0.113.6"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"ipv6 remote addr", nil, "[2001:db8::1]:443", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
