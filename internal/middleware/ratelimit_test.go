package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	t.Run("バースト上限を超えると429になる", func(t *testing.T) {
		rl := NewRateLimiter(RateLimiterConfig{
			RequestsPerMinute: 60,
			Burst:             3,
			CleanupInterval:   time.Minute,
		})
		defer rl.Stop()

		handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		var got429 bool
		for i := 0; i < 10; i++ {
			req := httptest.NewRequest(http.MethodGet, "/events-data", nil)
			req.RemoteAddr = "203.0.113.1:12345"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code == http.StatusTooManyRequests {
				got429 = true
				if rec.Header().Get("Retry-After") == "" {
					t.Error("expected Retry-After header on 429")
				}
				break
			}
		}
		if !got429 {
			t.Error("expected 429 after exceeding burst")
		}
	})

	t.Run("別IPのクライアントは独立して制限される", func(t *testing.T) {
		rl := NewRateLimiter(RateLimiterConfig{
			RequestsPerMinute: 60,
			Burst:             1,
			CleanupInterval:   time.Minute,
		})
		defer rl.Stop()

		handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		// 1つ目のIPでバーストを消費
		req := httptest.NewRequest(http.MethodGet, "/events-data", nil)
		req.RemoteAddr = "203.0.113.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status for first IP: %d", rec.Code)
		}

		// 別IPは制限されない
		req2 := httptest.NewRequest(http.MethodGet, "/events-data", nil)
		req2.RemoteAddr = "203.0.113.2:12345"
		rec2 := httptest.NewRecorder()
		handler.ServeHTTP(rec2, req2)
		if rec2.Code != http.StatusOK {
			t.Errorf("second IP should not be limited: %d", rec2.Code)
		}
	})
}
