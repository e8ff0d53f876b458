package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenBucketBurstAndRefill(t *testing.T) {
	// 2 token burst, 10 tokens/second refill.
	tb := newTokenBucket(2, 10)

	for i := 0; i < 2; i++ {
		allowed, _, _, _ := tb.allow()
		if !allowed {
			t.Fatalf("request %d within burst denied", i+1)
		}
	}
	allowed, _, next, _ := tb.allow()
	if allowed {
		t.Fatal("request beyond burst allowed")
	}
	if wait := time.Until(next); wait <= 0 || wait > time.Second {
		t.Fatalf("next token estimate out of range: %v", wait)
	}

	time.Sleep(150 * time.Millisecond)
	if allowed, _, _, _ := tb.allow(); !allowed {
		t.Fatal("no token after refill window")
	}
}

func TestRateLimitMiddleware429(t *testing.T) {
	mw := RateLimitMiddleware(RateLimitConfig{WindowSeconds: 60, MaxRequests: 10, Burst: 2})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/api/users/", nil)
		req.RemoteAddr = "10.0.0.9:41000"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)

		if last.Header().Get("X-RateLimit-Limit") == "" {
			t.Fatalf("request %d missing X-RateLimit-Limit", i+1)
		}
		wantCode := 200
		if i == 2 {
			wantCode = http.StatusTooManyRequests
		}
		if last.Code != wantCode {
			t.Fatalf("request %d: code=%d want %d", i+1, last.Code, wantCode)
		}
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatal("429 missing Retry-After")
	}

	// A different client gets its own bucket.
	req := httptest.NewRequest("POST", "/api/users/", nil)
	req.RemoteAddr = "10.0.0.10:41000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("fresh client denied: %d", rec.Code)
	}
}
