package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carelink/carelink-be/internal/auth"
)

type stubTokens map[string]auth.Caller

func (s stubTokens) ParseAccess(token string) (auth.Caller, error) {
	c, ok := s[token]
	if !ok {
		return auth.Caller{}, errors.New("bad token")
	}
	return c, nil
}

func TestAuthenticate(t *testing.T) {
	var seen auth.Caller
	h := Authenticate(stubTokens{"good": {UserID: 7, Username: "alice"}})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.CallerFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Token good", http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"Bearer good", http.StatusOK},
		{"bearer good", http.StatusOK},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%q: status %d, want %d", tc.header, rec.Code, tc.want)
		}
	}
	if seen.UserID != 7 {
		t.Fatalf("caller not stored, got %+v", seen)
	}
}

func TestThrottle(t *testing.T) {
	th := NewThrottle(1, 2)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	th.now = func() time.Time { return clock }
	h := th.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/doctors", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("10.0.0.1:1234"); rec.Code != http.StatusOK {
			t.Fatalf("request %d throttled early", i+1)
		}
	}
	rec := do("10.0.0.1:5678")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rec.Code)
	}
	if rec := do("10.0.0.2:1234"); rec.Code != http.StatusOK {
		t.Fatalf("other clients must not share a bucket, got %d", rec.Code)
	}

	clock = clock.Add(time.Second)
	if rec := do("10.0.0.1:1234"); rec.Code != http.StatusOK {
		t.Fatalf("bucket should refill, got %d", rec.Code)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("allowed origin header = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("disallowed origin got header %q", got)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4321"
	if got := ClientIP(req); got != "192.0.2.1" {
		t.Fatalf("ClientIP = %q", got)
	}
	req.RemoteAddr = "192.0.2.9"
	if got := ClientIP(req); got != "192.0.2.9" {
		t.Fatalf("ClientIP without port = %q", got)
	}
}

func TestRealIP(t *testing.T) {
	tests := []struct {
		name    string
		proxies []string
		remote  string
		xff     string
		want    string
	}{
		{"no proxies ignores header", nil, "192.0.2.1:4321", "203.0.113.7", "192.0.2.1"},
		{"untrusted peer ignores header", []string{"10.0.0.0/8"}, "192.0.2.1:4321", "203.0.113.7", "192.0.2.1"},
		{"trusted peer", []string{"10.0.0.0/8"}, "10.0.0.2:4321", "203.0.113.7", "203.0.113.7"},
		{"skips trusted hops", []string{"10.0.0.0/8"}, "10.0.0.2:4321", "198.51.100.1, 203.0.113.7, 10.0.0.3", "203.0.113.7"},
		{"trusted peer without header", []string{"10.0.0.2"}, "10.0.0.2:4321", "", "10.0.0.2"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mw, err := RealIP(tc.proxies)
			if err != nil {
				t.Fatalf("RealIP: %v", err)
			}
			var got string
			h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ClientIP(r)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			req.Header.Set("X-Real-IP", "198.51.100.99")
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tc.want {
				t.Fatalf("client ip = %q, want %q", got, tc.want)
			}
		})
	}

	if _, err := RealIP([]string{"not-an-address"}); err == nil {
		t.Fatal("expected error for invalid proxy entry")
	}
}
