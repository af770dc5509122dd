package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/carelink/carelink-be/internal/accounts"
	"github.com/carelink/carelink-be/internal/auth"
	"github.com/carelink/carelink-be/internal/config"
	"github.com/carelink/carelink-be/internal/ratelimit"
	"github.com/carelink/carelink-be/internal/records"
	"github.com/carelink/carelink-be/internal/storage/memory"
)

type envelope struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type client struct {
	t      *testing.T
	router http.Handler
	ip     string
	token  string
	header http.Header
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	return newRouterWith(t, config.Config{
		Port:               "0",
		CORSAllowedOrigins: "*",
		ThrottleRPS:        1000,
		ThrottleBurst:      1000,
	})
}

func newRouterWith(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()
	store := memory.NewStore()
	tokens := auth.NewTokenManager("test-secret", "carelink-test", 15*time.Minute, time.Hour)
	accountSvc := accounts.NewService(store, tokens, ratelimit.New(memory.NewCounterCache()), accounts.Options{
		BcryptCost: bcrypt.MinCost,
	})
	router, err := NewRouter(cfg, Deps{Accounts: accountSvc, Records: records.NewService(store), Tokens: tokens})
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return router
}

func (c *client) do(method, path string, body any) (int, envelope, http.Header) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = c.ip + ":40000"
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			c.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, env, rec.Header()
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode data %s: %v", raw, err)
	}
	return out
}

type registered struct {
	User struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Tokens struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	} `json:"tokens"`
}

func register(t *testing.T, c *client, username string) registered {
	t.Helper()
	code, env, _ := c.do(http.MethodPost, "/api/auth/register/", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "Kq7!vRm2#xLp",
	})
	if code != http.StatusCreated {
		t.Fatalf("register %s: status %d %+v", username, code, env)
	}
	return decode[registered](t, env.Data)
}

func TestOwnershipScenario(t *testing.T) {
	router := newRouter(t)
	alice := &client{t: t, router: router, ip: "10.0.0.1"}
	bob := &client{t: t, router: router, ip: "10.0.0.2"}

	a := register(t, alice, "alice")
	if a.Tokens.Access == "" || a.Tokens.Refresh == "" {
		t.Fatalf("register returned no tokens: %+v", a)
	}
	alice.token = a.Tokens.Access
	bob.token = register(t, bob, "bob").Tokens.Access

	code, env, _ := alice.do(http.MethodPost, "/api/patients/", map[string]string{
		"first_name": "Bob",
		"email":      "bob@example.com",
	})
	if code != http.StatusCreated {
		t.Fatalf("create patient: %d %+v", code, env)
	}
	patient := decode[struct {
		ID int64 `json:"id"`
	}](t, env.Data)

	if code, _, _ := bob.do(http.MethodDelete, fmt.Sprintf("/api/patients/%d/", patient.ID), nil); code != http.StatusForbidden {
		t.Fatalf("foreign delete: status %d, want 403", code)
	}
	if code, _, _ := bob.do(http.MethodGet, fmt.Sprintf("/api/patients/%d", patient.ID), nil); code != http.StatusNotFound {
		t.Fatalf("foreign read: status %d, want 404", code)
	}

	code, env, _ = alice.do(http.MethodPost, "/api/doctors/", map[string]string{
		"first_name":     "Gregory",
		"email":          "doc@example.com",
		"specialization": "Cardiology",
	})
	if code != http.StatusCreated {
		t.Fatalf("create doctor: %d %+v", code, env)
	}
	doctor := decode[struct {
		ID int64 `json:"id"`
	}](t, env.Data)

	mapping := map[string]int64{"patient": patient.ID, "doctor": doctor.ID}
	code, env, _ = alice.do(http.MethodPost, "/api/mappings/", mapping)
	if code != http.StatusCreated {
		t.Fatalf("create mapping: %d %+v", code, env)
	}
	detail := decode[struct {
		Patient       int64 `json:"patient"`
		PatientDetail struct {
			Email string `json:"email"`
		} `json:"patient_detail"`
		DoctorDetail struct {
			Specialization string `json:"specialization"`
		} `json:"doctor_detail"`
	}](t, env.Data)
	if detail.Patient != patient.ID || detail.PatientDetail.Email != "bob@example.com" || detail.DoctorDetail.Specialization != "Cardiology" {
		t.Fatalf("mapping detail incomplete: %+v", detail)
	}

	code, env, _ = alice.do(http.MethodPost, "/api/mappings/", mapping)
	if code != http.StatusBadRequest || env.Errors["non_field_errors"] == "" {
		t.Fatalf("duplicate mapping: %d %+v", code, env)
	}

	code, env, _ = alice.do(http.MethodGet, fmt.Sprintf("/api/patients/%d/mappings/", patient.ID), nil)
	if code != http.StatusOK {
		t.Fatalf("patient mappings: %d %+v", code, env)
	}
	if n := len(decode[[]json.RawMessage](t, env.Data)); n != 1 {
		t.Fatalf("patient mappings = %d, want 1", n)
	}

	if code, _, _ := alice.do(http.MethodDelete, fmt.Sprintf("/api/patients/%d", patient.ID), nil); code != http.StatusNoContent {
		t.Fatalf("owner delete: status %d", code)
	}
}

func TestValidationErrorsAreReportedPerField(t *testing.T) {
	router := newRouter(t)
	c := &client{t: t, router: router, ip: "10.0.0.5"}
	c.token = register(t, c, "carol").Tokens.Access

	code, env, _ := c.do(http.MethodPost, "/api/patients", map[string]string{
		"first_name":    "<b></b>",
		"email":         "not-an-email",
		"phone":         "123",
		"date_of_birth": "yesterday",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("status %d", code)
	}
	for _, field := range []string{"first_name", "email", "phone", "date_of_birth"} {
		if env.Errors[field] == "" {
			t.Errorf("missing error for %s: %+v", field, env.Errors)
		}
	}
}

func TestUnauthenticatedRecordAccess(t *testing.T) {
	c := &client{t: t, router: newRouter(t), ip: "10.0.0.6"}
	if code, _, _ := c.do(http.MethodGet, "/api/doctors/", nil); code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", code)
	}
	c.token = "garbage"
	if code, _, _ := c.do(http.MethodGet, "/api/doctors/", nil); code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", code)
	}
}

func TestRegisterRateLimit(t *testing.T) {
	c := &client{t: t, router: newRouter(t), ip: "10.0.0.7"}
	for i := 0; i < 5; i++ {
		code, _, _ := c.do(http.MethodPost, "/api/auth/register/", map[string]string{"username": "", "password": "x"})
		if code != http.StatusBadRequest {
			t.Fatalf("attempt %d: status %d, want 400", i+1, code)
		}
	}
	code, _, hdr := c.do(http.MethodPost, "/api/auth/register/", map[string]string{
		"username": "valid", "password": "Kq7!vRm2#xLp",
	})
	if code != http.StatusTooManyRequests {
		t.Fatalf("sixth attempt: status %d, want 429", code)
	}
	if hdr.Get("Retry-After") != "3600" {
		t.Fatalf("Retry-After = %q", hdr.Get("Retry-After"))
	}
}

func TestRegisterRateLimitIgnoresForwardedHeaders(t *testing.T) {
	c := &client{t: t, router: newRouter(t), ip: "10.0.0.1"}
	var codes []int
	for i := 1; i <= 6; i++ {
		c.header = http.Header{}
		c.header.Set("X-Real-IP", fmt.Sprintf("203.0.113.%d", i))
		c.header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		c.header.Set("True-Client-IP", fmt.Sprintf("192.0.2.%d", i))
		code, _, _ := c.do(http.MethodPost, "/api/auth/register/", map[string]string{
			"username": fmt.Sprintf("spoof%d", i), "password": "Kq7!vRm2#xLp",
		})
		codes = append(codes, code)
	}
	for i, code := range codes[:5] {
		if code != http.StatusCreated {
			t.Fatalf("attempt %d: status %d, want 201 (codes %v)", i+1, code, codes)
		}
	}
	if codes[5] != http.StatusTooManyRequests {
		t.Fatalf("sixth attempt from one socket: status %d, want 429 (codes %v)", codes[5], codes)
	}
}

func TestTrustedProxyForwardsClientAddress(t *testing.T) {
	router := newRouterWith(t, config.Config{
		Port:               "0",
		CORSAllowedOrigins: "*",
		TrustedProxies:     "10.0.0.0/8",
		ThrottleRPS:        1000,
		ThrottleBurst:      1000,
	})

	// Behind the proxy, each forwarded client has its own budget.
	for i := 1; i <= 6; i++ {
		c := &client{t: t, router: router, ip: "10.1.2.3", header: http.Header{}}
		c.header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		code, _, _ := c.do(http.MethodPost, "/api/auth/register/", map[string]string{
			"username": fmt.Sprintf("proxied%d", i), "password": "Kq7!vRm2#xLp",
		})
		if code != http.StatusCreated {
			t.Fatalf("client %d behind proxy: status %d, want 201", i, code)
		}
	}

	// An untrusted peer's header is ignored, so it shares one budget.
	direct := &client{t: t, router: router, ip: "192.0.2.50"}
	for i := 1; i <= 6; i++ {
		direct.header = http.Header{}
		direct.header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		code, _, _ := direct.do(http.MethodPost, "/api/auth/register/", map[string]string{"username": ""})
		want := http.StatusBadRequest
		if i == 6 {
			want = http.StatusTooManyRequests
		}
		if code != want {
			t.Fatalf("direct attempt %d: status %d, want %d", i, code, want)
		}
	}
}

func TestLoginRateLimit(t *testing.T) {
	router := newRouter(t)
	register(t, &client{t: t, router: router, ip: "10.0.0.8"}, "dave")

	c := &client{t: t, router: router, ip: "10.0.0.9"}
	for i := 0; i < 10; i++ {
		code, _, _ := c.do(http.MethodPost, "/api/auth/login/", map[string]string{"username": "dave", "password": "wrong-pass"})
		if code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status %d, want 401", i+1, code)
		}
	}
	code, _, _ := c.do(http.MethodPost, "/api/auth/login/", map[string]string{"username": "dave", "password": "Kq7!vRm2#xLp"})
	if code != http.StatusTooManyRequests {
		t.Fatalf("eleventh attempt: status %d, want 429", code)
	}
}

func TestLoginAndRefresh(t *testing.T) {
	router := newRouter(t)
	c := &client{t: t, router: router, ip: "10.0.0.10"}
	register(t, c, "erin")

	code, env, _ := c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "erin", "password": "Kq7!vRm2#xLp"})
	if code != http.StatusOK {
		t.Fatalf("login: %d %+v", code, env)
	}
	pair := decode[auth.TokenPair](t, env.Data)

	code, env, _ = c.do(http.MethodPost, "/api/auth/token/refresh/", map[string]string{"refresh": pair.Refresh})
	if code != http.StatusOK {
		t.Fatalf("refresh: %d %+v", code, env)
	}
	if decode[map[string]string](t, env.Data)["access"] == "" {
		t.Fatal("refresh returned no access token")
	}

	code, _, _ = c.do(http.MethodPost, "/api/auth/token/refresh/", map[string]string{"refresh": pair.Access})
	if code != http.StatusUnauthorized {
		t.Fatalf("refresh with access token: status %d, want 401", code)
	}
}

func TestHealth(t *testing.T) {
	c := &client{t: t, router: newRouter(t), ip: "10.0.0.11"}
	code, env, _ := c.do(http.MethodGet, "/health", nil)
	if code != http.StatusOK || decode[map[string]string](t, env.Data)["status"] != "ok" {
		t.Fatalf("health: %d %+v", code, env)
	}
}
