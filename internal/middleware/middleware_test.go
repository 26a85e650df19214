package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/todo-app/internal/config"
	"github.com/iliyamo/todo-app/internal/model"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubVerifier struct{ want string }

func (s stubVerifier) VerifyAccess(_ context.Context, token string) (*model.User, error) {
	if token != s.want {
		return nil, echo.ErrUnauthorized
	}
	return &model.User{ID: "u1", Username: "alice"}, nil
}

func runAuth(t *testing.T, req *http.Request) (string, error) {
	t.Helper()
	e := echo.New()
	c := e.NewContext(req, httptest.NewRecorder())
	var seen string
	err := Auth(stubVerifier{want: "good"})(func(c echo.Context) error {
		seen = UserID(c)
		return c.NoContent(http.StatusOK)
	})(c)
	return seen, err
}

func TestAuthReadsCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "good"})
	uid, err := runAuth(t, req)
	if err != nil || uid != "u1" {
		t.Fatalf("Auth(cookie) = %q, %v", uid, err)
	}
}

func TestAuthReadsBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "bearer good")
	uid, err := runAuth(t, req)
	if err != nil || uid != "u1" {
		t.Fatalf("Auth(bearer) = %q, %v", uid, err)
	}
}

func TestAuthRejects(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer bad")
	uid, err := runAuth(t, req)
	if !errors.Is(err, echo.ErrUnauthorized) || uid != "" {
		t.Fatalf("Auth(bad) = %q, %v", uid, err)
	}
}

func TestMemLimiter(t *testing.T) {
	cfg := config.RateLimitConfig{Capacity: 2, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute}
	m := newMemLimiter(cfg)
	now := time.Now()

	for i := 0; i < 2; i++ {
		if d := m.take("k", now); !d.allowed {
			t.Fatalf("take #%d denied", i+1)
		}
	}
	d := m.take("k", now)
	if d.allowed {
		t.Fatal("third take within the same instant allowed")
	}
	if d.retry <= 0 || d.retry > time.Second {
		t.Errorf("retry = %s, want (0, 1s]", d.retry)
	}
	if !m.take("other", now).allowed {
		t.Error("independent key denied")
	}
	if !m.take("k", now.Add(time.Second)).allowed {
		t.Error("take after refill denied")
	}
}

func TestTokenBucketFallbackReturns429(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour, KeyStrategy: "ip", Prefix: "t"}
	mw := NewTokenBucket(cfg, nil, discard)
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e := echo.New()

	call := func() error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		return h(e.NewContext(req, httptest.NewRecorder()))
	}
	if err := call(); err != nil {
		t.Fatalf("first request: %v", err)
	}
	var he *echo.HTTPError
	if err := call(); !errors.As(err, &he) || he.Code != http.StatusTooManyRequests {
		t.Fatalf("second request error = %v, want 429", err)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/users/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/users/login")

	cfg := config.RateLimitConfig{Prefix: "todo:rl", KeyStrategy: "ip_route"}
	if got, want := buildRateKey(cfg, c), "todo:rl:ip:10.0.0.1:route:POST /api/users/login"; got != want {
		t.Errorf("buildRateKey() = %q, want %q", got, want)
	}
	SetUser(c, &model.User{ID: "u1"})
	cfg.KeyStrategy = "user"
	if got, want := buildRateKey(cfg, c), "todo:rl:user:u1"; got != want {
		t.Errorf("buildRateKey(user) = %q, want %q", got, want)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	if err != nil {
		t.Fatalf("encodePayload() unexpected error: %v", err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || got.Get("Content-Type") != "application/json" || string(body) != `{"ok":true}` {
		t.Errorf("decodePayload() = %d %v %q %v", status, got, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{0, 0, 0, 200, 0, 0, 9, 9}); ok {
		t.Error("decodePayload(corrupt) ok = true")
	}
}

func TestCacheKeysAreScopedPerUser(t *testing.T) {
	rc := NewCache(config.CacheConfig{Prefix: "todo:cache"}, nil, discard)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users/get-user-todos", nil), httptest.NewRecorder())
	c.SetPath("/api/users/get-user-todos")

	a, b := rc.key(c, "alice"), rc.key(c, "bob")
	if a == b {
		t.Fatal("cache keys collide across users")
	}
	if want := "todo:cache:user:alice:"; a[:len(want)] != want {
		t.Errorf("key %q lacks user prefix %q", a, want)
	}
}

func TestCacheDisabledPassesThrough(t *testing.T) {
	rc := NewCache(config.CacheConfig{Enabled: true}, nil, discard)
	called := false
	h := rc.Middleware()(func(c echo.Context) error { called = true; return nil })
	e := echo.New()
	if err := h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())); err != nil || !called {
		t.Fatalf("disabled cache: called=%v err=%v", called, err)
	}
	if err := rc.Invalidate(context.Background(), "u1"); err != nil {
		t.Errorf("Invalidate() on disabled cache: %v", err)
	}
}

func TestReplayHeadersKeepsPerRequestValues(t *testing.T) {
	live := http.Header{}
	live.Set(echo.HeaderXRequestID, "req-new")
	live.Set("X-RateLimit-Remaining", "41")
	live.Set("X-Frame-Options", "DENY")

	stored := http.Header{}
	stored.Set(echo.HeaderXRequestID, "req-old")
	stored.Set("X-RateLimit-Remaining", "59")
	stored.Set("X-Frame-Options", "DENY")
	stored.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	stored.Set(echo.HeaderContentLength, "12")

	replayHeaders(live, stored)

	if got := live.Values(echo.HeaderXRequestID); len(got) != 1 || got[0] != "req-new" {
		t.Errorf("X-Request-Id = %v, want only the current id", got)
	}
	if got := live.Values("X-RateLimit-Remaining"); len(got) != 1 || got[0] != "41" {
		t.Errorf("X-RateLimit-Remaining = %v, want the current count", got)
	}
	if got := live.Values("X-Frame-Options"); len(got) != 1 {
		t.Errorf("X-Frame-Options = %v, want a single value", got)
	}
	if live.Get(echo.HeaderContentType) != echo.MIMEApplicationJSON {
		t.Errorf("Content-Type not replayed")
	}
	if live.Get(echo.HeaderContentLength) != "" {
		t.Errorf("Content-Length replayed from the stored response")
	}
}
