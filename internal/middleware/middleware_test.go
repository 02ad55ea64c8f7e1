package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jayg2309/bingekaro/internal/apperr"
	"github.com/jayg2309/bingekaro/internal/model"
	"github.com/jayg2309/bingekaro/internal/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers struct {
	active map[uint]bool
}

func (f fakeUsers) ActiveUser(_ context.Context, id uint) (*model.User, error) {
	if !f.active[id] {
		return nil, apperr.Unauthenticated("Not authorized, user not found")
	}
	return &model.User{ID: id, IsActive: true}, nil
}

func newAuthRouter(t *testing.T, users fakeUsers) (*gin.Engine, *token.Issuer) {
	t.Helper()
	issuer, err := token.NewIssuer("middleware-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer returned error: %v", err)
	}
	auth := NewAuthenticator(issuer, users, nil)
	r := gin.New()
	r.GET("/required", auth.Required(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": GetUserID(c)})
	})
	r.GET("/optional", auth.Optional(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": GetUserID(c)})
	})
	return r, issuer
}

func do(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func userOf(t *testing.T, w *httptest.ResponseRecorder) uint {
	t.Helper()
	var body struct {
		User uint `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body.User
}

func TestRequiredAuth(t *testing.T) {
	r, issuer := newAuthRouter(t, fakeUsers{active: map[uint]bool{7: true}})
	good, _, _ := issuer.Issue(7)
	inactive, _, _ := issuer.Issue(8)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Token " + good, http.StatusUnauthorized},
		{"garbage", "Bearer nonsense", http.StatusUnauthorized},
		{"inactive user", "Bearer " + inactive, http.StatusUnauthorized},
		{"valid", "Bearer " + good, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/required", map[string]string{"Authorization": tc.header})
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			if tc.status == http.StatusOK && userOf(t, w) != 7 {
				t.Fatalf("user id not propagated: %s", w.Body.String())
			}
		})
	}
}

func TestOptionalAuthFallsBackToAnonymous(t *testing.T) {
	r, issuer := newAuthRouter(t, fakeUsers{active: map[uint]bool{7: true}})
	good, _, _ := issuer.Issue(7)
	inactive, _, _ := issuer.Issue(8)

	if w := do(r, http.MethodGet, "/optional", nil); w.Code != http.StatusOK || userOf(t, w) != 0 {
		t.Fatalf("anonymous: %d %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodGet, "/optional", map[string]string{"Authorization": "Bearer bad"}); w.Code != http.StatusOK || userOf(t, w) != 0 {
		t.Fatalf("bad token: %d %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodGet, "/optional", map[string]string{"Authorization": "Bearer " + inactive}); userOf(t, w) != 0 {
		t.Fatalf("inactive user should be anonymous: %s", w.Body.String())
	}
	if w := do(r, http.MethodGet, "/optional", map[string]string{"Authorization": "Bearer " + good}); userOf(t, w) != 7 {
		t.Fatalf("valid token: %s", w.Body.String())
	}
}

func TestLoggerOmitsQueryString(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	r := gin.New()
	r.Use(Logger(logger))
	r.GET("/api/recommendations/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/api/recommendations/1?password=spook1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(buf.String(), "spook1") {
		t.Fatalf("secret leaked into log: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "/api/recommendations/1") {
		t.Fatalf("path missing from log: %s", buf.String())
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatal("request id header not set")
	}
}

func TestSecurityAndCORS(t *testing.T) {
	r := gin.New()
	r.Use(Security(), CORS([]string{"https://app.example/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/x", map[string]string{"Origin": "https://app.example"})
	if w.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Fatalf("allowed origin not echoed: %v", w.Header())
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}

	w = do(r, http.MethodGet, "/x", map[string]string{"Origin": "https://evil.example"})
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unknown origin allowed")
	}

	w = do(r, http.MethodOptions, "/x", map[string]string{"Origin": "https://app.example"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Hit(context.Context, string) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis down")
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewMemoryLimiter(time.Minute), 2, "api", "", nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		if w := do(r, http.MethodGet, "/x", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, w.Code)
		}
	}
	w := do(r, http.MethodGet, "/x", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" || w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("missing rate limit headers: %v", w.Header())
	}

	open := gin.New()
	open.Use(RateLimit(brokenLimiter{}, 1, "api", "", nil))
	open.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 3; i++ {
		if w := do(open, http.MethodGet, "/x", nil); w.Code != http.StatusOK {
			t.Fatalf("limiter errors should fail open, got %d", w.Code)
		}
	}
}

func TestMemoryLimiterWindow(t *testing.T) {
	l := NewMemoryLimiter(50 * time.Millisecond)
	ctx := context.Background()
	for want := int64(1); want <= 3; want++ {
		got, _, err := l.Hit(ctx, "k")
		if err != nil || got != want {
			t.Fatalf("Hit = %d, %v; want %d", got, err, want)
		}
	}
	time.Sleep(80 * time.Millisecond)
	if got, _, _ := l.Hit(ctx, "k"); got != 1 {
		t.Fatalf("count after window = %d, want 1", got)
	}
}
