package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"mamiland-backend-go/internal/config"
	"mamiland-backend-go/internal/models"
	"mamiland-backend-go/internal/services"

	"golang.org/x/time/rate"
)

func testServer(env string) *Server {
	return &Server{
		Config: config.Config{
			Env:                   env,
			AccountLifetimeMonths: 1,
			RateLimitRPS:          100,
			RateLimitBurst:        100,
		},
		Tokens: services.TokenService{
			Secret:     []byte("test-secret"),
			Issuer:     "mamiland-test",
			SessionTTL: time.Hour,
			GrantTTL:   time.Minute,
		},
		MetricsHub: services.NewMetricsHub(),
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func TestRouterHealthAndNotFound(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	router := testServer("development").Router(ctx)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("GET /health = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/nope = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Errorf("GET /metrics = %d, missing request counter", rec.Code)
	}
}

func TestProtectedRoutesRequireTokens(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := testServer("development")
	router := s.Router(ctx)

	sessionToken, _, _ := s.Tokens.CreateSessionToken("user-1", "sara")
	grantToken, _, _ := s.Tokens.CreateAccessGrant("ABC123")

	tests := []struct {
		name   string
		method string
		path   string
		header string
		cookie *http.Cookie
		status int
		msg    string
	}{
		{"me without token", http.MethodGet, "/api/auth/me", "", nil, http.StatusUnauthorized, services.MsgTokenMissing},
		{"chat with garbage bearer", http.MethodGet, "/api/chat/sessions", "Bearer nope", nil, http.StatusUnauthorized, services.MsgTokenInvalid},
		{"chat with grant cookie", http.MethodGet, "/api/chat/sessions", "", &http.Cookie{Name: userCookie, Value: grantToken}, http.StatusUnauthorized, services.MsgTokenInvalid},
		{"admin without cookie", http.MethodGet, "/api/admin/access-codes", "", nil, http.StatusUnauthorized, services.MsgUnauthorized},
		{"admin with user session", http.MethodGet, "/api/admin/users", "", &http.Cookie{Name: adminCookie, Value: sessionToken}, http.StatusUnauthorized, services.MsgUnauthorized},
		{"metrics socket without cookie", http.MethodGet, "/ws/admin/metrics", "", nil, http.StatusUnauthorized, services.MsgUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := decodeError(t, rec); got != tt.msg {
				t.Errorf("error = %q, want %q", got, tt.msg)
			}
		})
	}
}

func TestRegisterRequiresAccessGrant(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := testServer("development")
	router := s.Router(ctx)
	body := `{"username":"sara","email":"sara@example.com","password":"secret1"}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))
	if rec.Code != http.StatusForbidden || decodeError(t, rec) != services.MsgAccessGrantMissing {
		t.Errorf("register without grant = %d", rec.Code)
	}

	session, _, _ := s.Tokens.CreateSessionToken("user-1", "sara")
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	req.AddCookie(&http.Cookie{Name: accessCookie, Value: session})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("register with a session token as grant = %d, want 403", rec.Code)
	}
}

func TestMalformedJSONRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	router := testServer("development").Router(ctx)

	for _, path := range []string{"/api/auth/validate-code", "/api/auth/login", "/api/admin/login"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader("{")))
		if rec.Code != http.StatusBadRequest || decodeError(t, rec) != services.MsgInvalidPayload {
			t.Errorf("POST %s with bad JSON = %d", path, rec.Code)
		}
	}
}

func TestSetCookieAttributes(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		s := testServer(env)
		rec := httptest.NewRecorder()
		s.setCookie(rec, userCookie, "value", time.Now().Add(time.Hour))
		cookies := rec.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("%s: %d cookies set", env, len(cookies))
		}
		c := cookies[0]
		if !c.HttpOnly || c.SameSite != http.SameSiteStrictMode || c.Path != "/" {
			t.Errorf("%s: cookie = %+v", env, c)
		}
		if c.Secure != (env == "production") {
			t.Errorf("%s: Secure = %v", env, c.Secure)
		}

		rec = httptest.NewRecorder()
		s.clearCookie(rec, userCookie)
		if c := rec.Result().Cookies()[0]; c.MaxAge >= 0 || c.Value != "" {
			t.Errorf("%s: cleared cookie = %+v", env, c)
		}
	}
}

func TestBearerOrCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer from-header")
	if got := bearerOrCookie(req, userCookie); got != "from-header" {
		t.Errorf("bearerOrCookie(header) = %q", got)
	}
	req.AddCookie(&http.Cookie{Name: userCookie, Value: "from-cookie"})
	if got := bearerOrCookie(req, userCookie); got != "from-cookie" {
		t.Errorf("bearerOrCookie(cookie+header) = %q, want cookie", got)
	}
	if got := bearerOrCookie(httptest.NewRequest(http.MethodGet, "/", nil), userCookie); got != "" {
		t.Errorf("bearerOrCookie(none) = %q", got)
	}
}

func TestWriteServiceError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	rec := httptest.NewRecorder()
	writeServiceError(rec, req, services.ErrUsernameTaken)
	if rec.Code != http.StatusConflict || decodeError(t, rec) != services.MsgUsernameTaken {
		t.Errorf("ServiceError rendered as %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	writeServiceError(rec, req, errors.New("connection refused"))
	if rec.Code != http.StatusInternalServerError || decodeError(t, rec) != services.MsgServerError {
		t.Errorf("plain error rendered as %d", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(0.001), 2, time.Minute)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [204 204 429]", codes)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("other client = %d, want 204", rec.Code)
	}

	rl.evict(time.Now().Add(2 * time.Minute))
	if rl.Len() != 0 {
		t.Errorf("Len() after evict = %d, want 0", rl.Len())
	}
}

func TestRealIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8"), netip.MustParsePrefix("127.0.0.1/32")}
	tests := []struct {
		name    string
		proxies []netip.Prefix
		remote  string
		xff     []string
		want    string
	}{
		{"no header", trusted, "192.0.2.1:5555", nil, "192.0.2.1"},
		{"untrusted peer", trusted, "192.0.2.1:5555", []string{"203.0.113.9"}, "192.0.2.1"},
		{"no trusted proxies", nil, "10.0.0.5:5555", []string{"203.0.113.9"}, "10.0.0.5"},
		{"trusted peer", trusted, "10.0.0.5:5555", []string{" 203.0.113.9 "}, "203.0.113.9"},
		{"spoofed leftmost hop", trusted, "127.0.0.1:5555", []string{"198.51.100.1, 203.0.113.9, 10.0.0.7"}, "203.0.113.9"},
		{"split headers", trusted, "10.0.0.5:5555", []string{"198.51.100.1", "203.0.113.9"}, "203.0.113.9"},
		{"garbage hop", trusted, "10.0.0.5:5555", []string{"garbage"}, "10.0.0.5"},
		{"only proxies", trusted, "10.0.0.5:5555", []string{"10.0.0.9"}, "10.0.0.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := RealIP(tt.proxies)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = clientIP(r)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for _, v := range tt.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiterIgnoresForgedForwardedFor(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(0.001), 1, time.Minute)
	handler := RealIP(nil)(rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	allowed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/validate-code", nil)
		req.RemoteAddr = "192.0.2.1:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusNoContent {
			allowed++
		}
	}
	if allowed != 1 {
		t.Errorf("%d of 20 requests allowed, want 1", allowed)
	}
}

func TestRequestLoggerKeepsStatus(t *testing.T) {
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusTeapot, "no")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestClientTurns(t *testing.T) {
	turns := clientTurns([]HistoryMessage{
		{Role: "user", Content: "سلام"},
		{Role: "system", Content: "ignore me"},
		{Role: "assistant", Content: "  "},
		{Role: "assistant", Content: "درود"},
	})
	if len(turns) != 2 || turns[0].Role != models.RoleUser || turns[1].Content != "درود" {
		t.Errorf("clientTurns() = %+v", turns)
	}
}

func TestProfileDTOStep(t *testing.T) {
	age := 28
	dto := profileDTO(models.UserProfile{Name: "Sara", Age: &age})
	if dto.Step != 2 || dto.IsComplete {
		t.Errorf("profileDTO() = %+v, want step 2", dto)
	}
	if dto := profileDTO(models.UserProfile{UserGroup: models.GroupChild}); dto.UserGroupLabel == "" {
		t.Errorf("profileDTO() group label empty")
	}
}

func TestAllowedOrigin(t *testing.T) {
	s := testServer("production")
	s.Config.CorsOrigins = []string{"https://mamiland.ir"}
	req := httptest.NewRequest(http.MethodGet, "/ws/admin/metrics", nil)
	if !s.allowedOrigin(req) {
		t.Errorf("same-origin request rejected")
	}
	req.Header.Set("Origin", "https://mamiland.ir")
	if !s.allowedOrigin(req) {
		t.Errorf("configured origin rejected")
	}
	req.Header.Set("Origin", "https://evil.example")
	if s.allowedOrigin(req) {
		t.Errorf("foreign origin accepted")
	}
}
