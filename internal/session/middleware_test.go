package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lms-edge/internal/config"
	"lms-edge/internal/roles"
	"lms-edge/internal/token"

	"github.com/gin-gonic/gin"
)

func init() { gin.SetMode(gin.TestMode) }

func testCodec(t *testing.T) *token.Codec {
	t.Helper()
	c, err := token.NewCodec(config.AuthConfig{
		JWTSecret:       "secret",
		JWTIssuer:       "lms-edge",
		JWTAudience:     "lms",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	return c
}

// fakeVersions implements identity.Store for refresh tests.
type fakeVersions struct {
	versions map[string]int
}

func (f *fakeVersions) FindByEmail(context.Context, string) (token.Identity, error) {
	return token.Identity{}, nil
}

func (f *fakeVersions) TokenVersion(_ context.Context, userID string) (int, error) {
	return f.versions[userID], nil
}

func (f *fakeVersions) BumpTokenVersion(_ context.Context, userID string) (int, error) {
	f.versions[userID]++
	return f.versions[userID], nil
}

func gatedEngine(cfg GateConfig) *gin.Engine {
	r := gin.New()
	r.Use(RoleGate(cfg))
	r.NoRoute(func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func request(path string, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	return req
}

func signAccess(t *testing.T, c *token.Codec, at time.Time, role string) string {
	t.Helper()
	tok, err := c.SignAccess(at, token.Identity{UserID: "u1", Role: role, TenantID: "t1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestRoleGate_DeniesWrongRole(t *testing.T) {
	codec := testCodec(t)
	r := gatedEngine(GateConfig{Codec: codec})

	tok := signAccess(t, codec, time.Now(), roles.Learner)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, request("/admin/users", &http.Cookie{Name: CookieSession, Value: tok}))

	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Fatalf("expected /login redirect, got %q", loc)
	}
	if got := w.Header().Get(HeaderStaleSession); got != tok {
		t.Fatalf("expected rejected token in diagnostic header")
	}
}

func TestRoleGate_AllowsSufficientRole(t *testing.T) {
	codec := testCodec(t)
	r := gatedEngine(GateConfig{Codec: codec})

	cases := []struct {
		path string
		role string
	}{
		{"/admin/users", roles.Admin},
		{"/instructor/courses", roles.SuperInstructor}, // hierarchy
		{"/instructor/courses", roles.Instructor},
		{"/learner/home", roles.Learner},
	}
	for _, tc := range cases {
		tok := signAccess(t, codec, time.Now(), tc.role)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, request(tc.path, &http.Cookie{Name: CookieSession, Value: tok}))
		if w.Code != http.StatusOK {
			t.Errorf("%s as %s: expected 200, got %d", tc.path, tc.role, w.Code)
		}
	}
}

func TestRoleGate_NoSessionRedirectsWithoutDiagnostic(t *testing.T) {
	r := gatedEngine(GateConfig{Codec: testCodec(t)})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, request("/learner/home"))

	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", w.Code)
	}
	if w.Header().Get(HeaderStaleSession) != "" {
		t.Fatalf("no session means no diagnostic header")
	}
}

func TestRoleGate_PublicPathPassesThrough(t *testing.T) {
	r := gatedEngine(GateConfig{Codec: testCodec(t)})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, request("/login"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on ungated path, got %d", w.Code)
	}
}

func TestRoleGate_BypassForE2E(t *testing.T) {
	r := gatedEngine(GateConfig{Codec: testCodec(t), Disabled: true})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, request("/admin/users"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected bypass to admit everything, got %d", w.Code)
	}
}

func TestRoleGate_TransparentRefresh(t *testing.T) {
	codec := testCodec(t)
	store := &fakeVersions{versions: map[string]int{"u1": 0}}
	cfg := GateConfig{
		Codec:     codec,
		Refresher: NewRefresher(codec, store, time.Second),
	}
	r := gatedEngine(cfg)

	// Access token two minutes from expiry, well inside the 5m window.
	issuedAt := time.Now().Add(-(15*time.Minute - 2*time.Minute))
	access := signAccess(t, codec, issuedAt, roles.Learner)
	refresh, err := codec.SignRefresh(time.Now(), token.Identity{UserID: "u1", Role: roles.Learner, TenantID: "t1"})
	if err != nil {
		t.Fatalf("sign refresh: %v", err)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, request("/learner/home",
		&http.Cookie{Name: CookieSession, Value: access},
		&http.Cookie{Name: CookieRefresh, Value: refresh},
	))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	cookies := w.Result().Cookies()
	var gotSession, gotRefresh *http.Cookie
	for _, ck := range cookies {
		switch ck.Name {
		case CookieSession:
			gotSession = ck
		case CookieRefresh:
			gotRefresh = ck
		}
	}
	if gotSession == nil || gotRefresh == nil {
		t.Fatalf("expected rotated cookies, got %v", cookies)
	}
	if gotSession.MaxAge != 900 {
		t.Fatalf("expected fresh 15m session cookie, got MaxAge=%d", gotSession.MaxAge)
	}
	if gotRefresh.MaxAge != 604800 {
		t.Fatalf("expected fresh 7d refresh cookie, got MaxAge=%d", gotRefresh.MaxAge)
	}
	if _, err := codec.VerifyAccess(gotSession.Value, time.Now()); err != nil {
		t.Fatalf("rotated access token does not verify: %v", err)
	}
}

func TestRoleGate_RefreshFailureSwallowed(t *testing.T) {
	codec := testCodec(t)
	cfg := GateConfig{
		Codec:     codec,
		Refresher: NewRefresher(codec, nil, time.Second),
	}
	r := gatedEngine(cfg)

	issuedAt := time.Now().Add(-(15*time.Minute - 2*time.Minute))
	access := signAccess(t, codec, issuedAt, roles.Learner)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, request("/learner/home",
		&http.Cookie{Name: CookieSession, Value: access},
		&http.Cookie{Name: CookieRefresh, Value: "garbage"},
	))

	// The request proceeds on the soon-to-expire token.
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 despite failed refresh, got %d", w.Code)
	}
	for _, ck := range w.Result().Cookies() {
		if ck.Name == CookieSession || ck.Name == CookieRefresh {
			t.Fatalf("failed refresh must not rewrite cookies, got %v", ck)
		}
	}
}

func TestRoleGate_NoRefreshFarFromExpiry(t *testing.T) {
	codec := testCodec(t)
	cfg := GateConfig{
		Codec:     codec,
		Refresher: NewRefresher(codec, nil, time.Second),
	}
	r := gatedEngine(cfg)

	access := signAccess(t, codec, time.Now(), roles.Learner)
	refresh, _ := codec.SignRefresh(time.Now(), token.Identity{UserID: "u1", Role: roles.Learner})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, request("/learner/home",
		&http.Cookie{Name: CookieSession, Value: access},
		&http.Cookie{Name: CookieRefresh, Value: refresh},
	))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Fatalf("fresh token must not be rotated")
	}
}
