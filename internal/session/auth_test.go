package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lms-edge/internal/token"

	"github.com/gin-gonic/gin"
)

func authedEngine(codec *token.Codec, got *token.Identity) *gin.Engine {
	r := gin.New()
	r.GET("/whoami", Authenticate(codec), func(c *gin.Context) {
		id, err := token.IdentityFrom(c.Request.Context())
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		*got = id
		c.Status(http.StatusOK)
	})
	return r
}

func TestAuthenticate_PlacesIdentityOnContext(t *testing.T) {
	codec := testCodec(t)
	access, err := codec.SignAccess(time.Now(), token.Identity{
		UserID: "u1", Email: "a@b.c", Role: "INSTRUCTOR", TenantID: "t1", TokenVersion: 2,
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	var got token.Identity
	rec := httptest.NewRecorder()
	authedEngine(codec, &got).ServeHTTP(rec, request("/whoami", &http.Cookie{Name: CookieSession, Value: access}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.UserID != "u1" || got.Role != "INSTRUCTOR" || got.TokenVersion != 2 {
		t.Fatalf("unexpected identity: %+v", got)
	}
}

func TestAuthenticate_RejectsMissingCookie(t *testing.T) {
	var got token.Identity
	rec := httptest.NewRecorder()
	authedEngine(testCodec(t), &got).ServeHTTP(rec, request("/whoami"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got.UserID != "" {
		t.Fatalf("handler must not run: %+v", got)
	}
}

func TestAuthenticate_RejectsInvalidToken(t *testing.T) {
	var got token.Identity
	rec := httptest.NewRecorder()
	authedEngine(testCodec(t), &got).ServeHTTP(rec,
		request("/whoami", &http.Cookie{Name: CookieSession, Value: "not-a-token"}))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticate_RejectsRefreshTokenAsSession(t *testing.T) {
	codec := testCodec(t)
	refresh, err := codec.SignRefresh(time.Now(), token.Identity{UserID: "u1", Role: "LEARNER"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	var got token.Identity
	rec := httptest.NewRecorder()
	authedEngine(codec, &got).ServeHTTP(rec,
		request("/whoami", &http.Cookie{Name: CookieSession, Value: refresh}))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
