package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lms-edge/internal/config"
	"lms-edge/internal/files"
	"lms-edge/internal/httpapi"
	"lms-edge/internal/proxy"
	"lms-edge/internal/session"
	"lms-edge/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func testEngine(t *testing.T, backendURL string) *gin.Engine {
	t.Helper()
	codec, err := token.NewCodec(config.AuthConfig{
		JWTSecret:       "secret",
		JWTIssuer:       "lms-edge",
		JWTAudience:     "lms",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)

	backend := proxy.New(backendURL, 2*time.Second)
	policy := session.CookiePolicy{}
	refresher := session.NewRefresher(codec, nil, time.Second)

	r := gin.New()
	registerRoutes(r, routeDeps{
		handlers: httpapi.Handlers{
			Codec:     codec,
			Policy:    policy,
			Refresher: refresher,
			Proxy:     backend,
		},
		gate:  session.GateConfig{Policy: policy, Codec: codec, Refresher: refresher},
		files: files.NewServer(nil, backend),
	})
	return r
}

func TestHealthz_OKWhenBackendAnswers(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	rec := httptest.NewRecorder()
	testEngine(t, backend.URL).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestHealthz_DegradedWhenBackendDown(t *testing.T) {
	// Nothing listens on port 1.
	rec := httptest.NewRecorder()
	testEngine(t, "http://127.0.0.1:1").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"backend"`)
}

func TestMetricsEndpointRegistered(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	rec := httptest.NewRecorder()
	testEngine(t, backend.URL).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "proxy_backend_unreachable_total")
}
