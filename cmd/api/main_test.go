package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/barbershop-scheduler/internal/config"
	"github.com/wolfman30/barbershop-scheduler/internal/notify"
	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

func testConfig(backendURL string) *appconfig.Config {
	return &appconfig.Config{
		Port:             "0",
		Locale:           "pt-BR",
		Timezone:         "UTC",
		BackendBaseURL:   backendURL,
		BackendTimeout:   time.Second,
		ProviderCacheTTL: time.Minute,
		AvatarBucket:     "beardio-files",
		EmailProvider:    "none",
	}
}

func newTestServer(t *testing.T, cfg *appconfig.Config) (*app, http.Handler) {
	t.Helper()
	reg := prometheus.NewRegistry()
	a, err := buildApp(context.Background(), cfg, logging.Discard(), reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	require.NoError(t, err)
	t.Cleanup(a.close)
	return a, a.handler
}

func TestBuildAppServesHealthAndMetrics(t *testing.T) {
	_, h := newTestServer(t, testConfig("http://127.0.0.1:1"))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestBuildAppRequiresSession(t *testing.T) {
	_, h := newTestServer(t, testConfig("http://127.0.0.1:1"))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/providers", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBuildAppBootstrapSessionReachesBackend(t *testing.T) {
	auth := make(chan string, 1)
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case auth <- r.Header.Get("Authorization"):
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"p1","name":"Carlos","user_id":"u1"}]`))
	}))
	defer backendSrv.Close()

	cfg := testConfig(backendSrv.URL)
	cfg.SessionToken = "opaque-token"
	cfg.SessionUserID = "client-1"
	cfg.SessionUserName = "Ana"
	a, h := newTestServer(t, cfg)
	require.True(t, a.sessions.Established())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/providers", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Bearer opaque-token", <-auth)
	assert.True(t, strings.Contains(rr.Body.String(), "Carlos"))
}

func TestBuildAppWithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig("http://127.0.0.1:1")
	cfg.RedisAddr = mr.Addr()

	a, _ := newTestServer(t, cfg)
	assert.Len(t, a.closers, 1)

	require.NoError(t, mr.Set("barbershop:providers:list", "[]"))
	require.NoError(t, mr.Set("barbershop:providers:id:p1", "{}"))
	_, err := a.sessions.Establish("opaque-token", scheduling.User{ID: "client-1"})
	require.NoError(t, err)
	a.sessions.SignOut()
	assert.False(t, mr.Exists("barbershop:providers:list"), "sign-out drops the provider cache")
	assert.False(t, mr.Exists("barbershop:providers:id:p1"))
}

func TestBuildAppUnreachableRedisDisablesCache(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.RedisAddr = "127.0.0.1:1"

	a, _ := newTestServer(t, cfg)
	assert.Empty(t, a.closers)
}

func TestBuildAppStubEmailSink(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.EmailProvider = "stub"

	a, _ := newTestServer(t, cfg)
	assert.NotNil(t, a.email)
}

func TestSignOutDrainsNotifications(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.SessionToken = "opaque-token"
	cfg.SessionUserID = "client-1"
	a, _ := newTestServer(t, cfg)

	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/providers", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	a.recorder.Notify(context.Background(), notify.Failure(notify.TopicBookingFailed, notify.Messages("pt-BR").BookingFailed))
	require.NotEmpty(t, a.recorder.All())

	a.sessions.SignOut()
	assert.Empty(t, a.recorder.All())
}
