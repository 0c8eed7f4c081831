package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uiOrigin = "http://localhost:3000"

func serveCORS(t *testing.T, origins []string, req *http.Request) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	rr := httptest.NewRecorder()
	CORS(origins)(next).ServeHTTP(rr, req)
	return rr, reached
}

func splitHeader(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func TestCORSPreflightForBookingSubmit(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/providers/prov-1/appointments", nil)
	req.Header.Set("Origin", uiOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type, x-request-id")

	rr, reached := serveCORS(t, []string{uiOrigin}, req)

	assert.False(t, reached, "preflight is answered by the middleware")
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, uiOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "600", rr.Header().Get("Access-Control-Max-Age"))

	headers := splitHeader(rr.Header().Get("Access-Control-Allow-Headers"))
	assert.Contains(t, headers, "X-Request-ID")
	assert.Contains(t, headers, "Authorization")
	assert.Contains(t, headers, "Content-Type")
}

func TestCORSMethodsMatchSchedulingRoutes(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/schedule/appointments/a1", nil)
	req.Header.Set("Origin", uiOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)

	rr, _ := serveCORS(t, []string{uiOrigin}, req)

	methods := splitHeader(rr.Header().Get("Access-Control-Allow-Methods"))
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		assert.Contains(t, methods, m)
	}
	assert.NotContains(t, methods, http.MethodPatch, "no route accepts PATCH")
}

func TestCORSPlainOptionsReachesRouter(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/schedule", nil)
	req.Header.Set("Origin", uiOrigin)

	rr, reached := serveCORS(t, []string{uiOrigin}, req)

	assert.True(t, reached, "OPTIONS without Access-Control-Request-Method is not a preflight")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCORSOrigins(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{"listed", []string{uiOrigin}, uiOrigin, uiOrigin},
		{"configured with trailing slash", []string{" http://localhost:3000/ "}, uiOrigin, uiOrigin},
		{"wildcard echoes origin", []string{"*"}, "https://barber.example", "https://barber.example"},
		{"unlisted", []string{uiOrigin}, "http://localhost:5173", ""},
		{"no origin header", []string{"*"}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/providers", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr, reached := serveCORS(t, tt.allowed, req)
			assert.True(t, reached)
			assert.Equal(t, tt.want, rr.Header().Get("Access-Control-Allow-Origin"))
			if tt.want == "" {
				assert.Empty(t, rr.Header().Get("Access-Control-Allow-Methods"))
			} else {
				assert.Equal(t, []string{"Origin"}, rr.Header().Values("Vary"))
			}
		})
	}
}
