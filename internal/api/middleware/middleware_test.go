package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func echoCaller(c *gin.Context) {
	id, _ := GetCallerID(c)
	c.String(http.StatusOK, id)
}

func TestGatewayAuth(t *testing.T) {
	router := gin.New()
	router.GET("/x", GatewayAuth(), echoCaller)

	tests := []struct {
		name       string
		userID     string
		wantStatus int
		wantBody   string
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "caller from gateway", userID: "user-42", wantStatus: http.StatusOK, wantBody: "user-42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.userID != "" {
				req.Header.Set("X-User-ID", tt.userID)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestNoAuthSetsAnonymousCaller(t *testing.T) {
	router := gin.New()
	router.GET("/x", NoAuth(), echoCaller)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, AnonymousCaller, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	router := gin.New()
	router.Use(CORS())
	router.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/x", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(2)
	limiter.now = func() time.Time { return now }

	router := gin.New()
	router.POST("/anon", NoAuth(), limiter.Middleware(), echoCaller)
	router.POST("/gw", GatewayAuth(), limiter.Middleware(), echoCaller)

	send := func(path, user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if user != "" {
			req.Header.Set("X-User-ID", user)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("burst then reject", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, send("/anon", "").Code)
		assert.Equal(t, http.StatusOK, send("/anon", "").Code)

		w := send("/anon", "")
		require.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "30", w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "rate_limited")
	})

	t.Run("callers have separate budgets", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, send("/gw", "alice").Code)
		assert.Equal(t, http.StatusOK, send("/gw", "bob").Code)
	})

	t.Run("tokens refill over time", func(t *testing.T) {
		now = now.Add(30 * time.Second)
		assert.Equal(t, http.StatusOK, send("/anon", "").Code)
	})

	t.Run("idle callers are forgotten", func(t *testing.T) {
		now = now.Add(limiterIdleTTL + time.Minute)
		send("/gw", "carol")
		limiter.mu.Lock()
		defer limiter.mu.Unlock()
		assert.Len(t, limiter.callers, 1)
	})
}

type recordedRequest struct {
	endpoint string
	status   int
}

type fakeRecorder struct{ got []recordedRequest }

func (f *fakeRecorder) RecordAPIRequest(_ context.Context, endpoint string, status int, _ time.Duration) {
	f.got = append(f.got, recordedRequest{endpoint: endpoint, status: status})
}

func TestRequestTrackingAndRecover(t *testing.T) {
	rec := &fakeRecorder{}
	router := gin.New()
	router.Use(RequestTracking(rec), RecoverWithSentry())
	router.GET("/api/music-result/:command_id", func(c *gin.Context) { panic("renderer blew up") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/music-result/abc", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal", body["error_type"])
	assert.NotEmpty(t, body["request_id"])
	assert.Equal(t, w.Header().Get("X-Request-ID"), body["request_id"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, []recordedRequest{
		{endpoint: "/api/music-result/:command_id", status: http.StatusInternalServerError},
		{endpoint: "unmatched", status: http.StatusNotFound},
	}, rec.got)
}
