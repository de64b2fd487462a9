package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestTraceIDMiddleware(t *testing.T) {
	var seen string
	h := TraceIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetTraceID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rr.Header().Get(TraceIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceIDHeader, "upstream-id")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "upstream-id", seen)
	assert.Equal(t, "upstream-id", rr.Header().Get(TraceIDHeader))
}

func TestTimingMiddleware(t *testing.T) {
	var took int64 = -1
	h := TimingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		took = GetRequestDurationFromRequest(r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.GreaterOrEqual(t, took, int64(5))

	assert.Zero(t, GetRequestDuration(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

func TestMaxBodySize(t *testing.T) {
	var readErr error
	h := MaxBodySize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(make([]byte, 32))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	// unknown length reaches the handler, which sees the limit while reading
	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(bytes.NewReader(make([]byte, 32))))
	req.ContentLength = -1
	h.ServeHTTP(httptest.NewRecorder(), req)
	var tooLarge *http.MaxBytesError
	assert.ErrorAs(t, readErr, &tooLarge)

	readErr = nil
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(make([]byte, 4))))
	assert.NoError(t, readErr)

	assert.Equal(t, http.StatusNoContent, serve(MaxBodySize(0)(okHandler()), "/", "", "1.2.3.4:5").Code)
}

func serve(h http.Handler, path, apiKey, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remote
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Rate: 1, Burst: 2, KeyHeader: "X-API-Key"})
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(okHandler())

	first := serve(h, "/v1/transform", "", "10.0.0.1:1234")
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, serve(h, "/v1/transform", "", "10.0.0.1:999").Code)
	limited := serve(h, "/v1/transform", "", "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", limited.Header().Get("Content-Type"))

	// other clients have their own bucket
	assert.Equal(t, http.StatusNoContent, serve(h, "/v1/transform", "", "10.0.0.2:1").Code)
	assert.Equal(t, http.StatusNoContent, serve(h, "/v1/transform", "team-a", "10.0.0.1:1").Code)

	// a rejected request does not consume a token
	now = now.Add(time.Second)
	assert.Equal(t, http.StatusNoContent, serve(h, "/v1/transform", "", "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "/v1/transform", "", "10.0.0.1:1234").Code)
}

func TestRateLimiterStrategies(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		Burst: 5,
		Strategies: map[string]Strategy{
			"/v1":          {Rate: 100},
			"/v1/variants": {Rate: 1, Burst: 1},
		},
	})
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(okHandler())

	// no default rate, unmatched paths pass
	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusNoContent, serve(h, "/healthz", "", "1.1.1.1:1").Code)
	}

	assert.Equal(t, http.StatusNoContent, serve(h, "/v1/variants", "", "1.1.1.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "/v1/variants", "", "1.1.1.1:1").Code)

	// the broader prefix inherits the default burst
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNoContent, serve(h, "/v1/transform", "", "1.1.1.1:1").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "/v1/transform", "", "1.1.1.1:1").Code)
	assert.Equal(t, 2, rl.Len())
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Rate: 1, Burst: 1, IdleTTL: time.Minute})
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(okHandler())

	serve(h, "/", "", "1.1.1.1:1")
	serve(h, "/", "", "2.2.2.2:1")
	assert.Equal(t, 2, rl.Len())

	now = now.Add(2 * time.Minute)
	serve(h, "/", "", "3.3.3.3:1")
	assert.Equal(t, 1, rl.Len())

	rl.Reset()
	assert.Equal(t, 0, rl.Len())
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := CORS(CORSConfig{
		AllowedOrigins: []string{"https://app.example.com"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"X-Cache"},
		MaxAge:         600,
	})(next)

	t.Run("simple request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/transform", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "X-Cache", rr.Header().Get("Access-Control-Expose-Headers"))
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/v1/transform", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "GET, POST", rr.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type", rr.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "600", rr.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard", func(t *testing.T) {
		wh := CORS(CORSConfig{AllowedOrigins: []string{"*"}})(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://any.example.com")
		rr := httptest.NewRecorder()
		wh.ServeHTTP(rr, req)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("disabled", func(t *testing.T) {
		dh := CORS(CORSConfig{})(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rr := httptest.NewRecorder()
		dh.ServeHTTP(rr, req)
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders()(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}
