package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"request_id": c.GetString("request_id"),
			"real_ip":    c.GetString("real_ip"),
		})
	})
	return r
}

func TestRequestID_GeneratedAndEchoed(t *testing.T) {
	r := newEngine(RequestIDMiddleware())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	id := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Contains(t, w.Body.String(), id)
}

func TestRequestID_ReusesValidHeader(t *testing.T) {
	r := newEngine(RequestIDMiddleware())
	incoming := uuid.New().String()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, incoming)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, incoming, w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(RequestIDHeader))
}

func TestRealIP(t *testing.T) {
	// httptest requests come from 192.0.2.1
	cases := []struct {
		name    string
		proxies []string
		headers map[string]string
		want    string
	}{
		{"cloudflare from trusted edge", []string{"192.0.2.1"}, map[string]string{"CF-Connecting-IP": "203.0.113.7", "X-Forwarded-For": "198.51.100.1"}, "203.0.113.7"},
		{"forwarded skips trusted hops", []string{"192.0.2.1", "10.0.0.0/8"}, map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, "198.51.100.1"},
		{"garbage falls back", []string{"192.0.2.1"}, map[string]string{"CF-Connecting-IP": "nope"}, "192.0.2.1"},
		{"untrusted peer is the client", nil, map[string]string{"CF-Connecting-IP": "203.0.113.7", "X-Forwarded-For": "127.0.0.1"}, "192.0.2.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newEngine(RealIP())
			require.NoError(t, TrustProxies(r, tc.proxies))

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			var body struct {
				RealIP string `json:"real_ip"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.want, body.RealIP)
		})
	}
}

func TestTrustProxies_RejectsBadCIDR(t *testing.T) {
	assert.Error(t, TrustProxies(gin.New(), []string{"10.0.0.0/99"}))
}

func TestAllowPrivateIP(t *testing.T) {
	allow := AllowPrivateIP()
	for ip, want := range map[string]bool{
		"127.0.0.1":   true,
		"10.1.2.3":    true,
		"192.168.1.1": true,
		"8.8.8.8":     false,
		"unknown":     false,
	} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Set("real_ip", ip)
		assert.Equal(t, want, allow(c), ip)
	}
}

func TestRateLimit_NilClientPassesThrough(t *testing.T) {
	r := newEngine(RateLimit(nil, 1, time.Minute, KeyByIP("test"), nil))
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_FailsOpenWhenRedisIsDown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })

	r := newEngine(RateLimit(rdb, 1, time.Minute, KeyByIP("test"), nil))
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func hit(r http.Handler, method, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/ping", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BlocksAfterMax(t *testing.T) {
	r := newEngine(RealIP(), RateLimit(newRedis(t), 2, time.Minute, KeyByIP("test"), nil))
	r.OPTIONS("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := hit(r, http.MethodGet, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Reset"))

	w = hit(r, http.MethodGet, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = hit(r, http.MethodGet, "", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")

	// preflight is never counted or blocked
	assert.Equal(t, http.StatusNoContent, hit(r, http.MethodOptions, "", nil).Code)

	// another client has its own window
	assert.Equal(t, http.StatusOK, hit(r, http.MethodGet, "198.51.100.20:4000", nil).Code)
}

func TestRateLimit_ScopesCountSeparately(t *testing.T) {
	rdb := newRedis(t)
	users := newEngine(RealIP(), RateLimit(rdb, 1, time.Minute, KeyByIP("users"), nil))
	debug := newEngine(RealIP(), RateLimit(rdb, 1, time.Minute, KeyByIP("debug"), nil))

	assert.Equal(t, http.StatusOK, hit(users, http.MethodGet, "", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(users, http.MethodGet, "", nil).Code)
	assert.Equal(t, http.StatusOK, hit(debug, http.MethodGet, "", nil).Code)
}

func TestRateLimit_SkipsLocalClients(t *testing.T) {
	r := newEngine(RealIP(), RateLimit(newRedis(t), 1, time.Minute, KeyByIP("test"), AllowPrivateIP()))

	for i := 0; i < 3; i++ {
		w := hit(r, http.MethodGet, "127.0.0.1:5555", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
	assert.Equal(t, http.StatusOK, hit(r, http.MethodGet, "203.0.113.9:5555", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(r, http.MethodGet, "203.0.113.9:5555", nil).Code)
}

func TestRateLimit_IgnoresForwardedHeadersFromUntrustedPeer(t *testing.T) {
	r := newEngine(RealIP(), RateLimit(newRedis(t), 1, time.Minute, KeyByIP("test"), AllowPrivateIP()))
	require.NoError(t, TrustProxies(r, nil))

	const peer = "203.0.113.9:5555"
	assert.Equal(t, http.StatusOK, hit(r, http.MethodGet, peer, map[string]string{"X-Forwarded-For": "198.51.100.1"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(r, http.MethodGet, peer, map[string]string{"X-Forwarded-For": "198.51.100.2"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(r, http.MethodGet, peer, map[string]string{"X-Forwarded-For": "127.0.0.1"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(r, http.MethodGet, peer, map[string]string{"CF-Connecting-IP": "10.0.0.1"}).Code)
}

func TestRateLimit_TrustedEdgeLimitsForwardedClient(t *testing.T) {
	r := newEngine(RealIP(), RateLimit(newRedis(t), 1, time.Minute, KeyByIP("test"), nil))
	require.NoError(t, TrustProxies(r, []string{"10.0.0.0/8"}))

	const edge = "10.1.1.1:443"
	assert.Equal(t, http.StatusOK, hit(r, http.MethodGet, edge, map[string]string{"X-Forwarded-For": "198.51.100.1"}).Code)
	assert.Equal(t, http.StatusOK, hit(r, http.MethodGet, edge, map[string]string{"X-Forwarded-For": "198.51.100.2"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(r, http.MethodGet, edge, map[string]string{"X-Forwarded-For": "198.51.100.1"}).Code)
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, 9, remaining(10, 1))
	assert.Equal(t, 0, remaining(10, 10))
	assert.Equal(t, 0, remaining(10, 11))
}
