package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/dluzirna/dluzirna/internal/cache"
)

func newThrottledRouter(rule ThrottleRule) (*gin.Engine, cache.Store) {
	gin.SetMode(gin.TestMode)
	store := cache.NewMemoryStore()

	r := gin.New()
	r.POST("/hit", Throttle(store, rule), func(c *gin.Context) { c.String(200, "ok") })
	return r, store
}

func post(r *gin.Engine, remoteAddr, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, _ := http.NewRequest(http.MethodPost, "/hit", reader)
	req.RemoteAddr = remoteAddr
	req.Header.Set("User-Agent", "test-agent")
	r.ServeHTTP(w, req)
	return w
}

func TestThrottleSixthRequestRejected(t *testing.T) {
	r, _ := newThrottledRouter(EmailRule())

	for i := 0; i < 5; i++ {
		require.Equal(t, 200, post(r, "203.0.113.5:1000", "").Code)
	}
	require.Equal(t, 429, post(r, "203.0.113.5:1000", "").Code)

	// A different source address keeps its own window.
	require.Equal(t, 200, post(r, "203.0.113.6:1000", "").Code)
}

func TestThrottleLoopbackExempt(t *testing.T) {
	r, _ := newThrottledRouter(ThrottleRule{Name: "tight", Limit: 1, Window: time.Hour, Key: KeyByClientIP})

	for i := 0; i < 10; i++ {
		require.Equal(t, 200, post(r, "127.0.0.1:1000", "").Code)
	}
}

func TestThrottleUniformResponse(t *testing.T) {
	r, _ := newThrottledRouter(ThrottleRule{Name: "one", Limit: 1, Window: time.Hour, Key: KeyByClientIP})

	post(r, "203.0.113.5:1000", "")
	w := post(r, "203.0.113.5:1000", "")
	require.Equal(t, 429, w.Code)
	// No hint about which rule fired.
	require.NotContains(t, w.Body.String(), "one")
	require.Contains(t, w.Body.String(), "Rate limit exceeded")
}

func TestThrottleRetryAfterOnlyOnRejection(t *testing.T) {
	r, _ := newThrottledRouter(ThrottleRule{Name: "one", Limit: 1, Window: time.Hour, Key: KeyByClientIP})

	w := post(r, "203.0.113.5:1000", "")
	require.Equal(t, 200, w.Code)
	require.Empty(t, w.Header().Get("Retry-After"))

	w = post(r, "203.0.113.5:1000", "")
	require.Equal(t, 429, w.Code)
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	require.Greater(t, retry, 0)
}

func TestThrottleByEmailAcrossAddresses(t *testing.T) {
	r, _ := newThrottledRouter(LoginRule())

	body := `{"email":"Jan@Example.com","password":"x"}`
	for i := 0; i < 5; i++ {
		addr := "203.0.113.10:1000"
		if i%2 == 0 {
			addr = "203.0.113.11:1000"
		}
		require.Equal(t, 200, post(r, addr, body).Code)
	}

	// The 6th attempt against the same account is rejected even from a fresh
	// address; a different account is unaffected.
	require.Equal(t, 429, post(r, "203.0.113.12:1000", body).Code)
	require.Equal(t, 200, post(r, "203.0.113.12:1000", `{"email":"petr@example.com","password":"x"}`).Code)
}

func TestKeyByBodyEmailRestoresBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := cache.NewMemoryStore()

	var seen string
	var bindErr error
	r := gin.New()
	r.POST("/hit", Throttle(store, LoginRule()), func(c *gin.Context) {
		var payload struct {
			Email string `json:"email"`
		}
		bindErr = c.ShouldBindJSON(&payload)
		seen = payload.Email
		c.String(200, "ok")
	})

	w := post(r, "203.0.113.5:1000", `{"email":"jan@example.com"}`)
	require.Equal(t, 200, w.Code)
	require.NoError(t, bindErr)
	require.Equal(t, "jan@example.com", seen)
}
