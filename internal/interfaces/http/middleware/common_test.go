package middleware

import (
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

func newCORSRouter(cfg CORSConfig) *gin.Engine {
	router := gin.New()
	router.Use(CORSWithConfig(cfg))
	router.GET("/invoices", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": []string{}})
	})
	return router
}

func TestRequestID(t *testing.T) {
	t.Run("mints an id when the client sends none", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		var seen string
		router.GET("/ping", func(c *gin.Context) {
			seen = c.GetString("request_id")
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
	})

	t.Run("keeps the gateway id", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/ping", nil)
		req.Header.Set("X-Request-ID", "edge-7f3a")
		router.ServeHTTP(w, req)

		assert.Equal(t, "edge-7f3a", w.Header().Get("X-Request-ID"))
	})

	t.Run("ids differ across requests", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

		w1 := httptest.NewRecorder()
		router.ServeHTTP(w1, httptest.NewRequest("GET", "/ping", nil))
		w2 := httptest.NewRecorder()
		router.ServeHTTP(w2, httptest.NewRequest("GET", "/ping", nil))

		assert.NotEqual(t, w1.Header().Get("X-Request-ID"), w2.Header().Get("X-Request-ID"))
	})
}

func TestCORSWithConfig(t *testing.T) {
	allowed := CORSConfig{
		AllowOrigins:     []string{"https://app.garage.example"},
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	t.Run("whitelisted origin gets the full header set", func(t *testing.T) {
		router := newCORSRouter(allowed)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/invoices", nil)
		req.Header.Set("Origin", "https://app.garage.example")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://app.garage.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "X-Request-ID", w.Header().Get("Access-Control-Expose-Headers"))
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("unknown origin gets no CORS headers", func(t *testing.T) {
		router := newCORSRouter(allowed)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/invoices", nil)
		req.Header.Set("Origin", "https://evil.example")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("empty whitelist never answers cross-origin", func(t *testing.T) {
		router := newCORSRouter(CORSConfig{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/invoices", nil)
		req.Header.Set("Origin", "https://app.garage.example")
		router.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight is answered without hitting a route", func(t *testing.T) {
		router := newCORSRouter(allowed)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("OPTIONS", "/invoices", nil)
		req.Header.Set("Origin", "https://app.garage.example")
		req.Header.Set("Access-Control-Request-Method", "POST")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://app.garage.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("wildcard allows everyone without credentials", func(t *testing.T) {
		router := newCORSRouter(CORSConfig{
			AllowOrigins:     []string{"*"},
			AllowMethods:     []string{"GET"},
			AllowCredentials: true,
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/invoices", nil)
		req.Header.Set("Origin", "https://anywhere.example")
		router.ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		// Browsers reject credentialed wildcard responses, so the header
		// must not accompany "*"
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func TestSecure(t *testing.T) {
	router := gin.New()
	router.Use(Secure())
	router.GET("/invoices", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/invoices", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", w.Header().Get("Content-Security-Policy"))
}
