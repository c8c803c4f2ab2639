package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRouter(t *testing.T) {
	t.Run("mounts registered groups under the default version", func(t *testing.T) {
		engine := gin.New()
		group := NewDomainGroup("invoicing", "/invoicing")
		group.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "ready") })

		NewRouter(engine).Register(group).Setup()

		w := serve(engine, http.MethodGet, "/api/v1/invoicing/ping")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ready", w.Body.String())
	})

	t.Run("version option changes the path prefix", func(t *testing.T) {
		engine := gin.New()
		group := NewDomainGroup("invoicing", "/invoicing")
		group.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

		NewRouter(engine, WithAPIVersion("v2")).Register(group).Setup()

		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v2/invoicing/ping").Code)
		assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/invoicing/ping").Code)
	})

	t.Run("router middleware runs for every mounted route", func(t *testing.T) {
		engine := gin.New()
		r := NewRouter(engine)
		r.Use(func(c *gin.Context) {
			c.Header("X-Audit", "on")
			c.Next()
		})

		invoices := NewDomainGroup("invoicing", "/invoicing")
		invoices.GET("/invoices", func(c *gin.Context) { c.Status(http.StatusOK) })
		system := NewDomainGroup("system", "/system")
		system.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

		r.Register(invoices).Register(system).Setup()

		assert.Equal(t, "on", serve(engine, http.MethodGet, "/api/v1/invoicing/invoices").Header().Get("X-Audit"))
		assert.Equal(t, "on", serve(engine, http.MethodGet, "/api/v1/system/ping").Header().Get("X-Audit"))
	})
}

func TestDomainGroup(t *testing.T) {
	mount := func(g *DomainGroup) *gin.Engine {
		engine := gin.New()
		g.RegisterRoutes(engine.Group("/api/v1"))
		return engine
	}

	t.Run("each verb lands on its handler", func(t *testing.T) {
		g := NewDomainGroup("invoicing", "/invoicing")
		g.GET("/invoices", func(c *gin.Context) { c.Status(http.StatusOK) }).
			POST("/invoices", func(c *gin.Context) { c.Status(http.StatusCreated) }).
			PUT("/invoices/:id", func(c *gin.Context) { c.Status(http.StatusOK) }).
			DELETE("/invoices/:id/lines/:line_id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		engine := mount(g)

		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/invoicing/invoices").Code)
		assert.Equal(t, http.StatusCreated, serve(engine, http.MethodPost, "/api/v1/invoicing/invoices").Code)
		assert.Equal(t, http.StatusOK, serve(engine, http.MethodPut, "/api/v1/invoicing/invoices/42").Code)
		assert.Equal(t, http.StatusNoContent, serve(engine, http.MethodDelete, "/api/v1/invoicing/invoices/42/lines/7").Code)
	})

	t.Run("group middleware wraps only this group", func(t *testing.T) {
		engine := gin.New()
		api := engine.Group("/api/v1")

		guarded := NewDomainGroup("invoicing", "/invoicing")
		guarded.Use(func(c *gin.Context) {
			c.AbortWithStatus(http.StatusForbidden)
		})
		guarded.GET("/invoices", func(c *gin.Context) { c.Status(http.StatusOK) })
		guarded.RegisterRoutes(api)

		open := NewDomainGroup("system", "/system")
		open.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
		open.RegisterRoutes(api)

		assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodGet, "/api/v1/invoicing/invoices").Code)
		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/system/ping").Code)
	})

	t.Run("per-route handler chains run in order", func(t *testing.T) {
		g := NewDomainGroup("invoicing", "/invoicing")
		g.POST("/invoices/:id/issue",
			func(c *gin.Context) {
				if c.GetHeader("X-Perm") == "" {
					c.AbortWithStatus(http.StatusForbidden)
				}
			},
			func(c *gin.Context) { c.Status(http.StatusOK) },
		)
		engine := mount(g)

		assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodPost, "/api/v1/invoicing/invoices/42/issue").Code)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/invoicing/invoices/42/issue", nil)
		req.Header.Set("X-Perm", "invoice:issue")
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
