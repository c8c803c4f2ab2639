package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupPermissionRouter(permissions []string, guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuthMiddleware(permissionTestService))
	r.POST("/invoices/issue", guard, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

var permissionTestService = newTestJWTService()

func issueRequest(t *testing.T, router *gin.Engine, permissions []string) *httptest.ResponseRecorder {
	t.Helper()
	token, _ := newTestToken(t, permissionTestService, permissions)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/invoices/issue", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	return w
}

func TestRequirePermission(t *testing.T) {
	router := setupPermissionRouter(nil, RequirePermission("invoice:issue"))

	t.Run("allows user with the permission", func(t *testing.T) {
		w := issueRequest(t, router, []string{"invoice:issue"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("denies user without the permission", func(t *testing.T) {
		w := issueRequest(t, router, []string{"invoice:read"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("denies user with no permissions", func(t *testing.T) {
		w := issueRequest(t, router, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRequireAnyPermission(t *testing.T) {
	router := setupPermissionRouter(nil, RequireAnyPermission("invoice:issue", "ledger:admin"))

	t.Run("allows when one of the permissions matches", func(t *testing.T) {
		w := issueRequest(t, router, []string{"ledger:admin"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("denies when none match", func(t *testing.T) {
		w := issueRequest(t, router, []string{"invoice:read", "invoice:void"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRequireAllPermissions(t *testing.T) {
	router := setupPermissionRouter(nil, RequireAllPermissions("invoice:issue", "invoice:read"))

	t.Run("allows when all permissions present", func(t *testing.T) {
		w := issueRequest(t, router, []string{"invoice:read", "invoice:issue", "invoice:void"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("denies when one is missing", func(t *testing.T) {
		w := issueRequest(t, router, []string{"invoice:issue"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
