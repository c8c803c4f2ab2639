package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/garage/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type draftBinding struct {
	Series      string `json:"series" binding:"required,series"`
	ClientTaxID string `json:"client_tax_id" binding:"required"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.POST("/invoices", func(c *gin.Context) {
		var req draftBinding
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusCreated)
	})
	return router
}

func postJSON(router *gin.Engine, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/invoices", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSeriesBinding(t *testing.T) {
	router := newValidationRouter()

	t.Run("accepts a well-formed series", func(t *testing.T) {
		w := postJSON(router, `{"series":"FR","client_tax_id":"B12345678"}`)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("rejects lowercase series at the edge", func(t *testing.T) {
		w := postJSON(router, `{"series":"fr","client_tax_id":"B12345678"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "series", resp.Error.Details[0].Field)
		assert.Contains(t, resp.Error.Details[0].Message, "uppercase")
	})

	t.Run("rejects an overlong series", func(t *testing.T) {
		w := postJSON(router, `{"series":"FRAB","client_tax_id":"B12345678"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFormatValidationErrors(t *testing.T) {
	router := newValidationRouter()

	t.Run("one detail per missing field, named by json tag", func(t *testing.T) {
		w := postJSON(router, `{}`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		require.Len(t, resp.Error.Details, 2)

		fields := []string{resp.Error.Details[0].Field, resp.Error.Details[1].Field}
		assert.Contains(t, fields, "series")
		assert.Contains(t, fields, "client_tax_id")
	})

	t.Run("echoes the request id", func(t *testing.T) {
		SetupValidator()
		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.Set(RequestIDKey, "req-9921")
			c.Next()
		})
		router.POST("/invoices", func(c *gin.Context) {
			var req draftBinding
			if err := c.ShouldBindJSON(&req); err != nil {
				HandleValidationError(c, err)
				return
			}
			c.Status(http.StatusCreated)
		})

		w := postJSON(router, `{}`)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, "req-9921", resp.Error.RequestID)
	})
}
