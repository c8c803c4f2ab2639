package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garage/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveSystem(t *testing.T, h *SystemHandler, path string, fn gin.HandlerFunc) dto.Response {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, path, nil)
	fn(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("reports version, uptime and pool counters", func(t *testing.T) {
		h := NewSystemHandler(func() (PoolStats, error) {
			return PoolStats{OpenConnections: 8, InUse: 3, Idle: 5, WaitCount: 12, WaitDuration: "40ms"}, nil
		})

		resp := serveSystem(t, h, "/system/info", h.GetSystemInfo)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "Garage Invoicing API", data["name"])
		assert.Equal(t, "1.0.0", data["version"])
		assert.NotEmpty(t, data["go_version"])
		assert.NotEmpty(t, data["uptime"])

		pool := data["database"].(map[string]interface{})
		assert.Equal(t, float64(8), pool["open_connections"])
		assert.Equal(t, float64(12), pool["wait_count"])
		assert.Equal(t, "40ms", pool["wait_duration"])
	})

	t.Run("pool block omitted without a stats source", func(t *testing.T) {
		h := NewSystemHandler(nil)

		resp := serveSystem(t, h, "/system/info", h.GetSystemInfo)
		data := resp.Data.(map[string]interface{})
		assert.NotContains(t, data, "database")
	})

	t.Run("pool block omitted when the stats source fails", func(t *testing.T) {
		h := NewSystemHandler(func() (PoolStats, error) {
			return PoolStats{}, assert.AnError
		})

		resp := serveSystem(t, h, "/system/info", h.GetSystemInfo)
		data := resp.Data.(map[string]interface{})
		assert.NotContains(t, data, "database")
	})
}

func TestSystemHandler_Ping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewSystemHandler(nil)
	resp := serveSystem(t, h, "/system/ping", h.Ping)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "pong", data["message"])

	_, err := time.Parse(time.RFC3339, data["timestamp"].(string))
	assert.NoError(t, err)
}
