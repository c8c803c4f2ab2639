package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/garage/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// PoolStats is the connection pool snapshot exposed by the info endpoint.
// Wait figures surface allocator contention: sequence allocation serializes
// on counter rows, so queueing shows up here before it shows up as latency.
type PoolStats struct {
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
	Idle            int    `json:"idle"`
	WaitCount       int64  `json:"wait_count"`
	WaitDuration    string `json:"wait_duration"`
}

// PoolStatsFunc supplies the current pool snapshot. Nil disables the block.
type PoolStatsFunc func() (PoolStats, error)

// SystemHandler serves the unauthenticated service metadata endpoints.
type SystemHandler struct {
	BaseHandler
	startTime time.Time
	poolStats PoolStatsFunc
}

func NewSystemHandler(poolStats PoolStatsFunc) *SystemHandler {
	return &SystemHandler{
		startTime: time.Now(),
		poolStats: poolStats,
	}
}

// SystemInfoResponse represents the system information response
// @name HandlerSystemInfoResponse
type SystemInfoResponse struct {
	Name      string     `json:"name" example:"Garage Invoicing API"`
	Version   string     `json:"version" example:"1.0.0"`
	GoVersion string     `json:"go_version" example:"go1.25.5"`
	Uptime    string     `json:"uptime" example:"1h30m45s"`
	Database  *PoolStats `json:"database,omitempty"`
}

// GetSystemInfo godoc
// @ID           getSystemSystemInfo
// @Summary      Get system information
// @Description  Returns service version, uptime and database pool counters
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=SystemInfoResponse}
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "Garage Invoicing API",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.poolStats != nil {
		if stats, err := h.poolStats(); err == nil {
			info.Database = &stats
		}
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// PingResponse represents the ping response
// @name HandlerPingResponse
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Description  Liveness check, answers without touching any dependency
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=PingResponse}
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}))
}
