package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	InstanceID string
	started    time.Time
	hub        HubStats
	broker     BrokerStatus
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(instanceID string, hub HubStats, broker BrokerStatus) *SystemHandler {
	return &SystemHandler{
		InstanceID: instanceID,
		started:    time.Now(),
		hub:        hub,
		broker:     broker,
	}
}

// @Summary Get system stats
// @Description Runtime figures and broadcast hub counters
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"instance_id":      h.InstanceID,
			"uptime_seconds":   int64(time.Since(h.started).Seconds()),
			"memory_mb":        m.Alloc / 1024 / 1024,
			"cpu_cores":        runtime.NumCPU(),
			"goroutines":       runtime.NumGoroutine(),
			"go_version":       runtime.Version(),
			"broker_connected": h.broker.BrokerConnected(),
			"hub":              h.hub.Stats(),
		},
		"timestamp": time.Now().Unix(),
	})
}
