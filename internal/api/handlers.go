package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/tigerzhang/clean-dns/internal/stats"
)

// Handler holds the dependencies the two endpoints need.
type Handler struct {
	stats     *stats.Aggregator
	startTime time.Time
}

// NewHandler builds a Handler bound to agg.
func NewHandler(agg *stats.Aggregator) *Handler {
	return &Handler{stats: agg, startTime: time.Now()}
}

// Health godoc
// @Summary Liveness check
// @Description Returns {"status":"ok"} when the process is up
// @Tags system
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /healthz [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// Stats godoc
// @Summary Per-domain and process statistics
// @Description Returns per-qname request/cache-hit counters alongside host CPU/memory usage
// @Tags system
// @Produce json
// @Success 200 {object} StatsResponse
// @Router /stats [get]
func (h *Handler) Stats(c *gin.Context) {
	resp := StatsResponse{
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		StartTime:     h.startTime,
		CPU:           CPUStats{NumCPU: runtime.NumCPU()},
		Domains:       h.stats.Snapshot(),
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		resp.Memory.TotalMB = float64(vm.Total) / 1024 / 1024
		resp.Memory.UsedMB = float64(vm.Used) / 1024 / 1024
		resp.Memory.UsedPercent = vm.UsedPercent
	}
	if pct, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(pct) > 0 {
		resp.CPU.UsedPercent = pct[0]
	}

	c.JSON(http.StatusOK, resp)
}
