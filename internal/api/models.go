// Package api implements the management HTTP surface: GET /stats,
// GET /healthz, and a swagger docs route, the way HydraDNS's internal/api
// package structures its gin server (server.go, routes.go,
// handlers/health.go).
package api

import (
	"time"

	"github.com/tigerzhang/clean-dns/internal/stats"
)

// CPUStats mirrors the teacher's models.CPUStats.
type CPUStats struct {
	NumCPU      int     `json:"num_cpu"`
	UsedPercent float64 `json:"used_percent"`
}

// MemoryStats mirrors the teacher's models.MemoryStats.
type MemoryStats struct {
	TotalMB     float64 `json:"total_mb"`
	UsedMB      float64 `json:"used_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// StatsResponse is the GET /stats body: the per-domain map ("domains")
// plus process stats the teacher always surfaces alongside DNS metrics.
type StatsResponse struct {
	UptimeSeconds int64                            `json:"uptime_seconds"`
	StartTime     time.Time                        `json:"start_time"`
	CPU           CPUStats                         `json:"cpu"`
	Memory        MemoryStats                      `json:"memory"`
	Domains       map[string]stats.DomainSnapshot  `json:"domains"`
}

// StatusResponse is the GET /healthz body.
type StatusResponse struct {
	Status string `json:"status"`
}
