package api

import (
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/lumen-core/internal/output"
)

// hubMetrics are the WebSocket hub's Prometheus collectors.
type hubMetrics struct {
	sessions prometheus.Gauge
	messages *prometheus.CounterVec
	dropped  prometheus.Counter
}

func newHubMetrics(reg prometheus.Registerer) *hubMetrics {
	m := &hubMetrics{
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lumen_ws_sessions",
			Help: "Connected WebSocket sessions.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumen_ws_messages_total",
			Help: "Inbound WebSocket messages, by type.",
		}, []string{"type"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumen_ws_dropped_total",
			Help: "Sessions dropped because their send buffer was full.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.sessions, m.messages, m.dropped)
	}
	return m
}

// SystemInfo is the response of GET /system/info.
type SystemInfo struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	Site          string         `json:"site,omitempty"`
	Uptime        string         `json:"uptime"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
	Output        output.Stats   `json:"output"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines  int    `json:"goroutines"`
	MemoryAlloc string `json:"memory_alloc"`
	MemoryTotal string `json:"memory_total"`
	NumGC       uint32 `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	Sessions int `json:"sessions"`
}

// handleSystemInfo returns version, uptime and engine status.
func (s *Server) handleSystemInfo(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	writeJSON(w, http.StatusOK, SystemInfo{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		Site:          s.site,
		Uptime:        strings.TrimSpace(humanize.RelTime(s.startTime, time.Now(), "", "")),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:  runtime.NumGoroutine(),
			MemoryAlloc: humanize.IBytes(memStats.Alloc),
			MemoryTotal: humanize.IBytes(memStats.TotalAlloc),
			NumGC:       memStats.NumGC,
		},
		WebSocket: WSMetrics{Sessions: s.hub.SessionCount()},
		Output:    s.svc.OutputStats(),
	})
}
