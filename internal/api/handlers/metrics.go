package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	bytesToMB       = 1024 * 1024
	uptimePrecision = 10 * time.Millisecond
)

// GenerationInfo describes how work plans are generated on this instance
type GenerationInfo struct {
	Mode         string `json:"mode"`
	Model        string `json:"model"`
	Timeout      string `json:"timeout"`
	MaxTimeout   string `json:"max_timeout"`
	BulkMaxItems int    `json:"bulk_max_items"`
}

type MetricsHandler struct {
	startTime  time.Time
	version    string
	generation GenerationInfo
	now        func() time.Time
}

func NewMetricsHandler(version string, generation GenerationInfo) *MetricsHandler {
	return &MetricsHandler{
		startTime:  time.Now(),
		version:    version,
		generation: generation,
		now:        time.Now,
	}
}

type MetricsResponse struct {
	Status        string         `json:"status"`
	Version       string         `json:"version"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	Uptime        string         `json:"uptime"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Runtime       RuntimeStats   `json:"runtime"`
	Generation    GenerationInfo `json:"generation"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	HeapAllocMB  uint64 `json:"heap_alloc_mb"`
	TotalAllocMB uint64 `json:"total_alloc_mb"`
	NumGC        uint32 `json:"num_gc"`
}

// GetMetrics handles GET /api/metrics
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	now := h.now()
	uptime := now.Sub(h.startTime)

	c.JSON(http.StatusOK, MetricsResponse{
		Status:        "healthy",
		Version:       h.version,
		StartTime:     h.startTime.UTC().Format(time.RFC3339),
		Timestamp:     now.UTC().Format(time.RFC3339),
		Uptime:        uptime.Round(uptimePrecision).String(),
		UptimeSeconds: uptime.Seconds(),
		Runtime: RuntimeStats{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			HeapAllocMB:  mem.HeapAlloc / bytesToMB,
			TotalAllocMB: mem.TotalAlloc / bytesToMB,
			NumGC:        mem.NumGC,
		},
		Generation: h.generation,
	})
}
