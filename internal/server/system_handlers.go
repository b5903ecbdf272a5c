package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/capitalx/capitalx/internal/database"
)

// JobCounter reports how many background jobs are registered
type JobCounter interface {
	Entries() int
}

// SystemHandlers contains system-related HTTP handlers
type SystemHandlers struct {
	log  zerolog.Logger
	db   *database.DB
	jobs JobCounter
}

// NewSystemHandlers creates a new system handlers instance. jobs may be nil.
func NewSystemHandlers(log zerolog.Logger, db *database.DB, jobs JobCounter) *SystemHandlers {
	return &SystemHandlers{
		log:  log.With().Str("handler", "system").Logger(),
		db:   db,
		jobs: jobs,
	}
}

// SystemStatusResponse represents the host and database status
type SystemStatusResponse struct {
	Status        string          `json:"status"` // "healthy" or "degraded"
	Timestamp     string          `json:"timestamp"`
	Database      *database.Stats `json:"database,omitempty"`
	CPUPercent    float64         `json:"cpu_percent"`
	MemoryPercent float64         `json:"memory_percent"`
	ScheduledJobs int             `json:"scheduled_jobs"`
}

// HandleSystemStatus returns host resource usage and database statistics
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cpuPercent, memPercent := h.getSystemStats()
	response := SystemStatusResponse{
		Status:        "healthy",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
	}
	if h.jobs != nil {
		response.ScheduledJobs = h.jobs.Entries()
	}

	stats, err := h.db.GetStats(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get database statistics")
		response.Status = "degraded"
	} else {
		response.Database = stats
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode system status")
	}
}

// getSystemStats returns CPU and RAM usage percentages. CPU is sampled over
// 100ms to keep the request fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
