package server

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

type databaseHealth struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"sizeBytes"`
	Healthy   bool   `json:"healthy"`
}

type systemHealth struct {
	Status        string           `json:"status"`
	UptimeSeconds int64            `json:"uptimeSeconds"`
	CPUPercent    float64          `json:"cpuPercent"`
	MemoryPercent float64          `json:"memoryPercent"`
	Databases     []databaseHealth `json:"databases"`
	Subscribers   int              `json:"eventSubscribers"`
}

// handleHealth is the bare liveness probe.
// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleSystemHealth reports process and database health.
// GET /api/system/health
func (s *Server) handleSystemHealth(w http.ResponseWriter, r *http.Request) {
	cpuAvg, memUsed := s.systemStats()

	health := systemHealth{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		CPUPercent:    cpuAvg,
		MemoryPercent: memUsed,
		Subscribers:   s.deps.Events.SubscriberCount(),
	}

	for name, db := range s.deps.Databases {
		entry := databaseHealth{Name: name, Healthy: true}
		if info, err := os.Stat(db.Path()); err == nil {
			entry.SizeBytes = info.Size()
		}
		if err := db.Conn().Ping(); err != nil {
			entry.Healthy = false
			health.Status = "degraded"
		}
		health.Databases = append(health.Databases, entry)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(health)
}

// systemStats samples CPU over a short window so the endpoint stays
// responsive for pollers.
func (s *Server) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read CPU usage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read memory usage")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}
