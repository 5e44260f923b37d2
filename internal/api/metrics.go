package api

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats снимок ресурсов процесса
type ProcessStats struct {
	Uptime     string  `json:"uptime"`
	UptimeSec  int64   `json:"uptime_seconds"`
	CPUPercent float64 `json:"cpu_percent"`
	RSSMB      float64 `json:"rss_mb"`
	HeapMB     float64 `json:"heap_alloc_mb"`
	NumGC      uint32  `json:"num_gc"`
	Goroutines int     `json:"goroutines"`
}

// ServerMetrics собирает метрики процесса через gopsutil и runtime
type ServerMetrics struct {
	StartTime time.Time

	once sync.Once
	proc *process.Process
	err  error
}

// NewServerMetrics создает новый экземпляр метрик
func NewServerMetrics() *ServerMetrics {
	return &ServerMetrics{StartTime: time.Now()}
}

func (sm *ServerMetrics) process() (*process.Process, error) {
	sm.once.Do(func() {
		sm.proc, sm.err = process.NewProcess(int32(os.Getpid()))
	})
	return sm.proc, sm.err
}

// Snapshot возвращает текущие показатели. Ошибки gopsutil не фатальны: поля остаются нулевыми.
func (sm *ServerMetrics) Snapshot() ProcessStats {
	uptime := time.Since(sm.StartTime)
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := ProcessStats{
		Uptime:     formatUptime(uptime),
		UptimeSec:  int64(uptime.Seconds()),
		HeapMB:     float64(m.HeapAlloc) / 1024 / 1024,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
	if proc, err := sm.process(); err == nil {
		if cpu, err := proc.CPUPercent(); err == nil {
			stats.CPUPercent = cpu
		}
		if mem, err := proc.MemoryInfo(); err == nil {
			stats.RSSMB = float64(mem.RSS) / 1024 / 1024
		}
	}
	return stats
}

// formatUptime форматирует длительность как "1д 2ч 3м 4с", опуская старшие нулевые части
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}
