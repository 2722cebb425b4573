package services

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

var startedAt = time.Now()

// SystemSample is one reading of host and process health shown on the admin
// dashboard.
type SystemSample struct {
	CapturedAt        time.Time `json:"capturedAt" db:"captured_at"`
	ProcessRSSBytes   int64     `json:"processRssBytes" db:"process_rss_bytes"`
	SystemMemoryTotal int64     `json:"systemMemoryTotalBytes" db:"system_memory_total_bytes"`
	SystemMemoryUsed  int64     `json:"systemMemoryUsedBytes" db:"system_memory_used_bytes"`
	DiskTotalBytes    int64     `json:"diskTotalBytes" db:"disk_total_bytes"`
	DiskUsedBytes     int64     `json:"diskUsedBytes" db:"disk_used_bytes"`
	ProcessCPULoad    float64   `json:"processCpuLoad" db:"process_cpu_load"`
	SystemCPULoad     float64   `json:"systemCpuLoad" db:"system_cpu_load"`
	Goroutines        int       `json:"goroutines" db:"goroutines"`
	OpenConnections   int       `json:"openConnections" db:"open_connections"`
	UptimeSeconds     int64     `json:"uptimeSeconds" db:"uptime_seconds"`
}

// ReadSystemSample reads the current host and process figures without
// storing them.
func ReadSystemSample(db *sqlx.DB, diskPath string) SystemSample {
	sample := SystemSample{
		CapturedAt:    time.Now().UTC(),
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(startedAt).Seconds()),
	}
	if db != nil {
		sample.OpenConnections = db.Stats().OpenConnections
	}
	if memStat, err := mem.VirtualMemory(); err == nil {
		sample.SystemMemoryTotal = int64(memStat.Total)
		sample.SystemMemoryUsed = int64(memStat.Total - memStat.Available)
	}
	diskStat, err := disk.Usage(diskPath)
	if err != nil {
		diskStat, err = disk.Usage("/")
	}
	if err == nil {
		sample.DiskTotalBytes = int64(diskStat.Total)
		sample.DiskUsedBytes = int64(diskStat.Used)
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if rss, err := proc.MemoryInfo(); err == nil && rss != nil {
			sample.ProcessRSSBytes = int64(rss.RSS)
		}
		if cpuPerc, err := proc.CPUPercent(); err == nil {
			sample.ProcessCPULoad = cpuPerc / 100.0
		}
	}
	if sysCPU, err := cpu.Percent(0, false); err == nil && len(sysCPU) > 0 {
		sample.SystemCPULoad = sysCPU[0] / 100.0
	}
	return sample
}

// CaptureSystemSample reads and stores one sample.
func CaptureSystemSample(ctx context.Context, db *sqlx.DB, diskPath string) (SystemSample, error) {
	sample := ReadSystemSample(db, diskPath)
	_, err := db.ExecContext(ctx, `
INSERT INTO system_samples (
  id, captured_at, process_rss_bytes, system_memory_total_bytes, system_memory_used_bytes,
  disk_total_bytes, disk_used_bytes, process_cpu_load, system_cpu_load,
  goroutines, open_connections, uptime_seconds
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`, uuid.NewString(), sample.CapturedAt, sample.ProcessRSSBytes, sample.SystemMemoryTotal, sample.SystemMemoryUsed,
		sample.DiskTotalBytes, sample.DiskUsedBytes, sample.ProcessCPULoad, sample.SystemCPULoad,
		sample.Goroutines, sample.OpenConnections, sample.UptimeSeconds)
	if err != nil {
		return SystemSample{}, WrapError(err, "store system sample")
	}
	return sample, nil
}

// LatestSystemSamples returns up to limit samples in chronological order.
func LatestSystemSamples(ctx context.Context, db *sqlx.DB, limit int) ([]SystemSample, error) {
	rows := []SystemSample{}
	if err := db.SelectContext(ctx, &rows, `
SELECT captured_at, process_rss_bytes, system_memory_total_bytes, system_memory_used_bytes,
       disk_total_bytes, disk_used_bytes, process_cpu_load, system_cpu_load,
       goroutines, open_connections, uptime_seconds
FROM system_samples
ORDER BY captured_at DESC
LIMIT $1
`, limit); err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// PruneSystemSamples drops samples older than the retention window.
func PruneSystemSamples(ctx context.Context, db *sqlx.DB, retention time.Duration) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM system_samples WHERE captured_at < $1`, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MetricsHub fans system samples out to connected admin websockets.
type MetricsHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	ch      chan SystemSample
}

func NewMetricsHub() *MetricsHub {
	return &MetricsHub{
		clients: map[*websocket.Conn]bool{},
		ch:      make(chan SystemSample, 16),
	}
}

func (h *MetricsHub) Run(ctx context.Context) {
	for {
		select {
		case sample := <-h.ch:
			h.mu.Lock()
			for conn := range h.clients {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(sample); err != nil {
					delete(h.clients, conn)
					_ = conn.Close()
				}
			}
			h.mu.Unlock()
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				_ = conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast queues a sample; it is dropped when the hub is backed up.
func (h *MetricsHub) Broadcast(sample SystemSample) {
	select {
	case h.ch <- sample:
	default:
	}
}

func (h *MetricsHub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *MetricsHub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

func (h *MetricsHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
