// Package metrics logs process and system resource usage while the passes
// run, and remembers peak memory for the run summary.
package metrics

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Snapshot holds one sample
type Snapshot struct {
	CPUPercent        float64 // System-wide CPU usage (0-100%)
	ProcessCPUPercent float64 // can exceed 100% on multi-core
	ProcessRSS        uint64
	MemoryUsed        uint64
	MemoryPercent     float64
	DiskReadPerSec    uint64
	DiskWritePerSec   uint64
	Timestamp         time.Time
}

// Collector periodically samples and logs resource usage
type Collector struct {
	interval time.Duration
	logger   *zap.Logger
	proc     *process.Process

	lastDisk     map[string]disk.IOCountersStat
	lastDiskTime time.Time

	mu      sync.RWMutex
	last    *Snapshot
	peakRSS uint64
	stage   string
}

// NewCollector creates a collector. Intervals under a second fall back to 30s.
func NewCollector(interval time.Duration, logger *zap.Logger) *Collector {
	if interval < time.Second {
		interval = 30 * time.Second
	}

	proc, _ := process.NewProcess(int32(os.Getpid()))

	return &Collector{
		interval: interval,
		logger:   logger,
		proc:     proc,
	}
}

// SetStage labels subsequent samples with the running pipeline stage
func (c *Collector) SetStage(stage string) {
	c.mu.Lock()
	c.stage = stage
	c.mu.Unlock()
}

// Start samples until ctx is cancelled
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// first sample initializes the disk baseline
	c.Collect()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Metrics collection stopped")
			return
		case <-ticker.C:
			c.Collect()
		}
	}
}

// Last returns the most recent sample, or nil before the first one
func (c *Collector) Last() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// PeakRSS returns the largest resident set size seen
func (c *Collector) PeakRSS() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peakRSS
}

// Collect takes and logs one sample
func (c *Collector) Collect() *Snapshot {
	s := &Snapshot{Timestamp: time.Now()}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}

	if c.proc != nil {
		if pct, err := c.proc.Percent(0); err == nil {
			s.ProcessCPUPercent = pct
		}
		if info, err := c.proc.MemoryInfo(); err == nil && info != nil {
			s.ProcessRSS = info.RSS
		}
	}

	if vmem, err := mem.VirtualMemory(); err == nil {
		s.MemoryUsed = vmem.Used
		s.MemoryPercent = vmem.UsedPercent
	}

	s.DiskReadPerSec, s.DiskWritePerSec = c.diskRates(s.Timestamp)

	c.mu.Lock()
	c.last = s
	if s.ProcessRSS > c.peakRSS {
		c.peakRSS = s.ProcessRSS
	}
	stage := c.stage
	c.mu.Unlock()

	c.logger.Info("System metrics",
		zap.String("stage", stage),
		zap.Float64("sys_cpu", s.CPUPercent),
		zap.Float64("proc_cpu", s.ProcessCPUPercent),
		zap.String("rss", humanize.IBytes(s.ProcessRSS)),
		zap.Float64("mem_pct", s.MemoryPercent),
		zap.String("disk_r", humanize.IBytes(s.DiskReadPerSec)+"/s"),
		zap.String("disk_w", humanize.IBytes(s.DiskWritePerSec)+"/s"),
	)
	return s
}

// diskRates returns bytes per second read and written since the last sample
func (c *Collector) diskRates(now time.Time) (read, write uint64) {
	counters, err := disk.IOCounters()
	if err != nil {
		return 0, 0
	}

	last, lastTime := c.lastDisk, c.lastDiskTime
	c.lastDisk, c.lastDiskTime = counters, now
	if last == nil {
		return 0, 0
	}

	elapsed := now.Sub(lastTime).Seconds()
	if elapsed < 0.1 {
		return 0, 0
	}

	var readDelta, writeDelta uint64
	for name, counter := range counters {
		prev, ok := last[name]
		if !ok {
			continue
		}
		// counters can wrap
		if counter.ReadBytes >= prev.ReadBytes {
			readDelta += counter.ReadBytes - prev.ReadBytes
		}
		if counter.WriteBytes >= prev.WriteBytes {
			writeDelta += counter.WriteBytes - prev.WriteBytes
		}
	}
	return uint64(float64(readDelta) / elapsed), uint64(float64(writeDelta) / elapsed)
}
