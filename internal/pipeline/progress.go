package pipeline

import (
	"fmt"
	"sync/atomic"
	"time"
)

// ProgressTracker tracks completed units of work against a known total
type ProgressTracker struct {
	total       int64
	done        atomic.Int64
	startTime   time.Time
	description string
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(total int64, description string) *ProgressTracker {
	return &ProgressTracker{
		total:       total,
		startTime:   time.Now(),
		description: description,
	}
}

// Progress holds current progress information
type Progress struct {
	Current     int64
	Total       int64
	Percentage  float64
	Elapsed     time.Duration
	ETA         time.Duration
	Throughput  float64 // units per second
	Description string
}

// Done marks one unit complete and returns the updated progress
func (p *ProgressTracker) Done() Progress {
	return p.calculate(p.done.Add(1), time.Since(p.startTime))
}

// Calculate returns current progress metrics
func (p *ProgressTracker) Calculate() Progress {
	return p.calculate(p.done.Load(), time.Since(p.startTime))
}

func (p *ProgressTracker) calculate(current int64, elapsed time.Duration) Progress {
	var percentage float64
	var eta time.Duration

	if p.total > 0 && current > 0 {
		percentage = float64(current) / float64(p.total) * 100
		if current < p.total {
			// Estimate remaining time from the average time per unit so far
			perUnit := elapsed / time.Duration(current)
			eta = perUnit * time.Duration(p.total-current)
		}
	}

	var throughput float64
	if elapsed.Seconds() > 0 {
		throughput = float64(current) / elapsed.Seconds()
	}

	return Progress{
		Current:     current,
		Total:       p.total,
		Percentage:  percentage,
		Elapsed:     elapsed.Round(time.Second),
		ETA:         eta.Round(time.Second),
		Throughput:  throughput,
		Description: p.description,
	}
}

// FormatETA formats the ETA duration in a human-readable format
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "calculating..."
	}

	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatThroughput formats throughput as human-readable items per second
func FormatThroughput(itemsPerSec float64) string {
	if itemsPerSec >= 1_000_000 {
		return fmt.Sprintf("%.1fM/s", itemsPerSec/1_000_000)
	}
	if itemsPerSec >= 1_000 {
		return fmt.Sprintf("%.1fK/s", itemsPerSec/1_000)
	}
	return fmt.Sprintf("%.0f/s", itemsPerSec)
}
