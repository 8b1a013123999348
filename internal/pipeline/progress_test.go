package pipeline

import (
	"testing"
	"time"
)

func TestFormatETA(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "calculating..."},
		{-time.Second, "calculating..."},
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
		{2*time.Hour + 1*time.Minute + 9*time.Second, "2h 1m 9s"},
	}
	for _, tt := range tests {
		if got := FormatETA(tt.d); got != tt.want {
			t.Errorf("FormatETA(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatThroughput(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{12, "12/s"},
		{1500, "1.5K/s"},
		{2_500_000, "2.5M/s"},
	}
	for _, tt := range tests {
		if got := FormatThroughput(tt.rate); got != tt.want {
			t.Errorf("FormatThroughput(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

func TestProgressTracker(t *testing.T) {
	p := NewProgressTracker(4, "highways")

	got := p.calculate(1, 10*time.Second)
	if got.Percentage != 25 {
		t.Errorf("Percentage = %v, want 25", got.Percentage)
	}
	if got.ETA != 30*time.Second {
		t.Errorf("ETA = %v, want 30s", got.ETA)
	}
	if got.Throughput != 0.1 {
		t.Errorf("Throughput = %v, want 0.1", got.Throughput)
	}

	if done := p.calculate(4, 20*time.Second); done.ETA != 0 || done.Percentage != 100 {
		t.Errorf("finished progress = %+v", done)
	}

	for i := 0; i < 3; i++ {
		p.Done()
	}
	if c := p.Calculate().Current; c != 3 {
		t.Errorf("Current = %d, want 3", c)
	}
}
