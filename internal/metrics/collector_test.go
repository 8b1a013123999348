package metrics

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCollector(t *testing.T) {
	c := NewCollector(0, zap.NewNop())
	if c.interval != 30*time.Second {
		t.Errorf("interval = %v, want 30s default", c.interval)
	}
	if c.Last() != nil {
		t.Error("Last() before any sample should be nil")
	}

	c.SetStage("discover")
	s := c.Collect()
	if s == nil || c.Last() != s {
		t.Fatal("Collect() did not store the sample")
	}
	if s.Timestamp.IsZero() {
		t.Error("sample has no timestamp")
	}
	if c.PeakRSS() != s.ProcessRSS {
		t.Errorf("PeakRSS() = %d, want %d", c.PeakRSS(), s.ProcessRSS)
	}
}

func TestCollectorStops(t *testing.T) {
	c := NewCollector(time.Second, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
	if c.Last() == nil {
		t.Error("Start() should take a first sample immediately")
	}
}
