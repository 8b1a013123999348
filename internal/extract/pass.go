package extract

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/routrace/mapgen/internal/logger"
)

// Counts tallies the objects a pass delivered
type Counts struct {
	Nodes     int64
	Ways      int64
	Relations int64
}

// Total returns the number of delivered objects
func (c Counts) Total() int64 {
	return c.Nodes + c.Ways + c.Relations
}

// ProgressTicker calls a function periodically for progress updates
type ProgressTicker struct {
	ctx      context.Context
	callback func()
	interval time.Duration
}

// NewProgressTicker creates a new progress ticker
func NewProgressTicker(ctx context.Context, interval time.Duration, callback func()) *ProgressTicker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &ProgressTicker{
		ctx:      ctx,
		callback: callback,
		interval: interval,
	}
}

// Run starts the ticker
func (p *ProgressTicker) Run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.callback()
		}
	}
}

// Run scans the source once, calling fn for every object the options keep.
// fn returning an error stops the pass.
func Run(ctx context.Context, src Source, name string, opts PassOptions, fn func(osm.Object) error) (Counts, error) {
	log := logger.Named("extract")
	start := time.Now()

	scanner, err := src.Open(ctx, opts)
	if err != nil {
		return Counts{}, err
	}
	defer scanner.Close()

	var nodes, ways, relations atomic.Int64

	tickCtx, stop := context.WithCancel(ctx)
	defer stop()
	go NewProgressTicker(tickCtx, 5*time.Second, func() {
		log.Info("Pass progress",
			zap.String("pass", name),
			zap.Int64("nodes", nodes.Load()),
			zap.Int64("ways", ways.Load()),
			zap.Int64("relations", relations.Load()),
			zap.Duration("elapsed", time.Since(start).Round(time.Second)))
	}).Run()

	for scanner.Scan() {
		obj := scanner.Object()
		switch obj.(type) {
		case *osm.Node:
			nodes.Add(1)
		case *osm.Way:
			ways.Add(1)
		case *osm.Relation:
			relations.Add(1)
		default:
			continue
		}
		if err := fn(obj); err != nil {
			return counts(&nodes, &ways, &relations), err
		}
	}

	c := counts(&nodes, &ways, &relations)
	if err := scanner.Err(); err != nil {
		return c, fmt.Errorf("%s: scan %s: %w", name, src, err)
	}
	if err := ctx.Err(); err != nil {
		return c, err
	}

	log.Debug("Pass complete",
		zap.String("pass", name),
		zap.Int64("nodes", c.Nodes),
		zap.Int64("ways", c.Ways),
		zap.Int64("relations", c.Relations),
		zap.Duration("elapsed", time.Since(start)))
	return c, nil
}

func counts(n, w, r *atomic.Int64) Counts {
	return Counts{Nodes: n.Load(), Ways: w.Load(), Relations: r.Load()}
}
